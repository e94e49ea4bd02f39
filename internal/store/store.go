package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

// SeriesRecord is one finished contest.
type SeriesRecord struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	RoomCode  string         `json:"roomCode" gorm:"index;not null"`
	Team1Name string         `json:"team1Name" gorm:"not null"`
	Team2Name string         `json:"team2Name" gorm:"not null"`
	Team1Wins int            `json:"team1Wins" gorm:"not null"`
	Team2Wins int            `json:"team2Wins" gorm:"not null"`
	Champion  int            `json:"champion" gorm:"not null"`
	FinalsMVP string         `json:"finalsMvp"`
	Source    string         `json:"source" gorm:"not null"`
	Rosters   datatypes.JSON `json:"rosters" gorm:"type:jsonb;default:'{}'"`
	Games     datatypes.JSON `json:"games" gorm:"type:jsonb;default:'[]'"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (SeriesRecord) TableName() string { return "series_results" }

func NewSeriesRecord(code string, names [2]string, rosters [2]engine.Roster, result *types.SeriesResult) (*SeriesRecord, error) {
	rosterJSON, err := json.Marshal(map[string]engine.Roster{"1": rosters[0], "2": rosters[1]})
	if err != nil {
		return nil, fmt.Errorf("encode rosters: %w", err)
	}
	gamesJSON, err := json.Marshal(result.Games)
	if err != nil {
		return nil, fmt.Errorf("encode games: %w", err)
	}

	rec := &SeriesRecord{
		ID:        uuid.New(),
		RoomCode:  code,
		Team1Name: names[0],
		Team2Name: names[1],
		Team1Wins: result.FinalScore.Team1Wins,
		Team2Wins: result.FinalScore.Team2Wins,
		Champion:  result.Champion,
		Source:    string(result.Source),
		Rosters:   datatypes.JSON(rosterJSON),
		Games:     datatypes.JSON(gamesJSON),
	}
	if result.FMVP != nil {
		rec.FinalsMVP = result.FMVP.Name
	}
	return rec, nil
}

type Archive interface {
	SaveSeries(ctx context.Context, rec *SeriesRecord) error
	Close() error
}

// NopArchive drops every record. Used when no database is configured.
type NopArchive struct{}

func (NopArchive) SaveSeries(context.Context, *SeriesRecord) error { return nil }
func (NopArchive) Close() error                                    { return nil }

type GormArchive struct {
	db *gorm.DB
}

func Open(databaseURL string) (*GormArchive, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return NewGormArchive(db)
}

func NewGormArchive(db *gorm.DB) (*GormArchive, error) {
	if err := db.AutoMigrate(&SeriesRecord{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &GormArchive{db: db}, nil
}

func (a *GormArchive) SaveSeries(ctx context.Context, rec *SeriesRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if err := a.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("save series %s: %w", rec.RoomCode, err)
	}
	return nil
}

func (a *GormArchive) ByRoom(ctx context.Context, code string) ([]SeriesRecord, error) {
	var out []SeriesRecord
	err := a.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list series %s: %w", code, err)
	}
	return out, nil
}

func (a *GormArchive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var (
	_ Archive = NopArchive{}
	_ Archive = (*GormArchive)(nil)
)
