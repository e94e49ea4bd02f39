package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type OracleMode string

const (
	OracleModeGame   OracleMode = "game"
	OracleModeSeries OracleMode = "series"
)

type Config struct {
	// Server
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string

	// Draft
	InitialBudget  int
	RoomCodeLength int
	CatalogPath    string

	// Oracle; an empty URL means the local model resolves every game.
	OracleURL     string
	OracleMode    OracleMode
	OracleTimeout time.Duration
	OracleRetries int
	OracleBackoff time.Duration

	// Database; empty disables the series archive.
	DatabaseURL string
}

// Load reads the environment, after merging an optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
		InitialBudget:  getEnvInt("INITIAL_BUDGET", 11, &errs),
		RoomCodeLength: getEnvInt("ROOM_CODE_LENGTH", 6, &errs),
		CatalogPath:    getEnv("CATALOG_PATH", ""),
		OracleURL:      getEnv("ORACLE_URL", ""),
		OracleMode:     OracleMode(getEnv("ORACLE_MODE", string(OracleModeGame))),
		OracleTimeout:  time.Duration(getEnvInt("ORACLE_TIMEOUT_SECONDS", 300, &errs)) * time.Second,
		OracleRetries:  getEnvInt("ORACLE_RETRIES", 2, &errs),
		OracleBackoff:  time.Duration(getEnvInt("ORACLE_BACKOFF_MS", 3000, &errs)) * time.Millisecond,
		DatabaseURL:    getEnv("DATABASE_URL", ""),
	}

	if cfg.InitialBudget < 0 {
		errs = append(errs, errors.New("INITIAL_BUDGET must be non-negative"))
	}
	if cfg.RoomCodeLength < 4 {
		errs = append(errs, errors.New("ROOM_CODE_LENGTH must be at least 4"))
	}
	if cfg.OracleMode != OracleModeGame && cfg.OracleMode != OracleModeSeries {
		errs = append(errs, fmt.Errorf("ORACLE_MODE must be %q or %q", OracleModeGame, OracleModeSeries))
	}
	if cfg.OracleRetries < 0 {
		errs = append(errs, errors.New("ORACLE_RETRIES must be non-negative"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
