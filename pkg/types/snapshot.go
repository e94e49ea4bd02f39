package types

// RoomState is the full canonical serialization of a room. It is sent after
// every successful mutation; clients replace their view with it.
type RoomState struct {
	RoomID          string           `json:"roomId"`
	Version         int              `json:"version"`
	Phase           string           `json:"phase"` // "lobby" | "selecting" | "contesting"
	CurrentTurnSeat int              `json:"currentTurnSeat"`
	Round           int              `json:"round"`
	TurnIndex       int              `json:"turnIndex"`
	TurnCount       int              `json:"turnCount"`
	SelectionStage  string           `json:"selectionStage"`
	DrawnResource   string           `json:"drawnResource,omitempty"`
	Seats           map[int]SeatView `json:"seats"`
	Contest         ContestView      `json:"contest"`
}

type SeatView struct {
	Name          string                    `json:"name"`
	Connected     bool                      `json:"connected"`
	Ready         bool                      `json:"ready"`
	Budget        int                       `json:"budget"`
	UsedResources []string                  `json:"usedResources"`
	Roster        map[string]*CandidateData `json:"roster"` // PG, SG, SF, PF, C; null when empty
}

type CandidateData struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	NameEn        string   `json:"nameEn"`
	PeakSeason    string   `json:"peakSeason,omitempty"`
	Cost          int      `json:"cost"`
	Slots         []string `json:"slots"`
	ResourceID    string   `json:"resourceId"`
	Championships int      `json:"championships"`
	AllStars      int      `json:"allStars"`
	MVPs          int      `json:"mvps"`
	FinalsMVPs    int      `json:"finalsMvps"`
}

type ContestView struct {
	Started     bool        `json:"started"`
	Finished    bool        `json:"finished"`
	SeriesScore SeriesScore `json:"seriesScore"`
	GamesPlayed int         `json:"gamesPlayed"`
	Champion    int         `json:"champion,omitempty"`
}
