package types

type StreamType string

const (
	StreamPrompt    StreamType = "prompt"
	StreamReasoning StreamType = "reasoning"
	StreamContent   StreamType = "content"
	StreamResult    StreamType = "result"
	StreamError     StreamType = "error"
)

// ContestStream is one piece of contest output. Prompt, reasoning and content
// chunks are informational; only a result moves the series score. Attempt
// numbers oracle chunks from 1 so a retry can be told apart.
type ContestStream struct {
	Type         StreamType   `json:"type"`
	Game         int          `json:"game,omitempty"`
	Attempt      int          `json:"attempt,omitempty"`
	Content      string       `json:"content,omitempty"`
	SystemPrompt string       `json:"systemPrompt,omitempty"`
	UserPrompt   string       `json:"userPrompt,omitempty"`
	Result       *GameResult  `json:"result,omitempty"`
	SeriesScore  *SeriesScore `json:"seriesScore,omitempty"`
	Fallback     bool         `json:"fallback,omitempty"`
	Message      string       `json:"message,omitempty"`
}

type SeriesScore struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

type Source string

const (
	SourceOracle Source = "oracle"
	SourceLocal  Source = "local"
)

type GameResult struct {
	GameNumber int          `json:"gameNumber"`
	Winner     int          `json:"winner"`
	Score      SeriesScore  `json:"score"`
	KeyFactor  string       `json:"keyFactor,omitempty"`
	Narrative  string       `json:"narrative,omitempty"`
	Team1Stats []PlayerLine `json:"team1Stats,omitempty"`
	Team2Stats []PlayerLine `json:"team2Stats,omitempty"`
	MVP        *GameMVP     `json:"mvp,omitempty"`
	Source     Source       `json:"source,omitempty"`
}

type PlayerLine struct {
	Name     string `json:"name"`
	Points   int    `json:"points"`
	Rebounds int    `json:"rebounds"`
	Assists  int    `json:"assists"`
	Steals   int    `json:"steals"`
	Blocks   int    `json:"blocks"`
	FGM      int    `json:"fgm"`
	FGA      int    `json:"fga"`
	TPM      int    `json:"tpm"`
	TPA      int    `json:"tpa"`
}

type GameMVP struct {
	Name        string `json:"name"`
	Team        int    `json:"team,omitempty"`
	Points      int    `json:"points,omitempty"`
	Rebounds    int    `json:"rebounds,omitempty"`
	Assists     int    `json:"assists,omitempty"`
	Performance string `json:"performance,omitempty"`
}

type FinalScore struct {
	Team1Wins int `json:"team1Wins"`
	Team2Wins int `json:"team2Wins"`
}

type SeriesResult struct {
	Champion   int          `json:"champion"`
	FinalScore FinalScore   `json:"finalScore"`
	Games      []GameResult `json:"games"`
	FMVP       *FinalsMVP   `json:"fmvp,omitempty"`
	Summary    string       `json:"summary,omitempty"`
	Source     Source       `json:"source,omitempty"`
}

type FinalsMVP struct {
	Name     string   `json:"name"`
	Team     int      `json:"team"`
	AvgStats AvgStats `json:"avgStats"`
	Reason   string   `json:"reason,omitempty"`
}

type AvgStats struct {
	Points   float64 `json:"points"`
	Rebounds float64 `json:"rebounds"`
	Assists  float64 `json:"assists"`
}
