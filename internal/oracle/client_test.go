package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/hoops-draft-backend/internal/catalog"
	"github.com/DoyleJ11/hoops-draft-backend/internal/contest"
	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

func sse(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	for _, l := range lines {
		fmt.Fprintf(w, "data: %s\n\n", l)
	}
}

func matchup() contest.Matchup {
	var r1, r2 engine.Roster
	r1[engine.SlotPG] = &engine.Pick{ID: "a", Name: "Ace", NameEn: "Ace Walker", PeakSeason: "1995-96", Cost: 5, Slots: []engine.Slot{engine.SlotPG}}
	r2[engine.SlotC] = &engine.Pick{ID: "b", Name: "Big", Cost: 4, Slots: []engine.Slot{engine.SlotC}}
	return contest.Matchup{
		Team1: contest.Side{Name: "Alice", Roster: r1},
		Team2: contest.Side{Name: "Bob", Roster: r2},
	}
}

func TestSimulateGame_StreamsAndDecodesResult(t *testing.T) {
	var got request
	var team1 map[string]map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, gamePath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &got))
		var teams struct {
			Team1 map[string]map[string]any `json:"team1"`
		}
		assert.NoError(t, json.Unmarshal(body, &teams))
		team1 = teams.Team1
		sse(w,
			`{"type":"prompt","systemPrompt":"x","userPrompt":"y"}`,
			`{"type":"reasoning","content":"thinking"}`,
			`{"type":"content","content":"{\"winner\""}`,
			`{"type":"result","data":{"winner":2,"score":{"team1":98,"team2":104},"mvp":{"name":"Big","performance":"30/12"}}}`,
			`[DONE]`,
		)
	}))
	defer srv.Close()

	var chunks []types.ContestStream
	c := NewClient(srv.URL+"/", zaptest.NewLogger(t))
	req := contest.GameRequest{Matchup: matchup(), GameNumber: 3, SeriesScore: types.SeriesScore{Team1: 2}}
	res, err := c.SimulateGame(context.Background(), req, func(u types.ContestStream) { chunks = append(chunks, u) })
	require.NoError(t, err)

	assert.Equal(t, 2, res.Winner)
	assert.Equal(t, types.SeriesScore{Team1: 98, Team2: 104}, res.Score)
	require.NotNil(t, res.MVP)
	assert.Equal(t, "Big", res.MVP.Name)

	require.Len(t, chunks, 3)
	assert.Equal(t, types.StreamPrompt, chunks[0].Type)
	assert.Equal(t, "x", chunks[0].SystemPrompt)
	assert.Equal(t, "y", chunks[0].UserPrompt)
	assert.Equal(t, types.StreamReasoning, chunks[1].Type)
	assert.Equal(t, "thinking", chunks[1].Content)
	assert.Equal(t, 3, chunks[1].Game)
	assert.Equal(t, types.StreamContent, chunks[2].Type)

	assert.Equal(t, 3, got.GameNumber)
	assert.Equal(t, 2, got.SeriesScore.Team1)
	assert.Equal(t, map[string]string{"1": "Alice", "2": "Bob"}, got.PlayerNames)
	require.NotNil(t, got.Team1[engine.SlotPG])
	assert.Equal(t, "Ace", got.Team1[engine.SlotPG].Name)
	assert.Nil(t, got.Team1[engine.SlotC])

	// The oracle builds its prompt from nameEn and peakSeason on every player.
	pg := team1["PG"]
	require.NotNil(t, pg)
	assert.Equal(t, "Ace Walker", pg["nameEn"])
	assert.Equal(t, "1995-96", pg["peakSeason"])
}

func TestSimulateGame_SendsCatalogPlayerDetails(t *testing.T) {
	cat, err := catalog.Load("")
	require.NoError(t, err)
	res := cat.Resources()[0]
	cand := cat.CandidatesByResource(res.ID)[0]

	var r1 engine.Roster
	pick := engine.NewPick(cand)
	r1[cand.EligibleSlots()[0]] = &pick

	var players []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Team1 map[string]map[string]any `json:"team1"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for _, p := range body.Team1 {
			if p != nil {
				players = append(players, p)
			}
		}
		sse(w, `{"type":"result","data":{"winner":1}}`, `[DONE]`)
	}))
	defer srv.Close()

	m := contest.Matchup{Team1: contest.Side{Name: "Alice", Roster: r1}, Team2: contest.Side{Name: "Bob"}}
	_, err = NewClient(srv.URL, zaptest.NewLogger(t)).SimulateGame(context.Background(), contest.GameRequest{Matchup: m, GameNumber: 1}, nil)
	require.NoError(t, err)

	require.Len(t, players, 1)
	assert.Equal(t, cand.EnglishName(), players[0]["nameEn"])
	assert.NotEmpty(t, players[0]["nameEn"])
	assert.Equal(t, cand.Season(), players[0]["peakSeason"])
}

func TestSimulateSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, seriesPath, r.URL.Path)
		sse(w,
			`{"type":"result","data":{"champion":1,"finalScore":{"team1Wins":4,"team2Wins":0},"games":[{"winner":1},{"winner":1},{"winner":1},{"winner":1}],"fmvp":{"name":"Ace","team":1,"avgStats":{"points":31.5,"rebounds":6,"assists":8}},"summary":"sweep"}}`,
			`[DONE]`,
		)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, zaptest.NewLogger(t)).SimulateSeries(context.Background(), matchup(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Champion)
	assert.Len(t, res.Games, 4)
	require.NotNil(t, res.FMVP)
	assert.Equal(t, 31.5, res.FMVP.AvgStats.Points)
	assert.Equal(t, "sweep", res.Summary)
}

func TestSimulateGame_Failures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "bad status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "error event",
			handler: func(w http.ResponseWriter, r *http.Request) {
				sse(w, `{"type":"content","content":"partial"}`, `{"type":"error","error":"model overloaded"}`)
			},
		},
		{
			name: "no result",
			handler: func(w http.ResponseWriter, r *http.Request) {
				sse(w, `{"type":"content","content":"partial"}`, `[DONE]`)
			},
		},
		{
			name: "undecodable result",
			handler: func(w http.ResponseWriter, r *http.Request) {
				sse(w, `{"type":"result","data":"not an object"}`, `[DONE]`)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c := NewClient(srv.URL, zaptest.NewLogger(t))
			_, err := c.SimulateGame(context.Background(), contest.GameRequest{Matchup: matchup(), GameNumber: 1}, nil)
			assert.ErrorIs(t, err, ErrOracleUnavailable)
		})
	}
}

func TestSimulateGame_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, zaptest.NewLogger(t)).SimulateGame(context.Background(), contest.GameRequest{Matchup: matchup()}, nil)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
}

func TestSimulateGame_HonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL, zaptest.NewLogger(t)).SimulateGame(ctx, contest.GameRequest{Matchup: matchup()}, nil)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_WithOrchestrator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sse(w, `{"type":"result","data":{"winner":1,"score":{"team1":110,"team2":100}}}`, `[DONE]`)
	}))
	defer srv.Close()

	o := contest.New(zaptest.NewLogger(t), contest.WithGameOracle(NewClient(srv.URL, zaptest.NewLogger(t))))
	res, err := o.Run(context.Background(), matchup(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Champion)
	assert.Equal(t, types.FinalScore{Team1Wins: 4}, res.FinalScore)
	assert.Equal(t, types.SourceOracle, res.Source)
}
