package oracle

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/hoops-draft-backend/internal/contest"
	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

var ErrOracleUnavailable = errors.New("oracle unavailable")

const (
	gamePath   = "/api/simulate-game-stream"
	seriesPath = "/api/simulate-series"
)

// Client talks to the narrative oracle over HTTP. Both endpoints answer with
// a server-sent event stream that ends in a result or an error event.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Per-attempt deadlines come from the caller's context.
		httpClient: &http.Client{Transport: http.DefaultTransport},
		logger:     logger,
	}
}

type request struct {
	Team1       engine.Roster     `json:"team1"`
	Team2       engine.Roster     `json:"team2"`
	GameNumber  int               `json:"gameNumber,omitempty"`
	SeriesScore types.SeriesScore `json:"seriesScore"`
	PlayerNames map[string]string `json:"playerNames"`
}

func newRequest(m contest.Matchup) request {
	return request{
		Team1:       m.Team1.Roster,
		Team2:       m.Team2.Roster,
		PlayerNames: map[string]string{"1": m.Team1.Name, "2": m.Team2.Name},
	}
}

type event struct {
	Type         string          `json:"type"`
	Content      string          `json:"content"`
	SystemPrompt string          `json:"systemPrompt"`
	UserPrompt   string          `json:"userPrompt"`
	Data         json.RawMessage `json:"data"`
	Error        string          `json:"error"`
}

func (c *Client) SimulateGame(ctx context.Context, req contest.GameRequest, emit contest.Emit) (types.GameResult, error) {
	body := newRequest(req.Matchup)
	body.GameNumber = req.GameNumber
	body.SeriesScore = req.SeriesScore

	var result types.GameResult
	if err := c.stream(ctx, gamePath, body, req.GameNumber, emit, &result); err != nil {
		return types.GameResult{}, err
	}
	return result, nil
}

func (c *Client) SimulateSeries(ctx context.Context, m contest.Matchup, emit contest.Emit) (types.SeriesResult, error) {
	var result types.SeriesResult
	if err := c.stream(ctx, seriesPath, newRequest(m), 0, emit, &result); err != nil {
		return types.SeriesResult{}, err
	}
	return result, nil
}

func (c *Client) stream(ctx context.Context, path string, body request, game int, emit contest.Emit, out any) error {
	if emit == nil {
		emit = func(types.ContestStream) {}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode oracle request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build oracle request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrOracleUnavailable, resp.StatusCode)
	}

	gotResult := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}

		var ev event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			c.logger.Debug("skipping malformed oracle event", zap.Error(err))
			continue
		}

		switch ev.Type {
		case "prompt":
			emit(types.ContestStream{
				Type: types.StreamPrompt, Game: game,
				SystemPrompt: ev.SystemPrompt, UserPrompt: ev.UserPrompt,
			})
		case "reasoning":
			emit(types.ContestStream{Type: types.StreamReasoning, Game: game, Content: ev.Content})
		case "content":
			emit(types.ContestStream{Type: types.StreamContent, Game: game, Content: ev.Content})
		case "result":
			if err := json.Unmarshal(ev.Data, out); err != nil {
				return fmt.Errorf("%w: decode result: %w", ErrOracleUnavailable, err)
			}
			gotResult = true
		case "error":
			return fmt.Errorf("%w: %s", ErrOracleUnavailable, ev.Error)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: read stream: %w", ErrOracleUnavailable, err)
	}
	if !gotResult {
		return fmt.Errorf("%w: stream ended without a result", ErrOracleUnavailable)
	}

	c.logger.Debug("oracle call finished", zap.String("path", path), zap.Int("game", game),
		zap.Duration("took", time.Since(start)))
	return nil
}

var (
	_ contest.GameOracle   = (*Client)(nil)
	_ contest.SeriesOracle = (*Client)(nil)
)
