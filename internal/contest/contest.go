package contest

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

const (
	WinsNeeded = 4
	MaxGames   = 2*WinsNeeded - 1
)

var ErrInvalidResult = errors.New("invalid contest result")

type Side struct {
	Name   string
	Roster engine.Roster
}

type Matchup struct {
	Team1 Side
	Team2 Side
}

func (m Matchup) side(team int) Side {
	if team == 2 {
		return m.Team2
	}
	return m.Team1
}

type GameRequest struct {
	Matchup
	GameNumber  int
	SeriesScore types.SeriesScore
}

// Emit receives streamed contest output. It is called from the contest
// goroutine.
type Emit func(types.ContestStream)

type GameOracle interface {
	SimulateGame(ctx context.Context, req GameRequest, emit Emit) (types.GameResult, error)
}

type SeriesOracle interface {
	SimulateSeries(ctx context.Context, m Matchup, emit Emit) (types.SeriesResult, error)
}

type Orchestrator struct {
	games   GameOracle
	series  SeriesOracle
	retries int
	backoff time.Duration
	timeout time.Duration
	newRand func() *rand.Rand
	logger  *zap.Logger
}

type Option func(*Orchestrator)

func WithGameOracle(g GameOracle) Option {
	return func(o *Orchestrator) { o.games = g }
}

func WithSeriesOracle(s SeriesOracle) Option {
	return func(o *Orchestrator) { o.series = s }
}

// WithRetry sets how many times a failed oracle call is retried and the
// fixed wait between attempts.
func WithRetry(retries int, wait time.Duration) Option {
	return func(o *Orchestrator) {
		o.retries = retries
		o.backoff = wait
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

func WithRand(newRand func() *rand.Rand) Option {
	return func(o *Orchestrator) { o.newRand = newRand }
}

func New(logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		retries: 2,
		backoff: 3 * time.Second,
		timeout: 5 * time.Minute,
		newRand: func() *rand.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) },
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Run plays a best-of-seven series. It only fails when ctx is cancelled; an
// unreachable oracle is replaced by the local model.
func (o *Orchestrator) Run(ctx context.Context, m Matchup, emit Emit) (*types.SeriesResult, error) {
	if emit == nil {
		emit = func(types.ContestStream) {}
	}
	rng := o.newRand()

	if o.series != nil {
		result, err := o.askSeries(ctx, m, emit)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.logger.Warn("series oracle unavailable, using local model", zap.Error(err))
		emit(types.ContestStream{
			Type:     types.StreamError,
			Fallback: true,
			Message:  "Oracle unavailable, the series is simulated locally.",
		})
	}

	var score types.SeriesScore
	games := make([]types.GameResult, 0, MaxGames)
	for game := 1; score.Team1 < WinsNeeded && score.Team2 < WinsNeeded; game++ {
		result, fallback, err := o.playGame(ctx, m, game, score, rng, emit)
		if err != nil {
			return nil, err
		}
		if result.Winner == 1 {
			score.Team1++
		} else {
			score.Team2++
		}
		games = append(games, result)

		running := score
		emit(types.ContestStream{
			Type:        types.StreamResult,
			Game:        game,
			Result:      &result,
			SeriesScore: &running,
			Fallback:    fallback,
		})
	}

	return Summarize(m, games), nil
}

func (o *Orchestrator) playGame(ctx context.Context, m Matchup, game int, score types.SeriesScore, rng *rand.Rand, emit Emit) (types.GameResult, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.GameResult{}, false, err
	}
	if o.games != nil {
		req := GameRequest{Matchup: m, GameNumber: game, SeriesScore: score}
		result, err := o.askGame(ctx, req, emit)
		if err == nil {
			result.GameNumber = game
			result.Source = types.SourceOracle
			return result, false, nil
		}
		if ctx.Err() != nil {
			return types.GameResult{}, false, ctx.Err()
		}
		o.logger.Warn("game oracle unavailable, using local model", zap.Int("game", game), zap.Error(err))
		emit(types.ContestStream{
			Type:     types.StreamError,
			Game:     game,
			Fallback: true,
			Message:  fmt.Sprintf("Oracle unavailable for game %d, simulated locally.", game),
		})
	}
	return SimulateGame(m, game, rng), o.games != nil, nil
}

func (o *Orchestrator) askGame(ctx context.Context, req GameRequest, emit Emit) (types.GameResult, error) {
	var result types.GameResult
	attempt := 0
	op := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		res, err := o.games.SimulateGame(attemptCtx, req, oracleChunks(emit, attempt))
		if err != nil {
			return err
		}
		if res.Winner != 1 && res.Winner != 2 {
			return fmt.Errorf("%w: winner %d", ErrInvalidResult, res.Winner)
		}
		result = res
		return nil
	}
	notify := func(err error, wait time.Duration) {
		o.logger.Info("retrying game oracle",
			zap.Int("game", req.GameNumber), zap.Duration("wait", wait), zap.Error(err))
	}
	return result, backoff.RetryNotify(op, o.policy(ctx), notify)
}

func (o *Orchestrator) askSeries(ctx context.Context, m Matchup, emit Emit) (*types.SeriesResult, error) {
	var result types.SeriesResult
	attempt := 0
	op := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		res, err := o.series.SimulateSeries(attemptCtx, m, oracleChunks(emit, attempt))
		if err != nil {
			return err
		}
		if err := validateSeries(res); err != nil {
			return err
		}
		result = res
		return nil
	}
	notify := func(err error, wait time.Duration) {
		o.logger.Info("retrying series oracle", zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(op, o.policy(ctx), notify); err != nil {
		return nil, err
	}

	// Replay the games so observers see the score move one game at a time.
	var score types.SeriesScore
	for i := range result.Games {
		game := &result.Games[i]
		game.GameNumber = i + 1
		game.Source = types.SourceOracle
		if game.Winner == 1 {
			score.Team1++
		} else {
			score.Team2++
		}
		running := score
		emit(types.ContestStream{Type: types.StreamResult, Game: i + 1, Result: game, SeriesScore: &running})
	}
	result.Source = types.SourceOracle
	if result.FMVP == nil {
		result.FMVP = FinalsMVP(m, result.Champion, result.Games)
	}
	return &result, nil
}

// oracleChunks forwards an oracle's partial output tagged with its attempt.
// Results are dropped here; they are emitted once validated.
func oracleChunks(emit Emit, attempt int) Emit {
	return func(c types.ContestStream) {
		if c.Type == types.StreamResult {
			return
		}
		c.Attempt = attempt
		emit(c)
	}
}

func (o *Orchestrator) policy(ctx context.Context) backoff.BackOffContext {
	retries := max(o.retries, 0)
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(o.backoff), uint64(retries)),
		ctx,
	)
}

func validateSeries(r types.SeriesResult) error {
	var score types.SeriesScore
	for i, g := range r.Games {
		if score.Team1 == WinsNeeded || score.Team2 == WinsNeeded {
			return fmt.Errorf("%w: game %d played after the series ended", ErrInvalidResult, i+1)
		}
		switch g.Winner {
		case 1:
			score.Team1++
		case 2:
			score.Team2++
		default:
			return fmt.Errorf("%w: game %d winner %d", ErrInvalidResult, i+1, g.Winner)
		}
	}

	champion := 0
	switch {
	case score.Team1 == WinsNeeded:
		champion = 1
	case score.Team2 == WinsNeeded:
		champion = 2
	default:
		return fmt.Errorf("%w: series ended %d-%d", ErrInvalidResult, score.Team1, score.Team2)
	}
	if r.Champion != champion {
		return fmt.Errorf("%w: champion %d does not match games", ErrInvalidResult, r.Champion)
	}
	if r.FinalScore.Team1Wins != score.Team1 || r.FinalScore.Team2Wins != score.Team2 {
		return fmt.Errorf("%w: final score does not match games", ErrInvalidResult)
	}
	return nil
}
