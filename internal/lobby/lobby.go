package lobby

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/hoops-draft-backend/internal/catalog"
	"github.com/DoyleJ11/hoops-draft-backend/internal/contest"
	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/internal/store"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

type Msg interface{ isLobbyMsg() }

// Join takes the first free seat. Created marks the room's host.
type Join struct {
	ClientID string
	Name     string
	Outbox   chan types.ServerMessage
	Created  bool
	Reply    chan JoinResult
}

func (Join) isLobbyMsg() {}

// Rejoin reclaims a disconnected seat with the token issued when it was
// first taken.
type Rejoin struct {
	ClientID string
	Seat     engine.Seat
	Token    string
	Outbox   chan types.ServerMessage
	Reply    chan JoinResult
}

func (Rejoin) isLobbyMsg() {}

type JoinResult struct {
	Seat  engine.Seat
	Token string
	Err   error
}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type ActionType int

const (
	ActDraw ActionType = iota
	ActRandomDraw
	ActPick
	ActCustom
	ActRedraw
	ActSkip
)

type Action struct {
	ClientID    string
	Seat        engine.Seat
	Type        ActionType
	ResourceID  string
	CandidateID string
	Slot        engine.Slot
	Custom      catalog.CustomSpec
	Reply       chan error
}

func (Action) isLobbyMsg() {}

type Ready struct {
	ClientID string
	Seat     engine.Seat
	Reply    chan error
}

func (Ready) isLobbyMsg() {}

type StartContest struct {
	ClientID string
	Seat     engine.Seat
	Reply    chan error
}

func (StartContest) isLobbyMsg() {}

// Restart clears a finished room for a rematch between the same seats.
type Restart struct {
	ClientID string
	Seat     engine.Seat
	Reply    chan error
}

func (Restart) isLobbyMsg() {}

type Sync struct {
	ClientID string
	Reply    chan error
}

func (Sync) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type contestUpdate struct{ stream types.ContestStream }

func (contestUpdate) isLobbyMsg() {}

type contestDone struct {
	result *types.SeriesResult
	err    error
}

func (contestDone) isLobbyMsg() {}

type View struct {
	Version    int
	NumClients int
	State      engine.State
	Room       types.RoomState
	Events     []engine.Event
}

type Contester interface {
	Run(ctx context.Context, m contest.Matchup, emit contest.Emit) (*types.SeriesResult, error)
}

type Config struct {
	Code    string
	Rules   engine.Rules
	Catalog catalog.Provider
	Contest Contester
	Archive store.Archive
	Logger  *zap.Logger
	Rand    *rand.Rand

	// Host, when set, is seated before any other message reaches the lobby.
	Host *Join

	// OnClose runs on the lobby goroutine when the room empties. It must not
	// block.
	OnClose func(*Lobby)
}

type seriesState struct {
	started  bool
	finished bool
	score    types.SeriesScore
	games    int
	champion int
	result   *types.SeriesResult
}

type Lobby struct {
	code    string
	inbox   chan Msg
	done    chan struct{}
	state   engine.State
	events  []engine.Event
	version int
	seats   [2]*member

	catalog catalog.Provider
	runner  Contester
	archive store.Archive
	rng     *rand.Rand
	onClose func(*Lobby)
	logger  *zap.Logger

	series        seriesState
	cancelContest context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

func NewLobby(parent context.Context, cfg Config) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	logger := cfg.Logger.With(zap.String("room", cfg.Code))
	if cfg.Rules == (engine.Rules{}) {
		cfg.Rules = engine.DefaultRules()
	}
	if cfg.Contest == nil {
		cfg.Contest = contest.New(logger)
	}
	if cfg.Archive == nil {
		cfg.Archive = store.NopArchive{}
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	l := &Lobby{
		code:    cfg.Code,
		inbox:   make(chan Msg, 64),
		done:    make(chan struct{}),
		state:   engine.NewState(cfg.Rules),
		catalog: cfg.Catalog,
		runner:  cfg.Contest,
		archive: cfg.Archive,
		rng:     cfg.Rand,
		onClose: cfg.OnClose,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	if cfg.Host != nil {
		host := *cfg.Host
		host.Created = true
		l.inbox <- host
	}

	go l.loop()
	return l
}

func (l *Lobby) Code() string { return l.code }

// Done is closed once the lobby goroutine has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			if !l.handle(m) {
				l.shutdown()
				return
			}
		}
	}
}

// handle applies one message and reports whether the lobby keeps running.
func (l *Lobby) handle(m Msg) bool {
	switch msg := m.(type) {
	case Join:
		msg.Reply <- l.join(msg)
	case Rejoin:
		msg.Reply <- l.rejoin(msg)
	case Leave:
		if seat := l.seatOf(msg.ClientID); seat != 0 {
			l.disconnect(seat, "left the room")
		}
	case Action:
		msg.Reply <- l.act(msg)
	case Ready:
		msg.Reply <- l.ready(msg)
	case StartContest:
		msg.Reply <- l.startContest(msg)
	case Restart:
		msg.Reply <- l.restart(msg)
	case Sync:
		msg.Reply <- l.sync(msg.ClientID)
	case GetState:
		msg.Reply <- l.view()
	case contestUpdate:
		l.contestUpdate(msg.stream)
	case contestDone:
		l.contestDone(msg)
	case Shutdown:
		return false
	}

	if l.abandoned() {
		l.logger.Info("room abandoned")
		if l.onClose != nil {
			l.onClose(l)
		}
		return false
	}
	return true
}

func (l *Lobby) shutdown() {
	if l.cancelContest != nil {
		l.cancelContest()
	}
	for _, m := range l.seats {
		if m != nil && m.outbox != nil {
			close(m.outbox) // Tell client no more messages
			m.outbox = nil
		}
	}
	l.cancel()
}

func (l *Lobby) join(msg Join) JoinResult {
	if l.seatOf(msg.ClientID) != 0 {
		return JoinResult{Err: ErrAlreadyInRoom}
	}
	seat := l.freeSeat()
	if seat == 0 {
		return JoinResult{Err: ErrRoomFull}
	}
	token, hash, err := newToken()
	if err != nil {
		return JoinResult{Err: fmt.Errorf("issue token: %w", err)}
	}

	l.seats[seat-1] = &member{
		name:      normalizeName(msg.Name, seat),
		clientID:  msg.ClientID,
		outbox:    msg.Outbox,
		tokenHash: hash,
	}
	l.version++
	l.logger.Info("seat taken", zap.Int("seat", int(seat)), zap.String("client", msg.ClientID))

	state := l.roomState()
	kind := types.ServerRoomJoined
	if msg.Created {
		kind = types.ServerRoomCreated
	}
	l.deliver([]engine.Seat{seat}, types.ServerMessage{
		Type: kind, RoomID: l.code, Seat: int(seat), Token: token, RoomState: state,
	})
	l.publishExcept(seat, types.ServerMessage{
		Type: types.ServerPlayerJoined, RoomID: l.code, Seat: int(seat), RoomState: state,
	})
	return JoinResult{Seat: seat, Token: token}
}

func (l *Lobby) rejoin(msg Rejoin) JoinResult {
	if l.seatOf(msg.ClientID) != 0 {
		return JoinResult{Err: ErrAlreadyInRoom}
	}
	m := l.member(msg.Seat)
	if m == nil || m.connected() || !m.checkToken(msg.Token) {
		return JoinResult{Err: ErrUnauthorized}
	}

	m.clientID = msg.ClientID
	m.outbox = msg.Outbox
	l.version++
	l.logger.Info("seat reclaimed", zap.Int("seat", int(msg.Seat)), zap.String("client", msg.ClientID))

	state := l.roomState()
	l.deliver([]engine.Seat{msg.Seat}, types.ServerMessage{
		Type: types.ServerRoomRejoined, RoomID: l.code, Seat: int(msg.Seat), Token: msg.Token, RoomState: state,
	})
	l.publishExcept(msg.Seat, types.ServerMessage{
		Type: types.ServerPlayerJoined, RoomID: l.code, Seat: int(msg.Seat), RoomState: state,
	})
	return JoinResult{Seat: msg.Seat, Token: msg.Token}
}

// disconnect unbinds a seat. The seat stays assigned so it can be reclaimed.
func (l *Lobby) disconnect(seat engine.Seat, reason string) {
	m := l.member(seat)
	if m == nil || !m.connected() {
		return
	}
	m.clientID = ""
	m.outbox = nil
	if l.state.Phase == engine.PhaseLobby {
		m.ready = false
	}
	l.version++
	l.logger.Info("seat disconnected", zap.Int("seat", int(seat)), zap.String("reason", reason))

	l.publishExcept(seat, types.ServerMessage{
		Type:      types.ServerPlayerLeft,
		RoomID:    l.code,
		Seat:      int(seat),
		Message:   fmt.Sprintf("%s %s", m.name, reason),
		RoomState: l.roomState(),
	})
}

func (l *Lobby) authorize(clientID string, seat engine.Seat) error {
	bound := l.seatOf(clientID)
	if bound == 0 {
		return ErrNotInRoom
	}
	if seat != bound {
		return ErrUnauthorized
	}
	return nil
}

func (l *Lobby) act(msg Action) error {
	if err := l.authorize(msg.ClientID, msg.Seat); err != nil {
		return err
	}
	cmd, err := l.command(msg)
	if err != nil {
		return err
	}

	events, next, err := engine.Apply(l.state, cmd)
	if err != nil {
		return err
	}
	l.commit(events, next)

	state := l.roomState()
	out := types.ServerMessage{RoomID: l.code, Seat: int(msg.Seat), RoomState: state}
	switch cmd.Type {
	case engine.CmdDrawResource:
		out.Type = types.ServerResourceSelected
		out.ResourceID = cmd.ResourceID
	case engine.CmdPickCandidate:
		out.Type = types.ServerCandidateSelected
		out.Candidate = CandidateView(*events[0].Pick)
		out.ResourceID = events[0].ResourceID
		out.Slot = cmd.Slot.String()
	case engine.CmdRedraw:
		out.Type = types.ServerResourceRedrawn
		out.ResourceID = events[0].ResourceID
	case engine.CmdSkipTurn:
		out.Type = types.ServerTurnSkipped
		out.ResourceID = events[0].ResourceID
	}
	l.publish(out)

	if engine.ContainsEvent(events, engine.EvtDraftCompleted) {
		l.logger.Info("draft completed")
		l.publish(types.ServerMessage{Type: types.ServerDraftCompleted, RoomID: l.code, RoomState: state})
	}
	return nil
}

func (l *Lobby) command(msg Action) (engine.Command, error) {
	cmd := engine.Command{Seat: msg.Seat}
	switch msg.Type {
	case ActDraw:
		if _, ok := l.catalog.Resource(msg.ResourceID); !ok {
			return cmd, fmt.Errorf("%w %q", catalog.ErrUnknownResource, msg.ResourceID)
		}
		cmd.Type = engine.CmdDrawResource
		cmd.ResourceID = msg.ResourceID

	case ActRandomDraw:
		cmd.Type = engine.CmdDrawResource
		// Out of turn, the empty id lets the engine report why.
		if l.state.CurrentSeat() == msg.Seat && l.state.Stage == engine.StageChoosingResource {
			r, err := catalog.RandomUnused(l.catalog, l.usedResources(), l.rng)
			if err != nil {
				return cmd, err
			}
			cmd.ResourceID = r.ID
		}

	case ActPick:
		c, ok := l.catalog.Candidate(msg.CandidateID)
		if !ok {
			return cmd, fmt.Errorf("%w %q", catalog.ErrUnknownCandidate, msg.CandidateID)
		}
		cmd.Type = engine.CmdPickCandidate
		cmd.Candidate = c
		cmd.Slot = msg.Slot

	case ActCustom:
		c, err := catalog.NewCustom(msg.Custom, l.state.DrawnResource)
		if err != nil {
			return cmd, err
		}
		cmd.Type = engine.CmdPickCandidate
		cmd.Candidate = c
		cmd.Slot = msg.Custom.Slot

	case ActRedraw:
		cmd.Type = engine.CmdRedraw

	case ActSkip:
		cmd.Type = engine.CmdSkipTurn

	default:
		return cmd, fmt.Errorf("%w: unknown action %d", ErrBadRequest, msg.Type)
	}
	return cmd, nil
}

func (l *Lobby) commit(events []engine.Event, next engine.State) {
	l.state = next
	l.events = append(l.events, events...)
	l.version++
}

func (l *Lobby) ready(msg Ready) error {
	if err := l.authorize(msg.ClientID, msg.Seat); err != nil {
		return err
	}
	if l.state.Phase != engine.PhaseLobby {
		return engine.ErrWrongPhase
	}
	m := l.member(msg.Seat)
	if m.ready {
		return nil
	}

	m.ready = true
	l.version++
	l.publish(types.ServerMessage{
		Type: types.ServerPlayerReady, RoomID: l.code, Seat: int(msg.Seat), RoomState: l.roomState(),
	})

	for _, s := range l.seats {
		if s == nil || !s.ready || !s.connected() {
			return nil
		}
	}

	events, next, err := engine.Apply(l.state, engine.Command{Type: engine.CmdStartDraft})
	if err != nil {
		return err
	}
	l.commit(events, next)
	l.logger.Info("draft started")
	l.publish(types.ServerMessage{Type: types.ServerDraftStarted, RoomID: l.code, RoomState: l.roomState()})
	return nil
}

func (l *Lobby) startContest(msg StartContest) error {
	if err := l.authorize(msg.ClientID, msg.Seat); err != nil {
		return err
	}
	if !l.state.Completed() {
		return engine.ErrWrongPhase
	}
	if l.series.started {
		return ErrContestStarted
	}

	l.series.started = true
	l.version++
	l.publish(types.ServerMessage{Type: types.ServerContestStarted, RoomID: l.code, RoomState: l.roomState()})

	ctx, cancel := context.WithCancel(l.ctx)
	l.cancelContest = cancel
	matchup := l.matchup()
	l.logger.Info("contest started")

	go func() {
		result, err := l.runner.Run(ctx, matchup, func(u types.ContestStream) {
			_ = l.post(ctx, contestUpdate{stream: u})
		})
		_ = l.post(ctx, contestDone{result: result, err: err})
	}()
	return nil
}

func (l *Lobby) contestUpdate(u types.ContestStream) {
	if l.series.finished {
		return
	}
	msg := types.ServerMessage{Type: types.ServerContestStream, RoomID: l.code, Stream: &u}
	if u.Type == types.StreamResult && u.SeriesScore != nil {
		l.series.score = *u.SeriesScore
		l.series.games++
		l.version++
		msg.RoomState = l.roomState()
	}
	l.publish(msg)
}

func (l *Lobby) contestDone(msg contestDone) {
	if msg.err != nil || msg.result == nil {
		l.logger.Warn("contest aborted", zap.Error(msg.err))
		return
	}

	res := msg.result
	l.series.finished = true
	l.series.result = res
	l.series.champion = res.Champion
	l.series.score = types.SeriesScore{Team1: res.FinalScore.Team1Wins, Team2: res.FinalScore.Team2Wins}
	l.series.games = len(res.Games)
	l.version++
	l.logger.Info("contest finished",
		zap.Int("champion", res.Champion),
		zap.Int("team1Wins", res.FinalScore.Team1Wins),
		zap.Int("team2Wins", res.FinalScore.Team2Wins),
		zap.String("source", string(res.Source)))

	l.publish(types.ServerMessage{
		Type: types.ServerContestFinished, RoomID: l.code, RoomState: l.roomState(), Series: res,
	})
	l.archiveSeries(res)
}

func (l *Lobby) restart(msg Restart) error {
	if err := l.authorize(msg.ClientID, msg.Seat); err != nil {
		return err
	}
	if !l.series.finished {
		return engine.ErrWrongPhase
	}
	for _, m := range l.seats {
		if m == nil || !m.connected() {
			return ErrSeatAway
		}
	}

	if l.cancelContest != nil {
		l.cancelContest()
		l.cancelContest = nil
	}
	l.state = engine.NewState(l.state.Rules)
	l.events = nil
	l.series = seriesState{}
	for _, m := range l.seats {
		m.ready = false
	}
	l.version++
	l.logger.Info("room restarted", zap.Int("seat", int(msg.Seat)))

	l.publish(types.ServerMessage{
		Type: types.ServerRoomRestarted, RoomID: l.code, Seat: int(msg.Seat), RoomState: l.roomState(),
	})
	return nil
}

func (l *Lobby) archiveSeries(res *types.SeriesResult) {
	m := l.matchup()
	rec, err := store.NewSeriesRecord(l.code,
		[2]string{m.Team1.Name, m.Team2.Name},
		[2]engine.Roster{m.Team1.Roster, m.Team2.Roster},
		res)
	if err != nil {
		l.logger.Error("build series record", zap.Error(err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(l.ctx), 10*time.Second)
		defer cancel()
		if err := l.archive.SaveSeries(ctx, rec); err != nil {
			l.logger.Error("archive series", zap.Error(err))
		}
	}()
}

func (l *Lobby) sync(clientID string) error {
	seat := l.seatOf(clientID)
	if seat == 0 {
		return ErrNotInRoom
	}
	l.deliver([]engine.Seat{seat}, types.ServerMessage{
		Type: types.ServerStateSync, RoomID: l.code, RoomState: l.roomState(),
	})
	return nil
}

func (l *Lobby) view() View {
	connected := 0
	for _, m := range l.seats {
		if m != nil && m.connected() {
			connected++
		}
	}
	return View{
		Version:    l.version,
		NumClients: connected,
		State:      l.state.Clone(),
		Room:       *l.roomState(),
		Events:     slices.Clone(l.events),
	}
}

func (l *Lobby) matchup() contest.Matchup {
	side := func(seat engine.Seat) contest.Side {
		s := contest.Side{Name: fmt.Sprintf("Player %d", seat), Roster: l.state.Seat(seat).Roster}
		if m := l.member(seat); m != nil {
			s.Name = m.name
		}
		return s
	}
	return contest.Matchup{Team1: side(engine.Seat1), Team2: side(engine.Seat2)}
}

func (l *Lobby) usedResources() []string {
	return slices.Concat(l.state.Seat(engine.Seat1).UsedResources, l.state.Seat(engine.Seat2).UsedResources)
}

func (l *Lobby) abandoned() bool {
	assigned := false
	for _, m := range l.seats {
		if m == nil {
			continue
		}
		if m.connected() {
			return false
		}
		assigned = true
	}
	return assigned
}

func (l *Lobby) publish(msg types.ServerMessage) {
	l.deliver([]engine.Seat{engine.Seat1, engine.Seat2}, msg)
}

func (l *Lobby) publishExcept(seat engine.Seat, msg types.ServerMessage) {
	l.deliver([]engine.Seat{seat.Other()}, msg)
}

// deliver never blocks. A client whose outbox is full is dropped: its outbox
// is closed and its seat disconnected.
func (l *Lobby) deliver(seats []engine.Seat, msg types.ServerMessage) {
	var slow []engine.Seat
	for _, seat := range seats {
		m := l.member(seat)
		if m == nil || m.outbox == nil {
			continue
		}
		select {
		case m.outbox <- msg:
		default:
			slow = append(slow, seat)
		}
	}

	for _, seat := range slow {
		m := l.member(seat)
		if !m.connected() {
			continue
		}
		out := m.outbox
		l.logger.Warn("dropping slow client", zap.Int("seat", int(seat)), zap.String("client", m.clientID))
		l.disconnect(seat, "lost connection")
		close(out)
	}
}
