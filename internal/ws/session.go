package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/hoops-draft-backend/internal/catalog"
	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/internal/hub"
	"github.com/DoyleJ11/hoops-draft-backend/internal/lobby"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

type connState int

const (
	stateDisconnected connState = iota
	stateConnected
	stateInRoom
)

func (s connState) String() string {
	switch s {
	case stateConnected:
		return "connected"
	case stateInRoom:
		return "in_room"
	default:
		return "disconnected"
	}
}

const outboxSize = 32

type handlerFunc func(ctx context.Context, s *session, msg types.ClientMessage) error

type route struct {
	state  connState
	handle handlerFunc
}

var routes = map[types.ClientType]route{
	types.ClientCreateRoom:      {stateConnected, handleCreate},
	types.ClientJoinRoom:        {stateConnected, handleJoin},
	types.ClientRejoinRoom:      {stateConnected, handleRejoin},
	types.ClientReady:           {stateInRoom, handleReady},
	types.ClientSelectResource:  {stateInRoom, action(lobby.ActDraw)},
	types.ClientRandomResource:  {stateInRoom, action(lobby.ActRandomDraw)},
	types.ClientSelectCandidate: {stateInRoom, action(lobby.ActPick)},
	types.ClientCustomCandidate: {stateInRoom, action(lobby.ActCustom)},
	types.ClientRedraw:          {stateInRoom, action(lobby.ActRedraw)},
	types.ClientSkipTurn:        {stateInRoom, action(lobby.ActSkip)},
	types.ClientStartContest:    {stateInRoom, handleStartContest},
	types.ClientRestart:         {stateInRoom, handleRestart},
	types.ClientSyncState:       {stateInRoom, handleSync},
	types.ClientLeaveRoom:       {stateInRoom, handleLeave},
}

// session is one websocket connection. Its fields are owned by the reader
// goroutine; the writer only sees channels.
type session struct {
	id     string
	hub    *hub.Hub
	logger *zap.Logger

	state connState
	lobby *lobby.Lobby
	seat  engine.Seat

	direct chan types.ServerMessage
	rebind chan chan types.ServerMessage
}

func newSession(id string, h *hub.Hub, logger *zap.Logger) *session {
	return &session{
		id:     id,
		hub:    h,
		logger: logger.With(zap.String("client", id)),
		state:  stateConnected,
		direct: make(chan types.ServerMessage, 16),
		rebind: make(chan chan types.ServerMessage),
	}
}

// dispatch validates the connection state and routes one client message.
func (s *session) dispatch(ctx context.Context, msg types.ClientMessage) error {
	r, ok := routes[msg.Type]
	if !ok {
		return fmt.Errorf("%w: unknown message type %q", lobby.ErrBadRequest, msg.Type)
	}
	if r.state != s.state {
		if s.state == stateInRoom {
			return lobby.ErrAlreadyInRoom
		}
		return lobby.ErrNotInRoom
	}
	if r.state == stateInRoom && hub.NormalizeCode(msg.RoomID) != s.lobby.Code() {
		return lobby.ErrUnauthorized
	}
	return r.handle(ctx, s, msg)
}

// bind points the writer at a new lobby outbox. It blocks until the writer
// has switched, so nothing the lobby sends is missed.
func (s *session) bind(ctx context.Context, outbox chan types.ServerMessage) error {
	select {
	case s.rebind <- outbox:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) enter(lb *lobby.Lobby, seat engine.Seat) {
	s.lobby = lb
	s.seat = seat
	s.state = stateInRoom
	s.logger.Info("session joined room", zap.String("room", lb.Code()), zap.Int("seat", int(seat)))
}

// leave releases the bound seat, if any. The seat stays reclaimable with its
// token while the room lives.
func (s *session) leave(ctx context.Context) {
	if s.lobby != nil {
		if err := s.lobby.Leave(ctx, s.id); err != nil {
			s.logger.Debug("leave room", zap.Error(err))
		}
	}
	s.lobby = nil
	s.seat = 0
	s.state = stateConnected
}

func (s *session) sendError(ctx context.Context, err error) {
	msg := types.ErrorMessage(lobby.ErrorCode(err), err.Error())
	select {
	case s.direct <- msg:
	case <-ctx.Done():
	}
}

func (s *session) joinWith(ctx context.Context, join func(outbox chan types.ServerMessage) (*lobby.Lobby, lobby.JoinResult, error)) error {
	outbox := make(chan types.ServerMessage, outboxSize)
	if err := s.bind(ctx, outbox); err != nil {
		return err
	}
	lb, res, err := join(outbox)
	if err != nil {
		_ = s.bind(ctx, nil)
		return err
	}
	s.enter(lb, res.Seat)
	return nil
}

func handleCreate(ctx context.Context, s *session, msg types.ClientMessage) error {
	return s.joinWith(ctx, func(outbox chan types.ServerMessage) (*lobby.Lobby, lobby.JoinResult, error) {
		return s.hub.Create(ctx, s.id, msg.PlayerName, outbox)
	})
}

func handleJoin(ctx context.Context, s *session, msg types.ClientMessage) error {
	if strings.TrimSpace(msg.RoomID) == "" {
		return fmt.Errorf("%w: roomId is required", lobby.ErrBadRequest)
	}
	return s.joinWith(ctx, func(outbox chan types.ServerMessage) (*lobby.Lobby, lobby.JoinResult, error) {
		return s.hub.Join(ctx, msg.RoomID, s.id, msg.PlayerName, outbox)
	})
}

func handleRejoin(ctx context.Context, s *session, msg types.ClientMessage) error {
	seat := engine.Seat(msg.Seat)
	if !seat.Valid() || msg.Token == "" {
		return fmt.Errorf("%w: seat and token are required", lobby.ErrBadRequest)
	}
	return s.joinWith(ctx, func(outbox chan types.ServerMessage) (*lobby.Lobby, lobby.JoinResult, error) {
		return s.hub.Rejoin(ctx, msg.RoomID, s.id, seat, msg.Token, outbox)
	})
}

func handleReady(ctx context.Context, s *session, msg types.ClientMessage) error {
	return s.lobby.Ready(ctx, s.id, engine.Seat(msg.Seat))
}

func action(typ lobby.ActionType) handlerFunc {
	return func(ctx context.Context, s *session, msg types.ClientMessage) error {
		a := lobby.Action{
			ClientID:    s.id,
			Seat:        engine.Seat(msg.Seat),
			Type:        typ,
			ResourceID:  msg.ResourceID,
			CandidateID: msg.CandidateID,
		}

		switch typ {
		case lobby.ActPick:
			slot, ok := engine.ParseSlot(msg.Slot)
			if !ok {
				return fmt.Errorf("%w: unknown slot %q", lobby.ErrBadRequest, msg.Slot)
			}
			a.Slot = slot
		case lobby.ActCustom:
			if msg.Custom == nil {
				return fmt.Errorf("%w: custom is required", lobby.ErrBadRequest)
			}
			slot, ok := engine.ParseSlot(msg.Custom.Slot)
			if !ok {
				return fmt.Errorf("%w: unknown slot %q", lobby.ErrBadRequest, msg.Custom.Slot)
			}
			a.Custom = catalog.CustomSpec{
				Name:   msg.Custom.Name,
				NameEn: msg.Custom.NameEn,
				Season: msg.Custom.Season,
				Cost:   msg.Custom.Cost,
				Slot:   slot,
			}
		}
		return s.lobby.Act(ctx, a)
	}
}

// handleStartContest plays the room's own rosters. Client copies are only
// compared and logged.
func handleStartContest(ctx context.Context, s *session, msg types.ClientMessage) error {
	if err := s.lobby.StartContest(ctx, s.id, engine.Seat(msg.Seat)); err != nil {
		return err
	}
	if msg.Roster1 == nil && msg.Roster2 == nil && len(msg.Names) == 0 {
		return nil
	}
	view, err := s.lobby.Snapshot(ctx)
	if err != nil {
		return nil
	}
	if diffs := teamDiffs(view.Room, msg); len(diffs) > 0 {
		s.logger.Warn("client teams differ from room", zap.Strings("fields", diffs))
	}
	return nil
}

// teamDiffs lists the roster slots and names a start_contest message reports
// differently from the room. The room's copy is always the one played.
func teamDiffs(room types.RoomState, msg types.ClientMessage) []string {
	var diffs []string
	for seat, raw := range []json.RawMessage{msg.Roster1, msg.Roster2} {
		seat++
		if len(raw) == 0 {
			continue
		}
		var client map[string]*types.CandidateData
		if err := json.Unmarshal(raw, &client); err != nil {
			diffs = append(diffs, fmt.Sprintf("roster%d", seat))
			continue
		}
		server := room.Seats[seat].Roster
		for slot := engine.SlotPG; slot < engine.NumSlots; slot++ {
			if candidateID(client[slot.String()]) != candidateID(server[slot.String()]) {
				diffs = append(diffs, fmt.Sprintf("roster%d.%s", seat, slot))
			}
		}
	}
	for seat := 1; seat <= 2; seat++ {
		name, ok := msg.Names[strconv.Itoa(seat)]
		if ok && name != room.Seats[seat].Name {
			diffs = append(diffs, fmt.Sprintf("names.%d", seat))
		}
	}
	return diffs
}

func candidateID(c *types.CandidateData) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func handleRestart(ctx context.Context, s *session, msg types.ClientMessage) error {
	return s.lobby.Restart(ctx, s.id, engine.Seat(msg.Seat))
}

func handleSync(ctx context.Context, s *session, _ types.ClientMessage) error {
	return s.lobby.Sync(ctx, s.id)
}

func handleLeave(ctx context.Context, s *session, _ types.ClientMessage) error {
	s.leave(ctx)
	return s.bind(ctx, nil)
}
