package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/hoops-draft-backend/internal/catalog"
	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/internal/lobby"
	"github.com/DoyleJ11/hoops-draft-backend/internal/store"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var ErrCodeSpaceExhausted = errors.New("could not generate a free room code")

type HubMsg interface{ isHubMsg() }

// CreateLobby opens a room with Host already queued as its first message,
// so no one holding the code can be seated before the host.
type CreateLobby struct {
	Host  lobby.Join
	Reply chan createReply
}

type createReply struct {
	lobby *lobby.Lobby
	err   error
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby deletes the entry only if it still points at Lobby.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

type CountLobbies struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg()  {}
func (GetLobby) isHubMsg()     {}
func (RemoveLobby) isHubMsg()  {}
func (CountLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

type Config struct {
	CodeLength int
	Rules      engine.Rules
	Catalog    catalog.Provider
	Contest    lobby.Contester
	Archive    store.Archive
	Logger     *zap.Logger
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	cfg     Config
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		cfg:     cfg,
		logger:  cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				lb, err := h.create(msg.Host)
				msg.Reply <- createReply{lobby: lb, err: err}

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				if h.lobbies[msg.Code] == msg.Lobby {
					delete(h.lobbies, msg.Code)
					h.logger.Info("room removed", zap.String("room", msg.Code), zap.Int("rooms", len(h.lobbies)))
				}

			case CountLobbies:
				msg.Reply <- len(h.lobbies)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

// create runs on the hub goroutine, so checking and inserting the code is
// atomic.
func (h *Hub) create(host lobby.Join) (*lobby.Lobby, error) {
	for range 16 {
		code, err := GenerateCode(h.cfg.CodeLength)
		if err != nil {
			return nil, err
		}
		if h.lobbies[code] != nil {
			h.logger.Debug("collision on code, regenerating", zap.String("room", code))
			continue
		}

		lb := lobby.NewLobby(h.ctx, lobby.Config{
			Code:    code,
			Rules:   h.cfg.Rules,
			Catalog: h.cfg.Catalog,
			Contest: h.cfg.Contest,
			Archive: h.cfg.Archive,
			Logger:  h.logger,
			Host:    &host,
			OnClose: h.removeLater,
		})
		h.lobbies[code] = lb
		h.logger.Info("room created", zap.String("room", code), zap.Int("rooms", len(h.lobbies)))
		return lb, nil
	}
	return nil, ErrCodeSpaceExhausted
}

// removeLater is called from a lobby goroutine; it must not block on the hub.
func (h *Hub) removeLater(lb *lobby.Lobby) {
	go func() {
		select {
		case h.inbox <- RemoveLobby{Code: lb.Code(), Lobby: lb}:
		case <-h.done:
		}
	}()
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		lb.Close()
	}
	clear(h.lobbies)
	h.cancel()
}

func GenerateCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return lobby.ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, h *Hub, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		return zero, lobby.ErrRoomNotFound
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Create opens a room and seats the caller as its host.
func (h *Hub) Create(ctx context.Context, clientID, name string, outbox chan types.ServerMessage) (*lobby.Lobby, lobby.JoinResult, error) {
	joined := make(chan lobby.JoinResult, 1)
	host := lobby.Join{ClientID: clientID, Name: name, Outbox: outbox, Reply: joined}
	reply := make(chan createReply, 1)
	if err := h.send(ctx, CreateLobby{Host: host, Reply: reply}); err != nil {
		return nil, lobby.JoinResult{}, err
	}
	created, err := await(ctx, h, reply)
	if err != nil {
		return nil, lobby.JoinResult{}, err
	}
	if created.err != nil {
		return nil, lobby.JoinResult{}, created.err
	}

	lb := created.lobby
	res, err := awaitHost(ctx, lb, joined)
	if err != nil {
		// The host was never seated; drop the room.
		lb.Close()
		_ = h.send(context.WithoutCancel(ctx), RemoveLobby{Code: lb.Code(), Lobby: lb})
		return nil, lobby.JoinResult{}, err
	}
	return lb, res, nil
}

func awaitHost(ctx context.Context, lb *lobby.Lobby, joined chan lobby.JoinResult) (lobby.JoinResult, error) {
	select {
	case res := <-joined:
		return res, res.Err
	case <-lb.Done():
		select {
		case res := <-joined:
			return res, res.Err
		default:
			return lobby.JoinResult{}, lobby.ErrRoomNotFound
		}
	case <-ctx.Done():
		return lobby.JoinResult{}, ctx.Err()
	}
}

func (h *Hub) Join(ctx context.Context, code, clientID, name string, outbox chan types.ServerMessage) (*lobby.Lobby, lobby.JoinResult, error) {
	lb, err := h.Get(ctx, code)
	if err != nil {
		return nil, lobby.JoinResult{}, err
	}
	res, err := lb.Join(ctx, clientID, name, outbox, false)
	if err != nil {
		return nil, lobby.JoinResult{}, err
	}
	return lb, res, nil
}

func (h *Hub) Rejoin(ctx context.Context, code, clientID string, seat engine.Seat, token string, outbox chan types.ServerMessage) (*lobby.Lobby, lobby.JoinResult, error) {
	lb, err := h.Get(ctx, code)
	if err != nil {
		return nil, lobby.JoinResult{}, err
	}
	res, err := lb.Rejoin(ctx, clientID, seat, token, outbox)
	if err != nil {
		return nil, lobby.JoinResult{}, err
	}
	return lb, res, nil
}

func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetLobby{Code: NormalizeCode(code), Reply: reply}); err != nil {
		return nil, err
	}
	lb, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, lobby.ErrRoomNotFound
	}
	return lb, nil
}

func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, CountLobbies{Reply: reply}); err != nil {
		return 0, err
	}
	return await(ctx, h, reply)
}

// Shutdown stops every room and the hub itself.
func (h *Hub) Shutdown(ctx context.Context) error {
	if err := h.send(ctx, ShutdownHub{}); err != nil && !errors.Is(err, lobby.ErrRoomNotFound) {
		return err
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
