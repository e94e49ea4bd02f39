package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/hoops-draft-backend/internal/hub"
	"github.com/DoyleJ11/hoops-draft-backend/internal/lobby"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

var errDropped = errors.New("dropped by room")

var (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	leaveTimeout = 5 * time.Second
)

type Options struct {
	// OriginPatterns are passed to websocket.Accept. Empty means same-origin
	// only.
	OriginPatterns []string
}

func Handler(h *hub.Hub, logger *zap.Logger, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			logger.Debug("websocket accept", zap.Error(err))
			return
		}

		s := newSession(uuid.NewString(), h, logger)
		s.logger.Info("client connected", zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return s.writeLoop(gctx, conn) })
		g.Go(func() error { return keepAlive(gctx, conn) })

		readErr := s.readLoop(gctx, conn)
		cancel()
		writeErr := g.Wait()

		leaveCtx, leaveCancel := context.WithTimeout(context.Background(), leaveTimeout)
		s.leave(leaveCtx)
		leaveCancel()
		s.state = stateDisconnected

		switch {
		case errors.Is(writeErr, errDropped):
			_ = conn.Close(websocket.StatusTryAgainLater, "dropped by room")
		default:
			_ = conn.Close(websocket.StatusNormalClosure, "bye")
		}
		s.logger.Info("client disconnected", zap.NamedError("read", readErr), zap.NamedError("write", writeErr))
	}
}

func (s *session) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			return err
		}

		var msg types.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(ctx, fmt.Errorf("%w: invalid json", lobby.ErrBadRequest))
			continue
		}
		if err := s.dispatch(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Debug("client message rejected", zap.String("type", string(msg.Type)), zap.Error(err))
			s.sendError(ctx, err)
		}
	}
}

// writeLoop is the only writer on the connection. Messages already queued by
// the room go out before session errors queued after them.
func (s *session) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	var outbox chan types.ServerMessage
	for {
		if outbox != nil {
			select {
			case msg, ok := <-outbox:
				if !ok {
					return errDropped
				}
				if err := write(ctx, conn, msg); err != nil {
					return err
				}
				continue
			default:
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case next := <-s.rebind:
			outbox = next
		case msg := <-s.direct:
			if err := write(ctx, conn, msg); err != nil {
				return err
			}
		case msg, ok := <-outbox:
			if !ok {
				return errDropped
			}
			if err := write(ctx, conn, msg); err != nil {
				return err
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

func keepAlive(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}
