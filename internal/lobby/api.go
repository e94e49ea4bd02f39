package lobby

import (
	"context"

	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

// post hands a message to the lobby goroutine. A stopped lobby reports
// ErrRoomNotFound.
func (l *Lobby) post(ctx context.Context, m Msg) error {
	select {
	case l.inbox <- m:
		return nil
	case <-l.done:
		return ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

func request[T any](ctx context.Context, l *Lobby, m Msg, reply chan T) (T, error) {
	var zero T
	if err := l.post(ctx, m); err != nil {
		return zero, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		// The reply may have been sent just before the lobby stopped.
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrRoomNotFound
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (l *Lobby) Join(ctx context.Context, clientID, name string, outbox chan types.ServerMessage, created bool) (JoinResult, error) {
	reply := make(chan JoinResult, 1)
	res, err := request(ctx, l, Join{ClientID: clientID, Name: name, Outbox: outbox, Created: created, Reply: reply}, reply)
	if err != nil {
		return JoinResult{}, err
	}
	return res, res.Err
}

func (l *Lobby) Rejoin(ctx context.Context, clientID string, seat engine.Seat, token string, outbox chan types.ServerMessage) (JoinResult, error) {
	reply := make(chan JoinResult, 1)
	res, err := request(ctx, l, Rejoin{ClientID: clientID, Seat: seat, Token: token, Outbox: outbox, Reply: reply}, reply)
	if err != nil {
		return JoinResult{}, err
	}
	return res, res.Err
}

// Leave is fire-and-forget; a stopped lobby has nothing to leave.
func (l *Lobby) Leave(ctx context.Context, clientID string) error {
	return l.post(ctx, Leave{ClientID: clientID})
}

func (l *Lobby) Act(ctx context.Context, a Action) error {
	a.Reply = make(chan error, 1)
	err, sendErr := request(ctx, l, a, a.Reply)
	if sendErr != nil {
		return sendErr
	}
	return err
}

func (l *Lobby) Ready(ctx context.Context, clientID string, seat engine.Seat) error {
	reply := make(chan error, 1)
	err, sendErr := request(ctx, l, Ready{ClientID: clientID, Seat: seat, Reply: reply}, reply)
	if sendErr != nil {
		return sendErr
	}
	return err
}

func (l *Lobby) StartContest(ctx context.Context, clientID string, seat engine.Seat) error {
	reply := make(chan error, 1)
	err, sendErr := request(ctx, l, StartContest{ClientID: clientID, Seat: seat, Reply: reply}, reply)
	if sendErr != nil {
		return sendErr
	}
	return err
}

// Sync resends the current state to the caller only.
func (l *Lobby) Restart(ctx context.Context, clientID string, seat engine.Seat) error {
	reply := make(chan error, 1)
	err, sendErr := request(ctx, l, Restart{ClientID: clientID, Seat: seat, Reply: reply}, reply)
	if sendErr != nil {
		return sendErr
	}
	return err
}

func (l *Lobby) Sync(ctx context.Context, clientID string) error {
	reply := make(chan error, 1)
	err, sendErr := request(ctx, l, Sync{ClientID: clientID, Reply: reply}, reply)
	if sendErr != nil {
		return sendErr
	}
	return err
}

func (l *Lobby) Snapshot(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	return request(ctx, l, GetState{Reply: reply}, reply)
}

// Close stops the lobby and waits for its goroutine to exit.
func (l *Lobby) Close() {
	l.cancel()
	<-l.done
}
