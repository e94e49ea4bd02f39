package lobby

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/hoops-draft-backend/internal/catalog"
	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotInRoom      = errors.New("not in a room")
	ErrAlreadyInRoom  = errors.New("already in a room")
	ErrBadRequest     = errors.New("bad request")
	ErrContestStarted = errors.New("contest already started")
	ErrSeatAway       = fmt.Errorf("%w: both seats must be connected", engine.ErrIllegalAction)
)

// ErrorCode maps an error to the code sent to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrResourceAlreadyUsed):
		return types.CodeResourceAlreadyUsed
	case errors.Is(err, engine.ErrIllegalAction):
		return types.CodeIllegalAction
	case errors.Is(err, engine.ErrCandidateAlreadyClaimed):
		return types.CodeCandidateAlreadyClaimed
	case errors.Is(err, engine.ErrInsufficientBudget):
		return types.CodeInsufficientBudget
	case errors.Is(err, engine.ErrSlotOccupied):
		return types.CodeSlotOccupied
	case errors.Is(err, engine.ErrIneligibleSlot):
		return types.CodeIneligibleSlot
	case errors.Is(err, catalog.ErrUnknownCandidate):
		return types.CodeUnknownCandidate
	case errors.Is(err, ErrRoomNotFound):
		return types.CodeRoomNotFound
	case errors.Is(err, ErrRoomFull):
		return types.CodeRoomFull
	case errors.Is(err, ErrUnauthorized):
		return types.CodeUnauthorized
	case errors.Is(err, ErrNotInRoom):
		return types.CodeNotInRoom
	case errors.Is(err, ErrAlreadyInRoom):
		return types.CodeAlreadyInRoom
	case errors.Is(err, ErrContestStarted):
		return types.CodeContestStarted
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, engine.ErrUnsupportedCommand),
		errors.Is(err, catalog.ErrUnknownResource),
		errors.Is(err, catalog.ErrNoResourceLeft),
		errors.Is(err, catalog.ErrInvalidCustom):
		return types.CodeBadRequest
	default:
		return types.CodeInternal
	}
}
