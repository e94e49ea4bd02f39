package engine

import (
	"errors"
	"fmt"
	"slices"
)

var ErrIllegalAction = errors.New("illegal action")
var ErrWrongPhase = fmt.Errorf("%w: wrong phase", ErrIllegalAction)
var ErrWrongTurn = fmt.Errorf("%w: not your turn", ErrIllegalAction)
var ErrWrongStage = fmt.Errorf("%w: wrong selection stage", ErrIllegalAction)
var ErrResourceAlreadyUsed = fmt.Errorf("%w: resource already used", ErrIllegalAction)
var ErrNotFromDrawnResource = fmt.Errorf("%w: candidate is not from the drawn resource", ErrIllegalAction)
var ErrCandidateAlreadyClaimed = errors.New("candidate already claimed")
var ErrInsufficientBudget = errors.New("insufficient budget")
var ErrSlotOccupied = errors.New("slot occupied")
var ErrIneligibleSlot = errors.New("candidate not eligible for slot")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrDraftCompleted = fmt.Errorf("%w: draft already completed", ErrIllegalAction)

type Seat int

const (
	Seat1 Seat = 1
	Seat2 Seat = 2
)

func (s Seat) Valid() bool { return s == Seat1 || s == Seat2 }

// Other returns the opposing seat.
func (s Seat) Other() Seat {
	if s == Seat1 {
		return Seat2
	}
	return Seat1
}

type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseSelecting  Phase = "selecting"
	PhaseContesting Phase = "contesting"
)

type Stage string

const (
	StageChoosingResource  Stage = "choosing_resource"
	StageChoosingCandidate Stage = "choosing_candidate"
)

type SeatState struct {
	Budget        int      `json:"budget"`
	Roster        Roster   `json:"roster"`
	UsedResources []string `json:"usedResources"`
}

type State struct {
	Phase         Phase           `json:"phase"`
	TurnOrder     []Seat          `json:"turnOrder"`
	TurnIndex     int             `json:"turnIndex"`
	Stage         Stage           `json:"selectionStage"`
	DrawnResource string          `json:"drawnResource,omitempty"`
	Seats         [2]SeatState    `json:"seats"`
	Claimed       map[string]bool `json:"claimedCandidateIds"`
	Rules         Rules           `json:"rules"`
}

type Rules struct {
	InitialBudget int `json:"initialBudget"`
	RosterSlots   int `json:"rosterSlots"`
}

type CommandType string

const (
	CmdStartDraft    CommandType = "StartDraft"
	CmdDrawResource  CommandType = "DrawResource"
	CmdPickCandidate CommandType = "PickCandidate"
	CmdRedraw        CommandType = "Redraw"
	CmdSkipTurn      CommandType = "SkipTurn"
)

/*
	CmdStartDraft    -> EvtDraftStarted
	CmdDrawResource  -> EvtResourceDrawn
	CmdPickCandidate -> EvtCandidatePicked -> EvtTurnAdvanced (-> EvtDraftCompleted)
	CmdRedraw        -> EvtResourceReturned
	CmdSkipTurn      -> EvtTurnSkipped -> EvtTurnAdvanced (-> EvtDraftCompleted)
*/

type Command struct {
	Type       CommandType
	Seat       Seat
	ResourceID string
	Candidate  Candidate
	Slot       Slot
}

type EventType string

const (
	EvtDraftStarted     EventType = "DraftStarted"
	EvtResourceDrawn    EventType = "ResourceDrawn"
	EvtResourceReturned EventType = "ResourceReturned"
	EvtCandidatePicked  EventType = "CandidatePicked"
	EvtTurnSkipped      EventType = "TurnSkipped"
	EvtTurnAdvanced     EventType = "TurnAdvanced"
	EvtDraftCompleted   EventType = "DraftCompleted"
)

type Event struct {
	Type       EventType
	Seat       Seat
	ResourceID string
	Pick       *Pick
	Slot       Slot
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	if cmd.Type == CmdStartDraft {
		if s.Phase != PhaseLobby {
			return nil, s, ErrWrongPhase
		}
		newState := s.Clone()
		newState.Phase = PhaseSelecting
		return []Event{{Type: EvtDraftStarted}}, newState, nil
	}

	if s.Phase == PhaseContesting {
		return nil, s, ErrDraftCompleted
	}
	if s.Phase != PhaseSelecting {
		return nil, s, ErrWrongPhase
	}

	step, done := currentStep(s)
	if done {
		return nil, s, ErrDraftCompleted
	}
	if !cmd.Seat.Valid() || step != cmd.Seat {
		return nil, s, ErrWrongTurn
	}

	switch cmd.Type {
	case CmdDrawResource:
		if s.Stage != StageChoosingResource {
			return nil, s, ErrWrongStage
		}
		if cmd.ResourceID == "" || resourceUsed(s, cmd.ResourceID) {
			return nil, s, ErrResourceAlreadyUsed
		}

		newState := s.Clone()
		seat := newState.seat(cmd.Seat)
		seat.UsedResources = append(seat.UsedResources, cmd.ResourceID)
		newState.DrawnResource = cmd.ResourceID
		newState.Stage = StageChoosingCandidate

		return []Event{{Type: EvtResourceDrawn, Seat: cmd.Seat, ResourceID: cmd.ResourceID}}, newState, nil

	case CmdPickCandidate:
		if s.Stage != StageChoosingCandidate {
			return nil, s, ErrWrongStage
		}
		if cmd.Candidate == nil {
			return nil, s, ErrUnsupportedCommand
		}
		if err := canPick(s, cmd.Seat, cmd.Candidate, cmd.Slot); err != nil {
			return nil, s, err
		}

		pick := NewPick(cmd.Candidate)
		events := []Event{
			{Type: EvtCandidatePicked, Seat: cmd.Seat, ResourceID: s.DrawnResource, Pick: &pick, Slot: cmd.Slot},
		}

		newState := s.Clone()
		seat := newState.seat(cmd.Seat)
		seat.Roster[cmd.Slot] = &pick
		seat.Budget -= pick.Cost
		newState.Claimed[pick.ID] = true
		events = append(events, newState.advance()...)
		return events, newState, nil

	case CmdRedraw:
		if s.Stage != StageChoosingCandidate {
			return nil, s, ErrWrongStage
		}

		returned := s.DrawnResource
		newState := s.Clone()
		seat := newState.seat(cmd.Seat)
		if i := slices.Index(seat.UsedResources, returned); i >= 0 {
			seat.UsedResources = slices.Delete(seat.UsedResources, i, i+1)
		}
		newState.DrawnResource = ""
		newState.Stage = StageChoosingResource

		return []Event{{Type: EvtResourceReturned, Seat: cmd.Seat, ResourceID: returned}}, newState, nil

	case CmdSkipTurn:
		if s.Stage != StageChoosingCandidate {
			return nil, s, ErrWrongStage
		}

		// The drawn resource stays in UsedResources.
		events := []Event{{Type: EvtTurnSkipped, Seat: cmd.Seat, ResourceID: s.DrawnResource}}
		newState := s.Clone()
		events = append(events, newState.advance()...)
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// advance ends the active turn. It is the only place the phase can move to
// Contesting.
func (s *State) advance() []Event {
	s.DrawnResource = ""
	s.Stage = StageChoosingResource
	s.TurnIndex++

	events := []Event{{Type: EvtTurnAdvanced}}
	if s.TurnIndex >= len(s.TurnOrder) {
		s.Phase = PhaseContesting
		events = append(events, Event{Type: EvtDraftCompleted})
	}
	return events
}

// Reduce rebuilds a state from an event log. Replaying the events broadcast
// for a room yields the room's live state.
func Reduce(rules Rules, events []Event) State {
	s := NewState(rules)
	for _, event := range events {
		switch event.Type {
		case EvtDraftStarted:
			s.Phase = PhaseSelecting
		case EvtResourceDrawn:
			seat := s.seat(event.Seat)
			seat.UsedResources = append(seat.UsedResources, event.ResourceID)
			s.DrawnResource = event.ResourceID
			s.Stage = StageChoosingCandidate
		case EvtResourceReturned:
			seat := s.seat(event.Seat)
			if i := slices.Index(seat.UsedResources, event.ResourceID); i >= 0 {
				seat.UsedResources = slices.Delete(seat.UsedResources, i, i+1)
			}
			s.DrawnResource = ""
			s.Stage = StageChoosingResource
		case EvtCandidatePicked:
			seat := s.seat(event.Seat)
			pick := *event.Pick
			seat.Roster[event.Slot] = &pick
			seat.Budget -= pick.Cost
			s.Claimed[pick.ID] = true
		case EvtTurnAdvanced:
			s.DrawnResource = ""
			s.Stage = StageChoosingResource
			s.TurnIndex++
		case EvtDraftCompleted:
			s.Phase = PhaseContesting
		}
	}
	return s
}

func resourceUsed(s State, id string) bool {
	return slices.Contains(s.Seats[0].UsedResources, id) || slices.Contains(s.Seats[1].UsedResources, id)
}

func canPick(s State, seat Seat, c Candidate, slot Slot) error {
	if s.Claimed[c.ID()] {
		return ErrCandidateAlreadyClaimed
	}
	if c.ResourceID() != s.DrawnResource {
		return ErrNotFromDrawnResource
	}
	if !slot.Valid() || !slices.Contains(c.EligibleSlots(), slot) {
		return ErrIneligibleSlot
	}

	ss := s.Seats[seat-1]
	if ss.Roster[slot] != nil {
		return ErrSlotOccupied
	}
	if c.Cost() > ss.Budget {
		return ErrInsufficientBudget
	}
	return nil
}

func currentStep(s State) (Seat, bool) {
	if s.TurnIndex >= len(s.TurnOrder) {
		return 0, true
	}
	return s.TurnOrder[s.TurnIndex], false
}
