package engine

import "maps"

const DefaultInitialBudget = 11

func DefaultRules() Rules {
	return Rules{InitialBudget: DefaultInitialBudget, RosterSlots: int(NumSlots)}
}

func NewState(rules Rules) State {
	if rules.RosterSlots <= 0 || rules.RosterSlots > int(NumSlots) {
		rules.RosterSlots = int(NumSlots)
	}
	s := State{
		Phase:     PhaseLobby,
		TurnOrder: BuildTurnOrder(rules.RosterSlots),
		TurnIndex: 0,
		Stage:     StageChoosingResource,
		Claimed:   map[string]bool{},
		Rules:     rules,
	}
	for i := range s.Seats {
		s.Seats[i] = SeatState{Budget: rules.InitialBudget, UsedResources: []string{}}
	}
	return s
}

func NewEmptyState() State {
	return NewState(DefaultRules())
}

// Clone deep-copies the mutable parts of the state. Picks are immutable and
// shared.
func (s State) Clone() State {
	c := s
	c.TurnOrder = append([]Seat(nil), s.TurnOrder...)
	c.Claimed = maps.Clone(s.Claimed)
	if c.Claimed == nil {
		c.Claimed = map[string]bool{}
	}
	for i := range s.Seats {
		c.Seats[i].UsedResources = append([]string{}, s.Seats[i].UsedResources...)
	}
	return c
}

func (s *State) seat(seat Seat) *SeatState {
	return &s.Seats[seat-1]
}

func (s State) Seat(seat Seat) SeatState {
	return s.Seats[seat-1]
}

// CurrentSeat is the seat allowed to act, or 0 outside the selecting phase.
func (s State) CurrentSeat() Seat {
	if s.Phase != PhaseSelecting {
		return 0
	}
	step, done := currentStep(s)
	if done {
		return 0
	}
	return step
}

// Round is 1-based and counts full alternations.
func (s State) Round() int {
	r := s.TurnIndex/2 + 1
	if limit := s.Rules.RosterSlots; r > limit {
		return limit
	}
	return r
}

func (s State) Completed() bool {
	return s.Phase == PhaseContesting
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
