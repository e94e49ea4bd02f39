package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCandidate struct {
	id       string
	cost     int
	slots    []Slot
	resource string
}

func (c fakeCandidate) ID() string            { return c.id }
func (c fakeCandidate) DisplayName() string   { return "player " + c.id }
func (c fakeCandidate) EnglishName() string   { return "Player " + c.id }
func (c fakeCandidate) Season() string        { return "1999-00" }
func (c fakeCandidate) Cost() int             { return c.cost }
func (c fakeCandidate) EligibleSlots() []Slot { return c.slots }
func (c fakeCandidate) ResourceID() string    { return c.resource }
func (c fakeCandidate) Honors() Honors        { return Honors{Championships: 1} }

func selectingState() State {
	s := NewEmptyState()
	s.Phase = PhaseSelecting
	return s
}

func mustApply(t *testing.T, s State, cmd Command) ([]Event, State) {
	t.Helper()
	events, next, err := Apply(s, cmd)
	require.NoError(t, err, "apply %s for seat %d", cmd.Type, cmd.Seat)
	return events, next
}

func draw(seat Seat, id string) Command {
	return Command{Type: CmdDrawResource, Seat: seat, ResourceID: id}
}

func pick(seat Seat, c fakeCandidate, slot Slot) Command {
	return Command{Type: CmdPickCandidate, Seat: seat, Candidate: c, Slot: slot}
}

func TestStartDraft(t *testing.T) {
	s := NewEmptyState()
	require.Equal(t, PhaseLobby, s.Phase)

	_, _, err := Apply(s, draw(Seat1, "D01"))
	require.ErrorIs(t, err, ErrWrongPhase)

	events, s := mustApply(t, s, Command{Type: CmdStartDraft})
	assert.True(t, ContainsEvent(events, EvtDraftStarted))
	assert.Equal(t, PhaseSelecting, s.Phase)
	assert.Equal(t, Seat1, s.CurrentSeat())

	_, _, err = Apply(s, Command{Type: CmdStartDraft})
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestDrawResource_OutOfTurnRejected(t *testing.T) {
	s := selectingState()

	_, s = mustApply(t, s, draw(Seat1, "D01"))
	assert.Equal(t, []string{"D01"}, s.Seat(Seat1).UsedResources)
	assert.Equal(t, StageChoosingCandidate, s.Stage)
	assert.Equal(t, "D01", s.DrawnResource)

	_, after, err := Apply(s, draw(Seat2, "D02"))
	require.ErrorIs(t, err, ErrIllegalAction)
	assert.ErrorIs(t, err, ErrWrongTurn)
	assert.Equal(t, s, after)
}

func TestDrawResource_Rejections(t *testing.T) {
	base := selectingState()
	base.Seats[1].UsedResources = []string{"LAL"}

	drawn := base.Clone()
	drawn.Stage = StageChoosingCandidate
	drawn.DrawnResource = "CHI"
	drawn.Seats[0].UsedResources = []string{"CHI"}

	cases := []struct {
		name    string
		setup   State
		cmd     Command
		wantErr error
	}{
		{name: "resource used by other seat", setup: base, cmd: draw(Seat1, "LAL"), wantErr: ErrResourceAlreadyUsed},
		{name: "empty resource id", setup: base, cmd: draw(Seat1, ""), wantErr: ErrResourceAlreadyUsed},
		{name: "second draw in same turn", setup: drawn, cmd: draw(Seat1, "BOS"), wantErr: ErrWrongStage},
		{name: "invalid seat", setup: base, cmd: draw(Seat(3), "BOS"), wantErr: ErrWrongTurn},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, got, err := Apply(tc.setup, tc.cmd)
			require.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, err, ErrIllegalAction)
			assert.Equal(t, tc.setup, got)
		})
	}
}

func TestPickCandidate_DeductsBudgetAndAdvances(t *testing.T) {
	s := selectingState()
	_, s = mustApply(t, s, draw(Seat1, "D01"))

	c := fakeCandidate{id: "p1", cost: 5, slots: []Slot{SlotPG, SlotSG}, resource: "D01"}
	events, s := mustApply(t, s, pick(Seat1, c, SlotPG))

	assert.True(t, ContainsEvent(events, EvtCandidatePicked))
	assert.True(t, ContainsEvent(events, EvtTurnAdvanced))
	assert.False(t, ContainsEvent(events, EvtDraftCompleted))

	seat := s.Seat(Seat1)
	assert.Equal(t, 6, seat.Budget)
	require.NotNil(t, seat.Roster[SlotPG])
	assert.Equal(t, "p1", seat.Roster[SlotPG].ID)
	assert.Equal(t, "Player p1", seat.Roster[SlotPG].NameEn)
	assert.Equal(t, "1999-00", seat.Roster[SlotPG].PeakSeason)
	assert.Equal(t, 1, s.TurnIndex)
	assert.Equal(t, StageChoosingResource, s.Stage)
	assert.Empty(t, s.DrawnResource)
	assert.Equal(t, PhaseSelecting, s.Phase)
	assert.True(t, s.Claimed["p1"])
	assert.Equal(t, Seat2, s.CurrentSeat())
}

func TestPickCandidate_Rejections(t *testing.T) {
	s := selectingState()
	s.Stage = StageChoosingCandidate
	s.DrawnResource = "D01"
	s.Seats[0].UsedResources = []string{"D01"}
	s.Seats[0].Budget = 6
	s.Seats[0].Roster[SlotC] = &Pick{ID: "big", Cost: 5}
	s.Claimed["taken"] = true

	cases := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{
			name:    "over budget",
			cmd:     pick(Seat1, fakeCandidate{id: "p12", cost: 12, slots: []Slot{SlotPG}, resource: "D01"}, SlotPG),
			wantErr: ErrInsufficientBudget,
		},
		{
			name:    "slot occupied",
			cmd:     pick(Seat1, fakeCandidate{id: "p2", cost: 1, slots: []Slot{SlotC}, resource: "D01"}, SlotC),
			wantErr: ErrSlotOccupied,
		},
		{
			name:    "already claimed",
			cmd:     pick(Seat1, fakeCandidate{id: "taken", cost: 1, slots: []Slot{SlotPG}, resource: "D01"}, SlotPG),
			wantErr: ErrCandidateAlreadyClaimed,
		},
		{
			name:    "ineligible slot",
			cmd:     pick(Seat1, fakeCandidate{id: "p3", cost: 1, slots: []Slot{SlotPG}, resource: "D01"}, SlotSF),
			wantErr: ErrIneligibleSlot,
		},
		{
			name:    "invalid slot",
			cmd:     pick(Seat1, fakeCandidate{id: "p3", cost: 1, slots: []Slot{SlotPG}, resource: "D01"}, Slot(9)),
			wantErr: ErrIneligibleSlot,
		},
		{
			name:    "other resource",
			cmd:     pick(Seat1, fakeCandidate{id: "p4", cost: 1, slots: []Slot{SlotPG}, resource: "LAL"}, SlotPG),
			wantErr: ErrNotFromDrawnResource,
		},
		{
			name:    "not your turn",
			cmd:     pick(Seat2, fakeCandidate{id: "p5", cost: 1, slots: []Slot{SlotPG}, resource: "D01"}, SlotPG),
			wantErr: ErrWrongTurn,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := s.Clone()
			_, got, err := Apply(s, tc.cmd)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, before, got)
			assert.Equal(t, before, s, "input state must not be mutated")
		})
	}
}

func TestPickCandidate_RequiresDrawnResource(t *testing.T) {
	s := selectingState()
	_, _, err := Apply(s, pick(Seat1, fakeCandidate{id: "p1", cost: 1, slots: []Slot{SlotPG}}, SlotPG))
	assert.ErrorIs(t, err, ErrWrongStage)
}

func TestRedraw_ReturnsResource(t *testing.T) {
	s := selectingState()
	_, s = mustApply(t, s, draw(Seat1, "D01"))

	events, s := mustApply(t, s, Command{Type: CmdRedraw, Seat: Seat1})
	assert.True(t, ContainsEvent(events, EvtResourceReturned))
	assert.Empty(t, s.Seat(Seat1).UsedResources)
	assert.Empty(t, s.DrawnResource)
	assert.Equal(t, StageChoosingResource, s.Stage)
	assert.Equal(t, 0, s.TurnIndex)

	// Returned resources are drawable again.
	_, s = mustApply(t, s, draw(Seat1, "D01"))
	assert.Equal(t, []string{"D01"}, s.Seat(Seat1).UsedResources)

	_, _, err := Apply(selectingState(), Command{Type: CmdRedraw, Seat: Seat1})
	assert.ErrorIs(t, err, ErrWrongStage)
}

func TestSkipTurn_ConsumesResource(t *testing.T) {
	s := selectingState()
	_, s = mustApply(t, s, draw(Seat1, "D01"))

	events, s := mustApply(t, s, Command{Type: CmdSkipTurn, Seat: Seat1})
	assert.True(t, ContainsEvent(events, EvtTurnSkipped))
	assert.Equal(t, []string{"D01"}, s.Seat(Seat1).UsedResources)
	assert.Equal(t, 1, s.TurnIndex)
	assert.Equal(t, Seat2, s.CurrentSeat())

	_, _, err := Apply(s, draw(Seat2, "D01"))
	assert.ErrorIs(t, err, ErrResourceAlreadyUsed)

	_, _, err = Apply(s, Command{Type: CmdSkipTurn, Seat: Seat2})
	assert.ErrorIs(t, err, ErrWrongStage)
}

func TestDraft_CompletesAfterFullTurnOrder(t *testing.T) {
	s := selectingState()
	require.Len(t, s.TurnOrder, 10)

	var last []Event
	for i := 0; i < len(s.TurnOrder); i++ {
		seat := s.CurrentSeat()
		resource := fmt.Sprintf("R%02d", i)
		_, s = mustApply(t, s, draw(seat, resource))
		if i%3 == 0 {
			last, s = mustApply(t, s, Command{Type: CmdSkipTurn, Seat: seat})
			continue
		}
		slot := Slot(i / 2)
		c := fakeCandidate{id: "c" + resource, cost: 1, slots: []Slot{slot}, resource: resource}
		last, s = mustApply(t, s, pick(seat, c, slot))
	}

	assert.True(t, ContainsEvent(last, EvtDraftCompleted))
	assert.Equal(t, PhaseContesting, s.Phase)
	assert.True(t, s.Completed())
	assert.Equal(t, Seat(0), s.CurrentSeat())

	_, _, err := Apply(s, draw(Seat1, "R99"))
	assert.ErrorIs(t, err, ErrDraftCompleted)
}

func TestTurnOrder_Alternates(t *testing.T) {
	order := BuildTurnOrder(5)
	assert.Equal(t, []Seat{1, 2, 1, 2, 1, 2, 1, 2, 1, 2}, order)
	for i := 1; i < len(order); i++ {
		assert.Equal(t, order[i-1].Other(), order[i])
	}
}

func TestRound(t *testing.T) {
	cases := []struct {
		cursor int
		want   int
	}{
		{0, 1}, {1, 1}, {2, 2}, {9, 5}, {10, 5},
	}
	for _, tc := range cases {
		s := selectingState()
		s.TurnIndex = tc.cursor
		assert.Equal(t, tc.want, s.Round(), "cursor %d", tc.cursor)
	}
}

// Drives random legal and illegal commands and checks the draft invariants
// after every step, then replays the event log.
func TestRandomDraft_Invariants(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, seed*7))
			s := NewEmptyState()
			var log []Event

			events, s := mustApply(t, s, Command{Type: CmdStartDraft})
			log = append(log, events...)

			resources := make([]string, 14)
			for i := range resources {
				resources[i] = fmt.Sprintf("T%02d", i)
			}

			lastActor := Seat(0)
			for steps := 0; !s.Completed() && steps < 500; steps++ {
				claimedBefore := len(s.Claimed)
				actor := Seat(1 + rng.IntN(2))

				var cmd Command
				switch s.Stage {
				case StageChoosingResource:
					cmd = draw(actor, resources[rng.IntN(len(resources))])
				case StageChoosingCandidate:
					switch rng.IntN(6) {
					case 0:
						cmd = Command{Type: CmdRedraw, Seat: actor}
					case 1:
						cmd = Command{Type: CmdSkipTurn, Seat: actor}
					default:
						slot := Slot(rng.IntN(int(NumSlots)))
						c := fakeCandidate{
							id:       fmt.Sprintf("%s-%d", s.DrawnResource, rng.IntN(3)),
							cost:     rng.IntN(6),
							slots:    []Slot{slot, Slot(rng.IntN(int(NumSlots)))},
							resource: s.DrawnResource,
						}
						cmd = pick(actor, c, slot)
					}
				}

				if s.TurnIndex > 0 && s.Stage == StageChoosingResource && lastActor != 0 {
					assert.Equal(t, lastActor.Other(), s.CurrentSeat())
				}

				events, next, err := Apply(s, cmd)
				if err != nil {
					assert.Equal(t, s, next)
					continue
				}
				log = append(log, events...)
				if ContainsEvent(events, EvtTurnAdvanced) {
					lastActor = actor
				}
				s = next

				assert.GreaterOrEqual(t, len(s.Claimed), claimedBefore)
				checkInvariants(t, s)
			}

			assert.Equal(t, s, Reduce(s.Rules, log))
		})
	}
}

func checkInvariants(t *testing.T, s State) {
	t.Helper()

	seen := map[string]Seat{}
	picked := map[string]bool{}
	for i, seat := range s.Seats {
		for _, r := range seat.UsedResources {
			if owner, ok := seen[r]; ok {
				t.Fatalf("resource %s used by seats %d and %d", r, owner, i+1)
			}
			seen[r] = Seat(i + 1)
		}

		if seat.Budget < 0 {
			t.Fatalf("seat %d budget negative: %d", i+1, seat.Budget)
		}
		if want := s.Rules.InitialBudget - seat.Roster.Cost(); seat.Budget != want {
			t.Fatalf("seat %d budget %d, want %d", i+1, seat.Budget, want)
		}

		for slot, p := range seat.Roster {
			if p == nil {
				continue
			}
			if picked[p.ID] {
				t.Fatalf("candidate %s assigned twice", p.ID)
			}
			picked[p.ID] = true
			if !slices.Contains(p.Slots, Slot(slot)) {
				t.Fatalf("candidate %s in ineligible slot %s", p.ID, Slot(slot))
			}
		}
	}

	if len(picked) != len(s.Claimed) {
		t.Fatalf("claimed set %v does not match rosters %v", s.Claimed, picked)
	}
	if (s.DrawnResource == "") == (s.Stage == StageChoosingCandidate) {
		t.Fatalf("drawn resource %q inconsistent with stage %s", s.DrawnResource, s.Stage)
	}
}

func TestApply_UnsupportedCommand(t *testing.T) {
	_, _, err := Apply(selectingState(), Command{Type: "Bogus", Seat: Seat1})
	if err == nil || !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}
