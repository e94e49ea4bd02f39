package lobby

import (
	"slices"

	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

func (l *Lobby) roomState() *types.RoomState {
	rs := &types.RoomState{
		RoomID:          l.code,
		Version:         l.version,
		Phase:           string(l.state.Phase),
		CurrentTurnSeat: int(l.state.CurrentSeat()),
		Round:           l.state.Round(),
		TurnIndex:       l.state.TurnIndex,
		TurnCount:       len(l.state.TurnOrder),
		SelectionStage:  string(l.state.Stage),
		DrawnResource:   l.state.DrawnResource,
		Seats:           make(map[int]types.SeatView, 2),
		Contest: types.ContestView{
			Started:     l.series.started,
			Finished:    l.series.finished,
			SeriesScore: l.series.score,
			GamesPlayed: l.series.games,
			Champion:    l.series.champion,
		},
	}

	for _, seat := range []engine.Seat{engine.Seat1, engine.Seat2} {
		ss := l.state.Seat(seat)
		v := types.SeatView{
			Budget:        ss.Budget,
			UsedResources: slices.Clone(ss.UsedResources),
			Roster:        RosterView(ss.Roster),
		}
		if v.UsedResources == nil {
			v.UsedResources = []string{}
		}
		if m := l.member(seat); m != nil {
			v.Name = m.name
			v.Connected = m.connected()
			v.Ready = m.ready
		}
		rs.Seats[int(seat)] = v
	}
	return rs
}

// RosterView keys every slot by name; empty slots are nil.
func RosterView(r engine.Roster) map[string]*types.CandidateData {
	out := make(map[string]*types.CandidateData, engine.NumSlots)
	for i, p := range r {
		if p == nil {
			out[engine.Slot(i).String()] = nil
			continue
		}
		out[engine.Slot(i).String()] = CandidateView(*p)
	}
	return out
}

func CandidateView(p engine.Pick) *types.CandidateData {
	slots := make([]string, 0, len(p.Slots))
	for _, s := range p.Slots {
		slots = append(slots, s.String())
	}
	return &types.CandidateData{
		ID:            p.ID,
		Name:          p.Name,
		NameEn:        p.NameEn,
		PeakSeason:    p.PeakSeason,
		Cost:          p.Cost,
		Slots:         slots,
		ResourceID:    p.ResourceID,
		Championships: p.Championships,
		AllStars:      p.AllStars,
		MVPs:          p.MVPs,
		FinalsMVPs:    p.FinalsMVPs,
	}
}
