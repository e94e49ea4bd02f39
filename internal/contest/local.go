package contest

import (
	"fmt"
	"math/rand/v2"

	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

// Power rates a roster for the local model. Empty slots add nothing.
func Power(r engine.Roster) float64 {
	total := 0
	for _, p := range r.Filled() {
		total += p.Cost*15 + p.Championships*3 + p.AllStars + p.MVPs*5 + p.FinalsMVPs*8
	}
	return float64(total)
}

// WinProbability is seat 1's chance to win a game given adjusted powers.
func WinProbability(adj1, adj2 float64) float64 {
	if adj1+adj2 <= 0 {
		return 0.5
	}
	return adj1 / (adj1 + adj2)
}

// SimulateGame resolves one game without the oracle.
func SimulateGame(m Matchup, game int, rng *rand.Rand) types.GameResult {
	power1, power2 := Power(m.Team1.Roster), Power(m.Team2.Roster)
	adj1 := power1 * (0.85 + rng.Float64()*0.3)
	adj2 := power2 * (0.85 + rng.Float64()*0.3)

	winner := 2
	if rng.Float64() < WinProbability(adj1, adj2) {
		winner = 1
	}

	base := 90 + rng.IntN(30)
	margin := 3 + rng.IntN(20)
	score := types.SeriesScore{Team1: base, Team2: base}
	if winner == 1 {
		score.Team1 += margin
	} else {
		score.Team2 += margin
	}

	result := types.GameResult{
		GameNumber: game,
		Winner:     winner,
		Score:      score,
		KeyFactor:  fmt.Sprintf("Roster strength %.0f vs %.0f", power1, power2),
		Source:     types.SourceLocal,
	}

	filled := m.side(winner).Roster.Filled()
	if len(filled) == 0 {
		return result
	}
	star := filled[rng.IntN(len(filled))]
	result.MVP = &types.GameMVP{
		Name:     star.Name,
		Team:     winner,
		Points:   25 + rng.IntN(20),
		Rebounds: 5 + rng.IntN(10),
		Assists:  3 + rng.IntN(10),
	}
	result.Narrative = fmt.Sprintf("%s wins game %d %d-%d behind %s's %d points.",
		m.side(winner).Name, game, max(score.Team1, score.Team2), min(score.Team1, score.Team2),
		star.Name, result.MVP.Points)
	return result
}

// Summarize builds the final series result from completed games.
func Summarize(m Matchup, games []types.GameResult) *types.SeriesResult {
	var final types.FinalScore
	source := types.SourceOracle
	for _, g := range games {
		if g.Winner == 1 {
			final.Team1Wins++
		} else {
			final.Team2Wins++
		}
		if g.Source == types.SourceLocal {
			source = types.SourceLocal
		}
	}

	champion, wins, losses := 1, final.Team1Wins, final.Team2Wins
	if final.Team2Wins > final.Team1Wins {
		champion, wins, losses = 2, final.Team2Wins, final.Team1Wins
	}

	return &types.SeriesResult{
		Champion:   champion,
		FinalScore: final,
		Games:      games,
		FMVP:       FinalsMVP(m, champion, games),
		Summary:    fmt.Sprintf("%s wins the series %d-%d.", m.side(champion).Name, wins, losses),
		Source:     source,
	}
}

type mvpTally struct {
	name     string
	awards   int
	points   int
	rebounds int
	assists  int
}

// FinalsMVP is the champion-side player with the most game MVP awards, ties
// broken by total points. Without any award it falls back to the champion's
// most expensive pick.
func FinalsMVP(m Matchup, champion int, games []types.GameResult) *types.FinalsMVP {
	side := m.side(champion)
	onRoster := make(map[string]bool)
	for _, p := range side.Roster.Filled() {
		onRoster[p.Name] = true
	}

	var order []string
	tallies := make(map[string]*mvpTally)
	for _, g := range games {
		if g.MVP == nil || g.Winner != champion {
			continue
		}
		if g.MVP.Team != 0 && g.MVP.Team != champion {
			continue
		}
		if g.MVP.Team == 0 && !onRoster[g.MVP.Name] {
			continue
		}
		t, ok := tallies[g.MVP.Name]
		if !ok {
			t = &mvpTally{name: g.MVP.Name}
			tallies[g.MVP.Name] = t
			order = append(order, g.MVP.Name)
		}
		t.awards++
		t.points += g.MVP.Points
		t.rebounds += g.MVP.Rebounds
		t.assists += g.MVP.Assists
	}

	var best *mvpTally
	for _, name := range order {
		t := tallies[name]
		if best == nil || t.awards > best.awards || (t.awards == best.awards && t.points > best.points) {
			best = t
		}
	}
	if best != nil {
		n := float64(best.awards)
		return &types.FinalsMVP{
			Name: best.name,
			Team: champion,
			AvgStats: types.AvgStats{
				Points:   float64(best.points) / n,
				Rebounds: float64(best.rebounds) / n,
				Assists:  float64(best.assists) / n,
			},
			Reason: fmt.Sprintf("Game MVP in %d of %d wins.", best.awards, countWins(games, champion)),
		}
	}

	var top *engine.Pick
	for _, p := range side.Roster.Filled() {
		if top == nil || p.Cost > top.Cost {
			top = &p
		}
	}
	if top == nil {
		return nil
	}
	return &types.FinalsMVP{Name: top.Name, Team: champion, Reason: "Highest-valued player on the champion roster."}
}

func countWins(games []types.GameResult, team int) int {
	n := 0
	for _, g := range games {
		if g.Winner == team {
			n++
		}
	}
	return n
}
