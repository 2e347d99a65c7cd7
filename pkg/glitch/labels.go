package glitch

import (
	"fmt"
)

// Market identifiers, in the fixed order markets are always evaluated.
const (
	MarketWin   = "win"
	MarketGoals = "goals"
	MarketBTTS  = "btts"
)

// MarketOrder fixes the evaluation order used everywhere markets are
// enumerated, including the cross-market tiebreak.
var MarketOrder = []string{MarketWin, MarketGoals, MarketBTTS}

// Class labels per market, indexed by the integer targets below.
var MarketClasses = map[string][]string{
	MarketWin:   {"Home Win", "Draw", "Away Win"},
	MarketGoals: {"Under 2.5", "Over 2.5"},
	MarketBTTS:  {"No BTTS", "BTTS"},
}

// Targets are the three supervised labels derived from one played match.
type Targets struct {
	Result    int // 0 home win, 1 draw, 2 away win
	OverGoals int // 1 when total goals exceed the over threshold
	BTTS      int // 1 when both teams scored
}

// TargetsFor derives the training labels from a played match.
func TargetsFor(m *Match) (Targets, error) {
	if !m.Played() {
		return Targets{}, fmt.Errorf("cannot label unplayed match %s v %s", m.HomeTeam, m.AwayTeam)
	}

	var t Targets
	switch m.Result {
	case ResultHome:
		t.Result = 0
	case ResultDraw:
		t.Result = 1
	case ResultAway:
		t.Result = 2
	default:
		return Targets{}, fmt.Errorf("match %s v %s has unknown result %q", m.HomeTeam, m.AwayTeam, m.Result)
	}

	if float64(m.TotalGoals()) > Config.OverGoalsThreshold {
		t.OverGoals = 1
	}
	if m.BTTS() {
		t.BTTS = 1
	}
	return t, nil
}
