package glitch

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScout struct {
	news *SquadNews
	err  error
}

func (s *stubScout) TeamNews(homeTeam, awayTeam string) (*SquadNews, error) {
	return s.news, s.err
}

// leafForest builds a degenerate one-leaf forest that always returns the
// given distribution. Handy for exercising the engine deterministically.
func leafForest(probs []float64) *Forest {
	return &Forest{
		NClasses:  len(probs),
		NFeatures: len(FeatureNames),
		Trees:     []*treeNode{{Probs: probs}},
	}
}

func fixedBank(win, goals, btts []float64) *ModelBank {
	bank := &ModelBank{
		Features: FeatureNames,
		specs:    map[string]*ModelSpec{},
		forests:  map[string]*Forest{},
	}
	for market, probs := range map[string][]float64{
		MarketWin:   win,
		MarketGoals: goals,
		MarketBTTS:  btts,
	} {
		bank.specs[market] = &ModelSpec{
			File:     fmt.Sprintf("model_%s.json", market),
			Type:     "classifier",
			Classes:  MarketClasses[market],
			Accuracy: 0.5,
		}
		bank.forests[market] = leafForest(probs)
	}
	return bank
}

// testEngine wires an engine from parts, bypassing the lazy loaders.
func testEngine(h *History, bank *ModelBank, bankErr error, scout SquadChecker) *Engine {
	e := &Engine{scout: scout}
	e.historyOnce.Do(func() {})
	e.history = h
	e.bankOnce.Do(func() {})
	e.bank = bank
	e.bankErr = bankErr
	return e
}

// derbyHistory gives both sides enough matches for real windows.
func derbyHistory() *History {
	return buildHistory([]*Match{
		NewMatch(day(0), "Arsenal", "Everton", 3, 0),
		NewMatch(day(1), "Wolves", "Chelsea", 0, 2),
		NewMatch(day(7), "Arsenal", "Fulham", 2, 1),
		NewMatch(day(8), "Brighton", "Chelsea", 1, 1),
		NewMatch(day(14), "Arsenal", "Brentford", 1, 1),
		NewMatch(day(15), "Everton", "Chelsea", 2, 3),
	})
}

func TestPredictMLPath(t *testing.T) {
	testConfig(t)
	bank := fixedBank(
		[]float64{0.5, 0.3, 0.2},
		[]float64{0.45, 0.55},
		[]float64{0.4, 0.6},
	)
	e := testEngine(derbyHistory(), bank, nil, &stubScout{})

	p, err := e.Predict("Arsenal", "Chelsea", false)
	require.NoError(t, err)

	assert.True(t, p.UsingML)
	assert.False(t, p.Skipped)
	require.Len(t, p.Markets, 3)

	for _, market := range MarketOrder {
		mp := p.Markets[market]
		require.NotNil(t, mp, market)
		sum := 0.0
		for _, pct := range mp.Probabilities {
			sum += pct
		}
		assert.InDelta(t, 100.0, sum, 1e-9, "%s probabilities must sum to 100", market)
	}

	assert.Equal(t, "Home Win", p.Markets[MarketWin].BestBet)
	assert.Equal(t, "Over 2.5", p.Markets[MarketGoals].BestBet)
	assert.Equal(t, "BTTS", p.Markets[MarketBTTS].BestBet)

	// Highest confidence is the BTTS 60%
	require.NotNil(t, p.Safest)
	assert.Equal(t, MarketBTTS, p.Safest.Market)
	assert.InDelta(t, 60.0, p.Safest.Confidence, 1e-9)

	require.NotNil(t, p.HomeStats)
	assert.Equal(t, VenueHome, p.HomeStats.Venue)
	assert.Equal(t, VenueAway, p.AwayStats.Venue)
}

func TestSafestGlitchTieBreaksByMarketOrder(t *testing.T) {
	testConfig(t)
	// win and goals both peak at exactly 60%: win comes first in the
	// fixed market order and must take the tie.
	bank := fixedBank(
		[]float64{0.6, 0.2, 0.2},
		[]float64{0.4, 0.6},
		[]float64{0.5, 0.5},
	)
	e := testEngine(derbyHistory(), bank, nil, &stubScout{})

	p, err := e.Predict("Arsenal", "Chelsea", false)
	require.NoError(t, err)
	require.NotNil(t, p.Safest)
	assert.Equal(t, MarketWin, p.Safest.Market)
	assert.Equal(t, "Home Win", p.Safest.Bet)
}

func TestPredictUnknownTeam(t *testing.T) {
	testConfig(t)
	e := testEngine(derbyHistory(), nil, fmt.Errorf("%w: none", ErrModelsUnavailable), &stubScout{})

	_, err := e.Predict("Arsenal", "Real Madrid", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTeam))

	var ute *UnknownTeamError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, "Real Madrid", ute.Team)
}

func TestPredictHeuristicFallback(t *testing.T) {
	testConfig(t)
	e := testEngine(derbyHistory(), nil, fmt.Errorf("%w: none", ErrModelsUnavailable), &stubScout{})

	p, err := e.Predict("Arsenal", "Chelsea", false)
	require.NoError(t, err)

	assert.False(t, p.UsingML)
	require.Len(t, p.Markets, 3)

	for _, market := range MarketOrder {
		mp := p.Markets[market]
		sum := 0.0
		for _, pct := range mp.Probabilities {
			sum += pct
		}
		assert.InDelta(t, 100.0, sum, 1e-9, "%s probabilities must sum to 100", market)
		assert.GreaterOrEqual(t, mp.Confidence, Config.HeuristicMinConf)
		assert.LessOrEqual(t, mp.Confidence, Config.HeuristicMaxConf)
	}

	assert.Equal(t, Config.HeuristicGoalsConf, p.Markets[MarketGoals].Confidence)
	assert.Equal(t, Config.HeuristicBTTSConf, p.Markets[MarketBTTS].Confidence)

	// The headline pick always comes from the result market here, even
	// when the fixed goals or btts confidence is numerically higher.
	require.NotNil(t, p.Safest)
	assert.Equal(t, MarketWin, p.Safest.Market)
	assert.Equal(t, p.Markets[MarketWin].BestBet, p.Safest.Bet)
	assert.Equal(t, p.Markets[MarketWin].Confidence, p.Safest.Confidence)
}

func TestHeuristicBTTSFollowsHomeRate(t *testing.T) {
	testConfig(t)
	e := &Engine{}

	// A quiet home side against a leaky away side: the pick tracks the
	// home rate while the blended probability leans the other way.
	home := &TeamStats{Team: "Arsenal", Venue: VenueHome, Form: 9, BTTSRate: 40.0}
	away := &TeamStats{Team: "Chelsea", Venue: VenueAway, Form: 6, BTTSRate: 80.0}

	p := &Prediction{HomeTeam: home.Team, AwayTeam: away.Team}
	e.predictHeuristic(p, home, away)

	btts := p.Markets[MarketBTTS]
	require.NotNil(t, btts)
	assert.Equal(t, "No BTTS", btts.BestBet)
	assert.InDelta(t, 60.0, btts.Probabilities["BTTS"], 1e-9)
	assert.InDelta(t, 40.0, btts.Probabilities["No BTTS"], 1e-9)
}

func TestPredictSchemaMismatchIsFatal(t *testing.T) {
	testConfig(t)
	bank := fixedBank(
		[]float64{0.5, 0.3, 0.2},
		[]float64{0.45, 0.55},
		[]float64{0.4, 0.6},
	)
	bank.Features = []string{"HomeTeam_Form", "Home_xG"}
	e := testEngine(derbyHistory(), bank, nil, &stubScout{})

	_, err := e.Predict("Arsenal", "Chelsea", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestPredictSkipsDisruptedSquad(t *testing.T) {
	testConfig(t)
	news := AssessSquads(
		&TeamCondition{Team: "Arsenal", Score: 90, Status: SquadStrong},
		&TeamCondition{Team: "Chelsea", Score: 55, Status: SquadWeak, InjuryCount: 6},
	)
	e := testEngine(derbyHistory(), nil, nil, &stubScout{news: news})

	p, err := e.Predict("Arsenal", "Chelsea", true)
	require.NoError(t, err)

	assert.True(t, p.Skipped)
	assert.Contains(t, p.SkipReason, "Chelsea")
	assert.Nil(t, p.Markets)
	assert.Nil(t, p.Safest)
	require.NotNil(t, p.SquadNews)

	// A skip withholds the markets, not the form picture.
	require.NotNil(t, p.HomeStats)
	require.NotNil(t, p.AwayStats)
	assert.Equal(t, "Arsenal", p.HomeStats.Team)
	assert.Equal(t, "Chelsea", p.AwayStats.Team)
}

func TestPredictProceedsWhenScoutFails(t *testing.T) {
	testConfig(t)
	bank := fixedBank(
		[]float64{0.5, 0.3, 0.2},
		[]float64{0.45, 0.55},
		[]float64{0.4, 0.6},
	)
	e := testEngine(derbyHistory(), bank, nil,
		&stubScout{err: fmt.Errorf("%w: quota", ErrUpstreamUnavailable)})

	p, err := e.Predict("Arsenal", "Chelsea", true)
	require.NoError(t, err)
	assert.False(t, p.Skipped)
	assert.Nil(t, p.SquadNews)
	require.Len(t, p.Markets, 3)
}

func TestMarketTieBreaksByFirstClass(t *testing.T) {
	testConfig(t)
	mp := marketFromProbs(MarketGoals, MarketClasses[MarketGoals], []float64{0.5, 0.5})
	assert.Equal(t, "Under 2.5", mp.BestBet, "exact tie must go to the first class")
	assert.True(t, math.Abs(mp.Confidence-50.0) < 1e-9)
}
