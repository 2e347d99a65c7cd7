package glitch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/projectglitch/glitch/internal/logger"
)

// MarketPrediction is one market's probability distribution plus the pick.
// Probabilities are percentages and sum to 100.
type MarketPrediction struct {
	Market        string             `json:"market"`
	Probabilities map[string]float64 `json:"probabilities"`
	BestBet       string             `json:"best_bet"`
	Confidence    float64            `json:"confidence"`
}

// SafestGlitch is the single most confident pick across all markets.
type SafestGlitch struct {
	Market     string  `json:"market"`
	Bet        string  `json:"bet"`
	Confidence float64 `json:"confidence"`
}

// Prediction is the full output for one fixture.
type Prediction struct {
	HomeTeam   string                       `json:"home_team"`
	AwayTeam   string                       `json:"away_team"`
	Markets    map[string]*MarketPrediction `json:"markets,omitempty"`
	Safest     *SafestGlitch                `json:"safest_glitch,omitempty"`
	HomeStats  *TeamStats                   `json:"home_stats,omitempty"`
	AwayStats  *TeamStats                   `json:"away_stats,omitempty"`
	Accuracies map[string]float64           `json:"model_accuracies,omitempty"`
	UsingML    bool                         `json:"using_ml"`
	Skipped    bool                         `json:"skipped"`
	SkipReason string                       `json:"skip_reason,omitempty"`
	SquadNews  *SquadNews                   `json:"squad_news,omitempty"`
}

// Engine wires history, models and the squad scout into the prediction
// pipeline. History and models load lazily on first use and are cached
// for the lifetime of the engine.
type Engine struct {
	scout SquadChecker

	historyOnce sync.Once
	history     *History
	historyErr  error

	bankOnce sync.Once
	bank     *ModelBank
	bankErr  error
}

// NewEngine creates an engine backed by the live api-sports scout.
func NewEngine() *Engine {
	return &Engine{scout: NewScout()}
}

func (e *Engine) loadHistory() (*History, error) {
	e.historyOnce.Do(func() {
		e.history, e.historyErr = LoadHistory()
	})
	return e.history, e.historyErr
}

func (e *Engine) loadBank() (*ModelBank, error) {
	e.bankOnce.Do(func() {
		e.bank, e.bankErr = LoadModelBank(Config.ModelsPath)
		if e.bankErr != nil {
			logger.Warn("Model bank unavailable, heuristic fallback armed", e.bankErr)
		}
	})
	return e.bank, e.bankErr
}

// KnownTeams returns every team the engine can predict for.
func (e *Engine) KnownTeams() ([]string, error) {
	h, err := e.loadHistory()
	if err != nil {
		return nil, err
	}
	return h.KnownTeams(), nil
}

// Predict runs the full pipeline for a fixture. When checkSquad is set
// and either squad scores below the skip threshold, the prediction is
// withheld and the result says why.
func (e *Engine) Predict(homeTeam, awayTeam string, checkSquad bool) (*Prediction, error) {
	h, err := e.loadHistory()
	if err != nil {
		return nil, err
	}
	if !h.HasTeam(homeTeam) {
		return nil, &UnknownTeamError{Team: homeTeam}
	}
	if !h.HasTeam(awayTeam) {
		return nil, &UnknownTeamError{Team: awayTeam}
	}

	p := &Prediction{HomeTeam: homeTeam, AwayTeam: awayTeam}

	// Stats come first so even a squad-gate skip reports current form.
	homeStats := h.TeamStats(homeTeam, VenueHome, Config.RollingWindow)
	awayStats := h.TeamStats(awayTeam, VenueAway, Config.RollingWindow)
	p.HomeStats = homeStats
	p.AwayStats = awayStats

	if checkSquad {
		news, err := e.scout.TeamNews(homeTeam, awayTeam)
		if err != nil {
			// Availability data is advisory; predict anyway.
			logger.Warn("Squad check unavailable, predicting without it", err)
		} else {
			p.SquadNews = news
			if news.ShouldSkip {
				p.Skipped = true
				p.SkipReason = news.SkipReason
				logger.Inform("Skipping fixture", homeTeam, awayTeam, news.SkipReason)
				return p, nil
			}
		}
	}

	bank, bankErr := e.loadBank()
	if bankErr != nil {
		if !errors.Is(bankErr, ErrModelsUnavailable) {
			return nil, bankErr
		}
		e.predictHeuristic(p, homeStats, awayStats)
		return p, nil
	}

	if err := e.predictML(p, bank, homeStats, awayStats); err != nil {
		return nil, err
	}
	return p, nil
}

// predictML runs the three market models and picks the safest glitch.
func (e *Engine) predictML(p *Prediction, bank *ModelBank, homeStats, awayStats *TeamStats) error {
	fv := FeaturesFromStats(homeStats, awayStats)
	x, err := fv.Vector(bank.Features)
	if err != nil {
		return err
	}

	p.UsingML = true
	p.Markets = map[string]*MarketPrediction{}
	p.Accuracies = map[string]float64{}

	for _, market := range MarketOrder {
		probs, err := bank.PredictProba(market, x)
		if err != nil {
			return fmt.Errorf("failed to predict %s market: %w", market, err)
		}
		classes := bank.Classes(market)
		p.Markets[market] = marketFromProbs(market, classes, probs)
		p.Accuracies[market] = bank.Accuracy(market)
	}

	p.Safest = safestGlitch(p.Markets)
	return nil
}

// marketFromProbs converts model probabilities to percentages and picks
// the best bet. The first class wins ties, matching the class order the
// model was trained with.
func marketFromProbs(market string, classes []string, probs []float64) *MarketPrediction {
	mp := &MarketPrediction{
		Market:        market,
		Probabilities: map[string]float64{},
	}
	best := 0
	for i, class := range classes {
		pct := probs[i] * 100.0
		mp.Probabilities[class] = pct
		if probs[i] > probs[best] {
			best = i
		}
	}
	mp.BestBet = classes[best]
	mp.Confidence = probs[best] * 100.0
	return mp
}

// safestGlitch picks the highest-confidence bet across markets, walking
// them in the fixed order so the earlier market wins exact ties.
func safestGlitch(markets map[string]*MarketPrediction) *SafestGlitch {
	var safest *SafestGlitch
	for _, market := range MarketOrder {
		mp, ok := markets[market]
		if !ok {
			continue
		}
		if safest == nil || mp.Confidence > safest.Confidence {
			safest = &SafestGlitch{
				Market:     market,
				Bet:        mp.BestBet,
				Confidence: mp.Confidence,
			}
		}
	}
	return safest
}

///////////////////////////////////////////////////////
// Heuristic fallback
///////////////////////////////////////////////////////

// predictHeuristic produces a form-ratio prediction when no trained
// models exist. Deliberately marked as non-ML output.
func (e *Engine) predictHeuristic(p *Prediction, homeStats, awayStats *TeamStats) {
	logger.Inform("Predicting with heuristic fallback", p.HomeTeam, p.AwayTeam)

	homeForm := float64(homeStats.Form) * Config.HomeAdvantageBoost
	awayForm := float64(awayStats.Form) * Config.AwayDampening
	total := homeForm + awayForm
	if total == 0 {
		homeForm, awayForm, total = 1, 1, 2
	}

	homePct := homeForm / total * (100.0 - Config.HeuristicDrawPct)
	awayPct := awayForm / total * (100.0 - Config.HeuristicDrawPct)

	winClasses := MarketClasses[MarketWin]
	win := &MarketPrediction{
		Market: MarketWin,
		Probabilities: map[string]float64{
			winClasses[0]: homePct,
			winClasses[1]: Config.HeuristicDrawPct,
			winClasses[2]: awayPct,
		},
	}
	if homePct >= awayPct {
		win.BestBet = winClasses[0]
		win.Confidence = clampConfidence(homePct)
	} else {
		win.BestBet = winClasses[2]
		win.Confidence = clampConfidence(awayPct)
	}

	expectedGoals := homeStats.AvgGoals + awayStats.AvgGoals
	goalsClasses := MarketClasses[MarketGoals]
	goals := &MarketPrediction{
		Market:     MarketGoals,
		Confidence: Config.HeuristicGoalsConf,
	}
	if expectedGoals > Config.OverGoalsThreshold {
		goals.BestBet = goalsClasses[1]
	} else {
		goals.BestBet = goalsClasses[0]
	}
	goals.Probabilities = map[string]float64{
		goals.BestBet:                           Config.HeuristicGoalsConf,
		otherClass(goalsClasses, goals.BestBet): 100.0 - Config.HeuristicGoalsConf,
	}

	// The pick follows the home side's rate alone; the probability blends
	// both sides so the distribution still reflects the opposition.
	bttsClasses := MarketClasses[MarketBTTS]
	btts := &MarketPrediction{
		Market:     MarketBTTS,
		Confidence: Config.HeuristicBTTSConf,
	}
	if homeStats.BTTSRate > 50.0 {
		btts.BestBet = bttsClasses[1]
	} else {
		btts.BestBet = bttsClasses[0]
	}
	bttsYes := (homeStats.BTTSRate + awayStats.BTTSRate) / 2.0
	btts.Probabilities = map[string]float64{
		bttsClasses[1]: bttsYes,
		bttsClasses[0]: 100.0 - bttsYes,
	}

	p.UsingML = false
	p.Markets = map[string]*MarketPrediction{
		MarketWin:   win,
		MarketGoals: goals,
		MarketBTTS:  btts,
	}
	// Without trained models only the result market earns the headline pick;
	// the fixed goals and btts confidences are placeholders, not evidence.
	p.Safest = &SafestGlitch{
		Market:     MarketWin,
		Bet:        win.BestBet,
		Confidence: win.Confidence,
	}
}

// clampConfidence keeps heuristic confidence inside its honest band.
// A lopsided form ratio is still just a form ratio.
func clampConfidence(pct float64) float64 {
	if pct < Config.HeuristicMinConf {
		return Config.HeuristicMinConf
	}
	if pct > Config.HeuristicMaxConf {
		return Config.HeuristicMaxConf
	}
	return pct
}

func otherClass(classes []string, chosen string) string {
	if classes[0] == chosen {
		return classes[1]
	}
	return classes[0]
}
