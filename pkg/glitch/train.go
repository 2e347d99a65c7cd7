package glitch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/projectglitch/glitch/internal/logger"
)

// FeatureTracker accumulates per-team outcome streams while walking the
// history in chronological order. Features for a match are computed from
// the tracker state BEFORE that match is observed, so a training row can
// never see its own result.
type FeatureTracker struct {
	window int

	formPoints   map[string][]int
	homeGoals    map[string][]int
	homeConceded map[string][]int
	homeBTTS     map[string][]int
	awayGoals    map[string][]int
	awayConceded map[string][]int
	awayBTTS     map[string][]int
}

// NewFeatureTracker creates an empty tracker with the given window size.
func NewFeatureTracker(window int) *FeatureTracker {
	return &FeatureTracker{
		window:       window,
		formPoints:   map[string][]int{},
		homeGoals:    map[string][]int{},
		homeConceded: map[string][]int{},
		homeBTTS:     map[string][]int{},
		awayGoals:    map[string][]int{},
		awayConceded: map[string][]int{},
		awayBTTS:     map[string][]int{},
	}
}

// FeaturesBefore returns the feature vector for the match using only
// previously observed results. ok is false until both teams have a full
// window of observations on every stream the row needs.
func (t *FeatureTracker) FeaturesBefore(m *Match) (*FeatureVector, bool) {
	homeForm, ok1 := t.trailingSum(t.formPoints[m.HomeTeam])
	awayForm, ok2 := t.trailingSum(t.formPoints[m.AwayTeam])
	homeGoals, ok3 := t.trailingMean(t.homeGoals[m.HomeTeam])
	homeConceded, ok4 := t.trailingMean(t.homeConceded[m.HomeTeam])
	homeBTTS, ok5 := t.trailingRate(t.homeBTTS[m.HomeTeam])
	awayGoals, ok6 := t.trailingMean(t.awayGoals[m.AwayTeam])
	awayConceded, ok7 := t.trailingMean(t.awayConceded[m.AwayTeam])
	awayBTTS, ok8 := t.trailingRate(t.awayBTTS[m.AwayTeam])

	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8) {
		return nil, false
	}

	return &FeatureVector{
		HomeForm:        homeForm,
		AwayForm:        awayForm,
		HomeAvgGoals:    homeGoals,
		AwayAvgGoals:    awayGoals,
		HomeAvgConceded: homeConceded,
		AwayAvgConceded: awayConceded,
		HomeBTTSRate:    homeBTTS,
		AwayBTTSRate:    awayBTTS,
	}, true
}

// Observe appends the match outcome to both teams' streams. Call it only
// after FeaturesBefore for the same match.
func (t *FeatureTracker) Observe(m *Match) {
	t.formPoints[m.HomeTeam] = append(t.formPoints[m.HomeTeam], m.FormPoints(m.HomeTeam))
	t.formPoints[m.AwayTeam] = append(t.formPoints[m.AwayTeam], m.FormPoints(m.AwayTeam))

	btts := 0
	if m.BTTS() {
		btts = 1
	}
	t.homeGoals[m.HomeTeam] = append(t.homeGoals[m.HomeTeam], m.HomeGoals)
	t.homeConceded[m.HomeTeam] = append(t.homeConceded[m.HomeTeam], m.AwayGoals)
	t.homeBTTS[m.HomeTeam] = append(t.homeBTTS[m.HomeTeam], btts)
	t.awayGoals[m.AwayTeam] = append(t.awayGoals[m.AwayTeam], m.AwayGoals)
	t.awayConceded[m.AwayTeam] = append(t.awayConceded[m.AwayTeam], m.HomeGoals)
	t.awayBTTS[m.AwayTeam] = append(t.awayBTTS[m.AwayTeam], btts)
}

func (t *FeatureTracker) trailingSum(stream []int) (float64, bool) {
	if len(stream) < t.window {
		return 0, false
	}
	sum := 0
	for _, v := range stream[len(stream)-t.window:] {
		sum += v
	}
	return float64(sum), true
}

func (t *FeatureTracker) trailingMean(stream []int) (float64, bool) {
	sum, ok := t.trailingSum(stream)
	if !ok {
		return 0, false
	}
	return sum / float64(t.window), true
}

func (t *FeatureTracker) trailingRate(stream []int) (float64, bool) {
	mean, ok := t.trailingMean(stream)
	if !ok {
		return 0, false
	}
	return mean * 100.0, true
}

///////////////////////////////////////////////////////
// Training pipeline
///////////////////////////////////////////////////////

// TrainingTable is the dense sample matrix plus one label column per market.
type TrainingTable struct {
	X     [][]float64
	YWin  []int
	YGoal []int
	YBTTS []int
}

// BuildTrainingTable walks the history once in chronological order,
// emitting a row per match that has full windows for both teams. Rows are
// dropped, never padded: a padded row would teach the model the prior.
func BuildTrainingTable(h *History, window int) (*TrainingTable, error) {
	tracker := NewFeatureTracker(window)
	table := &TrainingTable{}

	for _, m := range h.Matches {
		if !m.Played() {
			continue
		}
		fv, ok := tracker.FeaturesBefore(m)
		if ok {
			targets, err := TargetsFor(m)
			if err != nil {
				return nil, err
			}
			x, err := fv.Vector(FeatureNames)
			if err != nil {
				return nil, err
			}
			table.X = append(table.X, x)
			table.YWin = append(table.YWin, targets.Result)
			table.YGoal = append(table.YGoal, targets.OverGoals)
			table.YBTTS = append(table.YBTTS, targets.BTTS)
		}
		tracker.Observe(m)
	}

	if len(table.X) == 0 {
		return nil, fmt.Errorf("history too short to produce any training rows")
	}
	return table, nil
}

func (t *TrainingTable) labels(market string) []int {
	switch market {
	case MarketWin:
		return t.YWin
	case MarketGoals:
		return t.YGoal
	default:
		return t.YBTTS
	}
}

// TrainingReport summarizes one training run.
type TrainingReport struct {
	Rows       int                `json:"rows"`
	TrainRows  int                `json:"train_rows"`
	TestRows   int                `json:"test_rows"`
	Accuracies map[string]float64 `json:"accuracies"`
}

// featuresManifest is the schema file written next to the model artifacts.
type featuresManifest struct {
	Features []string              `json:"features"`
	Models   map[string]*ModelSpec `json:"models"`
}

// TrainAll trains all three market models on a temporal split: the oldest
// matches train, the newest hold out. Shuffling here would leak future
// form into the training set.
func TrainAll(h *History, modelsPath string) (*TrainingReport, error) {
	table, err := BuildTrainingTable(h, Config.RollingWindow)
	if err != nil {
		return nil, err
	}

	split := int(float64(len(table.X)) * (1.0 - Config.TestSize))
	if split < 1 || split >= len(table.X) {
		return nil, fmt.Errorf("not enough rows (%d) for a temporal split", len(table.X))
	}
	logger.Info("Training on temporal split", len(table.X), split)

	if err := os.MkdirAll(modelsPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create models directory: %w", err)
	}

	report := &TrainingReport{
		Rows:       len(table.X),
		TrainRows:  split,
		TestRows:   len(table.X) - split,
		Accuracies: map[string]float64{},
	}
	manifest := &featuresManifest{
		Features: FeatureNames,
		Models:   map[string]*ModelSpec{},
	}

	for _, market := range MarketOrder {
		y := table.labels(market)
		classes := MarketClasses[market]

		forest, err := FitForest(table.X[:split], y[:split], len(classes), DefaultForestParams())
		if err != nil {
			return nil, fmt.Errorf("failed to train %s model: %w", market, err)
		}

		accuracy, err := forest.Accuracy(table.X[split:], y[split:])
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate %s model: %w", market, err)
		}
		report.Accuracies[market] = accuracy
		logger.Info("Trained market model", market, accuracy)

		file := fmt.Sprintf("model_%s.json", market)
		if err := SaveForest(forest, filepath.Join(modelsPath, file)); err != nil {
			return nil, err
		}
		manifest.Models[market] = &ModelSpec{
			File:     file,
			Type:     "classifier",
			Classes:  classes,
			Accuracy: accuracy,
		}
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feature manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(modelsPath, "features.json"), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write features.json: %w", err)
	}

	return report, nil
}
