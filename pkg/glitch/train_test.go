package glitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerWithholdsUntilFullWindow(t *testing.T) {
	testConfig(t)
	tracker := NewFeatureTracker(2)

	m1 := NewMatch(day(0), "Arsenal", "Chelsea", 2, 0)
	if _, ok := tracker.FeaturesBefore(m1); ok {
		t.Fatal("no observations yet, features must be withheld")
	}
	tracker.Observe(m1)

	// One observation each, window is 2: still withheld.
	m2 := NewMatch(day(7), "Arsenal", "Chelsea", 1, 1)
	if _, ok := tracker.FeaturesBefore(m2); ok {
		t.Fatal("one observation against a window of 2 must be withheld")
	}
	tracker.Observe(m2)

	m3 := NewMatch(day(14), "Arsenal", "Chelsea", 0, 1)
	if _, ok := tracker.FeaturesBefore(m3); !ok {
		t.Fatal("both teams have full windows, features expected")
	}
}

func TestTrackerNeverSeesOwnResult(t *testing.T) {
	testConfig(t)
	tracker := NewFeatureTracker(1)
	tracker.Observe(NewMatch(day(0), "Arsenal", "Everton", 2, 0))
	tracker.Observe(NewMatch(day(1), "Wolves", "Chelsea", 1, 1))

	// A freak result must not influence its own feature row.
	blowout := NewMatch(day(2), "Arsenal", "Chelsea", 9, 0)
	fv, ok := tracker.FeaturesBefore(blowout)
	require.True(t, ok)

	assert.Equal(t, 3.0, fv.HomeForm, "home form from the prior win only")
	assert.Equal(t, 2.0, fv.HomeAvgGoals, "home goals from the prior match, not the 9-0")
	assert.Equal(t, 0.0, fv.HomeAvgConceded)
	assert.Equal(t, 0.0, fv.HomeBTTSRate)
	assert.Equal(t, 1.0, fv.AwayForm, "away form from the prior draw")
	assert.Equal(t, 1.0, fv.AwayAvgGoals)
	assert.Equal(t, 1.0, fv.AwayAvgConceded)
	assert.Equal(t, 100.0, fv.AwayBTTSRate)
}

func TestBuildTrainingTable(t *testing.T) {
	testConfig(t)
	h := buildHistory([]*Match{
		NewMatch(day(0), "Arsenal", "Everton", 2, 0),
		NewMatch(day(1), "Wolves", "Chelsea", 1, 1),
		NewMatch(day(2), "Arsenal", "Chelsea", 3, 1),
	})

	Config.RollingWindow = 1
	table, err := BuildTrainingTable(h, 1)
	require.NoError(t, err)

	// Only the third match has full windows for both sides.
	require.Len(t, table.X, 1)
	assert.Equal(t, []float64{3, 1, 2, 1, 0, 1, 0, 100}, table.X[0])
	assert.Equal(t, []int{0}, table.YWin, "home win")
	assert.Equal(t, []int{1}, table.YGoal, "4 goals is over 2.5")
	assert.Equal(t, []int{1}, table.YBTTS, "both scored")
}

func TestBuildTrainingTableEmptyHistory(t *testing.T) {
	testConfig(t)
	h := buildHistory([]*Match{
		NewMatch(day(0), "Arsenal", "Everton", 2, 0),
	})
	_, err := BuildTrainingTable(h, 5)
	require.Error(t, err)
}

func TestTrainAllWritesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	cfg.RollingWindow = 1
	cfg.ForestTrees = 10
	cfg.ForestMaxDepth = 4

	// A small synthetic league with enough rounds to fill every window.
	teams := []string{"Arsenal", "Chelsea", "Everton", "Wolves"}
	var matches []*Match
	d := 0
	for round := 0; round < 12; round++ {
		for i := 0; i < len(teams); i += 2 {
			home, away := teams[i], teams[i+1]
			if round%2 == 1 {
				home, away = away, home
			}
			matches = append(matches, NewMatch(day(d), home, away, (round+i)%4, (round+i+1)%3))
			d++
		}
	}
	h := buildHistory(matches)

	report, err := TrainAll(h, cfg.ModelsPath)
	require.NoError(t, err)
	assert.Greater(t, report.Rows, 0)
	assert.Equal(t, report.Rows, report.TrainRows+report.TestRows)

	bank, err := LoadModelBank(cfg.ModelsPath)
	require.NoError(t, err)
	assert.Equal(t, FeatureNames, bank.Features)
	for _, market := range MarketOrder {
		assert.NotNil(t, bank.Classes(market), "classes for %s", market)
	}
}
