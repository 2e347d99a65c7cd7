package glitch

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Div,Date,HomeTeam,AwayTeam,FTHG,FTAG,FTR
E0,17/08/2024,Arsenal,Wolves,2,0,H
E0,10/08/2024,Chelsea,Man City,0,2,A
E0,10/08/2024,Everton,Brighton,0,3,A
E0,24/08/2024,Aston Villa,Arsenal,0,2,A
`

func TestReadHistorySortsByDateThenIngestion(t *testing.T) {
	testConfig(t)
	h, err := readHistory(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, h.Matches, 4)

	// Date order, with the two 10/08 matches in file order
	assert.Equal(t, "Chelsea", h.Matches[0].HomeTeam)
	assert.Equal(t, "Everton", h.Matches[1].HomeTeam)
	assert.Equal(t, "Arsenal", h.Matches[2].HomeTeam)
	assert.Equal(t, "Aston Villa", h.Matches[3].HomeTeam)
}

func TestReadHistoryDerivesResults(t *testing.T) {
	testConfig(t)
	h, err := readHistory(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, ResultHome, h.Matches[2].Result)
	assert.Equal(t, ResultAway, h.Matches[0].Result)
}

func TestReadHistoryCoercesBadDates(t *testing.T) {
	testConfig(t)
	csv := `Date,HomeTeam,AwayTeam,FTHG,FTAG
not-a-date,Arsenal,Wolves,1,0
17/08/2024,Chelsea,Everton,2,2
`
	h, err := readHistory(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, h.Matches, 2)

	// The unparseable date sorts to the front as the zero time
	assert.Equal(t, "Arsenal", h.Matches[0].HomeTeam)
	assert.True(t, h.Matches[0].Date.IsZero())
}

func TestReadHistoryDropsRowsWithoutScores(t *testing.T) {
	testConfig(t)
	csv := `Date,HomeTeam,AwayTeam,FTHG,FTAG
17/08/2024,Arsenal,Wolves,NA,NA
18/08/2024,Chelsea,Everton,1,0
19/08/2024,,Everton,1,0
`
	h, err := readHistory(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, h.Matches, 1)
	assert.Equal(t, "Chelsea", h.Matches[0].HomeTeam)
}

func TestReadHistoryMissingColumn(t *testing.T) {
	testConfig(t)
	_, err := readHistory(strings.NewReader("Date,HomeTeam,AwayTeam,FTAG\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FTHG")
}

func TestKnownTeamsSorted(t *testing.T) {
	testConfig(t)
	h, err := readHistory(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	teams := h.KnownTeams()
	assert.Equal(t, []string{"Arsenal", "Aston Villa", "Brighton", "Chelsea", "Everton", "Man City", "Wolves"}, teams)
	assert.True(t, h.HasTeam("Arsenal"))
	assert.False(t, h.HasTeam("arsenal"), "team lookup is exact-name")
}

func TestLoadHistoryCSVMissingFile(t *testing.T) {
	cfg := testConfig(t)
	_, err := LoadHistoryCSV(filepath.Join(cfg.AssetsPath, "nope.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHistoryUnavailable))
}

func TestHistoryDatabaseRoundTrip(t *testing.T) {
	testConfig(t)
	h, err := readHistory(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	require.NoError(t, SaveHistory(h))

	loaded, err := LoadHistoryDB()
	require.NoError(t, err)
	require.Len(t, loaded.Matches, len(h.Matches))

	for i, m := range h.Matches {
		got := loaded.Matches[i]
		assert.Equal(t, m.HomeTeam, got.HomeTeam)
		assert.Equal(t, m.AwayTeam, got.AwayTeam)
		assert.Equal(t, m.HomeGoals, got.HomeGoals)
		assert.Equal(t, m.Result, got.Result)
	}
	assert.Equal(t, h.KnownTeams(), loaded.KnownTeams())
}
