package glitch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquadStrengthScoring(t *testing.T) {
	testConfig(t)

	healthy := SquadStrength("Arsenal", nil)
	assert.Equal(t, 100, healthy.Score)
	assert.Equal(t, SquadStrong, healthy.Status)
	assert.Equal(t, 0, healthy.InjuryCount)

	// One key player (15) and one squad player (3)
	c := SquadStrength("Arsenal", []string{"Bukayo Saka", "Reserve Keeper"})
	assert.Equal(t, 82, c.Score)
	assert.Equal(t, SquadModerate, c.Status)
	assert.Equal(t, 2, c.InjuryCount)
}

func TestSquadStrengthFloorsAtZero(t *testing.T) {
	testConfig(t)
	injuries := []string{
		"Bukayo Saka", "Martin Odegaard", "Declan Rice", "William Saliba",
		"Player A", "Player B", "Player C", "Player D", "Player E",
		"Player F", "Player G", "Player H", "Player I", "Player J",
		"Player K", "Player L", "Player M", "Player N",
	}
	c := SquadStrength("Arsenal", injuries)
	assert.Equal(t, 0, c.Score)
	assert.Equal(t, SquadWeak, c.Status)
	assert.Equal(t, len(injuries), c.InjuryCount)
	assert.Len(t, c.Injuries, Config.MaxInjuryReasons, "listed reasons are capped")
}

func TestSquadStrengthKeyPlayerMatchIsCaseInsensitive(t *testing.T) {
	testConfig(t)
	c := SquadStrength("Liverpool", []string{"MOHAMED SALAH"})
	assert.Equal(t, 100-Config.KeyPlayerPenalty, c.Score)
}

func TestSquadStatusBands(t *testing.T) {
	testConfig(t)
	assert.Equal(t, SquadStrong, squadStatus(85))
	assert.Equal(t, SquadModerate, squadStatus(84))
	assert.Equal(t, SquadModerate, squadStatus(70))
	assert.Equal(t, SquadWeak, squadStatus(69))
}

func TestAssessSquadsSkipGate(t *testing.T) {
	testConfig(t)

	ok := AssessSquads(
		&TeamCondition{Team: "Arsenal", Score: 85},
		&TeamCondition{Team: "Chelsea", Score: 70},
	)
	assert.False(t, ok.ShouldSkip, "70 is exactly at the threshold, not below it")

	skip := AssessSquads(
		&TeamCondition{Team: "Arsenal", Score: 85},
		&TeamCondition{Team: "Chelsea", Score: 69, InjuryCount: 4},
	)
	require.True(t, skip.ShouldSkip)
	assert.Contains(t, skip.SkipReason, "Chelsea")
	assert.Contains(t, skip.SkipReason, "69")
}

func stubInjuriesFetch(t *testing.T, fn func(url string, headers map[string]string) ([]byte, int, error)) {
	t.Helper()
	old := fetchInjuriesJSON
	fetchInjuriesJSON = fn
	t.Cleanup(func() { fetchInjuriesJSON = old })
}

func TestFetchInjuriesQuotaExhausted(t *testing.T) {
	cfg := testConfig(t)
	cfg.RapidAPIKey = "test-key"
	stubInjuriesFetch(t, func(url string, headers map[string]string) ([]byte, int, error) {
		return []byte(`{"message":"quota"}`), 429, nil
	})

	_, err := fetchInjuries(42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
	assert.Contains(t, err.Error(), "refused with status 429")
}

func TestFetchInjuriesBuildsRequest(t *testing.T) {
	cfg := testConfig(t)
	cfg.RapidAPIKey = "test-key"
	cfg.CurrentSeason = 2026

	var gotURL string
	stubInjuriesFetch(t, func(url string, headers map[string]string) ([]byte, int, error) {
		gotURL = url
		assert.Equal(t, "test-key", headers["x-rapidapi-key"])
		return []byte(`{"response":[{"player":{"name":"Saka","reason":"Knock"}}]}`), 200, nil
	})

	injuries, err := fetchInjuries(42)
	require.NoError(t, err)
	assert.Equal(t, []string{"Saka"}, injuries)
	assert.Contains(t, gotURL, "team=42")
	assert.Contains(t, gotURL, "season=2026")
}

func TestTeamID(t *testing.T) {
	id, err := TeamID("Arsenal")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	// Tolerates prefix drift between data sources
	id, err = TeamID("Nott'm Forest")
	require.NoError(t, err)
	assert.Equal(t, 65, id)

	_, err = TeamID("Real Madrid")
	assert.Error(t, err)
}
