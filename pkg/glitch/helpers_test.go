package glitch

import (
	"path/filepath"
	"testing"
	"time"
)

// testConfig points the global config at a throwaway directory and
// restores everything afterwards.
func testConfig(t *testing.T) *GlitchConfig {
	t.Helper()
	dir := t.TempDir()
	old := Config

	cfg := DefaultConfig()
	cfg.AssetsPath = dir
	cfg.HistoryCSVPath = filepath.Join(dir, "master_data.csv")
	cfg.DBPath = filepath.Join(dir, "glitch.db")
	cfg.ModelsPath = dir
	cfg.CachePath = filepath.Join(dir, "cache")
	Config = cfg

	t.Cleanup(func() {
		if err := CloseDatabase(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
		Config = old
	})
	return cfg
}

// day returns a date n days after an arbitrary fixed epoch.
func day(n int) time.Time {
	return time.Date(2024, 8, 1, 15, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// buildHistory assembles a History directly from matches, assigning
// ingestion sequence in slice order.
func buildHistory(matches []*Match) *History {
	for i, m := range matches {
		m.Seq = i
	}
	h := &History{Matches: matches}
	h.index()
	return h
}
