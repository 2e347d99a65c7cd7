package glitch

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/projectglitch/glitch/internal/logger"
)

// History holds the chronologically ordered match record that every
// rolling statistic is computed against. Matches are sorted by date with
// ingestion order as the tiebreak, so repeated loads of the same data
// always produce identical feature vectors.
type History struct {
	Matches []*Match
	teams   []string
	byTeam  map[string][]*Match
}

// Date layouts accepted in the master data file, most common first.
var csvDateLayouts = []string{
	"02/01/2006",
	"02/01/06",
	"2006-01-02",
}

// LoadHistoryCSV reads the master results file. Rows whose dates cannot be
// parsed are kept with a zero date (they sort to the front rather than
// poisoning the whole load); rows without a usable score are dropped.
func LoadHistoryCSV(path string) (*History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrHistoryUnavailable, path, err)
	}
	defer f.Close()

	h, err := readHistory(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrHistoryUnavailable, path, err)
	}
	logger.Info("Loaded match history", path, len(h.Matches))
	return h, nil
}

func readHistory(r io.Reader) (*History, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %v", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Date", "HomeTeam", "AwayTeam", "FTHG", "FTAG"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %s", required)
		}
	}

	var matches []*Match
	seq := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("Skipping malformed row", err)
			continue
		}

		home := strings.TrimSpace(record[col["HomeTeam"]])
		away := strings.TrimSpace(record[col["AwayTeam"]])
		if home == "" || away == "" {
			continue
		}

		fthg, err1 := strconv.Atoi(strings.TrimSpace(record[col["FTHG"]]))
		ftag, err2 := strconv.Atoi(strings.TrimSpace(record[col["FTAG"]]))
		if err1 != nil || err2 != nil {
			logger.Debug("Dropping row without a usable score", home, away)
			continue
		}

		m := NewMatch(parseMatchDate(record[col["Date"]]), home, away, fthg, ftag)
		m.Seq = seq
		seq++
		matches = append(matches, m)
	}

	h := &History{Matches: matches}
	h.index()
	return h, nil
}

// parseMatchDate tries the accepted layouts and coerces failures to the
// zero time instead of erroring the whole file.
func parseMatchDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	logger.Warn("Unparseable match date, coercing to zero", s)
	return time.Time{}
}

// index sorts the matches and builds the per-team lookup.
func (h *History) index() {
	sort.SliceStable(h.Matches, func(i, j int) bool {
		return h.Matches[i].Date.Before(h.Matches[j].Date)
	})

	h.byTeam = make(map[string][]*Match)
	for _, m := range h.Matches {
		h.byTeam[m.HomeTeam] = append(h.byTeam[m.HomeTeam], m)
		h.byTeam[m.AwayTeam] = append(h.byTeam[m.AwayTeam], m)
	}

	h.teams = make([]string, 0, len(h.byTeam))
	for team := range h.byTeam {
		h.teams = append(h.teams, team)
	}
	sort.Strings(h.teams)
}

// KnownTeams returns every team name in the history, sorted.
func (h *History) KnownTeams() []string {
	return h.teams
}

// HasTeam reports whether the exact team name appears in the history.
func (h *History) HasTeam(team string) bool {
	_, ok := h.byTeam[team]
	return ok
}

// MatchesFor returns every match the team played, in chronological order.
func (h *History) MatchesFor(team string) []*Match {
	return h.byTeam[team]
}

// HomeMatchesFor returns the team's home matches, in chronological order.
func (h *History) HomeMatchesFor(team string) []*Match {
	var out []*Match
	for _, m := range h.byTeam[team] {
		if m.HomeTeam == team {
			out = append(out, m)
		}
	}
	return out
}

// AwayMatchesFor returns the team's away matches, in chronological order.
func (h *History) AwayMatchesFor(team string) []*Match {
	var out []*Match
	for _, m := range h.byTeam[team] {
		if m.AwayTeam == team {
			out = append(out, m)
		}
	}
	return out
}

///////////////////////////////////////////////////////
// Database ingest
///////////////////////////////////////////////////////

// SaveHistory writes the full history into the sqlite database,
// replacing any rows already present at the same ingestion sequence.
func SaveHistory(h *History) error {
	if err := CreateTable(&Match{}); err != nil {
		return err
	}
	objects := make([]Persistable, len(h.Matches))
	for i, m := range h.Matches {
		objects[i] = m
	}
	if err := BulkSave(objects); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	logger.Info("Persisted match history to database", len(objects))
	return nil
}

// LoadHistoryDB reads the ingested history back out of sqlite.
func LoadHistoryDB() (*History, error) {
	if err := CreateTable(&Match{}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}
	rows, err := FindAll(&Match{}, "seq")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}
	matches := make([]*Match, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, row.(*Match))
	}
	h := &History{Matches: matches}
	h.index()
	return h, nil
}

// LoadHistory prefers an ingested database when it has rows, otherwise
// falls back to the master CSV and ingests it for next time.
func LoadHistory() (*History, error) {
	if _, err := os.Stat(Config.DBPath); err == nil {
		h, err := LoadHistoryDB()
		if err == nil && len(h.Matches) > 0 {
			return h, nil
		}
	}

	h, err := LoadHistoryCSV(Config.HistoryCSVPath)
	if err != nil {
		return nil, err
	}
	if err := SaveHistory(h); err != nil {
		logger.Warn("Could not ingest history into database", err)
	}
	return h, nil
}
