package glitch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/projectglitch/glitch/internal/logger"
	"github.com/projectglitch/glitch/pkg/transport"
)

// Fixture is one upcoming match.
type Fixture struct {
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
	KickOff  time.Time `json:"kick_off"`
	League   int       `json:"league"`
	Venue    string    `json:"venue,omitempty"`
}

// fetchJSON is swappable in tests so fixture logic can run offline.
var fetchJSON = transport.GetWithStatus

///////////////////////////////////////////////////////
// Response cache
///////////////////////////////////////////////////////

type cacheEntry struct {
	Timestamp time.Time  `json:"timestamp"`
	Fixtures  []*Fixture `json:"fixtures"`
}

func cacheFilePath() string {
	return filepath.Join(Config.CachePath, "fixtures_cache.json")
}

func readCache(leagueID int) ([]*Fixture, bool) {
	data, err := os.ReadFile(cacheFilePath())
	if err != nil {
		return nil, false
	}
	var cache map[string]*cacheEntry
	if err := json.Unmarshal(data, &cache); err != nil {
		logger.Warn("Discarding corrupt fixtures cache", err)
		return nil, false
	}
	entry, ok := cache[cacheKey(leagueID)]
	if !ok {
		return nil, false
	}
	ttl := time.Duration(Config.FixtureCacheTTL) * time.Second
	if time.Since(entry.Timestamp) > ttl {
		return nil, false
	}
	return entry.Fixtures, true
}

func writeCache(leagueID int, fixtures []*Fixture) {
	cache := map[string]*cacheEntry{}
	if data, err := os.ReadFile(cacheFilePath()); err == nil {
		_ = json.Unmarshal(data, &cache)
	}
	cache[cacheKey(leagueID)] = &cacheEntry{Timestamp: time.Now(), Fixtures: fixtures}

	if err := os.MkdirAll(Config.CachePath, 0755); err != nil {
		logger.Warn("Could not create cache directory", err)
		return
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(cacheFilePath(), data, 0644); err != nil {
		logger.Warn("Could not write fixtures cache", err)
	}
}

func cacheKey(leagueID int) string {
	return fmt.Sprintf("fixtures_%d", leagueID)
}

///////////////////////////////////////////////////////
// Fetching
///////////////////////////////////////////////////////

// FetchFixtures returns the next upcoming fixtures for a league, serving
// a fresh cache first, then the API, then a page scrape, and finally
// deterministic mock data so the pipeline keeps working offline.
func FetchFixtures(leagueID, count int) ([]*Fixture, error) {
	if Config.UseMockFixtures {
		return MockFixtures(leagueID, count), nil
	}

	if fixtures, ok := readCache(leagueID); ok {
		logger.Debug("Serving fixtures from cache", leagueID, len(fixtures))
		return limitFixtures(fixtures, count), nil
	}

	fixtures, err := fetchFixturesAPI(leagueID, count)
	if err != nil {
		logger.Warn("Fixture API unavailable, trying page scrape", err)
		fixtures, err = ScrapeFixtures(leagueID)
	}
	if err != nil {
		logger.Warn("Fixture scrape unavailable, using mock data", err)
		return MockFixtures(leagueID, count), nil
	}

	writeCache(leagueID, fixtures)
	return limitFixtures(fixtures, count), nil
}

func limitFixtures(fixtures []*Fixture, count int) []*Fixture {
	if count > 0 && len(fixtures) > count {
		return fixtures[:count]
	}
	return fixtures
}

// apiFixturesResponse is the subset of the API-Football payload we read.
type apiFixturesResponse struct {
	Response []struct {
		Fixture struct {
			Date  string `json:"date"`
			Venue struct {
				Name string `json:"name"`
			} `json:"venue"`
		} `json:"fixture"`
		Teams struct {
			Home struct {
				Name string `json:"name"`
			} `json:"home"`
			Away struct {
				Name string `json:"name"`
			} `json:"away"`
		} `json:"teams"`
	} `json:"response"`
}

func fetchFixturesAPI(leagueID, count int) ([]*Fixture, error) {
	if Config.RapidAPIKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrUpstreamUnavailable)
	}

	url := fmt.Sprintf("https://%s/v3/fixtures?league=%d&season=%d&next=%d",
		Config.APIFootballHost, leagueID, CurrentSeasonYear(), count)
	headers := map[string]string{
		"x-rapidapi-key":  Config.RapidAPIKey,
		"x-rapidapi-host": Config.APIFootballHost,
	}

	body, status, err := fetchJSON(url, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if status == 429 || status == 403 {
		return nil, fmt.Errorf("%w: fixtures request refused with status %d", ErrUpstreamUnavailable, status)
	}
	if status != 200 {
		return nil, fmt.Errorf("%w: fixtures request returned status %d", ErrUpstreamUnavailable, status)
	}

	var payload apiFixturesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: bad fixtures payload: %v", ErrUpstreamUnavailable, err)
	}

	fixtures := make([]*Fixture, 0, len(payload.Response))
	for _, entry := range payload.Response {
		kickoff, err := time.Parse(time.RFC3339, entry.Fixture.Date)
		if err != nil {
			logger.Debug("Skipping fixture with bad date", entry.Fixture.Date)
			continue
		}
		fixtures = append(fixtures, &Fixture{
			HomeTeam: entry.Teams.Home.Name,
			AwayTeam: entry.Teams.Away.Name,
			KickOff:  kickoff,
			League:   leagueID,
			Venue:    entry.Fixture.Venue.Name,
		})
	}
	return fixtures, nil
}

///////////////////////////////////////////////////////
// Scrape fallback
///////////////////////////////////////////////////////

// fotmob league ids differ from API-Football's
var fotmobLeagueIDs = map[int]int{
	39: 47, // Premier League
	40: 48, // Championship
}

// ScrapeFixtures pulls upcoming fixtures out of the fotmob league page's
// embedded __NEXT_DATA__ blob. Used only when the API is unavailable.
func ScrapeFixtures(leagueID int) ([]*Fixture, error) {
	fotmobID, ok := fotmobLeagueIDs[leagueID]
	if !ok {
		return nil, fmt.Errorf("%w: no scrape source for league %d", ErrUpstreamUnavailable, leagueID)
	}

	url := fmt.Sprintf("https://www.fotmob.com/en-GB/leagues/%d/matches", fotmobID)
	body, err := transport.Get(url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: error parsing HTML: %v", ErrUpstreamUnavailable, err)
	}

	var scriptData string
	doc.Find("script#__NEXT_DATA__").Each(func(i int, s *goquery.Selection) {
		scriptData = s.Text()
	})
	if scriptData == "" {
		return nil, fmt.Errorf("%w: could not find __NEXT_DATA__ script tag", ErrUpstreamUnavailable)
	}

	return parseFotmobFixtures([]byte(scriptData), leagueID)
}

type fotmobNextData struct {
	Props struct {
		PageProps struct {
			Matches struct {
				AllMatches []struct {
					Home struct {
						Name string `json:"name"`
					} `json:"home"`
					Away struct {
						Name string `json:"name"`
					} `json:"away"`
					Status struct {
						UTCTime  string `json:"utcTime"`
						Finished bool   `json:"finished"`
					} `json:"status"`
				} `json:"allMatches"`
			} `json:"matches"`
		} `json:"pageProps"`
	} `json:"props"`
}

func parseFotmobFixtures(data []byte, leagueID int) ([]*Fixture, error) {
	var payload fotmobNextData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: bad __NEXT_DATA__ payload: %v", ErrUpstreamUnavailable, err)
	}

	var fixtures []*Fixture
	for _, m := range payload.Props.PageProps.Matches.AllMatches {
		if m.Status.Finished {
			continue
		}
		kickoff, err := time.Parse(time.RFC3339, m.Status.UTCTime)
		if err != nil {
			continue
		}
		fixtures = append(fixtures, &Fixture{
			HomeTeam: m.Home.Name,
			AwayTeam: m.Away.Name,
			KickOff:  kickoff,
			League:   leagueID,
		})
	}
	if len(fixtures) == 0 {
		return nil, fmt.Errorf("%w: no upcoming fixtures in page data", ErrUpstreamUnavailable)
	}
	return fixtures, nil
}

///////////////////////////////////////////////////////
// Mock data
///////////////////////////////////////////////////////

// MockFixtures returns plausible upcoming fixtures for offline use and
// quota exhaustion. Kick-offs are spread over the next week.
func MockFixtures(leagueID, count int) []*Fixture {
	pairs := [][2]string{
		{"Arsenal", "Chelsea"},
		{"Liverpool", "Man City"},
		{"Man United", "Tottenham"},
		{"Newcastle", "Aston Villa"},
		{"Brighton", "West Ham"},
		{"Everton", "Fulham"},
		{"Wolves", "Crystal Palace"},
		{"Brentford", "Bournemouth"},
		{"Nott'm Forest", "Burnley"},
		{"Leeds", "Sunderland"},
	}

	base := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	fixtures := make([]*Fixture, 0, len(pairs))
	for i, pair := range pairs {
		fixtures = append(fixtures, &Fixture{
			HomeTeam: pair[0],
			AwayTeam: pair[1],
			KickOff:  base.Add(time.Duration(i) * 12 * time.Hour),
			League:   leagueID,
		})
	}
	return limitFixtures(fixtures, count)
}

///////////////////////////////////////////////////////
// Historical data download
///////////////////////////////////////////////////////

// football-data.co.uk league codes
var footballDataLeagueCodes = map[int]string{
	39: "E0",
	40: "E1",
}

// DownloadSeason fetches one season's results CSV from football-data.co.uk
// and appends any new rows to the master data file. Seasons are named
// "2324" style, matching the upstream directory layout.
func DownloadSeason(leagueID int, season string) error {
	code, ok := footballDataLeagueCodes[leagueID]
	if !ok {
		return fmt.Errorf("no football-data.co.uk code for league %d", leagueID)
	}

	url := fmt.Sprintf("https://www.football-data.co.uk/mmz4281/%s/%s.csv", season, code)
	logger.Info("Downloading season results", url)

	body, err := transport.Get(url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if err := os.MkdirAll(filepath.Dir(Config.HistoryCSVPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if _, err := os.Stat(Config.HistoryCSVPath); os.IsNotExist(err) {
		return os.WriteFile(Config.HistoryCSVPath, body, 0644)
	}

	// Append without the header row
	lines := strings.SplitN(string(body), "\n", 2)
	if len(lines) < 2 {
		return fmt.Errorf("season file %s is empty", season)
	}
	f, err := os.OpenFile(Config.HistoryCSVPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open master data file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(lines[1]); err != nil {
		return fmt.Errorf("failed to append season data: %w", err)
	}
	logger.Info("Appended season to master data", season, Config.HistoryCSVPath)
	return nil
}
