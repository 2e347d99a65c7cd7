package glitch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/projectglitch/glitch/pkg/util"
)

// GlitchConfig centralizes every tunable that influences prediction outcomes,
// along with paths and upstream API settings. Values load from defaults, then
// an optional TOML file, then GLITCH_* environment variables.
type GlitchConfig struct {
	// Paths
	AssetsPath     string `toml:"assets_path"`      // base directory for models, data and caches
	HistoryCSVPath string `toml:"history_csv_path"` // master historical results file
	DBPath         string `toml:"db_path"`          // sqlite database for ingested history
	ModelsPath     string `toml:"models_path"`      // directory holding model artifacts + features.json
	CachePath      string `toml:"cache_path"`       // fixture response cache directory

	// === ROLLING STATISTICS ===

	RollingWindow          int `toml:"rolling_window"`           // trailing window size N (default: 5)
	VenueFallbackThreshold int `toml:"venue_fallback_threshold"` // below this many venue games, fall back to all games (default: 3)

	// Neutral prior for teams with no history at all
	DefaultForm        int     `toml:"default_form"`         // default: 7
	DefaultAvgGoals    float64 `toml:"default_avg_goals"`    // default: 1.3
	DefaultAvgConceded float64 `toml:"default_avg_conceded"` // default: 1.2
	DefaultBTTSRate    float64 `toml:"default_btts_rate"`    // default: 50.0

	// Home-advantage prior used when a specific venue window is empty
	AwayDefaultAvgGoals    float64 `toml:"away_default_avg_goals"`    // default: 1.1
	AwayDefaultAvgConceded float64 `toml:"away_default_avg_conceded"` // default: 1.4

	// === MARKETS ===

	OverGoalsThreshold float64 `toml:"over_goals_threshold"` // default: 2.5

	// === TRAINING ===

	TestSize       float64 `toml:"test_size"` // temporal holdout fraction (default: 0.2)
	ForestTrees    int     `toml:"forest_trees"`
	ForestMaxDepth int     `toml:"forest_max_depth"`
	ForestMinSplit int     `toml:"forest_min_split"`
	ForestMinLeaf  int     `toml:"forest_min_leaf"`
	ForestSeed     int64   `toml:"forest_seed"`

	// === HEURISTIC FALLBACK ===

	HomeAdvantageBoost float64 `toml:"home_advantage_boost"` // default: 1.1
	AwayDampening      float64 `toml:"away_dampening"`       // default: 0.9
	HeuristicDrawPct   float64 `toml:"heuristic_draw_pct"`   // default: 25.0
	HeuristicGoalsConf float64 `toml:"heuristic_goals_conf"` // default: 52.0
	HeuristicBTTSConf  float64 `toml:"heuristic_btts_conf"`  // default: 55.0
	HeuristicMinConf   float64 `toml:"heuristic_min_conf"`   // default: 50.0
	HeuristicMaxConf   float64 `toml:"heuristic_max_conf"`   // default: 60.0

	// === SQUAD RISK GATE ===

	SquadSkipThreshold   int `toml:"squad_skip_threshold"`   // min score below which the match is skipped (default: 70)
	SquadStrongThreshold int `toml:"squad_strong_threshold"` // default: 85
	KeyPlayerPenalty     int `toml:"key_player_penalty"`     // default: 15
	SquadPlayerPenalty   int `toml:"squad_player_penalty"`   // default: 3
	MaxInjuryReasons     int `toml:"max_injury_reasons"`     // default: 5

	// === UPSTREAM APIS ===

	RapidAPIKey     string `toml:"rapid_api_key"`
	APISportsHost   string `toml:"api_sports_host"`   // injuries/lineups
	APIFootballHost string `toml:"api_football_host"` // fixtures
	LeagueID        int    `toml:"league_id"`         // default: 39 (EPL)
	FixtureCount    int    `toml:"fixture_count"`     // default: 10
	FixtureCacheTTL int    `toml:"fixture_cache_ttl"` // seconds (default: 3600)
	UseMockFixtures bool   `toml:"use_mock_fixtures"` // force mock data, useful offline
	CurrentSeason   int    `toml:"current_season"`    // 0 means auto-detect
}

// DefaultConfig returns the standard configuration
func DefaultConfig() *GlitchConfig {
	assetsPath := filepath.Join(os.Getenv("HOME"), ".glitch")
	return &GlitchConfig{
		AssetsPath:     assetsPath,
		HistoryCSVPath: filepath.Join(assetsPath, "master_data.csv"),
		DBPath:         filepath.Join(assetsPath, "glitch.db"),
		ModelsPath:     assetsPath,
		CachePath:      filepath.Join(assetsPath, "cache"),

		RollingWindow:          5,
		VenueFallbackThreshold: 3,

		DefaultForm:        7,
		DefaultAvgGoals:    1.3,
		DefaultAvgConceded: 1.2,
		DefaultBTTSRate:    50.0,

		AwayDefaultAvgGoals:    1.1,
		AwayDefaultAvgConceded: 1.4,

		OverGoalsThreshold: 2.5,

		TestSize:       0.2,
		ForestTrees:    200,
		ForestMaxDepth: 10,
		ForestMinSplit: 5,
		ForestMinLeaf:  2,
		ForestSeed:     42,

		HomeAdvantageBoost: 1.1,
		AwayDampening:      0.9,
		HeuristicDrawPct:   25.0,
		HeuristicGoalsConf: 52.0,
		HeuristicBTTSConf:  55.0,
		HeuristicMinConf:   50.0,
		HeuristicMaxConf:   60.0,

		SquadSkipThreshold:   70,
		SquadStrongThreshold: 85,
		KeyPlayerPenalty:     15,
		SquadPlayerPenalty:   3,
		MaxInjuryReasons:     5,

		APISportsHost:   "v3.football.api-sports.io",
		APIFootballHost: "api-football-v1.p.rapidapi.com",
		LeagueID:        39,
		FixtureCount:    10,
		FixtureCacheTTL: 3600,
	}
}

// Global configuration instance
var Config *GlitchConfig

func init() {
	Config = DefaultConfig()
}

// LoadConfig merges a TOML file (if path is non-empty) over the defaults,
// loads a .env file when present, and applies environment overrides.
// The result replaces the global Config.
func LoadConfig(path string) (*GlitchConfig, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	// Load .env if present, silently ignore when missing
	_ = godotenv.Load()

	if key := os.Getenv("RAPIDAPI_KEY"); key != "" {
		cfg.RapidAPIKey = key
	}
	if v := os.Getenv("GLITCH_ASSETS_PATH"); v != "" {
		cfg.AssetsPath = v
		cfg.HistoryCSVPath = filepath.Join(v, "master_data.csv")
		cfg.DBPath = filepath.Join(v, "glitch.db")
		cfg.ModelsPath = v
		cfg.CachePath = filepath.Join(v, "cache")
	}
	if v := os.Getenv("GLITCH_LEAGUE_ID"); v != "" {
		id, err := util.GetAsInteger(v)
		if err != nil {
			return nil, fmt.Errorf("bad GLITCH_LEAGUE_ID %q: %w", v, err)
		}
		cfg.LeagueID = id
	}
	if v := os.Getenv("GLITCH_ROLLING_WINDOW"); v != "" {
		n, err := util.GetAsInteger(v)
		if err != nil {
			return nil, fmt.Errorf("bad GLITCH_ROLLING_WINDOW %q: %w", v, err)
		}
		cfg.RollingWindow = n
	}
	if v := os.Getenv("GLITCH_OVER_THRESHOLD"); v != "" {
		f, err := util.GetAsFloat(v)
		if err != nil {
			return nil, fmt.Errorf("bad GLITCH_OVER_THRESHOLD %q: %w", v, err)
		}
		cfg.OverGoalsThreshold = f
	}
	if os.Getenv("USE_MOCK_DATA") == "true" {
		cfg.UseMockFixtures = true
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	Config = cfg
	return cfg, nil
}

// ValidateConfig ensures configuration values are within reasonable ranges
func ValidateConfig(cfg *GlitchConfig) error {
	if cfg.RollingWindow < 1 {
		return fmt.Errorf("RollingWindow must be at least 1, got: %d", cfg.RollingWindow)
	}
	if cfg.VenueFallbackThreshold < 0 || cfg.VenueFallbackThreshold > cfg.RollingWindow {
		return fmt.Errorf("VenueFallbackThreshold must be between 0 and RollingWindow, got: %d", cfg.VenueFallbackThreshold)
	}
	if cfg.TestSize <= 0.0 || cfg.TestSize >= 1.0 {
		return fmt.Errorf("TestSize must be between 0.0 and 1.0 exclusive, got: %f", cfg.TestSize)
	}
	if cfg.ForestTrees < 1 {
		return fmt.Errorf("ForestTrees must be at least 1, got: %d", cfg.ForestTrees)
	}
	if cfg.SquadSkipThreshold < 0 || cfg.SquadSkipThreshold > 100 {
		return fmt.Errorf("SquadSkipThreshold must be between 0 and 100, got: %d", cfg.SquadSkipThreshold)
	}
	if cfg.HomeAdvantageBoost < 1.0 || cfg.HomeAdvantageBoost > 1.5 {
		return fmt.Errorf("HomeAdvantageBoost should be between 1.0 and 1.5, got: %f", cfg.HomeAdvantageBoost)
	}
	if cfg.AwayDampening < 0.5 || cfg.AwayDampening > 1.0 {
		return fmt.Errorf("AwayDampening should be between 0.5 and 1.0, got: %f", cfg.AwayDampening)
	}
	return nil
}

// CurrentSeasonYear returns the configured season, or auto-detects it:
// a football season is labelled with the year it starts in (August).
func CurrentSeasonYear() int {
	if Config.CurrentSeason > 0 {
		return Config.CurrentSeason
	}
	now := time.Now()
	if now.Month() >= time.August {
		return now.Year()
	}
	return now.Year() - 1
}
