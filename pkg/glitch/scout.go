package glitch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/projectglitch/glitch/internal/logger"
	"github.com/projectglitch/glitch/pkg/transport"
	"github.com/projectglitch/glitch/pkg/util"
)

// Squad status bands
const (
	SquadStrong   = "STRONG"
	SquadModerate = "MODERATE"
	SquadWeak     = "WEAK"
)

// TeamCondition is the availability assessment of one squad.
type TeamCondition struct {
	Team        string   `json:"team"`
	Score       int      `json:"score"`
	Status      string   `json:"status"`
	Injuries    []string `json:"injuries"`
	InjuryCount int      `json:"injury_count"`
}

// SquadNews is the pre-match availability check for both squads. When
// either side falls below the skip threshold the prediction is withheld.
type SquadNews struct {
	Home       *TeamCondition `json:"home"`
	Away       *TeamCondition `json:"away"`
	ShouldSkip bool           `json:"should_skip"`
	SkipReason string         `json:"skip_reason,omitempty"`
}

// SquadChecker produces squad news for a fixture. The engine takes the
// interface so tests can substitute a canned checker.
type SquadChecker interface {
	TeamNews(homeTeam, awayTeam string) (*SquadNews, error)
}

// Scout checks squads against the api-sports injury feed.
type Scout struct{}

// NewScout returns the live api-sports backed checker.
func NewScout() *Scout {
	return &Scout{}
}

// apiTeamIDs maps history team names to api-sports team identifiers for
// the Premier League. Names not listed fall back to a search by prefix.
var apiTeamIDs = map[string]int{
	"Arsenal":          42,
	"Aston Villa":      66,
	"Bournemouth":      35,
	"Brentford":        55,
	"Brighton":         51,
	"Burnley":          44,
	"Chelsea":          49,
	"Crystal Palace":   52,
	"Everton":          45,
	"Fulham":           36,
	"Leeds":            63,
	"Leicester":        46,
	"Liverpool":        40,
	"Man City":         50,
	"Man United":       33,
	"Newcastle":        34,
	"Nott'm Forest":    65,
	"Sheffield United": 62,
	"Southampton":      41,
	"Sunderland":       746,
	"Tottenham":        47,
	"West Ham":         48,
	"Wolves":           39,
}

// keyPlayers lists players whose absence costs the heavier penalty.
// A rough but serviceable approximation of squad importance.
var keyPlayers = map[string][]string{
	"Arsenal":     {"Saka", "Odegaard", "Rice", "Saliba"},
	"Chelsea":     {"Palmer", "Caicedo", "Jackson"},
	"Liverpool":   {"Salah", "Van Dijk", "Alisson", "Mac Allister"},
	"Man City":    {"Haaland", "Rodri", "Foden"},
	"Man United":  {"Fernandes", "Mainoo"},
	"Newcastle":   {"Isak", "Gordon", "Guimaraes"},
	"Tottenham":   {"Son", "Maddison", "Romero"},
	"Aston Villa": {"Watkins", "Martinez"},
}

// TeamID resolves a history team name to an api-sports identifier.
func TeamID(team string) (int, error) {
	if id, ok := apiTeamIDs[team]; ok {
		return id, nil
	}
	// Tolerate minor naming drift between data sources
	for name, id := range apiTeamIDs {
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(team)) ||
			strings.HasPrefix(strings.ToLower(team), strings.ToLower(name)) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("no api-sports id for team %s", team)
}

// injuriesResponse is the subset of the api-sports injuries payload we read.
type injuriesResponse struct {
	Response []struct {
		Player struct {
			Name   string `json:"name"`
			Reason string `json:"reason"`
		} `json:"player"`
	} `json:"response"`
}

// fetchInjuriesJSON is swappable so tests can serve canned payloads.
var fetchInjuriesJSON = transport.GetWithStatus

// fetchInjuries returns the currently injured player names for a team.
func fetchInjuries(teamID int) ([]string, error) {
	if Config.RapidAPIKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrUpstreamUnavailable)
	}

	team, err := util.GetAsString(teamID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	season, err := util.GetAsString(CurrentSeasonYear())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	url := "https://" + Config.APISportsHost + "/injuries?team=" + team + "&season=" + season
	headers := map[string]string{
		"x-rapidapi-key":  Config.RapidAPIKey,
		"x-rapidapi-host": Config.APISportsHost,
	}

	body, status, err := fetchInjuriesJSON(url, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if status == 429 || status == 403 {
		return nil, fmt.Errorf("%w: injuries request refused with status %d", ErrUpstreamUnavailable, status)
	}
	if status != 200 {
		return nil, fmt.Errorf("%w: injuries request returned status %d", ErrUpstreamUnavailable, status)
	}

	var payload injuriesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: bad injuries payload: %v", ErrUpstreamUnavailable, err)
	}

	var names []string
	for _, entry := range payload.Response {
		names = append(names, entry.Player.Name)
	}
	return names, nil
}

// SquadStrength scores a squad from its injury list: 100 minus heavy
// penalties for key players and light ones for everyone else, floored at 0.
func SquadStrength(team string, injuries []string) *TeamCondition {
	score := 100
	for _, injured := range injuries {
		if isKeyPlayer(team, injured) {
			score -= Config.KeyPlayerPenalty
		} else {
			score -= Config.SquadPlayerPenalty
		}
	}
	if score < 0 {
		score = 0
	}

	reasons := injuries
	if len(reasons) > Config.MaxInjuryReasons {
		reasons = reasons[:Config.MaxInjuryReasons]
	}

	return &TeamCondition{
		Team:        team,
		Score:       score,
		Status:      squadStatus(score),
		Injuries:    reasons,
		InjuryCount: len(injuries),
	}
}

func squadStatus(score int) string {
	switch {
	case score >= Config.SquadStrongThreshold:
		return SquadStrong
	case score >= Config.SquadSkipThreshold:
		return SquadModerate
	default:
		return SquadWeak
	}
}

func isKeyPlayer(team, player string) bool {
	for _, name := range keyPlayers[team] {
		if strings.Contains(strings.ToLower(player), strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// TeamNews assesses both squads and decides whether the fixture is too
// disrupted to predict.
func (s *Scout) TeamNews(homeTeam, awayTeam string) (*SquadNews, error) {
	home, err := s.condition(homeTeam)
	if err != nil {
		return nil, err
	}
	away, err := s.condition(awayTeam)
	if err != nil {
		return nil, err
	}
	return AssessSquads(home, away), nil
}

func (s *Scout) condition(team string) (*TeamCondition, error) {
	id, err := TeamID(team)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	injuries, err := fetchInjuries(id)
	if err != nil {
		return nil, err
	}
	logger.Debug("Fetched injuries", team, injuries)
	return SquadStrength(team, injuries), nil
}

// AssessSquads applies the skip gate to two scored squads.
func AssessSquads(home, away *TeamCondition) *SquadNews {
	news := &SquadNews{Home: home, Away: away}

	weakest := home
	if away.Score < home.Score {
		weakest = away
	}
	if weakest.Score < Config.SquadSkipThreshold {
		news.ShouldSkip = true
		news.SkipReason = fmt.Sprintf("%s squad too disrupted (score %d, %d out injured)",
			weakest.Team, weakest.Score, weakest.InjuryCount)
	}
	return news
}
