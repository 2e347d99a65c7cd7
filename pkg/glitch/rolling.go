package glitch

import (
	"fmt"
)

// Venue distinguishes the two sides of a fixture. Rolling statistics are
// venue-aware: a team's home matches drive its home-side features.
type Venue string

const (
	VenueHome Venue = "home"
	VenueAway Venue = "away"
)

// TeamStats is the trailing-window snapshot of one team at one venue.
// Form is summed league points over the window; the averages and the
// BTTS rate come from the venue-specific window.
type TeamStats struct {
	Team        string  `json:"team"`
	Venue       Venue   `json:"venue"`
	Form        int     `json:"form"`
	AvgGoals    float64 `json:"avg_goals"`
	AvgConceded float64 `json:"avg_conceded"`
	BTTSRate    float64 `json:"btts_rate"`
	FormSample  int     `json:"form_sample"`
	VenueSample int     `json:"venue_sample"`
}

func (s *TeamStats) String() string {
	return fmt.Sprintf("%s (%s): form=%d goals=%.2f conceded=%.2f btts=%.1f%%",
		s.Team, s.Venue, s.Form, s.AvgGoals, s.AvgConceded, s.BTTSRate)
}

// TeamStats computes the trailing statistics for a team at a venue over the
// last n matches. Form prefers the venue window but falls back to the
// combined window when the team has fewer venue games than the configured
// threshold; the scoring averages always come from the venue window, with
// a home-advantage prior when that window is empty. A team with no
// history at all gets the neutral prior rather than an error; rejecting
// unknown teams is the predictor's job.
func (h *History) TeamStats(team string, venue Venue, n int) *TeamStats {
	s := &TeamStats{Team: team, Venue: venue}

	var venueMatches []*Match
	if venue == VenueHome {
		venueMatches = h.HomeMatchesFor(team)
	} else {
		venueMatches = h.AwayMatchesFor(team)
	}
	venueWindow := lastN(venueMatches, n)

	// Form: venue window, else combined window, else neutral prior.
	formWindow := venueWindow
	if len(formWindow) < Config.VenueFallbackThreshold {
		formWindow = lastN(h.MatchesFor(team), n)
	}
	if len(formWindow) == 0 {
		s.Form = Config.DefaultForm
		s.AvgGoals = Config.DefaultAvgGoals
		s.AvgConceded = Config.DefaultAvgConceded
		s.BTTSRate = Config.DefaultBTTSRate
		return s
	}
	for _, m := range formWindow {
		s.Form += m.FormPoints(team)
	}
	s.FormSample = len(formWindow)

	// Scoring rates: strictly the venue window.
	if len(venueWindow) == 0 {
		if venue == VenueHome {
			s.AvgGoals = Config.DefaultAvgGoals
			s.AvgConceded = Config.DefaultAvgConceded
		} else {
			s.AvgGoals = Config.AwayDefaultAvgGoals
			s.AvgConceded = Config.AwayDefaultAvgConceded
		}
		s.BTTSRate = Config.DefaultBTTSRate
		return s
	}

	var goals, conceded, btts int
	for _, m := range venueWindow {
		goals += m.GoalsFor(team)
		conceded += m.GoalsAgainst(team)
		if m.BTTS() {
			btts++
		}
	}
	size := float64(len(venueWindow))
	s.AvgGoals = float64(goals) / size
	s.AvgConceded = float64(conceded) / size
	s.BTTSRate = float64(btts) / size * 100.0
	s.VenueSample = len(venueWindow)
	return s
}

// lastN returns the trailing n elements of a chronologically ordered slice.
func lastN(matches []*Match, n int) []*Match {
	if len(matches) <= n {
		return matches
	}
	return matches[len(matches)-n:]
}
