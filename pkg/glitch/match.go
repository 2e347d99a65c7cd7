package glitch

import (
	"fmt"
	"time"
)

// Full-time result codes
const (
	ResultHome = "H"
	ResultDraw = "D"
	ResultAway = "A"
)

// Match is one historical (or upcoming) fixture between two teams.
// Seq is the ingestion order of the row and doubles as a stable tiebreak
// when several matches share a kick-off date.
type Match struct {
	Seq       int       `json:"seq" column:"seq" dbtype:"INTEGER NOT NULL" primary:"true"`
	Date      time.Time `json:"date" column:"match_date" dbtype:"DATETIME" index:"true"`
	HomeTeam  string    `json:"homeTeam" column:"home_team" dbtype:"TEXT NOT NULL" index:"true"`
	AwayTeam  string    `json:"awayTeam" column:"away_team" dbtype:"TEXT NOT NULL" index:"true"`
	HomeGoals int       `json:"fthg" column:"fthg" dbtype:"INTEGER DEFAULT -1"`
	AwayGoals int       `json:"ftag" column:"ftag" dbtype:"INTEGER DEFAULT -1"`
	Result    string    `json:"ftr" column:"ftr" dbtype:"TEXT"`
	CreatedAt time.Time `json:"created" column:"created" dbtype:"DATETIME"`
	UpdatedAt time.Time `json:"updated" column:"updated" dbtype:"DATETIME"`
}

// NewMatch creates a played match with a derived full-time result.
func NewMatch(date time.Time, home, away string, fthg, ftag int) *Match {
	m := &Match{
		Date:      date,
		HomeTeam:  home,
		AwayTeam:  away,
		HomeGoals: fthg,
		AwayGoals: ftag,
	}
	m.Result = m.deriveResult()
	return m
}

func (m *Match) deriveResult() string {
	if !m.Played() {
		return ""
	}
	switch {
	case m.HomeGoals > m.AwayGoals:
		return ResultHome
	case m.HomeGoals < m.AwayGoals:
		return ResultAway
	default:
		return ResultDraw
	}
}

// Played reports whether the match has a recorded score.
func (m *Match) Played() bool {
	return m.HomeGoals >= 0 && m.AwayGoals >= 0
}

// TotalGoals returns the combined score.
func (m *Match) TotalGoals() int {
	return m.HomeGoals + m.AwayGoals
}

// BTTS reports whether both teams scored.
func (m *Match) BTTS() bool {
	return m.HomeGoals > 0 && m.AwayGoals > 0
}

// Involves reports whether the given team played in this match, home or away.
func (m *Match) Involves(team string) bool {
	return m.HomeTeam == team || m.AwayTeam == team
}

// FormPoints returns the league points the given team took from this match
// (3 for a win, 1 for a draw, 0 for a loss) from that team's perspective.
func (m *Match) FormPoints(team string) int {
	switch {
	case m.Result == ResultDraw:
		return 1
	case m.Result == ResultHome && m.HomeTeam == team:
		return 3
	case m.Result == ResultAway && m.AwayTeam == team:
		return 3
	default:
		return 0
	}
}

// GoalsFor returns the goals the given team scored in this match.
func (m *Match) GoalsFor(team string) int {
	if m.HomeTeam == team {
		return m.HomeGoals
	}
	return m.AwayGoals
}

// GoalsAgainst returns the goals the given team conceded in this match.
func (m *Match) GoalsAgainst(team string) int {
	if m.HomeTeam == team {
		return m.AwayGoals
	}
	return m.HomeGoals
}

func (m *Match) String() string {
	if m.Played() {
		return fmt.Sprintf("%s %s %d-%d %s", m.Date.Format("2006-01-02"), m.HomeTeam, m.HomeGoals, m.AwayGoals, m.AwayTeam)
	}
	return fmt.Sprintf("%s %s v %s", m.Date.Format("2006-01-02"), m.HomeTeam, m.AwayTeam)
}

///////////////////////////////////////////////////////
// Persistable interface implementation
///////////////////////////////////////////////////////

func (m *Match) GetTableName() string {
	return "match"
}

func (m *Match) GetPrimaryKey() any {
	return m.Seq
}

func (m *Match) SetPrimaryKey(pk any) error {
	seq, ok := pk.(int)
	if !ok {
		return fmt.Errorf("match primary key must be an int, got %T", pk)
	}
	m.Seq = seq
	return nil
}

func (m *Match) BeforeSave() error {
	if m.HomeTeam == "" || m.AwayTeam == "" {
		return fmt.Errorf("match %d is missing a team name", m.Seq)
	}
	if m.Result == "" {
		m.Result = m.deriveResult()
	}
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return nil
}
