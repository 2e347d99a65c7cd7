package glitch

import (
	"fmt"
	"strings"
)

// FormatPrediction renders a prediction as the terminal report.
func FormatPrediction(p *Prediction) string {
	var b strings.Builder

	fmt.Fprintf(&b, "==================================================\n")
	fmt.Fprintf(&b, "  %s  v  %s\n", p.HomeTeam, p.AwayTeam)
	fmt.Fprintf(&b, "==================================================\n")

	if p.SquadNews != nil {
		b.WriteString(formatSquadNews(p.SquadNews))
	}

	if p.Skipped {
		fmt.Fprintf(&b, "\n  PREDICTION WITHHELD: %s\n", p.SkipReason)
		return b.String()
	}

	if p.HomeStats != nil && p.AwayStats != nil {
		fmt.Fprintf(&b, "\n  Form (last %d): %s %d pts, %s %d pts\n",
			Config.RollingWindow, p.HomeTeam, p.HomeStats.Form, p.AwayTeam, p.AwayStats.Form)
		fmt.Fprintf(&b, "  Goals: %s %.2f for / %.2f against, %s %.2f for / %.2f against\n",
			p.HomeTeam, p.HomeStats.AvgGoals, p.HomeStats.AvgConceded,
			p.AwayTeam, p.AwayStats.AvgGoals, p.AwayStats.AvgConceded)
	}

	for _, market := range MarketOrder {
		mp, ok := p.Markets[market]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n  [%s]\n", strings.ToUpper(market))
		for _, class := range MarketClasses[market] {
			fmt.Fprintf(&b, "    %-12s %5.1f%%\n", class, mp.Probabilities[class])
		}
		fmt.Fprintf(&b, "    -> %s (%.1f%%)\n", mp.BestBet, mp.Confidence)
	}

	if p.Safest != nil {
		fmt.Fprintf(&b, "\n  SAFEST GLITCH: %s - %s (%.1f%%)\n",
			strings.ToUpper(p.Safest.Market), p.Safest.Bet, p.Safest.Confidence)
	}

	if p.UsingML {
		fmt.Fprintf(&b, "\n  Model accuracies:")
		for _, market := range MarketOrder {
			fmt.Fprintf(&b, " %s=%.0f%%", market, p.Accuracies[market]*100)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("\n  NOTE: heuristic estimate, no trained models loaded\n")
	}

	return b.String()
}

func formatSquadNews(news *SquadNews) string {
	var b strings.Builder
	b.WriteString("\n  Squad check:\n")
	for _, c := range []*TeamCondition{news.Home, news.Away} {
		if c == nil {
			continue
		}
		fmt.Fprintf(&b, "    %-20s %3d/100 %-8s", c.Team, c.Score, c.Status)
		if c.InjuryCount > 0 {
			fmt.Fprintf(&b, " out: %s", strings.Join(c.Injuries, ", "))
			if c.InjuryCount > len(c.Injuries) {
				fmt.Fprintf(&b, " (+%d more)", c.InjuryCount-len(c.Injuries))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatFixtures renders the upcoming fixture list.
func FormatFixtures(fixtures []*Fixture) string {
	var b strings.Builder
	b.WriteString("Upcoming fixtures:\n")
	for _, f := range fixtures {
		fmt.Fprintf(&b, "  %s  %s v %s\n", f.KickOff.Format("Mon 02 Jan 15:04"), f.HomeTeam, f.AwayTeam)
	}
	return b.String()
}

// FormatTeams renders the known team directory in columns.
func FormatTeams(teams []string) string {
	var b strings.Builder
	b.WriteString("Known teams:\n")
	for i, team := range teams {
		fmt.Fprintf(&b, "  %-24s", team)
		if i%3 == 2 {
			b.WriteString("\n")
		}
	}
	if len(teams)%3 != 0 {
		b.WriteString("\n")
	}
	return b.String()
}
