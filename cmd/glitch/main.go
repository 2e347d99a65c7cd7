package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/projectglitch/glitch/internal/logger"
	"github.com/projectglitch/glitch/pkg/glitch"
)

func usage() {
	fmt.Fprintf(os.Stderr, `glitch - football match prediction pipeline

Usage:
  glitch predict <home> <away> [--no-squad]   predict one fixture
  glitch fixtures [--predict]                 list (and predict) upcoming fixtures
  glitch train                                train models from the match history
  glitch teams                                list team names the history knows
  glitch ingest <season>                      download a season (e.g. 2425) into the master data

Flags:
  --config <path>   TOML config file
  --debug           verbose logging
`)
}

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Usage = usage
	flag.Parse()

	if *debug {
		logger.SetLevel(logger.DEBUG)
	} else {
		logger.SetLevel(logger.WARN)
	}

	if _, err := glitch.LoadConfig(*configPath); err != nil {
		logger.Fatal("Bad configuration", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "predict":
		err = runPredict(args[1:])
	case "fixtures":
		err = runFixtures(args[1:])
	case "train":
		err = runTrain()
	case "teams":
		err = runTeams()
	case "ingest":
		err = runIngest(args[1:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, glitch.ErrUnknownTeam) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, "Run 'glitch teams' to see exact team names.")
			os.Exit(1)
		}
		logger.Fatal("Command failed", err)
	}
}

func runPredict(args []string) error {
	checkSquad := true
	var teams []string
	for _, arg := range args {
		if arg == "--no-squad" {
			checkSquad = false
			continue
		}
		teams = append(teams, arg)
	}
	if len(teams) != 2 {
		return fmt.Errorf("predict needs exactly two team names, got %d", len(teams))
	}

	engine := glitch.NewEngine()
	p, err := engine.Predict(teams[0], teams[1], checkSquad)
	if err != nil {
		return err
	}
	fmt.Print(glitch.FormatPrediction(p))
	return nil
}

func runFixtures(args []string) error {
	predictAll := len(args) > 0 && args[0] == "--predict"

	fixtures, err := glitch.FetchFixtures(glitch.Config.LeagueID, glitch.Config.FixtureCount)
	if err != nil {
		return err
	}
	fmt.Print(glitch.FormatFixtures(fixtures))

	if !predictAll {
		return nil
	}

	engine := glitch.NewEngine()
	for _, f := range fixtures {
		p, err := engine.Predict(f.HomeTeam, f.AwayTeam, true)
		if err != nil {
			if errors.Is(err, glitch.ErrUnknownTeam) {
				logger.Warn("Skipping fixture with unknown team", f.HomeTeam, f.AwayTeam)
				continue
			}
			return err
		}
		fmt.Print(glitch.FormatPrediction(p))
	}
	return nil
}

func runTrain() error {
	h, err := glitch.LoadHistory()
	if err != nil {
		return err
	}
	report, err := glitch.TrainAll(h, glitch.Config.ModelsPath)
	if err != nil {
		return err
	}
	fmt.Printf("Trained on %d rows (%d train / %d holdout)\n", report.Rows, report.TrainRows, report.TestRows)
	for _, market := range []string{glitch.MarketWin, glitch.MarketGoals, glitch.MarketBTTS} {
		fmt.Printf("  %-6s accuracy %.1f%%\n", market, report.Accuracies[market]*100)
	}
	return nil
}

func runTeams() error {
	engine := glitch.NewEngine()
	teams, err := engine.KnownTeams()
	if err != nil {
		return err
	}
	fmt.Print(glitch.FormatTeams(teams))
	return nil
}

func runIngest(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("ingest needs a season code like 2425")
	}
	season := strings.TrimSpace(args[0])
	if err := glitch.DownloadSeason(glitch.Config.LeagueID, season); err != nil {
		return err
	}
	// Force a fresh ingest from CSV on next load
	if err := os.Remove(glitch.Config.DBPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("Could not remove stale database", err)
	}
	return nil
}
