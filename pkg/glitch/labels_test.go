package glitch

import (
	"testing"
)

func TestTargetsFor(t *testing.T) {
	testConfig(t)
	cases := []struct {
		fthg, ftag int
		result     int
		overGoals  int
		btts       int
	}{
		{2, 0, 0, 0, 0}, // home win, 2 goals, only one side scored
		{1, 1, 1, 0, 1}, // draw, both scored
		{0, 3, 2, 1, 0}, // away win, over 2.5
		{2, 1, 0, 1, 1}, // exactly 3 goals is over
		{2, 2, 1, 1, 1},
		{0, 0, 1, 0, 0},
	}

	for _, tc := range cases {
		m := NewMatch(day(0), "Arsenal", "Chelsea", tc.fthg, tc.ftag)
		targets, err := TargetsFor(m)
		if err != nil {
			t.Fatalf("%d-%d: unexpected error: %v", tc.fthg, tc.ftag, err)
		}
		if targets.Result != tc.result {
			t.Errorf("%d-%d: expected result %d, got %d", tc.fthg, tc.ftag, tc.result, targets.Result)
		}
		if targets.OverGoals != tc.overGoals {
			t.Errorf("%d-%d: expected over %d, got %d", tc.fthg, tc.ftag, tc.overGoals, targets.OverGoals)
		}
		if targets.BTTS != tc.btts {
			t.Errorf("%d-%d: expected btts %d, got %d", tc.fthg, tc.ftag, tc.btts, targets.BTTS)
		}
	}
}

func TestTargetsForUnplayed(t *testing.T) {
	testConfig(t)
	m := &Match{Date: day(0), HomeTeam: "Arsenal", AwayTeam: "Chelsea", HomeGoals: -1, AwayGoals: -1}
	if _, err := TargetsFor(m); err == nil {
		t.Fatal("expected an error for an unplayed match")
	}
}

func TestExactThresholdIsUnder(t *testing.T) {
	testConfig(t)
	m := NewMatch(day(0), "Arsenal", "Chelsea", 1, 1)
	targets, err := TargetsFor(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets.OverGoals != 0 {
		t.Error("2 total goals must label as under 2.5")
	}
}
