package glitch

import (
	"fmt"
)

// Canonical feature names, in training order. The persisted schema in
// features.json must be a subset of these or prediction refuses to run.
var FeatureNames = []string{
	"HomeTeam_Form",
	"AwayTeam_Form",
	"Home_Avg_Goals",
	"Away_Avg_Goals",
	"Home_Avg_Conceded",
	"Away_Avg_Conceded",
	"Home_BTTS_Rate",
	"Away_BTTS_Rate",
}

// FeatureVector pairs the two venue snapshots that describe one fixture
// from the model's point of view.
type FeatureVector struct {
	HomeForm        float64
	AwayForm        float64
	HomeAvgGoals    float64
	AwayAvgGoals    float64
	HomeAvgConceded float64
	AwayAvgConceded float64
	HomeBTTSRate    float64
	AwayBTTSRate    float64
}

// FeaturesFromStats assembles the fixture feature vector from the home
// team's home-venue snapshot and the away team's away-venue snapshot.
func FeaturesFromStats(home, away *TeamStats) *FeatureVector {
	return &FeatureVector{
		HomeForm:        float64(home.Form),
		AwayForm:        float64(away.Form),
		HomeAvgGoals:    home.AvgGoals,
		AwayAvgGoals:    away.AvgGoals,
		HomeAvgConceded: home.AvgConceded,
		AwayAvgConceded: away.AvgConceded,
		HomeBTTSRate:    home.BTTSRate,
		AwayBTTSRate:    away.BTTSRate,
	}
}

func (fv *FeatureVector) valueOf(name string) (float64, bool) {
	switch name {
	case "HomeTeam_Form":
		return fv.HomeForm, true
	case "AwayTeam_Form":
		return fv.AwayForm, true
	case "Home_Avg_Goals":
		return fv.HomeAvgGoals, true
	case "Away_Avg_Goals":
		return fv.AwayAvgGoals, true
	case "Home_Avg_Conceded":
		return fv.HomeAvgConceded, true
	case "Away_Avg_Conceded":
		return fv.AwayAvgConceded, true
	case "Home_BTTS_Rate":
		return fv.HomeBTTSRate, true
	case "Away_BTTS_Rate":
		return fv.AwayBTTSRate, true
	default:
		return 0, false
	}
}

// Vector lays the features out in the order the given schema demands.
// An unrecognized schema name means the artifacts were trained by a build
// this binary does not understand, which is fatal for prediction.
func (fv *FeatureVector) Vector(schema []string) ([]float64, error) {
	out := make([]float64, len(schema))
	for i, name := range schema {
		v, ok := fv.valueOf(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown feature %q", ErrSchemaMismatch, name)
		}
		out[i] = v
	}
	return out, nil
}
