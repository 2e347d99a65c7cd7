package glitch

import (
	"errors"
	"fmt"
)

// Sentinel errors for the prediction pipeline. Callers classify failures
// with errors.Is rather than string matching.
var (
	// ErrUnknownTeam means a requested team never appears in the loaded history.
	ErrUnknownTeam = errors.New("unknown team")

	// ErrHistoryUnavailable means the match history could not be loaded at all.
	ErrHistoryUnavailable = errors.New("match history unavailable")

	// ErrModelsUnavailable means the trained model artifacts are missing or
	// unreadable. The engine falls back to the heuristic path in that case.
	ErrModelsUnavailable = errors.New("model artifacts unavailable")

	// ErrSchemaMismatch means the persisted feature schema names a feature
	// this build cannot produce. Predicting with a silently reordered or
	// incomplete vector would be worse than failing.
	ErrSchemaMismatch = errors.New("feature schema mismatch")

	// ErrUpstreamUnavailable means an external API refused or failed.
	// Squad checks and fixture fetches degrade gracefully on this.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)

// UnknownTeamError carries the offending name so the caller can show
// suggestions from the known team list.
type UnknownTeamError struct {
	Team string
}

func (e *UnknownTeamError) Error() string {
	return fmt.Sprintf("unknown team: %s (check 'teams' for exact names)", e.Team)
}

func (e *UnknownTeamError) Unwrap() error {
	return ErrUnknownTeam
}
