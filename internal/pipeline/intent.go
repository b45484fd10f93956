package pipeline

import (
	"fmt"
	"strings"

	"github.com/rahulvdev/betedge/internal/canonical"
)

// StructuredIntent is the validated interpretation of a free-text request.
// Transient, never persisted.
type StructuredIntent struct {
	SportKind       canonical.SportKind `json:"sport_kind"`
	TeamName        string              `json:"team_name,omitempty"`
	CompetitionCode string              `json:"competition_code,omitempty"`
	Season          int                 `json:"season"`
}

// ValidationError marks a structured intent that fails its schema. It is
// surfaced to the caller as a query_error, never silently defaulted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid intent: %s %s", e.Field, e.Reason)
}

// Validate checks the closed sport enum, the mandatory 4-digit season and
// the competition code shape. It normalizes sport aliases and uppercases the
// competition code in place.
func (in *StructuredIntent) Validate() error {
	kind, err := canonical.ParseSportKind(string(in.SportKind))
	if err != nil {
		return &ValidationError{Field: "sport_kind", Reason: fmt.Sprintf("%q is not a known sport", in.SportKind)}
	}
	in.SportKind = kind

	if in.Season < 1000 || in.Season > 9999 {
		return &ValidationError{Field: "season", Reason: fmt.Sprintf("%d is not a 4-digit year", in.Season)}
	}

	if in.CompetitionCode != "" {
		code := strings.ToUpper(strings.TrimSpace(in.CompetitionCode))
		if len(code) < 2 || len(code) > 4 || !isAlphanumeric(code) {
			return &ValidationError{Field: "competition_code", Reason: fmt.Sprintf("%q is not a competition code", in.CompetitionCode)}
		}
		in.CompetitionCode = code
	}

	in.TeamName = strings.TrimSpace(in.TeamName)
	return nil
}

// isCompetitionCode reports whether s already has competition-code shape
// (2-4 alphanumeric characters, case-insensitive).
func isCompetitionCode(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	return len(s) >= 2 && len(s) <= 4 && isAlphanumeric(s)
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
