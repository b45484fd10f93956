package canonical

import (
	"fmt"
	"strings"
	"time"
)

// SportKind identifies which upstream family an event came from. The set is
// closed; adapters and the interpreter reject anything outside it.
type SportKind string

const (
	SportSoccer            SportKind = "soccer"
	SportCollegeFootball   SportKind = "college_football"
	SportCollegeBasketball SportKind = "college_basketball"
)

// ParseSportKind validates a sport string. "football" and "basketball" are
// accepted as inbound aliases (the interpreter's schema uses them for soccer
// and college basketball respectively).
func ParseSportKind(s string) (SportKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "soccer", "football":
		return SportSoccer, nil
	case "college_football":
		return SportCollegeFootball, nil
	case "college_basketball", "basketball":
		return SportCollegeBasketball, nil
	}
	return "", fmt.Errorf("unknown sport kind: %q", s)
}

// EventStatus is the four-state lifecycle every provider status string is
// collapsed into at ingestion.
type EventStatus string

const (
	StatusScheduled  EventStatus = "scheduled"
	StatusInProgress EventStatus = "in_progress"
	StatusFinished   EventStatus = "finished"
	StatusCancelled  EventStatus = "cancelled"
)

// Event is the canonical, provider-independent representation of one fixture.
type Event struct {
	EventID         int64       `json:"event_id"`
	SportKind       SportKind   `json:"sport_kind"`
	CompetitionID   int64       `json:"competition_id"`
	CompetitionName string      `json:"competition_name"`
	Season          int         `json:"season"`
	ScheduledAt     time.Time   `json:"scheduled_at"` // UTC, normalized at ingestion
	HomeTeamID      int64       `json:"home_team_id"`
	HomeTeamName    string      `json:"home_team_name"`
	AwayTeamID      int64       `json:"away_team_id"`
	AwayTeamName    string      `json:"away_team_name"`
	HomeScore       *int        `json:"home_score"` // nil until played; 0 is a real score
	AwayScore       *int        `json:"away_score"`
	Status          EventStatus `json:"status"`
	VenueName       string      `json:"venue_name"` // never empty, adapters supply a sentinel
	LastIngestedAt  time.Time   `json:"last_ingested_at"`
}

// Valid reports whether an event carries the minimum canonical shape.
// Adapters drop records that fail this instead of yielding them.
func (e Event) Valid() bool {
	if e.EventID == 0 || e.SportKind == "" {
		return false
	}
	if e.HomeTeamName == "" || e.AwayTeamName == "" {
		return false
	}
	return !e.ScheduledAt.IsZero()
}

// InvolvesTeam reports whether name matches either side, case-insensitive
// substring. Deliberately permissive so "liverpool" matches "Liverpool FC".
func (e Event) InvolvesTeam(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.HomeTeamName), n) ||
		strings.Contains(strings.ToLower(e.AwayTeamName), n)
}

// TeamMatchStatistics is one team's per-event performance snapshot. Only
// populated where a provider supplies it; absence is a valid state.
type TeamMatchStatistics struct {
	EventID          int64     `json:"event_id"`
	TeamID           int64     `json:"team_id"`
	TeamName         string    `json:"team_name"`
	ShotsOnGoal      int       `json:"shots_on_goal"`
	ShotsOffGoal     int       `json:"shots_off_goal"`
	TotalShots       int       `json:"total_shots"`
	BlockedShots     int       `json:"blocked_shots"`
	ShotsInsideBox   int       `json:"shots_inside_box"`
	ShotsOutsideBox  int       `json:"shots_outside_box"`
	Fouls            int       `json:"fouls"`
	CornerKicks      int       `json:"corner_kicks"`
	Offsides         int       `json:"offsides"`
	BallPossession   int       `json:"ball_possession"` // percent
	YellowCards      int       `json:"yellow_cards"`
	RedCards         int       `json:"red_cards"`
	GoalkeeperSaves  int       `json:"goalkeeper_saves"`
	TotalPasses      int       `json:"total_passes"`
	PassesAccurate   int       `json:"passes_accurate"`
	PassesPercentage int       `json:"passes_percentage"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MarketQuote is one bookmaker's pre-match odds observation. Quotes are an
// append-only time series; "latest" means greatest ObservedAt per event.
type MarketQuote struct {
	EventID    int64     `json:"event_id"`
	Bookmaker  string    `json:"bookmaker"`
	MarketType string    `json:"market_type"`
	HomePrice  float64   `json:"home_price"`
	DrawPrice  float64   `json:"draw_price"`
	AwayPrice  float64   `json:"away_price"`
	ObservedAt time.Time `json:"observed_at"`
}

// UserProfile is the username-keyed preference record.
type UserProfile struct {
	Username         string    `json:"username"`
	RiskTolerance    string    `json:"risk_tolerance"`
	FocusTeams       []string  `json:"focus_teams"`
	PreferredLeagues []string  `json:"preferred_leagues"`
	UpdatedAt        time.Time `json:"updated_at"`
}
