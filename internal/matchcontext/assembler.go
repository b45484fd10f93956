// Package matchcontext assembles the consolidated fact bundle the reasoning
// stages ground themselves on: event details, the focal team's statistics
// snapshot, and the latest odds quote, all read from the canonical store.
package matchcontext

import (
	"context"
	"fmt"
	"log"

	"github.com/rahulvdev/betedge/internal/canonical"
)

// Reader is the slice of the store the assembler needs.
type Reader interface {
	GetEvent(ctx context.Context, eventID int64) (canonical.Event, bool, error)
	TeamStats(ctx context.Context, eventID, teamID int64) (canonical.TeamMatchStatistics, bool, error)
	LatestQuote(ctx context.Context, eventID int64) (canonical.MarketQuote, bool, error)
}

// Bundle is the consolidated context for one event. Each section is
// independently optional: an empty map means the fact wasn't available, and
// downstream stages are expected to work with whatever is present. Free-tier
// providers rarely supply stats or odds, so the degraded shape is the common
// case, not an edge case.
type Bundle struct {
	EventDetails   map[string]interface{} `json:"event_details"`
	FocalTeamStats map[string]interface{} `json:"focal_team_stats"`
	LatestQuote    map[string]interface{} `json:"latest_quote"`
}

// Assembler builds context bundles. It never fails: underlying query errors
// are logged and the affected section comes back empty.
type Assembler struct {
	store  Reader
	logger *log.Logger
}

// New creates an Assembler over the given store reader.
func New(store Reader) *Assembler {
	return &Assembler{
		store:  store,
		logger: log.New(log.Writer(), "[CONTEXT] ", log.LstdFlags),
	}
}

// Assemble builds the bundle with the event's home team as the focal team.
func (a *Assembler) Assemble(ctx context.Context, eventID int64) Bundle {
	return a.AssembleFor(ctx, eventID, 0)
}

// AssembleFor builds the bundle for an explicit focal team. A zero teamID
// means "the home team".
func (a *Assembler) AssembleFor(ctx context.Context, eventID, teamID int64) Bundle {
	b := Bundle{
		EventDetails:   map[string]interface{}{},
		FocalTeamStats: map[string]interface{}{},
		LatestQuote:    map[string]interface{}{},
	}

	ev, ok, err := a.store.GetEvent(ctx, eventID)
	if err != nil {
		a.logger.Printf("event lookup for %d failed: %v", eventID, err)
	} else if ok {
		b.EventDetails = map[string]interface{}{
			"event_id":         ev.EventID,
			"sport_kind":       string(ev.SportKind),
			"competition_name": ev.CompetitionName,
			"season":           ev.Season,
			"scheduled_at":     ev.ScheduledAt,
			"home_team":        ev.HomeTeamName,
			"away_team":        ev.AwayTeamName,
			"status":           string(ev.Status),
			"venue":            ev.VenueName,
			"score":            scoreLine(ev),
		}
		if teamID == 0 {
			teamID = ev.HomeTeamID
		}
	}

	if teamID != 0 {
		st, ok, err := a.store.TeamStats(ctx, eventID, teamID)
		if err != nil {
			a.logger.Printf("stats lookup for %d/%d failed: %v", eventID, teamID, err)
		} else if ok {
			b.FocalTeamStats = map[string]interface{}{
				"team_name":         st.TeamName,
				"shots_on_goal":     st.ShotsOnGoal,
				"total_shots":       st.TotalShots,
				"ball_possession":   st.BallPossession,
				"corner_kicks":      st.CornerKicks,
				"fouls":             st.Fouls,
				"yellow_cards":      st.YellowCards,
				"red_cards":         st.RedCards,
				"total_passes":      st.TotalPasses,
				"passes_accurate":   st.PassesAccurate,
				"passes_percentage": st.PassesPercentage,
			}
		}
	}

	q, ok, err := a.store.LatestQuote(ctx, eventID)
	if err != nil {
		a.logger.Printf("quote lookup for %d failed: %v", eventID, err)
	} else if ok {
		b.LatestQuote = map[string]interface{}{
			"bookmaker":   q.Bookmaker,
			"market_type": q.MarketType,
			"home_price":  q.HomePrice,
			"draw_price":  q.DrawPrice,
			"away_price":  q.AwayPrice,
			"observed_at": q.ObservedAt,
		}
	}

	return b
}

func scoreLine(ev canonical.Event) string {
	if ev.HomeScore == nil || ev.AwayScore == nil {
		return "not played"
	}
	return fmt.Sprintf("%d-%d", *ev.HomeScore, *ev.AwayScore)
}
