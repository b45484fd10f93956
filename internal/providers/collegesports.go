package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/rahulvdev/betedge/config"
	"github.com/rahulvdev/betedge/internal/canonical"
)

// CollegeSports fetches games from the collegefootballdata.com /
// collegebasketballdata.com family of APIs. The two share a wire format, so
// one adapter serves both sports with different configuration.
type CollegeSports struct {
	cfg         config.CollegeSportsConfig
	sport       canonical.SportKind
	competition string
	http        *httpClient
	logger      *log.Logger
}

// NewCollegeSports creates a college adapter for the given sport.
func NewCollegeSports(cfg config.CollegeSportsConfig, sport canonical.SportKind, competition string) *CollegeSports {
	return &CollegeSports{
		cfg:         cfg,
		sport:       sport,
		competition: competition,
		http:        newHTTPClient(cfg.Timeout, 2, 300*time.Millisecond),
		logger:      log.New(log.Writer(), "[COLLEGE-DATA] ", log.LstdFlags),
	}
}

func (c *CollegeSports) Sport() canonical.SportKind { return c.sport }

type collegeGame struct {
	ID         int64  `json:"id"`
	Season     int    `json:"season"`
	StartDate  string `json:"startDate"`
	Completed  bool   `json:"completed"`
	Venue      string `json:"venue"`
	HomeID     int64  `json:"homeId"`
	HomeTeam   string `json:"homeTeam"`
	AwayID     int64  `json:"awayId"`
	AwayTeam   string `json:"awayTeam"`
	HomePoints *int   `json:"homePoints"`
	AwayPoints *int   `json:"awayPoints"`
}

// Fetch lists one season's games, optionally narrowed to a week. Games whose
// reported season doesn't match the requested year are bad historical rows
// in the upstream dataset and are dropped.
func (c *CollegeSports) Fetch(ctx context.Context, season int, flt Filters) ([]canonical.Event, error) {
	url := fmt.Sprintf("%s/games?year=%d", c.cfg.BaseURL, season)
	if flt.Week > 0 {
		url = fmt.Sprintf("%s&week=%d", url, flt.Week)
	}

	body, err := c.http.getJSON(ctx, url, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	})
	if err != nil {
		c.logger.Printf("fetch %s year %d failed: %v", c.sport, season, err)
		return nil, fmt.Errorf("fetch %s year %d: %w", c.sport, season, err)
	}

	var games []collegeGame
	if err := json.Unmarshal(body, &games); err != nil {
		c.logger.Printf("malformed payload for %s year %d: %v", c.sport, season, err)
		return nil, fmt.Errorf("fetch %s year %d: malformed payload: %w", c.sport, season, err)
	}

	now := time.Now().UTC()
	events := make([]canonical.Event, 0, len(games))
	for _, g := range games {
		if g.Season != season {
			continue
		}
		started, err := time.Parse(time.RFC3339, g.StartDate)
		if err != nil {
			c.logger.Printf("skipping game %d: bad startDate %q", g.ID, g.StartDate)
			continue
		}
		venue := g.Venue
		if venue == "" {
			venue = "TBD"
		}
		ev := canonical.Event{
			EventID:         g.ID,
			SportKind:       c.sport,
			CompetitionID:   0,
			CompetitionName: c.competition,
			Season:          g.Season,
			ScheduledAt:     started.UTC(),
			HomeTeamID:      g.HomeID,
			HomeTeamName:    g.HomeTeam,
			AwayTeamID:      g.AwayID,
			AwayTeamName:    g.AwayTeam,
			HomeScore:       g.HomePoints,
			AwayScore:       g.AwayPoints,
			Status:          canonical.NormalizeCollegeStatus(g.Completed),
			VenueName:       venue,
			LastIngestedAt:  now,
		}
		if !ev.Valid() {
			c.logger.Printf("skipping game %d: incomplete record", g.ID)
			continue
		}
		events = append(events, ev)
	}
	c.logger.Printf("fetched %d games for %s year %d", len(events), c.sport, season)
	return events, nil
}
