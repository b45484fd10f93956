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

// FootballData fetches soccer fixtures from football-data.org (v4).
type FootballData struct {
	cfg    config.FootballDataConfig
	http   *httpClient
	logger *log.Logger
}

// NewFootballData creates the soccer adapter.
func NewFootballData(cfg config.FootballDataConfig) *FootballData {
	return &FootballData{
		cfg:    cfg,
		http:   newHTTPClient(cfg.Timeout, 2, 300*time.Millisecond),
		logger: log.New(log.Writer(), "[FOOTBALL-DATA] ", log.LstdFlags),
	}
}

func (f *FootballData) Sport() canonical.SportKind { return canonical.SportSoccer }

// fdMatchesResponse mirrors GET /competitions/{code}/matches.
type fdMatchesResponse struct {
	Competition struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"competition"`
	Matches []fdMatch `json:"matches"`
}

type fdMatch struct {
	ID       int64  `json:"id"`
	UTCDate  string `json:"utcDate"`
	Status   string `json:"status"`
	Venue    string `json:"venue"`
	HomeTeam struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"homeTeam"`
	AwayTeam struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"awayTeam"`
	Score struct {
		FullTime struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"fullTime"`
	} `json:"score"`
}

// Fetch lists one competition season. The competition code comes from the
// orchestrator boundary, already resolved; an empty code falls back to the
// configured default so the adapter never builds a broken URL.
func (f *FootballData) Fetch(ctx context.Context, season int, flt Filters) ([]canonical.Event, error) {
	code := flt.CompetitionCode
	if code == "" {
		code = f.cfg.DefaultCompetition
		if code == "" {
			code = "PL"
		}
	}
	url := fmt.Sprintf("%s/competitions/%s/matches?season=%d", f.cfg.BaseURL, code, season)

	body, err := f.http.getJSON(ctx, url, map[string]string{"X-Auth-Token": f.cfg.APIKey})
	if err != nil {
		f.logger.Printf("fetch %s season %d failed: %v", code, season, err)
		return nil, fmt.Errorf("fetch %s season %d: %w", code, season, err)
	}

	var resp fdMatchesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		f.logger.Printf("malformed payload for %s season %d: %v", code, season, err)
		return nil, fmt.Errorf("fetch %s season %d: malformed payload: %w", code, season, err)
	}

	now := time.Now().UTC()
	events := make([]canonical.Event, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		kicked, err := time.Parse(time.RFC3339, m.UTCDate)
		if err != nil {
			f.logger.Printf("skipping match %d: bad utcDate %q", m.ID, m.UTCDate)
			continue
		}
		venue := m.Venue
		if venue == "" {
			venue = "Unknown"
		}
		ev := canonical.Event{
			EventID:         m.ID,
			SportKind:       canonical.SportSoccer,
			CompetitionID:   resp.Competition.ID,
			CompetitionName: resp.Competition.Name,
			Season:          season,
			ScheduledAt:     kicked.UTC(),
			HomeTeamID:      m.HomeTeam.ID,
			HomeTeamName:    m.HomeTeam.Name,
			AwayTeamID:      m.AwayTeam.ID,
			AwayTeamName:    m.AwayTeam.Name,
			HomeScore:       m.Score.FullTime.Home,
			AwayScore:       m.Score.FullTime.Away,
			Status:          canonical.NormalizeFootballDataStatus(m.Status),
			VenueName:       venue,
			LastIngestedAt:  now,
		}
		if !ev.Valid() {
			f.logger.Printf("skipping match %d: incomplete record", m.ID)
			continue
		}
		events = append(events, ev)
	}
	f.logger.Printf("fetched %d matches for %s season %d", len(events), code, season)
	return events, nil
}
