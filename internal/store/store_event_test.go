package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/rahulvdev/betedge/internal/canonical"
)

var upsertEventQuery = regexp.QuoteMeta(`
INSERT INTO events (
  event_id, sport_kind, competition_id, competition_name, season, scheduled_at,
  home_team_id, home_team_name, away_team_id, away_team_name,
  home_score, away_score, status, venue_name, last_ingested_at
) VALUES (
  $1, $2, $3, $4, $5, $6,
  $7, $8, $9, $10,
  $11, $12, $13, $14, NOW()
)
ON CONFLICT (event_id) DO UPDATE SET
  sport_kind = EXCLUDED.sport_kind,
  competition_id = EXCLUDED.competition_id,
  competition_name = EXCLUDED.competition_name,
  season = EXCLUDED.season,
  scheduled_at = EXCLUDED.scheduled_at,
  home_team_id = EXCLUDED.home_team_id,
  home_team_name = EXCLUDED.home_team_name,
  away_team_id = EXCLUDED.away_team_id,
  away_team_name = EXCLUDED.away_team_name,
  home_score = EXCLUDED.home_score,
  away_score = EXCLUDED.away_score,
  status = EXCLUDED.status,
  venue_name = EXCLUDED.venue_name,
  last_ingested_at = NOW();
`)

func sampleEvent() canonical.Event {
	return canonical.Event{
		EventID:         4001,
		SportKind:       canonical.SportSoccer,
		CompetitionID:   2021,
		CompetitionName: "Premier League",
		Season:          2025,
		ScheduledAt:     time.Date(2025, 8, 16, 14, 0, 0, 0, time.UTC),
		HomeTeamID:      64,
		HomeTeamName:    "Liverpool FC",
		AwayTeamID:      57,
		AwayTeamName:    "Arsenal FC",
		Status:          canonical.StatusScheduled,
		VenueName:       "Anfield",
	}
}

func TestUpsertEventNilScoresBindNull(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	ev := sampleEvent()

	mock.ExpectExec(upsertEventQuery).
		WithArgs(ev.EventID, string(ev.SportKind), ev.CompetitionID, ev.CompetitionName, ev.Season, ev.ScheduledAt,
			ev.HomeTeamID, ev.HomeTeamName, ev.AwayTeamID, ev.AwayTeamName,
			nil, nil, string(ev.Status), ev.VenueName).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.UpsertEvent(context.Background(), ev); err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertEventZeroScoreIsNotNull(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	ev := sampleEvent()
	zero := 0
	ev.HomeScore = &zero
	ev.AwayScore = &zero
	ev.Status = canonical.StatusFinished

	// a 0-0 final binds integer zeros, never NULL
	mock.ExpectExec(upsertEventQuery).
		WithArgs(ev.EventID, string(ev.SportKind), ev.CompetitionID, ev.CompetitionName, ev.Season, ev.ScheduledAt,
			ev.HomeTeamID, ev.HomeTeamName, ev.AwayTeamID, ev.AwayTeamName,
			0, 0, string(ev.Status), ev.VenueName).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.UpsertEvent(context.Background(), ev); err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertEventSurfacesFailureWithEventID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	ev := sampleEvent()

	mock.ExpectExec(upsertEventQuery).
		WillReturnError(context.DeadlineExceeded)

	err = st.UpsertEvent(context.Background(), ev)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !regexp.MustCompile(`upsert event 4001`).MatchString(err.Error()) {
		t.Fatalf("error should name the failing event, got %v", err)
	}
}

func eventRows(evs ...canonical.Event) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"event_id", "sport_kind", "competition_id", "competition_name", "season", "scheduled_at",
		"home_team_id", "home_team_name", "away_team_id", "away_team_name",
		"home_score", "away_score", "status", "venue_name", "last_ingested_at",
	})
	for _, ev := range evs {
		var hs, as interface{}
		if ev.HomeScore != nil {
			hs = *ev.HomeScore
		}
		if ev.AwayScore != nil {
			as = *ev.AwayScore
		}
		rows.AddRow(ev.EventID, string(ev.SportKind), ev.CompetitionID, ev.CompetitionName, ev.Season, ev.ScheduledAt,
			ev.HomeTeamID, ev.HomeTeamName, ev.AwayTeamID, ev.AwayTeamName,
			hs, as, string(ev.Status), ev.VenueName, time.Now())
	}
	return rows
}

func TestGetEventRoundTripsNullScores(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	ev := sampleEvent()

	mock.ExpectQuery(`SELECT .+ FROM events WHERE event_id = \$1`).
		WithArgs(ev.EventID).
		WillReturnRows(eventRows(ev))

	got, ok, err := st.GetEvent(context.Background(), ev.EventID)
	if err != nil || !ok {
		t.Fatalf("GetEvent: ok=%v err=%v", ok, err)
	}
	if got.HomeScore != nil || got.AwayScore != nil {
		t.Fatalf("unplayed fixture should read back nil scores, got %v/%v", got.HomeScore, got.AwayScore)
	}
}

func TestGetEventMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectQuery(`SELECT .+ FROM events WHERE event_id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(eventRows())

	_, ok, err := st.GetEvent(context.Background(), 99)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if ok {
		t.Fatalf("missing row should report ok=false, not an error")
	}
}

func TestQueryRecentEventsToleratesFinishedSpellings(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	ev := sampleEvent()
	ev.Status = canonical.StatusFinished

	mock.ExpectQuery(`WHERE \(home_team_id = \$1 OR away_team_id = \$1\)\s+AND status = ANY\(\$2\)\s+ORDER BY scheduled_at DESC`).
		WithArgs(int64(64), sqlmock.AnyArg(), 5).
		WillReturnRows(eventRows(ev))

	events, err := st.QueryRecentEvents(context.Background(), 64, 0)
	if err != nil {
		t.Fatalf("QueryRecentEvents: %v", err)
	}
	if len(events) != 1 || events[0].EventID != ev.EventID {
		t.Fatalf("unexpected result: %+v", events)
	}
}
