package store

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/rahulvdev/betedge/internal/canonical"
)

var upsertTeamStatsQuery = regexp.QuoteMeta(`
INSERT INTO event_team_stats (
  event_id, team_id, team_name,
  shots_on_goal, shots_off_goal, total_shots, blocked_shots,
  shots_inside_box, shots_outside_box, fouls, corner_kicks, offsides,
  ball_possession, yellow_cards, red_cards, goalkeeper_saves,
  total_passes, passes_accurate, passes_percentage, updated_at
) VALUES (
  $1, $2, $3,
  $4, $5, $6, $7,
  $8, $9, $10, $11, $12,
  $13, $14, $15, $16,
  $17, $18, $19, NOW()
)
ON CONFLICT (event_id, team_id) DO UPDATE SET
  team_name = EXCLUDED.team_name,
  shots_on_goal = EXCLUDED.shots_on_goal,
  shots_off_goal = EXCLUDED.shots_off_goal,
  total_shots = EXCLUDED.total_shots,
  blocked_shots = EXCLUDED.blocked_shots,
  shots_inside_box = EXCLUDED.shots_inside_box,
  shots_outside_box = EXCLUDED.shots_outside_box,
  fouls = EXCLUDED.fouls,
  corner_kicks = EXCLUDED.corner_kicks,
  offsides = EXCLUDED.offsides,
  ball_possession = EXCLUDED.ball_possession,
  yellow_cards = EXCLUDED.yellow_cards,
  red_cards = EXCLUDED.red_cards,
  goalkeeper_saves = EXCLUDED.goalkeeper_saves,
  total_passes = EXCLUDED.total_passes,
  passes_accurate = EXCLUDED.passes_accurate,
  passes_percentage = EXCLUDED.passes_percentage,
  updated_at = NOW();
`)

func sampleTeamStats() canonical.TeamMatchStatistics {
	return canonical.TeamMatchStatistics{
		EventID:          4001,
		TeamID:           64,
		TeamName:         "Liverpool FC",
		ShotsOnGoal:      7,
		ShotsOffGoal:     4,
		TotalShots:       14,
		BlockedShots:     3,
		ShotsInsideBox:   9,
		ShotsOutsideBox:  5,
		Fouls:            11,
		CornerKicks:      6,
		Offsides:         2,
		BallPossession:   58,
		YellowCards:      1,
		RedCards:         0,
		GoalkeeperSaves:  2,
		TotalPasses:      612,
		PassesAccurate:   540,
		PassesPercentage: 88,
	}
}

func TestUpsertTeamStatsBindsAllColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	ts := sampleTeamStats()

	mock.ExpectExec(upsertTeamStatsQuery).
		WithArgs(ts.EventID, ts.TeamID, ts.TeamName,
			ts.ShotsOnGoal, ts.ShotsOffGoal, ts.TotalShots, ts.BlockedShots,
			ts.ShotsInsideBox, ts.ShotsOutsideBox, ts.Fouls, ts.CornerKicks, ts.Offsides,
			ts.BallPossession, ts.YellowCards, ts.RedCards, ts.GoalkeeperSaves,
			ts.TotalPasses, ts.PassesAccurate, ts.PassesPercentage).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.UpsertTeamStats(context.Background(), ts); err != nil {
		t.Fatalf("UpsertTeamStats: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertTeamStatsReplayIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	ts := sampleTeamStats()

	// Second write for the same (event_id, team_id) takes the conflict
	// branch and updates in place instead of erroring.
	mock.ExpectExec(upsertTeamStatsQuery).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertTeamStatsQuery).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.UpsertTeamStats(context.Background(), ts); err != nil {
		t.Fatalf("first UpsertTeamStats: %v", err)
	}
	ts.ShotsOnGoal = 9
	if err := st.UpsertTeamStats(context.Background(), ts); err != nil {
		t.Fatalf("replayed UpsertTeamStats: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertTeamStatsSurfacesFailureWithIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectExec(upsertTeamStatsQuery).WillReturnError(context.DeadlineExceeded)

	err = st.UpsertTeamStats(context.Background(), sampleTeamStats())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !regexp.MustCompile(`upsert team stats 4001/64`).MatchString(err.Error()) {
		t.Fatalf("error should name the failing event/team, got %v", err)
	}
}
