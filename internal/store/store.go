package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/rahulvdev/betedge/internal/canonical"
)

// Store is the canonical persistence layer over Postgres. Writes are
// idempotent upserts keyed by event identity; market quotes are the one
// append-only table.
type Store struct {
	DB *sql.DB
}

// New builds a Store from DATABASE_URL or the POSTGRES_* environment, the
// same resolution order the serve command uses.
func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// UpsertEvent replaces the row for the event's id entirely. The statement is
// a single INSERT ... ON CONFLICT so the write is all-or-nothing; a failure
// surfaces with the offending event id attached and leaves no partial row.
func (s *Store) UpsertEvent(ctx context.Context, ev canonical.Event) error {
	_, err := s.DB.ExecContext(ctx, `
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
`,
		ev.EventID, ev.SportKind, ev.CompetitionID, ev.CompetitionName, ev.Season, ev.ScheduledAt,
		ev.HomeTeamID, ev.HomeTeamName, ev.AwayTeamID, ev.AwayTeamName,
		nullableInt(ev.HomeScore), nullableInt(ev.AwayScore), ev.Status, ev.VenueName,
	)
	if err != nil {
		return fmt.Errorf("upsert event %d: %w", ev.EventID, err)
	}
	return nil
}

// UpsertTeamStats writes one team's per-event snapshot. Independent of the
// event row: there is no write-time ordering requirement between the two.
func (s *Store) UpsertTeamStats(ctx context.Context, st canonical.TeamMatchStatistics) error {
	_, err := s.DB.ExecContext(ctx, `
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
`,
		st.EventID, st.TeamID, st.TeamName,
		st.ShotsOnGoal, st.ShotsOffGoal, st.TotalShots, st.BlockedShots,
		st.ShotsInsideBox, st.ShotsOutsideBox, st.Fouls, st.CornerKicks, st.Offsides,
		st.BallPossession, st.YellowCards, st.RedCards, st.GoalkeeperSaves,
		st.TotalPasses, st.PassesAccurate, st.PassesPercentage,
	)
	if err != nil {
		return fmt.Errorf("upsert team stats %d/%d: %w", st.EventID, st.TeamID, err)
	}
	return nil
}

// AppendQuote records one odds observation. Pure insert: the quote history
// for an event is a time series and is never overwritten.
func (s *Store) AppendQuote(ctx context.Context, q canonical.MarketQuote) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO market_quotes (event_id, bookmaker, market_type, home_price, draw_price, away_price, observed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`,
		q.EventID, q.Bookmaker, q.MarketType, q.HomePrice, q.DrawPrice, q.AwayPrice, q.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("append quote for event %d: %w", q.EventID, err)
	}
	return nil
}

const eventColumns = `event_id, sport_kind, competition_id, competition_name, season, scheduled_at,
  home_team_id, home_team_name, away_team_id, away_team_name,
  home_score, away_score, status, venue_name, last_ingested_at`

// GetEvent fetches one canonical event row.
func (s *Store) GetEvent(ctx context.Context, eventID int64) (canonical.Event, bool, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE event_id = $1`, eventID)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return canonical.Event{}, false, nil
	}
	if err != nil {
		return canonical.Event{}, false, err
	}
	return ev, true, nil
}

// QueryRecentEvents returns finished games involving the team as home or
// away, newest first. Ingestion collapses status spellings already, but the
// filter stays tolerant of every historical spelling on purpose.
func (s *Store) QueryRecentEvents(ctx context.Context, teamID int64, limit int) ([]canonical.Event, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+eventColumns+`
FROM events
WHERE (home_team_id = $1 OR away_team_id = $1)
  AND status = ANY($2)
ORDER BY scheduled_at DESC
LIMIT $3
`, teamID, pq.Array(canonical.FinishedStatusSpellings), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// QueryFilter narrows QueryEvents. Zero values mean "no constraint".
type QueryFilter struct {
	SportKind       canonical.SportKind
	CompetitionName string
	From            time.Time
	To              time.Time
	Limit           int
}

// QueryEvents is the general listing, descending by schedule time.
func (s *Store) QueryEvents(ctx context.Context, f QueryFilter) ([]canonical.Event, error) {
	conds := []string{"sport_kind = $1"}
	args := []interface{}{f.SportKind}
	if f.CompetitionName != "" {
		args = append(args, f.CompetitionName)
		conds = append(conds, fmt.Sprintf("competition_name = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		conds = append(conds, fmt.Sprintf("scheduled_at >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		conds = append(conds, fmt.Sprintf("scheduled_at < $%d", len(args)))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := `SELECT ` + eventColumns + `
FROM events
WHERE ` + strings.Join(conds, " AND ") + `
ORDER BY scheduled_at DESC
LIMIT $` + fmt.Sprint(len(args))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListCompetitions returns the distinct competition names stored for a sport.
func (s *Store) ListCompetitions(ctx context.Context, sport canonical.SportKind) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT DISTINCT competition_name FROM events WHERE sport_kind = $1 ORDER BY competition_name`, sport)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// TeamStats fetches one team's snapshot for an event.
func (s *Store) TeamStats(ctx context.Context, eventID, teamID int64) (canonical.TeamMatchStatistics, bool, error) {
	var st canonical.TeamMatchStatistics
	err := s.DB.QueryRowContext(ctx, `
SELECT event_id, team_id, team_name,
  shots_on_goal, shots_off_goal, total_shots, blocked_shots,
  shots_inside_box, shots_outside_box, fouls, corner_kicks, offsides,
  ball_possession, yellow_cards, red_cards, goalkeeper_saves,
  total_passes, passes_accurate, passes_percentage, updated_at
FROM event_team_stats
WHERE event_id = $1 AND team_id = $2
`, eventID, teamID).Scan(
		&st.EventID, &st.TeamID, &st.TeamName,
		&st.ShotsOnGoal, &st.ShotsOffGoal, &st.TotalShots, &st.BlockedShots,
		&st.ShotsInsideBox, &st.ShotsOutsideBox, &st.Fouls, &st.CornerKicks, &st.Offsides,
		&st.BallPossession, &st.YellowCards, &st.RedCards, &st.GoalkeeperSaves,
		&st.TotalPasses, &st.PassesAccurate, &st.PassesPercentage, &st.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return canonical.TeamMatchStatistics{}, false, nil
	}
	if err != nil {
		return canonical.TeamMatchStatistics{}, false, err
	}
	return st, true, nil
}

// LatestQuote returns the most recent quote for an event across bookmakers
// (greatest observed_at, not per bookmaker).
func (s *Store) LatestQuote(ctx context.Context, eventID int64) (canonical.MarketQuote, bool, error) {
	var q canonical.MarketQuote
	err := s.DB.QueryRowContext(ctx, `
SELECT event_id, bookmaker, market_type, home_price, draw_price, away_price, observed_at
FROM market_quotes
WHERE event_id = $1
ORDER BY observed_at DESC
LIMIT 1
`, eventID).Scan(&q.EventID, &q.Bookmaker, &q.MarketType, &q.HomePrice, &q.DrawPrice, &q.AwayPrice, &q.ObservedAt)
	if err == sql.ErrNoRows {
		return canonical.MarketQuote{}, false, nil
	}
	if err != nil {
		return canonical.MarketQuote{}, false, err
	}
	return q, true, nil
}

// UpsertUserProfile stores a username-keyed preference record.
func (s *Store) UpsertUserProfile(ctx context.Context, p canonical.UserProfile) error {
	teams, _ := json.Marshal(p.FocusTeams)
	leagues, _ := json.Marshal(p.PreferredLeagues)
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO user_profiles (username, risk_tolerance, focus_teams, preferred_leagues, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (username) DO UPDATE SET
  risk_tolerance = EXCLUDED.risk_tolerance,
  focus_teams = EXCLUDED.focus_teams,
  preferred_leagues = EXCLUDED.preferred_leagues,
  updated_at = NOW();
`, p.Username, p.RiskTolerance, teams, leagues)
	if err != nil {
		return fmt.Errorf("upsert profile %q: %w", p.Username, err)
	}
	return nil
}

// GetUserProfile fetches a preference record by username.
func (s *Store) GetUserProfile(ctx context.Context, username string) (canonical.UserProfile, bool, error) {
	var p canonical.UserProfile
	var teams, leagues []byte
	err := s.DB.QueryRowContext(ctx, `
SELECT username, risk_tolerance, focus_teams, preferred_leagues, updated_at
FROM user_profiles WHERE username = $1
`, username).Scan(&p.Username, &p.RiskTolerance, &teams, &leagues, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return canonical.UserProfile{}, false, nil
	}
	if err != nil {
		return canonical.UserProfile{}, false, err
	}
	_ = json.Unmarshal(teams, &p.FocusTeams)
	_ = json.Unmarshal(leagues, &p.PreferredLeagues)
	return p, true, nil
}

// CreateUser registers an API user with a bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2)`, email, hash)
	return err
}

// GetUserByEmail returns the stored id and password hash for login.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE email = $1`, email).Scan(&id, &hash)
	return
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(r rowScanner) (canonical.Event, error) {
	var ev canonical.Event
	var homeScore, awayScore sql.NullInt64
	var venue sql.NullString
	err := r.Scan(
		&ev.EventID, &ev.SportKind, &ev.CompetitionID, &ev.CompetitionName, &ev.Season, &ev.ScheduledAt,
		&ev.HomeTeamID, &ev.HomeTeamName, &ev.AwayTeamID, &ev.AwayTeamName,
		&homeScore, &awayScore, &ev.Status, &venue, &ev.LastIngestedAt,
	)
	if err != nil {
		return canonical.Event{}, err
	}
	if homeScore.Valid {
		v := int(homeScore.Int64)
		ev.HomeScore = &v
	}
	if awayScore.Valid {
		v := int(awayScore.Int64)
		ev.AwayScore = &v
	}
	ev.VenueName = venue.String
	return ev, nil
}

func collectEvents(rows *sql.Rows) ([]canonical.Event, error) {
	var events []canonical.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
