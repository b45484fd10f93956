package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/rahulvdev/betedge/internal/canonical"
)

func TestAppendQuoteIsPlainInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	q := canonical.MarketQuote{
		EventID:    4001,
		Bookmaker:  "pinnacle",
		MarketType: "h2h",
		HomePrice:  1.95,
		DrawPrice:  3.60,
		AwayPrice:  4.10,
		ObservedAt: time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC),
	}

	query := regexp.QuoteMeta(`
INSERT INTO market_quotes (event_id, bookmaker, market_type, home_price, draw_price, away_price, observed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`)
	// two observations for the same (event, bookmaker) both insert, no conflict clause
	mock.ExpectExec(query).
		WithArgs(q.EventID, q.Bookmaker, q.MarketType, q.HomePrice, q.DrawPrice, q.AwayPrice, q.ObservedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	later := q
	later.ObservedAt = q.ObservedAt.Add(2 * time.Hour)
	mock.ExpectExec(query).
		WithArgs(later.EventID, later.Bookmaker, later.MarketType, later.HomePrice, later.DrawPrice, later.AwayPrice, later.ObservedAt).
		WillReturnResult(sqlmock.NewResult(2, 1))

	if err := st.AppendQuote(context.Background(), q); err != nil {
		t.Fatalf("AppendQuote: %v", err)
	}
	if err := st.AppendQuote(context.Background(), later); err != nil {
		t.Fatalf("AppendQuote (second observation): %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestQuotePicksGreatestObservedAt(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	newest := time.Date(2025, 8, 15, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM market_quotes\s+WHERE event_id = \$1\s+ORDER BY observed_at DESC\s+LIMIT 1`).
		WithArgs(int64(4001)).
		WillReturnRows(sqlmock.NewRows([]string{
			"event_id", "bookmaker", "market_type", "home_price", "draw_price", "away_price", "observed_at",
		}).AddRow(int64(4001), "betfair", "h2h", 2.00, 3.50, 4.00, newest))

	q, ok, err := st.LatestQuote(context.Background(), 4001)
	if err != nil || !ok {
		t.Fatalf("LatestQuote: ok=%v err=%v", ok, err)
	}
	if !q.ObservedAt.Equal(newest) || q.Bookmaker != "betfair" {
		t.Fatalf("unexpected quote: %+v", q)
	}
}

func TestLatestQuoteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectQuery(`FROM market_quotes`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"event_id", "bookmaker", "market_type", "home_price", "draw_price", "away_price", "observed_at",
		}))

	_, ok, err := st.LatestQuote(context.Background(), 7)
	if err != nil {
		t.Fatalf("LatestQuote: %v", err)
	}
	if ok {
		t.Fatalf("no quotes should report ok=false without error")
	}
}
