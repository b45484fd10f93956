package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rahulvdev/betedge/config"
	"github.com/rahulvdev/betedge/internal/canonical"
)

const fdPayload = `{
  "competition": {"id": 2021, "name": "Premier League"},
  "matches": [
    {
      "id": 4001,
      "utcDate": "2025-08-16T14:00:00Z",
      "status": "FINISHED",
      "homeTeam": {"id": 64, "name": "Liverpool FC"},
      "awayTeam": {"id": 57, "name": "Arsenal FC"},
      "score": {"fullTime": {"home": 0, "away": 0}}
    },
    {
      "id": 4002,
      "utcDate": "2026-05-02T16:30:00Z",
      "status": "TIMED",
      "homeTeam": {"id": 61, "name": "Chelsea FC"},
      "awayTeam": {"id": 62, "name": "Everton FC"},
      "score": {"fullTime": {"home": null, "away": null}}
    }
  ]
}`

func newFDAdapter(baseURL string) *FootballData {
	return NewFootballData(config.FootballDataConfig{
		APIKey:             "test-key",
		BaseURL:            baseURL,
		Timeout:            2 * time.Second,
		DefaultCompetition: "PL",
	})
}

func TestFootballDataFetchNormalizes(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("X-Auth-Token")
		gotPath = r.URL.String()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fdPayload))
	}))
	defer srv.Close()

	events, err := newFDAdapter(srv.URL).Fetch(context.Background(), 2025, Filters{CompetitionCode: "PL"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotAuth != "test-key" {
		t.Fatalf("expected X-Auth-Token header, got %q", gotAuth)
	}
	if gotPath != "/competitions/PL/matches?season=2025" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	finished := events[0]
	if finished.Status != canonical.StatusFinished {
		t.Fatalf("FINISHED should normalize to finished, got %q", finished.Status)
	}
	if finished.HomeScore == nil || *finished.HomeScore != 0 || finished.AwayScore == nil || *finished.AwayScore != 0 {
		t.Fatalf("0-0 final must keep integer zero scores, got %v/%v", finished.HomeScore, finished.AwayScore)
	}
	if finished.VenueName != "Unknown" {
		t.Fatalf("missing venue should default to Unknown, got %q", finished.VenueName)
	}
	if finished.CompetitionName != "Premier League" || finished.CompetitionID != 2021 {
		t.Fatalf("competition fields not carried: %+v", finished)
	}

	upcoming := events[1]
	if upcoming.Status != canonical.StatusScheduled {
		t.Fatalf("TIMED should normalize to scheduled, got %q", upcoming.Status)
	}
	if upcoming.HomeScore != nil || upcoming.AwayScore != nil {
		t.Fatalf("unplayed fixture must keep nil scores, got %v/%v", upcoming.HomeScore, upcoming.AwayScore)
	}
}

func TestFootballDataFetchEmptyOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	events, err := newFDAdapter(srv.URL).Fetch(context.Background(), 2025, Filters{})
	if err == nil {
		t.Fatal("non-2xx should surface an error")
	}
	if len(events) != 0 {
		t.Fatalf("non-2xx should yield empty, got %d events", len(events))
	}
}

func TestFootballDataFetchEmptyOnHTMLBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><title>Docs</title></html>"))
	}))
	defer srv.Close()

	events, err := newFDAdapter(srv.URL).Fetch(context.Background(), 2025, Filters{})
	if err == nil {
		t.Fatal("HTML body should surface an error")
	}
	if len(events) != 0 {
		t.Fatalf("HTML body should yield empty, got %d events", len(events))
	}
}

func TestFootballDataFetchEmptyOnMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches": [`))
	}))
	defer srv.Close()

	events, err := newFDAdapter(srv.URL).Fetch(context.Background(), 2025, Filters{})
	if err == nil {
		t.Fatal("malformed payload should surface an error")
	}
	if len(events) != 0 {
		t.Fatalf("malformed payload should yield empty, got %d events", len(events))
	}
}

func TestFootballDataFetchEmptyOnUnreachableUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	events, err := newFDAdapter(srv.URL).Fetch(context.Background(), 2025, Filters{})
	if err == nil {
		t.Fatal("transport error should surface an error")
	}
	if len(events) != 0 {
		t.Fatalf("transport error should yield empty, got %d events", len(events))
	}
}

func TestFootballDataFetchSkipsBadRecords(t *testing.T) {
	payload := `{
  "competition": {"id": 2021, "name": "Premier League"},
  "matches": [
    {"id": 1, "utcDate": "not-a-date", "status": "TIMED",
     "homeTeam": {"id": 1, "name": "A"}, "awayTeam": {"id": 2, "name": "B"},
     "score": {"fullTime": {"home": null, "away": null}}},
    {"id": 2, "utcDate": "2025-08-16T14:00:00Z", "status": "TIMED",
     "homeTeam": {"id": 1, "name": "A"}, "awayTeam": {"id": 2, "name": "B"},
     "score": {"fullTime": {"home": null, "away": null}}}
  ]
}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	events, err := newFDAdapter(srv.URL).Fetch(context.Background(), 2025, Filters{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 || events[0].EventID != 2 {
		t.Fatalf("expected only the well-formed record, got %+v", events)
	}
}
