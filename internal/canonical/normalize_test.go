package canonical

import "testing"

func TestNormalizeFootballDataStatusClosure(t *testing.T) {
	allowed := map[EventStatus]bool{
		StatusScheduled:  true,
		StatusInProgress: true,
		StatusFinished:   true,
		StatusCancelled:  true,
	}
	for raw := range footballDataStatuses {
		if got := NormalizeFootballDataStatus(raw); !allowed[got] {
			t.Fatalf("status %q normalized outside the enum: %q", raw, got)
		}
	}
}

func TestNormalizeFootballDataStatusKnown(t *testing.T) {
	cases := map[string]EventStatus{
		"SCHEDULED": StatusScheduled,
		"timed":     StatusScheduled,
		"POSTPONED": StatusScheduled,
		"IN_PLAY":   StatusInProgress,
		"PAUSED":    StatusInProgress,
		"FINISHED":  StatusFinished,
		"AWARDED":   StatusFinished,
		"CANCELLED": StatusCancelled,
	}
	for raw, want := range cases {
		if got := NormalizeFootballDataStatus(raw); got != want {
			t.Fatalf("NormalizeFootballDataStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeFootballDataStatusUnknownDefaultsToScheduled(t *testing.T) {
	for _, raw := range []string{"", "WEIRD", "Match Abandoned", "???"} {
		if got := NormalizeFootballDataStatus(raw); got != StatusScheduled {
			t.Fatalf("unrecognized status %q should default to scheduled, got %q", raw, got)
		}
	}
}

func TestNormalizeCollegeStatus(t *testing.T) {
	if got := NormalizeCollegeStatus(true); got != StatusFinished {
		t.Fatalf("completed game should be finished, got %q", got)
	}
	if got := NormalizeCollegeStatus(false); got != StatusScheduled {
		t.Fatalf("pending game should be scheduled, got %q", got)
	}
}

func TestCompetitionCodeByName(t *testing.T) {
	code, ok := CompetitionCode("Premier League", 0, "PL")
	if !ok || code != "PL" {
		t.Fatalf("Premier League should map to PL, got %q ok=%v", code, ok)
	}
	code, ok = CompetitionCode("la liga", 0, "PL")
	if !ok || code != "PD" {
		t.Fatalf("la liga should map to PD, got %q ok=%v", code, ok)
	}
}

func TestCompetitionCodeByLegacyID(t *testing.T) {
	cases := map[int64]string{39: "PL", 140: "PD", 135: "SA", 78: "BL1", 61: "FL1"}
	for id, want := range cases {
		code, ok := CompetitionCode("", id, "PL")
		if !ok || code != want {
			t.Fatalf("legacy id %d should map to %s, got %q ok=%v", id, want, code, ok)
		}
	}
}

func TestCompetitionCodePassesThroughKnownCodes(t *testing.T) {
	code, ok := CompetitionCode("bl1", 0, "PL")
	if !ok || code != "BL1" {
		t.Fatalf("existing code bl1 should pass through as BL1, got %q ok=%v", code, ok)
	}
}

func TestCompetitionCodeFallsBackToDefault(t *testing.T) {
	code, ok := CompetitionCode("Eredivisie", 0, "SA")
	if ok {
		t.Fatalf("unmapped competition should report fallback")
	}
	if code != "SA" {
		t.Fatalf("fallback should use the configured default, got %q", code)
	}
	code, _ = CompetitionCode("Eredivisie", 0, "")
	if code != "PL" {
		t.Fatalf("empty default should fall back to PL, got %q", code)
	}
}

func TestParseSportKind(t *testing.T) {
	cases := map[string]SportKind{
		"soccer":             SportSoccer,
		"football":           SportSoccer,
		"college_football":   SportCollegeFootball,
		"basketball":         SportCollegeBasketball,
		"college_basketball": SportCollegeBasketball,
	}
	for raw, want := range cases {
		got, err := ParseSportKind(raw)
		if err != nil || got != want {
			t.Fatalf("ParseSportKind(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseSportKind("cricket"); err == nil {
		t.Fatalf("expected error for unknown sport kind")
	}
}

func TestInvolvesTeamSubstringCaseInsensitive(t *testing.T) {
	ev := Event{HomeTeamName: "Liverpool FC", AwayTeamName: "Arsenal FC"}
	if !ev.InvolvesTeam("liverpool") {
		t.Fatalf("substring match should be case-insensitive")
	}
	if !ev.InvolvesTeam("ARSENAL") {
		t.Fatalf("away side should match too")
	}
	if ev.InvolvesTeam("Chelsea") {
		t.Fatalf("unrelated team should not match")
	}
	if !ev.InvolvesTeam("") {
		t.Fatalf("empty filter matches everything")
	}
}
