package canonical

import "strings"

// footballDataStatuses maps football-data.org status strings into the
// canonical four-state enum. POSTPONED fixtures go back to scheduled (they
// get a new date on re-ingestion); SUSPENDED games are expected to resume.
var footballDataStatuses = map[string]EventStatus{
	"SCHEDULED": StatusScheduled,
	"TIMED":     StatusScheduled,
	"POSTPONED": StatusScheduled,
	"IN_PLAY":   StatusInProgress,
	"PAUSED":    StatusInProgress,
	"SUSPENDED": StatusInProgress,
	"FINISHED":  StatusFinished,
	"AWARDED":   StatusFinished,
	"CANCELLED": StatusCancelled,
}

// NormalizeFootballDataStatus collapses a football-data.org status into the
// canonical enum. Unrecognized strings map to scheduled, never an error.
func NormalizeFootballDataStatus(raw string) EventStatus {
	if st, ok := footballDataStatuses[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return st
	}
	return StatusScheduled
}

// NormalizeCollegeStatus maps the college data APIs' completed flag. Those
// APIs expose no in-progress or cancelled state on the games listing.
func NormalizeCollegeStatus(completed bool) EventStatus {
	if completed {
		return StatusFinished
	}
	return StatusScheduled
}

// FinishedStatusSpellings lists every spelling of "finished" that has ever
// reached the store through older ingestion paths. Ingestion collapses them
// to StatusFinished; the query layer stays tolerant anyway.
var FinishedStatusSpellings = []string{
	string(StatusFinished),
	"FINISHED",
	"completed",
	"Match Finished",
}

// competitionCodes maps human competition names to football-data.org codes.
var competitionCodes = map[string]string{
	"premier league":   "PL",
	"la liga":          "PD",
	"primera division": "PD",
	"serie a":          "SA",
	"bundesliga":       "BL1",
	"ligue 1":          "FL1",
	"champions league": "CL",
}

// legacyLeagueIDs maps the numeric league ids used by the previous upstream
// (API-Sports) to football-data.org codes.
var legacyLeagueIDs = map[int64]string{
	39:  "PL",
	140: "PD",
	135: "SA",
	78:  "BL1",
	61:  "FL1",
}

// CompetitionCode resolves a competition reference (a code, a human name, or
// a legacy numeric id) to a football-data.org competition code. The second
// return is false when the fallback default was used.
func CompetitionCode(ref string, legacyID int64, defaultCode string) (string, bool) {
	if legacyID != 0 {
		if code, ok := legacyLeagueIDs[legacyID]; ok {
			return code, true
		}
	}
	r := strings.TrimSpace(ref)
	if r != "" {
		upper := strings.ToUpper(r)
		for _, code := range competitionCodes {
			if code == upper {
				return code, true
			}
		}
		if code, ok := competitionCodes[strings.ToLower(r)]; ok {
			return code, true
		}
	}
	if defaultCode == "" {
		defaultCode = "PL"
	}
	return defaultCode, false
}
