package server

import "github.com/rahulvdev/betedge/internal/canonical"

type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// QueryRequest carries one free-text pipeline request.
type QueryRequest struct {
	Query string `json:"query"`
}

// AnalyzeRequest selects one already-persisted event for deep analysis.
type AnalyzeRequest struct {
	EventID int64 `json:"event_id"`
}

// ProfileRequest is the writable part of a user profile.
type ProfileRequest struct {
	RiskTolerance    string   `json:"risk_tolerance"`
	FocusTeams       []string `json:"focus_teams"`
	PreferredLeagues []string `json:"preferred_leagues"`
}

// EventsResponse is the listing payload.
type EventsResponse struct {
	Events []canonical.Event `json:"events"`
	Count  int               `json:"count"`
}

// HTTPError is the unified JSON error body.
type HTTPError struct {
	Error string `json:"error"`
}
