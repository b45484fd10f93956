package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rahulvdev/betedge/internal/canonical"
	"github.com/rahulvdev/betedge/internal/matchcontext"
	"github.com/rahulvdev/betedge/internal/odds"
	"github.com/rahulvdev/betedge/internal/providers"
	"github.com/rahulvdev/betedge/internal/telemetry"
)

// EventStore is the slice of the canonical store the orchestrator writes.
type EventStore interface {
	UpsertEvent(ctx context.Context, ev canonical.Event) error
	AppendQuote(ctx context.Context, q canonical.MarketQuote) error
}

// BoardSource serves odds boards; *odds.Service satisfies it.
type BoardSource interface {
	BoardFor(ctx context.Context, kind canonical.SportKind) odds.Board
}

// ContextAssembler builds the fact bundle for one event.
type ContextAssembler interface {
	Assemble(ctx context.Context, eventID int64) matchcontext.Bundle
}

// Orchestrator runs the staged pipeline. Construct with New; every
// dependency is an interface so tests can substitute stubs.
type Orchestrator struct {
	interpreter QueryInterpreter
	adapters    map[canonical.SportKind]providers.Adapter
	store       EventStore
	odds        BoardSource
	assembler   ContextAssembler

	prediction     PredictionCapability
	verification   VerificationCapability
	behavior       BehaviorCapability
	recommendation RecommendationCapability
	ethics         EthicsCapability

	telemetry          *telemetry.Telemetry
	logger             *log.Logger
	defaultCompetition string
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Interpreter QueryInterpreter
	Adapters    map[canonical.SportKind]providers.Adapter
	Store       EventStore
	Odds        BoardSource
	Assembler   ContextAssembler

	Prediction     PredictionCapability
	Verification   VerificationCapability
	Behavior       BehaviorCapability
	Recommendation RecommendationCapability
	Ethics         EthicsCapability

	Telemetry *telemetry.Telemetry

	// DefaultCompetition is the soccer competition code used when an
	// intent names no competition and none can be mapped. Ships as "PL".
	DefaultCompetition string
}

// New creates an orchestrator.
func New(d Deps) *Orchestrator {
	if d.DefaultCompetition == "" {
		d.DefaultCompetition = "PL"
	}
	return &Orchestrator{
		interpreter:        d.Interpreter,
		adapters:           d.Adapters,
		store:              d.Store,
		odds:               d.Odds,
		assembler:          d.Assembler,
		prediction:         d.Prediction,
		verification:       d.Verification,
		behavior:           d.Behavior,
		recommendation:     d.Recommendation,
		ethics:             d.Ethics,
		telemetry:          d.Telemetry,
		logger:             log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags),
		defaultCompetition: d.DefaultCompetition,
	}
}

// Run executes interpret -> retrieve -> filter -> persist and returns the
// candidate list. It never auto-selects an event; deep analysis is a
// separate call. Terminal states: query_error on an unparseable request
// (zero writes), no_matches when nothing was retrieved or nothing survived
// the team filter (zero writes in the former case), ok otherwise.
func (o *Orchestrator) Run(ctx context.Context, freeText string) Envelope {
	start := time.Now()
	env := Envelope{RunID: uuid.NewString(), Query: freeText}

	interpStart := time.Now()
	intent, interpUsage, err := o.interpreter.Interpret(ctx, freeText)
	o.recordStage(ctx, env.RunID, "interpret", time.Since(interpStart), err == nil, interpUsage)
	if err != nil {
		env.Status = StatusQueryError
		env.Message = fmt.Sprintf("could not parse that request: %v", err)
		o.finishRun(ctx, env, start)
		return env
	}
	env.Intent = &intent

	// Odds are enrichment: the board is attached to every post-interpret
	// envelope and an empty board is not a failure.
	if o.odds != nil {
		board := o.odds.BoardFor(ctx, intent.SportKind)
		env.Odds = &board
	}

	adapter, ok := o.adapters[intent.SportKind]
	if !ok {
		env.Status = StatusNoMatches
		env.Message = fmt.Sprintf("no data source available for %s", intent.SportKind)
		o.finishRun(ctx, env, start)
		return env
	}

	// Competition names and legacy ids are translated to provider codes
	// here and nowhere else.
	filters := providers.Filters{}
	if intent.SportKind == canonical.SportSoccer {
		code, mapped := canonical.CompetitionCode(intent.CompetitionCode, 0, o.defaultCompetition)
		if !mapped {
			o.logger.Printf("run %s: competition %q not mapped, using default %s", env.RunID, intent.CompetitionCode, code)
		}
		filters.CompetitionCode = code
	}

	fetchStart := time.Now()
	events, fetchErr := adapter.Fetch(ctx, intent.Season, filters)
	if o.telemetry != nil {
		o.telemetry.RecordFetch(ctx, telemetry.FetchEvent{
			Provider: string(intent.SportKind),
			Sport:    string(intent.SportKind),
			Duration: time.Since(fetchStart),
			Success:  fetchErr == nil,
			Events:   len(events),
		})
	}
	if fetchErr != nil {
		// Degrade, don't abort: a broken upstream reads as no matches.
		o.logger.Printf("run %s: fetch failed: %v", env.RunID, fetchErr)
	}
	if len(events) == 0 {
		env.Status = StatusNoMatches
		env.Message = "no matching results from the data source"
		o.finishRun(ctx, env, start)
		return env
	}

	filtered := filterByTeam(events, intent.TeamName)
	if len(filtered) == 0 {
		// Upstream had data; the filter removed it all. Same status,
		// different message, and the retrieved events are still persisted.
		env.StoredCount, env.FailedCount = o.persist(ctx, env.RunID, events, env.Odds)
		env.Status = StatusNoMatches
		env.Message = fmt.Sprintf("no matches found involving %q after filtering", intent.TeamName)
		o.finishRun(ctx, env, start)
		return env
	}

	// Persist everything retrieved, not just what survived the filter;
	// filtering is presentation-only.
	env.StoredCount, env.FailedCount = o.persist(ctx, env.RunID, events, env.Odds)

	env.Status = StatusOK
	env.Matches = filtered
	env.Message = fmt.Sprintf("found %d matches; select one for detailed analysis", len(filtered))
	o.finishRun(ctx, env, start)
	return env
}

// RunDeepAnalysis runs the five reasoning stages for one already-selected
// event. Stages are strictly sequential; each absorbs its own failure into
// a documented default, so the only non-ok outcome is a missing event.
func (o *Orchestrator) RunDeepAnalysis(ctx context.Context, event *canonical.Event) Envelope {
	start := time.Now()
	env := Envelope{RunID: uuid.NewString()}

	if event == nil {
		env.Status = StatusError
		env.Message = "no match provided for deep analysis"
		o.finishRun(ctx, env, start)
		return env
	}

	bundle := o.assembler.Assemble(ctx, event.EventID)

	prediction := o.runStage(ctx, env.RunID, "prediction", func() (interface{}, StageUsage) {
		p, u := o.prediction.Predict(ctx, *event, bundle)
		return p, u
	}).(Prediction)

	verification := o.runStage(ctx, env.RunID, "verification", func() (interface{}, StageUsage) {
		v, u := o.verification.Verify(ctx, prediction)
		return v, u
	}).(Verification)

	action := o.runStage(ctx, env.RunID, "behavior", func() (interface{}, StageUsage) {
		a, u := o.behavior.SelectAction(ctx)
		return a, u
	}).(ActionTag)

	recommendation := o.runStage(ctx, env.RunID, "recommendation", func() (interface{}, StageUsage) {
		r, u := o.recommendation.Recommend(ctx, RecommendationInput{
			Event:        *event,
			Context:      bundle,
			Prediction:   prediction,
			Verification: verification,
			Action:       action,
		})
		return r, u
	}).(string)

	ethics := o.runStage(ctx, env.RunID, "ethics", func() (interface{}, StageUsage) {
		e, u := o.ethics.Review(ctx, recommendation)
		return e, u
	}).(EthicsResult)

	env.Status = StatusOK
	env.Analysis = &Analysis{
		Event:          *event,
		Context:        bundle,
		Prediction:     prediction,
		Verification:   verification,
		Action:         action,
		Recommendation: recommendation,
		Ethics:         ethics,
	}
	o.finishRun(ctx, env, start)
	return env
}

// persist upserts every retrieved event and appends any board quotes that
// match one. One failed write never aborts the rest.
func (o *Orchestrator) persist(ctx context.Context, runID string, events []canonical.Event, board *odds.Board) (stored, failed int) {
	for _, ev := range events {
		if err := o.store.UpsertEvent(ctx, ev); err != nil {
			failed++
			o.logger.Printf("run %s: persist event %d failed: %v", runID, ev.EventID, err)
			continue
		}
		stored++

		if board == nil {
			continue
		}
		for _, q := range odds.QuotesForEvent(*board, ev) {
			if err := o.store.AppendQuote(ctx, q); err != nil {
				o.logger.Printf("run %s: append quote for event %d failed: %v", runID, ev.EventID, err)
			}
		}
	}
	return stored, failed
}

// runStage executes one capability and reports its model accounting. The
// stage itself always succeeds (capabilities absorb their failures into
// defaults); Defaulted marks a fallback.
func (o *Orchestrator) runStage(ctx context.Context, runID, stage string, fn func() (interface{}, StageUsage)) interface{} {
	start := time.Now()
	out, usage := fn()
	o.recordStage(ctx, runID, stage, time.Since(start), true, usage)
	return out
}

func (o *Orchestrator) recordStage(ctx context.Context, runID, stage string, d time.Duration, success bool, usage StageUsage) {
	if o.telemetry == nil {
		return
	}
	o.telemetry.RecordStage(ctx, telemetry.StageEvent{
		RunID:      runID,
		Stage:      stage,
		Duration:   d,
		Success:    success,
		Defaulted:  usage.Defaulted,
		Cost:       usage.Cost,
		TokensUsed: usage.InputTokens + usage.OutputTokens,
		ModelUsed:  usage.Model,
	})
}

func (o *Orchestrator) finishRun(ctx context.Context, env Envelope, start time.Time) {
	if o.telemetry == nil {
		return
	}
	o.telemetry.RecordRun(ctx, telemetry.RunEvent{
		ID:       env.RunID,
		Query:    env.Query,
		Duration: time.Since(start),
		Status:   string(env.Status),
		Error:    env.Message,
	})
}

// filterByTeam keeps events where the home or away team name contains the
// target, case-insensitively. An empty target keeps everything. Permissive
// by intent: substring matching tolerates naming variants like
// "Liverpool FC" vs "Liverpool".
func filterByTeam(events []canonical.Event, team string) []canonical.Event {
	if team == "" {
		return events
	}
	var out []canonical.Event
	for _, ev := range events {
		if ev.InvolvesTeam(team) {
			out = append(out, ev)
		}
	}
	return out
}
