// Package telemetry tracks pipeline runs, upstream fetches and LLM spend.
// Counters are exported to Prometheus; richer aggregates (per-stage success
// rates, token usage) stay in memory and back the admin report.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rahulvdev/betedge/config"
)

// Telemetry provides monitoring and cost tracking for the analysis pipeline.
type Telemetry struct {
	config      config.TelemetryConfig
	logger      *log.Logger
	metrics     *Metrics
	costTracker *CostTracker
	mu          sync.RWMutex

	pipelineRuns  *prometheus.CounterVec
	providerFetch *prometheus.CounterVec
	llmTokens     *prometheus.CounterVec
}

// Metrics holds aggregated counters for runs, stages and upstream providers.
type Metrics struct {
	TotalRuns      int64
	SuccessfulRuns int64
	FailedRuns     int64
	AverageRunTime time.Duration

	StageExecutions   map[string]int64
	StageSuccessRates map[string]float64
	StageAverageTimes map[string]time.Duration

	LLMRequests   map[string]int64
	LLMTokensUsed map[string]int64

	ProviderFetches      map[string]int64
	ProviderSuccessRates map[string]float64
	ProviderEventCounts  map[string]int64
}

// CostTracker accumulates LLM spend by model and by pipeline stage.
type CostTracker struct {
	StageCosts  map[string]float64
	ModelCosts  map[string]float64
	TotalCost   float64
	TotalTokens int64
}

// RunEvent describes one pipeline run, quick query or deep analysis.
type RunEvent struct {
	ID         string
	Query      string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Status     string
	Error      string
	Cost       float64
	TokensUsed int64
	StagesUsed []string
	ModelsUsed []string
}

// StageEvent describes one capability stage execution within a run.
type StageEvent struct {
	RunID      string
	Stage      string
	Duration   time.Duration
	Success    bool
	Defaulted  bool
	Cost       float64
	TokensUsed int64
	ModelUsed  string
}

// FetchEvent describes one upstream provider fetch.
type FetchEvent struct {
	Provider string
	Sport    string
	Duration time.Duration
	Success  bool
	Events   int
}

// New creates a telemetry instance and registers its Prometheus collectors
// on the given registerer. Pass prometheus.DefaultRegisterer in production.
func New(cfg config.TelemetryConfig, reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		metrics: &Metrics{
			StageExecutions:      make(map[string]int64),
			StageSuccessRates:    make(map[string]float64),
			StageAverageTimes:    make(map[string]time.Duration),
			LLMRequests:          make(map[string]int64),
			LLMTokensUsed:        make(map[string]int64),
			ProviderFetches:      make(map[string]int64),
			ProviderSuccessRates: make(map[string]float64),
			ProviderEventCounts:  make(map[string]int64),
		},
		costTracker: &CostTracker{
			StageCosts: make(map[string]float64),
			ModelCosts: make(map[string]float64),
		},
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betedge_pipeline_runs_total",
			Help: "Pipeline runs by terminal status.",
		}, []string{"status"}),
		providerFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betedge_provider_fetches_total",
			Help: "Upstream provider fetches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betedge_llm_tokens_total",
			Help: "LLM tokens consumed by model.",
		}, []string{"model"}),
	}

	if reg != nil {
		reg.MustRegister(t.pipelineRuns, t.providerFetch, t.llmTokens)
	}

	return t
}

// RecordRun records a completed pipeline run.
func (t *Telemetry) RecordRun(ctx context.Context, event RunEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.TotalRuns++
	if event.Status == "ok" || event.Status == "no_matches" {
		t.metrics.SuccessfulRuns++
	} else {
		t.metrics.FailedRuns++
	}

	if t.metrics.TotalRuns == 1 {
		t.metrics.AverageRunTime = event.Duration
	} else {
		total := t.metrics.AverageRunTime * time.Duration(t.metrics.TotalRuns-1)
		t.metrics.AverageRunTime = (total + event.Duration) / time.Duration(t.metrics.TotalRuns)
	}

	for _, stage := range event.StagesUsed {
		t.metrics.StageExecutions[stage]++
	}
	for _, model := range event.ModelsUsed {
		t.metrics.LLMRequests[model]++
		t.metrics.LLMTokensUsed[model] += event.TokensUsed
	}

	if t.config.CostTracking {
		t.costTracker.TotalCost += event.Cost
		t.costTracker.TotalTokens += event.TokensUsed
	}

	t.pipelineRuns.WithLabelValues(event.Status).Inc()

	t.logger.Printf("Run: ID=%s, Status=%s, Duration=%v, Cost=$%.4f, Tokens=%d",
		event.ID, event.Status, event.Duration, event.Cost, event.TokensUsed)
}

// RecordStage records a capability stage execution.
func (t *Telemetry) RecordStage(ctx context.Context, event StageEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.StageExecutions[event.Stage]++

	currentSuccess := t.metrics.StageSuccessRates[event.Stage] * float64(t.metrics.StageExecutions[event.Stage]-1)
	if event.Success {
		currentSuccess += 1.0
	}
	t.metrics.StageSuccessRates[event.Stage] = currentSuccess / float64(t.metrics.StageExecutions[event.Stage])

	executions := t.metrics.StageExecutions[event.Stage]
	if executions == 1 {
		t.metrics.StageAverageTimes[event.Stage] = event.Duration
	} else {
		total := t.metrics.StageAverageTimes[event.Stage] * time.Duration(executions-1)
		t.metrics.StageAverageTimes[event.Stage] = (total + event.Duration) / time.Duration(executions)
	}

	if event.ModelUsed != "" {
		t.metrics.LLMRequests[event.ModelUsed]++
		t.metrics.LLMTokensUsed[event.ModelUsed] += event.TokensUsed
		t.llmTokens.WithLabelValues(event.ModelUsed).Add(float64(event.TokensUsed))
	}

	if t.config.CostTracking {
		t.costTracker.TotalCost += event.Cost
		t.costTracker.TotalTokens += event.TokensUsed
		t.costTracker.StageCosts[event.Stage] += event.Cost
		t.costTracker.ModelCosts[event.ModelUsed] += event.Cost
	}

	t.logger.Printf("Stage: Run=%s, Stage=%s, Success=%t, Defaulted=%t, Duration=%v, Cost=$%.4f",
		event.RunID, event.Stage, event.Success, event.Defaulted, event.Duration, event.Cost)
}

// RecordFetch records an upstream provider fetch.
func (t *Telemetry) RecordFetch(ctx context.Context, event FetchEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.ProviderFetches[event.Provider]++
	t.metrics.ProviderEventCounts[event.Provider] += int64(event.Events)

	currentSuccess := t.metrics.ProviderSuccessRates[event.Provider] * float64(t.metrics.ProviderFetches[event.Provider]-1)
	if event.Success {
		currentSuccess += 1.0
	}
	t.metrics.ProviderSuccessRates[event.Provider] = currentSuccess / float64(t.metrics.ProviderFetches[event.Provider])

	outcome := "ok"
	if !event.Success {
		outcome = "error"
	}
	t.providerFetch.WithLabelValues(event.Provider, outcome).Inc()

	t.logger.Printf("Fetch: Provider=%s, Sport=%s, Success=%t, Duration=%v, Events=%d",
		event.Provider, event.Sport, event.Success, event.Duration, event.Events)
}

// GetMetrics returns a copy of the current metrics.
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	metrics := *t.metrics
	metrics.StageExecutions = copyMap(t.metrics.StageExecutions)
	metrics.StageSuccessRates = copyMap(t.metrics.StageSuccessRates)
	metrics.StageAverageTimes = copyMap(t.metrics.StageAverageTimes)
	metrics.LLMRequests = copyMap(t.metrics.LLMRequests)
	metrics.LLMTokensUsed = copyMap(t.metrics.LLMTokensUsed)
	metrics.ProviderFetches = copyMap(t.metrics.ProviderFetches)
	metrics.ProviderSuccessRates = copyMap(t.metrics.ProviderSuccessRates)
	metrics.ProviderEventCounts = copyMap(t.metrics.ProviderEventCounts)
	return metrics
}

// CostSummary provides a summary of LLM spend.
type CostSummary struct {
	TotalCost   float64
	TotalTokens int64
	StageCosts  map[string]float64
	ModelCosts  map[string]float64
}

// GetCostSummary returns a copy of the accumulated cost totals.
func (t *Telemetry) GetCostSummary() CostSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return CostSummary{
		TotalCost:   t.costTracker.TotalCost,
		TotalTokens: t.costTracker.TotalTokens,
		StageCosts:  copyMap(t.costTracker.StageCosts),
		ModelCosts:  copyMap(t.costTracker.ModelCosts),
	}
}

// Report renders a human-readable summary for the admin endpoint and the
// final shutdown log line.
func (t *Telemetry) Report() string {
	metrics := t.GetMetrics()
	costs := t.GetCostSummary()

	if metrics.TotalRuns == 0 {
		return "no runs recorded\n"
	}

	report := fmt.Sprintf(`=== PIPELINE REPORT ===
Runs: %d total, %d ok, %d failed (%.2f%% success)
Average Run Time: %v
Total Cost: $%.4f
Total Tokens: %d

Stage Performance:
`, metrics.TotalRuns, metrics.SuccessfulRuns, metrics.FailedRuns,
		float64(metrics.SuccessfulRuns)/float64(metrics.TotalRuns)*100,
		metrics.AverageRunTime, costs.TotalCost, costs.TotalTokens)

	for stage, executions := range metrics.StageExecutions {
		report += fmt.Sprintf("  %s: %d executions, %.2f%% success, %v avg time\n",
			stage, executions, metrics.StageSuccessRates[stage]*100, metrics.StageAverageTimes[stage])
	}

	report += "\nLLM Usage:\n"
	for model, requests := range metrics.LLMRequests {
		report += fmt.Sprintf("  %s: %d requests, %d tokens, $%.4f\n",
			model, requests, metrics.LLMTokensUsed[model], costs.ModelCosts[model])
	}

	report += "\nProvider Fetches:\n"
	for provider, fetches := range metrics.ProviderFetches {
		report += fmt.Sprintf("  %s: %d fetches, %.2f%% success, %d events\n",
			provider, fetches, metrics.ProviderSuccessRates[provider]*100, metrics.ProviderEventCounts[provider])
	}

	return report
}

// Shutdown logs a final report.
func (t *Telemetry) Shutdown() {
	t.logger.Println("Shutting down telemetry...")
	t.logger.Print(t.Report())
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
