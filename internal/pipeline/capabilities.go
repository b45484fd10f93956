package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/rahulvdev/betedge/config"
	"github.com/rahulvdev/betedge/internal/canonical"
	"github.com/rahulvdev/betedge/internal/llm"
	"github.com/rahulvdev/betedge/internal/matchcontext"
)

// The reasoning stages are opaque capabilities: each accepts a typed input
// and returns a typed output, falling back to a fixed documented default
// when it cannot produce a structured answer. The orchestrator never
// retries a capability and never treats its fallback as an error.

// Prediction is a win-probability triple.
type Prediction struct {
	HomeWinProb float64 `json:"home_win_prob"`
	DrawProb    float64 `json:"draw_prob"`
	AwayWinProb float64 `json:"away_win_prob"`
}

// Verification rates the value edge of a prediction.
type Verification struct {
	ValueEdge  string `json:"value_edge"`
	Confidence string `json:"confidence"`
}

// ActionTag steers the tone of the final recommendation.
type ActionTag string

const (
	ActionNeutral  ActionTag = "neutral"
	ActionSafe     ActionTag = "safe"
	ActionValue    ActionTag = "value"
	ActionHighRisk ActionTag = "high_risk"
	ActionSummary  ActionTag = "summary"
	ActionExplain  ActionTag = "explain"
)

var allowedActions = map[ActionTag]bool{
	ActionNeutral: true, ActionSafe: true, ActionValue: true,
	ActionHighRisk: true, ActionSummary: true, ActionExplain: true,
}

// EthicsResult is the compliance verdict on a recommendation.
type EthicsResult struct {
	Status string `json:"status"`
}

// StageUsage carries the model accounting for one capability execution:
// which model answered, what it consumed, what it cost, and whether the
// stage fell back to its contractual default. Tokens are reported even on
// fallback when the model was actually called.
type StageUsage struct {
	Model        string
	InputTokens  int64
	OutputTokens int64
	Cost         float64
	Defaulted    bool
}

// Capability defaults. These exact values are part of the pipeline
// contract: callers may rely on a failed stage producing them.
func DefaultPrediction() Prediction {
	return Prediction{HomeWinProb: 0.40, DrawProb: 0.30, AwayWinProb: 0.30}
}

func DefaultVerification() Verification {
	return Verification{ValueEdge: "Low", Confidence: "Medium"}
}

const DefaultAction = ActionNeutral

const DefaultRecommendation = "No synthesized recommendation is available for this match; review the prediction and verification figures directly."

func DefaultEthics() EthicsResult {
	return EthicsResult{Status: "pass"}
}

// PredictionCapability estimates win probabilities for one event.
type PredictionCapability interface {
	Predict(ctx context.Context, event canonical.Event, bundle matchcontext.Bundle) (Prediction, StageUsage)
}

// VerificationCapability rates the edge of a prediction.
type VerificationCapability interface {
	Verify(ctx context.Context, p Prediction) (Verification, StageUsage)
}

// BehaviorCapability selects an action tag, independent of match data.
type BehaviorCapability interface {
	SelectAction(ctx context.Context) (ActionTag, StageUsage)
}

// RecommendationInput is everything the synthesis stage sees.
type RecommendationInput struct {
	Event        canonical.Event
	Context      matchcontext.Bundle
	Prediction   Prediction
	Verification Verification
	Action       ActionTag
}

// RecommendationCapability synthesizes the final text.
type RecommendationCapability interface {
	Recommend(ctx context.Context, in RecommendationInput) (string, StageUsage)
}

// EthicsCapability reviews a synthesized recommendation.
type EthicsCapability interface {
	Review(ctx context.Context, text string) (EthicsResult, StageUsage)
}

// Capabilities is the LLM-backed implementation of all five stages.
type Capabilities struct {
	llm     llm.Provider
	routing config.LLMRoutingConfig
	logger  *log.Logger
}

// NewCapabilities creates the LLM-backed capability set.
func NewCapabilities(provider llm.Provider, routing config.LLMRoutingConfig) *Capabilities {
	return &Capabilities{
		llm:     provider,
		routing: routing,
		logger:  log.New(log.Writer(), "[CAPABILITY] ", log.LstdFlags),
	}
}

// generate runs one routed model call and accounts for it. Tokens and cost
// are recorded whether or not the caller ends up using the answer.
func (c *Capabilities) generate(ctx context.Context, stage, prompt string) (string, StageUsage, error) {
	model := c.routing.ModelFor(stage)
	out, inTok, outTok, err := c.llm.GenerateWithTokens(ctx, prompt, model, map[string]interface{}{"temperature": 0.0})
	usage := StageUsage{
		Model:        model,
		InputTokens:  inTok,
		OutputTokens: outTok,
		Cost:         c.llm.CalculateCost(inTok, outTok, model),
	}
	return out, usage, err
}

// Predict estimates win probabilities, defaulting to 0.40/0.30/0.30.
func (c *Capabilities) Predict(ctx context.Context, event canonical.Event, bundle matchcontext.Bundle) (Prediction, StageUsage) {
	facts, _ := json.Marshal(bundle)
	prompt := fmt.Sprintf(`You are the prediction module.
Estimate win probabilities for this match.
Return ONLY strict JSON: {"home_win_prob": number, "draw_prob": number, "away_win_prob": number}
Match: %s vs %s (%s, season %d)
Context: %s`, event.HomeTeamName, event.AwayTeamName, event.CompetitionName, event.Season, facts)

	out, usage, err := c.generate(ctx, "prediction", prompt)
	if err != nil {
		c.logger.Printf("prediction fell back to default: %v", err)
		usage.Defaulted = true
		return DefaultPrediction(), usage
	}
	var p Prediction
	if err := json.Unmarshal([]byte(llm.ExtractFirstJSON(out)), &p); err != nil {
		c.logger.Printf("prediction output unparseable, using default: %v", err)
		usage.Defaulted = true
		return DefaultPrediction(), usage
	}
	if p.HomeWinProb <= 0 && p.DrawProb <= 0 && p.AwayWinProb <= 0 {
		usage.Defaulted = true
		return DefaultPrediction(), usage
	}
	return p, usage
}

// Verify rates the value edge, defaulting to Low/Medium.
func (c *Capabilities) Verify(ctx context.Context, p Prediction) (Verification, StageUsage) {
	prompt := fmt.Sprintf(`You are the value verification module.
Given this prediction: {"home_win_prob": %.2f, "draw_prob": %.2f, "away_win_prob": %.2f}
Rate whether the edge is low, medium, or high.
Return ONLY strict JSON: {"value_edge": string, "confidence": string}`,
		p.HomeWinProb, p.DrawProb, p.AwayWinProb)

	out, usage, err := c.generate(ctx, "verification", prompt)
	if err != nil {
		c.logger.Printf("verification fell back to default: %v", err)
		usage.Defaulted = true
		return DefaultVerification(), usage
	}
	var v Verification
	if err := json.Unmarshal([]byte(llm.ExtractFirstJSON(out)), &v); err != nil || v.ValueEdge == "" {
		c.logger.Printf("verification output unparseable, using default")
		usage.Defaulted = true
		return DefaultVerification(), usage
	}
	if v.Confidence == "" {
		v.Confidence = DefaultVerification().Confidence
	}
	return v, usage
}

// SelectAction picks an action tag from the closed set, defaulting to
// neutral on any trouble or off-list answer.
func (c *Capabilities) SelectAction(ctx context.Context) (ActionTag, StageUsage) {
	prompt := `Choose one of these actions:
neutral
safe
value
high_risk
summary
explain
Respond with the action only.`

	out, usage, err := c.generate(ctx, "behavior", prompt)
	if err != nil {
		c.logger.Printf("behavior fell back to default: %v", err)
		usage.Defaulted = true
		return DefaultAction, usage
	}
	action := ActionTag(strings.ToLower(strings.TrimSpace(out)))
	if !allowedActions[action] {
		usage.Defaulted = true
		return DefaultAction, usage
	}
	return action, usage
}

// Recommend synthesizes the final recommendation text, defaulting to the
// fixed fallback sentence.
func (c *Capabilities) Recommend(ctx context.Context, in RecommendationInput) (string, StageUsage) {
	details, _ := json.Marshal(in.Context.EventDetails)
	stats, _ := json.Marshal(in.Context.FocalTeamStats)
	quote, _ := json.Marshal(in.Context.LatestQuote)

	prompt := fmt.Sprintf(`You are a seasoned sports betting analyst. Provide a concise recommendation
based on the provided analysis, structured match facts, and the user's inferred intent.

--- MATCH FACTS ---
MATCH DETAILS: %s
HOME TEAM STATS (Snapshot): %s
LATEST ODDS: %s

--- MODEL ANALYSIS ---
PREDICTION: Home Win Prob: %.2f, Away Win Prob: %.2f
VERIFICATION: Value Edge is %s with %s confidence.

--- INFERRED INTENT ---
BEHAVIOR: %s (Tailor the tone to this action, e.g., low risk, high education).

--- TASK ---
1. Summarize the key data point from the FACTS section (e.g., possession, shots).
2. State the final recommendation (Bet For/Against) and the rationale based on the Value Edge.
3. Keep the entire response clear, concise, and under 4 sentences.`,
		details, stats, quote,
		in.Prediction.HomeWinProb, in.Prediction.AwayWinProb,
		in.Verification.ValueEdge, in.Verification.Confidence,
		in.Action)

	out, usage, err := c.generate(ctx, "recommendation", prompt)
	if err != nil || strings.TrimSpace(out) == "" {
		c.logger.Printf("recommendation fell back to default: %v", err)
		usage.Defaulted = true
		return DefaultRecommendation, usage
	}
	return strings.TrimSpace(out), usage
}

// Review runs the compliance check, defaulting to pass.
func (c *Capabilities) Review(ctx context.Context, text string) (EthicsResult, StageUsage) {
	prompt := fmt.Sprintf(`You are the ethics filter.
Evaluate the following content:
%s
Return ONLY strict JSON: {"status": "pass" or "fail"}`, text)

	out, usage, err := c.generate(ctx, "ethics", prompt)
	if err != nil {
		c.logger.Printf("ethics fell back to default: %v", err)
		usage.Defaulted = true
		return DefaultEthics(), usage
	}
	var e EthicsResult
	if err := json.Unmarshal([]byte(llm.ExtractFirstJSON(out)), &e); err != nil {
		usage.Defaulted = true
		return DefaultEthics(), usage
	}
	switch strings.ToLower(e.Status) {
	case "pass", "fail":
		e.Status = strings.ToLower(e.Status)
	default:
		usage.Defaulted = true
		return DefaultEthics(), usage
	}
	return e, usage
}
