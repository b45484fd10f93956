package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/rahulvdev/betedge/config"
	"github.com/rahulvdev/betedge/internal/canonical"
	"github.com/rahulvdev/betedge/internal/llm"
)

// QueryInterpreter turns free text into a validated structured intent. The
// returned StageUsage accounts for the model call even when the intent is
// rejected; tokens were consumed either way.
type QueryInterpreter interface {
	Interpret(ctx context.Context, query string) (StructuredIntent, StageUsage, error)
}

// Interpreter is the LLM-backed QueryInterpreter. Its failure mode is
// strict: if the model cannot produce a schema-valid intent the error is a
// ValidationError and the orchestrator terminates with query_error. Intents
// are never guessed or defaulted.
type Interpreter struct {
	llm     llm.Provider
	routing config.LLMRoutingConfig
	logger  *log.Logger
	now     func() time.Time
}

// NewInterpreter creates an interpreter routed per configuration.
func NewInterpreter(provider llm.Provider, routing config.LLMRoutingConfig) *Interpreter {
	return &Interpreter{
		llm:     provider,
		routing: routing,
		logger:  log.New(log.Writer(), "[INTERPRETER] ", log.LstdFlags),
		now:     time.Now,
	}
}

const interpretPromptFmt = `You are an expert sports data query translator.
Convert the natural language question into structured JSON parameters.

Current Year: %d

RULES:
1. sport_kind must be one of: soccer, college_football, college_basketball.
2. Soccer leagues map to competition_code: PL, PD, SA, BL1, FL1, CL.
3. "College", "NCAA" mean college_football or college_basketball.
4. "this season" means %d. "last season" means %d.
5. Extract clean team names into team_name.
6. season is the YYYY season start year and is mandatory.

Return ONLY strict JSON:
{"sport_kind": string, "team_name": string or null, "competition_code": string or null, "season": number}

QUESTION: %s`

// Interpret runs the query through the routed model and validates the
// result. Both LLM failures and schema violations are returned as errors;
// the caller maps them all to query_error.
func (i *Interpreter) Interpret(ctx context.Context, query string) (StructuredIntent, StageUsage, error) {
	year := i.now().Year()
	prompt := fmt.Sprintf(interpretPromptFmt, year, year, year-1, query)

	model := i.routing.ModelFor("interpret")
	out, inTok, outTok, err := i.llm.GenerateWithTokens(ctx, prompt, model, map[string]interface{}{"temperature": 0.0})
	usage := StageUsage{
		Model:        model,
		InputTokens:  inTok,
		OutputTokens: outTok,
		Cost:         i.llm.CalculateCost(inTok, outTok, model),
	}
	if err != nil {
		i.logger.Printf("interpret call failed: %v", err)
		return StructuredIntent{}, usage, fmt.Errorf("interpret: %w", err)
	}

	// The wire struct tolerates the older sport_type field name and the
	// older competition spellings (a human league name, or the numeric
	// league id the previous upstream used); validation stays strict about
	// what comes out.
	var wire struct {
		SportKind       string `json:"sport_kind"`
		SportType       string `json:"sport_type"`
		TeamName        string `json:"team_name"`
		CompetitionCode string `json:"competition_code"`
		Competition     string `json:"competition"`
		LeagueID        int64  `json:"league_id"`
		Season          int    `json:"season"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractFirstJSON(out)), &wire); err != nil {
		i.logger.Printf("interpret produced non-JSON output: %v", err)
		return StructuredIntent{}, usage, &ValidationError{Field: "response", Reason: "is not valid JSON"}
	}

	sport := wire.SportKind
	if sport == "" {
		sport = wire.SportType
	}
	comp := wire.CompetitionCode
	if comp == "" {
		comp = wire.Competition
	}
	if wire.LeagueID != 0 || (comp != "" && !isCompetitionCode(comp)) {
		if code, ok := canonical.CompetitionCode(comp, wire.LeagueID, ""); ok {
			comp = code
		}
		// Unresolvable names stay as-is and fail validation below.
	}
	intent := StructuredIntent{
		SportKind:       canonical.SportKind(sport),
		TeamName:        wire.TeamName,
		CompetitionCode: comp,
		Season:          wire.Season,
	}
	if err := intent.Validate(); err != nil {
		i.logger.Printf("interpret produced invalid intent: %v", err)
		return StructuredIntent{}, usage, err
	}

	i.logger.Printf("interpreted %q as %+v", query, intent)
	return intent, usage, nil
}
