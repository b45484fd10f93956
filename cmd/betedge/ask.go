package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/rahulvdev/betedge/config"
	"github.com/rahulvdev/betedge/internal/llm"
	"github.com/rahulvdev/betedge/internal/matchcontext"
	"github.com/rahulvdev/betedge/internal/odds"
	"github.com/rahulvdev/betedge/internal/pipeline"
	"github.com/rahulvdev/betedge/internal/providers"
	"github.com/rahulvdev/betedge/internal/store"
	"github.com/rahulvdev/betedge/internal/telemetry"
)

// askCMD runs one pipeline pass from the terminal, no HTTP server involved.
// Handy for poking at prompts and provider wiring during development.
func askCMD() *cobra.Command {
	var cfgPath string
	var analyzeID int64

	var ask = &cobra.Command{
		Use:   "ask [query...]",
		Short: "Run a single pipeline query and print the result envelope",
		Args:  cobra.MinimumNArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := cmd.Context()

			st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
			if err != nil {
				return err
			}
			defer st.DB.Close()

			llmProvider, err := llm.New(cfg.LLM)
			if err != nil {
				return err
			}

			var rdb *redis.Client
			if cfg.Storage.Redis.Host != "" {
				rdb = redis.NewClient(&redis.Options{
					Addr:     cfg.Storage.Redis.Addr(),
					Password: cfg.Storage.Redis.Password,
					DB:       cfg.Storage.Redis.DB,
				})
			}

			tele := telemetry.New(cfg.Telemetry, prometheus.NewRegistry())
			assembler := matchcontext.New(st)
			caps := pipeline.NewCapabilities(llmProvider, cfg.LLM.Routing)
			orch := pipeline.New(pipeline.Deps{
				Interpreter:        pipeline.NewInterpreter(llmProvider, cfg.LLM.Routing),
				Adapters:           providers.New(cfg.Providers),
				Store:              st,
				Odds:               odds.NewService(odds.NewClient(cfg.Odds), rdb, cfg.Odds),
				Assembler:          assembler,
				Prediction:         caps,
				Verification:       caps,
				Behavior:           caps,
				Recommendation:     caps,
				Ethics:             caps,
				Telemetry:          tele,
				DefaultCompetition: cfg.Providers.Football.DefaultCompetition,
			})

			var env pipeline.Envelope
			if analyzeID != 0 {
				ev, ok, err := st.GetEvent(ctx, analyzeID)
				if err != nil {
					return err
				}
				if !ok {
					env = orch.RunDeepAnalysis(ctx, nil)
				} else {
					env = orch.RunDeepAnalysis(ctx, &ev)
				}
			} else {
				query := strings.Join(args, " ")
				if strings.TrimSpace(query) == "" {
					return fmt.Errorf("provide a query or --analyze <event_id>")
				}
				env = orch.Run(ctx, query)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(env)
		},
	}
	ask.Flags().Int64Var(&analyzeID, "analyze", 0, "run deep analysis for a stored event id instead of a query")
	ask.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return ask
}
