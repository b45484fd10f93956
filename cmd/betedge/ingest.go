package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/rahulvdev/betedge/config"
	"github.com/rahulvdev/betedge/internal/canonical"
	"github.com/rahulvdev/betedge/internal/providers"
	"github.com/rahulvdev/betedge/internal/store"
)

func ingestCMD() *cobra.Command {
	var cfgPath string
	var season int
	var sport string
	var competition string

	var ingest = &cobra.Command{
		Use:   "ingest",
		Short: "Fetch events from all configured providers and upsert them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := cmd.Context()

			st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
			if err != nil {
				return err
			}
			defer st.DB.Close()

			adapters := providers.New(cfg.Providers)
			if sport != "" {
				kind, err := canonical.ParseSportKind(sport)
				if err != nil {
					return err
				}
				adapter, ok := adapters[kind]
				if !ok {
					log.Printf("no provider configured for %s", kind)
					return nil
				}
				adapters = map[canonical.SportKind]providers.Adapter{kind: adapter}
			}
			if season == 0 {
				now := time.Now()
				season = now.Year()
				if now.Month() < time.July {
					season = now.Year() - 1
				}
			}

			var wg sync.WaitGroup
			for kind, adapter := range adapters {
				wg.Add(1)
				go func(kind canonical.SportKind, adapter providers.Adapter) {
					defer wg.Done()
					ingestSport(ctx, st, kind, adapter, season, competition)
				}(kind, adapter)
			}
			wg.Wait()
			return nil
		},
	}
	ingest.Flags().IntVar(&season, "season", 0, "season start year (default: current season)")
	ingest.Flags().StringVar(&sport, "sport", "", "restrict to one sport (soccer, college_football, college_basketball)")
	ingest.Flags().StringVar(&competition, "competition", "", "competition code filter (soccer only)")
	ingest.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return ingest
}

func ingestSport(ctx context.Context, st *store.Store, kind canonical.SportKind, adapter providers.Adapter, season int, competition string) {
	f := providers.Filters{}
	if kind == canonical.SportSoccer {
		f.CompetitionCode = competition
	}
	events, err := adapter.Fetch(ctx, season, f)
	if err != nil {
		log.Printf("[INGEST] %s season %d: fetch failed: %v", kind, season, err)
		return
	}
	var stored, failed int
	for _, ev := range events {
		if err := st.UpsertEvent(ctx, ev); err != nil {
			failed++
			log.Printf("[INGEST] upsert event %d (%s): %v", ev.EventID, kind, err)
			continue
		}
		stored++
	}
	log.Printf("[INGEST] %s season %d: stored=%d failed=%d", kind, season, stored, failed)
}
