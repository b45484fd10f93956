package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/rahulvdev/betedge/internal/canonical"
	"github.com/rahulvdev/betedge/internal/providers"
	"github.com/rahulvdev/betedge/internal/store"
)

// Scheduler periodically re-ingests every configured sport so scores and
// statuses keep moving through their lifecycle. The upsert contract makes
// each refresh idempotent; overlapping instances are fenced with a redis
// lock when one is configured.
type Scheduler struct {
	Store    *store.Store
	Adapters map[canonical.SportKind]providers.Adapter
	Rdb      *redis.Client
	Cron     string
	Stop     chan struct{}

	logger  *log.Logger
	lastRun time.Time
}

func NewScheduler(st *store.Store, adapters map[canonical.SportKind]providers.Adapter, rdb *redis.Client, cron string) *Scheduler {
	return &Scheduler{
		Store:    st,
		Adapters: adapters,
		Rdb:      rdb,
		Cron:     cron,
		Stop:     make(chan struct{}),
		logger:   log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
	}
}

// Start launches the refresh loop. An empty cron spec disables it.
func (s *Scheduler) Start() {
	if s.Cron == "" {
		s.logger.Println("refresh scheduler disabled (no cron spec)")
		return
	}
	if _, err := cronexpr.Parse(s.Cron); err != nil {
		s.logger.Printf("invalid cron spec %q, scheduler disabled: %v", s.Cron, err)
		return
	}

	ticker := time.NewTicker(1 * time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				if s.due(time.Now()) {
					s.tick()
				}
			}
		}
	}()
}

func (s *Scheduler) due(now time.Time) bool {
	expr, err := cronexpr.Parse(s.Cron)
	if err != nil {
		return false
	}
	if s.lastRun.IsZero() {
		return true
	}
	return !expr.Next(s.lastRun).After(now)
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	s.lastRun = time.Now()

	if s.Rdb != nil {
		ok, _ := s.Rdb.SetNX(ctx, "sched:lock:ingest", "1", 2*time.Minute).Result()
		if !ok {
			return
		}
		defer s.Rdb.Del(ctx, "sched:lock:ingest")
	}

	season := currentSeason(time.Now())
	for kind, adapter := range s.Adapters {
		events, err := adapter.Fetch(ctx, season, providers.Filters{})
		if err != nil {
			s.logger.Printf("refresh %s season %d: fetch failed: %v", kind, season, err)
			continue
		}
		var stored, failed int
		for _, ev := range events {
			if err := s.Store.UpsertEvent(ctx, ev); err != nil {
				failed++
				s.logger.Printf("refresh: upsert event %d failed: %v", ev.EventID, err)
				continue
			}
			stored++
		}
		s.logger.Printf("refresh %s season %d: %d stored, %d failed", kind, season, stored, failed)
	}
}

// currentSeason is the season-start year: European soccer seasons roll over
// mid-year, so before July the current season started last calendar year.
func currentSeason(now time.Time) int {
	if now.Month() < time.July {
		return now.Year() - 1
	}
	return now.Year()
}
