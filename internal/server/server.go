// Package server wires the full application behind an echo HTTP API:
// auth, the two pipeline entry points, event listings, profiles, and the
// periodic ingest refresh.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rahulvdev/betedge/config"
	"github.com/rahulvdev/betedge/internal/llm"
	"github.com/rahulvdev/betedge/internal/matchcontext"
	"github.com/rahulvdev/betedge/internal/odds"
	"github.com/rahulvdev/betedge/internal/pipeline"
	"github.com/rahulvdev/betedge/internal/providers"
	"github.com/rahulvdev/betedge/internal/store"
	"github.com/rahulvdev/betedge/internal/telemetry"
)

// Run starts the API server, blocking until it exits.
func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging.
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	llmProvider, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}

	tele := telemetry.New(cfg.Telemetry, prometheus.DefaultRegisterer)

	// Redis is optional: without it the odds board is fetched per run and
	// the scheduler loses its cross-instance lock, nothing more.
	var rdb *redis.Client
	if cfg.Storage.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
	}

	adapters := providers.New(cfg.Providers)
	oddsSvc := odds.NewService(odds.NewClient(cfg.Odds), rdb, cfg.Odds)
	assembler := matchcontext.New(st)
	caps := pipeline.NewCapabilities(llmProvider, cfg.LLM.Routing)

	orch := pipeline.New(pipeline.Deps{
		Interpreter:        pipeline.NewInterpreter(llmProvider, cfg.LLM.Routing),
		Adapters:           adapters,
		Store:              st,
		Odds:               oddsSvc,
		Assembler:          assembler,
		Prediction:         caps,
		Verification:       caps,
		Behavior:           caps,
		Recommendation:     caps,
		Ethics:             caps,
		Telemetry:          tele,
		DefaultCompetition: cfg.Providers.Football.DefaultCompetition,
	})

	secret := cfg.Server.JWTSecret
	if secret == "" {
		return fmt.Errorf("jwt secret not configured (server.jwt_secret)")
	}

	api := e.Group("/api")
	auth := &AuthHandler{Store: st, Secret: []byte(secret)}
	auth.Register(api.Group("/auth"))

	ph := &PipelineHandler{Orch: orch, Store: st}
	ph.Register(api.Group(""), auth.Secret)

	eh := &EventsHandler{Store: st, Assembler: assembler}
	eh.Register(api.Group("/events"), auth.Secret)

	prh := &ProfilesHandler{Store: st}
	prh.Register(api.Group("/profile"), auth.Secret)

	oh := &OpsHandler{Telemetry: tele}
	oh.Register(api.Group("/ops"), auth.Secret)

	sched := NewScheduler(st, adapters, rdb, cfg.Server.IngestCron)
	sched.Start()

	if addr == "" {
		addr = cfg.Server.Address
		if addr == "" {
			addr = ":10020"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
