package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rahulvdev/betedge/internal/canonical"
	"github.com/rahulvdev/betedge/internal/matchcontext"
	"github.com/rahulvdev/betedge/internal/pipeline"
	"github.com/rahulvdev/betedge/internal/store"
	"github.com/rahulvdev/betedge/internal/telemetry"
)

// PipelineHandler exposes the two pipeline entry points.
type PipelineHandler struct {
	Orch  *pipeline.Orchestrator
	Store *store.Store
}

func (h *PipelineHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.POST("/query", h.query)
	g.POST("/analyze", h.analyze)
}

func (h *PipelineHandler) query(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	env := h.Orch.Run(c.Request().Context(), req.Query)
	return c.JSON(http.StatusOK, env)
}

func (h *PipelineHandler) analyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	ev, ok, err := h.Store.GetEvent(ctx, req.EventID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	var selected *canonical.Event
	if ok {
		selected = &ev
	}
	// A missing event surfaces as the pipeline's own error envelope, not
	// an HTTP failure; the envelope is the contract.
	env := h.Orch.RunDeepAnalysis(ctx, selected)
	return c.JSON(http.StatusOK, env)
}

// EventsHandler serves canonical event listings and context bundles.
type EventsHandler struct {
	Store     *store.Store
	Assembler *matchcontext.Assembler
}

func (h *EventsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/context", h.context)
	g.GET("/competitions", h.competitions)
}

func (h *EventsHandler) list(c echo.Context) error {
	// sport is mandatory: the listing query is keyed on sport_kind and an
	// empty kind would match nothing.
	s := c.QueryParam("sport")
	if s == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sport is required")
	}
	kind, err := canonical.ParseSportKind(s)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f := store.QueryFilter{SportKind: kind}
	f.CompetitionName = c.QueryParam("competition")
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from must be RFC3339")
		}
		f.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "to must be RFC3339")
		}
		f.To = t
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		f.Limit = n
	}

	events, err := h.Store.QueryEvents(c.Request().Context(), f)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, EventsResponse{Events: events, Count: len(events)})
}

func (h *EventsHandler) get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "event id must be an integer")
	}
	ev, ok, err := h.Store.GetEvent(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "event not found")
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *EventsHandler) context(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "event id must be an integer")
	}
	bundle := h.Assembler.Assemble(c.Request().Context(), id)
	return c.JSON(http.StatusOK, bundle)
}

func (h *EventsHandler) competitions(c echo.Context) error {
	kind, err := canonical.ParseSportKind(c.QueryParam("sport"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	names, err := h.Store.ListCompetitions(c.Request().Context(), kind)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, names)
}

// ProfilesHandler serves the username-keyed preference records.
type ProfilesHandler struct {
	Store *store.Store
}

func (h *ProfilesHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.GET("/:username", h.get)
	g.PUT("/:username", h.put)
}

func (h *ProfilesHandler) get(c echo.Context) error {
	p, ok, err := h.Store.GetUserProfile(c.Request().Context(), c.Param("username"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProfilesHandler) put(c echo.Context) error {
	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := canonical.UserProfile{
		Username:         c.Param("username"),
		RiskTolerance:    req.RiskTolerance,
		FocusTeams:       req.FocusTeams,
		PreferredLeagues: req.PreferredLeagues,
		UpdatedAt:        time.Now().UTC(),
	}
	if err := h.Store.UpsertUserProfile(c.Request().Context(), p); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

// OpsHandler exposes the telemetry report.
type OpsHandler struct {
	Telemetry *telemetry.Telemetry
}

func (h *OpsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.GET("/report", h.report)
}

func (h *OpsHandler) report(c echo.Context) error {
	return c.String(http.StatusOK, h.Telemetry.Report())
}
