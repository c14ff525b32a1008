package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/newsight/internal/index"
	"github.com/mohammad-safakhou/newsight/internal/pipeline"
	"github.com/mohammad-safakhou/newsight/internal/store"
)

// Runner executes one pipeline pass. Satisfied by *pipeline.Orchestrator.
type Runner interface {
	Run(ctx context.Context, userPrompt string, opts pipeline.Options) pipeline.State
}

// Handlers holds the API's collaborators. Archive may be nil when no
// Postgres backend is configured; the report routes then answer 503.
type Handlers struct {
	Runner  Runner
	Index   *index.Index
	Keyword *index.Keyword
	Archive *store.Store
	Logger  *log.Logger
}

// Register attaches the API routes.
func (h *Handlers) Register(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/runs", h.createRun)
	api.GET("/search", h.search)
	api.GET("/search/keyword", h.searchKeyword)
	api.GET("/reports", h.listReports)
	api.GET("/reports/:id", h.getReport)
}

type runRequest struct {
	Prompt      string `json:"prompt"`
	MaxArticles int    `json:"max_articles"`
	RunCritique *bool  `json:"run_critique"`
}

func (h *Handlers) createRun(c echo.Context) error {
	var req runRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt is required")
	}

	critique := true
	if req.RunCritique != nil {
		critique = *req.RunCritique
	}
	st := h.Runner.Run(c.Request().Context(), req.Prompt, pipeline.Options{
		MaxArticles: req.MaxArticles,
		RunCritique: critique,
	})
	return c.JSON(http.StatusOK, st)
}

func (h *Handlers) search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	k := intParam(c, "k", 5)

	hits, err := h.Index.Search(c.Request().Context(), q, k)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if bias := c.QueryParam("bias"); bias != "" {
		filtered := make([]index.Hit, 0, len(hits))
		for _, hit := range hits {
			if hit.Meta.Bias == bias {
				filtered = append(filtered, hit)
			}
		}
		hits = filtered
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"hits": hits})
}

func (h *Handlers) searchKeyword(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	hits, err := h.Keyword.Search(q, intParam(c, "k", 5))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// resolve archived reports when the archive is up
	out := make([]map[string]interface{}, 0, len(hits))
	for _, hit := range hits {
		entry := map[string]interface{}{"id": hit.ID, "score": hit.Score}
		if h.Archive != nil {
			if r, err := h.Archive.GetReport(c.Request().Context(), hit.ID); err == nil {
				entry["report"] = r
			}
		}
		out = append(out, entry)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"hits": out})
}

func (h *Handlers) listReports(c echo.Context) error {
	if h.Archive == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "report archive not configured")
	}
	reports, err := h.Archive.ListReports(c.Request().Context(), intParam(c, "limit", 20))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"reports": reports})
}

func (h *Handlers) getReport(c echo.Context) error {
	if h.Archive == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "report archive not configured")
	}
	r, err := h.Archive.GetReport(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func intParam(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
