package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"revpace/internal/ensemble"
	"revpace/internal/repository"
)

type BacktestHandler struct {
	Repo   repository.Repository
	Engine *ensemble.BacktestEngine
}

func (h *BacktestHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/backtests")
	g.POST("/run", h.run)
	g.GET("/results", h.results)
}

type runBacktestRequest struct {
	Metric    string `json:"metric"`
	From      string `json:"from"`
	To        string `json:"to"`
	LeadTimes []int  `json:"lead_times"`
}

// @Summary Run a backtest sweep
// @Tags backtests
// @Param request body runBacktestRequest true "sweep parameters"
// @Success 200 {object} map[string]any
// @Router /api/v1/backtests/run [post]
func (h *BacktestHandler) run(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "backtest engine unavailable", nil)
		return
	}
	var req runBacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	from, err := time.Parse("2006-01-02", strings.TrimSpace(req.From))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid from date", nil)
		return
	}
	to, err := time.Parse("2006-01-02", strings.TrimSpace(req.To))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid to date", nil)
		return
	}

	report, err := h.Engine.Run(c.Request.Context(), ensemble.BacktestRequest{
		Metric:    req.Metric,
		From:      from.UTC(),
		To:        to.UTC(),
		LeadTimes: req.LeadTimes,
	})
	if err != nil {
		// Run only fails on bad parameters or a store-level error; cell
		// failures come back inline.
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Ok(c, report, map[string]any{
		"run_id":  report.RunID,
		"results": len(report.Results),
		"skipped": report.Skipped,
	})
}

// @Summary List persisted backtest results
// @Tags backtests
// @Param metric query string false "metric code"
// @Param run_id query string false "sweep run id"
// @Success 200 {object} map[string]any
// @Router /api/v1/backtests/results [get]
func (h *BacktestHandler) results(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	targetFrom, ok := dateQuery(c, "target_from")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid target_from", nil)
		return
	}
	targetTo, ok := dateQuery(c, "target_to")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid target_to", nil)
		return
	}

	limit := intQuery(c, "limit", 200)
	offset := intQuery(c, "offset", 0)
	params := repository.ListBacktestParams{
		Limit:      limit,
		Offset:     offset,
		Metric:     strQueryPtr(c, "metric"),
		RunID:      strQueryPtr(c, "run_id"),
		TargetFrom: targetFrom,
		TargetTo:   targetTo,
		LeadTime:   intQueryPtr(c, "lead_time"),
		OrderBy:    "target_date",
		Asc:        boolPtr(true),
	}
	items, err := h.Repo.ListBacktestResults(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountBacktestResults(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}
