package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"revpace/internal/ensemble"
	"revpace/internal/models"
	"revpace/internal/pace"
	"revpace/internal/repository"
)

type ForecastHandler struct {
	Repo   repository.Repository
	Engine *ensemble.Engine
	Stream *StreamHub
}

func (h *ForecastHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/forecasts")
	g.GET("", h.run)
	g.GET("/snapshots", h.snapshots)
}

// @Summary Run the ensemble forecast over a date range
// @Tags forecasts
// @Param metric query string true "metric code"
// @Param from query string true "first target date (YYYY-MM-DD)"
// @Param to query string true "last target date (YYYY-MM-DD)"
// @Success 200 {object} map[string]any
// @Router /api/v1/forecasts [get]
func (h *ForecastHandler) run(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	metric := c.Query("metric")
	if !models.IsKnownMetric(metric) {
		Error(c, http.StatusBadRequest, "unknown metric", nil)
		return
	}
	from, ok := dateQuery(c, "from")
	if !ok || from == nil {
		Error(c, http.StatusBadRequest, "invalid or missing from", nil)
		return
	}
	to, ok := dateQuery(c, "to")
	if !ok || to == nil {
		Error(c, http.StatusBadRequest, "invalid or missing to", nil)
		return
	}
	if to.Before(*from) {
		Error(c, http.StatusBadRequest, "range ends before it starts", nil)
		return
	}
	if pace.DateOf(*to).Sub(pace.DateOf(*from)).Hours()/24 > pace.MaxLeadDays {
		Error(c, http.StatusBadRequest, "range exceeds the forecast horizon", nil)
		return
	}

	combined, err := h.Engine.Forecast(c.Request.Context(), metric, *from, *to, time.Now().UTC())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	h.Stream.Publish(StreamEvent{
		Type:   "forecast",
		Metric: metric,
		Count:  len(combined),
	})
	Ok(c, combined, map[string]any{"metric": metric, "dates": len(combined)})
}

// @Summary List persisted forecast snapshots
// @Tags forecasts
// @Param metric query string false "metric code"
// @Param model query string false "producer name or ensemble"
// @Success 200 {object} map[string]any
// @Router /api/v1/forecasts/snapshots [get]
func (h *ForecastHandler) snapshots(c *gin.Context) {
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
	perception, ok := dateQuery(c, "perception_date")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid perception_date", nil)
		return
	}

	params := repository.ListForecastParams{
		Limit:          intQuery(c, "limit", 200),
		Offset:         intQuery(c, "offset", 0),
		Metric:         strQueryPtr(c, "metric"),
		Model:          strQueryPtr(c, "model"),
		TargetFrom:     targetFrom,
		TargetTo:       targetTo,
		PerceptionDate: perception,
		LeadTime:       intQueryPtr(c, "lead_time"),
		OrderBy:        "target_date",
		Asc:            boolPtr(true),
	}
	items, err := h.Repo.ListForecastSnapshots(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}
