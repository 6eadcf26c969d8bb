package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"revpace/internal/cache"
	"revpace/internal/models"
	"revpace/internal/pickup"
	"revpace/internal/repository"
	"revpace/internal/service"
)

// OverviewCachePrefix keys the cached per-date overviews; snapshot runs
// invalidate it.
const OverviewCachePrefix = "revpace:overview:"

type PaceHandler struct {
	Repo       repository.Repository
	Forecaster *pickup.Forecaster
	Cache      *cache.Cache
	Flags      *service.SystemSettingsService
}

func (h *PaceHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/pace")
	g.GET("/overview", h.overview)
	g.GET("/curve", h.curve)
}

type revenueBounds struct {
	Point   decimal.Decimal `json:"point"`
	Lower   decimal.Decimal `json:"lower"`
	Upper   decimal.Decimal `json:"upper"`
	Ceiling decimal.Decimal `json:"ceiling"`
}

type paceOverview struct {
	StayDate         string           `json:"stay_date"`
	LeadTime         int              `json:"lead_time"`
	CurrentOTB       int64            `json:"current_otb"`
	PriorYearOTB     *int64           `json:"prior_year_otb,omitempty"`
	PriorYearFinal   *int64           `json:"prior_year_final,omitempty"`
	PickupForecast   int64            `json:"pickup_forecast"`
	RevenueBounds    *revenueBounds   `json:"revenue_bounds,omitempty"`
	PaceVsPriorPct   *decimal.Decimal `json:"pace_vs_prior_pct,omitempty"`
	LostPotential    *decimal.Decimal `json:"lost_potential,omitempty"`
	ProjectionMethod string           `json:"projection_method"`
}

// @Summary Pace overview for one stay date
// @Tags pace
// @Param date query string true "stay date (YYYY-MM-DD)"
// @Success 200 {object} map[string]any
// @Router /api/v1/pace/overview [get]
func (h *PaceHandler) overview(c *gin.Context) {
	if h.Forecaster == nil {
		Error(c, http.StatusInternalServerError, "forecaster unavailable", nil)
		return
	}
	date, ok := dateQuery(c, "date")
	if !ok || date == nil {
		Error(c, http.StatusBadRequest, "invalid or missing date", nil)
		return
	}
	ctx := c.Request.Context()

	cacheKey := OverviewCachePrefix + date.Format("2006-01-02")
	useCache := h.Flags.IsEnabled(ctx, service.FeatureOverviewCache, true)
	if useCache {
		var cached paceOverview
		if h.Cache.Get(ctx, cacheKey, &cached) {
			Ok(c, cached, map[string]any{"cached": true})
			return
		}
	}

	asOf := time.Now().UTC()
	rooms, err := h.Forecaster.Rooms(ctx, *date, asOf)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := paceOverview{
		StayDate:         rooms.StayDate.Format("2006-01-02"),
		LeadTime:         rooms.LeadTime,
		CurrentOTB:       rooms.CurrentOTB,
		PriorYearOTB:     rooms.PriorYearOTB,
		PriorYearFinal:   rooms.PriorYearFinal,
		PickupForecast:   rooms.Forecast,
		ProjectionMethod: rooms.Method,
	}
	if rooms.PriorYearOTB != nil && *rooms.PriorYearOTB > 0 {
		pct := decimal.NewFromInt(rooms.CurrentOTB).
			Div(decimal.NewFromInt(*rooms.PriorYearOTB)).
			Sub(decimal.NewFromInt(1)).
			Mul(decimal.NewFromInt(100))
		out.PaceVsPriorPct = &pct
	}

	// Revenue bounds are additive: a failure there degrades the overview
	// instead of erroring it.
	if revenue, err := h.Forecaster.Revenue(ctx, *date, asOf); err == nil && revenue != nil {
		out.RevenueBounds = &revenueBounds{
			Point:   revenue.Point,
			Lower:   revenue.Lower,
			Upper:   revenue.Upper,
			Ceiling: revenue.Ceiling,
		}
		if revenue.LostPotential.IsPositive() {
			out.LostPotential = &revenue.LostPotential
		}
	}

	if useCache {
		h.Cache.Set(ctx, cacheKey, out)
	}
	Ok(c, out, nil)
}

// @Summary Pace curve for one stay date
// @Tags pace
// @Param domain query string false "rooms or covers"
// @Param date query string true "stay date (YYYY-MM-DD)"
// @Param pace_type query string false "total, resident or non_resident"
// @Success 200 {object} map[string]any
// @Router /api/v1/pace/curve [get]
func (h *PaceHandler) curve(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	date, ok := dateQuery(c, "date")
	if !ok || date == nil {
		Error(c, http.StatusBadRequest, "invalid or missing date", nil)
		return
	}
	domain := strings.TrimSpace(c.DefaultQuery("domain", models.PaceDomainRooms))
	if domain != models.PaceDomainRooms && domain != models.PaceDomainCovers {
		Error(c, http.StatusBadRequest, "invalid domain", nil)
		return
	}
	paceType := strings.TrimSpace(c.DefaultQuery("pace_type", models.PaceTypeTotal))
	switch paceType {
	case models.PaceTypeTotal, models.PaceTypeResident, models.PaceTypeNonResident:
	default:
		Error(c, http.StatusBadRequest, "invalid pace_type", nil)
		return
	}

	curve, err := h.Repo.ListPaceCurve(c.Request.Context(), domain, *date, paceType)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, curve, map[string]any{"points": len(curve)})
}
