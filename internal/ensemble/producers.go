package ensemble

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"revpace/internal/models"
	"revpace/internal/pace"
	"revpace/internal/pickup"
	"revpace/internal/repository"
)

// PickupProducer wraps the pickup forecaster as an ensemble member.
type PickupProducer struct {
	Forecaster *pickup.Forecaster
}

func (p *PickupProducer) Name() string { return "pickup" }

func (p *PickupProducer) Produce(ctx context.Context, metric string, from, to, asOf time.Time) ([]PointForecast, error) {
	var out []PointForecast
	for date := pace.DateOf(from); !date.After(pace.DateOf(to)); date = date.AddDate(0, 0, 1) {
		var pf PointForecast
		pf.TargetDate = date
		switch metric {
		case models.MetricRoomsSold:
			r, err := p.Forecaster.Rooms(ctx, date, asOf)
			if err != nil {
				return nil, err
			}
			pf.Value = decimal.NewFromInt(r.Forecast)
			pf.Method = r.Method
		case models.MetricOccupancyPct:
			o, err := p.Forecaster.Occupancy(ctx, date, asOf)
			if err != nil {
				return nil, err
			}
			pf.Value = o.Forecast
			pf.Method = o.Method
		case models.MetricRoomRevenue:
			r, err := p.Forecaster.Revenue(ctx, date, asOf)
			if err != nil {
				return nil, err
			}
			pf.Value = r.Point
			pf.Method = r.Method
		default:
			c, err := p.Forecaster.Covers(ctx, date, asOf, models.CoverPaceType(metric))
			if err != nil {
				return nil, err
			}
			pf.Value = decimal.NewFromInt(c.Forecast)
			pf.Method = c.Method
		}
		out = append(out, pf)
	}
	return out, nil
}

// PriorYearProducer predicts the prior year's realized value, 364 days
// back. Naive on purpose: it anchors the ensemble and gives the weighting a
// baseline to beat.
type PriorYearProducer struct {
	Repo repository.Repository
}

func (p *PriorYearProducer) Name() string { return "prior_year" }

func (p *PriorYearProducer) Produce(ctx context.Context, metric string, from, to, asOf time.Time) ([]PointForecast, error) {
	var out []PointForecast
	for date := pace.DateOf(from); !date.After(pace.DateOf(to)); date = date.AddDate(0, 0, 1) {
		prior := date.AddDate(0, 0, -pickup.PriorYearOffsetDays)
		// The prior date may still have been in the future at asOf; cap the
		// view so a replay never sees data placed after its perception.
		cutoff := asOf
		value, err := Observe(ctx, p.Repo, metric, prior, &cutoff)
		if err != nil {
			return nil, err
		}
		out = append(out, PointForecast{TargetDate: date, Value: value, Method: "prior_year"})
	}
	return out, nil
}

// PaceTrendProducer scales the current position by the prior year's
// remaining-growth ratio at the same lead. The multiplicative sibling of
// the additive pickup model; diverges from it when the property is pacing
// well ahead of or behind last year.
type PaceTrendProducer struct {
	Repo  repository.Repository
	Epoch time.Time
}

func (p *PaceTrendProducer) Name() string { return "pace_trend" }

func (p *PaceTrendProducer) Produce(ctx context.Context, metric string, from, to, asOf time.Time) ([]PointForecast, error) {
	var out []PointForecast
	for date := pace.DateOf(from); !date.After(pace.DateOf(to)); date = date.AddDate(0, 0, 1) {
		current, err := Observe(ctx, p.Repo, metric, date, &asOf)
		if err != nil {
			return nil, err
		}
		pf := PointForecast{TargetDate: date, Value: current, Method: "otb_only"}

		prior := date.AddDate(0, 0, -pickup.PriorYearOffsetDays)
		priorAsOf := asOf.AddDate(0, 0, -pickup.PriorYearOffsetDays)
		if pace.LeadDays(asOf, date) > 0 && (p.Epoch.IsZero() || !priorAsOf.Before(p.Epoch)) {
			priorOTB, err := Observe(ctx, p.Repo, metric, prior, &priorAsOf)
			if err != nil {
				return nil, err
			}
			priorFinal, err := Observe(ctx, p.Repo, metric, prior, &asOf)
			if err != nil {
				return nil, err
			}
			if priorOTB.IsPositive() && priorFinal.IsPositive() {
				ratio := priorFinal.Div(priorOTB)
				if ratio.LessThan(decimal.NewFromInt(1)) {
					ratio = decimal.NewFromInt(1)
				}
				pf.Value = current.Mul(ratio)
				pf.Method = "pace_trend"
			}
		}
		out = append(out, pf)
	}
	return out, nil
}
