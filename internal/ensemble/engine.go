package ensemble

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"revpace/internal/models"
	"revpace/internal/pace"
	"revpace/internal/repository"
)

// EnsembleModel tags the combined row in forecast_snapshots, alongside the
// per-producer rows.
const EnsembleModel = "ensemble"

// Engine runs every producer over a date range, combines their outputs with
// accuracy-based weights, and persists the per-producer and combined
// snapshots that future weighting reads.
type Engine struct {
	Repo   repository.Repository
	Logger *zap.Logger

	Producers []ForecastProducer
	Weighting *Weighting
	Blender   *Blender
}

type CombinedForecast struct {
	TargetDate time.Time                `json:"target_date"`
	LeadTime   int                      `json:"lead_time"`
	Value      decimal.Decimal          `json:"value"`
	Components map[string]PointForecast `json:"components"`
	Weights    map[string]float64       `json:"weights"`
}

// Forecast produces combined forecasts for [from, to] as perceived at the
// given instant. Every query is cut off at the perception's calendar day,
// so the same perception always yields the same output regardless of when
// the replay runs. One producer failing drops that producer, not the run.
func (e *Engine) Forecast(ctx context.Context, metric string, from, to, perception time.Time) ([]CombinedForecast, error) {
	if e == nil || e.Repo == nil {
		return nil, nil
	}
	perceptionDate := pace.DateOf(perception)
	cutoff := pace.CutoffFor(perception)

	names := make([]string, 0, len(e.Producers))
	for _, p := range e.Producers {
		names = append(names, p.Name())
	}
	weights := map[string]float64{}
	if e.Weighting != nil {
		var err error
		weights, err = e.Weighting.Weights(ctx, metric, perceptionDate, names)
		if err != nil {
			return nil, err
		}
	} else {
		for _, name := range names {
			weights[name] = 1 / float64(len(names))
		}
	}

	outputs := map[string][]PointForecast{}
	for _, p := range e.Producers {
		points, err := p.Produce(ctx, metric, from, to, cutoff)
		if err != nil {
			if e.Logger != nil {
				e.Logger.Warn("forecast producer failed",
					zap.String("producer", p.Name()),
					zap.String("metric", metric),
					zap.Error(err),
				)
			}
			continue
		}
		outputs[p.Name()] = points
	}

	var combined []CombinedForecast
	var snapshots []models.ForecastSnapshot
	for date := pace.DateOf(from); !date.After(pace.DateOf(to)); date = date.AddDate(0, 0, 1) {
		lead := pace.LeadDays(perceptionDate, date)
		cf := CombinedForecast{
			TargetDate: date,
			LeadTime:   lead,
			Components: map[string]PointForecast{},
			Weights:    map[string]float64{},
		}

		// Weights renormalize over the producers that actually delivered
		// this date.
		available := 0.0
		for name, points := range outputs {
			for _, pt := range points {
				if pt.TargetDate.Equal(date) {
					cf.Components[name] = pt
					available += weights[name]
					break
				}
			}
		}
		if available == 0 {
			continue
		}
		sum := decimal.Zero
		for name, pt := range cf.Components {
			w := weights[name] / available
			cf.Weights[name] = w
			sum = sum.Add(pt.Value.Mul(decimal.NewFromFloat(w)))
			snapshots = append(snapshots, models.ForecastSnapshot{
				PerceptionDate: perceptionDate,
				TargetDate:     date,
				Model:          name,
				MetricCode:     metric,
				LeadTime:       lead,
				ForecastValue:  pt.Value,
				GeneratedAt:    perceptionDate,
			})
		}

		value := sum
		if e.Blender != nil {
			blended, err := e.Blender.Blend(ctx, metric, date, cutoff, sum)
			if err != nil {
				if e.Logger != nil {
					e.Logger.Warn("reference blend failed",
						zap.String("metric", metric),
						zap.String("target_date", date.Format("2006-01-02")),
						zap.Error(err),
					)
				}
			} else {
				value = blended
			}
		}
		cf.Value = value
		snapshots = append(snapshots, models.ForecastSnapshot{
			PerceptionDate: perceptionDate,
			TargetDate:     date,
			Model:          EnsembleModel,
			MetricCode:     metric,
			LeadTime:       lead,
			ForecastValue:  value,
			GeneratedAt:    perceptionDate,
		})
		combined = append(combined, cf)
	}

	if len(snapshots) > 0 {
		if err := e.Repo.UpsertForecastSnapshots(ctx, snapshots); err != nil {
			return nil, err
		}
	}
	return combined, nil
}
