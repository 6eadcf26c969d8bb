package ensemble

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"revpace/internal/models"
	"revpace/internal/repository"
)

// PointForecast is the only thing the blending engine knows about a model's
// output.
type PointForecast struct {
	TargetDate time.Time       `json:"target_date"`
	Value      decimal.Decimal `json:"value"`
	Method     string          `json:"method"`
}

// ForecastProducer is the seam model-specific code lives behind. Produce
// must use only data visible at asOf, so the same producer serves live
// forecasting and perception-date replays.
type ForecastProducer interface {
	Name() string
	Produce(ctx context.Context, metric string, from, to, asOf time.Time) ([]PointForecast, error)
}

// Observe reconstructs the realized value of a metric for a date as seen at
// an instant. A nil cutoff reads the final value; that is what actuals
// backfill and backtest scoring use once the date has passed.
func Observe(ctx context.Context, repo repository.Repository, metric string, date time.Time, placedBefore *time.Time) (decimal.Decimal, error) {
	statuses := models.ActiveBookingStatuses()
	switch metric {
	case models.MetricRoomsSold, models.MetricRoomRevenue, models.MetricOccupancyPct:
		rows, err := repo.RoomOTB(ctx, repository.OTBQuery{
			OccupancyDate: date,
			PlacedBefore:  placedBefore,
			Statuses:      statuses,
		})
		if err != nil {
			return decimal.Zero, err
		}
		var rooms int64
		revenue := decimal.Zero
		for _, row := range rows {
			rooms += row.Rooms
			revenue = revenue.Add(row.Revenue)
		}
		switch metric {
		case models.MetricRoomRevenue:
			return revenue, nil
		case models.MetricOccupancyPct:
			capacity, err := totalCapacity(ctx, repo)
			if err != nil {
				return decimal.Zero, err
			}
			if capacity == 0 {
				return decimal.Zero, nil
			}
			return decimal.NewFromInt(rooms).
				Div(decimal.NewFromInt(capacity)).
				Mul(decimal.NewFromInt(100)), nil
		default:
			return decimal.NewFromInt(rooms), nil
		}
	default:
		counts, err := repo.CoverOTB(ctx, repository.CoverOTBQuery{
			BookingDate:  date,
			PlacedBefore: placedBefore,
			Statuses:     statuses,
		})
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromInt(counts.ByPaceType(models.CoverPaceType(metric))), nil
	}
}

func totalCapacity(ctx context.Context, repo repository.Repository) (int64, error) {
	categories, err := repo.ListRoomCategories(ctx, true)
	if err != nil {
		return 0, err
	}
	var capacity int64
	for _, c := range categories {
		capacity += int64(c.Capacity)
	}
	return capacity, nil
}
