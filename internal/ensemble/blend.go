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

// Blender mixes the ensemble value with an external reference: the budget
// for revenue metrics, the prior year's realized value for volume metrics.
type Blender struct {
	Repo repository.Repository

	// EnsembleWeight/ReferenceWeight default to 0.6/0.4.
	EnsembleWeight  float64
	ReferenceWeight float64
}

// Blend returns the mixed value for one date as observed at asOf. Ledger
// reads behind the reference are capped at asOf, so a replay blends only
// against data its perception could have seen. A date without a reference
// falls back to the pure ensemble for that date only.
func (b *Blender) Blend(ctx context.Context, metric string, date, asOf time.Time, ensembleValue decimal.Decimal) (decimal.Decimal, error) {
	if b == nil || b.Repo == nil {
		return ensembleValue, nil
	}
	ref, err := b.reference(ctx, metric, date, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	if ref == nil {
		return ensembleValue, nil
	}

	ew, rw := b.EnsembleWeight, b.ReferenceWeight
	if ew <= 0 || rw <= 0 {
		ew, rw = 0.6, 0.4
	}
	return ensembleValue.Mul(decimal.NewFromFloat(ew)).
		Add(ref.Mul(decimal.NewFromFloat(rw))), nil
}

func (b *Blender) reference(ctx context.Context, metric string, date, asOf time.Time) (*decimal.Decimal, error) {
	if models.IsRevenueMetric(metric) {
		return b.Repo.GetBudgetValue(ctx, metric, date)
	}
	prior := date.AddDate(0, 0, -pickup.PriorYearOffsetDays)
	if !prior.Before(pace.DateOf(asOf)) {
		return nil, nil
	}
	value, err := Observe(ctx, b.Repo, metric, prior, &asOf)
	if err != nil {
		return nil, err
	}
	if value.IsZero() {
		return nil, nil
	}
	return &value, nil
}
