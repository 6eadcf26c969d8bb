package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"revpace/internal/ensemble"
	"revpace/internal/pace"
	"revpace/internal/repository"
)

// ActualsService settles forecasts whose target date has passed: it
// reconstructs the realized value from the ledger and writes it onto
// forecast snapshots (feeding accuracy weighting) and backtest rows.
type ActualsService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Flags  *SystemSettingsService

	// BatchSize bounds rows settled per pass. Zero means 500.
	BatchSize int
}

func (s *ActualsService) Run(ctx context.Context, interval time.Duration) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("actuals run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *ActualsService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureActualsFill, true) {
		return nil
	}
	today := pace.DateOf(time.Now().UTC())
	batch := s.BatchSize
	if batch <= 0 {
		batch = 500
	}

	forecasts, err := s.Repo.ListUnscoredForecasts(ctx, today, batch)
	if err != nil {
		return err
	}
	filled := 0
	for i := range forecasts {
		f := &forecasts[i]
		actual, err := ensemble.Observe(ctx, s.Repo, f.MetricCode, f.TargetDate, nil)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("actual reconstruction failed",
					zap.String("metric", f.MetricCode),
					zap.String("target_date", f.TargetDate.Format("2006-01-02")),
					zap.Error(err),
				)
			}
			continue
		}
		if err := s.Repo.FillForecastActual(ctx, f.ID, actual); err != nil {
			return err
		}
		filled++
	}

	results, err := s.Repo.ListUnscoredBacktestResults(ctx, today, batch)
	if err != nil {
		return err
	}
	scored := 0
	for i := range results {
		r := &results[i]
		actual, err := ensemble.Observe(ctx, s.Repo, r.MetricCode, r.TargetDate, nil)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("backtest scoring failed",
					zap.String("metric", r.MetricCode),
					zap.String("target_date", r.TargetDate.Format("2006-01-02")),
					zap.Error(err),
				)
			}
			continue
		}
		signed := r.ProjectedValue.Sub(actual)
		abs := signed.Abs()
		var pct *decimal.Decimal
		if !actual.IsZero() {
			v := abs.Div(actual.Abs()).Mul(decimal.NewFromInt(100))
			pct = &v
		}
		if err := s.Repo.SaveBacktestScore(ctx, r.ID, actual, signed, abs, pct); err != nil {
			return err
		}
		scored++
	}

	if s.Logger != nil && (filled > 0 || scored > 0) {
		s.Logger.Info("actuals settled",
			zap.Int("forecasts_filled", filled),
			zap.Int("backtests_scored", scored),
		)
	}
	return nil
}
