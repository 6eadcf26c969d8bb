package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"revpace/internal/models"
)

// Repository is the unified store used by the pace, pickup, and ensemble
// engines. The ledger tables are read-only from this core; pace/forecast
// tables are exclusively owned by it.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Ledger reconstruction. Both queries count rows occupying the date with
	// status in the given set and placed_at strictly before the cutoff. This
	// is the single capability behind live snapshots and historical backfill.
	RoomOTB(ctx context.Context, q OTBQuery) ([]CategoryOTB, error)
	CoverOTB(ctx context.Context, q CoverOTBQuery) (CoverCounts, error)
	ListRoomBookingsOccupying(ctx context.Context, q BookingQuery) ([]models.RoomBooking, error)
	ListRoomCategories(ctx context.Context, activeOnly bool) ([]models.RoomCategory, error)

	// Pace curves.
	UpsertPaceSnapshots(ctx context.Context, items []models.PaceSnapshot) error
	GetPaceSnapshot(ctx context.Context, domain string, stayDate time.Time, paceType string, leadTime int) (*models.PaceSnapshot, error)
	ListPaceCurve(ctx context.Context, domain string, stayDate time.Time, paceType string) ([]models.PaceSnapshot, error)
	CountPaceSnapshots(ctx context.Context, domain string, stayDate time.Time, paceType string) (int64, error)

	// Rate priors.
	UpsertCategoryRateStats(ctx context.Context, items []models.CategoryRateStats) error
	GetCategoryRateStats(ctx context.Context, categoryID string, stayDate time.Time) (*models.CategoryRateStats, error)

	// Forecast snapshots (backtest substrate).
	UpsertForecastSnapshots(ctx context.Context, items []models.ForecastSnapshot) error
	ListForecastSnapshots(ctx context.Context, params ListForecastParams) ([]models.ForecastSnapshot, error)
	ListUnscoredForecasts(ctx context.Context, before time.Time, limit int) ([]models.ForecastSnapshot, error)
	FillForecastActual(ctx context.Context, id uint64, actual decimal.Decimal) error
	ModelMAPEs(ctx context.Context, metric string, since, until time.Time) ([]ModelMAPE, error)

	// Backtest results.
	UpsertBacktestResults(ctx context.Context, items []models.BacktestResult) error
	ListBacktestResults(ctx context.Context, params ListBacktestParams) ([]models.BacktestResult, error)
	CountBacktestResults(ctx context.Context, params ListBacktestParams) (int64, error)
	ListUnscoredBacktestResults(ctx context.Context, before time.Time, limit int) ([]models.BacktestResult, error)
	SaveBacktestScore(ctx context.Context, id uint64, actual, signed, abs decimal.Decimal, pct *decimal.Decimal) error

	// Budgets.
	GetBudgetValue(ctx context.Context, metric string, date time.Time) (*decimal.Decimal, error)
	UpsertBudgetEntries(ctx context.Context, items []models.BudgetEntry) error

	// Resumable sweep state.
	GetAggregationRun(ctx context.Context, scope string) (*models.AggregationRun, error)
	SaveAggregationRun(ctx context.Context, item *models.AggregationRun) error

	// System settings.
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error)
}

// OTBQuery selects room bookings occupying OccupancyDate
// (arrival <= d < departure). PlacedBefore is an exclusive cutoff on the
// immutable placement timestamp; nil means "ever".
type OTBQuery struct {
	OccupancyDate time.Time
	PlacedBefore  *time.Time
	Statuses      []string
	CategoryID    *string
}

type CategoryOTB struct {
	CategoryID string
	Rooms      int64
	Revenue    decimal.Decimal
}

type CoverOTBQuery struct {
	BookingDate  time.Time
	PlacedBefore *time.Time
	Statuses     []string
	PeriodType   *string
}

type CoverCounts struct {
	Total       int64
	Resident    int64
	NonResident int64
}

// ByPaceType returns the count for a pace_type value.
func (c CoverCounts) ByPaceType(paceType string) int64 {
	switch paceType {
	case models.PaceTypeResident:
		return c.Resident
	case models.PaceTypeNonResident:
		return c.NonResident
	default:
		return c.Total
	}
}

// BookingQuery lists room bookings occupying a date inside a placement
// window; used for rate-distribution work on prior-year pickup bookings.
type BookingQuery struct {
	OccupancyDate time.Time
	PlacedAfter   *time.Time
	PlacedBefore  *time.Time
	Statuses      []string
	CategoryID    *string
	OrderByPlaced bool
	Limit         int
}

type ModelMAPE struct {
	Model   string
	MAPE    float64
	Samples int64
}

type ListForecastParams struct {
	Limit          int
	Offset         int
	Metric         *string
	Model          *string
	TargetFrom     *time.Time
	TargetTo       *time.Time
	PerceptionDate *time.Time
	LeadTime       *int
	OrderBy        string
	Asc            *bool
}

type ListBacktestParams struct {
	Limit      int
	Offset     int
	Metric     *string
	RunID      *string
	TargetFrom *time.Time
	TargetTo   *time.Time
	LeadTime   *int
	OrderBy    string
	Asc        *bool
}
