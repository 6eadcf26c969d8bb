package gormrepository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"revpace/internal/models"
	"revpace/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Ledger reconstruction -------------------------------------------------

func (s *Store) RoomOTB(ctx context.Context, q repository.OTBQuery) ([]repository.CategoryOTB, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	day := q.OccupancyDate.Format("2006-01-02")
	// Nightly revenue comes from the jsonb tariff breakdown; bookings without
	// an entry for this night fall back to the total spread over the stay.
	query := s.db.WithContext(ctx).
		Table("room_bookings").
		Select(`
			category_id,
			COUNT(*) AS rooms,
			COALESCE(SUM(COALESCE(
				(rate_payload->>?)::numeric,
				total_net / GREATEST(departure_date::date - arrival_date::date, 1)
			)), 0) AS revenue
		`, day).
		Where("arrival_date <= ?", day).
		Where("departure_date > ?", day)
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if q.PlacedBefore != nil {
		query = query.Where("placed_at < ?", *q.PlacedBefore)
	}
	if q.CategoryID != nil && strings.TrimSpace(*q.CategoryID) != "" {
		query = query.Where("category_id = ?", strings.TrimSpace(*q.CategoryID))
	}
	var rows []repository.CategoryOTB
	if err := query.Group("category_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CoverOTB(ctx context.Context, q repository.CoverOTBQuery) (repository.CoverCounts, error) {
	if s == nil || s.db == nil {
		return repository.CoverCounts{}, nil
	}
	day := q.BookingDate.Format("2006-01-02")
	query := s.db.WithContext(ctx).
		Table("cover_bookings").
		Select(`
			COALESCE(SUM(covers), 0) AS total,
			COALESCE(SUM(covers) FILTER (WHERE resident), 0) AS resident,
			COALESCE(SUM(covers) FILTER (WHERE NOT resident), 0) AS non_resident
		`).
		Where("booking_date = ?", day)
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if q.PlacedBefore != nil {
		query = query.Where("placed_at < ?", *q.PlacedBefore)
	}
	if q.PeriodType != nil && strings.TrimSpace(*q.PeriodType) != "" {
		query = query.Where("period_type = ?", strings.TrimSpace(*q.PeriodType))
	}
	var counts repository.CoverCounts
	if err := query.Scan(&counts).Error; err != nil {
		return repository.CoverCounts{}, err
	}
	return counts, nil
}

func (s *Store) ListRoomBookingsOccupying(ctx context.Context, q repository.BookingQuery) ([]models.RoomBooking, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	day := q.OccupancyDate.Format("2006-01-02")
	query := s.db.WithContext(ctx).
		Model(&models.RoomBooking{}).
		Where("arrival_date <= ?", day).
		Where("departure_date > ?", day)
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if q.PlacedAfter != nil {
		query = query.Where("placed_at >= ?", *q.PlacedAfter)
	}
	if q.PlacedBefore != nil {
		query = query.Where("placed_at < ?", *q.PlacedBefore)
	}
	if q.CategoryID != nil && strings.TrimSpace(*q.CategoryID) != "" {
		query = query.Where("category_id = ?", strings.TrimSpace(*q.CategoryID))
	}
	if q.OrderByPlaced {
		query = query.Order("placed_at asc")
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	var items []models.RoomBooking
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListRoomCategories(ctx context.Context, activeOnly bool) ([]models.RoomCategory, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.RoomCategory{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var items []models.RoomCategory
	if err := query.Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Pace curves ------------------------------------------------------------

func (s *Store) UpsertPaceSnapshots(ctx context.Context, items []models.PaceSnapshot) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	// Only the columns computed in this run are assigned; buckets written by
	// earlier runs keep their values (last value wins per column).
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "domain"}, {Name: "stay_date"}, {Name: "pace_type"}, {Name: "lead_time"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"count",
			"revenue",
			"observed_at",
			"updated_at",
		}),
	}).CreateInBatches(items, 200).Error
}

func (s *Store) GetPaceSnapshot(ctx context.Context, domain string, stayDate time.Time, paceType string, leadTime int) (*models.PaceSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PaceSnapshot
	err := s.db.WithContext(ctx).
		Model(&models.PaceSnapshot{}).
		Where("domain = ?", domain).
		Where("stay_date = ?", stayDate.Format("2006-01-02")).
		Where("pace_type = ?", paceType).
		Where("lead_time = ?", leadTime).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPaceCurve(ctx context.Context, domain string, stayDate time.Time, paceType string) ([]models.PaceSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PaceSnapshot
	err := s.db.WithContext(ctx).
		Model(&models.PaceSnapshot{}).
		Where("domain = ?", domain).
		Where("stay_date = ?", stayDate.Format("2006-01-02")).
		Where("pace_type = ?", paceType).
		Order("lead_time asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPaceSnapshots(ctx context.Context, domain string, stayDate time.Time, paceType string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.PaceSnapshot{}).
		Where("domain = ?", domain).
		Where("stay_date = ?", stayDate.Format("2006-01-02")).
		Where("pace_type = ?", paceType).
		Count(&count).Error
	return count, err
}

// --- Rate priors ------------------------------------------------------------

func (s *Store) UpsertCategoryRateStats(ctx context.Context, items []models.CategoryRateStats) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "category_id"}, {Name: "stay_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"min_net",
			"max_net",
			"adr_net",
			"sample_count",
			"updated_at",
		}),
	}).CreateInBatches(items, 200).Error
}

func (s *Store) GetCategoryRateStats(ctx context.Context, categoryID string, stayDate time.Time) (*models.CategoryRateStats, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CategoryRateStats
	err := s.db.WithContext(ctx).
		Model(&models.CategoryRateStats{}).
		Where("category_id = ?", categoryID).
		Where("stay_date = ?", stayDate.Format("2006-01-02")).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Forecast snapshots -----------------------------------------------------

func (s *Store) UpsertForecastSnapshots(ctx context.Context, items []models.ForecastSnapshot) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	// actual_value is deliberately not assigned: re-running a sweep must not
	// wipe scores already backfilled by the actuals service.
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "perception_date"}, {Name: "target_date"}, {Name: "model"},
			{Name: "metric_code"}, {Name: "lead_time"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"forecast_value",
			"generated_at",
			"updated_at",
		}),
	}).CreateInBatches(items, 200).Error
}

func (s *Store) ListForecastSnapshots(ctx context.Context, params repository.ListForecastParams) ([]models.ForecastSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.ForecastSnapshot{})
	if params.Metric != nil && strings.TrimSpace(*params.Metric) != "" {
		query = query.Where("metric_code = ?", strings.TrimSpace(*params.Metric))
	}
	if params.Model != nil && strings.TrimSpace(*params.Model) != "" {
		query = query.Where("model = ?", strings.TrimSpace(*params.Model))
	}
	if params.TargetFrom != nil {
		query = query.Where("target_date >= ?", params.TargetFrom.Format("2006-01-02"))
	}
	if params.TargetTo != nil {
		query = query.Where("target_date <= ?", params.TargetTo.Format("2006-01-02"))
	}
	if params.PerceptionDate != nil {
		query = query.Where("perception_date = ?", params.PerceptionDate.Format("2006-01-02"))
	}
	if params.LeadTime != nil {
		query = query.Where("lead_time = ?", *params.LeadTime)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "target_date")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.ForecastSnapshot
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListUnscoredForecasts(ctx context.Context, before time.Time, limit int) ([]models.ForecastSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 500)
	var items []models.ForecastSnapshot
	err := s.db.WithContext(ctx).
		Model(&models.ForecastSnapshot{}).
		Where("actual_value IS NULL").
		Where("target_date < ?", before.Format("2006-01-02")).
		Order("target_date asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) FillForecastActual(ctx context.Context, id uint64, actual decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.ForecastSnapshot{}).
		Where("id = ?", id).
		Updates(map[string]any{"actual_value": actual, "updated_at": time.Now().UTC()}).
		Error
}

func (s *Store) ModelMAPEs(ctx context.Context, metric string, since, until time.Time) ([]repository.ModelMAPE, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.ModelMAPE
	err := s.db.WithContext(ctx).
		Table("forecast_snapshots").
		Select(`
			model,
			AVG(ABS(forecast_value - actual_value) / NULLIF(ABS(actual_value), 0)) AS mape,
			COUNT(*) AS samples
		`).
		Where("metric_code = ?", metric).
		Where("actual_value IS NOT NULL").
		Where("actual_value <> 0").
		Where("perception_date >= ?", since.Format("2006-01-02")).
		Where("perception_date < ?", until.Format("2006-01-02")).
		Group("model").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// --- Backtest results -------------------------------------------------------

func (s *Store) UpsertBacktestResults(ctx context.Context, items []models.BacktestResult) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "target_date"}, {Name: "metric_code"}, {Name: "lead_time"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"run_id",
			"simulated_otb",
			"prior_year_otb",
			"prior_year_final",
			"projected_value",
			"method",
			"actual_value",
			"error_signed",
			"error_abs",
			"error_pct",
			"error_message",
			"updated_at",
		}),
	}).CreateInBatches(items, 200).Error
}

func (s *Store) ListBacktestResults(ctx context.Context, params repository.ListBacktestParams) ([]models.BacktestResult, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.backtestQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "target_date")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.BacktestResult
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountBacktestResults(ctx context.Context, params repository.ListBacktestParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.backtestQuery(ctx, params).Count(&count).Error
	return count, err
}

func (s *Store) backtestQuery(ctx context.Context, params repository.ListBacktestParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.BacktestResult{})
	if params.Metric != nil && strings.TrimSpace(*params.Metric) != "" {
		query = query.Where("metric_code = ?", strings.TrimSpace(*params.Metric))
	}
	if params.RunID != nil && strings.TrimSpace(*params.RunID) != "" {
		query = query.Where("run_id = ?", strings.TrimSpace(*params.RunID))
	}
	if params.TargetFrom != nil {
		query = query.Where("target_date >= ?", params.TargetFrom.Format("2006-01-02"))
	}
	if params.TargetTo != nil {
		query = query.Where("target_date <= ?", params.TargetTo.Format("2006-01-02"))
	}
	if params.LeadTime != nil {
		query = query.Where("lead_time = ?", *params.LeadTime)
	}
	return query
}

func (s *Store) ListUnscoredBacktestResults(ctx context.Context, before time.Time, limit int) ([]models.BacktestResult, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 500)
	var items []models.BacktestResult
	err := s.db.WithContext(ctx).
		Model(&models.BacktestResult{}).
		Where("actual_value IS NULL").
		Where("error_message IS NULL").
		Where("target_date < ?", before.Format("2006-01-02")).
		Order("target_date asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SaveBacktestScore(ctx context.Context, id uint64, actual, signed, abs decimal.Decimal, pct *decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{
		"actual_value": actual,
		"error_signed": signed,
		"error_abs":    abs,
		"updated_at":   time.Now().UTC(),
	}
	if pct != nil {
		updates["error_pct"] = *pct
	}
	return s.db.WithContext(ctx).
		Model(&models.BacktestResult{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}

// --- Budgets ----------------------------------------------------------------

func (s *Store) GetBudgetValue(ctx context.Context, metric string, date time.Time) (*decimal.Decimal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.BudgetEntry
	err := s.db.WithContext(ctx).
		Model(&models.BudgetEntry{}).
		Where("metric_code = ?", metric).
		Where("date = ?", date.Format("2006-01-02")).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item.Value, nil
}

func (s *Store) UpsertBudgetEntries(ctx context.Context, items []models.BudgetEntry) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "metric_code"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"updated_at",
		}),
	}).CreateInBatches(items, 200).Error
}

// --- Sweep state ------------------------------------------------------------

func (s *Store) GetAggregationRun(ctx context.Context, scope string) (*models.AggregationRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, nil
	}
	var item models.AggregationRun
	err := s.db.WithContext(ctx).
		Model(&models.AggregationRun{}).
		Where("scope = ?", scope).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveAggregationRun(ctx context.Context, item *models.AggregationRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Scope) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"watermark_ts",
			"cursor",
			"last_success_at",
			"last_attempt_at",
			"last_error",
			"stats_json",
		}),
	}).Create(item).Error
}

// --- System settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SystemSetting
	if err := s.db.WithContext(ctx).
		Model(&models.SystemSetting{}).
		Order("key asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
