package pace

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"revpace/internal/models"
	"revpace/internal/repository"
)

// stubRepo is an in-memory repository. OTB queries are computed from the
// booking slices so tests exercise the reconstruction semantics end to end.
type stubRepo struct {
	bookings   []models.RoomBooking
	covers     []models.CoverBooking
	categories []models.RoomCategory

	paceRows map[string]models.PaceSnapshot
	rateRows map[string]models.CategoryRateStats
	runs     map[string]models.AggregationRun

	upsertPaceCalls int
	otbCalls        int
	failOTB         error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		paceRows: map[string]models.PaceSnapshot{},
		rateRows: map[string]models.CategoryRateStats{},
		runs:     map[string]models.AggregationRun{},
	}
}

func paceKey(domain string, stayDate time.Time, paceType string, lead int) string {
	return fmt.Sprintf("%s|%s|%s|%d", domain, stayDate.Format("2006-01-02"), paceType, lead)
}

func inSet(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func (r *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (r *stubRepo) RoomOTB(ctx context.Context, q repository.OTBQuery) ([]repository.CategoryOTB, error) {
	r.otbCalls++
	if r.failOTB != nil {
		return nil, r.failOTB
	}
	byCat := map[string]*repository.CategoryOTB{}
	for i := range r.bookings {
		b := &r.bookings[i]
		if b.ArrivalDate.After(q.OccupancyDate) || !b.DepartureDate.After(q.OccupancyDate) {
			continue
		}
		if len(q.Statuses) > 0 && !inSet(b.Status, q.Statuses) {
			continue
		}
		if q.PlacedBefore != nil && !b.PlacedAt.Before(*q.PlacedBefore) {
			continue
		}
		if q.CategoryID != nil && b.CategoryID != *q.CategoryID {
			continue
		}
		row, ok := byCat[b.CategoryID]
		if !ok {
			row = &repository.CategoryOTB{CategoryID: b.CategoryID}
			byCat[b.CategoryID] = row
		}
		row.Rooms++
		row.Revenue = row.Revenue.Add(b.NightlyNet(q.OccupancyDate))
	}
	var out []repository.CategoryOTB
	for _, row := range byCat {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (r *stubRepo) CoverOTB(ctx context.Context, q repository.CoverOTBQuery) (repository.CoverCounts, error) {
	counts := repository.CoverCounts{}
	for i := range r.covers {
		c := &r.covers[i]
		if !c.BookingDate.Equal(q.BookingDate) {
			continue
		}
		if len(q.Statuses) > 0 && !inSet(c.Status, q.Statuses) {
			continue
		}
		if q.PlacedBefore != nil && !c.PlacedAt.Before(*q.PlacedBefore) {
			continue
		}
		if q.PeriodType != nil && c.PeriodType != *q.PeriodType {
			continue
		}
		counts.Total += int64(c.Covers)
		if c.Resident {
			counts.Resident += int64(c.Covers)
		} else {
			counts.NonResident += int64(c.Covers)
		}
	}
	return counts, nil
}

func (r *stubRepo) ListRoomBookingsOccupying(ctx context.Context, q repository.BookingQuery) ([]models.RoomBooking, error) {
	var out []models.RoomBooking
	for i := range r.bookings {
		b := r.bookings[i]
		if b.ArrivalDate.After(q.OccupancyDate) || !b.DepartureDate.After(q.OccupancyDate) {
			continue
		}
		if len(q.Statuses) > 0 && !inSet(b.Status, q.Statuses) {
			continue
		}
		if q.PlacedBefore != nil && !b.PlacedAt.Before(*q.PlacedBefore) {
			continue
		}
		if q.PlacedAfter != nil && !b.PlacedAt.After(*q.PlacedAfter) {
			continue
		}
		if q.CategoryID != nil && b.CategoryID != *q.CategoryID {
			continue
		}
		out = append(out, b)
	}
	if q.OrderByPlaced {
		sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.Before(out[j].PlacedAt) })
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *stubRepo) ListRoomCategories(ctx context.Context, activeOnly bool) ([]models.RoomCategory, error) {
	var out []models.RoomCategory
	for _, c := range r.categories {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *stubRepo) UpsertPaceSnapshots(ctx context.Context, items []models.PaceSnapshot) error {
	r.upsertPaceCalls++
	for _, it := range items {
		r.paceRows[paceKey(it.Domain, it.StayDate, it.PaceType, it.LeadTime)] = it
	}
	return nil
}

func (r *stubRepo) GetPaceSnapshot(ctx context.Context, domain string, stayDate time.Time, paceType string, leadTime int) (*models.PaceSnapshot, error) {
	if row, ok := r.paceRows[paceKey(domain, stayDate, paceType, leadTime)]; ok {
		out := row
		return &out, nil
	}
	return nil, nil
}

func (r *stubRepo) ListPaceCurve(ctx context.Context, domain string, stayDate time.Time, paceType string) ([]models.PaceSnapshot, error) {
	var out []models.PaceSnapshot
	for _, row := range r.paceRows {
		if row.Domain == domain && row.StayDate.Equal(stayDate) && row.PaceType == paceType {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeadTime < out[j].LeadTime })
	return out, nil
}

func (r *stubRepo) CountPaceSnapshots(ctx context.Context, domain string, stayDate time.Time, paceType string) (int64, error) {
	var n int64
	for _, row := range r.paceRows {
		if row.Domain == domain && row.StayDate.Equal(stayDate) && row.PaceType == paceType {
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) UpsertCategoryRateStats(ctx context.Context, items []models.CategoryRateStats) error {
	for _, it := range items {
		r.rateRows[it.CategoryID+"|"+it.StayDate.Format("2006-01-02")] = it
	}
	return nil
}

func (r *stubRepo) GetCategoryRateStats(ctx context.Context, categoryID string, stayDate time.Time) (*models.CategoryRateStats, error) {
	if row, ok := r.rateRows[categoryID+"|"+stayDate.Format("2006-01-02")]; ok {
		out := row
		return &out, nil
	}
	return nil, nil
}

func (r *stubRepo) UpsertForecastSnapshots(ctx context.Context, items []models.ForecastSnapshot) error {
	return nil
}

func (r *stubRepo) ListForecastSnapshots(ctx context.Context, params repository.ListForecastParams) ([]models.ForecastSnapshot, error) {
	return nil, nil
}

func (r *stubRepo) ListUnscoredForecasts(ctx context.Context, before time.Time, limit int) ([]models.ForecastSnapshot, error) {
	return nil, nil
}

func (r *stubRepo) FillForecastActual(ctx context.Context, id uint64, actual decimal.Decimal) error {
	return nil
}

func (r *stubRepo) ModelMAPEs(ctx context.Context, metric string, since, until time.Time) ([]repository.ModelMAPE, error) {
	return nil, nil
}

func (r *stubRepo) UpsertBacktestResults(ctx context.Context, items []models.BacktestResult) error {
	return nil
}

func (r *stubRepo) ListBacktestResults(ctx context.Context, params repository.ListBacktestParams) ([]models.BacktestResult, error) {
	return nil, nil
}

func (r *stubRepo) CountBacktestResults(ctx context.Context, params repository.ListBacktestParams) (int64, error) {
	return 0, nil
}

func (r *stubRepo) ListUnscoredBacktestResults(ctx context.Context, before time.Time, limit int) ([]models.BacktestResult, error) {
	return nil, nil
}

func (r *stubRepo) SaveBacktestScore(ctx context.Context, id uint64, actual, signed, abs decimal.Decimal, pct *decimal.Decimal) error {
	return nil
}

func (r *stubRepo) GetBudgetValue(ctx context.Context, metric string, date time.Time) (*decimal.Decimal, error) {
	return nil, nil
}

func (r *stubRepo) UpsertBudgetEntries(ctx context.Context, items []models.BudgetEntry) error {
	return nil
}

func (r *stubRepo) GetAggregationRun(ctx context.Context, scope string) (*models.AggregationRun, error) {
	if run, ok := r.runs[scope]; ok {
		out := run
		return &out, nil
	}
	return nil, nil
}

func (r *stubRepo) SaveAggregationRun(ctx context.Context, item *models.AggregationRun) error {
	if item == nil {
		return nil
	}
	r.runs[item.Scope] = *item
	return nil
}

func (r *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	return nil
}

func (r *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	return nil, nil
}

func (r *stubRepo) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	return nil, nil
}

var _ repository.Repository = (*stubRepo)(nil)
