package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"revpace/internal/models"
	"revpace/internal/pace"
	"revpace/internal/repository"
)

type stubRepo struct {
	repository.Repository

	bookings  []models.RoomBooking
	forecasts []models.ForecastSnapshot
	backtests []models.BacktestResult

	filledActuals map[uint64]decimal.Decimal
	scores        map[uint64]decimal.Decimal
	settings      map[string]models.SystemSetting
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		filledActuals: map[uint64]decimal.Decimal{},
		scores:        map[uint64]decimal.Decimal{},
		settings:      map[string]models.SystemSetting{},
	}
}

func (r *stubRepo) RoomOTB(ctx context.Context, q repository.OTBQuery) ([]repository.CategoryOTB, error) {
	row := repository.CategoryOTB{CategoryID: "std"}
	for i := range r.bookings {
		b := &r.bookings[i]
		if b.ArrivalDate.After(q.OccupancyDate) || !b.DepartureDate.After(q.OccupancyDate) {
			continue
		}
		if q.PlacedBefore != nil && !b.PlacedAt.Before(*q.PlacedBefore) {
			continue
		}
		row.Rooms++
		row.Revenue = row.Revenue.Add(b.NightlyNet(q.OccupancyDate))
	}
	if row.Rooms == 0 {
		return nil, nil
	}
	return []repository.CategoryOTB{row}, nil
}

func (r *stubRepo) ListRoomCategories(ctx context.Context, activeOnly bool) ([]models.RoomCategory, error) {
	return []models.RoomCategory{{ID: "std", Capacity: 10, Active: true}}, nil
}

func (r *stubRepo) ListUnscoredForecasts(ctx context.Context, before time.Time, limit int) ([]models.ForecastSnapshot, error) {
	var out []models.ForecastSnapshot
	for _, f := range r.forecasts {
		if f.ActualValue == nil && f.TargetDate.Before(before) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *stubRepo) FillForecastActual(ctx context.Context, id uint64, actual decimal.Decimal) error {
	r.filledActuals[id] = actual
	return nil
}

func (r *stubRepo) ListUnscoredBacktestResults(ctx context.Context, before time.Time, limit int) ([]models.BacktestResult, error) {
	var out []models.BacktestResult
	for _, b := range r.backtests {
		if b.ActualValue == nil && b.TargetDate.Before(before) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *stubRepo) SaveBacktestScore(ctx context.Context, id uint64, actual, signed, abs decimal.Decimal, pct *decimal.Decimal) error {
	r.scores[id] = abs
	return nil
}

func (r *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s, ok := r.settings[key]; ok {
		out := s
		return &out, nil
	}
	return nil, nil
}

func (r *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	r.settings[item.Key] = *item
	return nil
}

func day(offset int) time.Time {
	return pace.DateOf(time.Now().UTC()).AddDate(0, 0, offset)
}

func TestActualsSettlePassedDates(t *testing.T) {
	repo := newStubRepo()
	target := day(-2)
	for i := 0; i < 4; i++ {
		repo.bookings = append(repo.bookings, models.RoomBooking{
			CategoryID:    "std",
			ArrivalDate:   target,
			DepartureDate: target.AddDate(0, 0, 1),
			Status:        models.BookingStatusConfirmed,
			PlacedAt:      day(-30),
			TotalNet:      decimal.NewFromInt(100),
		})
	}
	repo.forecasts = []models.ForecastSnapshot{
		{ID: 1, TargetDate: target, MetricCode: models.MetricRoomsSold, ForecastValue: decimal.NewFromInt(5)},
		{ID: 2, TargetDate: day(3), MetricCode: models.MetricRoomsSold, ForecastValue: decimal.NewFromInt(5)},
	}
	repo.backtests = []models.BacktestResult{
		{ID: 7, TargetDate: target, MetricCode: models.MetricRoomsSold, ProjectedValue: decimal.NewFromInt(6)},
	}

	svc := &ActualsService{Repo: repo}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if got, ok := repo.filledActuals[1]; !ok || !got.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("forecast 1 actual = %v, want 4", got)
	}
	if _, ok := repo.filledActuals[2]; ok {
		t.Fatal("future forecast must not be settled")
	}
	if got, ok := repo.scores[7]; !ok || !got.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("backtest 7 abs error = %v, want 2", got)
	}
}

func TestActualsRespectFeatureSwitch(t *testing.T) {
	repo := newStubRepo()
	flags := &SystemSettingsService{Repo: repo}
	if err := flags.SetEnabled(context.Background(), FeatureActualsFill, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	repo.forecasts = []models.ForecastSnapshot{
		{ID: 1, TargetDate: day(-2), MetricCode: models.MetricRoomsSold},
	}

	svc := &ActualsService{Repo: repo, Flags: flags}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(repo.filledActuals) != 0 {
		t.Fatal("disabled service must not settle anything")
	}
}

func TestFeatureSwitchDefaults(t *testing.T) {
	repo := newStubRepo()
	flags := &SystemSettingsService{Repo: repo}
	if err := flags.EnsureDefaultSwitches(context.Background()); err != nil {
		t.Fatalf("EnsureDefaultSwitches: %v", err)
	}
	for key := range DefaultFeatureSwitches() {
		if _, ok := repo.settings[key]; !ok {
			t.Errorf("switch %s not seeded", key)
		}
	}
	if !flags.IsEnabled(context.Background(), FeaturePaceSnapshot, false) {
		t.Fatal("seeded switch should read back enabled")
	}
}
