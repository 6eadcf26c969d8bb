package pace

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"revpace/internal/models"
)

func TestRateStatsSummarizesNightlyNet(t *testing.T) {
	stayDate := day(10)
	iso := stayDate.Format("2006-01-02")
	repo := newStubRepo()

	b1 := roomBooking("b1", stayDate, 1, models.BookingStatusConfirmed, day(-2), 0)
	b1.RatePayload = datatypes.JSON([]byte(`{"` + iso + `": 150}`))
	b2 := roomBooking("b2", stayDate, 1, models.BookingStatusConfirmed, day(-1), 0)
	b2.RatePayload = datatypes.JSON([]byte(`{"` + iso + `": 250}`))
	// No payload entry: total spread over two nights gives 100 for this date.
	b3 := roomBooking("b3", stayDate, 2, models.BookingStatusConfirmed, day(-1), 200)
	cancelled := roomBooking("b4", stayDate, 1, models.BookingStatusCancelled, day(-3), 999)
	repo.bookings = []models.RoomBooking{b1, b2, b3, cancelled}

	svc := &RateStatsService{Repo: repo, LookbackDays: 1, HorizonDays: 15}
	result, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if result.Errors != 0 {
		t.Fatalf("result = %+v, want no errors", result)
	}

	stats, err := repo.GetCategoryRateStats(context.Background(), "std", stayDate)
	if err != nil {
		t.Fatalf("GetCategoryRateStats: %v", err)
	}
	if stats == nil {
		t.Fatal("no rate stats row for stay date")
	}
	if !stats.MinNet.Equal(decimal.NewFromInt(100)) {
		t.Errorf("MinNet = %s, want 100", stats.MinNet)
	}
	if !stats.MaxNet.Equal(decimal.NewFromInt(250)) {
		t.Errorf("MaxNet = %s, want 250", stats.MaxNet)
	}
	if want := decimal.NewFromInt(500).Div(decimal.NewFromInt(3)); !stats.ADRNet.Equal(want) {
		t.Errorf("ADRNet = %s, want %s", stats.ADRNet, want)
	}
	if stats.SampleCount != 3 {
		t.Errorf("SampleCount = %d, want 3 (cancelled excluded)", stats.SampleCount)
	}
}

func TestRateStatsScanWindowIsConfigurable(t *testing.T) {
	repo := newStubRepo()
	// One booking inside the window, one beyond the horizon.
	repo.bookings = []models.RoomBooking{
		roomBooking("in", day(3), 1, models.BookingStatusConfirmed, day(-2), 120),
		roomBooking("out", day(40), 1, models.BookingStatusConfirmed, day(-2), 300),
	}

	svc := &RateStatsService{Repo: repo, LookbackDays: 2, HorizonDays: 5}
	result, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if want := 2 + 5 + 1; result.Dates != want {
		t.Fatalf("dates scanned = %d, want %d", result.Dates, want)
	}
	if result.Rows != 1 {
		t.Fatalf("rows = %d, want 1 (only the in-window stay date has bookings)", result.Rows)
	}
	if stats, _ := repo.GetCategoryRateStats(context.Background(), "std", day(40)); stats != nil {
		t.Fatal("stay date beyond the horizon was summarized")
	}
}
