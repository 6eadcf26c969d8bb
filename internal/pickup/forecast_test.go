package pickup

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"revpace/internal/models"
	"revpace/internal/pace"
	"revpace/internal/repository"
)

// stubRepo answers the ledger queries from in-memory slices; the embedded
// interface panics on anything a test should not touch.
type stubRepo struct {
	repository.Repository

	bookings   []models.RoomBooking
	covers     []models.CoverBooking
	categories []models.RoomCategory
	rateStats  map[string]models.CategoryRateStats
}

func inSet(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
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

func (r *stubRepo) RoomOTB(ctx context.Context, q repository.OTBQuery) ([]repository.CategoryOTB, error) {
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
		counts.Total += int64(c.Covers)
		if c.Resident {
			counts.Resident += int64(c.Covers)
		} else {
			counts.NonResident += int64(c.Covers)
		}
	}
	return counts, nil
}

func (r *stubRepo) GetCategoryRateStats(ctx context.Context, categoryID string, stayDate time.Time) (*models.CategoryRateStats, error) {
	if r.rateStats == nil {
		return nil, nil
	}
	if row, ok := r.rateStats[categoryID+"|"+stayDate.Format("2006-01-02")]; ok {
		out := row
		return &out, nil
	}
	return nil, nil
}

func day(offset int) time.Time {
	return pace.DateOf(time.Now().UTC()).AddDate(0, 0, offset)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// pickupFixture builds the canonical position: 18 on the books now, prior
// year had 15 at the same lead and finished on 22, one category of 50 rooms.
func pickupFixture(t *testing.T) (*stubRepo, time.Time, time.Time) {
	t.Helper()
	asOf := time.Now().UTC()
	stayDate := day(14)
	priorDate := stayDate.AddDate(0, 0, -PriorYearOffsetDays)
	priorAsOf := asOf.AddDate(0, 0, -PriorYearOffsetDays)

	rack := dec(150)
	repo := &stubRepo{
		categories: []models.RoomCategory{
			{ID: "std", Name: "Standard", Capacity: 50, RackRate: &rack, Active: true},
		},
	}

	add := func(ref string, arrival, placed time.Time, rate int64) {
		repo.bookings = append(repo.bookings, models.RoomBooking{
			ExternalRef:   ref,
			CategoryID:    "std",
			ArrivalDate:   arrival,
			DepartureDate: arrival.AddDate(0, 0, 1),
			Status:        models.BookingStatusConfirmed,
			PlacedAt:      placed,
			TotalNet:      dec(rate),
		})
	}

	for i := 0; i < 18; i++ {
		add(fmt.Sprintf("cur-%d", i), stayDate, asOf.AddDate(0, 0, -30), 150)
	}
	for i := 0; i < 15; i++ {
		add(fmt.Sprintf("prior-otb-%d", i), priorDate, priorAsOf.AddDate(0, 0, -30), 140)
	}
	// The 7 pickup bookings, placed after the same-lead instant, earliest
	// first: 200, 210, 190, then the stragglers.
	pickupRates := []int64{200, 210, 190, 100, 120, 260, 180}
	for i, rate := range pickupRates {
		add(fmt.Sprintf("prior-pickup-%d", i), priorDate, priorAsOf.Add(time.Duration(i+1)*time.Hour), rate)
	}
	return repo, stayDate, asOf
}

func TestRoomsPickupScenario(t *testing.T) {
	repo, stayDate, asOf := pickupFixture(t)
	f := &Forecaster{Repo: repo}

	got, err := f.Rooms(context.Background(), stayDate, asOf)
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	if got.CurrentOTB != 18 {
		t.Fatalf("CurrentOTB = %d, want 18", got.CurrentOTB)
	}
	if got.PriorYearOTB == nil || *got.PriorYearOTB != 15 {
		t.Fatalf("PriorYearOTB = %v, want 15", got.PriorYearOTB)
	}
	if got.PriorYearFinal == nil || *got.PriorYearFinal != 22 {
		t.Fatalf("PriorYearFinal = %v, want 22", got.PriorYearFinal)
	}
	if got.Pickup != 7 || got.Forecast != 25 {
		t.Fatalf("pickup/forecast = %d/%d, want 7/25", got.Pickup, got.Forecast)
	}
	if got.Method != MethodPickup {
		t.Fatalf("method = %q, want %q", got.Method, MethodPickup)
	}
	if got.Forecast < got.CurrentOTB {
		t.Fatal("forecast fell below current position")
	}
}

func TestRoomsCappedAtCapacity(t *testing.T) {
	repo, stayDate, asOf := pickupFixture(t)
	repo.categories[0].Capacity = 20
	f := &Forecaster{Repo: repo}

	rooms, err := f.Rooms(context.Background(), stayDate, asOf)
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	if rooms.Forecast != 20 {
		t.Fatalf("forecast = %d, want capacity cap 20", rooms.Forecast)
	}

	occ, err := f.Occupancy(context.Background(), stayDate, asOf)
	if err != nil {
		t.Fatalf("Occupancy: %v", err)
	}
	if !occ.Forecast.Equal(dec(100)) {
		t.Fatalf("occupancy = %s, want 100", occ.Forecast)
	}
}

func TestRoomsDegradesWithoutPriorYear(t *testing.T) {
	repo, stayDate, asOf := pickupFixture(t)
	// Epoch after the prior stay date: no prior reference at all.
	f := &Forecaster{Repo: repo, Epoch: day(-100)}

	got, err := f.Rooms(context.Background(), stayDate, asOf)
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	if got.Method != MethodOTBOnly {
		t.Fatalf("method = %q, want %q", got.Method, MethodOTBOnly)
	}
	if got.Forecast != 18 || got.Pickup != 0 {
		t.Fatalf("forecast/pickup = %d/%d, want 18/0", got.Forecast, got.Pickup)
	}
	if got.PriorYearOTB != nil || got.PriorYearFinal != nil {
		t.Fatal("degraded forecast must not carry prior-year values")
	}
}

func TestRoomsImpliedPickupWhenSameLeadUnobservable(t *testing.T) {
	repo, stayDate, asOf := pickupFixture(t)
	// Epoch between the prior same-lead instant and the prior stay date:
	// the final is observable, the position at this lead is not.
	f := &Forecaster{Repo: repo, Epoch: day(-360)}

	got, err := f.Rooms(context.Background(), stayDate, asOf)
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	if got.Method != MethodImpliedPickup {
		t.Fatalf("method = %q, want %q", got.Method, MethodImpliedPickup)
	}
	// Lead 14 sits in the 0.18 band: round(22 * 0.18) = 4.
	if got.Pickup != 4 || got.Forecast != 22 {
		t.Fatalf("pickup/forecast = %d/%d, want 4/22", got.Pickup, got.Forecast)
	}
	if got.PriorYearOTB != nil {
		t.Fatal("implied path has no same-lead prior position")
	}
	if got.PriorYearFinal == nil || *got.PriorYearFinal != 22 {
		t.Fatalf("PriorYearFinal = %v, want 22", got.PriorYearFinal)
	}
}

func TestRoomsReplayExcludesLatePlacements(t *testing.T) {
	// At lead 365 the reference date sits one day after the observation
	// instant, so everything ever booked for it arrived too late to see.
	asOf := day(0)
	stayDate := day(365)
	priorDate := stayDate.AddDate(0, 0, -PriorYearOffsetDays)

	rack := dec(150)
	repo := &stubRepo{
		categories: []models.RoomCategory{
			{ID: "std", Name: "Standard", Capacity: 50, RackRate: &rack, Active: true},
		},
	}
	add := func(ref string, arrival, placed time.Time) {
		repo.bookings = append(repo.bookings, models.RoomBooking{
			ExternalRef:   ref,
			CategoryID:    "std",
			ArrivalDate:   arrival,
			DepartureDate: arrival.AddDate(0, 0, 1),
			Status:        models.BookingStatusConfirmed,
			PlacedAt:      placed,
			TotalNet:      dec(150),
		})
	}
	for i := 0; i < 3; i++ {
		add(fmt.Sprintf("cur-%d", i), stayDate, asOf.Add(-48*time.Hour))
	}
	for i := 0; i < 5; i++ {
		add(fmt.Sprintf("late-%d", i), priorDate, asOf.Add(12*time.Hour))
	}

	f := &Forecaster{Repo: repo}
	got, err := f.Rooms(context.Background(), stayDate, asOf)
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	if got.Method != MethodOTBOnly {
		t.Fatalf("method = %q, want %q", got.Method, MethodOTBOnly)
	}
	if got.Pickup != 0 || got.Forecast != 3 {
		t.Fatalf("pickup/forecast = %d/%d, want 0/3", got.Pickup, got.Forecast)
	}
	if got.PriorYearFinal != nil {
		t.Fatal("placements after the observation instant leaked into the prior-year final")
	}
}

func TestRoomsReplayCapsPriorFinalAtObservation(t *testing.T) {
	// Replay a past perception against a ledger that kept growing after it:
	// late arrivals for the prior date must stay invisible to the final.
	asOf := day(-10)
	stayDate := day(4)
	priorDate := stayDate.AddDate(0, 0, -PriorYearOffsetDays)
	priorAsOf := asOf.AddDate(0, 0, -PriorYearOffsetDays)

	rack := dec(150)
	repo := &stubRepo{
		categories: []models.RoomCategory{
			{ID: "std", Name: "Standard", Capacity: 50, RackRate: &rack, Active: true},
		},
	}
	add := func(ref string, arrival, placed time.Time) {
		repo.bookings = append(repo.bookings, models.RoomBooking{
			ExternalRef:   ref,
			CategoryID:    "std",
			ArrivalDate:   arrival,
			DepartureDate: arrival.AddDate(0, 0, 1),
			Status:        models.BookingStatusConfirmed,
			PlacedAt:      placed,
			TotalNet:      dec(150),
		})
	}
	for i := 0; i < 10; i++ {
		add(fmt.Sprintf("cur-%d", i), stayDate, asOf.Add(-72*time.Hour))
	}
	for i := 0; i < 6; i++ {
		add(fmt.Sprintf("prior-otb-%d", i), priorDate, priorAsOf.Add(-72*time.Hour))
	}
	for i := 0; i < 2; i++ {
		add(fmt.Sprintf("prior-pickup-%d", i), priorDate, priorAsOf.Add(time.Duration(i+1)*time.Hour))
	}
	for i := 0; i < 4; i++ {
		add(fmt.Sprintf("prior-late-%d", i), priorDate, asOf.Add(24*time.Hour))
	}

	f := &Forecaster{Repo: repo}
	got, err := f.Rooms(context.Background(), stayDate, asOf)
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	if got.Method != MethodPickup {
		t.Fatalf("method = %q, want %q", got.Method, MethodPickup)
	}
	if got.PriorYearOTB == nil || *got.PriorYearOTB != 6 {
		t.Fatalf("PriorYearOTB = %v, want 6", got.PriorYearOTB)
	}
	if got.PriorYearFinal == nil || *got.PriorYearFinal != 8 {
		t.Fatalf("PriorYearFinal = %v, want 8 (late arrivals excluded)", got.PriorYearFinal)
	}
	if got.Pickup != 2 || got.Forecast != 12 {
		t.Fatalf("pickup/forecast = %d/%d, want 2/12", got.Pickup, got.Forecast)
	}
}

func TestRevenueCappedAtCurrentRack(t *testing.T) {
	repo, stayDate, asOf := pickupFixture(t)
	f := &Forecaster{Repo: repo}

	got, err := f.Revenue(context.Background(), stayDate, asOf)
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	otbRev := dec(18 * 150)
	if !got.CurrentOTBRevenue.Equal(otbRev) {
		t.Fatalf("CurrentOTBRevenue = %s, want %s", got.CurrentOTBRevenue, otbRev)
	}
	// Pickup ADR = 1260/7 = 180, rack = 150: the point forecast cannot
	// exceed what currently offered rates deliver.
	if want := otbRev.Add(dec(7 * 180)); !got.AtPriorADR.Equal(want) {
		t.Fatalf("AtPriorADR = %s, want %s", got.AtPriorADR, want)
	}
	if want := otbRev.Add(dec(7 * 150)); !got.AtCurrentRack.Equal(want) {
		t.Fatalf("AtCurrentRack = %s, want %s", got.AtCurrentRack, want)
	}
	if !got.Point.Equal(got.AtCurrentRack) {
		t.Fatalf("Point = %s, want the rack-capped value %s", got.Point, got.AtCurrentRack)
	}
	// Listed rate from the earliest three pickup bookings: (200+210+190)/3
	// = 200, above the 150 rack: lost potential = 7 * 50.
	if want := dec(7 * 50); !got.LostPotential.Equal(want) {
		t.Fatalf("LostPotential = %s, want %s", got.LostPotential, want)
	}
	if got.LostPotential.Sign() <= 0 {
		t.Fatal("lost potential must be positive when rack undercuts the prior listed rate")
	}

	// Median split of [100 120 180 190 200 210 260]: cheaper half mean
	// 147.5, expensive half mean 215.
	if want := otbRev.Add(decimal.NewFromFloat(7 * 147.5)); !got.Lower.Equal(want) {
		t.Fatalf("Lower = %s, want %s", got.Lower, want)
	}
	if want := otbRev.Add(dec(7 * 215)); !got.Upper.Equal(want) {
		t.Fatalf("Upper = %s, want %s", got.Upper, want)
	}
	if want := otbRev.Add(dec(32 * 215)); !got.Ceiling.Equal(want) {
		t.Fatalf("Ceiling = %s, want %s", got.Ceiling, want)
	}
	if got.Upper.GreaterThan(got.Ceiling) || got.Point.GreaterThan(got.Ceiling) {
		t.Fatal("revenue forecast exceeded the physical ceiling")
	}
}

func TestRevenueCeilingBindsWhenCapacityTight(t *testing.T) {
	repo, stayDate, asOf := pickupFixture(t)
	repo.categories[0].Capacity = 20
	f := &Forecaster{Repo: repo}

	got, err := f.Revenue(context.Background(), stayDate, asOf)
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	// Only 2 rooms remain: ceiling = 2700 + 2*215 = 3130, below every
	// pickup scenario.
	want := dec(18*150 + 2*215)
	if !got.Ceiling.Equal(want) {
		t.Fatalf("Ceiling = %s, want %s", got.Ceiling, want)
	}
	if !got.Point.Equal(want) || !got.Upper.Equal(want) {
		t.Fatalf("point/upper = %s/%s, want both clamped to %s", got.Point, got.Upper, want)
	}
}

func TestCoversPickup(t *testing.T) {
	asOf := time.Now().UTC()
	bookingDate := day(7)
	priorDate := bookingDate.AddDate(0, 0, -PriorYearOffsetDays)
	priorAsOf := asOf.AddDate(0, 0, -PriorYearOffsetDays)

	repo := &stubRepo{}
	cover := func(ref string, date, placed time.Time, covers int, resident bool) models.CoverBooking {
		return models.CoverBooking{
			ExternalRef: ref, BookingDate: date, PeriodType: models.PeriodDinner,
			Covers: covers, Resident: resident, Status: models.BookingStatusConfirmed, PlacedAt: placed,
		}
	}
	repo.covers = []models.CoverBooking{
		cover("c1", bookingDate, asOf.AddDate(0, 0, -3), 10, false),
		cover("p1", priorDate, priorAsOf.AddDate(0, 0, -10), 20, false),
		cover("p2", priorDate, priorAsOf.Add(2*time.Hour), 10, false),
	}

	f := &Forecaster{Repo: repo}
	got, err := f.Covers(context.Background(), bookingDate, asOf, models.PaceTypeTotal)
	if err != nil {
		t.Fatalf("Covers: %v", err)
	}
	if got.CurrentOTB != 10 || got.Pickup != 10 || got.Forecast != 20 {
		t.Fatalf("otb/pickup/forecast = %d/%d/%d, want 10/10/20", got.CurrentOTB, got.Pickup, got.Forecast)
	}
	if got.Method != MethodPickup {
		t.Fatalf("method = %q, want %q", got.Method, MethodPickup)
	}
}
