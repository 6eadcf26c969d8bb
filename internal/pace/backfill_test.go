package pace

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"revpace/internal/models"
)

func day(offset int) time.Time {
	return DateOf(time.Now().UTC()).AddDate(0, 0, offset)
}

func roomBooking(ref string, arrival time.Time, nights int, status string, placedAt time.Time, totalNet int64) models.RoomBooking {
	return models.RoomBooking{
		ExternalRef:   ref,
		CategoryID:    "std",
		ArrivalDate:   arrival,
		DepartureDate: arrival.AddDate(0, 0, nights),
		Status:        status,
		PlacedAt:      placedAt,
		Guests:        2,
		TotalNet:      decimal.NewFromInt(totalNet),
	}
}

func TestBackfillReconstructsMonotonicPace(t *testing.T) {
	stayDate := day(-5)
	repo := newStubRepo()
	placed := func(daysBefore int) time.Time {
		return stayDate.AddDate(0, 0, -daysBefore).Add(12 * time.Hour)
	}
	repo.bookings = []models.RoomBooking{
		roomBooking("b1", stayDate, 1, models.BookingStatusConfirmed, placed(25), 200),
		roomBooking("b2", stayDate, 1, models.BookingStatusConfirmed, placed(10), 180),
		roomBooking("b3", stayDate, 1, models.BookingStatusCheckedOut, placed(2), 220),
		roomBooking("b4", stayDate, 1, models.BookingStatusCancelled, placed(30), 150),
	}
	repo.covers = []models.CoverBooking{
		{ExternalRef: "c1", BookingDate: stayDate, PeriodType: models.PeriodDinner, Covers: 4, Resident: true, Status: models.BookingStatusConfirmed, PlacedAt: placed(8)},
		{ExternalRef: "c2", BookingDate: stayDate, PeriodType: models.PeriodLunch, Covers: 2, Resident: false, Status: models.BookingStatusConfirmed, PlacedAt: placed(3)},
	}

	svc := &BackfillService{Repo: repo, Epoch: stayDate.AddDate(0, 0, -40)}
	result, err := svc.Run(context.Background(), BackfillOptions{From: stayDate, To: stayDate})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Dates != 1 || result.Errors != 0 {
		t.Fatalf("result = %+v, want one clean date", result)
	}
	if result.SkippedEpoch == 0 {
		t.Fatal("buckets before the epoch should be skipped")
	}

	wantRooms := map[int]int64{30: 0, 25: 1, 20: 1, 10: 2, 2: 3, 0: 3}
	for lead, want := range wantRooms {
		row, err := repo.GetPaceSnapshot(context.Background(), models.PaceDomainRooms, stayDate, models.PaceTypeTotal, lead)
		if err != nil {
			t.Fatalf("GetPaceSnapshot(%d): %v", lead, err)
		}
		if row == nil {
			t.Fatalf("no rooms pace row at lead %d", lead)
		}
		if !row.Count.Equal(decimal.NewFromInt(want)) {
			t.Errorf("rooms at lead %d = %s, want %d", lead, row.Count, want)
		}
	}

	// Counts must never decrease as the stay date approaches.
	curve, err := repo.ListPaceCurve(context.Background(), models.PaceDomainRooms, stayDate, models.PaceTypeTotal)
	if err != nil {
		t.Fatalf("ListPaceCurve: %v", err)
	}
	for i := 1; i < len(curve); i++ {
		if curve[i].Count.GreaterThan(curve[i-1].Count) {
			t.Fatalf("pace decreased toward the stay date: lead %d has %s, lead %d has %s",
				curve[i-1].LeadTime, curve[i-1].Count, curve[i].LeadTime, curve[i].Count)
		}
	}

	// Resident and non-resident covers split.
	res, _ := repo.GetPaceSnapshot(context.Background(), models.PaceDomainCovers, stayDate, models.PaceTypeResident, 0)
	nonres, _ := repo.GetPaceSnapshot(context.Background(), models.PaceDomainCovers, stayDate, models.PaceTypeNonResident, 0)
	total, _ := repo.GetPaceSnapshot(context.Background(), models.PaceDomainCovers, stayDate, models.PaceTypeTotal, 0)
	if res == nil || nonres == nil || total == nil {
		t.Fatal("missing covers pace rows at lead 0")
	}
	if !res.Count.Equal(decimal.NewFromInt(4)) || !nonres.Count.Equal(decimal.NewFromInt(2)) || !total.Count.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("covers split = %s/%s/%s, want 4/2/6", res.Count, nonres.Count, total.Count)
	}

	// Revenue at lead 0 sums the nightly net of active bookings only.
	final, _ := repo.GetPaceSnapshot(context.Background(), models.PaceDomainRooms, stayDate, models.PaceTypeTotal, 0)
	if final.Revenue == nil || !final.Revenue.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("revenue at lead 0 = %v, want 600", final.Revenue)
	}
}

func TestBackfillSkipsPopulatedDatesUnlessRepair(t *testing.T) {
	stayDate := day(-3)
	repo := newStubRepo()
	repo.bookings = []models.RoomBooking{
		roomBooking("b1", stayDate, 1, models.BookingStatusConfirmed, stayDate.AddDate(0, 0, -5), 100),
	}
	svc := &BackfillService{Repo: repo}

	opts := BackfillOptions{From: stayDate, To: stayDate}
	if _, err := svc.Run(context.Background(), opts); err != nil {
		t.Fatalf("first run: %v", err)
	}
	callsAfterFirst := repo.upsertPaceCalls

	second, err := svc.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.SkippedExisting != 1 {
		t.Fatalf("second run SkippedExisting = %d, want 1", second.SkippedExisting)
	}
	if repo.upsertPaceCalls != callsAfterFirst {
		t.Fatal("second run without Repair must not rewrite rows")
	}

	opts.Repair = true
	third, err := svc.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("repair run: %v", err)
	}
	if third.Dates != 1 {
		t.Fatalf("repair run Dates = %d, want 1", third.Dates)
	}
	if repo.upsertPaceCalls == callsAfterFirst {
		t.Fatal("repair run must recompute populated dates")
	}
}

func TestBackfillResumeFromWatermark(t *testing.T) {
	from, to := day(-10), day(-6)
	repo := newStubRepo()
	svc := &BackfillService{Repo: repo}

	if _, err := svc.Run(context.Background(), BackfillOptions{From: from, To: to}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	run, _ := repo.GetAggregationRun(context.Background(), "pace_backfill")
	if run == nil || run.WatermarkTS == nil || !DateOf(*run.WatermarkTS).Equal(to) {
		t.Fatalf("watermark = %+v, want %v", run, to)
	}

	otbBefore := repo.otbCalls
	result, err := svc.Run(context.Background(), BackfillOptions{From: from, To: to, Resume: true})
	if err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if result.Dates != 0 || result.SkippedExisting != 0 {
		t.Fatalf("resumed run processed %+v, want nothing past the watermark", result)
	}
	if repo.otbCalls != otbBefore {
		t.Fatal("resumed run must not requery finished dates")
	}
}

func TestBackfillClampsFutureDates(t *testing.T) {
	repo := newStubRepo()
	svc := &BackfillService{Repo: repo}
	result, err := svc.Run(context.Background(), BackfillOptions{From: day(1), To: day(5)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Dates != 0 || result.Rows != 0 {
		t.Fatalf("future-only range produced %+v, want nothing", result)
	}
}

func TestSnapshotServiceWritesAllDomains(t *testing.T) {
	repo := newStubRepo()
	target := day(7)
	repo.bookings = []models.RoomBooking{
		roomBooking("b1", target, 2, models.BookingStatusConfirmed, day(-1), 300),
	}
	repo.covers = []models.CoverBooking{
		{ExternalRef: "c1", BookingDate: target, PeriodType: models.PeriodDinner, Covers: 3, Resident: false, Status: models.BookingStatusConfirmed, PlacedAt: day(-1)},
	}

	svc := &SnapshotService{Repo: repo, TrailingDays: 5}
	result, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if result.Errors != 0 {
		t.Fatalf("result = %+v, want no errors", result)
	}
	if want := len(Buckets()) + 5; result.Dates != want {
		t.Fatalf("dates = %d, want %d (buckets plus trailing)", result.Dates, want)
	}

	rooms, _ := repo.GetPaceSnapshot(context.Background(), models.PaceDomainRooms, target, models.PaceTypeTotal, 7)
	if rooms == nil || !rooms.Count.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("rooms row at lead 7 = %+v, want count 1", rooms)
	}
	covers, _ := repo.GetPaceSnapshot(context.Background(), models.PaceDomainCovers, target, models.PaceTypeNonResident, 7)
	if covers == nil || !covers.Count.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("non-resident covers at lead 7 = %+v, want 3", covers)
	}
}

func TestLookupPaceBrackets(t *testing.T) {
	repo := newStubRepo()
	stayDate := day(60)
	repo.paceRows[paceKey(models.PaceDomainRooms, stayDate, models.PaceTypeTotal, 65)] = models.PaceSnapshot{
		Domain: models.PaceDomainRooms, StayDate: stayDate, PaceType: models.PaceTypeTotal,
		LeadTime: 65, Count: decimal.NewFromInt(12),
	}

	row, err := LookupPace(context.Background(), repo, models.PaceDomainRooms, stayDate, models.PaceTypeTotal, 63)
	if err != nil {
		t.Fatalf("LookupPace: %v", err)
	}
	if row == nil || row.LeadTime != 65 {
		t.Fatalf("lead 63 should resolve to bucket 65, got %+v", row)
	}

	row, err = LookupPace(context.Background(), repo, models.PaceDomainRooms, stayDate, models.PaceTypeTotal, 400)
	if err != nil || row != nil {
		t.Fatalf("out-of-horizon lead should return nothing, got %+v, %v", row, err)
	}
}
