package pickup

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"revpace/internal/models"
	"revpace/internal/pace"
	"revpace/internal/repository"
)

// PriorYearOffsetDays is 52 weeks, not a calendar year, so the comparison
// date lands on the same weekday.
const PriorYearOffsetDays = 364

// Projection methods, recorded on every forecast so the heuristic fallback
// is never indistinguishable from the data-driven path.
const (
	MethodPickup        = "pickup"
	MethodImpliedPickup = "implied_pickup"
	MethodOTBOnly       = "otb_only"
)

// impliedPickupBands estimate the share of final business still unplaced at
// a lead time, used only when the prior year's same-lead position cannot be
// reconstructed. Approximate by construction.
var impliedPickupBands = []struct {
	maxLead int
	share   float64
}{
	{3, 0.05},
	{7, 0.10},
	{14, 0.18},
	{30, 0.30},
	{60, 0.42},
	{90, 0.52},
	{180, 0.65},
	{365, 0.75},
}

func impliedShare(lead int) decimal.Decimal {
	for _, b := range impliedPickupBands {
		if lead <= b.maxLead {
			return decimal.NewFromFloat(b.share)
		}
	}
	return decimal.NewFromFloat(impliedPickupBands[len(impliedPickupBands)-1].share)
}

// Forecaster projects rooms, occupancy, covers, and revenue for future stay
// dates from current and prior-year on-the-books positions. All queries are
// bounded by the asOf instant, so the same Forecaster serves both live
// forecasts and perception-date replays.
type Forecaster struct {
	Repo   repository.Repository
	Logger *zap.Logger

	// Epoch is the earliest instant the ledger is trusted; prior-year
	// lookups that would reach before it degrade instead of lying.
	Epoch time.Time

	// MaxListedSamples bounds how many of the earliest pickup bookings set
	// the "listed rate" comparison. Zero means 3.
	MaxListedSamples int
}

type RoomsForecast struct {
	StayDate time.Time `json:"stay_date"`
	LeadTime int       `json:"lead_time"`

	CurrentOTB     int64  `json:"current_otb"`
	PriorYearOTB   *int64 `json:"prior_year_otb,omitempty"`
	PriorYearFinal *int64 `json:"prior_year_final,omitempty"`
	Pickup         int64  `json:"pickup"`
	Forecast       int64  `json:"forecast"`
	Capacity       int64  `json:"capacity"`
	Method         string `json:"method"`
}

type OccupancyForecast struct {
	StayDate time.Time       `json:"stay_date"`
	LeadTime int             `json:"lead_time"`
	Forecast decimal.Decimal `json:"forecast"`
	Method   string          `json:"method"`
}

type RevenueForecast struct {
	StayDate time.Time `json:"stay_date"`
	LeadTime int       `json:"lead_time"`

	CurrentOTBRevenue decimal.Decimal `json:"current_otb_revenue"`

	AtPriorADR    decimal.Decimal `json:"at_prior_adr"`
	AtCurrentRack decimal.Decimal `json:"at_current_rack"`
	CheaperHalf   decimal.Decimal `json:"cheaper_half"`
	ExpensiveHalf decimal.Decimal `json:"expensive_half"`

	Point   decimal.Decimal `json:"point"`
	Lower   decimal.Decimal `json:"lower"`
	Upper   decimal.Decimal `json:"upper"`
	Ceiling decimal.Decimal `json:"ceiling"`

	LostPotential decimal.Decimal `json:"lost_potential"`
	Method        string          `json:"method"`
}

// categoryPosition is the per-category pickup state shared by the rooms and
// revenue paths. Category-level granularity keeps incompatible rate and
// capacity profiles from mixing.
type categoryPosition struct {
	CategoryID string
	Capacity   int64
	RackRate   *decimal.Decimal

	CurrentRooms   int64
	CurrentRevenue decimal.Decimal
	PriorOTB       int64
	PriorFinal     int64
	Pickup         int64
}

type position struct {
	StayDate time.Time
	AsOf     time.Time
	LeadTime int
	Method   string

	Categories []categoryPosition
	Capacity   int64

	CurrentOTB     int64
	CurrentRevenue decimal.Decimal
	PriorOTB       int64
	PriorFinal     int64
	Pickup         int64
}

func (f *Forecaster) reconstruct(ctx context.Context, stayDate, asOf time.Time) (*position, error) {
	stayDate = pace.DateOf(stayDate)
	lead := pace.LeadDays(asOf, stayDate)
	statuses := models.ActiveBookingStatuses()

	pos := &position{StayDate: stayDate, AsOf: asOf, LeadTime: lead}

	categories, err := f.Repo.ListRoomCategories(ctx, true)
	if err != nil {
		return nil, err
	}
	byCat := map[string]*categoryPosition{}
	for _, c := range categories {
		cp := &categoryPosition{CategoryID: c.ID, Capacity: int64(c.Capacity), RackRate: c.RackRate}
		byCat[c.ID] = cp
		pos.Capacity += int64(c.Capacity)
	}
	ensure := func(id string) *categoryPosition {
		if cp, ok := byCat[id]; ok {
			return cp
		}
		cp := &categoryPosition{CategoryID: id}
		byCat[id] = cp
		return cp
	}

	currentRows, err := f.Repo.RoomOTB(ctx, repository.OTBQuery{
		OccupancyDate: stayDate,
		PlacedBefore:  &asOf,
		Statuses:      statuses,
	})
	if err != nil {
		return nil, err
	}
	for _, row := range currentRows {
		cp := ensure(row.CategoryID)
		cp.CurrentRooms = row.Rooms
		cp.CurrentRevenue = row.Revenue
		pos.CurrentOTB += row.Rooms
		pos.CurrentRevenue = pos.CurrentRevenue.Add(row.Revenue)
	}

	priorDate := stayDate.AddDate(0, 0, -PriorYearOffsetDays)
	priorAsOf := asOf.AddDate(0, 0, -PriorYearOffsetDays)

	switch {
	case lead <= 0:
		pos.Method = MethodOTBOnly
	case !priorDate.Before(pace.DateOf(asOf)):
		// The reference date has not completed as of this observation, so
		// no final exists to pick up toward.
		pos.Method = MethodOTBOnly
	case !f.Epoch.IsZero() && priorDate.Before(pace.DateOf(f.Epoch)):
		// No prior-year reference at all.
		pos.Method = MethodOTBOnly
	default:
		// The final is read at asOf, not "ever": a replay must not count
		// placements that landed after its observation instant.
		finalRows, err := f.Repo.RoomOTB(ctx, repository.OTBQuery{
			OccupancyDate: priorDate,
			PlacedBefore:  &asOf,
			Statuses:      statuses,
		})
		if err != nil {
			return nil, err
		}
		for _, row := range finalRows {
			cp := ensure(row.CategoryID)
			cp.PriorFinal = row.Rooms
			pos.PriorFinal += row.Rooms
		}
		if pos.PriorFinal == 0 {
			pos.Method = MethodOTBOnly
			break
		}

		if !f.Epoch.IsZero() && priorAsOf.Before(f.Epoch) {
			// Final is known but the same-lead position is not
			// reconstructable; estimate pickup from the banded table.
			pos.Method = MethodImpliedPickup
			share := impliedShare(lead)
			for _, cp := range byCat {
				cp.Pickup = decimal.NewFromInt(cp.PriorFinal).Mul(share).Round(0).IntPart()
				pos.Pickup += cp.Pickup
			}
			break
		}

		otbRows, err := f.Repo.RoomOTB(ctx, repository.OTBQuery{
			OccupancyDate: priorDate,
			PlacedBefore:  &priorAsOf,
			Statuses:      statuses,
		})
		if err != nil {
			return nil, err
		}
		for _, row := range otbRows {
			cp := ensure(row.CategoryID)
			cp.PriorOTB = row.Rooms
			pos.PriorOTB += row.Rooms
		}
		pos.Method = MethodPickup
		for _, cp := range byCat {
			if d := cp.PriorFinal - cp.PriorOTB; d > 0 {
				cp.Pickup = d
				pos.Pickup += d
			}
		}
	}

	for _, cp := range byCat {
		pos.Categories = append(pos.Categories, *cp)
	}
	sort.Slice(pos.Categories, func(i, j int) bool {
		return pos.Categories[i].CategoryID < pos.Categories[j].CategoryID
	})
	return pos, nil
}

// Rooms projects the sold-room count for a stay date as seen at asOf.
// The result is floored at the current position and capped at capacity.
func (f *Forecaster) Rooms(ctx context.Context, stayDate, asOf time.Time) (*RoomsForecast, error) {
	if f == nil || f.Repo == nil {
		return nil, nil
	}
	pos, err := f.reconstruct(ctx, stayDate, asOf)
	if err != nil {
		return nil, err
	}

	out := &RoomsForecast{
		StayDate:   pos.StayDate,
		LeadTime:   pos.LeadTime,
		CurrentOTB: pos.CurrentOTB,
		Pickup:     pos.Pickup,
		Capacity:   pos.Capacity,
		Method:     pos.Method,
	}
	if pos.Method == MethodPickup {
		otb := pos.PriorOTB
		out.PriorYearOTB = &otb
	}
	if pos.Method == MethodPickup || pos.Method == MethodImpliedPickup {
		final := pos.PriorFinal
		out.PriorYearFinal = &final
	}

	forecast := pos.CurrentOTB + pos.Pickup
	if forecast < pos.CurrentOTB {
		forecast = pos.CurrentOTB
	}
	if pos.Capacity > 0 && forecast > pos.Capacity {
		forecast = pos.Capacity
	}
	out.Forecast = forecast
	return out, nil
}

// Occupancy is the rooms projection as a percentage of capacity, capped at
// 100. Zero capacity yields a zero forecast rather than an error.
func (f *Forecaster) Occupancy(ctx context.Context, stayDate, asOf time.Time) (*OccupancyForecast, error) {
	rooms, err := f.Rooms(ctx, stayDate, asOf)
	if err != nil || rooms == nil {
		return nil, err
	}
	out := &OccupancyForecast{StayDate: rooms.StayDate, LeadTime: rooms.LeadTime, Method: rooms.Method}
	if rooms.Capacity > 0 {
		pct := decimal.NewFromInt(rooms.Forecast).
			Div(decimal.NewFromInt(rooms.Capacity)).
			Mul(decimal.NewFromInt(100))
		if pct.GreaterThan(decimal.NewFromInt(100)) {
			pct = decimal.NewFromInt(100)
		}
		out.Forecast = pct
	}
	return out, nil
}

// Revenue projects room revenue for a stay date with confidence bounds from
// four pricing scenarios of the expected pickup.
func (f *Forecaster) Revenue(ctx context.Context, stayDate, asOf time.Time) (*RevenueForecast, error) {
	if f == nil || f.Repo == nil {
		return nil, nil
	}
	pos, err := f.reconstruct(ctx, stayDate, asOf)
	if err != nil {
		return nil, err
	}

	out := &RevenueForecast{
		StayDate:          pos.StayDate,
		LeadTime:          pos.LeadTime,
		CurrentOTBRevenue: pos.CurrentRevenue,
		Method:            pos.Method,
	}
	if pos.Method == MethodOTBOnly || pos.Pickup == 0 {
		out.AtPriorADR = pos.CurrentRevenue
		out.AtCurrentRack = pos.CurrentRevenue
		out.CheaperHalf = pos.CurrentRevenue
		out.ExpensiveHalf = pos.CurrentRevenue
		out.Point = pos.CurrentRevenue
		out.Lower = pos.CurrentRevenue
		out.Upper = pos.CurrentRevenue
		out.Ceiling = pos.CurrentRevenue
		return out, nil
	}

	priorDate := pos.StayDate.AddDate(0, 0, -PriorYearOffsetDays)
	priorAsOf := pos.AsOf.AddDate(0, 0, -PriorYearOffsetDays)

	atPriorADR := pos.CurrentRevenue
	atRack := pos.CurrentRevenue
	cheaper := pos.CurrentRevenue
	expensive := pos.CurrentRevenue
	lost := decimal.Zero
	expensiveCeilingRate := decimal.Zero

	for i := range pos.Categories {
		cp := &pos.Categories[i]
		if cp.Pickup <= 0 {
			continue
		}
		rates, listed, err := f.pickupRates(ctx, cp.CategoryID, priorDate, priorAsOf, pos.AsOf, pos.Method)
		if err != nil {
			return nil, err
		}

		adr, cheapHalf, expHalf := f.rateScenarios(ctx, cp, priorDate, rates)
		rack := adr
		if cp.RackRate != nil && cp.RackRate.IsPositive() {
			rack = *cp.RackRate
		}

		pickup := decimal.NewFromInt(cp.Pickup)
		atPriorADR = atPriorADR.Add(pickup.Mul(adr))
		atRack = atRack.Add(pickup.Mul(rack))
		cheaper = cheaper.Add(pickup.Mul(cheapHalf))
		expensive = expensive.Add(pickup.Mul(expHalf))

		if expHalf.GreaterThan(expensiveCeilingRate) {
			expensiveCeilingRate = expHalf
		}
		// Rate opportunity: the prior year listed higher at this lead than
		// what is on offer now.
		if cp.RackRate != nil && cp.RackRate.IsPositive() && listed.GreaterThan(*cp.RackRate) {
			lost = lost.Add(pickup.Mul(listed.Sub(*cp.RackRate)))
		}
	}

	out.AtPriorADR = atPriorADR
	out.AtCurrentRack = atRack
	out.CheaperHalf = cheaper
	out.ExpensiveHalf = expensive
	out.LostPotential = lost

	// The point forecast never claims more than currently offered rates can
	// deliver.
	out.Point = decimal.Min(atPriorADR, atRack)
	out.Lower = decimal.Min(atPriorADR, atRack, cheaper, expensive)
	out.Upper = decimal.Max(atPriorADR, atRack, cheaper, expensive)

	remaining := pos.Capacity - pos.CurrentOTB
	if remaining < 0 {
		remaining = 0
	}
	out.Ceiling = pos.CurrentRevenue.Add(decimal.NewFromInt(remaining).Mul(expensiveCeilingRate))
	if pos.Capacity > 0 {
		if out.Point.GreaterThan(out.Ceiling) {
			out.Point = out.Ceiling
		}
		if out.Upper.GreaterThan(out.Ceiling) {
			out.Upper = out.Ceiling
		}
	}
	return out, nil
}

// pickupRates returns the nightly rate distribution of the prior year's
// pickup bookings for one category, plus the listed rate taken from the
// earliest few of them. Under the implied method the same-lead split is not
// reconstructable, so the whole prior date's bookings stand in.
func (f *Forecaster) pickupRates(ctx context.Context, categoryID string, priorDate, priorAsOf, asOf time.Time, method string) ([]decimal.Decimal, decimal.Decimal, error) {
	q := repository.BookingQuery{
		OccupancyDate: priorDate,
		PlacedBefore:  &asOf,
		Statuses:      models.ActiveBookingStatuses(),
		CategoryID:    &categoryID,
		OrderByPlaced: true,
	}
	if method == MethodPickup {
		q.PlacedAfter = &priorAsOf
	}
	bookings, err := f.Repo.ListRoomBookingsOccupying(ctx, q)
	if err != nil {
		return nil, decimal.Zero, err
	}

	rates := make([]decimal.Decimal, 0, len(bookings))
	for i := range bookings {
		rates = append(rates, bookings[i].NightlyNet(priorDate))
	}

	// Earliest placements only: averaging over all pickup lets late
	// discounting misrepresent what was actually on offer at this lead.
	samples := f.MaxListedSamples
	if samples <= 0 {
		samples = 3
	}
	listed := decimal.Zero
	if n := len(rates); n > 0 {
		if samples > n {
			samples = n
		}
		sum := decimal.Zero
		for _, r := range rates[:samples] {
			sum = sum.Add(r)
		}
		listed = sum.Div(decimal.NewFromInt(int64(samples)))
	}
	return rates, listed, nil
}

// rateScenarios derives the ADR and the median-split half-means from the
// pickup rate distribution, falling back to stored rate stats, then the
// rack rate, when the distribution is empty.
func (f *Forecaster) rateScenarios(ctx context.Context, cp *categoryPosition, priorDate time.Time, rates []decimal.Decimal) (adr, cheapHalf, expHalf decimal.Decimal) {
	if len(rates) == 0 {
		if stats, err := f.Repo.GetCategoryRateStats(ctx, cp.CategoryID, priorDate); err == nil && stats != nil && stats.SampleCount > 0 {
			return stats.ADRNet, stats.MinNet, stats.MaxNet
		}
		if cp.RackRate != nil {
			return *cp.RackRate, *cp.RackRate, *cp.RackRate
		}
		return decimal.Zero, decimal.Zero, decimal.Zero
	}

	sorted := make([]decimal.Decimal, len(rates))
	copy(sorted, rates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	sum := decimal.Zero
	for _, r := range sorted {
		sum = sum.Add(r)
	}
	n := len(sorted)
	adr = sum.Div(decimal.NewFromInt(int64(n)))

	// Median split, not mean: a handful of comp rooms must not drag the
	// cheaper half down to nothing.
	cheapHalf = mean(sorted[:(n+1)/2])
	expHalf = mean(sorted[n/2:])
	return adr, cheapHalf, expHalf
}

func mean(rates []decimal.Decimal) decimal.Decimal {
	if len(rates) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, r := range rates {
		sum = sum.Add(r)
	}
	return sum.Div(decimal.NewFromInt(int64(len(rates))))
}
