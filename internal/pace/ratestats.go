package pace

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"revpace/internal/models"
	"revpace/internal/repository"
)

// RateStatsService summarizes the actual nightly tariffs of occupying
// bookings into per (category, stay date) min/max/ADR rows. The summary is
// the rate prior used when a category has no current rack rate.
type RateStatsService struct {
	Repo   repository.Repository
	Logger *zap.Logger

	LookbackDays int
	HorizonDays  int
}

type RateStatsResult struct {
	Dates  int `json:"dates"`
	Rows   int `json:"rows"`
	Errors int `json:"errors"`
}

func (s *RateStatsService) RunOnce(ctx context.Context) (RateStatsResult, error) {
	if s == nil || s.Repo == nil {
		return RateStatsResult{}, nil
	}
	lookback := s.LookbackDays
	if lookback <= 0 {
		lookback = 30
	}
	horizon := s.HorizonDays
	if horizon <= 0 {
		horizon = MaxLeadDays
	}

	today := DateOf(time.Now().UTC())
	result := RateStatsResult{}
	for d := -lookback; d <= horizon; d++ {
		stayDate := today.AddDate(0, 0, d)
		rows, err := s.statsForDate(ctx, stayDate)
		if err != nil {
			result.Errors++
			if s.Logger != nil {
				s.Logger.Warn("rate stats failed for stay date",
					zap.String("stay_date", stayDate.Format("2006-01-02")),
					zap.Error(err),
				)
			}
			continue
		}
		result.Dates++
		result.Rows += rows
	}
	return result, nil
}

func (s *RateStatsService) statsForDate(ctx context.Context, stayDate time.Time) (int, error) {
	bookings, err := s.Repo.ListRoomBookingsOccupying(ctx, repository.BookingQuery{
		OccupancyDate: stayDate,
		Statuses:      models.ActiveBookingStatuses(),
	})
	if err != nil {
		return 0, err
	}
	if len(bookings) == 0 {
		return 0, nil
	}

	ratesByCategory := map[string][]decimal.Decimal{}
	for i := range bookings {
		b := &bookings[i]
		ratesByCategory[b.CategoryID] = append(ratesByCategory[b.CategoryID], b.NightlyNet(stayDate))
	}

	now := time.Now().UTC()
	items := make([]models.CategoryRateStats, 0, len(ratesByCategory))
	for categoryID, rates := range ratesByCategory {
		sort.Slice(rates, func(i, j int) bool { return rates[i].LessThan(rates[j]) })
		sum := decimal.Zero
		for _, r := range rates {
			sum = sum.Add(r)
		}
		items = append(items, models.CategoryRateStats{
			CategoryID:  categoryID,
			StayDate:    stayDate,
			MinNet:      rates[0],
			MaxNet:      rates[len(rates)-1],
			ADRNet:      sum.Div(decimal.NewFromInt(int64(len(rates)))),
			SampleCount: len(rates),
			UpdatedAt:   now,
		})
	}
	if err := s.Repo.UpsertCategoryRateStats(ctx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}
