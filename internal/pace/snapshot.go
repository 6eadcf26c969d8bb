package pace

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"revpace/internal/models"
	"revpace/internal/repository"
)

// SnapshotService computes today's on-the-books values for every tracked
// lead-time bucket and upserts them into the pace tables. Each stay date is
// an independent unit: a failure on one date is logged and skipped.
type SnapshotService struct {
	Repo   repository.Repository
	Logger *zap.Logger

	// TrailingDays controls how many past stay dates get their lead-0
	// (final) row refreshed on each run.
	TrailingDays int
}

type SnapshotResult struct {
	Dates   int `json:"dates"`
	Rows    int `json:"rows"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

func (s *SnapshotService) RunOnce(ctx context.Context) (SnapshotResult, error) {
	if s == nil || s.Repo == nil {
		return SnapshotResult{}, nil
	}
	now := time.Now().UTC()
	today := DateOf(now)
	result := SnapshotResult{}

	for _, lead := range Buckets() {
		stayDate := today.AddDate(0, 0, lead)
		rows, err := s.snapshotDate(ctx, stayDate, lead, now)
		if err != nil {
			result.Errors++
			if s.Logger != nil {
				s.Logger.Warn("pace snapshot failed for stay date",
					zap.String("stay_date", stayDate.Format("2006-01-02")),
					zap.Int("lead_time", lead),
					zap.Error(err),
				)
			}
			continue
		}
		result.Dates++
		result.Rows += rows
	}

	// Trailing window: refresh the final (lead 0) observation for recently
	// passed stay dates so late cancellations and no-shows settle in.
	trailing := s.TrailingDays
	if trailing <= 0 {
		trailing = 30
	}
	for d := 1; d <= trailing; d++ {
		stayDate := today.AddDate(0, 0, -d)
		rows, err := s.snapshotDate(ctx, stayDate, 0, now)
		if err != nil {
			result.Errors++
			if s.Logger != nil {
				s.Logger.Warn("pace trailing refresh failed",
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

// snapshotDate aggregates both booking domains for one stay date at one
// bucket and upserts the resulting pace rows.
func (s *SnapshotService) snapshotDate(ctx context.Context, stayDate time.Time, lead int, observedAt time.Time) (int, error) {
	cutoff := observedAt
	statuses := models.ActiveBookingStatuses()

	roomRows, err := s.Repo.RoomOTB(ctx, repository.OTBQuery{
		OccupancyDate: stayDate,
		PlacedBefore:  &cutoff,
		Statuses:      statuses,
	})
	if err != nil {
		return 0, err
	}
	var rooms int64
	revenue := decimal.Zero
	for _, row := range roomRows {
		rooms += row.Rooms
		revenue = revenue.Add(row.Revenue)
	}

	covers, err := s.Repo.CoverOTB(ctx, repository.CoverOTBQuery{
		BookingDate:  stayDate,
		PlacedBefore: &cutoff,
		Statuses:     statuses,
	})
	if err != nil {
		return 0, err
	}

	items := []models.PaceSnapshot{
		{
			Domain:     models.PaceDomainRooms,
			StayDate:   stayDate,
			PaceType:   models.PaceTypeTotal,
			LeadTime:   lead,
			Count:      decimal.NewFromInt(rooms),
			Revenue:    &revenue,
			ObservedAt: observedAt,
		},
		{
			Domain:     models.PaceDomainCovers,
			StayDate:   stayDate,
			PaceType:   models.PaceTypeTotal,
			LeadTime:   lead,
			Count:      decimal.NewFromInt(covers.Total),
			ObservedAt: observedAt,
		},
		{
			Domain:     models.PaceDomainCovers,
			StayDate:   stayDate,
			PaceType:   models.PaceTypeResident,
			LeadTime:   lead,
			Count:      decimal.NewFromInt(covers.Resident),
			ObservedAt: observedAt,
		},
		{
			Domain:     models.PaceDomainCovers,
			StayDate:   stayDate,
			PaceType:   models.PaceTypeNonResident,
			LeadTime:   lead,
			Count:      decimal.NewFromInt(covers.NonResident),
			ObservedAt: observedAt,
		},
	}
	if err := s.Repo.UpsertPaceSnapshots(ctx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// LookupPace reads a pace value at an arbitrary lead time by bracket-rounding
// to the tracked bucket that observed it.
func LookupPace(ctx context.Context, repo repository.Repository, domain string, stayDate time.Time, paceType string, lead int) (*models.PaceSnapshot, error) {
	bucket := Bracket(lead)
	if bucket < 0 {
		return nil, nil
	}
	return repo.GetPaceSnapshot(ctx, domain, stayDate, paceType, bucket)
}
