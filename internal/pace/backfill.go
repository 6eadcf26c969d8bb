package pace

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"revpace/internal/models"
	"revpace/internal/repository"
)

const backfillScope = "pace_backfill"

// BackfillService reconstructs pace values for past stay dates as if each
// bucket's snapshot had been taken at its historical instant (stay date
// minus lead, date-truncated), using only placement timestamps.
//
// The active-status filter is evaluated at reconstruction time, not as the
// status stood historically: placed_at is the only trustworthy event
// timestamp the ledger carries, so a booking cancelled after the simulated
// instant is excluded even though it was live back then. A known, flagged
// approximation.
type BackfillService struct {
	Repo   repository.Repository
	Logger *zap.Logger

	// Epoch is the earliest instant the ledger is trusted; snapshot instants
	// before it are skipped.
	Epoch time.Time
}

type BackfillOptions struct {
	From time.Time
	To   time.Time
	// Resume continues from the persisted watermark instead of From.
	Resume bool
	// Repair recomputes dates whose pace rows are already fully populated;
	// without it such dates are skipped (the resume/idempotence mechanism).
	Repair bool
}

type BackfillResult struct {
	Dates           int `json:"dates"`
	Rows            int `json:"rows"`
	SkippedFuture   int `json:"skipped_future"`
	SkippedEpoch    int `json:"skipped_epoch"`
	SkippedExisting int `json:"skipped_existing"`
	Errors          int `json:"errors"`
}

func (s *BackfillService) Run(ctx context.Context, opts BackfillOptions) (BackfillResult, error) {
	if s == nil || s.Repo == nil {
		return BackfillResult{}, nil
	}
	result := BackfillResult{}
	now := time.Now().UTC()
	today := DateOf(now)

	start := DateOf(opts.From)
	end := DateOf(opts.To)
	if end.After(today) {
		end = today
	}
	if opts.Resume {
		if run, err := s.Repo.GetAggregationRun(ctx, backfillScope); err == nil && run != nil && run.WatermarkTS != nil {
			if wm := DateOf(*run.WatermarkTS); wm.After(start) {
				start = wm.AddDate(0, 0, 1)
			}
		}
	}

	attempt := now
	_ = s.Repo.SaveAggregationRun(ctx, &models.AggregationRun{
		Scope:         backfillScope,
		LastAttemptAt: &attempt,
	})

	for stayDate := start; !stayDate.After(end); stayDate = stayDate.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rows, skipped, err := s.backfillDate(ctx, stayDate, today, now, opts.Repair, &result)
		if err != nil {
			result.Errors++
			if s.Logger != nil {
				s.Logger.Warn("pace backfill failed for stay date",
					zap.String("stay_date", stayDate.Format("2006-01-02")),
					zap.Error(err),
				)
			}
			continue
		}
		if skipped {
			result.SkippedExisting++
		} else {
			result.Dates++
			result.Rows += rows
		}
		// Commit progress per stay date so an interrupted sweep resumes from
		// the last finished unit.
		s.saveWatermark(ctx, stayDate, result)
	}

	success := time.Now().UTC()
	stats, _ := json.Marshal(result)
	wm := end
	_ = s.Repo.SaveAggregationRun(ctx, &models.AggregationRun{
		Scope:         backfillScope,
		WatermarkTS:   &wm,
		LastSuccessAt: &success,
		LastAttemptAt: &attempt,
		StatsJSON:     datatypes.JSON(stats),
	})
	return result, nil
}

func (s *BackfillService) saveWatermark(ctx context.Context, stayDate time.Time, result BackfillResult) {
	stats, _ := json.Marshal(result)
	wm := stayDate
	if err := s.Repo.SaveAggregationRun(ctx, &models.AggregationRun{
		Scope:       backfillScope,
		WatermarkTS: &wm,
		StatsJSON:   datatypes.JSON(stats),
	}); err != nil && s.Logger != nil {
		s.Logger.Warn("backfill watermark save failed", zap.Error(err))
	}
}

// backfillDate reconstructs every eligible bucket for one stay date,
// smallest lead first, and upserts only the buckets computed in this run.
func (s *BackfillService) backfillDate(ctx context.Context, stayDate, today, observedAt time.Time, repair bool, result *BackfillResult) (int, bool, error) {
	eligible := s.eligibleBuckets(stayDate, today, result)
	if len(eligible) == 0 {
		return 0, true, nil
	}

	if !repair {
		existing, err := s.Repo.CountPaceSnapshots(ctx, models.PaceDomainRooms, stayDate, models.PaceTypeTotal)
		if err != nil {
			return 0, false, err
		}
		if existing >= int64(len(eligible)) {
			return 0, true, nil
		}
	}

	statuses := models.ActiveBookingStatuses()
	var items []models.PaceSnapshot
	for _, lead := range eligible {
		instant := stayDate.AddDate(0, 0, -lead)
		cutoff := CutoffFor(instant)

		roomRows, err := s.Repo.RoomOTB(ctx, repository.OTBQuery{
			OccupancyDate: stayDate,
			PlacedBefore:  &cutoff,
			Statuses:      statuses,
		})
		if err != nil {
			return 0, false, err
		}
		var rooms int64
		revenue := decimal.Zero
		for _, row := range roomRows {
			rooms += row.Rooms
			revenue = revenue.Add(row.Revenue)
		}
		rev := revenue
		items = append(items, models.PaceSnapshot{
			Domain:     models.PaceDomainRooms,
			StayDate:   stayDate,
			PaceType:   models.PaceTypeTotal,
			LeadTime:   lead,
			Count:      decimal.NewFromInt(rooms),
			Revenue:    &rev,
			ObservedAt: observedAt,
		})

		covers, err := s.Repo.CoverOTB(ctx, repository.CoverOTBQuery{
			BookingDate:  stayDate,
			PlacedBefore: &cutoff,
			Statuses:     statuses,
		})
		if err != nil {
			return 0, false, err
		}
		for _, paceType := range []string{models.PaceTypeTotal, models.PaceTypeResident, models.PaceTypeNonResident} {
			items = append(items, models.PaceSnapshot{
				Domain:     models.PaceDomainCovers,
				StayDate:   stayDate,
				PaceType:   paceType,
				LeadTime:   lead,
				Count:      decimal.NewFromInt(covers.ByPaceType(paceType)),
				ObservedAt: observedAt,
			})
		}
	}

	if err := s.Repo.UpsertPaceSnapshots(ctx, items); err != nil {
		return 0, false, err
	}
	return len(items), false, nil
}

// eligibleBuckets filters the tracked buckets to those whose snapshot
// instant is observable: not in the future, not before the ledger epoch.
func (s *BackfillService) eligibleBuckets(stayDate, today time.Time, result *BackfillResult) []int {
	var out []int
	for _, lead := range Buckets() {
		instant := stayDate.AddDate(0, 0, -lead)
		if instant.After(today) {
			if result != nil {
				result.SkippedFuture++
			}
			continue
		}
		if !s.Epoch.IsZero() && instant.Before(DateOf(s.Epoch)) {
			if result != nil {
				result.SkippedEpoch++
			}
			continue
		}
		out = append(out, lead)
	}
	return out
}
