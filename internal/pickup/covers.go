package pickup

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"revpace/internal/models"
	"revpace/internal/pace"
	"revpace/internal/repository"
)

type CoversForecast struct {
	StayDate time.Time `json:"stay_date"`
	LeadTime int       `json:"lead_time"`
	PaceType string    `json:"pace_type"`

	CurrentOTB     int64  `json:"current_otb"`
	PriorYearOTB   *int64 `json:"prior_year_otb,omitempty"`
	PriorYearFinal *int64 `json:"prior_year_final,omitempty"`
	Pickup         int64  `json:"pickup"`
	Forecast       int64  `json:"forecast"`
	Method         string `json:"method"`
}

// Covers projects the restaurant cover count for a booking date, per pace
// type. Same pickup construction as rooms but without a capacity ceiling;
// cover limits are a service decision, not a physical one.
func (f *Forecaster) Covers(ctx context.Context, stayDate, asOf time.Time, paceType string) (*CoversForecast, error) {
	if f == nil || f.Repo == nil {
		return nil, nil
	}
	stayDate = pace.DateOf(stayDate)
	lead := pace.LeadDays(asOf, stayDate)
	statuses := models.ActiveBookingStatuses()

	current, err := f.Repo.CoverOTB(ctx, repository.CoverOTBQuery{
		BookingDate:  stayDate,
		PlacedBefore: &asOf,
		Statuses:     statuses,
	})
	if err != nil {
		return nil, err
	}

	out := &CoversForecast{
		StayDate:   stayDate,
		LeadTime:   lead,
		PaceType:   paceType,
		CurrentOTB: current.ByPaceType(paceType),
		Method:     MethodOTBOnly,
	}

	priorDate := stayDate.AddDate(0, 0, -PriorYearOffsetDays)
	priorAsOf := asOf.AddDate(0, 0, -PriorYearOffsetDays)

	if lead > 0 && priorDate.Before(pace.DateOf(asOf)) &&
		(f.Epoch.IsZero() || !priorDate.Before(pace.DateOf(f.Epoch))) {
		// Same visibility rule as rooms: the prior final is what existed at
		// the observation instant, never later arrivals.
		final, err := f.Repo.CoverOTB(ctx, repository.CoverOTBQuery{
			BookingDate:  priorDate,
			PlacedBefore: &asOf,
			Statuses:     statuses,
		})
		if err != nil {
			return nil, err
		}
		priorFinal := final.ByPaceType(paceType)
		if priorFinal > 0 {
			out.PriorYearFinal = &priorFinal
			if !f.Epoch.IsZero() && priorAsOf.Before(f.Epoch) {
				out.Method = MethodImpliedPickup
				out.Pickup = decimal.NewFromInt(priorFinal).Mul(impliedShare(lead)).Round(0).IntPart()
			} else {
				otb, err := f.Repo.CoverOTB(ctx, repository.CoverOTBQuery{
					BookingDate:  priorDate,
					PlacedBefore: &priorAsOf,
					Statuses:     statuses,
				})
				if err != nil {
					return nil, err
				}
				priorOTB := otb.ByPaceType(paceType)
				out.PriorYearOTB = &priorOTB
				out.Method = MethodPickup
				if d := priorFinal - priorOTB; d > 0 {
					out.Pickup = d
				}
			}
		}
	}

	out.Forecast = out.CurrentOTB + out.Pickup
	return out, nil
}
