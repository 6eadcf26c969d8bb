package pace

import (
	"time"
)

// Tracked lead-time buckets: daily close to the stay date where short-term
// pickup has the most forecasting leverage, then weekly, then monthly.
//
//	0..30    daily
//	37..177  weekly
//	207..357 monthly
//	365      horizon cap
const MaxLeadDays = 365

var buckets = buildBuckets()

func buildBuckets() []int {
	var out []int
	for d := 0; d <= 30; d++ {
		out = append(out, d)
	}
	for d := 37; d <= 177; d += 7 {
		out = append(out, d)
	}
	for d := 207; d <= 357; d += 30 {
		out = append(out, d)
	}
	out = append(out, MaxLeadDays)
	return out
}

// Buckets returns the tracked lead-time buckets in ascending order.
func Buckets() []int {
	out := make([]int, len(buckets))
	copy(out, buckets)
	return out
}

// Bracket maps an arbitrary lead time onto the tracked bucket that observes
// it: the bucket itself when tracked, otherwise the next larger bucket
// (round-up), so no lead time inside the horizon is left unobserved.
// Returns -1 outside [0, MaxLeadDays].
func Bracket(lead int) int {
	if lead < 0 || lead > MaxLeadDays {
		return -1
	}
	for _, b := range buckets {
		if b >= lead {
			return b
		}
	}
	return -1
}

// IsTracked reports whether lead is itself a tracked bucket.
func IsTracked(lead int) bool {
	for _, b := range buckets {
		if b == lead {
			return true
		}
		if b > lead {
			return false
		}
	}
	return false
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LeadDays is the whole-day lead time between an observation instant and a
// stay date; negative when the stay date already passed.
func LeadDays(asOf, stayDate time.Time) int {
	return int(DateOf(stayDate).Sub(DateOf(asOf)).Hours() / 24)
}

// CutoffFor is the exclusive placed_at cutoff for a date-truncated snapshot
// instant: everything placed during that calendar day is visible.
func CutoffFor(instant time.Time) time.Time {
	return DateOf(instant).AddDate(0, 0, 1)
}
