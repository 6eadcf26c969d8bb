package models

// Metric codes used across forecast snapshots, backtests, and budgets.
const (
	MetricRoomsSold         = "rooms_sold"
	MetricOccupancyPct      = "occupancy_pct"
	MetricRoomRevenue       = "room_revenue"
	MetricCoversTotal       = "covers_total"
	MetricCoversResident    = "covers_resident"
	MetricCoversNonResident = "covers_non_resident"
)

func KnownMetrics() []string {
	return []string{
		MetricRoomsSold,
		MetricOccupancyPct,
		MetricRoomRevenue,
		MetricCoversTotal,
		MetricCoversResident,
		MetricCoversNonResident,
	}
}

func IsKnownMetric(code string) bool {
	for _, m := range KnownMetrics() {
		if m == code {
			return true
		}
	}
	return false
}

// IsRevenueMetric reports whether the metric blends against budget rather
// than prior-year volume.
func IsRevenueMetric(code string) bool {
	return code == MetricRoomRevenue
}

// CoverPaceType maps a covers metric to its pace_type; empty for room metrics.
func CoverPaceType(code string) string {
	switch code {
	case MetricCoversTotal:
		return PaceTypeTotal
	case MetricCoversResident:
		return PaceTypeResident
	case MetricCoversNonResident:
		return PaceTypeNonResident
	default:
		return ""
	}
}
