package ensemble

import (
	"context"
	"time"

	"revpace/internal/repository"
)

// Weighting converts each producer's tracked accuracy into a normalized
// ensemble weight.
type Weighting struct {
	Repo repository.Repository

	// MAPEFloor keeps a near-perfect run from collapsing all weight onto
	// one producer. Zero means 0.01.
	MAPEFloor float64

	// HistoryDays bounds how far back scored forecasts are considered.
	// Zero means 90.
	HistoryDays int
}

// Weights returns weights summing to 1 for the given producers. Producers
// with no scored history receive the mean raw weight of the scored ones,
// never zero; with no history at all everyone weighs equally.
func (w *Weighting) Weights(ctx context.Context, metric string, asOf time.Time, producers []string) (map[string]float64, error) {
	out := make(map[string]float64, len(producers))
	if len(producers) == 0 {
		return out, nil
	}

	floor := w.MAPEFloor
	if floor <= 0 {
		floor = 0.01
	}
	history := w.HistoryDays
	if history <= 0 {
		history = 90
	}

	mapes := map[string]float64{}
	if w.Repo != nil {
		rows, err := w.Repo.ModelMAPEs(ctx, metric, asOf.AddDate(0, 0, -history), asOf)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.Samples > 0 {
				mapes[row.Model] = row.MAPE
			}
		}
	}

	raw := make(map[string]float64, len(producers))
	scoredSum := 0.0
	scored := 0
	for _, name := range producers {
		if mape, ok := mapes[name]; ok {
			if mape < floor {
				mape = floor
			}
			raw[name] = 1 / mape
			scoredSum += raw[name]
			scored++
		}
	}

	// Unscored producers ride at the average of the scored ones so a new
	// model is neither trusted blindly nor dropped before it has history.
	fill := 1.0
	if scored > 0 {
		fill = scoredSum / float64(scored)
	}
	total := 0.0
	for _, name := range producers {
		if _, ok := raw[name]; !ok {
			raw[name] = fill
		}
		total += raw[name]
	}

	for _, name := range producers {
		out[name] = raw[name] / total
	}
	return out, nil
}
