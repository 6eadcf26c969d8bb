package ensemble

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"revpace/internal/models"
	"revpace/internal/pace"
	"revpace/internal/pickup"
	"revpace/internal/repository"
)

// BacktestEngine replays the pickup pipeline at historical perception
// dates. For target date D and lead L the perception is P = D - L; every
// query is restricted to placements visible by the end of P, which is all
// the reproducibility the sweep needs.
type BacktestEngine struct {
	Repo       repository.Repository
	Logger     *zap.Logger
	Forecaster *pickup.Forecaster

	// Engine, when set, also persists per-producer forecast snapshots for
	// each perception so the sweep feeds the accuracy weighting.
	Engine *Engine

	Epoch time.Time
}

type BacktestRequest struct {
	Metric    string    `json:"metric"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	LeadTimes []int     `json:"lead_times"`
}

func (r BacktestRequest) validate() error {
	if !models.IsKnownMetric(r.Metric) {
		return fmt.Errorf("unknown metric %q", r.Metric)
	}
	if r.To.Before(r.From) {
		return fmt.Errorf("backtest range ends before it starts")
	}
	if len(r.LeadTimes) == 0 {
		return fmt.Errorf("no lead times given")
	}
	for _, lead := range r.LeadTimes {
		if lead < 0 || lead > pace.MaxLeadDays {
			return fmt.Errorf("lead time %d outside [0, %d]", lead, pace.MaxLeadDays)
		}
	}
	return nil
}

type BacktestSummary struct {
	Count  int             `json:"count"`
	Scored int             `json:"scored"`
	MAE    decimal.Decimal `json:"mae"`
	MAPE   decimal.Decimal `json:"mape"`
}

type BacktestReport struct {
	RunID    string                     `json:"run_id"`
	Results  []models.BacktestResult    `json:"results"`
	Overall  BacktestSummary            `json:"overall"`
	ByLead   map[int]BacktestSummary    `json:"by_lead"`
	ByMethod map[string]BacktestSummary `json:"by_method"`
	Skipped  int                        `json:"skipped"`
}

func (e *BacktestEngine) Run(ctx context.Context, req BacktestRequest) (*BacktestReport, error) {
	if e == nil || e.Repo == nil || e.Forecaster == nil {
		return nil, fmt.Errorf("backtest engine not wired")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	report := &BacktestReport{RunID: uuid.NewString()}
	today := pace.DateOf(time.Now().UTC())
	from, to := pace.DateOf(req.From), pace.DateOf(req.To)

	for target := from; !target.After(to); target = target.AddDate(0, 0, 1) {
		for _, lead := range req.LeadTimes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			perception := target.AddDate(0, 0, -lead)
			if perception.After(today) {
				report.Skipped++
				continue
			}
			if !e.Epoch.IsZero() && perception.Before(pace.DateOf(e.Epoch)) {
				report.Skipped++
				continue
			}

			row := e.replayCell(ctx, req.Metric, target, lead, perception, today)
			row.RunID = report.RunID
			report.Results = append(report.Results, row)
		}
	}

	if len(report.Results) > 0 {
		if err := e.Repo.UpsertBacktestResults(ctx, report.Results); err != nil {
			return nil, err
		}
	}
	summarize(report)
	return report, nil
}

// replayCell computes one (target date, lead) cell. Failures never abort
// the sweep; they land in the row's error message.
func (e *BacktestEngine) replayCell(ctx context.Context, metric string, target time.Time, lead int, perception, today time.Time) models.BacktestResult {
	row := models.BacktestResult{
		TargetDate: target,
		MetricCode: metric,
		LeadTime:   lead,
	}
	asOf := pace.CutoffFor(perception)

	if err := e.fillProjection(ctx, &row, metric, target, asOf); err != nil {
		msg := err.Error()
		row.ErrorMessage = &msg
		if e.Logger != nil {
			e.Logger.Warn("backtest cell failed",
				zap.String("metric", metric),
				zap.String("target_date", target.Format("2006-01-02")),
				zap.Int("lead_time", lead),
				zap.Error(err),
			)
		}
		return row
	}

	if e.Engine != nil {
		if _, err := e.Engine.Forecast(ctx, metric, target, target, perception); err != nil && e.Logger != nil {
			e.Logger.Warn("backtest snapshot persistence failed",
				zap.String("target_date", target.Format("2006-01-02")),
				zap.Error(err),
			)
		}
	}

	if target.Before(today) {
		actual, err := Observe(ctx, e.Repo, metric, target, nil)
		if err != nil {
			msg := "actual: " + err.Error()
			row.ErrorMessage = &msg
			return row
		}
		scoreRow(&row, actual)
	}
	return row
}

func (e *BacktestEngine) fillProjection(ctx context.Context, row *models.BacktestResult, metric string, target, asOf time.Time) error {
	switch metric {
	case models.MetricRoomsSold, models.MetricOccupancyPct:
		r, err := e.Forecaster.Rooms(ctx, target, asOf)
		if err != nil {
			return err
		}
		row.Method = r.Method
		if r.PriorYearOTB != nil {
			v := decimal.NewFromInt(*r.PriorYearOTB)
			row.PriorYearOTB = &v
		}
		if r.PriorYearFinal != nil {
			v := decimal.NewFromInt(*r.PriorYearFinal)
			row.PriorYearFinal = &v
		}
		if metric == models.MetricOccupancyPct {
			o, err := e.Forecaster.Occupancy(ctx, target, asOf)
			if err != nil {
				return err
			}
			if r.Capacity > 0 {
				row.SimulatedOTB = decimal.NewFromInt(r.CurrentOTB).
					Div(decimal.NewFromInt(r.Capacity)).
					Mul(decimal.NewFromInt(100))
			}
			row.ProjectedValue = o.Forecast
		} else {
			row.SimulatedOTB = decimal.NewFromInt(r.CurrentOTB)
			row.ProjectedValue = decimal.NewFromInt(r.Forecast)
		}
	case models.MetricRoomRevenue:
		r, err := e.Forecaster.Revenue(ctx, target, asOf)
		if err != nil {
			return err
		}
		row.Method = r.Method
		row.SimulatedOTB = r.CurrentOTBRevenue
		row.ProjectedValue = r.Point
	default:
		c, err := e.Forecaster.Covers(ctx, target, asOf, models.CoverPaceType(metric))
		if err != nil {
			return err
		}
		row.Method = c.Method
		row.SimulatedOTB = decimal.NewFromInt(c.CurrentOTB)
		row.ProjectedValue = decimal.NewFromInt(c.Forecast)
		if c.PriorYearOTB != nil {
			v := decimal.NewFromInt(*c.PriorYearOTB)
			row.PriorYearOTB = &v
		}
		if c.PriorYearFinal != nil {
			v := decimal.NewFromInt(*c.PriorYearFinal)
			row.PriorYearFinal = &v
		}
	}
	return nil
}

func scoreRow(row *models.BacktestResult, actual decimal.Decimal) {
	row.ActualValue = &actual
	signed := row.ProjectedValue.Sub(actual)
	abs := signed.Abs()
	row.ErrorSigned = &signed
	row.ErrorAbs = &abs
	if !actual.IsZero() {
		pct := abs.Div(actual.Abs()).Mul(decimal.NewFromInt(100))
		row.ErrorPct = &pct
	}
}

func summarize(report *BacktestReport) {
	report.ByLead = map[int]BacktestSummary{}
	report.ByMethod = map[string]BacktestSummary{}

	type acc struct {
		count, scored, pctN int
		absSum, pctSum      decimal.Decimal
	}
	overall := &acc{}
	byLead := map[int]*acc{}
	byMethod := map[string]*acc{}

	add := func(a *acc, row *models.BacktestResult) {
		a.count++
		if row.ErrorAbs == nil {
			return
		}
		a.scored++
		a.absSum = a.absSum.Add(*row.ErrorAbs)
		if row.ErrorPct != nil {
			a.pctN++
			a.pctSum = a.pctSum.Add(*row.ErrorPct)
		}
	}
	finish := func(a *acc) BacktestSummary {
		s := BacktestSummary{Count: a.count, Scored: a.scored}
		if a.scored > 0 {
			s.MAE = a.absSum.Div(decimal.NewFromInt(int64(a.scored)))
		}
		if a.pctN > 0 {
			s.MAPE = a.pctSum.Div(decimal.NewFromInt(int64(a.pctN)))
		}
		return s
	}

	for i := range report.Results {
		row := &report.Results[i]
		add(overall, row)
		if _, ok := byLead[row.LeadTime]; !ok {
			byLead[row.LeadTime] = &acc{}
		}
		add(byLead[row.LeadTime], row)
		method := row.Method
		if method == "" {
			method = "error"
		}
		if _, ok := byMethod[method]; !ok {
			byMethod[method] = &acc{}
		}
		add(byMethod[method], row)
	}

	report.Overall = finish(overall)
	for lead, a := range byLead {
		report.ByLead[lead] = finish(a)
	}
	for method, a := range byMethod {
		report.ByMethod[method] = finish(a)
	}
}
