/*
overtime.go - End-of-window projection and warning classification

PURPOSE:
  Read-only consumer of pay-period aggregates. Projects the end-of-window
  hours from the average pace so far and classifies risk on an ordered
  ladder: exceeded, critical, warning, approaching, none. First matching
  rung wins.
*/
package payroll

import (
	"github.com/shiftwise/payroll-engine/schedule"
)

// Projector turns period aggregates into an overtime prediction. "Today"
// comes from the injected clock so projections are reproducible in tests.
type Projector struct {
	Clock Clock
}

func NewProjector(clock Clock) *Projector {
	return &Projector{Clock: clock}
}

// Predict projects the period's end-of-window hours and classifies the
// warning level against targetHours and the ladder thresholds.
//
// A period that does not contain today is terminal: Complete is set and
// no projection is produced, only the classification of what is already
// on the books.
func (pr *Projector) Predict(period *PayPeriod, targetHours float64, th Thresholds) Prediction {
	currentHours := float64(period.PaidMinutes) / 60

	today := schedule.DateOf(pr.Clock.Now())
	if !period.Contains(today) {
		return Prediction{
			PeriodID:     period.ID,
			Complete:     true,
			CurrentHours: currentHours,
			Level:        classify(currentHours, currentHours, targetHours, th),
		}
	}

	daysElapsed := schedule.DaysBetween(period.Start, today)
	if daysElapsed < 1 {
		daysElapsed = 1
	}
	daysRemaining := period.LengthDays() - daysElapsed
	if daysRemaining < 0 {
		daysRemaining = 0
	}

	averagePerDay := currentHours / float64(daysElapsed)
	projectedHours := currentHours + averagePerDay*float64(daysRemaining)

	p := Prediction{
		PeriodID:       period.ID,
		CurrentHours:   currentHours,
		AveragePerDay:  averagePerDay,
		ProjectedHours: projectedHours,
		DaysElapsed:    daysElapsed,
		DaysRemaining:  daysRemaining,
		Level:          classify(currentHours, projectedHours, targetHours, th),
	}

	if daysRemaining > 0 {
		remaining := targetHours - currentHours
		if remaining < 0 {
			remaining = 0
		}
		rec := remaining / float64(daysRemaining)
		p.RecommendedDailyHours = &rec
	}
	return p
}

// classify walks the ladder in order; the first matching rung wins.
func classify(current, projected, target float64, th Thresholds) WarningLevel {
	switch {
	case current >= target:
		return LevelExceeded
	case current >= th.CriticalHours || projected >= target:
		return LevelCritical
	case current >= th.WarningHours || projected >= th.CriticalHours:
		return LevelWarning
	case th.WarningHours > 0 && current/th.WarningHours >= 0.80:
		return LevelApproaching
	default:
		return LevelNone
	}
}
