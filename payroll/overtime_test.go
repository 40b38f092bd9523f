package payroll_test

import (
	"testing"
	"time"

	"github.com/shiftwise/payroll-engine/payroll"
	"github.com/shiftwise/payroll-engine/schedule"
)

var defaultThresholds = payroll.Thresholds{WarningHours: 70, CriticalHours: 78}

// biweekly window 2024-01-15 .. 2024-01-28
func testPeriod(paidMinutes int) *payroll.PayPeriod {
	return &payroll.PayPeriod{
		ID:          "period-1",
		OwnerID:     "owner-1",
		Start:       schedule.NewDate(2024, time.January, 15),
		End:         schedule.NewDate(2024, time.January, 28),
		PaidMinutes: paidMinutes,
	}
}

func clockAt(day schedule.Date) payroll.FixedClock {
	return payroll.FixedClock{At: day.AtMinute(12 * 60)}
}

func TestPredict_LinearProjection(t *testing.T) {
	// GIVEN: 40h booked by day 7 of a 14-day window
	// THEN:  pace is 40/7 per day, projecting to 80h at window end
	pr := payroll.NewProjector(clockAt(schedule.NewDate(2024, time.January, 22)))
	got := pr.Predict(testPeriod(40*60), 80, defaultThresholds)

	if got.Complete {
		t.Fatal("current period reported complete")
	}
	if got.DaysElapsed != 7 || got.DaysRemaining != 7 {
		t.Errorf("days = %d elapsed, %d remaining; want 7, 7", got.DaysElapsed, got.DaysRemaining)
	}
	if got.ProjectedHours != 80 {
		t.Errorf("projected = %f, want 80", got.ProjectedHours)
	}
	// Projection hits the target exactly.
	if got.Level != payroll.LevelCritical {
		t.Errorf("level = %s, want critical", got.Level)
	}
	if got.RecommendedDailyHours == nil {
		t.Fatal("expected a recommendation with days remaining")
	}
	if want := (80.0 - 40.0) / 7; *got.RecommendedDailyHours != want {
		t.Errorf("recommended = %f, want %f", *got.RecommendedDailyHours, want)
	}
}

func TestPredict_LadderRungs(t *testing.T) {
	// Day 7 of 14: projected = current * 2.
	today := schedule.NewDate(2024, time.January, 22)
	cases := []struct {
		name        string
		paidMinutes int
		want        payroll.WarningLevel
	}{
		{"exceeded at target", 80 * 60, payroll.LevelExceeded},
		{"critical on current hours", 78 * 60, payroll.LevelCritical},
		{"critical on projection", 41 * 60, payroll.LevelCritical},    // projects to 82
		{"projection outranks warning rung", 70 * 60, payroll.LevelCritical}, // projects to 140
		{"warning on projection", 39*60 + 30, payroll.LevelWarning},   // projects to 79
		{"projection outranks approaching rung", 56 * 60, payroll.LevelCritical},
		{"none", 20 * 60, payroll.LevelNone},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pr := payroll.NewProjector(clockAt(today))
			got := pr.Predict(testPeriod(c.paidMinutes), 80, defaultThresholds)
			if got.Level != c.want {
				t.Errorf("%dm -> %s, want %s", c.paidMinutes, got.Level, c.want)
			}
		})
	}
}

func TestPredict_EarlyLadderRungs(t *testing.T) {
	// Day 12 of 14 with a high target keeps the projection below the
	// upper rungs, so the lower rungs match on current hours alone.
	today := schedule.NewDate(2024, time.January, 27)
	cases := []struct {
		name        string
		paidMinutes int
		want        payroll.WarningLevel
	}{
		{"warning on current hours", 70 * 60, payroll.LevelWarning},
		{"approaching at 80% of warning", 56 * 60, payroll.LevelApproaching},
		{"just below approaching", 55 * 60, payroll.LevelNone},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pr := payroll.NewProjector(clockAt(today))
			got := pr.Predict(testPeriod(c.paidMinutes), 120, payroll.Thresholds{WarningHours: 70, CriticalHours: 110})
			if got.Level != c.want {
				t.Errorf("%dm -> %s, want %s", c.paidMinutes, got.Level, c.want)
			}
		})
	}
}

func TestPredict_FirstDayAvoidsDivisionByZero(t *testing.T) {
	pr := payroll.NewProjector(clockAt(schedule.NewDate(2024, time.January, 15)))
	got := pr.Predict(testPeriod(8*60), 80, defaultThresholds)

	if got.DaysElapsed != 1 {
		t.Errorf("days elapsed = %d, want 1 (floored)", got.DaysElapsed)
	}
	if got.ProjectedHours != 8+8*13 {
		t.Errorf("projected = %f, want 112", got.ProjectedHours)
	}
}

func TestPredict_PastPeriodIsComplete(t *testing.T) {
	// A window that does not contain today gets no projection, just the
	// classification of its booked hours.
	pr := payroll.NewProjector(clockAt(schedule.NewDate(2024, time.February, 10)))
	got := pr.Predict(testPeriod(85*60), 80, defaultThresholds)

	if !got.Complete {
		t.Fatal("past period not reported complete")
	}
	if got.Level != payroll.LevelExceeded {
		t.Errorf("level = %s, want exceeded", got.Level)
	}
	if got.RecommendedDailyHours != nil {
		t.Error("complete period should not carry a recommendation")
	}
}

func TestPredict_TargetAlreadyMet(t *testing.T) {
	pr := payroll.NewProjector(clockAt(schedule.NewDate(2024, time.January, 22)))
	got := pr.Predict(testPeriod(90*60), 80, defaultThresholds)

	if got.Level != payroll.LevelExceeded {
		t.Errorf("level = %s, want exceeded", got.Level)
	}
	if got.RecommendedDailyHours == nil || *got.RecommendedDailyHours != 0 {
		t.Error("recommendation should floor at zero once the target is met")
	}
}
