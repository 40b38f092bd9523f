package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shiftwise/payroll-engine/payroll"
	"github.com/shiftwise/payroll-engine/schedule"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func testShift(start time.Time, durationMin, breakMin int, multiplier string) *schedule.Shift {
	return &schedule.Shift{
		ID:             schedule.NewID(),
		OwnerID:        "owner-1",
		ScheduledStart: start,
		ScheduledEnd:   start.Add(time.Duration(durationMin) * time.Minute),
		BreakMinutes:   breakMin,
		RateMultiplier: mustDecimal(multiplier),
		Status:         schedule.StatusScheduled,
	}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func rate(cents int64) *int64 { return &cents }

var baseStart = time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)

// =============================================================================
// PER-SHIFT CALCULATED FIELDS
// =============================================================================

func TestUpdateCalculatedFields_CanonicalPremiumRule(t *testing.T) {
	// GIVEN: 08:00-16:30 with a 30-minute break at 1.5x
	// THEN: paid = 480, premium = 480 (full paid minutes, not capped)
	s := testShift(baseStart, 510, 30, "1.5")
	payroll.UpdateCalculatedFields(s)

	if s.PaidMinutes != 480 {
		t.Errorf("paid minutes = %d, want 480", s.PaidMinutes)
	}
	if s.PremiumMinutes != 480 {
		t.Errorf("premium minutes = %d, want 480", s.PremiumMinutes)
	}
}

func TestUpdateCalculatedFields_Bounds(t *testing.T) {
	cases := []struct {
		name        string
		durationMin int
		breakMin    int
		multiplier  string
		wantPaid    int
		wantPremium int
	}{
		{"no break, base rate", 480, 0, "1", 480, 0},
		{"break floors at zero", 60, 90, "1", 0, 0},
		{"negative break ignored", 480, -15, "1", 480, 0},
		{"exactly 1.0 is not premium", 480, 0, "1.0", 480, 0},
		{"1.25x is premium", 480, 0, "1.25", 480, 480},
		{"full-day break", 480, 480, "2", 0, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := testShift(baseStart, c.durationMin, c.breakMin, c.multiplier)
			payroll.UpdateCalculatedFields(s)
			if s.PaidMinutes != c.wantPaid {
				t.Errorf("paid = %d, want %d", s.PaidMinutes, c.wantPaid)
			}
			if s.PremiumMinutes != c.wantPremium {
				t.Errorf("premium = %d, want %d", s.PremiumMinutes, c.wantPremium)
			}
			// Invariant: 0 <= premium <= paid <= effective duration.
			if s.PremiumMinutes < 0 || s.PremiumMinutes > s.PaidMinutes ||
				s.PaidMinutes > s.EffectiveDurationMinutes() {
				t.Errorf("bound violated: premium %d, paid %d, duration %d",
					s.PremiumMinutes, s.PaidMinutes, s.EffectiveDurationMinutes())
			}
		})
	}
}

func TestUpdateCalculatedFields_UsesActualsAfterClockOut(t *testing.T) {
	s := testShift(baseStart, 480, 0, "1")
	if err := s.ClockIn(baseStart); err != nil {
		t.Fatal(err)
	}
	if err := s.ClockOut(baseStart.Add(10 * time.Hour)); err != nil {
		t.Fatal(err)
	}
	payroll.UpdateCalculatedFields(s)
	if s.PaidMinutes != 600 {
		t.Errorf("paid = %d, want 600 from actuals", s.PaidMinutes)
	}
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestCalculateSummary_MinutesConservation(t *testing.T) {
	shifts := []*schedule.Shift{
		testShift(baseStart, 480, 0, "1"),
		testShift(baseStart.AddDate(0, 0, 1), 510, 30, "1.5"),
		testShift(baseStart.AddDate(0, 0, 2), 240, 0, "2"),
	}
	for _, s := range shifts {
		payroll.UpdateCalculatedFields(s)
	}

	sum := payroll.CalculateSummary(shifts, nil)
	if sum.TotalPaidMinutes != 480+480+240 {
		t.Errorf("total = %d, want 1200", sum.TotalPaidMinutes)
	}
	if sum.PremiumMinutes != 480+240 {
		t.Errorf("premium = %d, want 720", sum.PremiumMinutes)
	}
	if sum.RegularMinutes+sum.PremiumMinutes != sum.TotalPaidMinutes {
		t.Errorf("conservation violated: %d + %d != %d",
			sum.RegularMinutes, sum.PremiumMinutes, sum.TotalPaidMinutes)
	}
	if sum.EstimatedPayCents != 0 {
		t.Errorf("pay without a rate = %d, want 0", sum.EstimatedPayCents)
	}
}

func TestCalculateSummary_PerShiftPay(t *testing.T) {
	// GIVEN: $20.00/h base rate
	//   8h at 1x   -> 16000
	//   8h at 1.5x -> 24000
	// Pay must be computed per shift, never aggregate-hours x one rate.
	shifts := []*schedule.Shift{
		testShift(baseStart, 480, 0, "1"),
		testShift(baseStart.AddDate(0, 0, 1), 480, 0, "1.5"),
	}
	for _, s := range shifts {
		payroll.UpdateCalculatedFields(s)
	}

	sum := payroll.CalculateSummary(shifts, rate(2000))
	if sum.EstimatedPayCents != 16000+24000 {
		t.Errorf("pay = %d, want 40000", sum.EstimatedPayCents)
	}
}

func TestCalculateSummary_RoundsPerShift(t *testing.T) {
	// 50 minutes at $19.99/h and 1x: 1999 * 50/60 = 1665.83... -> 1666.
	s := testShift(baseStart, 50, 0, "1")
	payroll.UpdateCalculatedFields(s)

	sum := payroll.CalculateSummary([]*schedule.Shift{s}, rate(1999))
	if sum.EstimatedPayCents != 1666 {
		t.Errorf("pay = %d, want 1666", sum.EstimatedPayCents)
	}
}

func TestCalculateSummary_SkipsCancelledAndDeleted(t *testing.T) {
	live := testShift(baseStart, 480, 0, "1")
	cancelled := testShift(baseStart.AddDate(0, 0, 1), 480, 0, "1")
	deleted := testShift(baseStart.AddDate(0, 0, 2), 480, 0, "1")
	for _, s := range []*schedule.Shift{live, cancelled, deleted} {
		payroll.UpdateCalculatedFields(s)
	}
	if err := cancelled.Cancel(); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	deleted.DeletedAt = &now

	sum := payroll.CalculateSummary([]*schedule.Shift{live, cancelled, deleted}, rate(1000))
	if sum.TotalPaidMinutes != 480 {
		t.Errorf("total = %d, want 480 (live shift only)", sum.TotalPaidMinutes)
	}
}

// =============================================================================
// RATE BREAKDOWN
// =============================================================================

func TestRateBreakdown_GroupsAndSorts(t *testing.T) {
	shifts := []*schedule.Shift{
		testShift(baseStart, 480, 0, "1.5"),
		testShift(baseStart.AddDate(0, 0, 1), 480, 0, "1"),
		testShift(baseStart.AddDate(0, 0, 2), 240, 0, "1.5"),
		testShift(baseStart.AddDate(0, 0, 3), 120, 0, "2"),
	}
	shifts[0].RateLabel = "Overtime"
	shifts[2].RateLabel = "Overtime"
	shifts[3].RateLabel = "Holiday"
	for _, s := range shifts {
		payroll.UpdateCalculatedFields(s)
	}

	groups := payroll.RateBreakdown(shifts, rate(2000))
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}

	// Ascending by multiplier.
	if groups[0].Multiplier != "1" || groups[1].Multiplier != "1.5" || groups[2].Multiplier != "2" {
		t.Errorf("order = %s, %s, %s; want 1, 1.5, 2",
			groups[0].Multiplier, groups[1].Multiplier, groups[2].Multiplier)
	}

	ot := groups[1]
	if ot.Label != "Overtime" || ot.Minutes != 720 {
		t.Errorf("overtime group = %+v, want 720 Overtime minutes", ot)
	}
	// 720 of 1320 total minutes.
	wantPct := float64(720) / float64(1320) * 100
	if diff := ot.PercentOfTotal - wantPct; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("percent = %f, want %f", ot.PercentOfTotal, wantPct)
	}
	// 12h at 1.5x and $20/h.
	if ot.EstimatedPayCents != 36000 {
		t.Errorf("overtime pay = %d, want 36000", ot.EstimatedPayCents)
	}
}

func TestRateBreakdown_SameMultiplierDifferentLabels(t *testing.T) {
	a := testShift(baseStart, 480, 0, "1.5")
	a.RateLabel = "Evening"
	b := testShift(baseStart.AddDate(0, 0, 1), 480, 0, "1.5")
	b.RateLabel = "Weekend"
	payroll.UpdateCalculatedFields(a)
	payroll.UpdateCalculatedFields(b)

	groups := payroll.RateBreakdown([]*schedule.Shift{a, b}, nil)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2 (labels split buckets)", len(groups))
	}
	if groups[0].Label != "Evening" || groups[1].Label != "Weekend" {
		t.Errorf("labels = %q, %q; want Evening, Weekend", groups[0].Label, groups[1].Label)
	}
}
