/*
hours.go - Paid/premium/regular minutes and projected pay

PURPOSE:
  The single place where minutes become money. Every shift mutation that
  touches duration, break, or rate re-runs UpdateCalculatedFields before
  the shift is persisted, so the cached fields never drift from the rule.

THE CANONICAL PREMIUM RULE:
  premium = paid when the rate multiplier exceeds 1.0, else 0. The
  historical "cap at a stored premium-minutes value" variant is rejected;
  the simpler rule is fully deterministic and what the tests pin down.

PER-SHIFT PAY:
  Estimated pay is computed per shift as round(rate x hours_i x mult_i)
  and summed. Summing hours first and applying one multiplier would be
  wrong: the multiplier varies per shift.
*/
package payroll

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/shiftwise/payroll-engine/schedule"
)

var one = decimal.NewFromInt(1)
var sixty = decimal.NewFromInt(60)

// =============================================================================
// PER-SHIFT CALCULATED FIELDS
// =============================================================================

// UpdateCalculatedFields recomputes the cached paid and premium minutes:
//
//	paid    = max(0, effectiveDuration - max(0, break))
//	premium = paid if multiplier > 1.0 else 0
func UpdateCalculatedFields(s *schedule.Shift) {
	brk := s.BreakMinutes
	if brk < 0 {
		brk = 0
	}
	paid := s.EffectiveDurationMinutes() - brk
	if paid < 0 {
		paid = 0
	}
	s.PaidMinutes = paid

	if s.RateMultiplier.GreaterThan(one) {
		s.PremiumMinutes = paid
	} else {
		s.PremiumMinutes = 0
	}
}

// shiftPayCents is the estimated pay for one shift, rounded to whole
// cents: baseRateCents x (paidMinutes / 60) x multiplier.
func shiftPayCents(s *schedule.Shift, baseRateCents int64) int64 {
	hours := decimal.NewFromInt(int64(s.PaidMinutes)).Div(sixty)
	pay := decimal.NewFromInt(baseRateCents).Mul(hours).Mul(s.RateMultiplier)
	return pay.Round(0).IntPart()
}

// =============================================================================
// COLLECTION SUMMARY
// =============================================================================

// CalculateSummary sums paid and premium minutes across shifts and, when
// a base rate is supplied, the per-shift estimated pay. Cancelled and
// soft-deleted shifts do not contribute.
func CalculateSummary(shifts []*schedule.Shift, baseRateCents *int64) Summary {
	var sum Summary
	for _, s := range shifts {
		if s.Deleted() || s.Status == schedule.StatusCancelled {
			continue
		}
		sum.TotalPaidMinutes += s.PaidMinutes
		sum.PremiumMinutes += s.PremiumMinutes
		if baseRateCents != nil {
			sum.EstimatedPayCents += shiftPayCents(s, *baseRateCents)
		}
	}
	sum.RegularMinutes = sum.TotalPaidMinutes - sum.PremiumMinutes
	return sum
}

// =============================================================================
// RATE BREAKDOWN
// =============================================================================

// RateBreakdown groups shifts by (multiplier, label) and returns the
// buckets sorted ascending by multiplier, then label. Percentages are of
// total paid minutes across the collection.
func RateBreakdown(shifts []*schedule.Shift, baseRateCents *int64) []RateGroup {
	type bucketKey struct {
		mult  string
		label string
	}

	buckets := make(map[bucketKey]*RateGroup)
	mults := make(map[bucketKey]decimal.Decimal)
	total := 0

	for _, s := range shifts {
		if s.Deleted() || s.Status == schedule.StatusCancelled {
			continue
		}
		k := bucketKey{mult: s.RateMultiplier.String(), label: s.RateLabel}
		g, ok := buckets[k]
		if !ok {
			g = &RateGroup{Multiplier: k.mult, Label: k.label}
			buckets[k] = g
			mults[k] = s.RateMultiplier
		}
		g.Minutes += s.PaidMinutes
		if baseRateCents != nil {
			g.EstimatedPayCents += shiftPayCents(s, *baseRateCents)
		}
		total += s.PaidMinutes
	}

	groups := make([]RateGroup, 0, len(buckets))
	keys := make([]bucketKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := mults[keys[i]], mults[keys[j]]
		if !a.Equal(b) {
			return a.LessThan(b)
		}
		return keys[i].label < keys[j].label
	})

	for _, k := range keys {
		g := *buckets[k]
		if total > 0 {
			g.PercentOfTotal = float64(g.Minutes) / float64(total) * 100
		}
		groups = append(groups, g)
	}
	return groups
}
