package schedule

import (
	"iter"
	"time"
)

// =============================================================================
// PREVIEW - Lazy projection of a definition before commit
// =============================================================================

// Projection is a lightweight, non-persisted view of one calendar day
// under a definition. Off days are included with WorkDay == false so a
// preview can render the full rhythm of a rotation.
type Projection struct {
	Date    Date
	Title   string
	Start   time.Time
	End     time.Time
	WorkDay bool
}

// Preview walks [from, to) with the same algorithm as GenerateShifts but
// yields projection records instead of shifts. The sequence is lazy,
// finite, and restartable: ranging over it twice replays the same days.
func Preview(def PatternDefinition, from, to Date) iter.Seq[Projection] {
	// Build once; the pattern is a pure value, so reuse across restarts
	// is safe.
	p := BuildPattern(def, "")
	return func(yield func(Projection) bool) {
		for d := from; d.Before(to); d = d.AddDays(1) {
			if !yield(projectionAt(p, d)) {
				return
			}
		}
	}
}

func projectionAt(p *SchedulePattern, d Date) Projection {
	proj := Projection{Date: d, Title: p.Name}

	if p.Kind == PatternRotating && p.CycleLength() > 0 {
		if name := p.Rotation[RotationIndex(p, d)].Name; name != "" {
			proj.Title = name
		}
	}

	start, duration, ok := occurrenceAt(p, d)
	if !ok {
		return proj
	}
	proj.WorkDay = true
	proj.Start = start
	proj.End = start.Add(time.Duration(duration) * time.Minute)
	return proj
}
