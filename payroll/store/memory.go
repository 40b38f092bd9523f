// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shiftwise/payroll-engine/payroll"
	"github.com/shiftwise/payroll-engine/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a mutex-guarded in-memory Store. Entities are copied on the
// way in and out so callers never alias stored state. Soft-deleted rows
// stay in the maps but every read filters them out, matching the
// contract of the production store.
type Memory struct {
	mu       sync.RWMutex
	patterns map[string]*schedule.SchedulePattern
	shifts   map[string]*schedule.Shift
	periods  map[string]*payroll.PayPeriod
}

func NewMemory() *Memory {
	return &Memory{
		patterns: make(map[string]*schedule.SchedulePattern),
		shifts:   make(map[string]*schedule.Shift),
		periods:  make(map[string]*payroll.PayPeriod),
	}
}

// -----------------------------------------------------------------------------
// Patterns
// -----------------------------------------------------------------------------

func (m *Memory) SavePattern(_ context.Context, p *schedule.SchedulePattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns[p.ID] = clonePattern(p)
	return nil
}

func (m *Memory) GetPattern(_ context.Context, id string) (*schedule.SchedulePattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patterns[id]
	if !ok || p.Deleted() {
		return nil, payroll.ErrNotFound
	}
	return clonePattern(p), nil
}

func (m *Memory) ListPatterns(_ context.Context, ownerID string) ([]*schedule.SchedulePattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*schedule.SchedulePattern
	for _, p := range m.patterns {
		if p.OwnerID == ownerID && !p.Deleted() {
			out = append(out, clonePattern(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// -----------------------------------------------------------------------------
// Shifts
// -----------------------------------------------------------------------------

func (m *Memory) SaveShift(_ context.Context, s *schedule.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[s.ID] = cloneShift(s)
	return nil
}

func (m *Memory) SaveShifts(_ context.Context, shifts []*schedule.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Map writes cannot fail, so the batch is trivially atomic here.
	for _, s := range shifts {
		m.shifts[s.ID] = cloneShift(s)
	}
	return nil
}

func (m *Memory) GetShift(_ context.Context, id string) (*schedule.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.shifts[id]
	if !ok || s.Deleted() {
		return nil, payroll.ErrNotFound
	}
	return cloneShift(s), nil
}

func (m *Memory) ListShiftsInRange(_ context.Context, ownerID string, from, to time.Time) ([]*schedule.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*schedule.Shift
	for _, s := range m.shifts {
		if s.OwnerID != ownerID || s.Deleted() {
			continue
		}
		if !s.ScheduledStart.Before(from) && s.ScheduledStart.Before(to) {
			out = append(out, cloneShift(s))
		}
	}
	sortShifts(out)
	return out, nil
}

func (m *Memory) ListShiftsByPeriod(_ context.Context, periodID string) ([]*schedule.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*schedule.Shift
	for _, s := range m.shifts {
		if s.PeriodID == periodID && !s.Deleted() {
			out = append(out, cloneShift(s))
		}
	}
	sortShifts(out)
	return out, nil
}

// -----------------------------------------------------------------------------
// Pay periods
// -----------------------------------------------------------------------------

func (m *Memory) SavePeriod(_ context.Context, p *payroll.PayPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods[p.ID] = clonePeriod(p)
	return nil
}

func (m *Memory) GetPeriod(_ context.Context, id string) (*payroll.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.periods[id]
	if !ok || p.Deleted() {
		return nil, payroll.ErrNotFound
	}
	return clonePeriod(p), nil
}

func (m *Memory) FindPeriodCovering(_ context.Context, ownerID string, date schedule.Date) (*payroll.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.periods {
		if p.OwnerID == ownerID && !p.Deleted() && p.Contains(date) {
			return clonePeriod(p), nil
		}
	}
	return nil, payroll.ErrNotFound
}

func (m *Memory) ListPeriods(_ context.Context, ownerID string) ([]*payroll.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*payroll.PayPeriod
	for _, p := range m.periods {
		if p.OwnerID == ownerID && !p.Deleted() {
			out = append(out, clonePeriod(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// -----------------------------------------------------------------------------
// Clone helpers
// -----------------------------------------------------------------------------

func sortShifts(shifts []*schedule.Shift) {
	sort.Slice(shifts, func(i, j int) bool {
		return shifts[i].ScheduledStart.Before(shifts[j].ScheduledStart)
	})
}

func clonePattern(p *schedule.SchedulePattern) *schedule.SchedulePattern {
	c := *p
	if p.Weekdays != nil {
		c.Weekdays = make(schedule.WeekdaySet, len(p.Weekdays))
		for d, ok := range p.Weekdays {
			c.Weekdays[d] = ok
		}
	}
	if p.Rotation != nil {
		c.Rotation = make([]schedule.RotationDay, len(p.Rotation))
		for i, rd := range p.Rotation {
			c.Rotation[i] = rd
			if rd.StartMinute != nil {
				v := *rd.StartMinute
				c.Rotation[i].StartMinute = &v
			}
			if rd.DurationMinutes != nil {
				v := *rd.DurationMinutes
				c.Rotation[i].DurationMinutes = &v
			}
		}
	}
	c.DeletedAt = cloneTime(p.DeletedAt)
	return &c
}

func cloneShift(s *schedule.Shift) *schedule.Shift {
	c := *s
	c.ActualStart = cloneTime(s.ActualStart)
	c.ActualEnd = cloneTime(s.ActualEnd)
	c.DeletedAt = cloneTime(s.DeletedAt)
	return &c
}

func clonePeriod(p *payroll.PayPeriod) *payroll.PayPeriod {
	c := *p
	c.DeletedAt = cloneTime(p.DeletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
