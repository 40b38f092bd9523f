/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures decoupling the internal domain model from the external
  API contract. DTOs are pure data carriers; validation happens in the
  handlers and the engine.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DATES & INSTANTS:
  Calendar dates travel as "2006-01-02" strings, instants as RFC 3339.
  Money is integer minor-currency units; rate multipliers are decimal
  strings ("1.5") to avoid float drift at the boundary.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shiftwise/payroll-engine/payroll"
	"github.com/shiftwise/payroll-engine/schedule"
)

// =============================================================================
// PATTERN TYPES
// =============================================================================

// PatternDefinitionRequest is the raw definition submitted for
// validation, preview, or creation.
type PatternDefinitionRequest struct {
	OwnerID         string           `json:"owner_id,omitempty"`
	Name            string           `json:"name"`
	Kind            string           `json:"kind"` // "weekly" | "rotating"
	StartMinute     int              `json:"start_minute"`
	DurationMinutes int              `json:"duration_minutes"`
	Weekdays        []int            `json:"weekdays,omitempty"` // 0=Sunday .. 6=Saturday
	Anchor          string           `json:"anchor,omitempty"`   // rotating only
	Rotation        []RotationDayDTO `json:"rotation,omitempty"`
}

type RotationDayDTO struct {
	Index           int    `json:"index"`
	Work            bool   `json:"work"`
	Name            string `json:"name,omitempty"`
	StartMinute     *int   `json:"start_minute,omitempty"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

type PatternDTO struct {
	ID              string           `json:"id"`
	OwnerID         string           `json:"owner_id"`
	Name            string           `json:"name"`
	Kind            string           `json:"kind"`
	StartMinute     int              `json:"start_minute"`
	DurationMinutes int              `json:"duration_minutes"`
	Weekdays        []int            `json:"weekdays,omitempty"`
	Anchor          string           `json:"anchor,omitempty"`
	Rotation        []RotationDayDTO `json:"rotation,omitempty"`
	Active          bool             `json:"active"`
}

// ValidationIssueDTO is one rule violation.
type ValidationIssueDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidateResponse struct {
	Valid  bool                 `json:"valid"`
	Errors []ValidationIssueDTO `json:"errors,omitempty"`
}

// GenerateRequest asks for shift generation over [from, to).
type GenerateRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PreviewRequest carries a definition plus the range to project.
type PreviewRequest struct {
	Definition PatternDefinitionRequest `json:"definition"`
	From       string                   `json:"from"`
	To         string                   `json:"to"`
}

type ProjectionDTO struct {
	Date    string `json:"date"`
	Title   string `json:"title"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	WorkDay bool   `json:"work_day"`
}

// =============================================================================
// SHIFT TYPES
// =============================================================================

type ShiftDTO struct {
	ID             string  `json:"id"`
	OwnerID        string  `json:"owner_id"`
	PatternID      string  `json:"pattern_id,omitempty"`
	PeriodID       string  `json:"period_id,omitempty"`
	ScheduledStart string  `json:"scheduled_start"`
	ScheduledEnd   string  `json:"scheduled_end"`
	ActualStart    *string `json:"actual_start,omitempty"`
	ActualEnd      *string `json:"actual_end,omitempty"`
	BreakMinutes   int     `json:"break_minutes"`
	RateMultiplier string  `json:"rate_multiplier"`
	RateLabel      string  `json:"rate_label,omitempty"`
	PaidMinutes    int     `json:"paid_minutes"`
	PremiumMinutes int     `json:"premium_minutes"`
	Status         string  `json:"status"`
}

type CreateShiftRequest struct {
	OwnerID        string `json:"owner_id"`
	ScheduledStart string `json:"scheduled_start"` // RFC 3339
	ScheduledEnd   string `json:"scheduled_end"`
	BreakMinutes   int    `json:"break_minutes"`
	RateMultiplier string `json:"rate_multiplier,omitempty"` // default "1"
	RateLabel      string `json:"rate_label,omitempty"`
}

// ClockRequest carries an optional explicit instant; empty means "now".
type ClockRequest struct {
	At string `json:"at,omitempty"`
}

// =============================================================================
// PERIOD & SUMMARY TYPES
// =============================================================================

type PeriodDTO struct {
	ID                string `json:"id"`
	OwnerID           string `json:"owner_id"`
	Start             string `json:"start"`
	End               string `json:"end"`
	PaidMinutes       int    `json:"paid_minutes"`
	PremiumMinutes    int    `json:"premium_minutes"`
	EstimatedPayCents int64  `json:"estimated_pay_cents"`
}

type SummaryDTO struct {
	TotalPaidMinutes  int            `json:"total_paid_minutes"`
	PremiumMinutes    int            `json:"premium_minutes"`
	RegularMinutes    int            `json:"regular_minutes"`
	EstimatedPayCents int64          `json:"estimated_pay_cents"`
	Breakdown         []RateGroupDTO `json:"breakdown"`
}

type RateGroupDTO struct {
	Multiplier        string  `json:"multiplier"`
	Label             string  `json:"label,omitempty"`
	Minutes           int     `json:"minutes"`
	PercentOfTotal    float64 `json:"percent_of_total"`
	EstimatedPayCents int64   `json:"estimated_pay_cents"`
}

type PredictionDTO struct {
	PeriodID              string   `json:"period_id"`
	Complete              bool     `json:"complete"`
	CurrentHours          float64  `json:"current_hours"`
	AveragePerDay         float64  `json:"average_per_day"`
	ProjectedHours        float64  `json:"projected_hours"`
	DaysElapsed           int      `json:"days_elapsed"`
	DaysRemaining         int      `json:"days_remaining"`
	Level                 string   `json:"level"`
	RecommendedDailyHours *float64 `json:"recommended_daily_hours,omitempty"`
}

// =============================================================================
// PROFILE TYPES
// =============================================================================

type ProfileDTO struct {
	OwnerID       string `json:"owner_id"`
	Cadence       string `json:"cadence"`
	ReferenceDate string `json:"reference_date,omitempty"`
	BaseRateCents *int64 `json:"base_rate_cents,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toPatternDTO(p *schedule.SchedulePattern) PatternDTO {
	dto := PatternDTO{
		ID:              p.ID,
		OwnerID:         p.OwnerID,
		Name:            p.Name,
		Kind:            string(p.Kind),
		StartMinute:     p.StartMinute,
		DurationMinutes: p.DurationMinutes,
		Active:          p.Active,
	}
	for _, d := range p.Weekdays.Days() {
		dto.Weekdays = append(dto.Weekdays, int(d))
	}
	if !p.Anchor.IsZero() {
		dto.Anchor = p.Anchor.String()
	}
	for _, rd := range p.Rotation {
		dto.Rotation = append(dto.Rotation, RotationDayDTO{
			Index: rd.Index, Work: rd.Work, Name: rd.Name,
			StartMinute: rd.StartMinute, DurationMinutes: rd.DurationMinutes,
		})
	}
	return dto
}

func toDefinition(req PatternDefinitionRequest) (schedule.PatternDefinition, error) {
	def := schedule.PatternDefinition{
		Name:            req.Name,
		Kind:            schedule.PatternKind(req.Kind),
		StartMinute:     req.StartMinute,
		DurationMinutes: req.DurationMinutes,
	}
	if len(req.Weekdays) > 0 {
		def.Weekdays = make(schedule.WeekdaySet, len(req.Weekdays))
		for _, d := range req.Weekdays {
			def.Weekdays[time.Weekday(d)] = true
		}
	}
	if req.Anchor != "" {
		anchor, err := schedule.ParseDate(req.Anchor)
		if err != nil {
			return schedule.PatternDefinition{}, err
		}
		def.Anchor = anchor
	}
	for _, rd := range req.Rotation {
		def.Rotation = append(def.Rotation, schedule.RotationDayDefinition{
			Work: rd.Work, Name: rd.Name,
			StartMinute: rd.StartMinute, DurationMinutes: rd.DurationMinutes,
		})
	}
	return def, nil
}

func toShiftDTO(s *schedule.Shift) ShiftDTO {
	dto := ShiftDTO{
		ID:             s.ID,
		OwnerID:        s.OwnerID,
		PatternID:      s.PatternID,
		PeriodID:       s.PeriodID,
		ScheduledStart: s.ScheduledStart.UTC().Format(time.RFC3339),
		ScheduledEnd:   s.ScheduledEnd.UTC().Format(time.RFC3339),
		BreakMinutes:   s.BreakMinutes,
		RateMultiplier: s.RateMultiplier.String(),
		RateLabel:      s.RateLabel,
		PaidMinutes:    s.PaidMinutes,
		PremiumMinutes: s.PremiumMinutes,
		Status:         string(s.Status),
	}
	if s.ActualStart != nil {
		v := s.ActualStart.UTC().Format(time.RFC3339)
		dto.ActualStart = &v
	}
	if s.ActualEnd != nil {
		v := s.ActualEnd.UTC().Format(time.RFC3339)
		dto.ActualEnd = &v
	}
	return dto
}

func toPeriodDTO(p *payroll.PayPeriod) PeriodDTO {
	return PeriodDTO{
		ID:                p.ID,
		OwnerID:           p.OwnerID,
		Start:             p.Start.String(),
		End:               p.End.String(),
		PaidMinutes:       p.PaidMinutes,
		PremiumMinutes:    p.PremiumMinutes,
		EstimatedPayCents: p.EstimatedPayCents,
	}
}

func toPredictionDTO(p payroll.Prediction) PredictionDTO {
	return PredictionDTO{
		PeriodID:              p.PeriodID,
		Complete:              p.Complete,
		CurrentHours:          p.CurrentHours,
		AveragePerDay:         p.AveragePerDay,
		ProjectedHours:        p.ProjectedHours,
		DaysElapsed:           p.DaysElapsed,
		DaysRemaining:         p.DaysRemaining,
		Level:                 string(p.Level),
		RecommendedDailyHours: p.RecommendedDailyHours,
	}
}
