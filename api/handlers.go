/*
handlers.go - HTTP API handlers for the scheduling & payroll engine

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates everything algorithmic to the schedule
  and payroll packages.

ENDPOINTS:
  Patterns:
    POST   /api/patterns/validate       Validate a definition
    POST   /api/patterns                Create pattern
    GET    /api/patterns                List patterns
    POST   /api/patterns/preview        Project a definition over a range
    POST   /api/patterns/{id}/generate  Generate + persist + assign shifts

  Shifts:
    GET    /api/shifts                  List by range
    POST   /api/shifts                  Manual entry
    POST   /api/shifts/{id}/clock-in
    POST   /api/shifts/{id}/clock-out
    POST   /api/shifts/{id}/cancel
    DELETE /api/shifts/{id}             Soft delete

  Periods:
    GET    /api/periods                 List with aggregates
    GET    /api/periods/current         Find-or-create for today
    GET    /api/periods/{id}/summary    Totals + rate breakdown
    GET    /api/periods/{id}/prediction Overtime projection
    POST   /api/recalculate             Recompute all periods

  Profiles:
    PUT    /api/profiles/{owner}        Set cadence/reference/rate
    GET    /api/profiles/{owner}

ERROR HANDLING:
  - 400: Validation errors, malformed input
  - 404: Missing entity
  - 500: Persistence failures (surfaced, never retried here)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/shiftwise/payroll-engine/payroll"
	"github.com/shiftwise/payroll-engine/schedule"
)

// Defaults applied when a prediction request does not override them.
const (
	defaultTargetHours   = 80
	defaultWarningHours  = 70
	defaultCriticalHours = 78
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     payroll.Store
	Engine    *payroll.Engine
	Projector *payroll.Projector
	Clock     payroll.Clock

	Profiles *ProfileRegistry
}

// NewHandler wires a handler around a store and a clock.
func NewHandler(store payroll.Store, clock payroll.Clock) *Handler {
	return &Handler{
		Store:     store,
		Engine:    payroll.NewEngine(store),
		Projector: payroll.NewProjector(clock),
		Clock:     clock,
		Profiles:  NewProfileRegistry(),
	}
}

// =============================================================================
// PATTERN HANDLERS
// =============================================================================

// ValidatePattern checks a definition without creating anything.
// POST /api/patterns/validate
func (h *Handler) ValidatePattern(w http.ResponseWriter, r *http.Request) {
	var req PatternDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	def, err := toDefinition(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid definition", err)
		return
	}

	resp := ValidateResponse{Valid: true}
	for _, verr := range schedule.Validate(def) {
		resp.Valid = false
		resp.Errors = append(resp.Errors, ValidationIssueDTO{
			Code:    string(schedule.CodeOf(verr)),
			Message: verr.Error(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreatePattern validates, builds, and persists a pattern.
// POST /api/patterns
func (h *Handler) CreatePattern(w http.ResponseWriter, r *http.Request) {
	var req PatternDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required", nil)
		return
	}
	def, err := toDefinition(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid definition", err)
		return
	}
	if errs := schedule.Validate(def); len(errs) > 0 {
		writeError(w, http.StatusBadRequest, "Validation failed", errs[0])
		return
	}

	pattern := schedule.BuildPattern(def, req.OwnerID)
	if err := h.Store.SavePattern(r.Context(), pattern); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save pattern", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPatternDTO(pattern))
}

// ListPatterns returns an owner's live patterns.
// GET /api/patterns?owner_id=X
func (h *Handler) ListPatterns(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required", nil)
		return
	}
	patterns, err := h.Store.ListPatterns(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list patterns", err)
		return
	}
	dtos := make([]PatternDTO, len(patterns))
	for i, p := range patterns {
		dtos[i] = toPatternDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PreviewPattern projects a definition over a range without persisting.
// POST /api/patterns/preview
func (h *Handler) PreviewPattern(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	def, err := toDefinition(req.Definition)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid definition", err)
		return
	}
	from, to, err := parseDateRange(req.From, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	dtos := []ProjectionDTO{}
	for proj := range schedule.Preview(def, from, to) {
		dto := ProjectionDTO{
			Date:    proj.Date.String(),
			Title:   proj.Title,
			WorkDay: proj.WorkDay,
		}
		if proj.WorkDay {
			dto.Start = proj.Start.UTC().Format(time.RFC3339)
			dto.End = proj.End.UTC().Format(time.RFC3339)
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GenerateShifts materializes a pattern over a range, persists the batch
// atomically, then assigns each shift to its covering pay period.
// POST /api/patterns/{id}/generate
func (h *Handler) GenerateShifts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patternID := chi.URLParam(r, "id")

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	from, to, err := parseDateRange(req.From, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	pattern, err := h.Store.GetPattern(ctx, patternID)
	if err != nil {
		writeStoreError(w, "Pattern", err)
		return
	}

	shifts := schedule.GenerateShifts(pattern, from, to, pattern.OwnerID)
	if err := h.Store.SaveShifts(ctx, shifts); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save shifts", err)
		return
	}

	profile := h.Profiles.Get(pattern.OwnerID)
	for _, s := range shifts {
		if err := h.Engine.AssignToPeriod(ctx, s, profile); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to assign shift to period", err)
			return
		}
	}

	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ListShifts returns an owner's shifts with scheduled start in [from, to).
// GET /api/shifts?owner_id=X&from=...&to=...
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required", nil)
		return
	}
	from, to, err := parseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	shifts, err := h.Store.ListShiftsInRange(r.Context(), ownerID, from.Time, to.Time)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}
	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateShift handles manual shift entry: validates, checks for overlap
// with the owner's existing shifts, computes cached fields, and assigns
// the shift to its covering pay period.
// POST /api/shifts
func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	shift, err := h.buildShift(req)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	// Overlap check against the owner's non-cancelled shifts around the
	// new window.
	day := schedule.DateOf(shift.ScheduledStart)
	existing, err := h.Store.ListShiftsInRange(ctx, shift.OwnerID,
		day.AddDays(-1).Time, day.AddDays(2).Time)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check overlap", err)
		return
	}
	for _, other := range existing {
		if other.Status == schedule.StatusCancelled {
			continue
		}
		if shift.Overlaps(other) {
			writeEngineError(w, &schedule.ValidationError{
				Code:    schedule.CodeOverlappingShift,
				Message: fmt.Sprintf("overlaps shift %s", other.ID),
			})
			return
		}
	}

	if err := h.Engine.AssignToPeriod(ctx, shift, h.Profiles.Get(shift.OwnerID)); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(shift))
}

func (h *Handler) buildShift(req CreateShiftRequest) (*schedule.Shift, error) {
	if req.OwnerID == "" {
		return nil, &schedule.ValidationError{
			Code: schedule.CodeInvalidDuration, Message: "owner_id is required"}
	}
	start, err := time.Parse(time.RFC3339, req.ScheduledStart)
	if err != nil {
		return nil, &schedule.ValidationError{
			Code: schedule.CodeInvalidDuration, Message: "bad scheduled_start: " + err.Error()}
	}
	end, err := time.Parse(time.RFC3339, req.ScheduledEnd)
	if err != nil {
		return nil, &schedule.ValidationError{
			Code: schedule.CodeInvalidDuration, Message: "bad scheduled_end: " + err.Error()}
	}
	if !end.After(start) {
		return nil, &schedule.ValidationError{
			Code: schedule.CodeInvalidDuration, Message: "scheduled_end must be after scheduled_start"}
	}
	duration := int(end.Sub(start).Minutes())
	if req.BreakMinutes < 0 || req.BreakMinutes >= duration {
		return nil, &schedule.ValidationError{
			Code:    schedule.CodeInvalidBreak,
			Message: fmt.Sprintf("break must be in [0, %d) minutes", duration)}
	}

	multiplier := decimal.NewFromInt(1)
	if req.RateMultiplier != "" {
		multiplier, err = decimal.NewFromString(req.RateMultiplier)
		if err != nil || multiplier.LessThan(decimal.NewFromInt(1)) {
			return nil, &schedule.ValidationError{
				Code: schedule.CodeInvalidRateMultiplier, Message: "rate multiplier must be a decimal >= 1.0"}
		}
	}

	return &schedule.Shift{
		ID:             schedule.NewID(),
		OwnerID:        req.OwnerID,
		ScheduledStart: start.UTC(),
		ScheduledEnd:   end.UTC(),
		BreakMinutes:   req.BreakMinutes,
		RateMultiplier: multiplier,
		RateLabel:      req.RateLabel,
		Status:         schedule.StatusScheduled,
		CreatedAt:      h.Clock.Now(),
	}, nil
}

// ClockIn records an actual start.
// POST /api/shifts/{id}/clock-in
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	h.clockEvent(w, r, func(s *schedule.Shift, at time.Time) error {
		return s.ClockIn(at)
	})
}

// ClockOut records an actual end and recomputes pay fields.
// POST /api/shifts/{id}/clock-out
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	h.clockEvent(w, r, func(s *schedule.Shift, at time.Time) error {
		return s.ClockOut(at)
	})
}

func (h *Handler) clockEvent(w http.ResponseWriter, r *http.Request, apply func(*schedule.Shift, time.Time) error) {
	ctx := r.Context()
	shift, err := h.Store.GetShift(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Shift", err)
		return
	}

	at := h.Clock.Now()
	var req ClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.At != "" {
		if at, err = time.Parse(time.RFC3339, req.At); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid instant", err)
			return
		}
	}

	if err := apply(shift, at); err != nil {
		writeEngineError(w, err)
		return
	}

	// Clock events change the effective duration, so re-run assignment:
	// it recomputes cached fields and refreshes period aggregates.
	if err := h.Engine.AssignToPeriod(ctx, shift, h.Profiles.Get(shift.OwnerID)); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(shift))
}

// CancelShift moves a shift to the terminal cancelled state and refreshes
// its period's aggregates.
// POST /api/shifts/{id}/cancel
func (h *Handler) CancelShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	shift, err := h.Store.GetShift(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Shift", err)
		return
	}
	if err := shift.Cancel(); err != nil {
		writeEngineError(w, err)
		return
	}
	if err := h.Store.SaveShift(ctx, shift); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save shift", err)
		return
	}
	if shift.PeriodID != "" {
		if err := h.Engine.Recalculate(ctx, shift.PeriodID, h.Profiles.Get(shift.OwnerID)); err != nil {
			writeEngineError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toShiftDTO(shift))
}

// DeleteShift soft-deletes a shift and refreshes its period's aggregates.
// DELETE /api/shifts/{id}
func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	shift, err := h.Store.GetShift(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Shift", err)
		return
	}

	now := h.Clock.Now()
	shift.DeletedAt = &now
	if err := h.Store.SaveShift(ctx, shift); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete shift", err)
		return
	}
	if shift.PeriodID != "" {
		if err := h.Engine.Recalculate(ctx, shift.PeriodID, h.Profiles.Get(shift.OwnerID)); err != nil {
			writeEngineError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// ListPeriods returns an owner's periods with aggregates.
// GET /api/periods?owner_id=X
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required", nil)
		return
	}
	periods, err := h.Store.ListPeriods(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list periods", err)
		return
	}
	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CurrentPeriod finds or lazily creates the window covering today.
// GET /api/periods/current?owner_id=X
func (h *Handler) CurrentPeriod(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required", nil)
		return
	}
	today := schedule.DateOf(h.Clock.Now())
	period, err := h.Engine.FindOrCreatePeriod(r.Context(), today, h.Profiles.Get(ownerID))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(period))
}

// PeriodSummary returns totals and the per-rate breakdown for one period.
// GET /api/periods/{id}/summary
func (h *Handler) PeriodSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, err := h.Store.GetPeriod(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Period", err)
		return
	}
	shifts, err := h.Store.ListShiftsByPeriod(ctx, period.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load shifts", err)
		return
	}

	rate := h.Profiles.Get(period.OwnerID).BaseRateCents
	sum := payroll.CalculateSummary(shifts, rate)
	dto := SummaryDTO{
		TotalPaidMinutes:  sum.TotalPaidMinutes,
		PremiumMinutes:    sum.PremiumMinutes,
		RegularMinutes:    sum.RegularMinutes,
		EstimatedPayCents: sum.EstimatedPayCents,
		Breakdown:         []RateGroupDTO{},
	}
	for _, g := range payroll.RateBreakdown(shifts, rate) {
		dto.Breakdown = append(dto.Breakdown, RateGroupDTO{
			Multiplier:        g.Multiplier,
			Label:             g.Label,
			Minutes:           g.Minutes,
			PercentOfTotal:    g.PercentOfTotal,
			EstimatedPayCents: g.EstimatedPayCents,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// PeriodPrediction projects end-of-window hours for one period.
// GET /api/periods/{id}/prediction?target_hours=&warning_hours=&critical_hours=
func (h *Handler) PeriodPrediction(w http.ResponseWriter, r *http.Request) {
	period, err := h.Store.GetPeriod(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Period", err)
		return
	}

	target := queryFloat(r, "target_hours", defaultTargetHours)
	th := payroll.Thresholds{
		WarningHours:  queryFloat(r, "warning_hours", defaultWarningHours),
		CriticalHours: queryFloat(r, "critical_hours", defaultCriticalHours),
	}
	writeJSON(w, http.StatusOK, toPredictionDTO(h.Projector.Predict(period, target, th)))
}

// RecalculateAll recomputes every period of an owner from scratch.
// POST /api/recalculate?owner_id=X
func (h *Handler) RecalculateAll(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required", nil)
		return
	}
	if err := h.Engine.RecalculateAll(r.Context(), h.Profiles.Get(ownerID)); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PROFILE HANDLERS
// =============================================================================

// PutProfile sets an owner's cadence, reference date, and base rate.
// PUT /api/profiles/{owner}
func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner")

	var req ProfileDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	profile := payroll.Profile{
		OwnerID:       ownerID,
		Cadence:       payroll.Cadence(req.Cadence),
		BaseRateCents: req.BaseRateCents,
	}
	switch profile.Cadence {
	case payroll.CadenceWeekly, payroll.CadenceBiweekly, payroll.CadenceMonthly:
	default:
		writeError(w, http.StatusBadRequest, "cadence must be weekly, biweekly, or monthly", nil)
		return
	}
	if req.ReferenceDate != "" {
		ref, err := schedule.ParseDate(req.ReferenceDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid reference_date", err)
			return
		}
		profile.ReferenceDate = ref
	} else if profile.Cadence == payroll.CadenceBiweekly {
		writeError(w, http.StatusBadRequest, "biweekly cadence requires reference_date", nil)
		return
	}

	h.Profiles.Put(profile)
	writeJSON(w, http.StatusOK, toProfileDTO(profile))
}

// GetProfile returns an owner's effective profile.
// GET /api/profiles/{owner}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toProfileDTO(h.Profiles.Get(chi.URLParam(r, "owner"))))
}

func toProfileDTO(p payroll.Profile) ProfileDTO {
	dto := ProfileDTO{
		OwnerID:       p.OwnerID,
		Cadence:       string(p.Cadence),
		BaseRateCents: p.BaseRateCents,
	}
	if !p.ReferenceDate.IsZero() {
		dto.ReferenceDate = p.ReferenceDate.String()
	}
	return dto
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDateRange(from, to string) (schedule.Date, schedule.Date, error) {
	f, err := schedule.ParseDate(from)
	if err != nil {
		return schedule.Date{}, schedule.Date{}, fmt.Errorf("bad from date: %w", err)
	}
	t, err := schedule.ParseDate(to)
	if err != nil {
		return schedule.Date{}, schedule.Date{}, fmt.Errorf("bad to date: %w", err)
	}
	if t.Before(f) {
		return schedule.Date{}, schedule.Date{}, fmt.Errorf("to %s precedes from %s", to, from)
	}
	return f, t, nil
}

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	var f float64
	if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
		return fallback
	}
	return f
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case schedule.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: err.Error(), Code: string(schedule.CodeOf(err))})
	case payroll.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// writeStoreError maps a direct store lookup failure.
func writeStoreError(w http.ResponseWriter, entity string, err error) {
	if payroll.IsNotFound(err) {
		writeError(w, http.StatusNotFound, entity+" not found", nil)
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to load "+entity, err)
}
