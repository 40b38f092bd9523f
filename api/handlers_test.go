package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shiftwise/payroll-engine/payroll"
	"github.com/shiftwise/payroll-engine/payroll/store"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

// Wednesday 2024-06-05, 12:00 UTC.
var testNow = time.Date(2024, time.June, 5, 12, 0, 0, 0, time.UTC)

func newTestServer() (*chiServer, *store.Memory) {
	st := store.NewMemory()
	h := NewHandler(st, payroll.FixedClock{At: testNow})
	return &chiServer{router: NewRouter(h)}, st
}

type chiServer struct {
	router http.Handler
}

func (s *chiServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func weekdayPatternReq(owner string) PatternDefinitionRequest {
	return PatternDefinitionRequest{
		OwnerID:         owner,
		Name:            "Office weekdays",
		Kind:            "weekly",
		StartMinute:     9 * 60,
		DurationMinutes: 480,
		Weekdays:        []int{1, 2, 3, 4, 5},
	}
}

func shiftReq(owner, start, end string) CreateShiftRequest {
	return CreateShiftRequest{
		OwnerID:        owner,
		ScheduledStart: start,
		ScheduledEnd:   end,
	}
}

// =============================================================================
// PATTERNS
// =============================================================================

func TestValidatePattern_ReportsAllIssues(t *testing.T) {
	srv, _ := newTestServer()

	// Bad duration and an empty weekday set at once.
	req := PatternDefinitionRequest{
		Name: "Broken", Kind: "weekly", DurationMinutes: 0,
	}
	rec := srv.do(t, http.MethodPost, "/api/patterns/validate", req)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ValidateResponse](t, rec)
	require.False(t, resp.Valid)
	require.Len(t, resp.Errors, 2)
	codes := map[string]bool{}
	for _, e := range resp.Errors {
		codes[e.Code] = true
	}
	require.True(t, codes["invalid_duration"])
	require.True(t, codes["empty_weekday_set"])
}

func TestCreateAndListPatterns(t *testing.T) {
	srv, _ := newTestServer()

	rec := srv.do(t, http.MethodPost, "/api/patterns", weekdayPatternReq("alice"))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[PatternDTO](t, rec)
	require.NotEmpty(t, created.ID)
	require.True(t, created.Active)

	rec = srv.do(t, http.MethodGet, "/api/patterns?owner_id=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]PatternDTO](t, rec)
	require.Len(t, list, 1)
	require.Equal(t, created.ID, list[0].ID)

	// Another owner sees nothing.
	rec = srv.do(t, http.MethodGet, "/api/patterns?owner_id=bob", nil)
	require.Len(t, decode[[]PatternDTO](t, rec), 0)
}

func TestCreatePattern_RejectsInvalid(t *testing.T) {
	srv, _ := newTestServer()

	req := weekdayPatternReq("alice")
	req.DurationMinutes = 2000
	rec := srv.do(t, http.MethodPost, "/api/patterns", req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewPattern_IncludesOffDays(t *testing.T) {
	srv, _ := newTestServer()

	// Monday through Sunday, weekday pattern: 5 work days, 2 off.
	rec := srv.do(t, http.MethodPost, "/api/patterns/preview", PreviewRequest{
		Definition: weekdayPatternReq(""),
		From:       "2024-06-03",
		To:         "2024-06-10",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	days := decode[[]ProjectionDTO](t, rec)
	require.Len(t, days, 7)
	work := 0
	for _, d := range days {
		if d.WorkDay {
			work++
			require.NotEmpty(t, d.Start)
		} else {
			require.Empty(t, d.Start)
		}
	}
	require.Equal(t, 5, work)
}

func TestGenerateShifts_PersistsAndLinksPeriods(t *testing.T) {
	srv, _ := newTestServer()

	created := decode[PatternDTO](t, srv.do(t, http.MethodPost, "/api/patterns", weekdayPatternReq("alice")))

	// Two full weeks starting Monday 2024-06-03.
	rec := srv.do(t, http.MethodPost, "/api/patterns/"+created.ID+"/generate", GenerateRequest{
		From: "2024-06-03", To: "2024-06-17",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	shifts := decode[[]ShiftDTO](t, rec)
	require.Len(t, shifts, 10)
	for _, s := range shifts {
		require.Equal(t, created.ID, s.PatternID)
		require.NotEmpty(t, s.PeriodID)
		require.Equal(t, 480, s.PaidMinutes)
	}

	// Weekly cadence by default: the two weeks land in two periods.
	periods := decode[[]PeriodDTO](t, srv.do(t, http.MethodGet, "/api/periods?owner_id=alice", nil))
	require.Len(t, periods, 2)
	for _, p := range periods {
		require.Equal(t, 5*480, p.PaidMinutes)
	}
}

// =============================================================================
// SHIFTS
// =============================================================================

func TestCreateShift_ComputesAndLinks(t *testing.T) {
	srv, _ := newTestServer()

	req := shiftReq("alice", "2024-06-05T08:00:00Z", "2024-06-05T16:30:00Z")
	req.BreakMinutes = 30
	req.RateMultiplier = "1.5"
	req.RateLabel = "Overtime"

	rec := srv.do(t, http.MethodPost, "/api/shifts", req)
	require.Equal(t, http.StatusCreated, rec.Code)

	s := decode[ShiftDTO](t, rec)
	require.Equal(t, 480, s.PaidMinutes)
	require.Equal(t, 480, s.PremiumMinutes)
	require.Equal(t, "scheduled", s.Status)
	require.NotEmpty(t, s.PeriodID)
}

func TestCreateShift_ValidationFailures(t *testing.T) {
	srv, _ := newTestServer()

	cases := []struct {
		name     string
		mutate   func(*CreateShiftRequest)
		wantCode string
	}{
		{"end before start", func(r *CreateShiftRequest) {
			r.ScheduledEnd = "2024-06-05T07:00:00Z"
		}, "invalid_duration"},
		{"break swallows shift", func(r *CreateShiftRequest) {
			r.BreakMinutes = 600
		}, "invalid_break"},
		{"multiplier below one", func(r *CreateShiftRequest) {
			r.RateMultiplier = "0.5"
		}, "invalid_rate_multiplier"},
		{"multiplier not a number", func(r *CreateShiftRequest) {
			r.RateMultiplier = "fast"
		}, "invalid_rate_multiplier"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := shiftReq("alice", "2024-06-05T08:00:00Z", "2024-06-05T16:00:00Z")
			c.mutate(&req)
			rec := srv.do(t, http.MethodPost, "/api/shifts", req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, c.wantCode, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestCreateShift_RejectsOverlap(t *testing.T) {
	srv, _ := newTestServer()

	first := shiftReq("alice", "2024-06-05T08:00:00Z", "2024-06-05T16:00:00Z")
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/shifts", first).Code)

	overlapping := shiftReq("alice", "2024-06-05T15:00:00Z", "2024-06-05T23:00:00Z")
	rec := srv.do(t, http.MethodPost, "/api/shifts", overlapping)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "overlapping_shift", decode[ErrorResponse](t, rec).Code)

	// Back to back is fine: [8,16) then [16,24).
	adjacent := shiftReq("alice", "2024-06-05T16:00:00Z", "2024-06-06T00:00:00Z")
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/shifts", adjacent).Code)

	// A different owner may overlap freely.
	other := shiftReq("bob", "2024-06-05T15:00:00Z", "2024-06-05T23:00:00Z")
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/shifts", other).Code)
}

func TestClockInClockOut_Flow(t *testing.T) {
	srv, _ := newTestServer()

	created := decode[ShiftDTO](t, srv.do(t, http.MethodPost, "/api/shifts",
		shiftReq("alice", "2024-06-05T08:00:00Z", "2024-06-05T16:00:00Z")))

	rec := srv.do(t, http.MethodPost, "/api/shifts/"+created.ID+"/clock-in",
		ClockRequest{At: "2024-06-05T08:05:00Z"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "in_progress", decode[ShiftDTO](t, rec).Status)

	// Clocking in twice is an invalid transition.
	rec = srv.do(t, http.MethodPost, "/api/shifts/"+created.ID+"/clock-in", ClockRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Worked 10h against an 8h schedule; actuals win.
	rec = srv.do(t, http.MethodPost, "/api/shifts/"+created.ID+"/clock-out",
		ClockRequest{At: "2024-06-05T18:05:00Z"})
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[ShiftDTO](t, rec)
	require.Equal(t, "completed", done.Status)
	require.Equal(t, 600, done.PaidMinutes)

	// Period aggregates follow the actuals.
	periods := decode[[]PeriodDTO](t, srv.do(t, http.MethodGet, "/api/periods?owner_id=alice", nil))
	require.Len(t, periods, 1)
	require.Equal(t, 600, periods[0].PaidMinutes)
}

func TestCancelShift_DropsFromAggregates(t *testing.T) {
	srv, _ := newTestServer()

	created := decode[ShiftDTO](t, srv.do(t, http.MethodPost, "/api/shifts",
		shiftReq("alice", "2024-06-05T08:00:00Z", "2024-06-05T16:00:00Z")))

	rec := srv.do(t, http.MethodPost, "/api/shifts/"+created.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "cancelled", decode[ShiftDTO](t, rec).Status)

	periods := decode[[]PeriodDTO](t, srv.do(t, http.MethodGet, "/api/periods?owner_id=alice", nil))
	require.Len(t, periods, 1)
	require.Equal(t, 0, periods[0].PaidMinutes)

	// Terminal: cancelling again fails.
	rec = srv.do(t, http.MethodPost, "/api/shifts/"+created.ID+"/cancel", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteShift_SoftDeletes(t *testing.T) {
	srv, _ := newTestServer()

	created := decode[ShiftDTO](t, srv.do(t, http.MethodPost, "/api/shifts",
		shiftReq("alice", "2024-06-05T08:00:00Z", "2024-06-05T16:00:00Z")))

	rec := srv.do(t, http.MethodDelete, "/api/shifts/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Gone from reads and from aggregates.
	rec = srv.do(t, http.MethodGet, "/api/shifts?owner_id=alice&from=2024-06-03&to=2024-06-10", nil)
	require.Len(t, decode[[]ShiftDTO](t, rec), 0)

	periods := decode[[]PeriodDTO](t, srv.do(t, http.MethodGet, "/api/periods?owner_id=alice", nil))
	require.Equal(t, 0, periods[0].PaidMinutes)

	rec = srv.do(t, http.MethodDelete, "/api/shifts/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListShifts_RangeIsHalfOpen(t *testing.T) {
	srv, _ := newTestServer()

	for _, day := range []string{"03", "04", "05"} {
		req := shiftReq("alice",
			fmt.Sprintf("2024-06-%sT08:00:00Z", day),
			fmt.Sprintf("2024-06-%sT16:00:00Z", day))
		require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/shifts", req).Code)
	}

	rec := srv.do(t, http.MethodGet, "/api/shifts?owner_id=alice&from=2024-06-03&to=2024-06-05", nil)
	shifts := decode[[]ShiftDTO](t, rec)
	require.Len(t, shifts, 2)
}

// =============================================================================
// PERIODS & PREDICTIONS
// =============================================================================

func TestCurrentPeriod_LazyCreation(t *testing.T) {
	srv, _ := newTestServer()

	rec := srv.do(t, http.MethodGet, "/api/periods/current?owner_id=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Default weekly profile: the Monday-based week containing testNow.
	p := decode[PeriodDTO](t, rec)
	require.Equal(t, "2024-06-03", p.Start)
	require.Equal(t, "2024-06-09", p.End)

	// Stable on repeat.
	again := decode[PeriodDTO](t, srv.do(t, http.MethodGet, "/api/periods/current?owner_id=alice", nil))
	require.Equal(t, p.ID, again.ID)
}

func TestPeriodSummary_WithProfileRate(t *testing.T) {
	srv, _ := newTestServer()

	// $20/h base rate on a weekly profile.
	put := ProfileDTO{Cadence: "weekly", BaseRateCents: rateCents(2000)}
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPut, "/api/profiles/alice", put).Code)

	base := shiftReq("alice", "2024-06-05T08:00:00Z", "2024-06-05T16:00:00Z")
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/shifts", base).Code)

	premium := shiftReq("alice", "2024-06-06T08:00:00Z", "2024-06-06T16:00:00Z")
	premium.RateMultiplier = "1.5"
	premium.RateLabel = "Overtime"
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/shifts", premium).Code)

	current := decode[PeriodDTO](t, srv.do(t, http.MethodGet, "/api/periods/current?owner_id=alice", nil))
	rec := srv.do(t, http.MethodGet, "/api/periods/"+current.ID+"/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	sum := decode[SummaryDTO](t, rec)
	require.Equal(t, 960, sum.TotalPaidMinutes)
	require.Equal(t, 480, sum.PremiumMinutes)
	require.Equal(t, int64(16000+24000), sum.EstimatedPayCents)
	require.Len(t, sum.Breakdown, 2)
	require.Equal(t, "1", sum.Breakdown[0].Multiplier)
	require.Equal(t, "1.5", sum.Breakdown[1].Multiplier)
	require.Equal(t, "Overtime", sum.Breakdown[1].Label)
}

func TestPeriodPrediction_QueryOverrides(t *testing.T) {
	srv, _ := newTestServer()

	// 16h booked in the current week by Wednesday.
	for _, day := range []string{"03", "04"} {
		req := shiftReq("alice",
			fmt.Sprintf("2024-06-%sT08:00:00Z", day),
			fmt.Sprintf("2024-06-%sT16:00:00Z", day))
		require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/shifts", req).Code)
	}
	current := decode[PeriodDTO](t, srv.do(t, http.MethodGet, "/api/periods/current?owner_id=alice", nil))

	rec := srv.do(t, http.MethodGet,
		"/api/periods/"+current.ID+"/prediction?target_hours=40&warning_hours=32&critical_hours=38", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	p := decode[PredictionDTO](t, rec)
	require.False(t, p.Complete)
	require.Equal(t, 16.0, p.CurrentHours)
	// Wednesday: 2 days elapsed since Monday, 5 remaining, 8h/day pace.
	require.Equal(t, 2, p.DaysElapsed)
	require.Equal(t, 5, p.DaysRemaining)
	require.Equal(t, 56.0, p.ProjectedHours)
	require.Equal(t, "critical", p.Level)
	require.NotNil(t, p.RecommendedDailyHours)
	require.InDelta(t, 24.0/5, *p.RecommendedDailyHours, 1e-9)
}

func TestRecalculateAll_Endpoint(t *testing.T) {
	srv, _ := newTestServer()

	base := shiftReq("alice", "2024-06-05T08:00:00Z", "2024-06-05T16:00:00Z")
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/shifts", base).Code)

	// Rate set after the fact; recalculate backfills pay.
	put := ProfileDTO{Cadence: "weekly", BaseRateCents: rateCents(1500)}
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPut, "/api/profiles/alice", put).Code)
	require.Equal(t, http.StatusNoContent, srv.do(t, http.MethodPost, "/api/recalculate?owner_id=alice", nil).Code)

	periods := decode[[]PeriodDTO](t, srv.do(t, http.MethodGet, "/api/periods?owner_id=alice", nil))
	require.Equal(t, int64(12000), periods[0].EstimatedPayCents)
}

// =============================================================================
// PROFILES
// =============================================================================

func TestProfiles_PutAndGet(t *testing.T) {
	srv, _ := newTestServer()

	// Default profile before any PUT.
	got := decode[ProfileDTO](t, srv.do(t, http.MethodGet, "/api/profiles/alice", nil))
	require.Equal(t, "weekly", got.Cadence)

	put := ProfileDTO{Cadence: "biweekly", ReferenceDate: "2024-01-01", BaseRateCents: rateCents(2500)}
	rec := srv.do(t, http.MethodPut, "/api/profiles/alice", put)
	require.Equal(t, http.StatusOK, rec.Code)

	got = decode[ProfileDTO](t, srv.do(t, http.MethodGet, "/api/profiles/alice", nil))
	require.Equal(t, "biweekly", got.Cadence)
	require.Equal(t, "2024-01-01", got.ReferenceDate)
	require.Equal(t, int64(2500), *got.BaseRateCents)
}

func TestPutProfile_Rejections(t *testing.T) {
	srv, _ := newTestServer()

	rec := srv.do(t, http.MethodPut, "/api/profiles/alice", ProfileDTO{Cadence: "daily"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Biweekly needs an anchor to tile from.
	rec = srv.do(t, http.MethodPut, "/api/profiles/alice", ProfileDTO{Cadence: "biweekly"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func rateCents(v int64) *int64 { return &v }
