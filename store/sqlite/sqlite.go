/*
Package sqlite provides the SQLite-backed implementation of payroll.Store.

PURPOSE:
  Production persistence for schedule patterns, shifts, and pay periods.
  The same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

SOFT DELETE:
  Rows are never removed; deletion sets deleted_at. Every SELECT filters
  on deleted_at IS NULL so callers never see deleted entities.

KEY TABLES:
  schedule_patterns: Recurring templates; weekday set and rotation cycle
                     stored as JSON (they are owned by the pattern and
                     always read whole)
  shifts:            Concrete occurrences with cached computed fields
  pay_periods:       Aggregation windows with cached aggregates

INDEXES:
  - idx_shifts_owner_start:   Range queries (hot path)
  - idx_shifts_period:        Aggregate recomputation
  - idx_periods_owner_bounds: "Window covering date X" lookups

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, one
  writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/shifts.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - payroll/store.go: Interface definition and soft-delete contract
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/shiftwise/payroll-engine/payroll"
	"github.com/shiftwise/payroll-engine/schedule"
)

const (
	instantFormat = time.RFC3339Nano
)

// Store implements payroll.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS schedule_patterns (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		start_minute INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL,
		weekdays_json TEXT,
		anchor TEXT,
		rotation_json TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_patterns_owner
		ON schedule_patterns(owner_id);

	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		pattern_id TEXT,
		period_id TEXT,
		scheduled_start TEXT NOT NULL,
		scheduled_end TEXT NOT NULL,
		actual_start TEXT,
		actual_end TEXT,
		break_minutes INTEGER NOT NULL DEFAULT 0,
		rate_multiplier TEXT NOT NULL,
		rate_label TEXT NOT NULL DEFAULT '',
		paid_minutes INTEGER NOT NULL DEFAULT 0,
		premium_minutes INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);

	-- Range queries by owner (hot path for overlap checks and listings)
	CREATE INDEX IF NOT EXISTS idx_shifts_owner_start
		ON shifts(owner_id, scheduled_start);

	-- Aggregate recomputation loads all shifts of a period
	CREATE INDEX IF NOT EXISTS idx_shifts_period
		ON shifts(period_id) WHERE period_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS pay_periods (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		paid_minutes INTEGER NOT NULL DEFAULT 0,
		premium_minutes INTEGER NOT NULL DEFAULT 0,
		estimated_pay_cents INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		deleted_at TEXT
	);

	-- "Find the window covering date X for owner Y"
	CREATE INDEX IF NOT EXISTS idx_periods_owner_bounds
		ON pay_periods(owner_id, start_date, end_date);
	`
	_, err := s.db.Exec(schemaSQL)
	return err
}

// =============================================================================
// PATTERNS
// =============================================================================

type rotationDayRow struct {
	Index           int    `json:"index"`
	Work            bool   `json:"work"`
	Name            string `json:"name,omitempty"`
	StartMinute     *int   `json:"start_minute,omitempty"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

func (s *Store) SavePattern(ctx context.Context, p *schedule.SchedulePattern) error {
	var weekdays []byte
	if p.Weekdays != nil {
		days := []int{}
		for _, d := range p.Weekdays.Days() {
			days = append(days, int(d))
		}
		b, err := json.Marshal(days)
		if err != nil {
			return fmt.Errorf("marshal weekdays: %w", err)
		}
		weekdays = b
	}

	var rotation []byte
	if p.Rotation != nil {
		rows := make([]rotationDayRow, len(p.Rotation))
		for i, rd := range p.Rotation {
			rows[i] = rotationDayRow{
				Index: rd.Index, Work: rd.Work, Name: rd.Name,
				StartMinute: rd.StartMinute, DurationMinutes: rd.DurationMinutes,
			}
		}
		b, err := json.Marshal(rows)
		if err != nil {
			return fmt.Errorf("marshal rotation: %w", err)
		}
		rotation = b
	}

	var anchor any
	if !p.Anchor.IsZero() {
		anchor = p.Anchor.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedule_patterns
			(id, owner_id, name, kind, start_minute, duration_minutes,
			 weekdays_json, anchor, rotation_json, active, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			start_minute = excluded.start_minute,
			duration_minutes = excluded.duration_minutes,
			weekdays_json = excluded.weekdays_json,
			anchor = excluded.anchor,
			rotation_json = excluded.rotation_json,
			active = excluded.active,
			deleted_at = excluded.deleted_at`,
		p.ID, p.OwnerID, p.Name, string(p.Kind), p.StartMinute, p.DurationMinutes,
		nullableBytes(weekdays), anchor, nullableBytes(rotation),
		boolToInt(p.Active), p.CreatedAt.Format(instantFormat), nullableInstant(p.DeletedAt))
	return err
}

const patternSelect = `
	SELECT id, owner_id, name, kind, start_minute, duration_minutes,
	       weekdays_json, anchor, rotation_json, active, created_at, deleted_at
	FROM schedule_patterns`

func (s *Store) GetPattern(ctx context.Context, id string) (*schedule.SchedulePattern, error) {
	row := s.db.QueryRowContext(ctx, patternSelect+` WHERE id = ? AND deleted_at IS NULL`, id)
	return scanPattern(row)
}

func (s *Store) ListPatterns(ctx context.Context, ownerID string) ([]*schedule.SchedulePattern, error) {
	rows, err := s.db.QueryContext(ctx,
		patternSelect+` WHERE owner_id = ? AND deleted_at IS NULL ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []*schedule.SchedulePattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPattern(r rowScanner) (*schedule.SchedulePattern, error) {
	var (
		p                  schedule.SchedulePattern
		kind               string
		weekdays, rotation sql.NullString
		anchor             sql.NullString
		active             int
		createdAt          string
		deletedAt          sql.NullString
	)
	err := r.Scan(&p.ID, &p.OwnerID, &p.Name, &kind, &p.StartMinute, &p.DurationMinutes,
		&weekdays, &anchor, &rotation, &active, &createdAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, payroll.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Kind = schedule.PatternKind(kind)
	p.Active = active != 0

	if weekdays.Valid {
		var days []int
		if err := json.Unmarshal([]byte(weekdays.String), &days); err != nil {
			return nil, fmt.Errorf("unmarshal weekdays: %w", err)
		}
		p.Weekdays = make(schedule.WeekdaySet, len(days))
		for _, d := range days {
			p.Weekdays[time.Weekday(d)] = true
		}
	}
	if anchor.Valid {
		d, err := schedule.ParseDate(anchor.String)
		if err != nil {
			return nil, fmt.Errorf("parse anchor: %w", err)
		}
		p.Anchor = d
	}
	if rotation.Valid {
		var rds []rotationDayRow
		if err := json.Unmarshal([]byte(rotation.String), &rds); err != nil {
			return nil, fmt.Errorf("unmarshal rotation: %w", err)
		}
		p.Rotation = make([]schedule.RotationDay, len(rds))
		for i, rd := range rds {
			p.Rotation[i] = schedule.RotationDay{
				Index: rd.Index, Work: rd.Work, Name: rd.Name,
				StartMinute: rd.StartMinute, DurationMinutes: rd.DurationMinutes,
			}
		}
	}

	if p.CreatedAt, err = time.Parse(instantFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.DeletedAt, err = parseNullInstant(deletedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// SHIFTS
// =============================================================================

func (s *Store) SaveShift(ctx context.Context, sh *schedule.Shift) error {
	return execSaveShift(ctx, s.db, sh)
}

// SaveShifts persists a batch atomically inside one database transaction.
func (s *Store) SaveShifts(ctx context.Context, shifts []*schedule.Shift) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, sh := range shifts {
		if err := execSaveShift(ctx, tx, sh); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execSaveShift(ctx context.Context, db execer, sh *schedule.Shift) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO shifts
			(id, owner_id, pattern_id, period_id, scheduled_start, scheduled_end,
			 actual_start, actual_end, break_minutes, rate_multiplier, rate_label,
			 paid_minutes, premium_minutes, status, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			period_id = excluded.period_id,
			scheduled_start = excluded.scheduled_start,
			scheduled_end = excluded.scheduled_end,
			actual_start = excluded.actual_start,
			actual_end = excluded.actual_end,
			break_minutes = excluded.break_minutes,
			rate_multiplier = excluded.rate_multiplier,
			rate_label = excluded.rate_label,
			paid_minutes = excluded.paid_minutes,
			premium_minutes = excluded.premium_minutes,
			status = excluded.status,
			deleted_at = excluded.deleted_at`,
		sh.ID, sh.OwnerID, nullableString(sh.PatternID), nullableString(sh.PeriodID),
		sh.ScheduledStart.UTC().Format(instantFormat), sh.ScheduledEnd.UTC().Format(instantFormat),
		nullableInstant(sh.ActualStart), nullableInstant(sh.ActualEnd),
		sh.BreakMinutes, sh.RateMultiplier.String(), sh.RateLabel,
		sh.PaidMinutes, sh.PremiumMinutes, string(sh.Status),
		sh.CreatedAt.Format(instantFormat), nullableInstant(sh.DeletedAt))
	return err
}

const shiftSelect = `
	SELECT id, owner_id, pattern_id, period_id, scheduled_start, scheduled_end,
	       actual_start, actual_end, break_minutes, rate_multiplier, rate_label,
	       paid_minutes, premium_minutes, status, created_at, deleted_at
	FROM shifts`

func (s *Store) GetShift(ctx context.Context, id string) (*schedule.Shift, error) {
	row := s.db.QueryRowContext(ctx, shiftSelect+` WHERE id = ? AND deleted_at IS NULL`, id)
	return scanShift(row)
}

func (s *Store) ListShiftsInRange(ctx context.Context, ownerID string, from, to time.Time) ([]*schedule.Shift, error) {
	rows, err := s.db.QueryContext(ctx, shiftSelect+`
		WHERE owner_id = ? AND deleted_at IS NULL
		  AND scheduled_start >= ? AND scheduled_start < ?
		ORDER BY scheduled_start`,
		ownerID, from.UTC().Format(instantFormat), to.UTC().Format(instantFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShifts(rows)
}

func (s *Store) ListShiftsByPeriod(ctx context.Context, periodID string) ([]*schedule.Shift, error) {
	rows, err := s.db.QueryContext(ctx, shiftSelect+`
		WHERE period_id = ? AND deleted_at IS NULL
		ORDER BY scheduled_start`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShifts(rows)
}

func collectShifts(rows *sql.Rows) ([]*schedule.Shift, error) {
	var shifts []*schedule.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, sh)
	}
	return shifts, rows.Err()
}

func scanShift(r rowScanner) (*schedule.Shift, error) {
	var (
		sh                     schedule.Shift
		patternID, periodID    sql.NullString
		schedStart, schedEnd   string
		actualStart, actualEnd sql.NullString
		multiplier             string
		status                 string
		createdAt              string
		deletedAt              sql.NullString
	)
	err := r.Scan(&sh.ID, &sh.OwnerID, &patternID, &periodID, &schedStart, &schedEnd,
		&actualStart, &actualEnd, &sh.BreakMinutes, &multiplier, &sh.RateLabel,
		&sh.PaidMinutes, &sh.PremiumMinutes, &status, &createdAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, payroll.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	sh.PatternID = patternID.String
	sh.PeriodID = periodID.String
	sh.Status = schedule.ShiftStatus(status)

	if sh.ScheduledStart, err = time.Parse(instantFormat, schedStart); err != nil {
		return nil, fmt.Errorf("parse scheduled_start: %w", err)
	}
	if sh.ScheduledEnd, err = time.Parse(instantFormat, schedEnd); err != nil {
		return nil, fmt.Errorf("parse scheduled_end: %w", err)
	}
	if sh.ActualStart, err = parseNullInstant(actualStart); err != nil {
		return nil, err
	}
	if sh.ActualEnd, err = parseNullInstant(actualEnd); err != nil {
		return nil, err
	}
	if sh.RateMultiplier, err = decimal.NewFromString(multiplier); err != nil {
		return nil, fmt.Errorf("parse rate_multiplier: %w", err)
	}
	if sh.CreatedAt, err = time.Parse(instantFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if sh.DeletedAt, err = parseNullInstant(deletedAt); err != nil {
		return nil, err
	}
	return &sh, nil
}

// =============================================================================
// PAY PERIODS
// =============================================================================

func (s *Store) SavePeriod(ctx context.Context, p *payroll.PayPeriod) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pay_periods
			(id, owner_id, start_date, end_date, paid_minutes, premium_minutes,
			 estimated_pay_cents, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			paid_minutes = excluded.paid_minutes,
			premium_minutes = excluded.premium_minutes,
			estimated_pay_cents = excluded.estimated_pay_cents,
			deleted_at = excluded.deleted_at`,
		p.ID, p.OwnerID, p.Start.String(), p.End.String(),
		p.PaidMinutes, p.PremiumMinutes, p.EstimatedPayCents,
		p.CreatedAt.Format(instantFormat), nullableInstant(p.DeletedAt))
	return err
}

const periodSelect = `
	SELECT id, owner_id, start_date, end_date, paid_minutes, premium_minutes,
	       estimated_pay_cents, created_at, deleted_at
	FROM pay_periods`

func (s *Store) GetPeriod(ctx context.Context, id string) (*payroll.PayPeriod, error) {
	row := s.db.QueryRowContext(ctx, periodSelect+` WHERE id = ? AND deleted_at IS NULL`, id)
	return scanPeriod(row)
}

func (s *Store) FindPeriodCovering(ctx context.Context, ownerID string, date schedule.Date) (*payroll.PayPeriod, error) {
	row := s.db.QueryRowContext(ctx, periodSelect+`
		WHERE owner_id = ? AND deleted_at IS NULL
		  AND start_date <= ? AND end_date >= ?`,
		ownerID, date.String(), date.String())
	return scanPeriod(row)
}

func (s *Store) ListPeriods(ctx context.Context, ownerID string) ([]*payroll.PayPeriod, error) {
	rows, err := s.db.QueryContext(ctx, periodSelect+`
		WHERE owner_id = ? AND deleted_at IS NULL
		ORDER BY start_date`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []*payroll.PayPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func scanPeriod(r rowScanner) (*payroll.PayPeriod, error) {
	var (
		p          payroll.PayPeriod
		start, end string
		createdAt  string
		deletedAt  sql.NullString
	)
	err := r.Scan(&p.ID, &p.OwnerID, &start, &end, &p.PaidMinutes, &p.PremiumMinutes,
		&p.EstimatedPayCents, &createdAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, payroll.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.Start, err = schedule.ParseDate(start); err != nil {
		return nil, fmt.Errorf("parse start_date: %w", err)
	}
	if p.End, err = schedule.ParseDate(end); err != nil {
		return nil, fmt.Errorf("parse end_date: %w", err)
	}
	if p.CreatedAt, err = time.Parse(instantFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.DeletedAt, err = parseNullInstant(deletedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// SCAN / BIND HELPERS
// =============================================================================

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func nullableInstant(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(instantFormat)
}

func parseNullInstant(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(instantFormat, v.String)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	return &t, nil
}
