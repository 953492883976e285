package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage. The
// table's UNIQUE (employee_name, date) constraint is the durable half of the
// at-most-once-per-day invariant; callers keep an in-memory marked set as
// the fast path.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// MarkPresent records (employee, date) once. The insert is ON CONFLICT DO
// NOTHING; zero affected rows means another writer got there first and the
// caller receives ErrDuplicate. The probe embedding and match distance are
// stored with the row for audit.
func (r *AttendanceRepository) MarkPresent(ctx context.Context, employee, date string, probe []float32, distance float64) error {
	var probeArg any
	if len(probe) > 0 {
		probeArg = pgvector.NewVector(probe)
	}

	result, err := r.pool.Exec(ctx, `
		INSERT INTO attendance (employee_name, date, distance, probe)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (employee_name, date) DO NOTHING
	`, employee, date, distance, probeArg)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("attendance for %q on %s: %w", employee, date, database.ErrDuplicate)
	}
	return nil
}

// ListForDate returns the names of all employees marked present on date.
func (r *AttendanceRepository) ListForDate(ctx context.Context, date string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT employee_name FROM attendance WHERE date = $1 ORDER BY employee_name
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan attendance name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return names, nil
}

// RecordsForDate returns full attendance rows for date, newest first.
func (r *AttendanceRepository) RecordsForDate(ctx context.Context, date string) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, employee_name, to_char(date, 'YYYY-MM-DD'), marked_at, distance
		FROM attendance
		WHERE date = $1
		ORDER BY marked_at DESC
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.Employee, &rec.Date, &rec.MarkedAt, &rec.Distance); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}
