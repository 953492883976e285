// Package database defines the durable storage interfaces the attendance
// engine consumes, plus the shared row types. The concrete PostgreSQL
// implementation lives in the postgres subpackage; in-memory mocks for
// testing live in mock.
package database

import "context"

// EmployeeRepository is the roster access capability.
type EmployeeRepository interface {
	// List returns all employees in name order.
	List(ctx context.Context) ([]Employee, error)
	// Get returns the employee with the given name, or ErrNotFound.
	Get(ctx context.Context, name string) (*Employee, error)
	// Create inserts a new employee; ErrDuplicate if the name is taken.
	Create(ctx context.Context, e *Employee) error
	// UpdatePhoto replaces the employee's photo path; ErrNotFound if absent.
	UpdatePhoto(ctx context.Context, name, photoPath string) error
	// Delete removes the employee and their attendance history.
	Delete(ctx context.Context, name string) error
}

// AttendanceRepository is the durable attendance capability. The engine
// needs exactly two operations: an idempotent per-day insert and a per-day
// listing to seed the session's already-marked set.
type AttendanceRepository interface {
	// MarkPresent records (employee, date) once. A second call for the
	// same pair returns ErrDuplicate and changes nothing; the probe
	// embedding and match distance are kept with the row for audit.
	MarkPresent(ctx context.Context, employee, date string, probe []float32, distance float64) error
	// ListForDate returns the names of all employees marked on date.
	ListForDate(ctx context.Context, date string) ([]string, error)
	// RecordsForDate returns full attendance rows for date, newest first.
	RecordsForDate(ctx context.Context, date string) ([]AttendanceRecord, error)
}
