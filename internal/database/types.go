package database

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested employee does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert collides with an existing
	// row (employee name, or an attendance record for the same day).
	ErrDuplicate = errors.New("already exists")
)

// Employee is one roster entry. Name is the identity key and is unique;
// PhotoPath points at the stored training photo relative to the photo
// directory.
type Employee struct {
	ID        int64
	Name      string
	PhotoPath string
	CreatedAt time.Time
}

// AttendanceRecord is one (employee, date) presence row. At most one exists
// per employee per calendar day; the table constraint enforces it.
type AttendanceRecord struct {
	ID       int64
	Employee string
	Date     string // calendar date, YYYY-MM-DD
	MarkedAt time.Time
	Distance float64 // match distance that produced the mark
}

// DateOf formats a time as the calendar date used for attendance keys.
func DateOf(t time.Time) string {
	return t.Format("2006-01-02")
}
