// Package mock provides in-memory implementations of database interfaces
// for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// EmployeeRepository is an in-memory implementation of
// database.EmployeeRepository.
type EmployeeRepository struct {
	mu        sync.RWMutex
	employees map[string]*database.Employee
	nextID    int64

	// Error injection
	ListError   error
	GetError    error
	CreateError error
	UpdateError error
	DeleteError error
}

// NewEmployeeRepository creates an empty mock roster.
func NewEmployeeRepository() *EmployeeRepository {
	return &EmployeeRepository{employees: make(map[string]*database.Employee)}
}

// Add seeds an employee directly, bypassing error injection.
func (m *EmployeeRepository) Add(name, photoPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.employees[name] = &database.Employee{
		ID:        m.nextID,
		Name:      name,
		PhotoPath: photoPath,
		CreatedAt: time.Now(),
	}
}

func (m *EmployeeRepository) List(ctx context.Context) ([]database.Employee, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *EmployeeRepository) Get(ctx context.Context, name string) (*database.Employee, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[name]
	if !ok {
		return nil, fmt.Errorf("employee %q: %w", name, database.ErrNotFound)
	}
	copied := *e
	return &copied, nil
}

func (m *EmployeeRepository) Create(ctx context.Context, e *database.Employee) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[e.Name]; ok {
		return fmt.Errorf("employee %q: %w", e.Name, database.ErrDuplicate)
	}
	m.nextID++
	e.ID = m.nextID
	e.CreatedAt = time.Now()
	copied := *e
	m.employees[e.Name] = &copied
	return nil
}

func (m *EmployeeRepository) UpdatePhoto(ctx context.Context, name, photoPath string) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[name]
	if !ok {
		return fmt.Errorf("employee %q: %w", name, database.ErrNotFound)
	}
	e.PhotoPath = photoPath
	return nil
}

func (m *EmployeeRepository) Delete(ctx context.Context, name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[name]; !ok {
		return fmt.Errorf("employee %q: %w", name, database.ErrNotFound)
	}
	delete(m.employees, name)
	return nil
}

// AttendanceRepository is an in-memory implementation of
// database.AttendanceRepository.
type AttendanceRepository struct {
	mu      sync.RWMutex
	records map[string]database.AttendanceRecord // key: employee|date
	nextID  int64

	// Error injection
	MarkError error
	ListError error

	// MarkCalls counts MarkPresent attempts, including rejected ones.
	MarkCalls int
}

// NewAttendanceRepository creates an empty mock attendance store.
func NewAttendanceRepository() *AttendanceRepository {
	return &AttendanceRepository{records: make(map[string]database.AttendanceRecord)}
}

func key(employee, date string) string {
	return employee + "|" + date
}

// Seed inserts a record directly, bypassing error injection.
func (m *AttendanceRepository) Seed(employee, date string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.records[key(employee, date)] = database.AttendanceRecord{
		ID:       m.nextID,
		Employee: employee,
		Date:     date,
		MarkedAt: time.Now(),
	}
}

// Has reports whether a record exists for (employee, date).
func (m *AttendanceRepository) Has(employee, date string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[key(employee, date)]
	return ok
}

func (m *AttendanceRepository) MarkPresent(ctx context.Context, employee, date string, probe []float32, distance float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkCalls++
	if m.MarkError != nil {
		return m.MarkError
	}
	k := key(employee, date)
	if _, ok := m.records[k]; ok {
		return fmt.Errorf("attendance for %q on %s: %w", employee, date, database.ErrDuplicate)
	}
	m.nextID++
	m.records[k] = database.AttendanceRecord{
		ID:       m.nextID,
		Employee: employee,
		Date:     date,
		MarkedAt: time.Now(),
		Distance: distance,
	}
	return nil
}

func (m *AttendanceRepository) ListForDate(ctx context.Context, date string) ([]string, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for _, rec := range m.records {
		if rec.Date == date {
			names = append(names, rec.Employee)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *AttendanceRepository) RecordsForDate(ctx context.Context, date string) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []database.AttendanceRecord
	for _, rec := range m.records {
		if rec.Date == date {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID > records[j].ID })
	return records, nil
}
