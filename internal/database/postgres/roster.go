package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// EmployeeRepository provides PostgreSQL-backed roster storage.
type EmployeeRepository struct {
	pool *Pool
	// Normalize produces the comparison form of a name for the
	// name_normalized column. Set by the caller (roster service); falls
	// back to identity when nil.
	Normalize func(string) string
}

// NewEmployeeRepository creates a new PostgreSQL employee repository.
func NewEmployeeRepository(pool *Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func (r *EmployeeRepository) normalized(name string) string {
	if r.Normalize != nil {
		return r.Normalize(name)
	}
	return name
}

// List returns all employees in name order.
func (r *EmployeeRepository) List(ctx context.Context) ([]database.Employee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, photo_path, created_at
		FROM employees
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var employees []database.Employee
	for rows.Next() {
		var e database.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.PhotoPath, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return employees, nil
}

// Get returns one employee by name.
func (r *EmployeeRepository) Get(ctx context.Context, name string) (*database.Employee, error) {
	var e database.Employee
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, photo_path, created_at
		FROM employees
		WHERE name = $1
	`, name).Scan(&e.ID, &e.Name, &e.PhotoPath, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %q: %w", name, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query employee: %w", err)
	}
	return &e, nil
}

// Create inserts a new employee. Name collisions (including collisions on
// the normalized form) return ErrDuplicate.
func (r *EmployeeRepository) Create(ctx context.Context, e *database.Employee) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO employees (name, name_normalized, photo_path)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, e.Name, r.normalized(e.Name), e.PhotoPath).Scan(&e.ID, &e.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("employee %q: %w", e.Name, database.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}

// UpdatePhoto replaces the employee's stored photo path.
func (r *EmployeeRepository) UpdatePhoto(ctx context.Context, name, photoPath string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE employees SET photo_path = $2 WHERE name = $1
	`, name, photoPath)
	if err != nil {
		return fmt.Errorf("update employee photo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update employee photo: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("employee %q: %w", name, database.ErrNotFound)
	}
	return nil
}

// Delete removes the employee and their attendance rows.
func (r *EmployeeRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM attendance WHERE employee_name = $1`, name); err != nil {
		return fmt.Errorf("delete attendance for %q: %w", name, err)
	}
	result, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("employee %q: %w", name, database.ErrNotFound)
	}
	return nil
}
