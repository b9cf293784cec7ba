package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DepartmentService provides department master data operations.
type DepartmentService interface {
	Create(ctx context.Context, code, name string) (*Department, error)
	GetByID(ctx context.Context, id int) (*Department, error)
	GetByCode(ctx context.Context, code string) (*Department, error)
	List(ctx context.Context) ([]Department, error)
	Rename(ctx context.Context, id int, name string) (*Department, error)
	Deactivate(ctx context.Context, id int) error
}

type departmentService struct {
	pool *pgxpool.Pool
}

// NewDepartmentService constructs a DepartmentService backed by PostgreSQL.
func NewDepartmentService(pool *pgxpool.Pool) DepartmentService {
	return &departmentService{pool: pool}
}

func (s *departmentService) Create(ctx context.Context, code, name string) (*Department, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, fmt.Errorf("department code and name are required: %w", ErrValidation)
	}

	d := &Department{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO departments (code, name) VALUES ($1, $2)
		ON CONFLICT (code) DO NOTHING
		RETURNING id, code, name, is_active, created_at
	`, code, name).Scan(&d.ID, &d.Code, &d.Name, &d.IsActive, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("department code %s already exists: %w", code, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	return d, nil
}

func (s *departmentService) GetByID(ctx context.Context, id int) (*Department, error) {
	d := &Department{}
	err := s.pool.QueryRow(ctx,
		"SELECT id, code, name, is_active, created_at FROM departments WHERE id = $1", id,
	).Scan(&d.ID, &d.Code, &d.Name, &d.IsActive, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("department %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch department %d: %w", id, err)
	}
	return d, nil
}

func (s *departmentService) GetByCode(ctx context.Context, code string) (*Department, error) {
	d := &Department{}
	err := s.pool.QueryRow(ctx,
		"SELECT id, code, name, is_active, created_at FROM departments WHERE code = $1", code,
	).Scan(&d.ID, &d.Code, &d.Name, &d.IsActive, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("department %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch department %s: %w", code, err)
	}
	return d, nil
}

func (s *departmentService) List(ctx context.Context) ([]Department, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, code, name, is_active, created_at FROM departments ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Code, &d.Name, &d.IsActive, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *departmentService) Rename(ctx context.Context, id int, name string) (*Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("department name is required: %w", ErrValidation)
	}
	tag, err := s.pool.Exec(ctx, "UPDATE departments SET name = $1 WHERE id = $2", name, id)
	if err != nil {
		return nil, fmt.Errorf("failed to rename department %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("department %d: %w", id, ErrNotFound)
	}
	return s.GetByID(ctx, id)
}

// Deactivate soft-disables a department. Departments with budget proposals
// keep their rows; history must stay resolvable.
func (s *departmentService) Deactivate(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, "UPDATE departments SET is_active = false WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate department %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("department %d: %w", id, ErrNotFound)
	}
	return nil
}
