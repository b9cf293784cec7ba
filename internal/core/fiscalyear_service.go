package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FiscalYearService manages accounting periods. Activation is exclusive:
// activating a year deactivates every other year in the same statement so
// at most one is active at a time.
type FiscalYearService interface {
	Create(ctx context.Context, year int, startDate, endDate time.Time) (*FiscalYear, error)
	GetByID(ctx context.Context, id int) (*FiscalYear, error)
	GetActive(ctx context.Context) (*FiscalYear, error)
	List(ctx context.Context) ([]FiscalYear, error)
	Activate(ctx context.Context, id int) (*FiscalYear, error)
	Lock(ctx context.Context, id int) (*FiscalYear, error)
}

type fiscalYearService struct {
	pool *pgxpool.Pool
}

// NewFiscalYearService constructs a FiscalYearService backed by PostgreSQL.
func NewFiscalYearService(pool *pgxpool.Pool) FiscalYearService {
	return &fiscalYearService{pool: pool}
}

func (s *fiscalYearService) Create(ctx context.Context, year int, startDate, endDate time.Time) (*FiscalYear, error) {
	if !endDate.After(startDate) {
		return nil, fmt.Errorf("fiscal year end date must be after start date: %w", ErrValidation)
	}

	fy := &FiscalYear{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO fiscal_years (year, start_date, end_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (year) DO NOTHING
		RETURNING id, year, start_date, end_date, is_active, is_locked
	`, year, startDate, endDate).Scan(&fy.ID, &fy.Year, &fy.StartDate, &fy.EndDate, &fy.IsActive, &fy.IsLocked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("fiscal year %d already exists: %w", year, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create fiscal year: %w", err)
	}
	return fy, nil
}

func (s *fiscalYearService) GetByID(ctx context.Context, id int) (*FiscalYear, error) {
	fy := &FiscalYear{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, year, start_date, end_date, is_active, is_locked
		FROM fiscal_years WHERE id = $1
	`, id).Scan(&fy.ID, &fy.Year, &fy.StartDate, &fy.EndDate, &fy.IsActive, &fy.IsLocked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("fiscal year %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch fiscal year %d: %w", id, err)
	}
	return fy, nil
}

func (s *fiscalYearService) GetActive(ctx context.Context) (*FiscalYear, error) {
	fy := &FiscalYear{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, year, start_date, end_date, is_active, is_locked
		FROM fiscal_years WHERE is_active = true
		ORDER BY year DESC LIMIT 1
	`).Scan(&fy.ID, &fy.Year, &fy.StartDate, &fy.EndDate, &fy.IsActive, &fy.IsLocked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no active fiscal year: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch active fiscal year: %w", err)
	}
	return fy, nil
}

func (s *fiscalYearService) List(ctx context.Context) ([]FiscalYear, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, year, start_date, end_date, is_active, is_locked
		FROM fiscal_years ORDER BY year
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list fiscal years: %w", err)
	}
	defer rows.Close()

	var out []FiscalYear
	for rows.Next() {
		var fy FiscalYear
		if err := rows.Scan(&fy.ID, &fy.Year, &fy.StartDate, &fy.EndDate, &fy.IsActive, &fy.IsLocked); err != nil {
			return nil, fmt.Errorf("failed to scan fiscal year: %w", err)
		}
		out = append(out, fy)
	}
	return out, rows.Err()
}

func (s *fiscalYearService) Activate(ctx context.Context, id int) (*FiscalYear, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked bool
	if err := tx.QueryRow(ctx,
		"SELECT is_locked FROM fiscal_years WHERE id = $1 FOR UPDATE", id,
	).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("fiscal year %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch fiscal year %d: %w", id, err)
	}
	if locked {
		return nil, fmt.Errorf("fiscal year %d is locked: %w", id, ErrConflict)
	}

	if _, err := tx.Exec(ctx, "UPDATE fiscal_years SET is_active = (id = $1)", id); err != nil {
		return nil, fmt.Errorf("failed to activate fiscal year %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit fiscal year activation: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Lock marks a year historical. Locking also deactivates it.
func (s *fiscalYearService) Lock(ctx context.Context, id int) (*FiscalYear, error) {
	tag, err := s.pool.Exec(ctx,
		"UPDATE fiscal_years SET is_locked = true, is_active = false WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock fiscal year %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("fiscal year %d: %w", id, ErrNotFound)
	}
	return s.GetByID(ctx, id)
}
