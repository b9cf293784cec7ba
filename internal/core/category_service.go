package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CategoryInput holds the fields required to create an expense category.
type CategoryInput struct {
	Code           string
	Name           string
	Classification Classification
	ParentCode     string // optional; new node becomes parent.Level+1
}

// CategoryService manages the expense-category tree used by variance
// reporting.
type CategoryService interface {
	Create(ctx context.Context, input CategoryInput) (*ExpenseCategory, error)
	GetByCode(ctx context.Context, code string) (*ExpenseCategory, error)
	List(ctx context.Context) ([]ExpenseCategory, error)
}

type categoryService struct {
	pool *pgxpool.Pool
}

// NewCategoryService constructs a CategoryService backed by PostgreSQL.
func NewCategoryService(pool *pgxpool.Pool) CategoryService {
	return &categoryService{pool: pool}
}

func (s *categoryService) Create(ctx context.Context, input CategoryInput) (*ExpenseCategory, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if input.Code == "" || input.Name == "" {
		return nil, fmt.Errorf("category code and name are required: %w", ErrValidation)
	}
	switch input.Classification {
	case ClassOpex, ClassCapex, ClassMixed:
	default:
		return nil, fmt.Errorf("invalid classification %q: %w", input.Classification, ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	level := 1
	var parentID *int
	if input.ParentCode != "" {
		var pid, plevel int
		err := tx.QueryRow(ctx,
			"SELECT id, level FROM expense_categories WHERE code = $1", input.ParentCode,
		).Scan(&pid, &plevel)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("parent category %s: %w", input.ParentCode, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to resolve parent category: %w", err)
		}
		parentID = &pid
		level = plevel + 1
	}

	c := &ExpenseCategory{}
	err = tx.QueryRow(ctx, `
		INSERT INTO expense_categories (code, name, level, classification, parent_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO NOTHING
		RETURNING id, code, name, level, classification, parent_id, is_active
	`, input.Code, input.Name, level, string(input.Classification), parentID,
	).Scan(&c.ID, &c.Code, &c.Name, &c.Level, &c.Classification, &c.ParentID, &c.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("category code %s already exists: %w", input.Code, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit category creation: %w", err)
	}
	return c, nil
}

func (s *categoryService) GetByCode(ctx context.Context, code string) (*ExpenseCategory, error) {
	c := &ExpenseCategory{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, code, name, level, classification, parent_id, is_active
		FROM expense_categories WHERE code = $1
	`, code).Scan(&c.ID, &c.Code, &c.Name, &c.Level, &c.Classification, &c.ParentID, &c.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("category %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch category %s: %w", code, err)
	}
	return c, nil
}

func (s *categoryService) List(ctx context.Context) ([]ExpenseCategory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, level, classification, parent_id, is_active
		FROM expense_categories ORDER BY level, code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []ExpenseCategory
	for rows.Next() {
		var c ExpenseCategory
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Level, &c.Classification, &c.ParentID, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
