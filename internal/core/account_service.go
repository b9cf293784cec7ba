package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountInput holds the fields required to create a chart-of-accounts node.
type AccountInput struct {
	Code       string
	Name       string
	Type       AccountType
	ParentCode string // optional; parent must share the same type
}

// AccountService provides chart-of-accounts operations.
type AccountService interface {
	Create(ctx context.Context, input AccountInput) (*Account, error)
	GetByCode(ctx context.Context, code string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
}

type accountService struct {
	pool *pgxpool.Pool
}

// NewAccountService constructs an AccountService backed by PostgreSQL.
func NewAccountService(pool *pgxpool.Pool) AccountService {
	return &accountService{pool: pool}
}

func (s *accountService) Create(ctx context.Context, input AccountInput) (*Account, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if input.Code == "" || input.Name == "" {
		return nil, fmt.Errorf("account code and name are required: %w", ErrValidation)
	}
	if !ValidAccountType(input.Type) {
		return nil, fmt.Errorf("invalid account type %q: %w", input.Type, ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var parentID *int
	if input.ParentCode != "" {
		var pid int
		var ptype AccountType
		err := tx.QueryRow(ctx,
			"SELECT id, type FROM accounts WHERE code = $1", input.ParentCode,
		).Scan(&pid, &ptype)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("parent account %s: %w", input.ParentCode, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to resolve parent account: %w", err)
		}
		if ptype != input.Type {
			return nil, fmt.Errorf("parent account %s has type %s, child must match: %w",
				input.ParentCode, ptype, ErrValidation)
		}
		parentID = &pid
	}

	a := &Account{}
	err = tx.QueryRow(ctx, `
		INSERT INTO accounts (code, name, type, parent_account_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO NOTHING
		RETURNING id, code, name, type, parent_account_id, is_active, created_at
	`, input.Code, input.Name, string(input.Type), parentID,
	).Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentAccountID, &a.IsActive, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account code %s already exists: %w", input.Code, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit account creation: %w", err)
	}
	return a, nil
}

func (s *accountService) GetByCode(ctx context.Context, code string) (*Account, error) {
	a := &Account{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, code, name, type, parent_account_id, is_active, created_at
		FROM accounts WHERE code = $1
	`, code).Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentAccountID, &a.IsActive, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch account %s: %w", code, err)
	}
	return a, nil
}

func (s *accountService) List(ctx context.Context) ([]Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, type, parent_account_id, is_active, created_at
		FROM accounts ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentAccountID, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
