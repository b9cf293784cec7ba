package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type expenseService struct {
	pool *pgxpool.Pool
}

func NewExpenseService(pool *pgxpool.Pool) ExpenseService {
	return &expenseService{pool: pool}
}

const expenseColumns = `id, transaction_id, project_id, allocation_id, category_id, amount, status, description, incurred_on::text, created_at`

func scanExpense(row pgx.Row) (*Expense, error) {
	e := &Expense{}
	err := row.Scan(&e.ID, &e.TransactionID, &e.ProjectID, &e.AllocationID, &e.CategoryID,
		&e.Amount, &e.Status, &e.Description, &e.IncurredOn, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *expenseService) validate(input *ExpenseInput) error {
	if input.Amount.IsNegative() {
		return fmt.Errorf("expense amount must not be negative: %w", ErrValidation)
	}
	if strings.TrimSpace(input.Description) == "" {
		return fmt.Errorf("expense description is required: %w", ErrValidation)
	}
	if strings.TrimSpace(input.IncurredOn) == "" {
		return fmt.Errorf("expense incurred_on date is required: %w", ErrValidation)
	}
	if input.AllocationID == 0 {
		return fmt.Errorf("allocation id is required: %w", ErrValidation)
	}
	if strings.TrimSpace(input.TransactionID) == "" {
		input.TransactionID = uuid.NewString()
	}
	return nil
}

// remainingTx computes how much of the locked allocation is still
// spendable. Only APPROVED expenses count against the budget.
func remainingTx(ctx context.Context, tx pgx.Tx, alloc *BudgetAllocation) (decimal.Decimal, error) {
	var approved decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE allocation_id = $1 AND status = $2`,
		alloc.ID, string(ExpenseApproved)).Scan(&approved)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum approved expenses for allocation %d: %w", alloc.ID, err)
	}
	return alloc.Amount.Sub(approved), nil
}

func (s *expenseService) create(ctx context.Context, input ExpenseInput, status ExpenseStatus) (*Expense, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The FOR UPDATE lock serializes concurrent submissions against the
	// same allocation, so two expenses cannot both pass the remaining
	// check and overdraw it together.
	alloc, err := lockAllocation(ctx, tx, input.AllocationID)
	if err != nil {
		return nil, err
	}

	if status == ExpenseApproved {
		remaining, err := remainingTx(ctx, tx, alloc)
		if err != nil {
			return nil, err
		}
		if input.Amount.GreaterThan(remaining) {
			return nil, fmt.Errorf("allocation %d has %s remaining, cannot cover expense of %s: %w",
				alloc.ID, remaining.StringFixed(2), input.Amount.StringFixed(2), ErrConflict)
		}
	}

	var categoryID *int
	if code := strings.ToUpper(strings.TrimSpace(input.CategoryCode)); code != "" {
		var id int
		err = tx.QueryRow(ctx,
			"SELECT id FROM expense_categories WHERE code = $1 AND is_active = TRUE", code).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("category %s: %w", code, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to resolve category %s: %w", code, err)
		}
		categoryID = &id
	}

	var expenseID int
	err = tx.QueryRow(ctx, `
		INSERT INTO expenses (transaction_id, project_id, allocation_id, category_id, amount, status, description, incurred_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING id`,
		input.TransactionID, input.ProjectID, alloc.ID, categoryID, input.Amount,
		string(status), input.Description, input.IncurredOn).Scan(&expenseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("expense with transaction id %s already exists: %w",
				input.TransactionID, ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit expense: %w", err)
	}
	return s.Get(ctx, expenseID)
}

func (s *expenseService) Submit(ctx context.Context, input ExpenseInput) (*Expense, error) {
	return s.create(ctx, input, ExpenseApproved)
}

func (s *expenseService) Ingest(ctx context.Context, input ExpenseInput) (*Expense, error) {
	return s.create(ctx, input, ExpensePending)
}

// Approve flips a PENDING expense to APPROVED. The remaining check runs
// here because the budget may have shrunk since ingestion.
func (s *expenseService) Approve(ctx context.Context, expenseID int) (*Expense, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var allocationID int
	var status ExpenseStatus
	var amount decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT allocation_id, status, amount FROM expenses WHERE id = $1 FOR UPDATE", expenseID).
		Scan(&allocationID, &status, &amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("expense %d: %w", expenseID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock expense %d: %w", expenseID, err)
	}
	if status != ExpensePending {
		return nil, fmt.Errorf("expense %d is %s, only PENDING expenses can be approved: %w",
			expenseID, status, ErrConflict)
	}

	alloc, err := lockAllocation(ctx, tx, allocationID)
	if err != nil {
		return nil, err
	}
	remaining, err := remainingTx(ctx, tx, alloc)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(remaining) {
		return nil, fmt.Errorf("allocation %d has %s remaining, cannot cover expense of %s: %w",
			alloc.ID, remaining.StringFixed(2), amount.StringFixed(2), ErrConflict)
	}

	_, err = tx.Exec(ctx, "UPDATE expenses SET status = $1 WHERE id = $2",
		string(ExpenseApproved), expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to approve expense %d: %w", expenseID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit expense approval: %w", err)
	}
	return s.Get(ctx, expenseID)
}

func (s *expenseService) Reject(ctx context.Context, expenseID int) (*Expense, error) {
	tag, err := s.pool.Exec(ctx,
		"UPDATE expenses SET status = $1 WHERE id = $2 AND status != $1",
		string(ExpenseRejected), expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to reject expense %d: %w", expenseID, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, expenseID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("expense %d is already rejected: %w", expenseID, ErrConflict)
	}
	return s.Get(ctx, expenseID)
}

func (s *expenseService) Get(ctx context.Context, expenseID int) (*Expense, error) {
	e, err := scanExpense(s.pool.QueryRow(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = $1", expenseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("expense %d: %w", expenseID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch expense %d: %w", expenseID, err)
	}
	return e, nil
}

func (s *expenseService) GetByTransactionID(ctx context.Context, transactionID string) (*Expense, error) {
	e, err := scanExpense(s.pool.QueryRow(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE transaction_id = $1", transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("expense with transaction id %s: %w", transactionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch expense %s: %w", transactionID, err)
	}
	return e, nil
}

func (s *expenseService) List(ctx context.Context, filter ExpenseFilter) ([]Expense, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if filter.AllocationID != 0 {
		args = append(args, filter.AllocationID)
		where = append(where, fmt.Sprintf("allocation_id = $%d", len(args)))
	}
	if filter.ProjectID != 0 {
		args = append(args, filter.ProjectID)
		where = append(where, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filter.DepartmentID != 0 {
		args = append(args, filter.DepartmentID)
		where = append(where, fmt.Sprintf(
			"allocation_id IN (SELECT id FROM budget_allocations WHERE department_id = $%d)", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM expenses"+cond, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	rows, err := s.pool.Query(ctx,
		"SELECT "+expenseColumns+" FROM expenses"+cond+
			fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan expense: %w", err)
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

func (s *expenseService) Remaining(ctx context.Context, allocationID int) (decimal.Decimal, error) {
	var remaining decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		SELECT a.amount - COALESCE(SUM(e.amount) FILTER (WHERE e.status = $2), 0)
		FROM budget_allocations a
		LEFT JOIN expenses e ON e.allocation_id = a.id
		WHERE a.id = $1
		GROUP BY a.amount`,
		allocationID, string(ExpenseApproved)).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("allocation %d: %w", allocationID, ErrNotFound)
		}
		return decimal.Zero, fmt.Errorf("failed to compute remaining for allocation %d: %w", allocationID, err)
	}
	return remaining, nil
}
