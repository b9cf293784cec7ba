package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type allocationService struct {
	pool   *pgxpool.Pool
	ledger *Ledger
}

func NewAllocationService(pool *pgxpool.Pool, ledger *Ledger) AllocationService {
	return &allocationService{pool: pool, ledger: ledger}
}

const allocationColumns = `a.id, a.fiscal_year_id, a.department_id, a.project_id, a.account_id,
	acc.code, a.category_id, a.amount, a.is_active, a.created_at`

func scanAllocation(row pgx.Row) (*BudgetAllocation, error) {
	a := &BudgetAllocation{}
	err := row.Scan(&a.ID, &a.FiscalYearID, &a.DepartmentID, &a.ProjectID, &a.AccountID,
		&a.AccountCode, &a.CategoryID, &a.Amount, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *allocationService) Create(ctx context.Context, input AllocationInput) (*BudgetAllocation, error) {
	if input.Amount.IsNegative() {
		return nil, fmt.Errorf("allocation amount must not be negative: %w", ErrValidation)
	}
	input.AccountCode = strings.ToUpper(strings.TrimSpace(input.AccountCode))
	if input.AccountCode == "" {
		return nil, fmt.Errorf("account code is required: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked bool
	err = tx.QueryRow(ctx, "SELECT is_locked FROM fiscal_years WHERE id = $1", input.FiscalYearID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("fiscal year %d: %w", input.FiscalYearID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to check fiscal year %d: %w", input.FiscalYearID, err)
	}
	if locked {
		return nil, fmt.Errorf("fiscal year %d is locked: %w", input.FiscalYearID, ErrConflict)
	}

	var accountID int
	err = tx.QueryRow(ctx,
		"SELECT id FROM accounts WHERE code = $1 AND is_active = TRUE", input.AccountCode).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", input.AccountCode, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve account %s: %w", input.AccountCode, err)
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

	var allocationID int
	err = tx.QueryRow(ctx, `
		INSERT INTO budget_allocations (fiscal_year_id, department_id, project_id, account_id, category_id, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fiscal_year_id, department_id, account_id) DO NOTHING
		RETURNING id`,
		input.FiscalYearID, input.DepartmentID, input.ProjectID, accountID, categoryID, input.Amount).Scan(&allocationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("allocation for fiscal year %d, department %d, account %s already exists: %w",
				input.FiscalYearID, input.DepartmentID, input.AccountCode, ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert allocation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit allocation: %w", err)
	}
	return s.Get(ctx, allocationID)
}

func (s *allocationService) Get(ctx context.Context, allocationID int) (*BudgetAllocation, error) {
	a, err := scanAllocation(s.pool.QueryRow(ctx,
		"SELECT "+allocationColumns+` FROM budget_allocations a
		JOIN accounts acc ON acc.id = a.account_id
		WHERE a.id = $1`, allocationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("allocation %d: %w", allocationID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch allocation %d: %w", allocationID, err)
	}
	return a, nil
}

func (s *allocationService) List(ctx context.Context, filter AllocationFilter) ([]BudgetAllocation, int, error) {
	where := []string{"a.is_active = TRUE"}
	args := []any{}
	if filter.FiscalYearID != 0 {
		args = append(args, filter.FiscalYearID)
		where = append(where, fmt.Sprintf("a.fiscal_year_id = $%d", len(args)))
	}
	if filter.DepartmentID != 0 {
		args = append(args, filter.DepartmentID)
		where = append(where, fmt.Sprintf("a.department_id = $%d", len(args)))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM budget_allocations a"+cond, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count allocations: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	rows, err := s.pool.Query(ctx,
		"SELECT "+allocationColumns+` FROM budget_allocations a
		JOIN accounts acc ON acc.id = a.account_id`+cond+
			fmt.Sprintf(" ORDER BY a.id LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list allocations: %w", err)
	}
	defer rows.Close()

	var out []BudgetAllocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan allocation: %w", err)
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

// lockAllocation reads an allocation row FOR UPDATE inside the caller's
// transaction, serializing concurrent balance mutations.
func lockAllocation(ctx context.Context, tx pgx.Tx, allocationID int) (*BudgetAllocation, error) {
	a := &BudgetAllocation{ID: allocationID}
	err := tx.QueryRow(ctx, `
		SELECT a.fiscal_year_id, a.department_id, a.account_id, acc.code, a.amount, a.is_active
		FROM budget_allocations a
		JOIN accounts acc ON acc.id = a.account_id
		WHERE a.id = $1
		FOR UPDATE OF a`, allocationID).
		Scan(&a.FiscalYearID, &a.DepartmentID, &a.AccountID, &a.AccountCode, &a.Amount, &a.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("allocation %d: %w", allocationID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock allocation %d: %w", allocationID, err)
	}
	if !a.IsActive {
		return nil, fmt.Errorf("allocation %d is inactive: %w", allocationID, ErrConflict)
	}
	return a, nil
}

func checkFiscalYearUnlocked(ctx context.Context, tx pgx.Tx, fiscalYearID int) error {
	var locked bool
	if err := tx.QueryRow(ctx, "SELECT is_locked FROM fiscal_years WHERE id = $1", fiscalYearID).Scan(&locked); err != nil {
		return fmt.Errorf("failed to check fiscal year %d: %w", fiscalYearID, err)
	}
	if locked {
		return fmt.Errorf("fiscal year %d is locked: %w", fiscalYearID, ErrConflict)
	}
	return nil
}

// Transfer moves budget from one allocation to another. Both rows are
// locked in id order, the source must cover the amount, and the movement
// is mirrored by a two-line journal entry that debits the destination
// account and credits the source account. Everything happens in one
// transaction so a failed posting leaves both balances untouched.
func (s *allocationService) Transfer(ctx context.Context, input TransferInput) (*BudgetTransfer, error) {
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("transfer amount must be positive: %w", ErrValidation)
	}
	if input.SourceAllocationID == input.DestinationAllocationID {
		return nil, fmt.Errorf("source and destination allocations are the same: %w", ErrValidation)
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, fmt.Errorf("transfer reason is required: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock in id order so two opposing transfers cannot deadlock.
	first, second := input.SourceAllocationID, input.DestinationAllocationID
	if second < first {
		first, second = second, first
	}
	byID := make(map[int]*BudgetAllocation, 2)
	for _, id := range []int{first, second} {
		a, err := lockAllocation(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		byID[id] = a
	}
	source := byID[input.SourceAllocationID]
	dest := byID[input.DestinationAllocationID]

	if source.FiscalYearID != dest.FiscalYearID {
		return nil, fmt.Errorf("allocations belong to different fiscal years: %w", ErrValidation)
	}
	if err := checkFiscalYearUnlocked(ctx, tx, source.FiscalYearID); err != nil {
		return nil, err
	}
	if source.Amount.LessThan(input.Amount) {
		return nil, fmt.Errorf("allocation %d holds %s, cannot transfer %s: %w",
			source.ID, source.Amount.StringFixed(2), input.Amount.StringFixed(2), ErrConflict)
	}

	_, err = tx.Exec(ctx, "UPDATE budget_allocations SET amount = amount - $1 WHERE id = $2",
		input.Amount, source.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to debit source allocation: %w", err)
	}
	_, err = tx.Exec(ctx, "UPDATE budget_allocations SET amount = amount + $1 WHERE id = $2",
		input.Amount, dest.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to credit destination allocation: %w", err)
	}

	entryID, err := s.ledger.PostTx(ctx, tx, EntryInput{
		ReferenceType: "BUDGET_TRANSFER",
		ReferenceID:   fmt.Sprintf("%d->%d", source.ID, dest.ID),
		Narration:     input.Reason,
		EntryDate:     time.Now().Format("2006-01-02"),
		Lines: []EntryLineInput{
			{AccountCode: dest.AccountCode, Direction: Debit, Amount: input.Amount},
			{AccountCode: source.AccountCode, Direction: Credit, Amount: input.Amount},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to post transfer entry: %w", err)
	}

	t := &BudgetTransfer{}
	err = tx.QueryRow(ctx, `
		INSERT INTO budget_transfers (source_allocation_id, destination_allocation_id, amount, reason, entry_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, source_allocation_id, destination_allocation_id, amount, reason, entry_id, created_by, created_at`,
		source.ID, dest.ID, input.Amount, input.Reason, entryID, input.CreatedBy).
		Scan(&t.ID, &t.SourceAllocationID, &t.DestinationAllocationID, &t.Amount, &t.Reason,
			&t.EntryID, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record transfer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}
	return t, nil
}

// Adjust grows or shrinks a single allocation against an offset account.
// A negative amount may not take the allocation below zero.
func (s *allocationService) Adjust(ctx context.Context, input AdjustmentInput) (*BudgetTransfer, error) {
	if input.Amount.IsZero() {
		return nil, fmt.Errorf("adjustment amount must not be zero: %w", ErrValidation)
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, fmt.Errorf("adjustment reason is required: %w", ErrValidation)
	}
	offsetCode := strings.ToUpper(strings.TrimSpace(input.OffsetAccountCode))
	if offsetCode == "" {
		return nil, fmt.Errorf("offset account code is required: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	alloc, err := lockAllocation(ctx, tx, input.AllocationID)
	if err != nil {
		return nil, err
	}
	if err := checkFiscalYearUnlocked(ctx, tx, alloc.FiscalYearID); err != nil {
		return nil, err
	}

	newAmount := alloc.Amount.Add(input.Amount)
	if newAmount.IsNegative() {
		return nil, fmt.Errorf("allocation %d holds %s, adjustment of %s would go negative: %w",
			alloc.ID, alloc.Amount.StringFixed(2), input.Amount.StringFixed(2), ErrConflict)
	}

	_, err = tx.Exec(ctx, "UPDATE budget_allocations SET amount = $1 WHERE id = $2", newAmount, alloc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust allocation: %w", err)
	}

	abs := input.Amount.Abs()
	lines := []EntryLineInput{
		{AccountCode: alloc.AccountCode, Direction: Debit, Amount: abs},
		{AccountCode: offsetCode, Direction: Credit, Amount: abs},
	}
	if input.Amount.IsNegative() {
		lines = []EntryLineInput{
			{AccountCode: offsetCode, Direction: Debit, Amount: abs},
			{AccountCode: alloc.AccountCode, Direction: Credit, Amount: abs},
		}
	}
	entryID, err := s.ledger.PostTx(ctx, tx, EntryInput{
		ReferenceType: "BUDGET_ADJUSTMENT",
		ReferenceID:   fmt.Sprintf("%d", alloc.ID),
		Narration:     input.Reason,
		EntryDate:     time.Now().Format("2006-01-02"),
		Lines:         lines,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to post adjustment entry: %w", err)
	}

	t := &BudgetTransfer{}
	err = tx.QueryRow(ctx, `
		INSERT INTO budget_transfers (source_allocation_id, destination_allocation_id, amount, reason, entry_id, created_by)
		VALUES ($1, NULL, $2, $3, $4, $5)
		RETURNING id, source_allocation_id, destination_allocation_id, amount, reason, entry_id, created_by, created_at`,
		alloc.ID, abs, input.Reason, entryID, input.CreatedBy).
		Scan(&t.ID, &t.SourceAllocationID, &t.DestinationAllocationID, &t.Amount, &t.Reason,
			&t.EntryID, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record adjustment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit adjustment: %w", err)
	}
	return t, nil
}

func (s *allocationService) Transfers(ctx context.Context, allocationID int) ([]BudgetTransfer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_allocation_id, destination_allocation_id, amount, reason, entry_id, created_by, created_at
		FROM budget_transfers
		WHERE source_allocation_id = $1 OR destination_allocation_id = $1
		ORDER BY id`, allocationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers for allocation %d: %w", allocationID, err)
	}
	defer rows.Close()

	var out []BudgetTransfer
	for rows.Next() {
		t := BudgetTransfer{}
		err := rows.Scan(&t.ID, &t.SourceAllocationID, &t.DestinationAllocationID, &t.Amount,
			&t.Reason, &t.EntryID, &t.CreatedBy, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
