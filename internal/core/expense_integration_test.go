package core_test

import (
	"context"
	"errors"
	"testing"

	"budget-service/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestExpense_SubmissionGuard(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	allocations := core.NewAllocationService(pool, core.NewLedger(pool))
	svc := core.NewExpenseService(pool)
	ctx := context.Background()

	alloc, err := allocations.Create(ctx, core.AllocationInput{
		FiscalYearID: 1,
		DepartmentID: 1,
		AccountCode:  "5000",
		CategoryCode: "OPEX-GEN",
		Amount:       decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("create allocation: %v", err)
	}

	first, err := svc.Submit(ctx, core.ExpenseInput{
		AllocationID: alloc.ID,
		Amount:       decimal.NewFromInt(40000),
		Description:  "consulting retainer",
		IncurredOn:   "2024-04-10",
	})
	if err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if first.Status != core.ExpenseApproved {
		t.Fatalf("expected first expense APPROVED, got %s", first.Status)
	}
	// Expenses charge an allocation directly; a backing project is optional.
	if first.ProjectID != nil {
		t.Fatalf("expected no project on a direct submission, got %d", *first.ProjectID)
	}

	remaining, err := svc.Remaining(ctx, alloc.ID)
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if !remaining.Equal(decimal.NewFromInt(60000)) {
		t.Fatalf("expected remaining 60000 after 40000 spend, got %s", remaining)
	}

	// 70000 against a remaining 60000 must be refused outright.
	_, err = svc.Submit(ctx, core.ExpenseInput{
		AllocationID: alloc.ID,
		Amount:       decimal.NewFromInt(70000),
		Description:  "oversized invoice",
		IncurredOn:   "2024-04-11",
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict for overspend, got %v", err)
	}

	remaining, err = svc.Remaining(ctx, alloc.ID)
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if !remaining.Equal(decimal.NewFromInt(60000)) {
		t.Fatalf("remaining changed after refused submission: %s", remaining)
	}

	var count int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM expenses WHERE allocation_id = $1", alloc.ID,
	).Scan(&count); err != nil {
		t.Fatalf("count expenses: %v", err)
	}
	if count != 1 {
		t.Fatalf("refused submission left a row behind: %d expenses", count)
	}
}

func TestExpense_IngestThenApprove(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	allocations := core.NewAllocationService(pool, core.NewLedger(pool))
	svc := core.NewExpenseService(pool)
	ctx := context.Background()

	alloc, err := allocations.Create(ctx, core.AllocationInput{
		FiscalYearID: 1,
		DepartmentID: 1,
		AccountCode:  "5000",
		Amount:       decimal.NewFromInt(5000),
	})
	if err != nil {
		t.Fatalf("create allocation: %v", err)
	}

	// Ingested expenses park as PENDING and do not consume budget.
	pending, err := svc.Ingest(ctx, core.ExpenseInput{
		TransactionID: uuid.NewString(),
		AllocationID:  alloc.ID,
		Amount:        decimal.NewFromInt(4000),
		Description:   "external feed charge",
		IncurredOn:    "2024-05-02",
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if pending.Status != core.ExpensePending {
		t.Fatalf("expected PENDING, got %s", pending.Status)
	}
	remaining, err := svc.Remaining(ctx, alloc.ID)
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if !remaining.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("pending expense consumed budget: remaining %s", remaining)
	}

	approved, err := svc.Approve(ctx, pending.ID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != core.ExpenseApproved {
		t.Fatalf("expected APPROVED, got %s", approved.Status)
	}
	remaining, _ = svc.Remaining(ctx, alloc.ID)
	if !remaining.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected remaining 1000 after approval, got %s", remaining)
	}

	// The guard runs again at approval time: a second pending expense that
	// no longer fits must stay unapproved.
	second, err := svc.Ingest(ctx, core.ExpenseInput{
		TransactionID: uuid.NewString(),
		AllocationID:  alloc.ID,
		Amount:        decimal.NewFromInt(2000),
		Description:   "second feed charge",
		IncurredOn:    "2024-05-03",
	})
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if _, err := svc.Approve(ctx, second.ID); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict approving over budget, got %v", err)
	}
	got, err := svc.Get(ctx, second.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != core.ExpensePending {
		t.Fatalf("refused approval changed status to %s", got.Status)
	}
}

func TestExpense_ListScopedByDepartment(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	allocations := core.NewAllocationService(pool, core.NewLedger(pool))
	svc := core.NewExpenseService(pool)
	ctx := context.Background()

	finAlloc, err := allocations.Create(ctx, core.AllocationInput{
		FiscalYearID: 1,
		DepartmentID: 1,
		AccountCode:  "5000",
		Amount:       decimal.NewFromInt(10000),
	})
	if err != nil {
		t.Fatalf("create FIN allocation: %v", err)
	}
	opsAlloc, err := allocations.Create(ctx, core.AllocationInput{
		FiscalYearID: 1,
		DepartmentID: 2,
		AccountCode:  "5000",
		Amount:       decimal.NewFromInt(10000),
	})
	if err != nil {
		t.Fatalf("create OPS allocation: %v", err)
	}

	finExpense, err := svc.Submit(ctx, core.ExpenseInput{
		AllocationID: finAlloc.ID,
		Amount:       decimal.NewFromInt(100),
		Description:  "finance stationery",
		IncurredOn:   "2024-03-01",
	})
	if err != nil {
		t.Fatalf("submit FIN expense: %v", err)
	}
	if _, err := svc.Submit(ctx, core.ExpenseInput{
		AllocationID: opsAlloc.ID,
		Amount:       decimal.NewFromInt(200),
		Description:  "ops toolkit",
		IncurredOn:   "2024-03-02",
	}); err != nil {
		t.Fatalf("submit OPS expense: %v", err)
	}

	// Filtering by department must only surface expenses whose allocation
	// belongs to that department.
	items, total, err := svc.List(ctx, core.ExpenseFilter{DepartmentID: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected 1 department-scoped expense, got %d (total %d)", len(items), total)
	}
	if items[0].ID != finExpense.ID {
		t.Fatalf("expected expense %d, got %d", finExpense.ID, items[0].ID)
	}

	items, total, err = svc.List(ctx, core.ExpenseFilter{})
	if err != nil {
		t.Fatalf("unscoped List failed: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 unscoped expenses, got %d (total %d)", len(items), total)
	}
}

func TestExpense_DuplicateTransactionID(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	allocations := core.NewAllocationService(pool, core.NewLedger(pool))
	svc := core.NewExpenseService(pool)
	ctx := context.Background()

	alloc, err := allocations.Create(ctx, core.AllocationInput{
		FiscalYearID: 1,
		DepartmentID: 2,
		AccountCode:  "5100",
		Amount:       decimal.NewFromInt(10000),
	})
	if err != nil {
		t.Fatalf("create allocation: %v", err)
	}

	txnID := uuid.NewString()
	input := core.ExpenseInput{
		TransactionID: txnID,
		AllocationID:  alloc.ID,
		Amount:        decimal.NewFromInt(500),
		Description:   "replayed message",
		IncurredOn:    "2024-06-01",
	}
	if _, err := svc.Ingest(ctx, input); err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}
	if _, err := svc.Ingest(ctx, input); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict on replayed transaction id, got %v", err)
	}

	found, err := svc.GetByTransactionID(ctx, txnID)
	if err != nil {
		t.Fatalf("GetByTransactionID failed: %v", err)
	}
	if found.TransactionID != txnID {
		t.Fatalf("lookup returned wrong expense: %s", found.TransactionID)
	}
}
