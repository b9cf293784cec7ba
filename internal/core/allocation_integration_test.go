package core_test

import (
	"context"
	"errors"
	"testing"

	"budget-service/internal/core"

	"github.com/shopspring/decimal"
)

func seedAllocationPair(t *testing.T, svc core.AllocationService) (source, dest *core.BudgetAllocation) {
	t.Helper()
	ctx := context.Background()

	source, err := svc.Create(ctx, core.AllocationInput{
		FiscalYearID: 1,
		DepartmentID: 1,
		AccountCode:  "5000",
		CategoryCode: "OPEX-GEN",
		Amount:       decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("create source allocation: %v", err)
	}
	dest, err = svc.Create(ctx, core.AllocationInput{
		FiscalYearID: 1,
		DepartmentID: 1,
		AccountCode:  "5100",
		CategoryCode: "OPEX-GEN",
		Amount:       decimal.NewFromInt(20000),
	})
	if err != nil {
		t.Fatalf("create destination allocation: %v", err)
	}
	return source, dest
}

func TestTransfer_MovesBudgetWithBalancedEntry(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool)
	svc := core.NewAllocationService(pool, ledger)
	ctx := context.Background()

	source, dest := seedAllocationPair(t, svc)

	transfer, err := svc.Transfer(ctx, core.TransferInput{
		SourceAllocationID:      source.ID,
		DestinationAllocationID: dest.ID,
		Amount:                  decimal.NewFromInt(1500),
		Reason:                  "rent shortfall",
		CreatedBy:               "operator1",
	})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if transfer.EntryID == 0 {
		t.Fatal("expected transfer to carry a journal entry id")
	}

	source, err = svc.Get(ctx, source.ID)
	if err != nil {
		t.Fatalf("Get source: %v", err)
	}
	dest, err = svc.Get(ctx, dest.ID)
	if err != nil {
		t.Fatalf("Get destination: %v", err)
	}
	if !source.Amount.Equal(decimal.NewFromInt(98500)) {
		t.Errorf("expected source 98500, got %s", source.Amount)
	}
	if !dest.Amount.Equal(decimal.NewFromInt(21500)) {
		t.Errorf("expected destination 21500, got %s", dest.Amount)
	}

	// The backing journal entry must be exactly two balanced lines:
	// debit the destination account, credit the source account.
	rows, err := pool.Query(ctx, `
		SELECT acc.code, jl.direction, jl.amount
		FROM journal_lines jl
		JOIN accounts acc ON acc.id = jl.account_id
		WHERE jl.entry_id = $1
		ORDER BY jl.direction`, transfer.EntryID)
	if err != nil {
		t.Fatalf("query journal lines: %v", err)
	}
	defer rows.Close()

	type line struct {
		code, direction string
		amount          decimal.Decimal
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.code, &l.direction, &l.amount); err != nil {
			t.Fatalf("scan journal line: %v", err)
		}
		lines = append(lines, l)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 journal lines, got %d", len(lines))
	}
	if lines[0].code != "5000" || lines[0].direction != "CREDIT" {
		t.Errorf("expected CREDIT on 5000, got %s on %s", lines[0].direction, lines[0].code)
	}
	if lines[1].code != "5100" || lines[1].direction != "DEBIT" {
		t.Errorf("expected DEBIT on 5100, got %s on %s", lines[1].direction, lines[1].code)
	}
	if !lines[0].amount.Equal(lines[1].amount) || !lines[0].amount.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected both lines at 1500, got %s and %s", lines[0].amount, lines[1].amount)
	}

	transfers, err := svc.Transfers(ctx, source.ID)
	if err != nil {
		t.Fatalf("Transfers failed: %v", err)
	}
	if len(transfers) != 1 {
		t.Fatalf("expected 1 transfer on source allocation, got %d", len(transfers))
	}
}

func TestTransfer_InsufficientFundsLeavesNothingBehind(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool)
	svc := core.NewAllocationService(pool, ledger)
	ctx := context.Background()

	source, dest := seedAllocationPair(t, svc)

	_, err := svc.Transfer(ctx, core.TransferInput{
		SourceAllocationID:      source.ID,
		DestinationAllocationID: dest.ID,
		Amount:                  decimal.NewFromInt(999999),
		Reason:                  "too much",
		CreatedBy:               "operator1",
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict for insufficient funds, got %v", err)
	}

	// The failed transfer must not touch balances or leave partial rows.
	source, _ = svc.Get(ctx, source.ID)
	dest, _ = svc.Get(ctx, dest.ID)
	if !source.Amount.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("source balance mutated: %s", source.Amount)
	}
	if !dest.Amount.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("destination balance mutated: %s", dest.Amount)
	}
	var entries, transfers int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM journal_entries").Scan(&entries); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM budget_transfers").Scan(&transfers); err != nil {
		t.Fatalf("count transfers: %v", err)
	}
	if entries != 0 || transfers != 0 {
		t.Errorf("expected no entries or transfers, got %d entries, %d transfers", entries, transfers)
	}
}

func TestAdjust_SignedAmounts(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool)
	svc := core.NewAllocationService(pool, ledger)
	ctx := context.Background()

	alloc, err := svc.Create(ctx, core.AllocationInput{
		FiscalYearID: 1,
		DepartmentID: 2,
		AccountCode:  "5000",
		Amount:       decimal.NewFromInt(10000),
	})
	if err != nil {
		t.Fatalf("create allocation: %v", err)
	}

	adj, err := svc.Adjust(ctx, core.AdjustmentInput{
		AllocationID:      alloc.ID,
		Amount:            decimal.NewFromInt(2500),
		OffsetAccountCode: "3000",
		Reason:            "mid-year top-up",
		CreatedBy:         "head1",
	})
	if err != nil {
		t.Fatalf("positive Adjust failed: %v", err)
	}
	if adj.DestinationAllocationID != nil {
		t.Error("adjustment should not reference a destination allocation")
	}

	alloc, _ = svc.Get(ctx, alloc.ID)
	if !alloc.Amount.Equal(decimal.NewFromInt(12500)) {
		t.Fatalf("expected 12500 after top-up, got %s", alloc.Amount)
	}

	if _, err := svc.Adjust(ctx, core.AdjustmentInput{
		AllocationID:      alloc.ID,
		Amount:            decimal.NewFromInt(-3000),
		OffsetAccountCode: "3000",
		Reason:            "savings target",
		CreatedBy:         "head1",
	}); err != nil {
		t.Fatalf("negative Adjust failed: %v", err)
	}
	alloc, _ = svc.Get(ctx, alloc.ID)
	if !alloc.Amount.Equal(decimal.NewFromInt(9500)) {
		t.Fatalf("expected 9500 after reduction, got %s", alloc.Amount)
	}

	// Reductions may not take the allocation below zero.
	if _, err := svc.Adjust(ctx, core.AdjustmentInput{
		AllocationID:      alloc.ID,
		Amount:            decimal.NewFromInt(-50000),
		OffsetAccountCode: "3000",
		Reason:            "overshoot",
		CreatedBy:         "head1",
	}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict for negative balance, got %v", err)
	}
}
