package core_test

import (
	"context"
	"errors"
	"testing"

	"budget-service/internal/core"
)

func TestAccount_GetByCode(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewAccountService(pool)
	ctx := context.Background()

	a, err := svc.GetByCode(ctx, "5000")
	if err != nil {
		t.Fatalf("GetByCode failed: %v", err)
	}
	if a.Name != "General Expenses" || a.Type != core.AccountExpense {
		t.Fatalf("unexpected account: %+v", a)
	}

	if _, err := svc.GetByCode(ctx, "9999"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown code, got %v", err)
	}
}
