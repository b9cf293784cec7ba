package core_test

import (
	"testing"

	"budget-service/internal/core"
)

func TestValidAccountType(t *testing.T) {
	valid := []core.AccountType{
		core.AccountAsset, core.AccountLiability, core.AccountEquity,
		core.AccountRevenue, core.AccountExpense,
	}
	for _, at := range valid {
		if !core.ValidAccountType(at) {
			t.Errorf("expected %q to be valid", at)
		}
	}
	for _, at := range []core.AccountType{"", "EXPENSE", "cash", "expense "} {
		if core.ValidAccountType(at) {
			t.Errorf("expected %q to be invalid", at)
		}
	}
}

// The expense charged to an account and the account's own type are distinct
// names; both must be usable side by side.
func TestAccountTypeDistinctFromExpenseEntity(t *testing.T) {
	e := core.Expense{Status: core.ExpensePending}
	a := core.Account{Type: core.AccountExpense}
	if e.Status != core.ExpensePending || a.Type != core.AccountExpense {
		t.Fatal("unexpected zero-value behavior")
	}
}
