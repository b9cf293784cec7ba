package app

import (
	"budget-service/internal/core"

	"github.com/shopspring/decimal"
)

// ProposalListResult is returned by ListProposals.
type ProposalListResult struct {
	Proposals []core.BudgetProposal
	Total     int
}

// AllocationListResult is returned by ListAllocations.
type AllocationListResult struct {
	Allocations []core.BudgetAllocation
	Total       int
}

// ExpenseListResult is returned by ListExpenses.
type ExpenseListResult struct {
	Expenses []core.Expense
	Total    int
}

// RemainingResult is returned by AllocationRemaining.
type RemainingResult struct {
	AllocationID int
	Remaining    decimal.Decimal
}
