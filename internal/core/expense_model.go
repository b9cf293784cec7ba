package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "PENDING"
	ExpenseApproved ExpenseStatus = "APPROVED"
	ExpenseRejected ExpenseStatus = "REJECTED"
)

type Expense struct {
	ID            int             `json:"id"`
	TransactionID string          `json:"transaction_id"`
	ProjectID     *int            `json:"project_id,omitempty"`
	AllocationID  int             `json:"allocation_id"`
	CategoryID    *int            `json:"category_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Status        ExpenseStatus   `json:"status"`
	Description   string          `json:"description"`
	IncurredOn    string          `json:"incurred_on"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ExpenseInput struct {
	TransactionID string          `json:"transaction_id,omitempty"`
	ProjectID     *int            `json:"project_id,omitempty"`
	AllocationID  int             `json:"allocation_id"`
	CategoryCode  string          `json:"category_code,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	IncurredOn    string          `json:"incurred_on"`
}

// ExpenseFilter scopes List queries. DepartmentID filters through the
// owning allocation; 0 means unscoped.
type ExpenseFilter struct {
	AllocationID int
	ProjectID    int
	DepartmentID int
	Status       ExpenseStatus
	Limit        int
	Offset       int
}

// ExpenseService guards every approved charge against its allocation's
// remaining budget. Submit records an approved expense directly; Ingest
// parks an externally sourced expense as PENDING until an operator
// approves it, at which point the guard runs again.
type ExpenseService interface {
	Submit(ctx context.Context, input ExpenseInput) (*Expense, error)
	Ingest(ctx context.Context, input ExpenseInput) (*Expense, error)
	Approve(ctx context.Context, expenseID int) (*Expense, error)
	Reject(ctx context.Context, expenseID int) (*Expense, error)
	Get(ctx context.Context, expenseID int) (*Expense, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Expense, error)
	List(ctx context.Context, filter ExpenseFilter) ([]Expense, int, error)
	Remaining(ctx context.Context, allocationID int) (decimal.Decimal, error)
}
