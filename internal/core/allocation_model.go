package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetAllocation is a pot of spendable budget for one department and
// account within a fiscal year. Its amount only changes through transfers
// and adjustments, each of which posts a balanced journal entry.
type BudgetAllocation struct {
	ID           int             `json:"id"`
	FiscalYearID int             `json:"fiscal_year_id"`
	DepartmentID int             `json:"department_id"`
	ProjectID    *int            `json:"project_id,omitempty"`
	AccountID    int             `json:"account_id"`
	AccountCode  string          `json:"account_code"`
	CategoryID   *int            `json:"category_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

type BudgetTransfer struct {
	ID                      int             `json:"id"`
	SourceAllocationID      int             `json:"source_allocation_id"`
	DestinationAllocationID *int            `json:"destination_allocation_id,omitempty"`
	Amount                  decimal.Decimal `json:"amount"`
	Reason                  string          `json:"reason"`
	EntryID                 int             `json:"entry_id"`
	CreatedBy               string          `json:"created_by"`
	CreatedAt               time.Time       `json:"created_at"`
}

type AllocationInput struct {
	FiscalYearID int             `json:"fiscal_year_id"`
	DepartmentID int             `json:"department_id"`
	ProjectID    *int            `json:"project_id,omitempty"`
	AccountCode  string          `json:"account_code"`
	CategoryCode string          `json:"category_code,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
}

type TransferInput struct {
	SourceAllocationID      int             `json:"source_allocation_id"`
	DestinationAllocationID int             `json:"destination_allocation_id"`
	Amount                  decimal.Decimal `json:"amount"`
	Reason                  string          `json:"reason"`
	CreatedBy               string          `json:"created_by"`
}

// AdjustmentInput increases or decreases a single allocation. Amount is
// signed: positive grows the allocation, negative shrinks it. The offset
// account takes the other side of the journal entry.
type AdjustmentInput struct {
	AllocationID      int             `json:"allocation_id"`
	Amount            decimal.Decimal `json:"amount"`
	OffsetAccountCode string          `json:"offset_account_code"`
	Reason            string          `json:"reason"`
	CreatedBy         string          `json:"created_by"`
}

type AllocationFilter struct {
	FiscalYearID int
	DepartmentID int
	Limit        int
	Offset       int
}

type AllocationService interface {
	Create(ctx context.Context, input AllocationInput) (*BudgetAllocation, error)
	Get(ctx context.Context, allocationID int) (*BudgetAllocation, error)
	List(ctx context.Context, filter AllocationFilter) ([]BudgetAllocation, int, error)
	Transfer(ctx context.Context, input TransferInput) (*BudgetTransfer, error)
	Adjust(ctx context.Context, input AdjustmentInput) (*BudgetTransfer, error)
	Transfers(ctx context.Context, allocationID int) ([]BudgetTransfer, error)
}
