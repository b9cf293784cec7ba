package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ProposalStatus string

const (
	ProposalDraft       ProposalStatus = "DRAFT"
	ProposalSubmitted   ProposalStatus = "SUBMITTED"
	ProposalUnderReview ProposalStatus = "UNDER_REVIEW"
	ProposalApproved    ProposalStatus = "APPROVED"
	ProposalRejected    ProposalStatus = "REJECTED"
)

// CanTransition reports whether the review state machine permits moving
// from s to next. An approval can still be reversed to REJECTED (late
// reversal, which cancels the backing project); REJECTED is terminal.
func (s ProposalStatus) CanTransition(next ProposalStatus) bool {
	switch s {
	case ProposalDraft:
		return next == ProposalSubmitted
	case ProposalSubmitted:
		return next == ProposalUnderReview
	case ProposalUnderReview:
		return next == ProposalApproved || next == ProposalRejected
	case ProposalApproved:
		return next == ProposalRejected
	}
	return false
}

// BudgetProposal is a department's request for future budget, subject to
// review. ExternalRef carries the correlation id of the originating system
// for cross-service idempotency.
type BudgetProposal struct {
	ID                   int            `json:"id"`
	ExternalRef          *string        `json:"external_ref,omitempty"`
	DepartmentID         int            `json:"department_id"`
	FiscalYearID         int            `json:"fiscal_year_id"`
	Title                string         `json:"title"`
	Status               ProposalStatus `json:"status"`
	PerformanceStartDate string         `json:"performance_start_date"`
	PerformanceEndDate   string         `json:"performance_end_date"`
	SyncStatus           string         `json:"sync_status"`
	SubmittedAt          *time.Time     `json:"submitted_at,omitempty"`
	ReviewedBy           *string        `json:"reviewed_by,omitempty"`
	ReviewedAt           *time.Time     `json:"reviewed_at,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	Items                []ProposalItem `json:"items,omitempty"`
}

// ProposalItem is one costed line under a proposal.
type ProposalItem struct {
	ID            int             `json:"id"`
	ProposalID    int             `json:"proposal_id"`
	AccountID     int             `json:"account_id"`
	AccountCode   string          `json:"account_code"`
	Description   string          `json:"description"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
}

// ProposalHistoryRow is one append-only record of a status transition.
type ProposalHistoryRow struct {
	ID             int            `json:"id"`
	ProposalID     int            `json:"proposal_id"`
	PreviousStatus ProposalStatus `json:"previous_status"`
	NewStatus      ProposalStatus `json:"new_status"`
	Actor          string         `json:"actor"`
	Note           *string        `json:"note,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectCancelled ProjectStatus = "CANCELLED"
	ProjectClosed    ProjectStatus = "CLOSED"
)

// Project is created exactly once when its originating proposal is
// approved, and cancelled if the approval is later reversed.
type Project struct {
	ID           int           `json:"id"`
	ProposalID   int           `json:"proposal_id"`
	DepartmentID int           `json:"department_id"`
	Name         string        `json:"name"`
	Status       ProjectStatus `json:"status"`
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ProposalInput holds the fields required to create a proposal.
type ProposalInput struct {
	ExternalRef          string // optional correlation id; unique when set
	DepartmentID         int
	FiscalYearID         int
	Title                string
	PerformanceStartDate string // YYYY-MM-DD
	PerformanceEndDate   string // YYYY-MM-DD
	CreatedBy            int    // user id, 0 for service ingestion
}

// ProposalItemInput is one line of a proposal being created or extended.
type ProposalItemInput struct {
	AccountCode   string
	Description   string
	EstimatedCost decimal.Decimal
}

// ProposalFilter scopes List queries. DepartmentID 0 means unscoped.
type ProposalFilter struct {
	DepartmentID int
	Status       ProposalStatus
	FiscalYearID int
	Limit        int
	Offset       int
}

// ReviewDecision is the terminal outcome of a review.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "APPROVE"
	DecisionReject  ReviewDecision = "REJECT"
)

// ProposalService drives the proposal review state machine and its side
// effects (project creation and cancellation, history rows).
type ProposalService interface {
	Create(ctx context.Context, input ProposalInput, items []ProposalItemInput) (*BudgetProposal, error)
	AddItem(ctx context.Context, proposalID int, item ProposalItemInput) (*BudgetProposal, error)
	Get(ctx context.Context, proposalID int) (*BudgetProposal, error)
	List(ctx context.Context, filter ProposalFilter) ([]BudgetProposal, int, error)
	Submit(ctx context.Context, proposalID int, actor string) (*BudgetProposal, error)
	StartReview(ctx context.Context, proposalID int, actor string) (*BudgetProposal, error)
	Review(ctx context.Context, proposalID int, decision ReviewDecision, actor, note string) (*BudgetProposal, error)
	History(ctx context.Context, proposalID int) ([]ProposalHistoryRow, error)
}

// ProjectService provides read and lifecycle operations on projects.
type ProjectService interface {
	Get(ctx context.Context, projectID int) (*Project, error)
	GetByProposal(ctx context.Context, proposalID int) (*Project, error)
	List(ctx context.Context, departmentID int) ([]Project, error)
	Close(ctx context.Context, projectID int) (*Project, error)
}
