package app

import "budget-service/internal/core"

// CreateAccountRequest is the input for creating a ledger account.
type CreateAccountRequest struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	ParentCode string `json:"parent_code,omitempty"`
}

// CreateCategoryRequest is the input for creating an expense category.
type CreateCategoryRequest struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Classification string `json:"classification"`
	ParentCode     string `json:"parent_code,omitempty"`
}

// CreateProposalRequest is the input for creating a budget proposal with
// its costed items.
type CreateProposalRequest struct {
	ExternalRef          string                   `json:"external_ref,omitempty"`
	DepartmentID         int                      `json:"department_id"`
	FiscalYearID         int                      `json:"fiscal_year_id"`
	Title                string                   `json:"title"`
	PerformanceStartDate string                   `json:"performance_start_date"`
	PerformanceEndDate   string                   `json:"performance_end_date"`
	CreatedBy            int                      `json:"-"`
	Items                []core.ProposalItemInput `json:"items"`
}
