package app

import (
	"context"

	"budget-service/internal/core"

	"github.com/xuri/excelize/v2"
)

// ApplicationService is the single interface all adapters call. It
// decouples presentation from business logic. Implementations must
// contain no display logic of any kind.
type ApplicationService interface {
	// ── Master data ───────────────────────────────────────────────────

	CreateDepartment(ctx context.Context, code, name string) (*core.Department, error)
	ListDepartments(ctx context.Context) ([]core.Department, error)
	RenameDepartment(ctx context.Context, code, name string) (*core.Department, error)
	DeactivateDepartment(ctx context.Context, code string) error

	CreateAccount(ctx context.Context, req CreateAccountRequest) (*core.Account, error)
	GetAccountByCode(ctx context.Context, code string) (*core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)

	CreateFiscalYear(ctx context.Context, year int, startDate, endDate string) (*core.FiscalYear, error)
	ListFiscalYears(ctx context.Context) ([]core.FiscalYear, error)
	ActivateFiscalYear(ctx context.Context, fiscalYearID int) error
	LockFiscalYear(ctx context.Context, fiscalYearID int) error

	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*core.ExpenseCategory, error)
	ListCategories(ctx context.Context) ([]core.ExpenseCategory, error)

	// ── Proposals and projects ────────────────────────────────────────

	// CreateProposal creates a DRAFT proposal with its costed items in
	// one transaction. A repeated external_ref is rejected.
	CreateProposal(ctx context.Context, req CreateProposalRequest) (*core.BudgetProposal, error)
	AddProposalItem(ctx context.Context, proposalID int, item core.ProposalItemInput) (*core.BudgetProposal, error)
	GetProposal(ctx context.Context, proposalID int) (*core.BudgetProposal, error)
	ListProposals(ctx context.Context, filter core.ProposalFilter) (*ProposalListResult, error)

	// SubmitProposal moves DRAFT to SUBMITTED and stamps submitted_at.
	SubmitProposal(ctx context.Context, proposalID int, actor string) (*core.BudgetProposal, error)
	// StartReview moves SUBMITTED to UNDER_REVIEW.
	StartReview(ctx context.Context, proposalID int, actor string) (*core.BudgetProposal, error)
	// ReviewProposal decides an UNDER_REVIEW proposal. Approval creates
	// the backing project exactly once; a later rejection cancels it.
	ReviewProposal(ctx context.Context, proposalID int, decision core.ReviewDecision, actor, note string) (*core.BudgetProposal, error)
	ProposalHistory(ctx context.Context, proposalID int) ([]core.ProposalHistoryRow, error)

	GetProject(ctx context.Context, projectID int) (*core.Project, error)
	ListProjects(ctx context.Context, departmentID int) ([]core.Project, error)
	CloseProject(ctx context.Context, projectID int) (*core.Project, error)

	// ── Allocations and transfers ─────────────────────────────────────

	CreateAllocation(ctx context.Context, input core.AllocationInput) (*core.BudgetAllocation, error)
	GetAllocation(ctx context.Context, allocationID int) (*core.BudgetAllocation, error)
	ListAllocations(ctx context.Context, filter core.AllocationFilter) (*AllocationListResult, error)
	TransferBudget(ctx context.Context, input core.TransferInput) (*core.BudgetTransfer, error)
	AdjustBudget(ctx context.Context, input core.AdjustmentInput) (*core.BudgetTransfer, error)
	AllocationTransfers(ctx context.Context, allocationID int) ([]core.BudgetTransfer, error)

	// ── Expenses ──────────────────────────────────────────────────────

	SubmitExpense(ctx context.Context, input core.ExpenseInput) (*core.Expense, error)
	IngestExpense(ctx context.Context, input core.ExpenseInput) (*core.Expense, error)
	ApproveExpense(ctx context.Context, expenseID int) (*core.Expense, error)
	RejectExpense(ctx context.Context, expenseID int) (*core.Expense, error)
	GetExpense(ctx context.Context, expenseID int) (*core.Expense, error)
	ListExpenses(ctx context.Context, filter core.ExpenseFilter) (*ExpenseListResult, error)
	AllocationRemaining(ctx context.Context, allocationID int) (*RemainingResult, error)

	// ── Reporting and forecasts ───────────────────────────────────────

	VarianceReport(ctx context.Context, fiscalYearID int) (*core.VarianceReport, error)
	DepartmentSpend(ctx context.Context, fiscalYearID int) ([]core.DepartmentSpend, error)
	ProjectSpend(ctx context.Context, fiscalYearID, departmentID int) ([]core.ProjectSpend, error)
	Dashboard(ctx context.Context, fiscalYearID int) (*core.DashboardSummary, error)

	// LedgerLines feeds the CSV export, ordered by entry date then id.
	LedgerLines(ctx context.Context, fromDate, toDate string) ([]core.LedgerLine, error)
	GetJournalEntry(ctx context.Context, entryID int) (*core.JournalEntry, error)

	GenerateForecast(ctx context.Context, fiscalYearID int) (*core.Forecast, error)
	LatestForecast(ctx context.Context, fiscalYearID int) (*core.Forecast, error)

	// ── Exports ───────────────────────────────────────────────────────

	ExportProposalWorkbook(ctx context.Context, proposalID int) (*excelize.File, error)
	ExportVarianceWorkbook(ctx context.Context, fiscalYearID int) (*excelize.File, error)

	// ── Users and audit ───────────────────────────────────────────────

	GetUserByUsername(ctx context.Context, username string) (*core.User, error)
	GetUser(ctx context.Context, userID int) (*core.User, error)
	CreateUser(ctx context.Context, input core.UserInput) (*core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
	SetPassword(ctx context.Context, userID int, password string) error
	DeactivateUser(ctx context.Context, userID int) error

	RecordActivity(ctx context.Context, username, action, entityType string, entityID int, detail string)
	RecordLoginAttempt(ctx context.Context, username, remoteAddr string, success bool)
}
