package app

import (
	"context"
	"fmt"
	"time"

	"budget-service/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xuri/excelize/v2"
)

type appService struct {
	pool        *pgxpool.Pool
	ledger      *core.Ledger
	departments core.DepartmentService
	accounts    core.AccountService
	fiscalYears core.FiscalYearService
	categories  core.CategoryService
	proposals   core.ProposalService
	projects    core.ProjectService
	allocations core.AllocationService
	expenses    core.ExpenseService
	variance    core.VarianceService
	forecasts   core.ForecastService
	reporting   core.ReportingService
	users       core.UserService
	activity    *core.ActivityLogger
}

// NewAppService wires every core service over one pool and returns the
// composed ApplicationService.
func NewAppService(pool *pgxpool.Pool) ApplicationService {
	ledger := core.NewLedger(pool)
	return &appService{
		pool:        pool,
		ledger:      ledger,
		departments: core.NewDepartmentService(pool),
		accounts:    core.NewAccountService(pool),
		fiscalYears: core.NewFiscalYearService(pool),
		categories:  core.NewCategoryService(pool),
		proposals:   core.NewProposalService(pool),
		projects:    core.NewProjectService(pool),
		allocations: core.NewAllocationService(pool, ledger),
		expenses:    core.NewExpenseService(pool),
		variance:    core.NewVarianceService(pool),
		forecasts:   core.NewForecastService(pool),
		reporting:   core.NewReportingService(pool),
		users:       core.NewUserService(pool),
		activity:    core.NewActivityLogger(pool),
	}
}

// ── Master data ───────────────────────────────────────────────────────

func (s *appService) CreateDepartment(ctx context.Context, code, name string) (*core.Department, error) {
	return s.departments.Create(ctx, code, name)
}

func (s *appService) ListDepartments(ctx context.Context) ([]core.Department, error) {
	return s.departments.List(ctx)
}

func (s *appService) RenameDepartment(ctx context.Context, code, name string) (*core.Department, error) {
	d, err := s.departments.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.departments.Rename(ctx, d.ID, name)
}

func (s *appService) DeactivateDepartment(ctx context.Context, code string) error {
	d, err := s.departments.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	return s.departments.Deactivate(ctx, d.ID)
}

func (s *appService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*core.Account, error) {
	return s.accounts.Create(ctx, core.AccountInput{
		Code:       req.Code,
		Name:       req.Name,
		Type:       core.AccountType(req.Type),
		ParentCode: req.ParentCode,
	})
}

func (s *appService) GetAccountByCode(ctx context.Context, code string) (*core.Account, error) {
	return s.accounts.GetByCode(ctx, code)
}

func (s *appService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.accounts.List(ctx)
}

func (s *appService) CreateFiscalYear(ctx context.Context, year int, startDate, endDate string) (*core.FiscalYear, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, core.ErrValidation)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, core.ErrValidation)
	}
	return s.fiscalYears.Create(ctx, year, start, end)
}

func (s *appService) ListFiscalYears(ctx context.Context) ([]core.FiscalYear, error) {
	return s.fiscalYears.List(ctx)
}

func (s *appService) ActivateFiscalYear(ctx context.Context, fiscalYearID int) error {
	_, err := s.fiscalYears.Activate(ctx, fiscalYearID)
	return err
}

func (s *appService) LockFiscalYear(ctx context.Context, fiscalYearID int) error {
	_, err := s.fiscalYears.Lock(ctx, fiscalYearID)
	return err
}

func (s *appService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*core.ExpenseCategory, error) {
	return s.categories.Create(ctx, core.CategoryInput{
		Code:           req.Code,
		Name:           req.Name,
		Classification: core.Classification(req.Classification),
		ParentCode:     req.ParentCode,
	})
}

func (s *appService) ListCategories(ctx context.Context) ([]core.ExpenseCategory, error) {
	return s.categories.List(ctx)
}

// ── Proposals and projects ────────────────────────────────────────────

func (s *appService) CreateProposal(ctx context.Context, req CreateProposalRequest) (*core.BudgetProposal, error) {
	return s.proposals.Create(ctx, core.ProposalInput{
		ExternalRef:          req.ExternalRef,
		DepartmentID:         req.DepartmentID,
		FiscalYearID:         req.FiscalYearID,
		Title:                req.Title,
		PerformanceStartDate: req.PerformanceStartDate,
		PerformanceEndDate:   req.PerformanceEndDate,
		CreatedBy:            req.CreatedBy,
	}, req.Items)
}

func (s *appService) AddProposalItem(ctx context.Context, proposalID int, item core.ProposalItemInput) (*core.BudgetProposal, error) {
	return s.proposals.AddItem(ctx, proposalID, item)
}

func (s *appService) GetProposal(ctx context.Context, proposalID int) (*core.BudgetProposal, error) {
	return s.proposals.Get(ctx, proposalID)
}

func (s *appService) ListProposals(ctx context.Context, filter core.ProposalFilter) (*ProposalListResult, error) {
	proposals, total, err := s.proposals.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ProposalListResult{Proposals: proposals, Total: total}, nil
}

func (s *appService) SubmitProposal(ctx context.Context, proposalID int, actor string) (*core.BudgetProposal, error) {
	return s.proposals.Submit(ctx, proposalID, actor)
}

func (s *appService) StartReview(ctx context.Context, proposalID int, actor string) (*core.BudgetProposal, error) {
	return s.proposals.StartReview(ctx, proposalID, actor)
}

func (s *appService) ReviewProposal(ctx context.Context, proposalID int, decision core.ReviewDecision, actor, note string) (*core.BudgetProposal, error) {
	return s.proposals.Review(ctx, proposalID, decision, actor, note)
}

func (s *appService) ProposalHistory(ctx context.Context, proposalID int) ([]core.ProposalHistoryRow, error) {
	return s.proposals.History(ctx, proposalID)
}

func (s *appService) GetProject(ctx context.Context, projectID int) (*core.Project, error) {
	return s.projects.Get(ctx, projectID)
}

func (s *appService) ListProjects(ctx context.Context, departmentID int) ([]core.Project, error) {
	return s.projects.List(ctx, departmentID)
}

func (s *appService) CloseProject(ctx context.Context, projectID int) (*core.Project, error) {
	return s.projects.Close(ctx, projectID)
}

// ── Allocations and transfers ─────────────────────────────────────────

func (s *appService) CreateAllocation(ctx context.Context, input core.AllocationInput) (*core.BudgetAllocation, error) {
	return s.allocations.Create(ctx, input)
}

func (s *appService) GetAllocation(ctx context.Context, allocationID int) (*core.BudgetAllocation, error) {
	return s.allocations.Get(ctx, allocationID)
}

func (s *appService) ListAllocations(ctx context.Context, filter core.AllocationFilter) (*AllocationListResult, error) {
	allocations, total, err := s.allocations.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &AllocationListResult{Allocations: allocations, Total: total}, nil
}

func (s *appService) TransferBudget(ctx context.Context, input core.TransferInput) (*core.BudgetTransfer, error) {
	return s.allocations.Transfer(ctx, input)
}

func (s *appService) AdjustBudget(ctx context.Context, input core.AdjustmentInput) (*core.BudgetTransfer, error) {
	return s.allocations.Adjust(ctx, input)
}

func (s *appService) AllocationTransfers(ctx context.Context, allocationID int) ([]core.BudgetTransfer, error) {
	return s.allocations.Transfers(ctx, allocationID)
}

// ── Expenses ──────────────────────────────────────────────────────────

func (s *appService) SubmitExpense(ctx context.Context, input core.ExpenseInput) (*core.Expense, error) {
	return s.expenses.Submit(ctx, input)
}

func (s *appService) IngestExpense(ctx context.Context, input core.ExpenseInput) (*core.Expense, error) {
	return s.expenses.Ingest(ctx, input)
}

func (s *appService) ApproveExpense(ctx context.Context, expenseID int) (*core.Expense, error) {
	return s.expenses.Approve(ctx, expenseID)
}

func (s *appService) RejectExpense(ctx context.Context, expenseID int) (*core.Expense, error) {
	return s.expenses.Reject(ctx, expenseID)
}

func (s *appService) GetExpense(ctx context.Context, expenseID int) (*core.Expense, error) {
	return s.expenses.Get(ctx, expenseID)
}

func (s *appService) ListExpenses(ctx context.Context, filter core.ExpenseFilter) (*ExpenseListResult, error) {
	expenses, total, err := s.expenses.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ExpenseListResult{Expenses: expenses, Total: total}, nil
}

func (s *appService) AllocationRemaining(ctx context.Context, allocationID int) (*RemainingResult, error) {
	remaining, err := s.expenses.Remaining(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	return &RemainingResult{AllocationID: allocationID, Remaining: remaining}, nil
}

// ── Reporting and forecasts ───────────────────────────────────────────

func (s *appService) VarianceReport(ctx context.Context, fiscalYearID int) (*core.VarianceReport, error) {
	return s.variance.Report(ctx, fiscalYearID)
}

func (s *appService) DepartmentSpend(ctx context.Context, fiscalYearID int) ([]core.DepartmentSpend, error) {
	return s.reporting.DepartmentSpend(ctx, fiscalYearID)
}

func (s *appService) ProjectSpend(ctx context.Context, fiscalYearID, departmentID int) ([]core.ProjectSpend, error) {
	return s.reporting.ProjectSpend(ctx, fiscalYearID, departmentID)
}

func (s *appService) Dashboard(ctx context.Context, fiscalYearID int) (*core.DashboardSummary, error) {
	return s.reporting.Dashboard(ctx, fiscalYearID)
}

func (s *appService) LedgerLines(ctx context.Context, fromDate, toDate string) ([]core.LedgerLine, error) {
	return s.ledger.GetLedgerLines(ctx, fromDate, toDate)
}

func (s *appService) GetJournalEntry(ctx context.Context, entryID int) (*core.JournalEntry, error) {
	return s.ledger.GetEntry(ctx, entryID)
}

func (s *appService) GenerateForecast(ctx context.Context, fiscalYearID int) (*core.Forecast, error) {
	return s.forecasts.Generate(ctx, fiscalYearID)
}

func (s *appService) LatestForecast(ctx context.Context, fiscalYearID int) (*core.Forecast, error) {
	return s.forecasts.Latest(ctx, fiscalYearID)
}

// ── Exports ───────────────────────────────────────────────────────────

func (s *appService) ExportProposalWorkbook(ctx context.Context, proposalID int) (*excelize.File, error) {
	p, err := s.proposals.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	return core.BuildProposalWorkbook(p)
}

func (s *appService) ExportVarianceWorkbook(ctx context.Context, fiscalYearID int) (*excelize.File, error) {
	report, err := s.variance.Report(ctx, fiscalYearID)
	if err != nil {
		return nil, err
	}
	return core.BuildVarianceWorkbook(report)
}

// ── Users and audit ───────────────────────────────────────────────────

func (s *appService) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return s.users.GetByUsername(ctx, username)
}

func (s *appService) GetUser(ctx context.Context, userID int) (*core.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *appService) CreateUser(ctx context.Context, input core.UserInput) (*core.User, error) {
	return s.users.Create(ctx, input)
}

func (s *appService) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.users.List(ctx)
}

func (s *appService) SetPassword(ctx context.Context, userID int, password string) error {
	return s.users.SetPassword(ctx, userID, password)
}

func (s *appService) DeactivateUser(ctx context.Context, userID int) error {
	return s.users.Deactivate(ctx, userID)
}

func (s *appService) RecordActivity(ctx context.Context, username, action, entityType string, entityID int, detail string) {
	s.activity.Record(ctx, username, action, entityType, entityID, detail)
}

func (s *appService) RecordLoginAttempt(ctx context.Context, username, remoteAddr string, success bool) {
	s.activity.RecordLoginAttempt(ctx, username, remoteAddr, success)
}
