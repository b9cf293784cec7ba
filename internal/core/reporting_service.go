package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// DepartmentSpend is one department's budget position for a fiscal year:
// allocated budget, approved spend, and the remainder.
type DepartmentSpend struct {
	DepartmentID   int             `json:"department_id"`
	DepartmentCode string          `json:"department_code"`
	DepartmentName string          `json:"department_name"`
	Allocated      decimal.Decimal `json:"allocated"`
	Spent          decimal.Decimal `json:"spent"`
	Remaining      decimal.Decimal `json:"remaining"`
}

// ProjectSpend is one project's approved spend against its allocations.
type ProjectSpend struct {
	ProjectID   int             `json:"project_id"`
	ProjectName string          `json:"project_name"`
	Status      ProjectStatus   `json:"status"`
	Allocated   decimal.Decimal `json:"allocated"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
}

// DashboardSummary is the headline card set: totals across the fiscal
// year plus proposal pipeline counts.
type DashboardSummary struct {
	FiscalYearID       int             `json:"fiscal_year_id"`
	TotalAllocated     decimal.Decimal `json:"total_allocated"`
	TotalSpent         decimal.Decimal `json:"total_spent"`
	TotalRemaining     decimal.Decimal `json:"total_remaining"`
	ProposalsByStatus  map[string]int  `json:"proposals_by_status"`
	ActiveProjectCount int             `json:"active_project_count"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only spend queries over allocations and
// expenses. Mutations live in the dedicated services.
type ReportingService interface {
	// DepartmentSpend returns per-department allocated/spent/remaining
	// totals for the fiscal year, ordered by department code.
	DepartmentSpend(ctx context.Context, fiscalYearID int) ([]DepartmentSpend, error)

	// ProjectSpend returns per-project totals, optionally scoped to one
	// department (departmentID 0 means all).
	ProjectSpend(ctx context.Context, fiscalYearID, departmentID int) ([]ProjectSpend, error)

	// Dashboard returns headline totals and proposal pipeline counts.
	Dashboard(ctx context.Context, fiscalYearID int) (*DashboardSummary, error)
}

// ── Implementation ────────────────────────────────────────────────────────────

type reportingService struct {
	pool *pgxpool.Pool
}

// NewReportingService constructs a ReportingService backed by the given pool.
func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

func (s *reportingService) DepartmentSpend(ctx context.Context, fiscalYearID int) ([]DepartmentSpend, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.id, d.code, d.name,
			COALESCE(SUM(a.amount), 0) AS allocated,
			COALESCE((
				SELECT SUM(e.amount)
				FROM expenses e
				JOIN budget_allocations ea ON ea.id = e.allocation_id
				WHERE ea.department_id = d.id AND ea.fiscal_year_id = $1 AND e.status = $2
			), 0) AS spent
		FROM departments d
		LEFT JOIN budget_allocations a
			ON a.department_id = d.id AND a.fiscal_year_id = $1 AND a.is_active = TRUE
		WHERE d.is_active = TRUE
		GROUP BY d.id, d.code, d.name
		ORDER BY d.code`,
		fiscalYearID, string(ExpenseApproved))
	if err != nil {
		return nil, fmt.Errorf("failed to query department spend: %w", err)
	}
	defer rows.Close()

	var out []DepartmentSpend
	for rows.Next() {
		var r DepartmentSpend
		if err := rows.Scan(&r.DepartmentID, &r.DepartmentCode, &r.DepartmentName, &r.Allocated, &r.Spent); err != nil {
			return nil, fmt.Errorf("failed to scan department spend: %w", err)
		}
		r.Remaining = r.Allocated.Sub(r.Spent)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *reportingService) ProjectSpend(ctx context.Context, fiscalYearID, departmentID int) ([]ProjectSpend, error) {
	q := `
		SELECT p.id, p.name, p.status,
			COALESCE(SUM(a.amount), 0) AS allocated,
			COALESCE((
				SELECT SUM(e.amount)
				FROM expenses e
				WHERE e.project_id = p.id AND e.status = $2
			), 0) AS spent
		FROM projects p
		LEFT JOIN budget_allocations a
			ON a.project_id = p.id AND a.fiscal_year_id = $1 AND a.is_active = TRUE`
	args := []any{fiscalYearID, string(ExpenseApproved)}
	if departmentID != 0 {
		q += " WHERE p.department_id = $3"
		args = append(args, departmentID)
	}
	q += " GROUP BY p.id, p.name, p.status ORDER BY p.id"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query project spend: %w", err)
	}
	defer rows.Close()

	var out []ProjectSpend
	for rows.Next() {
		var r ProjectSpend
		if err := rows.Scan(&r.ProjectID, &r.ProjectName, &r.Status, &r.Allocated, &r.Spent); err != nil {
			return nil, fmt.Errorf("failed to scan project spend: %w", err)
		}
		r.Remaining = r.Allocated.Sub(r.Spent)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *reportingService) Dashboard(ctx context.Context, fiscalYearID int) (*DashboardSummary, error) {
	d := &DashboardSummary{
		FiscalYearID:      fiscalYearID,
		ProposalsByStatus: make(map[string]int),
	}

	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE((
				SELECT SUM(amount) FROM budget_allocations
				WHERE fiscal_year_id = $1 AND is_active = TRUE
			), 0),
			COALESCE((
				SELECT SUM(e.amount)
				FROM expenses e
				JOIN budget_allocations a ON a.id = e.allocation_id
				WHERE a.fiscal_year_id = $1 AND e.status = $2
			), 0)`,
		fiscalYearID, string(ExpenseApproved)).Scan(&d.TotalAllocated, &d.TotalSpent)
	if err != nil {
		return nil, fmt.Errorf("failed to query dashboard totals: %w", err)
	}
	d.TotalRemaining = d.TotalAllocated.Sub(d.TotalSpent)

	rows, err := s.pool.Query(ctx,
		"SELECT status, COUNT(*) FROM budget_proposals WHERE fiscal_year_id = $1 GROUP BY status",
		fiscalYearID)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposal counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan proposal count: %w", err)
		}
		d.ProposalsByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM projects WHERE status = $1", string(ProjectActive)).
		Scan(&d.ActiveProjectCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count active projects: %w", err)
	}
	return d, nil
}
