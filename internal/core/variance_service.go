package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type varianceService struct {
	pool *pgxpool.Pool
}

func NewVarianceService(pool *pgxpool.Pool) VarianceService {
	return &varianceService{pool: pool}
}

// Report loads every active category with its budget and actual sums for
// the fiscal year, then rolls the tree up in memory.
func (s *varianceService) Report(ctx context.Context, fiscalYearID int) (*VarianceReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.code, c.name, c.level, c.classification, c.parent_id,
			COALESCE((
				SELECT SUM(a.amount)
				FROM budget_allocations a
				WHERE a.category_id = c.id AND a.fiscal_year_id = $1 AND a.is_active = TRUE
			), 0) AS budget,
			COALESCE((
				SELECT SUM(e.amount)
				FROM expenses e
				JOIN budget_allocations a ON a.id = e.allocation_id
				WHERE e.category_id = c.id AND e.status = $2 AND a.fiscal_year_id = $1
			), 0) AS actual
		FROM expense_categories c
		WHERE c.is_active = TRUE
		ORDER BY c.level, c.code`,
		fiscalYearID, string(ExpenseApproved))
	if err != nil {
		return nil, fmt.Errorf("failed to load category sums: %w", err)
	}
	defer rows.Close()

	var nodes []CategoryNode
	for rows.Next() {
		var n CategoryNode
		err := rows.Scan(&n.ID, &n.Code, &n.Name, &n.Level, &n.Classification, &n.ParentID,
			&n.Budget, &n.Actual)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read category nodes: %w", err)
	}

	reportRows, err := BuildVarianceRows(nodes)
	if err != nil {
		return nil, err
	}

	report := &VarianceReport{
		FiscalYearID: fiscalYearID,
		Rows:         reportRows,
		TotalBudget:  decimal.Zero,
		TotalActual:  decimal.Zero,
	}
	for _, r := range reportRows {
		report.TotalBudget = report.TotalBudget.Add(r.Budget)
		report.TotalActual = report.TotalActual.Add(r.Actual)
	}
	return report, nil
}
