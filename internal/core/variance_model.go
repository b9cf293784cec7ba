package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// CategoryNode is one expense category with the raw sums needed for a
// variance rollup: Budget is the active allocation total for the
// category and fiscal year, Actual the approved expense total.
type CategoryNode struct {
	ID             int
	Code           string
	Name           string
	Level          int
	Classification Classification
	ParentID       *int
	Budget         decimal.Decimal
	Actual         decimal.Decimal
}

// VarianceRow is one line of the variance report. Parents carry the sum
// of their children, leaves their direct sums, and Available may be
// negative when a category overspends.
type VarianceRow struct {
	CategoryID     int             `json:"category_id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Level          int             `json:"level"`
	Classification Classification  `json:"classification"`
	Budget         decimal.Decimal `json:"budget"`
	Actual         decimal.Decimal `json:"actual"`
	Available      decimal.Decimal `json:"available"`
	Children       []VarianceRow   `json:"children,omitempty"`
}

type VarianceReport struct {
	FiscalYearID int             `json:"fiscal_year_id"`
	Rows         []VarianceRow   `json:"rows"`
	TotalBudget  decimal.Decimal `json:"total_budget"`
	TotalActual  decimal.Decimal `json:"total_actual"`
}

type VarianceService interface {
	Report(ctx context.Context, fiscalYearID int) (*VarianceReport, error)
}

// BuildVarianceRows rolls the category forest up from the leaves. A node
// with children reports the sum of its children's rollups; a leaf
// reports its direct sums. The walk tracks visited ids so a corrupted
// parent chain surfaces as an error instead of unbounded recursion.
func BuildVarianceRows(nodes []CategoryNode) ([]VarianceRow, error) {
	children := make(map[int][]*CategoryNode)
	var roots []*CategoryNode
	for i := range nodes {
		n := &nodes[i]
		if n.ParentID == nil {
			roots = append(roots, n)
		} else {
			children[*n.ParentID] = append(children[*n.ParentID], n)
		}
	}

	visited := make(map[int]bool)
	var walk func(n *CategoryNode) (VarianceRow, error)
	walk = func(n *CategoryNode) (VarianceRow, error) {
		if visited[n.ID] {
			return VarianceRow{}, fmt.Errorf("category tree contains a cycle at %s (id %d): %w",
				n.Code, n.ID, ErrValidation)
		}
		visited[n.ID] = true

		row := VarianceRow{
			CategoryID:     n.ID,
			Code:           n.Code,
			Name:           n.Name,
			Level:          n.Level,
			Classification: n.Classification,
			Budget:         n.Budget,
			Actual:         n.Actual,
		}
		if kids := children[n.ID]; len(kids) > 0 {
			row.Budget, row.Actual = decimal.Zero, decimal.Zero
			for _, kid := range kids {
				child, err := walk(kid)
				if err != nil {
					return VarianceRow{}, err
				}
				row.Budget = row.Budget.Add(child.Budget)
				row.Actual = row.Actual.Add(child.Actual)
				row.Children = append(row.Children, child)
			}
		}
		row.Available = row.Budget.Sub(row.Actual)
		return row, nil
	}

	var rows []VarianceRow
	for _, root := range roots {
		row, err := walk(root)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if len(visited) != len(nodes) {
		return nil, fmt.Errorf("category tree contains %d unreachable nodes, likely a cycle: %w",
			len(nodes)-len(visited), ErrValidation)
	}
	return rows, nil
}
