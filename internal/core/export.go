package core

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Workbook builders for the XLSX exports. They only shape data into
// sheets; handlers decide headers and stream the file.

// BuildProposalWorkbook renders one proposal with its costed items.
func BuildProposalWorkbook(p *BudgetProposal) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Proposal"
	f.SetSheetName("Sheet1", sheet)

	meta := [][]any{
		{"Proposal ID", p.ID},
		{"Title", p.Title},
		{"Status", string(p.Status)},
		{"Performance Start", p.PerformanceStartDate},
		{"Performance End", p.PerformanceEndDate},
	}
	row := 1
	for _, m := range meta {
		for col, v := range m {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("failed to build cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
		row++
	}
	row++

	headers := []string{"Account", "Description", "Estimated Cost"}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return nil, fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to set header %s: %w", h, err)
		}
	}
	row++

	total := decimal.Zero
	for _, item := range p.Items {
		values := []any{item.AccountCode, item.Description, item.EstimatedCost.InexactFloat64()}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("failed to build cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
		total = total.Add(item.EstimatedCost)
		row++
	}

	if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", row), "Total"); err != nil {
		return nil, fmt.Errorf("failed to set total label: %w", err)
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("C%d", row), total.InexactFloat64()); err != nil {
		return nil, fmt.Errorf("failed to set total value: %w", err)
	}
	return f, nil
}

// BuildVarianceWorkbook flattens the variance tree into one sheet,
// indenting names by level so the hierarchy stays readable.
func BuildVarianceWorkbook(report *VarianceReport) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Variance"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Code", "Category", "Classification", "Budget", "Actual", "Available"}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to set header %s: %w", h, err)
		}
	}

	row := 2
	var write func(rows []VarianceRow, indent string) error
	write = func(rows []VarianceRow, indent string) error {
		for _, r := range rows {
			values := []any{
				r.Code,
				indent + r.Name,
				string(r.Classification),
				r.Budget.InexactFloat64(),
				r.Actual.InexactFloat64(),
				r.Available.InexactFloat64(),
			}
			for col, v := range values {
				cell, err := excelize.CoordinatesToCellName(col+1, row)
				if err != nil {
					return fmt.Errorf("failed to build cell name: %w", err)
				}
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return fmt.Errorf("failed to set cell %s: %w", cell, err)
				}
			}
			row++
			if err := write(r.Children, indent+"  "); err != nil {
				return err
			}
		}
		return nil
	}
	if err := write(report.Rows, ""); err != nil {
		return nil, err
	}

	if err := f.SetCellValue(sheet, fmt.Sprintf("C%d", row), "Total"); err != nil {
		return nil, fmt.Errorf("failed to set total label: %w", err)
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("D%d", row), report.TotalBudget.InexactFloat64()); err != nil {
		return nil, fmt.Errorf("failed to set total budget: %w", err)
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("E%d", row), report.TotalActual.InexactFloat64()); err != nil {
		return nil, fmt.Errorf("failed to set total actual: %w", err)
	}
	return f, nil
}
