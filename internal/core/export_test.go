package core_test

import (
	"strconv"
	"testing"

	"budget-service/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestBuildProposalWorkbook_RoundTrip(t *testing.T) {
	p := &core.BudgetProposal{
		ID:                   42,
		Title:                "Network refresh",
		Status:               core.ProposalApproved,
		PerformanceStartDate: "2024-01-01",
		PerformanceEndDate:   "2024-06-30",
		Items: []core.ProposalItem{
			{AccountCode: "5000", Description: "Switches", EstimatedCost: d("12500.50")},
			{AccountCode: "5100", Description: "Cabling", EstimatedCost: d("3200.00")},
			{AccountCode: "5200", Description: "Install labour", EstimatedCost: d("8000.25")},
		},
	}
	wantTotal := d("23700.75")

	f, err := core.BuildProposalWorkbook(p)
	if err != nil {
		t.Fatalf("BuildProposalWorkbook failed: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}

	read, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer read.Close()

	rows, err := read.GetRows("Proposal")
	if err != nil {
		t.Fatalf("failed to read sheet: %v", err)
	}

	// Sum every numeric value under the "Estimated Cost" header and
	// compare against the item total.
	headerRow := -1
	for i, row := range rows {
		if len(row) >= 3 && row[2] == "Estimated Cost" {
			headerRow = i
			break
		}
	}
	if headerRow == -1 {
		t.Fatal("Estimated Cost header not found")
	}

	sum := decimal.Zero
	itemRows := 0
	for _, row := range rows[headerRow+1:] {
		if len(row) < 3 || row[0] == "" {
			continue // total row has a blank account column
		}
		v, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			t.Fatalf("non-numeric cost cell %q: %v", row[2], err)
		}
		sum = sum.Add(decimal.NewFromFloat(v))
		itemRows++
	}

	if itemRows != len(p.Items) {
		t.Errorf("exported %d item rows, want %d", itemRows, len(p.Items))
	}
	if !sum.Equal(wantTotal) {
		t.Errorf("estimated cost column sums to %s, want %s", sum, wantTotal)
	}
}

func TestBuildVarianceWorkbook(t *testing.T) {
	report := &core.VarianceReport{
		FiscalYearID: 1,
		Rows: []core.VarianceRow{
			{
				Code: "OPEX", Name: "Operating", Classification: core.ClassOpex,
				Budget: d("100000"), Actual: d("70000"), Available: d("30000"),
				Children: []core.VarianceRow{
					{Code: "OPEX-GEN", Name: "General", Classification: core.ClassOpex,
						Budget: d("60000"), Actual: d("25000"), Available: d("35000")},
					{Code: "OPEX-FAC", Name: "Facilities", Classification: core.ClassOpex,
						Budget: d("40000"), Actual: d("45000"), Available: d("-5000")},
				},
			},
		},
		TotalBudget: d("100000"),
		TotalActual: d("70000"),
	}

	f, err := core.BuildVarianceWorkbook(report)
	if err != nil {
		t.Fatalf("BuildVarianceWorkbook failed: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}
	read, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer read.Close()

	rows, err := read.GetRows("Variance")
	if err != nil {
		t.Fatalf("failed to read sheet: %v", err)
	}

	// Header + 3 category rows + total row.
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	if rows[1][0] != "OPEX" || rows[2][0] != "OPEX-GEN" || rows[3][0] != "OPEX-FAC" {
		t.Errorf("unexpected row order: %q %q %q", rows[1][0], rows[2][0], rows[3][0])
	}
	// Children are indented under their parent.
	if rows[2][1] != "  General" {
		t.Errorf("child name = %q, want indented", rows[2][1])
	}
}
