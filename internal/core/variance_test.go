package core_test

import (
	"errors"
	"testing"

	"budget-service/internal/core"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(v int) *int { return &v }

func TestBuildVarianceRows_ParentSumsChildren(t *testing.T) {
	// OPEX (1) has two leaves; its own direct sums must be ignored in
	// favor of the children's rollup.
	nodes := []core.CategoryNode{
		{ID: 1, Code: "OPEX", Name: "Operating", Level: 1, Budget: d("999999"), Actual: d("999999")},
		{ID: 2, Code: "OPEX-GEN", Name: "General", Level: 2, ParentID: intPtr(1), Budget: d("60000"), Actual: d("25000")},
		{ID: 3, Code: "OPEX-FAC", Name: "Facilities", Level: 2, ParentID: intPtr(1), Budget: d("40000"), Actual: d("45000")},
	}

	rows, err := core.BuildVarianceRows(nodes)
	if err != nil {
		t.Fatalf("BuildVarianceRows failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 root row, got %d", len(rows))
	}

	root := rows[0]
	if !root.Budget.Equal(d("100000")) {
		t.Errorf("root budget = %s, want 100000", root.Budget)
	}
	if !root.Actual.Equal(d("70000")) {
		t.Errorf("root actual = %s, want 70000", root.Actual)
	}
	if !root.Available.Equal(d("30000")) {
		t.Errorf("root available = %s, want 30000", root.Available)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}

	// Overspend on a leaf is a negative available, not an error.
	for _, child := range root.Children {
		if child.Code == "OPEX-FAC" && !child.Available.Equal(d("-5000")) {
			t.Errorf("overspent leaf available = %s, want -5000", child.Available)
		}
		if !child.Available.Equal(child.Budget.Sub(child.Actual)) {
			t.Errorf("leaf %s: available != budget - actual", child.Code)
		}
	}
}

func TestBuildVarianceRows_LeafReportsDirectSums(t *testing.T) {
	nodes := []core.CategoryNode{
		{ID: 1, Code: "CAPEX", Name: "Capital", Level: 1, Budget: d("5000"), Actual: d("1200")},
	}
	rows, err := core.BuildVarianceRows(nodes)
	if err != nil {
		t.Fatalf("BuildVarianceRows failed: %v", err)
	}
	if len(rows) != 1 || !rows[0].Budget.Equal(d("5000")) || !rows[0].Available.Equal(d("3800")) {
		t.Errorf("leaf rollup wrong: %+v", rows[0])
	}
}

func TestBuildVarianceRows_DeepTree(t *testing.T) {
	// Three levels: the root total must flow up through the middle node.
	nodes := []core.CategoryNode{
		{ID: 1, Code: "A", Level: 1},
		{ID: 2, Code: "A-1", Level: 2, ParentID: intPtr(1)},
		{ID: 3, Code: "A-1-X", Level: 3, ParentID: intPtr(2), Budget: d("10"), Actual: d("4")},
		{ID: 4, Code: "A-1-Y", Level: 3, ParentID: intPtr(2), Budget: d("20"), Actual: d("6")},
	}
	rows, err := core.BuildVarianceRows(nodes)
	if err != nil {
		t.Fatalf("BuildVarianceRows failed: %v", err)
	}
	if !rows[0].Budget.Equal(d("30")) || !rows[0].Actual.Equal(d("10")) {
		t.Errorf("root = %s/%s, want 30/10", rows[0].Budget, rows[0].Actual)
	}
}

func TestBuildVarianceRows_CycleDetected(t *testing.T) {
	// 2 and 3 point at each other; neither is reachable from a root.
	nodes := []core.CategoryNode{
		{ID: 1, Code: "OK", Level: 1},
		{ID: 2, Code: "LOOP-A", Level: 2, ParentID: intPtr(3)},
		{ID: 3, Code: "LOOP-B", Level: 2, ParentID: intPtr(2)},
	}
	_, err := core.BuildVarianceRows(nodes)
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("cycle error should wrap ErrValidation, got %v", err)
	}
}
