package core_test

import (
	"testing"

	"budget-service/internal/core"

	"github.com/shopspring/decimal"
)

func TestSeasonalProjection_PerMonthAverage(t *testing.T) {
	history := []core.MonthlyTotal{
		{Year: 2022, Month: 1, Total: d("100")},
		{Year: 2023, Month: 1, Total: d("300")},
		{Year: 2022, Month: 2, Total: d("50")},
	}

	points := core.SeasonalProjection(history, decimal.Zero)
	if len(points) != 12 {
		t.Fatalf("expected 12 points, got %d", len(points))
	}

	// January: average of 100 and 300.
	if !points[0].Projected.Equal(d("200")) {
		t.Errorf("January projected = %s, want 200", points[0].Projected)
	}
	// February has one observation.
	if !points[1].Projected.Equal(d("50")) {
		t.Errorf("February projected = %s, want 50", points[1].Projected)
	}
	// March has no history and falls back to the overall monthly
	// average: (100+300+50)/3 = 150.
	if !points[2].Projected.Equal(d("150")) {
		t.Errorf("March projected = %s, want 150", points[2].Projected)
	}
}

func TestSeasonalProjection_CumulativeStartsFromSpendToDate(t *testing.T) {
	history := []core.MonthlyTotal{
		{Year: 2023, Month: 1, Total: d("120")},
	}
	spendToDate := d("1000")

	points := core.SeasonalProjection(history, spendToDate)

	running := spendToDate
	for _, p := range points {
		running = running.Add(p.Projected)
		if !p.Cumulative.Equal(running) {
			t.Fatalf("month %d cumulative = %s, want %s", p.Month, p.Cumulative, running)
		}
	}
	if !points[0].Cumulative.Equal(d("1120")) {
		t.Errorf("first cumulative = %s, want 1120", points[0].Cumulative)
	}
}

func TestSeasonalProjection_NoHistory(t *testing.T) {
	points := core.SeasonalProjection(nil, d("500"))
	for _, p := range points {
		if !p.Projected.IsZero() {
			t.Errorf("month %d projected = %s, want 0 with no history", p.Month, p.Projected)
		}
		if !p.Cumulative.Equal(d("500")) {
			t.Errorf("month %d cumulative = %s, want 500 with no history", p.Month, p.Cumulative)
		}
	}
}

func TestSeasonalProjection_IgnoresOutOfRangeMonths(t *testing.T) {
	history := []core.MonthlyTotal{
		{Year: 2023, Month: 0, Total: d("999")},
		{Year: 2023, Month: 13, Total: d("999")},
		{Year: 2023, Month: 6, Total: d("60")},
	}
	points := core.SeasonalProjection(history, decimal.Zero)
	if !points[5].Projected.Equal(d("60")) {
		t.Errorf("June projected = %s, want 60", points[5].Projected)
	}
}
