package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const ForecastAlgorithmSeasonal = "seasonal-monthly-average"

type Forecast struct {
	ID           int             `json:"id"`
	FiscalYearID int             `json:"fiscal_year_id"`
	Algorithm    string          `json:"algorithm"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Points       []ForecastPoint `json:"points"`
}

type ForecastPoint struct {
	Month      int             `json:"month"`
	Projected  decimal.Decimal `json:"projected"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

type ForecastService interface {
	Generate(ctx context.Context, fiscalYearID int) (*Forecast, error)
	Get(ctx context.Context, forecastID int) (*Forecast, error)
	Latest(ctx context.Context, fiscalYearID int) (*Forecast, error)
}

// MonthlyTotal is one month's approved spend in one historical year.
type MonthlyTotal struct {
	Year  int
	Month int
	Total decimal.Decimal
}

// SeasonalProjection averages historical spend per calendar month. A
// month with no history falls back to the overall monthly average, and
// with no history at all every month projects zero. Cumulative values
// run from the current year's spend to date.
func SeasonalProjection(history []MonthlyTotal, spendToDate decimal.Decimal) []ForecastPoint {
	sums := make(map[int]decimal.Decimal)
	counts := make(map[int]int)
	overall := decimal.Zero
	observations := 0
	for _, h := range history {
		if h.Month < 1 || h.Month > 12 {
			continue
		}
		sums[h.Month] = sums[h.Month].Add(h.Total)
		counts[h.Month]++
		overall = overall.Add(h.Total)
		observations++
	}

	fallback := decimal.Zero
	if observations > 0 {
		fallback = overall.Div(decimal.NewFromInt(int64(observations)))
	}

	points := make([]ForecastPoint, 0, 12)
	cumulative := spendToDate
	for month := 1; month <= 12; month++ {
		projected := fallback
		if counts[month] > 0 {
			projected = sums[month].Div(decimal.NewFromInt(int64(counts[month])))
		}
		projected = projected.Round(2)
		cumulative = cumulative.Add(projected)
		points = append(points, ForecastPoint{
			Month:      month,
			Projected:  projected,
			Cumulative: cumulative,
		})
	}
	return points
}
