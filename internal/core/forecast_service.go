package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type forecastService struct {
	pool *pgxpool.Pool
}

func NewForecastService(pool *pgxpool.Pool) ForecastService {
	return &forecastService{pool: pool}
}

// Generate builds a fresh seasonal forecast for the fiscal year. Each
// run inserts a new Forecast row with twelve points; earlier runs stay
// untouched so the history of projections survives.
func (s *forecastService) Generate(ctx context.Context, fiscalYearID int) (*Forecast, error) {
	var startDate, endDate string
	err := s.pool.QueryRow(ctx,
		"SELECT start_date::text, end_date::text FROM fiscal_years WHERE id = $1", fiscalYearID).
		Scan(&startDate, &endDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("fiscal year %d: %w", fiscalYearID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch fiscal year %d: %w", fiscalYearID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT EXTRACT(YEAR FROM incurred_on)::int, EXTRACT(MONTH FROM incurred_on)::int, SUM(amount)
		FROM expenses
		WHERE status = $1 AND incurred_on < $2
		GROUP BY 1, 2
		ORDER BY 1, 2`,
		string(ExpenseApproved), startDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense history: %w", err)
	}
	defer rows.Close()

	var history []MonthlyTotal
	for rows.Next() {
		var h MonthlyTotal
		if err := rows.Scan(&h.Year, &h.Month, &h.Total); err != nil {
			return nil, fmt.Errorf("failed to scan expense history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read expense history: %w", err)
	}

	var spendToDate decimal.Decimal
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE status = $1 AND incurred_on >= $2 AND incurred_on <= $3`,
		string(ExpenseApproved), startDate, endDate).Scan(&spendToDate)
	if err != nil {
		return nil, fmt.Errorf("failed to sum current year spend: %w", err)
	}

	points := SeasonalProjection(history, spendToDate)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var forecastID int
	err = tx.QueryRow(ctx,
		"INSERT INTO forecasts (fiscal_year_id, algorithm) VALUES ($1, $2) RETURNING id",
		fiscalYearID, ForecastAlgorithmSeasonal).Scan(&forecastID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert forecast: %w", err)
	}
	for _, p := range points {
		_, err = tx.Exec(ctx,
			"INSERT INTO forecast_points (forecast_id, month, projected, cumulative) VALUES ($1, $2, $3, $4)",
			forecastID, p.Month, p.Projected, p.Cumulative)
		if err != nil {
			return nil, fmt.Errorf("failed to insert forecast point for month %d: %w", p.Month, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit forecast: %w", err)
	}
	return s.Get(ctx, forecastID)
}

func (s *forecastService) Get(ctx context.Context, forecastID int) (*Forecast, error) {
	f := &Forecast{}
	err := s.pool.QueryRow(ctx,
		"SELECT id, fiscal_year_id, algorithm, generated_at FROM forecasts WHERE id = $1", forecastID).
		Scan(&f.ID, &f.FiscalYearID, &f.Algorithm, &f.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("forecast %d: %w", forecastID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch forecast %d: %w", forecastID, err)
	}

	rows, err := s.pool.Query(ctx,
		"SELECT month, projected, cumulative FROM forecast_points WHERE forecast_id = $1 ORDER BY month",
		forecastID)
	if err != nil {
		return nil, fmt.Errorf("failed to load forecast points: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p ForecastPoint
		if err := rows.Scan(&p.Month, &p.Projected, &p.Cumulative); err != nil {
			return nil, fmt.Errorf("failed to scan forecast point: %w", err)
		}
		f.Points = append(f.Points, p)
	}
	return f, rows.Err()
}

func (s *forecastService) Latest(ctx context.Context, fiscalYearID int) (*Forecast, error) {
	var forecastID int
	err := s.pool.QueryRow(ctx,
		"SELECT id FROM forecasts WHERE fiscal_year_id = $1 ORDER BY generated_at DESC, id DESC LIMIT 1",
		fiscalYearID).Scan(&forecastID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no forecast for fiscal year %d: %w", fiscalYearID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find latest forecast: %w", err)
	}
	return s.Get(ctx, forecastID)
}
