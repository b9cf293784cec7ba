package core_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// setupTestDB connects to the dedicated test database, wipes every
// table, and seeds the shared master data: fiscal year 2024 (id 1),
// departments FIN (id 1) and OPS (id 2), accounts 5000/5100/3000, and
// the OPEX category pair.
//
// Set TEST_DATABASE_URL in your .env or environment to run integration
// tests; without it they skip to protect the live database.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE journal_lines, journal_entries, budget_transfers, expenses,
			forecast_points, forecasts, budget_allocations, projects, proposal_history,
			budget_proposal_items, budget_proposals, users, expense_categories,
			fiscal_years, accounts, departments, user_activity_log, login_attempts
		RESTART IDENTITY CASCADE;

		INSERT INTO fiscal_years (year, start_date, end_date, is_active)
		VALUES (2024, '2024-01-01', '2024-12-31', TRUE);

		INSERT INTO departments (code, name) VALUES ('FIN', 'Finance'), ('OPS', 'Operations');

		INSERT INTO accounts (code, name, type) VALUES
		('5000', 'General Expenses', 'expense'),
		('5100', 'Rent Expense', 'expense'),
		('3000', 'Budget Reserve', 'equity');

		INSERT INTO expense_categories (code, name, level, classification)
		VALUES ('OPEX', 'Operating Expenses', 1, 'OPEX');

		INSERT INTO expense_categories (code, name, level, classification, parent_id)
		SELECT 'OPEX-GEN', 'General & Administrative', 2, 'OPEX', id
		FROM expense_categories WHERE code = 'OPEX';
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}
