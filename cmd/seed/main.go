// seed is a one-shot tool that loads the baseline demo data: fiscal year
// 2024, the FIN department with its chart of accounts, the OPEX category
// tree, a 100,000 allocation on account 5000, and an admin user.
//
// The whole seed runs in a single transaction; any failure aborts it
// without a partial load. Re-running against an already seeded database
// upserts master data in place.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"

	"budget-service/internal/config"
	"budget-service/internal/db"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Seeding fiscal year 2024...")
	_, err = tx.Exec(ctx, `
		INSERT INTO fiscal_years (year, start_date, end_date, is_active)
		VALUES (2024, '2024-01-01', '2024-12-31', TRUE)
		ON CONFLICT (year) DO UPDATE
		  SET start_date = EXCLUDED.start_date,
		      end_date   = EXCLUDED.end_date;
	`)
	if err != nil {
		log.Fatalf("Failed to seed fiscal year: %v", err)
	}

	log.Println("Seeding departments...")
	_, err = tx.Exec(ctx, `
		INSERT INTO departments (code, name)
		VALUES ('FIN', 'Finance'), ('OPS', 'Operations'), ('IT', 'Information Technology')
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;
	`)
	if err != nil {
		log.Fatalf("Failed to seed departments: %v", err)
	}

	log.Println("Seeding chart of accounts...")
	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (code, name, type)
		VALUES
		    ('1000', 'Cash',               'asset'),
		    ('1100', 'Bank Account',       'asset'),
		    ('3000', 'Budget Reserve',     'equity'),
		    ('5000', 'General Expenses',   'expense'),
		    ('5100', 'Rent Expense',       'expense'),
		    ('5200', 'Salary Expense',     'expense'),
		    ('5300', 'Utilities Expense',  'expense')
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;
	`)
	if err != nil {
		log.Fatalf("Failed to seed accounts: %v", err)
	}

	log.Println("Seeding expense category tree...")
	_, err = tx.Exec(ctx, `
		INSERT INTO expense_categories (code, name, level, classification)
		VALUES ('OPEX', 'Operating Expenses', 1, 'OPEX'),
		       ('CAPEX', 'Capital Expenses', 1, 'CAPEX')
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;

		INSERT INTO expense_categories (code, name, level, classification, parent_id)
		SELECT v.code, v.name, 2, v.classification, p.id
		FROM (VALUES
		    ('OPEX-GEN', 'General & Administrative', 'OPEX', 'OPEX'),
		    ('OPEX-FAC', 'Facilities',               'OPEX', 'OPEX'),
		    ('CAPEX-EQ', 'Equipment',                'CAPEX', 'CAPEX')
		) AS v(code, name, classification, parent_code)
		JOIN expense_categories p ON p.code = v.parent_code
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;
	`)
	if err != nil {
		log.Fatalf("Failed to seed categories: %v", err)
	}

	log.Println("Seeding the FIN allocation on account 5000...")
	_, err = tx.Exec(ctx, `
		INSERT INTO budget_allocations (fiscal_year_id, department_id, account_id, category_id, amount)
		SELECT fy.id, d.id, a.id, c.id, 100000
		FROM fiscal_years fy, departments d, accounts a, expense_categories c
		WHERE fy.year = 2024 AND d.code = 'FIN' AND a.code = '5000' AND c.code = 'OPEX-GEN'
		ON CONFLICT (fiscal_year_id, department_id, account_id) DO NOTHING;
	`)
	if err != nil {
		log.Fatalf("Failed to seed allocation: %v", err)
	}

	log.Println("Seeding admin user...")
	hash, err := bcrypt.GenerateFromPassword([]byte("changeme-admin"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO users (username, email, password_hash, department_id, role)
		SELECT 'admin', 'admin@example.com', $1, d.id, 'ADMIN'
		FROM departments d WHERE d.code = 'FIN'
		ON CONFLICT (username) DO NOTHING;
	`, string(hash))
	if err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit seed: %v", err)
	}
	log.Println("Seed complete.")
}
