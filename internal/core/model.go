package core

import "time"

type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
	AccountRevenue   AccountType = "revenue"
	AccountExpense   AccountType = "expense"
)

// ValidAccountType reports whether t is one of the five ledger account types.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountAsset, AccountLiability, AccountEquity, AccountRevenue, AccountExpense:
		return true
	}
	return false
}

// Account is a node in the chart of accounts. ParentAccountID links child
// accounts into a tree; nil marks a root.
type Account struct {
	ID              int         `json:"id"`
	Code            string      `json:"code"`
	Name            string      `json:"name"`
	Type            AccountType `json:"type"`
	ParentAccountID *int        `json:"parent_account_id,omitempty"`
	IsActive        bool        `json:"is_active"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Department owns budget proposals and is the attribution anchor for
// allocations and expenses.
type Department struct {
	ID        int       `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// FiscalYear is a half-open [StartDate, EndDate) accounting period.
// A locked year rejects further allocation and proposal mutation.
type FiscalYear struct {
	ID        int       `json:"id"`
	Year      int       `json:"year"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`
	IsLocked  bool      `json:"is_locked"`
}

type Classification string

const (
	ClassOpex  Classification = "OPEX"
	ClassCapex Classification = "CAPEX"
	ClassMixed Classification = "MIXED"
)

// ExpenseCategory is a node in the spending-category tree. Levels run 1..3
// in seeded data but nothing here assumes a depth bound.
type ExpenseCategory struct {
	ID             int            `json:"id"`
	Code           string         `json:"code"`
	Name           string         `json:"name"`
	Level          int            `json:"level"`
	Classification Classification `json:"classification"`
	ParentID       *int           `json:"parent_id,omitempty"`
	IsActive       bool           `json:"is_active"`
}
