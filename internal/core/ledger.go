package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// JournalEntry is a balanced double-entry record mirroring every allocation
// mutation. Entries are append-only; corrections are new entries.
type JournalEntry struct {
	ID            int           `json:"id"`
	ReferenceType string        `json:"reference_type"`
	ReferenceID   string        `json:"reference_id"`
	Narration     string        `json:"narration"`
	EntryDate     string        `json:"entry_date"`
	CreatedAt     time.Time     `json:"created_at"`
	Lines         []JournalLine `json:"lines"`
}

type LineDirection string

const (
	Debit  LineDirection = "DEBIT"
	Credit LineDirection = "CREDIT"
)

type JournalLine struct {
	ID        int             `json:"id"`
	EntryID   int             `json:"entry_id"`
	AccountID int             `json:"account_id"`
	Direction LineDirection   `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
}

// EntryInput is a journal entry to be posted. Lines reference accounts by
// code; the ledger resolves them inside the posting transaction.
type EntryInput struct {
	ReferenceType string
	ReferenceID   string
	Narration     string
	EntryDate     string // YYYY-MM-DD
	Lines         []EntryLineInput
}

type EntryLineInput struct {
	AccountCode string
	Direction   LineDirection
	Amount      decimal.Decimal
}

// Validate enforces structural double-entry rules: at least one debit and
// one credit, every amount strictly positive, and total debits equal to
// total credits.
func (e *EntryInput) Validate() error {
	if e.ReferenceType == "" || e.ReferenceID == "" {
		return fmt.Errorf("journal entry must carry a reference: %w", ErrValidation)
	}
	if e.Narration == "" {
		return fmt.Errorf("journal entry narration is required: %w", ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", e.EntryDate); err != nil {
		return fmt.Errorf("invalid entry date %q: %w", e.EntryDate, ErrValidation)
	}
	if len(e.Lines) < 2 {
		return fmt.Errorf("journal entry must have at least 2 lines: %w", ErrValidation)
	}

	debits := decimal.Zero
	credits := decimal.Zero
	for _, line := range e.Lines {
		if line.AccountCode == "" {
			return fmt.Errorf("journal line is missing an account code: %w", ErrValidation)
		}
		if line.Direction != Debit && line.Direction != Credit {
			return fmt.Errorf("invalid line direction %q: %w", line.Direction, ErrValidation)
		}
		if !line.Amount.IsPositive() {
			return fmt.Errorf("line amount must be > 0 for account %s: %w", line.AccountCode, ErrValidation)
		}
		if line.Direction == Debit {
			debits = debits.Add(line.Amount)
		} else {
			credits = credits.Add(line.Amount)
		}
	}
	if debits.IsZero() || credits.IsZero() {
		return fmt.Errorf("journal entry needs both a debit and a credit side: %w", ErrValidation)
	}
	if !debits.Equal(credits) {
		return fmt.Errorf("unbalanced journal entry: debits %s != credits %s: %w",
			debits.StringFixed(2), credits.StringFixed(2), ErrValidation)
	}
	return nil
}

// LedgerLine is one journal line in the flat ledger view, with a cumulative
// net-debit running balance.
type LedgerLine struct {
	EntryDate      string          `json:"entry_date"`
	Narration      string          `json:"narration"`
	Reference      string          `json:"reference"`
	AccountCode    string          `json:"account_code"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// Ledger posts and reads balanced journal entries. Posting always happens
// inside a caller-supplied transaction so allocation changes and their
// journal mirror commit or fail together.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// PostTx validates entry and inserts it with its lines using tx. The caller
// owns the transaction boundary. Returns the new entry id.
func (l *Ledger) PostTx(ctx context.Context, tx pgx.Tx, entry EntryInput) (int, error) {
	if err := entry.Validate(); err != nil {
		return 0, err
	}

	var entryID int
	err := tx.QueryRow(ctx, `
		INSERT INTO journal_entries (reference_type, reference_id, narration, entry_date, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id
	`, entry.ReferenceType, entry.ReferenceID, entry.Narration, entry.EntryDate).Scan(&entryID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert journal entry: %w", err)
	}

	for _, line := range entry.Lines {
		var accountID int
		err := tx.QueryRow(ctx,
			"SELECT id FROM accounts WHERE code = $1 AND is_active = true", line.AccountCode,
		).Scan(&accountID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, fmt.Errorf("account code %s: %w", line.AccountCode, ErrNotFound)
			}
			return 0, fmt.Errorf("failed to resolve account %s: %w", line.AccountCode, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO journal_lines (entry_id, account_id, direction, amount)
			VALUES ($1, $2, $3, $4)
		`, entryID, accountID, string(line.Direction), line.Amount)
		if err != nil {
			return 0, fmt.Errorf("failed to insert journal line: %w", err)
		}
	}

	return entryID, nil
}

// GetEntry returns one journal entry with its lines.
func (l *Ledger) GetEntry(ctx context.Context, entryID int) (*JournalEntry, error) {
	e := &JournalEntry{}
	err := l.pool.QueryRow(ctx, `
		SELECT id, reference_type, reference_id, narration, entry_date::text, created_at
		FROM journal_entries WHERE id = $1
	`, entryID).Scan(&e.ID, &e.ReferenceType, &e.ReferenceID, &e.Narration, &e.EntryDate, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("journal entry %d: %w", entryID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch journal entry %d: %w", entryID, err)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT id, entry_id, account_id, direction, amount
		FROM journal_lines WHERE entry_id = $1 ORDER BY id
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lines for entry %d: %w", entryID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Direction, &line.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan journal line: %w", err)
		}
		e.Lines = append(e.Lines, line)
	}
	return e, rows.Err()
}

// GetLedgerLines returns all journal lines ordered by entry date then id,
// optionally bounded by entry date (empty string means unbounded), with a
// cumulative net-debit running balance. This feeds the CSV ledger export.
func (l *Ledger) GetLedgerLines(ctx context.Context, fromDate, toDate string) ([]LedgerLine, error) {
	q := `
		SELECT je.entry_date::text,
		       je.narration,
		       je.reference_type || '/' || je.reference_id,
		       a.code,
		       CASE WHEN jl.direction = 'DEBIT'  THEN jl.amount ELSE 0 END,
		       CASE WHEN jl.direction = 'CREDIT' THEN jl.amount ELSE 0 END
		FROM journal_lines jl
		JOIN journal_entries je ON je.id = jl.entry_id
		JOIN accounts a         ON a.id  = jl.account_id
		WHERE 1=1`

	args := []any{}
	if fromDate != "" {
		args = append(args, fromDate)
		q += fmt.Sprintf(" AND je.entry_date >= $%d::date", len(args))
	}
	if toDate != "" {
		args = append(args, toDate)
		q += fmt.Sprintf(" AND je.entry_date <= $%d::date", len(args))
	}
	q += " ORDER BY je.entry_date ASC, je.id ASC, jl.id ASC"

	rows, err := l.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger lines: %w", err)
	}
	defer rows.Close()

	var lines []LedgerLine
	running := decimal.Zero
	for rows.Next() {
		var ll LedgerLine
		if err := rows.Scan(&ll.EntryDate, &ll.Narration, &ll.Reference, &ll.AccountCode, &ll.Debit, &ll.Credit); err != nil {
			return nil, fmt.Errorf("failed to scan ledger line: %w", err)
		}
		running = running.Add(ll.Debit).Sub(ll.Credit)
		ll.RunningBalance = running
		lines = append(lines, ll)
	}
	return lines, rows.Err()
}
