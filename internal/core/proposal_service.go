package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type proposalService struct {
	pool *pgxpool.Pool
}

// NewProposalService constructs a ProposalService backed by PostgreSQL.
func NewProposalService(pool *pgxpool.Pool) ProposalService {
	return &proposalService{pool: pool}
}

// Create inserts a DRAFT proposal with its initial items. A duplicate
// ExternalRef means the originating system retried an ingestion; the call
// reports a conflict and performs no mutation.
func (s *proposalService) Create(ctx context.Context, input ProposalInput, items []ProposalItemInput) (*BudgetProposal, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, fmt.Errorf("proposal title is required: %w", ErrValidation)
	}
	start, err := time.Parse("2006-01-02", input.PerformanceStartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid performance start date %q: %w", input.PerformanceStartDate, ErrValidation)
	}
	end, err := time.Parse("2006-01-02", input.PerformanceEndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid performance end date %q: %w", input.PerformanceEndDate, ErrValidation)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("performance end date must be after start date: %w", ErrValidation)
	}
	for i, item := range items {
		if item.AccountCode == "" {
			return nil, fmt.Errorf("item %d: account code is required: %w", i+1, ErrValidation)
		}
		if item.EstimatedCost.IsNegative() {
			return nil, fmt.Errorf("item %d: estimated cost cannot be negative: %w", i+1, ErrValidation)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked bool
	if err := tx.QueryRow(ctx,
		"SELECT is_locked FROM fiscal_years WHERE id = $1", input.FiscalYearID,
	).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("fiscal year %d: %w", input.FiscalYearID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch fiscal year: %w", err)
	}
	if locked {
		return nil, fmt.Errorf("fiscal year %d is locked: %w", input.FiscalYearID, ErrConflict)
	}

	var deptExists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM departments WHERE id = $1 AND is_active = true)", input.DepartmentID,
	).Scan(&deptExists); err != nil {
		return nil, fmt.Errorf("failed to validate department: %w", err)
	}
	if !deptExists {
		return nil, fmt.Errorf("department %d: %w", input.DepartmentID, ErrNotFound)
	}

	var externalRef *string
	if input.ExternalRef != "" {
		externalRef = &input.ExternalRef
	}
	var createdBy *int
	if input.CreatedBy != 0 {
		createdBy = &input.CreatedBy
	}

	var proposalID int
	err = tx.QueryRow(ctx, `
		INSERT INTO budget_proposals
		            (external_ref, department_id, fiscal_year_id, title,
		             performance_start_date, performance_end_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_ref) DO NOTHING
		RETURNING id
	`, externalRef, input.DepartmentID, input.FiscalYearID, input.Title,
		input.PerformanceStartDate, input.PerformanceEndDate, createdBy,
	).Scan(&proposalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("proposal external ref %s already exists: %w", input.ExternalRef, ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert proposal: %w", err)
	}

	for i, item := range items {
		if err := insertItemTx(ctx, tx, proposalID, item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit proposal creation: %w", err)
	}
	return s.Get(ctx, proposalID)
}

// insertItemTx resolves the item's account and inserts the line using tx.
func insertItemTx(ctx context.Context, tx pgx.Tx, proposalID int, item ProposalItemInput) error {
	var accountID int
	err := tx.QueryRow(ctx,
		"SELECT id FROM accounts WHERE code = $1 AND is_active = true", item.AccountCode,
	).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("account code %s: %w", item.AccountCode, ErrNotFound)
		}
		return fmt.Errorf("failed to resolve account %s: %w", item.AccountCode, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO budget_proposal_items (proposal_id, account_id, description, estimated_cost)
		VALUES ($1, $2, $3, $4)
	`, proposalID, accountID, item.Description, item.EstimatedCost)
	if err != nil {
		return fmt.Errorf("failed to insert proposal item: %w", err)
	}
	return nil
}

// AddItem appends a line to a DRAFT proposal.
func (s *proposalService) AddItem(ctx context.Context, proposalID int, item ProposalItemInput) (*BudgetProposal, error) {
	if item.EstimatedCost.IsNegative() {
		return nil, fmt.Errorf("estimated cost cannot be negative: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status ProposalStatus
	if err := tx.QueryRow(ctx,
		"SELECT status FROM budget_proposals WHERE id = $1 FOR UPDATE", proposalID,
	).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("proposal %d: %w", proposalID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch proposal %d: %w", proposalID, err)
	}
	if status != ProposalDraft {
		return nil, fmt.Errorf("proposal %d is %s, items can only be added in DRAFT: %w", proposalID, status, ErrConflict)
	}

	if err := insertItemTx(ctx, tx, proposalID, item); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit item addition: %w", err)
	}
	return s.Get(ctx, proposalID)
}

// Submit transitions DRAFT → SUBMITTED and stamps submitted_at.
func (s *proposalService) Submit(ctx context.Context, proposalID int, actor string) (*BudgetProposal, error) {
	return s.transition(ctx, proposalID, ProposalSubmitted, actor, "", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			"UPDATE budget_proposals SET status = $1, submitted_at = NOW() WHERE id = $2",
			string(ProposalSubmitted), proposalID)
		return err
	})
}

// StartReview transitions SUBMITTED → UNDER_REVIEW.
func (s *proposalService) StartReview(ctx context.Context, proposalID int, actor string) (*BudgetProposal, error) {
	return s.transition(ctx, proposalID, ProposalUnderReview, actor, "", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			"UPDATE budget_proposals SET status = $1 WHERE id = $2",
			string(ProposalUnderReview), proposalID)
		return err
	})
}

// Review settles an UNDER_REVIEW proposal. The whole review is one
// transaction over a FOR UPDATE row lock, which serializes concurrent
// double-reviews: the second reviewer blocks, then fails the transition
// check against the settled status. A repeated approval therefore
// returns ErrConflict rather than succeeding silently, so callers learn
// the decision was already made; the one-project guarantee holds either
// way.
//
// Side effects inside the same transaction:
//   - APPROVE: create exactly one Project mirroring the proposal if none
//     exists yet (idempotent re-entry creates nothing).
//   - REJECT with an existing Project (late reversal): mark it CANCELLED.
func (s *proposalService) Review(ctx context.Context, proposalID int, decision ReviewDecision, actor, note string) (*BudgetProposal, error) {
	var target ProposalStatus
	switch decision {
	case DecisionApprove:
		target = ProposalApproved
	case DecisionReject:
		target = ProposalRejected
	default:
		return nil, fmt.Errorf("unknown review decision %q: %w", decision, ErrValidation)
	}
	if actor == "" {
		return nil, fmt.Errorf("review actor is required: %w", ErrValidation)
	}

	return s.transition(ctx, proposalID, target, actor, note, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE budget_proposals
			SET status = $1, reviewed_by = $2, reviewed_at = NOW()
			WHERE id = $3
		`, string(target), actor, proposalID); err != nil {
			return err
		}

		var projectID *int
		if err := tx.QueryRow(ctx,
			"SELECT id FROM projects WHERE proposal_id = $1", proposalID,
		).Scan(&projectID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to check existing project: %w", err)
		}

		switch target {
		case ProposalApproved:
			if projectID != nil {
				return nil // idempotent: project already exists
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO projects (proposal_id, department_id, name, start_date, end_date)
				SELECT id, department_id, title, performance_start_date, performance_end_date
				FROM budget_proposals WHERE id = $1
			`, proposalID)
			if err != nil {
				return fmt.Errorf("failed to create project for proposal %d: %w", proposalID, err)
			}
		case ProposalRejected:
			if projectID == nil {
				return nil
			}
			// Late reversal of a previously approved proposal.
			_, err := tx.Exec(ctx,
				"UPDATE projects SET status = $1 WHERE id = $2", string(ProjectCancelled), *projectID)
			if err != nil {
				return fmt.Errorf("failed to cancel project %d: %w", *projectID, err)
			}
		}
		return nil
	})
}

// transition runs one status transition as a single transaction: row lock,
// state-machine check, mutation, then exactly one history row.
func (s *proposalService) transition(ctx context.Context, proposalID int, target ProposalStatus,
	actor, note string, mutate func(context.Context, pgx.Tx) error) (*BudgetProposal, error) {

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current ProposalStatus
	if err := tx.QueryRow(ctx,
		"SELECT status FROM budget_proposals WHERE id = $1 FOR UPDATE", proposalID,
	).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("proposal %d: %w", proposalID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch proposal %d: %w", proposalID, err)
	}

	if !current.CanTransition(target) {
		return nil, fmt.Errorf("proposal %d cannot move from %s to %s: %w",
			proposalID, current, target, ErrConflict)
	}

	if err := mutate(ctx, tx); err != nil {
		return nil, err
	}

	var noteArg *string
	if note != "" {
		noteArg = &note
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO proposal_history (proposal_id, previous_status, new_status, actor, note)
		VALUES ($1, $2, $3, $4, $5)
	`, proposalID, string(current), string(target), actor, noteArg); err != nil {
		return nil, fmt.Errorf("failed to write proposal history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit proposal transition: %w", err)
	}
	return s.Get(ctx, proposalID)
}

// Get returns a proposal with its items.
func (s *proposalService) Get(ctx context.Context, proposalID int) (*BudgetProposal, error) {
	p := &BudgetProposal{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, external_ref, department_id, fiscal_year_id, title, status,
		       performance_start_date::text, performance_end_date::text,
		       sync_status, submitted_at, reviewed_by, reviewed_at, created_at
		FROM budget_proposals WHERE id = $1
	`, proposalID).Scan(
		&p.ID, &p.ExternalRef, &p.DepartmentID, &p.FiscalYearID, &p.Title, &p.Status,
		&p.PerformanceStartDate, &p.PerformanceEndDate,
		&p.SyncStatus, &p.SubmittedAt, &p.ReviewedBy, &p.ReviewedAt, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("proposal %d: %w", proposalID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch proposal %d: %w", proposalID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.proposal_id, i.account_id, a.code, i.description, i.estimated_cost
		FROM budget_proposal_items i
		JOIN accounts a ON a.id = i.account_id
		WHERE i.proposal_id = $1
		ORDER BY i.id
	`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items for proposal %d: %w", proposalID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item ProposalItem
		if err := rows.Scan(&item.ID, &item.ProposalID, &item.AccountID, &item.AccountCode,
			&item.Description, &item.EstimatedCost); err != nil {
			return nil, fmt.Errorf("failed to scan proposal item: %w", err)
		}
		p.Items = append(p.Items, item)
	}
	return p, rows.Err()
}

// List returns proposals matching filter plus the unpaginated total.
func (s *proposalService) List(ctx context.Context, filter ProposalFilter) ([]BudgetProposal, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.DepartmentID != 0 {
		args = append(args, filter.DepartmentID)
		where += fmt.Sprintf(" AND department_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.FiscalYearID != 0 {
		args = append(args, filter.FiscalYearID)
		where += fmt.Sprintf(" AND fiscal_year_id = $%d", len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM budget_proposals"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count proposals: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	limitClause := fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	limitClause += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, `
		SELECT id, external_ref, department_id, fiscal_year_id, title, status,
		       performance_start_date::text, performance_end_date::text,
		       sync_status, submitted_at, reviewed_by, reviewed_at, created_at
		FROM budget_proposals`+where+limitClause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var out []BudgetProposal
	for rows.Next() {
		var p BudgetProposal
		if err := rows.Scan(
			&p.ID, &p.ExternalRef, &p.DepartmentID, &p.FiscalYearID, &p.Title, &p.Status,
			&p.PerformanceStartDate, &p.PerformanceEndDate,
			&p.SyncStatus, &p.SubmittedAt, &p.ReviewedBy, &p.ReviewedAt, &p.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan proposal: %w", err)
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// History returns the append-only transition log, oldest first.
func (s *proposalService) History(ctx context.Context, proposalID int) ([]ProposalHistoryRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, proposal_id, previous_status, new_status, actor, note, created_at
		FROM proposal_history WHERE proposal_id = $1 ORDER BY id
	`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for proposal %d: %w", proposalID, err)
	}
	defer rows.Close()

	var out []ProposalHistoryRow
	for rows.Next() {
		var h ProposalHistoryRow
		if err := rows.Scan(&h.ID, &h.ProposalID, &h.PreviousStatus, &h.NewStatus, &h.Actor, &h.Note, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
