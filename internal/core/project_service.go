package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type projectService struct {
	pool *pgxpool.Pool
}

// NewProjectService constructs a ProjectService backed by PostgreSQL.
// Projects are never created here directly; ProposalService.Review owns
// creation and cancellation as approval side effects.
func NewProjectService(pool *pgxpool.Pool) ProjectService {
	return &projectService{pool: pool}
}

const projectColumns = `id, proposal_id, department_id, name, status, start_date::text, end_date::text, created_at`

func scanProject(row pgx.Row) (*Project, error) {
	p := &Project{}
	err := row.Scan(&p.ID, &p.ProposalID, &p.DepartmentID, &p.Name, &p.Status,
		&p.StartDate, &p.EndDate, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *projectService) Get(ctx context.Context, projectID int) (*Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = $1", projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch project %d: %w", projectID, err)
	}
	return p, nil
}

func (s *projectService) GetByProposal(ctx context.Context, proposalID int) (*Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE proposal_id = $1", proposalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("project for proposal %d: %w", proposalID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch project for proposal %d: %w", proposalID, err)
	}
	return p, nil
}

// List returns projects, scoped to a department when departmentID != 0.
func (s *projectService) List(ctx context.Context, departmentID int) ([]Project, error) {
	q := "SELECT " + projectColumns + " FROM projects"
	args := []any{}
	if departmentID != 0 {
		q += " WHERE department_id = $1"
		args = append(args, departmentID)
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Close marks an ACTIVE project CLOSED. Cancelled projects stay cancelled.
func (s *projectService) Close(ctx context.Context, projectID int) (*Project, error) {
	tag, err := s.pool.Exec(ctx,
		"UPDATE projects SET status = $1 WHERE id = $2 AND status = $3",
		string(ProjectClosed), projectID, string(ProjectActive))
	if err != nil {
		return nil, fmt.Errorf("failed to close project %d: %w", projectID, err)
	}
	if tag.RowsAffected() == 0 {
		p, err := s.Get(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("project %d is %s, only ACTIVE projects can be closed: %w",
			projectID, p.Status, ErrConflict)
	}
	return s.Get(ctx, projectID)
}
