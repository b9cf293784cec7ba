package core_test

import (
	"context"
	"errors"
	"testing"

	"budget-service/internal/core"

	"github.com/shopspring/decimal"
)

func TestProposal_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewProposalService(pool)
	projects := core.NewProjectService(pool)
	ctx := context.Background()

	proposal, err := svc.Create(ctx, core.ProposalInput{
		DepartmentID:         1,
		FiscalYearID:         1,
		Title:                "Office refurbishment",
		PerformanceStartDate: "2024-03-01",
		PerformanceEndDate:   "2024-09-30",
	}, []core.ProposalItemInput{
		{AccountCode: "5000", Description: "Furniture", EstimatedCost: decimal.NewFromInt(30000)},
		{AccountCode: "5100", Description: "Fit-out works", EstimatedCost: decimal.NewFromInt(45000)},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if proposal.Status != core.ProposalDraft {
		t.Fatalf("expected status DRAFT, got %s", proposal.Status)
	}
	if len(proposal.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(proposal.Items))
	}

	// DRAFT proposals cannot be reviewed directly.
	if _, err := svc.StartReview(ctx, proposal.ID, "reviewer"); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict starting review on a draft, got %v", err)
	}

	proposal, err = svc.Submit(ctx, proposal.ID, "requester")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if proposal.Status != core.ProposalSubmitted {
		t.Fatalf("expected status SUBMITTED, got %s", proposal.Status)
	}
	if proposal.SubmittedAt == nil {
		t.Fatal("expected submitted_at to be set")
	}

	if _, err := svc.StartReview(ctx, proposal.ID, "reviewer"); err != nil {
		t.Fatalf("StartReview failed: %v", err)
	}

	proposal, err = svc.Review(ctx, proposal.ID, core.DecisionApprove, "reviewer", "looks good")
	if err != nil {
		t.Fatalf("Review(APPROVE) failed: %v", err)
	}
	if proposal.Status != core.ProposalApproved {
		t.Fatalf("expected status APPROVED, got %s", proposal.Status)
	}

	// Approval creates exactly one project carrying the performance window.
	project, err := projects.GetByProposal(ctx, proposal.ID)
	if err != nil {
		t.Fatalf("GetByProposal failed: %v", err)
	}
	if project.Status != core.ProjectActive {
		t.Fatalf("expected project ACTIVE, got %s", project.Status)
	}
	if project.StartDate != "2024-03-01" || project.EndDate != "2024-09-30" {
		t.Fatalf("project dates do not match proposal window: %s .. %s", project.StartDate, project.EndDate)
	}

	// A second approval must not create a second project.
	if _, err := svc.Review(ctx, proposal.ID, core.DecisionApprove, "reviewer", ""); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict on double approval, got %v", err)
	}
	var projectCount int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM projects WHERE proposal_id = $1", proposal.ID,
	).Scan(&projectCount); err != nil {
		t.Fatalf("count projects: %v", err)
	}
	if projectCount != 1 {
		t.Fatalf("expected exactly 1 project, got %d", projectCount)
	}

	history, err := svc.History(ctx, proposal.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 history rows, got %d", len(history))
	}
	wantTransitions := [][2]core.ProposalStatus{
		{core.ProposalDraft, core.ProposalSubmitted},
		{core.ProposalSubmitted, core.ProposalUnderReview},
		{core.ProposalUnderReview, core.ProposalApproved},
	}
	for i, want := range wantTransitions {
		if history[i].PreviousStatus != want[0] || history[i].NewStatus != want[1] {
			t.Errorf("history[%d]: got %s->%s, want %s->%s",
				i, history[i].PreviousStatus, history[i].NewStatus, want[0], want[1])
		}
	}
}

func TestProposal_LateReversalCancelsProject(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewProposalService(pool)
	projects := core.NewProjectService(pool)
	ctx := context.Background()

	proposal, err := svc.Create(ctx, core.ProposalInput{
		DepartmentID:         1,
		FiscalYearID:         1,
		Title:                "Fleet renewal",
		PerformanceStartDate: "2024-01-15",
		PerformanceEndDate:   "2024-12-15",
	}, []core.ProposalItemInput{
		{AccountCode: "5000", Description: "Vehicles", EstimatedCost: decimal.NewFromInt(80000)},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Submit(ctx, proposal.ID, "requester"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := svc.StartReview(ctx, proposal.ID, "reviewer"); err != nil {
		t.Fatalf("StartReview failed: %v", err)
	}
	if _, err := svc.Review(ctx, proposal.ID, core.DecisionApprove, "reviewer", ""); err != nil {
		t.Fatalf("Review(APPROVE) failed: %v", err)
	}

	// Reversing an approval rejects the proposal and cancels its project.
	proposal, err = svc.Review(ctx, proposal.ID, core.DecisionReject, "finance-head", "funding withdrawn")
	if err != nil {
		t.Fatalf("late reversal failed: %v", err)
	}
	if proposal.Status != core.ProposalRejected {
		t.Fatalf("expected status REJECTED after reversal, got %s", proposal.Status)
	}

	project, err := projects.GetByProposal(ctx, proposal.ID)
	if err != nil {
		t.Fatalf("GetByProposal failed: %v", err)
	}
	if project.Status != core.ProjectCancelled {
		t.Fatalf("expected project CANCELLED after reversal, got %s", project.Status)
	}

	// REJECTED is terminal; nothing moves it again.
	if _, err := svc.Review(ctx, proposal.ID, core.DecisionApprove, "reviewer", ""); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict reviewing a rejected proposal, got %v", err)
	}
}

func TestProposal_ExternalRefIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewProposalService(pool)
	ctx := context.Background()

	input := core.ProposalInput{
		ExternalRef:          "erp-req-4711",
		DepartmentID:         2,
		FiscalYearID:         1,
		Title:                "Warehouse shelving",
		PerformanceStartDate: "2024-02-01",
		PerformanceEndDate:   "2024-06-30",
	}
	items := []core.ProposalItemInput{
		{AccountCode: "5000", Description: "Shelving units", EstimatedCost: decimal.NewFromInt(12000)},
	}

	if _, err := svc.Create(ctx, input, items); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := svc.Create(ctx, input, items); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate external_ref, got %v", err)
	}

	var count int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM budget_proposals WHERE external_ref = $1", input.ExternalRef,
	).Scan(&count); err != nil {
		t.Fatalf("count proposals: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 proposal for external_ref, got %d", count)
	}
}
