package core_test

import (
	"testing"

	"budget-service/internal/core"
)

func TestProposalStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from    core.ProposalStatus
		to      core.ProposalStatus
		allowed bool
	}{
		{core.ProposalDraft, core.ProposalSubmitted, true},
		{core.ProposalDraft, core.ProposalUnderReview, false},
		{core.ProposalDraft, core.ProposalApproved, false},
		{core.ProposalSubmitted, core.ProposalUnderReview, true},
		{core.ProposalSubmitted, core.ProposalApproved, false},
		{core.ProposalSubmitted, core.ProposalDraft, false},
		{core.ProposalUnderReview, core.ProposalApproved, true},
		{core.ProposalUnderReview, core.ProposalRejected, true},
		{core.ProposalUnderReview, core.ProposalSubmitted, false},
		// Late reversal: an approval can still be rejected.
		{core.ProposalApproved, core.ProposalRejected, true},
		{core.ProposalApproved, core.ProposalApproved, false},
		{core.ProposalApproved, core.ProposalUnderReview, false},
		// REJECTED is terminal.
		{core.ProposalRejected, core.ProposalApproved, false},
		{core.ProposalRejected, core.ProposalSubmitted, false},
		{core.ProposalRejected, core.ProposalUnderReview, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.allowed {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"ADMIN", "FINANCE_HEAD", "FINANCE_OPERATOR"} {
		if _, ok := core.ParseRole(valid); !ok {
			t.Errorf("ParseRole(%q) rejected a valid role", valid)
		}
	}
	for _, invalid := range []string{"", "admin", "SUPERUSER", "FINANCE"} {
		if _, ok := core.ParseRole(invalid); ok {
			t.Errorf("ParseRole(%q) accepted an invalid role", invalid)
		}
	}
}

func TestRolePermissions(t *testing.T) {
	tests := []struct {
		role             core.Role
		manageMasterData bool
		review           bool
		moveBudget       bool
		submit           bool
		seesAll          bool
	}{
		{core.RoleAdmin, true, true, true, true, true},
		{core.RoleFinanceHead, false, true, true, true, true},
		{core.RoleFinanceOperator, false, false, false, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := tt.role.CanManageMasterData(); got != tt.manageMasterData {
				t.Errorf("CanManageMasterData() = %v, want %v", got, tt.manageMasterData)
			}
			if got := tt.role.CanReview(); got != tt.review {
				t.Errorf("CanReview() = %v, want %v", got, tt.review)
			}
			if got := tt.role.CanMoveBudget(); got != tt.moveBudget {
				t.Errorf("CanMoveBudget() = %v, want %v", got, tt.moveBudget)
			}
			if got := tt.role.CanSubmit(); got != tt.submit {
				t.Errorf("CanSubmit() = %v, want %v", got, tt.submit)
			}
			if got := tt.role.SeesAllDepartments(); got != tt.seesAll {
				t.Errorf("SeesAllDepartments() = %v, want %v", got, tt.seesAll)
			}
		})
	}
}
