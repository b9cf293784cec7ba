package core

// Role is the closed set of authorization roles carried in the JWT
// roles claim for this service.
type Role string

const (
	RoleAdmin           Role = "ADMIN"
	RoleFinanceHead     Role = "FINANCE_HEAD"
	RoleFinanceOperator Role = "FINANCE_OPERATOR"
)

// ParseRole maps a raw claim string to a Role, or false if unknown.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleFinanceHead, RoleFinanceOperator:
		return Role(s), true
	}
	return "", false
}

// CanManageMasterData reports whether the role may mutate departments,
// accounts, categories, and fiscal years.
func (r Role) CanManageMasterData() bool {
	return r == RoleAdmin
}

// CanReview reports whether the role may approve or reject proposals
// and expenses.
func (r Role) CanReview() bool {
	return r == RoleAdmin || r == RoleFinanceHead
}

// CanMoveBudget reports whether the role may create allocations and post
// transfers or adjustments.
func (r Role) CanMoveBudget() bool {
	return r == RoleAdmin || r == RoleFinanceHead
}

// CanSubmit reports whether the role may create and submit proposals
// and expenses for its own department.
func (r Role) CanSubmit() bool {
	return r == RoleAdmin || r == RoleFinanceHead || r == RoleFinanceOperator
}

// SeesAllDepartments reports whether list queries are unscoped for this
// role. FINANCE_OPERATOR only sees rows for its own department.
func (r Role) SeesAllDepartments() bool {
	return r == RoleAdmin || r == RoleFinanceHead
}
