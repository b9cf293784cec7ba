package web

import (
	"fmt"
	"net/http"

	"budget-service/internal/app"
	"budget-service/internal/core"
)

// scopeDepartment returns the department filter for the caller: 0 (all)
// for roles that see every department, the caller's own department
// otherwise.
func scopeDepartment(r *http.Request) int {
	claims := authFromContext(r.Context())
	if claims == nil || claims.Role.SeesAllDepartments() {
		return 0
	}
	return claims.DepartmentID
}

// canAccessDepartment reports whether the caller may touch rows of the
// given department.
func canAccessDepartment(r *http.Request, departmentID int) bool {
	claims := authFromContext(r.Context())
	if claims == nil {
		return false
	}
	return claims.Role.SeesAllDepartments() || claims.DepartmentID == departmentID
}

// createProposal handles POST /api/v1/proposals.
func (h *Handler) createProposal(w http.ResponseWriter, r *http.Request) {
	var req app.CreateProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	claims := authFromContext(r.Context())
	if req.DepartmentID == 0 {
		req.DepartmentID = claims.DepartmentID
	}
	if !canAccessDepartment(r, req.DepartmentID) {
		writeError(w, r, "cannot create proposals for another department", "FORBIDDEN", http.StatusForbidden)
		return
	}
	req.CreatedBy = claims.UserID

	p, err := h.svc.CreateProposal(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "create", "proposal", p.ID, p.Title)
	writeJSON(w, p)
}

// ingestProposal handles POST /api/v1/ingest/proposals from a trusted
// sibling service. The external_ref makes retries idempotent at the
// conflict level: a repeat returns 400 CONFLICT rather than a duplicate.
func (h *Handler) ingestProposal(w http.ResponseWriter, r *http.Request) {
	var req app.CreateProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ExternalRef == "" {
		writeError(w, r, "external_ref is required for service ingestion", "VALIDATION", http.StatusBadRequest)
		return
	}
	p, err := h.svc.CreateProposal(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "ingest", "proposal", p.ID, req.ExternalRef)
	writeJSON(w, p)
}

func (h *Handler) listProposals(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	filter := core.ProposalFilter{
		DepartmentID: queryInt(r, "department_id"),
		FiscalYearID: queryInt(r, "fiscal_year_id"),
		Status:       core.ProposalStatus(r.URL.Query().Get("status")),
		Limit:        limit,
		Offset:       offset,
	}
	if scoped := scopeDepartment(r); scoped != 0 {
		filter.DepartmentID = scoped
	}

	result, err := h.svc.ListProposals(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, listEnvelope{Items: result.Proposals, Total: result.Total, Limit: limit, Offset: offset})
}

// getProposalScoped loads a proposal and enforces department visibility.
func (h *Handler) getProposalScoped(w http.ResponseWriter, r *http.Request) *core.BudgetProposal {
	id := idParam(w, r, "id")
	if id == 0 {
		return nil
	}
	p, err := h.svc.GetProposal(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return nil
	}
	if !canAccessDepartment(r, p.DepartmentID) {
		writeError(w, r, "proposal belongs to another department", "FORBIDDEN", http.StatusForbidden)
		return nil
	}
	return p
}

func (h *Handler) getProposal(w http.ResponseWriter, r *http.Request) {
	if p := h.getProposalScoped(w, r); p != nil {
		writeJSON(w, p)
	}
}

func (h *Handler) addProposalItem(w http.ResponseWriter, r *http.Request) {
	p := h.getProposalScoped(w, r)
	if p == nil {
		return
	}
	var item core.ProposalItemInput
	if !decodeJSON(w, r, &item) {
		return
	}
	updated, err := h.svc.AddProposalItem(r.Context(), p.ID, item)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "add_item", "proposal", p.ID, item.AccountCode)
	writeJSON(w, updated)
}

func (h *Handler) submitProposal(w http.ResponseWriter, r *http.Request) {
	p := h.getProposalScoped(w, r)
	if p == nil {
		return
	}
	claims := authFromContext(r.Context())
	updated, err := h.svc.SubmitProposal(r.Context(), p.ID, claims.Username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "submit", "proposal", p.ID, "")
	writeJSON(w, updated)
}

func (h *Handler) startReview(w http.ResponseWriter, r *http.Request) {
	id := idParam(w, r, "id")
	if id == 0 {
		return
	}
	claims := authFromContext(r.Context())
	updated, err := h.svc.StartReview(r.Context(), id, claims.Username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "start_review", "proposal", id, "")
	writeJSON(w, updated)
}

func (h *Handler) reviewProposal(w http.ResponseWriter, r *http.Request, decision core.ReviewDecision) {
	id := idParam(w, r, "id")
	if id == 0 {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	claims := authFromContext(r.Context())
	updated, err := h.svc.ReviewProposal(r.Context(), id, decision, claims.Username, req.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, string(decision), "proposal", id, req.Note)
	writeJSON(w, updated)
}

func (h *Handler) approveProposal(w http.ResponseWriter, r *http.Request) {
	h.reviewProposal(w, r, core.DecisionApprove)
}

func (h *Handler) rejectProposal(w http.ResponseWriter, r *http.Request) {
	h.reviewProposal(w, r, core.DecisionReject)
}

func (h *Handler) proposalHistory(w http.ResponseWriter, r *http.Request) {
	p := h.getProposalScoped(w, r)
	if p == nil {
		return
	}
	history, err := h.svc.ProposalHistory(r.Context(), p.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, history)
}

// exportProposal handles GET /api/v1/proposals/{id}/export — streams an
// XLSX rendering of the proposal and its items.
func (h *Handler) exportProposal(w http.ResponseWriter, r *http.Request) {
	p := h.getProposalScoped(w, r)
	if p == nil {
		return
	}
	f, err := h.svc.ExportProposalWorkbook(r.Context(), p.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="proposal-%d.xlsx"`, p.ID))
	if err := f.Write(w); err != nil {
		writeError(w, r, "failed to stream workbook", "INTERNAL", http.StatusInternalServerError)
	}
}

// ── Projects ──────────────────────────────────────────────────────────

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	departmentID := queryInt(r, "department_id")
	if scoped := scopeDepartment(r); scoped != 0 {
		departmentID = scoped
	}
	projects, err := h.svc.ListProjects(r.Context(), departmentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, projects)
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	id := idParam(w, r, "id")
	if id == 0 {
		return
	}
	p, err := h.svc.GetProject(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !canAccessDepartment(r, p.DepartmentID) {
		writeError(w, r, "project belongs to another department", "FORBIDDEN", http.StatusForbidden)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) closeProject(w http.ResponseWriter, r *http.Request) {
	id := idParam(w, r, "id")
	if id == 0 {
		return
	}
	p, err := h.svc.CloseProject(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "close", "project", id, "")
	writeJSON(w, p)
}
