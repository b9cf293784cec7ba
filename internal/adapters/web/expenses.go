package web

import (
	"net/http"

	"budget-service/internal/core"
)

// submitExpense handles POST /api/v1/expenses. The submission guard in
// the service rejects anything the allocation cannot cover.
func (h *Handler) submitExpense(w http.ResponseWriter, r *http.Request) {
	var input core.ExpenseInput
	if !decodeJSON(w, r, &input) {
		return
	}
	alloc, err := h.svc.GetAllocation(r.Context(), input.AllocationID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !canAccessDepartment(r, alloc.DepartmentID) {
		writeError(w, r, "allocation belongs to another department", "FORBIDDEN", http.StatusForbidden)
		return
	}

	e, err := h.svc.SubmitExpense(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "submit", "expense", e.ID, e.TransactionID)
	writeJSON(w, e)
}

// ingestExpense handles POST /api/v1/ingest/expenses from a trusted
// sibling service: the expense lands PENDING and awaits review.
func (h *Handler) ingestExpense(w http.ResponseWriter, r *http.Request) {
	var input core.ExpenseInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.TransactionID == "" {
		writeError(w, r, "transaction_id is required for service ingestion", "VALIDATION", http.StatusBadRequest)
		return
	}
	e, err := h.svc.IngestExpense(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "ingest", "expense", e.ID, e.TransactionID)
	writeJSON(w, e)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	filter := core.ExpenseFilter{
		AllocationID: queryInt(r, "allocation_id"),
		ProjectID:    queryInt(r, "project_id"),
		DepartmentID: queryInt(r, "department_id"),
		Status:       core.ExpenseStatus(r.URL.Query().Get("status")),
		Limit:        limit,
		Offset:       offset,
	}
	if scoped := scopeDepartment(r); scoped != 0 {
		filter.DepartmentID = scoped
	}
	result, err := h.svc.ListExpenses(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, listEnvelope{Items: result.Expenses, Total: result.Total, Limit: limit, Offset: offset})
}

func (h *Handler) getExpense(w http.ResponseWriter, r *http.Request) {
	id := idParam(w, r, "id")
	if id == 0 {
		return
	}
	e, err := h.svc.GetExpense(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	alloc, err := h.svc.GetAllocation(r.Context(), e.AllocationID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !canAccessDepartment(r, alloc.DepartmentID) {
		writeError(w, r, "expense belongs to another department", "FORBIDDEN", http.StatusForbidden)
		return
	}
	writeJSON(w, e)
}

func (h *Handler) approveExpense(w http.ResponseWriter, r *http.Request) {
	id := idParam(w, r, "id")
	if id == 0 {
		return
	}
	e, err := h.svc.ApproveExpense(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "approve", "expense", id, e.TransactionID)
	writeJSON(w, e)
}

func (h *Handler) rejectExpense(w http.ResponseWriter, r *http.Request) {
	id := idParam(w, r, "id")
	if id == 0 {
		return
	}
	e, err := h.svc.RejectExpense(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "reject", "expense", id, e.TransactionID)
	writeJSON(w, e)
}
