package web

import (
	"net/http"

	"budget-service/internal/core"
)

func (h *Handler) createAllocation(w http.ResponseWriter, r *http.Request) {
	var input core.AllocationInput
	if !decodeJSON(w, r, &input) {
		return
	}
	a, err := h.svc.CreateAllocation(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "create", "allocation", a.ID, a.AccountCode)
	writeJSON(w, a)
}

func (h *Handler) listAllocations(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	filter := core.AllocationFilter{
		FiscalYearID: queryInt(r, "fiscal_year_id"),
		DepartmentID: queryInt(r, "department_id"),
		Limit:        limit,
		Offset:       offset,
	}
	if scoped := scopeDepartment(r); scoped != 0 {
		filter.DepartmentID = scoped
	}
	result, err := h.svc.ListAllocations(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, listEnvelope{Items: result.Allocations, Total: result.Total, Limit: limit, Offset: offset})
}

// getAllocationScoped loads an allocation and enforces department
// visibility for FINANCE_OPERATOR callers.
func (h *Handler) getAllocationScoped(w http.ResponseWriter, r *http.Request) *core.BudgetAllocation {
	id := idParam(w, r, "id")
	if id == 0 {
		return nil
	}
	a, err := h.svc.GetAllocation(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return nil
	}
	if !canAccessDepartment(r, a.DepartmentID) {
		writeError(w, r, "allocation belongs to another department", "FORBIDDEN", http.StatusForbidden)
		return nil
	}
	return a
}

func (h *Handler) getAllocation(w http.ResponseWriter, r *http.Request) {
	if a := h.getAllocationScoped(w, r); a != nil {
		writeJSON(w, a)
	}
}

func (h *Handler) allocationRemaining(w http.ResponseWriter, r *http.Request) {
	a := h.getAllocationScoped(w, r)
	if a == nil {
		return
	}
	result, err := h.svc.AllocationRemaining(r.Context(), a.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"allocation_id": result.AllocationID,
		"remaining":     result.Remaining,
	})
}

func (h *Handler) allocationTransfers(w http.ResponseWriter, r *http.Request) {
	a := h.getAllocationScoped(w, r)
	if a == nil {
		return
	}
	transfers, err := h.svc.AllocationTransfers(r.Context(), a.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, transfers)
}

// transferBudget handles POST /api/v1/allocations/transfer.
func (h *Handler) transferBudget(w http.ResponseWriter, r *http.Request) {
	var input core.TransferInput
	if !decodeJSON(w, r, &input) {
		return
	}
	claims := authFromContext(r.Context())
	input.CreatedBy = claims.Username

	t, err := h.svc.TransferBudget(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "transfer", "allocation", input.SourceAllocationID, input.Reason)
	writeJSON(w, t)
}

// adjustBudget handles POST /api/v1/allocations/adjust.
func (h *Handler) adjustBudget(w http.ResponseWriter, r *http.Request) {
	var input core.AdjustmentInput
	if !decodeJSON(w, r, &input) {
		return
	}
	claims := authFromContext(r.Context())
	input.CreatedBy = claims.Username

	t, err := h.svc.AdjustBudget(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "adjust", "allocation", input.AllocationID, input.Reason)
	writeJSON(w, t)
}
