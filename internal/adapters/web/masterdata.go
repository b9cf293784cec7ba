package web

import (
	"net/http"

	"budget-service/internal/app"
	"budget-service/internal/core"

	"github.com/go-chi/chi/v5"
)

// ── Departments ───────────────────────────────────────────────────────

// createDepartment handles POST /api/v1/departments.
func (h *Handler) createDepartment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.CreateDepartment(r.Context(), req.Code, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "create", "department", d.ID, d.Code)
	writeJSON(w, d)
}

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.svc.ListDepartments(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, departments)
}

// renameDepartment handles PUT /api/v1/departments/{code}.
func (h *Handler) renameDepartment(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.RenameDepartment(r.Context(), code, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "rename", "department", d.ID, d.Code)
	writeJSON(w, d)
}

// deactivateDepartment handles DELETE /api/v1/departments/{code}.
func (h *Handler) deactivateDepartment(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.svc.DeactivateDepartment(r.Context(), code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "deactivate", "department", 0, code)
	w.WriteHeader(http.StatusNoContent)
}

// ── Accounts ──────────────────────────────────────────────────────────

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req app.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.CreateAccount(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "create", "account", a.ID, a.Code)
	writeJSON(w, a)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, accounts)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	// Lookup is by code, not id: account codes are the stable external
	// identifier used across proposals and journal lines.
	code := chi.URLParam(r, "code")
	a, err := h.svc.GetAccountByCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, a)
}

// ── Fiscal years ──────────────────────────────────────────────────────

func (h *Handler) createFiscalYear(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year      int    `json:"year"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	fy, err := h.svc.CreateFiscalYear(r.Context(), req.Year, req.StartDate, req.EndDate)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "create", "fiscal_year", fy.ID, "")
	writeJSON(w, fy)
}

func (h *Handler) listFiscalYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.svc.ListFiscalYears(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, years)
}

func (h *Handler) activateFiscalYear(w http.ResponseWriter, r *http.Request) {
	id := idParam(w, r, "id")
	if id == 0 {
		return
	}
	if err := h.svc.ActivateFiscalYear(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "activate", "fiscal_year", id, "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lockFiscalYear(w http.ResponseWriter, r *http.Request) {
	id := idParam(w, r, "id")
	if id == 0 {
		return
	}
	if err := h.svc.LockFiscalYear(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "lock", "fiscal_year", id, "")
	w.WriteHeader(http.StatusNoContent)
}

// ── Categories ────────────────────────────────────────────────────────

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req app.CreateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "create", "category", c.ID, c.Code)
	writeJSON(w, c)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, categories)
}

// ── Users ─────────────────────────────────────────────────────────────

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req core.UserInput
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.CreateUser(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "create", "user", u.ID, u.Username)
	writeJSON(w, u)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, users)
}

func (h *Handler) setPassword(w http.ResponseWriter, r *http.Request) {
	id := idParam(w, r, "id")
	if id == 0 {
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.SetPassword(r.Context(), id, req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "set_password", "user", id, "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	id := idParam(w, r, "id")
	if id == 0 {
		return
	}
	if err := h.svc.DeactivateUser(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "deactivate", "user", id, "")
	w.WriteHeader(http.StatusNoContent)
}

// recordActivity writes an audit row attributed to the authenticated
// user. Service-key requests are attributed to "service".
func (h *Handler) recordActivity(r *http.Request, action, entityType string, entityID int, detail string) {
	username := "service"
	if claims := authFromContext(r.Context()); claims != nil {
		username = claims.Username
	}
	h.svc.RecordActivity(r.Context(), username, action, entityType, entityID, detail)
}
