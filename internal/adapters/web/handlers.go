package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"budget-service/internal/app"
	"budget-service/internal/core"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc        app.ApplicationService
	router     chi.Router
	jwtSecret  string
	serviceKey string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins []string, jwtSecret, serviceKey string) http.Handler {
	h := &Handler{
		svc:        svc,
		jwtSecret:  jwtSecret,
		serviceKey: serviceKey,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Service-to-service ingestion (X-Service-Key) ──────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireServiceKey)
		r.Use(RequestBodyLimit(1 << 20))
		r.Post("/api/v1/ingest/proposals", h.ingestProposal)
		r.Post("/api/v1/ingest/expenses", h.ingestExpense)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20))

		// ── Auth (public) ─────────────────────────────────────────────
		r.Post("/auth/login", h.login)

		// ── Protected routes ──────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Post("/auth/refresh", h.refresh)
			r.Get("/auth/me", h.me)

			// Master data reads are open to every authenticated role.
			r.Get("/departments", h.listDepartments)
			r.Get("/accounts", h.listAccounts)
			r.Get("/accounts/{code}", h.getAccount)
			r.Get("/fiscal-years", h.listFiscalYears)
			r.Get("/categories", h.listCategories)

			// Master data writes are admin only.
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(core.Role.CanManageMasterData))
				r.Post("/departments", h.createDepartment)
				r.Put("/departments/{code}", h.renameDepartment)
				r.Delete("/departments/{code}", h.deactivateDepartment)
				r.Post("/accounts", h.createAccount)
				r.Post("/fiscal-years", h.createFiscalYear)
				r.Post("/fiscal-years/{id}/activate", h.activateFiscalYear)
				r.Post("/fiscal-years/{id}/lock", h.lockFiscalYear)
				r.Post("/categories", h.createCategory)
				r.Get("/users", h.listUsers)
				r.Post("/users", h.createUser)
				r.Post("/users/{id}/password", h.setPassword)
				r.Delete("/users/{id}", h.deactivateUser)
			})

			// Proposals
			r.Get("/proposals", h.listProposals)
			r.Get("/proposals/{id}", h.getProposal)
			r.Get("/proposals/{id}/history", h.proposalHistory)
			r.Get("/proposals/{id}/export", h.exportProposal)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(core.Role.CanSubmit))
				r.Post("/proposals", h.createProposal)
				r.Post("/proposals/{id}/items", h.addProposalItem)
				r.Post("/proposals/{id}/submit", h.submitProposal)
			})
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(core.Role.CanReview))
				r.Post("/proposals/{id}/review/start", h.startReview)
				r.Post("/proposals/{id}/approve", h.approveProposal)
				r.Post("/proposals/{id}/reject", h.rejectProposal)
			})

			// Projects
			r.Get("/projects", h.listProjects)
			r.Get("/projects/{id}", h.getProject)
			r.With(h.RequireRole(core.Role.CanReview)).Post("/projects/{id}/close", h.closeProject)

			// Allocations
			r.Get("/allocations", h.listAllocations)
			r.Get("/allocations/{id}", h.getAllocation)
			r.Get("/allocations/{id}/remaining", h.allocationRemaining)
			r.Get("/allocations/{id}/transfers", h.allocationTransfers)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(core.Role.CanMoveBudget))
				r.Post("/allocations", h.createAllocation)
				r.Post("/allocations/transfer", h.transferBudget)
				r.Post("/allocations/adjust", h.adjustBudget)
			})

			// Expenses
			r.Get("/expenses", h.listExpenses)
			r.Get("/expenses/{id}", h.getExpense)
			r.With(h.RequireRole(core.Role.CanSubmit)).Post("/expenses", h.submitExpense)
			r.Group(func(r chi.Router) {
				r.Use(h.RequireRole(core.Role.CanReview))
				r.Post("/expenses/{id}/approve", h.approveExpense)
				r.Post("/expenses/{id}/reject", h.rejectExpense)
			})

			// Reports and forecasts
			r.Get("/journal/{id}", h.getJournalEntry)
			r.Get("/reports/variance", h.varianceReport)
			r.Get("/reports/variance/export", h.exportVariance)
			r.Get("/reports/ledger.csv", h.ledgerCSV)
			r.Get("/reports/spend", h.spendReport)
			r.Get("/reports/dashboard", h.dashboard)
			r.Get("/forecasts", h.latestForecast)
			r.With(h.RequireRole(core.Role.CanReview)).Post("/forecasts/generate", h.generateForecast)
		})
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// idParam extracts a numeric {id} URL parameter. Returns 0 and writes a
// 400 response when the parameter is not a positive integer.
func idParam(w http.ResponseWriter, r *http.Request, name string) int {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid "+name+" parameter", "BAD_REQUEST", http.StatusBadRequest)
		return 0
	}
	return id
}

// queryInt parses an optional integer query parameter, 0 when absent.
func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

// pagination parses limit/offset query parameters: default 50, max 200.
func pagination(r *http.Request) (limit, offset int) {
	limit = queryInt(r, "limit")
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset = queryInt(r, "offset")
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// listEnvelope is the pagination envelope shared by all list endpoints.
type listEnvelope struct {
	Items  any `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
