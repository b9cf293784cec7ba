package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
)

// varianceReport handles GET /api/v1/reports/variance?fiscal_year=.
func (h *Handler) varianceReport(w http.ResponseWriter, r *http.Request) {
	fiscalYearID := queryInt(r, "fiscal_year")
	if fiscalYearID == 0 {
		writeError(w, r, "fiscal_year query parameter is required", "VALIDATION", http.StatusBadRequest)
		return
	}
	report, err := h.svc.VarianceReport(r.Context(), fiscalYearID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

// exportVariance handles GET /api/v1/reports/variance/export — XLSX.
func (h *Handler) exportVariance(w http.ResponseWriter, r *http.Request) {
	fiscalYearID := queryInt(r, "fiscal_year")
	if fiscalYearID == 0 {
		writeError(w, r, "fiscal_year query parameter is required", "VALIDATION", http.StatusBadRequest)
		return
	}
	f, err := h.svc.ExportVarianceWorkbook(r.Context(), fiscalYearID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="variance-fy%d.xlsx"`, fiscalYearID))
	if err := f.Write(w); err != nil {
		writeError(w, r, "failed to stream workbook", "INTERNAL", http.StatusInternalServerError)
	}
}

// ledgerCSV handles GET /api/v1/reports/ledger.csv?from=&to=.
func (h *Handler) ledgerCSV(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	lines, err := h.svc.LedgerLines(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Date", "Narration", "Reference", "Account", "Debit", "Credit", "Balance"})
	for _, line := range lines {
		_ = cw.Write([]string{
			line.EntryDate,
			csvSafe(line.Narration),
			csvSafe(line.Reference),
			line.AccountCode,
			line.Debit.StringFixed(2),
			line.Credit.StringFixed(2),
			line.RunningBalance.StringFixed(2),
		})
	}
	cw.Flush()
}

// getJournalEntry handles GET /api/v1/journal/{id}.
func (h *Handler) getJournalEntry(w http.ResponseWriter, r *http.Request) {
	id := idParam(w, r, "id")
	if id == 0 {
		return
	}
	entry, err := h.svc.GetJournalEntry(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, entry)
}

// csvSafe prevents CSV formula injection by prefixing cells that begin with a
// formula-triggering character with a single quote.
func csvSafe(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// spendReport handles GET /api/v1/reports/spend?fiscal_year=&department=|project=.
func (h *Handler) spendReport(w http.ResponseWriter, r *http.Request) {
	fiscalYearID := queryInt(r, "fiscal_year")
	if fiscalYearID == 0 {
		writeError(w, r, "fiscal_year query parameter is required", "VALIDATION", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Has("project") || r.URL.Query().Get("by") == "project" {
		departmentID := scopeDepartment(r)
		rows, err := h.svc.ProjectSpend(r.Context(), fiscalYearID, departmentID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, rows)
		return
	}

	rows, err := h.svc.DepartmentSpend(r.Context(), fiscalYearID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rows)
}

// dashboard handles GET /api/v1/reports/dashboard?fiscal_year=.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	fiscalYearID := queryInt(r, "fiscal_year")
	if fiscalYearID == 0 {
		writeError(w, r, "fiscal_year query parameter is required", "VALIDATION", http.StatusBadRequest)
		return
	}
	summary, err := h.svc.Dashboard(r.Context(), fiscalYearID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, summary)
}

// generateForecast handles POST /api/v1/forecasts/generate?fiscal_year=.
func (h *Handler) generateForecast(w http.ResponseWriter, r *http.Request) {
	fiscalYearID := queryInt(r, "fiscal_year")
	if fiscalYearID == 0 {
		writeError(w, r, "fiscal_year query parameter is required", "VALIDATION", http.StatusBadRequest)
		return
	}
	f, err := h.svc.GenerateForecast(r.Context(), fiscalYearID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.recordActivity(r, "generate", "forecast", f.ID, f.Algorithm)
	writeJSON(w, f)
}

// latestForecast handles GET /api/v1/forecasts?fiscal_year=.
func (h *Handler) latestForecast(w http.ResponseWriter, r *http.Request) {
	fiscalYearID := queryInt(r, "fiscal_year")
	if fiscalYearID == 0 {
		writeError(w, r, "fiscal_year query parameter is required", "VALIDATION", http.StatusBadRequest)
		return
	}
	f, err := h.svc.LatestForecast(r.Context(), fiscalYearID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, f)
}
