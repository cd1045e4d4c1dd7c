package api

import (
	"net/http"
	"strings"
	"time"

	"pharmapos/m/domain"
	"pharmapos/m/internal/repository"
)

type salesReport struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	repository.SalesSummary
}

func (h *Handler) summarize(w http.ResponseWriter, r *http.Request, f repository.SaleFilter) {
	summary, err := h.repo.SummarizeSales(r.Context(), f)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	report := salesReport{SalesSummary: summary}
	if f.From != nil {
		report.From = *f.From
	}
	if f.To != nil {
		report.To = *f.To
	}
	respondJSON(w, http.StatusOK, report)
}

// dailySales reports one UTC day, today unless ?date= is given.
func (h *Handler) dailySales(w http.ResponseWriter, r *http.Request) {
	f, err := saleFilterFrom(r, "", "")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	day, err := queryDate(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if day == nil {
		now := h.now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		day = &today
	}
	end := day.AddDate(0, 0, 1)
	f.From, f.To = day, &end
	h.summarize(w, r, f)
}

// monthlySales reports one UTC calendar month, this month unless ?month=YYYY-MM is given.
func (h *Handler) monthlySales(w http.ResponseWriter, r *http.Request) {
	f, err := saleFilterFrom(r, "", "")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := h.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		start, err = time.Parse("2006-01", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "month must be in YYYY-MM format")
			return
		}
	}
	end := start.AddDate(0, 1, 0)
	f.From, f.To = &start, &end
	h.summarize(w, r, f)
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	f, err := saleFilterFrom(r, "start_date", "end_date")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.summarize(w, r, f)
}
