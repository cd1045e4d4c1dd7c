package api

import (
	"context"
	"net/http"
	"strings"

	"pharmapos/m/domain"
	"pharmapos/m/internal/repository"
	"pharmapos/m/internal/sales"
)

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager, domain.RoleCashier) {
		return
	}
	var req sales.CreateSaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBodyError(w, r, err)
		return
	}
	req.CashierID = claimsFrom(r.Context()).UserID
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	receipt, err := h.sales.CreateSale(r.Context(), req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if receipt.Replayed {
		status = http.StatusOK
	}
	respondJSON(w, status, receipt)
}

func (h *Handler) refundSale(w http.ResponseWriter, r *http.Request) {
	h.reverseSale(w, r, h.sales.RefundSale)
}

func (h *Handler) cancelSale(w http.ResponseWriter, r *http.Request) {
	h.reverseSale(w, r, h.sales.CancelSale)
}

func (h *Handler) reverseSale(w http.ResponseWriter, r *http.Request, reverse func(ctx context.Context, id int64) (*sales.Receipt, error)) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	receipt, err := reverse(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	sale, err := h.repo.GetSale(r.Context(), h.repo.DB(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := saleFilterFrom(r, "from", "to")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if status := domain.SaleStatus(r.URL.Query().Get("status")); status != "" {
		if !status.Valid() {
			respondError(w, http.StatusBadRequest, "invalid status")
			return
		}
		filter.Status = status
	}
	list, err := h.repo.ListSales(r.Context(), filter, page)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// saleFilterFrom reads storeId and an inclusive date range.
func saleFilterFrom(r *http.Request, fromParam, toParam string) (repository.SaleFilter, error) {
	var f repository.SaleFilter
	storeID, err := queryID(r, "storeId")
	if err != nil {
		return f, err
	}
	f.StoreID = storeID
	if f.From, err = queryDate(r, fromParam); err != nil {
		return f, err
	}
	to, err := queryDate(r, toParam)
	if err != nil {
		return f, err
	}
	if to != nil {
		end := to.AddDate(0, 0, 1)
		f.To = &end
	}
	return f, nil
}
