package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
	"pharmapos/m/internal/repository"
)

type inventoryRequest struct {
	DrugID       int64           `json:"drugId"`
	StoreID      int64           `json:"storeId"`
	Quantity     int64           `json:"quantity"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
}

func (h *Handler) createInventory(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	var req inventoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBodyError(w, r, err)
		return
	}
	item := domain.InventoryItem{DrugID: req.DrugID, StoreID: req.StoreID, Quantity: req.Quantity, SellingPrice: req.SellingPrice.Round(2)}
	if err := item.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := h.repo.CreateInventory(r.Context(), &item); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	storeID, err := queryID(r, "storeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	drugID, err := queryID(r, "drugId")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := domain.InventoryStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		respondError(w, http.StatusBadRequest, "status must be out_of_stock, low_stock or in_stock")
		return
	}

	items, err := h.repo.ListInventory(r.Context(), repository.InventoryFilter{StoreID: storeID, DrugID: drugID, Status: status}, page)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func inventoryKey(w http.ResponseWriter, r *http.Request) (drugID, storeID int64, ok bool) {
	drugID, err := pathID(r, "drugId")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	storeID, err = pathID(r, "storeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return drugID, storeID, true
}

// getInventory is advisory: the quantity may change before a sale commits.
func (h *Handler) getInventory(w http.ResponseWriter, r *http.Request) {
	drugID, storeID, ok := inventoryKey(w, r)
	if !ok {
		return
	}
	item, err := h.repo.GetInventory(r.Context(), h.repo.DB(), drugID, storeID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) updateInventory(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	drugID, storeID, ok := inventoryKey(w, r)
	if !ok {
		return
	}
	var payload struct {
		Quantity     int64           `json:"quantity"`
		SellingPrice decimal.Decimal `json:"sellingPrice"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		respondBodyError(w, r, err)
		return
	}
	item := domain.InventoryItem{DrugID: drugID, StoreID: storeID, Quantity: payload.Quantity, SellingPrice: payload.SellingPrice.Round(2)}
	if err := item.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := h.repo.UpdateInventory(r.Context(), &item); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	drugID, storeID, ok := inventoryKey(w, r)
	if !ok {
		return
	}
	var payload struct {
		Delta int64 `json:"delta"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		respondBodyError(w, r, err)
		return
	}
	if payload.Delta == 0 {
		respondError(w, http.StatusUnprocessableEntity, "delta must not be zero")
		return
	}
	item, err := h.repo.Restock(r.Context(), drugID, storeID, payload.Delta, h.now())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}
