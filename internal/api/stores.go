package api

import (
	"net/http"

	"pharmapos/m/domain"
)

type storeRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

func (req storeRequest) store() domain.Store {
	s := domain.Store{Name: req.Name, Location: req.Location, Address: req.Address, Phone: req.Phone, Email: req.Email}
	s.Normalize()
	return s
}

func (h *Handler) createStore(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBodyError(w, r, err)
		return
	}
	s := req.store()
	if err := s.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := h.repo.CreateStore(r.Context(), &s); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, s)
}

func (h *Handler) listStores(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	includeInactive := r.URL.Query().Get("includeInactive") == "true"
	stores, err := h.repo.ListStores(r.Context(), includeInactive, page)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stores)
}

func (h *Handler) getStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid store id")
		return
	}
	s, err := h.repo.GetStore(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *Handler) updateStore(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid store id")
		return
	}
	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBodyError(w, r, err)
		return
	}
	s := req.store()
	s.ID = id
	if err := s.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := h.repo.UpdateStore(r.Context(), &s); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *Handler) deactivateStore(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid store id")
		return
	}
	if err := h.repo.DeactivateStore(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
