package api

import (
	"net/http"

	"pharmapos/m/domain"
)

type drugRequest struct {
	Name        string `json:"name"`
	GenericName string `json:"genericName"`
	Category    string `json:"category"`
	Strength    string `json:"strength"`
	Form        string `json:"form"`
}

func (req drugRequest) drug() domain.Drug {
	d := domain.Drug{Name: req.Name, GenericName: req.GenericName, Category: req.Category, Strength: req.Strength, Form: req.Form}
	d.Normalize()
	return d
}

func (h *Handler) createDrug(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	var req drugRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBodyError(w, r, err)
		return
	}
	d := req.drug()
	if err := d.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := h.repo.CreateDrug(r.Context(), &d); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (h *Handler) searchDrugs(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	drugs, err := h.repo.SearchDrugs(r.Context(), r.URL.Query().Get("query"), page)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, drugs)
}

func (h *Handler) getDrug(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid drug id")
		return
	}
	d, err := h.repo.GetDrug(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *Handler) updateDrug(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid drug id")
		return
	}
	var req drugRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBodyError(w, r, err)
		return
	}
	d := req.drug()
	d.ID = id
	if err := d.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := h.repo.UpdateDrug(r.Context(), &d); err != nil {
		respondDomainError(w, r, err)
		return
	}
	updated, err := h.repo.GetDrug(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteDrug(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid drug id")
		return
	}
	if err := h.repo.DeleteDrug(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
