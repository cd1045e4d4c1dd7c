package api

import (
	"net/http"
	"time"

	"pharmapos/m/domain"
)

type customerRequest struct {
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	Email       *string `json:"email,omitempty"`
	Address     *string `json:"address,omitempty"`
	DateOfBirth string  `json:"dateOfBirth,omitempty"`
}

type customerResponse struct {
	domain.Customer
	Age *int `json:"age,omitempty"`
}

func (h *Handler) customerFromRequest(req customerRequest) (domain.Customer, error) {
	c := domain.Customer{Name: req.Name, Phone: req.Phone, Email: req.Email, Address: req.Address}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return c, domain.Invalidf("dateOfBirth must be in YYYY-MM-DD format")
		}
		c.DateOfBirth = &dob
	}
	c.Normalize()
	return c, c.Validate(h.phone, h.now())
}

func (h *Handler) withAge(c domain.Customer) customerResponse {
	resp := customerResponse{Customer: c}
	if age, ok := c.Age(h.now()); ok {
		resp.Age = &age
	}
	return resp
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBodyError(w, r, err)
		return
	}
	c, err := h.customerFromRequest(req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := h.repo.CreateCustomer(r.Context(), &c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.withAge(c))
}

func (h *Handler) searchCustomers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	customers, err := h.repo.SearchCustomers(r.Context(), r.URL.Query().Get("query"), page)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]customerResponse, len(customers))
	for i, c := range customers {
		out[i] = h.withAge(c)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	c, err := h.repo.GetCustomer(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.withAge(*c))
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	var req customerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBodyError(w, r, err)
		return
	}
	c, err := h.customerFromRequest(req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	c.ID = id
	if err := h.repo.UpdateCustomer(r.Context(), &c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.withAge(c))
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	if err := h.repo.DeleteCustomer(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
