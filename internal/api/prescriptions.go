package api

import (
	"net/http"
	"time"

	"pharmapos/m/domain"
	"pharmapos/m/internal/repository"
)

type prescriptionRequest struct {
	PatientID      int64                     `json:"patientId"`
	DoctorID       int64                     `json:"doctorId"`
	StoreID        int64                     `json:"storeId"`
	Diagnosis      string                    `json:"diagnosis"`
	PrescribedDate time.Time                 `json:"prescribedDate"`
	ExpiryDate     time.Time                 `json:"expiryDate"`
	Refills        int64                     `json:"refills"`
	Items          []prescriptionItemRequest `json:"items"`
}

type prescriptionItemRequest struct {
	DrugID       int64  `json:"drugId"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Quantity     int64  `json:"quantity"`
	Instructions string `json:"instructions"`
}

func (h *Handler) createPrescription(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleDoctor) {
		return
	}
	var req prescriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBodyError(w, r, err)
		return
	}

	claims := claimsFrom(r.Context())
	if claims.Role == domain.RoleDoctor {
		req.DoctorID = claims.UserID
	}
	p := domain.Prescription{
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		StoreID:        req.StoreID,
		Diagnosis:      req.Diagnosis,
		PrescribedDate: req.PrescribedDate.UTC(),
		ExpiryDate:     req.ExpiryDate.UTC(),
		Refills:        req.Refills,
		Status:         domain.PrescriptionActive,
	}
	for _, item := range req.Items {
		p.Items = append(p.Items, domain.PrescriptionItem{
			DrugID: item.DrugID, Dosage: item.Dosage, Frequency: item.Frequency,
			Duration: item.Duration, Quantity: item.Quantity, Instructions: item.Instructions,
		})
	}
	if err := p.Validate(); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if _, err := h.repo.GetCustomer(r.Context(), p.PatientID); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := h.repo.CreatePrescription(r.Context(), &p); err != nil {
		respondDomainError(w, r, err)
		return
	}
	p.Evaluate(h.now())
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handler) listPrescriptions(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	patientID, err := queryID(r, "patientId")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	storeID, err := queryID(r, "storeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.repo.ListPrescriptions(r.Context(), repository.PrescriptionFilter{PatientID: patientID, StoreID: storeID}, h.now(), page)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) getPrescription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid prescription id")
		return
	}
	p, err := h.repo.GetPrescription(r.Context(), id, h.now())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) setPrescriptionStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager, domain.RoleDoctor, domain.RoleCashier) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid prescription id")
		return
	}
	var payload struct {
		Status domain.PrescriptionStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		respondBodyError(w, r, err)
		return
	}
	if payload.Status != domain.PrescriptionCompleted && payload.Status != domain.PrescriptionCancelled {
		respondError(w, http.StatusUnprocessableEntity, "status must be completed or cancelled")
		return
	}
	now := h.now()
	if err := h.repo.SetPrescriptionStatus(r.Context(), id, payload.Status, now); err != nil {
		respondDomainError(w, r, err)
		return
	}
	p, err := h.repo.GetPrescription(r.Context(), id, now)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
