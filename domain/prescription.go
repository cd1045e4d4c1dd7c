package domain

import (
	"strings"
	"time"
)

type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "active"
	PrescriptionCompleted PrescriptionStatus = "completed"
	PrescriptionExpired   PrescriptionStatus = "expired"
	PrescriptionCancelled PrescriptionStatus = "cancelled"
)

// Stored reports whether the status may be written to the database. Expired
// is only ever derived.
func (s PrescriptionStatus) Stored() bool {
	switch s {
	case PrescriptionActive, PrescriptionCompleted, PrescriptionCancelled:
		return true
	}
	return false
}

type PrescriptionItem struct {
	ID             int64  `db:"id" json:"id"`
	PrescriptionID int64  `db:"prescription_id" json:"-"`
	Position       int    `db:"position" json:"position"`
	DrugID         int64  `db:"drug_id" json:"drugId"`
	Dosage         string `db:"dosage" json:"dosage"`
	Frequency      string `db:"frequency" json:"frequency"`
	Duration       string `db:"duration" json:"duration"`
	Quantity       int64  `db:"quantity" json:"quantity"`
	Instructions   string `db:"instructions" json:"instructions"`
}

type Prescription struct {
	ID             int64              `db:"id" json:"id"`
	PatientID      int64              `db:"patient_id" json:"patientId"`
	DoctorID       int64              `db:"doctor_id" json:"doctorId"`
	StoreID        int64              `db:"store_id" json:"storeId"`
	Diagnosis      string             `db:"diagnosis" json:"diagnosis"`
	PrescribedDate time.Time          `db:"prescribed_date" json:"prescribedDate"`
	ExpiryDate     time.Time          `db:"expiry_date" json:"expiryDate"`
	Refills        int64              `db:"refills" json:"refills"`
	Status         PrescriptionStatus `db:"status" json:"status"`
	Items          []PrescriptionItem `db:"-" json:"items"`
	CreatedAt      time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updatedAt"`
}

// Evaluate replaces the stored status with the one in effect at now.
func (p *Prescription) Evaluate(now time.Time) {
	p.Status = PrescriptionStatusAt(p.ExpiryDate, p.Status, now)
}

func (p *Prescription) Validate() error {
	if p.PatientID <= 0 || p.DoctorID <= 0 || p.StoreID <= 0 {
		return Invalidf("patientId, doctorId and storeId are required")
	}
	if p.PrescribedDate.IsZero() || p.ExpiryDate.IsZero() {
		return Invalidf("prescribedDate and expiryDate are required")
	}
	if !p.ExpiryDate.After(p.PrescribedDate) {
		return Invalidf("expiryDate must be after prescribedDate")
	}
	if p.Refills < 0 {
		return Invalidf("refills must not be negative")
	}
	if len(p.Items) == 0 {
		return Invalidf("at least one item is required")
	}
	for i := range p.Items {
		item := &p.Items[i]
		item.Position = i + 1
		item.Dosage = strings.TrimSpace(item.Dosage)
		if item.DrugID <= 0 {
			return Invalidf("item %d: drugId is required", item.Position)
		}
		if item.Quantity <= 0 {
			return Invalidf("item %d: quantity must be positive", item.Position)
		}
		if item.Dosage == "" {
			return Invalidf("item %d: dosage is required", item.Position)
		}
	}
	return nil
}
