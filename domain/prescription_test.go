package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPrescription() Prescription {
	prescribed := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	return Prescription{
		PatientID:      1,
		DoctorID:       2,
		StoreID:        3,
		Diagnosis:      "malaria",
		PrescribedDate: prescribed,
		ExpiryDate:     prescribed.AddDate(0, 1, 0),
		Items: []PrescriptionItem{
			{DrugID: 4, Dosage: "2 tablets", Frequency: "twice daily", Duration: "3 days", Quantity: 12},
			{DrugID: 5, Dosage: "500mg", Frequency: "once daily", Duration: "5 days", Quantity: 5},
		},
	}
}

func TestPrescriptionValidate(t *testing.T) {
	p := validPrescription()
	require.NoError(t, p.Validate())
	assert.Equal(t, 1, p.Items[0].Position)
	assert.Equal(t, 2, p.Items[1].Position)

	cases := map[string]func(p *Prescription){
		"expiry before prescribed": func(p *Prescription) { p.ExpiryDate = p.PrescribedDate.Add(-time.Hour) },
		"expiry equal prescribed":  func(p *Prescription) { p.ExpiryDate = p.PrescribedDate },
		"negative refills":         func(p *Prescription) { p.Refills = -1 },
		"no items":                 func(p *Prescription) { p.Items = nil },
		"zero quantity":            func(p *Prescription) { p.Items[1].Quantity = 0 },
		"missing dosage":           func(p *Prescription) { p.Items[0].Dosage = "  " },
		"missing patient":          func(p *Prescription) { p.PatientID = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := validPrescription()
			mutate(&p)
			assert.True(t, errors.Is(p.Validate(), ErrValidation))
		})
	}
}

func TestPrescriptionEvaluate(t *testing.T) {
	p := validPrescription()
	p.Status = PrescriptionActive

	p.Evaluate(p.ExpiryDate.AddDate(0, 0, 1))
	assert.Equal(t, PrescriptionExpired, p.Status)
	assert.False(t, p.Status.Stored())
}
