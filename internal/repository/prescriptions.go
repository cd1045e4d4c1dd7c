package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pharmapos/m/domain"
)

const prescriptionColumns = `id, patient_id, doctor_id, store_id, diagnosis, prescribed_date, expiry_date, refills, status, created_at, updated_at`

// PrescriptionFilter narrows ListPrescriptions.
type PrescriptionFilter struct {
	PatientID int64
	StoreID   int64
}

// CreatePrescription stores the prescription and its items in one transaction.
func (r *Repository) CreatePrescription(ctx context.Context, p *domain.Prescription) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapErr(ctx, err, "begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if p.Status == "" {
		p.Status = domain.PrescriptionActive
	}
	query := tx.Rebind(`INSERT INTO prescriptions (patient_id, doctor_id, store_id, diagnosis, prescribed_date, expiry_date, refills, status, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	if err = tx.QueryRowxContext(ctx, query, p.PatientID, p.DoctorID, p.StoreID, p.Diagnosis,
		p.PrescribedDate.UTC(), p.ExpiryDate.UTC(), p.Refills, p.Status, now, now).Scan(&p.ID); err != nil {
		return mapErr(ctx, err, "create prescription")
	}

	itemQuery := tx.Rebind(`INSERT INTO prescription_items (prescription_id, position, drug_id, dosage, frequency, duration, quantity, instructions)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	for i := range p.Items {
		item := &p.Items[i]
		item.PrescriptionID = p.ID
		if err = tx.QueryRowxContext(ctx, itemQuery, p.ID, item.Position, item.DrugID, item.Dosage,
			item.Frequency, item.Duration, item.Quantity, item.Instructions).Scan(&item.ID); err != nil {
			return mapErr(ctx, err, fmt.Sprintf("create prescription item %d", item.Position))
		}
	}

	if err = tx.Commit(); err != nil {
		return mapErr(ctx, err, "commit prescription")
	}
	p.CreatedAt, p.UpdatedAt = now, now
	p.Evaluate(now)
	return nil
}

// GetPrescription loads a prescription with its items and the status in
// effect now.
func (r *Repository) GetPrescription(ctx context.Context, id int64, now time.Time) (*domain.Prescription, error) {
	var p domain.Prescription
	query := r.db.Rebind(`SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE id = ?`)
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, mapErr(ctx, err, fmt.Sprintf("prescription %d", id))
	}
	prescriptions := []domain.Prescription{p}
	if err := r.loadItems(ctx, prescriptions); err != nil {
		return nil, err
	}
	p = prescriptions[0]
	p.Evaluate(now)
	return &p, nil
}

func (r *Repository) ListPrescriptions(ctx context.Context, f PrescriptionFilter, now time.Time, pg Page) ([]domain.Prescription, error) {
	var (
		clauses []string
		args    []any
	)
	if f.PatientID > 0 {
		clauses = append(clauses, "patient_id = ?")
		args = append(args, f.PatientID)
	}
	if f.StoreID > 0 {
		clauses = append(clauses, "store_id = ?")
		args = append(args, f.StoreID)
	}
	limit, offset := limitOffset(pg)
	args = append(args, limit, offset)

	prescriptions := []domain.Prescription{}
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions` + where(clauses) + ` ORDER BY prescribed_date DESC, id DESC LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &prescriptions, r.db.Rebind(query), args...); err != nil {
		return nil, mapErr(ctx, err, "list prescriptions")
	}
	if err := r.loadItems(ctx, prescriptions); err != nil {
		return nil, err
	}
	for i := range prescriptions {
		prescriptions[i].Evaluate(now)
	}
	return prescriptions, nil
}

// SetPrescriptionStatus persists a stored status. Only active prescriptions
// that have not yet expired at now may change.
func (r *Repository) SetPrescriptionStatus(ctx context.Context, id int64, status domain.PrescriptionStatus, now time.Time) error {
	if !status.Stored() {
		return domain.Invalidf("status %q cannot be set", status)
	}
	query := r.db.Rebind(`UPDATE prescriptions SET status = ?, updated_at = ? WHERE id = ? AND status = ? AND expiry_date >= ?`)
	res, err := r.db.ExecContext(ctx, query, status, now.UTC(), id, domain.PrescriptionActive, now.UTC())
	if err != nil {
		return mapErr(ctx, err, "update prescription status")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return mapErr(ctx, err, "update prescription status")
	}
	if rows == 0 {
		current, err := r.GetPrescription(ctx, id, now)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: prescription %d is %s", domain.ErrInvalidState, id, current.Status)
	}
	return nil
}

func (r *Repository) loadItems(ctx context.Context, prescriptions []domain.Prescription) error {
	if len(prescriptions) == 0 {
		return nil
	}
	ids := make([]int64, len(prescriptions))
	for i, p := range prescriptions {
		ids[i] = p.ID
	}
	query, args, err := sqlx.In(`SELECT id, prescription_id, position, drug_id, dosage, frequency, duration, quantity, instructions
                FROM prescription_items WHERE prescription_id IN (?) ORDER BY prescription_id, position`, ids)
	if err != nil {
		return fmt.Errorf("prepare prescription items query: %w", err)
	}

	var rows []domain.PrescriptionItem
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return mapErr(ctx, err, "load prescription items")
	}
	byPrescription := make(map[int64][]domain.PrescriptionItem)
	for _, row := range rows {
		byPrescription[row.PrescriptionID] = append(byPrescription[row.PrescriptionID], row)
	}
	for i := range prescriptions {
		prescriptions[i].Items = byPrescription[prescriptions[i].ID]
		if prescriptions[i].Items == nil {
			prescriptions[i].Items = []domain.PrescriptionItem{}
		}
	}
	return nil
}
