package repository

import (
	"context"
	"fmt"
	"time"

	"pharmapos/m/domain"
)

const storeColumns = `id, name, location, address, phone, email, active, created_at, updated_at`

func (r *Repository) CreateStore(ctx context.Context, s *domain.Store) error {
	now := time.Now().UTC()
	s.Active = true
	query := r.db.Rebind(`INSERT INTO stores (name, location, address, phone, email, active, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, query, s.Name, s.Location, s.Address, s.Phone, s.Email, s.Active, now, now).Scan(&s.ID); err != nil {
		return mapErr(ctx, err, "create store")
	}
	s.CreatedAt, s.UpdatedAt = now, now
	return nil
}

func (r *Repository) GetStore(ctx context.Context, id int64) (*domain.Store, error) {
	var s domain.Store
	query := r.db.Rebind(`SELECT ` + storeColumns + ` FROM stores WHERE id = ?`)
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, mapErr(ctx, err, fmt.Sprintf("store %d", id))
	}
	return &s, nil
}

// ListStores returns active stores unless includeInactive is set.
func (r *Repository) ListStores(ctx context.Context, includeInactive bool, p Page) ([]domain.Store, error) {
	var clauses []string
	var args []any
	if !includeInactive {
		clauses = append(clauses, "active = ?")
		args = append(args, true)
	}
	limit, offset := limitOffset(p)
	args = append(args, limit, offset)

	stores := []domain.Store{}
	query := `SELECT ` + storeColumns + ` FROM stores` + where(clauses) + ` ORDER BY name, id LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &stores, r.db.Rebind(query), args...); err != nil {
		return nil, mapErr(ctx, err, "list stores")
	}
	return stores, nil
}

func (r *Repository) UpdateStore(ctx context.Context, s *domain.Store) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`UPDATE stores SET name = ?, location = ?, address = ?, phone = ?, email = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, s.Name, s.Location, s.Address, s.Phone, s.Email, now, s.ID)
	if err != nil {
		return mapErr(ctx, err, "update store")
	}
	if err := expectOne(ctx, res, fmt.Sprintf("store %d", s.ID)); err != nil {
		return err
	}
	updated, err := r.GetStore(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *updated
	return nil
}

// DeactivateStore hides a store from listings. Its sales and inventory stay.
func (r *Repository) DeactivateStore(ctx context.Context, id int64) error {
	query := r.db.Rebind(`UPDATE stores SET active = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, false, time.Now().UTC(), id)
	if err != nil {
		return mapErr(ctx, err, "deactivate store")
	}
	return expectOne(ctx, res, fmt.Sprintf("store %d", id))
}
