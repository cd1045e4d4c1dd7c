package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmapos/m/domain"
)

const drugColumns = `id, name, generic_name, category, strength, form, created_at, updated_at, deleted_at`

func (r *Repository) CreateDrug(ctx context.Context, d *domain.Drug) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`INSERT INTO drugs (name, generic_name, category, strength, form, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, query, d.Name, d.GenericName, d.Category, d.Strength, d.Form, now, now).Scan(&d.ID); err != nil {
		return mapErr(ctx, err, "create drug")
	}
	d.CreatedAt, d.UpdatedAt = now, now
	return nil
}

// GetDrug returns a drug that has not been deleted.
func (r *Repository) GetDrug(ctx context.Context, id int64) (*domain.Drug, error) {
	var d domain.Drug
	query := r.db.Rebind(`SELECT ` + drugColumns + ` FROM drugs WHERE id = ? AND deleted_at IS NULL`)
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		return nil, mapErr(ctx, err, fmt.Sprintf("drug %d", id))
	}
	return &d, nil
}

// SearchDrugs matches name or generic name case-insensitively.
func (r *Repository) SearchDrugs(ctx context.Context, term string, p Page) ([]domain.Drug, error) {
	clauses := []string{"deleted_at IS NULL"}
	var args []any
	if term = strings.TrimSpace(term); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		clauses = append(clauses, "(LOWER(name) LIKE ? OR LOWER(generic_name) LIKE ?)")
		args = append(args, like, like)
	}
	limit, offset := limitOffset(p)
	args = append(args, limit, offset)

	drugs := []domain.Drug{}
	query := `SELECT ` + drugColumns + ` FROM drugs` + where(clauses) + ` ORDER BY name, id LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &drugs, r.db.Rebind(query), args...); err != nil {
		return nil, mapErr(ctx, err, "search drugs")
	}
	return drugs, nil
}

func (r *Repository) UpdateDrug(ctx context.Context, d *domain.Drug) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`UPDATE drugs SET name = ?, generic_name = ?, category = ?, strength = ?, form = ?, updated_at = ?
                WHERE id = ? AND deleted_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, d.Name, d.GenericName, d.Category, d.Strength, d.Form, now, d.ID)
	if err != nil {
		return mapErr(ctx, err, "update drug")
	}
	if err := expectOne(ctx, res, fmt.Sprintf("drug %d", d.ID)); err != nil {
		return err
	}
	d.UpdatedAt = now
	return nil
}

func (r *Repository) DeleteDrug(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`UPDATE drugs SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return mapErr(ctx, err, "delete drug")
	}
	return expectOne(ctx, res, fmt.Sprintf("drug %d", id))
}
