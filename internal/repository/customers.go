package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"pharmapos/m/domain"
)

const customerColumns = `id, name, phone, email, address, date_of_birth, created_at, updated_at, deleted_at`

func (r *Repository) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`INSERT INTO customers (name, phone, email, address, date_of_birth, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, query, c.Name, c.Phone, c.Email, c.Address, c.DateOfBirth, now, now).Scan(&c.ID); err != nil {
		return mapErr(ctx, err, "create customer")
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

func (r *Repository) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	query := r.db.Rebind(`SELECT ` + customerColumns + ` FROM customers WHERE id = ? AND deleted_at IS NULL`)
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, mapErr(ctx, err, fmt.Sprintf("customer %d", id))
	}
	return &c, nil
}

// CustomerExists reports whether a live customer with id exists.
func (r *Repository) CustomerExists(ctx context.Context, q sqlx.ExtContext, id int64) (bool, error) {
	var n int
	query := q.Rebind(`SELECT COUNT(*) FROM customers WHERE id = ? AND deleted_at IS NULL`)
	if err := sqlx.GetContext(ctx, q, &n, query, id); err != nil {
		return false, mapErr(ctx, err, "check customer")
	}
	return n > 0, nil
}

// SearchCustomers matches name, phone or email.
func (r *Repository) SearchCustomers(ctx context.Context, term string, p Page) ([]domain.Customer, error) {
	clauses := []string{"deleted_at IS NULL"}
	var args []any
	if term = strings.TrimSpace(term); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		clauses = append(clauses, "(LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(COALESCE(email, '')) LIKE ?)")
		args = append(args, like, like, like)
	}
	limit, offset := limitOffset(p)
	args = append(args, limit, offset)

	customers := []domain.Customer{}
	query := `SELECT ` + customerColumns + ` FROM customers` + where(clauses) + ` ORDER BY name, id LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &customers, r.db.Rebind(query), args...); err != nil {
		return nil, mapErr(ctx, err, "search customers")
	}
	return customers, nil
}

func (r *Repository) UpdateCustomer(ctx context.Context, c *domain.Customer) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`UPDATE customers SET name = ?, phone = ?, email = ?, address = ?, date_of_birth = ?, updated_at = ?
                WHERE id = ? AND deleted_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, c.Name, c.Phone, c.Email, c.Address, c.DateOfBirth, now, c.ID)
	if err != nil {
		return mapErr(ctx, err, "update customer")
	}
	if err := expectOne(ctx, res, fmt.Sprintf("customer %d", c.ID)); err != nil {
		return err
	}
	updated, err := r.GetCustomer(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = *updated
	return nil
}

func (r *Repository) DeleteCustomer(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`UPDATE customers SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return mapErr(ctx, err, "delete customer")
	}
	return expectOne(ctx, res, fmt.Sprintf("customer %d", id))
}
