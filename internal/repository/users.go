package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmapos/m/domain"
)

const userColumns = `id, username, email, password, role, store_id, active, created_at`

// CreateUser stores u with an already hashed password.
func (r *Repository) CreateUser(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Active = true
	query := r.db.Rebind(`INSERT INTO users (username, email, password, role, store_id, active, created_at)
                VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, query, u.Username, u.Email, u.Password, u.Role, u.StoreID, u.Active, now).Scan(&u.ID); err != nil {
		return mapErr(ctx, err, "create user")
	}
	u.CreatedAt = now
	return nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	if err := r.db.GetContext(ctx, &u, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, mapErr(ctx, err, "user")
	}
	return &u, nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		return nil, mapErr(ctx, err, fmt.Sprintf("user %d", id))
	}
	return &u, nil
}

func (r *Repository) ListUsers(ctx context.Context, p Page) ([]domain.User, error) {
	limit, offset := limitOffset(p)
	users := []domain.User{}
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &users, query, limit, offset); err != nil {
		return nil, mapErr(ctx, err, "list users")
	}
	return users, nil
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, mapErr(ctx, err, "count users")
	}
	return n, nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id int64, hashed string) error {
	query := r.db.Rebind(`UPDATE users SET password = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, hashed, id)
	if err != nil {
		return mapErr(ctx, err, "update password")
	}
	return expectOne(ctx, res, fmt.Sprintf("user %d", id))
}

func (r *Repository) DeactivateUser(ctx context.Context, id int64) error {
	query := r.db.Rebind(`UPDATE users SET active = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, false, id)
	if err != nil {
		return mapErr(ctx, err, "deactivate user")
	}
	return expectOne(ctx, res, fmt.Sprintf("user %d", id))
}
