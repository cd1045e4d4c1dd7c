package seed

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"pharmapos/m/domain"
	"pharmapos/m/internal/logging"
)

// UserStore is the subset of the repository the bootstrap needs.
type UserStore interface {
	CountUsers(ctx context.Context) (int64, error)
	CreateUser(ctx context.Context, u *domain.User) error
}

// EnsureAdmin creates the configured admin account when no users exist yet.
// It reports whether an account was created.
func EnsureAdmin(ctx context.Context, users UserStore, email, password string) (bool, error) {
	n, err := users.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if email == "" || password == "" {
		logging.Warn("no users exist and ADMIN_EMAIL/ADMIN_PASSWORD are not set")
		return false, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	admin := domain.User{Username: "admin", Email: email, Password: string(hashed), Role: domain.RoleAdmin}
	if err := users.CreateUser(ctx, &admin); err != nil {
		return false, err
	}
	logging.Info("created bootstrap admin", "email", admin.Email)
	return true, nil
}
