package domain

import (
	"strings"
	"time"
)

// Store is a pharmacy branch that holds inventory.
type Store struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Location  string    `db:"location" json:"location"`
	Address   string    `db:"address" json:"address"`
	Phone     string    `db:"phone" json:"phone"`
	Email     string    `db:"email" json:"email"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

func (s *Store) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Location = strings.TrimSpace(s.Location)
	s.Address = strings.TrimSpace(s.Address)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
}

func (s Store) Validate() error {
	if s.Name == "" {
		return Invalidf("name is required")
	}
	if s.Email != "" && !strings.Contains(s.Email, "@") {
		return Invalidf("email %q is not valid", s.Email)
	}
	return nil
}
