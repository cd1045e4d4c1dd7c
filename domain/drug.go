package domain

import (
	"strings"
	"time"
)

type Drug struct {
	ID          int64      `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	GenericName string     `db:"generic_name" json:"genericName"`
	Category    string     `db:"category" json:"category"`
	Strength    string     `db:"strength" json:"strength"`
	Form        string     `db:"form" json:"form"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt   *time.Time `db:"deleted_at" json:"-"`
}

// Normalize trims every free-text field in place.
func (d *Drug) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.GenericName = strings.TrimSpace(d.GenericName)
	d.Category = strings.TrimSpace(d.Category)
	d.Strength = strings.TrimSpace(d.Strength)
	d.Form = strings.TrimSpace(d.Form)
}

func (d Drug) Validate() error {
	if d.Name == "" {
		return Invalidf("name is required")
	}
	if d.Form == "" {
		return Invalidf("form is required")
	}
	return nil
}
