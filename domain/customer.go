package domain

import (
	"regexp"
	"strings"
	"time"
)

// DefaultPhonePattern accepts Ghanaian mobile numbers in local or international form.
const DefaultPhonePattern = `^(\+233|0)[235][0-9]{8}$`

type Customer struct {
	ID          int64      `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Phone       string     `db:"phone" json:"phone"`
	Email       *string    `db:"email" json:"email,omitempty"`
	Address     *string    `db:"address" json:"address,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt   *time.Time `db:"deleted_at" json:"-"`
}

func (c *Customer) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.ReplaceAll(strings.TrimSpace(c.Phone), " ", "")
	c.Email = trimmedOrNil(c.Email)
	if c.Email != nil {
		lower := strings.ToLower(*c.Email)
		c.Email = &lower
	}
	c.Address = trimmedOrNil(c.Address)
}

// Validate checks the phone against the regional pattern and rejects birth
// dates in the future.
func (c Customer) Validate(phone *regexp.Regexp, now time.Time) error {
	if c.Name == "" {
		return Invalidf("name is required")
	}
	if !phone.MatchString(c.Phone) {
		return Invalidf("phone %q does not match the expected format", c.Phone)
	}
	if c.Email != nil && !strings.Contains(*c.Email, "@") {
		return Invalidf("email %q is not valid", *c.Email)
	}
	if c.DateOfBirth != nil && c.DateOfBirth.After(now) {
		return Invalidf("dateOfBirth must not be in the future")
	}
	return nil
}

// Age is computed from the date of birth; ok is false when it is unknown.
func (c Customer) Age(now time.Time) (age int, ok bool) {
	if c.DateOfBirth == nil {
		return 0, false
	}
	dob := c.DateOfBirth.UTC()
	now = now.UTC()
	age = now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return age, true
}

func trimmedOrNil(val *string) *string {
	if val == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
