package domain

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCustomerValidate(t *testing.T) {
	phone := regexp.MustCompile(DefaultPhonePattern)
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 1)
	past := now.AddDate(-30, 0, 0)
	badEmail := "nobody"

	cases := []struct {
		name     string
		customer Customer
		wantErr  bool
	}{
		{"local number", Customer{Name: "Ama", Phone: "0241234567"}, false},
		{"international number", Customer{Name: "Kofi", Phone: "+233501234567", DateOfBirth: &past}, false},
		{"missing name", Customer{Phone: "0241234567"}, true},
		{"bad prefix", Customer{Name: "Ama", Phone: "0841234567"}, true},
		{"too short", Customer{Name: "Ama", Phone: "024123"}, true},
		{"future birth date", Customer{Name: "Ama", Phone: "0241234567", DateOfBirth: &future}, true},
		{"bad email", Customer{Name: "Ama", Phone: "0241234567", Email: &badEmail}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.customer.Validate(phone, now)
			if tc.wantErr {
				assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCustomerNormalize(t *testing.T) {
	email := "  Ama@Example.COM "
	blank := "   "
	c := Customer{Name: " Ama ", Phone: "024 123 4567", Email: &email, Address: &blank}
	c.Normalize()

	assert.Equal(t, "Ama", c.Name)
	assert.Equal(t, "0241234567", c.Phone)
	assert.Equal(t, "ama@example.com", *c.Email)
	assert.Nil(t, c.Address)
}

func TestCustomerAge(t *testing.T) {
	dob := time.Date(1990, 10, 15, 0, 0, 0, 0, time.UTC)
	c := Customer{DateOfBirth: &dob}

	age, ok := c.Age(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, 35, age)

	age, _ = c.Age(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 36, age)

	_, ok = Customer{}.Age(time.Now())
	assert.False(t, ok)
}
