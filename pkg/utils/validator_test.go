package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		slug    string
		wantErr bool
	}{
		{"acme", false},
		{"acme-labs-2", false},
		{"ab", true},
		{"Acme", true},
		{"acme--labs", true},
		{"-acme", true},
		{"acme_labs", true},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			err := ValidateSlug(tt.slug)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-labs", Slugify("  Acme Labs! "))
	assert.Equal(t, "r-d-team", Slugify("R&D   Team"))
	assert.NoError(t, ValidateSlug(Slugify("Northwind Traders")))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("jane@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail(""))
}

func TestValidationMessages(t *testing.T) {
	type request struct {
		Email  string  `validate:"required,email"`
		Amount float64 `validate:"gt=0"`
		Slug   string  `validate:"slug"`
	}

	err := Validator().Struct(request{Email: "bad", Amount: 0, Slug: "Bad Slug"})
	require.Error(t, err)

	msgs := ValidationMessages(err)
	assert.Contains(t, msgs, "email: must be a valid email")
	assert.Contains(t, msgs, "amount: must be greater than 0")
	assert.Contains(t, msgs, "slug: must be a lowercase slug")
}

func TestNewID_Sortable(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}
