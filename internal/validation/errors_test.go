package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors_EmptyIsNil(t *testing.T) {
	errs := Errors{}
	errs.Required("title", "Go in Action")
	assert.NoError(t, errs.Err())
}

func TestErrors_CollectsFields(t *testing.T) {
	errs := Errors{}
	errs.Required("title", "  ")
	errs.Email("email", "not-an-email")
	errs.Add("title", "second message is ignored")

	err := errs.Err()
	require.Error(t, err)
	assert.Equal(t, "title is required", errs["title"])
	assert.Equal(t, "invalid email format", errs["email"])
	assert.Equal(t, "validation failed: email: invalid email format; title: title is required", err.Error())
}

func TestErrors_Email(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"reader@example.com", true},
		{"Reader <reader@example.com>", false},
		{"", false},
		{"missing-at.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			errs := Errors{}
			errs.Email("email", tt.value)
			assert.Equal(t, tt.valid, errs.Err() == nil)
		})
	}
}

func TestAs_UnwrapsChain(t *testing.T) {
	wrapped := fmt.Errorf("register: %w", Single("phone", "phone is required"))

	ve, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "phone is required", ve["phone"])

	_, ok = As(fmt.Errorf("plain"))
	assert.False(t, ok)
}
