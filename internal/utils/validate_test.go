package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name string
		pw   string
		ok   bool
	}{
		{"letters and digits", "abc12345", true},
		{"too short", "a1b2c3", false},
		{"digits only", "12345678", false},
		{"letters only", "abcdefgh", false},
		{"symbols rejected", "abc123!@#", false},
		{"empty", "", false},
		{"long mixed", "Xy9" + strings.Repeat("a1", 20), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.pw)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("john.doe-42_x"))
	assert.Error(t, ValidateUsername(""))
	assert.Error(t, ValidateUsername("with space"))
	assert.Error(t, ValidateUsername("emoji🎉"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", 151)))
	assert.NoError(t, ValidateUsername(strings.Repeat("a", 150)))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("User Name <user@example.com>"))
	assert.Error(t, ValidateEmail(""))
}

func TestValidateSocialLinks(t *testing.T) {
	assert.NoError(t, ValidateSocialLinks(nil))
	assert.NoError(t, ValidateSocialLinks(map[string]string{
		"facebook": "https://facebook.com/hotel",
		"website":  "https://hotel.example.com",
	}))
	assert.Error(t, ValidateSocialLinks(map[string]string{"myspace": "https://myspace.com/x"}))
	assert.Error(t, ValidateSocialLinks(map[string]string{"twitter": "   "}))
}

func TestNormalizeOrdering(t *testing.T) {
	allowed := map[string]bool{"name": true, "created_at": true}

	col, desc := NormalizeOrdering("name", "-created_at", allowed)
	assert.Equal(t, "name", col)
	assert.False(t, desc)

	col, desc = NormalizeOrdering("-name", "-created_at", allowed)
	assert.Equal(t, "name", col)
	assert.True(t, desc)

	// Unknown and empty values fall back to the default, direction included.
	for _, raw := range []string{"", "password_hash", "-id; DROP TABLE accounts"} {
		col, desc = NormalizeOrdering(raw, "-created_at", allowed)
		assert.Equal(t, "created_at", col)
		assert.True(t, desc)
	}
}
