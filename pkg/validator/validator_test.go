package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegister(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		email    string
		password string
		fields   []string
	}{
		{"valid", "Ana", "ana@example.com", "Passw0rd!", nil},
		{"missing everything", "", "", "", []string{"name", "email", "password"}},
		{"short name", "A", "ana@example.com", "Passw0rd!", []string{"name"}},
		{"bad email", "Ana", "not-an-email", "Passw0rd!", []string{"email"}},
		{"weak password", "Ana", "ana@example.com", "password", []string{"password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateRegister(tt.userName, tt.email, tt.password)
			assert.Len(t, errs, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, errs, f)
			}
		})
	}
}

func TestWeakPasswordListsMissingClasses(t *testing.T) {
	errs := ValidateRegister("Ana", "ana@example.com", "alllowercase")
	assert.Contains(t, errs["password"], "one uppercase letter")
	assert.Contains(t, errs["password"], "one number")
	assert.NotContains(t, errs["password"], "lowercase")
}

func TestValidateProfileAllowsEmptyName(t *testing.T) {
	assert.False(t, ValidateProfile("").HasErrors())
	assert.False(t, ValidateProfile("   ").HasErrors())
	assert.False(t, ValidateProfile("\t\n").HasErrors())
	assert.True(t, ValidateProfile("x").HasErrors())
	assert.True(t, ValidateProfile("  x  ").HasErrors())
}

func TestValidateReaction(t *testing.T) {
	assert.False(t, ValidateReaction("👍", "add").HasErrors())
	assert.Contains(t, ValidateReaction("", "add"), "reaction")
	assert.Contains(t, ValidateReaction("👍", "toggle"), "action")
	assert.Contains(t, ValidateReaction(strings.Repeat("😀", 17), "remove"), "reaction")
}

func TestValidationErrorsAsError(t *testing.T) {
	var err error = ValidationErrors{"name": "Name is required"}
	assert.Contains(t, err.Error(), "name: Name is required")
}
