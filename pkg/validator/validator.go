package validator

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

// Error lets ValidationErrors travel through service layers as an error.
func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for field, msg := range v {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

const maxEmojiRunes = 16

func ValidateRegister(name, email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateName(name, errs)

	// Email
	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}

	// Password
	validatePassword(password, errs)

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}

	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

// ValidateProfile checks a profile update. An empty or blank name means
// "keep the current one".
func ValidateProfile(name string) ValidationErrors {
	errs := make(ValidationErrors)
	if strings.TrimSpace(name) != "" {
		validateName(name, errs)
	}
	return errs
}

func ValidateReaction(emoji, action string) ValidationErrors {
	errs := make(ValidationErrors)

	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		errs.Add("reaction", "Reaction emoji is required")
	} else if utf8.RuneCountInString(emoji) > maxEmojiRunes {
		errs.Add("reaction", "Reaction is too long")
	}

	if action != "add" && action != "remove" {
		errs.Add("action", "Action must be add or remove")
	}

	return errs
}

func validateName(name string, errs ValidationErrors) {
	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Name is required")
	} else if utf8.RuneCountInString(name) < 2 {
		errs.Add("name", "Name must be at least 2 characters")
	} else if utf8.RuneCountInString(name) > 100 {
		errs.Add("name", "Name is too long")
	}
}

func validatePassword(password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
		return
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("password", fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
