package security

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
)

const (
	minPasswordLength   = 8
	minCharacterClasses = 2
	minZxcvbnScore      = 2
	maxUsernameLength   = 32
)

// ValidationError represents a single register-form violation.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

// Error implements error for ValidationError.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// RegistrationPolicy validates the register form before it is submitted.
type RegistrationPolicy struct {
	minScore int
}

// NewRegistrationPolicy returns the policy used by the register view.
func NewRegistrationPolicy() *RegistrationPolicy {
	return &RegistrationPolicy{minScore: minZxcvbnScore}
}

// Validate returns the first violation found in the form, checking fields in display order.
func (p *RegistrationPolicy) Validate(form domain.Registration) error {
	username := strings.TrimSpace(form.Username)
	switch {
	case username == "":
		return &ValidationError{Field: "username", Code: "required", Message: "username is required"}
	case len([]rune(username)) > maxUsernameLength:
		return &ValidationError{Field: "username", Code: "max_length",
			Message: fmt.Sprintf("username must be at most %d characters long", maxUsernameLength)}
	case strings.ContainsFunc(username, unicode.IsSpace):
		return &ValidationError{Field: "username", Code: "whitespace", Message: "username must not contain spaces"}
	}

	if _, err := mail.ParseAddress(strings.TrimSpace(form.Email)); err != nil {
		return &ValidationError{Field: "email", Code: "invalid", Message: "email address is invalid"}
	}

	return p.validatePassword(form.Password, username, form.Email, form.FirstName, form.LastName)
}

func (p *RegistrationPolicy) validatePassword(password string, userInputs ...string) error {
	if len([]rune(password)) < minPasswordLength {
		return &ValidationError{Field: "password", Code: "min_length",
			Message: fmt.Sprintf("password must be at least %d characters long", minPasswordLength)}
	}

	if characterClasses(password) < minCharacterClasses {
		return &ValidationError{Field: "password", Code: "character_classes",
			Message: fmt.Sprintf("password must include at least %d character types", minCharacterClasses)}
	}

	inputs := make([]string, 0, len(userInputs))
	for _, in := range userInputs {
		if in = strings.TrimSpace(in); in != "" {
			inputs = append(inputs, in)
		}
	}
	if result := zxcvbn.PasswordStrength(password, inputs); result.Score < p.minScore {
		return &ValidationError{Field: "password", Code: "weak_password",
			Message: "password is too weak; choose a more complex value"}
	}

	return nil
}

func characterClasses(password string) int {
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsSymbol(r) || unicode.IsPunct(r):
			symbol = true
		}
	}

	classes := 0
	for _, ok := range []bool{upper, lower, digit, symbol} {
		if ok {
			classes++
		}
	}
	return classes
}
