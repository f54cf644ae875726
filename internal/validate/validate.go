package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
)

var (
	emailRegex   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	txHashRegex  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	uuidRegex    = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors collects field failures during validation of one input.
type Errors struct {
	fields []FieldError
}

func (e *Errors) Add(field, message string) {
	e.fields = append(e.fields, FieldError{Field: field, Message: message})
}

func (e *Errors) Addf(field, format string, args ...any) {
	e.Add(field, fmt.Sprintf(format, args...))
}

func (e *Errors) Empty() bool {
	return len(e.fields) == 0
}

func (e *Errors) Fields() []FieldError {
	return e.fields
}

// Err returns nil when no field failed, otherwise a VALIDATION_ERROR carrying
// the field list as details. Validation never mutates state, so the caller can
// correct the input and retry.
func (e *Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return apperrors.ValidationError("Validation failed").WithDetails(e.fields)
}

func IsValidUUID(s string) bool {
	return s != "" && uuidRegex.MatchString(s)
}

func IsValidEmail(s string) bool {
	return s != "" && len(s) <= 254 && emailRegex.MatchString(s)
}

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex chain address.
func IsValidAddress(s string) bool {
	return addressRegex.MatchString(s)
}

// IsValidTxHash reports whether s is a 0x-prefixed 32-byte hex transaction hash.
func IsValidTxHash(s string) bool {
	return txHashRegex.MatchString(s)
}

func IsValidEnum(value string, validValues []string) bool {
	if value == "" {
		return true
	}
	for _, v := range validValues {
		if value == v {
			return true
		}
	}
	return false
}

// NormalizeEmail lowercases and trims an email for case-insensitive uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeAddress lowercases a chain address; uniqueness is case-insensitive.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// CheckPasswordStrength enforces the minimum credential policy: at least
// 8 characters with at least one letter and one digit.
func CheckPasswordStrength(password string) error {
	var errs Errors
	passwordStrength(&errs, "password", password)
	return errs.Err()
}

func passwordStrength(errs *Errors, field, password string) {
	if len(password) < 8 {
		errs.Add(field, "must be at least 8 characters")
		return
	}
	if len(password) > 128 {
		errs.Add(field, "must be at most 128 characters")
		return
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		errs.Add(field, "must contain at least one letter and one digit")
	}
}

func requireString(errs *Errors, field, value string, maxLen int) {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, "is required")
		return
	}
	if len(value) > maxLen {
		errs.Addf(field, "must be at most %d characters", maxLen)
	}
}

func optionalString(errs *Errors, field, value string, maxLen int) {
	if len(value) > maxLen {
		errs.Addf(field, "must be at most %d characters", maxLen)
	}
}

func checkTags(errs *Errors, field string, tags []string) {
	if len(tags) > maxTags {
		errs.Addf(field, "must have at most %d entries", maxTags)
		return
	}
	for i, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			errs.Addf(fmt.Sprintf("%s[%d]", field, i), "must not be empty")
		} else if len(tag) > maxTagLen {
			errs.Addf(fmt.Sprintf("%s[%d]", field, i), "must be at most %d characters", maxTagLen)
		}
	}
}
