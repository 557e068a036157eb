// Package forms holds the field validators shared by the wizard steps.
package forms

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validator validates a field value.
type Validator interface {
	// Validate checks if the value is valid.
	Validate(value any) error

	// Message returns the error message.
	Message() string
}

// Validation errors returned by the built-in validators.
var (
	ErrRequired    = errors.New("required")
	ErrInvalidCode = errors.New("invalid verification code")
	ErrInvalidMail = errors.New("invalid email")
	ErrNotAllowed  = errors.New("invalid option")
)

// emailPattern accepts the practical subset of RFC 5322 addresses that
// browsers accept for type=email inputs. Labels are 1-63 characters and
// cannot start or end with a hyphen, so "a@b." is rejected.
var emailPattern = regexp.MustCompile(
	"^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+" +
		"@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?" +
		"(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$",
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// IsValidEmail reports whether s is a syntactically valid email address.
// No DNS or deliverability checks are made.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsValidVerificationCode reports whether s is exactly six ASCII digits.
func IsValidVerificationCode(s string) bool {
	return codePattern.MatchString(s)
}

// RequiredValidator validates that a field is not empty.
type RequiredValidator struct{}

func (v RequiredValidator) Validate(value any) error {
	if value == nil {
		return ErrRequired
	}
	switch val := value.(type) {
	case string:
		if strings.TrimSpace(val) == "" {
			return ErrRequired
		}
	case []string:
		if len(val) == 0 {
			return ErrRequired
		}
	}
	return nil
}

func (v RequiredValidator) Message() string {
	return "This field is required"
}

// EmailValidator validates email format.
type EmailValidator struct{}

func (v EmailValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil // Skip if empty (use Required for that)
	}
	if !IsValidEmail(str) {
		return ErrInvalidMail
	}
	return nil
}

func (v EmailValidator) Message() string {
	return "Please enter a valid email address"
}

// VerificationCodeValidator validates a 6-digit one-time code.
type VerificationCodeValidator struct{}

func (v VerificationCodeValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil
	}
	if !IsValidVerificationCode(str) {
		return ErrInvalidCode
	}
	return nil
}

func (v VerificationCodeValidator) Message() string {
	return "Enter the 6-digit code from your email"
}

// MaxLengthValidator validates maximum string length.
type MaxLengthValidator struct {
	Max int
}

func (v MaxLengthValidator) Validate(value any) error {
	str, ok := value.(string)
	if !ok {
		return nil
	}
	if utf8.RuneCountInString(str) > v.Max {
		return fmt.Errorf("too long (max %d)", v.Max)
	}
	return nil
}

func (v MaxLengthValidator) Message() string {
	return fmt.Sprintf("Must be at most %d characters", v.Max)
}

// OneOfValidator validates that value is one of the allowed option values.
type OneOfValidator struct {
	Values []string
	Msg    string
}

func (v OneOfValidator) Validate(value any) error {
	str, _ := value.(string)
	for _, allowed := range v.Values {
		if str == allowed {
			return nil
		}
	}
	return ErrNotAllowed
}

func (v OneOfValidator) Message() string {
	if v.Msg != "" {
		return v.Msg
	}
	return "Invalid selection"
}

// Convenience constructors

// Required returns a required validator.
func Required() Validator {
	return RequiredValidator{}
}

// Email returns an email validator.
func Email() Validator {
	return EmailValidator{}
}

// VerificationCode returns a one-time code validator.
func VerificationCode() Validator {
	return VerificationCodeValidator{}
}

// MaxLength returns a maximum length validator.
func MaxLength(n int) Validator {
	return MaxLengthValidator{Max: n}
}

// OneOf returns a validator accepting only the values of opts.
func OneOf(msg string, opts []Option) Validator {
	values := make([]string, len(opts))
	for i, o := range opts {
		values[i] = o.Value
	}
	return OneOfValidator{Values: values, Msg: msg}
}

// Check runs validators in order and returns the message of the first one
// that fails, or "" when the value passes all of them.
func Check(value any, validators ...Validator) string {
	for _, v := range validators {
		if err := v.Validate(value); err != nil {
			return v.Message()
		}
	}
	return ""
}
