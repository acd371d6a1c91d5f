package users

import (
	"fmt"
	"unicode"
)

const MinPasswordLength = 8

const (
	PolicyTooShort      = "password_too_short"
	PolicyNoLowercase   = "password_no_lowercase"
	PolicyNoUppercase   = "password_no_uppercase"
	PolicyNoSpecialChar = "password_no_special_char"
)

const passwordPolicyMessage = "Password must be at least 8 characters long and include an uppercase letter, a lowercase letter, and a symbol."

type PasswordPolicyError struct {
	Code    string
	Message string
}

func (e *PasswordPolicyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func isSymbol(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

// ValidatePassword checks the registration password policy. Underscore does not count as a symbol.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return &PasswordPolicyError{Code: PolicyTooShort, Message: passwordPolicyMessage}
	}
	var hasLower, hasUpper, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case isSymbol(r):
			hasSymbol = true
		}
	}
	switch {
	case !hasLower:
		return &PasswordPolicyError{Code: PolicyNoLowercase, Message: passwordPolicyMessage}
	case !hasUpper:
		return &PasswordPolicyError{Code: PolicyNoUppercase, Message: passwordPolicyMessage}
	case !hasSymbol:
		return &PasswordPolicyError{Code: PolicyNoSpecialChar, Message: passwordPolicyMessage}
	}
	return nil
}
