package auth

import (
	"errors"
	"net/mail"
	"regexp"

	"github.com/khanghh/riskauth/internal/users"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

func validateUsername(username string) *ValidationError {
	invalid := func(msg string) *ValidationError {
		return &ValidationError{Field: "username", Message: msg}
	}
	if username == "" {
		return invalid("Username is required.")
	}
	if len(username) < 3 {
		return invalid("Username must be at least 3 characters.")
	}
	if len(username) > 32 {
		return invalid("Username must be at most 32 characters.")
	}
	if first := username[0]; !(('A' <= first && first <= 'Z') || ('a' <= first && first <= 'z')) {
		return invalid("Username must start with a letter.")
	}
	if !usernameRegex.MatchString(username) {
		return invalid("Username can only contain letters, numbers, and underscores.")
	}
	return nil
}

func validateEmail(email string) *ValidationError {
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required."}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Message: "Invalid email address."}
	}
	return nil
}

func validatePassword(password string) *ValidationError {
	if password == "" {
		return &ValidationError{Field: "password", Message: "Password is required."}
	}
	var policyErr *users.PasswordPolicyError
	if err := users.ValidatePassword(password); errors.As(err, &policyErr) {
		return &ValidationError{Field: "password", Message: policyErr.Message}
	}
	return nil
}

func validateRegisterRequest(req RegisterRequest) *ValidationError {
	if err := validateUsername(req.Username); err != nil {
		return err
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	return validatePassword(req.Secret)
}
