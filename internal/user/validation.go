package user

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rx3lixir/laba_meet/pkg/password"
)

const (
	minUsernameLen = 2
	maxUsernameLen = 28
	minPasswordLen = 8
	specialChars   = "!@#$%^&*"
)

func validateSignupRequest(req *SignupRequest) error {
	if err := validateUsername(req.Username); err != nil {
		return err
	}

	if req.Email == "" {
		return fmt.Errorf("email is required")
	}
	if err := validateEmail(req.Email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	if err := validatePassword(req.Password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	return nil
}

func validateUpdateProfileRequest(req *UpdateProfileRequest) error {
	if req.Username == nil && req.Email == nil {
		return fmt.Errorf("nothing to update")
	}
	if req.Username != nil {
		if err := validateUsername(*req.Username); err != nil {
			return err
		}
	}
	if req.Email != nil {
		if err := validateEmail(*req.Email); err != nil {
			return fmt.Errorf("invalid email: %w", err)
		}
	}
	return nil
}

func validateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen {
		return fmt.Errorf("username must be at least %d characters long, got %d", minUsernameLen, n)
	}
	if n > maxUsernameLen {
		return fmt.Errorf("username must be no more than %d characters long, got %d", maxUsernameLen, n)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	// Basic validation - at least has @ with text before and after, and a dot after @
	atIndex := strings.Index(email, "@")
	if atIndex <= 0 {
		return fmt.Errorf("must contain @ with text before it")
	}

	afterAt := email[atIndex+1:]
	if afterAt == "" || !strings.Contains(afterAt, ".") {
		return fmt.Errorf("must have a domain with a dot after @")
	}

	dotIndex := strings.LastIndex(afterAt, ".")
	if dotIndex == 0 || dotIndex == len(afterAt)-1 {
		return fmt.Errorf("invalid domain format")
	}

	return nil
}

func validatePassword(pass string) error {
	if len(pass) < minPasswordLen {
		return fmt.Errorf("must be at least %d characters, got %d", minPasswordLen, len(pass))
	}
	if len(pass) > password.MaxLength {
		return fmt.Errorf("must be no more than %d bytes", password.MaxLength)
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasDigit   bool
		hasSpecial bool
	)

	for _, c := range pass {
		switch {
		case 'A' <= c && c <= 'Z':
			hasUpper = true
		case 'a' <= c && c <= 'z':
			hasLower = true
		case '0' <= c && c <= '9':
			hasDigit = true
		case strings.ContainsRune(specialChars, c):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("must contain an uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("must contain a lowercase letter")
	}
	if !hasDigit {
		return fmt.Errorf("must contain a number")
	}
	if !hasSpecial {
		return fmt.Errorf("must contain a special character (%s)", specialChars)
	}

	return nil
}
