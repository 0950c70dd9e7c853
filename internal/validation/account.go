// Package validation checks user-supplied account and profile input.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password the identity provider accepts.
const MinPasswordLength = 6

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ErrMissingFields is returned when a required sign-up field is blank.
var ErrMissingFields = errors.New("please fill in all fields")

// ErrPasswordMismatch is returned when the confirmation differs from the password.
var ErrPasswordMismatch = errors.New("passwords do not match")

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > 72 {
		// bcrypt ignores everything past 72 bytes.
		return fmt.Errorf("password must not exceed 72 bytes")
	}
	return nil
}

// ValidateDisplayName checks a display name after trimming.
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("display name is required")
	}
	if utf8.RuneCountInString(name) > 50 {
		return fmt.Errorf("display name must not exceed 50 characters")
	}
	return nil
}

// ValidatePhotoURL accepts an empty value or an absolute http(s) URL.
func ValidatePhotoURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("photo URL must be an absolute http(s) URL")
	}
	return nil
}

// ValidateSignUp checks a sign-up form in the order the form reports problems:
// missing fields, password mismatch, then field formats.
func ValidateSignUp(displayName, email, password, confirm string) error {
	if strings.TrimSpace(displayName) == "" || strings.TrimSpace(email) == "" || password == "" || confirm == "" {
		return ErrMissingFields
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if err := ValidateDisplayName(displayName); err != nil {
		return err
	}
	if err := ValidateEmail(strings.TrimSpace(email)); err != nil {
		return err
	}
	return ValidatePassword(password)
}
