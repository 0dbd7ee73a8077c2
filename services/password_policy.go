package services

import (
	"unicode"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

// ValidatePassword checks a new password and reports every unmet rule under
// the "password" field: minimum length, at least one letter and one digit.
func ValidatePassword(password string) error {
	v := ValidationErrors{}
	if len([]rune(password)) < MinPasswordLength {
		v.Add("password", "The password must be at least %d characters.", MinPasswordLength)
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
	if !hasLetter {
		v.Add("password", "The password must contain at least one letter.")
	}
	if !hasDigit {
		v.Add("password", "The password must contain at least one number.")
	}
	return v.Err()
}
