package utils

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/yukikurage/teamwork-api/internal/constants"
)

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", constants.MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d characters", constants.MaxPasswordLength)
	ErrPasswordWeak     = errors.New("password must contain an uppercase letter, a lowercase letter and a digit")
)

// CheckPasswordStrength enforces the account password rules.
func CheckPasswordStrength(password string) error {
	if len(password) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > constants.MaxPasswordLength {
		return ErrPasswordTooLong
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrPasswordWeak
	}
	return nil
}
