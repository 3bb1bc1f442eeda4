// Package auth holds credential primitives: bcrypt password hashing,
// input validation and signed session tokens.
package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 10

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateEmail checks the local@domain.tld shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return fmt.Errorf("%w: invalid email address", common.ErrValidation)
	}
	return nil
}

// ValidatePassword enforces the minimum length. bcrypt ignores input past
// 72 bytes, so longer passwords are rejected rather than silently truncated.
func ValidatePassword(password string) error {
	if len([]rune(password)) < common.MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, common.MinPasswordLength)
	}
	if len(password) > 72 {
		return fmt.Errorf("%w: password must be at most 72 bytes", common.ErrValidation)
	}
	return nil
}

// IsValidation reports whether err came from one of the validators.
func IsValidation(err error) bool {
	return errors.Is(err, common.ErrValidation)
}
