package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const defaultHashCost = 12

// ErrPasswordMismatch indicates the supplied password does not match the stored hash.
var ErrPasswordMismatch = errors.New("auth: password mismatch")

// PasswordHasher provides bcrypt hashing and verification. The cost is
// injectable so tests can use the bcrypt minimum instead of paying
// ~250ms per hash.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher constructs a hasher with the production cost.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: defaultHashCost}
}

// NewPasswordHasherWithCost constructs a hasher with an explicit cost.
// Intended for tests; do not lower the cost in production.
func NewPasswordHasherWithCost(cost int) *PasswordHasher {
	return &PasswordHasher{cost: cost}
}

// Hash returns the bcrypt hash of the plaintext password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare verifies plaintext against a stored hash.
func (h *PasswordHasher) Compare(hashed, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
