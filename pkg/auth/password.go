package auth

import (
	"golang.org/x/crypto/bcrypt"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// PasswordHasher hashes and verifies member passwords. The session
// service and the member registration flow share one implementation so
// stored hashes stay interchangeable.
type PasswordHasher interface {
	// Hash returns the encoded hash of the plaintext password.
	Hash(password string) (string, error)

	// Verify reports whether the plaintext password matches the
	// encoded hash. A mismatch is (false, nil); an error means the
	// hash could not be evaluated at all.
	Verify(hash, password string) (bool, error)
}

// BcryptHasher is the bcrypt-backed [PasswordHasher].
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with the given cost. A cost
// outside bcrypt's valid range falls back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", vherr.New(vherr.CodeValidation, "auth: password must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", vherr.Wrap(err, vherr.CodeInternal, "auth: failed to hash password")
	}
	return string(hashed), nil
}

// Verify reports whether password matches the bcrypt hash.
func (h *BcryptHasher) Verify(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return false, vherr.Wrap(err, vherr.CodeInternal, "auth: failed to verify password")
}
