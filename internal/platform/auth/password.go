package auth

import (
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const (
	argon2Marker  = "$argon2id$"
	bcryptHashLen = 60
)

var bcryptMarkers = []string{"$2a$", "$2b$", "$2y$"}

// PasswordHasher hashes new passwords with argon2id and still verifies
// bcrypt hashes written by earlier deployments.
type PasswordHasher struct {
	params *argon2id.Params
}

// NewPasswordHasher uses argon2id.DefaultParams when params is nil.
func NewPasswordHasher(params *argon2id.Params) *PasswordHasher {
	if params == nil {
		params = argon2id.DefaultParams
	}
	return &PasswordHasher{params: params}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	return argon2id.CreateHash(password, h.params)
}

// IsHashed reports whether s is a well-formed argon2id or bcrypt hash. A
// marker prefix alone is not enough.
func (h *PasswordHasher) IsHashed(s string) bool {
	switch {
	case strings.HasPrefix(s, argon2Marker):
		_, _, _, err := argon2id.DecodeHash(s)
		return err == nil
	case hasBcryptMarker(s):
		_, err := bcrypt.Cost([]byte(s))
		return err == nil && len(s) == bcryptHashLen
	}
	return false
}

func hasBcryptMarker(s string) bool {
	for _, m := range bcryptMarkers {
		if strings.HasPrefix(s, m) {
			return true
		}
	}
	return false
}

// Compare reports whether password matches hash.
func (h *PasswordHasher) Compare(password, hash string) (bool, error) {
	if strings.HasPrefix(hash, argon2Marker) {
		return argon2id.ComparePasswordAndHash(password, hash)
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
