package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt refuses inputs longer than 72 bytes. Earlier revisions silently
// truncated, which made passwords differing only after byte 72 collide;
// oversize passwords are rejected outright instead.
const maxPasswordBytes = 72

const minPasswordBytes = 8

var (
	// ErrPasswordTooShort indicates the password is below the minimum length.
	ErrPasswordTooShort = errors.New("auth: password must be at least 8 characters")
	// ErrPasswordTooLong indicates the password exceeds bcrypt's 72 byte input limit.
	ErrPasswordTooLong = errors.New("auth: password exceeds 72 bytes")
)

// HashPassword derives a salted bcrypt hash from the plain-text password.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordBytes {
		return "", ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plain-text password matches the stored
// hash. Any bcrypt failure, including an oversize input, reads as a mismatch
// so callers cannot distinguish failure modes.
func VerifyPassword(password, hash string) bool {
	if len(password) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
