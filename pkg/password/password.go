// Package password hashes account passwords with bcrypt.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor for new hashes.
const Cost = 12

// MaxLength is the longest input bcrypt looks at. Longer inputs are refused
// rather than silently truncated.
const MaxLength = 72

var ErrTooLong = errors.New("password is longer than 72 bytes")

func Hash(pass string) (string, error) {
	if len(pass) > MaxLength {
		return "", ErrTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(pass), Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether pass matches hash. Malformed hashes never match.
func Verify(pass, hash string) bool {
	if len(pass) > MaxLength {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil
}
