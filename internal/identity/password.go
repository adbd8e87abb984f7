package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode"
)

const saltBytes = 16

// StrongPassword reports whether the password meets the strength predicate:
// at least 8 characters with an upper-case letter, a lower-case letter, a
// digit, and a non-alphanumeric character.
func StrongPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var upper, lower, digit, other bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}
	return upper && lower && digit && other
}

// newSalt generates a random per-user salt, hex encoded for storage.
func newSalt() (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(salt), nil
}

// hashPassword computes the stored credential digest: hex sha256 of the raw
// salt bytes concatenated with the password. The single unsalted-work-factor
// pass is kept deliberately for on-disk compatibility with existing stores;
// see DESIGN.md before changing the scheme.
func hashPassword(saltHex, password string) (string, error) {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("malformed salt: %w", err)
	}
	sum := sha256.Sum256(append(salt, []byte(password)...))
	return hex.EncodeToString(sum[:]), nil
}
