package util

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
)

const (
	tokenBytes = 32
	saltBytes  = 16
	keyBytes   = 32

	// KDFIterations is deliberately high so each derivation costs tens of
	// milliseconds on commodity hardware.
	KDFIterations = 100_000
)

// GenerateToken returns a cryptographically random hex token of n bytes.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		n = tokenBytes
	}
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

// HashToken returns the SHA-256 digest of a token as hex. Only digests are
// ever persisted; the raw token stays with the client.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// DeriveKey stretches a secret into a 32-byte key using PBKDF2-SHA256.
// Identical (secret, salt) pairs always yield the same key.
func DeriveKey(secret, salt []byte) []byte {
	return pbkdf2.Key(secret, salt, KDFIterations, keyBytes, sha256.New)
}

// HashPassword derives a salted hash and encodes it as "hex(salt)$hex(hash)".
// A fresh salt is drawn on every call, so two hashes of the same password
// never match byte-for-byte.
//
// A future memory-hard format would need a version prefix here; the current
// format is always two '$'-separated hex fields.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	derived := DeriveKey([]byte(password), salt)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(derived), nil
}

// CheckPassword re-derives the candidate password with the embedded salt and
// compares in constant time.
func CheckPassword(password, encoded string) bool {
	parts := strings.SplitN(encoded, "$", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	stored, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	derived := DeriveKey([]byte(password), salt)
	return subtle.ConstantTimeCompare(derived, stored) == 1
}

// ConstantTimeEqual compares two strings in time independent of where the
// first mismatching byte occurs. Unequal lengths are an immediate mismatch.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
