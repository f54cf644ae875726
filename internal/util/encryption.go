package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
)

const payloadVersion = "v1"

// EncryptedPayload carries one AES-256-GCM encryption result. The GCM
// authentication tag is appended to Ciphertext. Salt feeds key derivation,
// IV is the GCM nonce; both are freshly drawn for every encryption.
type EncryptedPayload struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
}

// String encodes the payload as "v1:salt:iv:ciphertext" for single-column storage.
func (p EncryptedPayload) String() string {
	return strings.Join([]string{payloadVersion, p.Salt, p.IV, p.Ciphertext}, ":")
}

// ParseEncryptedPayload decodes the compact form produced by String.
func ParseEncryptedPayload(encoded string) (EncryptedPayload, error) {
	parts := strings.Split(encoded, ":")
	if len(parts) != 4 || parts[0] != payloadVersion {
		return EncryptedPayload{}, apperrors.CryptoFailure("malformed encrypted payload")
	}
	return EncryptedPayload{Salt: parts[1], IV: parts[2], Ciphertext: parts[3]}, nil
}

// Encrypt seals plaintext with AES-256-GCM under a key derived from secret
// and a per-call random salt. The nonce is likewise fresh per call, so two
// encryptions of the same plaintext never produce the same output.
func Encrypt(plaintext, secret string) (EncryptedPayload, error) {
	salt := make([]byte, saltBytes)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return EncryptedPayload{}, fmt.Errorf("generate salt: %w", err)
	}

	key := DeriveKey([]byte(secret), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return EncryptedPayload{}, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return EncryptedPayload{}, fmt.Errorf("create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return EncryptedPayload{}, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return EncryptedPayload{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(nonce),
		Salt:       base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// Decrypt opens an EncryptedPayload. Any tampering with the ciphertext, IV,
// salt, or tag fails with a CRYPTO_FAILURE error; partially decrypted bytes
// are never returned.
func Decrypt(payload EncryptedPayload, secret string) (string, error) {
	salt, err := base64.StdEncoding.DecodeString(payload.Salt)
	if err != nil {
		return "", apperrors.CryptoFailure("decryption failed").WithCause(err)
	}
	nonce, err := base64.StdEncoding.DecodeString(payload.IV)
	if err != nil {
		return "", apperrors.CryptoFailure("decryption failed").WithCause(err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return "", apperrors.CryptoFailure("decryption failed").WithCause(err)
	}

	key := DeriveKey([]byte(secret), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", apperrors.CryptoFailure("decryption failed").WithCause(err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", apperrors.CryptoFailure("decryption failed").WithCause(err)
	}

	if len(nonce) != gcm.NonceSize() {
		return "", apperrors.CryptoFailure("decryption failed")
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", apperrors.CryptoFailure("decryption failed").WithCause(err)
	}

	return string(plaintext), nil
}
