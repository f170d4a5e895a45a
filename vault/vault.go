// Package vault provides the cryptographic primitives for credential custody:
// authenticated encryption of token material at rest, PKCE parameter
// generation for the authorization flow, and constant-time hash comparison
// for webhook signature checks.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// MinMasterKeyLength is the minimum accepted master key length in characters.
	MinMasterKeyLength = 32

	// keyDerivationInfo binds derived keys to this usage. Changing it
	// invalidates every ciphertext written with the previous value.
	keyDerivationInfo = "ledgerlink/token-encryption/v1"

	ivSize  = 12 // standard GCM nonce size
	tagSize = 16
)

// ErrIntegrity is returned when decryption fails authentication.
// It indicates tampered ciphertext or a wrong master key, not absent data,
// and must be handled differently from a missing record.
var ErrIntegrity = errors.New("vault: ciphertext integrity check failed")

// Ciphertext is one encrypted value in its at-rest shape. All fields are
// base64 (standard encoding) so they can be stored as plain text columns.
type Ciphertext struct {
	Data string
	IV   string
	Tag  string
}

// Vault performs AES-256-GCM encryption with a key derived from a master
// secret via HKDF-SHA256. The derivation is deterministic: the same master
// key always yields the same encryption key.
type Vault struct {
	aead cipher.AEAD
}

// ValidateMasterKey reports whether key is long enough to serve as a master
// secret. Callers must refuse to operate when this returns false.
func ValidateMasterKey(key string) bool {
	return len(key) >= MinMasterKeyLength
}

// New derives the encryption key from masterKey and returns a ready vault.
func New(masterKey string) (*Vault, error) {
	if !ValidateMasterKey(masterKey) {
		return nil, fmt.Errorf("master key must be at least %d characters", MinMasterKeyLength)
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(masterKey), nil, []byte(keyDerivationInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random IV. The authentication tag is
// split from the sealed output so ciphertext, IV, and tag land in separate
// storage columns. IV uniqueness comes from fresh randomness per call.
func (v *Vault) Encrypt(plaintext []byte) (Ciphertext, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Ciphertext{}, fmt.Errorf("failed to generate iv: %w", err)
	}

	sealed := v.aead.Seal(nil, iv, plaintext, nil)
	data, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return Ciphertext{
		Data: base64.StdEncoding.EncodeToString(data),
		IV:   base64.StdEncoding.EncodeToString(iv),
		Tag:  base64.StdEncoding.EncodeToString(tag),
	}, nil
}

// Decrypt opens a stored ciphertext. Any tampering with the data, IV, or tag
// surfaces as ErrIntegrity; corrupted plaintext is never returned.
func (v *Vault) Decrypt(ct Ciphertext) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ct.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed ciphertext encoding", ErrIntegrity)
	}
	iv, err := base64.StdEncoding.DecodeString(ct.IV)
	if err != nil || len(iv) != ivSize {
		return nil, fmt.Errorf("%w: malformed iv", ErrIntegrity)
	}
	tag, err := base64.StdEncoding.DecodeString(ct.Tag)
	if err != nil || len(tag) != tagSize {
		return nil, fmt.Errorf("%w: malformed tag", ErrIntegrity)
	}

	plaintext, err := v.aead.Open(nil, iv, append(data, tag...), nil)
	if err != nil {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

// ConstantTimeHashCompare compares text against a hex-encoded SHA-256 digest
// without leaking timing information about where the mismatch occurs.
func ConstantTimeHashCompare(text, hexDigest string) bool {
	expected, err := hex.DecodeString(hexDigest)
	if err != nil {
		return false
	}
	sum := sha256.Sum256([]byte(text))
	return subtle.ConstantTimeCompare(sum[:], expected) == 1
}

// HashForCompare returns the hex SHA-256 digest of text, the format accepted
// by ConstantTimeHashCompare.
func HashForCompare(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
