package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	nonceSize = 12
	tagSize   = 16
	keySize   = 32 // AES-256

	// PBKDF2 iterations. Matches the key derivation used by the client
	// installer, changing this invalidates every stored envelope.
	kdfIterations = 100_000
)

// kdfSalt is fixed per installation generation. Rotating it requires a
// re-encryption migration.
var kdfSalt = []byte("eaglearn_salt_v1")

// ErrTamperOrCorruption is returned when an envelope fails its
// authentication tag check on decrypt. Records carrying such envelopes are
// excluded from result sets rather than returned partially decrypted.
var ErrTamperOrCorruption = errors.New("tamper_or_corruption: envelope failed authentication")

// ErrMissingKey is returned when the cipher is constructed without key
// material. Writes must treat this as fatal for the entity.
var ErrMissingKey = errors.New("encryption key not configured")

// FieldCipher encrypts identity-bearing fields with AES-256-GCM.
// The envelope layout is nonce || tag || ciphertext, base64-encoded, so a
// single text column holds nonce, authentication tag and ciphertext.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher derives an AES-256 key from the master key via PBKDF2 and
// prepares the GCM primitive.
func NewFieldCipher(masterKey string) (*FieldCipher, error) {
	if masterKey == "" {
		return nil, ErrMissingKey
	}

	key := pbkdf2.Key([]byte(masterKey), kdfSalt, kdfIterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &FieldCipher{aead: aead}, nil
}

// Encrypt seals plaintext into a base64 envelope. Empty input stays empty,
// mirroring nullable columns where absence carries no identity.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext||tag; the stored layout is nonce||tag||ciphertext.
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	envelope := make([]byte, 0, nonceSize+tagSize+len(ct))
	envelope = append(envelope, nonce...)
	envelope = append(envelope, tag...)
	envelope = append(envelope, ct...)

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt opens a base64 envelope. A failed tag check or a malformed
// envelope surfaces as ErrTamperOrCorruption.
func (c *FieldCipher) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	envelope, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrTamperOrCorruption
	}
	if len(envelope) < nonceSize+tagSize {
		return "", ErrTamperOrCorruption
	}

	nonce := envelope[:nonceSize]
	tag := envelope[nonceSize : nonceSize+tagSize]
	ct := envelope[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrTamperOrCorruption
	}

	return string(plaintext), nil
}
