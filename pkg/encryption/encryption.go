// Package encryption seals file contents with XChaCha20-Poly1305. Blobs are
// laid out as version | nonce | ciphertext+tag.
package encryption

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	blobVersion byte = 1
	keyInfo          = "lms-service secure file v1"
	headerSize       = 1 + chacha20poly1305.NonceSizeX
)

var (
	ErrEmptySecret   = errors.New("encryption secret is empty")
	ErrMalformedBlob = errors.New("encrypted blob is malformed")
	ErrUnknownFormat = errors.New("encrypted blob has an unknown version")
	ErrAuthFailed    = errors.New("encrypted blob failed authentication")
)

// Encrypter holds a derived key. It is safe for concurrent use.
type Encrypter struct {
	key []byte
}

// NewEncrypter derives the 32 byte key from secret with HKDF-SHA256.
func NewEncrypter(secret string) (*Encrypter, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &Encrypter{key: key}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (e *Encrypter) Encrypt(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(e.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	out := make([]byte, headerSize, headerSize+len(plaintext)+aead.Overhead())
	out[0] = blobVersion
	nonce := out[1:headerSize]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	// The version byte is bound as associated data
	return aead.Seal(out, nonce, plaintext, out[:1]), nil
}

// Decrypt opens a blob produced by Encrypt. Any modification of the blob,
// or a different key, yields ErrAuthFailed.
func (e *Encrypter) Decrypt(blob []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(e.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	if len(blob) < headerSize+aead.Overhead() {
		return nil, ErrMalformedBlob
	}
	if blob[0] != blobVersion {
		return nil, ErrUnknownFormat
	}

	plaintext, err := aead.Open(nil, blob[1:headerSize], blob[headerSize:], blob[:1])
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// Overhead is the number of bytes Encrypt adds to the plaintext.
func Overhead() int {
	return headerSize + chacha20poly1305.Overhead
}
