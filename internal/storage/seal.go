package storage

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Sealed layout: magic(8) + salt(16) + nonce(12) + ciphertext with tag.
var sealMagic = []byte("GCM3NCR0")

const (
	saltLen    = 16
	nonceLen   = 12
	iterations = 100000
	keyLen     = 32
)

// ErrNotSealed reports data without the sealed header.
var ErrNotSealed = errors.New("storage: data is not sealed")

func gcmFor(secret string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(secret), salt, iterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Seal encrypts data with AES-GCM under a key derived from secret.
func Seal(data []byte, secret string) ([]byte, error) {
	salt := make([]byte, saltLen)
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	gcm, err := gcmFor(secret, salt)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(sealMagic)+saltLen+nonceLen+len(data)+gcm.Overhead())
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

// Open reverses Seal.
func Open(sealed []byte, secret string) ([]byte, error) {
	if !bytes.HasPrefix(sealed, sealMagic) {
		return nil, ErrNotSealed
	}
	body := sealed[len(sealMagic):]
	if len(body) < saltLen+nonceLen+16 {
		return nil, fmt.Errorf("sealed data too short: %d bytes", len(sealed))
	}
	salt, nonce, ct := body[:saltLen], body[saltLen:saltLen+nonceLen], body[saltLen+nonceLen:]
	gcm, err := gcmFor(secret, salt)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("GCM decryption failed: %w", err)
	}
	return plain, nil
}
