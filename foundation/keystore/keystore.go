// Package keystore seals and opens wallet private keys at rest. Keys are
// encrypted with AES-256-GCM under a single service key and stored as
// base64(nonce || ciphertext). This custody model is pedagogical: the
// service holds the keys so it can sign on the user's behalf.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// keySize is the AES-256 key length in bytes.
const keySize = 32

// Keystore performs authenticated encryption of private key material.
type Keystore struct {
	aead cipher.AEAD
}

// New constructs a Keystore from the hex encoded 32 byte service key.
func New(hexKey string) (*Keystore, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding encryption key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("constructing cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("constructing gcm: %w", err)
	}

	return &Keystore{aead: aead}, nil
}

// Seal encrypts the plaintext and returns base64(nonce || ciphertext).
func (ks *Keystore) Seal(plaintext string) (string, error) {
	nonce := make([]byte, ks.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := ks.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (ks *Keystore) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decoding sealed key: %w", err)
	}

	if len(raw) < ks.aead.NonceSize() {
		return "", errors.New("sealed key too short")
	}

	nonce, ciphertext := raw[:ks.aead.NonceSize()], raw[ks.aead.NonceSize():]

	plaintext, err := ks.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.New("unable to open sealed key")
	}

	return string(plaintext), nil
}

// GenerateKey produces a new random service key in the hex form the
// configuration expects.
func GenerateKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}

	return hex.EncodeToString(key), nil
}
