package securestore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	// KeySize is the symmetric key length accepted by Encrypt and Decrypt.
	KeySize = 32
	// NonceSize is the AES-GCM nonce length generated per Encrypt call.
	NonceSize = 12
)

var (
	ErrAuthFailed = errors.New("securestore authentication failed")
	ErrFormat     = errors.New("securestore packed ciphertext is malformed")
	ErrKeySize    = errors.New("securestore key must be 32 bytes")
)

// Encrypt seals plaintext under key with AES-256-GCM and a fresh random
// nonce, returning the packed form base64(nonce) + ":" + base64(ciphertext).
func Encrypt(key, plaintext []byte) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(nonce) + ":" + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens a packed ciphertext produced by Encrypt. A value that does
// not split into exactly two base64 segments fails with ErrFormat; a
// ciphertext that does not authenticate under key fails with ErrAuthFailed.
// ErrAuthFailed is the only signal callers get for "wrong key": a tampered
// record and a wrong password are indistinguishable here.
func Decrypt(key []byte, packed string) ([]byte, error) {
	parts := strings.Split(packed, ":")
	if len(parts) != 2 {
		return nil, ErrFormat
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrFormat
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrFormat
	}
	if len(nonce) != NonceSize {
		return nil, ErrFormat
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// ZeroBytes overwrites b in place. Callers use it on every exit path that
// drops key material.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
