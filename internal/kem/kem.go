// Package kem wraps ML-KEM-768 key encapsulation for per-chat key agreement.
//
// Decapsulation with a wrong private key or a corrupted ciphertext still
// yields a secret (implicit rejection); a mismatch only surfaces when the
// first message fails to authenticate at the AEAD layer.
package kem

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"golang.org/x/crypto/hkdf"
)

const (
	PublicKeySize    = 1184
	PrivateKeySize   = 2400
	CiphertextSize   = 1088
	SharedSecretSize = 32

	// The public key is embedded in circl's private key encoding at this offset.
	publicKeyOffset = 1152
)

const importInfo = "sealchat/kem/chat-key/v1"

var (
	ErrPublicKeySize  = errors.New("kem: invalid public key size")
	ErrPrivateKeySize = errors.New("kem: invalid private key size")
	ErrCiphertextSize = errors.New("kem: invalid ciphertext size")
	ErrSecretSize     = errors.New("kem: invalid shared secret size")
)

// GenerateKeyPair returns a fresh ML-KEM-768 key pair as raw bytes.
func GenerateKeyPair() (publicKey, privateKey []byte, err error) {
	pub, priv, err := mlkem768.GenerateKeyPair(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("kem: generate key pair: %w", err)
	}
	publicKey, _ = pub.MarshalBinary()
	privateKey, _ = priv.MarshalBinary()
	return publicKey, privateKey, nil
}

// Encapsulate derives a fresh shared secret against recipientPublicKey and
// returns it together with the ciphertext to publish. Two calls against the
// same public key yield independent secrets.
func Encapsulate(recipientPublicKey []byte) (sharedSecret, ciphertext []byte, err error) {
	if len(recipientPublicKey) != PublicKeySize {
		return nil, nil, ErrPublicKeySize
	}
	var pub mlkem768.PublicKey
	pub.Unpack(recipientPublicKey)

	ciphertext = make([]byte, CiphertextSize)
	sharedSecret = make([]byte, SharedSecretSize)
	pub.EncapsulateTo(ciphertext, sharedSecret, nil)
	return sharedSecret, ciphertext, nil
}

// Decapsulate recovers the shared secret from ciphertext with the recipient's
// private key. Deterministic for correct inputs.
func Decapsulate(privateKey, ciphertext []byte) ([]byte, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, ErrPrivateKeySize
	}
	if len(ciphertext) != CiphertextSize {
		return nil, ErrCiphertextSize
	}
	var priv mlkem768.PrivateKey
	if err := priv.Unpack(privateKey); err != nil {
		return nil, fmt.Errorf("kem: unpack private key: %w", err)
	}
	sharedSecret := make([]byte, SharedSecretSize)
	priv.DecapsulateTo(sharedSecret, ciphertext)
	return sharedSecret, nil
}

// PublicFromPrivate extracts the embedded public key from a raw private key.
func PublicFromPrivate(privateKey []byte) ([]byte, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, ErrPrivateKeySize
	}
	out := make([]byte, PublicKeySize)
	copy(out, privateKey[publicKeyOffset:publicKeyOffset+PublicKeySize])
	return out, nil
}

// ImportSecret adapts a raw 32-byte shared secret into a symmetric key for
// the packed-ciphertext layer.
func ImportSecret(rawSecret []byte) ([]byte, error) {
	if len(rawSecret) != SharedSecretSize {
		return nil, ErrSecretSize
	}
	reader := hkdf.New(sha256.New, rawSecret, nil, []byte(importInfo))
	key := make([]byte, SharedSecretSize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("kem: import secret: %w", err)
	}
	return key, nil
}
