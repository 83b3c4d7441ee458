package kem

import (
	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

const identityIDPrefix = "sc1"

// BuildIdentityID derives the stable account identifier from a KEM public key.
func BuildIdentityID(kemPublicKey []byte) (string, error) {
	if len(kemPublicKey) != PublicKeySize {
		return "", ErrPublicKeySize
	}
	h := blake2b.Sum256(kemPublicKey)
	return identityIDPrefix + base58.Encode(h[:]), nil
}

// VerifyIdentityID reports whether identityID matches kemPublicKey.
func VerifyIdentityID(identityID string, kemPublicKey []byte) (bool, error) {
	expected, err := BuildIdentityID(kemPublicKey)
	if err != nil {
		return false, err
	}
	return identityID == expected, nil
}
