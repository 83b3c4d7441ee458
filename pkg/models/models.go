package models

import (
	"strings"
	"time"
)

// Identity is the read-only copy of an account held by the core. The
// authoritative record lives in the remote identity store.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	KemPublicKey []byte    `json:"kem_public_key"`
	DuressHash   []byte    `json:"duress_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (i Identity) Clone() Identity {
	out := i
	out.KemPublicKey = append([]byte(nil), i.KemPublicKey...)
	out.DuressHash = append([]byte(nil), i.DuressHash...)
	return out
}

// VaultRecord is the encrypted-at-rest vault bundle. Both fields are packed
// ciphertexts (base64 nonce, colon, base64 ciphertext) and are always written
// together from a freshly serialized secrets map.
type VaultRecord struct {
	EncryptedPrivateKey    string `json:"encrypted_private_key"`
	EncryptedSharedSecrets string `json:"encrypted_shared_secrets"`
}

func (r VaultRecord) IsZero() bool {
	return r.EncryptedPrivateKey == "" && r.EncryptedSharedSecrets == ""
}

// PendingKeyExchange is the key-encapsulation payload attached to a
// conversation. It is consumed exactly once by the named recipient and then
// cleared to signal handshake completion.
type PendingKeyExchange struct {
	RecipientID string `json:"recipient_id"`
	Ciphertext  []byte `json:"ciphertext"`
}

func (p PendingKeyExchange) IsZero() bool {
	return p.RecipientID == "" && len(p.Ciphertext) == 0
}

func (p PendingKeyExchange) Clone() PendingKeyExchange {
	return PendingKeyExchange{
		RecipientID: p.RecipientID,
		Ciphertext:  append([]byte(nil), p.Ciphertext...),
	}
}

type Conversation struct {
	ID        string    `json:"id"`
	PeerID    string    `json:"peer_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
