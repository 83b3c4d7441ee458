// Package vault owns the encrypted-at-rest bundle of a user's post-quantum
// private key and per-chat shared secrets, and its memory-only unlocked form.
package vault

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"sealchat/go-core/internal/securestore"
	"sealchat/go-core/pkg/models"
)

var (
	ErrWrongPassword = errors.New("vault: password does not match current master key")
	ErrLocked        = errors.New("vault: locked")
)

// Unlocked is the in-memory vault. It exists only between a successful unlock
// and the next Lock; nothing outside the owning session may retain one past a
// lock transition.
type Unlocked struct {
	masterKey  []byte
	privateKey []byte
	secrets    map[string][]byte
}

// Seal encrypts privateKey and the serialized secrets map under masterKey,
// producing the persistable record. Both fields are always produced together.
func Seal(masterKey, privateKey []byte, secrets map[string][]byte) (models.VaultRecord, error) {
	encKey, err := securestore.Encrypt(masterKey, privateKey)
	if err != nil {
		return models.VaultRecord{}, fmt.Errorf("seal private key: %w", err)
	}
	serialized, err := encodeSecrets(secrets)
	if err != nil {
		return models.VaultRecord{}, err
	}
	encSecrets, err := securestore.Encrypt(masterKey, serialized)
	if err != nil {
		return models.VaultRecord{}, fmt.Errorf("seal shared secrets: %w", err)
	}
	return models.VaultRecord{
		EncryptedPrivateKey:    encKey,
		EncryptedSharedSecrets: encSecrets,
	}, nil
}

// Unlock derives the master key from password and email and decrypts both
// fields of rec. If either decrypt fails the whole unlock fails; a partially
// unlocked vault is never returned. A wrong password surfaces as
// securestore.ErrAuthFailed.
func Unlock(password, email string, iterations int, rec models.VaultRecord) (*Unlocked, error) {
	salt := securestore.SaltForIdentity(email)
	masterKey := securestore.DeriveMasterKey(password, salt, iterations)
	u, err := unlockWithKey(masterKey, rec)
	if err != nil {
		securestore.ZeroBytes(masterKey)
		return nil, err
	}
	return u, nil
}

func unlockWithKey(masterKey []byte, rec models.VaultRecord) (*Unlocked, error) {
	privateKey, err := securestore.Decrypt(masterKey, rec.EncryptedPrivateKey)
	if err != nil {
		return nil, err
	}
	serialized, err := securestore.Decrypt(masterKey, rec.EncryptedSharedSecrets)
	if err != nil {
		securestore.ZeroBytes(privateKey)
		return nil, err
	}
	secrets, err := decodeSecrets(serialized)
	if err != nil {
		securestore.ZeroBytes(privateKey)
		return nil, err
	}
	return &Unlocked{
		masterKey:  masterKey,
		privateKey: privateKey,
		secrets:    secrets,
	}, nil
}

// Lock zeroizes all key material in place. Safe to call repeatedly and on a
// nil receiver; it is the unconditional result of logout and of any
// authentication failure.
func (u *Unlocked) Lock() {
	if u == nil {
		return
	}
	securestore.ZeroBytes(u.masterKey)
	securestore.ZeroBytes(u.privateKey)
	for id, secret := range u.secrets {
		securestore.ZeroBytes(secret)
		delete(u.secrets, id)
	}
	u.masterKey = nil
	u.privateKey = nil
	u.secrets = nil
}

func (u *Unlocked) locked() bool {
	return u == nil || u.masterKey == nil
}

// PrivateKey returns a copy of the KEM private key.
func (u *Unlocked) PrivateKey() ([]byte, error) {
	if u.locked() {
		return nil, ErrLocked
	}
	return append([]byte(nil), u.privateKey...), nil
}

// Secret returns a copy of the shared secret stored for chatID.
func (u *Unlocked) Secret(chatID string) ([]byte, bool) {
	if u.locked() {
		return nil, false
	}
	secret, ok := u.secrets[chatID]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), secret...), true
}

// ChatIDs lists every chat whose handshake has completed from this vault's
// perspective.
func (u *Unlocked) ChatIDs() []string {
	if u.locked() {
		return nil
	}
	out := make([]string, 0, len(u.secrets))
	for id := range u.secrets {
		out = append(out, id)
	}
	return out
}

// UpdateSecret inserts or overwrites one entry, re-serializes the entire map
// and re-encrypts it under the current master key. The private key is
// re-encrypted unchanged alongside it so both record fields are rewritten
// together. The receiver is left untouched; the caller swaps to the returned
// vault once the record is persisted.
func (u *Unlocked) UpdateSecret(chatID string, secret []byte) (*Unlocked, models.VaultRecord, error) {
	if u.locked() {
		return nil, models.VaultRecord{}, ErrLocked
	}
	next := u.cloneWith(chatID, secret)
	rec, err := Seal(next.masterKey, next.privateKey, next.secrets)
	if err != nil {
		next.Lock()
		return nil, models.VaultRecord{}, err
	}
	return next, rec, nil
}

// Rotate re-encrypts the private key and the full secrets map under a master
// key derived from newPassword. The salt is re-derived from email and does
// not change. oldPassword must match the current master key; on any failure
// the receiver remains valid under the old key.
func (u *Unlocked) Rotate(oldPassword, newPassword, email string, iterations int) (*Unlocked, models.VaultRecord, error) {
	if u.locked() {
		return nil, models.VaultRecord{}, ErrLocked
	}
	salt := securestore.SaltForIdentity(email)
	oldKey := securestore.DeriveMasterKey(oldPassword, salt, iterations)
	match := subtle.ConstantTimeCompare(oldKey, u.masterKey) == 1
	securestore.ZeroBytes(oldKey)
	if !match {
		return nil, models.VaultRecord{}, ErrWrongPassword
	}

	newKey := securestore.DeriveMasterKey(newPassword, salt, iterations)
	rec, err := Seal(newKey, u.privateKey, u.secrets)
	if err != nil {
		securestore.ZeroBytes(newKey)
		return nil, models.VaultRecord{}, err
	}
	next := &Unlocked{
		masterKey:  newKey,
		privateKey: append([]byte(nil), u.privateKey...),
		secrets:    cloneSecrets(u.secrets),
	}
	return next, rec, nil
}

// Reseal produces a record encrypted under a master key derived from
// newPassword without touching the receiver. Used by vault recovery to bring
// the stored record in line with a freshly reset credential.
func (u *Unlocked) Reseal(newPassword, email string, iterations int) (models.VaultRecord, error) {
	if u.locked() {
		return models.VaultRecord{}, ErrLocked
	}
	salt := securestore.SaltForIdentity(email)
	key := securestore.DeriveMasterKey(newPassword, salt, iterations)
	defer securestore.ZeroBytes(key)
	return Seal(key, u.privateKey, u.secrets)
}

func (u *Unlocked) cloneWith(chatID string, secret []byte) *Unlocked {
	secrets := cloneSecrets(u.secrets)
	secrets[chatID] = append([]byte(nil), secret...)
	return &Unlocked{
		masterKey:  append([]byte(nil), u.masterKey...),
		privateKey: append([]byte(nil), u.privateKey...),
		secrets:    secrets,
	}
}

func cloneSecrets(in map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(in))
	for id, secret := range in {
		out[id] = append([]byte(nil), secret...)
	}
	return out
}

// Shared secrets are serialized as a flat chat-id to base64 mapping before
// encryption; this is part of the persisted record contract.
func encodeSecrets(secrets map[string][]byte) ([]byte, error) {
	flat := make(map[string]string, len(secrets))
	for id, secret := range secrets {
		flat[id] = base64.StdEncoding.EncodeToString(secret)
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return nil, fmt.Errorf("serialize shared secrets: %w", err)
	}
	return raw, nil
}

func decodeSecrets(raw []byte) (map[string][]byte, error) {
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("parse shared secrets: %w", err)
	}
	out := make(map[string][]byte, len(flat))
	for id, encoded := range flat {
		secret, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode shared secret for %q: %w", id, err)
		}
		out[id] = secret
	}
	return out, nil
}
