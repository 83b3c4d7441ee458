package vault

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"

	"sealchat/go-core/internal/securestore"
	"sealchat/go-core/pkg/models"
)

var ErrInvalidMnemonic = errors.New("vault: invalid recovery mnemonic")

const recoveryKeyInfo = "sealchat/vault/recovery/v1"

// RecoveryKit is the offline escape hatch for a lost password: a bip39
// mnemonic and a second copy of the vault record sealed under a key derived
// from it. The mnemonic is shown to the user once at signup and never stored.
type RecoveryKit struct {
	Mnemonic string
	Record   models.VaultRecord
}

// NewRecoveryKit generates a fresh 24-word mnemonic and seals privateKey and
// secrets under the key it derives.
func NewRecoveryKit(privateKey []byte, secrets map[string][]byte) (RecoveryKit, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return RecoveryKit{}, fmt.Errorf("recovery entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return RecoveryKit{}, fmt.Errorf("recovery mnemonic: %w", err)
	}
	key, err := recoveryKey(mnemonic)
	if err != nil {
		return RecoveryKit{}, err
	}
	defer securestore.ZeroBytes(key)
	rec, err := Seal(key, privateKey, secrets)
	if err != nil {
		return RecoveryKit{}, err
	}
	return RecoveryKit{Mnemonic: mnemonic, Record: rec}, nil
}

// UnlockWithRecovery opens a recovery record with its mnemonic. The returned
// vault carries the recovery key as master key; callers are expected to
// Rotate to a fresh password immediately.
func UnlockWithRecovery(mnemonic string, rec models.VaultRecord) (*Unlocked, error) {
	key, err := recoveryKey(mnemonic)
	if err != nil {
		return nil, err
	}
	u, err := unlockWithKey(key, rec)
	if err != nil {
		securestore.ZeroBytes(key)
		return nil, err
	}
	return u, nil
}

func recoveryKey(mnemonic string) ([]byte, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")
	defer securestore.ZeroBytes(seed)
	reader := hkdf.New(sha256.New, seed, nil, []byte(recoveryKeyInfo))
	key := make([]byte, securestore.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive recovery key: %w", err)
	}
	return key, nil
}
