package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"sealchat/go-core/internal/securestore"
	"sealchat/go-core/pkg/models"
)

const snapshotFile = "state.enc"

// Snapshot is the serialized form of the local stores: public identities and
// their vault records. Vault records are already encrypted under user keys;
// the envelope passphrase only protects the metadata around them.
type Snapshot struct {
	Identities []models.Identity             `json:"identities"`
	Vaults     map[string]models.VaultRecord `json:"vaults"`
	Recovery   map[string]models.VaultRecord `json:"recovery"`
}

// SaveSnapshot seals the current contents of identities and vaults into
// dataDir under passphrase.
func SaveSnapshot(dataDir, passphrase string, identities *IdentityStore, vaults *VaultStore) error {
	snap := Snapshot{
		Identities: identities.Export(),
		Vaults:     vaults.Export(),
		Recovery:   vaults.ExportRecovery(),
	}
	path := filepath.Join(dataDir, snapshotFile)
	if err := securestore.WriteSealedJSON(path, passphrase, snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot restores a previously saved snapshot into the given stores. A
// missing file is not an error; the stores are simply left empty.
func LoadSnapshot(dataDir, passphrase string, identities *IdentityStore, vaults *VaultStore) error {
	path := filepath.Join(dataDir, snapshotFile)
	raw, err := securestore.ReadSealedFile(path, passphrase)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}
	identities.Import(snap.Identities)
	vaults.Import(snap.Vaults, snap.Recovery)
	return nil
}
