package storage

import (
	"context"
	"errors"
	"testing"

	"sealchat/go-core/internal/securestore"
	"sealchat/go-core/pkg/models"
)

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	identities := NewIdentityStore()
	vaults := NewVaultStore()
	if err := identities.Save(ctx, models.Identity{ID: "sc1abc", Email: "alice@example.com"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec := models.VaultRecord{EncryptedPrivateKey: "a:b", EncryptedSharedSecrets: "c:d"}
	if err := vaults.Write(ctx, "sc1abc", rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := vaults.WriteRecovery(ctx, "sc1abc", rec); err != nil {
		t.Fatalf("WriteRecovery: %v", err)
	}

	if err := SaveSnapshot(dir, "node pass", identities, vaults); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	restoredIdentities := NewIdentityStore()
	restoredVaults := NewVaultStore()
	if err := LoadSnapshot(dir, "node pass", restoredIdentities, restoredVaults); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	got, ok, err := restoredIdentities.FindByEmail(ctx, "alice@example.com")
	if err != nil || !ok || got.ID != "sc1abc" {
		t.Fatalf("restored identity = %+v %v %v", got, ok, err)
	}
	gotRec, ok, err := restoredVaults.Read(ctx, "sc1abc")
	if err != nil || !ok || gotRec != rec {
		t.Fatalf("restored vault record = %+v %v %v", gotRec, ok, err)
	}
	if _, ok, _ := restoredVaults.ReadRecovery(ctx, "sc1abc"); !ok {
		t.Fatal("recovery record missing after restore")
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	if err := LoadSnapshot(t.TempDir(), "pass", NewIdentityStore(), NewVaultStore()); err != nil {
		t.Fatalf("missing snapshot should not error: %v", err)
	}
}

func TestLoadSnapshotWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	if err := SaveSnapshot(dir, "right", NewIdentityStore(), NewVaultStore()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	err := LoadSnapshot(dir, "wrong", NewIdentityStore(), NewVaultStore())
	if !errors.Is(err, securestore.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}
