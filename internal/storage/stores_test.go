package storage

import (
	"context"
	"testing"

	"sealchat/go-core/pkg/models"
)

func TestIdentityStoreLookups(t *testing.T) {
	ctx := context.Background()
	s := NewIdentityStore()

	identity := models.Identity{
		ID:          "sc1abc",
		Email:       "Alice@Example.com",
		DisplayName: "Alice  Liddell",
	}
	if err := s.Save(ctx, identity); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := s.FindByEmail(ctx, "  alice@example.COM ")
	if err != nil || !ok {
		t.Fatalf("FindByEmail: %v %v", ok, err)
	}
	if got.ID != "sc1abc" {
		t.Fatalf("FindByEmail returned %+v", got)
	}

	got, ok, err = s.FindByNormalizedName(ctx, "alice liddell")
	if err != nil || !ok {
		t.Fatalf("FindByNormalizedName: %v %v", ok, err)
	}
	if got.ID != "sc1abc" {
		t.Fatalf("FindByNormalizedName returned %+v", got)
	}

	if _, ok, _ := s.FindByEmail(ctx, "nobody@example.com"); ok {
		t.Fatal("lookup of unknown email succeeded")
	}

	// Returned copies must not alias the stored record.
	got.DuressHash = append(got.DuressHash, 1)
	again, _, _ := s.FindByEmail(ctx, "alice@example.com")
	if len(again.DuressHash) != 0 {
		t.Fatal("mutation of a returned identity leaked into the store")
	}
}

func TestVaultStoreSeparatesRecoveryRecords(t *testing.T) {
	ctx := context.Background()
	s := NewVaultStore()

	main := models.VaultRecord{EncryptedPrivateKey: "a:b", EncryptedSharedSecrets: "c:d"}
	recovery := models.VaultRecord{EncryptedPrivateKey: "e:f", EncryptedSharedSecrets: "g:h"}

	if err := s.Write(ctx, "sc1abc", main); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.WriteRecovery(ctx, "sc1abc", recovery); err != nil {
		t.Fatalf("WriteRecovery: %v", err)
	}

	got, ok, err := s.Read(ctx, "sc1abc")
	if err != nil || !ok || got != main {
		t.Fatalf("Read = %+v %v %v", got, ok, err)
	}
	got, ok, err = s.ReadRecovery(ctx, "sc1abc")
	if err != nil || !ok || got != recovery {
		t.Fatalf("ReadRecovery = %+v %v %v", got, ok, err)
	}
	if _, ok, _ := s.Read(ctx, "sc1other"); ok {
		t.Fatal("read of unknown identity succeeded")
	}
}

func TestPresenceRegistry(t *testing.T) {
	ctx := context.Background()
	p := NewPresenceRegistry()

	if p.Online("sc1abc") {
		t.Fatal("identity online before registration")
	}
	release1, err := p.Register(ctx, "sc1abc")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	release2, err := p.Register(ctx, "sc1abc")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !p.Online("sc1abc") {
		t.Fatal("identity not online after registration")
	}

	release1()
	if !p.Online("sc1abc") {
		t.Fatal("identity dropped while a registration remains")
	}
	release2()
	release2() // release is idempotent
	if p.Online("sc1abc") {
		t.Fatal("identity still online after all releases")
	}
}
