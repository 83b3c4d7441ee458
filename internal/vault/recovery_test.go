package vault

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"sealchat/go-core/internal/securestore"
)

func TestRecoveryKitRoundTrip(t *testing.T) {
	privateKey := bytes.Repeat([]byte{0xCD}, 64)
	secrets := map[string][]byte{"chat-a": bytes.Repeat([]byte{3}, 32)}

	kit, err := NewRecoveryKit(privateKey, secrets)
	if err != nil {
		t.Fatalf("NewRecoveryKit: %v", err)
	}
	if words := strings.Fields(kit.Mnemonic); len(words) != 24 {
		t.Fatalf("mnemonic has %d words, want 24", len(words))
	}
	if kit.Record.IsZero() {
		t.Fatal("recovery record is empty")
	}

	u, err := UnlockWithRecovery(kit.Mnemonic, kit.Record)
	if err != nil {
		t.Fatalf("UnlockWithRecovery: %v", err)
	}
	defer u.Lock()

	got, err := u.PrivateKey()
	if err != nil {
		t.Fatalf("PrivateKey: %v", err)
	}
	if !bytes.Equal(got, privateKey) {
		t.Fatal("private key did not survive the recovery round trip")
	}
	if _, ok := u.Secret("chat-a"); !ok {
		t.Fatal("shared secret missing from recovered vault")
	}
}

func TestUnlockWithRecoveryInvalidMnemonic(t *testing.T) {
	kit, err := NewRecoveryKit(bytes.Repeat([]byte{0xCD}, 64), nil)
	if err != nil {
		t.Fatalf("NewRecoveryKit: %v", err)
	}
	if _, err := UnlockWithRecovery("definitely not a mnemonic", kit.Record); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("expected ErrInvalidMnemonic, got %v", err)
	}
}

func TestUnlockWithRecoveryWrongMnemonic(t *testing.T) {
	kit, err := NewRecoveryKit(bytes.Repeat([]byte{0xCD}, 64), nil)
	if err != nil {
		t.Fatalf("NewRecoveryKit: %v", err)
	}
	other, err := NewRecoveryKit(bytes.Repeat([]byte{0xCD}, 64), nil)
	if err != nil {
		t.Fatalf("NewRecoveryKit: %v", err)
	}
	// A valid mnemonic from a different kit derives a different key.
	if _, err := UnlockWithRecovery(other.Mnemonic, kit.Record); !errors.Is(err, securestore.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}
