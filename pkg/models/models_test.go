package models

import "testing"

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"  Alice@Example.COM ": "alice@example.com",
		"bob@example.com":      "bob@example.com",
		"":                     "",
	}
	for in, want := range cases {
		if got := NormalizeEmail(in); got != want {
			t.Fatalf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"  Alice   Liddell ": "alice liddell",
		"Bob":                "bob",
		"":                   "",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIdentityCloneIsIndependent(t *testing.T) {
	orig := Identity{
		ID:           "sc1abc",
		KemPublicKey: []byte{1, 2, 3},
		DuressHash:   []byte{4, 5, 6},
	}
	clone := orig.Clone()
	clone.KemPublicKey[0] = 9
	clone.DuressHash[0] = 9
	if orig.KemPublicKey[0] != 1 || orig.DuressHash[0] != 4 {
		t.Fatal("clone shares byte slices with the original")
	}
}

func TestPendingKeyExchangeZero(t *testing.T) {
	if !(PendingKeyExchange{}).IsZero() {
		t.Fatal("empty payload not reported as zero")
	}
	p := PendingKeyExchange{RecipientID: "sc1abc", Ciphertext: []byte{1}}
	if p.IsZero() {
		t.Fatal("populated payload reported as zero")
	}
	clone := p.Clone()
	clone.Ciphertext[0] = 9
	if p.Ciphertext[0] != 1 {
		t.Fatal("clone shares the ciphertext slice")
	}
}

func TestVaultRecordZero(t *testing.T) {
	if !(VaultRecord{}).IsZero() {
		t.Fatal("empty record not reported as zero")
	}
	r := VaultRecord{EncryptedPrivateKey: "a:b"}
	if r.IsZero() {
		t.Fatal("populated record reported as zero")
	}
}
