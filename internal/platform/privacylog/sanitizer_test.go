package privacylog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSanitizeRedactsSensitiveKeys(t *testing.T) {
	for _, key := range []string{
		"password", "old_password", "mnemonic", "shared_secret",
		"auth_token", "duress_hash", "Authorization",
	} {
		attr := Sanitize(slog.String(key, "supersecret"))
		if attr.Value.String() != "[REDACTED]" {
			t.Fatalf("key %q not redacted: %v", key, attr.Value)
		}
	}
}

func TestSanitizeFingerprintsIdentifiers(t *testing.T) {
	attr := Sanitize(slog.String("email", "alice@example.com"))
	if attr.Key != "email_fp" {
		t.Fatalf("fingerprinted key = %q", attr.Key)
	}
	v := attr.Value.String()
	if !strings.HasPrefix(v, "fp_") || strings.Contains(v, "alice") {
		t.Fatalf("fingerprint value = %q", v)
	}

	// Same input, same fingerprint within one process.
	again := Sanitize(slog.String("email", "alice@example.com"))
	if again.Value.String() != v {
		t.Fatal("fingerprint is not stable within a run")
	}
	other := Sanitize(slog.String("email", "bob@example.com"))
	if other.Value.String() == v {
		t.Fatal("different inputs share a fingerprint")
	}
}

func TestSanitizePassesOrdinaryAttrs(t *testing.T) {
	attr := Sanitize(slog.Int("attempts", 3))
	if attr.Key != "attempts" || attr.Value.Int64() != 3 {
		t.Fatalf("ordinary attr mangled: %v", attr)
	}
}

func TestHandlerEndToEnd(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(Wrap(slog.NewTextHandler(&buf, nil)))

	logger.Info("login failed",
		"email", "alice@example.com",
		"password", "hunter2",
		"attempts", 3,
	)
	out := buf.String()
	if strings.Contains(out, "alice@example.com") {
		t.Fatalf("raw email leaked into output: %s", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatalf("raw password leaked into output: %s", out)
	}
	if !strings.Contains(out, "email_fp=fp_") {
		t.Fatalf("email fingerprint missing: %s", out)
	}
	if !strings.Contains(out, "attempts=3") {
		t.Fatalf("ordinary attr dropped: %s", out)
	}
}

func TestHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(Wrap(slog.NewTextHandler(&buf, nil))).With("identity_id", "sc1abcdef")

	logger.Info("session unlocked")
	out := buf.String()
	if strings.Contains(out, "sc1abcdef") {
		t.Fatalf("raw identity id leaked through With: %s", out)
	}
	if !strings.Contains(out, "identity_id_fp=fp_") {
		t.Fatalf("identity fingerprint missing: %s", out)
	}
}

func TestFingerprintEmpty(t *testing.T) {
	if Fingerprint("") != "" {
		t.Fatal("empty value produced a fingerprint")
	}
	if Fingerprint("   ") != "" {
		t.Fatal("whitespace value produced a fingerprint")
	}
}
