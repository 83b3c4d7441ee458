// Package privacylog keeps account identifiers and credentials out of log
// output. Sensitive values are redacted outright; identifying values are
// replaced by a per-boot fingerprint so lines stay correlatable within one
// process run but useless across runs.
package privacylog

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

var (
	bootNonce = newBootNonce()

	sensitiveKeyParts = []string{
		"password", "passphrase", "mnemonic", "secret", "token",
		"credential", "duress", "authorization",
	}
	fingerprintKeys = map[string]struct{}{
		"email":        {},
		"identity_id":  {},
		"chat_id":      {},
		"recipient_id": {},
	}
)

type Handler struct {
	next slog.Handler
}

func Wrap(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &Handler{next: next}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(Sanitize(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		clean = append(clean, Sanitize(attr))
	}
	return &Handler{next: h.next.WithAttrs(clean)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}

// Sanitize redacts or fingerprints a single attribute.
func Sanitize(attr slog.Attr) slog.Attr {
	key := strings.ToLower(strings.TrimSpace(attr.Key))
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return slog.String(attr.Key, redacted)
		}
	}
	if _, ok := fingerprintKeys[key]; ok {
		return slog.String(attr.Key+"_fp", Fingerprint(attrString(attr.Value)))
	}
	return attr
}

// Fingerprint hashes value with a nonce generated at process start.
func Fingerprint(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value + "|" + bootNonce))
	return "fp_" + hex.EncodeToString(sum[:8])
}

func attrString(v slog.Value) string {
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return fmt.Sprint(v.Any())
}

func newBootNonce() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "static-fallback"
	}
	return hex.EncodeToString(b[:])
}
