package storage

import (
	"context"
	"testing"
	"time"

	"sealchat/go-core/pkg/models"
)

func waitForPayload(t *testing.T, ch <-chan models.PendingKeyExchange) models.PendingKeyExchange {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher delivery")
		return models.PendingKeyExchange{}
	}
}

func TestConversationStoreDeliversToWatcher(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()

	got := make(chan models.PendingKeyExchange, 1)
	cancel, err := s.OnPendingKeyExchange("sc1alice", func(chatID string, p models.PendingKeyExchange) {
		if chatID == "chat-1" {
			got <- p
		}
	})
	if err != nil {
		t.Fatalf("OnPendingKeyExchange: %v", err)
	}
	defer cancel()

	payload := models.PendingKeyExchange{RecipientID: "sc1alice", Ciphertext: []byte{1, 2, 3}}
	if err := s.SetPendingKeyExchange(ctx, "chat-1", payload); err != nil {
		t.Fatalf("SetPendingKeyExchange: %v", err)
	}
	p := waitForPayload(t, got)
	if p.RecipientID != "sc1alice" || len(p.Ciphertext) != 3 {
		t.Fatalf("delivered payload = %+v", p)
	}
}

func TestConversationStoreSkipsOtherRecipients(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()

	got := make(chan models.PendingKeyExchange, 1)
	cancel, err := s.OnPendingKeyExchange("sc1alice", func(_ string, p models.PendingKeyExchange) {
		got <- p
	})
	if err != nil {
		t.Fatalf("OnPendingKeyExchange: %v", err)
	}
	defer cancel()

	payload := models.PendingKeyExchange{RecipientID: "sc1bob", Ciphertext: []byte{1}}
	if err := s.SetPendingKeyExchange(ctx, "chat-1", payload); err != nil {
		t.Fatalf("SetPendingKeyExchange: %v", err)
	}
	select {
	case p := <-got:
		t.Fatalf("watcher received a payload addressed elsewhere: %+v", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConversationStoreReplaysOnSubscribe(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()

	payload := models.PendingKeyExchange{RecipientID: "sc1alice", Ciphertext: []byte{9}}
	if err := s.SetPendingKeyExchange(ctx, "chat-1", payload); err != nil {
		t.Fatalf("SetPendingKeyExchange: %v", err)
	}

	got := make(chan models.PendingKeyExchange, 1)
	cancel, err := s.OnPendingKeyExchange("sc1alice", func(_ string, p models.PendingKeyExchange) {
		got <- p
	})
	if err != nil {
		t.Fatalf("OnPendingKeyExchange: %v", err)
	}
	defer cancel()

	p := waitForPayload(t, got)
	if p.RecipientID != "sc1alice" {
		t.Fatalf("replayed payload = %+v", p)
	}
}

func TestConversationStoreClear(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()

	payload := models.PendingKeyExchange{RecipientID: "sc1alice", Ciphertext: []byte{9}}
	if err := s.SetPendingKeyExchange(ctx, "chat-1", payload); err != nil {
		t.Fatalf("SetPendingKeyExchange: %v", err)
	}
	if _, ok := s.PendingKeyExchange("chat-1"); !ok {
		t.Fatal("payload missing before clear")
	}
	if err := s.ClearPendingKeyExchange(ctx, "chat-1"); err != nil {
		t.Fatalf("ClearPendingKeyExchange: %v", err)
	}
	if _, ok := s.PendingKeyExchange("chat-1"); ok {
		t.Fatal("payload still present after clear")
	}
}

func TestConversationStoreCancelIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()

	delivered := make(chan struct{}, 8)
	cancel, err := s.OnPendingKeyExchange("sc1alice", func(string, models.PendingKeyExchange) {
		delivered <- struct{}{}
	})
	if err != nil {
		t.Fatalf("OnPendingKeyExchange: %v", err)
	}
	cancel()
	cancel()

	payload := models.PendingKeyExchange{RecipientID: "sc1alice", Ciphertext: []byte{1}}
	if err := s.SetPendingKeyExchange(ctx, "chat-1", payload); err != nil {
		t.Fatalf("SetPendingKeyExchange: %v", err)
	}
	select {
	case <-delivered:
		t.Fatal("cancelled watcher still received payloads")
	case <-time.After(100 * time.Millisecond):
	}
}
