package storage

import (
	"context"
	"sync"

	"sealchat/go-core/pkg/models"
)

// ConversationStore keeps the per-chat pending key-encapsulation payloads and
// pushes them to registered watchers. Callbacks run on their own goroutine,
// matching the session port contract.
type ConversationStore struct {
	mu       sync.Mutex
	pending  map[string]models.PendingKeyExchange
	watchers map[int]watcher
	nextID   int
}

type watcher struct {
	recipientID string
	fn          func(chatID string, p models.PendingKeyExchange)
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		pending:  make(map[string]models.PendingKeyExchange),
		watchers: make(map[int]watcher),
	}
}

func (s *ConversationStore) SetPendingKeyExchange(_ context.Context, chatID string, p models.PendingKeyExchange) error {
	s.mu.Lock()
	s.pending[chatID] = p.Clone()
	targets := s.watchersForLocked(p.RecipientID)
	s.mu.Unlock()

	for _, w := range targets {
		go w.fn(chatID, p.Clone())
	}
	return nil
}

func (s *ConversationStore) ClearPendingKeyExchange(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, chatID)
	return nil
}

// PendingKeyExchange returns the payload currently attached to chatID.
func (s *ConversationStore) PendingKeyExchange(chatID string) (models.PendingKeyExchange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[chatID]
	if !ok {
		return models.PendingKeyExchange{}, false
	}
	return p.Clone(), true
}

func (s *ConversationStore) OnPendingKeyExchange(recipientID string, fn func(chatID string, p models.PendingKeyExchange)) (func(), error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = watcher{recipientID: recipientID, fn: fn}

	// Replay anything already addressed to this recipient so a late
	// subscriber catches up.
	type replayItem struct {
		chatID  string
		payload models.PendingKeyExchange
	}
	replay := make([]replayItem, 0)
	for chatID, p := range s.pending {
		if p.RecipientID == recipientID {
			replay = append(replay, replayItem{chatID: chatID, payload: p.Clone()})
		}
	}
	s.mu.Unlock()

	for _, item := range replay {
		go fn(item.chatID, item.payload)
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
	return cancel, nil
}

func (s *ConversationStore) watchersForLocked(recipientID string) []watcher {
	out := make([]watcher, 0, 1)
	for _, w := range s.watchers {
		if w.recipientID == recipientID {
			out = append(out, w)
		}
	}
	return out
}
