package storage

import (
	"context"
	"sync"
)

// PresenceRegistry tracks which identities currently hold an active session.
type PresenceRegistry struct {
	mu     sync.Mutex
	active map[string]int
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{active: make(map[string]int)}
}

func (p *PresenceRegistry) Register(_ context.Context, identityID string) (func(), error) {
	p.mu.Lock()
	p.active[identityID]++
	p.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.active[identityID]--
			if p.active[identityID] <= 0 {
				delete(p.active, identityID)
			}
		})
	}
	return release, nil
}

// Online reports whether identityID has at least one registration.
func (p *PresenceRegistry) Online(identityID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active[identityID] > 0
}
