// Package storage provides in-memory implementations of the session ports,
// used by tests and the local simulator. A deployment substitutes its own
// remote-backed implementations.
package storage

import (
	"context"
	"sync"

	"sealchat/go-core/pkg/models"
)

type IdentityStore struct {
	mu      sync.RWMutex
	byEmail map[string]models.Identity
	byName  map[string]string
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		byEmail: make(map[string]models.Identity),
		byName:  make(map[string]string),
	}
}

func (s *IdentityStore) FindByEmail(_ context.Context, email string) (models.Identity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return models.Identity{}, false, nil
	}
	return identity.Clone(), true, nil
}

func (s *IdentityStore) FindByNormalizedName(_ context.Context, name string) (models.Identity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email, ok := s.byName[models.NormalizeName(name)]
	if !ok {
		return models.Identity{}, false, nil
	}
	identity, ok := s.byEmail[email]
	if !ok {
		return models.Identity{}, false, nil
	}
	return identity.Clone(), true, nil
}

// Export lists every stored identity, for snapshotting.
func (s *IdentityStore) Export() []models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Identity, 0, len(s.byEmail))
	for _, identity := range s.byEmail {
		out = append(out, identity.Clone())
	}
	return out
}

// Import replaces the store contents with the given identities.
func (s *IdentityStore) Import(identities []models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail = make(map[string]models.Identity, len(identities))
	s.byName = make(map[string]string, len(identities))
	for _, identity := range identities {
		email := models.NormalizeEmail(identity.Email)
		s.byEmail[email] = identity.Clone()
		if identity.DisplayName != "" {
			s.byName[models.NormalizeName(identity.DisplayName)] = email
		}
	}
}

func (s *IdentityStore) Save(_ context.Context, identity models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := models.NormalizeEmail(identity.Email)
	s.byEmail[email] = identity.Clone()
	if identity.DisplayName != "" {
		s.byName[models.NormalizeName(identity.DisplayName)] = email
	}
	return nil
}
