package storage

import (
	"context"
	"sync"

	"sealchat/go-core/pkg/models"
)

type VaultStore struct {
	mu       sync.RWMutex
	records  map[string]models.VaultRecord
	recovery map[string]models.VaultRecord
}

func NewVaultStore() *VaultStore {
	return &VaultStore{
		records:  make(map[string]models.VaultRecord),
		recovery: make(map[string]models.VaultRecord),
	}
}

func (s *VaultStore) Read(_ context.Context, identityID string) (models.VaultRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[identityID]
	return rec, ok, nil
}

func (s *VaultStore) Write(_ context.Context, identityID string, rec models.VaultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[identityID] = rec
	return nil
}

// Export copies the main record map, for snapshotting.
func (s *VaultStore) Export() map[string]models.VaultRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.VaultRecord, len(s.records))
	for id, rec := range s.records {
		out[id] = rec
	}
	return out
}

// ExportRecovery copies the recovery record map.
func (s *VaultStore) ExportRecovery() map[string]models.VaultRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.VaultRecord, len(s.recovery))
	for id, rec := range s.recovery {
		out[id] = rec
	}
	return out
}

// Import replaces the store contents with the given record maps.
func (s *VaultStore) Import(records, recovery map[string]models.VaultRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]models.VaultRecord, len(records))
	for id, rec := range records {
		s.records[id] = rec
	}
	s.recovery = make(map[string]models.VaultRecord, len(recovery))
	for id, rec := range recovery {
		s.recovery[id] = rec
	}
}

func (s *VaultStore) ReadRecovery(_ context.Context, identityID string) (models.VaultRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recovery[identityID]
	return rec, ok, nil
}

func (s *VaultStore) WriteRecovery(_ context.Context, identityID string, rec models.VaultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recovery[identityID] = rec
	return nil
}
