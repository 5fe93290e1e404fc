package ledger

import (
	"context"
	"sync"
	"time"

	"mintgate/internal/issuance/models"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/sentinel"
)

// MemoryStore keeps issuance records in memory for tests and local
// development. It honors the same insert-if-absent contract as the
// Postgres store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[id.MemberID]models.MemberRecord
}

func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[id.MemberID]models.MemberRecord)}
}

func (s *MemoryStore) Has(_ context.Context, memberID id.MemberID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[memberID]
	return ok, nil
}

func (s *MemoryStore) Record(_ context.Context, memberID id.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[memberID]; ok {
		return sentinel.ErrConflict
	}
	s.records[memberID] = models.MemberRecord{MemberID: memberID, IssuedAt: time.Now()}
	return nil
}
