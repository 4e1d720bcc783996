package session

import (
	"context"
	"strings"
	"sync"

	"nexiro/internal/domain"
)

type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]domain.CreditAccount
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]domain.CreditAccount)}
}

func (s *MemoryStore) Load(ctx context.Context, identity string) (domain.CreditAccount, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[strings.ToLower(strings.TrimSpace(identity))]
	return account, ok, nil
}

func (s *MemoryStore) Save(ctx context.Context, identity string, account domain.CreditAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[strings.ToLower(strings.TrimSpace(identity))] = account
	return nil
}

var _ domain.AccountStore = (*MemoryStore)(nil)
