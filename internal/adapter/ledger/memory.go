package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"nexiro/internal/domain"
)

// Memory is an in-process ledger for development and tests. Accounts are
// opened on first use with DefaultPlan.
type Memory struct {
	mu          sync.Mutex
	accounts    map[string]domain.CreditAccount
	DefaultPlan domain.Plan
}

func NewMemory(seed map[string]domain.CreditAccount) *Memory {
	accounts := make(map[string]domain.CreditAccount, len(seed))
	for identity, account := range seed {
		accounts[normalizeIdentity(identity)] = account
	}
	return &Memory{accounts: accounts, DefaultPlan: domain.PlanFree}
}

func (m *Memory) Debit(ctx context.Context, identity string, amount int) (domain.CreditAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account := m.openLocked(identity, m.DefaultPlan)
	if account.Credits < amount {
		return account, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientCredits, account.Credits, amount)
	}
	account.Credits -= amount
	m.accounts[normalizeIdentity(identity)] = account
	return account, nil
}

func (m *Memory) Balance(ctx context.Context, identity string) (domain.CreditAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openLocked(identity, m.DefaultPlan), nil
}

func (m *Memory) ChangePlan(ctx context.Context, identity string, plan domain.Plan) (domain.CreditAccount, error) {
	if !plan.Valid() {
		return domain.CreditAccount{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedPlan, plan)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	account := domain.NewCreditAccount(plan)
	m.accounts[normalizeIdentity(identity)] = account
	return account, nil
}

func (m *Memory) Open(ctx context.Context, identity string, plan domain.Plan) (domain.CreditAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openLocked(identity, plan), nil
}

func (m *Memory) openLocked(identity string, plan domain.Plan) domain.CreditAccount {
	key := normalizeIdentity(identity)
	if account, ok := m.accounts[key]; ok {
		return account
	}
	account := domain.NewCreditAccount(plan)
	m.accounts[key] = account
	return account
}

func normalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

var _ domain.Ledger = (*Memory)(nil)
