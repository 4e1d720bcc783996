package credit

import (
	"context"
	"errors"
	"fmt"

	"nexiro/internal/domain"
)

const (
	TextStyleCost  = 1
	ImageStyleCost = 4
)

// Cost is the fixed price of one generation for a style variant.
func Cost(style domain.StyleInput) int {
	return CostForKind(style.Kind())
}

func CostForKind(kind domain.StyleKind) int {
	if kind == domain.StyleImage {
		return ImageStyleCost
	}
	return TextStyleCost
}

// Gate performs the pre-flight balance check and the hard debit.
type Gate struct {
	ledger domain.Ledger
}

func NewGate(ledger domain.Ledger) *Gate {
	return &Gate{ledger: ledger}
}

// Attempt debits cost credits from identity. When the account cannot cover
// the cost it returns ErrInsufficientCredits without contacting the ledger.
// The ledger's returned account is the new truth on success, and also on a
// ledger-side denial when it reports one.
func (g *Gate) Attempt(ctx context.Context, identity string, account domain.CreditAccount, cost int) (domain.CreditAccount, error) {
	if !account.CanAfford(cost) {
		return account, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientCredits, account.Credits, cost)
	}
	updated, err := g.ledger.Debit(ctx, identity, cost)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			if updated != (domain.CreditAccount{}) {
				return updated, err
			}
			return account, err
		}
		if errors.Is(err, domain.ErrLedgerUnavailable) {
			return account, err
		}
		return account, fmt.Errorf("%w: %w", domain.ErrLedgerUnavailable, err)
	}
	return updated, nil
}
