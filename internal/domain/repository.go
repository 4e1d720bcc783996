package domain

import "context"

// Ledger is the authoritative credit service keyed by user identity (email).
type Ledger interface {
	// Debit removes amount credits and returns the resulting account. It
	// returns ErrInsufficientCredits when the server-side balance is too low.
	Debit(ctx context.Context, identity string, amount int) (CreditAccount, error)
	Balance(ctx context.Context, identity string) (CreditAccount, error)
	// ChangePlan switches plans and resets the balance to the new allotment.
	ChangePlan(ctx context.Context, identity string, plan Plan) (CreditAccount, error)
	// Open creates the account if it does not exist and returns it.
	Open(ctx context.Context, identity string, plan Plan) (CreditAccount, error)
}

// AccountStore keeps the last known CreditAccount per identity between
// requests.
type AccountStore interface {
	Load(ctx context.Context, identity string) (CreditAccount, bool, error)
	Save(ctx context.Context, identity string, account CreditAccount) error
}
