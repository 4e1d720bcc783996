package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"nexiro/internal/domain"
	"nexiro/internal/infra"
	"nexiro/internal/sqlinline"
)

// Postgres keeps balances in credit_accounts and appends every mutation to
// credit_events. Debits are a single conditional statement, so concurrent
// requests can never push a balance below zero.
type Postgres struct {
	sql infra.SQLExecutor
}

func NewPostgres(sql infra.SQLExecutor) *Postgres {
	return &Postgres{sql: sql}
}

func (p *Postgres) Debit(ctx context.Context, identity string, amount int) (domain.CreditAccount, error) {
	email := normalizeIdentity(identity)
	account, err := scanAccount(p.sql.QueryRow(ctx, sqlinline.QDebitCredits, email, amount, uuid.NewString()))
	if err == nil {
		return account, nil
	}
	if !infra.IsNoRows(err) {
		return domain.CreditAccount{}, fmt.Errorf("%w: debit: %w", domain.ErrLedgerUnavailable, err)
	}
	// no row: either the account is missing or the balance is short
	current, err := p.Balance(ctx, email)
	if err != nil {
		return domain.CreditAccount{}, err
	}
	return current, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientCredits, current.Credits, amount)
}

func (p *Postgres) Balance(ctx context.Context, identity string) (domain.CreditAccount, error) {
	account, err := scanAccount(p.sql.QueryRow(ctx, sqlinline.QSelectCreditAccount, normalizeIdentity(identity)))
	if err != nil {
		if infra.IsNoRows(err) {
			return domain.CreditAccount{}, domain.ErrNotFound
		}
		return domain.CreditAccount{}, fmt.Errorf("%w: balance: %w", domain.ErrLedgerUnavailable, err)
	}
	return account, nil
}

func (p *Postgres) ChangePlan(ctx context.Context, identity string, plan domain.Plan) (domain.CreditAccount, error) {
	if !plan.Valid() {
		return domain.CreditAccount{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedPlan, plan)
	}
	account, err := scanAccount(p.sql.QueryRow(ctx, sqlinline.QChangeCreditPlan, normalizeIdentity(identity), string(plan), plan.Allotment(), uuid.NewString()))
	if err != nil {
		if infra.IsNoRows(err) {
			return domain.CreditAccount{}, domain.ErrNotFound
		}
		return domain.CreditAccount{}, fmt.Errorf("%w: change plan: %w", domain.ErrLedgerUnavailable, err)
	}
	return account, nil
}

func (p *Postgres) Open(ctx context.Context, identity string, plan domain.Plan) (domain.CreditAccount, error) {
	if !plan.Valid() {
		plan = domain.PlanFree
	}
	account, err := scanAccount(p.sql.QueryRow(ctx, sqlinline.QOpenCreditAccount, normalizeIdentity(identity), string(plan), plan.Allotment()))
	if err != nil {
		return domain.CreditAccount{}, fmt.Errorf("%w: open: %w", domain.ErrLedgerUnavailable, err)
	}
	return account, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.CreditAccount, error) {
	var plan string
	var credits int
	if err := row.Scan(&plan, &credits); err != nil {
		return domain.CreditAccount{}, err
	}
	return domain.CreditAccount{Plan: domain.ReconcilePlan(plan, false), Credits: credits}, nil
}

var _ domain.Ledger = (*Postgres)(nil)
