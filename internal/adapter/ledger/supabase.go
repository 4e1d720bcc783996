package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"

	"nexiro/internal/domain"
	"nexiro/internal/infra"
)

const (
	accountsTable = "credit_accounts"
	eventsTable   = "credit_events"

	// debitAttempts bounds the optimistic read-then-update loop.
	debitAttempts = 3
)

// Supabase is a ledger backed by the same tables as Postgres, reached through
// PostgREST. PostgREST cannot run a conditional update with arithmetic, so a
// debit reads the balance and updates only if it is still unchanged.
type Supabase struct {
	client *supabase.Client
	logger infra.Logger
}

type accountRow struct {
	Email   string `json:"email"`
	Plan    string `json:"plan"`
	Credits int    `json:"credits"`
}

func NewSupabase(url, serviceKey string, logger *infra.Logger) (*Supabase, error) {
	client, err := supabase.NewClient(url, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	l := infra.NopLogger()
	if logger != nil {
		l = *logger
	}
	return &Supabase{client: client, logger: l}, nil
}

func (s *Supabase) Debit(ctx context.Context, identity string, amount int) (domain.CreditAccount, error) {
	email := normalizeIdentity(identity)
	for attempt := 0; attempt < debitAttempts; attempt++ {
		current, err := s.fetch(email)
		if err != nil {
			return domain.CreditAccount{}, err
		}
		if current.Credits < amount {
			return toAccount(current), fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientCredits, current.Credits, amount)
		}
		next := current.Credits - amount
		data, _, err := s.client.From(accountsTable).
			Update(map[string]any{
				"credits":    next,
				"updated_at": time.Now().UTC().Format(time.RFC3339),
			}, "representation", "").
			Eq("email", email).
			Eq("credits", strconv.Itoa(current.Credits)).
			Execute()
		if err != nil {
			return domain.CreditAccount{}, fmt.Errorf("%w: debit: %w", domain.ErrLedgerUnavailable, err)
		}
		var updated []accountRow
		if err := json.Unmarshal(data, &updated); err != nil {
			return domain.CreditAccount{}, fmt.Errorf("%w: decode debit: %w", domain.ErrLedgerUnavailable, err)
		}
		if len(updated) == 0 {
			// balance moved between read and write
			continue
		}
		s.recordEvent(email, -amount, updated[0].Credits, "generation")
		return toAccount(updated[0]), nil
	}
	return domain.CreditAccount{}, fmt.Errorf("%w: debit contention for %s", domain.ErrLedgerUnavailable, email)
}

func (s *Supabase) Balance(ctx context.Context, identity string) (domain.CreditAccount, error) {
	row, err := s.fetch(normalizeIdentity(identity))
	if err != nil {
		return domain.CreditAccount{}, err
	}
	return toAccount(row), nil
}

func (s *Supabase) ChangePlan(ctx context.Context, identity string, plan domain.Plan) (domain.CreditAccount, error) {
	if !plan.Valid() {
		return domain.CreditAccount{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedPlan, plan)
	}
	email := normalizeIdentity(identity)
	data, _, err := s.client.From(accountsTable).
		Update(map[string]any{
			"plan":        string(plan),
			"credits":     plan.Allotment(),
			"usage_count": 0,
			"updated_at":  time.Now().UTC().Format(time.RFC3339),
		}, "representation", "").
		Eq("email", email).
		Execute()
	if err != nil {
		return domain.CreditAccount{}, fmt.Errorf("%w: change plan: %w", domain.ErrLedgerUnavailable, err)
	}
	var updated []accountRow
	if err := json.Unmarshal(data, &updated); err != nil {
		return domain.CreditAccount{}, fmt.Errorf("%w: decode plan change: %w", domain.ErrLedgerUnavailable, err)
	}
	if len(updated) == 0 {
		return domain.CreditAccount{}, domain.ErrNotFound
	}
	s.recordEvent(email, updated[0].Credits, updated[0].Credits, "plan_change:"+string(plan))
	return toAccount(updated[0]), nil
}

func (s *Supabase) Open(ctx context.Context, identity string, plan domain.Plan) (domain.CreditAccount, error) {
	email := normalizeIdentity(identity)
	row, err := s.fetch(email)
	if err == nil {
		return toAccount(row), nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.CreditAccount{}, err
	}
	if !plan.Valid() {
		plan = domain.PlanFree
	}
	fresh := accountRow{Email: email, Plan: string(plan), Credits: plan.Allotment()}
	if _, _, err := s.client.From(accountsTable).Insert(fresh, false, "", "", "").Execute(); err != nil {
		return domain.CreditAccount{}, fmt.Errorf("%w: open: %w", domain.ErrLedgerUnavailable, err)
	}
	return toAccount(fresh), nil
}

func (s *Supabase) fetch(email string) (accountRow, error) {
	data, _, err := s.client.From(accountsTable).
		Select("email,plan,credits", "", false).
		Eq("email", email).
		Execute()
	if err != nil {
		return accountRow{}, fmt.Errorf("%w: fetch account: %w", domain.ErrLedgerUnavailable, err)
	}
	var rows []accountRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return accountRow{}, fmt.Errorf("%w: decode account: %w", domain.ErrLedgerUnavailable, err)
	}
	if len(rows) == 0 {
		return accountRow{}, domain.ErrNotFound
	}
	return rows[0], nil
}

// recordEvent is best effort; the balance update already happened.
func (s *Supabase) recordEvent(email string, delta, balance int, reason string) {
	event := map[string]any{
		"id":            uuid.NewString(),
		"email":         email,
		"delta":         delta,
		"balance_after": balance,
		"reason":        reason,
	}
	if _, _, err := s.client.From(eventsTable).Insert(event, false, "", "", "").Execute(); err != nil {
		s.logger.Warn().Err(err).Str("email", email).Str("reason", reason).Msg("ledger: failed to record credit event")
	}
}

func toAccount(row accountRow) domain.CreditAccount {
	return domain.CreditAccount{Plan: domain.ReconcilePlan(row.Plan, false), Credits: row.Credits}
}

var _ domain.Ledger = (*Supabase)(nil)
