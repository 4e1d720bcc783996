package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nexiro/internal/domain"
)

type HTTPOptions struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// HTTP talks to the account service that tracks usage counts. The service
// reports {plan, usageCount, isPro}; the balance is derived from the plan
// allotment.
type HTTP struct {
	baseURL string
	token   string
	client  *http.Client
}

// usagePayload is the account shape returned by the service, either at the
// top level or nested under "user".
type usagePayload struct {
	Plan       string        `json:"plan"`
	UsageCount int           `json:"usageCount"`
	IsPro      bool          `json:"isPro"`
	User       *usagePayload `json:"user,omitempty"`
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewHTTP(opts HTTPOptions) (*HTTP, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("ledger base url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTP{baseURL: base, token: strings.TrimSpace(opts.Token), client: client}, nil
}

func (h *HTTP) Debit(ctx context.Context, identity string, amount int) (domain.CreditAccount, error) {
	body := map[string]any{"email": normalizeIdentity(identity), "amount": amount}
	return h.call(ctx, http.MethodPost, "/usage", body)
}

func (h *HTTP) Balance(ctx context.Context, identity string) (domain.CreditAccount, error) {
	return h.call(ctx, http.MethodGet, "/users/"+url.PathEscape(normalizeIdentity(identity)), nil)
}

func (h *HTTP) ChangePlan(ctx context.Context, identity string, plan domain.Plan) (domain.CreditAccount, error) {
	if !plan.Valid() {
		return domain.CreditAccount{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedPlan, plan)
	}
	body := map[string]any{"email": normalizeIdentity(identity), "plan": string(plan)}
	account, err := h.call(ctx, http.MethodPost, "/plan", body)
	if err != nil {
		return domain.CreditAccount{}, err
	}
	// a plan change always resets to the new allotment
	return domain.NewCreditAccount(account.Plan), nil
}

// Open defers to the service, which creates accounts at signup.
func (h *HTTP) Open(ctx context.Context, identity string, plan domain.Plan) (domain.CreditAccount, error) {
	return h.Balance(ctx, identity)
}

func (h *HTTP) call(ctx context.Context, method, path string, payload any) (domain.CreditAccount, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return domain.CreditAccount{}, fmt.Errorf("marshal ledger request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return domain.CreditAccount{}, fmt.Errorf("create ledger request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return domain.CreditAccount{}, fmt.Errorf("%w: %w", domain.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.CreditAccount{}, fmt.Errorf("%w: read response: %w", domain.ErrLedgerUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return domain.CreditAccount{}, fmt.Errorf("%w: %s", domain.ErrInsufficientCredits, errorMessage(data))
	case resp.StatusCode == http.StatusNotFound:
		return domain.CreditAccount{}, domain.ErrNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		return domain.CreditAccount{}, fmt.Errorf("%w: status %d: %s", domain.ErrLedgerUnavailable, resp.StatusCode, errorMessage(data))
	}
	return decodeUsage(data)
}

// decodeUsage maps the service payload onto a CreditAccount. Missing fields
// read as zero values: no plan is FREE unless isPro, no usage is zero usage.
func decodeUsage(data []byte) (domain.CreditAccount, error) {
	var payload usagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.CreditAccount{}, fmt.Errorf("%w: decode response: %w", domain.ErrLedgerUnavailable, err)
	}
	if payload.User != nil {
		payload = *payload.User
	}
	plan := domain.ReconcilePlan(payload.Plan, payload.IsPro)
	return domain.CreditAccount{Plan: plan, Credits: domain.RemainingCredits(plan, payload.UsageCount)}, nil
}

func errorMessage(data []byte) string {
	var e errorPayload
	if err := json.Unmarshal(data, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(data))
}

var _ domain.Ledger = (*HTTP)(nil)
