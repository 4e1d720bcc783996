package handlers

import (
	"errors"
	"net/http"
	"strings"

	"nexiro/internal/domain"
)

type planRequest struct {
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

// Credits returns the ledger balance and refreshes the stored snapshot.
func (a *App) Credits(w http.ResponseWriter, r *http.Request) {
	identity := a.currentIdentity(r)
	if identity == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	account, err := a.Pipeline.Reconcile(r.Context(), identity)
	if err != nil {
		a.Logger.Error().Err(err).Str("identity", identity).Msg("reconcile credits")
		a.error(w, http.StatusServiceUnavailable, "ledger_unavailable", "credit balance unavailable")
		return
	}
	a.json(w, http.StatusOK, account)
}

// ChangePlan moves the account named in the body to a new plan and resets
// its credits. The router only lets billing tokens reach it.
func (a *App) ChangePlan(w http.ResponseWriter, r *http.Request) {
	if a.currentIdentity(r) == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req planRequest
	if err := a.decode(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	identity := strings.ToLower(strings.TrimSpace(req.Email))
	if identity == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "email required")
		return
	}
	plan, err := domain.ParsePlan(req.Plan)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	account, err := a.Pipeline.ChangePlan(r.Context(), identity, plan)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "account not found")
			return
		}
		a.Logger.Error().Err(err).Str("identity", identity).Str("plan", string(plan)).Msg("change plan")
		a.error(w, http.StatusServiceUnavailable, "ledger_unavailable", "plan change failed")
		return
	}
	a.json(w, http.StatusOK, account)
}
