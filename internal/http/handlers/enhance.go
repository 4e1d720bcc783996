package handlers

import (
	"errors"
	"net/http"

	"nexiro/internal/domain"
	"nexiro/internal/domain/jsoncfg"
	"nexiro/internal/pipeline"
)

type enhanceResponse struct {
	Image    string               `json:"image"`
	MIMEType string               `json:"mime_type"`
	Account  domain.CreditAccount `json:"account"`
	Charged  bool                 `json:"charged"`
}

type enhanceErrorResponse struct {
	Error           string               `json:"error"`
	Message         string               `json:"message"`
	Account         domain.CreditAccount `json:"account"`
	Charged         bool                 `json:"charged"`
	UpgradeRequired bool                 `json:"upgrade_required"`
	Cost            int                  `json:"cost"`
}

func decodeEnhance(payload jsoncfg.EnhanceJSON) (jsoncfg.EnhanceRequest, error) {
	payload.Normalize()
	return payload.Decode()
}

// Compile previews the instruction document for a payload. Nothing is
// charged and no model is called.
func (a *App) Compile(w http.ResponseWriter, r *http.Request) {
	if a.currentIdentity(r) == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var payload jsoncfg.EnhanceJSON
	if err := a.decode(w, r, &payload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	req, err := decodeEnhance(payload)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	preview, err := pipeline.Compile(pipeline.Request{Source: req.Source, Style: req.Style, Options: req.Options})
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	a.json(w, http.StatusOK, preview)
}

func (a *App) Enhance(w http.ResponseWriter, r *http.Request) {
	identity := a.currentIdentity(r)
	if identity == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var payload jsoncfg.EnhanceJSON
	if err := a.decode(w, r, &payload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	req, err := decodeEnhance(payload)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	account, err := a.Pipeline.Account(r.Context(), identity)
	if err != nil {
		a.Logger.Error().Err(err).Str("identity", identity).Msg("load credit account")
		a.error(w, http.StatusServiceUnavailable, "ledger_unavailable", "credit balance unavailable")
		return
	}

	res := a.Pipeline.Run(r.Context(), pipeline.Request{
		Identity: identity,
		Source:   req.Source,
		Style:    req.Style,
		Options:  req.Options,
		Account:  account,
	}, nil)
	if res.State != pipeline.StateSuccess {
		code, kind := resultStatus(res)
		a.json(w, code, resultError(res, kind))
		return
	}
	a.json(w, http.StatusOK, resultBody(res))
}

func resultBody(res pipeline.Result) enhanceResponse {
	img := jsoncfg.EncodeImage(res.Image)
	return enhanceResponse{Image: img.Data, MIMEType: img.MIMEType, Account: res.Account, Charged: res.Charged}
}

func resultError(res pipeline.Result, kind string) enhanceErrorResponse {
	return enhanceErrorResponse{
		Error:           kind,
		Message:         res.Message(),
		Account:         res.Account,
		Charged:         res.Charged,
		UpgradeRequired: res.UpgradeRequired,
		Cost:            res.Cost,
	}
}

// resultStatus maps a failed run onto an HTTP status and error kind.
func resultStatus(res pipeline.Result) (int, string) {
	switch {
	case res.UpgradeRequired:
		return http.StatusPaymentRequired, "insufficient_credits"
	case errors.Is(res.Err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(res.Err, domain.ErrInvalidOptions), errors.Is(res.Err, domain.ErrInvalidStyle):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(res.Err, domain.ErrLedgerUnavailable):
		return http.StatusServiceUnavailable, "ledger_unavailable"
	default:
		return http.StatusBadGateway, "generation_failed"
	}
}
