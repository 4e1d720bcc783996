package handlers

import (
	"net/http"
	"strings"

	"nexiro/internal/domain"
	"nexiro/internal/domain/jsoncfg"
)

type analyzeRequest struct {
	Image    string `json:"image"`
	MIMEType string `json:"mime_type"`
	ToolType string `json:"tool_type"`
}

type referencePropsResponse struct {
	Props []string `json:"props"`
}

// Analyze extracts subject details from an uploaded source image. Analysis
// is advisory, so a provider failure still answers 200 with an empty result.
func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	if a.currentIdentity(r) == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req analyzeRequest
	if err := a.decode(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	toolRaw := req.ToolType
	if strings.TrimSpace(toolRaw) == "" {
		toolRaw = jsoncfg.DefaultToolType
	}
	tool, err := domain.ParseToolType(toolRaw)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	img, ok := a.decodeImage(w, req.Image, req.MIMEType)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, a.Analyzer.Analyze(r.Context(), img, tool))
}

// ReferenceProps lists the props of a style reference so the caller can
// offer them for exclusion.
func (a *App) ReferenceProps(w http.ResponseWriter, r *http.Request) {
	if a.currentIdentity(r) == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req analyzeRequest
	if err := a.decode(w, r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	img, ok := a.decodeImage(w, req.Image, req.MIMEType)
	if !ok {
		return
	}
	props := a.Analyzer.ReferenceProps(r.Context(), img)
	if props == nil {
		props = []string{}
	}
	a.json(w, http.StatusOK, referencePropsResponse{Props: props})
}

func (a *App) decodeImage(w http.ResponseWriter, data, mime string) (domain.Image, bool) {
	img, err := jsoncfg.ImageJSON{Data: data, MIMEType: mime}.Decode()
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return domain.Image{}, false
	}
	if img.Empty() {
		a.error(w, http.StatusBadRequest, "bad_request", "image required")
		return domain.Image{}, false
	}
	return img, true
}
