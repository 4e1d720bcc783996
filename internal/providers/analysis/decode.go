package analysis

import (
	"encoding/json"
	"errors"

	"google.golang.org/genai"

	"nexiro/internal/domain"
	"nexiro/internal/providers/gemini"
)

var errNoText = errors.New("analysis: response has no text part")

// analysisPayload keeps raw fields so a wrong type on one field does not
// discard the other.
type analysisPayload struct {
	Details json.RawMessage `json:"details"`
	Props   json.RawMessage `json:"props"`
}

// decodeAnalysis reads the first text part as {details, props}. A missing or
// mistyped field falls back to "" or an empty list; a reply with no text or
// no JSON object at all is an error.
func decodeAnalysis(resp *genai.GenerateContentResponse) (domain.AnalysisResult, error) {
	text, ok := gemini.FirstText(resp)
	if !ok {
		return domain.AnalysisResult{}, errNoText
	}
	var payload analysisPayload
	if err := gemini.DecodeJSON(text, &payload); err != nil {
		return domain.AnalysisResult{}, err
	}
	result := domain.AnalysisResult{
		Details: decodeString(payload.Details),
		Props:   decodeStrings(payload.Props),
	}
	return result.Normalize(), nil
}

// decodeProps accepts either {"props": [...]} or a bare array.
func decodeProps(resp *genai.GenerateContentResponse) ([]string, error) {
	text, ok := gemini.FirstText(resp)
	if !ok {
		return nil, errNoText
	}
	var raw json.RawMessage
	if err := gemini.DecodeJSON(text, &raw); err != nil {
		return nil, err
	}
	var payload struct {
		Props json.RawMessage `json:"props"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload.Props = raw
	}
	return domain.AnalysisResult{Props: decodeStrings(payload.Props)}.Normalize().Props, nil
}

func decodeString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func decodeStrings(raw json.RawMessage) []string {
	var list []string
	if len(raw) == 0 || json.Unmarshal(raw, &list) != nil {
		return []string{}
	}
	return list
}
