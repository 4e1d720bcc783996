package domain

import "strings"

// AnalysisResult holds the subject facts extracted from a source image.
// Details is a short comma-joined list of elements to preserve; Props lists
// objects a user may later exclude from a reference image.
type AnalysisResult struct {
	Details string   `json:"details"`
	Props   []string `json:"props"`
}

// EmptyAnalysis is the fallback used whenever analysis is unavailable.
func EmptyAnalysis() AnalysisResult {
	return AnalysisResult{Details: "", Props: []string{}}
}

// Normalize trims entries, drops blanks and guarantees a non-nil Props.
func (a AnalysisResult) Normalize() AnalysisResult {
	props := make([]string, 0, len(a.Props))
	for _, p := range a.Props {
		if p = strings.TrimSpace(p); p != "" {
			props = append(props, p)
		}
	}
	return AnalysisResult{Details: strings.TrimSpace(a.Details), Props: props}
}

func (a AnalysisResult) IsEmpty() bool {
	return a.Details == "" && len(a.Props) == 0
}
