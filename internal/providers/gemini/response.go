package gemini

import (
	"strings"

	"google.golang.org/genai"
)

// FirstText returns the first non-blank text part of the first candidate.
func FirstText(resp *genai.GenerateContentResponse) (string, bool) {
	for _, part := range firstCandidateParts(resp) {
		if part == nil || part.Thought {
			continue
		}
		if text := strings.TrimSpace(part.Text); text != "" {
			return text, true
		}
	}
	return "", false
}

// FirstInlineData returns the first part of the first candidate that carries
// non-empty inline binary data.
func FirstInlineData(resp *genai.GenerateContentResponse) (*genai.Blob, bool) {
	for _, part := range firstCandidateParts(resp) {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData, true
		}
	}
	return nil, false
}

// FinishReason reports why the first candidate stopped, or "" when unknown.
func FinishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return ""
	}
	return string(resp.Candidates[0].FinishReason)
}

func firstCandidateParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return nil
	}
	return cand.Content.Parts
}
