package prompt

import (
	"errors"
	"strings"

	"google.golang.org/genai"

	"nexiro/internal/providers/gemini"
)

var errEmptyRewrite = errors.New("prompt: empty rewrite")

// decodeRewrite reads the first text part of a rewrite reply. Code fences,
// a "Prompt:" label and wrapping quotes are removed. An empty result is an
// error so the caller keeps the original description.
func decodeRewrite(resp *genai.GenerateContentResponse) (string, error) {
	text, ok := gemini.FirstText(resp)
	if !ok {
		return "", errEmptyRewrite
	}
	text = gemini.TrimCodeFence(text)
	text = trimLabel(text)
	text = trimQuotes(text)
	if text == "" {
		return "", errEmptyRewrite
	}
	return text, nil
}

func trimLabel(text string) string {
	for _, label := range []string{"Enhanced Prompt:", "Prompt:"} {
		if len(text) >= len(label) && strings.EqualFold(text[:len(label)], label) {
			return strings.TrimSpace(text[len(label):])
		}
	}
	return text
}

func trimQuotes(text string) string {
	text = strings.TrimSpace(text)
	for _, pair := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}} {
		if len(text) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(text, pair[0]) && strings.HasSuffix(text, pair[1]) {
			return strings.TrimSpace(text[len(pair[0]) : len(text)-len(pair[1])])
		}
	}
	return text
}
