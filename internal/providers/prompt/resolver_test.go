package prompt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"google.golang.org/genai"

	"nexiro/internal/domain"
	"nexiro/internal/providers/gemini"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type fakeGenerator struct {
	calls  int
	prompt string
	reply  func() (*genai.GenerateContentResponse, error)
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.reply()
}

func textReply(text string) func() (*genai.GenerateContentResponse, error) {
	return func() (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(text)}},
		}}}, nil
	}
}

func newResolver(t *testing.T, gen gemini.ContentGenerator, onFallback func(string, error)) *GeminiResolver {
	t.Helper()
	r, err := NewGeminiResolver(GeminiOptions{Generator: gen, OnFallback: onFallback})
	if err != nil {
		t.Fatalf("NewGeminiResolver returned error: %v", err)
	}
	return r
}

func TestResolveRewritesTextStyle(t *testing.T) {
	gen := &fakeGenerator{reply: textReply("\"Golden hour backlight, 85mm f/1.8, glossy glaze texture\"")}
	r := newResolver(t, gen, nil)

	got := r.Resolve(context.Background(), domain.NewTextStyle("warm sunset lighting"), domain.ToolFood)
	if got.Kind != domain.StyleText {
		t.Fatalf("Kind = %q, want TEXT", got.Kind)
	}
	if got.Text != "Golden hour backlight, 85mm f/1.8, glossy glaze texture" {
		t.Fatalf("Text = %q", got.Text)
	}
	if !strings.Contains(gen.prompt, "world-class Food Photographer and Art Director") {
		t.Fatalf("prompt missing food role: %q", gen.prompt)
	}
	if !strings.Contains(gen.prompt, `User Input: "warm sunset lighting"`) {
		t.Fatalf("prompt missing user input: %q", gen.prompt)
	}
}

func TestResolveProductRole(t *testing.T) {
	gen := &fakeGenerator{reply: textReply("studio softbox")}
	newResolver(t, gen, nil).Resolve(context.Background(), domain.NewTextStyle("marble"), domain.ToolProduct)
	if !strings.Contains(gen.prompt, "Product/Commercial Photographer") {
		t.Fatalf("prompt missing product role: %q", gen.prompt)
	}
}

func TestResolveImageStyleSkipsModel(t *testing.T) {
	gen := &fakeGenerator{reply: textReply("unused")}
	ref := domain.Image{Data: []byte("ref"), MIMEType: "image/png"}

	got := newResolver(t, gen, nil).Resolve(context.Background(), domain.NewImageStyle(ref), domain.ToolFood)
	if gen.calls != 0 {
		t.Fatalf("calls = %d, want 0", gen.calls)
	}
	if got.Kind != domain.StyleImage || string(got.Reference.Data) != "ref" {
		t.Fatalf("Resolve = %+v, want untouched reference", got)
	}
}

func TestResolveFallsBackToOriginalText(t *testing.T) {
	tests := []struct {
		name       string
		reply      func() (*genai.GenerateContentResponse, error)
		wantReason string
	}{
		{name: "transport", reply: func() (*genai.GenerateContentResponse, error) { return nil, errors.New("boom") }, wantReason: "http_request"},
		{name: "empty candidates", reply: func() (*genai.GenerateContentResponse, error) { return &genai.GenerateContentResponse{}, nil }, wantReason: "decode"},
		{name: "blank text", reply: textReply("```\n```"), wantReason: "decode"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var reason string
			r := newResolver(t, &fakeGenerator{reply: tc.reply}, func(got string, err error) { reason = got })
			res := r.Resolve(context.Background(), domain.NewTextStyle("warm sunset lighting"), domain.ToolFood)
			if res.Text != "warm sunset lighting" {
				t.Fatalf("Text = %q, want original", res.Text)
			}
			if reason != tc.wantReason {
				t.Fatalf("reason = %q, want %q", reason, tc.wantReason)
			}
		})
	}
}

func TestResolveThroughProxyFailure(t *testing.T) {
	proxy, err := gemini.NewProxyClient(gemini.ProxyOptions{
		BaseURL: "http://proxy.invalid",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(strings.NewReader("upstream down")),
				Header:     make(http.Header),
			}, nil
		})},
	})
	if err != nil {
		t.Fatalf("NewProxyClient returned error: %v", err)
	}
	res := newResolver(t, proxy, nil).Resolve(context.Background(), domain.NewTextStyle(""), domain.ToolProduct)
	if res.Text != domain.DefaultStyleDescription {
		t.Fatalf("Text = %q, want default description", res.Text)
	}
}

func TestDecodeRewrite(t *testing.T) {
	tests := map[string]string{
		"plain":    "Soft window light",
		"labelled": "Prompt: Soft window light",
		"quoted":   "“Soft window light”",
		"fenced":   "```\n'Soft window light'\n```",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := decodeRewrite(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(raw)}},
			}}})
			if err != nil {
				t.Fatalf("decodeRewrite returned error: %v", err)
			}
			if got != "Soft window light" {
				t.Fatalf("decodeRewrite(%q) = %q", raw, got)
			}
		})
	}
}
