package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"nexiro/internal/infra"
)

const (
	TransportSDK   = "sdk"
	TransportProxy = "proxy"
)

// ContentGenerator is the single call every model stage goes through. It
// matches (*genai.Models).GenerateContent so the SDK client satisfies it
// directly.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options controls how the generator is configured.
type Options struct {
	Transport  string
	APIKey     string
	ProxyURL   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// New builds a ContentGenerator for the configured transport and wraps it
// with call logging.
func New(ctx context.Context, opts Options) (ContentGenerator, error) {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	var (
		gen ContentGenerator
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Transport)) {
	case "", TransportSDK:
		gen, err = NewSDKGenerator(ctx, opts.APIKey, client)
	case TransportProxy:
		gen, err = NewProxyClient(ProxyOptions{
			BaseURL:    opts.ProxyURL,
			APIKey:     opts.APIKey,
			HTTPClient: client,
			Logger:     opts.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported gemini transport %q", opts.Transport)
	}
	if err != nil {
		return nil, err
	}
	return WithLogging(gen, opts.Logger), nil
}

// NewSDKGenerator talks to the Gemini API through the official SDK.
func NewSDKGenerator(ctx context.Context, apiKey string, httpClient *http.Client) (ContentGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client.Models, nil
}

type loggingGenerator struct {
	next   ContentGenerator
	logger infra.Logger
}

// WithLogging records model, latency and outcome of every call.
func WithLogging(next ContentGenerator, logger *infra.Logger) ContentGenerator {
	l := infra.NopLogger()
	if logger != nil {
		l = *logger
	}
	return &loggingGenerator{next: next, logger: l}
}

func (g *loggingGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	start := time.Now()
	resp, err := g.next.GenerateContent(ctx, model, contents, config)
	event := g.logger.Debug()
	if err != nil {
		event = g.logger.Warn().Err(err)
	}
	event.
		Str("model", model).
		Int("parts", countParts(contents)).
		Dur("latency", time.Since(start)).
		Msg("gemini: generate content")
	return resp, err
}

func countParts(contents []*genai.Content) int {
	n := 0
	for _, c := range contents {
		if c != nil {
			n += len(c.Parts)
		}
	}
	return n
}
