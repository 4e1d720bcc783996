package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"nexiro/internal/infra"
)

const proxyPath = "/gemini-proxy"

// ProxyOptions configures a ProxyClient.
type ProxyOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// ProxyClient sends GenerateContent calls to a server-side proxy that holds
// the Gemini credentials. The proxy accepts {model, contents, config} and
// answers with the raw Gemini response body.
type ProxyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     infra.Logger
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	Thought    bool              `json:"thought,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type proxyRequest struct {
	Model    string                       `json:"model"`
	Contents []geminiContent              `json:"contents"`
	Config   *genai.GenerateContentConfig `json:"config,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

type inlineAsset struct {
	Data   []byte
	Format string
}

func NewProxyClient(opts ProxyOptions) (*ProxyClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("gemini proxy url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	logger := infra.NopLogger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &ProxyClient{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: client,
		logger:     logger,
	}, nil
}

// GenerateContent implements ContentGenerator.
func (c *ProxyClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	payload := proxyRequest{
		Model:    model,
		Contents: encodeContents(contents),
		Config:   config,
	}
	var out geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, proxyPath, payload, &out); err != nil {
		return nil, err
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		c.logger.Warn().
			Str("model", model).
			Str("block_reason", out.PromptFeedback.BlockReason).
			Msg("gemini: prompt blocked")
	}
	return c.decodeResponse(ctx, out)
}

func encodeContents(contents []*genai.Content) []geminiContent {
	out := make([]geminiContent, 0, len(contents))
	for _, content := range contents {
		if content == nil {
			continue
		}
		wire := geminiContent{Role: content.Role}
		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			switch {
			case part.InlineData != nil:
				wire.Parts = append(wire.Parts, geminiPart{InlineData: &geminiInlineData{
					MimeType: part.InlineData.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(part.InlineData.Data),
				}})
			case part.FileData != nil:
				wire.Parts = append(wire.Parts, geminiPart{FileData: &geminiFileData{
					MimeType: part.FileData.MIMEType,
					FileURI:  part.FileData.FileURI,
				}})
			default:
				wire.Parts = append(wire.Parts, geminiPart{Text: part.Text})
			}
		}
		out = append(out, wire)
	}
	return out
}

func (c *ProxyClient) decodeResponse(ctx context.Context, wire geminiGenerateContentResponse) (*genai.GenerateContentResponse, error) {
	resp := &genai.GenerateContentResponse{}
	for _, cand := range wire.Candidates {
		content := &genai.Content{Role: cand.Content.Role}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil || part.FileData != nil {
				asset, err := c.decodeInlineAsset(ctx, part)
				if err != nil {
					return nil, err
				}
				if len(asset.Data) > 0 {
					content.Parts = append(content.Parts, &genai.Part{
						InlineData: &genai.Blob{MIMEType: asset.Format, Data: asset.Data},
					})
				}
				continue
			}
			if part.Text != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: part.Text, Thought: part.Thought})
			}
		}
		resp.Candidates = append(resp.Candidates, &genai.Candidate{
			Content:      content,
			FinishReason: genai.FinishReason(cand.FinishReason),
		})
	}
	return resp, nil
}

func (c *ProxyClient) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini proxy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini proxy status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			return fmt.Errorf("gemini proxy status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini proxy status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func (c *ProxyClient) decodeInlineAsset(ctx context.Context, part geminiPart) (inlineAsset, error) {
	if part.InlineData != nil && part.InlineData.Data != "" {
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return inlineAsset{}, fmt.Errorf("decode inline data: %w", err)
		}
		return inlineAsset{Data: data, Format: part.InlineData.MimeType}, nil
	}

	if part.FileData != nil && part.FileData.FileURI != "" {
		data, mime, err := c.downloadFile(ctx, part.FileData.FileURI)
		if err != nil {
			return inlineAsset{}, err
		}
		return inlineAsset{Data: data, Format: firstNonEmpty(part.FileData.MimeType, mime)}, nil
	}

	return inlineAsset{}, nil
}

func (c *ProxyClient) downloadFile(ctx context.Context, uri string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, "", fmt.Errorf("download file status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var _ ContentGenerator = (*ProxyClient)(nil)
