package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestProxyClientEncodesRequest(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Contents []struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"contents"`
		Config map[string]any `json:"config"`
	}
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gemini-proxy" {
			t.Errorf("path = %q, want /gemini-proxy", r.URL.Path)
		}
		apiKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer srv.Close()

	client, err := NewProxyClient(ProxyOptions{BaseURL: srv.URL + "/", APIKey: "k"})
	if err != nil {
		t.Fatalf("NewProxyClient returned error: %v", err)
	}
	contents := []*genai.Content{{Parts: []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("img")}},
		genai.NewPartFromText("describe"),
	}}}
	cfg := &genai.GenerateContentConfig{ImageConfig: &genai.ImageConfig{AspectRatio: "4:5"}}
	resp, err := client.GenerateContent(context.Background(), "gemini-test", contents, cfg)
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	if text, ok := FirstText(resp); !ok || text != "ok" {
		t.Fatalf("FirstText = %q, %t", text, ok)
	}
	if captured.Model != "gemini-test" {
		t.Fatalf("model = %q, want gemini-test", captured.Model)
	}
	if apiKey != "k" {
		t.Fatalf("x-goog-api-key = %q, want k", apiKey)
	}
	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected contents: %+v", captured.Contents)
	}
	first := captured.Contents[0].Parts[0]
	if first.InlineData == nil || first.InlineData.Data != base64.StdEncoding.EncodeToString([]byte("img")) {
		t.Fatalf("first part not encoded as inline data: %+v", first)
	}
	if captured.Contents[0].Parts[1].Text != "describe" {
		t.Fatalf("second part = %+v, want text", captured.Contents[0].Parts[1])
	}
	imageCfg, _ := captured.Config["imageConfig"].(map[string]any)
	if imageCfg["aspectRatio"] != "4:5" {
		t.Fatalf("config = %#v, want imageConfig.aspectRatio", captured.Config)
	}
}

func TestProxyClientDecodesInlineAndFileParts(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gemini-proxy":
			_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[
				{"text":"here you go"},
				{"fileData":{"fileUri":"`+srv.URL+`/files/1"}},
				{"inlineData":{"mimeType":"image/png","data":"`+png+`"}}
			]},"finishReason":"STOP"}]}`)
		case "/files/1":
			w.Header().Set("Content-Type", "image/webp")
			_, _ = io.WriteString(w, "webp-bytes")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := NewProxyClient(ProxyOptions{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewProxyClient returned error: %v", err)
	}
	resp, err := client.GenerateContent(context.Background(), "m", nil, nil)
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	blob, ok := FirstInlineData(resp)
	if !ok {
		t.Fatal("FirstInlineData found nothing")
	}
	if string(blob.Data) != "webp-bytes" || blob.MIMEType != "image/webp" {
		t.Fatalf("first blob = %q (%s), want downloaded file", blob.Data, blob.MIMEType)
	}
	if FinishReason(resp) != "STOP" {
		t.Fatalf("FinishReason = %q, want STOP", FinishReason(resp))
	}
}

func TestProxyClientErrorStatus(t *testing.T) {
	client, err := NewProxyClient(ProxyOptions{
		BaseURL: "http://proxy.invalid",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Body:       io.NopCloser(strings.NewReader(`{"error":{"code":429,"message":"quota exhausted"}}`)),
				Header:     make(http.Header),
			}, nil
		})},
	})
	if err != nil {
		t.Fatalf("NewProxyClient returned error: %v", err)
	}
	_, err = client.GenerateContent(context.Background(), "m", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "quota exhausted") {
		t.Fatalf("error = %v, want proxy message", err)
	}
}

func TestNewProxyClientRequiresURL(t *testing.T) {
	if _, err := NewProxyClient(ProxyOptions{}); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestResponseHelpersOnEmptyResponse(t *testing.T) {
	if _, ok := FirstText(nil); ok {
		t.Fatal("FirstText(nil) reported a value")
	}
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
		{Text: "thinking", Thought: true},
		{InlineData: &genai.Blob{MIMEType: "image/png"}},
	}}}}}
	if _, ok := FirstText(resp); ok {
		t.Fatal("FirstText returned a thought part")
	}
	if _, ok := FirstInlineData(resp); ok {
		t.Fatal("FirstInlineData returned an empty blob")
	}
}
