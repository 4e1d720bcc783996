package infra

import (
	"strings"
	"testing"
	"time"
)

func clearLedgerEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LEDGER_BACKEND", "LEDGER_BASE_URL", "DATABASE_URL", "SUPABASE_URL", "SUPABASE_SERVICE_KEY",
		"GEMINI_TRANSPORT", "GEMINI_PROXY_URL", "CORS_ALLOWED_ORIGINS", "GEMINI_IMAGE_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearLedgerEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.LedgerBackend != LedgerMemory {
		t.Fatalf("LedgerBackend = %q, want %q", cfg.LedgerBackend, LedgerMemory)
	}
	if cfg.GeminiTransport != GeminiTransportSDK {
		t.Fatalf("GeminiTransport = %q, want %q", cfg.GeminiTransport, GeminiTransportSDK)
	}
	if cfg.GeminiImageModel != "gemini-3-pro-image-preview" {
		t.Fatalf("GeminiImageModel = %q", cfg.GeminiImageModel)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("SessionTTL = %s, want 24h", cfg.SessionTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("CORSAllowedOrigins = %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	clearLedgerEnv(t)
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("LoadConfig error = %v, want JWT_SECRET requirement", err)
	}
	if _, err := LoadToolConfig(); err != nil {
		t.Fatalf("LoadToolConfig returned error: %v", err)
	}
}

func TestLoadConfigLedgerRequirements(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "postgres needs database", env: map[string]string{"LEDGER_BACKEND": "postgres"}, wantErr: "DATABASE_URL"},
		{name: "http needs base url", env: map[string]string{"LEDGER_BACKEND": "http"}, wantErr: "LEDGER_BASE_URL"},
		{name: "supabase needs keys", env: map[string]string{"LEDGER_BACKEND": "supabase", "SUPABASE_URL": "https://x.supabase.co"}, wantErr: "SUPABASE_SERVICE_KEY"},
		{name: "unknown backend", env: map[string]string{"LEDGER_BACKEND": "sqlite"}, wantErr: "unsupported LEDGER_BACKEND"},
		{name: "proxy needs url", env: map[string]string{"GEMINI_TRANSPORT": "proxy"}, wantErr: "GEMINI_PROXY_URL"},
		{name: "postgres ok", env: map[string]string{"LEDGER_BACKEND": "Postgres", "DATABASE_URL": "postgres://example"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearLedgerEnv(t)
			t.Setenv("JWT_SECRET", "test-secret")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("LoadConfig returned error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("LoadConfig error = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadConfigParsesOriginList(t *testing.T) {
	clearLedgerEnv(t)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://app.example.com, ,https://admin.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://app.example.com", "https://admin.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins = %#v, want %#v", cfg.CORSAllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
}
