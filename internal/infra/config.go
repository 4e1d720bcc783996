package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	LedgerMemory   = "memory"
	LedgerHTTP     = "http"
	LedgerPostgres = "postgres"
	LedgerSupabase = "supabase"

	GeminiTransportSDK   = "sdk"
	GeminiTransportProxy = "proxy"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	JWTSecret          string
	LedgerBackend      string
	LedgerBaseURL      string
	DatabaseURL        string
	SupabaseURL        string
	SupabaseServiceKey string
	RedisURL           string
	SessionTTL         time.Duration
	GeminiTransport    string
	GeminiAPIKey       string
	GeminiProxyURL     string
	GeminiImageModel   string
	GeminiTextModel    string
	GeminiVisionModel  string
	GeminiTimeout      time.Duration
	AnalysisCacheSize  int
	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg, err := LoadToolConfig()
	if err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

// LoadToolConfig is LoadConfig without the API-only requirements, for the CLI.
func LoadToolConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		LedgerBackend:      strings.ToLower(getEnv("LEDGER_BACKEND", LedgerMemory)),
		LedgerBaseURL:      strings.TrimRight(os.Getenv("LEDGER_BASE_URL"), "/"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		RedisURL:           os.Getenv("REDIS_URL"),
		SessionTTL:         time.Minute * time.Duration(getEnvInt("SESSION_TTL_MINUTES", 24*60)),
		GeminiTransport:    strings.ToLower(getEnv("GEMINI_TRANSPORT", GeminiTransportSDK)),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiProxyURL:     strings.TrimRight(os.Getenv("GEMINI_PROXY_URL"), "/"),
		GeminiImageModel:   getEnv("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		GeminiTextModel:    getEnv("GEMINI_TEXT_MODEL", "gemini-3-pro-preview"),
		GeminiVisionModel:  getEnv("GEMINI_VISION_MODEL", "gemini-3-flash-preview"),
		GeminiTimeout:      time.Second * time.Duration(getEnvInt("GEMINI_TIMEOUT_SECONDS", 120)),
		AnalysisCacheSize:  getEnvInt("ANALYSIS_CACHE_SIZE", 256),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the backend selections and the settings each one needs.
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case LedgerMemory:
	case LedgerHTTP:
		if c.LedgerBaseURL == "" {
			return fmt.Errorf("LEDGER_BASE_URL is required for the http ledger")
		}
	case LedgerPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres ledger")
		}
	case LedgerSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for the supabase ledger")
		}
	default:
		return fmt.Errorf("unsupported LEDGER_BACKEND %q", c.LedgerBackend)
	}

	switch c.GeminiTransport {
	case GeminiTransportSDK:
	case GeminiTransportProxy:
		if c.GeminiProxyURL == "" {
			return fmt.Errorf("GEMINI_PROXY_URL is required for the proxy transport")
		}
	default:
		return fmt.Errorf("unsupported GEMINI_TRANSPORT %q", c.GeminiTransport)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
