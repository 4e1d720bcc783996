// Package bootstrap builds the runtime graph from configuration. Both the
// API server and nexiroctl go through it so backend selection lives in one
// place.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"nexiro/internal/adapter/ledger"
	"nexiro/internal/adapter/session"
	"nexiro/internal/credit"
	"nexiro/internal/domain"
	"nexiro/internal/imagegen"
	"nexiro/internal/infra"
	"nexiro/internal/infra/credentials"
	"nexiro/internal/pipeline"
	"nexiro/internal/providers/analysis"
	"nexiro/internal/providers/gemini"
	"nexiro/internal/providers/prompt"
)

// Services is the assembled runtime. Close releases pools and caches.
type Services struct {
	Config      *infra.Config
	Pool        *pgxpool.Pool
	SQL         *infra.SQLRunner
	Credentials *credentials.Store
	Ledger      domain.Ledger
	Accounts    domain.AccountStore
	Analyzer    analysis.Analyzer
	Pipeline    *pipeline.Orchestrator

	closers []func()
}

func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenLedger connects only what the ledger needs: the database when one is
// configured and the selected backend.
func OpenLedger(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Services, error) {
	s := &Services{Config: cfg}
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.Pool = pool
		s.SQL = infra.NewSQLRunner(pool, logger)
		s.Credentials = credentials.NewStore(s.SQL)
		s.closers = append(s.closers, pool.Close)
	}
	l, err := s.newLedger(ctx, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Ledger = l
	return s, nil
}

// Build assembles the full generation pipeline.
func Build(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Services, error) {
	s, err := OpenLedger(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := s.build(ctx, logger); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Services) build(ctx context.Context, logger infra.Logger) error {
	cfg := s.Config
	accounts, err := s.newAccountStore(ctx)
	if err != nil {
		return err
	}
	s.Accounts = accounts

	apiKey, err := s.resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey)
	if err != nil {
		return err
	}
	gen, err := gemini.New(ctx, gemini.Options{
		Transport: cfg.GeminiTransport,
		APIKey:    apiKey,
		ProxyURL:  cfg.GeminiProxyURL,
		Timeout:   cfg.GeminiTimeout,
		Logger:    &logger,
	})
	if err != nil {
		return fmt.Errorf("gemini: %w", err)
	}

	geminiAnalyzer, err := analysis.NewGeminiAnalyzer(analysis.GeminiOptions{
		Generator: gen,
		Model:     cfg.GeminiVisionModel,
		Logger:    &logger,
	})
	if err != nil {
		return err
	}
	cached, err := analysis.NewCachedAnalyzer(geminiAnalyzer, cfg.AnalysisCacheSize)
	if err != nil {
		return fmt.Errorf("analysis cache: %w", err)
	}
	s.closers = append(s.closers, cached.Close)
	s.Analyzer = cached

	resolver, err := prompt.NewGeminiResolver(prompt.GeminiOptions{
		Generator: gen,
		Model:     cfg.GeminiTextModel,
		Logger:    &logger,
	})
	if err != nil {
		return err
	}
	invoker, err := imagegen.NewInvoker(imagegen.InvokerOptions{
		Generator: gen,
		Model:     cfg.GeminiImageModel,
		Logger:    &logger,
	})
	if err != nil {
		return err
	}

	orch, err := pipeline.New(pipeline.Options{
		Analyzer:  cached,
		Resolver:  resolver,
		Gate:      credit.NewGate(s.Ledger),
		Generator: invoker,
		Ledger:    s.Ledger,
		Accounts:  accounts,
		Logger:    &logger,
	})
	if err != nil {
		return err
	}
	s.Pipeline = orch
	return nil
}

func (s *Services) newLedger(ctx context.Context, logger infra.Logger) (domain.Ledger, error) {
	cfg := s.Config
	switch cfg.LedgerBackend {
	case infra.LedgerMemory:
		logger.Warn().Msg("using in-memory ledger; balances are lost on restart")
		return ledger.NewMemory(nil), nil
	case infra.LedgerPostgres:
		if s.SQL == nil {
			return nil, fmt.Errorf("postgres ledger needs DATABASE_URL")
		}
		return ledger.NewPostgres(s.SQL), nil
	case infra.LedgerSupabase:
		return ledger.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceKey, &logger)
	case infra.LedgerHTTP:
		token, err := s.resolve(ctx, credentials.ProviderLedger, "")
		if err != nil {
			return nil, err
		}
		return ledger.NewHTTP(ledger.HTTPOptions{
			BaseURL: cfg.LedgerBaseURL,
			Token:   token,
		})
	default:
		return nil, fmt.Errorf("unsupported LEDGER_BACKEND %q", cfg.LedgerBackend)
	}
}

func (s *Services) newAccountStore(ctx context.Context) (domain.AccountStore, error) {
	if s.Config.RedisURL == "" {
		return session.NewMemoryStore(), nil
	}
	rdb, err := infra.NewRedisClient(ctx, s.Config)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() { _ = rdb.Close() })
	return session.NewRedisStore(rdb, s.Config.SessionTTL), nil
}

// resolve prefers explicit and falls back to the credential store when a
// database is configured.
func (s *Services) resolve(ctx context.Context, provider, explicit string) (string, error) {
	if s.Credentials == nil {
		return explicit, nil
	}
	return s.Credentials.Resolve(ctx, provider, explicit)
}
