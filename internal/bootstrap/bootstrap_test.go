package bootstrap

import (
	"context"
	"strings"
	"testing"

	"nexiro/internal/adapter/ledger"
	"nexiro/internal/infra"
)

func TestBuildWithProxyAndMemoryLedger(t *testing.T) {
	cfg := &infra.Config{
		LedgerBackend:     infra.LedgerMemory,
		GeminiTransport:   infra.GeminiTransportProxy,
		GeminiProxyURL:    "http://127.0.0.1:1",
		AnalysisCacheSize: 16,
	}
	svc, err := Build(context.Background(), cfg, infra.NopLogger())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	defer svc.Close()

	if _, ok := svc.Ledger.(*ledger.Memory); !ok {
		t.Fatalf("Ledger = %T, want *ledger.Memory", svc.Ledger)
	}
	if svc.Pipeline == nil || svc.Analyzer == nil || svc.Accounts == nil {
		t.Fatal("Build left part of the pipeline unset")
	}
	account, err := svc.Pipeline.Account(context.Background(), "a@b.c")
	if err != nil || account.Credits != 0 {
		t.Fatalf("Account = %+v, %v; want fresh FREE account", account, err)
	}
}

func TestBuildSDKNeedsKey(t *testing.T) {
	cfg := &infra.Config{
		LedgerBackend:     infra.LedgerMemory,
		GeminiTransport:   infra.GeminiTransportSDK,
		AnalysisCacheSize: 16,
	}
	_, err := Build(context.Background(), cfg, infra.NopLogger())
	if err == nil || !strings.Contains(err.Error(), "api key") {
		t.Fatalf("Build error = %v, want missing api key", err)
	}
}

func TestOpenLedgerRejectsPostgresWithoutDatabase(t *testing.T) {
	cfg := &infra.Config{LedgerBackend: infra.LedgerPostgres}
	if _, err := OpenLedger(context.Background(), cfg, infra.NopLogger()); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}
