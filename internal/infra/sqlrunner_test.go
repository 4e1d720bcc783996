package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestExtractMarker(t *testing.T) {
	query := `
--sql 0b6d9a4e-5a3e-4c52-9d0f-3f1b8d7c2a11
select 1;`
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		t.Fatalf("extractMarker returned error: %v", err)
	}
	if marker != "0b6d9a4e-5a3e-4c52-9d0f-3f1b8d7c2a11" {
		t.Fatalf("marker = %q", marker)
	}
	if trimmed != "select 1;" {
		t.Fatalf("trimmed = %q, want %q", trimmed, "select 1;")
	}
}

func TestExtractMarkerRejectsUnmarkedQuery(t *testing.T) {
	for _, query := range []string{"select 1;", "--sql not-a-uuid\nselect 1;", ""} {
		if _, _, err := extractMarker(query); err == nil {
			t.Fatalf("extractMarker(%q) returned nil error", query)
		}
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("load account: %w", pgx.ErrNoRows)) {
		t.Fatal("IsNoRows should match wrapped pgx.ErrNoRows")
	}
	if IsNoRows(errors.New("boom")) {
		t.Fatal("IsNoRows matched an unrelated error")
	}
}
