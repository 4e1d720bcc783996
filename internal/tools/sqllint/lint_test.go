package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInlineQueriesCarryMarkers(t *testing.T) {
	violations, err := lintPaths([]string{filepath.Join("..", "..", "sqlinline")})
	if err != nil {
		t.Fatalf("lintPaths returned error: %v", err)
	}
	for _, v := range violations {
		t.Errorf("%s:%d %s (%s)", v.file, v.line, v.message, v.name)
	}
}

func TestLintFlagsMissingAndDuplicateMarkers(t *testing.T) {
	src := "package q\n\n" +
		"const QGood = `--sql 11111111-2222-4333-8444-555555555555\nselect 1;`\n" +
		"const QDup = `--sql 11111111-2222-4333-8444-555555555555\nselect 2;`\n" +
		"const QBare = `select credits from credit_accounts`\n" +
		"const Greeting = \"hello there\"\n"
	path := filepath.Join(t.TempDir(), "q.go")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	violations, err := lintPaths([]string{path})
	if err != nil {
		t.Fatalf("lintPaths returned error: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("violations = %+v, want 2", violations)
	}
	if violations[0].name != "QDup" || !strings.Contains(violations[0].message, "QGood") {
		t.Fatalf("first violation = %+v, want duplicate of QGood", violations[0])
	}
	if violations[1].name != "QBare" {
		t.Fatalf("second violation = %+v, want QBare", violations[1])
	}
}
