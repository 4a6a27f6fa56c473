package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "token")
	if err := os.WriteFile(file, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	t.Setenv("RECRUTABOT_TEST_TOKEN", "from-env")

	tests := []struct {
		name   string
		src    Source
		expect string
	}{
		{name: "file wins", src: Source{File: file, Env: "RECRUTABOT_TEST_TOKEN", Value: "inline"}, expect: "from-file"},
		{name: "env before inline", src: Source{Env: "RECRUTABOT_TEST_TOKEN", Value: "inline"}, expect: "from-env"},
		{name: "inline", src: Source{Value: " inline "}, expect: "inline"},
	}

	for _, tt := range tests {
		got, err := Load(tt.src)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got != tt.expect {
			t.Fatalf("%s: expected %q, got %q", tt.name, tt.expect, got)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("  "), 0o600); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	if _, err := Load(Source{Name: "token", File: empty}); err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}

	if _, err := Load(Source{Name: "token", Env: "RECRUTABOT_UNSET_VAR"}); err == nil || !strings.Contains(err.Error(), "RECRUTABOT_UNSET_VAR") {
		t.Fatalf("expected hint about env variable, got %v", err)
	}
}

func TestOptional(t *testing.T) {
	got, err := Optional(Source{Name: "app secret"})
	if err != nil || got != "" {
		t.Fatalf("expected empty optional secret, got %q, %v", got, err)
	}

	got, err = Optional(Source{Value: "x"})
	if err != nil || got != "x" {
		t.Fatalf("expected inline value, got %q, %v", got, err)
	}
}
