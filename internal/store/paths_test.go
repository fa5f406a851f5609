package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGlobalDataPath(t *testing.T) {
	got, err := GlobalDataPath()
	if err != nil {
		t.Fatalf("GlobalDataPath() error = %v", err)
	}
	if !strings.HasSuffix(got, ".mycelium") {
		t.Errorf("GlobalDataPath() = %v, should end with .mycelium", got)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("GlobalDataPath() = %v, should be absolute path", got)
	}
	homeDir, _ := os.UserHomeDir()
	if !strings.HasPrefix(got, homeDir) {
		t.Errorf("GlobalDataPath() = %v, should start with home directory %v", got, homeDir)
	}
}

func TestResolveDataDir(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want func(string) bool
	}{
		{"explicit dir wins", "/tmp/custom", func(s string) bool { return s == "/tmp/custom" }},
		{"empty falls back to global", "", func(s string) bool { return strings.HasSuffix(s, ".mycelium") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDataDir(tt.in)
			if err != nil {
				t.Fatalf("ResolveDataDir() error = %v", err)
			}
			if !tt.want(got) {
				t.Errorf("ResolveDataDir(%q) = %q", tt.in, got)
			}
		})
	}
}

func TestEnsureDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	if err := EnsureDataDir(dir); err != nil {
		t.Fatalf("EnsureDataDir() error = %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("path is not a directory")
	}

	// Second call is a no-op
	if err := EnsureDataDir(dir); err != nil {
		t.Errorf("EnsureDataDir() second call error = %v", err)
	}
}
