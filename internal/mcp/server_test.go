package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/mycelium/internal/ratelimit"
	"github.com/nvandessel/mycelium/internal/store"
)

// newTestServer builds a server over an in-memory store with generous limits.
func newTestServer(t *testing.T) (*Server, *store.InMemoryRunStore) {
	t.Helper()
	runStore := store.NewInMemoryRunStore()
	server, err := NewServer(&Config{
		Name:    "test-server",
		Version: "v1.0.0",
		DataDir: t.TempDir(),
		Store:   runStore,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { server.Close() })

	for name := range server.toolLimiters {
		server.toolLimiters[name] = ratelimit.NewLimiter(1000, 1000)
	}
	return server, runStore
}

func TestNewServer(t *testing.T) {
	dataDir := t.TempDir()
	server, err := NewServer(&Config{
		Name:    "test-server",
		Version: "v1.0.0",
		DataDir: dataDir,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	if server.server == nil {
		t.Error("Server.server is nil")
	}
	if server.store == nil {
		t.Error("Server.store is nil")
	}
	if server.runner == nil {
		t.Error("Server.runner is nil")
	}
	if server.dataDir != dataDir {
		t.Errorf("Server.dataDir = %q, want %q", server.dataDir, dataDir)
	}

	if _, err := os.Stat(filepath.Join(dataDir, AuditFile)); err != nil {
		t.Errorf("audit log not created: %v", err)
	}
}

func TestNewServer_UsesStoreOverride(t *testing.T) {
	server, runStore := newTestServer(t)
	if server.store != runStore {
		t.Error("Config.Store was not used")
	}
}

func TestClose(t *testing.T) {
	server, err := NewServer(&Config{
		Name:    "test-server",
		Version: "v1.0.0",
		DataDir: t.TempDir(),
		Store:   store.NewInMemoryRunStore(),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	if err := server.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	// The audit log tolerates a second close.
	if err := server.auditLogger.Close(); err != nil {
		t.Errorf("second audit Close failed: %v", err)
	}
}
