package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/mycelium/internal/logging"
	"github.com/nvandessel/mycelium/internal/ratelimit"
	"github.com/nvandessel/mycelium/internal/simulation"
	"github.com/nvandessel/mycelium/internal/store"
)

// Server wraps the MCP SDK server and exposes headless simulation and run
// history as tools.
type Server struct {
	server       *sdk.Server
	store        store.RunStore
	runner       *simulation.Runner
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger
	dataDir      string
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "mycelium")
	Version string // Server version
	DataDir string // Holds mycelium.db and audit.jsonl

	// Store overrides the SQLite run store opened under DataDir.
	Store store.RunStore

	Logger *slog.Logger
	Events *logging.EventLogger
}

// NewServer creates a new MCP server with mycelium tools.
func NewServer(cfg *Config) (*Server, error) {
	runStore := cfg.Store
	if runStore == nil {
		sqliteStore, err := store.NewSQLiteRunStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		runStore = sqliteStore
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        runStore,
		runner:       simulation.NewRunner(runStore, logger, cfg.Events),
		toolLimiters: ratelimit.NewToolLimiters(),
		auditLogger:  NewAuditLogger(cfg.DataDir),
		logger:       logger,
		dataDir:      cfg.DataDir,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.Close()

	return err
}

// Close closes the store and the audit log.
func (s *Server) Close() error {
	auditErr := s.auditLogger.Close()
	if err := s.store.Close(); err != nil {
		return err
	}
	return auditErr
}
