package main

import (
	"fmt"

	"github.com/nvandessel/mycelium/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run as an MCP server over stdio",
		Long: `Run mycelium as a Model Context Protocol server on stdin/stdout.

Tools:
  mycelium_simulate   run the simulation headlessly and record the run
  mycelium_runs       list recorded runs
  mycelium_run_show   show a run and how to replay it
  mycelium_snapshot   render a grown population as SVG

Resources:
  mycelium://runs/recent

Logs go to stderr; tool calls are appended to <data dir>/audit.jsonl.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			server, err := mcp.NewServer(&mcp.Config{
				Name:    "mycelium",
				Version: version,
				DataDir: sess.dataDir,
				Logger:  sess.logger,
				Events:  sess.events,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			sess.logger.Info("mcp server starting", "data_dir", sess.dataDir)
			if err := server.Run(cmd.Context()); err != nil {
				return fmt.Errorf("mcp server error: %w", err)
			}
			return nil
		},
	}
}
