package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nvandessel/mycelium/internal/visualization"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var flags simFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live animation to a browser",
		Long: `Start a local HTTP server that runs the simulation and streams frames to a
browser page over a websocket. The page sends the same commands as the
window keys.

Endpoints:
  /                  live page
  /api/frame         latest frame as JSON
  /api/snapshot      latest frame as svg, png or json (?format=)
  /api/params        parameter values (GET) or commands (POST)
  /api/stream        websocket frame stream

Examples:
  mycelium serve
  mycelium serve --addr 127.0.0.1:8080 --no-open
  mycelium serve --replay 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			noOpen, _ := cmd.Flags().GetBool("no-open")

			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			runStore, err := sess.openStore()
			if err != nil {
				return err
			}
			defer runStore.Close()

			settings, err := flags.resolve(cmd.Context(), cmd, sess.cfg, runStore)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = sess.cfg.Server.Addr
			}

			srv := visualization.NewServer(visualization.Options{
				Addr:           addr,
				Width:          sess.cfg.Window.Width,
				Height:         sess.cfg.Window.Height,
				TicksPerSecond: sess.cfg.Simulation.TicksPerSecond,
				Agents:         settings.Agents,
				Policy:         settings.Policy,
				Params:         settings.Params,
				Seed:           settings.Seed,
				Label:          settings.Label,
			}, visualization.Deps{
				Store:  runStore,
				Logger: sess.logger,
				Events: sess.events,
			})

			return runServer(cmd, cmd.Context(), srv, noOpen)
		},
	}

	flags.register(cmd)
	cmd.Flags().String("addr", "", "Listen address (default from config; port 0 picks a free one)")
	cmd.Flags().Bool("no-open", false, "Don't open the page in a browser")

	return cmd
}

// runServer starts srv and blocks until Ctrl-C.
func runServer(cmd *cobra.Command, ctx context.Context, srv *visualization.Server, noOpen bool) error {
	srvCtx, srvCancel := signalContext(ctx)
	defer srvCancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(srvCtx) }()

	// Wait for server to start
	deadline := time.Now().Add(3 * time.Second)
	for srv.Addr() == "" && time.Now().Before(deadline) {
		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}

	addr := srv.Addr()
	if addr == "" {
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + addr
	fmt.Fprintf(cmd.OutOrStdout(), "Mycelium server running at %s (run #%d)\n", url, srv.RunID())
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	if !noOpen {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	// Block until server exits
	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
