package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nvandessel/mycelium/internal/capture"
	"github.com/nvandessel/mycelium/internal/growth"
	"github.com/nvandessel/mycelium/internal/logging"
	"github.com/nvandessel/mycelium/internal/render"
	"github.com/nvandessel/mycelium/internal/report"
	"github.com/nvandessel/mycelium/internal/simulation"
	"github.com/nvandessel/mycelium/internal/store"
	"github.com/nvandessel/mycelium/internal/visualization"
	"github.com/spf13/cobra"
)

const defaultSimulateTicks = 600

func newSimulateCmd() *cobra.Command {
	var flags simFlags

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the simulation headlessly",
		Long: `Run the simulation without a window for a fixed number of ticks.

The run is recorded in the run history. Frames can be rendered to a PNG
sequence or an MJPEG AVI, the retirement curve can be charted, and the final
frame can be written as SVG, PNG, JSON or HTML.

Examples:
  mycelium simulate --ticks 1200 --seed 7
  mycelium simulate --ticks 600 --chart stats.png
  mycelium simulate --capture frames --format mjpeg
  mycelium simulate --replay 12 --snapshot final.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			ticks, _ := cmd.Flags().GetInt("ticks")
			chartPath, _ := cmd.Flags().GetString("chart")
			captureDir, _ := cmd.Flags().GetString("capture")
			captureFormat, _ := cmd.Flags().GetString("format")
			snapshotPath, _ := cmd.Flags().GetString("snapshot")
			noRecord, _ := cmd.Flags().GetBool("no-record")

			if ticks <= 0 {
				return fmt.Errorf("--ticks must be positive, got %d", ticks)
			}

			var snapshotFormat visualization.Format
			if snapshotPath != "" {
				f, err := visualization.ParseFormat(strings.TrimPrefix(filepath.Ext(snapshotPath), "."))
				if err != nil {
					return fmt.Errorf("--snapshot: %w", err)
				}
				snapshotFormat = f
			}

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

			w, h := sess.cfg.Window.Width, sess.cfg.Window.Height
			sc := simulation.Scenario{
				Name:           "cli",
				Agents:         settings.Agents,
				Policy:         settings.Policy,
				Seed:           settings.Seed,
				Ticks:          ticks,
				Params:         settings.Params,
				Bounds:         render.CentredBounds(w, h),
				TicksPerSecond: sess.cfg.Simulation.TicksPerSecond,
				Label:          settings.Label,
			}

			var rec *frameRecorder
			if captureDir != "" {
				if captureFormat == "" {
					captureFormat = sess.cfg.Capture.Format
				}
				rec, err = newFrameRecorder(capture.Options{
					Format:  captureFormat,
					Dir:     captureDir,
					Width:   w,
					Height:  h,
					FPS:     sess.cfg.Capture.FPS,
					Quality: sess.cfg.Capture.Quality,
				}, render.NewTransform(sc.Bounds, w, h), sess.events)
				if err != nil {
					return err
				}
				sc.OnFrame = rec.record
			}

			var recorder store.RunStore = runStore
			if noRecord {
				recorder = nil
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			result, runErr := simulation.NewRunner(recorder, sess.logger, sess.events).Run(ctx, sc)
			if rec != nil {
				if err := rec.Close(); err != nil && runErr == nil {
					runErr = err
				}
			}
			if runErr != nil {
				return fmt.Errorf("simulation stopped after %d ticks: %w", result.Ticks, runErr)
			}

			if chartPath != "" {
				if err := report.SaveChart(chartPath, result); err != nil {
					return fmt.Errorf("failed to write chart: %w", err)
				}
			}
			if snapshotPath != "" {
				if err := writeSnapshot(snapshotPath, result.Final, render.NewTransform(sc.Bounds, w, h), snapshotFormat); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				summary := map[string]interface{}{
					"result": result,
				}
				if rec != nil {
					summary["capture"] = map[string]interface{}{"target": rec.sink.Target(), "frames": rec.sink.Frames()}
				}
				if chartPath != "" {
					summary["chart"] = chartPath
				}
				if snapshotPath != "" {
					summary["snapshot"] = snapshotPath
				}
				return json.NewEncoder(out).Encode(summary)
			}

			fmt.Fprintf(out, "Simulated %d ticks with %d agents (seed %d, %s)\n", result.Ticks, result.Agents, result.Seed, result.Policy)
			fmt.Fprintf(out, "  retired: %d  spawned: %d  final agents: %d  took: %s\n",
				result.Retired, result.Spawned, result.FinalAgents, result.Duration.Round(time.Millisecond))
			if result.RunID != 0 {
				fmt.Fprintf(out, "  recorded as run #%d\n", result.RunID)
			}
			if rec != nil {
				fmt.Fprintf(out, "  captured %d frames to %s\n", rec.sink.Frames(), rec.sink.Target())
			}
			if chartPath != "" {
				fmt.Fprintf(out, "  chart written to %s\n", chartPath)
			}
			if snapshotPath != "" {
				fmt.Fprintf(out, "  final frame written to %s\n", snapshotPath)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().Int("ticks", defaultSimulateTicks, "Number of ticks to run")
	cmd.Flags().String("chart", "", "Write a retirement chart PNG to this path")
	cmd.Flags().String("capture", "", "Record every frame under this directory")
	cmd.Flags().String("format", "", "Capture format: png or mjpeg (default from config)")
	cmd.Flags().String("snapshot", "", "Write the final frame to this path (.svg, .png, .json or .html)")
	cmd.Flags().Bool("no-record", false, "Do not record the run in the run history")

	return cmd
}

// frameRecorder rasterizes frames into a capture sink. The first write error
// stops recording and is reported by Close.
type frameRecorder struct {
	sink   capture.Sink
	t      render.Transform
	events *logging.EventLogger
	err    error
}

func newFrameRecorder(opts capture.Options, t render.Transform, events *logging.EventLogger) (*frameRecorder, error) {
	sink, err := capture.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start capture: %w", err)
	}
	events.Capture(true, sink.Target(), 0)
	return &frameRecorder{sink: sink, t: t, events: events}, nil
}

func (r *frameRecorder) record(f growth.Frame) {
	if r.err != nil {
		return
	}
	if err := r.sink.WriteFrame(render.Rasterize(f, r.t)); err != nil {
		r.err = fmt.Errorf("capturing frame %d: %w", r.sink.Frames(), err)
	}
}

func (r *frameRecorder) Close() error {
	closeErr := r.sink.Close()
	r.events.Capture(false, r.sink.Target(), r.sink.Frames())
	if r.err != nil {
		return r.err
	}
	return closeErr
}

// writeSnapshot renders frame into path in the given format.
func writeSnapshot(path string, frame growth.Frame, t render.Transform, format visualization.Format) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := visualization.Render(f, frame, t, format); err != nil {
		f.Close()
		return fmt.Errorf("failed to render snapshot: %w", err)
	}
	return f.Close()
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		stopSignals(sigCh)
		cancel()
	}
}
