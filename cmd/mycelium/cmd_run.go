package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/mycelium/internal/capture"
	"github.com/nvandessel/mycelium/internal/viewer"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var flags simFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the growth animation in a window",
		Long: `Open a window and run the growth animation until it is closed.

Keys:
  Tab / Right        select the next parameter
  Shift+Tab / Left   select the previous parameter
  Up / Down          adjust the selected parameter (hold to repeat)
  Enter              reseed
  C                  start or stop recording frames
  H                  show or hide the overlay
  F                  toggle fullscreen
  Esc                quit

Examples:
  mycelium run
  mycelium run --seed 42 --agents 30
  mycelium run --param step_length=3 --param rand_factor=0.5
  mycelium run --replay 12 --capture`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			fullscreen, _ := cmd.Flags().GetBool("fullscreen")
			captureOnStart, _ := cmd.Flags().GetBool("capture")
			noOverlay, _ := cmd.Flags().GetBool("no-overlay")

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

			cfg := sess.cfg
			game := viewer.New(viewer.Options{
				Width:          cfg.Window.Width,
				Height:         cfg.Window.Height,
				Title:          cfg.Window.Title,
				Fullscreen:     fullscreen || cfg.Window.Fullscreen,
				TicksPerSecond: cfg.Simulation.TicksPerSecond,
				Agents:         settings.Agents,
				Policy:         settings.Policy,
				Params:         settings.Params,
				Seed:           settings.Seed,
				Label:          settings.Label,
				Capture: capture.Options{
					Format:  cfg.Capture.Format,
					Dir:     cfg.Capture.Dir,
					FPS:     cfg.Capture.FPS,
					Quality: cfg.Capture.Quality,
				},
				CaptureOnStart: captureOnStart,
				HideOverlay:    noOverlay,
			}, viewer.Deps{
				Store:  runStore,
				Logger: sess.logger,
				Events: sess.events,
			})

			if err := viewer.Run(game); err != nil {
				return err
			}

			sim := game.Simulation()
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"run_id": game.RunID(),
					"seed":   sim.Seed(),
					"ticks":  sim.TickCount(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run #%d recorded (seed %d, %d ticks). Replay with: mycelium run --replay %d\n",
				game.RunID(), sim.Seed(), sim.TickCount(), game.RunID())
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().Bool("fullscreen", false, "Start in fullscreen")
	cmd.Flags().Bool("capture", false, "Start recording frames immediately")
	cmd.Flags().Bool("no-overlay", false, "Hide the parameter overlay at startup")

	return cmd
}
