package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nvandessel/mycelium/internal/store"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run history",
		Long: `List, show and delete recorded runs.

Every window session, headless simulation and server seed is recorded with
its seed and starting parameters. Use the run ID with --replay to grow the
same network again.

Examples:
  mycelium runs list
  mycelium runs list --limit 5 --json
  mycelium runs show 12
  mycelium runs delete 12`,
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsDeleteCmd(),
	)

	return cmd
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			runStore, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer runStore.Close()

			runs, err := runStore.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
			}

			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			writeRunTable(out, runs)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a run with its parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}

			runStore, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer runStore.Close()

			run, err := runStore.GetRun(cmd.Context(), id)
			if err != nil {
				if errors.Is(err, store.ErrRunNotFound) {
					return fmt.Errorf("run %d not found", id)
				}
				return fmt.Errorf("failed to get run: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(run)
			}

			fmt.Fprintf(out, "Run #%d\n", run.ID)
			fmt.Fprintf(out, "  seed:     %d\n", run.Seed)
			fmt.Fprintf(out, "  agents:   %d\n", run.Agents)
			fmt.Fprintf(out, "  policy:   %s\n", run.Policy)
			fmt.Fprintf(out, "  mode:     %s\n", run.Mode)
			if run.Label != "" {
				fmt.Fprintf(out, "  label:    %s\n", run.Label)
			}
			fmt.Fprintf(out, "  started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
			if run.Finished() {
				fmt.Fprintf(out, "  ended:    %s\n", run.EndedAt.Local().Format(time.DateTime))
				fmt.Fprintf(out, "  ticks:    %d\n", run.Ticks)
				fmt.Fprintf(out, "  retired:  %d\n", run.Retired)
			} else {
				fmt.Fprintln(out, "  ended:    (in progress or interrupted)")
			}
			if len(run.Params) > 0 {
				fmt.Fprintln(out, "  params:")
				for _, p := range run.Params {
					fmt.Fprintf(out, "    %-22s %g\n", p.Name, p.Value)
				}
			}
			fmt.Fprintf(out, "\nReplay with: mycelium run --replay %d\n", run.ID)
			return nil
		},
	}
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a run from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}

			runStore, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer runStore.Close()

			if err := runStore.DeleteRun(cmd.Context(), id); err != nil {
				if errors.Is(err, store.ErrRunNotFound) {
					return fmt.Errorf("run %d not found", id)
				}
				return fmt.Errorf("failed to delete run: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "deleted",
					"id":     id,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run #%d\n", id)
			return nil
		},
	}
}

// openRunStore opens the run history without loading the rest of the session.
func openRunStore(cmd *cobra.Command) (*store.SQLiteRunStore, error) {
	flagDir, _ := cmd.Flags().GetString("data-dir")
	dataDir, err := store.ResolveDataDir(flagDir)
	if err != nil {
		return nil, err
	}
	runStore, err := store.NewSQLiteRunStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return runStore, nil
}

func parseRunID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run id: %s", s)
	}
	return id, nil
}

func writeRunTable(w io.Writer, runs []store.Run) {
	fmt.Fprintf(w, "%-5s %-20s %6s %-8s %-8s %8s %7s %-19s %s\n",
		"ID", "SEED", "AGENTS", "POLICY", "MODE", "TICKS", "RETIRED", "STARTED", "LABEL")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range runs {
		ticks := "-"
		retired := "-"
		if r.Finished() {
			ticks = strconv.FormatUint(r.Ticks, 10)
			retired = strconv.Itoa(r.Retired)
		}
		label := r.Label
		if utf8.RuneCountInString(label) > 30 {
			label = string([]rune(label)[:27]) + "..."
		}
		fmt.Fprintf(w, "%-5d %-20d %6d %-8s %-8s %8s %7s %-19s %s\n",
			r.ID, r.Seed, r.Agents, r.Policy, r.Mode, ticks, retired,
			r.StartedAt.Local().Format(time.DateTime), label)
	}
}
