package store

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/mycelium/internal/params"
)

func newStores(t *testing.T) map[string]RunStore {
	t.Helper()
	sqliteStore, err := NewSQLiteRunStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })
	return map[string]RunStore{
		"sqlite": sqliteStore,
		"memory": NewInMemoryRunStore(),
	}
}

func TestNewSQLiteRunStore(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", ".mycelium")

	s, err := NewSQLiteRunStore(dataDir)
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dataDir, DBFile)); os.IsNotExist(err) {
		t.Error("mycelium.db was not created")
	}
	if s.Path() != filepath.Join(dataDir, DBFile) {
		t.Errorf("Path() = %q", s.Path())
	}
}

func TestRunStore_StartGetFinish(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			entries := []params.Entry{
				{Name: "step_length", Value: 2.5, Step: 0.25},
				{Name: "rand_factor", Value: 1},
			}

			id, err := s.StartRun(ctx, Run{
				Seed:      math.MaxUint64,
				Agents:    20,
				Policy:    "trickle",
				Mode:      ModeHeadless,
				Label:     "baseline",
				StartedAt: started,
				Params:    entries,
			})
			if err != nil {
				t.Fatalf("StartRun() error = %v", err)
			}
			if id <= 0 {
				t.Fatalf("StartRun() id = %d, want > 0", id)
			}

			run, err := s.GetRun(ctx, id)
			if err != nil {
				t.Fatalf("GetRun() error = %v", err)
			}
			if run.Seed != math.MaxUint64 {
				t.Errorf("Seed = %d, want MaxUint64", run.Seed)
			}
			if run.Agents != 20 || run.Policy != "trickle" || run.Mode != ModeHeadless || run.Label != "baseline" {
				t.Errorf("unexpected run: %+v", run)
			}
			if !run.StartedAt.Equal(started) {
				t.Errorf("StartedAt = %v, want %v", run.StartedAt, started)
			}
			if run.Finished() {
				t.Error("run should not be finished yet")
			}
			if len(run.Params) != 2 || run.Params[0] != entries[0] || run.Params[1] != entries[1] {
				t.Errorf("Params = %+v, want %+v", run.Params, entries)
			}

			if err := s.FinishRun(ctx, id, 1200, 37); err != nil {
				t.Fatalf("FinishRun() error = %v", err)
			}
			run, err = s.GetRun(ctx, id)
			if err != nil {
				t.Fatalf("GetRun() error = %v", err)
			}
			if !run.Finished() {
				t.Error("run should be finished")
			}
			if run.Ticks != 1200 || run.Retired != 37 {
				t.Errorf("Ticks/Retired = %d/%d, want 1200/37", run.Ticks, run.Retired)
			}
		})
	}
}

func TestRunStore_NotFound(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.GetRun(ctx, 404); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
			}
			if err := s.FinishRun(ctx, 404, 1, 1); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("FinishRun() error = %v, want ErrRunNotFound", err)
			}
			if err := s.DeleteRun(ctx, 404); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("DeleteRun() error = %v, want ErrRunNotFound", err)
			}
		})
	}
}

func TestRunStore_ListRuns(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			var ids []int64
			for i := 0; i < 5; i++ {
				id, err := s.StartRun(ctx, Run{
					Seed:      uint64(i),
					Agents:    10,
					Policy:    "flush",
					Mode:      ModeWindow,
					StartedAt: base.Add(time.Duration(i) * time.Hour),
					Params:    []params.Entry{{Name: "step_length", Value: 2}},
				})
				if err != nil {
					t.Fatalf("StartRun() error = %v", err)
				}
				ids = append(ids, id)
			}

			all, err := s.ListRuns(ctx, 0)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(all) != 5 {
				t.Fatalf("ListRuns(0) returned %d runs, want 5", len(all))
			}
			if all[0].ID != ids[4] || all[4].ID != ids[0] {
				t.Errorf("ListRuns() not newest first: first=%d last=%d", all[0].ID, all[4].ID)
			}
			if all[0].Params != nil {
				t.Error("ListRuns() should not load params")
			}

			limited, err := s.ListRuns(ctx, 2)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(limited) != 2 || limited[0].Seed != 4 || limited[1].Seed != 3 {
				t.Errorf("ListRuns(2) = %+v", limited)
			}
		})
	}
}

func TestRunStore_DeleteRun(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id, err := s.StartRun(ctx, Run{Seed: 1, Agents: 3, Policy: "trickle", Mode: ModeServe,
				Params: []params.Entry{{Name: "a", Value: 1}}})
			if err != nil {
				t.Fatalf("StartRun() error = %v", err)
			}
			if err := s.DeleteRun(ctx, id); err != nil {
				t.Fatalf("DeleteRun() error = %v", err)
			}
			if _, err := s.GetRun(ctx, id); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("GetRun() after delete error = %v, want ErrRunNotFound", err)
			}
			runs, err := s.ListRuns(ctx, 0)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(runs) != 0 {
				t.Errorf("ListRuns() after delete = %d runs, want 0", len(runs))
			}
		})
	}
}

func TestSQLiteRunStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewSQLiteRunStore(dir)
	if err != nil {
		t.Fatalf("NewSQLiteRunStore() error = %v", err)
	}
	id, err := s.StartRun(ctx, Run{Seed: 77, Agents: 5, Policy: "trickle", Mode: ModeWindow})
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	s.Close()

	s, err = NewSQLiteRunStore(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	run, err := s.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun() after reopen error = %v", err)
	}
	if run.Seed != 77 {
		t.Errorf("Seed = %d, want 77", run.Seed)
	}
}

func TestInMemoryRunStore_ParamsAreCopied(t *testing.T) {
	s := NewInMemoryRunStore()
	ctx := context.Background()
	entries := []params.Entry{{Name: "a", Value: 1}}

	id, _ := s.StartRun(ctx, Run{Params: entries})
	entries[0].Value = 99

	run, err := s.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Params[0].Value != 1 {
		t.Errorf("stored params aliased caller slice: %v", run.Params[0].Value)
	}
}
