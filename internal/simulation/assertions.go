package simulation

import (
	"testing"
)

// AssertPopulationStable asserts that every tick ended with exactly size
// agents and that each replacement pass kept the population size.
func AssertPopulationStable(t *testing.T, result Result, size int) {
	t.Helper()
	for _, ts := range result.PerTick {
		if ts.Agents != size {
			t.Errorf("AssertPopulationStable: tick %d: %d agents, want %d", ts.Tick, ts.Agents, size)
			return
		}
		if !ts.Reseeded && ts.Spawned != ts.Retired {
			t.Errorf("AssertPopulationStable: tick %d: retired %d but spawned %d", ts.Tick, ts.Retired, ts.Spawned)
			return
		}
	}
	if result.FinalAgents != size {
		t.Errorf("AssertPopulationStable: final population %d, want %d", result.FinalAgents, size)
	}
}

// AssertRetirementsOccur asserts that at least min agents were retired over
// the run.
func AssertRetirementsOccur(t *testing.T, result Result, min int) {
	t.Helper()
	if result.Retired < min {
		t.Errorf("AssertRetirementsOccur: %d agents retired over %d ticks, want at least %d", result.Retired, result.Ticks, min)
	}
}

// AssertFilamentCount asserts that every tick rendered size*(size-1)
// filaments. This holds for freshly seeded populations whose centres are
// distinct; after a trickle replacement survivors also keep their
// filaments toward retired agents.
func AssertFilamentCount(t *testing.T, result Result, size int) {
	t.Helper()
	want := size * (size - 1)
	if size == 0 {
		want = 0
	}
	for _, ts := range result.PerTick {
		if ts.Filaments != want {
			t.Errorf("AssertFilamentCount: tick %d: %d filaments, want %d", ts.Tick, ts.Filaments, want)
			return
		}
	}
}

// AssertSameTrajectory asserts that two runs produced identical per-tick
// statistics.
func AssertSameTrajectory(t *testing.T, a, b Result) {
	t.Helper()
	if len(a.PerTick) != len(b.PerTick) {
		t.Fatalf("AssertSameTrajectory: %d ticks vs %d ticks", len(a.PerTick), len(b.PerTick))
	}
	for i := range a.PerTick {
		if a.PerTick[i] != b.PerTick[i] {
			t.Errorf("AssertSameTrajectory: tick %d differs: %+v vs %+v", i, a.PerTick[i], b.PerTick[i])
			return
		}
	}
}

// AssertJitterWithin asserts that the display jitter stayed in [min, max].
func AssertJitterWithin(t *testing.T, result Result, min, max float64) {
	t.Helper()
	for _, ts := range result.PerTick {
		if ts.Jitter < min-1e-9 || ts.Jitter > max+1e-9 {
			t.Errorf("AssertJitterWithin: tick %d: jitter %.4f not in [%.4f, %.4f]", ts.Tick, ts.Jitter, min, max)
			return
		}
	}
}
