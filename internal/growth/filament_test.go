package growth

import (
	"math"
	"testing"
)

func TestVec2Normalize(t *testing.T) {
	tests := []struct {
		name   string
		v      Vec2
		want   Vec2
		wantOK bool
	}{
		{"unit x", V(5, 0), V(1, 0), true},
		{"diagonal", V(3, 4), V(0.6, 0.8), true},
		{"zero", V(0, 0), Vec2{}, false},
		{"nan", V(math.NaN(), 1), Vec2{}, false},
		{"inf", V(math.Inf(1), 0), Vec2{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.v.Normalize()
			if ok != tt.wantOK {
				t.Fatalf("Normalize() ok = %v, want %v", ok, tt.wantOK)
			}
			if !got.ApproxEqual(tt.want, 1e-12) {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRandomUnit_IsUnitLength(t *testing.T) {
	rng := NewRand(7)
	for i := 0; i < 1000; i++ {
		if l := randomUnit(rng).Len(); math.Abs(l-1) > 1e-12 {
			t.Fatalf("randomUnit length = %f, want 1", l)
		}
	}
}

func TestNewRand_Deterministic(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for i := 0; i < 10; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("draw %d differs: %d != %d", i, x, y)
		}
	}
	if NewRand(1).Uint64() == NewRand(2).Uint64() {
		t.Error("different seeds produced the same first draw")
	}
}

func TestPointDisplaced(t *testing.T) {
	p := Point{Pos: V(10, 10), Variation: V(0, 1)}
	if got := p.Displaced(2.5); got != V(10, 12.5) {
		t.Errorf("Displaced(2.5) = %v, want (10, 12.5)", got)
	}
	if got := p.Displaced(0); got != p.Pos {
		t.Errorf("Displaced(0) = %v, want %v", got, p.Pos)
	}
}

func TestNewFilament(t *testing.T) {
	f := NewFilament(FilamentKey{Source: 1, Dest: 2}, V(1, 2), V(30, 40))
	if len(f.Points) != 1 {
		t.Fatalf("len(Points) = %d, want 1", len(f.Points))
	}
	if f.Points[0].Pos != V(1, 2) {
		t.Errorf("first point = %v, want start", f.Points[0].Pos)
	}
	if f.Points[0].Variation != (Vec2{}) {
		t.Errorf("origin variation = %v, want zero", f.Points[0].Variation)
	}
	if f.Finished {
		t.Error("new filament should not be finished")
	}
}

func TestFilamentStep_TwoStepCompletion(t *testing.T) {
	cfg := StepConfig{StepLength: 10, RandFactor: 0, TerminationRadius: 2}
	rng := NewRand(1)
	f := NewFilament(FilamentKey{Source: 1, Dest: 2}, V(0, 0), V(1.5, 0))

	f.Step(cfg, rng)
	if f.Finished {
		t.Fatal("filament finished on the snapping step")
	}
	if len(f.Points) != 2 || f.Last() != V(1.5, 0) {
		t.Fatalf("after snap: points = %v, want [start, end]", f.Points)
	}
	if f.Points[1].Variation != (Vec2{}) {
		t.Errorf("terminal variation = %v, want zero", f.Points[1].Variation)
	}

	f.Step(cfg, rng)
	if !f.Finished {
		t.Fatal("filament should finish on the step after snapping")
	}
	if len(f.Points) != 2 {
		t.Errorf("finishing step appended a point: len = %d", len(f.Points))
	}
}

func TestFilamentStep_FinishedIsNoop(t *testing.T) {
	cfg := StepConfig{StepLength: 10, RandFactor: 5, TerminationRadius: 2}
	rng := NewRand(3)
	f := NewFilament(FilamentKey{Source: 1, Dest: 2}, V(0, 0), V(50, 0))
	for i := 0; i < 100 && !f.Finished; i++ {
		f.Step(cfg, rng)
	}
	if !f.Finished {
		t.Fatal("filament did not finish within 100 steps")
	}

	n := len(f.Points)
	for i := 0; i < 10; i++ {
		f.Step(cfg, rng)
	}
	if len(f.Points) != n {
		t.Errorf("finished filament grew from %d to %d points", n, len(f.Points))
	}
	if f.Last() != f.End {
		t.Errorf("last point = %v, want end %v", f.Last(), f.End)
	}
}

func TestFilamentStep_CoincidentEndpoints(t *testing.T) {
	f := NewFilament(FilamentKey{Source: 1, Dest: 2}, V(5, 5), V(5, 5))
	f.Step(StepConfig{StepLength: 2, RandFactor: 2, TerminationRadius: 2}, NewRand(1))
	if !f.Finished {
		t.Error("filament already on its target should finish immediately")
	}
	if len(f.Points) != 1 {
		t.Errorf("len(Points) = %d, want 1", len(f.Points))
	}
}

func TestFilamentStep_ProgressBound(t *testing.T) {
	// Jitter is bounded by RandFactor, so a step never ends further than
	// max(remaining-StepLength, 0)+RandFactor from the target.
	cfg := StepConfig{StepLength: 10, RandFactor: 2, TerminationRadius: 2}
	rng := NewRand(99)
	f := NewFilament(FilamentKey{Source: 1, Dest: 2}, V(0, 0), V(100, 0))

	prev := f.Last().Dist(f.End)
	for i := 0; i < 100 && !f.Finished; i++ {
		f.Step(cfg, rng)
		if f.Finished {
			break
		}
		d := f.Last().Dist(f.End)
		if d > max(prev-cfg.StepLength, 0)+cfg.RandFactor+1e-9 {
			t.Fatalf("step %d: distance %f did not shrink enough from %f", i, d, prev)
		}
		prev = d
	}
	if !f.Finished {
		t.Fatal("filament did not finish")
	}
	if limit := int(math.Ceil(100/8.0)) + 4; len(f.Points) > limit {
		t.Errorf("took %d points, want at most %d", len(f.Points), limit)
	}
}

func TestFilamentStep_NeverOvershoots(t *testing.T) {
	// A step far longer than the distance must land on the target, not past it.
	cfg := StepConfig{StepLength: 500, RandFactor: 0, TerminationRadius: 2}
	f := NewFilament(FilamentKey{Source: 1, Dest: 2}, V(0, 0), V(30, 40))
	f.Step(cfg, NewRand(1))
	if f.Last() != f.End {
		t.Errorf("last = %v, want end %v", f.Last(), f.End)
	}
}

func TestFilamentStep_ZeroJitterScenario(t *testing.T) {
	cfg := StepConfig{StepLength: 10, RandFactor: 0, TerminationRadius: 2}
	centres := map[AgentID]Vec2{1: V(0, 0), 2: V(100, 0), 3: V(0, 100)}
	targets := []Target{{1, centres[1]}, {2, centres[2]}, {3, centres[3]}}
	rng := NewRand(5)

	for id, c := range centres {
		a := NewAgent(id, c, targets, DefaultPalette[0])
		for _, f := range a.Filaments {
			initial := f.Start.Dist(f.End)
			for i := 0; i < 1000 && !f.Finished; i++ {
				f.Step(cfg, rng)
			}
			if !f.Finished {
				t.Fatalf("%v did not finish", f.Key)
			}
			want := math.Ceil(initial / cfg.StepLength)
			if got := float64(len(f.Points)); math.Abs(got-want) > 1 {
				t.Errorf("%v: %v points, want %v ±1", f.Key, got, want)
			}
			if f.Last() != centres[f.Key.Dest] {
				t.Errorf("%v: final point %v, want %v", f.Key, f.Last(), centres[f.Key.Dest])
			}
		}
	}
}

func TestFilamentRenderPoints_DoesNotMutate(t *testing.T) {
	f := NewFilament(FilamentKey{Source: 1, Dest: 2}, V(0, 0), V(100, 0))
	rng := NewRand(11)
	cfg := StepConfig{StepLength: 10, RandFactor: 1, TerminationRadius: 2}
	for i := 0; i < 3; i++ {
		f.Step(cfg, rng)
	}
	before := make([]Point, len(f.Points))
	copy(before, f.Points)

	rendered := f.RenderPoints(3)
	if len(rendered) != len(f.Points) {
		t.Fatalf("len(rendered) = %d, want %d", len(rendered), len(f.Points))
	}
	if rendered[0] != f.Start {
		t.Errorf("origin rendered at %v, want %v", rendered[0], f.Start)
	}
	for i, p := range f.Points {
		if p != before[i] {
			t.Fatalf("point %d mutated: %v -> %v", i, before[i], p)
		}
		if d := rendered[i].Dist(p.Pos); d > 3+1e-9 {
			t.Errorf("point %d displaced by %f, want <= 3", i, d)
		}
	}
}
