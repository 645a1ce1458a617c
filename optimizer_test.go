package asciiflow

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestOptimizer(s Settings) (*PerformanceOptimizer, *Driver) {
	d := NewDriver()
	if s.TargetFPS == 0 {
		s.TargetFPS = 50
	}
	o := NewPerformanceOptimizer(d, d, s, zerolog.Nop())
	o.ReadMemory = func() (float64, bool) { return 10, true }
	return o, d
}

// runSecond renders one second of zero-cost frames at the given rate.
func runSecond(d *Driver, o *PerformanceOptimizer, fps int) {
	step := time.Second / time.Duration(fps)
	for i := 0; i < fps; i++ {
		d.Advance(step)
		o.UpdateFrame(d.Now())
	}
}

func TestOptimizerInitialState(t *testing.T) {
	o, _ := newTestOptimizer(Settings{})
	if o.Level() != 0 {
		t.Errorf("level = %d, want 0", o.Level())
	}
	if m := o.Metrics(); m.FPS != 50 {
		t.Errorf("initial fps = %v, want target 50", m.FPS)
	}
	s := o.Settings()
	if s.MaxMemoryMB != 50 || s.MaxCPUPercent != 80 || s.SampleInterval != time.Second || s.RecoveryWindow != 10 {
		t.Errorf("defaults not applied: %+v", s)
	}
}

func TestOptimizerFPSMeasurement(t *testing.T) {
	o, d := newTestOptimizer(Settings{})
	runSecond(d, o, 20)
	o.Sample()
	if got := o.Metrics().FPS; got != 20 {
		t.Errorf("fps = %v, want 20", got)
	}
	assertNear(t, "memory", o.Metrics().MemoryUsageMB, 10)
}

func TestOptimizerDegradesOneStepPerSample(t *testing.T) {
	o, d := newTestOptimizer(Settings{})
	var degrades []int
	var kinds []OptimizationKind
	o.OnDegrade = func(_ Metrics, level int) { degrades = append(degrades, level) }
	o.OnOptimization = func(opt Optimization) { kinds = append(kinds, opt.Kind) }

	for i := 1; i <= 4; i++ {
		prev := o.Level()
		runSecond(d, o, 20)
		o.Sample()
		if diff := o.Level() - prev; diff < 0 || diff > 1 {
			t.Fatalf("sample %d moved level %d -> %d", i, prev, o.Level())
		}
	}
	if o.Level() != MaxOptimizationLevel {
		t.Errorf("level = %d, want %d", o.Level(), MaxOptimizationLevel)
	}
	if len(degrades) != 3 || degrades[0] != 1 || degrades[2] != 3 {
		t.Errorf("OnDegrade levels = %v, want [1 2 3]", degrades)
	}
	want := []OptimizationKind{OptimizationParticleReduction, OptimizationPatternSimplification, OptimizationMinimalRender}
	for i, k := range want {
		if i >= len(kinds) || kinds[i] != k {
			t.Fatalf("optimizations = %v, want %v", kinds, want)
		}
	}
}

func TestOptimizerRecoveryNeedsFullWindow(t *testing.T) {
	o, d := newTestOptimizer(Settings{})
	recovered := 0
	o.OnRecover = func(Metrics, int) { recovered++ }
	o.ForceLevel(2)

	for i := 1; i <= 9; i++ {
		runSecond(d, o, 50)
		o.Sample()
		if o.Level() != 2 {
			t.Fatalf("level dropped to %d after %d good samples", o.Level(), i)
		}
	}
	runSecond(d, o, 50)
	o.Sample()
	if o.Level() != 1 {
		t.Errorf("level = %d after 10 good samples, want 1", o.Level())
	}
	if recovered != 1 {
		t.Errorf("OnRecover calls = %d, want 1", recovered)
	}
	runSecond(d, o, 50)
	o.Sample()
	if o.Level() != 0 {
		t.Errorf("level = %d, want 0", o.Level())
	}
	runSecond(d, o, 50)
	o.Sample()
	if o.Level() != 0 {
		t.Errorf("level went below 0: %d", o.Level())
	}
}

func TestOptimizerNoRecoveryBelowThreshold(t *testing.T) {
	o, d := newTestOptimizer(Settings{})
	o.ForceLevel(1)
	// 40 fps is just healthy enough not to degrade but short of 95% of target.
	for i := 0; i < 15; i++ {
		runSecond(d, o, 40)
		o.Sample()
	}
	if o.Level() != 1 {
		t.Errorf("level = %d, want 1", o.Level())
	}
}

func TestOptimizerMemoryPressure(t *testing.T) {
	o, d := newTestOptimizer(Settings{})
	o.ReadMemory = func() (float64, bool) { return 120, true }
	runSecond(d, o, 50)
	o.Sample()
	if o.Level() != 1 {
		t.Errorf("level = %d, want 1", o.Level())
	}

	// A failed read keeps the previous reading.
	o.ReadMemory = func() (float64, bool) { return 0, false }
	o.Sample()
	assertNear(t, "memory", o.Metrics().MemoryUsageMB, 120)
}

func TestOptimizerRenderTimeOverBudget(t *testing.T) {
	o, d := newTestOptimizer(Settings{})
	start := d.Now()
	d.Advance(40 * time.Millisecond)
	o.UpdateFrame(start)
	o.Sample()
	m := o.Metrics()
	if m.RenderTime != 40*time.Millisecond {
		t.Errorf("render time = %v", m.RenderTime)
	}
	assertNear(t, "cpu", m.CPUUsagePercent, 100)
	if o.Level() != 1 {
		t.Errorf("level = %d, want 1", o.Level())
	}
}

func TestOptimizerSeesStarvedFrameLoop(t *testing.T) {
	o, d := newTestOptimizer(Settings{})
	runSecond(d, o, 50)
	o.Sample()
	if o.Level() != 0 {
		t.Fatalf("level = %d after a healthy second", o.Level())
	}
	// No frames for two seconds: UpdateFrame never runs.
	d.Advance(2 * time.Second)
	o.Sample()
	if got := o.Metrics().FPS; got != 0 {
		t.Errorf("fps = %v, want 0", got)
	}
	if o.Level() != 1 {
		t.Errorf("level = %d, want 1", o.Level())
	}
}

func TestOptimizerRenderClockSeparateFromFrameClock(t *testing.T) {
	o, d := newTestOptimizer(Settings{})
	render := NewDriver()
	o.RenderClock = render
	start := render.Now()
	render.Advance(10 * time.Millisecond)
	d.Advance(time.Second)
	o.UpdateFrame(start)
	if got := o.Metrics().RenderTime; got != 10*time.Millisecond {
		t.Errorf("render time = %v, want 10ms from the render clock", got)
	}
}

func TestOptimizerDisableAdaptive(t *testing.T) {
	o, d := newTestOptimizer(Settings{DisableAdaptive: true})
	for i := 0; i < 3; i++ {
		runSecond(d, o, 10)
		o.Sample()
	}
	if o.Level() != 0 {
		t.Errorf("level = %d with adaptive disabled", o.Level())
	}
	if len(o.History()) != 3 {
		t.Errorf("history = %d, want 3", len(o.History()))
	}
}

func TestOptimizerHistoryBounded(t *testing.T) {
	o, d := newTestOptimizer(Settings{HistorySize: 3, DisableAdaptive: true})
	for i := 0; i < 5; i++ {
		d.Advance(time.Second)
		o.Sample()
	}
	h := o.History()
	if len(h) != 3 {
		t.Fatalf("history = %d, want 3", len(h))
	}
	if h[0].Timestamp != 3*time.Second || h[2].Timestamp != 5*time.Second {
		t.Errorf("history spans %v..%v, want 3s..5s", h[0].Timestamp, h[2].Timestamp)
	}
}

func TestOptimizerMonitoringTimer(t *testing.T) {
	o, d := newTestOptimizer(Settings{DisableAdaptive: true})
	o.StartMonitoring()
	o.StartMonitoring()
	if !o.Monitoring() {
		t.Fatal("not monitoring")
	}
	d.Advance(3 * time.Second)
	if n := len(o.History()); n != 3 {
		t.Errorf("samples = %d, want 3", n)
	}
	o.StopMonitoring()
	o.StopMonitoring()
	d.Advance(3 * time.Second)
	if n := len(o.History()); n != 3 {
		t.Errorf("samples after stop = %d, want 3", n)
	}
}

func TestOptimizerForceLevelClamps(t *testing.T) {
	o, _ := newTestOptimizer(Settings{})
	o.ForceLevel(9)
	if o.Level() != 3 {
		t.Errorf("level = %d, want 3", o.Level())
	}
	o.ForceLevel(-4)
	if o.Level() != 0 {
		t.Errorf("level = %d, want 0", o.Level())
	}
}

func TestOptimizerUpdateSettings(t *testing.T) {
	o, _ := newTestOptimizer(Settings{})
	fps := 30.0
	window := 4
	o.UpdateSettings(SettingsUpdate{TargetFPS: &fps, RecoveryWindow: &window})
	s := o.Settings()
	if s.TargetFPS != 30 || s.RecoveryWindow != 4 || s.MaxMemoryMB != 50 {
		t.Errorf("settings = %+v", s)
	}
}

func TestOptimizerRecommendations(t *testing.T) {
	o, d := newTestOptimizer(Settings{DisableAdaptive: true})
	if got := o.Recommendations(); len(got) != 1 || got[0] != "Performance is optimal" {
		t.Errorf("healthy recommendations = %v", got)
	}
	o.ReadMemory = func() (float64, bool) { return 45, true }
	runSecond(d, o, 20)
	o.Sample()
	if got := o.Recommendations(); len(got) != 2 {
		t.Errorf("recommendations = %v, want fps and memory", got)
	}
}
