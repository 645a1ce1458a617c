package asciiflow

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// MaxOptimizationLevel is the most reduced quality tier.
const MaxOptimizationLevel = 3

// Metrics is an immutable performance snapshot taken once per monitoring
// tick.
type Metrics struct {
	FPS             float64
	MemoryUsageMB   float64
	CPUUsagePercent float64 // estimated from render time against the frame budget
	RenderTime      time.Duration
	Timestamp       time.Duration
}

// Settings are the governor's thresholds. Zero fields take the defaults
// from DefaultSettings.
type Settings struct {
	TargetFPS      float64
	MaxMemoryMB    float64
	MaxCPUPercent  float64
	SampleInterval time.Duration
	HistorySize    int
	RecoveryWindow int
	// DisableAdaptive stops the governor from changing the level on its own;
	// snapshots are still recorded.
	DisableAdaptive bool
}

// DefaultSettings returns the default thresholds.
func DefaultSettings() Settings {
	return Settings{
		TargetFPS:      60,
		MaxMemoryMB:    50,
		MaxCPUPercent:  80,
		SampleInterval: time.Second,
		HistorySize:    60,
		RecoveryWindow: 10,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.TargetFPS == 0 {
		s.TargetFPS = d.TargetFPS
	}
	if s.MaxMemoryMB == 0 {
		s.MaxMemoryMB = d.MaxMemoryMB
	}
	if s.MaxCPUPercent == 0 {
		s.MaxCPUPercent = d.MaxCPUPercent
	}
	if s.SampleInterval <= 0 {
		s.SampleInterval = d.SampleInterval
	}
	if s.HistorySize <= 0 {
		s.HistorySize = d.HistorySize
	}
	if s.RecoveryWindow <= 0 {
		s.RecoveryWindow = d.RecoveryWindow
	}
	return s
}

// frameBudget is the render time available per frame at the target rate.
func (s Settings) frameBudget() time.Duration {
	if s.TargetFPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / s.TargetFPS)
}

// SettingsUpdate is a partial settings change. Nil fields are left as they
// are. Values are not validated.
type SettingsUpdate struct {
	TargetFPS       *float64
	MaxMemoryMB     *float64
	MaxCPUPercent   *float64
	RecoveryWindow  *int
	DisableAdaptive *bool
}

// OptimizationKind names the measure taken at an optimization level.
type OptimizationKind string

const (
	OptimizationParticleReduction     OptimizationKind = "particle-reduction"
	OptimizationPatternSimplification OptimizationKind = "pattern-simplification"
	OptimizationMinimalRender         OptimizationKind = "minimal-render"
)

// Optimization describes a level change applied by the governor.
type Optimization struct {
	Level       int
	Kind        OptimizationKind
	Description string
}

var optimizations = [MaxOptimizationLevel + 1]Optimization{
	1: {Level: 1, Kind: OptimizationParticleReduction, Description: "reduce particle and glyph counts"},
	2: {Level: 2, Kind: OptimizationPatternSimplification, Description: "simplify pattern rendering"},
	3: {Level: 3, Kind: OptimizationMinimalRender, Description: "minimal rendering, layer effects off"},
}

// Recommendation thresholds.
const (
	recommendMinFPS    = 30
	recommendMaxMemory = 40
	recommendMaxCPU    = 10
)

// PerformanceOptimizer samples frame timing and memory on a fixed period and
// steps a discrete optimization level (0 best, 3 most reduced). The level
// moves by at most one per sample, and only relaxes after a full recovery
// window of good samples, so noisy readings don't make it oscillate.
type PerformanceOptimizer struct {
	clock    Clock
	timers   Timers
	settings Settings
	log      zerolog.Logger

	level      int
	fps        float64
	frames     int
	fpsSince   time.Duration
	renderTime time.Duration
	memoryMB   float64

	history    []Metrics // ring buffer
	histStart  int
	histLen    int
	stop       func()
	monitoring bool

	// RenderClock times frame rendering in UpdateFrame. It must advance while
	// a frame renders; the engine sets it to a wall clock. Defaults to the
	// optimizer's clock.
	RenderClock Clock

	// ReadMemory reports heap usage in MB. ok=false keeps the previous
	// reading. Defaults to the Go runtime's heap statistics.
	ReadMemory func() (mb float64, ok bool)

	// OnDegrade is called after the level was raised.
	OnDegrade func(m Metrics, level int)
	// OnRecover is called after the level was lowered.
	OnRecover func(m Metrics, level int)
	// OnOptimization is called with the measure applied by a degradation.
	OnOptimization func(o Optimization)
}

// NewPerformanceOptimizer creates a governor sampling on timers and reading
// time from clock.
func NewPerformanceOptimizer(clock Clock, timers Timers, s Settings, log zerolog.Logger) *PerformanceOptimizer {
	s = s.withDefaults()
	return &PerformanceOptimizer{
		clock:       clock,
		timers:      timers,
		settings:    s,
		log:         log.With().Str("component", "optimizer").Logger(),
		fps:         s.TargetFPS,
		fpsSince:    clock.Now(),
		history:     make([]Metrics, s.HistorySize),
		RenderClock: clock,
		ReadMemory:  runtimeMemoryMB,
	}
}

// runtimeMemoryMB reports the live heap of this process.
func runtimeMemoryMB() (float64, bool) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / (1 << 20), true
}

// StartMonitoring starts the fixed-period sampler. Calling it again while
// running does nothing.
func (o *PerformanceOptimizer) StartMonitoring() {
	if o.monitoring {
		return
	}
	o.monitoring = true
	o.frames = 0
	o.fpsSince = o.clock.Now()
	o.stop = o.timers.Every(o.settings.SampleInterval, o.Sample)
}

// StopMonitoring stops the sampler. Calling it when stopped does nothing.
func (o *PerformanceOptimizer) StopMonitoring() {
	if !o.monitoring {
		return
	}
	o.monitoring = false
	if o.stop != nil {
		o.stop()
		o.stop = nil
	}
}

// Monitoring reports whether the sampler is running.
func (o *PerformanceOptimizer) Monitoring() bool {
	return o.monitoring
}

// UpdateFrame records one rendered frame. renderStart is the RenderClock
// reading taken before the frame was rendered; the frame rate is recomputed
// once per elapsed second.
func (o *PerformanceOptimizer) UpdateFrame(renderStart time.Duration) {
	o.renderTime = max(o.RenderClock.Now()-renderStart, 0)
	o.frames++
	o.measureFPS(o.clock.Now())
}

// measureFPS folds the frames counted since fpsSince into the frame rate
// once at least a second has passed.
func (o *PerformanceOptimizer) measureFPS(now time.Duration) {
	if elapsed := now - o.fpsSince; elapsed >= time.Second {
		o.fps = float64(o.frames) / elapsed.Seconds()
		o.frames = 0
		o.fpsSince = now
	}
}

// Sample takes a snapshot, appends it to the history and evaluates the
// level. The monitoring timer calls it every SampleInterval.
func (o *PerformanceOptimizer) Sample() {
	now := o.clock.Now()
	// A starved frame loop never reaches UpdateFrame.
	o.measureFPS(now)
	if o.ReadMemory != nil {
		if mb, ok := o.ReadMemory(); ok {
			o.memoryMB = mb
		}
	}
	m := Metrics{
		FPS:             o.fps,
		MemoryUsageMB:   o.memoryMB,
		CPUUsagePercent: o.cpuEstimate(),
		RenderTime:      o.renderTime,
		Timestamp:       now,
	}
	o.push(m)
	if o.settings.DisableAdaptive {
		return
	}
	o.evaluate(m)
}

func (o *PerformanceOptimizer) cpuEstimate() float64 {
	budget := o.settings.frameBudget()
	if budget <= 0 {
		return 0
	}
	return min(float64(o.renderTime)/float64(budget)*100, 100)
}

func (o *PerformanceOptimizer) degraded(m Metrics) bool {
	s := o.settings
	budget := s.frameBudget()
	return m.FPS < 0.8*s.TargetFPS ||
		m.MemoryUsageMB > s.MaxMemoryMB ||
		m.CPUUsagePercent > s.MaxCPUPercent ||
		float64(m.RenderTime) > 1.5*float64(budget)
}

func (o *PerformanceOptimizer) evaluate(m Metrics) {
	if o.degraded(m) {
		if o.level >= MaxOptimizationLevel {
			return
		}
		o.level++
		opt := optimizations[o.level]
		o.log.Info().
			Int("level", o.level).
			Float64("fps", m.FPS).
			Float64("memory_mb", m.MemoryUsageMB).
			Float64("cpu", m.CPUUsagePercent).
			Dur("render", m.RenderTime).
			Str("optimization", string(opt.Kind)).
			Msg("performance degraded")
		if o.OnDegrade != nil {
			o.OnDegrade(m, o.level)
		}
		if o.OnOptimization != nil {
			o.OnOptimization(opt)
		}
		return
	}
	if o.level == 0 {
		return
	}
	avg, ok := o.recentFPS(o.settings.RecoveryWindow)
	if !ok || avg <= 0.95*o.settings.TargetFPS {
		return
	}
	o.level--
	o.log.Info().Int("level", o.level).Float64("avg_fps", avg).Msg("performance recovered")
	if o.OnRecover != nil {
		o.OnRecover(m, o.level)
	}
}

// recentFPS averages the fps of the last n snapshots. ok is false until n
// snapshots exist.
func (o *PerformanceOptimizer) recentFPS(n int) (float64, bool) {
	if n <= 0 || o.histLen < n {
		return 0, false
	}
	sum := 0.0
	for i := o.histLen - n; i < o.histLen; i++ {
		sum += o.at(i).FPS
	}
	return sum / float64(n), true
}

func (o *PerformanceOptimizer) push(m Metrics) {
	capacity := len(o.history)
	if o.histLen < capacity {
		o.history[(o.histStart+o.histLen)%capacity] = m
		o.histLen++
		return
	}
	o.history[o.histStart] = m
	o.histStart = (o.histStart + 1) % capacity
}

func (o *PerformanceOptimizer) at(i int) Metrics {
	return o.history[(o.histStart+i)%len(o.history)]
}

// History returns the retained snapshots, oldest first.
func (o *PerformanceOptimizer) History() []Metrics {
	out := make([]Metrics, o.histLen)
	for i := range out {
		out[i] = o.at(i)
	}
	return out
}

// Metrics returns the most recent snapshot, or the live readings if no
// snapshot has been taken yet.
func (o *PerformanceOptimizer) Metrics() Metrics {
	if o.histLen > 0 {
		return o.at(o.histLen - 1)
	}
	return Metrics{
		FPS:             o.fps,
		MemoryUsageMB:   o.memoryMB,
		CPUUsagePercent: o.cpuEstimate(),
		RenderTime:      o.renderTime,
		Timestamp:       o.clock.Now(),
	}
}

// Level returns the current optimization level.
func (o *PerformanceOptimizer) Level() int {
	return o.level
}

// ForceLevel sets the level directly, clamped to [0, 3]. No callbacks fire.
func (o *PerformanceOptimizer) ForceLevel(level int) {
	o.level = min(max(level, 0), MaxOptimizationLevel)
}

// Settings returns the current thresholds.
func (o *PerformanceOptimizer) Settings() Settings {
	return o.settings
}

// UpdateSettings merges the set fields of u into the thresholds.
func (o *PerformanceOptimizer) UpdateSettings(u SettingsUpdate) {
	if u.TargetFPS != nil {
		o.settings.TargetFPS = *u.TargetFPS
	}
	if u.MaxMemoryMB != nil {
		o.settings.MaxMemoryMB = *u.MaxMemoryMB
	}
	if u.MaxCPUPercent != nil {
		o.settings.MaxCPUPercent = *u.MaxCPUPercent
	}
	if u.RecoveryWindow != nil {
		o.settings.RecoveryWindow = *u.RecoveryWindow
	}
	if u.DisableAdaptive != nil {
		o.settings.DisableAdaptive = *u.DisableAdaptive
	}
}

// Recommendations returns advisory messages for the latest readings, or a
// single message saying performance is optimal.
func (o *PerformanceOptimizer) Recommendations() []string {
	m := o.Metrics()
	var out []string
	if m.FPS < recommendMinFPS {
		out = append(out, "Low frame rate: reduce pattern density or switch to a simpler pattern")
	}
	if m.MemoryUsageMB > recommendMaxMemory {
		out = append(out, "High memory usage: reduce the number of layers or active patterns")
	}
	if m.CPUUsagePercent > recommendMaxCPU {
		out = append(out, "High render cost: lower animation speed or disable layer effects")
	}
	if len(out) == 0 {
		out = append(out, "Performance is optimal")
	}
	return out
}
