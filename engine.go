package asciiflow

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// EngineState is the pattern-switch state machine's state.
type EngineState uint8

const (
	StateIdle      EngineState = iota // no switch in flight
	StateSwitching                    // a transition is blending two patterns
)

// String returns the state name.
func (s EngineState) String() string {
	if s == StateSwitching {
		return "switching"
	}
	return "idle"
}

type registration struct {
	factory  PatternFactory
	defaults PatternConfig
}

// Engine hosts patterns on a layered character grid and runs the frame loop.
// It owns the primary grid, the pattern registry and the pattern-switch
// state machine; compositing is delegated to a LayerManager and quality
// governing to a PerformanceOptimizer.
//
// Engine is single-threaded: all methods, and the host's frame and timer
// callbacks, must run on the same goroutine.
type Engine struct {
	cfg       EngineConfig
	host      Host
	log       zerolog.Logger
	frameLog  zerolog.Logger
	debug     bool
	primary   *Grid
	layers    *LayerManager
	optimizer *PerformanceOptimizer

	registry map[string]registration

	current        string
	currentPattern Pattern
	transition     *transition

	running      bool
	frameID      FrameID
	generation   uint64
	lastFrame    time.Duration
	haveLast     bool
	appliedLevel int
	frameCount   uint64
	disposed     bool
}

// NewEngine creates an engine drawing onto a primary grid of the given pixel
// size. It fails with ErrConfiguration for a nil host or invalid config and
// with ErrSurface when the primary grid cannot be allocated.
func NewEngine(host Host, width, height int, cfg EngineConfig) (*Engine, error) {
	if host == nil {
		return nil, fmt.Errorf("%w: nil host", ErrConfiguration)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: primary surface %dx%d", ErrSurface, width, height)
	}
	primary, err := NewGrid(width, height, cfg.textStyle())
	if err != nil {
		return nil, err
	}
	if primary.Cols() == 0 || primary.Rows() == 0 {
		return nil, fmt.Errorf("%w: primary surface %dx%d holds no %vpx cells", ErrSurface, width, height, cfg.FontSize)
	}
	primary.SetBackground(cfg.BackgroundColor)
	primary.Clear()

	log := newLogger(cfg)
	e := &Engine{
		cfg:       cfg,
		host:      host,
		log:       log,
		frameLog:  log.Sample(&zerolog.BasicSampler{N: debugSampleEvery}),
		debug:     cfg.EnableDebug,
		primary:   primary,
		layers:    NewLayerManager(primary, log),
		optimizer: NewPerformanceOptimizer(host, host, cfg.Performance, log),
		registry:  make(map[string]registration),
	}
	e.optimizer.RenderClock = cfg.RenderClock
	e.log.Debug().Int("cols", primary.Cols()).Int("rows", primary.Rows()).Msg("engine created")
	return e, nil
}

// Surface returns the primary grid. Hosts read it to present frames.
func (e *Engine) Surface() *Grid { return e.primary }

// Layers returns the layer manager.
func (e *Engine) Layers() *LayerManager { return e.layers }

// Optimizer returns the performance governor.
func (e *Engine) Optimizer() *PerformanceOptimizer { return e.optimizer }

// Config returns the effective configuration, defaults applied.
func (e *Engine) Config() EngineConfig { return e.cfg }

// Running reports whether the frame loop is started.
func (e *Engine) Running() bool { return e.running }

// CurrentPattern returns the name of the active pattern, or "".
func (e *Engine) CurrentPattern() string { return e.current }

// State reports whether a pattern switch is in flight.
func (e *Engine) State() EngineState {
	if e.transition != nil {
		return StateSwitching
	}
	return StateIdle
}

// TransitionProgress returns the in-flight transition's progress in [0, 1],
// or 1 when idle.
func (e *Engine) TransitionProgress() float64 {
	if e.transition == nil {
		return 1
	}
	return e.transition.progress()
}

// Patterns returns the registered pattern names, sorted.
func (e *Engine) Patterns() []string {
	names := make([]string, 0, len(e.registry))
	for name := range e.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterPattern adds a pattern factory under a unique name with the
// configuration its instances start from.
func (e *Engine) RegisterPattern(name string, factory PatternFactory, defaults PatternConfig) error {
	if name == "" {
		return fmt.Errorf("%w: empty pattern name", ErrConfiguration)
	}
	if factory == nil {
		return fmt.Errorf("%w: nil factory for pattern %q", ErrConfiguration, name)
	}
	if _, exists := e.registry[name]; exists {
		return fmt.Errorf("%w: pattern %q already registered", ErrConfiguration, name)
	}
	e.registry[name] = registration{factory: factory, defaults: defaults}
	return nil
}

// RemovePattern unregisters a pattern, disposing its instance if it is the
// active one. It fails with ErrBusy while the pattern takes part in a switch.
func (e *Engine) RemovePattern(name string) error {
	if _, ok := e.registry[name]; !ok {
		return fmt.Errorf("%w: pattern %q", ErrNotFound, name)
	}
	if e.transition != nil && (e.transition.name == name || e.current == name) {
		return fmt.Errorf("%w: pattern %q is switching", ErrBusy, name)
	}
	if e.current == name && e.currentPattern != nil {
		e.layers.release(e.currentPattern)
		e.disposePattern(name, e.currentPattern)
		e.current = ""
		e.currentPattern = nil
	}
	delete(e.registry, name)
	return nil
}

// SwitchPattern makes the named pattern the active one, blending it in as
// spec describes. Errors that prevent the switch from starting are returned
// directly: ErrNotFound for an unregistered name (the active pattern is untouched),
// ErrBusy while another switch is in flight, or the factory's error.
//
// The returned Completion resolves once the transition has finished, the
// new pattern is active and the previous one has been disposed. A zero
// duration or a cut completes before SwitchPattern returns. If the incoming
// pattern faults or the engine is cleaned up mid-switch, the completion
// resolves with ErrPatternFault or ErrCanceled and the previous pattern
// stays active.
func (e *Engine) SwitchPattern(name string, spec TransitionSpec, cfg PatternConfig) (*Completion, error) {
	if e.disposed {
		return nil, fmt.Errorf("%w: engine cleaned up", ErrConfiguration)
	}
	reg, ok := e.registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: pattern %q", ErrNotFound, name)
	}
	if e.transition != nil {
		return nil, fmt.Errorf("%w: switching to %q", ErrBusy, e.transition.name)
	}

	merged := reg.defaults.Merge(cfg)
	if merged.Color == (Color{}) {
		merged.Color = e.cfg.ForegroundColor
	}

	if name == e.current && e.currentPattern != nil {
		if c, ok := e.currentPattern.(Configurable); ok {
			if err := c.Configure(merged); err != nil {
				return nil, fmt.Errorf("configure pattern %q: %w", name, err)
			}
		}
		return resolvedCompletion(nil), nil
	}

	middle := e.ensureMiddle()
	layer, err := e.layers.CreateLayer(transitionLayerName, middle.zIndex, 0, middle.blendMode)
	if err != nil {
		return nil, err
	}
	p, err := e.construct(name, reg, layer.surface, merged)
	if err != nil {
		e.layers.dropLayer(transitionLayerName)
		return nil, err
	}
	if err := e.layers.AssignPattern(transitionLayerName, p); err != nil {
		e.layers.dropLayer(transitionLayerName)
		e.disposePattern(name, p)
		return nil, err
	}
	layer.pinned = true

	t := &transition{
		name:        name,
		spec:        spec,
		incoming:    p,
		done:        newCompletion(),
		baseOpacity: middle.opacity,
	}
	e.transition = t
	e.log.Debug().Str("from", e.current).Str("to", name).
		Str("type", spec.Type.String()).Dur("duration", spec.Duration).Msg("switch started")

	if t.complete() {
		e.finishTransition()
		return t.done, nil
	}
	e.applyTransitionOpacity()
	t.stopTimer = e.host.After(spec.Duration+deadlineMargin, func() {
		if e.transition == t {
			e.log.Warn().Str("pattern", name).Msg("transition deadline reached, forcing completion")
			t.elapsed = t.spec.Duration
			e.finishTransition()
		}
	})
	return t.done, nil
}

// construct runs the factory, turning a panic into an error.
func (e *Engine) construct(name string, reg registration, target *Grid, cfg PatternConfig) (p Pattern, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: constructing %q: %v", ErrPatternFault, name, r)
		}
	}()
	p, err = reg.factory(target, cfg)
	if err != nil {
		return nil, fmt.Errorf("construct pattern %q: %w", name, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: factory for %q returned nil", ErrConfiguration, name)
	}
	return p, nil
}

// ensureMiddle returns the layer active patterns live on, recreating it if
// the host removed it.
func (e *Engine) ensureMiddle() *Layer {
	if l, ok := e.layers.Layer(LayerMiddle); ok {
		return l
	}
	l, err := e.layers.CreateLayer(LayerMiddle, 1, 1, BlendNormal)
	if err != nil {
		panic("asciiflow: recreate middle layer: " + err.Error())
	}
	return l
}

func (e *Engine) applyTransitionOpacity() {
	t := e.transition
	out, in := t.opacities()
	if l, ok := e.layers.Layer(LayerMiddle); ok {
		l.opacity = t.baseOpacity * out
	}
	if l, ok := e.layers.Layer(transitionLayerName); ok {
		l.opacity = t.baseOpacity * in
	}
}

// finishTransition promotes the incoming pattern to the middle layer,
// disposes the outgoing one and resolves the completion.
func (e *Engine) finishTransition() {
	t := e.transition
	if t == nil {
		return
	}
	if !e.incomingBound() {
		e.abortTransition(fmt.Errorf("%w: transition layer lost its pattern", ErrCanceled))
		return
	}
	if t.stopTimer != nil {
		t.stopTimer()
	}
	middle := e.ensureMiddle()
	if e.currentPattern != nil {
		e.layers.release(e.currentPattern)
		e.disposePattern(e.current, e.currentPattern)
	}
	e.layers.dropLayer(transitionLayerName)
	_ = e.layers.AssignPattern(LayerMiddle, t.incoming)
	middle.pinned = true
	middle.opacity = t.baseOpacity

	prev := e.current
	e.current = t.name
	e.currentPattern = t.incoming
	e.transition = nil
	e.log.Debug().Str("from", prev).Str("to", t.name).Msg("switch complete")
	t.done.resolve(nil)
}

// abortTransition disposes the incoming pattern, restores the outgoing one
// and resolves the completion with err.
func (e *Engine) abortTransition(err error) {
	t := e.transition
	if t == nil {
		return
	}
	if t.stopTimer != nil {
		t.stopTimer()
	}
	e.layers.dropLayer(transitionLayerName)
	e.layers.release(t.incoming)
	e.disposePattern(t.name, t.incoming)
	if l, ok := e.layers.Layer(LayerMiddle); ok {
		l.opacity = t.baseOpacity
	}
	e.transition = nil
	e.log.Warn().Err(err).Str("pattern", t.name).Msg("switch aborted")
	t.done.resolve(err)
}

// incomingBound reports whether the transition layer still carries the
// incoming pattern. The host can detach it or drop the emptied layer.
func (e *Engine) incomingBound() bool {
	l, ok := e.layers.Layer(transitionLayerName)
	return ok && l.pattern == e.transition.incoming
}

// disposePattern runs Cleanup, containing any panic.
func (e *Engine) disposePattern(name string, p Pattern) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("pattern", name).Interface("panic", r).Msg("pattern cleanup panicked")
		}
	}()
	p.Cleanup()
}

// StartAnimation starts the frame loop and the performance monitor.
// Calling it while running does nothing.
func (e *Engine) StartAnimation() {
	if e.running || e.disposed {
		return
	}
	e.running = true
	e.generation++
	e.haveLast = false
	e.optimizer.StartMonitoring()
	e.schedule()
	e.log.Debug().Msg("animation started")
}

// StopAnimation stops the frame loop. The last composite stays on the
// primary grid, and no further tick runs, including one already scheduled.
// Calling it while stopped does nothing.
func (e *Engine) StopAnimation() {
	if !e.running {
		return
	}
	e.running = false
	e.generation++
	e.host.CancelFrame(e.frameID)
	e.frameID = 0
	e.optimizer.StopMonitoring()
	e.log.Debug().Msg("animation stopped")
}

func (e *Engine) schedule() {
	gen := e.generation
	e.frameID = e.host.RequestFrame(func(now time.Duration) {
		e.tick(gen, now)
	})
}

// tick renders one frame: layer updates strictly before the composite, and
// the governor is told about the frame strictly after it.
func (e *Engine) tick(gen uint64, now time.Duration) {
	if !e.running || gen != e.generation {
		return
	}
	renderStart := e.optimizer.RenderClock.Now()
	var dt time.Duration
	if e.haveLast {
		dt = max(now-e.lastFrame, 0)
	}
	e.lastFrame = now
	e.haveLast = true

	if level := e.optimizer.Level(); level != e.appliedLevel {
		e.applyLevel(level)
	}

	var stats frameStats
	var t0 time.Time
	if e.debug {
		stats.dt = dt
		t0 = time.Now()
	}

	if e.transition != nil {
		e.transition.elapsed += dt
		e.applyTransitionOpacity()
	}
	e.layers.UpdateLayers(dt)
	if e.transition != nil {
		if !e.incomingBound() {
			e.abortTransition(fmt.Errorf("%w: transition layer lost its pattern", ErrCanceled))
		} else if l, _ := e.layers.Layer(transitionLayerName); l.fault != nil {
			e.abortTransition(l.fault)
		}
	}

	if e.debug {
		stats.updateTime = time.Since(t0)
		t0 = time.Now()
	}

	e.layers.RenderLayers()

	if e.transition != nil && e.transition.complete() {
		e.finishTransition()
	}

	if e.debug {
		stats.renderTime = time.Since(t0)
		stats.layerCount = len(e.layers.layers)
		stats.level = e.appliedLevel
		e.debugLog(stats)
	}

	e.optimizer.UpdateFrame(renderStart)
	e.frameCount++

	if e.running && gen == e.generation {
		e.schedule()
	}
}

// applyLevel pushes a new optimization level to the patterns and turns
// layer effects off in minimal-render mode.
func (e *Engine) applyLevel(level int) {
	e.appliedLevel = level
	e.layers.SetQuality(level)
	e.layers.SetEffectsEnabled(level < MaxOptimizationLevel)
	e.log.Debug().Int("level", level).Msg("optimization level applied")
}

// Frames returns the number of frames rendered since creation.
func (e *Engine) Frames() uint64 { return e.frameCount }

// Resize resizes the primary grid and every layer. Glyph metrics are kept,
// so the cell lattice grows or shrinks instead of the glyphs.
func (e *Engine) Resize(width, height int) error {
	if e.disposed {
		return fmt.Errorf("%w: engine cleaned up", ErrSurface)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: resize to %dx%d", ErrSurface, width, height)
	}
	if err := e.primary.Resize(width, height); err != nil {
		return err
	}
	if err := e.layers.Resize(width, height); err != nil {
		return err
	}
	e.log.Debug().Int("cols", e.primary.Cols()).Int("rows", e.primary.Rows()).Msg("resized")
	return nil
}

// Cleanup stops the loop, cancels an in-flight switch (disposing the
// incoming pattern), disposes every layer and bound pattern and releases
// the primary grid. Safe to call repeatedly.
func (e *Engine) Cleanup() {
	if e.disposed {
		return
	}
	e.StopAnimation()
	e.optimizer.StopMonitoring()
	if e.transition != nil {
		e.abortTransition(ErrCanceled)
	}
	e.layers.Cleanup()
	e.current = ""
	e.currentPattern = nil
	e.primary.Dispose()
	e.disposed = true
	e.log.Debug().Msg("engine cleaned up")
}
