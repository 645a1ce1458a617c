package asciiflow

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LayerManager owns a set of named layers and composites them onto the
// primary grid. Layers are drawn in ascending z-index; equal z-indices keep
// creation order.
type LayerManager struct {
	primary *Grid
	log     zerolog.Logger

	layers    []*Layer // creation order
	byName    map[string]*Layer
	sortedBuf []*Layer
	sorted    bool
	nextOrder int

	tweens         []*layerTween
	pool           gridPool
	quality        int
	effectsEnabled bool
}

// NewLayerManager creates a manager compositing onto primary, with the
// background, middle and foreground layers already in place.
func NewLayerManager(primary *Grid, log zerolog.Logger) *LayerManager {
	lm := &LayerManager{
		primary:        primary,
		log:            log.With().Str("component", "layers").Logger(),
		byName:         make(map[string]*Layer),
		effectsEnabled: true,
	}
	for i, name := range []string{LayerBackground, LayerMiddle, LayerForeground} {
		if _, err := lm.CreateLayer(name, i, 1, BlendNormal); err != nil {
			panic("asciiflow: default layer: " + err.Error())
		}
	}
	return lm
}

// CreateLayer adds a layer whose grid matches the primary grid's size and
// text style. Pass opacity 1 and BlendNormal for the usual defaults.
func (lm *LayerManager) CreateLayer(name string, zIndex int, opacity float64, mode BlendMode) (*Layer, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty layer name", ErrConfiguration)
	}
	if _, exists := lm.byName[name]; exists {
		return nil, fmt.Errorf("%w: layer %q already exists", ErrConfiguration, name)
	}
	surface, err := NewGrid(lm.primary.Width(), lm.primary.Height(), lm.primary.TextStyle())
	if err != nil {
		return nil, fmt.Errorf("layer %q: %w", name, err)
	}
	l := &Layer{
		name:      name,
		zIndex:    zIndex,
		opacity:   clamp01(opacity),
		blendMode: mode,
		surface:   surface,
		order:     lm.nextOrder,
	}
	lm.nextOrder++
	lm.layers = append(lm.layers, l)
	lm.byName[name] = l
	lm.sorted = false
	lm.log.Debug().Str("layer", name).Int("z", zIndex).Msg("layer created")
	return l, nil
}

// Layer returns the named layer.
func (lm *LayerManager) Layer(name string) (*Layer, bool) {
	l, ok := lm.byName[name]
	return l, ok
}

// Layers returns the layers in draw order. The returned slice MUST NOT be
// mutated and is only valid until the next layer change.
func (lm *LayerManager) Layers() []*Layer {
	if !lm.sorted {
		lm.rebuildSorted()
	}
	return lm.sortedBuf
}

// rebuildSorted rebuilds the z-index draw order. Insertion sort over the
// creation-ordered list: stable, zero allocations after warmup, and linear
// for the usual nearly sorted handful of layers.
func (lm *LayerManager) rebuildSorted() {
	n := len(lm.layers)
	if cap(lm.sortedBuf) < n {
		lm.sortedBuf = make([]*Layer, n)
	}
	lm.sortedBuf = lm.sortedBuf[:n]
	copy(lm.sortedBuf, lm.layers)
	for i := 1; i < n; i++ {
		key := lm.sortedBuf[i]
		j := i - 1
		for j >= 0 && lm.sortedBuf[j].zIndex > key.zIndex {
			lm.sortedBuf[j+1] = lm.sortedBuf[j]
			j--
		}
		lm.sortedBuf[j+1] = key
	}
	lm.sorted = true
}

func (lm *LayerManager) lookup(name string) (*Layer, error) {
	l, ok := lm.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: layer %q", ErrNotFound, name)
	}
	return l, nil
}

// AssignPattern binds p to the named layer's grid. A pattern lives on at most
// one layer: it is detached from any other layer first. A pattern previously
// bound to this layer is detached, not disposed.
func (lm *LayerManager) AssignPattern(layerName string, p Pattern) error {
	l, err := lm.lookup(layerName)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: nil pattern for layer %q", ErrConfiguration, layerName)
	}
	for _, other := range lm.layers {
		if other != l && other.pattern == p {
			other.unbind()
		}
	}
	l.pattern = p
	l.fault = nil
	l.pinned = false
	p.Bind(l.surface)
	if qa, ok := p.(QualityAware); ok {
		qa.SetQuality(lm.quality)
	}
	return nil
}

// DetachPattern unbinds and returns the named layer's pattern without
// disposing it. The layer grid is cleared.
func (lm *LayerManager) DetachPattern(layerName string) (Pattern, error) {
	l, err := lm.lookup(layerName)
	if err != nil {
		return nil, err
	}
	p := l.pattern
	l.unbind()
	return p, nil
}

// release unbinds p from whichever layer holds it.
func (lm *LayerManager) release(p Pattern) {
	for _, l := range lm.layers {
		if l.pattern == p {
			l.unbind()
		}
	}
}

// UpdateLayer applies a partial update. Opacity is clamped to [0, 1]; a
// z-index change re-sorts the draw order.
func (lm *LayerManager) UpdateLayer(name string, u LayerUpdate) error {
	l, err := lm.lookup(name)
	if err != nil {
		return err
	}
	if u.Opacity != nil {
		l.opacity = clamp01(*u.Opacity)
	}
	if u.BlendMode != nil {
		l.blendMode = *u.BlendMode
	}
	if u.ZIndex != nil && *u.ZIndex != l.zIndex {
		l.zIndex = *u.ZIndex
		lm.sorted = false
	}
	return nil
}

// UpdateLayers advances layer tweens, then clears, updates and renders every
// layer that has a bound pattern. A pattern that panics is recorded as the
// layer's fault and its layer is skipped by the next RenderLayers; other
// layers are unaffected.
func (lm *LayerManager) UpdateLayers(dt time.Duration) {
	lm.updateTweens(dt)
	for _, l := range lm.layers {
		if l.pattern == nil {
			continue
		}
		l.surface.Clear()
		l.fault = lm.runPattern(l, dt)
	}
}

func (lm *LayerManager) runPattern(l *Layer, dt time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: layer %q: %v", ErrPatternFault, l.name, r)
			lm.log.Error().Err(err).Msg("pattern panicked, layer skipped this frame")
		}
	}()
	l.pattern.Update(dt)
	l.pattern.Render()
	return nil
}

func (lm *LayerManager) updateTweens(dt time.Duration) {
	if len(lm.tweens) == 0 {
		return
	}
	live := lm.tweens[:0]
	for _, t := range lm.tweens {
		if !t.update(lm, dt) {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(lm.tweens); i++ {
		lm.tweens[i] = nil
	}
	lm.tweens = live
}

// RenderLayers clears the primary grid and composites every visible layer
// onto it in draw order. Layers at opacity 0 and faulted layers are skipped.
func (lm *LayerManager) RenderLayers() {
	lm.primary.Clear()
	for _, l := range lm.Layers() {
		if l.opacity <= 0 || l.fault != nil {
			continue
		}
		src := l.surface
		var scratch *Grid
		if l.effect != nil && lm.effectsEnabled {
			scratch = lm.pool.Acquire(src.width, src.height, src.style)
			l.effect.Apply(src, scratch)
			src = scratch
		}
		Composite(lm.primary, src, l.opacity, l.blendMode)
		if scratch != nil {
			lm.pool.Release(scratch)
		}
	}
}

// Resize resizes every layer grid to the given pixel size and restores the
// primary grid's text style on each. Must run before the next render after
// the primary grid is resized.
func (lm *LayerManager) Resize(width, height int) error {
	style := lm.primary.TextStyle()
	for _, l := range lm.layers {
		if l.surface.TextStyle() != style {
			if err := l.surface.SetTextStyle(style); err != nil {
				return fmt.Errorf("layer %q: %w", l.name, err)
			}
		}
		if err := l.surface.Resize(width, height); err != nil {
			return fmt.Errorf("layer %q: %w", l.name, err)
		}
	}
	lm.pool.Drain()
	return nil
}

// ApplyLayerEffect sets a post-process on the named layer, replacing any
// previous one. It affects renders from the next RenderLayers on.
func (lm *LayerManager) ApplyLayerEffect(name string, kind EffectKind, intensity float64) error {
	l, err := lm.lookup(name)
	if err != nil {
		return err
	}
	e, err := NewEffect(kind, intensity)
	if err != nil {
		return err
	}
	l.effect = e
	l.effectKind = kind
	l.effectIntensity = intensity
	return nil
}

// ClearLayerEffect removes the named layer's post-process.
func (lm *LayerManager) ClearLayerEffect(name string) error {
	l, err := lm.lookup(name)
	if err != nil {
		return err
	}
	l.effect = nil
	l.effectKind = 0
	l.effectIntensity = 0
	return nil
}

// SetEffectsEnabled turns layer effects on or off globally without
// forgetting them. The performance governor disables them in minimal-render
// mode.
func (lm *LayerManager) SetEffectsEnabled(enabled bool) {
	lm.effectsEnabled = enabled
}

// EffectsEnabled reports whether layer effects are applied.
func (lm *LayerManager) EffectsEnabled() bool {
	return lm.effectsEnabled
}

// SetQuality forwards an optimization level to every bound pattern that
// implements QualityAware, and to patterns assigned later.
func (lm *LayerManager) SetQuality(level int) {
	lm.quality = level
	for _, l := range lm.layers {
		if qa, ok := l.pattern.(QualityAware); ok {
			qa.SetQuality(level)
		}
	}
}

// AnimateLayer tweens a layer property to target over d with a cubic
// ease-out, advanced by UpdateLayers. The completion resolves when the tween
// ends, or immediately when the layer does not exist or d is not positive.
func (lm *LayerManager) AnimateLayer(name string, prop LayerProperty, target float64, d time.Duration) *Completion {
	l, ok := lm.byName[name]
	if !ok {
		return resolvedCompletion(nil)
	}
	t := newLayerTween(l, prop, target, d)
	if d <= 0 {
		t.apply(lm, target)
		t.done.resolve(nil)
		return t.done
	}
	lm.tweens = append(lm.tweens, t)
	return t.done
}

// RemoveLayer disposes the layer's bound pattern, then discards the layer.
// It fails with ErrBusy while the layer holds a pattern the engine is
// running; detach the pattern or switch away first.
func (lm *LayerManager) RemoveLayer(name string) error {
	l, err := lm.lookup(name)
	if err != nil {
		return err
	}
	if l.pinned {
		return fmt.Errorf("%w: layer %q holds an engine pattern", ErrBusy, name)
	}
	lm.discard(l)
	return nil
}

// dropLayer discards a layer without disposing its pattern.
func (lm *LayerManager) dropLayer(name string) {
	if l, ok := lm.byName[name]; ok {
		l.unbind()
		lm.discard(l)
	}
}

func (lm *LayerManager) discard(l *Layer) {
	lm.disposeLayer(l)
	for i, other := range lm.layers {
		if other == l {
			lm.layers = append(lm.layers[:i], lm.layers[i+1:]...)
			break
		}
	}
	delete(lm.byName, l.name)
	lm.sorted = false
}

func (lm *LayerManager) disposeLayer(l *Layer) {
	if l.pattern != nil {
		lm.cleanupPattern(l.name, l.pattern)
		l.pattern = nil
	}
	l.effect = nil
	l.surface.Dispose()
	l.disposed = true
}

// cleanupPattern runs a pattern's Cleanup, containing any panic.
func (lm *LayerManager) cleanupPattern(layer string, p Pattern) {
	defer func() {
		if r := recover(); r != nil {
			lm.log.Error().Str("layer", layer).Interface("panic", r).Msg("pattern cleanup panicked")
		}
	}()
	p.Cleanup()
}

// Cleanup disposes every layer and bound pattern and resolves pending tweens.
func (lm *LayerManager) Cleanup() {
	for _, t := range lm.tweens {
		t.done.resolve(nil)
	}
	lm.tweens = nil
	for _, l := range lm.layers {
		lm.disposeLayer(l)
	}
	lm.layers = nil
	lm.byName = make(map[string]*Layer)
	lm.sortedBuf = nil
	lm.sorted = false
	lm.pool.Drain()
}
