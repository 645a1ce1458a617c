package asciiflow

// Default layer names created by NewLayerManager.
const (
	LayerBackground = "background"
	LayerMiddle     = "middle"
	LayerForeground = "foreground"
)

// Layer is a named off-screen grid composited onto the primary grid each
// frame. Its properties are changed through the LayerManager so ordering
// stays consistent.
type Layer struct {
	name      string
	zIndex    int
	opacity   float64
	blendMode BlendMode
	surface   *Grid
	pattern   Pattern

	effect          Effect
	effectKind      EffectKind
	effectIntensity float64

	fault    error
	order    int  // insertion order, breaks zIndex ties
	pinned   bool // bound pattern is owned by the engine
	disposed bool
}

// Name returns the layer's unique name.
func (l *Layer) Name() string { return l.name }

// ZIndex returns the sort key; lower layers are drawn first.
func (l *Layer) ZIndex() int { return l.zIndex }

// Opacity returns the layer opacity in [0, 1].
func (l *Layer) Opacity() float64 { return l.opacity }

// BlendMode returns the compositing operation used for this layer.
func (l *Layer) BlendMode() BlendMode { return l.blendMode }

// Surface returns the layer's private grid.
func (l *Layer) Surface() *Grid { return l.surface }

// Pattern returns the bound pattern, or nil.
func (l *Layer) Pattern() Pattern { return l.pattern }

// Effect returns the active effect and its parameters. ok is false when no
// effect is set.
func (l *Layer) Effect() (kind EffectKind, intensity float64, ok bool) {
	return l.effectKind, l.effectIntensity, l.effect != nil
}

// Fault returns the error recorded when the bound pattern panicked during the
// last update, or nil. A faulted layer is left out of that frame's composite.
func (l *Layer) Fault() error { return l.fault }

// IsDisposed reports whether the layer has been removed.
func (l *Layer) IsDisposed() bool { return l.disposed }

// LayerUpdate is a partial update for UpdateLayer. Nil fields are left
// unchanged.
type LayerUpdate struct {
	Opacity   *float64
	BlendMode *BlendMode
	ZIndex    *int
}

func (l *Layer) unbind() {
	l.pattern = nil
	l.fault = nil
	l.pinned = false
	l.surface.Clear()
}
