// Package asciiflow renders animated ASCII patterns onto a character-cell
// surface.
//
// An [Engine] owns a primary [Grid] and three building blocks:
//
//   - patterns registered by name and switched with a fade, crossfade or cut
//   - a [LayerManager] that draws each pattern into its own layer and
//     composites the layers in z order with per-layer opacity, blend mode and
//     effects
//   - a [PerformanceOptimizer] that samples frame rate and memory once a
//     second and steps the quality level between 0 and [MaxOptimizationLevel]
//
// The engine never touches a real clock. Time, frame callbacks and timers come
// from a [Host]; [Driver] is a manually pumped host used by tests and by the
// ebitenhost and termhost presenters:
//
//	d := asciiflow.NewDriver()
//	e, _ := asciiflow.NewEngine(d, 960, 540, asciiflow.EngineConfig{})
//	_ = patterns.Register(e)
//	e.SwitchPattern("rain", asciiflow.TransitionSpec{Type: asciiflow.TransitionCut}, asciiflow.PatternConfig{})
//	e.StartAnimation()
//	d.Step(16 * time.Millisecond)
//
// # Compositing
//
// Layer grids are composited cell by cell. Backgrounds blend with the
// separable blend formulas of the canvas modes; a glyph replaces the one
// beneath it when its effective coverage exceeds one half.
//
// The engine is single-threaded: all methods must be called from the
// goroutine that pumps the host.
package asciiflow
