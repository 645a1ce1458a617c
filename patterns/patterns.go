// Package patterns provides the built-in asciiflow patterns: digital rain,
// flickering noise and sine waves. Register adds all of them to an engine.
//
// Every pattern accepts the common PatternConfig fields and these options:
//
//	seed  (int, int64, uint64 or float64)  deterministic randomness
//
// Patterns implement asciiflow.QualityAware and shed work as the engine's
// optimization level rises.
package patterns

import (
	"fmt"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/phanxgames/asciiflow"
)

// Built-in pattern names.
const (
	Rain  = "rain"
	Noise = "noise"
	Wave  = "wave"
)

// Register adds every built-in pattern to e under its default name.
func Register(e *asciiflow.Engine) error {
	builtins := []struct {
		name     string
		factory  asciiflow.PatternFactory
		defaults asciiflow.PatternConfig
	}{
		{Rain, NewRain, asciiflow.PatternConfig{Characters: rainGlyphs, Speed: asciiflow.SpeedMedium, Density: asciiflow.DensityMedium}},
		{Noise, NewNoise, asciiflow.PatternConfig{Characters: noiseGlyphs, Speed: asciiflow.SpeedMedium, Density: asciiflow.DensityLow}},
		{Wave, NewWave, asciiflow.PatternConfig{Characters: waveGlyphs, Speed: asciiflow.SpeedSlow, Density: asciiflow.DensityMedium}},
	}
	for _, b := range builtins {
		if err := e.RegisterPattern(b.name, b.factory, b.defaults); err != nil {
			return fmt.Errorf("register %s: %w", b.name, err)
		}
	}
	return nil
}

// glyphSet returns the configured characters, or fallback when none are set.
func glyphSet(cfg asciiflow.PatternConfig, fallback string) []rune {
	if cfg.Characters != "" {
		return []rune(cfg.Characters)
	}
	return []rune(fallback)
}

// newRand builds the pattern's random source from the "seed" option, or a
// randomly seeded one.
func newRand(cfg asciiflow.PatternConfig) (*rand.Rand, error) {
	v, ok := cfg.Option("seed")
	if !ok {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), nil
	}
	var seed uint64
	switch s := v.(type) {
	case int:
		seed = uint64(s)
	case int64:
		seed = uint64(s)
	case uint64:
		seed = s
	case float64:
		seed = uint64(s)
	default:
		return nil, fmt.Errorf("%w: seed option has type %T", asciiflow.ErrConfiguration, v)
	}
	return rand.New(rand.NewPCG(seed, seed)), nil
}

// hueShift rotates c's hue by deg degrees and applies alpha.
func hueShift(c asciiflow.Color, deg, alpha float64) asciiflow.Color {
	if deg == 0 {
		return c.WithAlpha(c.A * alpha)
	}
	h, s, v := colorful.Color{R: c.R, G: c.G, B: c.B}.Hsv()
	out := colorful.Hsv(wrapDegrees(h+deg), s, v).Clamped()
	return asciiflow.Color{R: out.R, G: out.G, B: out.B, A: c.A * alpha}
}

// tint mixes c towards white by t in linear RGB.
func tint(c asciiflow.Color, t float64) asciiflow.Color {
	out := colorful.Color{R: c.R, G: c.G, B: c.B}.BlendRgb(colorful.Color{R: 1, G: 1, B: 1}, t)
	return asciiflow.Color{R: out.R, G: out.G, B: out.B, A: c.A}
}

func wrapDegrees(h float64) float64 {
	for h < 0 {
		h += 360
	}
	for h >= 360 {
		h -= 360
	}
	return h
}
