package asciiflow

import (
	"fmt"
	"strings"
	"time"
)

// Pattern is a pluggable visual behavior. The engine only ever talks to a
// pattern through this surface; how it draws is its own business.
type Pattern interface {
	// Bind sets the grid the pattern draws into. Called when the pattern is
	// assigned to a layer and again whenever it moves to another layer.
	Bind(target *Grid)
	// Update advances the pattern's simulation by dt.
	Update(dt time.Duration)
	// Render draws the current state into the bound grid.
	Render()
	// Cleanup releases the pattern's resources. The engine calls it once.
	Cleanup()
}

// Configurable is implemented by patterns that accept a new configuration
// after construction.
type Configurable interface {
	Configure(cfg PatternConfig) error
}

// QualityAware is implemented by patterns that scale their work with the
// performance governor's optimization level (0 best, 3 most reduced).
type QualityAware interface {
	SetQuality(level int)
}

// PatternFactory constructs a pattern drawing into target.
type PatternFactory func(target *Grid, cfg PatternConfig) (Pattern, error)

// Speed is a coarse animation speed preset.
type Speed uint8

const (
	SpeedDefault Speed = iota // use the registration default
	SpeedSlow
	SpeedMedium
	SpeedFast
)

// Factor returns the speed multiplier relative to medium.
func (s Speed) Factor() float64 {
	switch s {
	case SpeedSlow:
		return 0.5
	case SpeedFast:
		return 2
	default:
		return 1
	}
}

// String returns the preset name.
func (s Speed) String() string {
	switch s {
	case SpeedSlow:
		return "slow"
	case SpeedMedium:
		return "medium"
	case SpeedFast:
		return "fast"
	}
	return "default"
}

// ParseSpeed maps "slow", "medium" or "fast" to a Speed.
func ParseSpeed(s string) (Speed, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return SpeedDefault, nil
	case "slow":
		return SpeedSlow, nil
	case "medium":
		return SpeedMedium, nil
	case "fast":
		return SpeedFast, nil
	}
	return SpeedDefault, fmt.Errorf("%w: unknown speed %q", ErrConfiguration, s)
}

// Density is a coarse fill preset.
type Density uint8

const (
	DensityDefault Density = iota // use the registration default
	DensityLow
	DensityMedium
	DensityHigh
)

// Fraction returns the share of cells a pattern should aim to occupy.
func (d Density) Fraction() float64 {
	switch d {
	case DensityLow:
		return 0.25
	case DensityHigh:
		return 0.8
	default:
		return 0.5
	}
}

// String returns the preset name.
func (d Density) String() string {
	switch d {
	case DensityLow:
		return "low"
	case DensityMedium:
		return "medium"
	case DensityHigh:
		return "high"
	}
	return "default"
}

// ParseDensity maps "low", "medium" or "high" to a Density.
func ParseDensity(s string) (Density, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DensityDefault, nil
	case "low":
		return DensityLow, nil
	case "medium":
		return DensityMedium, nil
	case "high":
		return DensityHigh, nil
	}
	return DensityDefault, fmt.Errorf("%w: unknown density %q", ErrConfiguration, s)
}

// PatternConfig is the configuration handed to pattern factories. Zero
// fields fall back to the registration defaults; Options is open for
// pattern-specific keys.
type PatternConfig struct {
	Characters string
	Speed      Speed
	Density    Density
	Color      Color
	Options    map[string]any
}

// Merge returns c overlaid with override: fields set in override win, unset
// ones keep c's value. Options are merged key by key.
func (c PatternConfig) Merge(override PatternConfig) PatternConfig {
	out := c
	if override.Characters != "" {
		out.Characters = override.Characters
	}
	if override.Speed != SpeedDefault {
		out.Speed = override.Speed
	}
	if override.Density != DensityDefault {
		out.Density = override.Density
	}
	if override.Color != (Color{}) {
		out.Color = override.Color
	}
	if len(override.Options) > 0 {
		opts := make(map[string]any, len(c.Options)+len(override.Options))
		for k, v := range c.Options {
			opts[k] = v
		}
		for k, v := range override.Options {
			opts[k] = v
		}
		out.Options = opts
	}
	return out
}

// Option returns the named option and whether it was set.
func (c PatternConfig) Option(key string) (any, bool) {
	v, ok := c.Options[key]
	return v, ok
}
