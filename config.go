package asciiflow

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// EngineConfig configures an Engine. The zero value is usable: zero fields
// take the defaults below.
type EngineConfig struct {
	FontSize        float64 // default 14
	FontFamily      string  // default "monospace"
	BackgroundColor Color   // default opaque black
	ForegroundColor Color   // default phosphor green; fills PatternConfig.Color
	TextAlign       TextAlign
	TextBaseline    TextBaseline
	// EnableDebug logs per-frame stats and lifecycle events to stderr unless
	// Logger is set.
	EnableDebug bool
	// Performance holds the governor thresholds.
	Performance Settings
	// RenderClock measures how long each frame takes to render. The host's
	// frame clock usually stands still during a frame, so nil means a wall
	// clock.
	RenderClock Clock
	// Logger receives engine logs. Nil means stderr in debug mode and no
	// logging otherwise.
	Logger *zerolog.Logger
}

const (
	defaultFontSize   = 14
	defaultFontFamily = "monospace"
)

func (c EngineConfig) withDefaults() EngineConfig {
	if c.FontSize == 0 {
		c.FontSize = defaultFontSize
	}
	if c.FontFamily == "" {
		c.FontFamily = defaultFontFamily
	}
	if c.BackgroundColor == (Color{}) {
		c.BackgroundColor = ColorBlack
	}
	if c.ForegroundColor == (Color{}) {
		c.ForegroundColor = ColorPhosphor
	}
	if c.RenderClock == nil {
		c.RenderClock = NewWallClock()
	}
	c.Performance = c.Performance.withDefaults()
	return c
}

func (c EngineConfig) validate() error {
	if c.FontSize < 0 || math.IsNaN(c.FontSize) || math.IsInf(c.FontSize, 0) {
		return fmt.Errorf("%w: font size %v", ErrConfiguration, c.FontSize)
	}
	if c.TextAlign > TextAlignRight {
		return fmt.Errorf("%w: text align %d", ErrConfiguration, c.TextAlign)
	}
	if c.TextBaseline > TextBaselineBottom {
		return fmt.Errorf("%w: text baseline %d", ErrConfiguration, c.TextBaseline)
	}
	if c.Performance.TargetFPS < 0 {
		return fmt.Errorf("%w: target fps %v", ErrConfiguration, c.Performance.TargetFPS)
	}
	return nil
}

func (c EngineConfig) textStyle() TextStyle {
	return TextStyle{
		FontFamily: c.FontFamily,
		FontSize:   c.FontSize,
		Align:      c.TextAlign,
		Baseline:   c.TextBaseline,
	}
}
