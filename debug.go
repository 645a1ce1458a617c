package asciiflow

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// debugSampleEvery is how many frames pass between two frame-stat lines.
const debugSampleEvery = 60

// newLogger picks the engine logger: the configured one, a stderr console
// writer in debug mode, or a no-op logger.
func newLogger(cfg EngineConfig) zerolog.Logger {
	if cfg.Logger != nil {
		return *cfg.Logger
	}
	if !cfg.EnableDebug {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Str("lib", "asciiflow").Logger().Level(zerolog.DebugLevel)
}

// frameStats holds per-frame timing. Only populated when debug is enabled.
type frameStats struct {
	updateTime time.Duration
	renderTime time.Duration
	dt         time.Duration
	layerCount int
	level      int
}

// debugLog logs the frame stats through the sampled frame logger.
func (e *Engine) debugLog(stats frameStats) {
	if !e.debug {
		return
	}
	e.frameLog.Debug().
		Dur("dt", stats.dt).
		Dur("update", stats.updateTime).
		Dur("render", stats.renderTime).
		Dur("total", stats.updateTime+stats.renderTime).
		Int("layers", stats.layerCount).
		Int("level", stats.level).
		Str("state", e.State().String()).
		Msg("frame")
}
