package asciiflow

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newLoggedEngine(t *testing.T, debug bool) (*Engine, *Driver, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	d := NewDriver()
	e, err := NewEngine(d, 60, 20, EngineConfig{FontSize: 10, EnableDebug: debug, Logger: &log})
	if err != nil {
		t.Fatal(err)
	}
	return e, d, &buf
}

func TestDebugFrameStatsSampled(t *testing.T) {
	e, d, buf := newLoggedEngine(t, true)
	defer e.Cleanup()
	e.StartAnimation()
	for i := 0; i < debugSampleEvery+1; i++ {
		d.Step(16 * time.Millisecond)
	}
	// Frames 1 and 61 pass the sampler.
	if n := strings.Count(buf.String(), `"message":"frame"`); n != 2 {
		t.Errorf("frame lines = %d, want 2\n%s", n, buf)
	}
	if !strings.Contains(buf.String(), `"layers":`) {
		t.Error("frame line missing layer count")
	}
}

func TestNoFrameStatsWithoutDebug(t *testing.T) {
	e, d, buf := newLoggedEngine(t, false)
	defer e.Cleanup()
	e.StartAnimation()
	d.Step(16 * time.Millisecond)
	if strings.Contains(buf.String(), `"message":"frame"`) {
		t.Errorf("frame stats logged outside debug mode:\n%s", buf)
	}
}

func TestNewLoggerNopByDefault(t *testing.T) {
	log := newLogger(EngineConfig{})
	if log.GetLevel() != zerolog.Disabled {
		t.Errorf("level = %v, want disabled", log.GetLevel())
	}
	log = newLogger(EngineConfig{EnableDebug: true})
	if log.GetLevel() != zerolog.DebugLevel {
		t.Errorf("debug level = %v", log.GetLevel())
	}
}
