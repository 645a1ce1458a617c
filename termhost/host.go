// Package termhost presents an asciiflow engine in a terminal through tcell.
// Each grid cell maps onto one terminal cell; colors are flattened onto the
// cell background and sent as 24-bit RGB.
package termhost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"

	"github.com/phanxgames/asciiflow"
)

const defaultFrameInterval = 16 * time.Millisecond

// Config configures the terminal host.
type Config struct {
	// FrameInterval is the presentation period. Default ~60 Hz.
	FrameInterval time.Duration
	// OnKey is called for printable keys. Escape and Ctrl-C quit.
	OnKey func(r rune)
	// OnFrame is called on the loop goroutine after each engine frame.
	OnFrame func()
	// Screen overrides the terminal, e.g. with tcell.NewSimulationScreen.
	Screen tcell.Screen
	Logger zerolog.Logger
}

// Host implements asciiflow.Host on a tcell screen.
type Host struct {
	*asciiflow.Driver

	cfg    Config
	screen tcell.Screen
	engine *asciiflow.Engine
	start  time.Time
}

// New initialises the terminal. The caller must eventually call Run, or
// Close when Run is never reached.
func New(cfg Config) (*Host, error) {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = defaultFrameInterval
	}
	screen := cfg.Screen
	if screen == nil {
		var err error
		if screen, err = tcell.NewScreen(); err != nil {
			return nil, fmt.Errorf("termhost: open terminal: %w", err)
		}
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("termhost: init terminal: %w", err)
	}
	screen.HideCursor()
	return &Host{
		Driver: asciiflow.NewDriver(),
		cfg:    cfg,
		screen: screen,
	}, nil
}

// PixelSize returns the engine surface size that maps one grid cell onto
// each terminal cell for the given text style.
func (h *Host) PixelSize(style asciiflow.TextStyle) (int, int) {
	cols, rows := h.screen.Size()
	return asciiflow.PixelSize(cols, rows, style)
}

// Attach sets the engine to present.
func (h *Host) Attach(e *asciiflow.Engine) { h.engine = e }

// Close cleans up the engine and restores the terminal.
func (h *Host) Close() {
	if h.engine != nil {
		h.engine.Cleanup()
	}
	h.screen.Fini()
}

// Run pumps the engine and presents frames until ctx is done or the user
// quits. It closes the host on return.
func (h *Host) Run(ctx context.Context) error {
	if h.engine == nil {
		return errors.New("termhost: no engine attached")
	}
	defer h.Close()

	ticker := time.NewTicker(h.cfg.FrameInterval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 64)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := h.screen.PollEvent()
			if ev == nil {
				// Screen finalised.
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	h.start = time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !h.handleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			h.AdvanceTo(time.Since(h.start))
			h.Frame()
			if h.cfg.OnFrame != nil {
				h.cfg.OnFrame()
			}
			h.present()
		}
	}
}

// handleEvent reports whether the loop should keep running.
func (h *Host) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			if h.cfg.OnKey != nil {
				h.cfg.OnKey(ev.Rune())
			}
		}
	case *tcell.EventResize:
		h.screen.Sync()
		w, hh := h.PixelSize(h.engine.Surface().TextStyle())
		if err := h.engine.Resize(w, hh); err != nil {
			h.cfg.Logger.Warn().Err(err).Msg("resize rejected")
		}
	}
	return true
}

// present copies the primary grid to the screen.
func (h *Host) present() {
	g := h.engine.Surface()
	back := g.Background()
	cols := g.Cols()
	cells := g.Cells()
	for i, c := range cells {
		col, row := i%cols, i/cols
		r := c.Rune
		if r == 0 {
			// Right half of a wide glyph: leave it to the glyph.
			if col > 0 && runewidth.RuneWidth(cells[i-1].Rune) == 2 {
				continue
			}
			r = ' '
		}
		h.screen.SetContent(col, row, r, nil, cellStyle(c, back))
	}
	h.screen.Show()
}

// cellStyle flattens the cell's translucent colors onto the grid background.
func cellStyle(c asciiflow.Cell, back asciiflow.Color) tcell.Style {
	bg := flatten(c.Bg, toColorful(back))
	st := tcell.StyleDefault.Background(toTcell(bg))
	if c.Rune != 0 {
		st = st.Foreground(toTcell(flatten(c.Fg, bg)))
	}
	return st
}

// flatten composites c over an opaque base.
func flatten(c asciiflow.Color, base colorful.Color) colorful.Color {
	if c.A <= 0 {
		return base
	}
	return base.BlendRgb(toColorful(c), min(c.A, 1))
}

func toColorful(c asciiflow.Color) colorful.Color {
	return colorful.Color{R: c.R, G: c.G, B: c.B}
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
