// Package ebitenhost presents an asciiflow engine in an Ebitengine window.
//
// The host pumps a virtual-time asciiflow.Driver from Ebitengine's Update and
// rasterises the engine's primary grid with text/v2 glyphs from the Go Mono
// face in Draw:
//
//	h, _ := ebitenhost.New(ebitenhost.RunConfig{Title: "flow", Width: 960, Height: 540})
//	e, _ := asciiflow.NewEngine(h, 960, 540, asciiflow.EngineConfig{})
//	h.Attach(e)
//	e.StartAnimation()
//	err := h.Run()
package ebitenhost

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/rs/zerolog"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/phanxgames/asciiflow"
)

// RunConfig configures the window.
type RunConfig struct {
	Title     string
	Width     int
	Height    int
	Resizable bool
	// ShowFPS draws the frame rate and optimization level in the top-left
	// corner.
	ShowFPS bool
	// OnKey is called for every key pressed this tick. Escape always quits.
	OnKey func(key ebiten.Key)
	// OnFrame is called from Update after the engine frame.
	OnFrame func()
	Logger  zerolog.Logger
}

// fpsRefresh is how often the FPS overlay text is rebuilt.
const fpsRefresh = 500 * time.Millisecond

// Host implements asciiflow.Host on top of Ebitengine and ebiten.Game.
type Host struct {
	*asciiflow.Driver

	cfg    RunConfig
	engine *asciiflow.Engine
	source *text.GoTextFaceSource
	face   *text.GoTextFace
	glyphs map[rune]string
	start  time.Time
	keys   []ebiten.Key

	lastW, lastH int

	overlay        string
	overlayUpdated time.Duration
}

// New creates a host with the Go Mono face loaded. Attach an engine before
// calling Run.
func New(cfg RunConfig) (*Host, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: window %dx%d", asciiflow.ErrConfiguration, cfg.Width, cfg.Height)
	}
	source, err := text.NewGoTextFaceSource(bytes.NewReader(gomono.TTF))
	if err != nil {
		return nil, fmt.Errorf("ebitenhost: parse mono face: %w", err)
	}
	return &Host{
		Driver: asciiflow.NewDriver(),
		cfg:    cfg,
		source: source,
		glyphs: make(map[rune]string),
		lastW:  cfg.Width,
		lastH:  cfg.Height,
	}, nil
}

// Attach sets the engine to present and sizes the face to its text style.
func (h *Host) Attach(e *asciiflow.Engine) {
	h.engine = e
	h.face = &text.GoTextFace{Source: h.source, Size: e.Config().FontSize}
}

// Run opens the window and blocks until it is closed, then cleans up the
// engine.
func (h *Host) Run() error {
	if h.engine == nil {
		return errors.New("ebitenhost: no engine attached")
	}
	ebiten.SetWindowTitle(h.cfg.Title)
	ebiten.SetWindowSize(h.cfg.Width, h.cfg.Height)
	if h.cfg.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}
	h.start = time.Now()
	defer h.engine.Cleanup()
	return ebiten.RunGame(h)
}

// Update advances the driver to wall time and runs the pending engine frame.
func (h *Host) Update() error {
	h.AdvanceTo(time.Since(h.start))
	h.Frame()
	if h.cfg.OnFrame != nil {
		h.cfg.OnFrame()
	}

	h.keys = inpututil.AppendJustPressedKeys(h.keys[:0])
	for _, k := range h.keys {
		if k == ebiten.KeyEscape {
			return ebiten.Termination
		}
		if h.cfg.OnKey != nil {
			h.cfg.OnKey(k)
		}
	}
	return nil
}

// Draw rasterises the primary grid.
func (h *Host) Draw(screen *ebiten.Image) {
	if h.engine == nil {
		return
	}
	g := h.engine.Surface()
	style := g.TextStyle()
	cw, ch := style.CellSize()
	screen.Fill(g.Background())

	cols := g.Cols()
	var op text.DrawOptions
	for i, c := range g.Cells() {
		if c.Empty() {
			continue
		}
		col, row := i%cols, i/cols
		if c.Bg.A > 0 {
			vector.DrawFilledRect(screen, float32(col*cw), float32(row*ch), float32(cw), float32(ch), c.Bg, false)
		}
		if c.Rune == 0 || c.Fg.A <= 0 {
			continue
		}
		x, y, primary, secondary := glyphAnchor(col, row, cw, ch, style)
		op.GeoM.Reset()
		op.GeoM.Translate(x, y)
		op.ColorScale.Reset()
		op.ColorScale.ScaleWithColor(c.Fg)
		op.PrimaryAlign = primary
		op.SecondaryAlign = secondary
		text.Draw(screen, h.glyph(c.Rune), h.face, &op)
	}

	if h.cfg.ShowFPS {
		h.drawOverlay(screen)
	}
}

// Layout forwards window size changes to the engine.
func (h *Host) Layout(outsideWidth, outsideHeight int) (int, int) {
	if h.engine != nil && (outsideWidth != h.lastW || outsideHeight != h.lastH) {
		if err := h.engine.Resize(outsideWidth, outsideHeight); err != nil {
			h.cfg.Logger.Warn().Err(err).Int("w", outsideWidth).Int("h", outsideHeight).Msg("resize rejected")
		} else {
			h.lastW, h.lastH = outsideWidth, outsideHeight
		}
	}
	return h.lastW, h.lastH
}

func (h *Host) glyph(r rune) string {
	s, ok := h.glyphs[r]
	if !ok {
		s = string(r)
		h.glyphs[r] = s
	}
	return s
}

func (h *Host) drawOverlay(screen *ebiten.Image) {
	if now := h.Now(); h.overlay == "" || now-h.overlayUpdated >= fpsRefresh {
		h.overlayUpdated = now
		h.overlay = fmt.Sprintf("FPS: %.1f  TPS: %.1f  level: %d",
			ebiten.ActualFPS(), ebiten.ActualTPS(), h.engine.Optimizer().Level())
	}
	ebitenutil.DebugPrintAt(screen, h.overlay, 4, 4)
}

// glyphAnchor returns where a glyph is drawn inside its cell and how text/v2
// should align it to that point.
func glyphAnchor(col, row, cw, ch int, style asciiflow.TextStyle) (x, y float64, primary, secondary text.Align) {
	x, y = float64(col*cw), float64(row*ch)
	switch style.Align {
	case asciiflow.TextAlignCenter:
		x += float64(cw) / 2
		primary = text.AlignCenter
	case asciiflow.TextAlignRight:
		x += float64(cw)
		primary = text.AlignEnd
	default:
		primary = text.AlignStart
	}
	switch style.Baseline {
	case asciiflow.TextBaselineMiddle:
		y += float64(ch) / 2
		secondary = text.AlignCenter
	case asciiflow.TextBaselineBottom:
		y += float64(ch)
		secondary = text.AlignEnd
	default:
		secondary = text.AlignStart
	}
	return x, y, primary, secondary
}
