package asciiflow

import (
	"fmt"
	"math"
	"strings"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication only happens inside compositing math and in RGBA.
type Color struct {
	R, G, B, A float64
}

var (
	// ColorTransparent is the zero color; empty cells carry it.
	ColorTransparent = Color{}
	// ColorBlack is opaque black, the default engine background.
	ColorBlack = Color{0, 0, 0, 1}
	// ColorWhite is opaque white.
	ColorWhite = Color{1, 1, 1, 1}
	// ColorPhosphor is the classic terminal green used as the default foreground.
	ColorPhosphor = Color{0, 1, 0.255, 1}
)

// RGBA implements color.Color. Values are alpha-premultiplied as the
// interface requires.
func (c Color) RGBA() (r, g, b, a uint32) {
	c = c.clamped()
	a = uint32(c.A*0xffff + 0.5)
	r = uint32(c.R*c.A*0xffff + 0.5)
	g = uint32(c.G*c.A*0xffff + 0.5)
	b = uint32(c.B*c.A*0xffff + 0.5)
	return
}

// WithAlpha returns c with its alpha replaced.
func (c Color) WithAlpha(a float64) Color {
	c.A = a
	return c
}

func (c Color) clamped() Color {
	return Color{clamp01(c.R), clamp01(c.G), clamp01(c.B), clamp01(c.A)}
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Cell is one character position on a Grid. A cell with no rune and a
// transparent background is empty and contributes nothing when composited.
type Cell struct {
	Rune rune
	Fg   Color
	Bg   Color
}

// Empty reports whether the cell has no glyph and no visible background.
func (c Cell) Empty() bool {
	return c.Rune == 0 && c.Bg.A <= 0
}

// BlendMode selects a compositing operation. The set mirrors the canvas
// globalCompositeOperation values the engine's hosts expose.
type BlendMode uint8

const (
	BlendNormal   BlendMode = iota // source-over (standard alpha blending)
	BlendAdd                       // additive / lighter
	BlendMultiply                  // multiply (source * destination; only darkens)
	BlendScreen                    // screen (1 - (1-src)*(1-dst); only brightens)
	BlendOverlay                   // overlay (multiply or screen by destination)
	BlendErase                     // destination-out (punch transparent holes)
	BlendMask                      // destination-in (clip destination to source alpha)
	BlendBelow                     // destination-over (draw behind existing content)
	BlendNone                      // copy (replace, skip blending)
)

var blendModeNames = [...]string{
	BlendNormal:   "normal",
	BlendAdd:      "add",
	BlendMultiply: "multiply",
	BlendScreen:   "screen",
	BlendOverlay:  "overlay",
	BlendErase:    "erase",
	BlendMask:     "mask",
	BlendBelow:    "below",
	BlendNone:     "none",
}

// String returns the short name of the blend mode.
func (b BlendMode) String() string {
	if int(b) < len(blendModeNames) {
		return blendModeNames[b]
	}
	return fmt.Sprintf("BlendMode(%d)", uint8(b))
}

// ParseBlendMode accepts both the short names and the canvas composite
// operation names ("source-over", "lighter", "destination-out", ...).
func ParseBlendMode(s string) (BlendMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "source-over":
		return BlendNormal, nil
	case "add", "lighter", "plus-lighter":
		return BlendAdd, nil
	case "multiply":
		return BlendMultiply, nil
	case "screen":
		return BlendScreen, nil
	case "overlay":
		return BlendOverlay, nil
	case "erase", "destination-out":
		return BlendErase, nil
	case "mask", "destination-in":
		return BlendMask, nil
	case "below", "destination-over":
		return BlendBelow, nil
	case "none", "copy":
		return BlendNone, nil
	}
	return BlendNormal, fmt.Errorf("%w: unknown blend mode %q", ErrConfiguration, s)
}

// TextAlign controls where a glyph sits horizontally inside its cell, and
// how DrawText anchors a string at its column.
type TextAlign uint8

const (
	TextAlignLeft   TextAlign = iota // anchor at the left edge (default)
	TextAlignCenter                  // center on the anchor
	TextAlignRight                   // end at the anchor
)

// TextBaseline controls where a glyph sits vertically inside its cell.
type TextBaseline uint8

const (
	TextBaselineTop    TextBaseline = iota // glyph top at cell top (default)
	TextBaselineMiddle                     // glyph centered in the cell
	TextBaselineBottom                     // glyph bottom at cell bottom
)

// TextStyle holds the glyph metrics shared by a grid and every layer grid
// derived from it. Hosts use it to pick and place the font face.
type TextStyle struct {
	FontFamily string
	FontSize   float64
	Align      TextAlign
	Baseline   TextBaseline
}

// cellAspect is the advance width of a monospace glyph relative to its size.
const cellAspect = 0.6

// CellSize returns the pixel size of one character cell.
func (s TextStyle) CellSize() (w, h int) {
	if s.FontSize <= 0 {
		return 0, 0
	}
	w = int(math.Ceil(s.FontSize * cellAspect))
	h = int(math.Ceil(s.FontSize))
	return max(w, 1), max(h, 1)
}

// PixelSize returns the surface size in pixels that holds exactly cols x rows
// cells of style s. Terminal hosts use it to size the engine.
func PixelSize(cols, rows int, s TextStyle) (w, h int) {
	cw, ch := s.CellSize()
	return cols * cw, rows * ch
}
