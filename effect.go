package asciiflow

import (
	"fmt"
	"math"
	"strings"
)

// Effect is a post-process applied to a layer's grid before it is
// composited. Apply reads src and writes the result into dst, which has the
// same size and has been cleared.
type Effect interface {
	Apply(src, dst *Grid)
}

// EffectKind names one of the built-in layer effects.
type EffectKind uint8

const (
	EffectBlur       EffectKind = iota // box blur of cell colors, radius in cells
	EffectGlow                         // glyph colors bleed into neighboring backgrounds
	EffectContrast                     // contrast scale, 1 is unchanged
	EffectBrightness                   // brightness scale, 1 is unchanged
	EffectSaturation                   // saturation scale, 0 is grayscale
	EffectLift                         // offset added to every channel, -1..1
)

var effectKindNames = [...]string{
	EffectBlur:       "blur",
	EffectGlow:       "glow",
	EffectContrast:   "contrast",
	EffectBrightness: "brightness",
	EffectSaturation: "saturation",
	EffectLift:       "lift",
}

// String returns the effect name.
func (k EffectKind) String() string {
	if int(k) < len(effectKindNames) {
		return effectKindNames[k]
	}
	return fmt.Sprintf("EffectKind(%d)", uint8(k))
}

// ParseEffectKind maps an effect name to its kind.
func ParseEffectKind(s string) (EffectKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range effectKindNames {
		if n == name {
			return EffectKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown effect %q", ErrConfiguration, s)
}

// NewEffect builds the effect for kind at the given intensity.
func NewEffect(kind EffectKind, intensity float64) (Effect, error) {
	switch kind {
	case EffectBlur:
		return NewBlurEffect(int(math.Round(intensity))), nil
	case EffectGlow:
		return NewGlowEffect(1, intensity), nil
	case EffectContrast:
		f := NewColorMatrixEffect()
		f.SetContrast(intensity)
		return f, nil
	case EffectBrightness:
		f := NewColorMatrixEffect()
		f.SetBrightnessScale(intensity)
		return f, nil
	case EffectSaturation:
		f := NewColorMatrixEffect()
		f.SetSaturation(intensity)
		return f, nil
	case EffectLift:
		f := NewColorMatrixEffect()
		f.SetLift(intensity)
		return f, nil
	}
	return nil, fmt.Errorf("%w: unknown effect kind %d", ErrConfiguration, kind)
}

// --- ColorMatrixEffect ---

// ColorMatrixEffect applies a 4x5 color matrix to the glyph and background
// color of every non-empty cell. The matrix is stored in row-major order:
// [R_r, R_g, R_b, R_a, R_offset, G_r, ...].
type ColorMatrixEffect struct {
	Matrix [20]float64
}

// NewColorMatrixEffect creates a color matrix effect initialized to the identity.
func NewColorMatrixEffect() *ColorMatrixEffect {
	f := &ColorMatrixEffect{}
	f.Matrix[0] = 1  // R_r
	f.Matrix[6] = 1  // G_g
	f.Matrix[12] = 1 // B_b
	f.Matrix[18] = 1 // A_a
	return f
}

// SetLift shifts every color channel by d, washing glyphs toward white
// (d > 0) or black (d < 0). Alpha is kept.
func (f *ColorMatrixEffect) SetLift(d float64) {
	*f = *NewColorMatrixEffect()
	for row := 0; row < 3; row++ {
		f.Matrix[row*5+4] = d
	}
}

// SetBrightnessScale sets the matrix to multiply color channels by s, the way
// a CSS brightness() filter does. s=1 is normal, 0 is black.
func (f *ColorMatrixEffect) SetBrightnessScale(s float64) {
	f.Matrix = [20]float64{
		s, 0, 0, 0, 0,
		0, s, 0, 0, 0,
		0, 0, s, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// SetContrast sets the matrix to adjust contrast. c=1 is normal, 0=gray, >1 is higher.
func (f *ColorMatrixEffect) SetContrast(c float64) {
	t := (1.0 - c) / 2.0
	f.Matrix = [20]float64{
		c, 0, 0, 0, t,
		0, c, 0, 0, t,
		0, 0, c, 0, t,
		0, 0, 0, 1, 0,
	}
}

// lumaWeights are the Rec. 601 channel weights.
var lumaWeights = [3]float64{0.299, 0.587, 0.114}

// SetSaturation mixes each channel with the cell's luma: s=0 leaves gray
// glyphs, 1 the original colors, above 1 oversaturates.
func (f *ColorMatrixEffect) SetSaturation(s float64) {
	*f = *NewColorMatrixEffect()
	for row := 0; row < 3; row++ {
		for col, w := range lumaWeights {
			v := (1 - s) * w
			if row == col {
				v += s
			}
			f.Matrix[row*5+col] = v
		}
	}
}

// Transform applies the matrix to a single color and clamps the result.
func (f *ColorMatrixEffect) Transform(c Color) Color {
	m := &f.Matrix
	return Color{
		R: clamp01(m[0]*c.R + m[1]*c.G + m[2]*c.B + m[3]*c.A + m[4]),
		G: clamp01(m[5]*c.R + m[6]*c.G + m[7]*c.B + m[8]*c.A + m[9]),
		B: clamp01(m[10]*c.R + m[11]*c.G + m[12]*c.B + m[13]*c.A + m[14]),
		A: clamp01(m[15]*c.R + m[16]*c.G + m[17]*c.B + m[18]*c.A + m[19]),
	}
}

// Apply transforms the colors of every non-empty cell from src into dst.
func (f *ColorMatrixEffect) Apply(src, dst *Grid) {
	n := min(len(src.cells), len(dst.cells))
	for i := 0; i < n; i++ {
		c := src.cells[i]
		if c.Rune != 0 {
			c.Fg = f.Transform(c.Fg)
		}
		if c.Bg.A > 0 {
			c.Bg = f.Transform(c.Bg)
		}
		dst.cells[i] = c
	}
}

// --- BlurEffect ---

// BlurEffect averages cell colors over a square neighborhood. Glyphs stay
// where they are; their foreground and the backgrounds around them soften.
type BlurEffect struct {
	Radius int
}

// NewBlurEffect creates a blur effect with the given radius in cells.
func NewBlurEffect(radius int) *BlurEffect {
	if radius < 0 {
		radius = 0
	}
	return &BlurEffect{Radius: radius}
}

// Apply writes the blurred grid into dst.
func (f *BlurEffect) Apply(src, dst *Grid) {
	if f.Radius <= 0 {
		dst.CopyFrom(src)
		return
	}
	cols, rows := min(src.cols, dst.cols), min(src.rows, dst.rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			var fg, bg premul
			n := 0
			for dy := -f.Radius; dy <= f.Radius; dy++ {
				for dx := -f.Radius; dx <= f.Radius; dx++ {
					if !src.InBounds(col+dx, row+dy) {
						continue
					}
					c := src.cells[(row+dy)*src.cols+col+dx]
					if c.Rune != 0 {
						fg.add(c.Fg, 1)
					}
					bg.add(c.Bg, 1)
					n++
				}
			}
			out := src.cells[row*src.cols+col]
			if out.Rune != 0 {
				out.Fg = fg.color(float64(n))
			}
			out.Bg = bg.color(float64(n))
			dst.cells[row*dst.cols+col] = out
		}
	}
}

// --- GlowEffect ---

// GlowEffect spreads glyph colors into the backgrounds of neighboring cells,
// drawn behind the original content.
type GlowEffect struct {
	Radius   int
	Strength float64
}

// NewGlowEffect creates a glow with the given radius in cells and strength.
func NewGlowEffect(radius int, strength float64) *GlowEffect {
	if radius < 1 {
		radius = 1
	}
	return &GlowEffect{Radius: radius, Strength: max(strength, 0)}
}

// Apply writes the source with its glow halo into dst.
func (f *GlowEffect) Apply(src, dst *Grid) {
	cols, rows := min(src.cols, dst.cols), min(src.rows, dst.rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			var halo premul
			n := 0
			for dy := -f.Radius; dy <= f.Radius; dy++ {
				for dx := -f.Radius; dx <= f.Radius; dx++ {
					if !src.InBounds(col+dx, row+dy) {
						continue
					}
					c := src.cells[(row+dy)*src.cols+col+dx]
					if c.Rune != 0 {
						halo.add(c.Fg, 1)
					}
					n++
				}
			}
			out := src.cells[row*src.cols+col]
			glow := halo.color(float64(n))
			glow.A = clamp01(glow.A * f.Strength)
			if glow.A > 0 {
				out.Bg = blendColor(out.Bg, glow, glow.A, BlendBelow)
			}
			dst.cells[row*dst.cols+col] = out
		}
	}
}

// premul accumulates premultiplied color for averaging.
type premul struct {
	r, g, b, a float64
}

func (p *premul) add(c Color, w float64) {
	a := c.A * w
	p.r += c.R * a
	p.g += c.G * a
	p.b += c.B * a
	p.a += a
}

func (p *premul) color(n float64) Color {
	if p.a <= 0 || n <= 0 {
		return ColorTransparent
	}
	return Color{R: p.r / p.a, G: p.g / p.a, B: p.b / p.a, A: clamp01(p.a / n)}
}
