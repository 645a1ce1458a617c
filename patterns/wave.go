package patterns

import (
	"math"
	"time"

	"github.com/phanxgames/asciiflow"
)

const waveGlyphs = ".:-=+*#%@"

const (
	waveCyclesPerSecond = 0.5
	waveNumber          = 0.25 // radians per column
)

// WavePattern draws a travelling sine band whose glyph weight follows the
// distance from the crest line. Density sets the amplitude.
type WavePattern struct {
	grid    *asciiflow.Grid
	cfg     asciiflow.PatternConfig
	glyphs  []rune
	phase   float64
	quality int
}

// NewWave is the factory for the wave pattern.
func NewWave(_ *asciiflow.Grid, cfg asciiflow.PatternConfig) (asciiflow.Pattern, error) {
	w := &WavePattern{}
	if err := w.Configure(cfg); err != nil {
		return nil, err
	}
	return w, nil
}

// Configure applies a new configuration. The phase carries over.
func (w *WavePattern) Configure(cfg asciiflow.PatternConfig) error {
	w.cfg = cfg
	w.glyphs = glyphSet(cfg, waveGlyphs)
	return nil
}

func (w *WavePattern) Bind(target *asciiflow.Grid) { w.grid = target }

func (w *WavePattern) SetQuality(level int) { w.quality = level }

func (w *WavePattern) Update(dt time.Duration) {
	w.phase += dt.Seconds() * 2 * math.Pi * waveCyclesPerSecond * w.cfg.Speed.Factor()
	w.phase = math.Mod(w.phase, 2*math.Pi)
}

func (w *WavePattern) Render() {
	if w.grid == nil || len(w.glyphs) == 0 {
		return
	}
	cols, rows := w.grid.Cols(), w.grid.Rows()
	mid := float64(rows-1) / 2
	amp := mid * w.cfg.Density.Fraction()
	thickness := 1.5
	if w.quality >= 3 {
		thickness = 0.5
	}
	colStep := 1
	if w.quality >= 2 {
		colStep = 2
	}
	top := len(w.glyphs) - 1
	for col := 0; col < cols; col += colStep {
		crest := mid + amp*math.Sin(w.phase+float64(col)*waveNumber)
		lo := max(int(math.Floor(crest-thickness)), 0)
		hi := min(int(math.Ceil(crest+thickness)), rows-1)
		for row := lo; row <= hi; row++ {
			dist := math.Abs(float64(row) - crest)
			if dist >= thickness {
				continue
			}
			intensity := 1 - dist/thickness
			g := w.glyphs[int(math.Round(intensity*float64(top)))]
			fg := w.cfg.Color
			if w.quality == 0 {
				fg = hueShift(fg, float64(col)*3, intensity)
			} else {
				fg = fg.WithAlpha(fg.A * intensity)
			}
			w.grid.SetRune(col, row, g, fg)
		}
	}
}

func (w *WavePattern) Cleanup() { w.grid = nil }
