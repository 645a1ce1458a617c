package patterns

import (
	"math/rand/v2"
	"time"

	"github.com/phanxgames/asciiflow"
)

const noiseGlyphs = "░▒▓█▌▐■□▪▫"

// noiseInterval is how often the lit cells are re-rolled at medium speed.
const noiseInterval = 100 * time.Millisecond

// noiseCoverage scales the lit share of the grid per optimization level.
var noiseCoverage = [...]float64{1, 0.5, 0.25, 0.1}

type litCell struct {
	col, row int
	glyph    rune
}

// NoisePattern flickers random glyphs across the grid with a slowly drifting
// hue. Density is the share of cells lit at once.
type NoisePattern struct {
	grid    *asciiflow.Grid
	cfg     asciiflow.PatternConfig
	rng     *rand.Rand
	glyphs  []rune
	lit     []litCell
	acc     time.Duration
	hue     float64
	quality int
}

// NewNoise is the factory for the noise pattern.
func NewNoise(_ *asciiflow.Grid, cfg asciiflow.PatternConfig) (asciiflow.Pattern, error) {
	n := &NoisePattern{}
	if err := n.Configure(cfg); err != nil {
		return nil, err
	}
	return n, nil
}

// Configure applies a new configuration.
func (n *NoisePattern) Configure(cfg asciiflow.PatternConfig) error {
	if _, seeded := cfg.Option("seed"); seeded || n.rng == nil {
		rng, err := newRand(cfg)
		if err != nil {
			return err
		}
		n.rng = rng
	}
	n.cfg = cfg
	n.glyphs = glyphSet(cfg, noiseGlyphs)
	return nil
}

func (n *NoisePattern) Bind(target *asciiflow.Grid) {
	n.grid = target
	n.reroll()
}

func (n *NoisePattern) SetQuality(level int) {
	n.quality = min(max(level, 0), len(noiseCoverage)-1)
}

func (n *NoisePattern) interval() time.Duration {
	return time.Duration(float64(noiseInterval) / n.cfg.Speed.Factor())
}

func (n *NoisePattern) reroll() {
	if n.grid == nil || len(n.glyphs) == 0 {
		return
	}
	cols, rows := n.grid.Cols(), n.grid.Rows()
	count := int(float64(cols*rows) * n.cfg.Density.Fraction() * noiseCoverage[n.quality])
	n.lit = n.lit[:0]
	for range count {
		n.lit = append(n.lit, litCell{
			col:   n.rng.IntN(cols),
			row:   n.rng.IntN(rows),
			glyph: n.glyphs[n.rng.IntN(len(n.glyphs))],
		})
	}
}

func (n *NoisePattern) Update(dt time.Duration) {
	if n.grid == nil {
		return
	}
	n.hue = wrapDegrees(n.hue + dt.Seconds()*20*n.cfg.Speed.Factor())
	step := n.interval()
	n.acc += dt
	if n.acc < step {
		return
	}
	// Only the latest roll is visible, so a long stall rolls once.
	n.acc %= step
	n.reroll()
}

func (n *NoisePattern) Render() {
	if n.grid == nil {
		return
	}
	for _, c := range n.lit {
		fg := hueShift(n.cfg.Color, n.hue+float64(c.col)*2, 1)
		n.grid.SetRune(c.col, c.row, c.glyph, fg)
	}
}

func (n *NoisePattern) Cleanup() {
	n.lit = nil
	n.grid = nil
}
