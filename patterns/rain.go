package patterns

import (
	"math/rand/v2"
	"time"

	"github.com/phanxgames/asciiflow"
)

const rainGlyphs = "ｱｲｳｴｵｶｷｸｹｺｻｼｽｾｿﾀﾁﾂﾃﾄ0123456789:.=*+-<>"

// rainRowsPerSecond is the mean fall speed at medium speed.
const rainRowsPerSecond = 14.0

type drop struct {
	y       float64 // head row, may be above the grid
	speed   float64 // rows per second
	length  int     // trail cells behind the head
	visible bool
}

// RainPattern draws falling columns of glyphs with fading trails. Density is
// the share of columns carrying a visible drop.
type RainPattern struct {
	grid    *asciiflow.Grid
	cfg     asciiflow.PatternConfig
	rng     *rand.Rand
	glyphs  []rune
	drops   []drop
	quality int
}

// NewRain is the factory for the rain pattern.
func NewRain(_ *asciiflow.Grid, cfg asciiflow.PatternConfig) (asciiflow.Pattern, error) {
	r := &RainPattern{}
	if err := r.Configure(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Configure applies a new configuration. A seed option restarts the random
// sequence; existing drops keep falling.
func (r *RainPattern) Configure(cfg asciiflow.PatternConfig) error {
	if _, seeded := cfg.Option("seed"); seeded || r.rng == nil {
		rng, err := newRand(cfg)
		if err != nil {
			return err
		}
		r.rng = rng
	}
	r.cfg = cfg
	r.glyphs = glyphSet(cfg, rainGlyphs)
	return nil
}

func (r *RainPattern) Bind(target *asciiflow.Grid) {
	r.grid = target
	r.reset()
}

func (r *RainPattern) SetQuality(level int) { r.quality = level }

func (r *RainPattern) reset() {
	r.drops = make([]drop, r.grid.Cols())
	for i := range r.drops {
		r.spawn(&r.drops[i], true)
	}
}

// spawn restarts a drop. Scattered drops start anywhere on the grid so the
// first frame is already full; the rest enter from above.
func (r *RainPattern) spawn(d *drop, scatter bool) {
	rows := float64(r.grid.Rows())
	d.visible = r.rng.Float64() < r.cfg.Density.Fraction()
	if scatter {
		d.y = r.rng.Float64() * rows
	} else {
		d.y = -r.rng.Float64() * rows / 2
	}
	d.speed = rainRowsPerSecond * r.cfg.Speed.Factor() * (0.5 + r.rng.Float64())
	d.length = 4 + r.rng.IntN(max(r.grid.Rows()/2, 1))
}

func (r *RainPattern) Update(dt time.Duration) {
	if r.grid == nil {
		return
	}
	if len(r.drops) != r.grid.Cols() {
		r.reset()
	}
	rows := float64(r.grid.Rows())
	sec := dt.Seconds()
	for i := range r.drops {
		d := &r.drops[i]
		d.y += d.speed * sec
		if d.y-float64(d.length) >= rows {
			r.spawn(d, false)
		}
	}
}

func (r *RainPattern) Render() {
	if r.grid == nil || len(r.glyphs) == 0 {
		return
	}
	rows := r.grid.Rows()
	base := r.cfg.Color
	for col, d := range r.drops {
		if !d.visible || col >= r.grid.Cols() {
			continue
		}
		// Level 1 and up: every other column.
		if r.quality >= 1 && col%2 == 1 {
			continue
		}
		trail := d.length
		switch {
		case r.quality >= 3:
			trail = 0
		case r.quality >= 2:
			trail /= 2
		}
		head := int(d.y)
		for i := 0; i <= trail; i++ {
			row := head - i
			if row < 0 || row >= rows {
				continue
			}
			g := r.glyphs[r.rng.IntN(len(r.glyphs))]
			if i == 0 {
				r.grid.SetRune(col, row, g, tint(base, 0.7))
				continue
			}
			fade := 1 - float64(i)/float64(trail+1)
			r.grid.SetRune(col, row, g, base.WithAlpha(base.A*fade))
		}
	}
}

func (r *RainPattern) Cleanup() {
	r.drops = nil
	r.grid = nil
}
