package asciiflow

import (
	"errors"
	"math"
	"testing"
	"time"
)

func assertNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func assertColor(t *testing.T, name string, got, want Color) {
	t.Helper()
	assertNear(t, name+".R", got.R, want.R)
	assertNear(t, name+".G", got.G, want.G)
	assertNear(t, name+".B", got.B, want.B)
	assertNear(t, name+".A", got.A, want.A)
}

// testStyle gives 6x10 pixel cells.
var testStyle = TextStyle{FontFamily: "monospace", FontSize: 10}

func newTestGrid(t *testing.T, cols, rows int) *Grid {
	t.Helper()
	w, h := PixelSize(cols, rows, testStyle)
	g, err := NewGrid(w, h, testStyle)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

// stubPattern fills its grid with one glyph and counts lifecycle calls.
type stubPattern struct {
	glyph     rune
	fg        Color
	target    *Grid
	binds     int
	updates   int
	renders   int
	cleanups  int
	elapsed   time.Duration
	quality   int
	cfg       PatternConfig
	configs   int
	panicNext bool
	onRender  func()
}

func (p *stubPattern) Bind(target *Grid) {
	p.target = target
	p.binds++
}

func (p *stubPattern) Update(dt time.Duration) {
	if p.panicNext {
		panic("stub pattern failure")
	}
	p.updates++
	p.elapsed += dt
}

func (p *stubPattern) Render() {
	p.renders++
	if p.onRender != nil {
		p.onRender()
	}
	for row := 0; row < p.target.Rows(); row++ {
		for col := 0; col < p.target.Cols(); col++ {
			p.target.SetRune(col, row, p.glyph, p.fg)
		}
	}
}

func (p *stubPattern) Cleanup() { p.cleanups++ }

func (p *stubPattern) SetQuality(level int) { p.quality = level }

func (p *stubPattern) Configure(cfg PatternConfig) error {
	p.cfg = cfg
	p.configs++
	return nil
}

// --- Color ---

func TestColorRGBAPremultiplies(t *testing.T) {
	r, g, b, a := Color{R: 1, G: 0.5, B: 0, A: 0.5}.RGBA()
	if a != 0x8000 {
		t.Errorf("a = %#x, want 0x8000", a)
	}
	if r != 0x8000 {
		t.Errorf("r = %#x, want 0x8000", r)
	}
	if g != 0x4000 {
		t.Errorf("g = %#x, want 0x4000", g)
	}
	if b != 0 {
		t.Errorf("b = %#x, want 0", b)
	}
}

func TestCellEmpty(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		want bool
	}{
		{"zero", Cell{}, true},
		{"glyph", Cell{Rune: 'a', Fg: ColorWhite}, false},
		{"background", Cell{Bg: ColorBlack}, false},
		{"transparent background", Cell{Bg: Color{R: 1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cell.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- BlendMode ---

func TestParseBlendMode(t *testing.T) {
	tests := []struct {
		in   string
		want BlendMode
	}{
		{"source-over", BlendNormal},
		{"lighter", BlendAdd},
		{"multiply", BlendMultiply},
		{"SCREEN", BlendScreen},
		{"overlay", BlendOverlay},
		{"destination-out", BlendErase},
		{"destination-in", BlendMask},
		{"destination-over", BlendBelow},
		{"copy", BlendNone},
	}
	for _, tt := range tests {
		got, err := ParseBlendMode(tt.in)
		if err != nil {
			t.Errorf("ParseBlendMode(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBlendMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseBlendMode("xor"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("ParseBlendMode(xor) err = %v, want ErrConfiguration", err)
	}
}

func TestBlendModeString(t *testing.T) {
	for m := BlendNormal; m <= BlendNone; m++ {
		parsed, err := ParseBlendMode(m.String())
		if err != nil || parsed != m {
			t.Errorf("round trip %v: got %v, %v", m, parsed, err)
		}
	}
	if got := BlendMode(200).String(); got != "BlendMode(200)" {
		t.Errorf("unknown mode String() = %q", got)
	}
}

// --- TextStyle ---

func TestCellSize(t *testing.T) {
	tests := []struct {
		size  float64
		wantW int
		wantH int
	}{
		{10, 6, 10},
		{14, 9, 14},
		{1, 1, 1},
		{0, 0, 0},
	}
	for _, tt := range tests {
		w, h := TextStyle{FontSize: tt.size}.CellSize()
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("CellSize(%v) = %dx%d, want %dx%d", tt.size, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestPixelSize(t *testing.T) {
	w, h := PixelSize(80, 24, testStyle)
	if w != 480 || h != 240 {
		t.Errorf("PixelSize = %dx%d, want 480x240", w, h)
	}
}
