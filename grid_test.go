package asciiflow

import (
	"errors"
	"testing"
)

func TestNewGridLattice(t *testing.T) {
	g, err := NewGrid(65, 35, testStyle)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	if g.Cols() != 10 || g.Rows() != 3 {
		t.Errorf("lattice = %dx%d, want 10x3", g.Cols(), g.Rows())
	}
	if g.Width() != 65 || g.Height() != 35 {
		t.Errorf("size = %dx%d, want 65x35", g.Width(), g.Height())
	}
	if len(g.Cells()) != 30 {
		t.Errorf("len(Cells) = %d, want 30", len(g.Cells()))
	}
}

func TestNewGridRejectsInvalid(t *testing.T) {
	if _, err := NewGrid(-1, 10, testStyle); !errors.Is(err, ErrSurface) {
		t.Errorf("negative width err = %v, want ErrSurface", err)
	}
	if _, err := NewGrid(10, 10, TextStyle{}); !errors.Is(err, ErrSurface) {
		t.Errorf("zero font err = %v, want ErrSurface", err)
	}
}

func TestGridSetAndAt(t *testing.T) {
	g := newTestGrid(t, 4, 3)
	g.Set(1, 2, Cell{Rune: 'x', Fg: ColorWhite})
	if got := g.At(1, 2); got.Rune != 'x' {
		t.Errorf("At(1,2).Rune = %q, want 'x'", got.Rune)
	}
	// Out-of-bounds writes are dropped and reads return the empty cell.
	g.Set(4, 0, Cell{Rune: 'y'})
	g.Set(-1, 0, Cell{Rune: 'y'})
	if got := g.At(4, 0); got != (Cell{}) {
		t.Errorf("At(4,0) = %+v, want empty", got)
	}
	for _, c := range g.Cells() {
		if c.Rune == 'y' {
			t.Fatal("out-of-bounds write landed in the grid")
		}
	}
}

func TestGridSetRuneKeepsBackground(t *testing.T) {
	g := newTestGrid(t, 2, 1)
	g.SetBg(0, 0, ColorBlack)
	g.SetRune(0, 0, 'a', ColorWhite)
	c := g.At(0, 0)
	if c.Rune != 'a' || c.Bg != ColorBlack || c.Fg != ColorWhite {
		t.Errorf("cell = %+v", c)
	}
}

func TestGridClearUsesBackground(t *testing.T) {
	g := newTestGrid(t, 5, 5)
	g.SetRune(2, 2, '#', ColorWhite)
	g.SetBackground(ColorBlack)
	g.Clear()
	for i, c := range g.Cells() {
		if c.Rune != 0 || c.Bg != ColorBlack {
			t.Fatalf("cell %d = %+v after Clear", i, c)
		}
	}
}

func TestGridResizeKeepsStyle(t *testing.T) {
	g := newTestGrid(t, 4, 4)
	g.SetRune(0, 0, 'a', ColorWhite)
	if err := g.Resize(120, 50); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if g.Cols() != 20 || g.Rows() != 5 {
		t.Errorf("lattice = %dx%d, want 20x5", g.Cols(), g.Rows())
	}
	if g.TextStyle() != testStyle {
		t.Errorf("style changed: %+v", g.TextStyle())
	}
	if g.At(0, 0).Rune != 0 {
		t.Error("Resize did not clear the grid")
	}
	if err := g.Resize(-5, 5); !errors.Is(err, ErrSurface) {
		t.Errorf("negative resize err = %v, want ErrSurface", err)
	}
}

func TestGridSetTextStyle(t *testing.T) {
	g := newTestGrid(t, 10, 10) // 60x100 px
	if err := g.SetTextStyle(TextStyle{FontSize: 20}); err != nil {
		t.Fatalf("SetTextStyle: %v", err)
	}
	if g.Cols() != 5 || g.Rows() != 5 {
		t.Errorf("lattice = %dx%d, want 5x5", g.Cols(), g.Rows())
	}
	if err := g.SetTextStyle(TextStyle{}); !errors.Is(err, ErrSurface) {
		t.Errorf("zero font err = %v, want ErrSurface", err)
	}
}

func TestGridDrawText(t *testing.T) {
	tests := []struct {
		name  string
		align TextAlign
		col   int
		want  string
	}{
		{"left", TextAlignLeft, 1, " abc   \n"},
		{"center", TextAlignCenter, 3, "  abc  \n"},
		{"right", TextAlignRight, 7, "    abc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style := testStyle
			style.Align = tt.align
			w, h := PixelSize(7, 1, style)
			g, err := NewGrid(w, h, style)
			if err != nil {
				t.Fatal(err)
			}
			if span := g.DrawText(tt.col, 0, "abc", ColorWhite); span != 3 {
				t.Errorf("span = %d, want 3", span)
			}
			if got := g.String(); got != tt.want {
				t.Errorf("grid = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGridDrawTextWide(t *testing.T) {
	g := newTestGrid(t, 4, 1)
	if span := g.DrawText(0, 0, "世a", ColorWhite); span != 3 {
		t.Errorf("span = %d, want 3", span)
	}
	if g.At(0, 0).Rune != '世' || g.At(1, 0).Rune != 0 || g.At(2, 0).Rune != 'a' {
		t.Errorf("cells = %q", g.String())
	}
}

func TestGridCopyFromOverlap(t *testing.T) {
	src := newTestGrid(t, 3, 3)
	src.SetRune(2, 2, 'z', ColorWhite)
	src.SetRune(0, 0, 'a', ColorWhite)
	dst := newTestGrid(t, 2, 2)
	dst.CopyFrom(src)
	if dst.At(0, 0).Rune != 'a' {
		t.Error("overlap not copied")
	}
	if got := dst.String(); got != "a \n  \n" {
		t.Errorf("dst = %q", got)
	}
}

func TestGridDispose(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	g.Dispose()
	if !g.IsDisposed() || g.Cols() != 0 || len(g.Cells()) != 0 {
		t.Error("grid not released")
	}
	// Drawing after dispose is a no-op rather than a panic.
	g.SetRune(0, 0, 'a', ColorWhite)
	g.Clear()
}

// --- gridPool ---

func TestGridPoolReuse(t *testing.T) {
	var p gridPool
	a := p.Acquire(60, 30, testStyle)
	a.SetRune(0, 0, 'x', ColorWhite)
	p.Release(a)
	b := p.Acquire(60, 30, testStyle)
	if a != b {
		t.Fatal("pool did not reuse the released grid")
	}
	if b.At(0, 0).Rune != 0 {
		t.Error("reused grid not cleared")
	}
	c := p.Acquire(60, 30, testStyle)
	if c == b {
		t.Error("acquired the same grid twice")
	}
}

func TestGridPoolDrain(t *testing.T) {
	var p gridPool
	a := p.Acquire(60, 30, testStyle)
	p.Release(a)
	p.Drain()
	if !a.IsDisposed() {
		t.Error("Drain did not dispose pooled grid")
	}
	if b := p.Acquire(60, 30, testStyle); b == a {
		t.Error("drained grid handed out again")
	}
	// Disposed grids are not accepted back.
	p.Release(a)
	if b := p.Acquire(60, 30, testStyle); b == a {
		t.Error("disposed grid pooled")
	}
}
