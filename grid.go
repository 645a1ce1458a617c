package asciiflow

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Grid is a character-cell drawing surface. The engine owns one primary grid
// and every layer owns a private grid of the same size and text style.
// Dimensions are kept in pixels; the cell lattice is derived from the text
// style so resizing never changes glyph metrics.
type Grid struct {
	cells      []Cell
	width      int
	height     int
	cols       int
	rows       int
	style      TextStyle
	background Color
	disposed   bool
}

// NewGrid allocates a grid of the given pixel size. It fails with ErrSurface
// when the size is negative or the font size leaves no room for a cell.
func NewGrid(width, height int, style TextStyle) (*Grid, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: invalid grid size %dx%d", ErrSurface, width, height)
	}
	if style.FontSize <= 0 {
		return nil, fmt.Errorf("%w: font size %v", ErrSurface, style.FontSize)
	}
	g := &Grid{style: style}
	g.reshape(width, height)
	return g, nil
}

// reshape recomputes the cell lattice, reallocating only if capacity is
// insufficient, and clears the grid.
func (g *Grid) reshape(width, height int) {
	cw, ch := g.style.CellSize()
	g.width = width
	g.height = height
	g.cols = width / cw
	g.rows = height / ch
	size := g.cols * g.rows
	if cap(g.cells) < size {
		g.cells = make([]Cell, size)
	} else {
		g.cells = g.cells[:size]
	}
	g.Clear()
}

// Width returns the grid width in pixels.
func (g *Grid) Width() int { return g.width }

// Height returns the grid height in pixels.
func (g *Grid) Height() int { return g.height }

// Cols returns the number of character columns.
func (g *Grid) Cols() int { return g.cols }

// Rows returns the number of character rows.
func (g *Grid) Rows() int { return g.rows }

// TextStyle returns the glyph metrics of the grid.
func (g *Grid) TextStyle() TextStyle { return g.style }

// SetTextStyle replaces the glyph metrics. The lattice is recomputed for the
// current pixel size and the grid is cleared.
func (g *Grid) SetTextStyle(style TextStyle) error {
	if style.FontSize <= 0 {
		return fmt.Errorf("%w: font size %v", ErrSurface, style.FontSize)
	}
	g.style = style
	g.reshape(g.width, g.height)
	return nil
}

// Background returns the color Clear fills the grid with.
func (g *Grid) Background() Color { return g.background }

// SetBackground sets the color Clear fills the grid with. Layer grids keep
// the transparent default.
func (g *Grid) SetBackground(c Color) { g.background = c }

// Resize changes the pixel size, keeping the text style. The content is
// cleared.
func (g *Grid) Resize(width, height int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("%w: invalid grid size %dx%d", ErrSurface, width, height)
	}
	g.reshape(width, height)
	return nil
}

// Clear resets all cells to the background using exponential copy.
func (g *Grid) Clear() {
	if len(g.cells) == 0 {
		return
	}
	g.cells[0] = Cell{Bg: g.background}
	for filled := 1; filled < len(g.cells); filled *= 2 {
		copy(g.cells[filled:], g.cells[:filled])
	}
}

// InBounds reports whether (col, row) addresses a cell.
func (g *Grid) InBounds(col, row int) bool {
	return col >= 0 && col < g.cols && row >= 0 && row < g.rows
}

// At returns the cell at (col, row), or an empty cell when out of bounds.
func (g *Grid) At(col, row int) Cell {
	if !g.InBounds(col, row) {
		return Cell{}
	}
	return g.cells[row*g.cols+col]
}

// Set writes a cell. Out-of-bounds writes are ignored.
func (g *Grid) Set(col, row int, c Cell) {
	if !g.InBounds(col, row) {
		return
	}
	g.cells[row*g.cols+col] = c
}

// SetRune writes a glyph and its foreground while keeping the background.
func (g *Grid) SetRune(col, row int, r rune, fg Color) {
	if !g.InBounds(col, row) {
		return
	}
	dst := &g.cells[row*g.cols+col]
	dst.Rune = r
	dst.Fg = fg
}

// SetBg updates the background while keeping the glyph.
func (g *Grid) SetBg(col, row int, bg Color) {
	if !g.InBounds(col, row) {
		return
	}
	g.cells[row*g.cols+col].Bg = bg
}

// DrawText writes s starting at (col, row), anchored according to the grid's
// text alignment. Wide glyphs occupy two columns; the second column is left
// without a rune. Returns the number of columns the text spans.
func (g *Grid) DrawText(col, row int, s string, fg Color) int {
	span := runewidth.StringWidth(s)
	switch g.style.Align {
	case TextAlignCenter:
		col -= span / 2
	case TextAlignRight:
		col -= span
	}
	x := col
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		g.SetRune(x, row, r, fg)
		if w == 2 {
			g.SetRune(x+1, row, 0, fg)
		}
		x += w
	}
	return span
}

// Cells returns the backing cell slice in row-major order. Hosts read it to
// present a frame; it MUST NOT be retained across a Resize.
func (g *Grid) Cells() []Cell {
	return g.cells
}

// CopyFrom copies the overlapping region of src into g.
func (g *Grid) CopyFrom(src *Grid) {
	cols := min(g.cols, src.cols)
	rows := min(g.rows, src.rows)
	for row := 0; row < rows; row++ {
		copy(g.cells[row*g.cols:row*g.cols+cols], src.cells[row*src.cols:row*src.cols+cols])
	}
}

// String renders the glyphs as text, one line per row, with spaces for empty
// cells. Useful for snapshots in tests and debug output.
func (g *Grid) String() string {
	var sb strings.Builder
	sb.Grow((g.cols + 1) * g.rows)
	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.cols; col++ {
			r := g.cells[row*g.cols+col].Rune
			if r == 0 {
				r = ' '
			}
			sb.WriteRune(r)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Dispose releases the cell storage. The grid must not be drawn to afterwards.
func (g *Grid) Dispose() {
	g.cells = nil
	g.cols, g.rows = 0, 0
	g.disposed = true
}

// IsDisposed reports whether Dispose has been called.
func (g *Grid) IsDisposed() bool {
	return g.disposed
}
