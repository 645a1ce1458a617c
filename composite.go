package asciiflow

// Composite draws src onto dst at the given opacity using mode. Only the
// overlapping cell region is touched. Colors follow the W3C separable blend
// formula on straight alpha:
//
//	Cs' = (1 - αd)·Cs + αd·B(Cd, Cs)
//	αo  = αs + αd·(1 - αs)
//	Co  = (αs·Cs' + αd·(1 - αs)·Cd) / αo
//
// Glyphs cannot be mixed, so the glyph with the greater resulting coverage
// occupies the cell.
func Composite(dst, src *Grid, opacity float64, mode BlendMode) {
	opacity = clamp01(opacity)
	if opacity <= 0 && mode != BlendMask && mode != BlendNone {
		return
	}
	cols := min(dst.cols, src.cols)
	rows := min(dst.rows, src.rows)
	for row := 0; row < rows; row++ {
		d := dst.cells[row*dst.cols : row*dst.cols+cols]
		s := src.cells[row*src.cols : row*src.cols+cols]
		for i := range d {
			compositeCell(&d[i], s[i], opacity, mode)
		}
	}
}

func compositeCell(d *Cell, s Cell, opacity float64, mode BlendMode) {
	switch mode {
	case BlendNone:
		*d = Cell{Rune: s.Rune, Fg: s.Fg.WithAlpha(s.Fg.A * opacity), Bg: s.Bg.WithAlpha(s.Bg.A * opacity)}
		if s.Rune == 0 {
			d.Fg = ColorTransparent
		}
		return
	case BlendMask:
		cover := max(s.Bg.A, glyphAlpha(s)) * opacity
		d.Bg.A *= cover
		d.Fg.A *= cover
		if d.Fg.A <= 0 {
			d.Rune = 0
		}
		return
	}

	if s.Empty() {
		return
	}

	if sa := s.Bg.A * opacity; sa > 0 {
		d.Bg = blendColor(d.Bg, s.Bg, sa, mode)
	}

	fa := glyphAlpha(s) * opacity
	if fa <= 0 {
		if mode == BlendNormal && s.Bg.A*opacity >= 1 {
			// An opaque background hides whatever glyph was underneath.
			d.Rune = 0
			d.Fg = ColorTransparent
		}
		return
	}

	switch mode {
	case BlendErase:
		d.Fg.A *= 1 - fa
		if d.Fg.A <= 0 {
			d.Rune = 0
			d.Fg = ColorTransparent
		}
	case BlendBelow:
		if d.Rune == 0 {
			d.Rune = s.Rune
			d.Fg = s.Fg.WithAlpha(fa)
		}
	default:
		if d.Rune == 0 || d.Fg.A <= 0 {
			d.Rune = s.Rune
			d.Fg = s.Fg.WithAlpha(fa)
			return
		}
		if fa >= d.Fg.A*(1-fa) {
			d.Rune = s.Rune
		}
		d.Fg = blendColor(d.Fg, s.Fg, fa, mode)
	}
}

func glyphAlpha(c Cell) float64 {
	if c.Rune == 0 {
		return 0
	}
	return c.Fg.A
}

// blendColor composites src with effective alpha sa over dst.
func blendColor(d, s Color, sa float64, mode BlendMode) Color {
	da := d.A
	switch mode {
	case BlendErase:
		return d.WithAlpha(da * (1 - sa))
	case BlendBelow:
		oa := da + sa*(1-da)
		if oa <= 0 {
			return ColorTransparent
		}
		return Color{
			R: (da*d.R + sa*(1-da)*s.R) / oa,
			G: (da*d.G + sa*(1-da)*s.G) / oa,
			B: (da*d.B + sa*(1-da)*s.B) / oa,
			A: oa,
		}
	}

	oa := sa + da*(1-sa)
	if oa <= 0 {
		return ColorTransparent
	}
	mix := func(cd, cs float64) float64 {
		b := blendChannel(mode, cd, cs)
		cs = (1-da)*cs + da*b
		return clamp01((sa*cs + da*(1-sa)*cd) / oa)
	}
	return Color{
		R: mix(d.R, s.R),
		G: mix(d.G, s.G),
		B: mix(d.B, s.B),
		A: oa,
	}
}

// blendChannel is the separable blend function B(Cd, Cs).
func blendChannel(mode BlendMode, cd, cs float64) float64 {
	switch mode {
	case BlendAdd:
		return min(cd+cs, 1)
	case BlendMultiply:
		return cd * cs
	case BlendScreen:
		return cd + cs - cd*cs
	case BlendOverlay:
		if cd <= 0.5 {
			return 2 * cd * cs
		}
		return 1 - 2*(1-cd)*(1-cs)
	default:
		return cs
	}
}
