package asciiflow

// gridPool manages reusable scratch grids keyed by pixel size and text
// style. After warmup, Acquire/Release are zero-alloc.
type gridPool struct {
	buckets map[gridKey][]*Grid
}

type gridKey struct {
	w, h  int
	style TextStyle
}

// Acquire returns a cleared scratch grid matching the given size and style.
func (p *gridPool) Acquire(w, h int, style TextStyle) *Grid {
	key := gridKey{w, h, style}
	if p.buckets != nil {
		if stack := p.buckets[key]; len(stack) > 0 {
			g := stack[len(stack)-1]
			p.buckets[key] = stack[:len(stack)-1]
			g.Clear()
			return g
		}
	}
	g, err := NewGrid(w, h, style)
	if err != nil {
		// Sizes come from a live grid, so they are always valid.
		panic("asciiflow: scratch grid: " + err.Error())
	}
	return g
}

// Release returns a grid to the pool. It is cleared on next Acquire.
func (p *gridPool) Release(g *Grid) {
	if g == nil || g.disposed {
		return
	}
	if p.buckets == nil {
		p.buckets = make(map[gridKey][]*Grid)
	}
	key := gridKey{g.width, g.height, g.style}
	p.buckets[key] = append(p.buckets[key], g)
}

// Drain disposes every pooled grid. Called after a resize, when the pooled
// sizes can no longer be reused.
func (p *gridPool) Drain() {
	for key, stack := range p.buckets {
		for _, g := range stack {
			g.Dispose()
		}
		delete(p.buckets, key)
	}
}
