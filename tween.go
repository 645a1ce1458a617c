package asciiflow

import (
	"math"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// LayerProperty selects the layer field animated by AnimateLayer.
type LayerProperty uint8

const (
	LayerOpacity LayerProperty = iota // opacity, clamped to [0, 1]
	LayerZIndex                       // z-index, rounded to the nearest integer
)

// layerTween animates one property of a layer. Tweens on the same property
// are not coordinated: each writes its value every frame and the last write
// wins.
type layerTween struct {
	tween *gween.Tween
	layer *Layer
	prop  LayerProperty
	done  *Completion
}

func newLayerTween(l *Layer, prop LayerProperty, target float64, d time.Duration) *layerTween {
	var from float64
	switch prop {
	case LayerZIndex:
		from = float64(l.zIndex)
	default:
		from = l.opacity
	}
	return &layerTween{
		tween: gween.New(float32(from), float32(target), float32(d.Seconds()), ease.OutCubic),
		layer: l,
		prop:  prop,
		done:  newCompletion(),
	}
}

// update advances the tween by dt and writes the value to the layer. It
// reports whether the tween finished. A removed layer stops the tween.
func (t *layerTween) update(lm *LayerManager, dt time.Duration) bool {
	if t.layer.disposed {
		t.done.resolve(nil)
		return true
	}
	val, finished := t.tween.Update(float32(dt.Seconds()))
	t.apply(lm, float64(val))
	if finished {
		t.done.resolve(nil)
	}
	return finished
}

func (t *layerTween) apply(lm *LayerManager, v float64) {
	switch t.prop {
	case LayerZIndex:
		z := int(math.Round(v))
		if z != t.layer.zIndex {
			t.layer.zIndex = z
			lm.sorted = false
		}
	default:
		t.layer.opacity = clamp01(v)
	}
}
