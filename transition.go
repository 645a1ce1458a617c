package asciiflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/tanema/gween/ease"
)

// TransitionType selects how the outgoing and incoming patterns are blended
// during a switch.
type TransitionType uint8

const (
	TransitionFade      TransitionType = iota // old fades out, then new fades in
	TransitionCrossfade                       // old and new blend linearly at the same time
	TransitionCut                             // immediate swap, duration ignored
)

// String returns the transition name.
func (t TransitionType) String() string {
	switch t {
	case TransitionFade:
		return "fade"
	case TransitionCrossfade:
		return "crossfade"
	case TransitionCut:
		return "cut"
	}
	return fmt.Sprintf("TransitionType(%d)", uint8(t))
}

// ParseTransitionType maps "fade", "crossfade" or "cut" to a type.
func ParseTransitionType(s string) (TransitionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fade":
		return TransitionFade, nil
	case "crossfade", "dissolve":
		return TransitionCrossfade, nil
	case "cut", "none":
		return TransitionCut, nil
	}
	return TransitionFade, fmt.Errorf("%w: unknown transition %q", ErrConfiguration, s)
}

// TransitionSpec describes a pattern switch.
type TransitionSpec struct {
	Type     TransitionType
	Duration time.Duration
}

// deadlineMargin is how long past its declared duration a transition may
// run before the deadline timer forces it to complete.
const deadlineMargin = 250 * time.Millisecond

// transitionLayerName is the transient layer the incoming pattern draws to.
const transitionLayerName = "transition"

// transition is the Switching state: an incoming pattern on the transition
// layer blending over the current one, advanced by frame deltas.
type transition struct {
	name      string
	spec      TransitionSpec
	incoming  Pattern
	elapsed   time.Duration
	done      *Completion
	stopTimer func()

	// opacity of the middle layer before the switch, restored afterwards
	baseOpacity float64
}

// progress returns the linear progress in [0, 1].
func (t *transition) progress() float64 {
	if t.spec.Type == TransitionCut || t.spec.Duration <= 0 {
		return 1
	}
	return clamp01(float64(t.elapsed) / float64(t.spec.Duration))
}

// complete reports whether the transition has reached its end.
func (t *transition) complete() bool {
	return t.progress() >= 1
}

// opacities returns the outgoing and incoming layer opacity multipliers for
// the current progress.
func (t *transition) opacities() (out, in float64) {
	p := float32(t.progress())
	switch t.spec.Type {
	case TransitionCrossfade:
		v := float64(ease.Linear(p, 0, 1, 1))
		return 1 - v, v
	case TransitionFade:
		if p < 0.5 {
			return 1 - float64(ease.InOutSine(p*2, 0, 1, 1)), 0
		}
		return 0, float64(ease.InOutSine((p-0.5)*2, 0, 1, 1))
	}
	return 0, 1
}
