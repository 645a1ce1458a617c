package asciiflow

import "time"

// Clock reports host time as a monotonic offset from an arbitrary origin.
type Clock interface {
	Now() time.Duration
}

// FrameID identifies a pending frame request.
type FrameID uint64

// FrameFunc is called once per requested frame with the frame timestamp.
type FrameFunc func(now time.Duration)

// FrameScheduler is the host's frame-synced callback registration, the
// equivalent of a display refresh callback.
type FrameScheduler interface {
	// RequestFrame schedules fn for the next frame and returns a handle.
	RequestFrame(fn FrameFunc) FrameID
	// CancelFrame removes a pending request. A canceled request never runs.
	CancelFrame(id FrameID)
}

// Timers registers wall-clock callbacks independent of the frame loop.
type Timers interface {
	// Every calls fn each period until the returned stop func is called.
	Every(period time.Duration, fn func()) (stop func())
	// After calls fn once after delay unless stop is called first.
	After(delay time.Duration, fn func()) (stop func())
}

// Host bundles the capabilities the engine needs from its environment.
// Driver implements it; ebitenhost and termhost pump a Driver from their
// own loops.
type Host interface {
	Clock
	FrameScheduler
	Timers
}

// WallClock reads monotonic wall time elapsed since it was created.
type WallClock struct {
	origin time.Time
}

// NewWallClock returns a clock starting at zero now.
func NewWallClock() *WallClock {
	return &WallClock{origin: time.Now()}
}

// Now returns the time elapsed since the clock was created.
func (c *WallClock) Now() time.Duration {
	return time.Since(c.origin)
}
