package asciiflow

import "time"

// Driver is a manually pumped Host. Time only moves when the owner calls
// Advance or AdvanceTo, and frame callbacks only run on Frame. Tests use it
// to drive virtual time deterministically; real hosts call AdvanceTo with
// elapsed wall time and Frame once per display refresh.
//
// Like the rest of the engine, a Driver is not safe for concurrent use.
type Driver struct {
	now     time.Duration
	nextID  uint64
	frames  []frameRequest
	timers  []*driverTimer
	running []frameRequest
}

type frameRequest struct {
	id FrameID
	fn FrameFunc
}

type driverTimer struct {
	id       uint64
	deadline time.Duration
	period   time.Duration // 0 for one-shot timers
	fn       func()
	stopped  bool
}

// NewDriver creates a driver at time zero.
func NewDriver() *Driver {
	return &Driver{}
}

// Now returns the driver's current time.
func (d *Driver) Now() time.Duration {
	return d.now
}

// RequestFrame queues fn for the next call to Frame.
func (d *Driver) RequestFrame(fn FrameFunc) FrameID {
	d.nextID++
	id := FrameID(d.nextID)
	d.frames = append(d.frames, frameRequest{id: id, fn: fn})
	return id
}

// CancelFrame removes a pending request, including one already picked up by
// an in-progress Frame call that has not run yet.
func (d *Driver) CancelFrame(id FrameID) {
	for i, r := range d.frames {
		if r.id == id {
			d.frames = append(d.frames[:i], d.frames[i+1:]...)
			return
		}
	}
	for i := range d.running {
		if d.running[i].id == id {
			d.running[i].fn = nil
			return
		}
	}
}

// PendingFrames returns the number of queued frame requests.
func (d *Driver) PendingFrames() int {
	return len(d.frames)
}

// Frame runs every frame request queued before the call, in request order,
// with the current time. Requests made by those callbacks wait for the next
// Frame.
func (d *Driver) Frame() {
	d.running = append(d.running[:0], d.frames...)
	d.frames = d.frames[:0]
	for i := 0; i < len(d.running); i++ {
		fn := d.running[i].fn
		if fn == nil {
			continue
		}
		d.running[i].fn = nil
		fn(d.now)
	}
	d.running = d.running[:0]
}

// Every calls fn each period of driver time.
func (d *Driver) Every(period time.Duration, fn func()) (stop func()) {
	if period <= 0 {
		period = time.Millisecond
	}
	return d.addTimer(d.now+period, period, fn)
}

// After calls fn once when driver time reaches now+delay.
func (d *Driver) After(delay time.Duration, fn func()) (stop func()) {
	return d.addTimer(d.now+max(delay, 0), 0, fn)
}

func (d *Driver) addTimer(deadline, period time.Duration, fn func()) func() {
	d.nextID++
	t := &driverTimer{id: d.nextID, deadline: deadline, period: period, fn: fn}
	d.timers = append(d.timers, t)
	return func() { t.stopped = true }
}

// Advance moves time forward by dt, firing due timers in deadline order.
// Frames are not run.
func (d *Driver) Advance(dt time.Duration) {
	d.AdvanceTo(d.now + max(dt, 0))
}

// AdvanceTo moves time forward to t, firing due timers in deadline order.
// Ties fire in registration order. Moving backwards is a no-op.
func (d *Driver) AdvanceTo(t time.Duration) {
	if t < d.now {
		return
	}
	for {
		next := d.nextDue(t)
		if next == nil {
			break
		}
		d.now = next.deadline
		if next.period > 0 {
			next.deadline += next.period
		} else {
			next.stopped = true
		}
		next.fn()
		d.compactTimers()
	}
	d.now = t
}

// Step advances time by dt and then runs one frame.
func (d *Driver) Step(dt time.Duration) {
	d.Advance(dt)
	d.Frame()
}

func (d *Driver) nextDue(limit time.Duration) *driverTimer {
	var best *driverTimer
	for _, t := range d.timers {
		if t.stopped || t.deadline > limit {
			continue
		}
		if best == nil || t.deadline < best.deadline || (t.deadline == best.deadline && t.id < best.id) {
			best = t
		}
	}
	return best
}

func (d *Driver) compactTimers() {
	live := d.timers[:0]
	for _, t := range d.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(d.timers); i++ {
		d.timers[i] = nil
	}
	d.timers = live
}
