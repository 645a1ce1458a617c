package asciiflow

// Completion is the result of an asynchronous engine operation such as a
// pattern switch or a layer tween. It resolves exactly once; Done is closed
// at that point and Err reports the outcome.
type Completion struct {
	done     chan struct{}
	err      error
	resolved bool
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// resolvedCompletion returns a completion that has already finished.
func resolvedCompletion(err error) *Completion {
	c := newCompletion()
	c.resolve(err)
	return c
}

// resolve finishes the completion. Later calls are ignored.
func (c *Completion) resolve(err error) {
	if c.resolved {
		return
	}
	c.resolved = true
	c.err = err
	close(c.done)
}

// Done returns a channel that is closed once the operation finishes.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Resolved reports whether the operation has finished.
func (c *Completion) Resolved() bool {
	return c.resolved
}

// Err returns the outcome: nil on success, nil while still pending.
func (c *Completion) Err() error {
	return c.err
}
