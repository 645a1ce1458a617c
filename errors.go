package asciiflow

import "errors"

// Error sentinels. Operations wrap them with context; match with errors.Is.
var (
	// ErrConfiguration reports a duplicate name or an invalid construction value.
	ErrConfiguration = errors.New("asciiflow: configuration error")
	// ErrNotFound reports a reference to an unknown pattern or layer.
	ErrNotFound = errors.New("asciiflow: not found")
	// ErrSurface reports a drawing surface that could not be acquired or resized.
	ErrSurface = errors.New("asciiflow: surface error")
	// ErrBusy reports a pattern switch requested while another is in flight.
	ErrBusy = errors.New("asciiflow: transition in progress")
	// ErrCanceled resolves a transition that was abandoned by Cleanup.
	ErrCanceled = errors.New("asciiflow: transition canceled")
	// ErrPatternFault reports a pattern that panicked during update or render.
	ErrPatternFault = errors.New("asciiflow: pattern fault")
)
