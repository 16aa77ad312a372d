package iso

import "errors"

// Sentinel errors returned by the wire codec. Callers use errors.Is to
// classify a failure into the §7 taxonomy (FrameIncomplete/FrameMalformed).
var (
	// ErrFrameIncomplete means fewer than the declared N bytes arrived
	// before EOF or the idle timeout fired.
	ErrFrameIncomplete = errors.New("iso: incomplete frame")

	// ErrFrameMalformed means the payload decoded to something the
	// dictionary cannot account for: an unknown field number in the
	// bitmap, a length prefix that overruns the buffer, or a value that
	// violates its IsoType's length discipline.
	ErrFrameMalformed = errors.New("iso: malformed frame")

	ErrBitmapTruncated = errors.New("iso: bitmap truncated")
	ErrBitmapMalformed = errors.New("iso: bitmap malformed")

	ErrUnknownField = errors.New("iso: field has no dictionary entry")
	ErrUnknownMTI   = errors.New("iso: no template for MTI")
)
