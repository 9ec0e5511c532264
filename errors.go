package track

import (
	"errors"
	"fmt"
)

var (
	// ErrObjectRequired indicates Wrap received a value that is not a plain
	// keyed mapping or indexed sequence.
	ErrObjectRequired = errors.New("track: object required")
	// ErrOpaqueTarget indicates Wrap received a value previously passed
	// through MarkOpaque.
	ErrOpaqueTarget = errors.New("track: cannot wrap opaque value")
	// ErrHandleRequired indicates a nil handle was supplied.
	ErrHandleRequired = errors.New("track: handle required")
	// ErrCallbackRequired indicates Subscribe received a nil callback.
	ErrCallbackRequired = errors.New("track: callback required")
	// ErrIndexOutOfRange indicates a sequence write past the append position.
	ErrIndexOutOfRange = errors.New("track: index out of range")
	// ErrSequenceRequired indicates a sequence-only operation was invoked on
	// a keyed mapping handle.
	ErrSequenceRequired = errors.New("track: sequence handle required")
)

// ProtocolViolationError reports a listener bookkeeping violation. It is only
// raised as a panic when strict diagnostics are enabled; see
// SetStrictDiagnostics.
type ProtocolViolationError struct {
	Violation string
	Key       string
}

func (e *ProtocolViolationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("track: protocol violation %s key=%q", e.Violation, e.Key)
}
