package track

import "sync"

// DiagnosticEvent describes a listener bookkeeping violation: a forwarding
// link that already existed when it was installed, or one that was already
// gone at teardown. These are non-fatal bugs in production use.
type DiagnosticEvent struct {
	Violation string
	Key       string
}

// DiagnosticHook receives diagnostic events.
type DiagnosticHook interface {
	Notify(event DiagnosticEvent)
}

// DiagnosticHookFunc adapts a plain function to DiagnosticHook.
type DiagnosticHookFunc func(event DiagnosticEvent)

// Notify dispatches to the underlying function.
func (f DiagnosticHookFunc) Notify(event DiagnosticEvent) {
	if f != nil {
		f(event)
	}
}

// DiagnosticHooks fans out events to zero or more hooks, skipping nil
// entries.
type DiagnosticHooks []DiagnosticHook

// Notify forwards the event to all hooks.
func (h DiagnosticHooks) Notify(event DiagnosticEvent) {
	for _, hook := range h {
		if hook == nil {
			continue
		}
		hook.Notify(event)
	}
}

// CaptureDiagnostics records events for assertions in tests.
type CaptureDiagnostics struct {
	mu     sync.Mutex
	Events []DiagnosticEvent
}

// Notify records the event.
func (c *CaptureDiagnostics) Notify(event DiagnosticEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Events = append(c.Events, event)
}

var diagnostics struct {
	strict bool
	hooks  DiagnosticHooks
}

// SetStrictDiagnostics toggles strict mode, under which protocol violations
// panic with a *ProtocolViolationError instead of being tolerated. It returns
// the previous setting.
func SetStrictDiagnostics(strict bool) bool {
	prev := diagnostics.strict
	diagnostics.strict = strict
	return prev
}

// AddDiagnosticHook registers a hook for protocol violations and returns a
// function that removes it again.
func AddDiagnosticHook(hook DiagnosticHook) func() {
	if hook == nil {
		return func() {}
	}
	diagnostics.hooks = append(diagnostics.hooks, hook)
	idx := len(diagnostics.hooks) - 1
	return func() {
		diagnostics.hooks[idx] = nil
	}
}

func reportViolation(violation, key string) {
	diagnostics.hooks.Notify(DiagnosticEvent{Violation: violation, Key: key})
	if diagnostics.strict {
		panic(&ProtocolViolationError{Violation: violation, Key: key})
	}
}
