package track

import (
	"reflect"
	"regexp"
	"sync"
	"time"
)

// MarkOpaque adds v to the opaque set: it is never wrapped into a Handle and
// never cloned by the snapshot builder, always treated as an atomic
// reference. The argument is returned unchanged so the call can be inlined
// during object construction. Marks are identity-based and are kept for the
// process lifetime; they store only the value's address, never the value.
func MarkOpaque[T any](v T) T {
	markOpaque(any(v))
	return v
}

// atomicKinds is the closed exclusion set of non-plain types the default
// policy refuses to wrap: time values, compiled patterns, raw byte buffers
// and concurrent maps. Channels and funcs are excluded by kind below. The set
// is configuration data, extendable through RegisterAtomicKind.
var atomicKinds = struct {
	mu    sync.Mutex
	types map[reflect.Type]struct{}
}{
	types: map[reflect.Type]struct{}{
		reflect.TypeOf(time.Time{}):           {},
		reflect.TypeOf(&time.Time{}):          {},
		reflect.TypeOf((*regexp.Regexp)(nil)): {},
		reflect.TypeOf([]byte(nil)):           {},
		reflect.TypeOf(&sync.Map{}):           {},
	},
}

// RegisterAtomicKind adds t to the atomic kind set and returns a function
// that removes it again.
func RegisterAtomicKind(t reflect.Type) func() {
	if t == nil {
		return func() {}
	}
	atomicKinds.mu.Lock()
	atomicKinds.types[t] = struct{}{}
	atomicKinds.mu.Unlock()
	return func() {
		atomicKinds.mu.Lock()
		delete(atomicKinds.types, t)
		atomicKinds.mu.Unlock()
	}
}

// IsAtomicKind reports whether v belongs to the atomic kind set.
func IsAtomicKind(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.(error); ok {
		return true
	}
	t := reflect.TypeOf(v)
	switch t.Kind() {
	case reflect.Chan, reflect.Func:
		return true
	}
	atomicKinds.mu.Lock()
	defer atomicKinds.mu.Unlock()
	_, ok := atomicKinds.types[t]
	return ok
}

// defaultCanWrap is the stock wrap-eligibility policy: non-nil plain keyed
// mappings and indexed sequences qualify; nil containers, opaque-marked
// values, atomic kinds and every other shape (typed collections, structs,
// scalars) do not.
func defaultCanWrap(v any) bool {
	if v == nil || IsOpaque(v) || IsAtomicKind(v) {
		return false
	}
	switch t := v.(type) {
	case map[string]any:
		return t != nil
	case []any:
		return t != nil
	}
	return false
}
