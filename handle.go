package track

import (
	"sort"
	"strconv"
)

// Handle is the externally visible identity of a tracked target. All reads
// and mutations flow through its interceptor; direct access to the backing
// storage is never exposed. A target has at most one live Handle.
type Handle struct {
	// source pins the raw value passed to Wrap so its identity stays valid
	// for as long as the handle lives.
	source any
	target Target

	version   uint64
	checkMark uint64

	listeners map[*listenerRef]struct{}
	children  map[string]*childLink

	snap        *Snapshot
	interceptor Interceptor

	initializing bool
}

// Kind reports whether the handle tracks a keyed mapping or a sequence.
func (h *Handle) Kind() TargetKind { return h.target.Kind() }

// Get returns the value stored under key. Tracked children are returned as
// their *Handle.
func (h *Handle) Get(key string) (any, bool) {
	return h.interceptor.Get(key)
}

// Set writes value under key through the interception layer. Writes that are
// equal to the current value under the configured equality function are
// no-ops: no version bump, no notification.
func (h *Handle) Set(key string, value any) error {
	return h.interceptor.Set(key, value)
}

// Delete removes the property stored under key. Deleting an absent mapping
// key is a silent no-op.
func (h *Handle) Delete(key string) error {
	return h.interceptor.Delete(key)
}

// Append pushes values onto the end of a sequence handle.
func (h *Handle) Append(values ...any) error {
	if h.target.Kind() != TargetSlice {
		return ErrSequenceRequired
	}
	for _, value := range values {
		if err := h.interceptor.Set(strconv.Itoa(h.target.Len()), value); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether key currently exists on the target.
func (h *Handle) Has(key string) bool {
	_, ok := h.interceptor.Get(key)
	return ok
}

// Len returns the number of own properties on the target.
func (h *Handle) Len() int { return h.target.Len() }

// Keys returns the target's own property keys, sorted for mappings and in
// index order for sequences.
func (h *Handle) Keys() []string { return h.target.Keys() }

// Snapshot returns the immutable view of the handle at its current version.
// Repeated calls with no intervening mutation return the identical cached
// snapshot.
func (h *Handle) Snapshot() *Snapshot {
	return snapshotBuilder(h, h.ensureVersion(nextCheck()))
}

// Wrap tracks target and returns its Handle, creating one on first use and
// returning the cached handle afterwards. Only plain keyed mappings
// (map[string]any) and indexed sequences ([]any) can be wrapped; wrapping a
// *Handle returns it unchanged.
func Wrap(target any) (*Handle, error) {
	if h, ok := target.(*Handle); ok {
		if h == nil {
			return nil, ErrObjectRequired
		}
		return h, nil
	}
	if target == nil {
		return nil, ErrObjectRequired
	}
	if IsOpaque(target) {
		return nil, ErrOpaqueTarget
	}
	if h := lookupHandle(target); h != nil {
		return h, nil
	}

	var storage Target
	switch src := target.(type) {
	case map[string]any:
		if src == nil {
			return nil, ErrObjectRequired
		}
		storage = newMapTarget(len(src))
	case []any:
		storage = newSliceTarget(len(src))
	default:
		return nil, ErrObjectRequired
	}

	h := handleFactory(target, storage)
	// Register before populating so self-referential graphs terminate.
	registerHandle(target, h)

	h.initializing = true
	defer func() { h.initializing = false }()
	switch src := target.(type) {
	case map[string]any:
		keys := make([]string, 0, len(src))
		for key := range src {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := h.interceptor.Set(key, src[key]); err != nil {
				return nil, err
			}
		}
	case []any:
		for i, value := range src {
			if err := h.interceptor.Set(strconv.Itoa(i), value); err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

// MustWrap is Wrap that panics on error, for tests and examples.
func MustWrap(target any) *Handle {
	h, err := Wrap(target)
	if err != nil {
		panic(err)
	}
	return h
}

// GetVersion returns the current version of a tracked value, lazily pulling
// child versions when the handle has no active listeners. It accepts either
// a *Handle or the raw target previously passed to Wrap; the second return
// is false for untracked values.
func GetVersion(v any) (uint64, bool) {
	h := resolveHandle(v)
	if h == nil {
		return 0, false
	}
	return h.ensureVersion(nextCheck()), true
}

func resolveHandle(v any) *Handle {
	if h, ok := v.(*Handle); ok {
		return h
	}
	return lookupHandle(v)
}

// defaultNewHandle is the stock wrapping primitive: it allocates the handle
// and installs the interceptor produced by the configured factory.
func defaultNewHandle(source any, target Target) *Handle {
	h := &Handle{
		source:    source,
		target:    target,
		version:   versions.mutation,
		listeners: make(map[*listenerRef]struct{}),
		children:  make(map[string]*childLink),
	}
	h.interceptor = interceptorFactory(InterceptorHooks{
		Target:       target,
		Initializing: func() bool { return h.initializing },
		AddLink:      h.addChildLink,
		RemoveLink:   h.removeChildLink,
		Notify:       h.notifyLocal,
	})
	return h
}
