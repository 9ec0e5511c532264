package track

import (
	"reflect"
	"runtime"
	"sync"
	"weak"
)

// versions owns the two process-wide monotonic counters. Both start at 1 and
// are only advanced on the single logical writer path; there is no teardown.
// The mutation counter sources new version values on real change, the check
// counter deduplicates lazy version queries within one logical pass.
var versions = struct {
	mutation uint64
	check    uint64
}{mutation: 1, check: 1}

func bumpMutation() uint64 {
	versions.mutation++
	return versions.mutation
}

func nextCheck() uint64 {
	versions.check++
	return versions.check
}

type identityKind uint8

const (
	identityMap identityKind = iota + 1
	identitySlice
	identityRef
)

// identity is the comparable key the registries use in place of object
// identity. It holds only the address (plus length for slices, since reslices
// share a base address), never a reference, so registry entries cannot keep a
// dead object alive.
type identity struct {
	ptr    uintptr
	length int
	kind   identityKind
}

// identityOf derives the identity key for a reference-shaped value.
// Zero-length slices share the runtime's base address and therefore have no
// distinguishable identity.
func identityOf(v any) (identity, bool) {
	switch t := v.(type) {
	case nil:
		return identity{}, false
	case map[string]any:
		if t == nil {
			return identity{}, false
		}
		return identity{ptr: reflect.ValueOf(t).Pointer(), kind: identityMap}, true
	case []any:
		if len(t) == 0 {
			return identity{}, false
		}
		return identity{ptr: reflect.ValueOf(t).Pointer(), length: len(t), kind: identitySlice}, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return identity{}, false
		}
		return identity{ptr: rv.Pointer(), kind: identityRef}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return identity{}, false
		}
		return identity{ptr: rv.Pointer(), length: rv.Len(), kind: identitySlice}, true
	}
	return identity{}, false
}

// registry holds the process-wide identity-keyed caches. Handles are held
// weakly: once nothing outside the registry references a handle, the GC
// reclaims it and the cleanup below drops the stale entry. The mutex exists
// only because cleanups run on the GC's goroutine; the data path assumes a
// single logical writer.
var registry = struct {
	mu      sync.Mutex
	handles map[identity]weak.Pointer[Handle]
	opaque  map[identity]struct{}
}{
	handles: make(map[identity]weak.Pointer[Handle]),
	opaque:  make(map[identity]struct{}),
}

// lookupHandle returns the live handle previously registered for v, if any.
func lookupHandle(v any) *Handle {
	id, ok := identityOf(v)
	if !ok {
		return nil
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	wp, ok := registry.handles[id]
	if !ok {
		return nil
	}
	return wp.Value()
}

func registerHandle(source any, h *Handle) {
	id, ok := identityOf(source)
	if !ok {
		return
	}
	registry.mu.Lock()
	registry.handles[id] = weak.Make(h)
	registry.mu.Unlock()
	runtime.AddCleanup(h, evictHandle, id)
}

// evictHandle drops the registry entry once its handle has been reclaimed.
// The liveness check guards against an identity that was re-registered for a
// new handle at a reused address.
func evictHandle(id identity) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if wp, ok := registry.handles[id]; ok && wp.Value() == nil {
		delete(registry.handles, id)
	}
}

func markOpaque(v any) {
	id, ok := identityOf(v)
	if !ok {
		return
	}
	registry.mu.Lock()
	registry.opaque[id] = struct{}{}
	registry.mu.Unlock()
}

// IsOpaque reports whether v was previously passed through MarkOpaque.
func IsOpaque(v any) bool {
	id, ok := identityOf(v)
	if !ok {
		return false
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	_, marked := registry.opaque[id]
	return marked
}
