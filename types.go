package track

// OpKind identifies the variant of a recorded mutation.
type OpKind string

const (
	// OpSet records a property write.
	OpSet OpKind = "set"
	// OpDelete records a property removal.
	OpDelete OpKind = "delete"
)

// Op is a single mutation observed by the interception layer. Path holds the
// ordered property keys from the subscribed root down to the mutated
// property; forwarding links prepend keys as the event bubbles through
// ancestors. Prev carries the value held immediately before the mutation,
// which may be a *Handle when the previous value was tracked.
type Op struct {
	Kind  OpKind   `json:"kind"`
	Path  []string `json:"path"`
	Value any      `json:"value,omitempty"`
	Prev  any      `json:"prev,omitempty"`
}

// Key returns the mutated property key, the last element of the path.
func (op Op) Key() string {
	if len(op.Path) == 0 {
		return ""
	}
	return op.Path[len(op.Path)-1]
}

// Root returns the first path element, the property of the subscribed object
// under which the mutation occurred.
func (op Op) Root() string {
	if len(op.Path) == 0 {
		return ""
	}
	return op.Path[0]
}

// TargetKind distinguishes the two backing storage shapes a handle can track.
type TargetKind uint8

const (
	// TargetMap marks a keyed mapping target.
	TargetMap TargetKind = iota + 1
	// TargetSlice marks an indexed sequence target.
	TargetSlice
)

func (k TargetKind) String() string {
	switch k {
	case TargetMap:
		return "map"
	case TargetSlice:
		return "slice"
	default:
		return "unknown"
	}
}

// Target abstracts the backing storage owned by a handle: a keyed mapping or
// an indexed sequence. Sequence targets address elements by their decimal
// index; a Set at the current length appends.
type Target interface {
	Kind() TargetKind
	Get(key string) (any, bool)
	Set(key string, value any) error
	Delete(key string) (any, bool)
	Keys() []string
	Len() int
}

// Interceptor mediates every read and mutation applied to a Handle,
// implementing the no-op write check, child wrapping, link maintenance and
// notification contracts.
type Interceptor interface {
	Get(key string) (any, bool)
	Set(key string, value any) error
	Delete(key string) error
}

// InterceptorHooks exposes the handle bookkeeping callbacks an interceptor
// drives when committing mutations. Custom interceptor factories receive the
// same hooks as the default implementation.
type InterceptorHooks struct {
	// Target is the backing storage mutations commit to.
	Target Target
	// Initializing reports whether the handle is still populating its
	// initial contents; no-op write checks are skipped during that phase.
	Initializing func() bool
	// AddLink registers a tracked child under key, installing a forwarding
	// listener when the handle currently has subscribers.
	AddLink func(key string, child *Handle)
	// RemoveLink tears down the child link for key, if any.
	RemoveLink func(key string)
	// Notify publishes a local operation, bumping the handle version.
	Notify func(op Op)
}

// EqualFunc reports whether a write can be treated as a no-op. The default
// compares reference values by identity and everything else by Go equality.
type EqualFunc func(a, b any) bool

// CanWrapFunc decides whether a value assigned through the interception layer
// is wrapped into its own Handle.
type CanWrapFunc func(v any) bool

// HandleFactory constructs the Handle for a freshly wrapped target. source is
// the raw value passed to Wrap; target is the storage the handle will own.
type HandleFactory func(source any, target Target) *Handle

// SnapshotBuilder produces the immutable view of a handle at version,
// consulting and updating the handle's snapshot cache.
type SnapshotBuilder func(h *Handle, version uint64) *Snapshot

// InterceptorFactory builds the interceptor installed on every new Handle.
type InterceptorFactory func(hooks InterceptorHooks) Interceptor
