package track

// The replaceable internals. Each substitution fully replaces the default
// behavior; the replacer receives the previous implementation so substitutions
// compose and remain reversible.
var (
	equalFn            EqualFunc          = defaultEqual
	canWrap            CanWrapFunc        = defaultCanWrap
	handleFactory      HandleFactory      = defaultNewHandle
	snapshotBuilder    SnapshotBuilder
	interceptorFactory InterceptorFactory = defaultNewInterceptor
)

// defaultBuildSnapshot refers back to snapshotBuilder when recursing into
// children, so the default cannot be assigned in the var block.
func init() {
	snapshotBuilder = defaultBuildSnapshot
}

// ReplaceEqualFunc substitutes the equality function used by the no-op write
// check. Returning the received previous implementation restores it.
func ReplaceEqualFunc(replace func(prev EqualFunc) EqualFunc) {
	if replace == nil {
		return
	}
	if next := replace(equalFn); next != nil {
		equalFn = next
	}
}

// ReplaceCanWrap substitutes the wrap-eligibility policy consulted on every
// write through the interception layer.
func ReplaceCanWrap(replace func(prev CanWrapFunc) CanWrapFunc) {
	if replace == nil {
		return
	}
	if next := replace(canWrap); next != nil {
		canWrap = next
	}
}

// ReplaceHandleFactory substitutes the wrapping primitive used by Wrap.
func ReplaceHandleFactory(replace func(prev HandleFactory) HandleFactory) {
	if replace == nil {
		return
	}
	if next := replace(handleFactory); next != nil {
		handleFactory = next
	}
}

// ReplaceSnapshotBuilder substitutes the snapshot-building algorithm.
func ReplaceSnapshotBuilder(replace func(prev SnapshotBuilder) SnapshotBuilder) {
	if replace == nil {
		return
	}
	if next := replace(snapshotBuilder); next != nil {
		snapshotBuilder = next
	}
}

// ReplaceInterceptorFactory substitutes the factory producing the interceptor
// installed on new handles. Existing handles keep the interceptor they were
// created with.
func ReplaceInterceptorFactory(replace func(prev InterceptorFactory) InterceptorFactory) {
	if replace == nil {
		return
	}
	if next := replace(interceptorFactory); next != nil {
		interceptorFactory = next
	}
}

// defaultEqual compares reference-shaped values by identity and everything
// else by Go equality. Comparing uncomparable values panics; safeEqual below
// turns that into "changed".
func defaultEqual(a, b any) bool {
	if ida, ok := identityOf(a); ok {
		idb, ok := identityOf(b)
		return ok && ida == idb
	}
	if _, ok := identityOf(b); ok {
		return false
	}
	return a == b
}

// safeEqual guards the configured equality function: a panicking comparison
// counts as a change so the write proceeds and consumers keep making
// progress.
func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return equalFn(a, b)
}
