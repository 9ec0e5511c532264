package track

// opListener receives a local or forwarded operation together with the
// version it was published at.
type opListener func(op Op, version uint64)

// listenerRef gives each registered listener a distinct identity so the same
// function can be registered more than once.
type listenerRef struct {
	notify opListener
}

// childLink ties a tracked child to the property key it lives under. unbind
// is non-nil exactly while a forwarding listener is attached, which happens
// only while the parent has at least one listener of its own.
type childLink struct {
	child  *Handle
	unbind func()
}

// addListener registers fn and returns its unregister function. The first
// listener installs forwarding listeners on every tracked child; removing the
// last one tears them down again.
func (h *Handle) addListener(fn opListener) func() {
	ref := &listenerRef{notify: fn}
	h.listeners[ref] = struct{}{}
	if len(h.listeners) == 1 {
		for key, link := range h.children {
			if link.unbind != nil {
				reportViolation("forwarder already attached", key)
				continue
			}
			link.unbind = link.child.addListener(h.forwarder(key))
		}
	}
	return func() {
		if _, ok := h.listeners[ref]; !ok {
			return
		}
		delete(h.listeners, ref)
		if len(h.listeners) == 0 {
			for key, link := range h.children {
				if link.unbind == nil {
					reportViolation("forwarder already detached", key)
					continue
				}
				link.unbind()
				link.unbind = nil
			}
		}
	}
}

// forwarder republishes a child operation on h with the child's property key
// prepended to the path, keeping the version the child published at.
func (h *Handle) forwarder(key string) opListener {
	return func(op Op, version uint64) {
		path := make([]string, 0, len(op.Path)+1)
		path = append(path, key)
		path = append(path, op.Path...)
		op.Path = path
		h.notify(op, version)
	}
}

// notify publishes op at version. Republishing at the version the handle
// already carries is suppressed, so an object reachable through two
// properties of the same parent notifies once per mutation.
func (h *Handle) notify(op Op, version uint64) {
	if h.version == version {
		return
	}
	h.version = version
	if len(h.listeners) == 0 {
		return
	}
	refs := make([]*listenerRef, 0, len(h.listeners))
	for ref := range h.listeners {
		refs = append(refs, ref)
	}
	for _, ref := range refs {
		ref.notify(op, version)
	}
}

// notifyLocal publishes an operation that originated on this handle, sourcing
// a fresh version from the mutation counter.
func (h *Handle) notifyLocal(op Op) {
	h.notify(op, bumpMutation())
}

func (h *Handle) addChildLink(key string, child *Handle) {
	if _, exists := h.children[key]; exists {
		reportViolation("child link already exists", key)
		h.removeChildLink(key)
	}
	link := &childLink{child: child}
	if len(h.listeners) > 0 {
		link.unbind = child.addListener(h.forwarder(key))
	}
	h.children[key] = link
}

func (h *Handle) removeChildLink(key string) {
	link, ok := h.children[key]
	if !ok {
		return
	}
	delete(h.children, key)
	if link.unbind != nil {
		link.unbind()
		link.unbind = nil
	}
}

// ensureVersion returns the handle's current version, lazily raising it to
// the maximum version of its tracked children. The walk is skipped when the
// check-mark already matches (the subtree was visited in this pass) or when
// listeners are active, because push notifications keep the version fresh.
func (h *Handle) ensureVersion(check uint64) uint64 {
	if h.checkMark != check && len(h.listeners) == 0 {
		h.checkMark = check
		for _, link := range h.children {
			if v := link.child.ensureVersion(check); v > h.version {
				h.version = v
			}
		}
	}
	return h.version
}
