package track

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Snapshot is an immutable, memoized deep view of a target at a specific
// version. Nested tracked children appear as their own recursively built
// snapshots; opaque values appear by reference, never cloned. Storage is
// unexported, so a snapshot cannot be altered after construction.
type Snapshot struct {
	version uint64
	kind    TargetKind
	entries map[string]any
	items   []any
}

// Version returns the version the snapshot was built at.
func (s *Snapshot) Version() uint64 { return s.version }

// Kind reports whether the snapshot views a keyed mapping or a sequence.
func (s *Snapshot) Kind() TargetKind { return s.kind }

// Len returns the number of properties in the snapshot.
func (s *Snapshot) Len() int {
	if s.kind == TargetSlice {
		return len(s.items)
	}
	return len(s.entries)
}

// Get returns the property stored under key. Sequence snapshots address
// elements by decimal index.
func (s *Snapshot) Get(key string) (any, bool) {
	if s.kind == TargetSlice {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(s.items) {
			return nil, false
		}
		return s.items[idx], true
	}
	value, ok := s.entries[key]
	return value, ok
}

// Has reports whether key exists in the snapshot.
func (s *Snapshot) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Index returns the sequence element at i.
func (s *Snapshot) Index(i int) (any, bool) {
	if s.kind != TargetSlice || i < 0 || i >= len(s.items) {
		return nil, false
	}
	return s.items[i], true
}

// Keys returns the snapshot's property keys, sorted for mappings and in index
// order for sequences.
func (s *Snapshot) Keys() []string {
	if s.kind == TargetSlice {
		keys := make([]string, len(s.items))
		for i := range s.items {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// At descends through nested snapshots along path and returns the value at
// its end.
func (s *Snapshot) At(path ...string) (any, bool) {
	var current any = s
	for _, key := range path {
		snap, ok := current.(*Snapshot)
		if !ok {
			return nil, false
		}
		current, ok = snap.Get(key)
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Interface materializes the snapshot as plain maps and slices. Nested
// snapshots are materialized recursively; opaque and raw values are carried
// over by reference. Each call allocates fresh containers.
func (s *Snapshot) Interface() any {
	if s == nil {
		return nil
	}
	if s.kind == TargetSlice {
		out := make([]any, len(s.items))
		for i, value := range s.items {
			out[i] = materialize(value)
		}
		return out
	}
	out := make(map[string]any, len(s.entries))
	for key, value := range s.entries {
		out[key] = materialize(value)
	}
	return out
}

func materialize(v any) any {
	if snap, ok := v.(*Snapshot); ok {
		return snap.Interface()
	}
	return v
}

// MarshalJSON serialises the materialized snapshot.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Interface())
}

// defaultBuildSnapshot is the stock snapshot algorithm. The cache lives on
// the handle keyed by version: a hit returns the exact cached object, so two
// snapshot calls with no intervening mutation yield the identical pointer.
func defaultBuildSnapshot(h *Handle, version uint64) *Snapshot {
	if h.snap != nil && h.snap.version == version {
		return h.snap
	}
	snap := &Snapshot{version: version, kind: h.target.Kind()}
	switch snap.kind {
	case TargetSlice:
		snap.items = make([]any, h.target.Len())
		for i := range snap.items {
			value, _ := h.target.Get(strconv.Itoa(i))
			snap.items[i] = snapshotValue(value)
		}
	default:
		keys := h.target.Keys()
		snap.entries = make(map[string]any, len(keys))
		for _, key := range keys {
			value, _ := h.target.Get(key)
			snap.entries[key] = snapshotValue(value)
		}
	}
	h.snap = snap
	return snap
}

// snapshotValue recurses into tracked children at their own current version;
// everything else, opaque references included, is copied as-is.
func snapshotValue(v any) any {
	child, ok := v.(*Handle)
	if !ok {
		return v
	}
	return snapshotBuilder(child, child.ensureVersion(nextCheck()))
}
