package track

import (
	"sort"
	"strconv"
)

// mapTarget stores keyed mapping properties. The map is exclusively owned by
// the handle; callers never see it directly.
type mapTarget struct {
	entries map[string]any
}

func newMapTarget(size int) *mapTarget {
	return &mapTarget{entries: make(map[string]any, size)}
}

func (t *mapTarget) Kind() TargetKind { return TargetMap }

func (t *mapTarget) Get(key string) (any, bool) {
	value, ok := t.entries[key]
	return value, ok
}

func (t *mapTarget) Set(key string, value any) error {
	t.entries[key] = value
	return nil
}

func (t *mapTarget) Delete(key string) (any, bool) {
	prev, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	delete(t.entries, key)
	return prev, true
}

func (t *mapTarget) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for key := range t.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (t *mapTarget) Len() int { return len(t.entries) }

// sliceTarget stores indexed sequence elements. Elements are addressed by
// decimal index keys; a Set at the current length appends.
type sliceTarget struct {
	items []any
}

func newSliceTarget(capacity int) *sliceTarget {
	return &sliceTarget{items: make([]any, 0, capacity)}
}

func (t *sliceTarget) Kind() TargetKind { return TargetSlice }

func (t *sliceTarget) index(key string) (int, bool) {
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func (t *sliceTarget) Get(key string) (any, bool) {
	idx, ok := t.index(key)
	if !ok || idx >= len(t.items) {
		return nil, false
	}
	return t.items[idx], true
}

func (t *sliceTarget) Set(key string, value any) error {
	idx, ok := t.index(key)
	if !ok || idx > len(t.items) {
		return ErrIndexOutOfRange
	}
	if idx == len(t.items) {
		t.items = append(t.items, value)
		return nil
	}
	t.items[idx] = value
	return nil
}

// Delete only removes the trailing element; interior removals are splices
// driven by the interceptor as a series of shifting writes.
func (t *sliceTarget) Delete(key string) (any, bool) {
	idx, ok := t.index(key)
	if !ok || len(t.items) == 0 || idx != len(t.items)-1 {
		return nil, false
	}
	prev := t.items[idx]
	t.items[idx] = nil
	t.items = t.items[:idx]
	return prev, true
}

func (t *sliceTarget) Keys() []string {
	keys := make([]string, len(t.items))
	for i := range t.items {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

func (t *sliceTarget) Len() int { return len(t.items) }
