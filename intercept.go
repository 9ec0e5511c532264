package track

import "strconv"

// defaultNewInterceptor builds the stock interceptor implementing the write,
// delete and no-op contracts of the interception layer.
func defaultNewInterceptor(hooks InterceptorHooks) Interceptor {
	return &defaultInterceptor{hooks: hooks}
}

type defaultInterceptor struct {
	hooks InterceptorHooks
}

func (ic *defaultInterceptor) Get(key string) (any, bool) {
	return ic.hooks.Target.Get(key)
}

func (ic *defaultInterceptor) Set(key string, value any) error {
	t := ic.hooks.Target
	prev, hasPrev := t.Get(key)
	if ic.hooks.Initializing() {
		hasPrev = false
	}
	if hasPrev {
		if safeEqual(prev, value) {
			return nil
		}
		// Writing the raw target whose handle is already stored is a no-op.
		if existing := lookupHandle(value); existing != nil && prev == any(existing) {
			return nil
		}
	}

	next := value
	if _, ok := value.(*Handle); !ok && canWrap(value) {
		wrapped, err := Wrap(value)
		if err != nil {
			return err
		}
		next = wrapped
	}
	if err := t.Set(key, next); err != nil {
		return err
	}
	ic.hooks.RemoveLink(key)
	if child, ok := next.(*Handle); ok {
		ic.hooks.AddLink(key, child)
	}
	ic.hooks.Notify(Op{Kind: OpSet, Path: []string{key}, Value: value, Prev: prev})
	return nil
}

func (ic *defaultInterceptor) Delete(key string) error {
	t := ic.hooks.Target
	prev, ok := t.Get(key)
	if !ok {
		return nil
	}
	if t.Kind() == TargetSlice {
		return ic.spliceDelete(key, prev)
	}
	ic.hooks.RemoveLink(key)
	t.Delete(key)
	ic.hooks.Notify(Op{Kind: OpDelete, Path: []string{key}, Prev: prev})
	return nil
}

// spliceDelete removes a sequence element: trailing elements shift left
// through the interception layer (emitting their own Set operations), then
// the now-duplicated last slot is truncated.
func (ic *defaultInterceptor) spliceDelete(key string, prev any) error {
	t := ic.hooks.Target
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 || idx >= t.Len() {
		return nil
	}
	last := t.Len() - 1
	for i := idx; i < last; i++ {
		moved, _ := t.Get(strconv.Itoa(i + 1))
		if err := ic.Set(strconv.Itoa(i), moved); err != nil {
			return err
		}
	}
	lastKey := strconv.Itoa(last)
	ic.hooks.RemoveLink(lastKey)
	t.Delete(lastKey)
	ic.hooks.Notify(Op{Kind: OpDelete, Path: []string{key}, Prev: prev})
	return nil
}
