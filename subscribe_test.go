package track

import (
	"errors"
	"testing"
)

// manualScheduler queues flushes so tests control exactly when deferred
// batches run.
type manualScheduler struct {
	flushes []func()
}

func (m *manualScheduler) Schedule(flush func()) {
	m.flushes = append(m.flushes, flush)
}

func (m *manualScheduler) run() {
	queued := m.flushes
	m.flushes = nil
	for _, flush := range queued {
		flush()
	}
}

func TestSyncSubscriptionDeliversPerWrite(t *testing.T) {
	h := MustWrap(map[string]any{"count": 0})

	var batches [][]Op
	sub, err := Subscribe(h, func(ops []Op) { batches = append(batches, ops) }, InSync())
	if err != nil {
		t.Fatalf("unexpected error from Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	for i := 1; i <= 3; i++ {
		if err := h.Set("count", i); err != nil {
			t.Fatalf("unexpected error from Set: %v", err)
		}
	}
	if len(batches) != 3 {
		t.Fatalf("expected one sync batch per write, got %d", len(batches))
	}
	for i, batch := range batches {
		if len(batch) != 1 || batch[0].Value != i+1 {
			t.Fatalf("batch %d: unexpected contents %v", i, batch)
		}
	}
}

func TestDeferredSubscriptionCoalescesBatch(t *testing.T) {
	h := MustWrap(map[string]any{"count": 0})
	scheduler := &manualScheduler{}

	var batches [][]Op
	sub, err := Subscribe(h, func(ops []Op) { batches = append(batches, ops) }, WithScheduler(scheduler))
	if err != nil {
		t.Fatalf("unexpected error from Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	for i := 1; i <= 3; i++ {
		if err := h.Set("count", i); err != nil {
			t.Fatalf("unexpected error from Set: %v", err)
		}
	}
	if len(scheduler.flushes) != 1 {
		t.Fatalf("expected one scheduled flush for the batch, got %d", len(scheduler.flushes))
	}
	if len(batches) != 0 {
		t.Fatalf("nothing should be delivered before the flush runs")
	}

	scheduler.run()
	if len(batches) != 1 {
		t.Fatalf("expected one coalesced batch, got %d", len(batches))
	}
	if len(batches[0]) != 3 {
		t.Fatalf("expected 3 coalesced operations, got %d", len(batches[0]))
	}

	// A write after the flush starts a new batch and a new schedule.
	if err := h.Set("count", 4); err != nil {
		t.Fatalf("unexpected error from Set: %v", err)
	}
	if len(scheduler.flushes) != 1 {
		t.Fatalf("expected a fresh flush to be scheduled, got %d", len(scheduler.flushes))
	}
	scheduler.run()
	if len(batches) != 2 || len(batches[1]) != 1 {
		t.Fatalf("expected a second single-op batch, got %v", batches)
	}
}

func TestUnsubscribeCancelsPendingBatch(t *testing.T) {
	h := MustWrap(map[string]any{"count": 0})
	scheduler := &manualScheduler{}

	called := false
	sub, err := Subscribe(h, func([]Op) { called = true }, WithScheduler(scheduler))
	if err != nil {
		t.Fatalf("unexpected error from Subscribe: %v", err)
	}
	if !sub.Active() {
		t.Fatalf("expected a fresh subscription to be active")
	}
	if sub.ID() == "" {
		t.Fatalf("expected a non-empty subscription id")
	}

	if err := h.Set("count", 1); err != nil {
		t.Fatalf("unexpected error from Set: %v", err)
	}
	sub.Unsubscribe()
	if sub.Active() {
		t.Fatalf("expected subscription to deactivate")
	}
	scheduler.run()
	if called {
		t.Fatalf("a flush scheduled before Unsubscribe must not fire the callback")
	}

	// Idempotent.
	sub.Unsubscribe()
}

func TestSubscribeArgumentValidation(t *testing.T) {
	h := MustWrap(map[string]any{})
	if _, err := Subscribe(nil, func([]Op) {}); !errors.Is(err, ErrHandleRequired) {
		t.Fatalf("expected ErrHandleRequired, got %v", err)
	}
	if _, err := Subscribe(h, nil); !errors.Is(err, ErrCallbackRequired) {
		t.Fatalf("expected ErrCallbackRequired, got %v", err)
	}
}

func TestExprFilterSelectsOperations(t *testing.T) {
	h := MustWrap(map[string]any{"cart": map[string]any{"items": 0}, "theme": "light"})

	filter, err := NewExprFilter(`root == "cart"`)
	if err != nil {
		t.Fatalf("unexpected error from NewExprFilter: %v", err)
	}
	var got []Op
	sub, err := Subscribe(h, func(ops []Op) { got = append(got, ops...) }, InSync(), WithFilter(filter))
	if err != nil {
		t.Fatalf("unexpected error from Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	cartAny, _ := h.Get("cart")
	if err := cartAny.(*Handle).Set("items", 2); err != nil {
		t.Fatalf("unexpected error from Set: %v", err)
	}
	if err := h.Set("theme", "dark"); err != nil {
		t.Fatalf("unexpected error from Set: %v", err)
	}

	if len(got) != 1 || got[0].Root() != "cart" {
		t.Fatalf("expected only the cart operation, got %v", got)
	}
}

func TestWithFilterExprCompilesAtSubscribe(t *testing.T) {
	h := MustWrap(map[string]any{"count": 0})

	var got []Op
	sub, err := Subscribe(h, func(ops []Op) { got = append(got, ops...) }, InSync(), WithFilterExpr(`kind == "delete"`))
	if err != nil {
		t.Fatalf("unexpected error from Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := h.Set("count", 1); err != nil {
		t.Fatalf("unexpected error from Set: %v", err)
	}
	if err := h.Delete("count"); err != nil {
		t.Fatalf("unexpected error from Delete: %v", err)
	}
	if len(got) != 1 || got[0].Kind != OpDelete {
		t.Fatalf("expected only the delete, got %v", got)
	}

	var filterErr *FilterError
	if _, err := Subscribe(h, func([]Op) {}, WithFilterExpr(`kind ==`)); !errors.As(err, &filterErr) {
		t.Fatalf("expected a FilterError for a broken expression, got %v", err)
	}
}

func TestCELFilterSelectsOperations(t *testing.T) {
	h := MustWrap(map[string]any{"a": 1, "b": 2})

	cache := NewMemoryProgramCache()
	filter, err := NewCELFilter(`key == "a"`, CELWithProgramCache(cache))
	if err != nil {
		t.Fatalf("unexpected error from NewCELFilter: %v", err)
	}
	var got []Op
	sub, err := Subscribe(h, func(ops []Op) { got = append(got, ops...) }, InSync(), WithFilter(filter))
	if err != nil {
		t.Fatalf("unexpected error from Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := h.Set("a", 10); err != nil {
		t.Fatalf("unexpected error from Set: %v", err)
	}
	if err := h.Set("b", 20); err != nil {
		t.Fatalf("unexpected error from Set: %v", err)
	}
	if len(got) != 1 || got[0].Key() != "a" {
		t.Fatalf("expected only writes to a, got %v", got)
	}

	if _, err := NewCELFilter(`key ==`); err == nil {
		t.Fatalf("expected a compile error for a broken CEL expression")
	}
}

func TestFilterErrorsFailOpen(t *testing.T) {
	h := MustWrap(map[string]any{"count": 0})

	failing := FilterFunc(func(Op) (bool, error) {
		return false, errors.New("engine exploded")
	})
	var got []Op
	sub, err := Subscribe(h, func(ops []Op) { got = append(got, ops...) }, InSync(), WithFilter(failing))
	if err != nil {
		t.Fatalf("unexpected error from Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := h.Set("count", 1); err != nil {
		t.Fatalf("unexpected error from Set: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("a failing filter must deliver the operation, got %v", got)
	}
}

func TestEmptyFilterExpressionsAreRejected(t *testing.T) {
	if _, err := NewExprFilter(""); err == nil {
		t.Fatalf("expected an error for an empty expr expression")
	}
	if _, err := NewCELFilter(""); err == nil {
		t.Fatalf("expected an error for an empty CEL expression")
	}
}

func TestJSFilterReportsAvailability(t *testing.T) {
	filter, err := NewJSFilter(`kind === "set"`)
	if jsFilterAvailable() {
		if err != nil {
			t.Fatalf("unexpected error from NewJSFilter: %v", err)
		}
		match, err := filter.Match(Op{Kind: OpSet, Path: []string{"x"}})
		if err != nil || !match {
			t.Fatalf("expected the js filter to match, got %v %v", match, err)
		}
		return
	}
	if !errors.Is(err, ErrJSFilterUnavailable) {
		t.Fatalf("expected ErrJSFilterUnavailable, got %v", err)
	}
}

func TestProgramCacheIsSharedAcrossFilters(t *testing.T) {
	cache := NewMemoryProgramCache()
	if _, err := NewExprFilter(`key == "a"`, ExprWithProgramCache(cache)); err != nil {
		t.Fatalf("unexpected error from NewExprFilter: %v", err)
	}
	// Second construction with the same cache must reuse the compiled program.
	filter, err := NewExprFilter(`key == "a"`, ExprWithProgramCache(cache))
	if err != nil {
		t.Fatalf("unexpected error from NewExprFilter: %v", err)
	}
	match, err := filter.Match(Op{Kind: OpSet, Path: []string{"a"}, Value: 1})
	if err != nil || !match {
		t.Fatalf("expected cached program to match, got %v %v", match, err)
	}
}
