package track

import (
	"sync"

	"github.com/google/uuid"
)

// Scheduler defers a pending batch flush to the end of the current logical
// turn. The default implementation hands the flush to a new goroutine;
// consumers that drive their own loop can supply a queue-backed scheduler
// instead.
type Scheduler interface {
	Schedule(flush func())
}

// SchedulerFunc adapts a plain function to Scheduler.
type SchedulerFunc func(flush func())

// Schedule dispatches to the underlying function.
func (f SchedulerFunc) Schedule(flush func()) {
	if f != nil {
		f(flush)
	}
}

var defaultScheduler Scheduler = SchedulerFunc(func(flush func()) {
	go flush()
})

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	sync       bool
	scheduler  Scheduler
	filter     Filter
	filterExpr string
}

// InSync delivers every batch synchronously within the call stack of the
// triggering write instead of deferring through the scheduler.
func InSync() SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.sync = true
	}
}

// WithScheduler overrides the scheduler used for deferred delivery.
func WithScheduler(scheduler Scheduler) SubscribeOption {
	return func(cfg *subscribeConfig) {
		if scheduler != nil {
			cfg.scheduler = scheduler
		}
	}
}

// WithFilter attaches an operation filter; operations it rejects are never
// buffered. Filter errors fail open: the operation is delivered.
func WithFilter(filter Filter) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.filter = filter
	}
}

// WithFilterExpr compiles expression with the default expr engine and
// attaches it as the subscription filter.
func WithFilterExpr(expression string) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.filterExpr = expression
	}
}

func applySubscribeOptions(opts []SubscribeOption) subscribeConfig {
	cfg := subscribeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Subscription buffers operations emitted by a handle's listener chain and
// delivers them in batches. The buffer is mutex-guarded because deferred
// flushes run outside the writer's call stack.
type Subscription struct {
	id        string
	sync      bool
	scheduler Scheduler
	filter    Filter
	callback  func(ops []Op)
	remove    func()

	mu      sync.Mutex
	ops     []Op
	pending bool
	active  bool
}

// Subscribe registers callback for batched operation delivery from h. In the
// default deferred mode the first operation of a batch schedules one flush;
// operations arriving before the flush runs coalesce into the same callback
// invocation.
func Subscribe(h *Handle, callback func(ops []Op), opts ...SubscribeOption) (*Subscription, error) {
	if h == nil {
		return nil, ErrHandleRequired
	}
	if callback == nil {
		return nil, ErrCallbackRequired
	}
	cfg := applySubscribeOptions(opts)
	filter := cfg.filter
	if filter == nil && cfg.filterExpr != "" {
		compiled, err := NewExprFilter(cfg.filterExpr)
		if err != nil {
			return nil, err
		}
		filter = compiled
	}
	scheduler := cfg.scheduler
	if scheduler == nil {
		scheduler = defaultScheduler
	}
	s := &Subscription{
		id:        uuid.NewString(),
		sync:      cfg.sync,
		scheduler: scheduler,
		filter:    filter,
		callback:  callback,
		active:    true,
	}
	s.remove = h.addListener(s.receive)
	return s, nil
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() string { return s.id }

// Active reports whether the subscription still delivers batches.
func (s *Subscription) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Unsubscribe detaches the subscription and discards any batch still pending;
// a flush scheduled before the call never fires the callback.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.ops = nil
	s.mu.Unlock()
	s.remove()
}

func (s *Subscription) receive(op Op, _ uint64) {
	if s.filter != nil {
		if match, err := s.filter.Match(op); err == nil && !match {
			return
		}
	}
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.ops = append(s.ops, op)
	schedule := false
	if !s.sync && !s.pending {
		s.pending = true
		schedule = true
	}
	s.mu.Unlock()

	if s.sync {
		s.flush()
		return
	}
	if schedule {
		s.scheduler.Schedule(s.flush)
	}
}

func (s *Subscription) flush() {
	s.mu.Lock()
	s.pending = false
	if !s.active || len(s.ops) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.ops
	s.ops = nil
	s.mu.Unlock()
	s.callback(batch)
}
