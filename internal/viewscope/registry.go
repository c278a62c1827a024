// Package viewscope tracks the asynchronous work a rendered view has in
// flight so that a result is only applied to the view generation that asked
// for it. A newer generation cancels older work. Closing a scope cancels
// everything it owns; only a generation newer than the close reopens it.
package viewscope

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	// ErrStale is returned by Begin when a newer generation already exists.
	ErrStale = errors.New("view generation is stale")
	// ErrSuperseded is the cancellation cause of work replaced by a newer generation.
	ErrSuperseded = errors.New("view generation superseded")
	// ErrScopeClosed is the cancellation cause of work whose view went away.
	ErrScopeClosed = errors.New("view scope closed")
)

const DefaultTTL = 30 * time.Minute

// GenerationStore shares generation high-water marks between processes.
type GenerationStore interface {
	AdvanceGeneration(ctx context.Context, scope string, gen int64, ttl time.Duration) (bool, error)
}

type scopeState struct {
	latest   int64
	tasks    map[*Task]struct{}
	closed   bool
	// closedAt is the latest generation when the scope was closed.
	closedAt int64
	lastSeen time.Time
}

type Registry struct {
	mu     sync.Mutex
	scopes map[string]*scopeState
	store  GenerationStore
	logger *log.Logger
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Registry)

func WithStore(store GenerationStore) Option {
	return func(r *Registry) { r.store = store }
}

func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRegistry(logger *log.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	r := &Registry{
		scopes: make(map[string]*scopeState),
		logger: logger,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Task is one piece of work started on behalf of a view generation.
type Task struct {
	registry *Registry
	scope    string
	gen      int64
	ctx      context.Context
	cancel   context.CancelCauseFunc
}

// Begin starts work for generation gen of scope. Older in-flight work in the
// same scope is cancelled with ErrSuperseded. Work for a generation older
// than the latest seen is refused with ErrStale. A closed scope refuses
// generations up to the one it was closed at with ErrScopeClosed. An empty
// scope yields an untracked task.
func (r *Registry) Begin(parent context.Context, scope string, gen int64) (*Task, error) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	t := &Task{registry: r, scope: scope, gen: gen, ctx: ctx, cancel: cancel}
	if scope == "" {
		return t, nil
	}

	if r.store != nil {
		ok, err := r.store.AdvanceGeneration(parent, scope, gen, r.ttl)
		if err == nil && !ok {
			cancel(ErrStale)
			return nil, ErrStale
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()

	st, ok := r.scopes[scope]
	if !ok {
		st = &scopeState{latest: gen, tasks: make(map[*Task]struct{})}
		r.scopes[scope] = st
	}

	if st.closed {
		if gen <= st.closedAt {
			cancel(ErrScopeClosed)
			return nil, ErrScopeClosed
		}
		st.closed = false
	}
	if gen < st.latest {
		cancel(ErrStale)
		return nil, ErrStale
	}

	st.lastSeen = r.now()
	st.latest = gen
	for old := range st.tasks {
		old.cancel(ErrSuperseded)
		delete(st.tasks, old)
	}
	st.tasks[t] = struct{}{}
	return t, nil
}

// Close cancels all work of scope and refuses work for generations up to the
// latest one seen. Unknown scopes are ignored.
func (r *Registry) Close(scope string) int {
	if scope == "" {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()

	st, ok := r.scopes[scope]
	if !ok {
		return 0
	}
	n := len(st.tasks)
	for t := range st.tasks {
		t.cancel(ErrScopeClosed)
		delete(st.tasks, t)
	}
	st.closed = true
	st.closedAt = st.latest
	st.lastSeen = r.now()
	if n > 0 {
		r.logger.Printf("[ViewScope] closed scope=%s cancelled=%d", scope, n)
	}
	return n
}

// Active reports the number of in-flight tasks in scope.
func (r *Registry) Active(scope string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.scopes[scope]
	if !ok {
		return 0
	}
	return len(st.tasks)
}

func (r *Registry) pruneLocked() {
	cutoff := r.now().Add(-r.ttl)
	for key, st := range r.scopes {
		if len(st.tasks) == 0 && st.lastSeen.Before(cutoff) {
			delete(r.scopes, key)
		}
	}
}

func (r *Registry) finish(t *Task) {
	if t.scope == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.scopes[t.scope]; ok {
		delete(st.tasks, t)
		st.lastSeen = r.now()
	}
}

func (r *Registry) latest(scope string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.scopes[scope]
	if !ok {
		return 0
	}
	return st.latest
}

func (t *Task) Context() context.Context {
	return t.ctx
}

func (t *Task) Generation() int64 {
	return t.gen
}

// Current reports whether the task's result may still be applied.
func (t *Task) Current() bool {
	if t.ctx.Err() != nil {
		return false
	}
	if t.scope == "" {
		return true
	}
	return t.registry.latest(t.scope) == t.gen
}

// Err returns the cancellation cause, or nil while the task is current.
func (t *Task) Err() error {
	if t.ctx.Err() == nil {
		return nil
	}
	return context.Cause(t.ctx)
}

// Done releases the task. It is safe to call more than once.
func (t *Task) Done() {
	t.registry.finish(t)
	t.cancel(context.Canceled)
}
