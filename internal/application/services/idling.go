package services

import (
	"sync"

	"go.uber.org/atomic"
)

// IdlingResource counts outstanding operations so an external observer can
// wait until the system is idle. The count never goes negative.
type IdlingResource struct {
	name  string
	count *atomic.Int64

	mu        sync.Mutex
	callbacks []func()
}

// NewIdlingResource creates an idle resource
func NewIdlingResource(name string) *IdlingResource {
	return &IdlingResource{name: name, count: atomic.NewInt64(0)}
}

// Name returns the resource name
func (r *IdlingResource) Name() string {
	return r.name
}

// Increment marks one more operation as outstanding.
func (r *IdlingResource) Increment() {
	r.count.Inc()
}

// Decrement marks one operation as finished. Calls without a matching
// Increment are ignored. Idle callbacks run when the count reaches zero.
func (r *IdlingResource) Decrement() {
	for {
		current := r.count.Load()
		if current <= 0 {
			return
		}
		if r.count.CompareAndSwap(current, current-1) {
			if current == 1 {
				r.notifyIdle()
			}
			return
		}
	}
}

// Count returns the number of outstanding operations.
func (r *IdlingResource) Count() int64 {
	return r.count.Load()
}

// IsIdle reports whether no operation is outstanding.
func (r *IdlingResource) IsIdle() bool {
	return r.count.Load() == 0
}

// OnIdle registers fn to be called every time the resource becomes idle.
func (r *IdlingResource) OnIdle(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

func (r *IdlingResource) notifyIdle() {
	r.mu.Lock()
	callbacks := make([]func(), len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
