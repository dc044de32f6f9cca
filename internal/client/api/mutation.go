package api

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/verdant/internal/client/action"
	"github.com/google/uuid"
)

// Task is the handle of one triggered call.
type Task[T any] struct {
	RequestID string
	done      chan struct{}
	result    T
	err       error
}

func newTask[T any](id string) *Task[T] {
	return &Task[T]{RequestID: id, done: make(chan struct{})}
}

func (t *Task[T]) finish(v T, err error) {
	t.result, t.err = v, err
	close(t.done)
}

// Done is closed when the call has finished.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the call has finished or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Snapshot is the observable state of a Mutation.
type Snapshot[T any] struct {
	Status    Status
	RequestID string
	Data      T
	Err       error
}

func (s Snapshot[T]) IsLoading() bool { return s.Status == StatusPending }
func (s Snapshot[T]) IsSuccess() bool { return s.Status == StatusFulfilled }
func (s Snapshot[T]) IsError() bool   { return s.Status == StatusRejected }

// Mutation tracks calls to one endpoint and mirrors their lifecycle into the
// store's api slice. Only the most recent call updates the snapshot.
type Mutation[Req, Resp any] struct {
	endpoint string
	call     func(ctx context.Context, req Req) (Resp, error)
	dispatch action.Dispatcher
	now      func() time.Time
	newID    func() string

	mu     sync.Mutex
	snap   Snapshot[Resp]
	latest string
	key    string
}

// NewMutation binds an endpoint call to a dispatcher.
func NewMutation[Req, Resp any](endpoint string, d action.Dispatcher, call func(ctx context.Context, req Req) (Resp, error)) *Mutation[Req, Resp] {
	return &Mutation[Req, Resp]{
		endpoint: endpoint,
		call:     call,
		dispatch: d,
		now:      time.Now,
		newID:    uuid.NewString,
		snap:     Snapshot[Resp]{Status: StatusUninitialized},
	}
}

// Endpoint returns the tracked endpoint name.
func (m *Mutation[Req, Resp]) Endpoint() string {
	return m.endpoint
}

// Status returns the current snapshot.
func (m *Mutation[Req, Resp]) Status() Snapshot[Resp] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Reset forgets the last call. A call still in flight finishes without
// updating the snapshot or the cache.
func (m *Mutation[Req, Resp]) Reset() {
	m.mu.Lock()
	key := m.key
	m.snap = Snapshot[Resp]{Status: StatusUninitialized}
	m.latest, m.key = "", ""
	m.mu.Unlock()

	if key != "" {
		m.dispatch.Dispatch(action.Action{Type: ActionReset, Payload: MutationMeta{Key: key, Endpoint: m.endpoint}})
	}
}

// Trigger starts a call inside scope and returns immediately.
func (m *Mutation[Req, Resp]) Trigger(scope *Scope, req Req) *Task[Resp] {
	id := m.newID()
	key := CacheKey(m.endpoint, req)
	task := newTask[Resp](id)

	m.mu.Lock()
	m.latest, m.key = id, key
	m.snap = Snapshot[Resp]{Status: StatusPending, RequestID: id}
	m.mu.Unlock()

	m.dispatch.Dispatch(action.Action{Type: ActionPending, Payload: MutationMeta{
		Key: key, Endpoint: m.endpoint, RequestID: id, At: m.now(),
	}})

	started := scope.Go(func(ctx context.Context) {
		resp, err := m.call(ctx, req)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		m.settle(key, id, resp, err)
		task.finish(resp, err)
	})
	if !started {
		var zero Resp
		m.settle(key, id, zero, context.Canceled)
		task.finish(zero, context.Canceled)
	}
	return task
}

func (m *Mutation[Req, Resp]) settle(key, id string, resp Resp, err error) {
	m.mu.Lock()
	current := m.latest == id
	if current {
		if err != nil {
			m.snap = Snapshot[Resp]{Status: StatusRejected, RequestID: id, Err: err}
		} else {
			m.snap = Snapshot[Resp]{Status: StatusFulfilled, RequestID: id, Data: resp}
		}
	}
	m.mu.Unlock()

	meta := MutationMeta{Key: key, Endpoint: m.endpoint, RequestID: id, At: m.now()}
	if err != nil {
		meta.Error = Message(err)
		meta.Aborted = errors.Is(err, context.Canceled)
		m.dispatch.Dispatch(action.Action{Type: ActionRejected, Payload: meta})
		return
	}
	if b, mErr := json.Marshal(resp); mErr == nil {
		meta.Data = b
	}
	m.dispatch.Dispatch(action.Action{Type: ActionFulfilled, Payload: meta})
}
