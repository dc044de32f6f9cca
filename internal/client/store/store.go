// Package store is the root state container. It composes the "api" cache
// slice and the "auth" session slice into one RootState, applies actions
// through a middleware chain and notifies subscribers synchronously.
package store

import (
	"sync"

	"github.com/dmitrijs2005/verdant/internal/client/action"
	"github.com/dmitrijs2005/verdant/internal/client/api"
	"github.com/dmitrijs2005/verdant/internal/client/session"
)

// RootState is one immutable snapshot of the whole tree.
type RootState struct {
	API  api.State
	Auth session.State
}

// Reduce composes the slice reducers.
func Reduce(s RootState, a action.Action) RootState {
	return RootState{
		API:  api.Reduce(s.API, a),
		Auth: session.Reduce(s.Auth, a),
	}
}

// DispatchFunc is one link of the dispatch chain.
type DispatchFunc func(a action.Action) action.Action

// API is what middleware sees of the store.
type API interface {
	GetState() RootState
	Dispatch(a action.Action) action.Action
}

// Middleware wraps the next dispatch function.
type Middleware func(s API) func(next DispatchFunc) DispatchFunc

// Listener is called after every committed action.
type Listener func(s RootState)

// Store holds the current RootState.
type Store struct {
	// dispatchMu serializes whole dispatches, listeners included; mu guards
	// the fields below and is never held while user code runs.
	dispatchMu sync.Mutex

	mu        sync.Mutex
	state     RootState
	listeners map[int]Listener
	order     []int
	nextID    int

	dispatch DispatchFunc
}

// Option customizes a Store.
type Option func(*Store, *[]Middleware)

// WithMiddleware appends middleware; the first one added is outermost.
func WithMiddleware(m ...Middleware) Option {
	return func(_ *Store, chain *[]Middleware) {
		*chain = append(*chain, m...)
	}
}

// WithInitialState seeds the tree before any action is dispatched.
func WithInitialState(s RootState) Option {
	return func(st *Store, _ *[]Middleware) {
		st.state = s
	}
}

// New builds a store.
func New(opts ...Option) *Store {
	s := &Store{
		listeners: make(map[int]Listener),
	}
	var chain []Middleware
	for _, o := range opts {
		o(s, &chain)
	}

	d := DispatchFunc(s.commit)
	for i := len(chain) - 1; i >= 0; i-- {
		d = chain[i](s)(d)
	}
	s.dispatch = d
	return s
}

// GetState returns the current snapshot.
func (s *Store) GetState() RootState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch runs a through the middleware chain and the reducers. Listeners
// have been called by the time it returns. Dispatches are serialized, so a
// listener or middleware must not dispatch synchronously.
func (s *Store) Dispatch(a action.Action) action.Action {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	return s.dispatch(a)
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *Store) commit(a action.Action) action.Action {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	snapshot := s.state
	listeners := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
	return a
}
