package api

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Scope bounds the lifetime of in-flight calls, typically one page visit.
// Close cancels the scope's context and waits for every task started in it,
// so no result is delivered after the owner is gone.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	group  errgroup.Group
}

// NewScope returns a scope derived from parent.
func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

// Context returns the scope's context. It is cancelled by Close.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Go runs fn on a new goroutine bound to the scope. It returns false, without
// running fn, once the scope is closed.
func (s *Scope) Go(fn func(ctx context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.group.Go(func() error {
		fn(s.ctx)
		return nil
	})
	return true
}

// Close cancels outstanding work and waits for it to finish. It is safe to
// call more than once.
func (s *Scope) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	_ = s.group.Wait()
}
