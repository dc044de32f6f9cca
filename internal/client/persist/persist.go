package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/verdant/internal/client/action"
	"github.com/dmitrijs2005/verdant/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/verdant/internal/client/session"
	"github.com/dmitrijs2005/verdant/internal/client/store"
	"github.com/dmitrijs2005/verdant/internal/logging"
)

const (
	// DefaultKey is the persist key of the session slice.
	DefaultKey = "root"
	// KeyPrefix is prepended to the persist key to form the storage key.
	KeyPrefix = "persist:"
	// Version is written to the "_persist" entry.
	Version = -1

	metaField = "_persist"
)

// ErrClosed is returned by operations on a closed Persistor.
var ErrClosed = errors.New("persistor closed")

type meta struct {
	Version    int  `json:"version"`
	Rehydrated bool `json:"rehydrated"`
}

type jobKind int

const (
	jobWrite jobKind = iota
	jobPurge
	jobFlush
)

// job is one unit of work for the background writer.
type job struct {
	kind   jobKind
	fields map[string]string
	ack    chan struct{}
}

// Persistor keeps the session slice in durable storage.
type Persistor struct {
	repo     metadata.Repository
	key      string
	log      logging.Logger
	purgeAll bool

	ready     chan struct{}
	readyOnce sync.Once

	mu         sync.Mutex
	dispatcher action.Dispatcher
	paused     bool
	closed     bool
	pending    []job
	err        error

	wake chan struct{}
	done chan struct{}
}

// Option configures a Persistor.
type Option func(*Persistor)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(p *Persistor) {
		if key != "" {
			p.key = key
		}
	}
}

// WithLogger sets the logger for storage errors and lifecycle events.
func WithLogger(l logging.Logger) Option {
	return func(p *Persistor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithPurgeAll makes logout clear the whole store instead of the session keys.
func WithPurgeAll(v bool) Option {
	return func(p *Persistor) {
		p.purgeAll = v
	}
}

// New starts a Persistor over repo. Close must be called to stop its writer.
func New(repo metadata.Repository, opts ...Option) *Persistor {
	p := &Persistor{
		repo:  repo,
		key:   DefaultKey,
		log:   logging.Discard(),
		ready: make(chan struct{}),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.With("component", "persist", "key", p.StorageKey())
	go p.run()
	return p
}

// StorageKey is the storage key of the persisted record.
func (p *Persistor) StorageKey() string {
	return KeyPrefix + p.key
}

// OwnedKeys lists the storage keys the session slice owns.
func (p *Persistor) OwnedKeys() []string {
	return []string{session.UserInfoKey, p.StorageKey()}
}

// InitialState reads the legacy "userInfo" key, which seeds the session
// before rehydration. Read errors are logged and yield the empty state.
func (p *Persistor) InitialState(ctx context.Context) session.State {
	raw, err := p.repo.Get(ctx, session.UserInfoKey)
	if err != nil {
		p.log.Warn(ctx, "failed to read initial session", "error", err)
		return session.State{}
	}
	return session.State{UserInfo: string(raw)}
}

// Rehydrate restores the persisted session into d and opens the gate. It is
// meant to be called once; later calls dispatch again but the gate stays open.
// Corrupt or unreadable data is logged and treated as absent.
func (p *Persistor) Rehydrate(ctx context.Context, d action.Dispatcher) {
	p.mu.Lock()
	p.dispatcher = d
	p.mu.Unlock()

	d.Dispatch(action.Action{Type: action.Register, Payload: p.key})
	d.Dispatch(action.Action{Type: action.Persist, Payload: p.key})

	payload := action.RehydratePayload{Key: p.key}
	raw, err := p.repo.Get(ctx, p.StorageKey())
	switch {
	case err != nil:
		p.log.Warn(ctx, "failed to read persisted state", "error", err)
		payload.Err = err
	case raw != nil:
		fields, err := decode(raw)
		if err != nil {
			p.log.Warn(ctx, "discarding corrupt persisted state", "error", err)
			payload.Err = err
		} else {
			payload.Fields = fields
		}
	}

	d.Dispatch(action.Action{Type: action.Rehydrate, Payload: payload})
	p.readyOnce.Do(func() { close(p.ready) })
	p.log.Debug(ctx, "rehydrated", "found", payload.Fields != nil)
}

// Bootstrapped reports whether Rehydrate has completed.
func (p *Persistor) Bootstrapped() bool {
	select {
	case <-p.ready:
		return true
	default:
		return false
	}
}

// Gate runs fn once rehydration has completed, or returns ctx.Err().
func (p *Persistor) Gate(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case <-p.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	return fn(ctx)
}

// Middleware persists the session slice after every action that changes it.
// A logout enqueues a purge instead. Lifecycle actions, paused periods and
// actions seen before rehydration write nothing.
func (p *Persistor) Middleware() store.Middleware {
	return func(s store.API) func(next store.DispatchFunc) store.DispatchFunc {
		return func(next store.DispatchFunc) store.DispatchFunc {
			return func(a action.Action) action.Action {
				before := s.GetState().Auth
				res := next(a)
				if action.IsLifecycle(a.Type) {
					return res
				}
				if a.Type == session.ActionLogout {
					p.enqueue(job{kind: jobPurge})
					return res
				}
				after := s.GetState().Auth
				if after != before && p.Bootstrapped() && !p.isPaused() {
					p.enqueue(job{kind: jobWrite, fields: session.Fields(after)})
				}
				return res
			}
		}
	}
}

// Pause stops writes until Persist is called.
func (p *Persistor) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
	p.notify(action.Pause)
}

// Persist resumes writes after Pause.
func (p *Persistor) Persist() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	p.notify(action.Persist)
}

// Flush waits for every queued write to be committed. It returns the first
// write error recorded since the previous Flush.
func (p *Persistor) Flush(ctx context.Context) error {
	p.notify(action.Flush)
	ack := make(chan struct{})
	if !p.enqueue(job{kind: jobFlush, ack: ack}) {
		return p.takeErr()
	}
	select {
	case <-ack:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.takeErr()
}

// Purge removes the session keys (or everything, WithPurgeAll) after the
// writes queued so far, and waits for it.
func (p *Persistor) Purge(ctx context.Context) error {
	p.notify(action.Purge)
	if !p.enqueue(job{kind: jobPurge}) {
		return ErrClosed
	}
	return p.Flush(ctx)
}

// Close flushes and stops the writer. Later writes are dropped.
func (p *Persistor) Close(ctx context.Context) error {
	err := p.Flush(ctx)

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.signal()

	select {
	case <-p.done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

func (p *Persistor) isPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// notify dispatches a lifecycle action once a dispatcher is known. It must
// not be called from inside a dispatch.
func (p *Persistor) notify(t string) {
	p.mu.Lock()
	d := p.dispatcher
	p.mu.Unlock()
	if d != nil {
		d.Dispatch(action.Action{Type: t, Payload: p.key})
	}
}

func (p *Persistor) enqueue(j job) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.pending = append(p.pending, j)
	p.mu.Unlock()
	p.signal()
	return true
}

func (p *Persistor) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Persistor) takeErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.err
	p.err = nil
	return err
}

func (p *Persistor) recordErr(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
}

func (p *Persistor) run() {
	defer close(p.done)
	for {
		p.mu.Lock()
		jobs := p.pending
		p.pending = nil
		closed := p.closed
		p.mu.Unlock()

		for _, j := range jobs {
			p.exec(j)
		}
		if len(jobs) > 0 {
			continue
		}
		if closed {
			return
		}
		<-p.wake
	}
}

func (p *Persistor) exec(j job) {
	ctx := context.Background()
	switch j.kind {
	case jobFlush:
		close(j.ack)
	case jobWrite:
		raw, err := encode(j.fields)
		if err == nil {
			err = p.repo.Set(ctx, p.StorageKey(), raw)
		}
		if err != nil {
			p.log.Error(ctx, "failed to persist session", "error", err)
			p.recordErr(fmt.Errorf("failed to persist session: %w", err))
		}
	case jobPurge:
		var err error
		if p.purgeAll {
			err = p.repo.Clear(ctx)
		} else {
			err = p.repo.Delete(ctx, p.OwnedKeys()...)
		}
		if err != nil {
			p.log.Error(ctx, "failed to purge session", "error", err)
			p.recordErr(fmt.Errorf("failed to purge session: %w", err))
		}
	}
}

func encode(fields map[string]string) ([]byte, error) {
	m, err := json.Marshal(meta{Version: Version, Rehydrated: true})
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[metaField] = string(m)
	return json.Marshal(out)
}

func decode(raw []byte) (map[string]string, error) {
	var stored map[string]string
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode persisted state: %w", err)
	}
	if stored == nil {
		return nil, errors.New("failed to decode persisted state: null record")
	}
	delete(stored, metaField)
	return stored, nil
}
