package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/verdant/internal/client/action"
)

// Slice is the state tree key of the API cache.
const Slice = "api"

const (
	ActionPending   = "api/executeMutation/pending"
	ActionFulfilled = "api/executeMutation/fulfilled"
	ActionRejected  = "api/executeMutation/rejected"
	ActionReset     = "api/resetMutation"
)

// Status is the lifecycle of one tracked call.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusPending       Status = "pending"
	StatusFulfilled     Status = "fulfilled"
	StatusRejected      Status = "rejected"
)

// CacheEntry records the latest call for one endpoint+arguments key.
type CacheEntry struct {
	Endpoint    string
	RequestID   string
	Status      Status
	Data        json.RawMessage
	Error       string
	Aborted     bool
	StartedAt   time.Time
	FulfilledAt time.Time
}

// State is the API cache slice. Treat it as immutable: Reduce returns a new
// map whenever an entry changes.
type State struct {
	Mutations map[string]CacheEntry
}

// Get returns the entry stored under key.
func (s State) Get(key string) (CacheEntry, bool) {
	e, ok := s.Mutations[key]
	return e, ok
}

// MutationMeta is the payload of every api/* action.
type MutationMeta struct {
	Key       string
	Endpoint  string
	RequestID string
	At        time.Time
	Data      json.RawMessage
	Error     string
	Aborted   bool
}

// CacheKey derives the cache key for an endpoint and its arguments. The
// arguments are hashed so credentials never appear in keys.
func CacheKey(endpoint string, args any) string {
	b, err := json.Marshal(args)
	if err != nil || args == nil {
		return endpoint + "(undefined)"
	}
	sum := sha256.Sum256(b)
	return endpoint + "(" + hex.EncodeToString(sum[:])[:16] + ")"
}

// Reduce applies api/* actions to s.
func Reduce(s State, a action.Action) State {
	m, ok := a.Payload.(MutationMeta)
	if !ok {
		return s
	}

	switch a.Type {
	case ActionPending:
		return s.with(m.Key, CacheEntry{
			Endpoint:  m.Endpoint,
			RequestID: m.RequestID,
			Status:    StatusPending,
			StartedAt: m.At,
		})
	case ActionFulfilled, ActionRejected:
		cur, ok := s.Mutations[m.Key]
		// Results for a reset or superseded request are dropped.
		if !ok || cur.RequestID != m.RequestID {
			return s
		}
		e := cur
		e.Endpoint = m.Endpoint
		e.RequestID = m.RequestID
		e.FulfilledAt = m.At
		if a.Type == ActionFulfilled {
			e.Status = StatusFulfilled
			e.Data = m.Data
			e.Error = ""
			e.Aborted = false
		} else {
			e.Status = StatusRejected
			e.Error = m.Error
			e.Aborted = m.Aborted
		}
		return s.with(m.Key, e)
	case ActionReset:
		if _, ok := s.Mutations[m.Key]; !ok {
			return s
		}
		next := make(map[string]CacheEntry, len(s.Mutations))
		for k, v := range s.Mutations {
			if k != m.Key {
				next[k] = v
			}
		}
		return State{Mutations: next}
	}
	return s
}

func (s State) with(key string, e CacheEntry) State {
	next := make(map[string]CacheEntry, len(s.Mutations)+1)
	for k, v := range s.Mutations {
		next[k] = v
	}
	next[key] = e
	return State{Mutations: next}
}
