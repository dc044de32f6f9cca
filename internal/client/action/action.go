// Package action defines the value that flows through the client state
// container: every slice reducer, middleware and subscriber sees the same
// Action type.
package action

// Action describes a single state transition request.
// Type is namespaced by the owning slice, e.g. "auth/setCredentials".
type Action struct {
	Type    string
	Payload any
	Meta    map[string]any
}

// Dispatcher accepts actions. The root store satisfies it.
type Dispatcher interface {
	Dispatch(a Action) Action
}

// DispatcherFunc adapts a plain function to Dispatcher.
type DispatcherFunc func(a Action) Action

// Dispatch calls f(a).
func (f DispatcherFunc) Dispatch(a Action) Action {
	return f(a)
}

// Reserved persistence lifecycle actions. They are emitted by the persistor
// and excluded from the serializability check.
const (
	Flush     = "persist/FLUSH"
	Rehydrate = "persist/REHYDRATE"
	Pause     = "persist/PAUSE"
	Persist   = "persist/PERSIST"
	Purge     = "persist/PURGE"
	Register  = "persist/REGISTER"
)

var lifecycle = map[string]struct{}{
	Flush:     {},
	Rehydrate: {},
	Pause:     {},
	Persist:   {},
	Purge:     {},
	Register:  {},
}

// IsLifecycle reports whether t is one of the reserved persistence actions.
func IsLifecycle(t string) bool {
	_, ok := lifecycle[t]
	return ok
}

// Lifecycle returns the reserved persistence action types.
func Lifecycle() []string {
	return []string{Flush, Rehydrate, Pause, Persist, Purge, Register}
}

// RehydratePayload carries the restored state of a persisted slice. Each
// field value is the JSON encoding of that field, as it was stored.
// Fields is nil when nothing was stored; Err is set when stored data existed
// but could not be decoded.
type RehydratePayload struct {
	Key    string
	Fields map[string]string
	Err    error
}
