package store

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/verdant/internal/client/action"
	"github.com/dmitrijs2005/verdant/internal/logging"
)

// SerializableCheck warns about action payloads that cannot be encoded as
// JSON. Actions whose type is in ignored skip the check; by default those are
// the persistence lifecycle actions.
func SerializableCheck(log logging.Logger, ignored ...string) Middleware {
	if len(ignored) == 0 {
		ignored = action.Lifecycle()
	}
	skip := make(map[string]struct{}, len(ignored))
	for _, t := range ignored {
		skip[t] = struct{}{}
	}

	return func(_ API) func(next DispatchFunc) DispatchFunc {
		return func(next DispatchFunc) DispatchFunc {
			return func(a action.Action) action.Action {
				if _, ok := skip[a.Type]; !ok && a.Payload != nil {
					if _, err := json.Marshal(a.Payload); err != nil {
						log.Warn(context.Background(), "non-serializable action payload", "action", a.Type, "error", err)
					}
				}
				return next(a)
			}
		}
	}
}
