package session

import (
	"encoding/json"
	"strings"

	"github.com/dmitrijs2005/verdant/internal/client/action"
)

// Slice is the state tree key of the session slice.
const Slice = "auth"

// UserInfoKey is the field name of the persisted identifier, and also the
// legacy storage key read as initial state.
const UserInfoKey = "userInfo"

const (
	ActionSetCredentials = "auth/setCredentials"
	ActionLogout         = "auth/logout"
)

// State is the session slice. An empty UserInfo means unauthenticated.
type State struct {
	UserInfo string `json:"userInfo"`
}

// SetCredentials returns the action that replaces UserInfo with payload.
func SetCredentials(payload string) action.Action {
	return action.Action{Type: ActionSetCredentials, Payload: payload}
}

// Logout returns the action that clears the session.
func Logout() action.Action {
	return action.Action{Type: ActionLogout}
}

// Reduce applies a to s and returns the next state. It never fails; unknown
// actions and malformed payloads leave s unchanged.
func Reduce(s State, a action.Action) State {
	switch a.Type {
	case ActionSetCredentials:
		if v, ok := a.Payload.(string); ok {
			s.UserInfo = v
		}
	case ActionLogout:
		s.UserInfo = ""
	case action.Rehydrate:
		p, ok := a.Payload.(action.RehydratePayload)
		if !ok || p.Err != nil || p.Fields == nil {
			return s
		}
		raw, ok := p.Fields[UserInfoKey]
		if !ok {
			return s
		}
		var v string
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return s
		}
		s.UserInfo = v
	}
	return s
}

// IsAuthenticated reports whether s holds a signed-in user.
func IsAuthenticated(s State) bool {
	return s.UserInfo != ""
}

// Fields returns the persisted representation of s: every field JSON-encoded.
func Fields(s State) map[string]string {
	b, _ := json.Marshal(s.UserInfo)
	return map[string]string{UserInfoKey: string(b)}
}

// User is the identity the API returns on signin and e-mail verification.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// EncodeUser serializes u into the opaque UserInfo form.
func EncodeUser(u User) string {
	b, err := json.Marshal(u)
	if err != nil {
		return u.Email
	}
	return string(b)
}

// DecodeUser parses a UserInfo value. A value that is not a JSON object is
// taken to be a bare e-mail address. ok is false for an empty value.
func DecodeUser(userInfo string) (u User, ok bool) {
	v := strings.TrimSpace(userInfo)
	if v == "" {
		return User{}, false
	}
	if strings.HasPrefix(v, "{") {
		if err := json.Unmarshal([]byte(v), &u); err == nil {
			return u, true
		}
	}
	return User{Email: v, Username: strings.Split(v, "@")[0]}, true
}
