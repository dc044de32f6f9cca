// Package session holds the "auth" slice of the client state: the single
// source of truth for whether a user is signed in.
//
// The slice is a plain value (State) transformed by a pure reducer (Reduce)
// over two actions, SetCredentials and Logout, plus the persistence
// REHYDRATE action. Durable storage side effects (writing on change,
// invalidating keys on logout) belong to the persist package, never to the
// reducer.
package session
