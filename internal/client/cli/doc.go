// Package cli provides the interactive verdant terminal client.
//
// NewApp wires configuration, local storage, the state store with its
// persistence middleware, the API client and the router. Run restores the
// saved session, opens the configured start page and then serves a small
// REPL whose main command is "open <path>".
//
// Each path resolves to a page: a prompt-driven screen that calls the API
// through services.AuthService. A page runs inside its own api.Scope, so
// leaving it aborts any request it still has in flight. A page may hand over
// to another path when it finishes (signin continues to /dashboard, signup
// to /verify). Errors are printed as notifications and never end the program.
package cli
