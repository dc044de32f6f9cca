// Package client bootstraps the client's local persistence.
//
// InitDatabase opens the SQLite file that plays the role of browser storage,
// applies the embedded goose migrations and returns the repositories built
// on top of it. InitMemory provides the same shape without a file, for runs
// that have no storage path configured and for tests.
package client
