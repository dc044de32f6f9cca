// Package api is the client's HTTP/JSON layer for the authentication API.
//
// # Overview
//
// The package provides:
//  1. Typed request and response records, one pair per endpoint, with
//     client-side form validation (see the Validate methods).
//  2. A transport-agnostic contract (Client) and its HTTP implementation
//     (HTTPClient). Requests are joined onto a configured base URL, carry a
//     request id and the session cookies, and never retry.
//  3. Mutation, a per-endpoint status tracker that reports
//     pending/fulfilled/rejected into the state container through the
//     "api" cache slice (State, Reduce).
//  4. Scope, a lifetime for in-flight calls: closing it cancels every task
//     started within it.
//
// # Error Handling
//
// Failures are reported as *Error with a Kind (HTTP, fetch, timeout,
// parsing). Callers can match broad classes with errors.Is: ErrUnavailable,
// ErrUnauthorized. Client-side validation failures match ErrValidation.
package api
