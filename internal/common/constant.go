// Package common holds small constants and helpers shared by the client
// packages.
package common

// RequestIDHeaderName is the HTTP header that carries the per-request id on
// every outbound API call.
const RequestIDHeaderName = "X-Request-ID"
