package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation error")
)

// ErrorKind classifies how a request failed.
type ErrorKind string

const (
	// KindHTTP means the server answered with a non-2xx status.
	KindHTTP ErrorKind = "HTTP_ERROR"
	// KindFetch means no response was received.
	KindFetch ErrorKind = "FETCH_ERROR"
	// KindTimeout means the request deadline passed.
	KindTimeout ErrorKind = "TIMEOUT_ERROR"
	// KindParsing means a 2xx body could not be decoded.
	KindParsing ErrorKind = "PARSING_ERROR"
)

// Error is a failed API call. Status and Message are copied verbatim from
// the response body when the server sent one.
type Error struct {
	Kind       ErrorKind
	Endpoint   string
	HTTPStatus int
	Status     string
	Message    string
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("%s: %d %s", e.Endpoint, e.HTTPStatus, e.Message)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Endpoint, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Endpoint, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets callers match an *Error against the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == KindFetch || e.Kind == KindTimeout
	case ErrUnauthorized:
		return e.Kind == KindHTTP && (e.HTTPStatus == http.StatusUnauthorized || e.HTTPStatus == http.StatusForbidden)
	}
	return false
}

// Message extracts a user-facing message from err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		switch apiErr.Kind {
		case KindFetch:
			return "Unable to reach the server"
		case KindTimeout:
			return "The server took too long to respond"
		case KindParsing:
			return "Unexpected response from the server"
		}
	}
	return err.Error()
}
