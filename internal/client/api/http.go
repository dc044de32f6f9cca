package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/verdant/internal/common"
	"github.com/dmitrijs2005/verdant/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

const maxErrorBody = 64 << 10

// HTTPClient talks to the API over HTTP/JSON. Cookies set by the server are
// kept in a jar and sent back on every request.
type HTTPClient struct {
	baseURL   *url.URL
	http      *http.Client
	timeout   *time.Duration
	log       logging.Logger
	requestID func() string
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client. A nil Jar on the
// supplied client is filled with a fresh cookie jar.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.http = c
		}
	}
}

// WithTimeout sets the per-request timeout. Zero disables it. It applies to
// the client given by WithHTTPClient regardless of option order.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) {
		h.timeout = &d
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logging.Logger) Option {
	return func(h *HTTPClient) {
		if l != nil {
			h.log = l
		}
	}
}

// WithRequestID overrides the request id generator (useful for tests).
func WithRequestID(fn func() string) Option {
	return func(h *HTTPClient) {
		if fn != nil {
			h.requestID = fn
		}
	}
}

// NewHTTPClient builds a client for baseURL.
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", baseURL)
	}

	h := &HTTPClient{
		baseURL:   u,
		http:      &http.Client{},
		log:       logging.Discard(),
		requestID: uuid.NewString,
	}
	for _, o := range opts {
		o(h)
	}
	if h.timeout != nil {
		h.http.Timeout = *h.timeout
	}

	if h.http.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
		h.http.Jar = jar
	}
	return h, nil
}

// cookies returns the cookies the jar would send to the API.
func (h *HTTPClient) cookies() []*http.Cookie {
	return h.http.Jar.Cookies(h.baseURL)
}

// joinURL puts exactly one slash between the base URL and path.
func joinURL(base *url.URL, path string) string {
	b := strings.TrimRight(base.String(), "/")
	p := strings.TrimLeft(path, "/")
	if p == "" {
		return b
	}
	return b + "/" + p
}

func (h *HTTPClient) Signup(ctx context.Context, req SignupRequest) (Confirmation, error) {
	var out Confirmation
	err := h.do(ctx, EndpointSignup, http.MethodPost, "signup", req, &out)
	return out, err
}

func (h *HTTPClient) Signin(ctx context.Context, req SigninRequest) (LoginResponse, error) {
	var out LoginResponse
	err := h.do(ctx, EndpointSignin, http.MethodPost, "signin", req, &out)
	return out, err
}

func (h *HTTPClient) VerifyEmail(ctx context.Context, req VerifyEmailRequest) (LoginResponse, error) {
	var out LoginResponse
	err := h.do(ctx, EndpointVerifyEmail, http.MethodPost, "verify-email", req, &out)
	return out, err
}

func (h *HTTPClient) ResendOTP(ctx context.Context, req EmailRequest) (Confirmation, error) {
	var out Confirmation
	err := h.do(ctx, EndpointResendOTP, http.MethodPost, "resend-otp", req, &out)
	return out, err
}

func (h *HTTPClient) ForgotPassword(ctx context.Context, req EmailRequest) (StatusResponse, error) {
	var out StatusResponse
	err := h.do(ctx, EndpointForgotPassword, http.MethodPost, "/forgot-password", req, &out)
	return out, err
}

func (h *HTTPClient) ResetPassword(ctx context.Context, req ResetPasswordRequest) (StatusResponse, error) {
	var out StatusResponse
	err := h.do(ctx, EndpointResetPassword, http.MethodPost, "reset-password", req, &out)
	return out, err
}

func (h *HTTPClient) ChangePassword(ctx context.Context, req ChangePasswordRequest) (StatusResponse, error) {
	var out StatusResponse
	err := h.do(ctx, EndpointChangePassword, http.MethodPut, "/change-password", req, &out)
	return out, err
}

func (h *HTTPClient) Signout(ctx context.Context) error {
	return h.do(ctx, EndpointSignout, http.MethodPost, "signout", nil, nil)
}

func (h *HTTPClient) do(ctx context.Context, endpoint, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", endpoint, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, joinURL(h.baseURL, path), reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	rid := h.requestID()
	req.Header.Set(common.RequestIDHeaderName, rid)

	log := h.log.With("endpoint", endpoint, "request_id", rid)
	started := time.Now()

	resp, err := h.http.Do(req)
	if err != nil {
		return h.transportError(ctx, endpoint, err)
	}
	defer resp.Body.Close()

	log.Debug(ctx, "api response", "method", method, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return httpError(endpoint, resp.StatusCode, data)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return h.transportError(ctx, endpoint, err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := out.(*Confirmation); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindParsing, Endpoint: endpoint, HTTPStatus: resp.StatusCode, Body: data, Err: err}
	}
	return nil
}

func (h *HTTPClient) transportError(ctx context.Context, endpoint string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", endpoint, context.Canceled)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Endpoint: endpoint, Err: err}
	}
	return &Error{Kind: KindFetch, Endpoint: endpoint, Err: err}
}

// httpError builds an *Error from a non-2xx response, copying status and
// message from the body when it is JSON.
func httpError(endpoint string, code int, data []byte) *Error {
	e := &Error{Kind: KindHTTP, Endpoint: endpoint, HTTPStatus: code, Body: data}

	var body struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		e.Status = body.Status
		e.Message = body.Message
		if e.Message == "" && len(body.Detail) > 0 {
			var s string
			if json.Unmarshal(body.Detail, &s) == nil {
				e.Message = s
			} else {
				e.Message = string(body.Detail)
			}
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(code)
	}
	return e
}
