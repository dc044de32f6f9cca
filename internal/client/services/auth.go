// Package services contains application services for the verdant client.
// This file defines the authentication service: every API flow a page can
// start, with input validation, mutation tracking and the session updates
// that follow a successful signin or verification.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/verdant/internal/client/action"
	"github.com/dmitrijs2005/verdant/internal/client/api"
	"github.com/dmitrijs2005/verdant/internal/client/session"
	"github.com/dmitrijs2005/verdant/internal/logging"
)

var (
	// ErrRejected wraps failures the API reported in a 2xx body.
	ErrRejected = errors.New("request rejected")
	// ErrUnverified means signin failed because the e-mail is not verified yet.
	ErrUnverified = errors.New("email not verified")
)

// AuthService defines the authentication operations used by the pages.
//
// Contract:
//   - Every call runs inside scope and is aborted when the scope closes.
//   - Input is validated before any request is sent.
//   - Signin and VerifyEmail store the returned user in the session.
//   - Signout clears the session whatever the API answers.
type AuthService interface {
	Signup(scope *api.Scope, req api.SignupRequest) (api.Confirmation, error)
	Signin(scope *api.Scope, req api.SigninRequest) (session.User, error)
	VerifyEmail(scope *api.Scope, req api.VerifyEmailRequest) (session.User, error)
	ResendOTP(scope *api.Scope, req api.EmailRequest) error
	ForgotPassword(scope *api.Scope, req api.EmailRequest) (string, error)
	ResetPassword(scope *api.Scope, req api.ResetPasswordRequest) (string, error)
	ChangePassword(scope *api.Scope, req api.ChangePasswordRequest) (string, error)
	Signout(scope *api.Scope) error
	// Reset forgets every tracked call, as a page does when it is left.
	Reset()
}

type authService struct {
	dispatch action.Dispatcher
	log      logging.Logger

	pendingDelay time.Duration
	onPending    func(endpoint string)

	signup  *api.Mutation[api.SignupRequest, api.Confirmation]
	signin  *api.Mutation[api.SigninRequest, api.LoginResponse]
	verify  *api.Mutation[api.VerifyEmailRequest, api.LoginResponse]
	resend  *api.Mutation[api.EmailRequest, api.Confirmation]
	forgot  *api.Mutation[api.EmailRequest, api.StatusResponse]
	reset   *api.Mutation[api.ResetPasswordRequest, api.StatusResponse]
	change  *api.Mutation[api.ChangePasswordRequest, api.StatusResponse]
	signout *api.Mutation[struct{}, struct{}]
}

// Option configures the auth service.
type Option func(*authService)

// WithPendingNotice calls fn with the endpoint name when a call is still
// pending after delay. fn runs on the caller's goroutine.
func WithPendingNotice(delay time.Duration, fn func(endpoint string)) Option {
	return func(a *authService) {
		a.pendingDelay = delay
		a.onPending = fn
	}
}

// NewAuthService binds the API client to the store dispatcher.
func NewAuthService(c api.Client, d action.Dispatcher, log logging.Logger, opts ...Option) AuthService {
	if log == nil {
		log = logging.Discard()
	}
	a := &authService{
		dispatch: d,
		log:      log.With("component", "auth"),
		signup:   api.NewMutation(api.EndpointSignup, d, c.Signup),
		signin:   api.NewMutation(api.EndpointSignin, d, c.Signin),
		verify:   api.NewMutation(api.EndpointVerifyEmail, d, c.VerifyEmail),
		resend:   api.NewMutation(api.EndpointResendOTP, d, c.ResendOTP),
		forgot:   api.NewMutation(api.EndpointForgotPassword, d, c.ForgotPassword),
		reset:    api.NewMutation(api.EndpointResetPassword, d, c.ResetPassword),
		change:   api.NewMutation(api.EndpointChangePassword, d, c.ChangePassword),
		signout: api.NewMutation(api.EndpointSignout, d, func(ctx context.Context, _ struct{}) (struct{}, error) {
			return struct{}{}, c.Signout(ctx)
		}),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func run[Req, Resp any](a *authService, scope *api.Scope, m *api.Mutation[Req, Resp], req Req) (Resp, error) {
	task := m.Trigger(scope, req)
	if a.onPending != nil {
		timer := time.NewTimer(a.pendingDelay)
		select {
		case <-task.Done():
		case <-timer.C:
			if m.Status().IsLoading() {
				a.onPending(m.Endpoint())
			}
		}
		timer.Stop()
	}
	return task.Wait(scope.Context())
}

// rejected turns an API-reported failure message into an error.
func rejected(msg string) error {
	if isUnverified(msg) {
		return fmt.Errorf("%w: %s", ErrUnverified, msg)
	}
	return fmt.Errorf("%w: %s", ErrRejected, msg)
}

func isUnverified(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "not verified") || strings.Contains(m, "unverified") || strings.Contains(m, "verify your")
}

func (a *authService) Signup(scope *api.Scope, req api.SignupRequest) (api.Confirmation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return run(a, scope, a.signup, req)
}

func (a *authService) Signin(scope *api.Scope, req api.SigninRequest) (session.User, error) {
	if err := req.Validate(); err != nil {
		return session.User{}, err
	}
	resp, err := run(a, scope, a.signin, req)
	if err != nil {
		if isUnverified(api.Message(err)) {
			return session.User{}, fmt.Errorf("%w: %w", ErrUnverified, err)
		}
		return session.User{}, err
	}
	if resp.Failed() {
		return session.User{}, rejected(resp.Message)
	}
	return a.establish(scope.Context(), resp.Data, req.Email), nil
}

func (a *authService) VerifyEmail(scope *api.Scope, req api.VerifyEmailRequest) (session.User, error) {
	if err := req.Validate(); err != nil {
		return session.User{}, err
	}
	resp, err := run(a, scope, a.verify, req)
	if err != nil {
		return session.User{}, err
	}
	if resp.Failed() {
		return session.User{}, rejected(resp.Message)
	}
	return a.establish(scope.Context(), resp.Data, req.Email), nil
}

// establish stores u as the session. The e-mail the user typed fills in a
// response that omitted it.
func (a *authService) establish(ctx context.Context, u session.User, email string) session.User {
	if u.Email == "" {
		u.Email = email
	}
	a.dispatch.Dispatch(session.SetCredentials(session.EncodeUser(u)))
	a.log.Info(ctx, "signed in", "user_id", u.ID)
	return u
}

func (a *authService) ResendOTP(scope *api.Scope, req api.EmailRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	_, err := run(a, scope, a.resend, req)
	return err
}

func (a *authService) ForgotPassword(scope *api.Scope, req api.EmailRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	return status(run(a, scope, a.forgot, req))
}

func (a *authService) ResetPassword(scope *api.Scope, req api.ResetPasswordRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	return status(run(a, scope, a.reset, req))
}

func (a *authService) ChangePassword(scope *api.Scope, req api.ChangePasswordRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	return status(run(a, scope, a.change, req))
}

func status(resp api.StatusResponse, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if resp.Failed() {
		return "", rejected(resp.Message)
	}
	return resp.Message, nil
}

// Signout tells the API to end the session, then logs out locally even if
// the call failed. The API error is still returned.
func (a *authService) Signout(scope *api.Scope) error {
	_, err := run(a, scope, a.signout, struct{}{})
	if err != nil {
		a.log.Warn(scope.Context(), "signout request failed", "error", err)
	}
	a.dispatch.Dispatch(session.Logout())
	return err
}

func (a *authService) Reset() {
	a.signup.Reset()
	a.signin.Reset()
	a.verify.Reset()
	a.resend.Reset()
	a.forgot.Reset()
	a.reset.Reset()
	a.change.Reset()
	a.signout.Reset()
}
