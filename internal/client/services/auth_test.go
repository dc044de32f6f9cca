package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/verdant/internal/client/api"
	"github.com/dmitrijs2005/verdant/internal/client/session"
	"github.com/dmitrijs2005/verdant/internal/client/store"
)

// ---- fake client ----

type fakeClient struct {
	SignupRet api.Confirmation
	SignupErr error

	SigninRet   api.LoginResponse
	SigninErr   error
	SigninBlock chan struct{}

	VerifyRet api.LoginResponse
	VerifyErr error

	ResendErr error

	StatusRet api.StatusResponse
	StatusErr error

	SignoutErr error

	// argument capture
	LastSignin api.SigninRequest
	LastVerify api.VerifyEmailRequest
	LastChange api.ChangePasswordRequest
	Calls      int
}

func (f *fakeClient) Signup(_ context.Context, _ api.SignupRequest) (api.Confirmation, error) {
	f.Calls++
	return f.SignupRet, f.SignupErr
}

func (f *fakeClient) Signin(ctx context.Context, req api.SigninRequest) (api.LoginResponse, error) {
	f.Calls++
	f.LastSignin = req
	if f.SigninBlock != nil {
		select {
		case <-f.SigninBlock:
		case <-ctx.Done():
			return api.LoginResponse{}, ctx.Err()
		}
	}
	return f.SigninRet, f.SigninErr
}

func (f *fakeClient) VerifyEmail(_ context.Context, req api.VerifyEmailRequest) (api.LoginResponse, error) {
	f.Calls++
	f.LastVerify = req
	return f.VerifyRet, f.VerifyErr
}

func (f *fakeClient) ResendOTP(_ context.Context, _ api.EmailRequest) (api.Confirmation, error) {
	f.Calls++
	return nil, f.ResendErr
}

func (f *fakeClient) ForgotPassword(_ context.Context, _ api.EmailRequest) (api.StatusResponse, error) {
	f.Calls++
	return f.StatusRet, f.StatusErr
}

func (f *fakeClient) ResetPassword(_ context.Context, _ api.ResetPasswordRequest) (api.StatusResponse, error) {
	f.Calls++
	return f.StatusRet, f.StatusErr
}

func (f *fakeClient) ChangePassword(_ context.Context, req api.ChangePasswordRequest) (api.StatusResponse, error) {
	f.Calls++
	f.LastChange = req
	return f.StatusRet, f.StatusErr
}

func (f *fakeClient) Signout(_ context.Context) error {
	f.Calls++
	return f.SignoutErr
}

// ---- helpers ----

func setup(t *testing.T, fc *fakeClient) (AuthService, *store.Store, *api.Scope) {
	t.Helper()
	st := store.New()
	scope := api.NewScope(context.Background())
	t.Cleanup(scope.Close)
	return NewAuthService(fc, st, nil), st, scope
}

var alice = session.User{ID: "u1", Username: "alice", Email: "alice@example.com"}

// ---- tests ----

func TestSignin_SetsCredentialsOnSuccess(t *testing.T) {
	fc := &fakeClient{SigninRet: api.LoginResponse{Status: "success", Data: alice}}
	svc, st, scope := setup(t, fc)

	u, err := svc.Signin(scope, api.SigninRequest{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, alice, u)
	assert.Equal(t, "alice@example.com", fc.LastSignin.Email)

	got, ok := session.DecodeUser(st.GetState().Auth.UserInfo)
	require.True(t, ok)
	assert.Equal(t, alice, got)

	// the call is tracked in the api slice
	entry, ok := st.GetState().API.Get(api.CacheKey(api.EndpointSignin, fc.LastSignin))
	require.True(t, ok)
	assert.Equal(t, api.StatusFulfilled, entry.Status)
}

func TestSignin_FillsMissingEmail(t *testing.T) {
	fc := &fakeClient{SigninRet: api.LoginResponse{Status: "success", Data: session.User{ID: "u1"}}}
	svc, _, scope := setup(t, fc)

	u, err := svc.Signin(scope, api.SigninRequest{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
}

func TestSignin_ValidationStopsRequest(t *testing.T) {
	fc := &fakeClient{}
	svc, st, scope := setup(t, fc)

	_, err := svc.Signin(scope, api.SigninRequest{Email: "not-an-email", Password: ""})
	require.ErrorIs(t, err, api.ErrValidation)
	assert.Zero(t, fc.Calls)
	assert.False(t, session.IsAuthenticated(st.GetState().Auth))
}

func TestSignin_PendingNoticeForSlowCall(t *testing.T) {
	release := make(chan struct{})
	fc := &fakeClient{SigninRet: api.LoginResponse{Status: "success", Data: alice}, SigninBlock: release}
	scope := api.NewScope(context.Background())
	t.Cleanup(scope.Close)

	var notices []string
	svc := NewAuthService(fc, store.New(), nil, WithPendingNotice(5*time.Millisecond, func(endpoint string) {
		notices = append(notices, endpoint)
		close(release)
	}))

	_, err := svc.Signin(scope, api.SigninRequest{Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, []string{api.EndpointSignin}, notices)
}

func TestSignin_NoPendingNoticeForFastCall(t *testing.T) {
	fc := &fakeClient{SigninRet: api.LoginResponse{Status: "success", Data: alice}}
	scope := api.NewScope(context.Background())
	t.Cleanup(scope.Close)

	var notices []string
	svc := NewAuthService(fc, store.New(), nil, WithPendingNotice(time.Hour, func(endpoint string) {
		notices = append(notices, endpoint)
	}))

	_, err := svc.Signin(scope, api.SigninRequest{Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Empty(t, notices)
}

func TestSignin_ReportedFailure(t *testing.T) {
	fc := &fakeClient{SigninRet: api.LoginResponse{Status: api.StatusError, Message: "Invalid credentials"}}
	svc, st, scope := setup(t, fc)

	_, err := svc.Signin(scope, api.SigninRequest{Email: "a@b.com", Password: "pw"})
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "Invalid credentials")
	assert.Equal(t, "", st.GetState().Auth.UserInfo)
}

func TestSignin_Unverified(t *testing.T) {
	t.Run("reported in body", func(t *testing.T) {
		fc := &fakeClient{SigninRet: api.LoginResponse{Status: api.StatusError, Message: "Email not verified"}}
		svc, _, scope := setup(t, fc)

		_, err := svc.Signin(scope, api.SigninRequest{Email: "a@b.com", Password: "pw"})
		require.ErrorIs(t, err, ErrUnverified)
	})

	t.Run("reported as http error", func(t *testing.T) {
		httpErr := &api.Error{Kind: api.KindHTTP, HTTPStatus: 403, Message: "Please verify your email"}
		fc := &fakeClient{SigninErr: httpErr}
		svc, _, scope := setup(t, fc)

		_, err := svc.Signin(scope, api.SigninRequest{Email: "a@b.com", Password: "pw"})
		require.ErrorIs(t, err, ErrUnverified)
		require.ErrorIs(t, err, api.ErrUnauthorized)
	})
}

func TestSignin_TransportError(t *testing.T) {
	fc := &fakeClient{SigninErr: &api.Error{Kind: api.KindFetch, Endpoint: "signin", Err: errors.New("refused")}}
	svc, st, scope := setup(t, fc)

	_, err := svc.Signin(scope, api.SigninRequest{Email: "a@b.com", Password: "pw"})
	require.ErrorIs(t, err, api.ErrUnavailable)
	assert.Equal(t, "", st.GetState().Auth.UserInfo)
}

func TestVerifyEmail_SetsCredentials(t *testing.T) {
	fc := &fakeClient{VerifyRet: api.LoginResponse{Status: "success", Data: alice}}
	svc, st, scope := setup(t, fc)

	req := api.VerifyEmailRequest{Email: alice.Email, Username: "alice", OTP: "123456"}
	_, err := svc.VerifyEmail(scope, req)
	require.NoError(t, err)
	assert.Equal(t, req, fc.LastVerify)
	assert.True(t, session.IsAuthenticated(st.GetState().Auth))
}

func TestVerifyEmail_AlphanumericOTPIsSent(t *testing.T) {
	fc := &fakeClient{VerifyRet: api.LoginResponse{Status: "success", Data: alice}}
	svc, _, scope := setup(t, fc)

	req := api.VerifyEmailRequest{Email: "a@b.com", Username: "a", OTP: "A1B2C3"}
	_, err := svc.VerifyEmail(scope, req)
	require.NoError(t, err)
	assert.Equal(t, 1, fc.Calls)
	assert.Equal(t, "A1B2C3", fc.LastVerify.OTP)
}

func TestVerifyEmail_MissingOTP(t *testing.T) {
	fc := &fakeClient{}
	svc, _, scope := setup(t, fc)

	_, err := svc.VerifyEmail(scope, api.VerifyEmailRequest{Email: "a@b.com", Username: "a"})
	require.ErrorIs(t, err, api.ErrValidation)
	assert.Zero(t, fc.Calls)
}

func TestStatusFlows(t *testing.T) {
	fc := &fakeClient{StatusRet: api.StatusResponse{Status: "success", Message: "Check your inbox"}}
	svc, _, scope := setup(t, fc)

	msg, err := svc.ForgotPassword(scope, api.EmailRequest{Email: "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, "Check your inbox", msg)

	_, err = svc.ResetPassword(scope, api.ResetPasswordRequest{Email: "a@b.com", NewPassword: "newpass1", ResetCode: "9999"})
	require.NoError(t, err)

	_, err = svc.ChangePassword(scope, api.ChangePasswordRequest{UserID: "u1", OldPassword: "oldpass1", NewPassword: "newpass1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", fc.LastChange.UserID)

	fc.StatusRet = api.StatusResponse{Status: api.StatusError, Message: "Code expired"}
	_, err = svc.ResetPassword(scope, api.ResetPasswordRequest{Email: "a@b.com", NewPassword: "newpass1", ResetCode: "9999"})
	require.ErrorIs(t, err, ErrRejected)
}

func TestChangePassword_PasswordRulesLeftToServer(t *testing.T) {
	fc := &fakeClient{StatusRet: api.StatusResponse{Status: api.StatusError, Message: "Password too weak"}}
	svc, _, scope := setup(t, fc)

	_, err := svc.ChangePassword(scope, api.ChangePasswordRequest{UserID: "u1", OldPassword: "same", NewPassword: "same"})
	require.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, 1, fc.Calls)
}

func TestSignupAndResend(t *testing.T) {
	fc := &fakeClient{SignupRet: api.Confirmation(`{"status":"success"}`)}
	svc, _, scope := setup(t, fc)

	conf, err := svc.Signup(scope, api.SignupRequest{FirstName: "A", LastName: "B", Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success"}`, string(conf))

	require.NoError(t, svc.ResendOTP(scope, api.EmailRequest{Email: "a@b.com"}))

	fc.ResendErr = &api.Error{Kind: api.KindHTTP, HTTPStatus: 429, Message: "Too many requests"}
	require.Error(t, svc.ResendOTP(scope, api.EmailRequest{Email: "a@b.com"}))
}

func TestSignout_LogsOutEvenWhenAPIFails(t *testing.T) {
	fc := &fakeClient{SignoutErr: &api.Error{Kind: api.KindHTTP, HTTPStatus: 500, Message: "boom"}}
	svc, st, scope := setup(t, fc)
	st.Dispatch(session.SetCredentials("a@b.com"))

	err := svc.Signout(scope)
	require.Error(t, err)
	assert.Equal(t, "", st.GetState().Auth.UserInfo)
}

func TestSignout_ClosedScopeStillLogsOut(t *testing.T) {
	fc := &fakeClient{}
	svc, st, scope := setup(t, fc)
	st.Dispatch(session.SetCredentials("a@b.com"))
	scope.Close()

	err := svc.Signout(scope)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "", st.GetState().Auth.UserInfo)
	assert.Zero(t, fc.Calls)
}

func TestReset_ClearsAPICache(t *testing.T) {
	fc := &fakeClient{SigninRet: api.LoginResponse{Status: "success", Data: alice}}
	svc, st, scope := setup(t, fc)

	_, err := svc.Signin(scope, api.SigninRequest{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	require.NotEmpty(t, st.GetState().API.Mutations)

	svc.Reset()
	assert.Empty(t, st.GetState().API.Mutations)
	assert.True(t, session.IsAuthenticated(st.GetState().Auth))
}
