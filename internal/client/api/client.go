package api

import "context"

// Client is the contract for the authentication API: one call per endpoint.
// Implementations must honor context cancellation and must not retry.
type Client interface {
	Signup(ctx context.Context, req SignupRequest) (Confirmation, error)
	Signin(ctx context.Context, req SigninRequest) (LoginResponse, error)
	VerifyEmail(ctx context.Context, req VerifyEmailRequest) (LoginResponse, error)
	ResendOTP(ctx context.Context, req EmailRequest) (Confirmation, error)
	ForgotPassword(ctx context.Context, req EmailRequest) (StatusResponse, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) (StatusResponse, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) (StatusResponse, error)
	Signout(ctx context.Context) error
}
