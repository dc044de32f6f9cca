package api

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/verdant/internal/client/session"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Endpoint names, used as cache key prefixes and log attributes.
const (
	EndpointSignup         = "signup"
	EndpointSignin         = "signin"
	EndpointVerifyEmail    = "verifyEmail"
	EndpointResendOTP      = "resendOtp"
	EndpointForgotPassword = "forgotPassword"
	EndpointResetPassword  = "resetPassword"
	EndpointChangePassword = "changePassword"
	EndpointSignout        = "signout"
)

// StatusError is the body status the API uses for reported failures.
const StatusError = "error"

// SignupRequest registers a new account.
type SignupRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferrerCode string `json:"referrerCode"`
}

func (r SignupRequest) Validate() error {
	return invalid(validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.LastName, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	))
}

// SigninRequest is the credentials record.
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SigninRequest) Validate() error {
	return invalid(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	))
}

// VerifyEmailRequest submits the one-time code sent to the user.
type VerifyEmailRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	OTP      string `json:"otp"`
}

func (r VerifyEmailRequest) Validate() error {
	return invalid(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.OTP, validation.Required),
	))
}

// EmailRequest carries a single address, for resend-otp and forgot-password.
type EmailRequest struct {
	Email string `json:"email"`
}

func (r EmailRequest) Validate() error {
	return invalid(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	))
}

// ResetPasswordRequest completes a password reset with the mailed code.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
	ResetCode   string `json:"resetCode"`
}

func (r ResetPasswordRequest) Validate() error {
	return invalid(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.NewPassword, validation.Required),
		validation.Field(&r.ResetCode, validation.Required),
	))
}

// ChangePasswordRequest changes the password of a signed-in user.
type ChangePasswordRequest struct {
	UserID      string `json:"userId"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	return invalid(validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required),
	))
}

// LoginResponse is returned by signin and verify-email.
type LoginResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Data    session.User `json:"data"`
}

// StatusResponse is the generic {status, message} body.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Failed reports whether the body carries an API-reported failure.
func (r StatusResponse) Failed() bool {
	return r.Status == StatusError
}

// Failed reports whether the body carries an API-reported failure.
func (r LoginResponse) Failed() bool {
	return r.Status == StatusError
}

// Confirmation is an opaque success body (signup, resend-otp).
type Confirmation = json.RawMessage

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
