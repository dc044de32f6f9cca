package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/verdant/internal/client/api"
	"github.com/dmitrijs2005/verdant/internal/client/router"
	"github.com/dmitrijs2005/verdant/internal/client/services"
	"github.com/dmitrijs2005/verdant/internal/client/session"
	"github.com/dmitrijs2005/verdant/internal/common"
)

// page renders one screen. It returns the path to continue to, or "" to stay.
type page func(scope *api.Scope, query url.Values) (string, error)

// getSimpleText, getRequiredText and getPassword are indirections used to
// facilitate testing.
var (
	getSimpleText   = GetSimpleText
	getRequiredText = GetRequiredText
	getPassword     = GetPassword
)

// resendCommand typed at the OTP prompt asks for a new code.
const resendCommand = "resend"

var errPasswordMismatch = errors.New("passwords do not match")

func (a *App) routes() map[string]page {
	return map[string]page{
		router.Landing:        a.landing,
		router.Login:          a.login,
		router.Register:       a.register,
		router.Verify:         a.verify,
		router.ForgotPassword: a.forgotPassword,
		router.ResetPassword:  a.resetPassword,
		router.Dashboard:      a.dashboard,
		router.ChangePassword: a.changePassword,
		router.Signout:        a.signout,
		router.NotFound:       a.notFound,
	}
}

func withEmail(path, email string) string {
	if email == "" {
		return path
	}
	return path + "?" + url.Values{"email": {email}}.Encode()
}

// emailFrom takes the address from the query when a previous page passed one.
func (a *App) emailFrom(query url.Values) (string, error) {
	if e := strings.TrimSpace(query.Get("email")); e != "" {
		a.println("Email:", e)
		return e, nil
	}
	return getRequiredText(a.reader, "Email", a.out)
}

func (a *App) secret(prompt string) (string, error) {
	pw, err := getPassword(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func (a *App) landing(_ *api.Scope, _ url.Values) (string, error) {
	a.println("verdant: sign in to continue")
	if a.IsAuthenticated() {
		a.println("  open /dashboard         your account")
	} else {
		a.println("  open /login             sign in")
		a.println("  open /register          create an account")
		a.println("  open /forgot-password   reset a forgotten password")
	}
	return "", nil
}

func (a *App) login(scope *api.Scope, _ url.Values) (string, error) {
	email, err := getRequiredText(a.reader, "Email", a.out)
	if err != nil {
		return "", err
	}
	password, err := a.secret("Password")
	if err != nil {
		return "", err
	}

	u, err := a.auth.Signin(scope, api.SigninRequest{Email: email, Password: password})
	if errors.Is(err, services.ErrUnverified) {
		a.notify("Your email is not verified yet")
		return withEmail("/verify", email), nil
	}
	if err != nil {
		return "", err
	}
	a.notify("Login successful. Welcome %s", displayName(u))
	return router.DashboardPath, nil
}

func (a *App) register(scope *api.Scope, _ url.Values) (string, error) {
	first, err := getRequiredText(a.reader, "First name", a.out)
	if err != nil {
		return "", err
	}
	last, err := getRequiredText(a.reader, "Last name", a.out)
	if err != nil {
		return "", err
	}
	email, err := getRequiredText(a.reader, "Email", a.out)
	if err != nil {
		return "", err
	}
	password, err := a.secret("Password")
	if err != nil {
		return "", err
	}
	confirm, err := a.secret("Confirm password")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", errPasswordMismatch
	}
	referrer, err := getSimpleText(a.reader, "Referrer code (optional)", a.out)
	if err != nil {
		return "", err
	}

	_, err = a.auth.Signup(scope, api.SignupRequest{
		FirstName:    first,
		LastName:     last,
		Email:        email,
		Password:     password,
		ReferrerCode: referrer,
	})
	if err != nil {
		return "", err
	}
	a.notify("Account created. Check %s for your verification code", email)
	return withEmail("/verify", email), nil
}

func (a *App) verify(scope *api.Scope, query url.Values) (string, error) {
	email, err := a.emailFrom(query)
	if err != nil {
		return "", err
	}

	otp, err := getRequiredText(a.reader, "Verification code (or 'resend')", a.out)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(otp, resendCommand) {
		if err := a.auth.ResendOTP(scope, api.EmailRequest{Email: email}); err != nil {
			return "", err
		}
		a.notify("A new code was sent to %s", email)
		if otp, err = getRequiredText(a.reader, "Verification code", a.out); err != nil {
			return "", err
		}
	}

	u, err := a.auth.VerifyEmail(scope, api.VerifyEmailRequest{
		Email:    email,
		Username: common.UsernameFromEmail(email),
		OTP:      otp,
	})
	if err != nil {
		return "", err
	}
	a.notify("Email verified. Welcome %s", displayName(u))
	return router.DashboardPath, nil
}

func (a *App) forgotPassword(scope *api.Scope, _ url.Values) (string, error) {
	email, err := getRequiredText(a.reader, "Email", a.out)
	if err != nil {
		return "", err
	}
	msg, err := a.auth.ForgotPassword(scope, api.EmailRequest{Email: email})
	if err != nil {
		return "", err
	}
	a.notify("%s", orDefault(msg, "A reset code was sent to "+email))
	return withEmail("/reset-password", email), nil
}

func (a *App) resetPassword(scope *api.Scope, query url.Values) (string, error) {
	email, err := a.emailFrom(query)
	if err != nil {
		return "", err
	}
	code, err := getRequiredText(a.reader, "Reset code", a.out)
	if err != nil {
		return "", err
	}
	password, err := a.secret("New password")
	if err != nil {
		return "", err
	}
	confirm, err := a.secret("Confirm new password")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", errPasswordMismatch
	}

	msg, err := a.auth.ResetPassword(scope, api.ResetPasswordRequest{
		Email:       email,
		NewPassword: password,
		ResetCode:   code,
	})
	if err != nil {
		return "", err
	}
	a.notify("%s", orDefault(msg, "Password reset. Please sign in"))
	return router.LoginPath, nil
}

func (a *App) dashboard(_ *api.Scope, _ url.Values) (string, error) {
	a.println("Signed in as", a.WhoAmI())
	a.println("  open /dashboard/change-password   change your password")
	a.println("  open /dashboard/signout           sign out")
	return "", nil
}

func (a *App) changePassword(scope *api.Scope, _ url.Values) (string, error) {
	u, _ := session.DecodeUser(a.store.GetState().Auth.UserInfo)
	if u.ID == "" {
		return "", errors.New("the current session has no user id; sign in again")
	}
	oldPassword, err := a.secret("Current password")
	if err != nil {
		return "", err
	}
	newPassword, err := a.secret("New password")
	if err != nil {
		return "", err
	}

	msg, err := a.auth.ChangePassword(scope, api.ChangePasswordRequest{
		UserID:      u.ID,
		OldPassword: oldPassword,
		NewPassword: newPassword,
	})
	if err != nil {
		return "", err
	}
	a.notify("%s", orDefault(msg, "Password changed"))
	return router.DashboardPath, nil
}

func (a *App) signout(scope *api.Scope, _ url.Values) (string, error) {
	if err := a.auth.Signout(scope); err != nil {
		a.notify("Signed out locally (%s)", api.Message(err))
	} else {
		a.notify("Signed out")
	}
	return router.LoginPath, nil
}

func (a *App) notFound(_ *api.Scope, _ url.Values) (string, error) {
	a.println(fmt.Sprintf("Page not found: %s", a.current))
	a.println("  open /   back to the start page")
	return "", nil
}

func displayName(u session.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
