package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/verdant/internal/client/session"
)

var (
	anon   = session.State{}
	authed = session.State{UserInfo: "a@b.com"}
)

func TestResolve_RegisteredRoutes(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", Landing},
		{"", Landing},
		{"/login", Login},
		{"login", Login},
		{"/login/", Login},
		{"/register", Register},
		{"/forgot-password", ForgotPassword},
		{"/verify?email=a@b.com", Verify},
		{"/reset-password#top", ResetPassword},
		{"/dashboard", Dashboard},
		{"/dashboard/change-password", ChangePassword},
		{"/dashboard/signout", Signout},
		{"/a/../login", Login},
		{"/Login", Login},
		{"/REGISTER", Register},
		{"/Dashboard/Change-Password", ChangePassword},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.path).Name)
		})
	}
}

func TestResolve_UnregisteredIsNotFound(t *testing.T) {
	for _, p := range []string{
		"/nope", "/login/extra", "/dashboard/unknown", "%%%", "/\x00", "   ", "?", "#x",
		"//double", "/verify/123", "/NOPE",
	} {
		t.Run(p, func(t *testing.T) {
			got := Resolve(p)
			if Normalize(p) == "/" {
				assert.Equal(t, Landing, got.Name)
				return
			}
			assert.Equal(t, NotFound, got.Name)
		})
	}
}

func TestResolve_NotFoundKeepsSpelling(t *testing.T) {
	got := Resolve("/Missing/Page")
	assert.Equal(t, NotFound, got.Name)
	assert.Equal(t, "/Missing/Page", got.Path)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "/", Normalize(""))
	assert.Equal(t, "/login", Normalize(" login/ "))
	assert.Equal(t, "/verify", Normalize("/verify?x=1#y"))
	assert.Equal(t, "/double", Normalize("//double"))
}

func TestGuard(t *testing.T) {
	tests := []struct {
		name string
		s    session.State
		path string
		want Decision
	}{
		{"anon landing", anon, "/", Decision{Allow: true}},
		{"anon login", anon, "/login", Decision{Allow: true}},
		{"anon dashboard", anon, "/dashboard", Decision{Redirect: "/login"}},
		{"anon dashboard any case", anon, "/DashBoard", Decision{Redirect: "/login"}},
		{"anon nested dashboard", anon, "/dashboard/change-password", Decision{Redirect: "/login"}},
		{"anon unknown", anon, "/dashboard/unknown", Decision{Allow: true}},
		{"authed dashboard", authed, "/dashboard", Decision{Allow: true}},
		{"authed login", authed, "/login", Decision{Redirect: "/dashboard"}},
		{"authed register", authed, "/register/", Decision{Redirect: "/dashboard"}},
		{"authed verify", authed, "/verify", Decision{Allow: true}},
		{"authed unknown", authed, "/whatever", Decision{Allow: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Guard(tt.s, tt.path))
		})
	}
}

func TestNavigate(t *testing.T) {
	res := Navigate(anon, "/dashboard/change-password")
	require.True(t, res.Redirected)
	assert.Equal(t, "/login", res.Path)
	assert.Equal(t, Login, res.Route.Name)

	res = Navigate(authed, "/login")
	require.True(t, res.Redirected)
	assert.Equal(t, Dashboard, res.Route.Name)

	res = Navigate(authed, "/nowhere")
	assert.False(t, res.Redirected)
	assert.Equal(t, NotFound, res.Route.Name)
	assert.Equal(t, "/nowhere", res.Path)
}

func TestRoutes_ProtectedUnderPrefix(t *testing.T) {
	r := New()
	for _, rt := range r.Routes() {
		under := rt.Path == ProtectedPrefix || strings.HasPrefix(rt.Path, ProtectedPrefix+"/")
		assert.Equal(t, under, rt.Protected, rt.Path)
	}
}
