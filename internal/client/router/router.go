// Package router maps paths to pages.
//
// The route table is a gorilla/mux router that is only ever matched, never
// served: Resolve builds a synthetic request for the path and asks mux which
// named route it hits. Anything unmatched is the not-found page. Guard
// decides, from the session alone, whether a path may be opened or must
// redirect.
package router

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/verdant/internal/client/session"
)

// Route names.
const (
	Landing        = "landing"
	Login          = "login"
	Register       = "register"
	ForgotPassword = "forgot-password"
	Verify         = "verify"
	ResetPassword  = "reset-password"
	Dashboard      = "dashboard"
	ChangePassword = "change-password"
	Signout        = "signout"
	NotFound       = "not-found"
)

// Well-known paths.
const (
	LandingPath   = "/"
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// ProtectedPrefix is the subtree that requires a session.
const ProtectedPrefix = "/dashboard"

// Route is one entry of the table.
type Route struct {
	Name      string
	Path      string
	Protected bool
}

var table = []Route{
	{Name: Landing, Path: "/"},
	{Name: Login, Path: "/login"},
	{Name: Register, Path: "/register"},
	{Name: ForgotPassword, Path: "/forgot-password"},
	{Name: Verify, Path: "/verify"},
	{Name: ResetPassword, Path: "/reset-password"},
	{Name: Dashboard, Path: "/dashboard", Protected: true},
	{Name: ChangePassword, Path: "/dashboard/change-password", Protected: true},
	{Name: Signout, Path: "/dashboard/signout", Protected: true},
}

// Router resolves paths against the route table. It is immutable and safe
// for concurrent use.
type Router struct {
	mux    *mux.Router
	byName map[string]Route
}

// New builds the router over the standard table.
func New() *Router {
	r := &Router{
		mux:    mux.NewRouter(),
		byName: make(map[string]Route, len(table)+1),
	}
	for _, rt := range table {
		r.mux.Path(rt.Path).Name(rt.Name)
		r.byName[rt.Name] = rt
	}
	r.byName[NotFound] = Route{Name: NotFound}
	return r
}

var std = New()

// Routes returns the registered routes in table order.
func (r *Router) Routes() []Route {
	out := make([]Route, len(table))
	copy(out, table)
	return out
}

// Resolve returns the route p matches, or the not-found route. Matching
// ignores case.
func (r *Router) Resolve(p string) Route {
	clean := Normalize(p)
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: strings.ToLower(clean)}}

	var m mux.RouteMatch
	if !r.mux.Match(req, &m) || m.Route == nil {
		return Route{Name: NotFound, Path: clean}
	}
	return r.byName[m.Route.GetName()]
}

// Resolve uses the standard table.
func Resolve(p string) Route {
	return std.Resolve(p)
}

// Normalize turns arbitrary input into a clean absolute path: query and
// fragment are dropped, a leading slash is ensured and a trailing one removed.
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Decision is the outcome of Guard.
type Decision struct {
	Allow    bool
	Redirect string
}

func allow() Decision { return Decision{Allow: true} }

func redirect(to string) Decision { return Decision{Redirect: to} }

// Guard decides whether a session may open p. Unauthenticated sessions are
// sent from protected routes to the login page; signed-in users are sent
// from login and register to the dashboard. Unmatched paths are always
// allowed so they reach not-found.
func (r *Router) Guard(s session.State, p string) Decision {
	rt := r.Resolve(p)
	authed := session.IsAuthenticated(s)
	switch {
	case rt.Protected && !authed:
		return redirect(LoginPath)
	case authed && (rt.Name == Login || rt.Name == Register):
		return redirect(DashboardPath)
	}
	return allow()
}

// Guard uses the standard table.
func Guard(s session.State, p string) Decision {
	return std.Guard(s, p)
}

// Resolution is where a navigation ends up.
type Resolution struct {
	Route Route
	// Path is the path actually opened, after at most one redirect.
	Path       string
	Redirected bool
}

// Navigate applies Guard, follows a redirect once and resolves the result.
func (r *Router) Navigate(s session.State, p string) Resolution {
	target := Normalize(p)
	d := r.Guard(s, target)
	if !d.Allow {
		target = d.Redirect
	}
	return Resolution{
		Route:      r.Resolve(target),
		Path:       target,
		Redirected: !d.Allow,
	}
}

// Navigate uses the standard table.
func Navigate(s session.State, p string) Resolution {
	return std.Navigate(s, p)
}
