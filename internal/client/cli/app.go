package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/dmitrijs2005/verdant/internal/client/api"
	"github.com/dmitrijs2005/verdant/internal/client/client"
	"github.com/dmitrijs2005/verdant/internal/client/config"
	"github.com/dmitrijs2005/verdant/internal/client/persist"
	"github.com/dmitrijs2005/verdant/internal/client/router"
	"github.com/dmitrijs2005/verdant/internal/client/services"
	"github.com/dmitrijs2005/verdant/internal/client/session"
	"github.com/dmitrijs2005/verdant/internal/client/store"
	"github.com/dmitrijs2005/verdant/internal/logging"
)

// maxHops bounds how many pages one "open" may chain through.
const maxHops = 8

// pendingNoticeDelay is how long an API call may run before the page shows
// a wait notice.
const pendingNoticeDelay = 500 * time.Millisecond

var errUnknownStorageCommand = errors.New("unknown storage command")

// App is the interactive client: local storage, state, API and pages.
type App struct {
	config    *config.Config
	log       logging.Logger
	repos     *client.Repositories
	store     *store.Store
	persistor *persist.Persistor
	api       api.Client
	auth      services.AuthService
	router    *router.Router
	pages     map[string]page
	reader    *bufio.Reader
	out       io.Writer

	current string
	// rehydrated is closed when the Rehydrate goroutine started by Run ends.
	rehydrated chan struct{}
}

// AppOption overrides a dependency NewApp would otherwise build itself.
type AppOption func(*App)

func WithInput(r io.Reader) AppOption {
	return func(a *App) { a.reader = bufio.NewReader(r) }
}

func WithOutput(w io.Writer) AppOption {
	return func(a *App) { a.out = w }
}

func WithLogger(l logging.Logger) AppOption {
	return func(a *App) { a.log = l }
}

// WithRepositories supplies already opened storage.
func WithRepositories(r *client.Repositories) AppOption {
	return func(a *App) { a.repos = r }
}

// WithAPIClient replaces the HTTP client.
func WithAPIClient(c api.Client) AppOption {
	return func(a *App) { a.api = c }
}

// NewApp opens local storage and wires the store, persistor, API client and
// router.
func NewApp(c *config.Config, opts ...AppOption) (*App, error) {
	a := &App{
		config: c,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		router: router.New(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = logging.New(c.LogLevel, os.Stderr)
	}

	ctx := context.Background()

	if a.repos == nil {
		if c.StoragePath == "" {
			a.repos = client.InitMemory()
		} else {
			repos, err := client.InitDatabase(ctx, c.StoragePath)
			if err != nil {
				a.log.Error(ctx, "error initializing storage", "path", c.StoragePath, "error", err)
				return nil, err
			}
			a.repos = repos
		}
	}

	if a.api == nil {
		h, err := api.NewHTTPClient(c.APIBaseURL,
			api.WithTimeout(c.RequestTimeout),
			api.WithLogger(a.log.With("component", "api")),
		)
		if err != nil {
			_ = a.repos.Close()
			return nil, err
		}
		a.api = h
	}

	a.persistor = persist.New(a.repos.Metadata,
		persist.WithLogger(a.log),
		persist.WithPurgeAll(c.PurgeAll),
	)
	a.store = store.New(
		store.WithInitialState(store.RootState{Auth: a.persistor.InitialState(ctx)}),
		store.WithMiddleware(
			store.SerializableCheck(a.log.With("component", "store")),
			a.persistor.Middleware(),
		),
	)
	a.auth = services.NewAuthService(a.api, a.store, a.log,
		services.WithPendingNotice(pendingNoticeDelay, func(endpoint string) {
			a.notify("Please wait, %s in progress...", endpoint)
		}),
	)
	a.pages = a.routes()

	return a, nil
}

// Run rehydrates the session, opens the start page and then serves the REPL
// until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	a.rehydrated = make(chan struct{})
	go func() {
		defer close(a.rehydrated)
		a.persistor.Rehydrate(ctx, a.store)
	}()

	return a.persistor.Gate(ctx, func(ctx context.Context) error {
		a.println("Welcome to verdant (type 'help' for commands)")
		a.Open(ctx, a.config.StartPath)
		runREPL(ctx, a, a.status, a.reader, a.out)
		return nil
	})
}

// Close waits for rehydration started by Run, flushes pending session writes
// and releases storage.
func (a *App) Close(ctx context.Context) error {
	if a.rehydrated != nil {
		select {
		case <-a.rehydrated:
		case <-ctx.Done():
			a.log.Warn(ctx, "closing before rehydration finished", "error", ctx.Err())
		}
	}
	return errors.Join(
		a.persistor.Close(ctx),
		a.repos.Close(),
	)
}

// Open navigates to p. The guard may redirect, and a page that finishes may
// hand over to the next one.
func (a *App) Open(ctx context.Context, p string) {
	for hop := 0; p != "" && hop < maxHops; hop++ {
		res := a.router.Navigate(a.store.GetState().Auth, p)
		query := url.Values{}
		if res.Redirected {
			a.notify("Redirected to %s", res.Path)
		} else if u, err := url.Parse(p); err == nil {
			query = u.Query()
		}
		a.current = res.Path

		next, err := a.visit(ctx, res.Route, query)
		if err != nil {
			a.fail(err)
			return
		}
		p = next
	}
}

// visit runs one page inside its own scope. Leaving the page aborts whatever
// it still has in flight and forgets its tracked calls.
func (a *App) visit(ctx context.Context, rt router.Route, query url.Values) (string, error) {
	scope := api.NewScope(ctx)
	defer a.auth.Reset()
	defer scope.Close()

	pg, ok := a.pages[rt.Name]
	if !ok {
		pg = a.pages[router.NotFound]
	}
	return pg(scope, query)
}

// Storage controls session persistence: pause, resume, flush or purge.
func (a *App) Storage(ctx context.Context, cmd string) (string, error) {
	switch cmd {
	case "pause":
		a.persistor.Pause()
		return "Session saving paused", nil
	case "resume":
		a.persistor.Persist()
		return "Session saving resumed", nil
	case "flush":
		if err := a.persistor.Flush(ctx); err != nil {
			return "", err
		}
		return "Session saved", nil
	case "purge":
		if err := a.persistor.Purge(ctx); err != nil {
			return "", err
		}
		return "Saved session removed from this device", nil
	}
	return "", fmt.Errorf("%w: %s", errUnknownStorageCommand, cmd)
}

// IsAuthenticated reports whether a session is active.
func (a *App) IsAuthenticated() bool {
	return session.IsAuthenticated(a.store.GetState().Auth)
}

// WhoAmI describes the signed-in user.
func (a *App) WhoAmI() string {
	u, ok := session.DecodeUser(a.store.GetState().Auth.UserInfo)
	if !ok {
		return "Not signed in"
	}
	if u.Username != "" {
		return fmt.Sprintf("%s <%s>", u.Username, u.Email)
	}
	return u.Email
}

func (a *App) status() string {
	if !a.IsAuthenticated() {
		return a.current
	}
	u, _ := session.DecodeUser(a.store.GetState().Auth.UserInfo)
	name := u.Username
	if name == "" {
		name = u.Email
	}
	return fmt.Sprintf("%s (%s)", a.current, name)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// notify prints an informational toast.
func (a *App) notify(format string, args ...any) {
	fmt.Fprintf(a.out, "[info] "+format+"\n", args...)
}

// fail prints an error toast. Failures never end the program.
func (a *App) fail(err error) {
	msg := err.Error()
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		msg = api.Message(err)
	}
	fmt.Fprintf(a.out, "[error] %s\n", msg)
	a.log.Debug(context.Background(), "page failed", "path", a.current, "error", err)
}
