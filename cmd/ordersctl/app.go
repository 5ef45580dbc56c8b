package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jrsteele09/go-orders-client/apiclient"
	"github.com/jrsteele09/go-orders-client/auth"
	"github.com/jrsteele09/go-orders-client/cache"
	"github.com/jrsteele09/go-orders-client/internal/config"
	ierrors "github.com/jrsteele09/go-orders-client/internal/errors"
	"github.com/jrsteele09/go-orders-client/notice"
	"github.com/jrsteele09/go-orders-client/orders"
	"github.com/jrsteele09/go-orders-client/realtime"
	"github.com/jrsteele09/go-orders-client/session"
	"github.com/jrsteele09/go-orders-client/session/repofile"
	"github.com/jrsteele09/go-orders-client/session/reporedis"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// app holds the wired client core for one command invocation.
type app struct {
	cfg      config.Config
	store    *session.Store
	notices  *notice.Bus
	api      *apiclient.Client
	auth     *auth.Service
	orders   *orders.Service
	realtime *realtime.Client
	out      io.Writer
	closers  []io.Closer

	// display receives the events the current user may see. Set it before
	// connecting the realtime client.
	display realtime.DisplayFunc
}

func newApp(c *cli.Context) (*app, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.GetEnv(), c.Bool("debug"))
	if !c.Bool("no-banner") {
		displayAppname(cfg.GetAppName())
	}

	a := &app{cfg: cfg, notices: notice.NewBus(), out: os.Stdout}

	var storeOptions []session.StoreOption
	switch cfg.GetSessionBackend() {
	case config.SessionBackendFile:
		storeOptions = append(storeOptions, session.WithRepo(repofile.New(cfg.GetDataFolder())))
	case config.SessionBackendRedis:
		repo, err := reporedis.NewFromURL(cfg.GetRedisURL(), cfg.GetAppName())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo)
		storeOptions = append(storeOptions, session.WithRepo(repo))
	}
	a.store = session.NewStore(storeOptions...)
	a.store.Restore(c.Context)

	a.notices.Subscribe(func(n notice.Notice) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Kind, n.Message)
	})

	readCache := cache.New[*apiclient.Response](
		cache.WithTTL(cfg.GetCacheTTL()),
		cache.WithMaxItems(cfg.GetCacheMaxItems()),
	)
	a.api = apiclient.New(cfg.GetAPIURL(), a.store,
		apiclient.WithTimeout(cfg.GetRequestTimeout()),
		apiclient.WithCache(readCache),
		apiclient.WithNotices(a.notices),
		apiclient.WithCSRFHeader(cfg.GetCSRFHeaderName()),
		apiclient.WithExemptPaths(cfg.GetCSRFExemptPaths()...),
	)

	endpoint, err := realtime.WebsocketURL(cfg.GetAPIURL(), cfg.GetRealtimePath())
	if err != nil {
		return nil, err
	}
	a.setupRealtime(endpoint,
		realtime.WithDialer(realtime.NewWebsocketDialer(cfg.GetHandshakeTimeout())),
		realtime.WithBaseDelay(cfg.GetReconnectBaseDelay()),
		realtime.WithMaxReconnectAttempts(cfg.GetMaxReconnectAttempts()),
		realtime.WithDebounceWindow(cfg.GetDebounceWindow()),
	)

	if a.auth, err = auth.NewService(a.api, a.store, auth.WithOnLogout(a.realtime.Disconnect)); err != nil {
		return nil, err
	}
	if a.orders, err = orders.NewService(a.api, a.store); err != nil {
		return nil, err
	}
	return a, nil
}

// setupRealtime builds the realtime client. Visible events are routed to
// a.display, filtered for the user of the stored session.
func (a *app) setupRealtime(endpoint string, options ...realtime.Option) {
	options = append(options,
		realtime.WithNotices(a.notices),
		realtime.WithViewer(func() realtime.Viewer {
			current, _ := a.store.Session()
			return realtime.ViewerOf(current)
		}),
		realtime.WithDisplay(func(event realtime.Event, toast realtime.Toast) {
			if a.display != nil {
				a.display(event, toast)
			}
		}),
	)
	a.realtime = realtime.New(endpoint, a.store, options...)
}

func (a *app) Close() {
	a.realtime.Disconnect()
	for _, closer := range a.closers {
		if err := closer.Close(); err != nil {
			log.Err(err).Msg("Failed to close")
		}
	}
}

// withApp builds the app around a command action and closes it afterwards.
func withApp(action func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := newApp(c)
		if err != nil {
			return err
		}
		defer a.Close()
		return action(c, a)
	}
}

// failure turns an error into the localized exit message shown to the user.
func failure(err error) error {
	switch {
	case ierrors.Is(err, ierrors.ErrNoSession):
		return cli.Exit("Nenhuma sessão ativa. Faça login primeiro.", 1)
	case ierrors.Is(err, ierrors.ErrSessionExpired):
		return cli.Exit("Sua sessão expirou. Por favor, faça login novamente.", 1)
	default:
		return cli.Exit(apiclient.UserMessage(err), 1)
	}
}
