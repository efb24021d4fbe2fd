// Package dashboard loads the widgets of the StockScope landing page concurrently.
// A widget that fails transiently is shown empty; an expired session aborts the load.
package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/stockscope-client/session"
	"github.com/jrsteele09/stockscope-client/stockapi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Widget names
const (
	WidgetMarket     = "market"
	WidgetPortfolios = "portfolios"
	WidgetWatchlists = "watchlists"
)

// Source is the data the dashboard reads. *stockapi.Client implements it.
type Source interface {
	Overview(ctx context.Context) (*stockapi.MarketOverview, error)
	Portfolios(ctx context.Context) ([]stockapi.Portfolio, error)
	Watchlists(ctx context.Context) ([]stockapi.Watchlist, error)
}

var _ Source = (*stockapi.Client)(nil)

// Warning records a widget that degraded to empty.
type Warning struct {
	Widget string
	Err    error
}

type Dashboard struct {
	Market     *stockapi.MarketOverview
	Portfolios []stockapi.Portfolio
	Watchlists []stockapi.Watchlist
	Warnings   []Warning
}

// Degraded reports whether any widget could not be loaded.
func (d *Dashboard) Degraded() bool {
	return len(d.Warnings) > 0
}

type Loader struct {
	source        Source
	authenticated func() bool
	logger        zerolog.Logger
}

type Option func(*Loader)

// WithAuthCheck limits the personal widgets to signed in users. Without it every
// widget is loaded.
func WithAuthCheck(fn func() bool) Option {
	return func(l *Loader) {
		l.authenticated = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

func NewLoader(source Source, options ...Option) (*Loader, error) {
	if source == nil {
		return nil, errors.New("[NewLoader] source is required")
	}
	l := &Loader{
		source:        source,
		authenticated: func() bool { return true },
		logger:        log.Logger,
	}
	for _, opt := range options {
		opt(l)
	}
	return l, nil
}

// Load fetches every widget at once.
func (l *Loader) Load(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{}
	var lock sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	run := func(widget string, load func(context.Context) error) {
		g.Go(func() error {
			err := load(gctx)
			if err == nil {
				return nil
			}
			if errors.Is(err, session.ErrSessionExpired) || errors.Is(err, context.Canceled) {
				return err
			}
			l.logger.Warn().Err(err).Str("widget", widget).Msg("Widget unavailable")
			lock.Lock()
			d.Warnings = append(d.Warnings, Warning{Widget: widget, Err: err})
			lock.Unlock()
			return nil
		})
	}

	run(WidgetMarket, func(ctx context.Context) error {
		overview, err := l.source.Overview(ctx)
		if err != nil {
			return err
		}
		lock.Lock()
		d.Market = overview
		lock.Unlock()
		return nil
	})

	if l.authenticated() {
		run(WidgetPortfolios, func(ctx context.Context) error {
			portfolios, err := l.source.Portfolios(ctx)
			if err != nil {
				return err
			}
			lock.Lock()
			d.Portfolios = portfolios
			lock.Unlock()
			return nil
		})
		run(WidgetWatchlists, func(ctx context.Context) error {
			watchlists, err := l.source.Watchlists(ctx)
			if err != nil {
				return err
			}
			lock.Lock()
			d.Watchlists = watchlists
			lock.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
