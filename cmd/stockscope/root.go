package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jrsteele09/stockscope-client/credstore/filestore"
	"github.com/jrsteele09/stockscope-client/internal/config"
	"github.com/jrsteele09/stockscope-client/internal/logger"
	"github.com/jrsteele09/stockscope-client/session"
	"github.com/jrsteele09/stockscope-client/stockapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds the flags and the wired clients shared by every command.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	envFile  string
	apiURL   string
	output   string
	logLevel string
	metrics  bool

	cfg      config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	manager  *session.Manager
	api      *stockapi.Client
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "stockscope",
		Short: "StockScope command line client",
		Long: `stockscope signs in to a StockScope API and reads quotes, market data,
portfolios and watchlists. Credentials are kept between runs and refreshed
automatically when the access token expires.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["offline"] == "true" {
				return nil
			}
			return a.connect()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.writeMetrics()
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "Environment file to load")
	flags.StringVar(&a.apiURL, "api-url", "", "StockScope API base URL (overrides STOCKSCOPE_API_URL)")
	flags.StringVarP(&a.output, "output", "o", formatTable, "Output format: table, json or yaml")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	flags.BoolVar(&a.metrics, "metrics", false, "Print session metrics to stderr after the command")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.profileCmd(),
		a.quoteCmd(),
		a.searchCmd(),
		a.historyCmd(),
		a.infoCmd(),
		a.indicatorsCmd(),
		a.stocksCmd(),
		a.marketCmd(),
		a.portfoliosCmd(),
		a.watchlistsCmd(),
		a.dashboardCmd(),
		a.versionCmd(),
	)
	return root
}

// connect loads configuration and builds the session manager and API client.
func (a *app) connect() error {
	if err := validateFormat(a.output); err != nil {
		return err
	}
	if a.apiURL != "" {
		if err := os.Setenv("STOCKSCOPE_API_URL", a.apiURL); err != nil {
			return fmt.Errorf("os.Setenv: %w", err)
		}
	}
	a.cfg = config.Load(a.envFile)

	level := a.logLevel
	if level == "" {
		level = a.cfg.GetLogLevel()
	}
	a.logger = logger.Init(level, a.cfg.GetLogFormat())

	store, err := filestore.Open(a.cfg.GetCredentialFile(), a.cfg.GetStorePassphrase())
	if err != nil {
		return fmt.Errorf("filestore.Open: %w", err)
	}

	options := []session.Option{
		session.WithLogger(a.logger),
		session.WithNavigator(&terminalNavigator{out: a.errOut}),
		session.WithSessionExpiredHandler(func(e *session.SessionExpiredError) {
			a.logger.Warn().Err(e).Msg("Session expired, stored credentials cleared")
		}),
	}
	if a.metrics {
		a.registry = prometheus.NewRegistry()
		options = append(options, session.WithMetrics(session.NewMetrics(a.registry)))
	}

	manager, err := session.NewFromConfig(a.cfg, store, options...)
	if err != nil {
		return fmt.Errorf("session.NewFromConfig: %w", err)
	}
	a.manager = manager

	a.api, err = stockapi.NewClient(manager, stockapi.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("stockapi.NewClient: %w", err)
	}
	return nil
}

// writeMetrics prints the collected metrics in the prometheus text format. It runs
// only after a command succeeds.
func (a *app) writeMetrics() error {
	if a.registry == nil {
		return nil
	}
	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("prometheus.Gather: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(a.errOut, mf); err != nil {
			return fmt.Errorf("expfmt.MetricFamilyToText: %w", err)
		}
	}
	return nil
}

// terminalNavigator turns route changes into hints on stderr.
type terminalNavigator struct {
	out     io.Writer
	current string
}

var _ session.Navigator = (*terminalNavigator)(nil)

func (n *terminalNavigator) CurrentRoute() string {
	return n.current
}

func (n *terminalNavigator) Navigate(route string) {
	n.current = route
	if route == "/login" {
		fmt.Fprintln(n.out, "Sign in again with `stockscope login`.")
	}
}
