package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/riksdag-client/pkg/logging"
	"github.com/Sternrassler/riksdag-client/pkg/metrics"
	"github.com/Sternrassler/riksdag-client/pkg/pagination"
	"github.com/Sternrassler/riksdag-client/pkg/riksdag"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	cfgFile  string
	settings settings
	logger   zerolog.Logger
	api      *riksdag.API

	stopMetrics context.CancelFunc
	metricsDone chan error

	// apiOptions is appended to the options of riksdag.New.
	apiOptions []riksdag.Option
}

func newRootCmd(opts ...riksdag.Option) *cobra.Command {
	a := &app{apiOptions: opts}

	root := &cobra.Command{
		Use:   "riksdag",
		Short: "Search the Swedish Parliament open data API",
		Long: `riksdag queries data.riksdagen.se: documents and motions, members and
roll-call votes. Results are paged through transparently and written as JSON
lines or CSV.`,
		Version:            version,
		SilenceUsage:       true,
		PersistentPreRunE:  a.initialize,
		PersistentPostRunE: a.shutdown,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML config file")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (json, console, auto)")
	pf.String("base-url", "", "API base URL")
	pf.String("redis-url", "", "Redis URL of the page cache, e.g. redis://localhost:6379/0")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address while running")

	root.AddCommand(
		newDocumentsCmd(a, "documents", "Search documents", ""),
		newDocumentsCmd(a, "motions", "Search motions", "mot"),
		newPersonsCmd(a),
		newVotesCmd(a),
		newTextCmd(a),
	)
	return root
}

// initialize loads the configuration, sets up logging and builds the API.
func (a *app) initialize(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(a.cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.settings = s

	s.Log.Output = cmd.ErrOrStderr()
	logging.Setup(s.Log)
	a.logger = logging.NewLogger("cli")

	opts := append([]riksdag.Option{riksdag.WithProgress(a.logProgress)}, a.apiOptions...)
	a.api, err = riksdag.New(s.API, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if s.MetricsAddr != "" {
		ctx, cancel := context.WithCancel(cmd.Context())
		a.stopMetrics = cancel
		a.metricsDone = make(chan error, 1)
		go func() {
			a.metricsDone <- metrics.Serve(ctx, s.MetricsAddr, logging.NewLogger("metrics"))
		}()
	}
	return nil
}

func (a *app) shutdown(_ *cobra.Command, _ []string) error {
	if a.stopMetrics != nil {
		a.stopMetrics()
		if err := <-a.metricsDone; err != nil {
			a.logger.Warn().Err(err).Msg("Metrics server failed")
		}
	}
	if a.api != nil {
		return a.api.Close()
	}
	return nil
}

func (a *app) logProgress(p pagination.PageProgress) {
	a.logger.Info().
		Str("fetch_id", p.FetchID).
		Int("page", p.Page).
		Int("total_pages", p.TotalPages).
		Int("total_hits", p.TotalHits).
		Int("delivered", p.Delivered).
		Msg("Fetched page")
}
