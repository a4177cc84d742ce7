package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/api"
	apiconfig "github.com/clenisa/discounted-cashflow-analysis/pkg/api/config"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/currency"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/store"
)

type serveCmd struct {
	cli  *CLI
	addr string
}

func (cli *CLI) newServeCmd() *cobra.Command {
	sc := &serveCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  sc.run,
	}
	cmd.Flags().StringVar(&sc.addr, "addr", "", "Listen address (overrides server.host and server.port)")
	return cmd
}

func (sc *serveCmd) run(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := sc.cli.loadConfig()
	if err != nil {
		return err
	}
	display, err := currency.Parse(cfg.DisplayCurrency)
	if err != nil {
		return err
	}
	rates, err := cfg.RateTable()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close store")
		}
	}()

	addr := sc.addr
	if addr == "" {
		addr = cfg.Addr()
	}
	logger.Info().
		Str("store", cfg.Store.Driver).
		Str("display_currency", string(display)).
		Msg("configuration loaded")

	web := api.NewWebAPI(logger, api.Config{
		Addr:            addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Dependencies: api.Dependencies{
			Store:    s,
			Rates:    rates,
			Settings: apiconfig.NewSettings(display, cfg.Store.Driver),
		},
	})
	return web.Start(ctx)
}
