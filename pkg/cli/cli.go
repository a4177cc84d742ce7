// Package cli implements the dcf command line.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/config"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/currency"
)

// CLI represents the command-line interface
type CLI struct {
	out     io.Writer
	errOut  io.Writer
	cfgPath string
	rootCmd *cobra.Command
}

// Options configure where the CLI writes.
type Options struct {
	Output io.Writer
	Error  io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Error == nil {
		opts.Error = os.Stderr
	}
	cli := &CLI{out: opts.Output, errOut: opts.Error}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.ExecuteContext(context.Background())
}

func (cli *CLI) ExecuteContext(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

// SetArgs overrides os.Args, for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dcf",
		Short:         "Discounted cash flow valuation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(cli.out)
	cmd.SetErr(cli.errOut)
	cmd.PersistentFlags().StringVarP(&cli.cfgPath, "config", "c", config.DefaultPath, "Path to the YAML config file")

	cmd.AddCommand(cli.newValueCmd())
	cmd.AddCommand(cli.newCompareCmd())
	cmd.AddCommand(cli.newDeriveCmd())
	cmd.AddCommand(cli.newWACCCmd())
	cmd.AddCommand(cli.newPresetsCmd())
	cmd.AddCommand(cli.newServeCmd())
	return cmd
}

// loadConfig reads the config and returns it with a logger writing to stderr
// at the configured level.
func (cli *CLI) loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(cli.cfgPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := zerolog.New(cli.errOut).Level(cfg.Level()).With().Timestamp().Logger()
	return cfg, logger, nil
}

// rateTable builds the configured rates, with an optional override for one
// pair.
func rateTable(cfg *config.Config, from, to currency.Currency, override float64) (*currency.RateTable, error) {
	table, err := cfg.RateTable()
	if err != nil {
		return nil, err
	}
	if override != 0 && from != "" && from != to {
		if err := table.Update(from, to, override); err != nil {
			return nil, err
		}
	}
	return table, nil
}
