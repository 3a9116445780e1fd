// Package cli implements the genecheck command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JonMunkholm/genecheck/internal/config"
	"github.com/JonMunkholm/genecheck/internal/core"
	"github.com/JonMunkholm/genecheck/internal/logging"
	"github.com/JonMunkholm/genecheck/internal/store"
	"github.com/spf13/cobra"
)

// errReported marks errors whose details were already written to the user.
var errReported = errors.New("reported")

// IOStreams are the standard streams a command reads and writes.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// StdIOStreams returns the process streams.
func StdIOStreams() IOStreams {
	return IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr}
}

// HistoryStore is the run history the CLI reads and writes.
type HistoryStore interface {
	core.RunStore
	Migrate(ctx context.Context) error
}

// StoreOpener connects to run history. The returned func releases it.
type StoreOpener func(ctx context.Context, cfg config.DatabaseConfig) (HistoryStore, func(), error)

// OpenPostgres is the default StoreOpener.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (HistoryStore, func(), error) {
	pool, err := store.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return store.NewRunStore(pool), pool.Close, nil
}

// Options is shared by every subcommand.
type Options struct {
	IOStreams
	OpenStore StoreOpener

	NoColor  bool
	LogLevel string

	Config *config.Config
	Logger *slog.Logger
}

// complete loads configuration and the logger. Logs go to ErrOut so that
// reports on Out stay clean.
func (o *Options) complete(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("no-color") {
		cfg.Report.NoColor = o.NoColor
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	o.Config = cfg
	o.Logger = logging.New(o.ErrOut, cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

// openStore connects to history or reports that it is disabled.
func (o *Options) openStore(ctx context.Context) (HistoryStore, func(), error) {
	if !o.Config.Database.Enabled() {
		return nil, nil, fmt.Errorf("%w: set DATABASE_URL", core.ErrHistoryDisabled)
	}
	return o.OpenStore(ctx, o.Config.Database)
}

// NewRootCommand builds the genecheck command tree.
func NewRootCommand(streams IOStreams, openStore StoreOpener) *cobra.Command {
	if openStore == nil {
		openStore = OpenPostgres
	}
	opt := &Options{IOStreams: streams, OpenStore: openStore}

	cmd := &cobra.Command{
		Use:   "genecheck",
		Short: "validate gene fields of reference sources",
		Long: `genecheck checks the gene columns of delimited reference sources.

A source has a header row, a definition row marking gene columns, and content
rows. Gene column names must be LOC-NAME (e.g. ABC-1). Accessions may not be
duplicated within a gene or across genes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opt.complete(cmd)
		},
	}
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)

	cmd.PersistentFlags().BoolVar(&opt.NoColor, "no-color", false, "disable colorized output")
	cmd.PersistentFlags().StringVar(&opt.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		NewValidateCommand(opt),
		NewRunsCommand(opt),
		NewMigrateCommand(opt),
	)
	return cmd
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, streams IOStreams, args []string) int {
	cmd := NewRootCommand(streams, nil)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			printError(streams.ErrOut, err)
		}
		return 1
	}
	return 0
}

// printError writes err with its user message when one applies.
func printError(w io.Writer, err error) {
	if core.IsUserFacing(err) {
		fmt.Fprintf(w, "error: %s\n%s\n", err, core.FormatUserError(err))
		return
	}
	fmt.Fprintf(w, "error: %s\n", err)
}
