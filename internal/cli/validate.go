package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/genecheck/internal/core"
	"github.com/JonMunkholm/genecheck/internal/report"
	"github.com/JonMunkholm/genecheck/internal/table"
	"github.com/spf13/cobra"
)

// ValidateOptions holds the flags of the validate command.
type ValidateOptions struct {
	*Options

	SkipDuplicates bool
	Marker         string
	Delimiter      string
	Record         bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(opt *Options) *cobra.Command {
	o := &ValidateOptions{Options: opt}
	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "check the gene fields of one or more sources",
		Long: `validate reads each FILE ("-" for stdin), checks its gene fields and prints
the gene columns of sources that pass. Duplicate accessions are printed as
tables; pass --skip-duplicates when the duplication is intentional.

The exit status is 1 if any source fails.`,
		Example: `  validate a reference file:
  $ genecheck validate reference.csv

  accept duplicate accessions in a tab separated file:
  $ genecheck validate --skip-duplicates --delimiter tab reference.tsv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("skip-duplicates") {
				o.SkipDuplicates = o.Config.Validation.SkipDuplicates
			}
			return o.Run(cmd.Context(), args)
		},
	}

	cmd.Flags().BoolVar(&o.SkipDuplicates, "skip-duplicates", false, "do not fail on duplicate accessions (intra- or inter-genic)")
	cmd.Flags().StringVar(&o.Marker, "marker", "", "definition-row value marking gene columns (default from GENE_MARKER)")
	cmd.Flags().StringVar(&o.Delimiter, "delimiter", "", "cell delimiter: comma, semicolon, tab or a single character (default: detect)")
	cmd.Flags().BoolVar(&o.Record, "record", false, "record runs in history (requires DATABASE_URL)")
	return cmd
}

// Run validates every path in order and reports each outcome.
func (o *ValidateOptions) Run(ctx context.Context, paths []string) error {
	cfg := o.Config

	marker := o.Marker
	if marker == "" {
		marker = cfg.Validation.Marker
	}
	delimSetting := o.Delimiter
	if delimSetting == "" {
		delimSetting = cfg.Validation.Delimiter
	}
	delim, err := table.ParseDelimiter(delimSetting)
	if err != nil {
		return err
	}

	svcCfg := core.ServiceConfig{
		Validator: core.NewValidator(core.ValidatorConfig{
			Marker: marker,
			Logger: o.Logger,
			Reporter: report.NewConsole(report.Options{
				Out:     o.Out,
				Logger:  o.Logger,
				NoColor: cfg.Report.NoColor,
			}),
		}),
		Limiter: core.NewLimiter(1, 0),
		Read:    table.ReadOptions{Delimiter: delim, MaxBytes: cfg.Validation.MaxFileSize},
		Logger:  o.Logger,
	}
	if o.Record {
		runs, closeStore, err := o.openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		svcCfg.Runs = runs
	}
	svc := core.NewService(svcCfg)

	ctx = core.ContextWithOrigin(ctx, "cli")
	failed := 0
	for _, path := range paths {
		if !o.validateOne(ctx, svc, path) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d sources failed", errReported, failed, len(paths))
	}
	return nil
}

// validateOne reports whether the source at path passed.
func (o *ValidateOptions) validateOne(ctx context.Context, svc *core.Service, path string) bool {
	src, name, err := o.open(path)
	if err != nil {
		fmt.Fprintf(o.ErrOut, "%s: %v\n", path, err)
		return false
	}
	defer src.Close()

	run, err := svc.Validate(ctx, core.ValidateRequest{
		Name:             name,
		Source:           src,
		IgnoreDuplicates: o.SkipDuplicates,
	})
	if run == nil {
		fmt.Fprintf(o.ErrOut, "%s: %s\n", name, core.FormatUserError(err))
		return false
	}

	report.WriteRun(o.Out, run, o.Config.Report.NoColor)
	return err == nil
}

func (o *ValidateOptions) open(path string) (io.ReadCloser, string, error) {
	if path == "-" {
		return io.NopCloser(o.In), "stdin", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	return f, filepath.Base(path), nil
}
