package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JonMunkholm/genecheck/internal/core"
	"github.com/JonMunkholm/genecheck/internal/report"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// RunsOptions holds the flags of the runs command.
type RunsOptions struct {
	*Options

	Limit int
	JSON  bool
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(opt *Options) *cobra.Command {
	o := &RunsOptions{Options: opt}
	cmd := &cobra.Command{
		Use:   "runs [ID]",
		Short: "list recorded validation runs, or show one",
		Example: `  list the ten most recent runs:
  $ genecheck runs --limit 10

  show one run as JSON:
  $ genecheck runs --json 6f1c2c9e-8f55-4a44-9b0e-3c4b1f0a9d11`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd.Context(), args)
		},
	}
	cmd.Flags().IntVar(&o.Limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().BoolVar(&o.JSON, "json", false, "print JSON instead of a table")
	return cmd
}

// Run lists runs, or shows the run named by args[0].
func (o *RunsOptions) Run(ctx context.Context, args []string) error {
	var id uuid.UUID
	if len(args) == 1 {
		var err error
		if id, err = uuid.Parse(args[0]); err != nil {
			return fmt.Errorf("%w: malformed run id %q", core.ErrInvalidRequest, args[0])
		}
	}

	runs, closeStore, err := o.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if len(args) == 1 {
		run, err := runs.Get(ctx, id)
		if err != nil {
			return err
		}
		if o.JSON {
			return o.printJSON(run)
		}
		report.WriteRun(o.Out, run, o.Config.Report.NoColor)
		return nil
	}

	list, err := runs.List(ctx, o.Limit)
	if err != nil {
		return err
	}
	if o.JSON {
		return o.printJSON(list)
	}
	report.WriteRuns(o.Out, list, time.Now())
	return nil
}

func (o *RunsOptions) printJSON(v any) error {
	enc := json.NewEncoder(o.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(opt *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create the run history table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runs, closeStore, err := opt.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := runs.Migrate(ctx); err != nil {
				return err
			}
			opt.Logger.Info("run history migrated")
			fmt.Fprintln(opt.Out, "migrated")
			return nil
		},
	}
}
