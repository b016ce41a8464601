package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var errInvalidNumberOfArguments = errors.New("invalid number of arguments")

// NewRootCmd builds the barrel command tree.
func NewRootCmd(version string) *cobra.Command {
	var dataDir string

	rootCmd := &cobra.Command{
		Use:           "barrel",
		Short:         "Generate and insert seed data from YAML plans",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", DefaultDataDir(), "Directory holding the run history database")

	rootCmd.AddCommand(
		newSeedCmd(&dataDir),
		newPreviewCmd(&dataDir),
		newWatchCmd(&dataDir),
		newHistoryCmd(&dataDir),
		&cobra.Command{
			Use:   "mcp",
			Short: "Serve the seed tools over MCP on stdin/stdout",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ServeMCP(dataDir, version)
			},
		},
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute(version string) {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newSeedCmd(dataDir *string) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "seed <plan>",
		Short: "Generate the plan's records and insert them into its database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *dataDir, func(ctx context.Context, a *App) error {
				res, err := a.Seeds().Run(ctx, args[0], dryRun)
				if res != nil {
					if werr := writeJSON(cmd.OutOrStdout(), res); werr != nil {
						return werr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Insert into memory instead of the plan's connection")
	return cmd
}

func newPreviewCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <plan>",
		Short: "Show the batches and rows a plan would insert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *dataDir, func(ctx context.Context, a *App) error {
				res, err := a.Seeds().Preview(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newWatchCmd(dataDir *string) *cobra.Command {
	var (
		schedule string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "watch <plan>",
		Short: "Reseed whenever the plan file changes, and optionally on a cron schedule",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errInvalidNumberOfArguments
			}
			if schedule != "" {
				if _, err := cron.ParseStandard(schedule); err != nil {
					return fmt.Errorf("invalid --schedule: %w", err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *dataDir, func(ctx context.Context, a *App) error {
				return a.Seeds().Watch(ctx, args[0], schedule, dryRun)
			})
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression, e.g. \"*/15 * * * *\"")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Insert into memory instead of the plan's connection")
	return cmd
}

func newHistoryCmd(dataDir *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [plan]",
		Short: "List recent seed runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planPath := ""
			if len(args) == 1 {
				planPath = args[0]
			}
			return withApp(cmd, *dataDir, func(ctx context.Context, a *App) error {
				runs, err := a.Seeds().History(planPath, limit)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), runs)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

// withApp starts an App for the duration of fn. ctx is cancelled on SIGINT
// or SIGTERM.
func withApp(cmd *cobra.Command, dataDir string, fn func(ctx context.Context, a *App) error) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := New(dataDir)
	if err := a.Startup(ctx); err != nil {
		return err
	}
	defer a.Shutdown(context.Background())
	return fn(ctx, a)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
