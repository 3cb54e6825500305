// cmd/streamwatch/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/twi-data/streamwatch-ingress/pkg/config"
	"github.com/twi-data/streamwatch-ingress/pkg/importer"
	"github.com/twi-data/streamwatch-ingress/pkg/store"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	flagDataDir  string
	flagRowLimit int
	flagReplace  bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "streamwatch",
		Short: "Import StreamWatch monitoring spreadsheets into a relational database",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Missing .env is fine, env vars may be set directly
			_ = godotenv.Load()

			var err error
			cfg, err = config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logger, err = config.NewLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	root.AddCommand(initCmd(), importCmd(), statusCmd())
	return root
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the destination schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			st, err := store.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("Schema ready", zap.String("driver", st.Driver()))
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [dataset]",
		Short: "Import one dataset, or all of them",
		Long: "Import reads the named dataset's workbook, classifies its columns,\n" +
			"normalizes and quality-annotates every row, and bulk-inserts the\n" +
			"result. With no argument (or \"all\") every dataset runs in order.\n\n" +
			"Datasets: " + fmt.Sprint(importer.DatasetNames()),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			datasets := importer.DefaultDatasets()
			if len(args) == 1 && args[0] != "all" {
				ds, err := importer.DatasetByName(args[0])
				if err != nil {
					return err
				}
				datasets = []importer.Dataset{ds}
			}

			st, err := store.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(ctx); err != nil {
				return err
			}

			imp := importer.New(st, cfg,
				importer.WithDataDir(flagDataDir),
				importer.WithRowLimit(flagRowLimit),
				importer.WithReplace(flagReplace))

			summary, err := imp.Run(ctx, datasets)
			if err != nil {
				return err
			}

			printSummary(summary)
			if len(summary.FailedDatasets) > 0 {
				return fmt.Errorf("%d of %d datasets failed", len(summary.FailedDatasets), len(summary.Results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagDataDir, "data-dir", "", "directory holding the source workbooks (default from config)")
	cmd.Flags().IntVar(&flagRowLimit, "limit", 0, "maximum data rows to read per sheet (default from config)")
	cmd.Flags().BoolVar(&flagReplace, "replace", false, "clear each destination table before importing")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print row counts for every data table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			st, err := store.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			fmt.Printf("%-28s %10s\n", "TABLE", "ROWS")
			for _, table := range store.DataTables {
				count, err := st.CountRows(ctx, table)
				if err != nil {
					fmt.Printf("%-28s %10s\n", table, "-")
					continue
				}
				fmt.Printf("%-28s %10d\n", table, count)
			}
			return nil
		},
	}
}

func printSummary(s *importer.RunSummary) {
	fmt.Printf("\nRun %s finished in %s\n", s.RunID, s.Duration.Round(time.Millisecond))
	fmt.Printf("%-28s %8s %8s %8s %8s %7s\n", "DATASET", "READ", "SKIPPED", "BUILT", "WRITTEN", "ERRORS")
	for _, r := range s.Results {
		fmt.Printf("%-28s %8d %8d %8d %8d %7d\n",
			r.Dataset, r.RowsRead, r.RowsSkipped, r.RowsBuilt, r.RowsImported, r.ErrorCount())
	}
	fmt.Printf("%-28s %8d %8d %17d %7d\n", "TOTAL",
		s.TotalRowsRead, s.TotalRowsSkipped, s.TotalRowsImported, s.TotalErrors)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
