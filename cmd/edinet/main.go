package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/TiagoDeMatosDias/EDINET/internal/app"
	"github.com/TiagoDeMatosDias/EDINET/internal/logger"
)

var (
	configPath  string
	priceStart  string
	priceEnd    string
	exportRunID string
)

var rootCmd = &cobra.Command{
	Use:   "edinet",
	Short: "Financial statement ratio and predictor analysis pipeline",
	Long: `edinet computes financial ratios, derived statistics, predictor
regressions and company rankings over a standardized financial statement
table.`,
	SilenceUsage: true,
}

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Ingest daily stock prices for every configured ticker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(func(ctx context.Context, deps *dependencies) error {
			return runPrices(ctx, deps)
		})
	},
}

var ratiosCmd = &cobra.Command{
	Use:   "ratios",
	Short: "Evaluate ratio formulas and derived statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(func(ctx context.Context, deps *dependencies) error {
			return runRatios(ctx, deps)
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the univariate predictor sweep over the ratio table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(func(ctx context.Context, deps *dependencies) error {
			return runSweep(ctx, deps)
		})
	},
}

var regressCmd = &cobra.Command{
	Use:   "regress",
	Short: "Fit a multivariate OLS over a configured projection query",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(func(ctx context.Context, deps *dependencies) error {
			return runRegress(ctx, deps)
		})
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Recompute per-period company rankings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(func(ctx context.Context, deps *dependencies) error {
			return runRank(ctx, deps)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export persisted predictor results to CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(func(ctx context.Context, deps *dependencies) error {
			return runExport(ctx, deps)
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every step enabled in the config's run_steps block",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(func(ctx context.Context, deps *dependencies) error {
			steps := deps.Config.RunSteps
			if steps.Prices {
				if err := runPrices(ctx, deps); err != nil {
					return err
				}
			}
			if steps.Ratios {
				if err := runRatios(ctx, deps); err != nil {
					return err
				}
			}
			if steps.Sweep {
				if err := runSweep(ctx, deps); err != nil {
					return err
				}
			}
			if steps.Regress {
				if err := runRegress(ctx, deps); err != nil {
					return err
				}
			}
			if steps.Rank {
				if err := runRank(ctx, deps); err != nil {
					return err
				}
			}
			if steps.Export {
				if err := runExport(ctx, deps); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/run.json", "Path to the run configuration file")
	pricesCmd.Flags().StringVar(&priceStart, "start", "", "First price date (YYYY-MM-DD, default 10 years ago)")
	pricesCmd.Flags().StringVar(&priceEnd, "end", "", "Last price date (YYYY-MM-DD, default today)")
	exportCmd.Flags().StringVar(&exportRunID, "run-id", "", "Restrict the export to one sweep run")

	rootCmd.AddCommand(pricesCmd, ratiosCmd, sweepCmd, regressCmd, rankCmd, exportCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func withDeps(fn func(context.Context, *dependencies) error) error {
	deps, err := initializeDependencies(configPath)
	if err != nil {
		return err
	}
	defer deps.Close()
	ctx := context.WithValue(context.Background(), logger.ContextKey, deps.Log)
	return fn(ctx, deps)
}

func runPrices(ctx context.Context, deps *dependencies) error {
	start, end, err := priceRange()
	if err != nil {
		return err
	}
	handler := app.PriceIngestHandler{Store: deps.Store, Prices: deps.Prices}
	return handler.Run(ctx, app.PriceIngestInput{
		Table:   deps.Config.StockPriceTable,
		Tickers: deps.Config.Tickers,
		Start:   start,
		End:     end,
	})
}

func priceRange() (time.Time, time.Time, error) {
	end := time.Now().UTC()
	start := end.AddDate(-10, 0, 0)
	var err error
	if priceStart != "" {
		if start, err = time.Parse("2006-01-02", priceStart); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
		}
	}
	if priceEnd != "" {
		if end, err = time.Parse("2006-01-02", priceEnd); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
		}
	}
	return start, end, nil
}

func runRatios(ctx context.Context, deps *dependencies) error {
	handler := app.RatioPipelineHandler{Store: deps.Store, Registry: deps.Registry}
	return handler.Run(ctx, app.RatioPipelineInput{
		StandardizedTable: deps.Config.StandardizedTable,
		StockPriceTable:   deps.Config.StockPriceTable,
		OutputTable:       deps.Config.RatiosTable,
		RollingWindow:     deps.Config.RollingWindow,
		Workers:           deps.Config.Sweep.Workers,
	})
}

func runSweep(ctx context.Context, deps *dependencies) error {
	handler := app.PredictorSweepHandler{Store: deps.Store}
	runID, err := handler.Run(ctx, app.PredictorSweepInput{
		RatiosTable:  deps.Config.RatiosTable,
		ResultsTable: deps.Config.PredictorResultsTable,
		SummaryPath:  deps.Config.SweepSummaryPath,
		Config:       deps.Config.Sweep,
	})
	if err != nil {
		return err
	}
	fmt.Printf("sweep run %s complete\n", runID)
	return nil
}

func runRegress(ctx context.Context, deps *dependencies) error {
	handler := app.RegressionHandler{Store: deps.Store}
	runID, err := handler.Run(ctx, app.RegressionInput{
		Config:       deps.Config.Regression,
		ResultsTable: deps.Config.PredictorResultsTable + "_regression",
		SummaryPath:  deps.Config.RegressionSummaryPath,
	})
	if err != nil {
		return err
	}
	fmt.Printf("regression run %s complete\n", runID)
	return nil
}

func runRank(ctx context.Context, deps *dependencies) error {
	handler := app.RankingHandler{Store: deps.Store, Registry: deps.Registry}
	return handler.Run(ctx, app.RankingInput{
		RatiosTable:   deps.Config.RatiosTable,
		RankingsTable: deps.Config.RankingsTable,
	})
}

func runExport(ctx context.Context, deps *dependencies) error {
	handler := app.ExportHandler{Store: deps.Store}
	table := deps.Config.ExportTable
	if table == "" {
		table = deps.Config.PredictorResultsTable
	}
	return handler.Run(ctx, app.ExportInput{
		ResultsTable: table,
		Path:         deps.Config.ExportPath,
		RunID:        exportRunID,
	})
}
