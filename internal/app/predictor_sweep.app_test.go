package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/TiagoDeMatosDias/EDINET/internal/config"
	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
	"github.com/TiagoDeMatosDias/EDINET/internal/repository"
)

func seedRatios(t *testing.T, ctx context.Context) *repository.MemoryTableStore {
	t.Helper()
	store := repository.NewMemoryTableStore()
	schema := domain.Schema{
		Columns: []domain.Column{
			{Name: domain.ColEdinetCode, Type: domain.TextColumn},
			{Name: domain.ColPeriodEnd, Type: domain.DateColumn},
			{Name: "x", Type: domain.DoubleColumn},
			{Name: "y", Type: domain.DoubleColumn},
			{Name: "z", Type: domain.DoubleColumn},
		},
		PrimaryKey: []string{domain.ColEdinetCode, domain.ColPeriodEnd},
	}
	require.NoError(t, store.CreateTable(ctx, "ratios", schema))

	xs := []float64{1, 2, 3, 4, 5, 6}
	ys := []float64{2.1, 3.9, 6.2, 7.8, 10.1, 11.9}
	records := make([]domain.Record, len(xs))
	for i := range xs {
		records[i] = domain.Record{
			domain.ColEdinetCode: "E1",
			domain.ColPeriodEnd:  time.Date(2019+i, 3, 31, 0, 0, 0, 0, time.UTC),
			"x":                  xs[i],
			"y":                  ys[i],
			"z":                  7.0,
		}
	}
	require.NoError(t, store.Upsert(ctx, "ratios", records))
	return store
}

func Test_PredictorSweepHandler(t *testing.T) {
	ctx := testContext()

	t.Run("persists results and writes the summary", func(t *testing.T) {
		store := seedRatios(t, ctx)
		summaryPath := filepath.Join(t.TempDir(), "summary.txt")

		handler := PredictorSweepHandler{Store: store}
		runID, err := handler.Run(ctx, PredictorSweepInput{
			RatiosTable:  "ratios",
			ResultsTable: "predictor_results",
			SummaryPath:  summaryPath,
			Config: config.SweepConfig{
				Alpha:              0.05,
				MinSamples:         3,
				Workers:            2,
				DependentVariables: []string{"y"},
			},
		})
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, runID)

		records, err := store.ReadAll(ctx, "predictor_results")
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, runID.String(), records[0]["run_id"])
		require.Equal(t, "x", records[0]["independent"])
		require.Equal(t, "y", records[0]["dependent"])
		require.Equal(t, "true", records[0]["significant"])

		summary, err := os.ReadFile(summaryPath)
		require.NoError(t, err)
		text := string(summary)
		require.Contains(t, text, "--- Predictor Sweep ---")
		require.Contains(t, text, runID.String())
		require.Contains(t, text, "Dependent: y")
		require.Contains(t, text, "--- Skipped Pairs ---")
		require.Contains(t, text, "zero variance")
	})

	t.Run("invalid sweep config aborts before any work", func(t *testing.T) {
		store := seedRatios(t, ctx)
		handler := PredictorSweepHandler{Store: store}
		_, err := handler.Run(ctx, PredictorSweepInput{
			RatiosTable:  "ratios",
			ResultsTable: "predictor_results",
			Config:       config.SweepConfig{Alpha: 2.0, MinSamples: 3, Workers: 1},
		})
		require.Error(t, err)
		require.IsType(t, domain.ConfigError{}, err)

		_, err = store.ReadAll(ctx, "predictor_results")
		require.Error(t, err)
	})
}

func Test_ExportHandler(t *testing.T) {
	ctx := testContext()

	store := seedRatios(t, ctx)
	handler := PredictorSweepHandler{Store: store}
	runID, err := handler.Run(ctx, PredictorSweepInput{
		RatiosTable:  "ratios",
		ResultsTable: "predictor_results",
		Config: config.SweepConfig{
			Alpha:              0.05,
			MinSamples:         3,
			Workers:            2,
			DependentVariables: []string{"y"},
		},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "results.csv")
	export := ExportHandler{Store: store}
	require.NoError(t, export.Run(ctx, ExportInput{
		ResultsTable: "predictor_results",
		Path:         path,
		RunID:        runID.String(),
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	require.Contains(t, text, "run_id")
	require.Contains(t, text, runID.String())
	require.Contains(t, text, ",x,y,")
}
