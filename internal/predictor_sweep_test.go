package internal

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/TiagoDeMatosDias/EDINET/internal/config"
	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

func sweepRows() []domain.RatioRow {
	// y is a noisy linear function of x; z has zero variance
	xs := []float64{1, 2, 3, 4, 5, 6}
	ys := []float64{2.1, 3.9, 6.2, 7.8, 10.1, 11.9}
	rows := make([]domain.RatioRow, len(xs))
	for i := range xs {
		rows[i] = domain.RatioRow{
			EdinetCode: "E1",
			PeriodEnd:  time.Date(2019+i, 3, 31, 0, 0, 0, 0, time.UTC),
			Values: map[string]float64{
				"x": xs[i],
				"y": ys[i],
				"z": 7.0,
			},
		}
	}
	return rows
}

func Test_RunSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("fits every eligible pair and skips degenerate ones", func(t *testing.T) {
		cfg := config.SweepConfig{Alpha: 0.05, MinSamples: 3, Workers: 2}
		runID := uuid.New()

		out, err := RunSweep(ctx, sweepRows(), cfg, runID)
		require.NoError(t, err)
		require.Equal(t, runID, out.RunID)

		// x<->y fit both directions; every pair touching z is skipped
		require.Len(t, out.Results, 2)
		for _, r := range out.Results {
			require.Equal(t, runID, r.RunID)
			require.True(t, r.Significant)
			require.Greater(t, r.RSquared, 0.99)
			require.Equal(t, 6, r.SampleSize)
		}

		require.Len(t, out.Skipped, 4)
		for _, skip := range out.Skipped {
			require.Contains(t, skip.Reason, "zero variance")
			require.IsType(t, domain.InsufficientDataError{}, skip.Err())
		}
	})

	t.Run("configured dependents restrict the sweep", func(t *testing.T) {
		cfg := config.SweepConfig{
			Alpha:              0.05,
			MinSamples:         3,
			Workers:            2,
			DependentVariables: []string{"y"},
		}
		out, err := RunSweep(ctx, sweepRows(), cfg, uuid.New())
		require.NoError(t, err)

		require.Len(t, out.Results, 1)
		require.Equal(t, "y", out.Results[0].Dependent)
		require.Equal(t, "x", out.Results[0].Independent)

		require.Len(t, out.Skipped, 1)
		require.Equal(t, "z", out.Skipped[0].Independent)
	})

	t.Run("unknown dependent is a config error", func(t *testing.T) {
		cfg := config.SweepConfig{
			Alpha:              0.05,
			MinSamples:         3,
			Workers:            2,
			DependentVariables: []string{"nope"},
		}
		_, err := RunSweep(ctx, sweepRows(), cfg, uuid.New())
		require.Error(t, err)
		require.IsType(t, domain.ConfigError{}, err)
	})

	t.Run("pairs below min samples are skipped", func(t *testing.T) {
		rows := sweepRows()[:2]
		cfg := config.SweepConfig{Alpha: 0.05, MinSamples: 3, Workers: 2}

		out, err := RunSweep(ctx, rows, cfg, uuid.New())
		require.NoError(t, err)
		require.Empty(t, out.Results)
		require.Len(t, out.Skipped, 6)
		for _, skip := range out.Skipped {
			require.Contains(t, skip.Reason, "overlapping observations")
		}
	})

	t.Run("only overlapping present rows count", func(t *testing.T) {
		rows := sweepRows()
		// remove x from half the rows; x/y overlap drops to 3
		for i := 0; i < 3; i++ {
			delete(rows[i].Values, "x")
		}
		cfg := config.SweepConfig{
			Alpha:              0.05,
			MinSamples:         3,
			Workers:            2,
			DependentVariables: []string{"y"},
		}
		out, err := RunSweep(ctx, rows, cfg, uuid.New())
		require.NoError(t, err)
		require.Len(t, out.Results, 1)
		require.Equal(t, 3, out.Results[0].SampleSize)
	})

	t.Run("result order is deterministic", func(t *testing.T) {
		cfg := config.SweepConfig{Alpha: 0.05, MinSamples: 3, Workers: 4}

		first, err := RunSweep(ctx, sweepRows(), cfg, uuid.Nil)
		require.NoError(t, err)
		second, err := RunSweep(ctx, sweepRows(), cfg, uuid.Nil)
		require.NoError(t, err)
		require.Equal(t, first.Results, second.Results)
		require.Equal(t, first.Skipped, second.Skipped)

		sorted := sort.SliceIsSorted(first.Results, func(i, j int) bool {
			return first.Results[i].PValue <= first.Results[j].PValue
		})
		require.True(t, sorted)
	})

	t.Run("winsorization records clip bounds", func(t *testing.T) {
		cfg := config.SweepConfig{
			Alpha:      0.05,
			MinSamples: 3,
			Workers:    2,
			Winsorize:  &config.WinsorizeThresholds{Lower: 0.05, Upper: 0.95},
			DependentVariables: []string{"y"},
		}
		out, err := RunSweep(ctx, sweepRows(), cfg, uuid.New())
		require.NoError(t, err)
		require.Len(t, out.Results, 1)

		r := out.Results[0]
		require.NotNil(t, r.IndependentBounds)
		require.NotNil(t, r.DependentBounds)
		require.Less(t, r.IndependentBounds.LowerValue, r.IndependentBounds.UpperValue)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		cfg := config.SweepConfig{Alpha: 0.05, MinSamples: 3, Workers: 2}
		_, err := RunSweep(cancelled, sweepRows(), cfg, uuid.New())
		require.Error(t, err)
	})
}
