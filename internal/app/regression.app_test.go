package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/TiagoDeMatosDias/EDINET/internal"
	"github.com/TiagoDeMatosDias/EDINET/internal/config"
	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
	"github.com/TiagoDeMatosDias/EDINET/internal/repository"
)

func Test_RegressionHandler(t *testing.T) {
	ctx := testContext()

	t.Run("empty query is a config error", func(t *testing.T) {
		handler := RegressionHandler{Store: repository.NewMemoryTableStore()}
		_, err := handler.Run(ctx, RegressionInput{
			Config: config.RegressionConfig{Alpha: 0.05},
		})
		require.Error(t, err)
		require.IsType(t, domain.ConfigError{}, err)
	})

	t.Run("projection failures surface as storage errors", func(t *testing.T) {
		handler := RegressionHandler{Store: repository.NewMemoryTableStore()}
		_, err := handler.Run(ctx, RegressionInput{
			Config: config.RegressionConfig{Alpha: 0.05, SQLQuery: "SELECT 1"},
		})
		require.Error(t, err)
		require.IsType(t, domain.StorageError{}, err)
	})
}

func Test_writeRegressionSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.txt")
	cfg := config.RegressionConfig{
		Alpha:    0.05,
		SQLQuery: "SELECT y, x FROM ratios",
	}
	result := &domain.RegressionResult{
		RunID:        uuid.New(),
		Dependent:    "y",
		Independents: []string{"x"},
		Coefficients: []domain.Coefficient{
			{Name: internal.InterceptName, Estimate: 0.5, StdErr: 0.39, TStat: 1.29, PValue: 0.32},
			{Name: "x", Estimate: 1.6, StdErr: 0.14, TStat: 11.31, PValue: 0.0077},
		},
		RSquared:    0.9846,
		AdjRSquared: 0.9769,
		FStat:       128,
		FPValue:     0.0077,
		SampleSize:  4,
	}

	require.NoError(t, writeRegressionSummary(path, cfg, result))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)

	require.Contains(t, text, "--- SQL Query ---")
	require.Contains(t, text, "SELECT y, x FROM ratios")
	require.Contains(t, text, "--- OLS Regression Results ---")
	require.Contains(t, text, "Dependent:     y")
	require.Contains(t, text, "--- Significance Analysis ---")
	// x is significant at alpha 0.05, the intercept is excluded
	require.Contains(t, text, "- x (P-value:")
	require.NotContains(t, text, "- const")
}
