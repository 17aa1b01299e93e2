package internal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

func Test_LoadRatioRules(t *testing.T) {
	fields := []string{"currentAssets", "currentLiabilities", "netIncome", "netSales"}

	t.Run("loads rules and applies defaults", func(t *testing.T) {
		rules := `{
			"CurrentRatio": {"formula": "currentAssets / currentLiabilities"},
			"NetMargin": {"formula": "netIncome / netSales", "direction_higher_is_better": false, "weight": 2.5, "category": "profitability"}
		}`
		reg, err := LoadRatioRules(strings.NewReader(rules), fields)
		require.NoError(t, err)

		require.Equal(t, []string{"CurrentRatio", "NetMargin"}, reg.Names())

		cr, ok := reg.Get("CurrentRatio")
		require.True(t, ok)
		require.True(t, cr.HigherIsBetter)
		require.Equal(t, 1.0, cr.Weight)

		nm, ok := reg.Get("NetMargin")
		require.True(t, ok)
		require.False(t, nm.HigherIsBetter)
		require.Equal(t, 2.5, nm.Weight)
		require.Equal(t, "profitability", nm.Category)
	})

	t.Run("rejects duplicate ratio names", func(t *testing.T) {
		rules := `{
			"CurrentRatio": {"formula": "currentAssets / currentLiabilities"},
			"CurrentRatio": {"formula": "netIncome / netSales"}
		}`
		_, err := LoadRatioRules(strings.NewReader(rules), fields)
		require.Error(t, err)
		require.IsType(t, domain.ConfigError{}, err)
		require.Contains(t, err.Error(), "duplicate")
	})

	t.Run("rejects unknown field references at load time", func(t *testing.T) {
		rules := `{"Bogus": {"formula": "currentAssets / totalLiabilities"}}`
		_, err := LoadRatioRules(strings.NewReader(rules), fields)
		require.Error(t, err)
		require.IsType(t, domain.ConfigError{}, err)
	})

	t.Run("rejects malformed formulas", func(t *testing.T) {
		rules := `{"Broken": {"formula": "currentAssets / / netSales"}}`
		_, err := LoadRatioRules(strings.NewReader(rules), fields)
		require.Error(t, err)
		require.IsType(t, domain.ConfigError{}, err)
	})

	t.Run("rejects empty formulas", func(t *testing.T) {
		rules := `{"Empty": {"formula": ""}}`
		_, err := LoadRatioRules(strings.NewReader(rules), fields)
		require.Error(t, err)
	})

	t.Run("rejects non-positive weights", func(t *testing.T) {
		rules := `{"Zero": {"formula": "netIncome / netSales", "weight": 0}}`
		_, err := LoadRatioRules(strings.NewReader(rules), fields)
		require.Error(t, err)
		require.IsType(t, domain.ConfigError{}, err)
	})

	t.Run("rejects non-object rules documents", func(t *testing.T) {
		_, err := LoadRatioRules(strings.NewReader(`[1, 2]`), fields)
		require.Error(t, err)
	})
}

func Test_RankColumns(t *testing.T) {
	rules := `{
		"B": {"formula": "netIncome / netSales", "weight": 2.0},
		"A": {"formula": "currentAssets / currentLiabilities", "direction_higher_is_better": false}
	}`
	reg, err := LoadRatioRules(strings.NewReader(rules), []string{"currentAssets", "currentLiabilities", "netIncome", "netSales"})
	require.NoError(t, err)

	cols := reg.RankColumns()
	require.Len(t, cols, 2)
	require.Equal(t, "A", cols[0].Name)
	require.False(t, cols[0].HigherIsBetter)
	require.Equal(t, "B", cols[1].Name)
	require.Equal(t, 2.0, cols[1].Weight)
}
