package app

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TiagoDeMatosDias/EDINET/internal"
	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
	"github.com/TiagoDeMatosDias/EDINET/internal/repository"
)

func Test_RankingHandler(t *testing.T) {
	ctx := testContext()

	reg, err := internal.LoadRatioRules(strings.NewReader(`{
		"CurrentRatio": {"formula": "currentAssets / currentLiabilities"}
	}`), internal.KnownFields())
	require.NoError(t, err)

	seed := func(t *testing.T) *repository.MemoryTableStore {
		t.Helper()
		store := repository.NewMemoryTableStore()
		schema := domain.Schema{
			Columns: []domain.Column{
				{Name: domain.ColEdinetCode, Type: domain.TextColumn},
				{Name: domain.ColPeriodEnd, Type: domain.DateColumn},
				{Name: "CurrentRatio", Type: domain.DoubleColumn},
			},
			PrimaryKey: []string{domain.ColEdinetCode, domain.ColPeriodEnd},
		}
		require.NoError(t, store.CreateTable(ctx, "ratios", schema))
		require.NoError(t, store.Upsert(ctx, "ratios", []domain.Record{
			{
				domain.ColEdinetCode: "E1",
				domain.ColPeriodEnd:  time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
				"CurrentRatio":       2.0,
			},
			{
				domain.ColEdinetCode: "E2",
				domain.ColPeriodEnd:  time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
				"CurrentRatio":       1.0,
			},
		}))
		return store
	}

	t.Run("ranks companies within each period", func(t *testing.T) {
		store := seed(t)
		handler := RankingHandler{Store: store, Registry: reg}
		require.NoError(t, handler.Run(ctx, RankingInput{
			RatiosTable:   "ratios",
			RankingsTable: "rankings",
		}))

		records, err := store.ReadAll(ctx, "rankings")
		require.NoError(t, err)
		require.Len(t, records, 2)

		require.Equal(t, "E1", records[0][domain.ColEdinetCode])
		require.Equal(t, 1.0, records[0]["position"])
		require.Equal(t, 0.5, records[0]["Ranking_CurrentRatio"])
		require.Equal(t, 0.5, records[0]["composite"])

		require.Equal(t, "E2", records[1][domain.ColEdinetCode])
		require.Equal(t, 2.0, records[1]["position"])
		require.Equal(t, 1.0, records[1]["Ranking_CurrentRatio"])
	})

	t.Run("rankings are fully recomputed on rerun", func(t *testing.T) {
		store := seed(t)
		handler := RankingHandler{Store: store, Registry: reg}
		require.NoError(t, handler.Run(ctx, RankingInput{RatiosTable: "ratios", RankingsTable: "rankings"}))

		// shrink the universe; the stale E2 row must not survive
		require.NoError(t, store.DropTable(ctx, "ratios"))
		require.NoError(t, store.CreateTable(ctx, "ratios", domain.Schema{
			Columns: []domain.Column{
				{Name: domain.ColEdinetCode, Type: domain.TextColumn},
				{Name: domain.ColPeriodEnd, Type: domain.DateColumn},
				{Name: "CurrentRatio", Type: domain.DoubleColumn},
			},
			PrimaryKey: []string{domain.ColEdinetCode, domain.ColPeriodEnd},
		}))
		require.NoError(t, store.Upsert(ctx, "ratios", []domain.Record{
			{
				domain.ColEdinetCode: "E1",
				domain.ColPeriodEnd:  time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
				"CurrentRatio":       2.0,
			},
		}))

		require.NoError(t, handler.Run(ctx, RankingInput{RatiosTable: "ratios", RankingsTable: "rankings"}))
		records, err := store.ReadAll(ctx, "rankings")
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, "E1", records[0][domain.ColEdinetCode])
	})

	t.Run("missing ratio table is a storage error", func(t *testing.T) {
		handler := RankingHandler{Store: repository.NewMemoryTableStore(), Registry: reg}
		err := handler.Run(ctx, RankingInput{RatiosTable: "nope", RankingsTable: "rankings"})
		require.Error(t, err)
		require.IsType(t, domain.StorageError{}, err)
	})
}
