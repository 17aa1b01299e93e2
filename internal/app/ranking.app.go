package app

import (
	"context"

	"github.com/TiagoDeMatosDias/EDINET/internal"
	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
	"github.com/TiagoDeMatosDias/EDINET/internal/logger"
	"github.com/TiagoDeMatosDias/EDINET/internal/repository"
)

// RankingHandler recomputes the per-period company rankings from scratch.
// The output table is dropped and rebuilt on every run so stale rows from a
// previous universe can never survive.
type RankingHandler struct {
	Store    repository.TableStore
	Registry *internal.FormulaRegistry
}

type RankingInput struct {
	RatiosTable   string
	RankingsTable string
}

const rankColumnPrefix = "Ranking_"

func (h RankingHandler) Run(ctx context.Context, in RankingInput) error {
	log := logger.FromContext(ctx)

	records, err := h.Store.ReadAll(ctx, in.RatiosTable)
	if err != nil {
		return err
	}
	rows := ratioRows(records)

	specs := h.Registry.RankColumns()
	rankings, err := internal.RankCompanies(rows, specs)
	if err != nil {
		return err
	}
	log.Infow("computed rankings", "rows", len(rankings), "columns", len(specs))

	if err := h.Store.DropTable(ctx, in.RankingsTable); err != nil {
		return err
	}

	columns := []domain.Column{
		{Name: domain.ColEdinetCode, Type: domain.TextColumn},
		{Name: domain.ColPeriodEnd, Type: domain.DateColumn},
		{Name: "composite", Type: domain.DoubleColumn},
		{Name: "position", Type: domain.DoubleColumn},
	}
	for _, spec := range specs {
		columns = append(columns, domain.Column{
			Name: rankColumnPrefix + spec.Name,
			Type: domain.DoubleColumn,
		})
	}
	schema := domain.Schema{
		Columns:    columns,
		PrimaryKey: []string{domain.ColEdinetCode, domain.ColPeriodEnd},
	}
	if err := h.Store.CreateTable(ctx, in.RankingsTable, schema); err != nil {
		return err
	}

	out := make([]domain.Record, 0, len(rankings))
	for _, row := range rankings {
		record := domain.Record{
			domain.ColEdinetCode: row.EdinetCode,
			domain.ColPeriodEnd:  row.PeriodEnd,
			"position":           float64(row.Position),
		}
		if row.HasComposite {
			record["composite"] = round4(row.Composite)
		}
		for col, rank := range row.Ranks {
			record[rankColumnPrefix+col] = round4(rank)
		}
		out = append(out, record)
	}
	if err := h.Store.Upsert(ctx, in.RankingsTable, out); err != nil {
		return err
	}
	log.Infow("stored rankings", "table", in.RankingsTable, "rows", len(out))
	return nil
}
