package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/TiagoDeMatosDias/EDINET/internal"
	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
	"github.com/TiagoDeMatosDias/EDINET/internal/logger"
	"github.com/TiagoDeMatosDias/EDINET/internal/repository"
)

// RatioPipelineHandler evaluates every registered ratio over the
// standardized financial table and persists the result, including rolling,
// growth and cross-sectional statistics.
type RatioPipelineHandler struct {
	Store    repository.TableStore
	Registry *internal.FormulaRegistry
}

type RatioPipelineInput struct {
	StandardizedTable string
	// StockPriceTable is optional; when set, the latest price on or before
	// each row's period end is merged in as the SharePrice field.
	StockPriceTable string
	OutputTable     string
	RollingWindow   int
	Workers         int
}

func (h RatioPipelineHandler) Run(ctx context.Context, in RatioPipelineInput) error {
	log := logger.FromContext(ctx)
	if in.Workers <= 0 {
		in.Workers = 8
	}
	if in.RollingWindow < 2 {
		return domain.ConfigError{Reason: "rolling window must be at least 2"}
	}

	records, err := h.Store.ReadAll(ctx, in.StandardizedTable)
	if err != nil {
		return err
	}
	rows := standardizedRows(records)
	log.Infow("loaded standardized rows", "table", in.StandardizedTable, "rows", len(rows))

	if in.StockPriceTable != "" {
		merged, err := h.mergeSharePrices(ctx, in.StockPriceTable, rows)
		if err != nil {
			return err
		}
		log.Infow("merged share prices", "rows", merged)
	}

	ratioRows := h.evaluate(ctx, rows, in.Workers)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	names := h.Registry.Names()
	byCompany := map[string][]domain.RatioRow{}
	for _, row := range ratioRows {
		byCompany[row.EdinetCode] = append(byCompany[row.EdinetCode], row)
	}
	codes := make([]string, 0, len(byCompany))
	for code := range byCompany {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	all := make([]*domain.RatioRow, 0, len(ratioRows))
	for _, code := range codes {
		series := byCompany[code]
		internal.ComputeTimeSeriesStats(series, names, in.RollingWindow)
		for i := range series {
			all = append(all, &series[i])
		}
	}
	internal.ComputeCrossSectionStats(all, names)

	out := make([]domain.RatioRow, len(all))
	for i, row := range all {
		out[i] = *row
	}
	if err := h.persist(ctx, in.OutputTable, out); err != nil {
		return err
	}
	log.Infow("stored ratio rows", "table", in.OutputTable, "rows", len(out))
	return nil
}

// evaluate fans rows out to a fixed pool of workers. Rows are independent
// until the statistics passes, so order is restored afterwards by sorting.
func (h RatioPipelineHandler) evaluate(ctx context.Context, rows []domain.StandardizedRow, workers int) []domain.RatioRow {
	rowCh := make(chan domain.StandardizedRow, len(rows))
	outCh := make(chan domain.RatioRow, len(rows))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rowCh {
				select {
				case <-ctx.Done():
					return
				default:
				}
				outCh <- internal.EvaluateRow(row, h.Registry)
			}
		}()
	}
	for _, row := range rows {
		rowCh <- row
	}
	close(rowCh)
	wg.Wait()
	close(outCh)

	out := make([]domain.RatioRow, 0, len(rows))
	for row := range outCh {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EdinetCode != out[j].EdinetCode {
			return out[i].EdinetCode < out[j].EdinetCode
		}
		return out[i].PeriodEnd.Before(out[j].PeriodEnd)
	})
	return out
}

func (h RatioPipelineHandler) mergeSharePrices(ctx context.Context, table string, rows []domain.StandardizedRow) (int, error) {
	records, err := h.Store.ReadAll(ctx, table)
	if err != nil {
		return 0, err
	}

	type pricePoint struct {
		date  time.Time
		price float64
	}
	byCode := map[string][]pricePoint{}
	for _, record := range records {
		code, okCode := record[domain.ColEdinetCode]
		date, okDate := recordTime(record["date"])
		price, okPrice := recordFloat(record["price"])
		if !okCode || !okDate || !okPrice {
			continue
		}
		key := recordString(code)
		byCode[key] = append(byCode[key], pricePoint{date: date, price: price})
	}
	for _, points := range byCode {
		sort.Slice(points, func(i, j int) bool { return points[i].date.Before(points[j].date) })
	}

	merged := 0
	for i := range rows {
		points := byCode[rows[i].EdinetCode]
		// latest price dated on or before the period end
		idx := sort.Search(len(points), func(j int) bool {
			return points[j].date.After(rows[i].PeriodEnd)
		})
		if idx == 0 {
			continue
		}
		rows[i].Fields[domain.SharePriceField] = points[idx-1].price
		merged++
	}
	return merged, nil
}

func (h RatioPipelineHandler) persist(ctx context.Context, table string, rows []domain.RatioRow) error {
	columns := []domain.Column{
		{Name: domain.ColEdinetCode, Type: domain.TextColumn},
		{Name: domain.ColPeriodEnd, Type: domain.DateColumn},
	}
	for _, col := range sortedValueColumns(rows) {
		columns = append(columns, domain.Column{Name: col, Type: domain.DoubleColumn})
	}
	schema := domain.Schema{
		Columns:    columns,
		PrimaryKey: []string{domain.ColEdinetCode, domain.ColPeriodEnd},
	}
	if err := h.Store.CreateTable(ctx, table, schema); err != nil {
		return err
	}

	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, ratioRecord(row))
	}
	return h.Store.Upsert(ctx, table, records)
}
