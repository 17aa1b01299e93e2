package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
	"github.com/TiagoDeMatosDias/EDINET/internal/logger"
	"github.com/TiagoDeMatosDias/EDINET/internal/repository"
)

// PriceIngestHandler pulls daily adjusted closes for every mapped ticker
// and upserts them into the stock price table.
type PriceIngestHandler struct {
	Store  repository.TableStore
	Prices repository.StockPriceRepository
}

type PriceIngestInput struct {
	Table string
	// Tickers maps EDINET codes to exchange symbols.
	Tickers map[string]string
	Start   time.Time
	End     time.Time
}

func (h PriceIngestHandler) Run(ctx context.Context, in PriceIngestInput) error {
	log := logger.FromContext(ctx)
	if len(in.Tickers) == 0 {
		return domain.ConfigError{Reason: "price ingestion requires at least one ticker mapping"}
	}
	if err := h.Store.CreateTable(ctx, in.Table, repository.StockPriceTableSchema()); err != nil {
		return err
	}

	codes := make([]string, 0, len(in.Tickers))
	for code := range in.Tickers {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var failures []error
	inserted := 0
	for _, code := range codes {
		symbol := in.Tickers[code]
		prices, err := h.Prices.ListDaily(symbol, in.Start, in.End)
		if err != nil {
			log.Warnw("failed to list prices", "symbol", symbol, "edinetCode", code, "error", err)
			failures = append(failures, fmt.Errorf("list %s: %w", symbol, err))
			continue
		}
		records := make([]domain.Record, 0, len(prices))
		for _, p := range prices {
			records = append(records, domain.Record{
				"symbol":             p.Symbol,
				"date":               p.Date,
				"price":              p.Price,
				domain.ColEdinetCode: code,
			})
		}
		if err := h.Store.Upsert(ctx, in.Table, records); err != nil {
			return err
		}
		inserted += len(records)
	}

	log.Infow("ingested stock prices", "symbols", len(codes), "rows", inserted, "failed", len(failures))
	if len(failures) == len(codes) {
		return fmt.Errorf("all %d symbols failed, first error: %w", len(codes), failures[0])
	}
	return nil
}
