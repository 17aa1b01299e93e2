package repository

import (
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

// StockPrice is one daily closing price for an exchange symbol.
type StockPrice struct {
	Symbol string
	Date   time.Time
	Price  float64
}

// StockPriceRepository is the stock price collaborator: retrieval only,
// no statements about storage. Retry/backoff is the provider's problem.
type StockPriceRepository interface {
	ListDaily(symbol string, start, end time.Time) ([]StockPrice, error)
}

type yahooStockPriceRepository struct{}

func NewStockPriceRepository() StockPriceRepository {
	return yahooStockPriceRepository{}
}

func (yahooStockPriceRepository) ListDaily(symbol string, start, end time.Time) ([]StockPrice, error) {
	params := &chart.Params{
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Symbol:   symbol,
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	prices := []StockPrice{}
	for iter.Next() {
		prices = append(prices, StockPrice{
			Symbol: symbol,
			Date:   time.Unix(int64(iter.Bar().Timestamp), 0).UTC(),
			Price:  iter.Bar().AdjClose.InexactFloat64(),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get prices for %s: %w", symbol, err)
	}

	return prices, nil
}

// StockPriceTableSchema is the stored shape of the stock price table.
func StockPriceTableSchema() domain.Schema {
	return domain.Schema{
		Columns: []domain.Column{
			{Name: "symbol", Type: domain.TextColumn},
			{Name: "date", Type: domain.DateColumn},
			{Name: "price", Type: domain.DoubleColumn},
			{Name: domain.ColEdinetCode, Type: domain.TextColumn},
		},
		PrimaryKey: []string{"symbol", "date"},
	}
}
