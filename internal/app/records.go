package app

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

const dateLayout = "2006-01-02"

// identityColumns are never treated as numeric inputs or ratio values.
var identityColumns = map[string]bool{
	domain.ColEdinetCode:  true,
	domain.ColDocID:       true,
	domain.ColPeriodStart: true,
	domain.ColPeriodEnd:   true,
}

func recordTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		if parsed, err := time.Parse(dateLayout, t); err == nil {
			return parsed.UTC(), true
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

func recordFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func recordString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// standardizedRows converts stored records into StandardizedRows. Rows
// without an identity are dropped; non-numeric field cells stay absent.
func standardizedRows(records []domain.Record) []domain.StandardizedRow {
	out := make([]domain.StandardizedRow, 0, len(records))
	for _, record := range records {
		code, okCode := record[domain.ColEdinetCode]
		end, okEnd := recordTime(record[domain.ColPeriodEnd])
		if !okCode || !okEnd {
			continue
		}

		row := domain.StandardizedRow{
			EdinetCode: recordString(code),
			PeriodEnd:  end,
			Fields:     map[string]float64{},
		}
		if v, ok := record[domain.ColDocID]; ok {
			row.DocID = recordString(v)
		}
		if start, ok := recordTime(record[domain.ColPeriodStart]); ok {
			row.PeriodStart = start
		}
		for col, v := range record {
			if identityColumns[col] {
				continue
			}
			if f, ok := recordFloat(v); ok {
				row.Fields[col] = f
			}
		}
		out = append(out, row)
	}
	return out
}

// ratioRows converts stored ratio-table records back into RatioRows.
func ratioRows(records []domain.Record) []domain.RatioRow {
	out := make([]domain.RatioRow, 0, len(records))
	for _, record := range records {
		code, okCode := record[domain.ColEdinetCode]
		end, okEnd := recordTime(record[domain.ColPeriodEnd])
		if !okCode || !okEnd {
			continue
		}

		row := domain.RatioRow{
			EdinetCode: recordString(code),
			PeriodEnd:  end,
			Values:     map[string]float64{},
		}
		for col, v := range record {
			if identityColumns[col] {
				continue
			}
			if f, ok := recordFloat(v); ok {
				row.Values[col] = f
			}
		}
		out = append(out, row)
	}
	return out
}

// ratioRecord flattens a RatioRow for storage, rounding every value to four
// decimal places.
func ratioRecord(row domain.RatioRow) domain.Record {
	record := domain.Record{
		domain.ColEdinetCode: row.EdinetCode,
		domain.ColPeriodEnd:  row.PeriodEnd,
	}
	for col, v := range row.Values {
		record[col] = round4(v)
	}
	return record
}

func round4(v float64) float64 {
	return decimal.NewFromFloat(v).Round(4).InexactFloat64()
}

// sortedValueColumns returns the union of value columns across rows in
// sorted order, for deterministic schemas and output.
func sortedValueColumns(rows []domain.RatioRow) []string {
	set := map[string]bool{}
	for _, row := range rows {
		for col := range row.Values {
			set[col] = true
		}
	}
	out := make([]string, 0, len(set))
	for col := range set {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}
