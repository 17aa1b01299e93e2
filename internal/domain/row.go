package domain

import "time"

// Column names shared between the pipeline steps and the table store.
const (
	ColEdinetCode  = "edinetCode"
	ColDocID       = "docID"
	ColPeriodStart = "periodStart"
	ColPeriodEnd   = "periodEnd"

	// SharePriceField is the synthetic input field merged into standardized
	// rows from the stock price table before ratio evaluation.
	SharePriceField = "SharePrice"
)

// StandardizedRow is one company-period observation produced by the
// standardization step. Fields maps a standardized statement field name to
// its reported value; a missing key means the filing did not report that
// field. Absent is never coerced to zero.
type StandardizedRow struct {
	EdinetCode  string
	DocID       string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Fields      map[string]float64
}

// RatioRow carries the computed ratio columns and, after the derived
// statistics passes, the rolling/growth/z-score columns for one
// company-period. A missing key in Values is an absent value.
type RatioRow struct {
	EdinetCode string
	PeriodEnd  time.Time
	Values     map[string]float64
}

func (r RatioRow) Value(column string) (float64, bool) {
	v, ok := r.Values[column]
	return v, ok
}

func (r *RatioRow) Set(column string, v float64) {
	if r.Values == nil {
		r.Values = map[string]float64{}
	}
	r.Values[column] = v
}
