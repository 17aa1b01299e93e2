package internal

import (
	"math"

	"github.com/maja42/goval"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

// machineEpsilon is the float64 relative rounding unit. Field values closer
// to zero than this are indistinguishable from zero for division purposes.
const machineEpsilon = 2.220446049250313e-16

// EvaluateRow computes every registered ratio for one company-period row.
// A ratio is absent (not zero, not an error) when any referenced field is
// missing from the row, and absent when the arithmetic is undefined for the
// row's values: denominators within machine epsilon of zero are snapped to
// exactly zero before evaluation, so the division lands on Inf/NaN and is
// rejected rather than producing a garbage magnitude.
//
// EvaluateRow shares no state across rows, so callers may fan rows out over
// a worker pool freely.
func EvaluateRow(row domain.StandardizedRow, reg *FormulaRegistry) domain.RatioRow {
	eval := goval.NewEvaluator()

	variables := make(map[string]interface{}, len(row.Fields))
	for field, v := range row.Fields {
		if math.Abs(v) < machineEpsilon {
			v = 0
		}
		variables[field] = v
	}

	out := domain.RatioRow{
		EdinetCode: row.EdinetCode,
		PeriodEnd:  row.PeriodEnd,
		Values:     make(map[string]float64, len(reg.names)),
	}

	for _, def := range reg.Definitions() {
		result, err := eval.Evaluate(def.Formula, variables, nil)
		if err != nil {
			// A referenced field is missing from this row. Evaluation
			// continues with the remaining formulas.
			continue
		}
		v, ok := toFloat64(result)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out.Values[def.Name] = v
	}

	return out
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
