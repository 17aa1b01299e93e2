package internal

import (
	"fmt"
	"math"
	"sort"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

// Quantile returns the q-th empirical quantile of values using linear
// interpolation between order statistics (the conventional method: the
// quantile sits at fractional position (n-1)*q of the sorted sample).
func Quantile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, domain.InsufficientDataError{Reason: "cannot take quantile of empty column"}
	}
	if q < 0 || q > 1 {
		return 0, domain.ConfigError{Reason: fmt.Sprintf("quantile %v outside [0, 1]", q)}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo], nil
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo]), nil
}

// Winsorize clips values outside the empirical quantile bounds to the
// nearest retained order statistic: everything below the lower quantile is
// raised to the smallest sample value at or above it, everything above the
// upper quantile is lowered to the largest sample value at or below it. The
// clip targets are themselves sample values, so re-winsorizing an already
// clipped column with the same bounds returns it unchanged. Callers exclude
// absent values before calling and thread them through unchanged.
func Winsorize(values []float64, lower, upper float64) ([]float64, domain.WinsorBounds, error) {
	bounds := domain.WinsorBounds{LowerQuantile: lower, UpperQuantile: upper}
	if lower < 0 || lower >= 1 || upper <= lower || upper > 1 {
		return nil, bounds, domain.ConfigError{Reason: fmt.Sprintf("invalid winsorize quantiles [%v, %v]", lower, upper)}
	}

	lowerValue, err := Quantile(values, lower)
	if err != nil {
		return nil, bounds, err
	}
	upperValue, err := Quantile(values, upper)
	if err != nil {
		return nil, bounds, err
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	// lowerValue <= max and upperValue >= min, so both lookups stay in range.
	lowClip := sorted[sort.SearchFloat64s(sorted, lowerValue)]
	j := sort.SearchFloat64s(sorted, upperValue)
	highClip := upperValue
	if j == len(sorted) || sorted[j] != upperValue {
		highClip = sorted[j-1]
	}
	if lowClip > highClip {
		return nil, bounds, domain.InsufficientDataError{
			Reason: fmt.Sprintf("no values retained between winsorize quantiles [%v, %v]", lower, upper),
		}
	}
	bounds.LowerValue = lowClip
	bounds.UpperValue = highClip

	out := make([]float64, len(values))
	for i, v := range values {
		switch {
		case v < lowClip:
			out[i] = lowClip
		case v > highClip:
			out[i] = highClip
		default:
			out[i] = v
		}
	}
	return out, bounds, nil
}

// WinsorizeFrameColumn clips one column of a projection frame in place,
// skipping absent cells and excluding them from the quantile computation.
func WinsorizeFrameColumn(frame *domain.Frame, col int, lower, upper float64) (domain.WinsorBounds, error) {
	present := []float64{}
	for i := range frame.Cells {
		if cell := frame.Cells[i][col]; cell != nil {
			present = append(present, *cell)
		}
	}

	clipped, bounds, err := Winsorize(present, lower, upper)
	if err != nil {
		return bounds, err
	}

	j := 0
	for i := range frame.Cells {
		if frame.Cells[i][col] != nil {
			v := clipped[j]
			frame.Cells[i][col] = &v
			j++
		}
	}
	return bounds, nil
}
