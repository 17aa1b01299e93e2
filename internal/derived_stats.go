package internal

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

// Derived column names, e.g. CurrentRatio_Avg4P, CurrentRatio_Std4P,
// CurrentRatio_Growth, CurrentRatio_ZScore.
func RollingMeanColumn(ratio string, window int) string {
	return fmt.Sprintf("%s_Avg%dP", ratio, window)
}

func RollingStdColumn(ratio string, window int) string {
	return fmt.Sprintf("%s_Std%dP", ratio, window)
}

func GrowthColumn(ratio string) string {
	return ratio + "_Growth"
}

func ZScoreColumn(ratio string) string {
	return ratio + "_ZScore"
}

// ComputeTimeSeriesStats appends rolling and growth columns to one
// company's ratio rows, in place. Rows are ordered by period end before
// computation.
//
// Rolling mean and sample standard deviation use a trailing window of the
// given size, inclusive of the current period; the value is absent unless
// the window is fully populated with present values, so a company with
// fewer periods than the window gets absent rolling values rather than a
// short-window estimate. Growth is (current - previous) / |previous|,
// absent when either side is absent or the previous value is zero.
func ComputeTimeSeriesStats(rows []domain.RatioRow, ratioNames []string, window int) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].PeriodEnd.Before(rows[j].PeriodEnd)
	})

	for _, ratio := range ratioNames {
		for i := range rows {
			cur, curOK := rows[i].Value(ratio)

			if i > 0 && curOK {
				prev, prevOK := rows[i-1].Value(ratio)
				if prevOK && prev != 0 {
					rows[i].Set(GrowthColumn(ratio), (cur-prev)/math.Abs(prev))
				}
			}

			if i < window-1 {
				continue
			}
			win := make([]float64, 0, window)
			for j := i - window + 1; j <= i; j++ {
				v, ok := rows[j].Value(ratio)
				if !ok {
					break
				}
				win = append(win, v)
			}
			if len(win) != window {
				continue
			}

			mean, err := stats.Mean(win)
			if err != nil {
				continue
			}
			stdev, err := stats.StandardDeviationSample(win)
			if err != nil {
				continue
			}
			rows[i].Set(RollingMeanColumn(ratio, window), mean)
			rows[i].Set(RollingStdColumn(ratio, window), stdev)
		}
	}
}

// ComputeCrossSectionStats appends the per-period z-score columns, in
// place. For each period and ratio the z-score is taken against the mean
// and sample standard deviation across all companies with a present value
// that period; it is absent when fewer than two companies have data or the
// cross-sectional standard deviation is zero.
func ComputeCrossSectionStats(rows []*domain.RatioRow, ratioNames []string) {
	byPeriod := map[time.Time][]*domain.RatioRow{}
	for _, row := range rows {
		byPeriod[row.PeriodEnd] = append(byPeriod[row.PeriodEnd], row)
	}

	for _, group := range byPeriod {
		for _, ratio := range ratioNames {
			present := make([]float64, 0, len(group))
			for _, row := range group {
				if v, ok := row.Value(ratio); ok {
					present = append(present, v)
				}
			}
			if len(present) < 2 {
				continue
			}

			mean, err := stats.Mean(present)
			if err != nil {
				continue
			}
			stdev, err := stats.StandardDeviationSample(present)
			if err != nil || stdev == 0 {
				continue
			}

			col := ZScoreColumn(ratio)
			for _, row := range group {
				if v, ok := row.Value(ratio); ok {
					row.Set(col, (v-mean)/stdev)
				}
			}
		}
	}
}
