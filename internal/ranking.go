package internal

import (
	"fmt"
	"sort"
	"time"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

// RankColumn configures one column of the ranking aggregation.
type RankColumn struct {
	Name           string
	HigherIsBetter bool
	Weight         float64
}

// RankCompanies ranks every company-period against its peers in the same
// period, one rank per configured column, and combines the normalized
// ranks into a weighted composite score (lower is better).
//
// Within a period and column, companies with a present value are ranked
// 1..m with value ties sharing their average rank; companies with an
// absent value all receive the worst possible rank (the period's company
// count) rather than being excluded. Ranks are normalized by the period's
// company count so periods of different breadth stay comparable. The
// composite re-normalizes by the weight of present columns only, so one
// missing ratio does not zero out the score. Rankings are fully recomputed
// on every call.
func RankCompanies(rows []domain.RatioRow, specs []RankColumn) ([]domain.RankingRow, error) {
	for _, spec := range specs {
		if spec.Weight <= 0 {
			return nil, domain.ConfigError{Reason: fmt.Sprintf("rank column %q has non-positive weight %v", spec.Name, spec.Weight)}
		}
	}

	byPeriod := map[time.Time][]domain.RatioRow{}
	periods := []time.Time{}
	for _, row := range rows {
		if _, ok := byPeriod[row.PeriodEnd]; !ok {
			periods = append(periods, row.PeriodEnd)
		}
		byPeriod[row.PeriodEnd] = append(byPeriod[row.PeriodEnd], row)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	out := []domain.RankingRow{}
	for _, period := range periods {
		group := byPeriod[period]
		out = append(out, rankPeriod(period, group, specs)...)
	}
	return out, nil
}

func rankPeriod(period time.Time, group []domain.RatioRow, specs []RankColumn) []domain.RankingRow {
	n := float64(len(group))

	ranked := make([]domain.RankingRow, len(group))
	for i, row := range group {
		ranked[i] = domain.RankingRow{
			EdinetCode: row.EdinetCode,
			PeriodEnd:  period,
			Ranks:      map[string]float64{},
		}
	}

	for _, spec := range specs {
		ranks := columnRanks(group, spec)
		for i := range ranked {
			ranked[i].Ranks[spec.Name] = ranks[i] / n
		}
	}

	for i, row := range group {
		weighted := 0.0
		weightSum := 0.0
		for _, spec := range specs {
			if _, present := row.Value(spec.Name); present {
				weighted += spec.Weight * ranked[i].Ranks[spec.Name]
				weightSum += spec.Weight
			}
		}
		if weightSum > 0 {
			ranked[i].Composite = weighted / weightSum
			ranked[i].HasComposite = true
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.HasComposite != b.HasComposite {
			return a.HasComposite
		}
		if a.HasComposite && a.Composite != b.Composite {
			return a.Composite < b.Composite
		}
		return a.EdinetCode < b.EdinetCode
	})
	for i := range ranked {
		ranked[i].Position = i + 1
	}
	return ranked
}

// columnRanks returns, aligned with group, the raw rank of each company for
// one column in one period. Present values are ranked 1..m (average rank on
// ties, best value first per the column's direction); absent values get the
// worst possible rank, the period's company count.
func columnRanks(group []domain.RatioRow, spec RankColumn) []float64 {
	type entry struct {
		index int
		value float64
	}
	present := []entry{}
	for i, row := range group {
		if v, ok := row.Value(spec.Name); ok {
			present = append(present, entry{index: i, value: v})
		}
	}

	sort.Slice(present, func(i, j int) bool {
		if present[i].value != present[j].value {
			if spec.HigherIsBetter {
				return present[i].value > present[j].value
			}
			return present[i].value < present[j].value
		}
		return group[present[i].index].EdinetCode < group[present[j].index].EdinetCode
	})

	ranks := make([]float64, len(group))
	for i := range ranks {
		ranks[i] = float64(len(group)) // worst rank for absent values
	}

	// Equal values share the average of the positions they span.
	for start := 0; start < len(present); {
		end := start
		for end+1 < len(present) && present[end+1].value == present[start].value {
			end++
		}
		avgRank := float64(start+1+end+1) / 2
		for i := start; i <= end; i++ {
			ranks[present[i].index] = avgRank
		}
		start = end + 1
	}

	return ranks
}
