package internal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/TiagoDeMatosDias/EDINET/internal/config"
	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

// PairDiagnostic records one skipped (independent, dependent) pair with
// enough context for the run's diagnostic output.
type PairDiagnostic struct {
	Independent string
	Dependent   string
	Reason      string
}

// Err exposes the skip as the taxonomy error type.
func (d PairDiagnostic) Err() error {
	return domain.InsufficientDataError{
		Independent: d.Independent,
		Dependent:   d.Dependent,
		Reason:      d.Reason,
	}
}

// SweepResult accumulates one sweep invocation: the full result table
// (nothing is filtered by alpha) plus the skipped-pair diagnostics.
type SweepResult struct {
	RunID   uuid.UUID
	Results []domain.PredictorResult
	Skipped []PairDiagnostic
}

type sweepPair struct {
	independent string
	dependent   string
}

type sweepOutcome struct {
	pair   sweepPair
	result *domain.PredictorResult
	skip   *PairDiagnostic
	err    error
}

// RunSweep fits a single-variable OLS (with intercept) for every candidate
// (independent, dependent) column pair over the ratio table. Dependents
// come from the configuration; when the configured list is empty, every
// column is swept against every other column. Pairs are evaluated
// independently across a worker pool; the final ordering is p-value
// ascending, ties broken by R² descending and then pair name, so results
// do not depend on scheduling.
func RunSweep(ctx context.Context, rows []domain.RatioRow, cfg config.SweepConfig, runID uuid.UUID) (*SweepResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	columns := collectColumns(rows)
	columnSet := map[string]bool{}
	for _, c := range columns {
		columnSet[c] = true
	}

	dependents := cfg.DependentVariables
	if len(dependents) == 0 {
		dependents = columns
	} else {
		for _, dep := range dependents {
			if !columnSet[dep] {
				return nil, domain.ConfigError{Reason: fmt.Sprintf("unknown dependent column %q", dep)}
			}
		}
	}

	pairs := []sweepPair{}
	for _, dep := range dependents {
		for _, ind := range columns {
			if ind == dep {
				continue
			}
			pairs = append(pairs, sweepPair{independent: ind, dependent: dep})
		}
	}

	pairCh := make(chan sweepPair, len(pairs))
	outcomeCh := make(chan sweepOutcome, len(pairs))
	var wg sync.WaitGroup
	for _, p := range pairs {
		wg.Add(1)
		pairCh <- p
	}
	close(pairCh)

	for i := 0; i < cfg.Workers; i++ {
		go func() {
			for pair := range pairCh {
				select {
				case <-ctx.Done():
					// drain remaining pairs so wg.Wait can finish
					wg.Done()
					continue
				default:
				}
				outcomeCh <- evaluatePair(rows, pair, cfg)
				wg.Done()
			}
		}()
	}

	go func() {
		wg.Wait()
		close(outcomeCh)
	}()

	out := &SweepResult{RunID: runID}
	for outcome := range outcomeCh {
		if outcome.err != nil {
			return nil, outcome.err
		}
		if outcome.skip != nil {
			out.Skipped = append(out.Skipped, *outcome.skip)
			continue
		}
		outcome.result.RunID = runID
		out.Results = append(out.Results, *outcome.result)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out.Results, func(i, j int) bool {
		a, b := out.Results[i], out.Results[j]
		if a.PValue != b.PValue {
			return a.PValue < b.PValue
		}
		if a.RSquared != b.RSquared {
			return a.RSquared > b.RSquared
		}
		if a.Dependent != b.Dependent {
			return a.Dependent < b.Dependent
		}
		return a.Independent < b.Independent
	})
	sort.Slice(out.Skipped, func(i, j int) bool {
		a, b := out.Skipped[i], out.Skipped[j]
		if a.Dependent != b.Dependent {
			return a.Dependent < b.Dependent
		}
		return a.Independent < b.Independent
	})

	return out, nil
}

func evaluatePair(rows []domain.RatioRow, pair sweepPair, cfg config.SweepConfig) sweepOutcome {
	outcome := sweepOutcome{pair: pair}

	x := []float64{}
	y := []float64{}
	for _, row := range rows {
		xv, xok := row.Value(pair.independent)
		yv, yok := row.Value(pair.dependent)
		if xok && yok {
			x = append(x, xv)
			y = append(y, yv)
		}
	}

	if skip := checkPairData(pair, x, y, cfg.MinSamples); skip != nil {
		outcome.skip = skip
		return outcome
	}

	result := &domain.PredictorResult{
		Independent: pair.independent,
		Dependent:   pair.dependent,
		SampleSize:  len(x),
	}
	if cfg.Winsorize != nil {
		var bounds domain.WinsorBounds
		var err error
		x, bounds, err = Winsorize(x, cfg.Winsorize.Lower, cfg.Winsorize.Upper)
		if err != nil {
			outcome.err = err
			return outcome
		}
		result.IndependentBounds = &bounds
		y, bounds, err = Winsorize(y, cfg.Winsorize.Lower, cfg.Winsorize.Upper)
		if err != nil {
			outcome.err = err
			return outcome
		}
		result.DependentBounds = &bounds

		// Clipping can collapse a column to a constant.
		if skip := checkPairData(pair, x, y, cfg.MinSamples); skip != nil {
			outcome.skip = skip
			return outcome
		}
	}

	fit, err := FitOLS(pair.dependent, y, []string{pair.independent}, [][]float64{x})
	if err != nil {
		var singular domain.SingularDesignError
		if errors.As(err, &singular) {
			outcome.skip = &PairDiagnostic{
				Independent: pair.independent,
				Dependent:   pair.dependent,
				Reason:      singular.Reason,
			}
			return outcome
		}
		outcome.err = err
		return outcome
	}

	slope := fit.Coefficients[1]
	result.Coefficient = slope.Estimate
	result.StdErr = slope.StdErr
	result.PValue = slope.PValue
	result.RSquared = fit.RSquared
	result.SampleSize = fit.SampleSize
	result.Significant = slope.PValue < cfg.Alpha
	outcome.result = result
	return outcome
}

// checkPairData applies the per-pair eligibility rules: minimum sample
// size and non-degenerate columns. A failure is an InsufficientDataError
// scoped to this pair only.
func checkPairData(pair sweepPair, x, y []float64, minSamples int) *PairDiagnostic {
	fail := func(reason string) *PairDiagnostic {
		return &PairDiagnostic{
			Independent: pair.independent,
			Dependent:   pair.dependent,
			Reason:      reason,
		}
	}

	if len(x) < minSamples {
		return fail(fmt.Sprintf("%d overlapping observations, need %d", len(x), minSamples))
	}
	if isConstant(x) {
		return fail("independent column has zero variance")
	}
	if isConstant(y) {
		return fail("dependent column has zero variance")
	}
	return nil
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// collectColumns returns the sorted union of value columns across the
// table.
func collectColumns(rows []domain.RatioRow) []string {
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
