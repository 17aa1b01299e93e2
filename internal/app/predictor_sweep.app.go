package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/TiagoDeMatosDias/EDINET/internal"
	"github.com/TiagoDeMatosDias/EDINET/internal/config"
	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
	"github.com/TiagoDeMatosDias/EDINET/internal/logger"
	"github.com/TiagoDeMatosDias/EDINET/internal/repository"
)

// PredictorSweepHandler runs the univariate predictor sweep over the ratio
// table, persists every fitted pair and writes a human-readable summary.
type PredictorSweepHandler struct {
	Store repository.TableStore
}

type PredictorSweepInput struct {
	RatiosTable  string
	ResultsTable string
	SummaryPath  string
	// TopN caps the number of pairs listed per dependent in the summary.
	TopN   int
	Config config.SweepConfig
}

func (h PredictorSweepHandler) Run(ctx context.Context, in PredictorSweepInput) (uuid.UUID, error) {
	log := logger.FromContext(ctx)
	if in.TopN <= 0 {
		in.TopN = 10
	}

	records, err := h.Store.ReadAll(ctx, in.RatiosTable)
	if err != nil {
		return uuid.Nil, err
	}
	rows := ratioRows(records)
	log.Infow("loaded ratio rows for sweep", "table", in.RatiosTable, "rows", len(rows))

	runID := uuid.New()
	sweep, err := internal.RunSweep(ctx, rows, in.Config, runID)
	if err != nil {
		return uuid.Nil, err
	}
	log.Infow("sweep finished",
		"runID", runID,
		"fitted", len(sweep.Results),
		"skipped", len(sweep.Skipped),
	)
	for _, skip := range sweep.Skipped {
		log.Debugw("skipped pair",
			"independent", skip.Independent,
			"dependent", skip.Dependent,
			"reason", skip.Reason,
		)
	}

	if err := h.persist(ctx, in.ResultsTable, sweep.Results); err != nil {
		return uuid.Nil, err
	}
	if in.SummaryPath != "" {
		if err := writeSweepSummary(in.SummaryPath, sweep, in.Config, in.TopN); err != nil {
			return uuid.Nil, err
		}
	}
	return runID, nil
}

func (h PredictorSweepHandler) persist(ctx context.Context, table string, results []domain.PredictorResult) error {
	schema := domain.Schema{
		Columns: []domain.Column{
			{Name: "run_id", Type: domain.TextColumn},
			{Name: "independent", Type: domain.TextColumn},
			{Name: "dependent", Type: domain.TextColumn},
			{Name: "coefficient", Type: domain.DoubleColumn},
			{Name: "std_err", Type: domain.DoubleColumn},
			{Name: "p_value", Type: domain.DoubleColumn},
			{Name: "r_squared", Type: domain.DoubleColumn},
			{Name: "sample_size", Type: domain.DoubleColumn},
			{Name: "significant", Type: domain.TextColumn},
			{Name: "independent_lower", Type: domain.DoubleColumn},
			{Name: "independent_upper", Type: domain.DoubleColumn},
			{Name: "dependent_lower", Type: domain.DoubleColumn},
			{Name: "dependent_upper", Type: domain.DoubleColumn},
		},
		PrimaryKey: []string{"run_id", "independent", "dependent"},
	}
	if err := h.Store.CreateTable(ctx, table, schema); err != nil {
		return err
	}

	records := make([]domain.Record, 0, len(results))
	for _, r := range results {
		record := domain.Record{
			"run_id":      r.RunID.String(),
			"independent": r.Independent,
			"dependent":   r.Dependent,
			"coefficient": r.Coefficient,
			"std_err":     r.StdErr,
			"p_value":     r.PValue,
			"r_squared":   r.RSquared,
			"sample_size": float64(r.SampleSize),
			"significant": strconv.FormatBool(r.Significant),
		}
		if r.IndependentBounds != nil {
			record["independent_lower"] = r.IndependentBounds.LowerValue
			record["independent_upper"] = r.IndependentBounds.UpperValue
		}
		if r.DependentBounds != nil {
			record["dependent_lower"] = r.DependentBounds.LowerValue
			record["dependent_upper"] = r.DependentBounds.UpperValue
		}
		records = append(records, record)
	}
	return h.Store.Upsert(ctx, table, records)
}

func writeSweepSummary(path string, sweep *internal.SweepResult, cfg config.SweepConfig, topN int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "--- Predictor Sweep ---\n")
	fmt.Fprintf(&b, "Run ID: %s\n", sweep.RunID)
	fmt.Fprintf(&b, "Significance level (alpha): %g\n", cfg.Alpha)
	if cfg.Winsorize != nil {
		fmt.Fprintf(&b, "Winsorize thresholds: [%g, %g]\n", cfg.Winsorize.Lower, cfg.Winsorize.Upper)
	}
	b.WriteString("\n")

	byDependent := map[string][]domain.PredictorResult{}
	dependents := []string{}
	for _, r := range sweep.Results {
		if _, seen := byDependent[r.Dependent]; !seen {
			dependents = append(dependents, r.Dependent)
		}
		byDependent[r.Dependent] = append(byDependent[r.Dependent], r)
	}
	sort.Strings(dependents)

	for _, dep := range dependents {
		fmt.Fprintf(&b, "Dependent: %s\n", dep)
		results := byDependent[dep]
		for i, r := range results {
			if i >= topN {
				break
			}
			marker := ""
			if r.Significant {
				marker = " *"
			}
			fmt.Fprintf(&b, "  %2d. %-40s coef=%+.4f  p=%.4f  r2=%.4f  n=%d%s\n",
				i+1, r.Independent, r.Coefficient, r.PValue, r.RSquared, r.SampleSize, marker)
		}
		b.WriteString("\n")
	}

	if len(sweep.Skipped) > 0 {
		b.WriteString("--- Skipped Pairs ---\n")
		for _, skip := range sweep.Skipped {
			fmt.Fprintf(&b, "(%s -> %s): %s\n", skip.Independent, skip.Dependent, skip.Reason)
		}
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}
