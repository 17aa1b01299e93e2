package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/TiagoDeMatosDias/EDINET/internal"
	"github.com/TiagoDeMatosDias/EDINET/internal/config"
	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
	"github.com/TiagoDeMatosDias/EDINET/internal/logger"
	"github.com/TiagoDeMatosDias/EDINET/internal/repository"
)

// RegressionHandler fits a multivariate OLS over an arbitrary projection
// query. The first selected column is the dependent variable, every
// remaining column an independent.
type RegressionHandler struct {
	Store repository.TableStore
}

type RegressionInput struct {
	Config       config.RegressionConfig
	ResultsTable string
	SummaryPath  string
}

func (h RegressionHandler) Run(ctx context.Context, in RegressionInput) (uuid.UUID, error) {
	log := logger.FromContext(ctx)
	if err := in.Config.Validate(); err != nil {
		return uuid.Nil, err
	}

	frame, err := h.Store.Select(ctx, in.Config.SQLQuery)
	if err != nil {
		return uuid.Nil, err
	}
	log.Infow("projection loaded",
		"columns", len(frame.Columns),
		"rows", len(frame.Cells),
	)

	var lower, upper *float64
	if in.Config.Winsorize != nil {
		lower = &in.Config.Winsorize.Lower
		upper = &in.Config.Winsorize.Upper
	}
	result, err := internal.FitFrame(frame, lower, upper)
	if err != nil {
		return uuid.Nil, err
	}
	runID := uuid.New()
	result.RunID = runID
	log.Infow("regression fitted",
		"runID", runID,
		"dependent", result.Dependent,
		"independents", len(result.Independents),
		"rSquared", result.RSquared,
		"sampleSize", result.SampleSize,
	)

	if in.ResultsTable != "" {
		if err := h.persist(ctx, in.ResultsTable, result); err != nil {
			return uuid.Nil, err
		}
	}
	if in.SummaryPath != "" {
		if err := writeRegressionSummary(in.SummaryPath, in.Config, result); err != nil {
			return uuid.Nil, err
		}
	}
	return runID, nil
}

// persist stores one row per fitted term; fit-level statistics repeat on
// every row so the table stays flat.
func (h RegressionHandler) persist(ctx context.Context, table string, result *domain.RegressionResult) error {
	schema := domain.Schema{
		Columns: []domain.Column{
			{Name: "run_id", Type: domain.TextColumn},
			{Name: "dependent", Type: domain.TextColumn},
			{Name: "term", Type: domain.TextColumn},
			{Name: "estimate", Type: domain.DoubleColumn},
			{Name: "std_err", Type: domain.DoubleColumn},
			{Name: "t_stat", Type: domain.DoubleColumn},
			{Name: "p_value", Type: domain.DoubleColumn},
			{Name: "r_squared", Type: domain.DoubleColumn},
			{Name: "adj_r_squared", Type: domain.DoubleColumn},
			{Name: "f_stat", Type: domain.DoubleColumn},
			{Name: "f_p_value", Type: domain.DoubleColumn},
			{Name: "sample_size", Type: domain.DoubleColumn},
		},
		PrimaryKey: []string{"run_id", "term"},
	}
	if err := h.Store.CreateTable(ctx, table, schema); err != nil {
		return err
	}

	records := make([]domain.Record, 0, len(result.Coefficients))
	for _, coef := range result.Coefficients {
		records = append(records, domain.Record{
			"run_id":        result.RunID.String(),
			"dependent":     result.Dependent,
			"term":          coef.Name,
			"estimate":      coef.Estimate,
			"std_err":       coef.StdErr,
			"t_stat":        coef.TStat,
			"p_value":       coef.PValue,
			"r_squared":     result.RSquared,
			"adj_r_squared": result.AdjRSquared,
			"f_stat":        result.FStat,
			"f_p_value":     result.FPValue,
			"sample_size":   float64(result.SampleSize),
		})
	}
	return h.Store.Upsert(ctx, table, records)
}

func writeRegressionSummary(path string, cfg config.RegressionConfig, result *domain.RegressionResult) error {
	var b strings.Builder

	b.WriteString("--- SQL Query ---\n")
	b.WriteString(strings.TrimSpace(cfg.SQLQuery))
	b.WriteString("\n\n")

	b.WriteString("--- OLS Regression Results ---\n")
	fmt.Fprintf(&b, "Run ID:        %s\n", result.RunID)
	fmt.Fprintf(&b, "Dependent:     %s\n", result.Dependent)
	fmt.Fprintf(&b, "Observations:  %d\n", result.SampleSize)
	fmt.Fprintf(&b, "R-squared:     %.4f\n", result.RSquared)
	fmt.Fprintf(&b, "Adj R-squared: %.4f\n", result.AdjRSquared)
	fmt.Fprintf(&b, "F-statistic:   %.4f (p=%.4g)\n\n", result.FStat, result.FPValue)

	fmt.Fprintf(&b, "%-40s %12s %12s %10s %10s\n", "term", "coef", "std err", "t", "P>|t|")
	for _, coef := range result.Coefficients {
		fmt.Fprintf(&b, "%-40s %12.4f %12.4f %10.3f %10.4f\n",
			coef.Name, coef.Estimate, coef.StdErr, coef.TStat, coef.PValue)
	}
	b.WriteString("\n")

	b.WriteString("--- Significance Analysis ---\n")
	fmt.Fprintf(&b, "Significance level (alpha): %g\n", cfg.Alpha)
	fmt.Fprintf(&b, "Variables significant at the %.1f%% level:\n", cfg.Alpha*100)
	any := false
	for _, coef := range result.Coefficients {
		if coef.Name == internal.InterceptName {
			continue
		}
		if coef.PValue < cfg.Alpha {
			fmt.Fprintf(&b, "- %s (P-value: %.4g)\n", coef.Name, coef.PValue)
			any = true
		}
	}
	if !any {
		b.WriteString("- none\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}
