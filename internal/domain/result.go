package domain

import (
	"time"

	"github.com/google/uuid"
)

// WinsorBounds records the clip values applied to one column during
// winsorization, alongside the quantiles that produced them.
type WinsorBounds struct {
	LowerQuantile float64
	UpperQuantile float64
	LowerValue    float64
	UpperValue    float64
}

// PredictorResult is the outcome of one (independent, dependent) univariate
// OLS fit in a predictor sweep.
type PredictorResult struct {
	RunID             uuid.UUID     `csv:"run_id"`
	Independent       string        `csv:"independent"`
	Dependent         string        `csv:"dependent"`
	Coefficient       float64       `csv:"coefficient"`
	StdErr            float64       `csv:"std_err"`
	PValue            float64       `csv:"p_value"`
	RSquared          float64       `csv:"r_squared"`
	SampleSize        int           `csv:"sample_size"`
	Significant       bool          `csv:"significant"`
	IndependentBounds *WinsorBounds `csv:"-"`
	DependentBounds   *WinsorBounds `csv:"-"`
}

// Coefficient is one fitted term of a multivariate regression. The
// intercept is reported under the name "const".
type Coefficient struct {
	Name     string
	Estimate float64
	StdErr   float64
	TStat    float64
	PValue   float64
}

// RegressionResult is the outcome of one multivariate OLS invocation.
type RegressionResult struct {
	RunID        uuid.UUID
	Dependent    string
	Independents []string
	Coefficients []Coefficient
	RSquared     float64
	AdjRSquared  float64
	FStat        float64
	FPValue      float64
	SampleSize   int
}

// RankingRow is the fully recomputed ranking output for one company-period.
// Ranks holds the normalized (0, 1] per-column rank for every configured
// ratio column. HasComposite is false when no configured column had a
// present value for this company-period.
type RankingRow struct {
	EdinetCode   string
	PeriodEnd    time.Time
	Ranks        map[string]float64
	Composite    float64
	HasComposite bool
	Position     int
}

// Frame is the ordered, named numeric result of a read-only projection
// query. Cells[i][j] holds row i of column j; nil marks an absent value.
type Frame struct {
	Columns []string
	Cells   [][]*float64
}

// Column returns the values of column j with a presence flag per row.
func (f *Frame) Column(j int) []*float64 {
	out := make([]*float64, len(f.Cells))
	for i := range f.Cells {
		out[i] = f.Cells[i][j]
	}
	return out
}
