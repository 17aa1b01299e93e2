package internal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

// InterceptName is the reported name of the fitted constant term.
const InterceptName = "const"

// FitOLS fits y = b0 + b1*x1 + ... + bk*xk by ordinary least squares via
// the normal equations with a Cholesky factorization. independents[i] names
// cols[i]; every column must have len(y) observations with no absent
// values (callers drop incomplete rows first).
//
// The fit fails with SingularDesignError when the independents are
// perfectly collinear or there are too few observations to identify the
// coefficients and their standard errors (fewer than k+2, i.e. no residual
// degrees of freedom).
func FitOLS(dependent string, y []float64, independents []string, cols [][]float64) (*domain.RegressionResult, error) {
	n := len(y)
	k := len(independents)
	if k == 0 {
		return nil, domain.ConfigError{Reason: "regression requires at least one independent column"}
	}
	if len(cols) != k {
		return nil, fmt.Errorf("got %d independent names but %d columns", k, len(cols))
	}
	for i, col := range cols {
		if len(col) != n {
			return nil, fmt.Errorf("column %s has %d observations, dependent has %d", independents[i], len(col), n)
		}
	}

	p := k + 1 // intercept plus slopes
	if n < p {
		return nil, domain.SingularDesignError{
			Reason: fmt.Sprintf("sample size %d is below the number of independents plus one (%d)", n, p),
		}
	}
	df := n - p
	if df < 1 {
		return nil, domain.SingularDesignError{
			Reason: fmt.Sprintf("sample size %d leaves no residual degrees of freedom for %d coefficients", n, p),
		}
	}

	design := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1)
		for j := 0; j < k; j++ {
			design.Set(i, j+1, cols[j][i])
		}
	}
	yVec := mat.NewVecDense(n, y)

	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	sym := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			sym.SetSym(i, j, xtx.At(i, j))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, domain.SingularDesignError{Reason: "independent columns are perfectly collinear"}
	}

	var xty mat.VecDense
	xty.MulVec(design.T(), yVec)
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return nil, domain.SingularDesignError{Reason: err.Error()}
	}

	var fitted mat.VecDense
	fitted.MulVec(design, &beta)

	rss := 0.0
	meanY := 0.0
	for i := 0; i < n; i++ {
		meanY += y[i]
	}
	meanY /= float64(n)
	tss := 0.0
	for i := 0; i < n; i++ {
		resid := y[i] - fitted.AtVec(i)
		rss += resid * resid
		dev := y[i] - meanY
		tss += dev * dev
	}

	sigma2 := rss / float64(df)
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, domain.SingularDesignError{Reason: err.Error()}
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	names := append([]string{InterceptName}, independents...)
	coefficients := make([]domain.Coefficient, p)
	for j := 0; j < p; j++ {
		estimate := beta.AtVec(j)
		stderr := math.Sqrt(sigma2 * inv.At(j, j))
		tStat := math.Inf(1)
		pValue := 0.0
		if stderr > 0 {
			tStat = estimate / stderr
			pValue = 2 * tDist.CDF(-math.Abs(tStat))
		} else if estimate == 0 {
			tStat = 0
			pValue = 1
		}
		coefficients[j] = domain.Coefficient{
			Name:     names[j],
			Estimate: estimate,
			StdErr:   stderr,
			TStat:    tStat,
			PValue:   pValue,
		}
	}

	rSquared := 0.0
	adjRSquared := 0.0
	fStat := math.NaN()
	fPValue := math.NaN()
	if tss > 0 {
		rSquared = 1 - rss/tss
		adjRSquared = 1 - (1-rSquared)*float64(n-1)/float64(df)
		if rSquared < 1 {
			fStat = (rSquared / float64(k)) / ((1 - rSquared) / float64(df))
			fDist := distuv.F{D1: float64(k), D2: float64(df)}
			fPValue = 1 - fDist.CDF(fStat)
		} else {
			fStat = math.Inf(1)
			fPValue = 0
		}
	}

	return &domain.RegressionResult{
		Dependent:    dependent,
		Independents: independents,
		Coefficients: coefficients,
		RSquared:     rSquared,
		AdjRSquared:  adjRSquared,
		FStat:        fStat,
		FPValue:      fPValue,
		SampleSize:   n,
	}, nil
}

// FitFrame runs a multivariate OLS over a projection frame whose first
// column is the dependent variable. Rows with any absent cell among the
// selected columns are dropped; remaining columns are winsorized
// independently when thresholds are supplied.
func FitFrame(frame *domain.Frame, winsorLower, winsorUpper *float64) (*domain.RegressionResult, error) {
	if len(frame.Columns) < 2 {
		return nil, domain.ConfigError{
			Reason: fmt.Sprintf("projection returned %d columns; need a dependent and at least one independent", len(frame.Columns)),
		}
	}

	complete := &domain.Frame{Columns: frame.Columns}
	for _, row := range frame.Cells {
		keep := true
		for _, cell := range row {
			if cell == nil {
				keep = false
				break
			}
		}
		if keep {
			complete.Cells = append(complete.Cells, row)
		}
	}

	if len(complete.Cells) == 0 {
		return nil, domain.SingularDesignError{Reason: "no complete rows remain after dropping absent values"}
	}

	if winsorLower != nil && winsorUpper != nil {
		for j := range complete.Columns {
			if _, err := WinsorizeFrameColumn(complete, j, *winsorLower, *winsorUpper); err != nil {
				return nil, err
			}
		}
	}

	n := len(complete.Cells)
	y := make([]float64, n)
	cols := make([][]float64, len(complete.Columns)-1)
	for j := range cols {
		cols[j] = make([]float64, n)
	}
	for i, row := range complete.Cells {
		y[i] = *row[0]
		for j := 1; j < len(row); j++ {
			cols[j-1][i] = *row[j]
		}
	}

	return FitOLS(complete.Columns[0], y, complete.Columns[1:], cols)
}
