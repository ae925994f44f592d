package milp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// simplexTol is the pivot tolerance handed to gonum's simplex.
const simplexTol = 1e-10

// relaxErr classifies the outcome of a relaxation solve.
var (
	errRelaxInfeasible = errors.New("milp: relaxation infeasible")
	errRelaxUnbounded  = errors.New("milp: relaxation unbounded")
)

// solveRelaxation solves the LP relaxation of the model under the given
// variable bounds (lo/hi override the declared bounds, so branch and
// bound can pin binaries without mutating the model). It returns the
// objective value and the assignment in original variable space.
func (m *Model) solveRelaxation(lo, hi []float64) (float64, []float64, error) {
	n := len(m.vars)
	if n == 0 {
		return 0, nil, fmt.Errorf("milp: model has no variables")
	}

	c := make([]float64, n)
	for _, t := range m.objective {
		c[int(t.Var)] += t.Coeff
	}

	// General form for lp.Convert: G*x <= h, A*x = b. Variable bounds
	// become inequality rows; GE constraints are negated into LE rows.
	var gRows, aRows [][]float64
	var h, b []float64

	row := func(terms []Term, scale float64) []float64 {
		r := make([]float64, n)
		for _, t := range terms {
			r[int(t.Var)] += scale * t.Coeff
		}
		return r
	}

	for i := 0; i < n; i++ {
		if !math.IsInf(hi[i], 1) {
			r := make([]float64, n)
			r[i] = 1
			gRows = append(gRows, r)
			h = append(h, hi[i])
		}
		if !math.IsInf(lo[i], -1) {
			r := make([]float64, n)
			r[i] = -1
			gRows = append(gRows, r)
			h = append(h, -lo[i])
		}
	}

	for _, con := range m.cons {
		switch con.sense {
		case LessEq:
			gRows = append(gRows, row(con.terms, 1))
			h = append(h, con.rhs)
		case GreaterEq:
			gRows = append(gRows, row(con.terms, -1))
			h = append(h, -con.rhs)
		case Equal:
			aRows = append(aRows, row(con.terms, 1))
			b = append(b, con.rhs)
		}
	}

	var g mat.Matrix
	if len(gRows) > 0 {
		g = mat.NewDense(len(gRows), n, flatten(gRows))
	}
	var a mat.Matrix
	if len(aRows) > 0 {
		a = mat.NewDense(len(aRows), n, flatten(aRows))
	}

	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	opt, xStd, err := lp.Simplex(cStd, aStd, bStd, simplexTol, nil)
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return 0, nil, errRelaxInfeasible
		case errors.Is(err, lp.ErrUnbounded):
			return 0, nil, errRelaxUnbounded
		default:
			return 0, nil, fmt.Errorf("milp: simplex: %w", err)
		}
	}

	// Convert splits every variable into a positive and a negative part:
	// x[i] = xStd[i] - xStd[n+i]. The remaining entries are slacks.
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = xStd[i] - xStd[n+i]
	}
	return opt, x, nil
}

func flatten(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
