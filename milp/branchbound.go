package milp

import (
	"errors"
	"math"
)

const (
	// intTol is the tolerance under which a relaxed binary counts as
	// integral.
	intTol = 1e-6
	// pruneEps guards incumbent pruning against simplex noise.
	pruneEps = 1e-9
	// defaultMaxNodes bounds the search when the caller sets no limit.
	defaultMaxNodes = 1 << 20
)

// bnbEngine holds the search state for one Solve call. A dedicated
// engine struct keeps the hot-path state explicit and the recursion
// signature small.
type bnbEngine struct {
	m        *Model
	binaries []int // indices of integer variables, in declaration order

	maxNodes int
	nodes    int

	bestObj  float64
	bestX    []float64
	foundAny bool
	hitLimit bool
}

// Solve runs branch and bound over the binary variables, solving one LP
// relaxation per node. The search is deterministic: branching picks the
// most fractional binary (lowest index on ties) and explores the
// 0-branch first.
//
// The returned error is non-nil only for internal solver failures;
// infeasibility and unboundedness are reported through Solution.Status.
func (m *Model) Solve() (*Solution, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	e := &bnbEngine{
		m:        m,
		maxNodes: m.MaxNodes,
		bestObj:  math.Inf(1),
	}
	if e.maxNodes <= 0 {
		e.maxNodes = defaultMaxNodes
	}
	for i, v := range m.vars {
		if v.integer {
			e.binaries = append(e.binaries, i)
		}
	}

	lo := make([]float64, len(m.vars))
	hi := make([]float64, len(m.vars))
	for i, v := range m.vars {
		lo[i], hi[i] = v.lo, v.hi
	}

	err := e.search(lo, hi, true)
	if err != nil {
		if errors.Is(err, errRelaxUnbounded) {
			return &Solution{Status: StatusUnbounded, Objective: math.NaN()}, nil
		}
		return nil, err
	}

	switch {
	case e.foundAny && !e.hitLimit:
		return &Solution{Status: StatusOptimal, Objective: e.bestObj, X: e.bestX}, nil
	case e.foundAny:
		// Search was cut short: the incumbent is feasible but not
		// proven optimal.
		return &Solution{Status: StatusUndefined, Objective: e.bestObj, X: e.bestX}, nil
	default:
		return &Solution{Status: StatusInfeasible, Objective: math.NaN()}, nil
	}
}

// search explores one node. root marks the first relaxation but does
// not change how the node is handled: an unbounded relaxation is
// returned as errRelaxUnbounded at any node, and Solve reports it as
// Unbounded.
func (e *bnbEngine) search(lo, hi []float64, root bool) error {
	if e.nodes >= e.maxNodes {
		e.hitLimit = true
		return nil
	}
	e.nodes++

	obj, x, err := e.m.solveRelaxation(lo, hi)
	switch {
	case errors.Is(err, errRelaxInfeasible):
		return nil // prune
	case errors.Is(err, errRelaxUnbounded):
		// A bounded parent cannot have an unbounded child, so this
		// only fires at the root; surface it as Unbounded.
		return err
	case err != nil:
		return err
	}

	if e.foundAny && obj >= e.bestObj-pruneEps {
		return nil // bound: cannot improve the incumbent
	}

	branch := e.pickBranch(x)
	if branch < 0 {
		// All binaries integral: new incumbent.
		e.bestObj = obj
		e.bestX = roundBinaries(x, e.binaries)
		e.foundAny = true
		return nil
	}

	for _, fix := range []float64{0, 1} {
		cl, ch := lo[branch], hi[branch]
		lo[branch], hi[branch] = fix, fix
		if err := e.search(lo, hi, false); err != nil {
			lo[branch], hi[branch] = cl, ch
			return err
		}
		lo[branch], hi[branch] = cl, ch
	}
	return nil
}

// pickBranch returns the index of the most fractional binary variable,
// or -1 when the relaxation is integral.
func (e *bnbEngine) pickBranch(x []float64) int {
	best := -1
	bestDist := intTol
	for _, i := range e.binaries {
		frac := x[i] - math.Floor(x[i])
		dist := math.Min(frac, 1-frac)
		if dist > bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}

// roundBinaries copies x with the integer variables snapped to exact
// 0/1 values, so callers never see 1e-9 residue on indicator results.
func roundBinaries(x []float64, binaries []int) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	for _, i := range binaries {
		out[i] = math.Round(out[i])
	}
	return out
}
