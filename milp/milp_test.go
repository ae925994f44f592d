package milp

import (
	"math"
	"testing"
)

const testTol = 1e-6

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestContinuousLP(t *testing.T) {
	// minimize -x - 2y  s.t.  x + y <= 4, x <= 3, y <= 2, x,y >= 0
	// Optimum at (2, 2) with objective -6.
	m := NewModel("lp")
	x := m.Continuous(0, 3, "x")
	y := m.Continuous(0, 2, "y")
	m.AddConstraint("cap", []Term{{x, 1}, {y, 1}}, LessEq, 4)
	m.Minimize([]Term{{x, -1}, {y, -2}})

	sol, err := m.Solve()
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("status = %q, want %q", sol.Status, StatusOptimal)
	}
	if !almostEqual(sol.Objective, -6, testTol) {
		t.Errorf("objective = %g, want -6", sol.Objective)
	}
	if !almostEqual(sol.Value(x), 2, testTol) || !almostEqual(sol.Value(y), 2, testTol) {
		t.Errorf("solution = (%g, %g), want (2, 2)", sol.Value(x), sol.Value(y))
	}
}

func TestEqualityAndFreeVariable(t *testing.T) {
	// minimize z  s.t.  z = x - 5, 0 <= x <= 3, z free.
	// Optimum x=0, z=-5.
	m := NewModel("eq")
	x := m.Continuous(0, 3, "x")
	z := m.Free("z")
	m.AddConstraint("link", []Term{{z, 1}, {x, -1}}, Equal, -5)
	m.Minimize([]Term{{z, 1}})

	sol, err := m.Solve()
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("status = %q, want %q", sol.Status, StatusOptimal)
	}
	if !almostEqual(sol.Value(z), -5, testTol) {
		t.Errorf("z = %g, want -5", sol.Value(z))
	}
}

func TestKnapsackBranching(t *testing.T) {
	// Classic 0/1 knapsack forcing fractional relaxations:
	// maximize 10a + 6b + 4c  s.t.  5a + 4b + 3c <= 8.
	// Relaxation is fractional; integer optimum picks a and c (value 14).
	m := NewModel("knapsack")
	a := m.Binary("a")
	b := m.Binary("b")
	c := m.Binary("c")
	m.AddConstraint("weight", []Term{{a, 5}, {b, 4}, {c, 3}}, LessEq, 8)
	m.Minimize([]Term{{a, -10}, {b, -6}, {c, -4}})

	sol, err := m.Solve()
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("status = %q, want %q", sol.Status, StatusOptimal)
	}
	if !almostEqual(sol.Objective, -14, testTol) {
		t.Errorf("objective = %g, want -14", sol.Objective)
	}
	for name, v := range map[string]Var{"a": a, "b": b, "c": c} {
		got := sol.Value(v)
		if got != 0 && got != 1 {
			t.Errorf("binary %s = %g, want exact 0 or 1", name, got)
		}
	}
	if sol.Value(a) != 1 || sol.Value(b) != 0 || sol.Value(c) != 1 {
		t.Errorf("selection = (%g, %g, %g), want (1, 0, 1)",
			sol.Value(a), sol.Value(b), sol.Value(c))
	}
}

func TestInfeasible(t *testing.T) {
	m := NewModel("infeasible")
	x := m.Continuous(0, 1, "x")
	m.AddConstraint("impossible", []Term{{x, 1}}, GreaterEq, 2)
	m.Minimize([]Term{{x, 1}})

	sol, err := m.Solve()
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	if sol.Status != StatusInfeasible {
		t.Fatalf("status = %q, want %q", sol.Status, StatusInfeasible)
	}
	if !math.IsNaN(sol.Objective) {
		t.Errorf("objective = %g, want NaN", sol.Objective)
	}
	if !math.IsNaN(sol.Value(x)) {
		t.Errorf("Value(x) = %g, want NaN", sol.Value(x))
	}
}

func TestUnbounded(t *testing.T) {
	m := NewModel("unbounded")
	x := m.Continuous(0, math.Inf(1), "x")
	m.Minimize([]Term{{x, -1}})

	sol, err := m.Solve()
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	if sol.Status != StatusUnbounded {
		t.Fatalf("status = %q, want %q", sol.Status, StatusUnbounded)
	}
}

func TestBinaryIndicatorBigM(t *testing.T) {
	// Mutual exclusion via an indicator, the pattern the optimizer
	// relies on: imp <= (1-e)*M, exp <= e*M, imp - exp = -3.
	// Minimizing imp forces e=1, exp=3, imp=0.
	const bigM = 10.0
	m := NewModel("indicator")
	imp := m.Continuous(0, bigM, "imp")
	exp := m.Continuous(0, bigM, "exp")
	e := m.Binary("e")
	m.AddConstraint("exp_cap", []Term{{exp, 1}, {e, -bigM}}, LessEq, 0)
	m.AddConstraint("imp_cap", []Term{{imp, 1}, {e, bigM}}, LessEq, bigM)
	m.AddConstraint("balance", []Term{{imp, 1}, {exp, -1}}, Equal, -3)
	m.Minimize([]Term{{imp, 1}})

	sol, err := m.Solve()
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("status = %q, want %q", sol.Status, StatusOptimal)
	}
	if !almostEqual(sol.Value(imp), 0, testTol) || !almostEqual(sol.Value(exp), 3, testTol) {
		t.Errorf("imp = %g, exp = %g, want 0 and 3", sol.Value(imp), sol.Value(exp))
	}
	if sol.Value(e) != 1 {
		t.Errorf("e = %g, want 1", sol.Value(e))
	}
}

func TestCrossedBoundsAreInfeasible(t *testing.T) {
	m := NewModel("crossed")
	x := m.Continuous(2, 1, "x")
	m.Minimize([]Term{{x, 1}})

	sol, err := m.Solve()
	if err != nil {
		t.Fatalf("Solve() error: %v", err)
	}
	if sol.Status != StatusInfeasible {
		t.Fatalf("status = %q, want %q", sol.Status, StatusInfeasible)
	}
}

func TestNaNBoundIsAnError(t *testing.T) {
	m := NewModel("nan")
	x := m.Continuous(0, math.NaN(), "x")
	m.Minimize([]Term{{x, 1}})
	if _, err := m.Solve(); err == nil {
		t.Fatal("Solve() with NaN bound succeeded, want error")
	}
}
