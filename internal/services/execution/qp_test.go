package execution

import (
	"math"
	"testing"
)

func TestSolveFindsUnconstrainedMinimum(t *testing.T) {
	// 0.5*2x^2 - 2x has its minimum at x = 1.
	q := [][]float64{{2}}
	c := []float64{-2}
	x := solveProjectedGradient(q, c, []float64{0}, 0.1, 500, 1e-9, func([]float64) {})
	if math.Abs(x[0]-1) > 1e-3 {
		t.Fatalf("expected x near 1, got %v", x[0])
	}
}

func TestSolveStaysInsideProjection(t *testing.T) {
	q := [][]float64{{2}}
	c := []float64{-2}
	project := func(x []float64) {
		if x[0] > 0.5 {
			x[0] = 0.5
		}
		if x[0] < 0 {
			x[0] = 0
		}
	}
	x := solveProjectedGradient(q, c, []float64{0}, 0.1, 500, 1e-9, project)
	if math.Abs(x[0]-0.5) > 1e-6 {
		t.Fatalf("expected clamp at 0.5, got %v", x[0])
	}
}

func TestSolveDoesNotMutateStart(t *testing.T) {
	q := [][]float64{{1}}
	c := []float64{0}
	x0 := []float64{3}
	_ = solveProjectedGradient(q, c, x0, 0.1, 10, 1e-9, func([]float64) {})
	if x0[0] != 3 {
		t.Fatalf("start vector mutated: %v", x0[0])
	}
}

func TestQuadraticCost(t *testing.T) {
	q := [][]float64{{2, 0}, {0, 2}}
	c := []float64{1, 1}
	// 0.5*(2*1 + 2*4) + (1 + 2) = 8.
	if got := quadraticCost(q, c, []float64{1, 2}); math.Abs(got-8) > 1e-12 {
		t.Fatalf("expected cost 8, got %v", got)
	}
}
