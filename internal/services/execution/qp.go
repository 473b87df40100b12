package execution

import "math"

// solveProjectedGradient minimizes 0.5*xᵀQx + cᵀx by gradient descent with a
// projection applied after every step. The projection is responsible for
// keeping x feasible; because the individual projections do not commute this
// is a heuristic solver, not an exact QP method, but it is deterministic and
// its runtime is bounded by maxIter.
//
// Iteration stops early once the largest per-coordinate change falls below
// tol.
func solveProjectedGradient(q [][]float64, c, x0 []float64, lr float64, maxIter int, tol float64, project func([]float64)) []float64 {
	n := len(x0)
	x := make([]float64, n)
	copy(x, x0)
	project(x)

	grad := make([]float64, n)
	prev := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		copy(prev, x)

		for i := 0; i < n; i++ {
			g := c[i]
			for j := 0; j < n; j++ {
				g += q[i][j] * x[j]
			}
			grad[i] = g
		}
		for i := 0; i < n; i++ {
			x[i] -= lr * grad[i]
			if math.IsNaN(x[i]) || math.IsInf(x[i], 0) {
				x[i] = prev[i]
			}
		}
		project(x)

		maxDelta := 0.0
		for i := 0; i < n; i++ {
			if d := math.Abs(x[i] - prev[i]); d > maxDelta {
				maxDelta = d
			}
		}
		if maxDelta < tol {
			break
		}
	}
	return x
}

// quadraticCost evaluates 0.5*xᵀQx + cᵀx at x.
func quadraticCost(q [][]float64, c, x []float64) float64 {
	var quad, lin float64
	for i := range x {
		for j := range x {
			quad += x[i] * q[i][j] * x[j]
		}
		lin += c[i] * x[i]
	}
	return 0.5*quad + lin
}
