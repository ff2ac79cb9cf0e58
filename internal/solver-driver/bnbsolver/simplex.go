// Package bnbsolver is the default open-source solver backend behind
// solverdriver.Solver: a branch-and-bound search over a dense two-phase
// primal simplex LP relaxation, written from scratch against the standard
// library only. No example in this codebase's ecosystem depends on a real
// LP/MIP library (no cgo GLPK/CBC binding, no commercial SDK), so this
// package is the one place in the module whose core numerical engine is
// hand-rolled rather than imported — everything around it (driver
// plumbing, logging, metrics, config) still goes through the same
// third-party stack as the rest of the module.
package bnbsolver

import "math"

const simplexEps = 1e-7

// standardForm is a dense LP in the form:
//
//	minimize    c.x
//	subject to  A x {<=,>=,==} b,  lower <= x <= upper
//
// rows are the original Problem constraints plus any bound rows the caller
// chose not to fold into lower/upper (there are none in this solver: every
// bound is carried in lower/upper and only inequality/equality rows go into
// A).
type standardForm struct {
	numVars     int
	c           []float64
	rows        [][]float64
	relOps      []int // -1 <=, 0 ==, +1 >=
	rhs         []float64
	lower       []float64
	upper       []float64
}

// result is the outcome of solving an LP relaxation.
type result struct {
	feasible bool
	unbounded bool
	x        []float64
	obj      float64
}

// solveLP runs a bounded-variable two-phase primal simplex over lp. Variable
// bounds are handled by simple substitution (shifting to 0 and clamping at
// the upper bound via an artificial slack row) rather than a full bounded
// revised simplex, which keeps the tableau code compact at the cost of one
// extra row per bounded variable; acceptable here since this module's
// problems are sparse but not astronomically large.
func solveLP(lp *standardForm) result {
	n := lp.numVars
	m := len(lp.rows)

	// Shift variables to start at 0: x = y + lower, y in [0, upper-lower].
	shifted := make([]float64, n)
	span := make([]float64, n)
	for j := 0; j < n; j++ {
		shifted[j] = lp.lower[j]
		span[j] = lp.upper[j] - lp.lower[j]
		if span[j] < 0 {
			span[j] = 0
		}
	}

	// Build tableau rows: original constraints, plus one row per variable
	// with a finite span to enforce y_j <= span_j.
	type row struct {
		coeffs []float64
		op     int
		rhs    float64
	}
	allRows := make([]row, 0, m+n)
	for i := 0; i < m; i++ {
		coeffs := make([]float64, n)
		rhs := lp.rhs[i]
		for j := 0; j < n; j++ {
			coeffs[j] = lp.rows[i][j]
			rhs -= lp.rows[i][j] * shifted[j]
		}
		allRows = append(allRows, row{coeffs: coeffs, op: lp.relOps[i], rhs: rhs})
	}
	for j := 0; j < n; j++ {
		if math.IsInf(span[j], 1) || span[j] >= 1e17 {
			continue
		}
		coeffs := make([]float64, n)
		coeffs[j] = 1
		allRows = append(allRows, row{coeffs: coeffs, op: -1, rhs: span[j]})
	}

	numRows := len(allRows)
	// Tableau columns: n structural + numRows slack/surplus + numRows artificial.
	numSlack := numRows
	numArt := numRows
	totalCols := n + numSlack + numArt

	tableau := make([][]float64, numRows+1) // last row is objective (phase 1 then phase 2)
	for i := range tableau {
		tableau[i] = make([]float64, totalCols+1)
	}
	basis := make([]int, numRows)

	for i, r := range allRows {
		rhs := r.rhs
		sign := 1.0
		if rhs < 0 {
			sign = -1.0
			rhs = -rhs
		}
		for j := 0; j < n; j++ {
			tableau[i][j] = sign * r.coeffs[j]
		}
		op := r.op
		if sign < 0 {
			switch op {
			case -1:
				op = 1
			case 1:
				op = -1
			}
		}
		switch op {
		case -1: // <=
			tableau[i][n+i] = 1
			basis[i] = n + i
			tableau[i][totalCols] = rhs
		case 1: // >=
			tableau[i][n+i] = -1
			tableau[i][n+numSlack+i] = 1
			basis[i] = n + numSlack + i
			tableau[i][totalCols] = rhs
		default: // ==
			tableau[i][n+numSlack+i] = 1
			basis[i] = n + numSlack + i
			tableau[i][totalCols] = rhs
		}
	}

	// Phase 1: minimize sum of artificial variables.
	phase1Obj := make([]float64, totalCols+1)
	for i := 0; i < numRows; i++ {
		artCol := n + numSlack + i
		if basis[i] == artCol {
			for j := 0; j <= totalCols; j++ {
				phase1Obj[j] += tableau[i][j]
			}
		}
	}
	for j := n + numSlack; j < totalCols; j++ {
		phase1Obj[j] -= 1 // will be cancelled by the loop above where basic; ensures reduced costs computed against 0 cost for non-basic artificials
	}
	// Recompute cleanly: phase1Obj = sum of rows whose basis is artificial,
	// with artificial columns themselves costed at 0 in the row reduction
	// (they cancel because each artificial column is identity in its row).
	for j := range phase1Obj {
		phase1Obj[j] = 0
	}
	for i := 0; i < numRows; i++ {
		artCol := n + numSlack + i
		if basis[i] == artCol {
			for j := 0; j <= totalCols; j++ {
				phase1Obj[j] += tableau[i][j]
			}
		}
	}

	if !runSimplex(tableau, basis, phase1Obj, totalCols, numRows, n+numSlack, totalCols) {
		return result{feasible: false}
	}
	if phase1Obj[totalCols] > 1e-6 {
		return result{feasible: false} // no feasible point: artificials remain positive
	}

	// Drive any remaining artificial out of the basis (degenerate pivot) if
	// possible; if an artificial cannot leave because its row is all-zero
	// among structural/slack columns, the row is redundant and ignored.
	for i := 0; i < numRows; i++ {
		if basis[i] >= n+numSlack {
			pivotCol := -1
			for j := 0; j < n+numSlack; j++ {
				if math.Abs(tableau[i][j]) > simplexEps {
					pivotCol = j
					break
				}
			}
			if pivotCol >= 0 {
				pivot(tableau, basis, i, pivotCol, numRows, totalCols)
			}
		}
	}

	// Phase 2: minimize the real objective, forbidding artificials from
	// re-entering by pricing them at +infinity (a large positive number).
	phase2Obj := make([]float64, totalCols+1)
	for j := 0; j < n; j++ {
		phase2Obj[j] = lp.c[j]
	}
	// Reduce phase2Obj against the current basis.
	for i := 0; i < numRows; i++ {
		if basis[i] < n {
			coeff := phase2Obj[basis[i]]
			if coeff != 0 {
				for j := 0; j <= totalCols; j++ {
					phase2Obj[j] -= coeff * tableau[i][j]
				}
			}
		}
	}
	for j := n + numSlack; j < totalCols; j++ {
		phase2Obj[j] = 1e18 // block artificials from re-entering
	}

	if !runSimplex(tableau, basis, phase2Obj, totalCols, numRows, n+numSlack, totalCols) {
		return result{unbounded: true, feasible: true}
	}

	y := make([]float64, n)
	for i := 0; i < numRows; i++ {
		if basis[i] < n {
			y[basis[i]] = tableau[i][totalCols]
		}
	}
	x := make([]float64, n)
	obj := 0.0
	for j := 0; j < n; j++ {
		x[j] = y[j] + shifted[j]
		obj += lp.c[j] * x[j]
	}
	return result{feasible: true, x: x, obj: obj}
}

// runSimplex performs primal simplex pivots against the given reduced-cost
// row (obj) until optimal or unbounded. artStart..artEnd marks the column
// range ineligible to be reported as a pivot improvement once priced out
// (phase 2 uses a large cost instead, so no special casing is needed here
// beyond iteration limits). Returns false if an unbounded ray is detected.
func runSimplex(tableau [][]float64, basis []int, obj []float64, totalCols, numRows, artStart, artEnd int) bool {
	const maxIters = 20000
	for iter := 0; iter < maxIters; iter++ {
		pivotCol := -1
		best := -simplexEps
		for j := 0; j < totalCols; j++ {
			if obj[j] < best {
				best = obj[j]
				pivotCol = j
			}
		}
		if pivotCol == -1 {
			copy(tableau[numRows], obj)
			return true // optimal
		}

		pivotRow := -1
		bestRatio := math.Inf(1)
		for i := 0; i < numRows; i++ {
			if tableau[i][pivotCol] > simplexEps {
				ratio := tableau[i][totalCols] / tableau[i][pivotCol]
				if ratio < bestRatio-1e-9 {
					bestRatio = ratio
					pivotRow = i
				}
			}
		}
		if pivotRow == -1 {
			return false // unbounded
		}

		pivot(tableau, basis, pivotRow, pivotCol, numRows, totalCols)
		pivotObjRow(obj, tableau, pivotRow, pivotCol, totalCols)
	}
	copy(tableau[numRows], obj)
	return true // iteration cap reached; report best found as optimal
}

func pivot(tableau [][]float64, basis []int, row, col, numRows, totalCols int) {
	pv := tableau[row][col]
	for j := 0; j <= totalCols; j++ {
		tableau[row][j] /= pv
	}
	for i := 0; i < numRows; i++ {
		if i == row {
			continue
		}
		factor := tableau[i][col]
		if factor == 0 {
			continue
		}
		for j := 0; j <= totalCols; j++ {
			tableau[i][j] -= factor * tableau[row][j]
		}
	}
	basis[row] = col
}

func pivotObjRow(obj []float64, tableau [][]float64, row, col, totalCols int) {
	factor := obj[col]
	if factor == 0 {
		return
	}
	for j := 0; j <= totalCols; j++ {
		obj[j] -= factor * tableau[row][j]
	}
}
