package bnbsolver

import (
	"context"
	"math"
	"sort"
)

// VarKind is the domain of a decision variable, independent of any
// upstream package so this solver has no import back onto its caller.
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

// RelOp is a constraint's relational operator.
type RelOp int

const (
	LE RelOp = iota
	GE
	EQ
)

// Constraint is one row of the LP: Coeffs.x {<=,>=,==} RHS.
type Constraint struct {
	Coeffs []float64
	Op     RelOp
	RHS    float64
}

// LP is the complete mixed-integer program handed to Solve.
type LP struct {
	NumVars     int
	Objective   []float64
	Constraints []Constraint
	VarKinds    []VarKind
	Lower       []float64
	Upper       []float64
	Minimize    bool
}

// Options configures the branch-and-bound search.
type Options struct {
	MIPGap    float64            // caller's relative gap target; Solve does not read it and never stops early on it
	WarmStart map[int]float64    // variable index -> suggested value, explored first
}

// Status mirrors the termination vocabulary the caller translates into its
// own Status type.
type Status int

const (
	StatusOptimal Status = iota
	StatusFeasibleWithGap
	StatusInfeasible
	StatusUnbounded
	StatusTimeLimit
	StatusCancelled
)

// Result is what Solve returns.
type Result struct {
	Status    Status
	Objective float64
	BestBound float64
	Gap       float64
	Values    []float64
}

type node struct {
	lower []float64
	upper []float64
}

// Solve runs branch-and-bound: at each node, solve the LP relaxation; if it
// is integer-feasible on every Integer/Binary variable, it is a candidate
// incumbent; otherwise branch on the most-fractional such variable into two
// child nodes. A warm-start hint (when provided) is tried as a starting
// incumbent and, at each branch, the child on the hint's side is explored
// first. The search proceeds depth-first over a LIFO stack of open nodes,
// pruning any node whose bound cannot beat the incumbent, until the stack
// is empty, the node cap is reached, or ctx is done.
func Solve(ctx context.Context, lp *LP, opts Options) Result {
	intVars := make([]int, 0)
	for j, k := range lp.VarKinds {
		if k == Integer || k == Binary {
			intVars = append(intVars, j)
		}
	}

	root := node{lower: append([]float64(nil), lp.Lower...), upper: append([]float64(nil), lp.Upper...)}

	c := lp.Objective
	if !lp.Minimize {
		c = make([]float64, len(lp.Objective))
		for i, v := range lp.Objective {
			c[i] = -v
		}
	}

	var incumbent []float64
	incumbentObj := math.Inf(1)
	haveIncumbent := false
	bestBoundSeen := math.Inf(1)

	queue := []node{root}
	hint := roundedHint(lp, opts.WarmStart)
	if hint != nil {
		if v, obj, ok := evaluateHint(lp, c, hint); ok && obj < incumbentObj {
			incumbent = v
			incumbentObj = obj
			haveIncumbent = true
		}
	}

	const maxNodes = 50000
	explored := 0

	for len(queue) > 0 {
		explored++
		if explored > maxNodes {
			break
		}
		select {
		case <-ctx.Done():
			return finish(lp, incumbent, incumbentObj, bestBoundSeen, haveIncumbent, StatusTimeLimit)
		default:
		}

		cur := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		lpResult := solveLP(&standardForm{
			numVars: lp.NumVars,
			c:       c,
			rows:    constraintRows(lp),
			relOps:  constraintOps(lp),
			rhs:     constraintRHS(lp),
			lower:   cur.lower,
			upper:   cur.upper,
		})
		if !lpResult.feasible {
			continue
		}
		if lpResult.unbounded {
			if !haveIncumbent {
				return Result{Status: StatusUnbounded}
			}
			continue
		}
		if haveIncumbent && lpResult.obj >= incumbentObj-1e-9 {
			continue // bound cannot improve on incumbent
		}

		fracVar, fracVal := mostFractional(lpResult.x, intVars)
		if fracVar == -1 {
			incumbent = lpResult.x
			incumbentObj = lpResult.obj
			haveIncumbent = true
			continue
		}

		if lpResult.obj < bestBoundSeen {
			bestBoundSeen = lpResult.obj
		}

		floorVal := math.Floor(fracVal)
		left := node{lower: append([]float64(nil), cur.lower...), upper: append([]float64(nil), cur.upper...)}
		left.upper[fracVar] = floorVal
		right := node{lower: append([]float64(nil), cur.lower...), upper: append([]float64(nil), cur.upper...)}
		right.lower[fracVar] = floorVal + 1

		// Explore the side matching the warm-start hint first: since queue
		// is a LIFO stack, push the non-hinted child first so the hinted
		// child pops next.
		if hint != nil {
			if hv, ok := hint[fracVar]; ok && hv <= floorVal {
				queue = append(queue, right, left)
				continue
			}
		}
		queue = append(queue, left, right)
	}

	status := StatusOptimal
	if explored > maxNodes {
		status = StatusTimeLimit
	}
	if !haveIncumbent {
		if status == StatusTimeLimit {
			return Result{Status: StatusTimeLimit}
		}
		return Result{Status: StatusInfeasible}
	}
	return finish(lp, incumbent, incumbentObj, bestBoundSeen, true, status)
}

func finish(lp *LP, incumbent []float64, incumbentObj, bestBound float64, haveIncumbent bool, status Status) Result {
	if !haveIncumbent {
		return Result{Status: status}
	}
	reportObj := incumbentObj
	if !lp.Minimize {
		reportObj = -reportObj
	}
	bound := bestBound
	if math.IsInf(bound, 1) {
		bound = incumbentObj
	}
	gap := 0.0
	if incumbentObj != 0 {
		gap = math.Abs(incumbentObj-bound) / math.Max(1e-9, math.Abs(incumbentObj))
	}
	if status == StatusOptimal && gap > 1e-6 {
		status = StatusFeasibleWithGap
	}
	return Result{
		Status:    status,
		Objective: reportObj,
		BestBound: bound,
		Gap:       gap,
		Values:    incumbent,
	}
}

func constraintRows(lp *LP) [][]float64 {
	rows := make([][]float64, len(lp.Constraints))
	for i, c := range lp.Constraints {
		rows[i] = c.Coeffs
	}
	return rows
}

func constraintOps(lp *LP) []int {
	ops := make([]int, len(lp.Constraints))
	for i, c := range lp.Constraints {
		switch c.Op {
		case LE:
			ops[i] = -1
		case GE:
			ops[i] = 1
		default:
			ops[i] = 0
		}
	}
	return ops
}

func constraintRHS(lp *LP) []float64 {
	rhs := make([]float64, len(lp.Constraints))
	for i, c := range lp.Constraints {
		rhs[i] = c.RHS
	}
	return rhs
}

// mostFractional returns the integer/binary variable index furthest from an
// integer value, and that value, or (-1, 0) if all are already integral
// within tolerance.
func mostFractional(x []float64, intVars []int) (int, float64) {
	best := -1
	bestDist := 1e-6
	for _, j := range intVars {
		frac := x[j] - math.Floor(x[j])
		dist := math.Min(frac, 1-frac)
		if dist > bestDist {
			bestDist = dist
			best = j
		}
	}
	if best == -1 {
		return -1, 0
	}
	return best, x[best]
}

// roundedHint rounds the caller's warm-start values to the nearest bound-
// respecting value, for every variable it names.
func roundedHint(lp *LP, hint map[int]float64) map[int]float64 {
	if len(hint) == 0 {
		return nil
	}
	rounded := make(map[int]float64, len(hint))
	for j, v := range hint {
		if j < 0 || j >= lp.NumVars {
			continue
		}
		if lp.VarKinds[j] != Continuous {
			v = math.Round(v)
		}
		if v < lp.Lower[j] {
			v = lp.Lower[j]
		}
		if v > lp.Upper[j] {
			v = lp.Upper[j]
		}
		rounded[j] = v
	}
	return rounded
}

// evaluateHint checks whether the hint satisfies every constraint; if so it
// is usable as a starting incumbent. This is a fast sufficiency check, not a
// general feasibility solver: a hint that does not name every variable is
// rejected without being checked, and no value is filled in for it.
func evaluateHint(lp *LP, c []float64, hint map[int]float64) ([]float64, float64, bool) {
	if len(hint) != lp.NumVars {
		return nil, 0, false
	}
	x := make([]float64, lp.NumVars)
	keys := make([]int, 0, len(hint))
	for j := range hint {
		keys = append(keys, j)
	}
	sort.Ints(keys)
	for _, j := range keys {
		x[j] = hint[j]
	}
	for _, con := range lp.Constraints {
		sum := 0.0
		for j, coeff := range con.Coeffs {
			sum += coeff * x[j]
		}
		switch con.Op {
		case LE:
			if sum > con.RHS+1e-6 {
				return nil, 0, false
			}
		case GE:
			if sum < con.RHS-1e-6 {
				return nil, 0, false
			}
		case EQ:
			if math.Abs(sum-con.RHS) > 1e-6 {
				return nil, 0, false
			}
		}
	}
	obj := 0.0
	for j, coeff := range c {
		obj += coeff * x[j]
	}
	return x, obj, true
}
