package solverdriver

import (
	"context"

	"github.com/horizonfoods/planner-core/internal/solver-driver/bnbsolver"
)

// builtin adapts bnbsolver's branch-and-bound search to the Solver
// interface, translating between this package's Problem/Solution IR and
// bnbsolver's self-contained LP/Result types.
type builtin struct{}

func newBuiltin() Solver { return builtin{} }

func (builtin) Solve(ctx context.Context, problem *Problem, warmStart map[int]float64, mipGap float64) (*Solution, error) {
	lp := &bnbsolver.LP{
		NumVars:   problem.NumVars,
		Objective: append([]float64(nil), objectiveCoeffs(problem)...),
		Lower:     append([]float64(nil), problem.LowerBounds...),
		Upper:     append([]float64(nil), problem.UpperBounds...),
		VarKinds:  make([]bnbsolver.VarKind, problem.NumVars),
		Minimize:  problem.Minimize,
	}
	for i, vt := range problem.VarTypes {
		switch vt {
		case Binary:
			lp.VarKinds[i] = bnbsolver.Binary
		case Integer:
			lp.VarKinds[i] = bnbsolver.Integer
		default:
			lp.VarKinds[i] = bnbsolver.Continuous
		}
	}
	lp.Constraints = make([]bnbsolver.Constraint, len(problem.Constraints))
	for i, c := range problem.Constraints {
		coeffs := make([]float64, problem.NumVars)
		for j, v := range c.Expr.Coeffs {
			coeffs[j] = v
		}
		rhs := c.RHS - c.Expr.Constant
		var op bnbsolver.RelOp
		switch c.Op {
		case LE:
			op = bnbsolver.LE
		case GE:
			op = bnbsolver.GE
		default:
			op = bnbsolver.EQ
		}
		lp.Constraints[i] = bnbsolver.Constraint{Coeffs: coeffs, Op: op, RHS: rhs}
	}

	res := bnbsolver.Solve(ctx, lp, bnbsolver.Options{MIPGap: mipGap, WarmStart: warmStart})

	sol := &Solution{
		ObjectiveValue: res.Objective,
		BestBound:      res.BestBound,
		MIPGap:         res.Gap,
		Values:         res.Values,
	}
	switch res.Status {
	case bnbsolver.StatusOptimal:
		sol.Status = StatusOptimal
	case bnbsolver.StatusFeasibleWithGap:
		sol.Status = StatusFeasibleWithGap
	case bnbsolver.StatusInfeasible:
		sol.Status = StatusInfeasible
	case bnbsolver.StatusUnbounded:
		sol.Status = StatusUnbounded
	case bnbsolver.StatusTimeLimit:
		sol.Status = StatusTimeLimit
	case bnbsolver.StatusCancelled:
		sol.Status = StatusCancelled
	default:
		sol.Status = StatusError
	}
	return sol, nil
}

func objectiveCoeffs(problem *Problem) []float64 {
	coeffs := make([]float64, problem.NumVars)
	for j, v := range problem.Objective.Coeffs {
		coeffs[j] = v
	}
	return coeffs
}
