package solverdriver

import (
	"context"
	"time"

	"go.uber.org/zap"

	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

// Solver is the opaque handle of spec §6.3: a Problem goes in, a Solution
// comes out, subject to a time limit and an optional warm-start hint for
// the binary product_produced variables.
type Solver interface {
	// Solve runs the problem to optimality or until ctx is cancelled /
	// the configured time limit elapses, whichever comes first.
	// warmStart maps variable index to its suggested initial value; it
	// may be nil.
	Solve(ctx context.Context, problem *Problem, warmStart map[int]float64, mipGap float64) (*Solution, error)
}

// NewSolver resolves a SolverConfig.Solver name to a concrete backend.
// "default" and "" select the built-in branch-and-bound solver
// (internal/solver-driver/bnbsolver), which is the open-source default
// spec §4.5 calls for. Any other name is a documented extension point for
// a commercial backend (Gurobi, CPLEX) and returns a ConfigError today.
func NewSolver(name string) (Solver, error) {
	switch name {
	case "", "default":
		return newBuiltin(), nil
	default:
		return nil, &pm.ConfigError{
			Kind:   "unknown_solver_backend",
			Detail: "solver backend " + name + " is not registered; only \"default\" is built in",
		}
	}
}

// Driver wraps a Solver with the time-limit/mip-gap/warm-start plumbing and
// the infeasible-with-shortages-disabled auto-rerun policy of spec §4.5 /
// §7.
type Driver struct {
	solver Solver
	log    *zap.Logger
}

// NewDriver constructs a Driver around the given backend.
func NewDriver(solver Solver, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{solver: solver, log: log}
}

// Run solves problem with the given config. If shortagesDisabledRerun is
// provided (non-nil), Run will call it to obtain a shortages-enabled
// variant of the problem and re-solve once, tagging the result as a
// diagnostic solve, whenever the first attempt returns Infeasible or
// Unbounded. This mirrors spec §4.5's "if shortages were disabled, re-run
// with shortages enabled and mark the result as a diagnostic solve".
func (d *Driver) Run(
	ctx context.Context,
	problem *Problem,
	warmStart map[int]float64,
	timeLimitSeconds int,
	mipGap float64,
	shortagesDisabledRerun func() (*Problem, map[int]float64),
) (*Solution, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeLimitSeconds)*time.Second)
	defer cancel()

	start := time.Now()
	sol, err := d.solver.Solve(ctx, problem, warmStart, mipGap)
	if err != nil {
		return nil, false, &pm.SolverError{Stage: "solve", Err: err}
	}
	sol.WallTimeSec = time.Since(start).Seconds()

	if (sol.Status == StatusInfeasible || sol.Status == StatusUnbounded) && shortagesDisabledRerun != nil {
		d.log.Warn("solve infeasible or unbounded; re-running diagnostic solve with shortages enabled",
			zap.String("status", string(sol.Status)))
		diagProblem, diagWarmStart := shortagesDisabledRerun()
		diagCtx, diagCancel := context.WithTimeout(context.Background(), time.Duration(timeLimitSeconds)*time.Second)
		defer diagCancel()
		diagStart := time.Now()
		diagSol, diagErr := d.solver.Solve(diagCtx, diagProblem, diagWarmStart, mipGap)
		if diagErr != nil {
			return nil, false, &pm.SolverError{Stage: "diagnostic_solve", Err: diagErr}
		}
		diagSol.WallTimeSec = time.Since(diagStart).Seconds()
		return diagSol, true, nil
	}

	return sol, false, nil
}
