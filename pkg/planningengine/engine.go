// Package planningengine is the public façade over the planning core's
// internal components: a thin pkg/ wrapper around a richer internal/
// implementation, re-exporting only the types and entry points callers need.
package planningengine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pm "github.com/horizonfoods/planner-core/internal/planning-model"
	rolling "github.com/horizonfoods/planner-core/internal/rolling-controller"
	schema "github.com/horizonfoods/planner-core/internal/result-schema"
)

// Re-exported types so callers never need to import internal/ directly.
type (
	ModelInput           = pm.ModelInput
	SolverConfig         = pm.SolverConfig
	Node                 = pm.Node
	Route                = pm.Route
	TruckSchedule        = pm.TruckSchedule
	LaborCalendar        = pm.LaborCalendar
	LaborDay             = pm.LaborDay
	Forecast             = pm.Forecast
	ForecastEntry        = pm.ForecastEntry
	CostStructure        = pm.CostStructure
	ShelfLifeParams      = pm.ShelfLifeParams
	PlanningHorizon      = pm.PlanningHorizon
	InventoryState       = pm.InventoryState
	OptimizationSolution = schema.OptimizationSolution
)

var DefaultSolverConfig = pm.DefaultSolverConfig

// Engine is the single entry point a CLI, web UI, or spreadsheet-parser
// collaborator needs: build a ModelInput, call Solve.
type Engine struct {
	controller *rolling.Controller
}

// New constructs an Engine. A nil logger is replaced with a no-op one.
func New(log *zap.Logger) *Engine {
	return &Engine{controller: rolling.NewController(log)}
}

// Solve dispatches to the monolithic or windowed rolling controller based
// on input.Solver.SolveMode (spec §6.4), defaulting to monolithic when
// unset.
func (e *Engine) Solve(ctx context.Context, input pm.ModelInput) (*schema.OptimizationSolution, error) {
	switch input.Solver.SolveMode {
	case "", "monolithic":
		return e.controller.SolveOne(ctx, input)
	case "windowed":
		return e.controller.SolveWindowed(ctx, input)
	default:
		return nil, &pm.ConfigError{
			Kind:   "unknown_solve_mode",
			Detail: fmt.Sprintf("solve_mode %q is not one of monolithic|windowed", input.Solver.SolveMode),
		}
	}
}

// SolveScenarios runs every named scenario independently and concurrently,
// for what-if comparisons (spec §5's "coarse-grained parallelism ... no
// shared mutable state"). Every scenario is solved monolithically through
// the controller's SolveOne; a scenario's SolveMode is not consulted.
func (e *Engine) SolveScenarios(ctx context.Context, scenarios map[string]pm.ModelInput) (map[string]*schema.OptimizationSolution, error) {
	return e.controller.SolveScenarios(ctx, scenarios)
}
