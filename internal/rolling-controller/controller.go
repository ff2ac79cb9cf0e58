// Package rolling implements the three solve orchestration modes of spec
// §4.8 / §6.4: a single monolithic solve, sequential overlapping rolling
// windows that stitch tail inventory forward and commit only a prefix of
// each window, and parallel independent scenario solves with no shared
// mutable state between them.
package rolling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	constraints "github.com/horizonfoods/planner-core/internal/constraint-generator"
	indexbuilder "github.com/horizonfoods/planner-core/internal/index-builder"
	objective "github.com/horizonfoods/planner-core/internal/objective-composer"
	"github.com/horizonfoods/planner-core/internal/obs"
	pm "github.com/horizonfoods/planner-core/internal/planning-model"
	preprocess "github.com/horizonfoods/planner-core/internal/network-preprocessor"
	schema "github.com/horizonfoods/planner-core/internal/result-schema"
	extractor "github.com/horizonfoods/planner-core/internal/solution-extractor"
	sd "github.com/horizonfoods/planner-core/internal/solver-driver"
	warmstart "github.com/horizonfoods/planner-core/internal/warm-start"
)

// Controller drives one or more solves against the full pipeline:
// preprocess -> index -> constraints -> objective -> warm start -> solve ->
// extract. It holds no state of its own between calls.
type Controller struct {
	log *zap.Logger
}

// NewController constructs a Controller. A nil logger is replaced with a
// no-op one.
func NewController(log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{log: log}
}

// solveOne runs the full pipeline once and returns every intermediate
// artifact alongside the schema result, so callers that need to stitch
// state between windows (SolveWindowed) never have to re-parse the
// string-keyed result record to recover exact values.
func (c *Controller) solveOne(ctx context.Context, input pm.ModelInput, modelType schema.ModelType) (*schema.OptimizationSolution, *indexbuilder.Index, *sd.Solution, error) {
	solveID := uuid.NewString()
	log := c.log.With(obs.SolveID(solveID))
	obs.SolvesStarted.Inc()
	started := time.Now()
	status := "Error"
	defer func() {
		obs.SolveDuration.Observe(time.Since(started).Seconds())
		obs.SolvesCompleted.WithLabelValues(status).Inc()
	}()

	stageCtx, preSpan := obs.StartStageSpan(ctx, "preprocess", solveID)
	pre, err := preprocess.Preprocess(input)
	obs.RecordError(stageCtx, err)
	preSpan.End()
	if err != nil {
		return nil, nil, nil, err
	}

	stageCtx, idxSpan := obs.StartStageSpan(ctx, "index", solveID)
	ix, err := indexbuilder.Build(input, pre)
	obs.RecordError(stageCtx, err)
	idxSpan.End()
	if err != nil {
		return nil, nil, nil, err
	}
	obs.VariablesEmitted.Set(float64(ix.NumVariables()))

	stageCtx, consSpan := obs.StartStageSpan(ctx, "constraints", solveID)
	problem, err := constraints.Generate(input, ix)
	obs.RecordError(stageCtx, err)
	consSpan.End()
	if err != nil {
		return nil, nil, nil, err
	}
	obs.ConstraintsGenerated.Set(float64(len(problem.Constraints)))

	stageCtx, objSpan := obs.StartStageSpan(ctx, "objective", solveID)
	objective.Compose(input, ix, problem)
	obs.RecordError(stageCtx, nil)
	objSpan.End()

	stageCtx, warmSpan := obs.StartStageSpan(ctx, "warm_start", solveID)
	hint := warmstart.Generate(input.Solver.WarmStart, input, ix)
	obs.RecordError(stageCtx, nil)
	warmSpan.End()

	solver, err := solverdriverNewSolver(input.Solver.Solver)
	if err != nil {
		return nil, nil, nil, err
	}
	driver := sd.NewDriver(solver, log)

	var rerun func() (*sd.Problem, map[int]float64)
	if !input.Solver.AllowShortages {
		rerun = func() (*sd.Problem, map[int]float64) {
			relaxed := input
			relaxed.Solver.AllowShortages = true
			relaxedIx, err := indexbuilder.Build(relaxed, pre)
			if err != nil {
				return problem, hint
			}
			relaxedProblem, err := constraints.Generate(relaxed, relaxedIx)
			if err != nil {
				return problem, hint
			}
			objective.Compose(relaxed, relaxedIx, relaxedProblem)
			return relaxedProblem, nil
		}
	}

	timeLimit := input.Solver.TimeLimitSeconds
	if timeLimit <= 0 {
		timeLimit = pm.DefaultSolverConfig().TimeLimitSeconds
	}
	stageCtx, solveSpan := obs.StartStageSpan(ctx, "solve", solveID)
	sol, diagnosticRerun, err := driver.Run(stageCtx, problem, hint, timeLimit, input.Solver.MIPGap, rerun)
	obs.RecordError(stageCtx, err)
	solveSpan.End()
	if err != nil {
		return nil, nil, nil, err
	}

	stageCtx, extractSpan := obs.StartStageSpan(ctx, "extract", solveID)
	result, err := extractor.Extract(input, ix, sol, diagnosticRerun, modelType, log)
	obs.RecordError(stageCtx, err)
	extractSpan.End()
	if err != nil {
		return nil, ix, sol, err
	}
	result.SolveID = solveID
	status = result.Status

	obs.MIPGapAchieved.Set(result.MIPGap)
	obs.MaterialBalanceResidual.Set(result.MaterialBalanceResidual)
	shortageUnits := 0.0
	for _, d := range result.DemandSatisfaction {
		shortageUnits += d.Shortage
	}
	obs.ShortageUnits.Set(shortageUnits)

	// The model as submitted (shortages disabled) was infeasible; the
	// shortages-enabled diagnostic result is returned alongside the error.
	if diagnosticRerun {
		return result, ix, sol, &pm.SolverOutcomeError{Status: "Infeasible", DiagnosticRerun: true, Err: pm.ErrInfeasible}
	}
	return result, ix, sol, nil
}

func solverdriverNewSolver(name string) (sd.Solver, error) {
	return sd.NewSolver(name)
}

// SolveOne runs a single monolithic solve over the entire input and
// returns the extracted schema record. When shortages are disabled and the
// driver had to fall back to its shortages-enabled diagnostic rerun, the
// diagnostic record is returned together with a *SolverOutcomeError.
func (c *Controller) SolveOne(ctx context.Context, input pm.ModelInput) (*schema.OptimizationSolution, error) {
	result, _, _, err := c.solveOne(ctx, input, schema.ModelSlidingWindow)
	return result, err
}

// SolveWindowed implements spec §6.4's "windowed" solve mode: solve
// WindowDays at a time, commit only the first CommitDays of each window's
// decisions, and stitch the committed window's end-of-day inventory
// forward as the next window's opening inventory. This bounds solver time
// on long horizons at the cost of not re-optimizing committed decisions in
// light of later demand.
func (c *Controller) SolveWindowed(ctx context.Context, input pm.ModelInput) (*schema.OptimizationSolution, error) {
	basePre, err := preprocess.Preprocess(input)
	if err != nil {
		return nil, err
	}
	fullHorizon := basePre.Horizon

	windowDays := input.Solver.WindowDays
	if windowDays <= 0 {
		windowDays = fullHorizon.Days()
	}
	commitDays := input.Solver.CommitDays
	if commitDays <= 0 || commitDays > windowDays {
		commitDays = windowDays
	}

	combined := newCombinedSolution()
	combined.SolveID = uuid.NewString()
	current := input
	currentStart := fullHorizon.Start
	demandedTotal, metTotal := 0.0, 0.0

	for {
		windowEnd := currentStart.AddDate(0, 0, windowDays-1)
		if windowEnd.After(fullHorizon.End) {
			windowEnd = fullHorizon.End
		}
		windowInput := current
		windowInput.HorizonOverride = &pm.PlanningHorizon{Start: currentStart, End: windowEnd}

		result, ix, sol, err := c.solveOne(ctx, windowInput, schema.ModelWindowed)
		if err != nil {
			return nil, fmt.Errorf("window starting %s: %w", pm.DateKey(currentStart), err)
		}

		commitEnd := currentStart.AddDate(0, 0, commitDays-1)
		if commitEnd.After(windowEnd) {
			commitEnd = windowEnd
		}
		mergeCommittedPortion(combined, result, currentStart, commitEnd)
		demandedTotal += sumDemanded(result, currentStart, commitEnd)
		metTotal += sumMet(result, currentStart, commitEnd)

		current = stitchOpeningInventory(current, ix, sol, commitEnd)

		if !commitEnd.Before(fullHorizon.End) {
			break
		}
		currentStart = commitEnd.AddDate(0, 0, 1)
	}

	if demandedTotal > 0 {
		combined.FillRate = metTotal / demandedTotal
	} else {
		combined.FillRate = 1.0
	}
	combined.Status = string(sd.StatusOptimal)
	return combined, nil
}

func newCombinedSolution() *schema.OptimizationSolution {
	return &schema.OptimizationSolution{
		ModelType:                       schema.ModelWindowed,
		LaborHoursByDate:                map[schema.Key]schema.LaborHours{},
		InventoryByNodeProductDateState: map[schema.Key]float64{},
	}
}

// mergeCommittedPortion folds the [start,end] committed slice of window
// into combined. Production batches, shipments and demand rows are copied
// only when dated inside [start,end]; every window's opening-inventory
// INIT batch is copied as well. The inventory and labor maps are copied
// whole: each later window starts after this window's committed range and
// overwrites the dates it shares, so a date's final entry comes from the
// window that committed it.
func mergeCommittedPortion(combined, window *schema.OptimizationSolution, start, end time.Time) {
	for _, b := range window.ProductionBatches {
		if inRange(b.Date.Time(), start, end) || b.IsOpeningInventory {
			combined.ProductionBatches = append(combined.ProductionBatches, b)
			if !b.IsOpeningInventory {
				combined.TotalProduction += b.Quantity
			}
		}
	}
	for _, s := range window.Shipments {
		if inRange(s.DepartureDate.Time(), start, end) {
			combined.Shipments = append(combined.Shipments, s)
		}
	}
	for _, d := range window.DemandSatisfaction {
		if inRange(d.Date.Time(), start, end) {
			combined.DemandSatisfaction = append(combined.DemandSatisfaction, d)
		}
	}
	for k, v := range window.LaborHoursByDate {
		combined.LaborHoursByDate[k] = v
	}
	for k, v := range window.InventoryByNodeProductDateState {
		combined.InventoryByNodeProductDateState[k] = v
	}
	combined.TotalCost.Labor = combined.TotalCost.Labor.Add(window.TotalCost.Labor)
	combined.TotalCost.Production = combined.TotalCost.Production.Add(window.TotalCost.Production)
	combined.TotalCost.Transport = combined.TotalCost.Transport.Add(window.TotalCost.Transport)
	combined.TotalCost.Shortage = combined.TotalCost.Shortage.Add(window.TotalCost.Shortage)
	combined.TotalCost.Waste = combined.TotalCost.Waste.Add(window.TotalCost.Waste)
	combined.TotalCost.Total = combined.TotalCost.Total.Add(window.TotalCost.Total)
	if window.MaterialBalanceResidual > combined.MaterialBalanceResidual {
		combined.MaterialBalanceResidual = window.MaterialBalanceResidual
	}
	combined.SolveTimeSeconds += window.SolveTimeSeconds
}

func inRange(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}

func sumDemanded(sol *schema.OptimizationSolution, start, end time.Time) float64 {
	total := 0.0
	for _, d := range sol.DemandSatisfaction {
		if inRange(d.Date.Time(), start, end) {
			total += d.Demanded
		}
	}
	return total
}

func sumMet(sol *schema.OptimizationSolution, start, end time.Time) float64 {
	total := 0.0
	for _, d := range sol.DemandSatisfaction {
		if inRange(d.Date.Time(), start, end) {
			total += d.Met
		}
	}
	return total
}

// stitchOpeningInventory carries a window's end-of-commitEnd inventory
// forward as the next window's node opening inventory, read directly off
// the solved index and solution rather than the string-keyed result, so
// the values are exact.
func stitchOpeningInventory(input pm.ModelInput, ix *indexbuilder.Index, sol *sd.Solution, commitEnd time.Time) pm.ModelInput {
	next := input
	next.Nodes = append([]pm.Node(nil), input.Nodes...)

	for i, n := range next.Nodes {
		opening := map[string]map[pm.InventoryState]float64{}
		for _, product := range ix.Products {
			for _, state := range n.OutboundCapableStates() {
				idx, ok := ix.Inv[indexbuilder.InvKey{Node: n.ID, Product: product, Date: commitEnd, State: state}]
				if !ok {
					continue
				}
				val := sol.Value(idx)
				if val <= 0 {
					continue
				}
				if opening[product] == nil {
					opening[product] = map[pm.InventoryState]float64{}
				}
				opening[product][state] = val
			}
		}
		next.Nodes[i].OpeningInventory = opening
	}
	return next
}

// SolveScenarios runs every scenario independently and concurrently (spec
// §4.8's "no shared mutable state" rolling mode): each goroutine builds its
// own preprocessor result, index, problem, and solver, so one scenario's
// solve can never observe another's intermediate state. The first error
// from any scenario cancels the rest.
func (c *Controller) SolveScenarios(ctx context.Context, scenarios map[string]pm.ModelInput) (map[string]*schema.OptimizationSolution, error) {
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	results := make(map[string]*schema.OptimizationSolution, len(scenarios))

	for name, in := range scenarios {
		name, in := name, in
		g.Go(func() error {
			sol, err := c.SolveOne(gctx, in)
			if err != nil {
				return fmt.Errorf("scenario %q: %w", name, err)
			}
			mu.Lock()
			results[name] = sol
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
