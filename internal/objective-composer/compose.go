// Package objective assembles the scalar cost function from spec §4.4:
// labor, production, transport, shortage, waste, and an optional
// production-smoothing penalty, each weighted by CostStructure.
package objective

import (
	"fmt"

	indexbuilder "github.com/horizonfoods/planner-core/internal/index-builder"
	pm "github.com/horizonfoods/planner-core/internal/planning-model"
	sd "github.com/horizonfoods/planner-core/internal/solver-driver"
)

// Compose builds problem.Objective in place. It may append auxiliary
// variables and constraints to problem (the smoothing-penalty deviation
// terms), since linearizing |a-b| needs a helper deviation variable per
// date, bounded below by both a-b and b-a, that the Index Builder has no
// reason to emit.
func Compose(input pm.ModelInput, ix *indexbuilder.Index, problem *sd.Problem) {
	expr := sd.NewLinearExpr()
	cost := input.CostStructure

	regularRate, _ := cost.RegularLaborRatePerHour.Float64()
	otRate, _ := cost.OvertimeLaborRatePerHour.Float64()
	nonFixedRate, _ := cost.NonFixedLaborRatePerHour.Float64()
	nonFixedMin, _ := cost.NonFixedMinimumCharge.Float64()
	prodCost, _ := cost.ProductionCostPerUnit.Float64()
	changeoverCost, _ := cost.ChangeoverCost.Float64()
	shortageCost, _ := cost.ShortagePenaltyPerUnit.Float64()
	wasteCost, _ := cost.WastePenaltyPerUnit.Float64()
	smoothingRate, _ := cost.SmoothingPenaltyPerUnit.Float64()

	for lk, idx := range ix.LaborFixed {
		_ = lk
		expr = expr.Add(idx, regularRate)
	}
	for lk, idx := range ix.LaborOT {
		_ = lk
		expr = expr.Add(idx, otRate)
	}
	for lk, idx := range ix.LaborNonFixed {
		_ = lk
		expr = expr.Add(idx, nonFixedRate)
	}
	for lk, idx := range ix.NonFixedActive {
		_ = lk
		expr = expr.Add(idx, nonFixedMin)
	}

	for pk, idx := range ix.Prod {
		_ = pk
		expr = expr.Add(idx, prodCost)
	}
	for pk, idx := range ix.ProductProduced {
		_ = pk
		expr = expr.Add(idx, changeoverCost)
	}

	for k, idx := range ix.InTransit {
		route, ok := ix.Preproc.ExpandedLegs[k.Origin+"->"+k.Dest]
		if !ok {
			continue
		}
		perUnit, _ := route.CostPerUnit.Float64()
		expr = expr.Add(idx, perUnit)
	}

	for k, idx := range ix.Shortage {
		_ = k
		expr = expr.Add(idx, shortageCost)
	}

	// Waste penalty: discourage leftover inventory at the end of the
	// horizon in states that cannot be carried forward indefinitely.
	// Frozen stock has a long shelf life and is excluded; only the
	// non-frozen states are charged.
	dates := ix.Horizon.Dates()
	if wasteCost != 0 && len(dates) > 0 {
		lastDate := dates[len(dates)-1]
		for k, idx := range ix.Inv {
			if !k.Date.Equal(lastDate) || k.State == pm.StateFrozen {
				continue
			}
			expr = expr.Add(idx, wasteCost)
		}
	}

	problem.Objective = expr

	if input.Solver.SmoothingPenalty > 0 && smoothingRate > 0 {
		addSmoothingPenalty(input, ix, problem, input.Solver.SmoothingPenalty*smoothingRate)
	}
}

// addSmoothingPenalty linearizes |totalProduction[d] - totalProduction[d-1]|
// with a deviation variable dev[d] >= 0 bounded below by both signed
// differences, then adds weight*dev[d] to the objective for every date
// after the first.
func addSmoothingPenalty(input pm.ModelInput, ix *indexbuilder.Index, problem *sd.Problem, weight float64) {
	dates := ix.Horizon.Dates()
	for i := 1; i < len(dates); i++ {
		devIdx := problem.AddVariable(fmt.Sprintf("smoothing_dev[%s]", pm.DateKey(dates[i])), 0, 0)

		today := sd.NewLinearExpr()
		yesterday := sd.NewLinearExpr()
		for _, product := range ix.Products {
			if idx, ok := ix.Prod[indexbuilder.ProdKey{Date: dates[i], Product: product}]; ok {
				today = today.Add(idx, 1)
			}
			if idx, ok := ix.Prod[indexbuilder.ProdKey{Date: dates[i-1], Product: product}]; ok {
				yesterday = yesterday.Add(idx, 1)
			}
		}

		// dev >= today - yesterday
		upExpr := sd.NewLinearExpr().Add(devIdx, 1)
		for v, c := range today.Coeffs {
			upExpr = upExpr.Add(v, -c)
		}
		for v, c := range yesterday.Coeffs {
			upExpr = upExpr.Add(v, c)
		}
		problem.AddConstraint(sd.Constraint{
			Name: fmt.Sprintf("smoothing_dev_up[%s]", pm.DateKey(dates[i])),
			Expr: upExpr, Op: sd.GE, RHS: 0,
		})

		// dev >= yesterday - today
		downExpr := sd.NewLinearExpr().Add(devIdx, 1)
		for v, c := range yesterday.Coeffs {
			downExpr = downExpr.Add(v, -c)
		}
		for v, c := range today.Coeffs {
			downExpr = downExpr.Add(v, c)
		}
		problem.AddConstraint(sd.Constraint{
			Name: fmt.Sprintf("smoothing_dev_down[%s]", pm.DateKey(dates[i])),
			Expr: downExpr, Op: sd.GE, RHS: 0,
		})

		problem.Objective = problem.Objective.Add(devIdx, weight)
	}
}
