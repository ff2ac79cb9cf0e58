// Package constraints builds the abstract linear-programming constraint set
// of spec §4.3 against the sparse variable index produced by the Index
// Builder: flow conservation, sliding-window shelf life, demand
// satisfaction, labor accounting, truck capacity and timing, and the
// freeze/thaw state transitions. It never solves anything; it only emits a
// solverdriver.Problem for the solver driver to run.
package constraints

import (
	"fmt"
	"time"

	indexbuilder "github.com/horizonfoods/planner-core/internal/index-builder"
	pm "github.com/horizonfoods/planner-core/internal/planning-model"
	sd "github.com/horizonfoods/planner-core/internal/solver-driver"
)

// nonFixedBlockCapHours is the upper bound on a single day's non-fixed
// labor block. Non-fixed labor exists to cover occasional demand spikes
// outside the regular calendar, never a full extra shift.
const nonFixedBlockCapHours = 16.0

// Generate builds the full Problem: every decision variable the Index
// Builder emitted, bounded and typed, plus every constraint row.
func Generate(input pm.ModelInput, ix *indexbuilder.Index) (*sd.Problem, error) {
	p := sd.NewProblem(ix.NumVariables())
	declareVariables(p, input, ix)

	nodeByID := make(map[string]pm.Node, len(input.Nodes))
	for _, n := range input.Nodes {
		nodeByID[n.ID] = n
	}
	truckByID := make(map[string]pm.TruckSchedule, len(input.Trucks))
	for _, t := range input.Trucks {
		truckByID[t.ID] = t
	}
	forecastQty := make(map[indexbuilder.DemandKey]float64, len(input.Forecast))
	for _, e := range input.Forecast {
		if e.Quantity <= 0 {
			continue
		}
		forecastQty[indexbuilder.DemandKey{Dest: e.Destination, Product: e.Product, Date: e.Date}] = e.Quantity
	}

	g := &generator{
		input:       input,
		ix:          ix,
		problem:     p,
		nodeByID:    nodeByID,
		truckByID:   truckByID,
		forecastQty: forecastQty,
	}

	g.linkTruckLoadToInTransit()
	g.flowConservation()
	if input.Solver.EnforceShelfLife {
		g.shelfLifeWindows()
	}
	g.demandSatisfaction()
	g.laborAccounting()
	g.truckCapacityAndTiming()
	g.storageCapacity()

	return p, nil
}

type generator struct {
	input       pm.ModelInput
	ix          *indexbuilder.Index
	problem     *sd.Problem
	nodeByID    map[string]pm.Node
	truckByID   map[string]pm.TruckSchedule
	forecastQty map[indexbuilder.DemandKey]float64
}

// declareVariables sets the type and bounds of every emitted variable.
// product_produced and non_fixed_active are the only binaries in the
// model (spec §4.2); everything else is continuous and non-negative by
// NewProblem's default, except where a calendar or config value tightens
// the bound.
func declareVariables(p *sd.Problem, input pm.ModelInput, ix *indexbuilder.Index) {
	for k, idx := range ix.Prod {
		p.SetContinuous(idx, fmt.Sprintf("prod[%s,%s]", pm.DateKey(k.Date), k.Product), 0, 0)
	}
	for k, idx := range ix.ProductProduced {
		p.SetBinary(idx, fmt.Sprintf("product_produced[%s,%s]", pm.DateKey(k.Date), k.Product))
	}
	for k, idx := range ix.LaborFixed {
		day, _ := input.LaborCalendar.Day(k.Date)
		p.SetContinuous(idx, fmt.Sprintf("labor_fixed[%s]", pm.DateKey(k.Date)), 0, day.FixedHours)
		if day.FixedHours <= 0 {
			p.UpperBounds[idx] = 0
		}
	}
	for k, idx := range ix.LaborOT {
		day, _ := input.LaborCalendar.Day(k.Date)
		p.SetContinuous(idx, fmt.Sprintf("labor_ot[%s]", pm.DateKey(k.Date)), 0, day.MaxOvertimeHours)
		if day.MaxOvertimeHours <= 0 {
			p.UpperBounds[idx] = 0
		}
	}
	for k, idx := range ix.LaborNonFixed {
		p.SetContinuous(idx, fmt.Sprintf("labor_nonfixed[%s]", pm.DateKey(k.Date)), 0, nonFixedBlockCapHours)
	}
	for k, idx := range ix.NonFixedActive {
		p.SetBinary(idx, fmt.Sprintf("nonfixed_active[%s]", pm.DateKey(k.Date)))
	}
	for k, idx := range ix.Inv {
		p.SetContinuous(idx, fmt.Sprintf("inv[%s,%s,%s,%s]", k.Node, k.Product, pm.DateKey(k.Date), k.State), 0, 0)
	}
	for k, idx := range ix.InTransit {
		p.SetContinuous(idx, fmt.Sprintf("in_transit[%s->%s,%s,%s]", k.Origin, k.Dest, k.Product, pm.DateKey(k.Departure)), 0, 0)
	}
	for k, idx := range ix.TruckLoad {
		truck := mustTruck(input, k.TruckID)
		p.SetContinuous(idx, fmt.Sprintf("truck_load[%s,%s,%s,%s]", k.TruckID, k.LegID, k.Product, pm.DateKey(k.Departure)), 0, truck.CapacityUnits)
	}
	for k, idx := range ix.Freeze {
		p.SetContinuous(idx, fmt.Sprintf("freeze[%s,%s,%s]", k.Node, k.Product, pm.DateKey(k.Date)), 0, 0)
	}
	for k, idx := range ix.Thaw {
		p.SetContinuous(idx, fmt.Sprintf("thaw[%s,%s,%s]", k.Node, k.Product, pm.DateKey(k.Date)), 0, 0)
	}
	for k, idx := range ix.DemandMet {
		p.SetContinuous(idx, fmt.Sprintf("demand_met[%s,%s,%s]", k.Dest, k.Product, pm.DateKey(k.Date)), 0, 0)
	}
	for k, idx := range ix.Shortage {
		p.SetContinuous(idx, fmt.Sprintf("shortage[%s,%s,%s]", k.Dest, k.Product, pm.DateKey(k.Date)), 0, 0)
		if !input.Solver.AllowShortages {
			p.UpperBounds[idx] = 0
		}
	}
}

func mustTruck(input pm.ModelInput, id string) pm.TruckSchedule {
	for _, t := range input.Trucks {
		if t.ID == id {
			return t
		}
	}
	return pm.TruckSchedule{}
}

// linkTruckLoadToInTransit ties the per-truck loading decision to the
// aggregated shipment-in-flight variable the rest of the model reasons
// about: in_transit = sum of every truck's load on that leg and day.
func (g *generator) linkTruckLoadToInTransit() {
	byLeg := map[indexbuilder.InTransitKey][]int{}
	for k, idx := range g.ix.TruckLoad {
		route, ok := g.ix.Preproc.ExpandedLegs[k.LegID]
		if !ok {
			continue
		}
		itk := indexbuilder.InTransitKey{Origin: route.Origin, Dest: route.Destination, Product: k.Product, Departure: k.Departure, State: route.ArrivalState}
		byLeg[itk] = append(byLeg[itk], idx)
	}
	for itk, inTransitIdx := range g.ix.InTransit {
		expr := sd.NewLinearExpr().Add(inTransitIdx, 1)
		for _, loadIdx := range byLeg[itk] {
			expr = expr.Add(loadIdx, -1)
		}
		g.problem.AddConstraint(sd.Constraint{
			Name: fmt.Sprintf("in_transit_link[%s->%s,%s,%s]", itk.Origin, itk.Dest, itk.Product, pm.DateKey(itk.Departure)),
			Expr: expr, Op: sd.EQ, RHS: 0,
		})
	}
}

// inflowTerm is one additive contribution to a node's inventory balance on
// a given date: production, an arrival, or a freeze/thaw credit.
type inflowTerm struct {
	varIndex int
	coeff    float64
}

// inflows returns every term that credits (node,product,date,state) on
// exactly that date: production for the plant's ambient bucket, arrivals
// whose transit lands on date, and freeze/thaw transitions performed on
// date. Shared between flow conservation and the shelf-life window so the
// two constraint families never drift out of sync on what counts as an
// inflow.
func (g *generator) inflows(node pm.Node, product string, date time.Time, state pm.InventoryState) []inflowTerm {
	var terms []inflowTerm

	if node.ProducesAtNode && state == pm.StateAmbient {
		if idx, ok := g.ix.Prod[indexbuilder.ProdKey{Date: date, Product: product}]; ok {
			terms = append(terms, inflowTerm{idx, 1})
		}
	}

	for _, route := range g.ix.Preproc.ExpandedLegs {
		if route.Destination != node.ID || route.ArrivalState != state {
			continue
		}
		departure := date.AddDate(0, 0, -route.TransitDays)
		if idx, ok := g.ix.InTransit[indexbuilder.InTransitKey{Origin: route.Origin, Dest: route.Destination, Product: product, Departure: departure, State: state}]; ok {
			terms = append(terms, inflowTerm{idx, 1})
		}
	}

	if state == pm.StateFrozen && node.CanFreeze {
		if idx, ok := g.ix.Freeze[indexbuilder.FreezeThawKey{Node: node.ID, Product: product, Date: date}]; ok {
			terms = append(terms, inflowTerm{idx, 1})
		}
	}
	if state == pm.StateThawed && node.CanThaw {
		if idx, ok := g.ix.Thaw[indexbuilder.FreezeThawKey{Node: node.ID, Product: product, Date: date}]; ok {
			terms = append(terms, inflowTerm{idx, 1})
		}
	}

	return terms
}

// flowConservation emits, for every (node,product,date,state), the
// balance: inv[date] = inv[date-1] + inflows(date) - outflows(date), where
// outflows are demand served, outbound shipments, and freeze/thaw draining
// the source bucket. inv[start-1] is the node's opening inventory.
func (g *generator) flowConservation() {
	dates := g.ix.Horizon.Dates()
	for _, n := range g.input.Nodes {
		for _, state := range n.OutboundCapableStates() {
			for _, product := range g.ix.Products {
				for i, date := range dates {
					invIdx, ok := g.ix.Inv[indexbuilder.InvKey{Node: n.ID, Product: product, Date: date, State: state}]
					if !ok {
						continue
					}
					expr := sd.NewLinearExpr().Add(invIdx, 1)
					rhs := 0.0

					if i == 0 {
						rhs = openingInventory(n, product, state)
					} else {
						prevIdx, ok := g.ix.Inv[indexbuilder.InvKey{Node: n.ID, Product: product, Date: dates[i-1], State: state}]
						if ok {
							expr = expr.Add(prevIdx, -1)
						}
					}

					for _, term := range g.inflows(n, product, date, state) {
						expr = expr.Add(term.varIndex, -term.coeff)
					}

					// Outbound shipments drain the origin bucket.
					for _, route := range g.ix.Preproc.ExpandedLegs {
						if route.Origin != n.ID || route.ArrivalState != state {
							continue
						}
						if idx, ok := g.ix.InTransit[indexbuilder.InTransitKey{Origin: route.Origin, Dest: route.Destination, Product: product, Departure: date, State: state}]; ok {
							expr = expr.Add(idx, 1)
						}
					}

					// Demand drains ambient/thawed inventory directly.
					if n.HasDemand && state.IsDemandEligible() {
						if idx, ok := g.ix.DemandMet[indexbuilder.DemandKey{Dest: n.ID, Product: product, Date: date}]; ok {
							expr = expr.Add(idx, 1)
						}
					}

					// Freeze/thaw drain their source bucket (ambient for
					// freeze, frozen for thaw); the credited bucket is
					// handled by inflows above.
					if state == pm.StateAmbient && n.CanFreeze {
						if idx, ok := g.ix.Freeze[indexbuilder.FreezeThawKey{Node: n.ID, Product: product, Date: date}]; ok {
							expr = expr.Add(idx, 1)
						}
					}
					if state == pm.StateFrozen && n.CanThaw {
						if idx, ok := g.ix.Thaw[indexbuilder.FreezeThawKey{Node: n.ID, Product: product, Date: date}]; ok {
							expr = expr.Add(idx, 1)
						}
					}

					g.problem.AddConstraint(sd.Constraint{
						Name: fmt.Sprintf("flow[%s,%s,%s,%s]", n.ID, product, pm.DateKey(date), state),
						Expr: expr, Op: sd.EQ, RHS: rhs,
					})
				}
			}
		}
	}
}

func openingInventory(n pm.Node, product string, state pm.InventoryState) float64 {
	byProduct, ok := n.OpeningInventory[product]
	if !ok {
		return 0
	}
	return byProduct[state]
}

// shelfLifeWindows bounds every (node,product,date,state) inventory
// variable by the sum of inflows over the preceding maxAge days, so stock
// older than the product's shelf life can never remain on hand — the
// sliding-window replacement for an explicit age-cohort formulation (see
// design notes).
func (g *generator) shelfLifeWindows() {
	dates := g.ix.Horizon.Dates()
	for _, n := range g.input.Nodes {
		for _, state := range n.OutboundCapableStates() {
			maxAge := maxAgeForState(g.input.ShelfLife, state)
			if maxAge <= 0 {
				continue
			}
			for _, product := range g.ix.Products {
				for i, date := range dates {
					invIdx, ok := g.ix.Inv[indexbuilder.InvKey{Node: n.ID, Product: product, Date: date, State: state}]
					if !ok {
						continue
					}
					expr := sd.NewLinearExpr().Add(invIdx, 1)
					windowStart := i - maxAge + 1
					if windowStart < 0 {
						windowStart = 0
					}
					for w := windowStart; w <= i; w++ {
						for _, term := range g.inflows(n, product, dates[w], state) {
							expr = expr.Add(term.varIndex, -term.coeff)
						}
					}
					g.problem.AddConstraint(sd.Constraint{
						Name: fmt.Sprintf("shelf_life[%s,%s,%s,%s]", n.ID, product, pm.DateKey(date), state),
						Expr: expr, Op: sd.LE, RHS: 0,
					})
				}
			}
		}
	}
}

func maxAgeForState(sl pm.ShelfLifeParams, state pm.InventoryState) int {
	switch state {
	case pm.StateFrozen:
		return sl.MaxAgeFrozenDays
	case pm.StateThawed:
		return sl.MaxAgeThawedDays
	default:
		return sl.MaxAgeAmbientDays
	}
}

// demandSatisfaction enforces demand_met + shortage == forecast, and caps
// demand_met at the inventory actually on hand in a demand-eligible state:
// the previous day's closing inventory (opening inventory on the first
// horizon day) plus that day's inflows.
func (g *generator) demandSatisfaction() {
	for key, metIdx := range g.ix.DemandMet {
		shortageIdx, ok := g.ix.Shortage[key]
		if !ok {
			continue
		}
		qty := g.forecastQty[key]
		g.problem.AddConstraint(sd.Constraint{
			Name: fmt.Sprintf("demand_identity[%s,%s,%s]", key.Dest, key.Product, pm.DateKey(key.Date)),
			Expr: sd.NewLinearExpr().Add(metIdx, 1).Add(shortageIdx, 1), Op: sd.EQ, RHS: qty,
		})

		node, ok := g.nodeByID[key.Dest]
		if !ok {
			continue
		}
		expr := sd.NewLinearExpr().Add(metIdx, 1)
		rhs := 0.0
		for _, state := range node.OutboundCapableStates() {
			if !state.IsDemandEligible() {
				continue
			}
			if _, ok := g.ix.Inv[indexbuilder.InvKey{Node: key.Dest, Product: key.Product, Date: key.Date, State: state}]; !ok {
				continue
			}
			if idx, ok := g.ix.Inv[indexbuilder.InvKey{Node: key.Dest, Product: key.Product, Date: key.Date.AddDate(0, 0, -1), State: state}]; ok {
				expr = expr.Add(idx, -1)
			} else {
				rhs += openingInventory(node, key.Product, state)
			}
			for _, term := range g.inflows(node, key.Product, key.Date, state) {
				expr = expr.Add(term.varIndex, -term.coeff)
			}
		}
		g.problem.AddConstraint(sd.Constraint{
			Name: fmt.Sprintf("demand_availability[%s,%s,%s]", key.Dest, key.Product, pm.DateKey(key.Date)),
			Expr: expr, Op: sd.LE, RHS: rhs,
		})
	}
}

// laborAccounting converts total production into labor-hours demand and
// bounds it by the day's fixed, overtime, and non-fixed capacity, with a
// big-M linkage forcing non-fixed labor to pay its minimum block charge
// whenever it is used at all.
func (g *generator) laborAccounting() {
	for _, date := range g.ix.Horizon.Dates() {
		day, _ := g.input.LaborCalendar.Day(date)
		if day.ProductionRateUnitsPerHour <= 0 {
			continue
		}
		lk := indexbuilder.LaborKey{Date: date}
		fixedIdx, okF := g.ix.LaborFixed[lk]
		otIdx, okO := g.ix.LaborOT[lk]
		nonFixedIdx, okN := g.ix.LaborNonFixed[lk]
		activeIdx, okA := g.ix.NonFixedActive[lk]
		if !okF || !okO || !okN || !okA {
			continue
		}

		expr := sd.NewLinearExpr()
		for _, product := range g.ix.Products {
			if idx, ok := g.ix.Prod[indexbuilder.ProdKey{Date: date, Product: product}]; ok {
				expr = expr.Add(idx, 1.0/day.ProductionRateUnitsPerHour)
			}
		}
		expr = expr.Add(fixedIdx, -1).Add(otIdx, -1).Add(nonFixedIdx, -1)
		g.problem.AddConstraint(sd.Constraint{
			Name: fmt.Sprintf("labor_capacity[%s]", pm.DateKey(date)),
			Expr: expr, Op: sd.LE, RHS: 0,
		})

		// non_fixed <= cap * active
		g.problem.AddConstraint(sd.Constraint{
			Name: fmt.Sprintf("nonfixed_upper_link[%s]", pm.DateKey(date)),
			Expr: sd.NewLinearExpr().Add(nonFixedIdx, 1).Add(activeIdx, -nonFixedBlockCapHours),
			Op:   sd.LE, RHS: 0,
		})
		// non_fixed >= minimum_block * active
		if day.MinimumNonFixedBlockHours > 0 {
			g.problem.AddConstraint(sd.Constraint{
				Name: fmt.Sprintf("nonfixed_min_block[%s]", pm.DateKey(date)),
				Expr: sd.NewLinearExpr().Add(nonFixedIdx, 1).Add(activeIdx, -day.MinimumNonFixedBlockHours),
				Op:   sd.GE, RHS: 0,
			})
		}
	}
}

// truckCapacityAndTiming enforces per-truck capacity and the morning/
// afternoon production cutoff: a morning departure can only carry stock
// that was already on hand at the end of the previous day, never
// same-day production.
func (g *generator) truckCapacityAndTiming() {
	byTruckLegDate := map[struct {
		Truck string
		Leg   string
		Date  time.Time
	}][]int{}
	for k, idx := range g.ix.TruckLoad {
		key := struct {
			Truck string
			Leg   string
			Date  time.Time
		}{k.TruckID, k.LegID, k.Departure}
		byTruckLegDate[key] = append(byTruckLegDate[key], idx)
	}
	for key, vars := range byTruckLegDate {
		truck := g.truckByID[key.Truck]
		expr := sd.NewLinearExpr()
		for _, idx := range vars {
			expr = expr.Add(idx, 1)
		}
		g.problem.AddConstraint(sd.Constraint{
			Name: fmt.Sprintf("truck_capacity[%s,%s,%s]", key.Truck, key.Leg, pm.DateKey(key.Date)),
			Expr: expr, Op: sd.LE, RHS: truck.CapacityUnits,
		})
	}

	// Morning loads are capped by yesterday's end-of-day inventory in the
	// carried state: same-day production cannot reach a morning truck.
	// Two legs out of the same origin (e.g. two destinations served by
	// separate morning trucks from the same plant) draw from the same
	// origin inventory bucket, so they must share one constraint against
	// one inv[d-1] term rather than each being bounded by it independently
	// — otherwise the pair could jointly load up to 2x the available
	// carryover stock.
	type morningKey struct {
		Origin  string
		Product string
		Date    time.Time
		State   pm.InventoryState
	}
	legState := map[string]pm.InventoryState{}
	legOrigin := map[string]string{}
	for legID, route := range g.ix.Preproc.ExpandedLegs {
		legState[legID] = route.ArrivalState
		legOrigin[legID] = route.Origin
	}
	morningVarsByKey := map[morningKey][]int{}
	for k, idx := range g.ix.TruckLoad {
		origin, ok := legOrigin[k.LegID]
		if !ok {
			continue
		}
		truck := g.truckByID[k.TruckID]
		if truck.Departure != pm.DepartureMorning {
			continue
		}
		key := morningKey{Origin: origin, Product: k.Product, Date: k.Departure, State: legState[k.LegID]}
		morningVarsByKey[key] = append(morningVarsByKey[key], idx)
	}
	for key, vars := range morningVarsByKey {
		expr := sd.NewLinearExpr()
		for _, idx := range vars {
			expr = expr.Add(idx, 1)
		}
		prevDate := key.Date.AddDate(0, 0, -1)
		if idx, ok := g.ix.Inv[indexbuilder.InvKey{Node: key.Origin, Product: key.Product, Date: prevDate, State: key.State}]; ok {
			expr = expr.Add(idx, -1)
		}
		g.problem.AddConstraint(sd.Constraint{
			Name: fmt.Sprintf("morning_cutoff[%s,%s,%s,%s]", key.Origin, key.Product, pm.DateKey(key.Date), key.State),
			Expr: expr, Op: sd.LE, RHS: 0,
		})
	}
}

// storageCapacity bounds total (all-products) inventory at a node in a
// given state by its configured StorageLimit, when one is set.
func (g *generator) storageCapacity() {
	for _, n := range g.input.Nodes {
		for state, limit := range n.StorageLimit {
			if limit <= 0 {
				continue
			}
			for _, date := range g.ix.Horizon.Dates() {
				expr := sd.NewLinearExpr()
				any := false
				for _, product := range g.ix.Products {
					if idx, ok := g.ix.Inv[indexbuilder.InvKey{Node: n.ID, Product: product, Date: date, State: state}]; ok {
						expr = expr.Add(idx, 1)
						any = true
					}
				}
				if !any {
					continue
				}
				g.problem.AddConstraint(sd.Constraint{
					Name: fmt.Sprintf("storage_limit[%s,%s,%s]", n.ID, pm.DateKey(date), state),
					Expr: expr, Op: sd.LE, RHS: limit,
				})
			}
		}
	}
}
