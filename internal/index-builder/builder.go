package indexbuilder

import (
	"sort"
	"time"

	preprocess "github.com/horizonfoods/planner-core/internal/network-preprocessor"
	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

// Index is the full set of emitted variable domains for one solve. Every
// map's value is the variable's position in a flat primal-value vector, so
// the constraint generator and solver driver can address variables by a
// single int while the rest of the core addresses them by typed key.
type Index struct {
	Prod            map[ProdKey]int
	ProductProduced map[ProdKey]int
	LaborFixed      map[LaborKey]int
	LaborOT         map[LaborKey]int
	LaborNonFixed   map[LaborKey]int
	NonFixedActive  map[LaborKey]int
	Inv             map[InvKey]int
	InTransit       map[InTransitKey]int
	TruckLoad       map[TruckLoadKey]int
	Freeze          map[FreezeThawKey]int
	Thaw            map[FreezeThawKey]int
	DemandMet       map[DemandKey]int
	Shortage        map[DemandKey]int

	// Products is the sorted, de-duplicated set of product IDs that
	// appear anywhere in the forecast, the only products this solve
	// plans for.
	Products []string

	Horizon  pm.PlanningHorizon
	Preproc  *preprocess.Result

	nVars int
}

// NumVariables returns the total count of emitted decision variables,
// reported by the extractor's stage-1 logging (spec §4.7) and exposed as
// the planner_variables_emitted metric.
func (ix *Index) NumVariables() int { return ix.nVars }

func (ix *Index) next() int {
	id := ix.nVars
	ix.nVars++
	return id
}

// Build constructs the sparse index sets for one solve, over the network
// already normalized by preprocess.Preprocess.
func Build(input pm.ModelInput, pre *preprocess.Result) (*Index, error) {
	ix := &Index{
		Prod:            map[ProdKey]int{},
		ProductProduced: map[ProdKey]int{},
		LaborFixed:      map[LaborKey]int{},
		LaborOT:         map[LaborKey]int{},
		LaborNonFixed:   map[LaborKey]int{},
		NonFixedActive:  map[LaborKey]int{},
		Inv:             map[InvKey]int{},
		InTransit:       map[InTransitKey]int{},
		TruckLoad:       map[TruckLoadKey]int{},
		Freeze:          map[FreezeThawKey]int{},
		Thaw:            map[FreezeThawKey]int{},
		DemandMet:       map[DemandKey]int{},
		Shortage:        map[DemandKey]int{},
		Horizon:         pre.Horizon,
		Preproc:         pre,
	}
	ix.Products = distinctProducts(input.Forecast)
	dates := pre.Horizon.Dates()

	ix.buildProductionAndLabor(dates)
	ix.buildInventory(input.Nodes, dates)
	ix.buildInTransitAndTruckLoad(input, pre, dates)
	ix.buildTransitions(input.Nodes, dates)
	ix.buildDemand(input.Forecast)

	return ix, nil
}

func distinctProducts(forecast pm.Forecast) []string {
	set := map[string]bool{}
	for _, e := range forecast {
		set[e.Product] = true
	}
	products := make([]string, 0, len(set))
	for p := range set {
		products = append(products, p)
	}
	sort.Strings(products)
	return products
}

func (ix *Index) buildProductionAndLabor(dates []time.Time) {
	for _, d := range dates {
		for _, p := range ix.Products {
			key := ProdKey{Date: d, Product: p}
			ix.Prod[key] = ix.next()
			ix.ProductProduced[key] = ix.next()
		}
		lk := LaborKey{Date: d}
		ix.LaborFixed[lk] = ix.next()
		ix.LaborOT[lk] = ix.next()
		ix.LaborNonFixed[lk] = ix.next()
		ix.NonFixedActive[lk] = ix.next()
	}
}

// buildInventory emits inv[node,product,date,state] only for
// (node,state) pairs consistent with the node's capability flags (spec
// §4.2).
func (ix *Index) buildInventory(nodes []pm.Node, dates []time.Time) {
	sorted := append([]pm.Node(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, d := range dates {
		for _, n := range sorted {
			states := n.OutboundCapableStates()
			for _, p := range ix.Products {
				for _, st := range states {
					ix.Inv[InvKey{Node: n.ID, Product: p, Date: d, State: st}] = ix.next()
				}
			}
		}
	}
}

// buildInTransitAndTruckLoad emits in_transit only on days some truck is
// actually scheduled for that leg (day-of-week-sparse emission, spec
// §4.2/§4.3.7 — no "ghost truck" variables on non-service days), and
// truck_load restricted to each truck's own service days.
func (ix *Index) buildInTransitAndTruckLoad(input pm.ModelInput, pre *preprocess.Result, dates []time.Time) {
	legIDs := make([]string, 0, len(pre.ExpandedLegs))
	for id := range pre.ExpandedLegs {
		legIDs = append(legIDs, id)
	}
	sort.Strings(legIDs)

	for _, d := range dates {
		weekday := d.Weekday()
		for _, legID := range legIDs {
			route := pre.ExpandedLegs[legID]
			if !pre.TruckValidDays[legID][weekday] {
				continue
			}
			for _, p := range ix.Products {
				ix.InTransit[InTransitKey{
					Origin: route.Origin, Dest: route.Destination, Product: p,
					Departure: d, State: route.ArrivalState,
				}] = ix.next()
			}
		}
	}

	trucks := append([]pm.TruckSchedule(nil), input.Trucks...)
	sort.Slice(trucks, func(i, j int) bool { return trucks[i].ID < trucks[j].ID })

	for _, d := range dates {
		weekday := d.Weekday()
		for _, truck := range trucks {
			if !truck.RunsOn(weekday) {
				continue
			}
			for _, leg := range truck.Legs() {
				legID := leg.Origin + "->" + leg.Destination
				if _, ok := pre.ExpandedLegs[legID]; !ok {
					continue // filtered by shelf-life cutoff
				}
				for _, p := range ix.Products {
					ix.TruckLoad[TruckLoadKey{
						TruckID: truck.ID, LegID: legID, Product: p, Departure: d,
					}] = ix.next()
				}
			}
		}
	}
}

// buildTransitions emits freeze/thaw variables only at nodes that perform
// the corresponding transition.
func (ix *Index) buildTransitions(nodes []pm.Node, dates []time.Time) {
	sorted := append([]pm.Node(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, d := range dates {
		for _, n := range sorted {
			for _, p := range ix.Products {
				if n.CanFreeze {
					ix.Freeze[FreezeThawKey{Node: n.ID, Product: p, Date: d}] = ix.next()
				}
				if n.CanThaw {
					ix.Thaw[FreezeThawKey{Node: n.ID, Product: p, Date: d}] = ix.next()
				}
			}
		}
	}
}

// buildDemand emits demand_met/shortage only for (dest,product,date)
// entries with positive forecast quantity.
func (ix *Index) buildDemand(forecast pm.Forecast) {
	entries := append(pm.Forecast(nil), forecast...)
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		if entries[i].Destination != entries[j].Destination {
			return entries[i].Destination < entries[j].Destination
		}
		return entries[i].Product < entries[j].Product
	})
	for _, e := range entries {
		if e.Quantity <= 0 {
			continue
		}
		key := DemandKey{Dest: e.Destination, Product: e.Product, Date: e.Date}
		ix.DemandMet[key] = ix.next()
		ix.Shortage[key] = ix.next()
	}
}
