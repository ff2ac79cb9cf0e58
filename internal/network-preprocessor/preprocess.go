// Package preprocess normalizes the raw network and calendar inputs: it
// expands intermediate-stop trucks into explicit single-hop legs, derives
// the day-of-week truck-validity map, computes the route-to-truck mapping,
// and derives the planning horizon required to represent all on-time
// production. See spec §4.1.
package preprocess

import (
	"fmt"
	"time"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"

	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

// TruckWindow tags a truck-schedule row that can carry a shipment on a
// given departure date with its loading-timing class.
type TruckWindow struct {
	Truck     pm.TruckSchedule
	Departure pm.DepartureWindow
}

// Result is the normalized network and calendar the rest of the core
// operates over.
type Result struct {
	// ExpandedLegs is the full set of single-hop Routes actually used,
	// after filtering legs whose transit exceeds every product's shelf
	// life. Keyed by LegID.
	ExpandedLegs map[string]pm.Route
	// TruckValidDays maps (origin,dest) leg ID to the set of weekdays on
	// which some truck serves that leg, whether as a primary departure or
	// an expanded intermediate stop.
	TruckValidDays map[string]map[time.Weekday]bool
	// RouteTrucks maps a leg ID to the trucks (tagged morning/afternoon)
	// that can carry it, independent of date; callers filter by RunsOn.
	RouteTrucks map[string][]TruckWindow
	// Horizon is the derived (or caller-honored) planning horizon.
	Horizon pm.PlanningHorizon
	// Warnings accumulates every non-fatal diagnostic raised while
	// preprocessing (unreachable destinations, filtered legs, forced
	// start honored despite a tighter requirement).
	Warnings pm.Warnings
}

// Preprocess normalizes input.Nodes/Routes/Trucks/Forecast into a Result,
// or returns a *planningmodel.ConfigError if intermediate-stop expansion
// cannot find a matching Route for some leg.
func Preprocess(input pm.ModelInput) (*Result, error) {
	res := &Result{
		ExpandedLegs:   map[string]pm.Route{},
		TruckValidDays: map[string]map[time.Weekday]bool{},
		RouteTrucks:    map[string][]TruckWindow{},
	}

	routesByPair := make(map[string]pm.Route, len(input.Routes))
	for _, r := range input.Routes {
		routesByPair[r.LegID()] = r
	}

	nodeByID := make(map[string]pm.Node, len(input.Nodes))
	for _, n := range input.Nodes {
		nodeByID[n.ID] = n
	}

	// Intermediate-stop expansion: every leg of every truck's itinerary
	// must resolve to an existing Route. Missing routes are a ConfigError,
	// never a silently-skipped leg (spec §4.1 — "this is not optional").
	for _, truck := range input.Trucks {
		for _, leg := range truck.Legs() {
			legID := leg.Origin + "->" + leg.Destination
			route, ok := routesByPair[legID]
			if !ok {
				return nil, pm.NewMissingLegError(truck.ID, leg.Origin, leg.Destination)
			}

			maxAge := maxShelfLifeForArrivalState(input.ShelfLife, route.ArrivalState)
			if route.TransitDays > maxAge {
				res.Warnings.Add("leg_filtered", fmt.Sprintf(
					"leg %s has %d-day transit exceeding max shelf life %d days for state %s; filtered",
					legID, route.TransitDays, maxAge, route.ArrivalState))
				continue
			}

			res.ExpandedLegs[legID] = route

			if res.TruckValidDays[legID] == nil {
				res.TruckValidDays[legID] = map[time.Weekday]bool{}
			}
			days := truck.DaysOfWeek
			if len(days) == 0 {
				days = allWeekdays()
			}
			for _, d := range days {
				res.TruckValidDays[legID][d] = true
			}
			res.RouteTrucks[legID] = append(res.RouteTrucks[legID], TruckWindow{Truck: truck, Departure: truck.Departure})
		}
	}

	// Horizon derivation.
	horizon, warn := deriveHorizon(input)
	if warn != "" {
		res.Warnings.Add("forced_start_honored", warn)
	}
	res.Horizon = horizon

	// Reachability: build a directed graph of the expanded legs and walk
	// it with BFS from every producing node, flagging demand nodes that
	// are never visited.
	reachable, err := reachableNodes(input.Nodes, res.ExpandedLegs)
	if err != nil {
		return nil, &pm.ConfigError{Kind: "graph_build_failed", Detail: err.Error(), Err: err}
	}
	seen := map[string]bool{}
	for _, entry := range input.Forecast {
		if seen[entry.Destination] {
			continue
		}
		seen[entry.Destination] = true
		if !reachable[entry.Destination] {
			res.Warnings.Add("unreachable_destination", fmt.Sprintf(
				"destination %q has forecast demand but is not reachable from any producing node", entry.Destination))
		}
	}

	return res, nil
}

func allWeekdays() []time.Weekday {
	return []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	}
}

func maxShelfLifeForArrivalState(sl pm.ShelfLifeParams, state pm.InventoryState) int {
	switch state {
	case pm.StateFrozen:
		return sl.MaxAgeFrozenDays
	default:
		return sl.MaxAgeAmbientDays
	}
}

// deriveHorizon implements spec §4.1's horizon derivation rule:
// required_start = min(forecast_date) - max_transit_days - 1.
// If the caller supplied a tighter (later) start, it is honored and a
// warning describes the gap rather than overriding the caller.
func deriveHorizon(input pm.ModelInput) (pm.PlanningHorizon, string) {
	var minDemand, maxDemand time.Time
	for i, entry := range input.Forecast {
		if i == 0 || entry.Date.Before(minDemand) {
			minDemand = entry.Date
		}
		if i == 0 || entry.Date.After(maxDemand) {
			maxDemand = entry.Date
		}
	}

	maxTransit := 0
	for _, r := range input.Routes {
		if r.TransitDays > maxTransit {
			maxTransit = r.TransitDays
		}
	}

	requiredStart := minDemand.AddDate(0, 0, -(maxTransit + 1))

	if input.HorizonOverride == nil {
		return pm.PlanningHorizon{Start: requiredStart, End: maxDemand}, ""
	}

	forced := *input.HorizonOverride
	if forced.Start.After(requiredStart) {
		warn := fmt.Sprintf(
			"required horizon start %s precedes caller-forced start %s; shortages will carry the slack",
			pm.DateKey(requiredStart), pm.DateKey(forced.Start))
		return forced, warn
	}
	return forced, ""
}

// reachableNodes builds a directed lvlath graph over the expanded legs and
// returns the set of node IDs reachable from any producing node via
// breadth-first search.
func reachableNodes(nodes []pm.Node, legs map[string]pm.Route) (map[string]bool, error) {
	g := core.NewGraph(core.WithDirected(true))
	for _, n := range nodes {
		if err := g.AddVertex(n.ID); err != nil {
			return nil, fmt.Errorf("add vertex %s: %w", n.ID, err)
		}
	}
	for _, leg := range legs {
		if _, err := g.AddEdge(leg.Origin, leg.Destination, 0); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", leg.Origin, leg.Destination, err)
		}
	}

	reachable := map[string]bool{}
	for _, n := range nodes {
		if !n.ProducesAtNode {
			continue
		}
		result, err := bfs.BFS(g, n.ID)
		if err != nil {
			return nil, fmt.Errorf("bfs from %s: %w", n.ID, err)
		}
		for _, id := range result.Order {
			reachable[id] = true
		}
	}
	return reachable, nil
}
