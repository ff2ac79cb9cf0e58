// Package planningmodel defines the shared data model for the production and
// distribution planning core: nodes, routes, truck schedules, labor calendars,
// forecasts, cost structures, and the typed input/output records every other
// component in this module is built around.
package planningmodel

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayOfWeek is an alias of time.Weekday, so it shares time.Weekday's
// numbering (Sunday = 0).
type DayOfWeek = time.Weekday

// InventoryState is the closed enumeration of states a unit of inventory can
// occupy. A unit never occupies two states simultaneously on the same
// date-key (spec invariant).
type InventoryState string

const (
	StateAmbient InventoryState = "ambient"
	StateFrozen  InventoryState = "frozen"
	StateThawed  InventoryState = "thawed"
)

// IsDemandEligible reports whether inventory in this state can satisfy
// demand directly. Frozen stock is never sold as-is; it must thaw first.
func (s InventoryState) IsDemandEligible() bool {
	return s == StateAmbient || s == StateThawed
}

// Node is a location in the distribution network: the plant, a regional hub,
// the frozen buffer, or a breadroom destination. A single node may carry any
// combination of capability flags, including the dual-role hub case (both
// is_hub and has_demand).
type Node struct {
	ID             string
	ProducesAtNode bool
	StoresAmbient  bool
	StoresFrozen   bool
	HasDemand      bool
	IsHub          bool
	// CanThaw reports whether frozen arrivals at this node transition to the
	// thawed state on arrival rather than being stored frozen.
	CanThaw bool
	// CanFreeze reports whether this node performs the ambient->frozen
	// transition (the "frozen buffer" role in the glossary).
	CanFreeze bool
	// OpeningInventory is keyed by product; every (state) present in the map
	// must be consistent with the node's storage capability flags.
	OpeningInventory map[string]map[InventoryState]float64
	// StorageLimit is an optional per-state capacity bound; zero means
	// unbounded.
	StorageLimit map[InventoryState]float64
}

// OutboundCapableStates returns the states in which this node can hold
// inventory, used by the Index Builder to decide which (node, state) pairs
// to emit variables for.
func (n Node) OutboundCapableStates() []InventoryState {
	var states []InventoryState
	if n.StoresAmbient {
		states = append(states, StateAmbient)
	}
	if n.StoresFrozen {
		states = append(states, StateFrozen)
	}
	if n.CanThaw {
		states = append(states, StateThawed)
	}
	return states
}

// Route is an atomic single-hop leg between two nodes. Multi-hop truck
// itineraries are expanded into a sequence of Routes by the preprocessor;
// a Route is never itself composite.
type Route struct {
	Origin       string
	Destination  string
	TransitDays  int
	ArrivalState InventoryState // ambient or frozen; never thawed on arrival
	CostPerUnit  decimal.Decimal
}

// LegID is the canonical string identifier for a Route, used as a map key
// throughout the index builder and constraint generator.
func (r Route) LegID() string {
	return r.Origin + "->" + r.Destination
}

// DepartureWindow classifies a truck's loading-timing rule.
type DepartureWindow string

const (
	DepartureMorning   DepartureWindow = "morning"
	DepartureAfternoon DepartureWindow = "afternoon"
)

// TruckSchedule is a day-of-week (or daily) truck departure with a fixed
// capacity, an ordered list of intermediate stops, and a loading-timing
// rule. Intermediate stops are expanded into explicit Routes during
// preprocessing; TruckSchedule itself never participates directly in
// constraint generation.
type TruckSchedule struct {
	ID                  string
	Origin              string
	FinalDestination    string
	IntermediateStops   []string
	DaysOfWeek          []time.Weekday // empty/nil means "daily"
	Departure           DepartureWindow
	CapacityUnits       float64
	CostPerTrip         decimal.Decimal
}

// RunsOn reports whether the truck has a scheduled departure on the given
// weekday.
func (t TruckSchedule) RunsOn(day time.Weekday) bool {
	if len(t.DaysOfWeek) == 0 {
		return true
	}
	for _, d := range t.DaysOfWeek {
		if d == day {
			return true
		}
	}
	return false
}

// Legs returns the ordered single-hop legs a fully-expanded itinerary for
// this truck visits: origin->stop1, stop1->stop2, ..., stopN->finalDest.
func (t TruckSchedule) Legs() []struct{ Origin, Destination string } {
	stops := append([]string{t.Origin}, t.IntermediateStops...)
	stops = append(stops, t.FinalDestination)
	legs := make([]struct{ Origin, Destination string }, 0, len(stops)-1)
	for i := 0; i+1 < len(stops); i++ {
		legs = append(legs, struct{ Origin, Destination string }{stops[i], stops[i+1]})
	}
	return legs
}

// LaborDay describes labor availability and cost posture for a single
// calendar date.
type LaborDay struct {
	Date             time.Time
	FixedHours       float64
	MaxOvertimeHours float64
	IsFixedDay       bool
	// ProductionRateUnitsPerHour converts labor-hours to production units.
	ProductionRateUnitsPerHour float64
	// MinimumNonFixedBlockHours is the minimum labor block charged when any
	// non-fixed-day labor is used at all (stepwise cost, §4.3.4).
	MinimumNonFixedBlockHours float64
}

// LaborCalendar maps a date to its LaborDay. Dates absent from the map are
// treated as having zero fixed/overtime availability and no production
// rate; labor accounting emits no capacity row for a date without a
// positive rate, so production on such a date is not bounded by labor.
type LaborCalendar map[string]LaborDay // key: "YYYY-MM-DD"

// DateKey formats a time.Time the way every date-keyed map in this module
// does, ISO-8601 with no time-of-day component.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Day looks up the LaborDay for a date, by its DateKey.
func (c LaborCalendar) Day(t time.Time) (LaborDay, bool) {
	d, ok := c[DateKey(t)]
	return d, ok
}

// ForecastKey identifies one (destination, product, date) demand entry.
type ForecastKey struct {
	Destination string
	Product     string
	Date        time.Time
}

// Forecast maps (destination, product, date) to demand units. Stored as a
// slice of entries rather than a map keyed on a struct containing a
// time.Time, so that iteration order can be made deterministic by sorting
// once (the index builder sorts entries by date, destination and product
// before emitting demand variables).
type ForecastEntry struct {
	Destination string
	Product     string
	Date        time.Time
	Quantity    float64
}

type Forecast []ForecastEntry

// CostStructure holds the rates used by the Objective Composer.
type CostStructure struct {
	RegularLaborRatePerHour    decimal.Decimal
	OvertimeLaborRatePerHour   decimal.Decimal
	NonFixedLaborRatePerHour   decimal.Decimal
	NonFixedMinimumCharge      decimal.Decimal
	ProductionCostPerUnit      decimal.Decimal
	ShortagePenaltyPerUnit     decimal.Decimal
	WastePenaltyPerUnit        decimal.Decimal
	ChangeoverCost             decimal.Decimal
	SmoothingPenaltyPerUnit    decimal.Decimal
}

// ShelfLifeParams holds the shelf-life window lengths used by the
// sliding-window constraint family.
type ShelfLifeParams struct {
	MaxAgeAmbientDays       int
	MaxAgeThawedDays        int
	MaxAgeFrozenDays        int
	MinRemainingAtDeliveryDays int
}

// PlanningHorizon is a contiguous daily date range.
type PlanningHorizon struct {
	Start time.Time
	End   time.Time
}

// Dates enumerates every date in the horizon, inclusive, in ascending order.
func (h PlanningHorizon) Dates() []time.Time {
	if h.End.Before(h.Start) {
		return nil
	}
	var dates []time.Time
	for d := h.Start; !d.After(h.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Days returns the number of calendar days spanned by the horizon,
// inclusive of both endpoints.
func (h PlanningHorizon) Days() int {
	if h.End.Before(h.Start) {
		return 0
	}
	return int(h.End.Sub(h.Start).Hours()/24) + 1
}

// SolverConfig is the configuration surface of spec.md §6.4.
type SolverConfig struct {
	SolveMode               string  // "monolithic" | "windowed"
	WindowDays              int
	CommitDays              int
	AllowShortages          bool
	EnforceShelfLife        bool
	WarmStart               string // demand_weighted|balanced|fixed2|fixed3|adaptive|none
	SmoothingPenalty        float64
	MinDeliveryRemainingDays int
	Solver                  string
	TimeLimitSeconds        int
	MIPGap                  float64
}

// DefaultSolverConfig returns the baseline solver configuration used when
// a caller supplies no SolverConfig of its own.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		SolveMode:                "monolithic",
		WindowDays:               28,
		CommitDays:               14,
		AllowShortages:           true,
		EnforceShelfLife:         true,
		WarmStart:                "demand_weighted",
		SmoothingPenalty:         0.0,
		MinDeliveryRemainingDays: 7,
		Solver:                   "default",
		TimeLimitSeconds:         300,
		MIPGap:                   0.01,
	}
}

// ModelInput is the single typed record the core consumes (spec.md §6.1).
type ModelInput struct {
	Nodes           []Node
	Routes          []Route
	Trucks          []TruckSchedule
	LaborCalendar   LaborCalendar
	Forecast        Forecast
	CostStructure   CostStructure
	ShelfLife       ShelfLifeParams
	HorizonOverride *PlanningHorizon // optional caller-supplied start/end
	Solver          SolverConfig
}
