package schema

import (
	"github.com/shopspring/decimal"

	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

// ModelType distinguishes a single monolithic solve from a stitched
// rolling-window solve in the result record.
type ModelType string

const (
	ModelSlidingWindow ModelType = "sliding_window"
	ModelWindowed      ModelType = "windowed"
)

// ProductionBatch is one production_batches entry. IsOpeningInventory tags
// the synthetic INIT batch representing a node's opening inventory so
// downstream UIs can exclude it from "manufactured today" aggregations —
// spec's "no phantom production" property.
type ProductionBatch struct {
	Date                Date    `json:"date"`
	Product             string  `json:"product"`
	Quantity            float64 `json:"quantity"`
	LaborHoursAllocated float64 `json:"labor_hours_allocated"`
	IsOpeningInventory  bool    `json:"is_opening_inventory,omitempty"`
}

// Shipment is one shipments entry: a non-zero in_transit flow attributed
// back to its leg and truck.
type Shipment struct {
	Origin        string            `json:"origin"`
	Destination   string            `json:"destination"`
	Product       string            `json:"product"`
	DepartureDate Date              `json:"departure_date"`
	DeliveryDate  Date              `json:"delivery_date"`
	Quantity      float64           `json:"quantity"`
	State         pm.InventoryState `json:"state"`
	LegID         string            `json:"leg_id"`
	TruckID       string            `json:"truck_id"`
}

// LaborHours is one labor_hours_by_date entry.
type LaborHours struct {
	Fixed    float64 `json:"fixed"`
	Overtime float64 `json:"overtime"`
	NonFixed float64 `json:"nonfixed"`
}

// DemandSatisfaction is one demand_satisfaction entry.
type DemandSatisfaction struct {
	Destination string  `json:"destination"`
	Product     string  `json:"product"`
	Date        Date    `json:"date"`
	Demanded    float64 `json:"demanded"`
	Met         float64 `json:"met"`
	Shortage    float64 `json:"shortage"`
}

// TotalCost is the total_cost breakdown, carried in exact decimal
// arithmetic since it is money, not a solver metric.
type TotalCost struct {
	Labor      decimal.Decimal `json:"labor"`
	Production decimal.Decimal `json:"production"`
	Transport  decimal.Decimal `json:"transport"`
	Shortage   decimal.Decimal `json:"shortage"`
	Waste      decimal.Decimal `json:"waste"`
	Total      decimal.Decimal `json:"total"`
}

// OptimizationSolution is the single typed record spec §6.2 requires every
// solve to produce. Every composite map in it is keyed by a Key (a plain
// string underneath), never a tuple, a time.Time, or a number — the
// key-discipline invariant is enforced at the type level here, not just by
// convention.
type OptimizationSolution struct {
	// SolveID correlates this record with the log lines and metrics
	// emitted for the run that produced it.
	SolveID          string    `json:"solve_id"`
	ModelType        ModelType `json:"model_type"`
	Status           string    `json:"status"`
	ObjectiveValue   float64   `json:"objective_value"`
	BestBound        float64   `json:"best_bound"`
	MIPGap           float64   `json:"mip_gap"`
	SolveTimeSeconds float64   `json:"solve_time_seconds"`

	TotalProduction float64           `json:"total_production"`
	ProductionBatches []ProductionBatch `json:"production_batches"`
	Shipments         []Shipment        `json:"shipments"`

	LaborHoursByDate                map[Key]LaborHours `json:"labor_hours_by_date"`
	InventoryByNodeProductDateState map[Key]float64    `json:"inventory_by_node_product_date_state"`

	DemandSatisfaction []DemandSatisfaction `json:"demand_satisfaction"`
	FillRate           float64              `json:"fill_rate"`
	TotalCost          TotalCost            `json:"total_cost"`

	// FEFOBatchInventory is attached only after the external FEFO
	// allocator runs; nil until then, never an empty-but-present map.
	FEFOBatchInventory map[Key]float64 `json:"fefo_batch_inventory,omitempty"`

	// DiagnosticRerun marks a result obtained from the shortages-enabled
	// re-run the solver driver performs after an Infeasible/Unbounded
	// first attempt (spec §4.5/§7).
	DiagnosticRerun bool `json:"diagnostic_rerun,omitempty"`

	// MaterialBalanceResidual is the closing per-(product,state)
	// assertion's worst observed residual, reported rather than
	// silently discarded (spec's open question on the ~0.6% discrepancy).
	MaterialBalanceResidual float64 `json:"material_balance_residual"`
}

// TotalConsumed sums every production batch's quantity, excluding opening-
// inventory INIT batches, for the "total production consistency" property:
// this must equal TotalProduction.
func (s *OptimizationSolution) TotalConsumed() float64 {
	total := 0.0
	for _, b := range s.ProductionBatches {
		if b.IsOpeningInventory {
			continue
		}
		total += b.Quantity
	}
	return total
}
