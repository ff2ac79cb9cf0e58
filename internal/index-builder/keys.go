// Package indexbuilder constructs the sparse variable index sets the
// constraint generator and objective composer iterate over. Density is the
// single largest driver of solver time (spec §4.2); every key type here is
// emitted only when the corresponding physical situation can actually
// occur — never densely-then-zeroed.
package indexbuilder

import (
	"time"

	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

// ProdKey indexes a production-quantity or product-produced-indicator
// variable.
type ProdKey struct {
	Date    time.Time
	Product string
}

// LaborKey indexes a per-date labor-hours variable.
type LaborKey struct {
	Date time.Time
}

// InvKey indexes an end-of-day node inventory variable.
type InvKey struct {
	Node    string
	Product string
	Date    time.Time
	State   pm.InventoryState
}

// InTransitKey indexes a shipment-in-flight variable. It is only ever
// constructed for (origin,dest,departure) combinations where some truck
// actually runs that day — see spec §4.2's "ghost truck" elimination.
type InTransitKey struct {
	Origin    string
	Dest      string
	Product   string
	Departure time.Time
	State     pm.InventoryState
}

// TruckLoadKey indexes the quantity of one product loaded onto one truck's
// leg on one departure date.
type TruckLoadKey struct {
	TruckID   string
	LegID     string
	Product   string
	Departure time.Time
}

// FreezeThawKey indexes a freeze or thaw transition variable.
type FreezeThawKey struct {
	Node    string
	Product string
	Date    time.Time
}

// DemandKey indexes a demand-satisfaction or shortage variable.
type DemandKey struct {
	Dest    string
	Product string
	Date    time.Time
}
