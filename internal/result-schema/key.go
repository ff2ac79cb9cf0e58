// Package schema defines the typed, string-keyed result record spec §6.2
// requires every solve to produce: OptimizationSolution, and the Key
// newtype that makes composite map keys a compile-time-enforced string at
// the serialization boundary. The repo's single most expensive past bug
// was a tuple-keyed map slipping into this record; Key exists so that bug
// class cannot recur here.
package schema

import (
	"time"

	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

// Key is a composite map key, always serialized as pipe-separated fields.
// Nothing outside this file should format one by hand.
type Key string

// NewInventoryKey formats the inventory_by_node_product_date_state key:
// "node|product|YYYY-MM-DD|state".
func NewInventoryKey(node, product string, date time.Time, state pm.InventoryState) Key {
	return Key(node + "|" + product + "|" + pm.DateKey(date) + "|" + string(state))
}

// NewDateKey formats a plain date-only key: "YYYY-MM-DD".
func NewDateKey(date time.Time) Key {
	return Key(pm.DateKey(date))
}
