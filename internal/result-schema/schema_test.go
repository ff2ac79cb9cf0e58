package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

func TestNewInventoryKeyFormatsPipeSeparated(t *testing.T) {
	date := time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC)
	k := NewInventoryKey("HUB", "WHITE", date, pm.StateAmbient)
	assert.Equal(t, Key("HUB|WHITE|2025-01-14|ambient"), k)
}

func TestDateMarshalsAsISODateOnly(t *testing.T) {
	date := NewDate(time.Date(2025, 1, 14, 15, 30, 0, 0, time.UTC))
	b, err := json.Marshal(date)
	require.NoError(t, err)
	assert.Equal(t, `"2025-01-14"`, string(b))
}

func TestDateRoundTrips(t *testing.T) {
	date := NewDate(time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC))
	b, err := json.Marshal(date)
	require.NoError(t, err)

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Time().Equal(date.Time()))
}

func TestTotalConsumedExcludesOpeningInventoryBatches(t *testing.T) {
	sol := &OptimizationSolution{
		ProductionBatches: []ProductionBatch{
			{Product: "WHITE", Quantity: 100},
			{Product: "WHITE", Quantity: 500, IsOpeningInventory: true},
			{Product: "RYE", Quantity: 50},
		},
	}
	assert.Equal(t, 150.0, sol.TotalConsumed())
}

func TestOptimizationSolutionRoundTripsByteIdentical(t *testing.T) {
	sol := &OptimizationSolution{
		SolveID:        "11111111-1111-1111-1111-111111111111",
		ModelType:      ModelSlidingWindow,
		Status:         "Optimal",
		ObjectiveValue: 1234.5,
		MIPGap:         0.01,
		ProductionBatches: []ProductionBatch{
			{Date: NewDate(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)), Product: "WHITE", Quantity: 100},
		},
		Shipments: []Shipment{
			{Origin: "PLANT", Destination: "H", Product: "WHITE",
				DepartureDate: NewDate(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)),
				DeliveryDate:  NewDate(time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)),
				Quantity:      100, State: pm.StateAmbient, LegID: "PLANT->H", TruckID: "T1"},
		},
		InventoryByNodeProductDateState: map[Key]float64{
			NewInventoryKey("PLANT", "WHITE", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), pm.StateAmbient): 42,
		},
		DemandSatisfaction: []DemandSatisfaction{
			{Destination: "H", Product: "WHITE", Date: NewDate(time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)), Demanded: 100, Met: 100},
		},
		FillRate: 1.0,
	}

	first, err := json.Marshal(sol)
	require.NoError(t, err)

	var decoded OptimizationSolution
	require.NoError(t, json.Unmarshal(first, &decoded))

	second, err := json.Marshal(&decoded)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestOptimizationSolutionMapKeysSerializeAsStrings(t *testing.T) {
	sol := &OptimizationSolution{
		InventoryByNodeProductDateState: map[Key]float64{
			NewInventoryKey("PLANT", "WHITE", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), pm.StateAmbient): 42,
		},
	}
	b, err := json.Marshal(sol)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	inv, ok := decoded["inventory_by_node_product_date_state"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, inv, "PLANT|WHITE|2025-01-06|ambient")
}
