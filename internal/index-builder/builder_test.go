package indexbuilder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	preprocess "github.com/horizonfoods/planner-core/internal/network-preprocessor"
	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

func smallInput() pm.ModelInput {
	return pm.ModelInput{
		Nodes: []pm.Node{
			{ID: "PLANT", ProducesAtNode: true, StoresAmbient: true},
			{ID: "HUB", HasDemand: true, IsHub: true, StoresAmbient: true},
		},
		Routes: []pm.Route{
			{Origin: "PLANT", Destination: "HUB", TransitDays: 1, ArrivalState: pm.StateAmbient},
		},
		Trucks: []pm.TruckSchedule{
			{ID: "T1", Origin: "PLANT", FinalDestination: "HUB", DaysOfWeek: []time.Weekday{time.Monday}, Departure: pm.DepartureMorning},
		},
		ShelfLife: pm.ShelfLifeParams{MaxAgeAmbientDays: 17},
		Forecast: pm.Forecast{
			{Destination: "HUB", Product: "WHITE", Date: time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC), Quantity: 500},
		},
	}
}

func TestBuildEmitsOnlyValidDayInTransitVariables(t *testing.T) {
	input := smallInput()
	pre, err := preprocess.Preprocess(input)
	require.NoError(t, err)

	ix, err := Build(input, pre)
	require.NoError(t, err)

	for k := range ix.InTransit {
		assert.Equal(t, time.Monday, k.Departure.Weekday(), "in_transit must only exist on truck service days")
	}
	for k := range ix.TruckLoad {
		assert.Equal(t, time.Monday, k.Departure.Weekday())
	}
}

func TestBuildSkipsZeroForecastEntries(t *testing.T) {
	input := smallInput()
	input.Forecast = append(input.Forecast, pm.ForecastEntry{
		Destination: "HUB", Product: "RYE", Date: time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC), Quantity: 0,
	})
	pre, err := preprocess.Preprocess(input)
	require.NoError(t, err)

	ix, err := Build(input, pre)
	require.NoError(t, err)

	// RYE never appears with positive demand. It is still in Products
	// (products come from all forecast entries regardless of quantity),
	// but its demand/shortage vars must not be emitted.
	for k := range ix.DemandMet {
		assert.NotEqual(t, "RYE", k.Product)
	}
}

func TestBuildInventoryRespectsCapabilityFlags(t *testing.T) {
	input := smallInput()
	pre, err := preprocess.Preprocess(input)
	require.NoError(t, err)
	ix, err := Build(input, pre)
	require.NoError(t, err)

	for k := range ix.Inv {
		if k.Node == "PLANT" || k.Node == "HUB" {
			assert.Equal(t, pm.StateAmbient, k.State)
		}
	}
}

func TestNumVariablesMatchesEmittedCount(t *testing.T) {
	input := smallInput()
	pre, err := preprocess.Preprocess(input)
	require.NoError(t, err)
	ix, err := Build(input, pre)
	require.NoError(t, err)

	total := len(ix.Prod) + len(ix.ProductProduced) + len(ix.LaborFixed) + len(ix.LaborOT) +
		len(ix.LaborNonFixed) + len(ix.NonFixedActive) + len(ix.Inv) + len(ix.InTransit) +
		len(ix.TruckLoad) + len(ix.Freeze) + len(ix.Thaw) + len(ix.DemandMet) + len(ix.Shortage)
	assert.Equal(t, total, ix.NumVariables())
}
