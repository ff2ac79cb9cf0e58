package preprocess

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

func baseInput() pm.ModelInput {
	return pm.ModelInput{
		Nodes: []pm.Node{
			{ID: "PLANT", ProducesAtNode: true, StoresAmbient: true},
			{ID: "LINEAGE", StoresFrozen: true, CanFreeze: true},
			{ID: "BREADROOM_R", HasDemand: true, CanThaw: true},
		},
		Routes: []pm.Route{
			{Origin: "PLANT", Destination: "LINEAGE", TransitDays: 1, ArrivalState: pm.StateAmbient},
			{Origin: "LINEAGE", Destination: "BREADROOM_R", TransitDays: 7, ArrivalState: pm.StateFrozen},
		},
		ShelfLife: pm.ShelfLifeParams{MaxAgeAmbientDays: 17, MaxAgeFrozenDays: 120},
		Forecast: pm.Forecast{
			{Destination: "BREADROOM_R", Product: "WHITE", Date: time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), Quantity: 100},
		},
	}
}

func TestIntermediateStopExpansionRoutesThroughFrozenBuffer(t *testing.T) {
	input := baseInput()
	input.Trucks = []pm.TruckSchedule{
		{
			ID:                "T1",
			Origin:            "PLANT",
			IntermediateStops: []string{"LINEAGE"},
			FinalDestination:  "BREADROOM_R",
			Departure:         pm.DepartureMorning,
			DaysOfWeek:        []time.Weekday{time.Wednesday},
		},
	}

	res, err := Preprocess(input)
	require.NoError(t, err)
	assert.Contains(t, res.ExpandedLegs, "PLANT->LINEAGE")
	assert.Contains(t, res.ExpandedLegs, "LINEAGE->BREADROOM_R")
	assert.True(t, res.TruckValidDays["PLANT->LINEAGE"][time.Wednesday])
}

func TestMissingLegIsConfigError(t *testing.T) {
	input := baseInput()
	input.Trucks = []pm.TruckSchedule{
		{ID: "T2", Origin: "PLANT", FinalDestination: "HUB_GHOST"},
	}

	_, err := Preprocess(input)
	require.Error(t, err)
	assert.True(t, pm.IsPermanent(err))
	assert.Equal(t, "MISSING_LEG", pm.Code(err))
}

func TestShelfLifeCutoffFiltersLeg(t *testing.T) {
	input := baseInput()
	input.ShelfLife.MaxAgeFrozenDays = 5 // the LINEAGE->BREADROOM_R leg is 7 days
	input.Trucks = []pm.TruckSchedule{
		{ID: "T1", Origin: "PLANT", IntermediateStops: []string{"LINEAGE"}, FinalDestination: "BREADROOM_R"},
	}

	res, err := Preprocess(input)
	require.NoError(t, err)
	assert.NotContains(t, res.ExpandedLegs, "LINEAGE->BREADROOM_R")
	found := false
	for _, w := range res.Warnings {
		if w.Kind == "leg_filtered" {
			found = true
		}
	}
	assert.True(t, found, "expected a leg_filtered warning")
}

func TestUnreachableDestinationWarns(t *testing.T) {
	input := baseInput()
	input.Trucks = nil // no trucks at all, so BREADROOM_R has demand but is unreachable
	input.Forecast = pm.Forecast{
		{Destination: "BREADROOM_R", Product: "WHITE", Date: time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), Quantity: 100},
	}

	res, err := Preprocess(input)
	require.NoError(t, err)
	found := false
	for _, w := range res.Warnings {
		if w.Kind == "unreachable_destination" {
			found = true
		}
	}
	assert.True(t, found, "expected an unreachable_destination warning")
}

func TestHorizonDerivationBacksUpFromEarliestDemand(t *testing.T) {
	input := baseInput()
	input.Trucks = []pm.TruckSchedule{
		{ID: "T1", Origin: "PLANT", IntermediateStops: []string{"LINEAGE"}, FinalDestination: "BREADROOM_R"},
	}

	res, err := Preprocess(input)
	require.NoError(t, err)
	// max transit is 7 days (LINEAGE->BREADROOM_R); required start = demand - 7 - 1
	want := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -8)
	assert.True(t, res.Horizon.Start.Equal(want), "got start %s want %s", res.Horizon.Start, want)
}

func TestHorizonOverrideHonoredWithWarning(t *testing.T) {
	input := baseInput()
	input.Trucks = []pm.TruckSchedule{
		{ID: "T1", Origin: "PLANT", IntermediateStops: []string{"LINEAGE"}, FinalDestination: "BREADROOM_R"},
	}
	tight := pm.PlanningHorizon{
		Start: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
	}
	input.HorizonOverride = &tight

	res, err := Preprocess(input)
	require.NoError(t, err)
	assert.True(t, res.Horizon.Start.Equal(tight.Start))
	found := false
	for _, w := range res.Warnings {
		if w.Kind == "forced_start_honored" {
			found = true
		}
	}
	assert.True(t, found, "expected a forced_start_honored warning")
}
