package constraints

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	indexbuilder "github.com/horizonfoods/planner-core/internal/index-builder"
	preprocess "github.com/horizonfoods/planner-core/internal/network-preprocessor"
	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

func simpleInput() pm.ModelInput {
	return pm.ModelInput{
		Nodes: []pm.Node{
			{ID: "PLANT", ProducesAtNode: true, StoresAmbient: true},
			{ID: "BREADROOM", HasDemand: true, StoresAmbient: true},
		},
		Routes: []pm.Route{
			{Origin: "PLANT", Destination: "BREADROOM", TransitDays: 1, ArrivalState: pm.StateAmbient},
		},
		Trucks: []pm.TruckSchedule{
			{ID: "T1", Origin: "PLANT", FinalDestination: "BREADROOM", Departure: pm.DepartureAfternoon, CapacityUnits: 1000},
		},
		LaborCalendar: pm.LaborCalendar{
			"2025-01-12": pm.LaborDay{FixedHours: 8, MaxOvertimeHours: 2, ProductionRateUnitsPerHour: 100},
			"2025-01-13": pm.LaborDay{FixedHours: 8, MaxOvertimeHours: 2, ProductionRateUnitsPerHour: 100},
		},
		ShelfLife: pm.ShelfLifeParams{MaxAgeAmbientDays: 10},
		Forecast: pm.Forecast{
			{Destination: "BREADROOM", Product: "WHITE", Date: time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC), Quantity: 300},
		},
		Solver: pm.SolverConfig{AllowShortages: true, EnforceShelfLife: true},
	}
}

func buildProblem(t *testing.T, input pm.ModelInput) (*indexbuilder.Index, *pm.Warnings) {
	t.Helper()
	pre, err := preprocess.Preprocess(input)
	require.NoError(t, err)
	ix, err := indexbuilder.Build(input, pre)
	require.NoError(t, err)
	return ix, &pre.Warnings
}

func TestGenerateEmitsEachCoreConstraintFamily(t *testing.T) {
	input := simpleInput()
	ix, _ := buildProblem(t, input)

	problem, err := Generate(input, ix)
	require.NoError(t, err)
	assert.Equal(t, ix.NumVariables(), problem.NumVars)
	assert.NotEmpty(t, problem.Constraints)

	foundFlow, foundDemand, foundShelf, foundLabor := false, false, false, false
	for _, c := range problem.Constraints {
		switch {
		case strings.HasPrefix(c.Name, "flow["):
			foundFlow = true
		case strings.HasPrefix(c.Name, "demand_identity["):
			foundDemand = true
		case strings.HasPrefix(c.Name, "shelf_life["):
			foundShelf = true
		case strings.HasPrefix(c.Name, "labor_capacity["):
			foundLabor = true
		}
	}
	assert.True(t, foundFlow)
	assert.True(t, foundDemand)
	assert.True(t, foundShelf)
	assert.True(t, foundLabor)
}

func TestGenerateDisallowsShortagesWhenConfigured(t *testing.T) {
	input := simpleInput()
	input.Solver.AllowShortages = false
	ix, _ := buildProblem(t, input)

	problem, err := Generate(input, ix)
	require.NoError(t, err)
	for k, idx := range ix.Shortage {
		_ = k
		assert.Equal(t, 0.0, problem.UpperBounds[idx])
	}
}

func TestGenerateMorningCutoffSkippedForAfternoonOnlyTrucks(t *testing.T) {
	input := simpleInput() // truck is afternoon-only
	ix, _ := buildProblem(t, input)

	problem, err := Generate(input, ix)
	require.NoError(t, err)
	for _, c := range problem.Constraints {
		assert.False(t, strings.HasPrefix(c.Name, "morning_cutoff"))
	}
}

func TestGenerateMorningCutoffSharedAcrossLegsFromSameOrigin(t *testing.T) {
	input := pm.ModelInput{
		Nodes: []pm.Node{
			{ID: "PLANT", ProducesAtNode: true, StoresAmbient: true},
			{ID: "H1", HasDemand: true, StoresAmbient: true},
			{ID: "H2", HasDemand: true, StoresAmbient: true},
		},
		Routes: []pm.Route{
			{Origin: "PLANT", Destination: "H1", TransitDays: 1, ArrivalState: pm.StateAmbient},
			{Origin: "PLANT", Destination: "H2", TransitDays: 1, ArrivalState: pm.StateAmbient},
		},
		Trucks: []pm.TruckSchedule{
			{ID: "M1", Origin: "PLANT", FinalDestination: "H1", Departure: pm.DepartureMorning, CapacityUnits: 1000},
			{ID: "M2", Origin: "PLANT", FinalDestination: "H2", Departure: pm.DepartureMorning, CapacityUnits: 1000},
		},
		LaborCalendar: pm.LaborCalendar{
			"2025-01-12": pm.LaborDay{FixedHours: 8, MaxOvertimeHours: 2, ProductionRateUnitsPerHour: 100},
			"2025-01-13": pm.LaborDay{FixedHours: 8, MaxOvertimeHours: 2, ProductionRateUnitsPerHour: 100},
		},
		ShelfLife: pm.ShelfLifeParams{MaxAgeAmbientDays: 10},
		Forecast: pm.Forecast{
			{Destination: "H1", Product: "WHITE", Date: time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC), Quantity: 100},
			{Destination: "H2", Product: "WHITE", Date: time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC), Quantity: 100},
		},
		Solver: pm.SolverConfig{AllowShortages: true, EnforceShelfLife: true},
	}
	ix, _ := buildProblem(t, input)

	problem, err := Generate(input, ix)
	require.NoError(t, err)

	var matches int
	for _, c := range problem.Constraints {
		if !strings.HasPrefix(c.Name, "morning_cutoff[PLANT,WHITE,2025-01-13") {
			continue
		}
		matches++
		legVars := 0
		for _, coeff := range c.Expr.Coeffs {
			if coeff == 1 {
				legVars++
			}
		}
		assert.Equal(t, 2, legVars, "both legs out of PLANT must share this one constraint")
	}
	assert.Equal(t, 1, matches, "exactly one shared constraint, not one per leg")
}

func TestGenerateDemandIdentityRHSMatchesForecastQuantity(t *testing.T) {
	input := simpleInput()
	ix, _ := buildProblem(t, input)

	problem, err := Generate(input, ix)
	require.NoError(t, err)

	found := false
	for _, c := range problem.Constraints {
		if strings.HasPrefix(c.Name, "demand_identity[") {
			assert.Equal(t, 300.0, c.RHS)
			found = true
		}
	}
	assert.True(t, found)
}
