package objective

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	constraints "github.com/horizonfoods/planner-core/internal/constraint-generator"
	indexbuilder "github.com/horizonfoods/planner-core/internal/index-builder"
	preprocess "github.com/horizonfoods/planner-core/internal/network-preprocessor"
	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

func baseInput() pm.ModelInput {
	return pm.ModelInput{
		Nodes: []pm.Node{
			{ID: "PLANT", ProducesAtNode: true, StoresAmbient: true},
			{ID: "BREADROOM", HasDemand: true, StoresAmbient: true},
		},
		Routes: []pm.Route{
			{Origin: "PLANT", Destination: "BREADROOM", TransitDays: 1, ArrivalState: pm.StateAmbient, CostPerUnit: decimal.NewFromFloat(0.5)},
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
		CostStructure: pm.CostStructure{
			RegularLaborRatePerHour: decimal.NewFromFloat(20),
			ProductionCostPerUnit:   decimal.NewFromFloat(1.2),
			ShortagePenaltyPerUnit:  decimal.NewFromFloat(50),
			WastePenaltyPerUnit:     decimal.NewFromFloat(5),
		},
		Solver: pm.SolverConfig{AllowShortages: true, EnforceShelfLife: true},
	}
}

func buildProblem(t *testing.T, input pm.ModelInput) *indexbuilder.Index {
	t.Helper()
	pre, err := preprocess.Preprocess(input)
	require.NoError(t, err)
	ix, err := indexbuilder.Build(input, pre)
	require.NoError(t, err)
	return ix
}

func TestComposeAddsLaborAndProductionCoefficients(t *testing.T) {
	input := baseInput()
	ix := buildProblem(t, input)
	problem, err := constraints.Generate(input, ix)
	require.NoError(t, err)

	Compose(input, ix, problem)

	for _, idx := range ix.LaborFixed {
		assert.Equal(t, 20.0, problem.Objective.Coeffs[idx])
	}
	for _, idx := range ix.Prod {
		assert.Equal(t, 1.2, problem.Objective.Coeffs[idx])
	}
	for _, idx := range ix.Shortage {
		assert.Equal(t, 50.0, problem.Objective.Coeffs[idx])
	}
}

func TestComposeAddsTransportCostFromRoute(t *testing.T) {
	input := baseInput()
	ix := buildProblem(t, input)
	problem, err := constraints.Generate(input, ix)
	require.NoError(t, err)

	Compose(input, ix, problem)

	for _, idx := range ix.InTransit {
		assert.Equal(t, 0.5, problem.Objective.Coeffs[idx])
	}
}

func TestComposeSkipsSmoothingWhenDisabled(t *testing.T) {
	input := baseInput()
	ix := buildProblem(t, input)
	problem, err := constraints.Generate(input, ix)
	require.NoError(t, err)

	numVarsBefore := problem.NumVars
	Compose(input, ix, problem)
	assert.Equal(t, numVarsBefore, problem.NumVars)
}

func TestComposeAddsSmoothingDeviationVariablesWhenEnabled(t *testing.T) {
	input := baseInput()
	input.Solver.SmoothingPenalty = 1.0
	input.CostStructure.SmoothingPenaltyPerUnit = decimal.NewFromFloat(2)
	ix := buildProblem(t, input)
	problem, err := constraints.Generate(input, ix)
	require.NoError(t, err)

	numVarsBefore := problem.NumVars
	Compose(input, ix, problem)
	assert.Greater(t, problem.NumVars, numVarsBefore)
}
