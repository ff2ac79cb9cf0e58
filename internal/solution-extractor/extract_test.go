package extractor

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	indexbuilder "github.com/horizonfoods/planner-core/internal/index-builder"
	preprocess "github.com/horizonfoods/planner-core/internal/network-preprocessor"
	pm "github.com/horizonfoods/planner-core/internal/planning-model"
	schema "github.com/horizonfoods/planner-core/internal/result-schema"
	sd "github.com/horizonfoods/planner-core/internal/solver-driver"
)

func singleDayInput() pm.ModelInput {
	return pm.ModelInput{
		Nodes: []pm.Node{
			{ID: "PLANT", ProducesAtNode: true, StoresAmbient: true, HasDemand: true},
		},
		LaborCalendar: pm.LaborCalendar{
			"2025-01-06": pm.LaborDay{FixedHours: 10, MaxOvertimeHours: 2, ProductionRateUnitsPerHour: 1400},
		},
		ShelfLife: pm.ShelfLifeParams{MaxAgeAmbientDays: 10},
		Forecast: pm.Forecast{
			{Destination: "PLANT", Product: "P", Date: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), Quantity: 100},
		},
		CostStructure: pm.CostStructure{
			RegularLaborRatePerHour: decimal.NewFromFloat(20),
			ProductionCostPerUnit:   decimal.NewFromFloat(0.1),
		},
		Solver: pm.SolverConfig{AllowShortages: true, EnforceShelfLife: true},
	}
}

func buildIndex(t *testing.T, input pm.ModelInput) *indexbuilder.Index {
	t.Helper()
	pre, err := preprocess.Preprocess(input)
	require.NoError(t, err)
	ix, err := indexbuilder.Build(input, pre)
	require.NoError(t, err)
	return ix
}

func TestExtractRejectsMismatchedSolutionLength(t *testing.T) {
	input := singleDayInput()
	ix := buildIndex(t, input)
	sol := &sd.Solution{Status: sd.StatusOptimal, Values: []float64{1, 2, 3}}

	_, err := Extract(input, ix, sol, false, schema.ModelSlidingWindow, zap.NewNop())
	require.Error(t, err)
	var ve *pm.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "pre_schema", ve.Stage)
}

func TestExtractReturnsSolverOutcomeErrorOnInfeasible(t *testing.T) {
	input := singleDayInput()
	ix := buildIndex(t, input)
	sol := &sd.Solution{Status: sd.StatusInfeasible}

	_, err := Extract(input, ix, sol, false, schema.ModelSlidingWindow, zap.NewNop())
	require.Error(t, err)
	var oe *pm.SolverOutcomeError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "Infeasible", oe.Status)
}

func TestExtractBuildsProductionBatchForNonZeroProduction(t *testing.T) {
	input := singleDayInput()
	ix := buildIndex(t, input)
	values := make([]float64, ix.NumVariables())
	prodIdx := ix.Prod[indexbuilder.ProdKey{Date: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), Product: "P"}]
	values[prodIdx] = 100
	demandIdx := ix.DemandMet[indexbuilder.DemandKey{Dest: "PLANT", Product: "P", Date: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)}]
	values[demandIdx] = 100

	sol := &sd.Solution{Status: sd.StatusOptimal, Values: values}

	out, err := Extract(input, ix, sol, false, schema.ModelSlidingWindow, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, out.ProductionBatches, 1)
	assert.Equal(t, 100.0, out.ProductionBatches[0].Quantity)
	assert.Equal(t, 100.0, out.TotalProduction)
	assert.InDelta(t, 1.0, out.FillRate, 1e-9)
}

func TestExtractTwiceOnSameSolutionYieldsIdenticalRecords(t *testing.T) {
	input := singleDayInput()
	ix := buildIndex(t, input)
	values := make([]float64, ix.NumVariables())
	prodIdx := ix.Prod[indexbuilder.ProdKey{Date: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), Product: "P"}]
	values[prodIdx] = 100
	demandIdx := ix.DemandMet[indexbuilder.DemandKey{Dest: "PLANT", Product: "P", Date: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)}]
	values[demandIdx] = 100

	sol := &sd.Solution{Status: sd.StatusOptimal, Values: values}

	first, err := Extract(input, ix, sol, false, schema.ModelSlidingWindow, zap.NewNop())
	require.NoError(t, err)
	second, err := Extract(input, ix, sol, false, schema.ModelSlidingWindow, zap.NewNop())
	require.NoError(t, err)

	first.SolveID = ""
	second.SolveID = ""
	assert.Equal(t, first, second)
}
