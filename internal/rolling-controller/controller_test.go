package rolling

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pm "github.com/horizonfoods/planner-core/internal/planning-model"
)

func fourDayInput(demandPerDay float64) pm.ModelInput {
	dates := []time.Time{
		time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC),
	}
	calendar := pm.LaborCalendar{}
	var forecast pm.Forecast
	for _, d := range dates {
		calendar[pm.DateKey(d)] = pm.LaborDay{FixedHours: 10, MaxOvertimeHours: 2, ProductionRateUnitsPerHour: 1000}
		forecast = append(forecast, pm.ForecastEntry{Destination: "PLANT", Product: "P", Date: d, Quantity: demandPerDay})
	}

	return pm.ModelInput{
		Nodes: []pm.Node{
			{ID: "PLANT", ProducesAtNode: true, StoresAmbient: true, HasDemand: true},
		},
		LaborCalendar: calendar,
		ShelfLife:     pm.ShelfLifeParams{MaxAgeAmbientDays: 30},
		Forecast:      forecast,
		CostStructure: pm.CostStructure{
			RegularLaborRatePerHour: decimal.NewFromFloat(20),
			ProductionCostPerUnit:   decimal.NewFromFloat(0.1),
			ShortagePenaltyPerUnit:  decimal.NewFromFloat(1000),
		},
		Solver: pm.SolverConfig{
			AllowShortages:   true,
			EnforceShelfLife: true,
			Solver:           "default",
			TimeLimitSeconds: 5,
			MIPGap:           0.05,
			WindowDays:       2,
			CommitDays:       1,
		},
	}
}

func TestControllerSolveOneSatisfiesDemandWithinCapacity(t *testing.T) {
	input := fourDayInput(100)
	c := NewController(zap.NewNop())

	sol, err := c.SolveOne(context.Background(), input)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sol.FillRate, 1e-6)
	assert.InDelta(t, 400.0, sol.TotalProduction, 1e-6)
}

func TestControllerSolveWindowedCoversFullHorizon(t *testing.T) {
	input := fourDayInput(100)
	c := NewController(zap.NewNop())

	sol, err := c.SolveWindowed(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "windowed", string(sol.ModelType))
	assert.InDelta(t, 1.0, sol.FillRate, 1e-6)

	seen := map[string]bool{}
	for _, d := range sol.DemandSatisfaction {
		seen[d.Date.String()] = true
	}
	assert.Len(t, seen, 4)
}

func TestControllerSolveScenariosRunsBothIndependently(t *testing.T) {
	c := NewController(zap.NewNop())
	scenarios := map[string]pm.ModelInput{
		"low":  fourDayInput(50),
		"high": fourDayInput(200),
	}

	results, err := c.SolveScenarios(context.Background(), scenarios)
	require.NoError(t, err)
	require.Contains(t, results, "low")
	require.Contains(t, results, "high")
	assert.InDelta(t, 200.0, results["low"].TotalProduction, 1e-6)
	assert.InDelta(t, 800.0, results["high"].TotalProduction, 1e-6)
}
