package planningmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryStateDemandEligible(t *testing.T) {
	assert.True(t, StateAmbient.IsDemandEligible())
	assert.True(t, StateThawed.IsDemandEligible())
	assert.False(t, StateFrozen.IsDemandEligible())
}

func TestTruckScheduleLegsExpandsIntermediateStops(t *testing.T) {
	truck := TruckSchedule{
		Origin:            "PLANT",
		IntermediateStops: []string{"LINEAGE", "HUB_WA"},
		FinalDestination:  "BREADROOM_R",
	}
	legs := truck.Legs()
	require.Len(t, legs, 3)
	assert.Equal(t, "PLANT", legs[0].Origin)
	assert.Equal(t, "LINEAGE", legs[0].Destination)
	assert.Equal(t, "LINEAGE", legs[1].Origin)
	assert.Equal(t, "HUB_WA", legs[1].Destination)
	assert.Equal(t, "HUB_WA", legs[2].Origin)
	assert.Equal(t, "BREADROOM_R", legs[2].Destination)
}

func TestTruckScheduleRunsOnDailyWhenNoDaysSpecified(t *testing.T) {
	truck := TruckSchedule{}
	assert.True(t, truck.RunsOn(time.Monday))
	assert.True(t, truck.RunsOn(time.Sunday))
}

func TestTruckScheduleRunsOnRestrictedDays(t *testing.T) {
	truck := TruckSchedule{DaysOfWeek: []time.Weekday{time.Tuesday, time.Thursday}}
	assert.True(t, truck.RunsOn(time.Tuesday))
	assert.False(t, truck.RunsOn(time.Monday))
}

func TestPlanningHorizonDates(t *testing.T) {
	h := PlanningHorizon{
		Start: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	dates := h.Dates()
	require.Len(t, dates, 3)
	assert.Equal(t, 3, h.Days())
	assert.Equal(t, "2025-01-06", DateKey(dates[0]))
	assert.Equal(t, "2025-01-08", DateKey(dates[2]))
}

func TestPlanningHorizonEmptyWhenInverted(t *testing.T) {
	h := PlanningHorizon{
		Start: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	}
	assert.Nil(t, h.Dates())
	assert.Equal(t, 0, h.Days())
}

func TestErrorCodeAndRetryability(t *testing.T) {
	cfgErr := NewMissingLegError("T1", "PLANT", "LINEAGE")
	assert.Equal(t, "MISSING_LEG", Code(cfgErr))
	assert.True(t, IsPermanent(cfgErr))
	assert.False(t, IsRetryable(cfgErr))

	solverErr := &SolverError{Stage: "solve", Err: ErrSolverFailure}
	assert.Equal(t, "SOLVER_ERROR", Code(solverErr))
	assert.True(t, IsRetryable(solverErr))
}

func TestWarningsAdd(t *testing.T) {
	var ws Warnings
	ws.Add("unreachable_destination", "node BREADROOM_X is not reachable from PLANT")
	require.Len(t, ws, 1)
	assert.Equal(t, "unreachable_destination", ws[0].Kind)
}
