package solverdriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProblemDefaultsContinuousNonNegative(t *testing.T) {
	p := NewProblem(3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, Continuous, p.VarTypes[i])
		assert.Equal(t, 0.0, p.LowerBounds[i])
		assert.Equal(t, defaultUpperBound, p.UpperBounds[i])
	}
}

func TestSetBinaryClampsBounds(t *testing.T) {
	p := NewProblem(2)
	p.SetBinary(0, "product_produced")
	assert.Equal(t, Binary, p.VarTypes[0])
	assert.Equal(t, 0.0, p.LowerBounds[0])
	assert.Equal(t, 1.0, p.UpperBounds[0])
}

func TestLinearExprAddSkipsZeroCoeff(t *testing.T) {
	e := NewLinearExpr().Add(0, 0).Add(1, 2.5)
	assert.Len(t, e.Coeffs, 1)
	assert.Equal(t, 2.5, e.Coeffs[1])
}

func TestConstraintOpString(t *testing.T) {
	assert.Equal(t, "<=", LE.String())
	assert.Equal(t, ">=", GE.String())
	assert.Equal(t, "==", EQ.String())
}

func TestSolutionValueOutOfRangeIsZero(t *testing.T) {
	s := &Solution{Values: []float64{1, 2}}
	assert.Equal(t, 1.0, s.Value(0))
	assert.Equal(t, 0.0, s.Value(5))
	var nilSol *Solution
	assert.Equal(t, 0.0, nilSol.Value(0))
}
