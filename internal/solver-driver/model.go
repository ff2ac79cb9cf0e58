// Package solverdriver defines the solver contract of spec §6.3 and §4.5:
// an opaque handle the constraint generator and objective composer build a
// Problem against, and that returns a typed Solution. The package also
// hosts the default open-source solver backend (bnbsolver) behind this
// same interface, so a commercial backend can be substituted without
// touching any upstream component.
package solverdriver

import "fmt"

// VarType is the domain of a decision variable.
type VarType int

const (
	Continuous VarType = iota
	Integer
	Binary
)

// LinearExpr is a sparse linear expression: coefficient per variable index,
// plus a constant term. Variable indices come from the Index Builder.
type LinearExpr struct {
	Coeffs   map[int]float64
	Constant float64
}

// NewLinearExpr returns an empty expression ready for Add calls.
func NewLinearExpr() LinearExpr {
	return LinearExpr{Coeffs: map[int]float64{}}
}

// Add accumulates coeff*x[varIndex] into the expression.
func (e LinearExpr) Add(varIndex int, coeff float64) LinearExpr {
	if coeff == 0 {
		return e
	}
	e.Coeffs[varIndex] += coeff
	return e
}

// ConstraintOp is the relational operator of a linear constraint.
type ConstraintOp int

const (
	LE ConstraintOp = iota
	GE
	EQ
)

func (op ConstraintOp) String() string {
	switch op {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "=="
	default:
		return "?"
	}
}

// Constraint is one row of the linear program: Expr {<=,>=,==} RHS. Name is
// a human-readable label used in infeasibility diagnostics and logging; it
// is never parsed.
type Constraint struct {
	Name string
	Expr LinearExpr
	Op   ConstraintOp
	RHS  float64
}

// Problem is the complete mathematical program handed to a Solver: every
// variable's type and bounds, every constraint, and the objective. It is
// the "intermediate representation" spec §4.3 describes the constraint
// generator as emitting, independent of any concrete solver backend.
type Problem struct {
	NumVars     int
	VarTypes    []VarType
	LowerBounds []float64
	UpperBounds []float64
	VarNames    []string // optional, for diagnostics only

	Constraints []Constraint
	Objective   LinearExpr
	Minimize    bool
}

// NewProblem allocates a Problem sized for n variables, all continuous and
// non-negative by default (the domain of nearly every variable in this
// model — spec §4.2's "∈ ℝ≥0").
func NewProblem(n int) *Problem {
	p := &Problem{
		NumVars:     n,
		VarTypes:    make([]VarType, n),
		LowerBounds: make([]float64, n),
		UpperBounds: make([]float64, n),
		VarNames:    make([]string, n),
		Minimize:    true,
	}
	for i := range p.UpperBounds {
		p.UpperBounds[i] = defaultUpperBound
	}
	return p
}

// defaultUpperBound stands in for +infinity; large enough not to bind any
// realistic production/shipment quantity, small enough to keep the
// reference solver's arithmetic well-conditioned.
const defaultUpperBound = 1e9

// SetBinary marks variable i as a {0,1} decision variable.
func (p *Problem) SetBinary(i int, name string) {
	p.VarTypes[i] = Binary
	p.LowerBounds[i] = 0
	p.UpperBounds[i] = 1
	p.VarNames[i] = name
}

// SetContinuous marks variable i as continuous on [lower, upper].
func (p *Problem) SetContinuous(i int, name string, lower, upper float64) {
	p.VarTypes[i] = Continuous
	p.LowerBounds[i] = lower
	if upper > 0 {
		p.UpperBounds[i] = upper
	}
	p.VarNames[i] = name
}

// AddConstraint appends c to the problem.
func (p *Problem) AddConstraint(c Constraint) {
	p.Constraints = append(p.Constraints, c)
}

// AddVariable appends a new continuous variable to the problem (used by the
// objective composer to introduce linearization auxiliaries, such as the
// smoothing-penalty deviation variable, that the index builder has no
// reason to know about) and returns its index.
func (p *Problem) AddVariable(name string, lower, upper float64) int {
	idx := p.NumVars
	p.NumVars++
	p.VarTypes = append(p.VarTypes, Continuous)
	p.LowerBounds = append(p.LowerBounds, lower)
	if upper <= 0 {
		upper = defaultUpperBound
	}
	p.UpperBounds = append(p.UpperBounds, upper)
	p.VarNames = append(p.VarNames, name)
	return idx
}

// Status is the solver termination status of spec §4.5.
type Status string

const (
	StatusOptimal         Status = "Optimal"
	StatusFeasibleWithGap Status = "FeasibleWithGap"
	StatusInfeasible      Status = "Infeasible"
	StatusUnbounded       Status = "Unbounded"
	StatusTimeLimit       Status = "TimeLimit"
	StatusError           Status = "Error"
	StatusCancelled       Status = "Cancelled"
)

// Solution is what a Solver returns: primal values for every variable plus
// termination metadata.
type Solution struct {
	Status         Status
	ObjectiveValue float64
	BestBound      float64
	MIPGap         float64
	WallTimeSec    float64
	Values         []float64 // len == Problem.NumVars
}

// Value returns the primal value of variable i, or 0 if the solution has
// no values (e.g. an Infeasible/Error solution).
func (s *Solution) Value(i int) float64 {
	if s == nil || i < 0 || i >= len(s.Values) {
		return 0
	}
	return s.Values[i]
}

func (s *Solution) String() string {
	return fmt.Sprintf("Solution{status=%s, obj=%.4f, gap=%.4f, wall=%.2fs}",
		s.Status, s.ObjectiveValue, s.MIPGap, s.WallTimeSec)
}
