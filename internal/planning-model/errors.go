package planningmodel

import (
	"errors"
	"fmt"
)

// Sentinel errors for the errors.Is-comparable cases. Concrete error kinds
// below wrap context around these (or stand alone), pairing a sentinel with
// a richer struct for the cases that need field-level context.
var (
	ErrMissingLeg          = errors.New("missing leg for expanded truck")
	ErrUnknownNode         = errors.New("unknown node referenced")
	ErrShelfLifeTooShort   = errors.New("shelf life shorter than required leg transit")
	ErrInfeasibleHorizon   = errors.New("required horizon start precedes caller-forced start with shortages disabled")
	ErrSolverFailure       = errors.New("solver driver failure")
	ErrInfeasible          = errors.New("solver reported infeasible")
	ErrUnbounded           = errors.New("solver reported unbounded")
	ErrTimeLimitExceeded   = errors.New("solver exhausted time limit")
	ErrCancelled           = errors.New("solve cancelled")
)

// ConfigError is fatal and always surfaced to the caller: a structural
// problem with the input (missing leg, unknown node, shelf life too short
// for a mandatory leg).
type ConfigError struct {
	Kind     string // "missing_leg" | "unknown_node" | "shelf_life_too_short" | "graph_build_failed" | "unknown_solver_backend" | "unknown_solve_mode"
	Detail   string
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error (%s): %s", e.Kind, e.Detail)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewMissingLegError names the truck and the (origin, dest) pair with no
// matching Route, per spec.md §4.1.
func NewMissingLegError(truckID, origin, dest string) *ConfigError {
	return &ConfigError{
		Kind:   "missing_leg",
		Detail: fmt.Sprintf("truck %q requires leg %s->%s but no Route exists for it", truckID, origin, dest),
		Err:    ErrMissingLeg,
	}
}

// NewUnknownNodeError names a node referenced by a route or truck that does
// not appear in the node list.
func NewUnknownNodeError(context, nodeID string) *ConfigError {
	return &ConfigError{
		Kind:   "unknown_node",
		Detail: fmt.Sprintf("%s references unknown node %q", context, nodeID),
		Err:    ErrUnknownNode,
	}
}

// NewShelfLifeTooShortError names the leg whose transit time exceeds a
// product's shelf-life cap.
func NewShelfLifeTooShortError(origin, dest string, transitDays, maxAgeDays int) *ConfigError {
	return &ConfigError{
		Kind: "shelf_life_too_short",
		Detail: fmt.Sprintf("leg %s->%s has %d-day transit, exceeding max shelf life of %d days",
			origin, dest, transitDays, maxAgeDays),
		Err: ErrShelfLifeTooShort,
	}
}

// InfeasibleHorizonError is raised when the computed required planning
// start is later than the caller's forced start and shortages are
// disabled, so there is no slack to absorb the gap.
type InfeasibleHorizonError struct {
	RequiredStart string
	ForcedStart   string
	SuggestedFix  string
}

func (e *InfeasibleHorizonError) Error() string {
	return fmt.Sprintf("infeasible horizon: required start %s is earlier than forced start %s; %s",
		e.RequiredStart, e.ForcedStart, e.SuggestedFix)
}

func (e *InfeasibleHorizonError) Unwrap() error { return ErrInfeasibleHorizon }

// SolverError wraps an underlying solver failure (license, crash, internal
// numerical error). Retryable at the caller's discretion.
type SolverError struct {
	Stage string
	Err   error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver error during %s: %v", e.Stage, e.Err)
}

func (e *SolverError) Unwrap() error { return e.Err }

// SolverOutcomeError represents a solver-reported Infeasible or Unbounded
// termination (as opposed to a driver-internal crash).
type SolverOutcomeError struct {
	Status       string // "Infeasible" | "Unbounded"
	DiagnosticRerun bool // true if this was a shortages-enabled diagnostic rerun
	Err          error
}

func (e *SolverOutcomeError) Error() string {
	if e.DiagnosticRerun {
		return fmt.Sprintf("solver status %s (diagnostic rerun with shortages enabled)", e.Status)
	}
	return fmt.Sprintf("solver status %s", e.Status)
}

func (e *SolverOutcomeError) Unwrap() error { return e.Err }

// ValidationError is raised by the Solution Extractor & Validator (§4.7).
// Always fatal; always names the offending field and a remediation hint.
type ValidationError struct {
	Stage           string // which of the five extractor stages raised this
	Field           string
	Violation       string
	RemediationHint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error at stage %q, field %q: %s (hint: %s)",
		e.Stage, e.Field, e.Violation, e.RemediationHint)
}

// CancelledError is raised on cooperative cancellation, carrying the best
// incumbent if one was found before the cancellation point.
type CancelledError struct {
	Partial any
}

func (e *CancelledError) Error() string { return "solve cancelled" }
func (e *CancelledError) Unwrap() error { return ErrCancelled }

// IsRetryable reports whether a caller may reasonably retry the operation
// that produced err.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrSolverFailure):
		return true
	case errors.Is(err, ErrTimeLimitExceeded):
		return true
	default:
		var se *SolverError
		if errors.As(err, &se) {
			return true
		}
		return false
	}
}

// IsPermanent reports whether err indicates a permanent, non-retryable
// failure that the caller must fix before resubmitting.
func IsPermanent(err error) bool {
	switch {
	case errors.Is(err, ErrMissingLeg), errors.Is(err, ErrUnknownNode), errors.Is(err, ErrShelfLifeTooShort):
		return true
	case errors.Is(err, ErrInfeasibleHorizon):
		return true
	default:
		var ve *ValidationError
		if errors.As(err, &ve) {
			return true
		}
		var ce *ConfigError
		if errors.As(err, &ce) {
			return true
		}
		return false
	}
}

// Code returns a stable error code for err, suitable for logging and
// metrics labels without risking high cardinality from free-text messages.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrMissingLeg):
		return "MISSING_LEG"
	case errors.Is(err, ErrUnknownNode):
		return "UNKNOWN_NODE"
	case errors.Is(err, ErrShelfLifeTooShort):
		return "SHELF_LIFE_TOO_SHORT"
	case errors.Is(err, ErrInfeasibleHorizon):
		return "INFEASIBLE_HORIZON"
	case errors.Is(err, ErrSolverFailure):
		return "SOLVER_ERROR"
	case errors.Is(err, ErrInfeasible):
		return "INFEASIBLE"
	case errors.Is(err, ErrUnbounded):
		return "UNBOUNDED"
	case errors.Is(err, ErrTimeLimitExceeded):
		return "TIME_LIMIT"
	case errors.Is(err, ErrCancelled):
		return "CANCELLED"
	default:
		var ve *ValidationError
		if errors.As(err, &ve) {
			return "VALIDATION_ERROR"
		}
		var ce *ConfigError
		if errors.As(err, &ce) {
			return "CONFIG_ERROR"
		}
		return "UNKNOWN_ERROR"
	}
}
