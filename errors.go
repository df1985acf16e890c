package qrcarve

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/swannyPeng/3DQR/qrgrid"
)

var (
	// ErrInput is wrapped by errors reporting malformed optimizer inputs.
	ErrInput = errors.New("invalid input")
	// ErrPrecondition is wrapped by *PreconditionError.
	ErrPrecondition = errors.New("precondition violated")
	// ErrDivergence is wrapped by *DivergenceError.
	ErrDivergence = errors.New("optimizer did not converge")
	// ErrGeometryDegenerate marks NaN results of the visibility oracle or
	// the ambient occlusion estimator.
	ErrGeometryDegenerate = errors.New("degenerate geometry")
)

// inputErr returns an ErrInput wrapping error tagged with the calling
// function name and line number.
func inputErr(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	pc, _, line, ok := runtime.Caller(1)
	if !ok {
		return fmt.Errorf("?: %s: %w", msg, ErrInput)
	}
	fn := runtime.FuncForPC(pc)
	return fmt.Errorf("%s line %d: %s: %w", fn.Name(), line, msg, ErrInput)
}

// PreconditionError reports an input geometry the optimizer cannot rescue.
type PreconditionError struct {
	Reason string
	// Unlit lists white cells that the upper light does not reach.
	Unlit []qrgrid.Cell
}

func (e *PreconditionError) Error() string {
	if len(e.Unlit) > 0 {
		return fmt.Sprintf("%s: %s (%d white cells unlit, first at %v)", ErrPrecondition, e.Reason, len(e.Unlit), e.Unlit[0])
	}
	return fmt.Sprintf("%s: %s", ErrPrecondition, e.Reason)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// DivergenceError is returned when the optimizer stops before every dark
// cell is dark enough.
type DivergenceError struct {
	Iterations int
	// Gray is the last simulated gray map, Q×Q row major.
	Gray []int
	// Bright lists the dark cells still above the acceptance threshold.
	Bright []qrgrid.Cell
	// Cause is ErrGeometryDegenerate when a cell kept producing NaN, nil
	// when the iteration cap was reached.
	Cause error
}

func (e *DivergenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s after %d iterations: %v", ErrDivergence, e.Iterations, e.Cause)
	}
	return fmt.Sprintf("%s after %d iterations: %d dark cells too bright", ErrDivergence, e.Iterations, len(e.Bright))
}

func (e *DivergenceError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrDivergence, e.Cause}
	}
	return []error{ErrDivergence}
}
