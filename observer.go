package qrcarve

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/qrgrid"
)

// Iteration is the state handed to an Observer after each evaluation
// sweep. Slices are owned by the optimizer and only valid during the call.
type Iteration struct {
	K        int
	Layout   qrgrid.Layout
	Vertices []r3.Vec
	Faces    [][3]int
	// Gray is the simulated gray map, Q×Q row major. Cells outside the
	// optimized set read 255.
	Gray []int
	// Bright is the number of dark cells above the acceptance threshold.
	Bright    int
	Threshold float64
	// DirectUpper and DirectLower hold the directional term of each dark
	// cell under either light, Q×Q row major, whichever light the cell is
	// judged by.
	DirectUpper, DirectLower []float64
}

// Observer is notified after every sweep. A non-nil error aborts the run.
type Observer interface {
	OnIteration(it *Iteration) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(it *Iteration) error

func (f ObserverFunc) OnIteration(it *Iteration) error { return f(it) }
