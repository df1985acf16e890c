// Package qrgrid describes the micro-cell grid a QR code is embedded in:
// layout arithmetic, the per-cell dark class maps, 4-connected labelling,
// boundary extraction and horizontal dark run segments.
package qrgrid

import (
	"errors"
	"fmt"
)

// Layout is the QR layout descriptor. A QR of P×P pixels is surrounded by
// a quiet zone Border pixels wide and every pixel is split into Scale×Scale
// micro-cells.
type Layout struct {
	P      int
	Border int
	Scale  int
}

// ErrLayout is returned for layouts that cannot describe a grid.
var ErrLayout = errors.New("invalid layout")

// Validate checks the layout is usable.
func (l Layout) Validate() error {
	if l.P <= 0 || l.Scale <= 0 || l.Border < 0 {
		return fmt.Errorf("P=%d border=%d scale=%d: %w", l.P, l.Border, l.Scale, ErrLayout)
	}
	return nil
}

// Q returns the side of the micro-cell grid.
func (l Layout) Q() int { return (l.P + 2*l.Border) * l.Scale }

// Cells returns the number of micro-cells.
func (l Layout) Cells() int {
	q := l.Q()
	return q * q
}

// Cell returns the flat index of micro-cell (y, x).
func (l Layout) Cell(y, x int) int { return y*l.Q() + x }

// HitIndex returns the flat index of hit grid corner (r, c).
// The hit grid has side Q+1.
func (l Layout) HitIndex(r, c int) int { return r*(l.Q()+1) + c }

// Corner ids of a micro-cell in the pixel mesh.
const (
	TopLeft = iota
	TopRight
	BottomLeft
	BottomRight
)

// Corner returns the hit grid index of corner k of micro-cell (y, x).
func (l Layout) Corner(y, x, k int) int {
	switch k {
	case TopLeft:
		return l.HitIndex(y, x)
	case TopRight:
		return l.HitIndex(y, x+1)
	case BottomLeft:
		return l.HitIndex(y+1, x)
	case BottomRight:
		return l.HitIndex(y+1, x+1)
	}
	panic("qrgrid: bad corner id")
}

// Corners returns the hit grid indices of the four corners of micro-cell (y, x).
func (l Layout) Corners(y, x int) [4]int {
	r0, r1 := l.HitIndex(y, x), l.HitIndex(y+1, x)
	return [4]int{r0, r0 + 1, r1, r1 + 1}
}

// Pixel returns the QR pixel micro-cell (y, x) belongs to. ok is
// false for cells in the quiet zone.
func (l Layout) Pixel(y, x int) (py, px int, ok bool) {
	py = y/l.Scale - l.Border
	px = x/l.Scale - l.Border
	ok = y >= 0 && x >= 0 && py >= 0 && px >= 0 && py < l.P && px < l.P
	return py, px, ok
}

// Origin returns the top left micro-cell of QR pixel (py, px).
func (l Layout) Origin(py, px int) (y, x int) {
	return (l.Border + py) * l.Scale, (l.Border + px) * l.Scale
}

// Anchor returns the micro-cell used as the depth reference of
// QR pixel (py, px), its bottom right micro-cell.
func (l Layout) Anchor(py, px int) (y, x int) {
	y, x = l.Origin(py, px)
	return y + l.Scale - 1, x + l.Scale - 1
}

// InQR reports whether micro-cell (y, x) lies outside the quiet zone.
func (l Layout) InQR(y, x int) bool {
	_, _, ok := l.Pixel(y, x)
	return ok
}

// Cell is a micro-cell coordinate.
type Cell struct {
	Y, X int
}

// ScanCells returns every micro-cell outside the quiet zone in row major
// scan order. This is the set of cells the optimizer works on.
func (l Layout) ScanCells() []Cell {
	lo := l.Border * l.Scale
	hi := lo + l.P*l.Scale
	cells := make([]Cell, 0, (hi-lo)*(hi-lo))
	for y := lo; y < hi; y++ {
		for x := lo; x < hi; x++ {
			cells = append(cells, Cell{Y: y, X: x})
		}
	}
	return cells
}
