// Package carve owns the depth of every micro-cell and turns it into pixel
// mesh vertices. It also closes the surface next to long dark runs with
// slope layers and side walls once the optimizer has converged.
package carve

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/internal/d3"
	"github.com/swannyPeng/3DQR/qrgrid"
)

// MinDirZ is the smallest |dir.Z| a carving direction may have. Corners
// carved along flatter directions produce NaN vertices.
const MinDirZ = 1e-9

// overshoot is the factor the smallest lateral corner distance is divided by
// to obtain the carving step.
const overshoot = 0.1

var (
	// ErrGrid is returned when hit and direction grids do not match the layout.
	ErrGrid = errors.New("hit grid does not match layout")
	// ErrNoStep is returned when no corner pair yields a usable carving step.
	ErrNoStep = errors.New("no usable carving step")
)

// State is the depth of every micro-cell corner. Depths are measured along
// the corner's carving direction in units of z so a depth d moves a vertex
// down by d whatever the direction's slant.
type State struct {
	Layout qrgrid.Layout
	Hit    []r3.Vec
	Dir    []r3.Vec
	// Depth of the TopLeft, TopRight, BottomLeft and BottomRight corners of every cell.
	Depth [][4]float64
}

// NewState returns an uncarved state over the hit and direction grids.
func NewState(l qrgrid.Layout, hit, dir []r3.Vec) (*State, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	n := (l.Q() + 1) * (l.Q() + 1)
	if len(hit) != n || len(dir) != n {
		return nil, fmt.Errorf("got %d hit points and %d directions, want %d: %w", len(hit), len(dir), n, ErrGrid)
	}
	return &State{
		Layout: l,
		Hit:    hit,
		Dir:    dir,
		Depth:  make([][4]float64, l.Cells()),
	}, nil
}

// Step returns the carving step of a hit grid: the smallest distance between
// horizontally or vertically adjacent corners scaled by 1/|dir.Z|, divided by 0.1.
func Step(l qrgrid.Layout, hit, dir []r3.Vec) (float64, error) {
	side := l.Q() + 1
	step := math.Inf(1)
	consider := func(a, b int) {
		z := math.Abs(dir[a].Z)
		if z < MinDirZ {
			return
		}
		d := r3.Norm(r3.Sub(hit[b], hit[a])) / z
		if d > 0 && d < step {
			step = d
		}
	}
	for r := 0; r < side; r++ {
		for c := 0; c < side; c++ {
			i := r*side + c
			if c+1 < side {
				consider(i, i+1)
			}
			if r+1 < side {
				consider(i, i+side)
			}
		}
	}
	if math.IsInf(step, 1) || math.IsNaN(step) {
		return 0, ErrNoStep
	}
	return step / overshoot, nil
}

// Point returns hit grid corner h carved to depth d.
func (s *State) Point(h int, d float64) r3.Vec {
	dir := s.Dir[h]
	z := math.Abs(dir.Z)
	if z < MinDirZ {
		return r3.Vec{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
	}
	return r3.Add(s.Hit[h], r3.Scale(d/z, dir))
}

// Deepen adds step to every corner of the anchor cell of QR pixel (py, px).
// Call Patch afterwards to spread the new depth over the pixel.
func (s *State) Deepen(py, px int, step float64) {
	y, x := s.Layout.Anchor(py, px)
	d := &s.Depth[s.Layout.Cell(y, x)]
	for k := range d {
		d[k] += step
	}
}

// Patch copies the anchor cell's corner depths into every micro-cell of
// QR pixel (py, px).
func (s *State) Patch(py, px int) {
	l := s.Layout
	ay, ax := l.Anchor(py, px)
	d := s.Depth[l.Cell(ay, ax)]
	y0, x0 := l.Origin(py, px)
	for y := y0; y < y0+l.Scale; y++ {
		for x := x0; x < x0+l.Scale; x++ {
			s.Depth[l.Cell(y, x)] = d
		}
	}
}

// AnchorDepth returns the top left corner depth of the anchor of pixel (py, px).
func (s *State) AnchorDepth(py, px int) float64 {
	y, x := s.Layout.Anchor(py, px)
	return s.Depth[s.Layout.Cell(y, x)][qrgrid.TopLeft]
}

// CarveDown writes the four corner vertices of every micro-cell into dst,
// corner k of cell i at dst[4i+k]. dst must hold 4 vertices per cell.
func (s *State) CarveDown(dst []r3.Vec) {
	l := s.Layout
	q := l.Q()
	if len(dst) != 4*l.Cells() {
		panic("carve: vertex buffer does not hold 4 vertices per cell")
	}
	for y := 0; y < q; y++ {
		for x := 0; x < q; x++ {
			i := l.Cell(y, x)
			for k, h := range l.Corners(y, x) {
				dst[4*i+k] = s.Point(h, s.Depth[i][k])
			}
		}
	}
}

// PrePixelNormal returns the center and unit normal of each of the first n
// cells of a pixel mesh laid out with 4 vertices per cell. The normal is
// taken from the cell diagonals and is NaN for collapsed cells.
func PrePixelNormal(qr []r3.Vec, n int) (pos, nrm []r3.Vec) {
	pos = make([]r3.Vec, n)
	nrm = make([]r3.Vec, n)
	for i := 0; i < n; i++ {
		v := qr[4*i : 4*i+4]
		pos[i] = d3.Set(v).Mean()
		d1 := r3.Sub(v[qrgrid.BottomRight], v[qrgrid.TopLeft])
		d2 := r3.Sub(v[qrgrid.TopRight], v[qrgrid.BottomLeft])
		nrm[i] = d3.Normalize(r3.Cross(d1, d2))
	}
	return pos, nrm
}
