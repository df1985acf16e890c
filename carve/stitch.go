package carve

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/internal/d3"
	"github.com/swannyPeng/3DQR/qrgrid"
)

// Cell edge codes used by seam patch bookkeeping.
const (
	EdgeLeft = iota
	EdgeRight
	EdgeTop
	EdgeBottom
)

// MaxSlopePixels caps the width of the slope region in QR pixels.
const MaxSlopePixels = 4

// StitchInput is everything the side wall stitcher reads.
type StitchInput struct {
	State *State
	// Dark is the union of both class bitmaps.
	Dark qrgrid.Bitmap
	Runs []qrgrid.Segment
	// Vertices is the composed mesh vertex list. The pixel mesh occupies
	// the first 4·Q² entries.
	Vertices []r3.Vec
	// Seams holds per cell and edge the id of the seam triangle owned by
	// that cell edge in the composed face list, or -1.
	Seams [][4]int
}

// StitchOutput holds the stitcher's additions. Faces index the composed
// vertex list extended by Vertices.
type StitchOutput struct {
	Vertices []r3.Vec
	Faces    [][3]int
	// Kill lists seam faces replaced by the slope geometry.
	Kill []int
	// Cells is the number of slope cells generated.
	Cells int
}

// layered holds the vertex ids of the two slope layers of a cell, corner
// k of each layer at index k.
type layered struct {
	upper, lower [4]int
}

type stitcher struct {
	in     StitchInput
	out    StitchOutput
	base   int
	layers map[int]*layered
}

// Stitch adds slope layers behind every dark run longer than one pixel and
// closes them with walls and caps. Each cell of the slope region gets a
// lower layer, a floor kept at the dark run's depth, and an upper layer,
// a ceiling under the light pixels that runs from the light surface at the
// run's trailing edge down to the floor at the far end of the region. The
// region is min(L, 4) pixels wide, clipped to the grid and to the next dark
// pixel.
func Stitch(in StitchInput) StitchOutput {
	st := &stitcher{
		in:     in,
		base:   len(in.Vertices),
		layers: make(map[int]*layered),
	}
	var slope []qrgrid.Cell
	for _, run := range in.Runs {
		if run.Len > 1 {
			slope = append(slope, st.layersFor(run)...)
		}
	}
	st.out.Cells = len(slope)
	l := in.State.Layout
	for _, c := range slope {
		u := c.Y % l.Scale
		if u == 0 && c.Y > 0 {
			st.caps(c, qrgrid.Cell{Y: c.Y - 1, X: c.X}, true)
		}
		if u == l.Scale-1 && c.Y+1 < l.Q() {
			st.caps(c, qrgrid.Cell{Y: c.Y + 1, X: c.X}, false)
		}
	}
	return st.out
}

// slopeWidth returns the first slope column and the number of slope columns
// behind run.
func (st *stitcher) slopeWidth(run qrgrid.Segment) (xs, w int) {
	l := st.in.State.Layout
	y0, xs := l.Origin(run.Row, run.End())
	want := min(run.Len, MaxSlopePixels) * l.Scale
	for w < want && xs+w < l.Q() && !st.in.Dark.At(y0, xs+w) {
		w++
	}
	return xs, w
}

func (st *stitcher) layersFor(run qrgrid.Segment) []qrgrid.Cell {
	s := st.in.State
	l := s.Layout
	xs, w := st.slopeWidth(run)
	if w == 0 {
		return nil
	}
	y0, _ := l.Origin(run.Row, run.Col)
	var cells []qrgrid.Cell
	for u := 0; u < l.Scale; u++ {
		y := y0 + u
		dark := s.Depth[l.Cell(y, xs-1)]
		light := s.Depth[l.Cell(y, xs)]
		dTop := math.Max(0, dark[qrgrid.TopRight]-light[qrgrid.TopLeft])
		dBottom := math.Max(0, dark[qrgrid.BottomRight]-light[qrgrid.BottomLeft])
		for j := 0; j < w; j++ {
			x := xs + j
			ci := l.Cell(y, x)
			hits := l.Corners(y, x)
			base := s.Depth[ci]
			left := float64(j) / float64(w)
			right := float64(j+1) / float64(w)
			var floor, ceil [4]float64
			floor[qrgrid.TopLeft] = base[qrgrid.TopLeft] + dTop
			floor[qrgrid.TopRight] = base[qrgrid.TopRight] + dTop
			floor[qrgrid.BottomLeft] = base[qrgrid.BottomLeft] + dBottom
			floor[qrgrid.BottomRight] = base[qrgrid.BottomRight] + dBottom
			ceil[qrgrid.TopLeft] = base[qrgrid.TopLeft] + dTop*left
			ceil[qrgrid.TopRight] = base[qrgrid.TopRight] + dTop*right
			ceil[qrgrid.BottomLeft] = base[qrgrid.BottomLeft] + dBottom*left
			ceil[qrgrid.BottomRight] = base[qrgrid.BottomRight] + dBottom*right

			ly := &layered{}
			for k := 0; k < 4; k++ {
				ly.lower[k] = st.vertex(s.Point(hits[k], floor[k]))
			}
			for k := 0; k < 4; k++ {
				ly.upper[k] = st.vertex(s.Point(hits[k], ceil[k]))
			}
			st.layers[ci] = ly
			// Floor faces up, ceiling faces down.
			lo, up := ly.lower, ly.upper
			st.face(lo[qrgrid.TopLeft], lo[qrgrid.BottomLeft], lo[qrgrid.BottomRight])
			st.face(lo[qrgrid.TopLeft], lo[qrgrid.BottomRight], lo[qrgrid.TopRight])
			st.face(up[qrgrid.TopLeft], up[qrgrid.BottomRight], up[qrgrid.BottomLeft])
			st.face(up[qrgrid.TopLeft], up[qrgrid.TopRight], up[qrgrid.BottomRight])

			if u == 0 {
				st.kill(y, x, EdgeTop)
				st.kill(y-1, x, EdgeBottom)
			}
			if u == l.Scale-1 {
				st.kill(y, x, EdgeBottom)
				st.kill(y+1, x, EdgeTop)
			}
			if j == 0 {
				st.kill(y, x, EdgeLeft)
				st.kill(y, x-1, EdgeRight)
			}
			cells = append(cells, qrgrid.Cell{Y: y, X: x})
		}
	}
	for u := 0; u < l.Scale-1; u++ {
		for j := 0; j < w; j++ {
			a := st.layers[l.Cell(y0+u, xs+j)]
			b := st.layers[l.Cell(y0+u+1, xs+j)]
			st.walls(a, b)
		}
	}
	return cells
}

func (st *stitcher) vertex(v r3.Vec) int {
	st.out.Vertices = append(st.out.Vertices, v)
	return st.base + len(st.out.Vertices) - 1
}

func (st *stitcher) face(a, b, c int) {
	st.out.Faces = append(st.out.Faces, [3]int{a, b, c})
}

func (st *stitcher) kill(y, x, edge int) {
	l := st.in.State.Layout
	if y < 0 || x < 0 || y >= l.Q() || x >= l.Q() || st.in.Seams == nil {
		return
	}
	if f := st.in.Seams[l.Cell(y, x)][edge]; f >= 0 {
		st.out.Kill = append(st.out.Kill, f)
	}
}

func (st *stitcher) pos(id int) r3.Vec {
	if id < st.base {
		return st.in.Vertices[id]
	}
	return st.out.Vertices[id-st.base]
}

// seg is a cell edge given by two vertex ids.
type seg [2]int

func (st *stitcher) z(e seg) float64 {
	return (st.pos(e[0]).Z + st.pos(e[1]).Z) / 2
}

// quad emits the strip between two parallel edges. Strips whose edges
// coincide are dropped.
func (st *stitcher) quad(a, b seg) {
	pa0, pa1, pb0, pb1 := st.pos(a[0]), st.pos(a[1]), st.pos(b[0]), st.pos(b[1])
	tol := 1e-12 * (1 + r3.Norm(r3.Sub(pa1, pa0)))
	if d3.EqualWithin(pa0, pb0, tol) && d3.EqualWithin(pa1, pb1, tol) {
		return
	}
	st.face(a[0], b[0], a[1])
	st.face(a[1], b[0], b[1])
}

func topEdge(c [4]int) seg    { return seg{c[qrgrid.TopLeft], c[qrgrid.TopRight]} }
func bottomEdge(c [4]int) seg { return seg{c[qrgrid.BottomLeft], c[qrgrid.BottomRight]} }

// wallHeights are the mean z of the facing edges of two vertically adjacent
// slope cells: this row's bottom edge and the next row's top edge, per layer.
type wallHeights struct {
	upL, dwL, upH, dwH float64
}

// wallPick selects which edges a wall strip joins.
type wallPick int

const (
	nextUpperNextLower wallPick = iota // next row: ceiling top edge to floor top edge
	thisLowerNextLower                 // floor bottom edge of this row to floor top edge of the next
	thisLowerThisUpper                 // this row: floor bottom edge to ceiling bottom edge
	thisUpperNextUpper                 // ceiling bottom edge of this row to ceiling top edge of the next
)

// wallTable lists the side wall rules between vertically adjacent slope
// cells. Every rule whose condition holds emits one strip.
var wallTable = []struct {
	when func(h wallHeights) bool
	pick wallPick
}{
	{func(h wallHeights) bool { return h.upL > h.dwL && h.upL > h.dwH }, nextUpperNextLower},
	{func(h wallHeights) bool { return h.upL > h.dwL && h.upL <= h.dwH }, thisLowerNextLower},
	{func(h wallHeights) bool { return h.upL < h.dwL && h.upH < h.dwL }, thisLowerThisUpper},
	{func(h wallHeights) bool { return h.upL < h.dwL && h.upH >= h.dwL }, thisLowerNextLower},
	{func(h wallHeights) bool { return h.upH > h.dwH && h.upL > h.dwH }, thisLowerThisUpper},
	{func(h wallHeights) bool { return h.upH > h.dwH && h.upL <= h.dwH }, thisUpperNextUpper},
	{func(h wallHeights) bool { return h.upH < h.dwH && h.upH < h.dwL }, nextUpperNextLower},
	{func(h wallHeights) bool { return h.upH < h.dwH && h.upH >= h.dwL }, thisUpperNextUpper},
}

func (st *stitcher) walls(a, b *layered) {
	thisL, thisH := bottomEdge(a.lower), bottomEdge(a.upper)
	nextL, nextH := topEdge(b.lower), topEdge(b.upper)
	h := wallHeights{upL: st.z(thisL), dwL: st.z(nextL), upH: st.z(thisH), dwH: st.z(nextH)}
	for _, rule := range wallTable {
		if !rule.when(h) {
			continue
		}
		switch rule.pick {
		case nextUpperNextLower:
			st.quad(nextH, nextL)
		case thisLowerNextLower:
			st.quad(thisL, nextL)
		case thisLowerThisUpper:
			st.quad(thisL, thisH)
		case thisUpperNextUpper:
			st.quad(thisH, nextH)
		}
	}
}

// capEdges are the facing edges of a cell towards its neighbour row. Layer
// edges are only valid when layered is true.
type capEdges struct {
	top, upper, lower seg
	layered           bool
}

func (st *stitcher) edgesOf(c qrgrid.Cell, facingUp bool) capEdges {
	l := st.in.State.Layout
	i := l.Cell(c.Y, c.X)
	pick := bottomEdge
	if facingUp {
		pick = topEdge
	}
	e := capEdges{top: pick([4]int{4 * i, 4*i + 1, 4*i + 2, 4*i + 3})}
	if ly, ok := st.layers[i]; ok {
		e.upper, e.lower, e.layered = pick(ly.upper), pick(ly.lower), true
	}
	return e
}

// caps closes the side of slope cell c that faces the neighbouring row n,
// which lies above c when up is true. Three groups of candidate strips are
// considered: the top group joins the light surface, the middle group joins
// two ceilings and the lower group closes the cavity between ceiling and floor.
func (st *stitcher) caps(c, n qrgrid.Cell, up bool) {
	T := st.edgesOf(c, up)
	N := st.edgesOf(n, !up)
	tTop, tUp, tLow := st.z(T.top), st.z(T.upper), st.z(T.lower)
	nTop := st.z(N.top)

	if N.layered {
		nUp, nLow := st.z(N.upper), st.z(N.lower)
		// Top group.
		switch {
		case nLow > tUp:
			if nUp >= tTop {
				st.quad(N.lower, T.top)
			}
		case nTop > tUp && nUp < tTop:
			st.quad(N.top, T.top)
		default:
			st.quad(T.upper, T.top)
		}
		// Middle group.
		lo, hi := math.Min(tUp, nUp), math.Max(tUp, nUp)
		between := func(z float64) bool { return z > lo && z < hi }
		if !between(nTop) && !between(nLow) && !between(tTop) && !between(tLow) {
			st.quad(T.upper, N.upper)
		}
		// Lower group.
		switch {
		case tLow < nLow && nLow < tUp:
			st.quad(N.lower, T.lower)
		case nLow > tLow && nLow > tUp:
			st.quad(T.upper, T.lower)
		}
		if nUp < tLow && nTop > tUp {
			st.quad(T.upper, T.lower)
		}
		return
	}
	if nTop < tUp {
		st.quad(T.upper, T.top)
		st.quad(N.top, T.lower)
	} else {
		st.quad(N.top, T.top)
		st.quad(T.upper, T.lower)
	}
}
