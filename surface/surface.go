// Package surface tessellates a base surface over the QR micro-cell grid and
// produces the inputs of the carving optimizer: the hit and direction grids,
// the pixel mesh, a skirt closing the solid and the seam patches bridging
// neighbouring cells once they sit at different depths.
//
// World X grows with the grid column and world Y decreases with the grid
// row so cell normals of an upward facing surface point to +Z.
package surface

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/carve"
	"github.com/swannyPeng/3DQR/internal/d3"
	"github.com/swannyPeng/3DQR/qrgrid"
)

// Base is a tessellated base surface.
type Base struct {
	Layout qrgrid.Layout
	// Hit and Dir are the (Q+1)² corner points and unit carving directions.
	Hit, Dir []r3.Vec
	// QRVertices holds 4 vertices per micro-cell, QRFaces 2 triangles per cell.
	QRVertices []r3.Vec
	QRFaces    [][3]int
	// RestFaces index RestVertices.
	RestVertices []r3.Vec
	RestFaces    [][3]int
	// Patches holds seam triangles indexing QRVertices. PatchIndicator maps
	// every cell edge (carve.EdgeLeft...carve.EdgeBottom) to the seam triangle
	// owned by that edge in the concatenation of Patches, or -1 on the grid border.
	Patches        [][][3]int
	PatchIndicator [][4]int
}

// HeightField describes a surface z = Height(x, y) sampled at micro-cell corners.
type HeightField struct {
	// Cell is the side of a micro-cell.
	Cell float64
	// Height of the surface. Nil means the plane z = 0.
	Height func(x, y float64) float64
	// Thickness of material below the lowest surface point. Zero means 40 cells.
	Thickness float64
	// AlongNormal carves along the inward surface normal instead of -Z.
	AlongNormal bool
}

// ErrSurface is returned for height fields that cannot be tessellated.
var ErrSurface = errors.New("bad base surface")

// Flat returns the plane z = 0 tessellated over layout l.
func Flat(l qrgrid.Layout, cell float64) (*Base, error) {
	return HeightField{Cell: cell}.Build(l)
}

func (h HeightField) height(x, y float64) float64 {
	if h.Height == nil {
		return 0
	}
	return h.Height(x, y)
}

// normal returns the upward unit normal at (x, y) by central differences.
func (h HeightField) normal(x, y float64) r3.Vec {
	e := h.Cell * 1e-3
	dx := (h.height(x+e, y) - h.height(x-e, y)) / (2 * e)
	dy := (h.height(x, y+e) - h.height(x, y-e)) / (2 * e)
	return d3.Normalize(r3.Vec{X: -dx, Y: -dy, Z: 1})
}

// Build tessellates the height field over layout l.
func (h HeightField) Build(l qrgrid.Layout) (*Base, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if !(h.Cell > 0) {
		return nil, fmt.Errorf("cell size %g: %w", h.Cell, ErrSurface)
	}
	q := l.Q()
	side := q + 1
	b := &Base{
		Layout: l,
		Hit:    make([]r3.Vec, side*side),
		Dir:    make([]r3.Vec, side*side),
	}
	for r := 0; r < side; r++ {
		for c := 0; c < side; c++ {
			x, y := h.Cell*float64(c), -h.Cell*float64(r)
			z := h.height(x, y)
			if math.IsNaN(z) || math.IsInf(z, 0) {
				return nil, fmt.Errorf("height at corner (%d,%d) is %g: %w", r, c, z, ErrSurface)
			}
			b.Hit[r*side+c] = r3.Vec{X: x, Y: y, Z: z}
			b.Dir[r*side+c] = r3.Vec{Z: -1}
			if h.AlongNormal {
				n := h.normal(x, y)
				if d3.IsNaN(n) || n.Z < carve.MinDirZ {
					return nil, fmt.Errorf("normal at corner (%d,%d) is %v: %w", r, c, n, ErrSurface)
				}
				b.Dir[r*side+c] = r3.Scale(-1, n)
			}
		}
	}
	b.pixelMesh()
	b.seams()
	b.skirt(h.thickness())
	return b, nil
}

func (h HeightField) thickness() float64 {
	if h.Thickness > 0 {
		return h.Thickness
	}
	return 40 * h.Cell
}

// PixelFaces returns the two triangles of every one of n cells laid out
// with 4 vertices per cell.
func PixelFaces(n int) [][3]int {
	f := make([][3]int, 0, 2*n)
	for i := 0; i < n; i++ {
		o := 4 * i
		f = append(f,
			[3]int{o + qrgrid.TopLeft, o + qrgrid.BottomLeft, o + qrgrid.BottomRight},
			[3]int{o + qrgrid.TopLeft, o + qrgrid.BottomRight, o + qrgrid.TopRight},
		)
	}
	return f
}

func (b *Base) pixelMesh() {
	l := b.Layout
	q := l.Q()
	b.QRVertices = make([]r3.Vec, 4*l.Cells())
	for y := 0; y < q; y++ {
		for x := 0; x < q; x++ {
			i := l.Cell(y, x)
			for k, h := range l.Corners(y, x) {
				b.QRVertices[4*i+k] = b.Hit[h]
			}
		}
	}
	b.QRFaces = PixelFaces(l.Cells())
}

// seams bridges every pair of edge adjacent cells with two triangles, one
// owned by each cell's facing edge. Triangles face the lower cell when the
// right or bottom cell sits deeper.
func (b *Base) seams() {
	l := b.Layout
	q := l.Q()
	ind := make([][4]int, l.Cells())
	for i := range ind {
		ind[i] = [4]int{-1, -1, -1, -1}
	}
	var faces [][3]int
	own := func(cell, edge int, f [3]int) {
		ind[cell][edge] = len(faces)
		faces = append(faces, f)
	}
	v := func(cell, k int) int { return 4*cell + k }
	for y := 0; y < q; y++ {
		for x := 0; x < q; x++ {
			a := l.Cell(y, x)
			if x+1 < q {
				r := l.Cell(y, x+1)
				own(a, carve.EdgeRight, [3]int{v(a, qrgrid.TopRight), v(a, qrgrid.BottomRight), v(r, qrgrid.TopLeft)})
				own(r, carve.EdgeLeft, [3]int{v(r, qrgrid.TopLeft), v(a, qrgrid.BottomRight), v(r, qrgrid.BottomLeft)})
			}
			if y+1 < q {
				d := l.Cell(y+1, x)
				own(a, carve.EdgeBottom, [3]int{v(a, qrgrid.BottomLeft), v(d, qrgrid.TopLeft), v(a, qrgrid.BottomRight)})
				own(d, carve.EdgeTop, [3]int{v(d, qrgrid.TopLeft), v(d, qrgrid.TopRight), v(a, qrgrid.BottomRight)})
			}
		}
	}
	b.Patches = [][][3]int{faces}
	b.PatchIndicator = ind
}

// skirt closes the solid with side walls hanging from the grid border down
// to a flat bottom thickness below the lowest hit point. The skirt's top ring
// duplicates the border corners of the hit grid.
func (b *Base) skirt(thickness float64) {
	q := b.Layout.Q()
	side := q + 1
	var ring []int
	for c := 0; c < q; c++ {
		ring = append(ring, c)
	}
	for r := 0; r < q; r++ {
		ring = append(ring, r*side+q)
	}
	for c := q; c > 0; c-- {
		ring = append(ring, q*side+c)
	}
	for r := q; r > 0; r-- {
		ring = append(ring, r*side)
	}
	zmin := d3.Set(b.Hit).Min().Z - thickness
	n := len(ring)
	b.RestVertices = make([]r3.Vec, 0, 2*n+1)
	var center r3.Vec
	for _, h := range ring {
		b.RestVertices = append(b.RestVertices, b.Hit[h])
	}
	for _, h := range ring {
		p := b.Hit[h]
		p.Z = zmin
		b.RestVertices = append(b.RestVertices, p)
		center = r3.Add(center, p)
	}
	b.RestVertices = append(b.RestVertices, r3.Scale(1/float64(n), center))
	mid := 2 * n
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		top0, top1 := i, j
		bot0, bot1 := n+i, n+j
		b.RestFaces = append(b.RestFaces,
			[3]int{top0, bot1, bot0},
			[3]int{top0, top1, bot1},
			[3]int{mid, bot0, bot1},
		)
	}
}

// Cells returns every cell outside the quiet zone in scan order.
func (b *Base) Cells() []qrgrid.Cell { return b.Layout.ScanCells() }
