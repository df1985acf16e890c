// Package qrcarve carves a tessellated base surface so that its shaded
// photograph under two fixed spotlights reads as a QR code. The optimizer
// deepens dark QR pixels until a simulated rendering shows them dark
// enough, then closes long dark runs with slope layers and side walls.
package qrcarve

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/qrgrid"
	"github.com/swannyPeng/3DQR/surface"
)

// Input is the in-memory description of the surface to carve.
type Input struct {
	Layout  qrgrid.Layout
	Classes qrgrid.ClassMap

	// Pixel mesh: 4 vertices and 2 faces per micro-cell.
	QRVertices []r3.Vec
	QRFaces    [][3]int
	// RestFaces index RestVertices.
	RestVertices []r3.Vec
	RestFaces    [][3]int
	// Patches index the composed vertex list, QR vertices first.
	// PatchIndicator maps each cell edge to the seam triangle it owns in
	// the concatenation of Patches, or -1.
	Patches        [][][3]int
	PatchIndicator [][4]int

	// Hit and Dir are the (Q+1)² corner points and carving directions.
	Hit, Dir []r3.Vec
	// Cells lists, in scan order, the micro-cells receiving optimization.
	Cells []qrgrid.Cell
}

// NewInput combines a base surface with the module matrix of cfg.
func NewInput(cfg Config, base *surface.Base) (*Input, error) {
	l := cfg.Layout()
	if l != base.Layout {
		return nil, inputErr("config layout %+v does not match surface layout %+v", l, base.Layout)
	}
	classes, err := qrgrid.ExpandPixels(l, cfg.Pixels)
	if err != nil {
		return nil, inputErr("%v", err)
	}
	return &Input{
		Layout:         l,
		Classes:        classes,
		QRVertices:     base.QRVertices,
		QRFaces:        base.QRFaces,
		RestVertices:   base.RestVertices,
		RestFaces:      base.RestFaces,
		Patches:        base.Patches,
		PatchIndicator: base.PatchIndicator,
		Hit:            base.Hit,
		Dir:            base.Dir,
		Cells:          base.Cells(),
	}, nil
}

// Validate checks the sizes and index ranges of the input.
func (in *Input) Validate() error {
	l := in.Layout
	if err := l.Validate(); err != nil {
		return inputErr("%v", err)
	}
	n := l.Cells()
	side := l.Q() + 1
	switch {
	case len(in.QRVertices) != 4*n:
		return inputErr("got %d QR vertices, want %d", len(in.QRVertices), 4*n)
	case len(in.Hit) != side*side || len(in.Dir) != side*side:
		return inputErr("got %d hit points and %d directions, want %d", len(in.Hit), len(in.Dir), side*side)
	case in.PatchIndicator != nil && len(in.PatchIndicator) != n:
		return inputErr("got %d patch indicators, want %d", len(in.PatchIndicator), n)
	case len(in.Cells) == 0:
		return inputErr("no cells to optimize")
	}
	if err := in.Classes.PixelUniform(l); err != nil {
		return inputErr("%v", err)
	}
	for i, f := range in.QRFaces {
		for _, v := range f {
			if v < 0 || v >= 4*n {
				return inputErr("QR face %d %v out of range", i, f)
			}
		}
		if cell := f[0] / 4; f[1]/4 != cell || f[2]/4 != cell {
			return inputErr("QR face %d %v does not stay within one cell", i, f)
		}
	}
	for i, f := range in.RestFaces {
		for _, v := range f {
			if v < 0 || v >= len(in.RestVertices) {
				return inputErr("rest face %d %v out of range", i, f)
			}
		}
	}
	nv := len(in.QRVertices) + len(in.RestVertices)
	npatch := 0
	for _, p := range in.Patches {
		for i, f := range p {
			for _, v := range f {
				if v < 0 || v >= nv {
					return inputErr("patch face %d %v out of range", i, f)
				}
			}
		}
		npatch += len(p)
	}
	for i, ind := range in.PatchIndicator {
		for _, f := range ind {
			if f >= npatch {
				return inputErr("cell %d seam %d beyond %d patch faces", i, f, npatch)
			}
		}
	}
	for _, c := range in.Cells {
		if c.Y < 0 || c.X < 0 || c.Y >= l.Q() || c.X >= l.Q() {
			return inputErr("cell %v outside the grid", c)
		}
	}
	return nil
}
