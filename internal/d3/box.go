package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is a 3d axis aligned bounding box.
type Box r3.Box

// Empty returns a box that contains nothing and absorbs
// the first point or box it is extended with.
func Empty() Box {
	inf := math.Inf(1)
	return Box{Min: Elem(inf), Max: Elem(-inf)}
}

// Extend returns a box enclosing two 3d boxes.
func (a Box) Extend(b Box) Box {
	return Box{
		Min: MinElem(a.Min, b.Min),
		Max: MaxElem(a.Max, b.Max),
	}
}

// Include enlarges a 3d box to include a point.
func (a Box) Include(v r3.Vec) Box {
	return Box{
		Min: MinElem(a.Min, v),
		Max: MaxElem(a.Max, v),
	}
}

// Size returns the size of a 3d box.
func (a Box) Size() r3.Vec {
	return r3.Sub(a.Max, a.Min)
}

// Center returns the center of a 3d box.
func (a Box) Center() r3.Vec {
	return r3.Add(a.Min, r3.Scale(0.5, a.Size()))
}

// Diagonal returns the length of the box diagonal.
func (a Box) Diagonal() float64 {
	return r3.Norm(a.Size())
}

// LongestAxis returns 0, 1 or 2 for the X, Y or Z axis.
func (a Box) LongestAxis() int {
	sz := a.Size()
	switch {
	case sz.X >= sz.Y && sz.X >= sz.Z:
		return 0
	case sz.Y >= sz.Z:
		return 1
	}
	return 2
}

// Contains checks if the 3d box contains the given vector (considering bounds as inside).
func (a Box) Contains(v r3.Vec) bool {
	return a.Min.X <= v.X && a.Min.Y <= v.Y && a.Min.Z <= v.Z &&
		v.X <= a.Max.X && v.Y <= a.Max.Y && v.Z <= a.Max.Z
}

// Ray is a parametrized line origin + t*dir. Inv caches the component
// wise reciprocal of Dir for slab tests.
type Ray struct {
	Origin, Dir, Inv r3.Vec
}

// NewRay returns a Ray with its reciprocal direction precomputed.
func NewRay(origin, dir r3.Vec) Ray {
	return Ray{Origin: origin, Dir: dir, Inv: r3.Vec{X: 1 / dir.X, Y: 1 / dir.Y, Z: 1 / dir.Z}}
}

// At returns the point of the ray at parameter t.
func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Dir))
}

// IntersectRay reports whether the ray crosses the box for some
// parameter in [tmin, tmax]. Boxes are treated as closed sets so
// rays grazing a face count as crossing.
func (a Box) IntersectRay(r Ray, tmin, tmax float64) bool {
	for axis := 0; axis < 3; axis++ {
		o := Comp(r.Origin, axis)
		lo, hi := Comp(a.Min, axis), Comp(a.Max, axis)
		if Comp(r.Dir, axis) == 0 {
			if o < lo || o > hi {
				return false
			}
			continue
		}
		inv := Comp(r.Inv, axis)
		t0 := (lo - o) * inv
		t1 := (hi - o) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tmin {
			tmin = t0
		}
		if t1 < tmax {
			tmax = t1
		}
		if tmax < tmin {
			return false
		}
	}
	return true
}
