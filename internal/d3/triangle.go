package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is a 3d triangle. Vertex order defines the
// facing of the triangle through the right hand rule.
type Triangle [3]r3.Vec

// Normal returns the unit normal of the triangle. Degenerate
// triangles return a NaN vector.
func (t Triangle) Normal() r3.Vec {
	e1 := r3.Sub(t[1], t[0])
	e2 := r3.Sub(t[2], t[0])
	return Normalize(r3.Cross(e1, e2))
}

// Area returns the area of the triangle.
func (t Triangle) Area() float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])))
}

// Degenerate returns true if the triangle's area is
// negligible compared to its longest squared edge.
func (t Triangle) Degenerate(tol float64) bool {
	c := r3.Norm2(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])))
	l := math.Max(r3.Norm2(r3.Sub(t[1], t[0])), math.Max(r3.Norm2(r3.Sub(t[2], t[1])), r3.Norm2(r3.Sub(t[0], t[2]))))
	return l == 0 || c <= tol*tol*l*l
}

// Bounds returns the bounding box of the triangle.
func (t Triangle) Bounds() Box {
	return Box{
		Min: MinElem(t[0], MinElem(t[1], t[2])),
		Max: MaxElem(t[0], MaxElem(t[1], t[2])),
	}
}

// Centroid returns the mean of the triangle's vertices.
func (t Triangle) Centroid() r3.Vec {
	return r3.Scale(1.0/3, r3.Add(t[0], r3.Add(t[1], t[2])))
}

// Intersect returns the ray parameter at which r crosses the triangle using
// the Moller-Trumbore test. Both faces are hit. Barycentric bounds are widened
// by eps so hits on edges and vertices are reported. ok is false
// for misses and for rays lying in the triangle's plane.
func (t Triangle) Intersect(r Ray, eps float64) (tHit float64, ok bool) {
	e1 := r3.Sub(t[1], t[0])
	e2 := r3.Sub(t[2], t[0])
	p := r3.Cross(r.Dir, e2)
	det := r3.Dot(e1, p)
	if math.Abs(det) < 1e-300 || math.IsNaN(det) {
		return 0, false
	}
	inv := 1 / det
	s := r3.Sub(r.Origin, t[0])
	u := r3.Dot(s, p) * inv
	if u < -eps || u > 1+eps {
		return 0, false
	}
	q := r3.Cross(s, e1)
	v := r3.Dot(r.Dir, q) * inv
	if v < -eps || u+v > 1+eps {
		return 0, false
	}
	return r3.Dot(e2, q) * inv, true
}

// InsideFieldOfView reports whether dest lies inside the cone with apex src,
// axis dir and the given half angle in radians. Points on the cone's
// surface are inside. The test compares sin(theta) against sin(halfAngle)
// and rejects points behind the apex.
func InsideFieldOfView(src, dir, dest r3.Vec, halfAngle float64) bool {
	d := r3.Sub(dest, src)
	nd, ndir := r3.Norm(d), r3.Norm(dir)
	if nd == 0 || ndir == 0 {
		return false
	}
	cos := r3.Dot(d, dir) / (nd * ndir)
	if cos < 0 {
		return false
	}
	sin := r3.Norm(r3.Cross(d, dir)) / (nd * ndir)
	return sin <= math.Sin(halfAngle)
}
