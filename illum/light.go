// Package illum simulates how the carved surface looks under the two
// spotlights: light placement, the shadow oracle, ambient occlusion
// estimators and the empirical gray response curve.
package illum

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/internal/d3"
)

// DefaultHalfAngle is the half angle of the physical spotlight cone in radians.
const DefaultHalfAngle = 5 * math.Pi / 180

// Source is a spotlight at Pos pointing along the unit vector Aim.
// Only points inside the cone of half angle HalfAngle receive light.
type Source struct {
	Pos       r3.Vec
	Aim       r3.Vec
	HalfAngle float64
}

// DirFromAngles returns the unit vector pointing from the scene towards a
// light at the given latitude and longitude, both in degrees. Latitude is
// measured from the XY plane towards +Z.
func DirFromAngles(latitude, longitude float64) r3.Vec {
	lat := latitude * math.Pi / 180
	lon := longitude * math.Pi / 180
	return r3.Vec{
		X: math.Cos(lat) * math.Cos(lon),
		Y: math.Cos(lat) * math.Sin(lon),
		Z: math.Sin(lat),
	}
}

// Place materializes a light along dir at distance from target. The
// returned source aims back at target with the default half angle.
func Place(target, dir r3.Vec, distance float64) Source {
	pos := r3.Add(target, r3.Scale(distance, dir))
	return Source{
		Pos:       pos,
		Aim:       d3.Normalize(r3.Sub(target, pos)),
		HalfAngle: DefaultHalfAngle,
	}
}

// Covers reports whether p lies inside the source's cone.
func (s Source) Covers(p r3.Vec) bool {
	return d3.InsideFieldOfView(s.Pos, s.Aim, p, s.HalfAngle)
}

// Directional returns the direct light term received by point p with unit
// normal n: the cosine between n and the direction to the source, zero for
// points facing away. Unlit points receive nothing.
func (s Source) Directional(lit bool, p, n r3.Vec) float64 {
	if !lit {
		return 0
	}
	l := d3.Normalize(r3.Sub(s.Pos, p))
	return math.Max(0, r3.Dot(l, n))
}
