package illum

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/internal/d3"
	"github.com/swannyPeng/3DQR/qrgrid"
)

// DefaultSamples is the number of hemisphere directions cast per point.
const DefaultSamples = 500

// AOOptions configures the hemispheric estimator.
type AOOptions struct {
	// Samples per point. Zero means DefaultSamples.
	Samples int
	// Seed of the per point random streams. Point i draws from a
	// stream seeded with Seed+i so results do not depend on scheduling.
	Seed int64
	// Reach is the length of every sample ray. It should exceed the scene diagonal.
	Reach float64
}

// HemisphereAO returns for every point the fraction of stratified directions
// on the hemisphere around its normal that escape the scene. Points with a
// NaN normal get NaN.
func (o *Oracle) HemisphereAO(points, normals []r3.Vec, opts AOOptions) []float64 {
	n := opts.Samples
	if n <= 0 {
		n = DefaultSamples
	}
	rows := int(math.Sqrt(float64(n)))
	cols := (n + rows - 1) / rows
	ao := make([]float64, len(points))
	parallelFor(len(points), o.Workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			nrm := normals[i]
			if d3.IsNaN(nrm) || d3.IsNaN(points[i]) {
				ao[i] = math.NaN()
				continue
			}
			rng := rand.New(rand.NewSource(opts.Seed + int64(i)))
			t, b := d3.Basis(nrm)
			origin := r3.Add(points[i], r3.Scale(o.Bias, nrm))
			free := 0
			for s := 0; s < n; s++ {
				u1 := (float64(s/cols) + rng.Float64()) / float64(rows)
				u2 := (float64(s%cols) + rng.Float64()) / float64(cols)
				dir := hemisphere(t, b, nrm, u1, u2)
				if !o.Tree.OccludedRay(origin, dir, opts.Reach) {
					free++
				}
			}
			ao[i] = float64(free) / float64(n)
		}
	})
	return ao
}

// hemisphere maps (u1, u2) in the unit square to a direction uniformly
// distributed over the hemisphere around n. u1 is the cosine to n.
func hemisphere(t, b, n r3.Vec, u1, u2 float64) r3.Vec {
	cos := u1
	sin := math.Sqrt(math.Max(0, 1-cos*cos))
	phi := 2 * math.Pi * u2
	return r3.Add(r3.Scale(cos, n),
		r3.Add(r3.Scale(sin*math.Cos(phi), t), r3.Scale(sin*math.Sin(phi), b)))
}

// SphereMesh is the sky opening of one connected dark region: the region's
// boundary loops placed on the uncarved surface. Projected onto the unit
// sphere around a point inside the region it bounds the directions through
// which that point sees the sky.
type SphereMesh struct {
	Label int
	Loops [][]r3.Vec
}

// VisibleMeshOnSphere builds one SphereMesh per 4-connected component of the
// dark bitmap. Boundary corners are taken from the hit grid, which has side
// dark.N+1.
func VisibleMeshOnSphere(dark qrgrid.Bitmap, hit []r3.Vec) (labels []int, meshes []SphereMesh) {
	labels, n := qrgrid.BWLabel(dark)
	bounds := qrgrid.BWBound(dark, labels, n)
	side := dark.N + 1
	meshes = make([]SphereMesh, n)
	for i, loops := range bounds {
		meshes[i].Label = i + 1
		for _, loop := range loops {
			pts := make([]r3.Vec, len(loop))
			for k, c := range loop {
				pts[k] = hit[c.R*side+c.C]
			}
			meshes[i].Loops = append(meshes[i].Loops, pts)
		}
	}
	return labels, meshes
}

// SphereAO integrates n·ω over the spherical polygon obtained by projecting
// the mesh loops onto the unit sphere around p and divides by π. The
// integral is evaluated in closed form edge by edge, so hole loops winding
// the other way subtract. The result may exceed 1 by rounding error and is
// NaN for degenerate input.
func (m SphereMesh) SphereAO(p, n r3.Vec) float64 {
	var sum float64
	for _, loop := range m.Loops {
		for i := range loop {
			a := d3.Normalize(r3.Sub(loop[i], p))
			b := d3.Normalize(r3.Sub(loop[(i+1)%len(loop)], p))
			cr := r3.Cross(a, b)
			s := r3.Norm(cr)
			if s == 0 {
				// Collinear projection contributes nothing.
				continue
			}
			theta := math.Atan2(s, r3.Dot(a, b))
			sum += theta * r3.Dot(n, cr) / s
		}
	}
	return math.Abs(sum) / (2 * math.Pi)
}

// ClampAO limits an ambient term to [0, 1]. NaN is passed through.
func ClampAO(a float64) float64 {
	if a > 1 {
		return 1
	}
	if a < 0 {
		return 0
	}
	return a
}
