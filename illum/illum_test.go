package illum

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/internal/bvh"
	"github.com/swannyPeng/3DQR/internal/d3"
	"github.com/swannyPeng/3DQR/qrgrid"
)

type soup []d3.Triangle

func (s soup) Triangle(i int) d3.Triangle { return s[i] }
func (s soup) Alive(i int) bool           { return true }

func quad(a, b, c, d r3.Vec) soup {
	return soup{{a, b, c}, {a, c, d}}
}

func TestGrayFromLight(t *testing.T) {
	for _, test := range []struct {
		a, d float64
		want int
	}{
		{a: 0, d: 0, want: 21},
		{a: 1, d: 0, want: 77},
		{a: 1, d: 1, want: 178},
	} {
		if got := GrayFromLight(test.a, test.d); got != test.want {
			t.Errorf("GrayFromLight(%g,%g): got %d. want %d", test.a, test.d, got, test.want)
		}
	}
	if GrayFromLight(1, 0.5) <= GrayFromLight(0.5, 0.5) {
		t.Error("gray not increasing in ambient term")
	}
}

func TestTopMean(t *testing.T) {
	grays := []int{10, 200, 30, 40, 50, 60, 70, 80, 90, 100, 190}
	// ceil(11/10) = 2 largest: 200 and 190.
	if got := TopMean(grays); got != 195 {
		t.Fatalf("got %g. want 195", got)
	}
	if got := TopMean([]int{7}); got != 7 {
		t.Fatalf("got %g. want 7", got)
	}
	if !math.IsNaN(TopMean(nil)) {
		t.Fatal("empty slice should give NaN")
	}
}

func TestDirFromAngles(t *testing.T) {
	d := DirFromAngles(90, 0)
	if !d3.EqualWithin(d, r3.Vec{Z: 1}, 1e-12) {
		t.Fatalf("got %v. want +Z", d)
	}
	a := DirFromAngles(30, 45)
	b := DirFromAngles(30, 225)
	if math.Abs(a.Z-b.Z) > 1e-12 || !d3.EqualWithin(r3.Vec{X: a.X, Y: a.Y}, r3.Vec{X: -b.X, Y: -b.Y}, 1e-12) {
		t.Fatalf("longitude shift by 180 should mirror the horizontal part: %v %v", a, b)
	}
	if math.Abs(r3.Norm(a)-1) > 1e-12 {
		t.Fatal("direction not unit")
	}
}

func TestOracleLight(t *testing.T) {
	// Occluder square at z=1 over the region x,y in [0,1].
	occ := quad(r3.Vec{Z: 1}, r3.Vec{X: 1, Z: 1}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{Y: 1, Z: 1})
	o := NewOracle(bvh.New(occ, len(occ)), occ[0].Bounds(), 2)
	src := Place(r3.Vec{X: 5, Y: 0.5}, r3.Vec{Z: 1}, 1000)
	targets := []r3.Vec{{X: 0.5, Y: 0.5}, {X: 5, Y: 0.5}, {X: 500, Y: 0.5}}
	got := o.Light(src, targets, nil)
	// The first target is under the occluder, the last is outside the cone.
	want := []bool{false, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("target %d: got lit=%v. want %v", i, got[i], want[i])
		}
	}
}

func TestHemisphereAO(t *testing.T) {
	floor := quad(r3.Vec{X: -10, Y: -10}, r3.Vec{X: 10, Y: -10}, r3.Vec{X: 10, Y: 10}, r3.Vec{X: -10, Y: 10})
	o := NewOracle(bvh.New(floor, len(floor)), floor.bounds(), 4)
	opts := AOOptions{Samples: 100, Seed: 3, Reach: 100}
	pts := []r3.Vec{{}, {X: 1, Y: 1}}
	nrm := []r3.Vec{{Z: 1}, {Z: 1}}
	ao := o.HemisphereAO(pts, nrm, opts)
	for i, a := range ao {
		if a != 1 {
			t.Errorf("open plane point %d: got AO %g. want 1", i, a)
		}
	}

	// Half of the hemisphere blocked by a large wall at x = 0.5.
	wall := append(floor, quad(r3.Vec{X: 0.5, Y: -100, Z: 0}, r3.Vec{X: 0.5, Y: 100, Z: 0},
		r3.Vec{X: 0.5, Y: 100, Z: 100}, r3.Vec{X: 0.5, Y: -100, Z: 100})...)
	o = NewOracle(bvh.New(wall, len(wall)), wall.bounds(), 4)
	opts.Samples = 500
	first := o.HemisphereAO(pts[:1], nrm[:1], opts)
	second := o.HemisphereAO(pts[:1], nrm[:1], opts)
	if first[0] != second[0] {
		t.Fatalf("AO not deterministic under fixed seed: %g vs %g", first[0], second[0])
	}
	if first[0] < 0.4 || first[0] > 0.6 {
		t.Fatalf("got AO %g next to a wall. want about 0.5", first[0])
	}
	nan := o.HemisphereAO(pts[:1], []r3.Vec{{X: math.NaN()}}, opts)
	if !math.IsNaN(nan[0]) {
		t.Fatal("NaN normal should give NaN AO")
	}
}

func (s soup) bounds() d3.Box {
	b := d3.Empty()
	for _, tri := range s {
		b = b.Extend(tri.Bounds())
	}
	return b
}

func TestSphereAO(t *testing.T) {
	// A single dark cell of a 3×3 hit grid on the plane z=0.
	dark := qrgrid.NewBitmap(2)
	dark.Set(0, 0, true)
	hit := make([]r3.Vec, 9)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			hit[r*3+c] = r3.Vec{X: float64(c), Y: -float64(r)}
		}
	}
	labels, meshes := VisibleMeshOnSphere(dark, hit)
	if len(meshes) != 1 || labels[0] != 1 {
		t.Fatalf("got %d meshes labels %v. want 1 region", len(meshes), labels)
	}
	center := r3.Vec{X: 0.5, Y: -0.5}
	n := r3.Vec{Z: 1}
	// On the opening plane the whole hemisphere is visible.
	if got := meshes[0].SphereAO(center, n); math.Abs(got-1) > 1e-9 {
		t.Fatalf("got %g on the opening plane. want 1", got)
	}
	// Deep in the pit the opening is small.
	deep := meshes[0].SphereAO(r3.Vec{X: 0.5, Y: -0.5, Z: -10}, n)
	if deep <= 0 || deep > 0.01 {
		t.Fatalf("got %g deep in the pit. want a small positive value", deep)
	}
	shallow := meshes[0].SphereAO(r3.Vec{X: 0.5, Y: -0.5, Z: -0.5}, n)
	if shallow <= deep || shallow >= 1 {
		t.Fatalf("AO not decreasing with depth: shallow %g deep %g", shallow, deep)
	}
	if got := ClampAO(1.0000001); got != 1 {
		t.Fatalf("got clamp %v. want exactly 1", got)
	}
}
