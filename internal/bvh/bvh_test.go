package bvh

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/internal/d3"
)

type soup []d3.Triangle

func (s soup) Triangle(i int) d3.Triangle { return s[i] }
func (s soup) Alive(i int) bool           { return true }

// grid returns a flat n×n quad grid at height z made of 2n² triangles.
func grid(n int, z float64) soup {
	var s soup
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			a := r3.Vec{X: float64(x), Y: float64(y), Z: z}
			b := r3.Vec{X: float64(x + 1), Y: float64(y), Z: z}
			c := r3.Vec{X: float64(x), Y: float64(y + 1), Z: z}
			d := r3.Vec{X: float64(x + 1), Y: float64(y + 1), Z: z}
			s = append(s, d3.Triangle{a, b, d}, d3.Triangle{a, d, c})
		}
	}
	return s
}

func bruteOccluded(s soup, a, b r3.Vec) bool {
	r := d3.NewRay(a, r3.Sub(b, a))
	for _, tri := range s {
		if tri.Degenerate(degenerateRatio) {
			continue
		}
		th, ok := tri.Intersect(r, edgeSlack)
		if ok && th > segmentEps && th < 1-segmentEps {
			return true
		}
	}
	return false
}

func TestOccludedMatchesBruteForce(t *testing.T) {
	s := grid(8, 0)
	s = append(s, grid(3, 2)...)
	tree := New(s, len(s))
	if tree.Len() != len(s) {
		t.Fatalf("got %d triangles in tree. want %d", tree.Len(), len(s))
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		a := r3.Vec{X: rng.Float64()*10 - 1, Y: rng.Float64()*10 - 1, Z: rng.Float64()*6 - 3}
		b := r3.Vec{X: rng.Float64()*10 - 1, Y: rng.Float64()*10 - 1, Z: rng.Float64()*6 - 3}
		got := tree.Occluded(a, b)
		want := bruteOccluded(s, a, b)
		if got != want {
			t.Fatalf("segment %v-%v: got occluded=%v. want %v", a, b, got, want)
		}
	}
}

func TestOccludedGrazingEdge(t *testing.T) {
	s := grid(2, 0)
	tree := New(s, len(s))
	// Passes exactly through the shared vertex (1,1,0).
	if !tree.Occluded(r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 1, Y: 1, Z: -1}) {
		t.Fatal("segment through a vertex must be blocked")
	}
	// Endpoint on the surface is not a hit: the segment is open.
	if tree.Occluded(r3.Vec{X: 0.5, Y: 0.5, Z: 0}, r3.Vec{X: 0.5, Y: 0.5, Z: 5}) {
		t.Fatal("segment starting on the surface reported occluded")
	}
}

func TestDegenerateSkipped(t *testing.T) {
	s := soup{
		{{}, {X: 1}, {X: 2}},
		{{}, {X: 1}, {Y: 1}},
	}
	tree := New(s, len(s))
	if tree.Skipped != 1 || tree.Len() != 1 {
		t.Fatalf("got skipped=%d len=%d. want 1 and 1", tree.Skipped, tree.Len())
	}
}

func TestEmptyTree(t *testing.T) {
	tree := New(soup{}, 0)
	if tree.Occluded(r3.Vec{}, r3.Vec{Z: 1}) {
		t.Fatal("empty tree occluded a segment")
	}
}
