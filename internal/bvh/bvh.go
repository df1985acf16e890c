// Package bvh implements a bounding volume hierarchy over the triangles
// of an indexed mesh. It answers any-hit queries for open segments,
// which is all the visibility oracle and the ambient occlusion
// estimator need.
package bvh

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/internal/d3"
)

// MaxLeafSize is the largest number of triangles stored in a leaf.
const MaxLeafSize = 4

// Tolerances used by the traversal. Barycentric slack makes rays
// grazing an edge or vertex count as blocked.
const (
	edgeSlack = 1e-9
	// segment parameter is clipped to (segmentEps, 1-segmentEps) so
	// the endpoints themselves are never reported as hits.
	segmentEps      = 1e-9
	degenerateRatio = 1e-12
)

type node struct {
	box d3.Box
	// count > 0 marks a leaf holding tris[start:start+count],
	// otherwise left and right index the children.
	left, right  int
	start, count int
}

// Tree is an immutable BVH. It is safe for concurrent queries.
type Tree struct {
	nodes []node
	tris  []d3.Triangle
	// Skipped counts faces left out because they were degenerate.
	Skipped int
}

// Mesh is the geometry the tree is built from.
type Mesh interface {
	Triangle(i int) d3.Triangle
	Alive(i int) bool
}

// New builds a tree over nfaces faces of m. Dead and degenerate
// faces are skipped.
func New(m Mesh, nfaces int) *Tree {
	t := &Tree{tris: make([]d3.Triangle, 0, nfaces)}
	for i := 0; i < nfaces; i++ {
		if !m.Alive(i) {
			continue
		}
		tri := m.Triangle(i)
		if tri.Degenerate(degenerateRatio) || d3.IsNaN(tri[0]) || d3.IsNaN(tri[1]) || d3.IsNaN(tri[2]) {
			t.Skipped++
			continue
		}
		t.tris = append(t.tris, tri)
	}
	if len(t.tris) == 0 {
		return t
	}
	cents := make([]r3.Vec, len(t.tris))
	for i := range t.tris {
		cents[i] = t.tris[i].Centroid()
	}
	t.nodes = make([]node, 0, 2*len(t.tris)/MaxLeafSize+1)
	t.subdivide(cents, 0, len(t.tris))
	return t
}

// Len returns the number of triangles indexed by the tree.
func (t *Tree) Len() int { return len(t.tris) }

// subdivide builds the subtree over tris[start:end] and returns its node index.
// The split is a median split along the longest axis of the centroid bounds.
func (t *Tree) subdivide(cents []r3.Vec, start, end int) int {
	box := d3.Empty()
	cbox := d3.Empty()
	for i := start; i < end; i++ {
		box = box.Extend(t.tris[i].Bounds())
		cbox = cbox.Include(cents[i])
	}
	idx := len(t.nodes)
	t.nodes = append(t.nodes, node{box: box, left: -1, right: -1})
	if end-start <= MaxLeafSize {
		t.nodes[idx].start = start
		t.nodes[idx].count = end - start
		return idx
	}
	axis := cbox.LongestAxis()
	if d3.Comp(cbox.Size(), axis) <= 0 {
		axis = box.LongestAxis()
	}
	sort.Sort(byAxis{tris: t.tris[start:end], cents: cents[start:end], axis: axis})
	mid := start + (end-start)/2
	l := t.subdivide(cents, start, mid)
	r := t.subdivide(cents, mid, end)
	t.nodes[idx].left = l
	t.nodes[idx].right = r
	return idx
}

type byAxis struct {
	tris  []d3.Triangle
	cents []r3.Vec
	axis  int
}

func (b byAxis) Len() int { return len(b.tris) }
func (b byAxis) Less(i, j int) bool {
	return d3.Comp(b.cents[i], b.axis) < d3.Comp(b.cents[j], b.axis)
}
func (b byAxis) Swap(i, j int) {
	b.tris[i], b.tris[j] = b.tris[j], b.tris[i]
	b.cents[i], b.cents[j] = b.cents[j], b.cents[i]
}

// Occluded reports whether the open segment (a, b) crosses any triangle.
// Hits on triangle edges and vertices count. A segment of zero length
// is never occluded.
func (t *Tree) Occluded(a, b r3.Vec) bool {
	if len(t.nodes) == 0 {
		return false
	}
	d := r3.Sub(b, a)
	if r3.Norm2(d) == 0 {
		return false
	}
	return t.anyHit(d3.NewRay(a, d), segmentEps, 1-segmentEps)
}

// OccludedRay reports whether the ray from origin along dir
// crosses a triangle for a parameter in (0, tmax).
func (t *Tree) OccludedRay(origin, dir r3.Vec, tmax float64) bool {
	if len(t.nodes) == 0 {
		return false
	}
	return t.anyHit(d3.NewRay(origin, dir), segmentEps*tmax, tmax)
}

func (t *Tree) anyHit(r d3.Ray, tmin, tmax float64) bool {
	var stackBuf [64]int
	stack := append(stackBuf[:0], 0)
	for len(stack) > 0 {
		n := &t.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if !n.box.IntersectRay(r, tmin, tmax) {
			continue
		}
		if n.count > 0 {
			for _, tri := range t.tris[n.start : n.start+n.count] {
				th, ok := tri.Intersect(r, edgeSlack)
				if ok && th > tmin && th < tmax && !math.IsNaN(th) {
					return true
				}
			}
			continue
		}
		stack = append(stack, n.left, n.right)
	}
	return false
}
