// Package mesh implements the indexed triangle soup the optimizer
// carves: composition of the QR, rest and seam patch blocks, face
// removal through alive flags and canonical duplicate removal.
package mesh

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/internal/d3"
)

// Mesh is an indexed triangle soup. Faces index into Vertices.
// Faces marked dead by Kill stay in place until Compact is called so
// that face ids handed out to other components remain valid.
type Mesh struct {
	Vertices []r3.Vec
	Faces    [][3]int
	dead     []bool
	ndead    int
}

// Compose merges the QR pixel block, the rest of surface block and the seam
// patch blocks into a single mesh. QR vertices come first and rest vertices
// follow, rest faces are offset accordingly. Patch faces already index into
// the composed vertex list and are appended block by block.
func Compose(qrV []r3.Vec, qrF [][3]int, restV []r3.Vec, restF [][3]int, patches [][][3]int) *Mesh {
	nf := len(qrF) + len(restF)
	for _, p := range patches {
		nf += len(p)
	}
	m := &Mesh{
		Vertices: make([]r3.Vec, 0, len(qrV)+len(restV)),
		Faces:    make([][3]int, 0, nf),
	}
	m.Vertices = append(m.Vertices, qrV...)
	m.Vertices = append(m.Vertices, restV...)
	m.Faces = append(m.Faces, qrF...)
	off := len(qrV)
	for _, f := range restF {
		m.Faces = append(m.Faces, [3]int{f[0] + off, f[1] + off, f[2] + off})
	}
	for _, p := range patches {
		m.Faces = append(m.Faces, p...)
	}
	return m
}

// Clone returns a deep copy of m.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices: append([]r3.Vec(nil), m.Vertices...),
		Faces:    append([][3]int(nil), m.Faces...),
		ndead:    m.ndead,
	}
	if m.dead != nil {
		c.dead = append([]bool(nil), m.dead...)
	}
	return c
}

// Append adds vertices and faces to the mesh. Face indices
// are absolute and may reference the new vertices.
func (m *Mesh) Append(v []r3.Vec, f [][3]int) {
	m.Vertices = append(m.Vertices, v...)
	m.Faces = append(m.Faces, f...)
	if m.dead != nil {
		m.dead = append(m.dead, make([]bool, len(f))...)
	}
}

// Kill marks face i as removed. Killing a dead face is a no-op.
func (m *Mesh) Kill(i int) {
	if m.dead == nil {
		m.dead = make([]bool, len(m.Faces))
	}
	if !m.dead[i] {
		m.dead[i] = true
		m.ndead++
	}
}

// Alive reports whether face i has not been killed.
func (m *Mesh) Alive(i int) bool {
	return m.dead == nil || !m.dead[i]
}

// NumAlive returns the number of faces that have not been killed.
func (m *Mesh) NumAlive() int { return len(m.Faces) - m.ndead }

// Compact drops killed faces. Face ids change.
func (m *Mesh) Compact() {
	if m.ndead == 0 {
		m.dead = nil
		return
	}
	n := 0
	for i, f := range m.Faces {
		if !m.dead[i] {
			m.Faces[n] = f
			n++
		}
	}
	m.Faces = m.Faces[:n]
	m.dead = nil
	m.ndead = 0
}

// Triangle returns the geometry of face i.
func (m *Mesh) Triangle(i int) d3.Triangle {
	f := m.Faces[i]
	return d3.Triangle{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
}

// Bounds returns the bounding box of all vertices.
func (m *Mesh) Bounds() d3.Box {
	return d3.Set(m.Vertices).Bounds()
}

// FaceKey is the canonical undirected form of a face, its vertex
// indices sorted as (max, mid, min).
type FaceKey [3]int

// Key returns the canonical key of f.
func Key(f [3]int) FaceKey {
	a, b, c := f[0], f[1], f[2]
	if a < b {
		a, b = b, a
	}
	if b < c {
		b, c = c, b
	}
	if a < b {
		a, b = b, a
	}
	return FaceKey{a, b, c}
}

// Dedupe compacts the mesh and removes faces whose undirected vertex set
// repeats an earlier face. The first occurrence is kept with its winding and
// the relative order of surviving faces is preserved. Faces that reference the
// same vertex twice are dropped as well. Dedupe returns the number of faces removed.
func (m *Mesh) Dedupe() int {
	m.Compact()
	idx := make([]int, len(m.Faces))
	for i := range idx {
		idx[i] = i
	}
	keys := make([]FaceKey, len(m.Faces))
	for i, f := range m.Faces {
		keys[i] = Key(f)
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := keys[idx[i]], keys[idx[j]]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
	for i, fi := range idx {
		k := keys[fi]
		if k[0] == k[1] || k[1] == k[2] || (i > 0 && keys[idx[i-1]] == k) {
			m.Kill(fi)
		}
	}
	removed := m.ndead
	m.Compact()
	return removed
}

// ErrIndexOutOfRange is returned by Validate for faces pointing outside the vertex list.
var ErrIndexOutOfRange = errors.New("face index out of range")

// Validate checks that every alive face references existing vertices.
func (m *Mesh) Validate() error {
	nv := len(m.Vertices)
	for i, f := range m.Faces {
		if !m.Alive(i) {
			continue
		}
		for _, v := range f {
			if v < 0 || v >= nv {
				return fmt.Errorf("face %d %v with %d vertices: %w", i, f, nv, ErrIndexOutOfRange)
			}
		}
	}
	return nil
}
