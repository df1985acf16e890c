// Package render writes carved meshes and simulated gray maps to disk:
// binary STL, Wavefront OBJ, gray level PNG and shaded previews.
package render

import (
	"errors"
	"io"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/internal/d3"
)

// Renderer streams triangles. ReadTriangles fills t and returns io.EOF
// once every triangle has been read.
type Renderer interface {
	ReadTriangles(t []d3.Triangle) (int, error)
}

// MeshRenderer streams the faces of an indexed triangle mesh.
type MeshRenderer struct {
	Vertices []r3.Vec
	Faces    [][3]int
	next     int
}

var _ Renderer = (*MeshRenderer)(nil)

// NewMeshRenderer returns a Renderer over the faces of an indexed mesh.
func NewMeshRenderer(v []r3.Vec, f [][3]int) *MeshRenderer {
	return &MeshRenderer{Vertices: v, Faces: f}
}

func (m *MeshRenderer) ReadTriangles(t []d3.Triangle) (n int, err error) {
	if len(t) == 0 {
		return 0, errors.New("empty triangle buffer")
	}
	for n < len(t) && m.next < len(m.Faces) {
		f := m.Faces[m.next]
		for k, v := range f {
			if v < 0 || v >= len(m.Vertices) {
				return n, errors.New("face index out of range")
			}
			t[n][k] = m.Vertices[v]
		}
		n++
		m.next++
	}
	if m.next == len(m.Faces) {
		return n, io.EOF
	}
	return n, nil
}
