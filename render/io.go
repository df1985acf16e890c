package render

import (
	"io"

	"github.com/swannyPeng/3DQR/internal/d3"
)

// RenderAll reads the full contents of a Renderer and returns the slice read.
// It does not return error on io.EOF, like io.ReadAll.
func RenderAll(r Renderer) ([]d3.Triangle, error) {
	var err error
	var nt int
	result := make([]d3.Triangle, 0, 1<<12)
	buf := make([]d3.Triangle, 1024)
	for {
		nt, err = r.ReadTriangles(buf)
		result = append(result, buf[:nt]...)
		if err != nil {
			break
		}
	}
	if err == io.EOF {
		return result, nil
	}
	return result, err
}
