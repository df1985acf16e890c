package render

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/spatial/r3"
)

// GrayImage returns the q×q row major gray map as an image, each level
// clamped to [0, 255] and every cell enlarged to upscale pixels.
func GrayImage(gray []int, q, upscale int) image.Image {
	img := image.NewGray(image.Rect(0, 0, q, q))
	for i, g := range gray {
		img.SetGray(i%q, i/q, color.Gray{Y: uint8(max(0, min(255, g)))})
	}
	if upscale <= 1 {
		return img
	}
	return resize.Resize(uint(q*upscale), uint(q*upscale), img, resize.NearestNeighbor)
}

// WriteGrayPNG encodes the gray map as PNG.
func WriteGrayPNG(w io.Writer, gray []int, q, upscale int) error {
	return png.Encode(w, GrayImage(gray, q, upscale))
}

// View describes a preview camera. Eye and Center are given in the mesh
// bi-unit cube frame.
type View struct {
	Width, Height int
	// Supersampling factor. Zero means 1.
	Scale  int
	Eye    r3.Vec
	Center r3.Vec
	Up     r3.Vec
	// Light is the direction towards the light.
	Light r3.Vec
	Fovy  float64
}

// DefaultView looks at the carved face from above and slightly in front.
var DefaultView = View{
	Width:  800,
	Height: 800,
	Scale:  2,
	Eye:    r3.Vec{Y: -1.5, Z: 3},
	Up:     r3.Vec{Y: 1},
	Light:  r3.Vec{X: -0.75, Y: 1, Z: 1},
	Fovy:   30,
}

func fv(v r3.Vec) fauxgl.Vector { return fauxgl.V(v.X, v.Y, v.Z) }

// Preview renders a Phong shaded image of an indexed mesh.
func Preview(v []r3.Vec, f [][3]int, view View) image.Image {
	tris := make([]*fauxgl.Triangle, 0, len(f))
	for _, face := range f {
		tris = append(tris, fauxgl.NewTriangleForPoints(fv(v[face[0]]), fv(v[face[1]]), fv(v[face[2]])))
	}
	mesh := fauxgl.NewTriangleMesh(tris)
	// fit mesh in a bi-unit cube centered at the origin
	mesh.BiUnitCube()

	scale := max(1, view.Scale)
	context := fauxgl.NewContext(view.Width*scale, view.Height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(view.Width) / float64(view.Height)
	eye := fv(view.Eye)
	matrix := fauxgl.LookAt(eye, fv(view.Center), fv(view.Up)).Perspective(view.Fovy, aspect, 0.1, 100)
	shader := fauxgl.NewPhongShader(matrix, fv(view.Light).Normalize(), eye)
	shader.ObjectColor = fauxgl.HexColor("#D0D0D0")
	context.Shader = shader
	context.DrawMesh(mesh)
	// downsample image for antialiasing
	return resize.Resize(uint(view.Width), uint(view.Height), context.Image(), resize.Bilinear)
}

// WritePreview encodes a preview of the mesh as PNG.
func WritePreview(w io.Writer, v []r3.Vec, f [][3]int, view View) error {
	return png.Encode(w, Preview(v, f, view))
}
