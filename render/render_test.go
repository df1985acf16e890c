package render_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/hschendel/stl"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/cmpimg"

	qrcarve "github.com/swannyPeng/3DQR"
	"github.com/swannyPeng/3DQR/qrgrid"
	"github.com/swannyPeng/3DQR/render"
)

// tetrahedron returns a closed mesh with outward winding.
func tetrahedron() ([]r3.Vec, [][3]int) {
	v := []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}}
	f := [][3]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}}
	return v, f
}

func TestSTLWriteRead(t *testing.T) {
	v, f := tetrahedron()
	model, err := render.RenderAll(render.NewMeshRenderer(v, f))
	if err != nil {
		t.Fatal(err)
	}
	if len(model) != len(f) {
		t.Fatalf("got %d triangles. want %d", len(model), len(f))
	}
	var b bytes.Buffer
	if err := render.WriteSTL(&b, model); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 84+50*len(f) {
		t.Fatalf("got %d bytes. want %d", b.Len(), 84+50*len(f))
	}
	got, err := render.ReadSTL(bytes.NewReader(b.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	for i := range got {
		if got[i] != model[i] {
			t.Errorf("triangle %d: got %v. want %v", i, got[i], model[i])
		}
	}

	solid, err := stl.ReadAll(bytes.NewReader(b.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(solid.Triangles) != len(f) {
		t.Fatalf("stl package read %d triangles. want %d", len(solid.Triangles), len(f))
	}
	for i, tri := range solid.Triangles {
		for k := 0; k < 3; k++ {
			want := v[f[i][k]]
			p := tri.Vertices[k]
			if float64(p[0]) != want.X || float64(p[1]) != want.Y || float64(p[2]) != want.Z {
				t.Errorf("triangle %d vertex %d: got %v. want %v", i, k, p, want)
			}
		}
	}
}

func TestCreateSTLMatchesWriteSTL(t *testing.T) {
	v, f := tetrahedron()
	path := filepath.Join(t.TempDir(), "tet.stl")
	if err := render.CreateSTL(path, render.NewMeshRenderer(v, f)); err != nil {
		t.Fatal(err)
	}
	bfile, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	model, _ := render.RenderAll(render.NewMeshRenderer(v, f))
	var b bytes.Buffer
	if err := render.WriteSTL(&b, model); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.Bytes(), bfile) {
		t.Fatal("WriteSTL and CreateSTL output mismatch")
	}
}

func TestReadSTLNormalMismatch(t *testing.T) {
	v, f := tetrahedron()
	model, _ := render.RenderAll(render.NewMeshRenderer(v, f))
	var b bytes.Buffer
	if err := render.WriteSTL(&b, model); err != nil {
		t.Fatal(err)
	}
	raw := b.Bytes()
	// Flip the stored normal of the first triangle.
	raw[84+3] ^= 0x80
	raw[84+7] ^= 0x80
	raw[84+11] ^= 0x80
	got, err := render.ReadSTL(bytes.NewReader(raw))
	if err == nil || len(got) != len(f) {
		t.Fatalf("got %d triangles and error %v. want %d and a mismatch", len(got), err, len(f))
	}
}

func TestOBJRoundTrip(t *testing.T) {
	v, f := tetrahedron()
	dir := t.TempDir()
	for _, name := range []string{"tet.obj", "tet.obj.gz"} {
		path := filepath.Join(dir, name)
		if err := render.CreateOBJ(path, v, f); err != nil {
			t.Fatal(err)
		}
		fp, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		gotV, gotF, err := render.ReadOBJ(fp)
		fp.Close()
		if err != nil {
			t.Fatal(name, err)
		}
		if len(gotV) != len(v) || len(gotF) != len(f) {
			t.Fatalf("%s: got %d vertices %d faces. want %d %d", name, len(gotV), len(gotF), len(v), len(f))
		}
		for i := range f {
			if gotF[i] != f[i] {
				t.Errorf("%s face %d: got %v. want %v", name, i, gotF[i], f[i])
			}
		}
		for i := range v {
			if gotV[i] != v[i] {
				t.Errorf("%s vertex %d: got %v. want %v", name, i, gotV[i], v[i])
			}
		}
	}
}

func TestGrayPNG(t *testing.T) {
	const q, up = 2, 3
	gray := []int{0, 300, 128, -5}
	var got bytes.Buffer
	if err := render.WriteGrayPNG(&got, gray, q, up); err != nil {
		t.Fatal(err)
	}
	want := image.NewGray(image.Rect(0, 0, q*up, q*up))
	levels := []uint8{0, 255, 128, 0}
	for y := 0; y < q*up; y++ {
		for x := 0; x < q*up; x++ {
			want.SetGray(x, y, color.Gray{Y: levels[(y/up)*q+x/up]})
		}
	}
	var wantPNG bytes.Buffer
	if err := png.Encode(&wantPNG, want); err != nil {
		t.Fatal(err)
	}
	equal, err := cmpimg.EqualApprox("png", got.Bytes(), wantPNG.Bytes(), 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if !equal {
		t.Error("gray map image mismatch")
	}
}

func TestPreview(t *testing.T) {
	v, f := tetrahedron()
	view := render.DefaultView
	view.Width, view.Height, view.Scale = 64, 64, 1
	img := render.Preview(v, f, view)
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Fatalf("got bounds %v. want 64×64", b)
	}
	bg := img.At(0, 0)
	drawn := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if img.At(x, y) != bg {
				drawn++
			}
		}
	}
	if drawn == 0 {
		t.Error("preview is blank")
	}
}

func TestDirObserver(t *testing.T) {
	v, f := tetrahedron()
	dir := filepath.Join(t.TempDir(), "dump")
	obs := render.DirObserver{Dir: dir, Compress: true, Upscale: 2}
	it := &qrcarve.Iteration{
		K:        3,
		Layout:   qrgrid.Layout{P: 1, Border: 0, Scale: 2},
		Vertices: v,
		Faces:    f,
		Gray:     []int{10, 20, 30, 40},
	}
	if err := obs.OnIteration(it); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"iter_3.obj.gz", "iter_3.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Error(err)
		}
	}
}
