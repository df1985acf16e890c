package render

import (
	"fmt"
	"os"
	"path/filepath"

	qrcarve "github.com/swannyPeng/3DQR"
)

// DirObserver dumps the mesh and gray map of every optimizer sweep into Dir
// as iter_K.obj and iter_K.png.
type DirObserver struct {
	Dir string
	// Compress writes iter_K.obj.gz instead.
	Compress bool
	// Upscale enlarges each gray map cell. Zero keeps one pixel per cell.
	Upscale int
}

var _ qrcarve.Observer = DirObserver{}

func (d DirObserver) OnIteration(it *qrcarve.Iteration) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}
	name := filepath.Join(d.Dir, fmt.Sprintf("iter_%d.obj", it.K))
	if d.Compress {
		name += ".gz"
	}
	if err := CreateOBJ(name, it.Vertices, it.Faces); err != nil {
		return err
	}
	fp, err := os.Create(filepath.Join(d.Dir, fmt.Sprintf("iter_%d.png", it.K)))
	if err != nil {
		return err
	}
	defer fp.Close()
	if err := WriteGrayPNG(fp, it.Gray, it.Layout.Q(), d.Upscale); err != nil {
		return err
	}
	return fp.Close()
}
