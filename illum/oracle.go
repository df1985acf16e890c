package illum

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/internal/bvh"
	"github.com/swannyPeng/3DQR/internal/d3"
)

// Oracle answers shadow queries against a frozen scene. A single ray is
// cast per target.
type Oracle struct {
	Tree *bvh.Tree
	// Bias lifts targets off their surface along the normal so the
	// surface they lie on does not shadow them.
	Bias float64
	// Workers bounds the number of goroutines. Zero uses all CPUs.
	Workers int
}

// NewOracle returns an oracle over tree with a bias scaled to the scene size.
func NewOracle(tree *bvh.Tree, scene d3.Box, workers int) *Oracle {
	return &Oracle{Tree: tree, Bias: 1e-6 * scene.Diagonal(), Workers: workers}
}

// Light reports for every target whether it receives light from src: the
// target lies inside the source's cone and the open segment between the
// lifted target and the source crosses no triangle. normals may be nil, in
// which case targets are not lifted. Targets or normals containing NaN are
// reported unlit.
func (o *Oracle) Light(src Source, targets, normals []r3.Vec) []bool {
	lit := make([]bool, len(targets))
	parallelFor(len(targets), o.Workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			p := targets[i]
			if normals != nil {
				if d3.IsNaN(normals[i]) {
					continue
				}
				p = r3.Add(p, r3.Scale(o.Bias, normals[i]))
			}
			if d3.IsNaN(p) || !src.Covers(p) {
				continue
			}
			lit[i] = !o.Tree.Occluded(p, src.Pos)
		}
	})
	return lit
}
