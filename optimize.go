package qrcarve

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/swannyPeng/3DQR/carve"
	"github.com/swannyPeng/3DQR/illum"
	"github.com/swannyPeng/3DQR/internal/bvh"
	"github.com/swannyPeng/3DQR/internal/d3"
	"github.com/swannyPeng/3DQR/mesh"
	"github.com/swannyPeng/3DQR/qrgrid"
)

// maxDegenerateSweeps is the number of consecutive sweeps a dark cell may
// evaluate to NaN before the run is abandoned.
const maxDegenerateSweeps = 3

// Result is a converged carving.
type Result struct {
	Vertices []r3.Vec
	Faces    [][3]int
	// Depth holds the final corner depths of every micro-cell.
	Depth [][4]float64
	// Gray is the last simulated gray map, Q×Q row major.
	Gray []int
	// Iterations is the number of deepening sweeps performed.
	Iterations   int
	Step         float64
	WhiteAverage float64
	Threshold    float64
	Upper, Lower illum.Source
	// SlopeCells and Ramped count the cells and pixels reshaped after
	// convergence. Duplicates counts faces removed by deduplication.
	SlopeCells int
	Ramped     int
	Duplicates int
}

// scene is the mesh of one sweep with its acceleration structures.
type scene struct {
	mesh     *mesh.Mesh
	oracle   *illum.Oracle
	pos, nrm []r3.Vec
	diagonal float64
}

type optimizer struct {
	cfg   Config
	in    *Input
	obs   Observer
	state *carve.State
	qrV   []r3.Vec
	step  float64

	upper, lower illum.Source
	labels       []int
	spheres      []illum.SphereMesh

	whites, darks []qrgrid.Cell
	gray          []int
	direct        [2][]float64
	threshold     float64
	whiteAvg      float64
	skips         []int
}

// Optimize carves the dark pixels of in until the simulated photograph
// under both lights shows every dark cell at least BrightnessGap gray
// levels below the brightest white cells. obs may be nil.
func Optimize(cfg Config, in *Input, obs Observer) (*Result, error) {
	o, err := newOptimizer(cfg, in, obs)
	if err != nil {
		return nil, err
	}
	return o.run()
}

func newOptimizer(cfg Config, in *Input, obs Observer) (*optimizer, error) {
	cfg.Resolve(Flags{})
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if cfg.LatitudeUpper <= 0 || cfg.LatitudeUpper > 90 || cfg.LatitudeLower <= 0 || cfg.LatitudeLower > 90 {
		return nil, inputErr("latitudes must lie in (0, 90], got upper %g lower %g", cfg.LatitudeUpper, cfg.LatitudeLower)
	}
	if cfg.Distance < 0 {
		return nil, inputErr("negative light distance %g", cfg.Distance)
	}
	state, err := carve.NewState(in.Layout, in.Hit, in.Dir)
	if err != nil {
		return nil, inputErr("%v", err)
	}
	step, err := carve.Step(in.Layout, in.Hit, in.Dir)
	if err != nil {
		return nil, &PreconditionError{Reason: err.Error()}
	}
	return &optimizer{
		cfg:   cfg,
		in:    in,
		obs:   obs,
		state: state,
		qrV:   make([]r3.Vec, len(in.QRVertices)),
		step:  step,
		skips: make([]int, in.Layout.Cells()),
	}, nil
}

// prepare places the lights, carves every dark pixel one step and measures
// the white reference. It returns the scene of the first sweep.
func (o *optimizer) prepare() (*scene, error) {
	l := o.in.Layout
	o.split()
	if len(o.whites) == 0 {
		return nil, &PreconditionError{Reason: "no white cells to measure the reference brightness"}
	}
	o.placeLights()
	o.labels, o.spheres = illum.VisibleMeshOnSphere(o.in.Classes.Union(), o.in.Hit)
	o.cfg.Logger.Info("start", "cells", len(o.in.Cells), "white", len(o.whites), "dark", len(o.darks),
		"step", o.step, "regions", len(o.spheres))

	for py := 0; py < l.P; py++ {
		for px := 0; px < l.P; px++ {
			if o.pixelClass(py, px).Dark() {
				o.state.Deepen(py, px, o.step)
				o.state.Patch(py, px)
			}
		}
	}
	o.state.CarveDown(o.qrV)

	sc := o.scene()
	if err := o.measureWhites(sc); err != nil {
		return nil, err
	}
	o.cfg.Logger.Info("reference", "white_average", o.whiteAvg, "threshold", o.threshold)
	return sc, nil
}

func (o *optimizer) run() (*Result, error) {
	l := o.in.Layout
	log := o.cfg.Logger
	sc, err := o.prepare()
	if err != nil {
		return nil, err
	}

	k := 0
	for ; ; k++ {
		if k > 0 {
			sc = o.scene()
		}
		bright, pending, err := o.sweep(sc)
		if err != nil {
			return nil, &DivergenceError{Iterations: k, Gray: o.gray, Cause: err}
		}
		log.Info("iteration", "k", k, "bright", len(bright), "pending", pending)
		if o.obs != nil {
			it := &Iteration{
				K:           k,
				Layout:      l,
				Vertices:    sc.mesh.Vertices,
				Faces:       aliveFaces(sc.mesh),
				Gray:        o.gray,
				Bright:      len(bright),
				Threshold:   o.threshold,
				DirectUpper: o.direct[0],
				DirectLower: o.direct[1],
			}
			if err := o.obs.OnIteration(it); err != nil {
				return nil, fmt.Errorf("observer at iteration %d: %w", k, err)
			}
		}
		if len(bright) == 0 && pending == 0 {
			break
		}
		if k+1 >= o.cfg.MaxIterations {
			return nil, &DivergenceError{Iterations: k + 1, Gray: o.gray, Bright: bright}
		}
		deep := make(map[[2]int]bool)
		for _, c := range bright {
			py, px, _ := l.Pixel(c.Y, c.X)
			deep[[2]int{py, px}] = true
		}
		for p := range deep {
			o.state.Deepen(p[0], p[1], o.step)
			o.state.Patch(p[0], p[1])
		}
		o.state.CarveDown(o.qrV)
	}
	return o.finish(k)
}

// split partitions the optimized cells by class.
func (o *optimizer) split() {
	for _, c := range o.in.Cells {
		if o.in.Classes.Class(c.Y, c.X).Dark() {
			o.darks = append(o.darks, c)
		} else {
			o.whites = append(o.whites, c)
		}
	}
	q := o.in.Layout.Q()
	o.gray = make([]int, q*q)
	for i := range o.gray {
		o.gray[i] = 255
	}
	o.direct = [2][]float64{make([]float64, q*q), make([]float64, q*q)}
}

func (o *optimizer) pixelClass(py, px int) qrgrid.Class {
	y, x := o.in.Layout.Anchor(py, px)
	return o.in.Classes.Class(y, x)
}

// placeLights aims both sources at the centroid of the optimized cells.
func (o *optimizer) placeLights() {
	l := o.in.Layout
	var centers d3.Set
	for _, c := range o.in.Cells {
		var sum r3.Vec
		for _, h := range l.Corners(c.Y, c.X) {
			sum = r3.Add(sum, o.in.Hit[h])
		}
		centers = append(centers, r3.Scale(0.25, sum))
	}
	target := centers.Mean()
	dist := o.cfg.Distance
	if dist == 0 {
		b := d3.Set(o.in.Hit).Bounds()
		dist = 20 * b.Diagonal()
	}
	dist *= o.cfg.Zoom
	half := o.cfg.HalfAngle * math.Pi / 180
	o.upper = illum.Place(target, illum.DirFromAngles(o.cfg.LatitudeUpper, o.cfg.Longitude), dist)
	o.upper.HalfAngle = half
	o.lower = illum.Place(target, illum.DirFromAngles(o.cfg.LatitudeLower, o.cfg.Longitude), dist)
	o.lower.HalfAngle = half
}

// scene composes the current mesh and builds the shadow oracle over it.
func (o *optimizer) scene() *scene {
	in := o.in
	m := mesh.Compose(o.qrV, in.QRFaces, in.RestVertices, in.RestFaces, in.Patches)
	tree := bvh.New(m, len(m.Faces))
	box := m.Bounds()
	if tree.Skipped > 0 {
		o.cfg.Logger.Debug("skipped degenerate triangles", "count", tree.Skipped)
	}
	pos, nrm := carve.PrePixelNormal(o.qrV, in.Layout.Cells())
	return &scene{
		mesh:     m,
		oracle:   illum.NewOracle(tree, box, o.cfg.Workers),
		pos:      pos,
		nrm:      nrm,
		diagonal: box.Diagonal(),
	}
}

func (o *optimizer) gather(sc *scene, cells []qrgrid.Cell) (pos, nrm []r3.Vec) {
	pos = make([]r3.Vec, len(cells))
	nrm = make([]r3.Vec, len(cells))
	for j, c := range cells {
		i := o.in.Layout.Cell(c.Y, c.X)
		pos[j], nrm[j] = sc.pos[i], sc.nrm[i]
	}
	return pos, nrm
}

// measureWhites sets the reference brightness from the white cells lit by
// the upper light.
func (o *optimizer) measureWhites(sc *scene) error {
	l := o.in.Layout
	pos, nrm := o.gather(sc, o.whites)
	lit := sc.oracle.Light(o.upper, pos, nrm)
	var unlit []qrgrid.Cell
	for j, ok := range lit {
		if !ok {
			unlit = append(unlit, o.whites[j])
		}
	}
	if len(unlit) > 0 {
		return &PreconditionError{Reason: "upper light does not reach every white cell", Unlit: unlit}
	}
	ao := sc.oracle.HemisphereAO(pos, nrm, illum.AOOptions{
		Samples: o.cfg.AOSamples,
		Seed:    o.cfg.Seed,
		Reach:   2 * sc.diagonal,
	})
	grays := make([]int, 0, len(o.whites))
	for j, c := range o.whites {
		if math.IsNaN(ao[j]) {
			o.cfg.Logger.Warn("white cell skipped", "cell", c, "err", ErrGeometryDegenerate)
			continue
		}
		g := illum.GrayFromLight(ao[j], o.upper.Directional(lit[j], pos[j], nrm[j]))
		o.gray[l.Cell(c.Y, c.X)] = g
		grays = append(grays, g)
	}
	if len(grays) == 0 {
		return &PreconditionError{Reason: "every white cell is degenerate"}
	}
	o.whiteAvg = illum.TopMean(grays)
	o.threshold = o.whiteAvg - o.cfg.BrightnessGap
	return nil
}

// sweep evaluates every dark cell and returns those still too bright and
// the number of cells skipped as degenerate.
func (o *optimizer) sweep(sc *scene) (bright []qrgrid.Cell, pending int, err error) {
	l := o.in.Layout
	pos, nrm := o.gather(sc, o.darks)
	litU := sc.oracle.Light(o.upper, pos, nrm)
	litL := sc.oracle.Light(o.lower, pos, nrm)
	for j, c := range o.darks {
		i := l.Cell(c.Y, c.X)
		class := o.in.Classes.Class(c.Y, c.X)
		p, n := pos[j], nrm[j]
		ao := math.NaN()
		if lab := o.labels[i]; lab > 0 && !d3.IsNaN(n) {
			ao = illum.ClampAO(o.spheres[lab-1].SphereAO(p, n))
		}
		if math.IsNaN(ao) {
			o.skips[i]++
			pending++
			if o.skips[i] >= maxDegenerateSweeps {
				return nil, 0, fmt.Errorf("cell %v evaluated to NaN %d sweeps in a row: %w", c, o.skips[i], ErrGeometryDegenerate)
			}
			continue
		}
		o.skips[i] = 0
		du := o.upper.Directional(litU[j], p, n)
		dl := o.lower.Directional(litL[j], p, n)
		o.direct[0][i], o.direct[1][i] = du, dl
		g := math.MinInt
		if class == qrgrid.UpperDark || class == qrgrid.BothDark {
			g = max(g, illum.GrayFromLight(ao, du))
		}
		if class == qrgrid.LowerDark || class == qrgrid.BothDark {
			g = max(g, illum.GrayFromLight(ao, dl))
		}
		o.gray[i] = g
		if float64(g) > o.threshold {
			bright = append(bright, c)
		}
	}
	return bright, pending, nil
}

// finish reshapes isolated pixels and long runs and assembles the final mesh.
func (o *optimizer) finish(k int) (*Result, error) {
	in := o.in
	l := in.Layout
	dark := in.Classes.Union()
	runs := qrgrid.DarkRuns(l, dark)
	res := &Result{
		Iterations:   k,
		Step:         o.step,
		WhiteAverage: o.whiteAvg,
		Threshold:    o.threshold,
		Upper:        o.upper,
		Lower:        o.lower,
		Gray:         o.gray,
	}
	if *o.cfg.RampIsolated {
		res.Ramped = o.state.RampIsolated(runs, dark)
		if res.Ramped > 0 {
			o.state.CarveDown(o.qrV)
		}
	}

	m := mesh.Compose(o.qrV, in.QRFaces, in.RestVertices, in.RestFaces, in.Patches)
	offset := len(in.QRFaces) + len(in.RestFaces)
	seams := make([][4]int, len(in.PatchIndicator))
	for i, ind := range in.PatchIndicator {
		for e, f := range ind {
			seams[i][e] = -1
			if f >= 0 {
				seams[i][e] = f + offset
			}
		}
	}
	out := carve.Stitch(carve.StitchInput{
		State:    o.state,
		Dark:     dark,
		Runs:     runs,
		Vertices: m.Vertices,
		Seams:    seams,
	})
	m.Append(out.Vertices, out.Faces)
	for _, f := range out.Kill {
		m.Kill(f)
	}
	res.SlopeCells = out.Cells
	res.Duplicates = m.Dedupe()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("final mesh: %w", err)
	}
	res.Vertices = m.Vertices
	res.Faces = m.Faces
	res.Depth = o.state.Depth
	o.cfg.Logger.Info("done", "iterations", k, "vertices", len(res.Vertices), "faces", len(res.Faces),
		"slope_cells", res.SlopeCells, "ramped", res.Ramped)
	return res, nil
}

func aliveFaces(m *mesh.Mesh) [][3]int {
	f := make([][3]int, 0, m.NumAlive())
	for i, face := range m.Faces {
		if m.Alive(i) {
			f = append(f, face)
		}
	}
	return f
}
