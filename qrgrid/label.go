package qrgrid

import "github.com/gammazero/deque"

// BWLabel labels the 4-connected components of set cells in b. The
// returned slice has one entry per cell: 0 for unset cells and a label in
// [1, n] otherwise. Labels are assigned in row major scan order.
func BWLabel(b Bitmap) (labels []int, n int) {
	labels = make([]int, len(b.Bits))
	var todo deque.Deque[int]
	for start, set := range b.Bits {
		if !set || labels[start] != 0 {
			continue
		}
		n++
		labels[start] = n
		todo.PushBack(start)
		for todo.Len() > 0 {
			idx := todo.PopFront()
			y, x := idx/b.N, idx%b.N
			for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				ny, nx := y+d[0], x+d[1]
				if !b.At(ny, nx) {
					continue
				}
				nidx := ny*b.N + nx
				if labels[nidx] == 0 {
					labels[nidx] = n
					todo.PushBack(nidx)
				}
			}
		}
	}
	return labels, n
}

// Corner is a point of the (N+1)×(N+1) corner lattice of a bitmap.
type Corner struct {
	R, C int
}

// Loop is a closed boundary polygon. The last corner connects back to the first.
type Loop []Corner

type edge struct {
	from, to Corner
	used     bool
}

// BWBound extracts the boundary loops of every labelled component. The
// result is indexed by label-1. Loops are directed so that the component lies
// to the right when walking in increasing row-down, column-right grid
// coordinates, hence outer boundaries and hole boundaries wind in opposite
// senses. Collinear corners are removed.
func BWBound(b Bitmap, labels []int, n int) [][]Loop {
	edges := make([][]edge, n)
	for idx, lbl := range labels {
		if lbl == 0 {
			continue
		}
		y, x := idx/b.N, idx%b.N
		e := &edges[lbl-1]
		tl, tr := Corner{y, x}, Corner{y, x + 1}
		bl, br := Corner{y + 1, x}, Corner{y + 1, x + 1}
		if !b.At(y-1, x) {
			*e = append(*e, edge{from: tl, to: tr})
		}
		if !b.At(y, x+1) {
			*e = append(*e, edge{from: tr, to: br})
		}
		if !b.At(y+1, x) {
			*e = append(*e, edge{from: br, to: bl})
		}
		if !b.At(y, x-1) {
			*e = append(*e, edge{from: bl, to: tl})
		}
	}
	bounds := make([][]Loop, n)
	for i, es := range edges {
		bounds[i] = chainLoops(es)
	}
	return bounds
}

func chainLoops(es []edge) []Loop {
	out := make(map[Corner][]int, len(es))
	for i, e := range es {
		out[e.from] = append(out[e.from], i)
	}
	var loops []Loop
	for i := range es {
		if es[i].used {
			continue
		}
		start := es[i].from
		var loop Loop
		cur := i
		for {
			es[cur].used = true
			loop = append(loop, es[cur].from)
			at := es[cur].to
			if at == start {
				break
			}
			next := -1
			for _, j := range out[at] {
				if !es[j].used {
					next = j
					break
				}
			}
			if next < 0 {
				// Boundaries of cell unions are always closed.
				panic("qrgrid: open boundary")
			}
			cur = next
		}
		loops = append(loops, simplify(loop))
	}
	return loops
}

// simplify drops corners lying on a straight line between their neighbours.
func simplify(l Loop) Loop {
	if len(l) < 4 {
		return l
	}
	out := make(Loop, 0, len(l))
	for i, c := range l {
		prev := l[(i+len(l)-1)%len(l)]
		next := l[(i+1)%len(l)]
		if (prev.R == c.R && c.R == next.R) || (prev.C == c.C && c.C == next.C) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Segment is a horizontal run of dark QR pixels in pixel coordinates.
type Segment struct {
	Row, Col, Len int
}

// End returns the first pixel column after the run.
func (s Segment) End() int { return s.Col + s.Len }

// DarkRuns scans every QR pixel row left to right and returns the maximal runs
// of pixels whose anchor cell is set in dark.
func DarkRuns(l Layout, dark Bitmap) []Segment {
	var segs []Segment
	for py := 0; py < l.P; py++ {
		run := -1
		for px := 0; px <= l.P; px++ {
			isDark := false
			if px < l.P {
				ay, ax := l.Anchor(py, px)
				isDark = dark.At(ay, ax)
			}
			switch {
			case isDark && run < 0:
				run = px
			case !isDark && run >= 0:
				segs = append(segs, Segment{Row: py, Col: run, Len: px - run})
				run = -1
			}
		}
	}
	return segs
}
