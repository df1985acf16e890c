package carve

import "github.com/swannyPeng/3DQR/qrgrid"

// RampIsolated turns the pixel following every isolated dark pixel (a run of
// length one) into a linear ramp that climbs from the dark pixel's depth at
// their shared edge to the surface at its far edge. Pixels that are dark or
// fall outside the grid are left alone. Depths never decrease. RampIsolated
// returns the number of ramped pixels.
func (s *State) RampIsolated(runs []qrgrid.Segment, dark qrgrid.Bitmap) int {
	l := s.Layout
	S := l.Scale
	q := l.Q()
	n := 0
	for _, run := range runs {
		if run.Len != 1 {
			continue
		}
		y0, x0 := l.Origin(run.Row, run.End())
		if x0+S > q || dark.At(y0, x0) {
			continue
		}
		for u := 0; u < S; u++ {
			y := y0 + u
			src := s.Depth[l.Cell(y, x0-1)]
			top, bottom := src[qrgrid.TopRight], src[qrgrid.BottomRight]
			for v := 0; v < S; v++ {
				near := float64(S-v) / float64(S)
				far := float64(S-v-1) / float64(S)
				d := &s.Depth[l.Cell(y, x0+v)]
				d[qrgrid.TopLeft] = max(d[qrgrid.TopLeft], top*near)
				d[qrgrid.TopRight] = max(d[qrgrid.TopRight], top*far)
				d[qrgrid.BottomLeft] = max(d[qrgrid.BottomLeft], bottom*near)
				d[qrgrid.BottomRight] = max(d[qrgrid.BottomRight], bottom*far)
			}
		}
		n++
	}
	return n
}
