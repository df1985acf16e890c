package qrgrid

import (
	"errors"
	"testing"
)

func TestLayout(t *testing.T) {
	l := Layout{P: 3, Border: 2, Scale: 4}
	if q := l.Q(); q != 28 {
		t.Fatalf("got Q=%d. want 28", q)
	}
	y, x := l.Anchor(1, 1)
	if y != 15 || x != 15 {
		t.Fatalf("got anchor (%d,%d). want (15,15)", y, x)
	}
	py, px, ok := l.Pixel(12, 15)
	if !ok || py != 1 || px != 1 {
		t.Fatalf("got pixel (%d,%d,%v). want (1,1,true)", py, px, ok)
	}
	if _, _, ok := l.Pixel(7, 12); ok {
		t.Fatal("quiet zone cell reported inside QR")
	}
	c := l.Corners(2, 3)
	for k := range c {
		if c[k] != l.Corner(2, 3, k) {
			t.Errorf("corner %d: got %d. want %d", k, c[k], l.Corner(2, 3, k))
		}
	}
	if n := len(l.ScanCells()); n != 12*12 {
		t.Fatalf("got %d scan cells. want 144", n)
	}
	if err := (Layout{P: 0, Scale: 1}).Validate(); !errors.Is(err, ErrLayout) {
		t.Fatalf("got %v. want ErrLayout", err)
	}
}

func TestExpandPixels(t *testing.T) {
	l := Layout{P: 2, Border: 1, Scale: 2}
	m, err := ExpandPixels(l, [][]int{{1, 0}, {2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		y, x int
		want Class
	}{
		{0, 0, White}, {2, 2, UpperDark}, {3, 3, UpperDark}, {2, 4, White},
		{4, 2, LowerDark}, {5, 5, BothDark}, {7, 7, White},
	} {
		if got := m.Class(test.y, test.x); got != test.want {
			t.Errorf("class(%d,%d): got %v. want %v", test.y, test.x, got, test.want)
		}
	}
	if err := m.PixelUniform(l); err != nil {
		t.Fatal(err)
	}
	m.Upper.Set(2, 3, false)
	if err := m.PixelUniform(l); err == nil {
		t.Fatal("mixed pixel not detected")
	}
	if _, err := ExpandPixels(l, [][]int{{1}}); !errors.Is(err, ErrLayout) {
		t.Fatalf("got %v. want ErrLayout", err)
	}
}

func bitmapFrom(rows ...string) Bitmap {
	b := NewBitmap(len(rows))
	for y, row := range rows {
		for x, ch := range row {
			b.Set(y, x, ch == '#')
		}
	}
	return b
}

func TestBWLabel(t *testing.T) {
	b := bitmapFrom(
		"##..",
		"#..#",
		".#.#",
		"...#",
	)
	labels, n := BWLabel(b)
	if n != 3 {
		t.Fatalf("got %d components. want 3", n)
	}
	want := []int{
		1, 1, 0, 0,
		1, 0, 0, 2,
		0, 3, 0, 2,
		0, 0, 0, 2,
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels: got %v. want %v", labels, want)
		}
	}
}

func TestBWBound(t *testing.T) {
	// A ring: one outer loop and one hole.
	b := bitmapFrom(
		"###",
		"#.#",
		"###",
	)
	labels, n := BWLabel(b)
	if n != 1 {
		t.Fatalf("got %d components. want 1", n)
	}
	bounds := BWBound(b, labels, n)
	if len(bounds[0]) != 2 {
		t.Fatalf("got %d loops. want 2", len(bounds[0]))
	}
	areas := make([]int, 2)
	for i, loop := range bounds[0] {
		if len(loop) != 4 {
			t.Fatalf("loop %d has %d corners after simplification. want 4: %v", i, len(loop), loop)
		}
		areas[i] = shoelace(loop)
	}
	// Outer loop area 9, hole 1, opposite signs.
	if areas[0]*areas[1] >= 0 || abs(areas[0])+abs(areas[1]) != 10 {
		t.Fatalf("unexpected signed areas %v", areas)
	}
}

func shoelace(l Loop) (a2 int) {
	for i := range l {
		p, q := l[i], l[(i+1)%len(l)]
		a2 += p.C*q.R - q.C*p.R
	}
	return a2 / 2
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func TestDarkRuns(t *testing.T) {
	l := Layout{P: 6, Border: 1, Scale: 2}
	m, err := ExpandPixels(l, [][]int{
		{1, 1, 1, 1, 0, 0},
		{0, 2, 0, 0, 0, 3},
		{0, 0, 0, 0, 0, 0},
		{1, 0, 1, 1, 0, 0},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := DarkRuns(l, m.Union())
	want := []Segment{{0, 0, 4}, {1, 1, 1}, {1, 5, 1}, {3, 0, 1}, {3, 2, 2}}
	if len(got) != len(want) {
		t.Fatalf("got %v. want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("run %d: got %v. want %v", i, got[i], want[i])
		}
	}
	if want[0].End() != 4 {
		t.Fatal("bad End")
	}
}
