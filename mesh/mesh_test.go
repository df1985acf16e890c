package mesh

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestCompose(t *testing.T) {
	qrV := []r3.Vec{{}, {X: 1}, {Y: 1}}
	qrF := [][3]int{{0, 1, 2}}
	restV := []r3.Vec{{Z: 1}, {X: 1, Z: 1}, {Y: 1, Z: 1}}
	restF := [][3]int{{0, 1, 2}}
	patches := [][][3]int{{{0, 1, 3}}, {{1, 4, 3}, {2, 5, 4}}}
	m := Compose(qrV, qrF, restV, restF, patches)
	if len(m.Vertices) != 6 {
		t.Fatalf("got %d vertices. want 6", len(m.Vertices))
	}
	want := [][3]int{{0, 1, 2}, {3, 4, 5}, {0, 1, 3}, {1, 4, 3}, {2, 5, 4}}
	if len(m.Faces) != len(want) {
		t.Fatalf("got %d faces. want %d", len(m.Faces), len(want))
	}
	for i := range want {
		if m.Faces[i] != want[i] {
			t.Errorf("face %d: got %v. want %v", i, m.Faces[i], want[i])
		}
	}
	again := Compose(qrV, qrF, restV, restF, patches)
	for i := range again.Faces {
		if again.Faces[i] != m.Faces[i] {
			t.Fatal("composition is not idempotent")
		}
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestKillCompact(t *testing.T) {
	m := &Mesh{
		Vertices: make([]r3.Vec, 4),
		Faces:    [][3]int{{0, 1, 2}, {1, 2, 3}, {0, 2, 3}},
	}
	m.Kill(1)
	m.Kill(1)
	if m.NumAlive() != 2 {
		t.Fatalf("got %d alive faces. want 2", m.NumAlive())
	}
	if m.Alive(1) || !m.Alive(0) {
		t.Fatal("bad alive flags")
	}
	m.Compact()
	if len(m.Faces) != 2 || m.Faces[1] != [3]int{0, 2, 3} {
		t.Fatalf("unexpected faces after compaction: %v", m.Faces)
	}
}

func TestDedupe(t *testing.T) {
	m := &Mesh{
		Vertices: make([]r3.Vec, 5),
		Faces: [][3]int{
			{0, 1, 2},
			{2, 1, 0}, // same undirected face.
			{1, 2, 3},
			{3, 3, 4}, // repeated vertex.
			{1, 0, 2},
			{2, 3, 4},
		},
	}
	removed := m.Dedupe()
	if removed != 3 {
		t.Fatalf("got %d removed. want 3", removed)
	}
	want := [][3]int{{0, 1, 2}, {1, 2, 3}, {2, 3, 4}}
	for i := range want {
		if m.Faces[i] != want[i] {
			t.Errorf("face %d: got %v. want %v", i, m.Faces[i], want[i])
		}
	}
	seen := make(map[FaceKey]bool)
	for _, f := range m.Faces {
		k := Key(f)
		if seen[k] {
			t.Fatalf("duplicate face %v survived", f)
		}
		seen[k] = true
	}
}

func TestKey(t *testing.T) {
	for _, f := range [][3]int{{1, 2, 3}, {3, 2, 1}, {2, 3, 1}, {1, 3, 2}, {3, 1, 2}, {2, 1, 3}} {
		if got := Key(f); got != (FaceKey{3, 2, 1}) {
			t.Errorf("Key(%v) = %v. want [3 2 1]", f, got)
		}
	}
}

func TestValidate(t *testing.T) {
	m := &Mesh{Vertices: make([]r3.Vec, 3), Faces: [][3]int{{0, 1, 3}}}
	if err := m.Validate(); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("got %v. want ErrIndexOutOfRange", err)
	}
	m.Kill(0)
	if err := m.Validate(); err != nil {
		t.Fatalf("dead faces should not be validated: %v", err)
	}
}
