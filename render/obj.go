package render

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gonum.org/v1/gonum/spatial/r3"
)

// WriteOBJ writes an indexed mesh in Wavefront OBJ format. Face indices
// are written 1 based as the format requires.
func WriteOBJ(w io.Writer, v []r3.Vec, f [][3]int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %d vertices %d faces\n", len(v), len(f))
	for _, p := range v {
		fmt.Fprintf(bw, "v %g %g %g\n", p.X, p.Y, p.Z)
	}
	for i, face := range f {
		for _, k := range face {
			if k < 0 || k >= len(v) {
				return fmt.Errorf("obj: face %d %v references missing vertex", i, face)
			}
		}
		fmt.Fprintf(bw, "f %d %d %d\n", face[0]+1, face[1]+1, face[2]+1)
	}
	return bw.Flush()
}

// CreateOBJ writes an indexed mesh to path. Paths ending in .gz are gzip
// compressed.
func CreateOBJ(path string, v []r3.Vec, f [][3]int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if !strings.HasSuffix(path, ".gz") {
		if err := WriteOBJ(file, v, f); err != nil {
			return err
		}
		return file.Close()
	}
	zw, err := gzip.NewWriterLevel(file, gzip.BestSpeed)
	if err != nil {
		return err
	}
	if err := WriteOBJ(zw, v, f); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return file.Close()
}

// ReadOBJ reads the vertices and triangular faces of an OBJ stream,
// transparently decompressing gzip input. Lines other than v and f are
// ignored.
func ReadOBJ(r io.Reader) (v []r3.Vec, f [][3]int, err error) {
	br := bufio.NewReader(r)
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
	}
	sc := bufio.NewScanner(br)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		switch {
		case strings.HasPrefix(text, "v "):
			var p r3.Vec
			if _, err := fmt.Sscanf(text, "v %g %g %g", &p.X, &p.Y, &p.Z); err != nil {
				return nil, nil, fmt.Errorf("obj line %d: %w", line, err)
			}
			v = append(v, p)
		case strings.HasPrefix(text, "f "):
			var a, b, c int
			if _, err := fmt.Sscanf(text, "f %d %d %d", &a, &b, &c); err != nil {
				return nil, nil, fmt.Errorf("obj line %d: %w", line, err)
			}
			f = append(f, [3]int{a - 1, b - 1, c - 1})
		}
	}
	return v, f, sc.Err()
}
