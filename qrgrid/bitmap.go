package qrgrid

import "fmt"

// Bitmap is a square grid of booleans stored row major.
type Bitmap struct {
	N    int
	Bits []bool
}

// NewBitmap returns an all false n×n bitmap.
func NewBitmap(n int) Bitmap {
	return Bitmap{N: n, Bits: make([]bool, n*n)}
}

// At returns the bit at (y, x). Out of range coordinates read false.
func (b Bitmap) At(y, x int) bool {
	if y < 0 || x < 0 || y >= b.N || x >= b.N {
		return false
	}
	return b.Bits[y*b.N+x]
}

// Set sets the bit at (y, x).
func (b Bitmap) Set(y, x int, v bool) { b.Bits[y*b.N+x] = v }

// Count returns the number of set bits.
func (b Bitmap) Count() (n int) {
	for _, v := range b.Bits {
		if v {
			n++
		}
	}
	return n
}

// Or returns the union of a and b.
func Or(a, b Bitmap) Bitmap {
	if a.N != b.N {
		panic("qrgrid: bitmap size mismatch")
	}
	u := NewBitmap(a.N)
	for i := range u.Bits {
		u.Bits[i] = a.Bits[i] || b.Bits[i]
	}
	return u
}

// Class of a micro-cell.
type Class uint8

const (
	White     Class = 0
	UpperDark Class = 1 << 0
	LowerDark Class = 1 << 1
	BothDark        = UpperDark | LowerDark
)

// Dark reports whether the cell must be dark under at least one light.
func (c Class) Dark() bool { return c != White }

func (c Class) String() string {
	switch c {
	case White:
		return "white"
	case UpperDark:
		return "upper"
	case LowerDark:
		return "lower"
	case BothDark:
		return "both"
	}
	return fmt.Sprintf("Class(%d)", uint8(c))
}

// ClassMap holds the two Q×Q class bitmaps.
type ClassMap struct {
	Upper, Lower Bitmap
}

// Class returns the class of micro-cell (y, x).
func (m ClassMap) Class(y, x int) (c Class) {
	if m.Upper.At(y, x) {
		c |= UpperDark
	}
	if m.Lower.At(y, x) {
		c |= LowerDark
	}
	return c
}

// Union returns the bitmap of cells dark under either light.
func (m ClassMap) Union() Bitmap { return Or(m.Upper, m.Lower) }

// ExpandPixels builds the class map of layout l from a P×P module matrix.
// Bit 0 of a module marks it dark under the upper light, bit 1 under the
// lower light. Quiet zone cells are white.
func ExpandPixels(l Layout, modules [][]int) (ClassMap, error) {
	if err := l.Validate(); err != nil {
		return ClassMap{}, err
	}
	if len(modules) != l.P {
		return ClassMap{}, fmt.Errorf("module matrix has %d rows, layout wants %d: %w", len(modules), l.P, ErrLayout)
	}
	q := l.Q()
	m := ClassMap{Upper: NewBitmap(q), Lower: NewBitmap(q)}
	for py, row := range modules {
		if len(row) != l.P {
			return ClassMap{}, fmt.Errorf("module row %d has %d columns, layout wants %d: %w", py, len(row), l.P, ErrLayout)
		}
		for px, v := range row {
			if v < 0 || v > int(BothDark) {
				return ClassMap{}, fmt.Errorf("module (%d,%d) has value %d outside [0,3]", py, px, v)
			}
			y0, x0 := l.Origin(py, px)
			for y := y0; y < y0+l.Scale; y++ {
				for x := x0; x < x0+l.Scale; x++ {
					m.Upper.Set(y, x, Class(v)&UpperDark != 0)
					m.Lower.Set(y, x, Class(v)&LowerDark != 0)
				}
			}
		}
	}
	return m, nil
}

// PixelUniform checks every QR pixel has a single class across its
// micro-cells and that the quiet zone is white.
func (m ClassMap) PixelUniform(l Layout) error {
	q := l.Q()
	if m.Upper.N != q || m.Lower.N != q {
		return fmt.Errorf("class map side %d/%d, layout wants %d: %w", m.Upper.N, m.Lower.N, q, ErrLayout)
	}
	for y := 0; y < q; y++ {
		for x := 0; x < q; x++ {
			c := m.Class(y, x)
			py, px, ok := l.Pixel(y, x)
			if !ok {
				if c != White {
					return fmt.Errorf("quiet zone cell (%d,%d) is %v", y, x, c)
				}
				continue
			}
			ay, ax := l.Anchor(py, px)
			if a := m.Class(ay, ax); a != c {
				return fmt.Errorf("cell (%d,%d) is %v but its pixel (%d,%d) is %v", y, x, c, py, px, a)
			}
		}
	}
	return nil
}
