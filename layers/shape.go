package layers

import "fmt"

// PaddingScheme selects how the runtime fills the padded border of a tensor.
type PaddingScheme int

// Supported padding schemes.
const (
	PadZeros PaddingScheme = iota // fill with zero
	PadMin                        // fill with the minimum representable value
	PadNone                       // no padding
)

// String returns a human-readable scheme name.
func (s PaddingScheme) String() string {
	switch s {
	case PadZeros:
		return "zeros"
	case PadMin:
		return "min"
	case PadNone:
		return "none"
	default:
		return "unknown"
	}
}

// Padding describes the padding applied on one side of a layer boundary.
// A PadNone scheme always has Size 0.
type Padding struct {
	Scheme PaddingScheme
	Size   int
}

// ZeroPadding returns zero-fill padding of the given size.
func ZeroPadding(size int) Padding {
	return Padding{Scheme: PadZeros, Size: size}
}

// MinPadding returns min-value-fill padding of the given size.
func MinPadding(size int) Padding {
	return Padding{Scheme: PadMin, Size: size}
}

// NoPadding returns the absence of padding.
func NoPadding() Padding {
	return Padding{Scheme: PadNone, Size: 0}
}

// Shape is the extent of a rank-3 tensor in row, column, channel order.
type Shape struct {
	Rows     int
	Columns  int
	Channels int
}

// String renders the shape as "rows x columns x channels".
func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Rows, s.Columns, s.Channels)
}

// Size returns the number of elements in the shape.
func (s Shape) Size() int {
	return s.Rows * s.Columns * s.Channels
}

// Adjust returns the shape grown by the padding: 2*Size added to each
// spatial dimension, channels untouched. PadNone is a no-op.
func (s Shape) Adjust(p Padding) Shape {
	if p.Scheme == PadNone {
		return s
	}
	return Shape{
		Rows:     s.Rows + 2*p.Size,
		Columns:  s.Columns + 2*p.Size,
		Channels: s.Channels,
	}
}

// Parameters is the resolved boundary description every primitive layer
// carries: where its input comes from and what its output looks like,
// padding included.
type Parameters struct {
	InputShape    Shape
	InputPadding  Padding
	OutputShape   Shape
	OutputPadding Padding
}
