package graph

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DataType identifies the element type of a value buffer.
type DataType int

// Supported element types.
const (
	Float32 DataType = iota
	Float64
	Float16
)

// String returns a human-readable type name.
func (d DataType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Float16:
		return "float16"
	default:
		return "unknown"
	}
}

// elemSize returns the byte width of one element.
func (d DataType) elemSize() int {
	switch d {
	case Float64:
		return 8
	case Float16:
		return 2
	default:
		return 4
	}
}

// Shape is the extent of a value in the source framework's dimension order.
// For rank-3 spatial data that order is (channels, rows, columns).
type Shape []int

// Empty reports whether the shape has no dimensions.
func (s Shape) Empty() bool { return len(s) == 0 }

// Size returns the number of elements the shape spans.
func (s Shape) Size() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Value is an immutable numeric buffer attached to a parameter or constant.
// Data is stored raw; element access goes through the extraction helpers so
// the graph itself stays free of numeric conversion logic.
type Value struct {
	dtype DataType
	shape Shape
	raw   []byte
}

// NewValue wraps a raw little-endian buffer, validating its length against
// the shape and element type.
func NewValue(dtype DataType, shape Shape, raw []byte) (*Value, error) {
	want := shape.Size() * dtype.elemSize()
	if len(raw) != want {
		return nil, fmt.Errorf("value buffer is %d bytes, %s shape %v needs %d", len(raw), dtype, []int(shape), want)
	}
	return &Value{dtype: dtype, shape: shape, raw: raw}, nil
}

// ValueFromFloat32 builds a float32 value from a slice. The slice length
// must match the shape.
func ValueFromFloat32(shape Shape, data []float32) (*Value, error) {
	if len(data) != shape.Size() {
		return nil, fmt.Errorf("value data has %d elements, shape %v needs %d", len(data), []int(shape), shape.Size())
	}
	raw := make([]byte, 4*len(data))
	for i, f := range data {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(f))
	}
	return &Value{dtype: Float32, shape: shape, raw: raw}, nil
}

// DataType returns the element type.
func (v *Value) DataType() DataType { return v.dtype }

// Shape returns the value's shape.
func (v *Value) Shape() Shape { return v.shape }

// Size returns the number of elements.
func (v *Value) Size() int { return v.shape.Size() }

// Raw returns the underlying little-endian buffer. Callers must not
// modify it.
func (v *Value) Raw() []byte { return v.raw }
