// Package convert extracts flat numeric buffers out of source-graph
// parameter values and reorders them into the tensor and vector forms the
// target runtime expects. It is pure data marshalling; all shape and
// padding decisions stay with the importer.
package convert

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"

	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/layers"
)

// FloatVector widens a value buffer of any supported element type into a
// flat []float32 in storage order.
func FloatVector(v *graph.Value) ([]float32, error) {
	raw := v.Raw()
	out := make([]float32, v.Size())
	switch v.DataType() {
	case graph.Float32:
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
	case graph.Float64:
		for i := range out {
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:])))
		}
	case graph.Float16:
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[2*i:])).Float32()
		}
	default:
		return nil, fmt.Errorf("unsupported value data type: %s", v.DataType())
	}
	return out, nil
}

// VectorFromParameter extracts a trainable parameter as a flat vector.
func VectorFromParameter(p *graph.Parameter) ([]float32, error) {
	vec, err := FloatVector(p.Value)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
	}
	return vec, nil
}

// Broadcast expands a single-element value across n channels.
func Broadcast(v *graph.Value, n int) ([]float32, error) {
	if v.Size() != 1 {
		return nil, fmt.Errorf("cannot broadcast value with %d elements", v.Size())
	}
	scalar, err := FloatVector(v)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = scalar[0]
	}
	return out, nil
}

// DenseWeights reorders a dense weight value into the runtime's weight
// tensor: one row per output unit, inputs flattened in row, column,
// channel order.
//
// Source layouts: rank 2 (inputs, outputs), or rank 4
// (channels, rows, columns, outputs) when the layer consumes spatial data.
func DenseWeights(v *graph.Value) (*layers.Tensor, error) {
	src, err := FloatVector(v)
	if err != nil {
		return nil, err
	}
	dims := v.Shape()

	switch len(dims) {
	case 2:
		inputs, outputs := dims[0], dims[1]
		data := make([]float32, len(src))
		for in := 0; in < inputs; in++ {
			for out := 0; out < outputs; out++ {
				data[out*inputs+in] = src[in*outputs+out]
			}
		}
		return layers.NewTensor(layers.Shape{Rows: outputs, Columns: inputs, Channels: 1}, data)
	case 4:
		channels, rows, cols, outputs := dims[0], dims[1], dims[2], dims[3]
		inputs := channels * rows * cols
		data := make([]float32, len(src))
		for ch := 0; ch < channels; ch++ {
			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					for out := 0; out < outputs; out++ {
						srcIdx := ((ch*rows+r)*cols+c)*outputs + out
						col := (r*cols+c)*channels + ch
						data[out*inputs+col] = src[srcIdx]
					}
				}
			}
		}
		return layers.NewTensor(layers.Shape{Rows: outputs, Columns: inputs, Channels: 1}, data)
	default:
		return nil, fmt.Errorf("dense weights must have rank 2 or 4, got shape %v", []int(dims))
	}
}

// SpatialTensor reorders a rank-3 value from the source layout
// (channels, rows, columns) into the runtime's row, column, channel order.
func SpatialTensor(v *graph.Value) (*layers.Tensor, error) {
	src, err := FloatVector(v)
	if err != nil {
		return nil, err
	}
	dims := v.Shape()
	if len(dims) != 3 {
		return nil, fmt.Errorf("spatial tensor must have rank 3, got shape %v", []int(dims))
	}
	channels, rows, cols := dims[0], dims[1], dims[2]

	data := make([]float32, len(src))
	for ch := 0; ch < channels; ch++ {
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				data[(r*cols+c)*channels+ch] = src[(ch*rows+r)*cols+c]
			}
		}
	}
	return layers.NewTensor(layers.Shape{Rows: rows, Columns: cols, Channels: channels}, data)
}

// ConvolutionWeights reorders a convolutional weight value from the source
// layout (filters, channels, rows, columns) into the runtime's layout:
// filters stacked vertically, each in row, column, channel order.
func ConvolutionWeights(v *graph.Value) (*layers.Tensor, error) {
	src, err := FloatVector(v)
	if err != nil {
		return nil, err
	}
	dims := v.Shape()
	if len(dims) != 4 {
		return nil, fmt.Errorf("convolutional weights must have rank 4, got shape %v", []int(dims))
	}
	filters, channels, rows, cols := dims[0], dims[1], dims[2], dims[3]

	data := make([]float32, len(src))
	for f := 0; f < filters; f++ {
		for ch := 0; ch < channels; ch++ {
			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					srcIdx := ((f*channels+ch)*rows+r)*cols + c
					dstIdx := ((f*rows+r)*cols+c)*channels + ch
					data[dstIdx] = src[srcIdx]
				}
			}
		}
	}
	return layers.NewTensor(layers.Shape{Rows: filters * rows, Columns: cols, Channels: channels}, data)
}
