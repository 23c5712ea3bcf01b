package importer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/layers"
)

// zeros builds a float32 value of the given shape filled with zeros.
func zeros(t *testing.T, shape ...int) *graph.Value {
	t.Helper()
	v, err := graph.ValueFromFloat32(graph.Shape(shape), make([]float32, graph.Shape(shape).Size()))
	require.NoError(t, err)
	return v
}

// value builds a float32 value with explicit contents.
func value(t *testing.T, shape graph.Shape, data []float32) *graph.Value {
	t.Helper()
	v, err := graph.ValueFromFloat32(shape, data)
	require.NoError(t, err)
	return v
}

func attrInts(name string, vals ...int64) graph.Attribute {
	return graph.Attribute{Name: name, Ints: vals}
}

func attrBools(name string, vals ...bool) graph.Attribute {
	return graph.Attribute{Name: name, Bools: vals}
}

// reluNode builds a standalone activation node over a flat input.
func reluNode(t *testing.T, n int) *graph.Node {
	t.Helper()
	return &graph.Node{
		Name:      "relu",
		OpName:    opReLU,
		Arguments: []*graph.Variable{{Name: "in", Shape: graph.Shape{n}}},
		Outputs:   []*graph.Variable{{Name: "out", Shape: graph.Shape{n}}},
	}
}

// denseBlockNode builds a fully-connected block with a rank-2 weight,
// optionally fusing an internal activation or softmax op.
func denseBlockNode(t *testing.T, inputs, outputs int, internalOp string) *graph.Node {
	t.Helper()
	root := &graph.Node{Name: "times", OpName: "Times"}
	if internalOp != "" {
		root = &graph.Node{
			Name:   internalOp,
			OpName: internalOp,
			Inputs: []*graph.Variable{{Owner: &graph.Node{Name: "times", OpName: "Times"}}},
		}
	}
	return &graph.Node{
		Name:      "dense",
		OpName:    opDense,
		IsBlock:   true,
		Arguments: []*graph.Variable{{Name: "in", Shape: graph.Shape{inputs}}},
		Outputs:   []*graph.Variable{{Name: "out", Shape: graph.Shape{outputs}}},
		Parameters: []*graph.Parameter{
			{Name: "W", Value: zeros(t, inputs, outputs)},
			{Name: "b", Value: zeros(t, outputs)},
		},
		BlockRoot: root,
	}
}

// convBlockNode builds a convolution block over a (channels, rows, cols)
// input: filters 3x3 kernels, auto padding on the spatial dims, stride
// taken from the third strides entry.
func convBlockNode(t *testing.T, channels, rows, cols, filters, stride int, internalOp string) *graph.Node {
	t.Helper()
	inner := &graph.Node{
		Name:   "conv_inner",
		OpName: opConvolution,
		Attributes: []graph.Attribute{
			attrBools(attrAutoPadding, false, true, true),
			attrInts(attrStrides, 1, 1, int64(stride)),
		},
	}
	root := inner
	if internalOp != "" {
		root = &graph.Node{
			Name:   internalOp,
			OpName: internalOp,
			Inputs: []*graph.Variable{{Owner: inner}},
		}
	}
	return &graph.Node{
		Name:      "conv",
		OpName:    opConvolution,
		IsBlock:   true,
		Arguments: []*graph.Variable{{Name: "in", Shape: graph.Shape{channels, rows, cols}}},
		Outputs:   []*graph.Variable{{Name: "out", Shape: graph.Shape{filters, rows / stride, cols / stride}}},
		Parameters: []*graph.Parameter{
			{Name: "W", Value: zeros(t, filters, channels, 3, 3)},
			{Name: "b", Value: zeros(t, filters)},
		},
		BlockRoot: root,
	}
}

// layerKinds flattens a layer list to its kind sequence.
func layerKinds(list []layers.Layer) []layers.Kind {
	out := make([]layers.Kind, len(list))
	for i, l := range list {
		out[i] = l.Kind()
	}
	return out
}
