package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/layers"
)

// TestConvolutionBlock_Fusion tests the block's expansion into
// Convolution, Bias and Activation with the padded input boundary.
func TestConvolutionBlock_Fusion(t *testing.T) {
	node := convBlockNode(t, 3, 8, 8, 4, 1, opReLU)

	result, err := Import([]*graph.Node{node}, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, []layers.Kind{layers.Convolution, layers.Bias, layers.Activation}, layerKinds(result))

	conv := result[0].(*layers.ConvolutionalLayer)
	// Auto padding on a 3x3 kernel pads by 1, growing 8x8x3 to 10x10x3.
	assert.Equal(t, layers.Shape{Rows: 10, Columns: 10, Channels: 3}, conv.Params.InputShape)
	assert.Equal(t, layers.ZeroPadding(1), conv.Params.InputPadding)
	assert.Equal(t, layers.Shape{Rows: 8, Columns: 8, Channels: 4}, conv.Params.OutputShape)
	assert.Equal(t, layers.NoPadding(), conv.Params.OutputPadding)

	assert.Equal(t, 3, conv.Conv.ReceptiveField)
	assert.Equal(t, 1, conv.Conv.Stride)
	assert.Equal(t, layers.Unrolled, conv.Conv.Method)
	assert.Equal(t, 4, conv.Conv.FilterBatchSize)

	// Filters stack vertically in the weight tensor.
	assert.Equal(t, layers.Shape{Rows: 12, Columns: 3, Channels: 3}, conv.Weights.Shape)

	bias := result[1].(*layers.BiasLayer)
	assert.Equal(t, layers.NoPadding(), bias.Params.InputPadding)
	assert.Equal(t, layers.NoPadding(), bias.Params.OutputPadding)
}

func TestConvolutionBlock_Stride(t *testing.T) {
	node := convBlockNode(t, 3, 8, 8, 4, 2, "")

	result, err := Import([]*graph.Node{node}, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, []layers.Kind{layers.Convolution, layers.Bias}, layerKinds(result))

	conv := result[0].(*layers.ConvolutionalLayer)
	assert.Equal(t, 2, conv.Conv.Stride)
	assert.Equal(t, layers.Shape{Rows: 4, Columns: 4, Channels: 4}, conv.Params.OutputShape)
}

// TestConvolutionBlock_ExplicitPad tests the upperPad fallback when the
// spatial dimensions do not auto-pad.
func TestConvolutionBlock_ExplicitPad(t *testing.T) {
	node := convBlockNode(t, 3, 8, 8, 4, 1, "")
	node.BlockRoot.Attributes = []graph.Attribute{
		attrBools(attrAutoPadding, false, false, false),
		attrInts(attrUpperPad, 2, 2),
		attrInts(attrStrides, 1, 1, 1),
	}

	result, err := Import([]*graph.Node{node}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, layers.ZeroPadding(2), result[0].Parameters().InputPadding)
}

// TestConvolutionBlock_WideKernel tests the derived padding of a 5x5
// kernel under auto padding.
func TestConvolutionBlock_WideKernel(t *testing.T) {
	node := convBlockNode(t, 3, 8, 8, 4, 1, "")
	node.Parameters[0].Value = zeros(t, 4, 3, 5, 5)

	result, err := Import([]*graph.Node{node}, DefaultOptions())
	require.NoError(t, err)

	conv := result[0].(*layers.ConvolutionalLayer)
	assert.Equal(t, 5, conv.Conv.ReceptiveField)
	assert.Equal(t, layers.ZeroPadding(2), conv.Params.InputPadding)
	assert.Equal(t, layers.Shape{Rows: 12, Columns: 12, Channels: 3}, conv.Params.InputShape)
}

// TestConvolutionBlock_NoInnerNode tests that a block hiding no raw
// convolution is skipped.
func TestConvolutionBlock_NoInnerNode(t *testing.T) {
	node := convBlockNode(t, 3, 8, 8, 4, 1, "")
	node.BlockRoot = &graph.Node{Name: "noop", OpName: "Identity"}

	w, reason, err := classifyNode(node)
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Equal(t, "no raw convolution node inside block", reason)
}

// binaryConvNode builds a raw convolution fed by a binarization function.
func binaryConvNode(t *testing.T, channels, rows, cols, filters int) *graph.Node {
	t.Helper()
	sign := &graph.Node{
		Name:       binarizationSign,
		OpName:     "UserFunction",
		Parameters: []*graph.Parameter{{Name: "filter", Value: zeros(t, filters, channels, 3, 3)}},
	}
	return &graph.Node{
		Name:   "bconv",
		OpName: opConvolution,
		Inputs: []*graph.Variable{
			{Name: "in", Shape: graph.Shape{channels, rows, cols}},
			{Name: "w", Owner: sign},
		},
		Outputs: []*graph.Variable{{Shape: graph.Shape{filters, rows, cols}}},
		Attributes: []graph.Attribute{
			attrBools(attrAutoPadding, false, true, true),
			attrInts(attrStrides, 1, 1, 1),
		},
	}
}

// TestBinaryConvolution tests that a raw convolution over binarized
// weights emits a single layer; bias and activation arrive as separate
// sequence nodes.
func TestBinaryConvolution(t *testing.T) {
	result, err := Import([]*graph.Node{binaryConvNode(t, 3, 8, 8, 4)}, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, []layers.Kind{layers.BinaryConvolution}, layerKinds(result))

	conv := result[0].(*layers.BinaryConvolutionalLayer)
	assert.Equal(t, layers.Shape{Rows: 10, Columns: 10, Channels: 3}, conv.Params.InputShape)
	assert.Equal(t, layers.ZeroPadding(1), conv.Params.InputPadding)
	assert.Equal(t, 3, conv.Conv.ReceptiveField)
	assert.Equal(t, 1, conv.Conv.Stride)
	assert.Equal(t, layers.Bitwise, conv.Conv.Method)
	assert.Equal(t, layers.ScaleNone, conv.Conv.Scale)
}

// TestBinaryConvolution_SwappedInputs tests that the data input is found
// by rank, whichever slot it occupies.
func TestBinaryConvolution_SwappedInputs(t *testing.T) {
	node := binaryConvNode(t, 3, 8, 8, 4)
	node.Inputs[0], node.Inputs[1] = node.Inputs[1], node.Inputs[0]

	w, reason, err := classifyNode(node)
	require.NoError(t, err)
	require.NotNil(t, w, reason)
}
