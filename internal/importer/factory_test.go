package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-ml/ember/graph"
)

// TestClassify_UnknownOpSkips tests that an unrecognized operation name is
// a skip, never an error.
func TestClassify_UnknownOpSkips(t *testing.T) {
	node := &graph.Node{
		Name:      "reshape",
		OpName:    "Reshape",
		Arguments: []*graph.Variable{{Shape: graph.Shape{10}}},
	}

	w, reason, err := classifyNode(node)
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Equal(t, "skipping this layer as irrelevant", reason)
}

// TestClassify_DenseRequiresBlock tests that a bare Dense node is skipped
// with a diagnostic rather than converted.
func TestClassify_DenseRequiresBlock(t *testing.T) {
	node := denseBlockNode(t, 4, 2, "")
	node.IsBlock = false

	w, reason, err := classifyNode(node)
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Equal(t, "node is not a block", reason)
}

// TestClassify_LinearNeedsNoBlock tests the bare form of the dense op.
func TestClassify_LinearNeedsNoBlock(t *testing.T) {
	node := denseBlockNode(t, 4, 2, "")
	node.OpName = opLinear
	node.IsBlock = false
	node.BlockRoot = nil

	w, reason, err := classifyNode(node)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Empty(t, reason)
	assert.Equal(t, opLinear, w.opKind())
}

// TestClassify_MinusOutputName tests that only the reserved mean-removal
// subtraction converts.
func TestClassify_MinusOutputName(t *testing.T) {
	node := &graph.Node{
		Name:      "minus",
		OpName:    opMinus,
		Arguments: []*graph.Variable{{Shape: graph.Shape{3, 4, 4}}},
		Outputs:   []*graph.Variable{{Name: "something_else", Shape: graph.Shape{3, 4, 4}}},
		Constants: []*graph.Parameter{{Name: "mean", Value: zeros(t, 1)}},
	}

	w, reason, err := classifyNode(node)
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Contains(t, reason, "remove the input mean")

	node.Outputs[0].Name = meanRemovedOutput
	w, _, err = classifyNode(node)
	require.NoError(t, err)
	assert.NotNil(t, w)
}

// TestClassify_MinusNeedsScalarConstant tests the single-element
// constant precondition.
func TestClassify_MinusNeedsScalarConstant(t *testing.T) {
	node := &graph.Node{
		Name:      "minus",
		OpName:    opMinus,
		Arguments: []*graph.Variable{{Shape: graph.Shape{3, 4, 4}}},
		Outputs:   []*graph.Variable{{Name: meanRemovedOutput, Shape: graph.Shape{3, 4, 4}}},
		Constants: []*graph.Parameter{{Name: "mean", Value: zeros(t, 3)}},
	}

	w, reason, err := classifyNode(node)
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Contains(t, reason, "single element")
}

// TestClassify_PlusNeedsOneParameter tests the additive bias precondition.
func TestClassify_PlusNeedsOneParameter(t *testing.T) {
	node := &graph.Node{
		Name:      "plus",
		OpName:    opPlus,
		Arguments: []*graph.Variable{{Shape: graph.Shape{8}}},
		Outputs:   []*graph.Variable{{Shape: graph.Shape{8}}},
	}

	w, reason, err := classifyNode(node)
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Contains(t, reason, "exactly 1 parameter")
}

// TestClassify_BinaryConvolutionBinarizer tests the producer-name check on
// the weights input.
func TestClassify_BinaryConvolutionBinarizer(t *testing.T) {
	producer := &graph.Node{
		Name:       "Quantize",
		OpName:     "UserFunction",
		Parameters: []*graph.Parameter{{Name: "filter", Value: zeros(t, 4, 3, 3, 3)}},
	}
	node := &graph.Node{
		Name:   "bconv",
		OpName: opConvolution,
		Inputs: []*graph.Variable{
			{Name: "in", Shape: graph.Shape{3, 8, 8}},
			{Name: "w", Owner: producer},
		},
		Outputs: []*graph.Variable{{Shape: graph.Shape{4, 8, 8}}},
		Attributes: []graph.Attribute{
			attrBools(attrAutoPadding, false, true, true),
			attrInts(attrStrides, 1, 1, 1),
		},
	}

	w, reason, err := classifyNode(node)
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Equal(t, "unrecognized binarization function: Quantize", reason)

	producer.Name = binarizationSign
	w, _, err = classifyNode(node)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "BinaryConvolution", w.opKind())
}

// TestClassify_BadShapeRankFatal tests that an undecodable input shape is
// an initialization failure, not a skip.
func TestClassify_BadShapeRankFatal(t *testing.T) {
	node := &graph.Node{
		Name:      "relu",
		OpName:    opReLU,
		Arguments: []*graph.Variable{{Shape: graph.Shape{2, 2}}},
		Outputs:   []*graph.Variable{{Shape: graph.Shape{2, 2}}},
	}

	_, _, err := classifyNode(node)
	require.Error(t, err)
	var ierr *InitializationError
	assert.True(t, errors.As(err, &ierr))
}

// TestHasInputs tests the data-bearing node filter, including the raw
// convolution special case.
func TestHasInputs(t *testing.T) {
	assert.True(t, hasInputs(reluNode(t, 4)))

	assert.False(t, hasInputs(&graph.Node{OpName: opReLU}))
	assert.False(t, hasInputs(&graph.Node{
		OpName:    opReLU,
		Arguments: []*graph.Variable{{Shape: graph.Shape{}}},
	}))

	bconv := &graph.Node{
		OpName: opConvolution,
		Inputs: []*graph.Variable{{Shape: graph.Shape{3, 8, 8}}},
	}
	assert.True(t, hasInputs(bconv))
}

func TestClassificationErrorMessage(t *testing.T) {
	err := &ClassificationError{Op: opDense, Reason: "node is not a block"}
	assert.Equal(t, "Dense: node is not a block", err.Error())
}
