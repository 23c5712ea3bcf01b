package importer

import (
	"fmt"

	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/internal/convert"
	"github.com/ember-ml/ember/layers"
)

// convolutionWrapper converts a convolution block. The block's
// hyper-parameters live on the raw convolution node inside it; the block
// fuses into Convolution, Bias and an optional Activation or Softmax.
type convolutionWrapper struct {
	base
	conv    *graph.Node // raw convolution node inside the block
	weights *graph.Parameter
	bias    *graph.Parameter
}

func newConvolution(node *graph.Node) (*convolutionWrapper, error) {
	if !node.IsBlock {
		return nil, &ClassificationError{Op: opConvolution, Reason: "node is not a block"}
	}

	weights, err := graph.FindParameter(node.Parameters, "W", 0)
	if err != nil {
		return nil, &ClassificationError{Op: opConvolution, Reason: err.Error()}
	}
	bias, err := graph.FindParameter(node.Parameters, "b", 1)
	if err != nil {
		return nil, &ClassificationError{Op: opConvolution, Reason: err.Error()}
	}

	inner := graph.Search(node.BlockRoot, func(n *graph.Node) bool {
		return n.OpName == opConvolution && !n.IsBlock
	})
	if len(inner) == 0 {
		return nil, &ClassificationError{Op: opConvolution, Reason: "no raw convolution node inside block"}
	}

	w := &convolutionWrapper{conv: inner[0], weights: weights, bias: bias}
	pad := layers.ZeroPadding(spatialPadding(inner[0], 1, w.receptiveField()))
	if err := w.init(node, opConvolution, nil, pad); err != nil {
		return nil, err
	}
	return w, nil
}

// receptiveField reads the filter's spatial extent from the weight shape
// (filters, channels, rows, columns).
func (w *convolutionWrapper) receptiveField() int {
	dims := w.weights.Value.Shape()
	if len(dims) < 3 {
		return 1
	}
	return dims[2]
}

func (w *convolutionWrapper) process(out *[]layers.Layer) error {
	weights, err := convert.ConvolutionWeights(w.weights.Value)
	if err != nil {
		return fmt.Errorf("%s weights: %w", w.kind, err)
	}
	bias, err := convert.VectorFromParameter(w.bias)
	if err != nil {
		return fmt.Errorf("%s bias: %w", w.kind, err)
	}

	first, middle, last := w.fusedParameters()
	conv := layers.ConvolutionalParameters{
		ReceptiveField:  w.receptiveField(),
		Stride:          intAt(w.conv.AttrInts(attrStrides), 2, 1),
		Method:          layers.Unrolled,
		FilterBatchSize: first.OutputShape.Channels,
	}

	internal := w.blockNodes()
	softmax := containsSoftmax(internal)
	activation, hasActivation := activationOf(internal)
	fused := softmax || hasActivation

	*out = append(*out, &layers.ConvolutionalLayer{Params: first, Conv: conv, Weights: weights})

	biasParams := last
	if fused {
		biasParams = middle
	}
	*out = append(*out, &layers.BiasLayer{Params: biasParams, Bias: bias})

	switch {
	case softmax:
		*out = append(*out, &layers.SoftmaxLayer{Params: last})
	case hasActivation:
		*out = append(*out, &layers.ActivationLayer{Params: last, Activation: activation})
	}
	return nil
}

func (w *convolutionWrapper) summary() string {
	return w.summaryAs(fusionLabel(w.kind, w.blockNodes()))
}

// binaryConvolutionWrapper converts a raw (non-block) convolution whose
// weights come from a binarization function. Bias and activation appear as
// separate nodes in the sequence and are classified on their own.
type binaryConvolutionWrapper struct {
	base
	weights *graph.Parameter
}

func newBinaryConvolution(node *graph.Node) (*binaryConvolutionWrapper, error) {
	if node.IsBlock {
		return nil, &ClassificationError{Op: opConvolution, Reason: "binary convolution node is a block"}
	}
	if len(node.Inputs) != 2 {
		return nil, &ClassificationError{
			Op:     opConvolution,
			Reason: fmt.Sprintf("binary convolution needs 2 inputs, node has %d", len(node.Inputs)),
		}
	}

	// One input is the rank-3 spatial data, the other produces the
	// binarized weights.
	input, weightsIn := node.Inputs[0], node.Inputs[1]
	if len(input.Shape) != 3 {
		input, weightsIn = weightsIn, input
	}
	if weightsIn.Owner == nil {
		return nil, &ClassificationError{Op: opConvolution, Reason: "weights input has no producing node"}
	}
	if weightsIn.Owner.Name != binarizationSign {
		return nil, &ClassificationError{
			Op:     opConvolution,
			Reason: "unrecognized binarization function: " + weightsIn.Owner.Name,
		}
	}
	weights, err := graph.FindParameter(weightsIn.Owner.Parameters, "filter", -1)
	if err != nil {
		return nil, &ClassificationError{Op: opConvolution, Reason: err.Error()}
	}

	w := &binaryConvolutionWrapper{weights: weights}
	pad := layers.ZeroPadding(spatialPadding(node, 1, w.receptiveField()))
	if err := w.init(node, "BinaryConvolution", input.Shape, pad); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *binaryConvolutionWrapper) receptiveField() int {
	dims := w.weights.Value.Shape()
	if len(dims) < 3 {
		return 1
	}
	return dims[2]
}

func (w *binaryConvolutionWrapper) process(out *[]layers.Layer) error {
	weights, err := convert.ConvolutionWeights(w.weights.Value)
	if err != nil {
		return fmt.Errorf("%s weights: %w", w.kind, err)
	}

	conv := layers.BinaryConvolutionalParameters{
		ReceptiveField: w.receptiveField(),
		Stride:         intAt(w.source.AttrInts(attrStrides), 2, 1),
		Method:         layers.Bitwise,
		Scale:          layers.ScaleNone,
	}
	*out = append(*out, &layers.BinaryConvolutionalLayer{
		Params:  w.singleParameters(),
		Conv:    conv,
		Weights: weights,
	})
	return nil
}
