package importer

import (
	"fmt"

	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/internal/convert"
	"github.com/ember-ml/ember/layers"
)

// denseWrapper converts a fully-connected block. One source node fuses
// into FullyConnected, Bias and, when the block contains one, a trailing
// Activation or Softmax primitive.
type denseWrapper struct {
	base
}

func newDense(node *graph.Node) (*denseWrapper, error) {
	if !node.IsBlock {
		return nil, &ClassificationError{Op: opDense, Reason: "node is not a block"}
	}
	w := &denseWrapper{}
	if err := w.init(node, opDense, nil, layers.ZeroPadding(0)); err != nil {
		return nil, err
	}
	return w, nil
}

// newLinear handles the framework's bare "linear" form of the same block.
func newLinear(node *graph.Node) (*denseWrapper, error) {
	w := &denseWrapper{}
	if err := w.init(node, opLinear, nil, layers.ZeroPadding(0)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *denseWrapper) process(out *[]layers.Layer) error {
	weightsParam, err := graph.FindParameter(w.source.Parameters, "W", 0)
	if err != nil {
		return fmt.Errorf("%s: %w", w.kind, err)
	}
	biasParam, err := graph.FindParameter(w.source.Parameters, "b", 1)
	if err != nil {
		return fmt.Errorf("%s: %w", w.kind, err)
	}
	weights, err := convert.DenseWeights(weightsParam.Value)
	if err != nil {
		return fmt.Errorf("%s weights: %w", w.kind, err)
	}
	bias, err := convert.VectorFromParameter(biasParam)
	if err != nil {
		return fmt.Errorf("%s bias: %w", w.kind, err)
	}

	first, middle, last := w.fusedParameters()
	internal := w.blockNodes()
	softmax := containsSoftmax(internal)
	activation, hasActivation := activationOf(internal)
	fused := softmax || hasActivation

	*out = append(*out, &layers.FullyConnectedLayer{Params: first, Weights: weights})

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

func (w *denseWrapper) summary() string {
	return w.summaryAs(fusionLabel(w.kind, w.blockNodes()))
}

// fusionLabel annotates a block's label with the fused activation, when
// one was detected.
func fusionLabel(kind string, internal []*graph.Node) string {
	if containsSoftmax(internal) {
		return kind + "(softmax)"
	}
	if activation, ok := activationOf(internal); ok {
		return kind + "(" + activation.String() + ")"
	}
	return kind
}
