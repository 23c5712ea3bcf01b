package importer

import (
	"fmt"

	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/internal/convert"
	"github.com/ember-ml/ember/layers"
)

// activationWrapper converts a standalone element-wise activation node.
type activationWrapper struct {
	base
	activation layers.ActivationKind
}

func newReLU(node *graph.Node) (*activationWrapper, error) {
	return newActivation(node, opReLU, layers.ReLU)
}

func newLeakyReLU(node *graph.Node) (*activationWrapper, error) {
	return newActivation(node, opLeakyReLU, layers.LeakyReLU)
}

func newActivation(node *graph.Node, kind string, activation layers.ActivationKind) (*activationWrapper, error) {
	w := &activationWrapper{activation: activation}
	if err := w.init(node, kind, nil, layers.ZeroPadding(0)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *activationWrapper) process(out *[]layers.Layer) error {
	*out = append(*out, &layers.ActivationLayer{
		Params:     w.singleParameters(),
		Activation: w.activation,
	})
	return nil
}

// preluWrapper converts a parametric ReLU carrying a per-channel slope
// tensor in its "prelu" parameter.
type preluWrapper struct {
	base
	slopes *graph.Parameter
}

func newPReLU(node *graph.Node) (*preluWrapper, error) {
	slopes, err := graph.FindParameter(node.Parameters, "prelu", 0)
	if err != nil {
		return nil, &ClassificationError{Op: opPReLU, Reason: err.Error()}
	}
	w := &preluWrapper{slopes: slopes}
	if err := w.init(node, opPReLU, nil, layers.ZeroPadding(0)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *preluWrapper) process(out *[]layers.Layer) error {
	slopes, err := convert.SpatialTensor(w.slopes.Value)
	if err != nil {
		return fmt.Errorf("%s slopes: %w", w.kind, err)
	}
	*out = append(*out, &layers.PReLUActivationLayer{
		Params: w.singleParameters(),
		Slopes: slopes,
	})
	return nil
}

// softmaxWrapper converts a softmax node. When it wraps a fused
// cross-entropy training node the nominal single-element output is
// ignored and the output boundary mirrors the input.
type softmaxWrapper struct {
	base
}

func newSoftmax(node *graph.Node) (*softmaxWrapper, error) {
	w := &softmaxWrapper{}
	if err := w.init(node, opSoftmax, nil, layers.ZeroPadding(0)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *softmaxWrapper) process(out *[]layers.Layer) error {
	params := w.singleParameters()
	if w.source.OpName == opCrossEntropyWithSoftmax {
		params.OutputShape = w.inputShape
		params.OutputPadding = w.inputPadding
	}
	*out = append(*out, &layers.SoftmaxLayer{Params: params})
	return nil
}
