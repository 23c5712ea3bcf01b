package importer

import (
	"fmt"

	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/internal/convert"
	"github.com/ember-ml/ember/layers"
)

// biasWrapper converts an addition node acting as a standalone bias.
type biasWrapper struct {
	base
}

func newBias(node *graph.Node) (*biasWrapper, error) {
	if len(node.Parameters) != 1 {
		return nil, &ClassificationError{
			Op:     opPlus,
			Reason: fmt.Sprintf("additive bias needs exactly 1 parameter, node has %d", len(node.Parameters)),
		}
	}
	w := &biasWrapper{}
	if err := w.init(node, opPlus, nil, layers.ZeroPadding(0)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *biasWrapper) process(out *[]layers.Layer) error {
	bias, err := convert.VectorFromParameter(w.source.Parameters[0])
	if err != nil {
		return fmt.Errorf("%s: %w", w.kind, err)
	}
	*out = append(*out, &layers.BiasLayer{Params: w.singleParameters(), Bias: bias})
	return nil
}

// negativeBiasWrapper converts a subtraction node that removes the input
// mean, recognized by its reserved output name. The constant is negated
// and broadcast across channels.
type negativeBiasWrapper struct {
	base
}

func newNegativeBias(node *graph.Node) (*negativeBiasWrapper, error) {
	if len(node.Constants) != 1 || node.Constants[0].Value.Size() != 1 {
		return nil, &ClassificationError{Op: opMinus, Reason: "subtraction constant is not a single element"}
	}
	out := node.Output()
	if out == nil || out.Name != meanRemovedOutput {
		return nil, &ClassificationError{Op: opMinus, Reason: "only subtractions that remove the input mean convert"}
	}
	w := &negativeBiasWrapper{}
	if err := w.init(node, opMinus, nil, layers.ZeroPadding(0)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *negativeBiasWrapper) process(out *[]layers.Layer) error {
	params := w.singleParameters()
	bias, err := convert.Broadcast(w.source.Constants[0].Value, params.OutputShape.Channels)
	if err != nil {
		return fmt.Errorf("%s: %w", w.kind, err)
	}
	for i := range bias {
		bias[i] = -bias[i]
	}
	*out = append(*out, &layers.BiasLayer{Params: params, Bias: bias})
	return nil
}
