package importer

import (
	"fmt"

	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/internal/convert"
	"github.com/ember-ml/ember/layers"
)

// scalingWrapper converts an element-wise multiplication against a single
// trainable scale, either a scalar broadcast across channels or a full
// per-element vector.
type scalingWrapper struct {
	base
	scale *graph.Parameter
}

func newScaling(node *graph.Node) (*scalingWrapper, error) {
	if len(node.Parameters) != 1 && len(node.Constants) != 1 {
		return nil, &ClassificationError{
			Op:     opElementTimes,
			Reason: "scale is not a single parameter or constant",
		}
	}

	w := &scalingWrapper{}
	if len(node.Constants) > 0 {
		w.scale = node.Constants[0]
	} else {
		w.scale = node.Parameters[0]
	}
	if err := w.init(node, opElementTimes, nil, layers.ZeroPadding(0)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *scalingWrapper) process(out *[]layers.Layer) error {
	params := w.singleParameters()

	var scales []float32
	var err error
	if w.scale.Value.Size() == 1 {
		scales, err = convert.Broadcast(w.scale.Value, params.OutputShape.Channels)
	} else {
		scales, err = convert.FloatVector(w.scale.Value)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", w.kind, err)
	}

	*out = append(*out, &layers.ScalingLayer{Params: params, Scales: scales})
	return nil
}
