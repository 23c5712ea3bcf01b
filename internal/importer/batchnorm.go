package importer

import (
	"fmt"

	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/internal/convert"
	"github.com/ember-ml/ember/layers"
)

// batchNormEpsilon is the source framework's default, added to the
// variance before normalizing.
const batchNormEpsilon = 1e-5

// batchNormalizationWrapper converts a batch-normalization node into the
// runtime's BatchNormalization, Scaling and Bias primitives.
type batchNormalizationWrapper struct {
	base
	scale    *graph.Parameter
	bias     *graph.Parameter
	mean     *graph.Parameter
	variance *graph.Parameter
}

func newBatchNormalization(node *graph.Node) (*batchNormalizationWrapper, error) {
	w := &batchNormalizationWrapper{}
	var err error
	if w.scale, err = graph.FindParameter(node.Parameters, "scale", 0); err != nil {
		return nil, &ClassificationError{Op: opBatchNormalization, Reason: err.Error()}
	}
	if w.bias, err = graph.FindParameter(node.Parameters, "bias", 1); err != nil {
		return nil, &ClassificationError{Op: opBatchNormalization, Reason: err.Error()}
	}
	if w.mean, err = graph.FindParameter(node.Constants, "aggregate_mean", 0); err != nil {
		return nil, &ClassificationError{Op: opBatchNormalization, Reason: err.Error()}
	}
	if w.variance, err = graph.FindParameter(node.Constants, "aggregate_variance", 1); err != nil {
		return nil, &ClassificationError{Op: opBatchNormalization, Reason: err.Error()}
	}

	if err := w.init(node, opBatchNormalization, nil, layers.ZeroPadding(0)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *batchNormalizationWrapper) process(out *[]layers.Layer) error {
	scale, err := convert.VectorFromParameter(w.scale)
	if err != nil {
		return fmt.Errorf("%s: %w", w.kind, err)
	}
	bias, err := convert.VectorFromParameter(w.bias)
	if err != nil {
		return fmt.Errorf("%s: %w", w.kind, err)
	}
	mean, err := convert.VectorFromParameter(w.mean)
	if err != nil {
		return fmt.Errorf("%s: %w", w.kind, err)
	}
	variance, err := convert.VectorFromParameter(w.variance)
	if err != nil {
		return fmt.Errorf("%s: %w", w.kind, err)
	}

	first, middle, last := w.fusedParameters()
	*out = append(*out, &layers.BatchNormalizationLayer{
		Params:   first,
		Mean:     mean,
		Variance: variance,
		Epsilon:  batchNormEpsilon,
	})
	*out = append(*out, &layers.ScalingLayer{Params: middle, Scales: scale})
	*out = append(*out, &layers.BiasLayer{Params: last, Bias: bias})
	return nil
}
