package importer

import (
	"errors"

	"github.com/ember-ml/ember/graph"
)

// classify maps a node's operation name onto its wrapper variant. Unknown
// names yield (nil, nil): not convertible, not an error. Structural
// mismatches surface as *ClassificationError; a broken input shape as
// *InitializationError.
func classify(node *graph.Node) (wrapper, error) {
	switch node.OpName {
	case opAveragePooling:
		return build(newAveragePooling(node))
	case opBatchNormalization:
		return build(newBatchNormalization(node))
	case opConvolution:
		// Block convolutions are fused macros; a raw convolution node in
		// the top-level sequence is a binary convolution.
		if node.IsBlock {
			return build(newConvolution(node))
		}
		return build(newBinaryConvolution(node))
	case opDense:
		return build(newDense(node))
	case opElementTimes:
		return build(newScaling(node))
	case opLeakyReLU:
		return build(newLeakyReLU(node))
	case opLinear:
		return build(newLinear(node))
	case opMaxPooling:
		return build(newMaxPooling(node))
	case opMinus:
		return build(newNegativeBias(node))
	case opPlus:
		return build(newBias(node))
	case opPooling:
		return build(newPooling(node))
	case opPReLU:
		return build(newPReLU(node))
	case opReLU:
		return build(newReLU(node))
	case opSoftmax:
		return build(newSoftmax(node))
	default:
		return nil, nil
	}
}

// build collapses a concrete constructor result into the wrapper
// interface, keeping a failed construction an untyped nil.
func build[W wrapper](w W, err error) (wrapper, error) {
	if err != nil {
		return nil, err
	}
	return w, nil
}

// classifyNode runs classify and folds recoverable failures into a skip
// reason. Only initialization failures propagate as errors.
func classifyNode(node *graph.Node) (wrapper, string, error) {
	w, err := classify(node)
	if err != nil {
		var cerr *ClassificationError
		if errors.As(err, &cerr) {
			return nil, cerr.Reason, nil
		}
		return nil, "", err
	}
	if w == nil {
		return nil, "skipping this layer as irrelevant", nil
	}
	return w, "", nil
}

// hasInputs reports whether the node consumes any data at all. Nodes
// without a non-empty-shaped argument are constant plumbing and never
// convert; raw convolutions are special-cased to their input list, since
// their data arrives outside the argument list.
func hasInputs(node *graph.Node) bool {
	if len(node.Arguments) > 0 && !node.Arguments[0].Shape.Empty() {
		return true
	}
	return node.OpName == opConvolution && len(node.Inputs) > 0 && !node.Inputs[0].Shape.Empty()
}
