package importer

import (
	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/layers"
)

// poolingType attribute values used by the source framework.
const (
	poolingTypeMax = 0
	poolingTypeAvg = 1
)

// poolingVariant converts a max or average pooling node. For block nodes
// the window attributes live on the block root.
type poolingVariant struct {
	base
	attrs    *graph.Node
	function layers.PoolingFunction
}

func newPoolingVariant(node *graph.Node, kind string, scheme layers.PaddingScheme, fn layers.PoolingFunction) (*poolingVariant, error) {
	attrs := node
	if node.IsBlock && node.BlockRoot != nil {
		attrs = node.BlockRoot
	}

	w := &poolingVariant{attrs: attrs, function: fn}
	window := intAt(attrs.AttrInts(attrPoolingWindowShape), 0, 1)
	pad := layers.Padding{Scheme: scheme, Size: spatialPadding(attrs, 0, window)}
	if err := w.init(node, kind, nil, pad); err != nil {
		return nil, err
	}
	return w, nil
}

// Max pooling pads with the minimum value so the border never wins the
// window; average pooling pads with zeros.
func newMaxPooling(node *graph.Node) (*poolingVariant, error) {
	return newPoolingVariant(node, opMaxPooling, layers.PadMin, layers.MaxPooling)
}

func newAveragePooling(node *graph.Node) (*poolingVariant, error) {
	return newPoolingVariant(node, opAveragePooling, layers.PadZeros, layers.MeanPooling)
}

func (w *poolingVariant) process(out *[]layers.Layer) error {
	pool := layers.PoolingParameters{
		Size:   intAt(w.attrs.AttrInts(attrPoolingWindowShape), 0, 1),
		Stride: intAt(w.attrs.AttrInts(attrStrides), 0, 1),
	}
	*out = append(*out, &layers.PoolingLayer{
		Params:   w.singleParameters(),
		Pool:     pool,
		Function: w.function,
	})
	return nil
}

// poolingWrapper handles the generic pooling op, whose poolingType
// attribute selects the concrete variant. Pure composition: everything
// delegates to the resolved variant.
type poolingWrapper struct {
	actual *poolingVariant
}

func newPooling(node *graph.Node) (*poolingWrapper, error) {
	attrs := node
	if node.IsBlock && node.BlockRoot != nil {
		attrs = node.BlockRoot
	}

	var actual *poolingVariant
	var err error
	if attrs.AttrInt(attrPoolingType, poolingTypeMax) == poolingTypeMax {
		actual, err = newMaxPooling(node)
	} else {
		actual, err = newAveragePooling(node)
	}
	if err != nil {
		return nil, err
	}
	return &poolingWrapper{actual: actual}, nil
}

func (w *poolingWrapper) opKind() string   { return opPooling }
func (w *poolingWrapper) ann() *annotation { return w.actual.ann() }

func (w *poolingWrapper) setOutputCharacteristics(next wrapper) error {
	return w.actual.setOutputCharacteristics(next)
}

func (w *poolingWrapper) process(out *[]layers.Layer) error { return w.actual.process(out) }
func (w *poolingWrapper) summary() string                   { return w.actual.summary() }
