// Package importer converts a source-framework computation graph into the
// flat, ordered sequence of primitive layers the embedded runtime builds
// its model from.
//
// Conversion runs in three strictly sequential passes: classify and filter
// the raw node sequence into wrapper variants, resolve each wrapper's
// output shape and padding from its successor, then ask every wrapper to
// emit its primitive layers in order.
package importer

import (
	"fmt"

	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/layers"
)

// Source framework operation names the factory recognizes.
const (
	opAveragePooling          = "AveragePooling"
	opBatchNormalization      = "BatchNormalization"
	opConvolution             = "Convolution"
	opCrossEntropyWithSoftmax = "CrossEntropyWithSoftmax"
	opDense                   = "Dense"
	opElementTimes            = "ElementTimes"
	opLeakyReLU               = "LeakyReLU"
	opLinear                  = "linear"
	opMaxPooling              = "MaxPooling"
	opMinus                   = "Minus"
	opPlus                    = "Plus"
	opPooling                 = "Pooling"
	opPReLU                   = "PReLU"
	opReLU                    = "ReLU"
	opSoftmax                 = "Softmax"
)

// Source framework attribute names.
const (
	attrAutoPadding        = "autoPadding"
	attrPoolingType        = "poolingType"
	attrPoolingWindowShape = "poolingWindowShape"
	attrStrides            = "strides"
	attrUpperPad           = "upperPad"
)

// Name-based heuristics the source framework's exported graphs rely on.
// Exact string matches; do not loosen them.
const (
	binarizationSign  = "Sign"
	meanRemovedOutput = "mean_removed_input"
)

// wrapper is one classified source node, able to report its padding
// requirements and emit its primitive layers.
type wrapper interface {
	opKind() string
	ann() *annotation
	setOutputCharacteristics(next wrapper) error
	process(out *[]layers.Layer) error
	summary() string
}

// annotation is the locally owned shape/padding record for one wrapper.
// The source node itself is never written to; everything the pipeline
// derives lives here.
type annotation struct {
	inputShape    layers.Shape // input shape adjusted for input padding
	inputPadding  layers.Padding
	outputShape   layers.Shape // output shape adjusted for output padding
	outputPadding layers.Padding

	// outputShapeMinusPadding is the raw output shape before this
	// wrapper's own output padding. Fused intermediate layers use it,
	// since only the last primitive of a group carries padding.
	outputShapeMinusPadding layers.Shape
}

// base carries the state and behavior shared by every wrapper variant.
type base struct {
	source *graph.Node
	kind   string
	annotation
}

func (b *base) opKind() string   { return b.kind }
func (b *base) ann() *annotation { return &b.annotation }

// init resolves the wrapper's input characteristics. rawInput overrides the
// default argument-derived input shape when the variant dictates one; pad
// is the variant's input padding requirement.
func (b *base) init(node *graph.Node, kind string, rawInput graph.Shape, pad layers.Padding) error {
	b.source = node
	b.kind = kind

	if rawInput.Empty() {
		if args := node.Arguments; len(args) > 0 && !args[0].Shape.Empty() {
			rawInput = args[0].Shape
		}
	}
	if rawInput.Empty() {
		return &InitializationError{Op: kind, Reason: "could not determine an input shape"}
	}

	shape, err := fromGraphShape(rawInput)
	if err != nil {
		return &InitializationError{Op: kind, Reason: err.Error()}
	}
	b.inputPadding = pad
	b.inputShape = shape.Adjust(pad)
	return nil
}

// setOutputCharacteristics resolves the wrapper's output side. With a next
// wrapper, output padding is whatever that wrapper's input requires; the
// terminal wrapper emits unpadded.
func (b *base) setOutputCharacteristics(next wrapper) error {
	out := b.source.Output()
	if out == nil {
		return &InitializationError{Op: b.kind, Reason: "node has no output"}
	}
	raw, err := fromGraphShape(out.Shape)
	if err != nil {
		return &InitializationError{Op: b.kind, Reason: err.Error()}
	}

	if next != nil {
		b.outputPadding = next.ann().inputPadding
		b.outputShape = raw.Adjust(b.outputPadding)
		b.outputShapeMinusPadding = raw
	} else {
		b.outputPadding = layers.NoPadding()
		b.outputShape = raw
		b.outputShapeMinusPadding = raw
	}
	return nil
}

// singleParameters is the boundary quadruple for a wrapper emitting one
// primitive layer.
func (b *base) singleParameters() layers.Parameters {
	return layers.Parameters{
		InputShape:    b.inputShape,
		InputPadding:  b.inputPadding,
		OutputShape:   b.outputShape,
		OutputPadding: b.outputPadding,
	}
}

// fusedParameters are the quadruples for a multi-primitive group: only the
// first primitive sees the wrapper's input padding, only the last carries
// its output padding, and everything between runs unpadded.
func (b *base) fusedParameters() (first, middle, last layers.Parameters) {
	first = layers.Parameters{
		InputShape:    b.inputShape,
		InputPadding:  b.inputPadding,
		OutputShape:   b.outputShapeMinusPadding,
		OutputPadding: layers.NoPadding(),
	}
	middle = layers.Parameters{
		InputShape:    b.outputShapeMinusPadding,
		InputPadding:  layers.NoPadding(),
		OutputShape:   b.outputShapeMinusPadding,
		OutputPadding: layers.NoPadding(),
	}
	last = layers.Parameters{
		InputShape:    b.outputShapeMinusPadding,
		InputPadding:  layers.NoPadding(),
		OutputShape:   b.outputShape,
		OutputPadding: b.outputPadding,
	}
	return first, middle, last
}

// blockNodes returns the node's internal sub-graph, or the node itself for
// non-block functions.
func (b *base) blockNodes() []*graph.Node {
	root := b.source.BlockRoot
	if root == nil {
		root = b.source
	}
	return graph.Subgraph(root)
}

func (b *base) summary() string {
	return b.summaryAs(b.kind)
}

// summaryAs renders the one-line diagnostic for this wrapper under the
// given label.
func (b *base) summaryAs(label string) string {
	return fmt.Sprintf("%s : %s -> %s | input padding %d output padding %d",
		label, b.inputShape, b.outputShape, b.inputPadding.Size, b.outputPadding.Size)
}

// fromGraphShape maps a source shape onto the runtime's row, column,
// channel order. The source framework stores rank-3 spatial data as
// (channels, rows, columns) and flat data as a single dimension.
func fromGraphShape(s graph.Shape) (layers.Shape, error) {
	switch len(s) {
	case 3:
		return layers.Shape{Rows: s[1], Columns: s[2], Channels: s[0]}, nil
	case 1:
		return layers.Shape{Rows: 1, Columns: 1, Channels: s[0]}, nil
	default:
		return layers.Shape{}, fmt.Errorf("unsupported shape rank %d: %v", len(s), []int(s))
	}
}

// activationOf reports the activation operation found among block-internal
// nodes, if any. Softmax is detected separately and takes priority.
func activationOf(nodes []*graph.Node) (layers.ActivationKind, bool) {
	for _, n := range nodes {
		switch n.OpName {
		case opReLU:
			return layers.ReLU, true
		case opLeakyReLU:
			return layers.LeakyReLU, true
		}
	}
	return 0, false
}

// containsSoftmax reports whether a softmax operation appears among
// block-internal nodes.
func containsSoftmax(nodes []*graph.Node) bool {
	for _, n := range nodes {
		if n.OpName == opSoftmax {
			return true
		}
	}
	return false
}

// spatialPadding applies the auto-padding tie-break for convolution and
// pooling windows: a window derived size when the dimension auto-pads,
// the node's explicit upper pad otherwise. Truncation toward zero in the
// derived case is deliberate; even windows pad short.
func spatialPadding(attrs *graph.Node, dim int, window int) int {
	if auto := attrs.AttrBools(attrAutoPadding); len(auto) > dim && auto[dim] {
		return (window - 1) / 2
	}
	if up := attrs.AttrInts(attrUpperPad); len(up) > 0 {
		return int(up[0])
	}
	return 0
}

// intAt returns list[idx] as an int, or def when the list is too short.
func intAt(list []int64, idx int, def int) int {
	if idx < len(list) {
		return int(list[idx])
	}
	return def
}
