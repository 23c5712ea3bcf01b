package importer

import (
	"fmt"
	"io"

	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/layers"
)

// Options configures a conversion run.
type Options struct {
	// MaxLayers truncates the classified wrapper sequence. 0 keeps
	// everything. The trailing classifier softmax, when present, is
	// appended after truncation and does not count against the limit.
	MaxLayers int

	// Trace receives one notice per skipped node and one summary line per
	// converted wrapper. Nil discards diagnostics.
	Trace io.Writer
}

// DefaultOptions returns the default conversion options.
func DefaultOptions() Options {
	return Options{}
}

func (o Options) trace() io.Writer {
	if o.Trace == nil {
		return io.Discard
	}
	return o.Trace
}

// Import converts a source node sequence, in traversal order, into the
// flat ordered list of primitive layers. The conversion either completes
// or fails whole; no partial layer list is returned.
func Import(nodes []*graph.Node, opts Options) ([]layers.Layer, error) {
	wrappers, err := selectWrappers(nodes, opts)
	if err != nil {
		return nil, err
	}
	if err := resolveOutputs(wrappers, opts.trace()); err != nil {
		return nil, err
	}
	return emitLayers(wrappers)
}

// selectWrappers is the first pass: filter input-less nodes, classify the
// rest, truncate, and append the remembered classifier softmax. The fused
// cross-entropy node surfaces early in traversal order but represents the
// model's final softmax, so it is held back and appended last.
func selectWrappers(nodes []*graph.Node, opts Options) ([]wrapper, error) {
	trace := opts.trace()
	var wrappers []wrapper
	var trailingSoftmax wrapper

	for _, node := range nodes {
		if !hasInputs(node) {
			fmt.Fprintf(trace, "will not process %s - empty input shape.\n", node.OpName)
			continue
		}

		w, reason, err := classifyNode(node)
		if err != nil {
			return nil, err
		}
		switch {
		case w != nil:
			wrappers = append(wrappers, w)
		case node.OpName == opCrossEntropyWithSoftmax:
			sm, err := newSoftmax(node)
			if err != nil {
				return nil, err
			}
			trailingSoftmax = sm
		default:
			fmt.Fprintf(trace, "will not process %s - %s.\n", node.OpName, reason)
		}
	}

	if opts.MaxLayers > 0 && len(wrappers) > opts.MaxLayers {
		wrappers = wrappers[:opts.MaxLayers]
	}
	if trailingSoftmax != nil {
		wrappers = append(wrappers, trailingSoftmax)
	}
	return wrappers, nil
}

// resolveOutputs is the second pass: strictly left to right, each wrapper
// takes its output padding from its successor's resolved input padding;
// the terminal wrapper emits unpadded. Must run on the final sequence,
// after truncation and trailing-softmax insertion.
func resolveOutputs(wrappers []wrapper, trace io.Writer) error {
	for i, w := range wrappers {
		var next wrapper
		if i < len(wrappers)-1 {
			next = wrappers[i+1]
		}
		if err := w.setOutputCharacteristics(next); err != nil {
			return err
		}
		fmt.Fprintln(trace, w.summary())
	}
	return nil
}

// emitLayers is the third pass: every wrapper appends its primitive
// layers, in sequence order, to one flat list.
func emitLayers(wrappers []wrapper) ([]layers.Layer, error) {
	out := make([]layers.Layer, 0, len(wrappers))
	for _, w := range wrappers {
		if err := w.process(&out); err != nil {
			return nil, fmt.Errorf("failed to convert %s layer: %w", w.opKind(), err)
		}
	}
	return out, nil
}
