// Package importer is the public entry point for converting a source
// framework's computation graph into the primitive layer sequence the
// embedded runtime consumes.
//
// Example:
//
//	nodes, err := graph.ReadFile("model.graph")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	converted, err := importer.Import(nodes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, layer := range converted {
//	    fmt.Println(layer.Kind(), layer.Parameters().OutputShape)
//	}
//
// The conversion is a one-shot offline transform: it either completes with
// the full ordered layer list or fails without a partial result. Nodes the
// converter does not recognize are skipped with a diagnostic, not treated
// as errors; see Options.Trace.
package importer

import (
	"github.com/ember-ml/ember/graph"
	"github.com/ember-ml/ember/internal/importer"
	"github.com/ember-ml/ember/layers"
)

// Options configures a conversion run.
type Options = importer.Options

// ClassificationError reports a node that matched an operation name but
// not the structure that operation requires. It never escapes the
// conversion; skipped nodes surface only as diagnostics.
type ClassificationError = importer.ClassificationError

// InitializationError reports a structurally broken graph: a classified
// node with no resolvable input shape. It aborts the conversion.
type InitializationError = importer.InitializationError

// DefaultOptions returns the default conversion options: no layer limit,
// diagnostics discarded.
func DefaultOptions() Options {
	return importer.DefaultOptions()
}

// Import converts a node sequence, in the source framework's traversal
// order, into the flat ordered primitive layer list.
func Import(nodes []*graph.Node, opts ...Options) ([]layers.Layer, error) {
	opt := DefaultOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	return importer.Import(nodes, opt)
}

// ImportFile loads a graph snapshot (see graph.WriteFile) and converts it.
func ImportFile(path string, opts ...Options) ([]layers.Layer, error) {
	nodes, err := graph.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Import(nodes, opts...)
}
