// Package graph models the source framework's computation graph as the
// converter sees it: an ordered sequence of typed nodes, each exposing its
// operation name, arguments, trainable parameters, constants, attributes
// and, for block nodes, the internal sub-graph.
//
// The converter treats these nodes as read-only input. The package also
// provides a wire codec so a traversed graph can be snapshotted to disk and
// imported later without the source framework present.
package graph
