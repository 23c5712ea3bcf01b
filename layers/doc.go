// Package layers defines the primitive inference layers consumed by the
// embedded runtime, together with the shape and padding arithmetic used to
// describe the boundary between adjacent layers.
//
// A layer carries a resolved Parameters quadruple (input shape/padding,
// output shape/padding) plus kind-specific payload such as a weight tensor
// or pooling window. The package holds data only; it performs no tensor
// arithmetic and no execution.
package layers
