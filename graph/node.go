package graph

import "fmt"

// Variable is a value flowing along a graph edge. Owner is the node that
// produces it, nil for graph inputs and free parameters.
type Variable struct {
	Name  string
	Shape Shape
	Owner *Node
}

// Parameter is a named trainable value (or constant) attached to a node.
type Parameter struct {
	Name  string
	Value *Value
}

// Attribute is a typed node attribute. Exactly one of the value fields is
// meaningful, per the source framework's attribute dictionaries.
type Attribute struct {
	Name  string
	I     int64
	Ints  []int64
	Bools []bool
}

// Node is one computation-graph function as exposed by the source framework.
// Block nodes are framework-level macros wrapping a sub-graph reachable
// through BlockRoot.
type Node struct {
	Name    string
	OpName  string
	IsBlock bool

	// Inputs is the raw input list; Arguments is the subset carrying data
	// (parameters excluded), in the framework's argument order.
	Inputs    []*Variable
	Arguments []*Variable
	Outputs   []*Variable

	Parameters []*Parameter
	Constants  []*Parameter
	Attributes []Attribute

	BlockRoot *Node
}

// Output returns the node's primary output, or nil if it has none.
func (n *Node) Output() *Variable {
	if len(n.Outputs) == 0 {
		return nil
	}
	return n.Outputs[0]
}

// HasAttr reports whether the node carries the named attribute.
func (n *Node) HasAttr(name string) bool {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return true
		}
	}
	return false
}

// AttrInt returns an integer attribute, or the default when absent.
func (n *Node) AttrInt(name string, def int64) int64 {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return n.Attributes[i].I
		}
	}
	return def
}

// AttrInts returns an integer-list attribute, or nil when absent.
func (n *Node) AttrInts(name string) []int64 {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return n.Attributes[i].Ints
		}
	}
	return nil
}

// AttrBools returns a bool-list attribute, or nil when absent.
func (n *Node) AttrBools(name string) []bool {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return n.Attributes[i].Bools
		}
	}
	return nil
}

// FindParameter locates a parameter by name, falling back to a positional
// index when no parameter carries the name. This mirrors how the source
// framework's blocks expose their weights: named when exported normally,
// positional in stripped graphs.
func FindParameter(params []*Parameter, name string, fallback int) (*Parameter, error) {
	for _, p := range params {
		if p.Name == name {
			return p, nil
		}
	}
	if fallback >= 0 && fallback < len(params) {
		return params[fallback], nil
	}
	return nil, fmt.Errorf("no parameter named %q and no parameter at index %d", name, fallback)
}
