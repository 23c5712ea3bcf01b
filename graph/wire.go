package graph

import (
	"fmt"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire format for graph snapshots. Protobuf wire encoding, hand-mapped
// field numbers (no generated code; the messages never cross a schema
// registry, they are read back only by this package).
//
//	Graph    1: sequence, packed node indices   2: node (repeated message)
//	Node     1: name  2: op_name  3: is_block  4: input  5: argument
//	         6: output  7: parameter  8: constant  9: attribute
//	        10: block_root node index + 1 (0 = none)
//	Variable 1: name  2: shape, packed  3: owner node index + 1 (0 = none)
//	Param    1: name  2: value
//	Value    1: dtype  2: shape, packed  3: raw bytes
//	Attr     1: name  2: i  3: ints, packed  4: bools, packed
//
// Node references are indices into the flat node table, which holds every
// node reachable from the sequence (block internals and weight producers
// included), in discovery order.
const (
	graphSequenceField = 1
	graphNodeField     = 2

	nodeNameField      = 1
	nodeOpField        = 2
	nodeIsBlockField   = 3
	nodeInputField     = 4
	nodeArgumentField  = 5
	nodeOutputField    = 6
	nodeParameterField = 7
	nodeConstantField  = 8
	nodeAttributeField = 9
	nodeBlockRootField = 10

	varNameField  = 1
	varShapeField = 2
	varOwnerField = 3

	paramNameField  = 1
	paramValueField = 2

	valueDtypeField = 1
	valueShapeField = 2
	valueRawField   = 3

	attrNameField  = 1
	attrIField     = 2
	attrIntsField  = 3
	attrBoolsField = 4
)

// Marshal encodes a node sequence, and every node reachable from it, into
// the snapshot wire format.
func Marshal(nodes []*Node) ([]byte, error) {
	table, index := collectNodes(nodes)

	var buf []byte
	for _, n := range nodes {
		buf = protowire.AppendTag(buf, graphSequenceField, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(index[n]))
	}
	for _, n := range table {
		enc, err := appendNode(nil, n, index)
		if err != nil {
			return nil, err
		}
		buf = protowire.AppendTag(buf, graphNodeField, protowire.BytesType)
		buf = protowire.AppendBytes(buf, enc)
	}
	return buf, nil
}

// WriteFile marshals a node sequence and writes the snapshot to path.
func WriteFile(path string, nodes []*Node) error {
	data, err := Marshal(nodes)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// collectNodes flattens the sequence and everything reachable from it into
// a table, assigning each node a stable index in discovery order.
func collectNodes(nodes []*Node) ([]*Node, map[*Node]int) {
	var table []*Node
	index := make(map[*Node]int)

	var visit func(n *Node)
	visit = func(n *Node) {
		if n == nil {
			return
		}
		if _, seen := index[n]; seen {
			return
		}
		index[n] = len(table)
		table = append(table, n)
		for _, in := range n.Inputs {
			if in.Owner != nil {
				visit(in.Owner)
			}
		}
		visit(n.BlockRoot)
	}

	for _, n := range nodes {
		visit(n)
	}
	return table, index
}

func appendNode(buf []byte, n *Node, index map[*Node]int) ([]byte, error) {
	buf = protowire.AppendTag(buf, nodeNameField, protowire.BytesType)
	buf = protowire.AppendString(buf, n.Name)
	buf = protowire.AppendTag(buf, nodeOpField, protowire.BytesType)
	buf = protowire.AppendString(buf, n.OpName)
	if n.IsBlock {
		buf = protowire.AppendTag(buf, nodeIsBlockField, protowire.VarintType)
		buf = protowire.AppendVarint(buf, 1)
	}

	vars := []struct {
		field protowire.Number
		list  []*Variable
	}{
		{nodeInputField, n.Inputs},
		{nodeArgumentField, n.Arguments},
		{nodeOutputField, n.Outputs},
	}
	for _, group := range vars {
		for _, v := range group.list {
			enc, err := appendVariable(nil, v, index)
			if err != nil {
				return nil, err
			}
			buf = protowire.AppendTag(buf, group.field, protowire.BytesType)
			buf = protowire.AppendBytes(buf, enc)
		}
	}

	params := []struct {
		field protowire.Number
		list  []*Parameter
	}{
		{nodeParameterField, n.Parameters},
		{nodeConstantField, n.Constants},
	}
	for _, group := range params {
		for _, p := range group.list {
			buf = protowire.AppendTag(buf, group.field, protowire.BytesType)
			buf = protowire.AppendBytes(buf, appendParameter(nil, p))
		}
	}

	for i := range n.Attributes {
		buf = protowire.AppendTag(buf, nodeAttributeField, protowire.BytesType)
		buf = protowire.AppendBytes(buf, appendAttribute(nil, &n.Attributes[i]))
	}

	if n.BlockRoot != nil {
		idx, ok := index[n.BlockRoot]
		if !ok {
			return nil, fmt.Errorf("node %q: block root not in node table", n.Name)
		}
		buf = protowire.AppendTag(buf, nodeBlockRootField, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(idx)+1)
	}
	return buf, nil
}

func appendVariable(buf []byte, v *Variable, index map[*Node]int) ([]byte, error) {
	buf = protowire.AppendTag(buf, varNameField, protowire.BytesType)
	buf = protowire.AppendString(buf, v.Name)
	if len(v.Shape) > 0 {
		var packed []byte
		for _, d := range v.Shape {
			packed = protowire.AppendVarint(packed, uint64(d))
		}
		buf = protowire.AppendTag(buf, varShapeField, protowire.BytesType)
		buf = protowire.AppendBytes(buf, packed)
	}
	if v.Owner != nil {
		idx, ok := index[v.Owner]
		if !ok {
			return nil, fmt.Errorf("variable %q: owner not in node table", v.Name)
		}
		buf = protowire.AppendTag(buf, varOwnerField, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(idx)+1)
	}
	return buf, nil
}

func appendParameter(buf []byte, p *Parameter) []byte {
	buf = protowire.AppendTag(buf, paramNameField, protowire.BytesType)
	buf = protowire.AppendString(buf, p.Name)
	if p.Value != nil {
		var enc []byte
		enc = protowire.AppendTag(enc, valueDtypeField, protowire.VarintType)
		enc = protowire.AppendVarint(enc, uint64(p.Value.dtype))
		if len(p.Value.shape) > 0 {
			var packed []byte
			for _, d := range p.Value.shape {
				packed = protowire.AppendVarint(packed, uint64(d))
			}
			enc = protowire.AppendTag(enc, valueShapeField, protowire.BytesType)
			enc = protowire.AppendBytes(enc, packed)
		}
		enc = protowire.AppendTag(enc, valueRawField, protowire.BytesType)
		enc = protowire.AppendBytes(enc, p.Value.raw)

		buf = protowire.AppendTag(buf, paramValueField, protowire.BytesType)
		buf = protowire.AppendBytes(buf, enc)
	}
	return buf
}

func appendAttribute(buf []byte, a *Attribute) []byte {
	buf = protowire.AppendTag(buf, attrNameField, protowire.BytesType)
	buf = protowire.AppendString(buf, a.Name)
	buf = protowire.AppendTag(buf, attrIField, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(a.I))
	if len(a.Ints) > 0 {
		var packed []byte
		for _, v := range a.Ints {
			packed = protowire.AppendVarint(packed, uint64(v))
		}
		buf = protowire.AppendTag(buf, attrIntsField, protowire.BytesType)
		buf = protowire.AppendBytes(buf, packed)
	}
	if len(a.Bools) > 0 {
		var packed []byte
		for _, v := range a.Bools {
			var bit uint64
			if v {
				bit = 1
			}
			packed = protowire.AppendVarint(packed, bit)
		}
		buf = protowire.AppendTag(buf, attrBoolsField, protowire.BytesType)
		buf = protowire.AppendBytes(buf, packed)
	}
	return buf
}

// Unmarshal decodes a snapshot back into its node sequence, rebuilding
// owner and block-root links.
func Unmarshal(data []byte) ([]*Node, error) {
	var sequence []int
	var encoded [][]byte

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("bad graph tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case graphSequenceField:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("bad sequence index: %w", protowire.ParseError(n))
			}
			data = data[n:]
			sequence = append(sequence, int(v))
		case graphNodeField:
			enc, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("bad node message: %w", protowire.ParseError(n))
			}
			data = data[n:]
			encoded = append(encoded, enc)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("bad graph field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	// Two passes: allocate the table so index references resolve, then
	// decode each node against it.
	table := make([]*Node, len(encoded))
	for i := range table {
		table[i] = &Node{}
	}
	for i, enc := range encoded {
		if err := decodeNode(enc, table[i], table); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}

	nodes := make([]*Node, len(sequence))
	for i, idx := range sequence {
		if idx < 0 || idx >= len(table) {
			return nil, fmt.Errorf("sequence references node %d of %d", idx, len(table))
		}
		nodes[i] = table[idx]
	}
	return nodes, nil
}

// ReadFile loads a snapshot written by WriteFile.
func ReadFile(path string) ([]*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph snapshot: %w", err)
	}
	nodes, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode graph snapshot %s: %w", path, err)
	}
	return nodes, nil
}

func decodeNode(data []byte, node *Node, table []*Node) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("bad node tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case nodeNameField, nodeOpField:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("bad node string: %w", protowire.ParseError(n))
			}
			data = data[n:]
			if num == nodeNameField {
				node.Name = s
			} else {
				node.OpName = s
			}
		case nodeIsBlockField:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("bad is_block: %w", protowire.ParseError(n))
			}
			data = data[n:]
			node.IsBlock = v != 0
		case nodeInputField, nodeArgumentField, nodeOutputField:
			enc, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("bad variable message: %w", protowire.ParseError(n))
			}
			data = data[n:]
			v, err := decodeVariable(enc, table)
			if err != nil {
				return err
			}
			switch num {
			case nodeInputField:
				node.Inputs = append(node.Inputs, v)
			case nodeArgumentField:
				node.Arguments = append(node.Arguments, v)
			default:
				node.Outputs = append(node.Outputs, v)
			}
		case nodeParameterField, nodeConstantField:
			enc, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("bad parameter message: %w", protowire.ParseError(n))
			}
			data = data[n:]
			p, err := decodeParameter(enc)
			if err != nil {
				return err
			}
			if num == nodeParameterField {
				node.Parameters = append(node.Parameters, p)
			} else {
				node.Constants = append(node.Constants, p)
			}
		case nodeAttributeField:
			enc, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("bad attribute message: %w", protowire.ParseError(n))
			}
			data = data[n:]
			a, err := decodeAttribute(enc)
			if err != nil {
				return err
			}
			node.Attributes = append(node.Attributes, a)
		case nodeBlockRootField:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("bad block root: %w", protowire.ParseError(n))
			}
			data = data[n:]
			if v > 0 {
				idx := int(v) - 1
				if idx >= len(table) {
					return fmt.Errorf("block root references node %d of %d", idx, len(table))
				}
				node.BlockRoot = table[idx]
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("bad node field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}

func decodeVariable(data []byte, table []*Node) (*Variable, error) {
	v := &Variable{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("bad variable tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case varNameField:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("bad variable name: %w", protowire.ParseError(n))
			}
			data = data[n:]
			v.Name = s
		case varShapeField:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("bad variable shape: %w", protowire.ParseError(n))
			}
			data = data[n:]
			shape, err := decodePackedInts(packed)
			if err != nil {
				return nil, err
			}
			v.Shape = make(Shape, len(shape))
			for i, d := range shape {
				v.Shape[i] = int(d)
			}
		case varOwnerField:
			idx, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("bad variable owner: %w", protowire.ParseError(n))
			}
			data = data[n:]
			if idx > 0 {
				i := int(idx) - 1
				if i >= len(table) {
					return nil, fmt.Errorf("variable owner references node %d of %d", i, len(table))
				}
				v.Owner = table[i]
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("bad variable field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return v, nil
}

func decodeParameter(data []byte) (*Parameter, error) {
	p := &Parameter{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("bad parameter tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case paramNameField:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("bad parameter name: %w", protowire.ParseError(n))
			}
			data = data[n:]
			p.Name = s
		case paramValueField:
			enc, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("bad value message: %w", protowire.ParseError(n))
			}
			data = data[n:]
			v, err := decodeValue(enc)
			if err != nil {
				return nil, err
			}
			p.Value = v
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("bad parameter field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return p, nil
}

func decodeValue(data []byte) (*Value, error) {
	var dtype DataType
	var shape Shape
	var raw []byte

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("bad value tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case valueDtypeField:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("bad value dtype: %w", protowire.ParseError(n))
			}
			data = data[n:]
			dtype = DataType(v)
		case valueShapeField:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("bad value shape: %w", protowire.ParseError(n))
			}
			data = data[n:]
			dims, err := decodePackedInts(packed)
			if err != nil {
				return nil, err
			}
			shape = make(Shape, len(dims))
			for i, d := range dims {
				shape[i] = int(d)
			}
		case valueRawField:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("bad value data: %w", protowire.ParseError(n))
			}
			data = data[n:]
			raw = append([]byte(nil), b...)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("bad value field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return NewValue(dtype, shape, raw)
}

func decodeAttribute(data []byte) (Attribute, error) {
	var a Attribute
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return a, fmt.Errorf("bad attribute tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case attrNameField:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return a, fmt.Errorf("bad attribute name: %w", protowire.ParseError(n))
			}
			data = data[n:]
			a.Name = s
		case attrIField:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return a, fmt.Errorf("bad attribute int: %w", protowire.ParseError(n))
			}
			data = data[n:]
			a.I = int64(v)
		case attrIntsField:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return a, fmt.Errorf("bad attribute ints: %w", protowire.ParseError(n))
			}
			data = data[n:]
			ints, err := decodePackedInts(packed)
			if err != nil {
				return a, err
			}
			a.Ints = ints
		case attrBoolsField:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return a, fmt.Errorf("bad attribute bools: %w", protowire.ParseError(n))
			}
			data = data[n:]
			ints, err := decodePackedInts(packed)
			if err != nil {
				return a, err
			}
			a.Bools = make([]bool, len(ints))
			for i, v := range ints {
				a.Bools[i] = v != 0
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return a, fmt.Errorf("bad attribute field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return a, nil
}

func decodePackedInts(packed []byte) ([]int64, error) {
	var out []int64
	for len(packed) > 0 {
		v, n := protowire.ConsumeVarint(packed)
		if n < 0 {
			return nil, fmt.Errorf("bad packed varint: %w", protowire.ParseError(n))
		}
		packed = packed[n:]
		out = append(out, int64(v))
	}
	return out, nil
}
