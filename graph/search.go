package graph

// Search walks the sub-graph reachable from root through input edges and
// block roots, depth first, and returns every node satisfying pred in
// visit order. A nil root yields nil.
func Search(root *Node, pred func(*Node) bool) []*Node {
	var found []*Node
	visited := make(map[*Node]bool)

	var visit func(n *Node)
	visit = func(n *Node) {
		if n == nil || visited[n] {
			return
		}
		visited[n] = true
		if pred(n) {
			found = append(found, n)
		}
		for _, in := range n.Inputs {
			if in.Owner != nil {
				visit(in.Owner)
			}
		}
		visit(n.BlockRoot)
	}

	visit(root)
	return found
}

// Subgraph returns every node reachable from root, depth first. It is the
// traversal used to inspect a block's internal operations.
func Subgraph(root *Node) []*Node {
	return Search(root, func(*Node) bool { return true })
}
