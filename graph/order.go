package graph

// buildBridgeGroups computes undirected connected components over the
// Flow's Bridges, exactly as original_source's `_build_bridge_groups`:
// each member of a bridged pair maps to the full component it belongs to
// (including itself), via a plain BFS over an adjacency map built from
// bridge pairs whose endpoints are both real nodes in the flow.
func buildBridgeGroups(f *Flow) map[string][]string {
	nodeIDs := f.nodeByID()
	adj := make(map[string][]string, len(nodeIDs))
	for id := range nodeIDs {
		adj[id] = nil
	}
	for _, b := range f.Bridges {
		_, okFrom := nodeIDs[b.From]
		_, okTo := nodeIDs[b.To]
		if !okFrom || !okTo {
			continue
		}
		adj[b.From] = append(adj[b.From], b.To)
		adj[b.To] = append(adj[b.To], b.From)
	}

	groups := make(map[string][]string)
	visited := make(map[string]bool, len(nodeIDs))
	for id := range nodeIDs {
		if visited[id] || len(adj[id]) == 0 {
			continue
		}
		var component []string
		queue := []string{id}
		visited[id] = true
		for len(queue) > 0 {
			curr := queue[0]
			queue = queue[1:]
			component = append(component, curr)
			for _, neighbor := range adj[curr] {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue = append(queue, neighbor)
				}
			}
		}
		for _, member := range component {
			groups[member] = component
		}
	}
	return groups
}

// computeExecutionOrder performs a topological sort via Kahn's algorithm,
// folding bridge groups into the adjacency the same way original_source
// does: a connection into a bridged node is treated as feeding every
// member of that node's bridge group. When a cycle prevents a full
// topological sort, the remainder is resolved by repeatedly picking the
// first not-yet-ordered node (an arbitrary but deterministic break),
// simulating its completion, and draining anything that frees up —
// matching `_compute_execution_order`'s cycle-tolerant fallback exactly,
// including its node-declaration-order tie-break.
func computeExecutionOrder(f *Flow, bridgeGroups map[string][]string) []string {
	nodeIDs := make([]string, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		nodeIDs = append(nodeIDs, n.ID)
	}

	adj := make(map[string][]string, len(nodeIDs))
	inDegree := make(map[string]int, len(nodeIDs))
	for _, id := range nodeIDs {
		adj[id] = nil
		inDegree[id] = 0
	}

	hasEdge := make(map[[2]string]bool)
	for _, conn := range f.Connections {
		source, target := conn.From, conn.To
		targets := []string{target}
		if group, ok := bridgeGroups[target]; ok {
			targets = group
		}
		for _, t := range targets {
			if t == source {
				continue
			}
			key := [2]string{source, t}
			if hasEdge[key] {
				continue
			}
			hasEdge[key] = true
			adj[source] = append(adj[source], t)
			inDegree[t]++
		}
	}

	var queue []string
	for _, id := range nodeIDs {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var order []string
	pop := func() string {
		u := queue[0]
		queue = queue[1:]
		return u
	}
	drain := func() {
		for len(queue) > 0 {
			u := pop()
			order = append(order, u)
			for _, v := range adj[u] {
				inDegree[v]--
				if inDegree[v] == 0 {
					queue = append(queue, v)
				}
			}
		}
	}
	drain()

	if len(order) != len(nodeIDs) {
		ordered := make(map[string]bool, len(order))
		for _, id := range order {
			ordered[id] = true
		}

		for len(order) < len(nodeIDs) {
			var next string
			found := false
			for _, id := range nodeIDs {
				if !ordered[id] {
					next = id
					found = true
					break
				}
			}
			if !found {
				break
			}
			order = append(order, next)
			ordered[next] = true

			for _, v := range adj[next] {
				inDegree[v]--
				if inDegree[v] == 0 && !ordered[v] {
					queue = append(queue, v)
				}
			}
			for len(queue) > 0 {
				u := pop()
				if ordered[u] {
					continue
				}
				order = append(order, u)
				ordered[u] = true
				for _, v := range adj[u] {
					inDegree[v]--
					if inDegree[v] == 0 {
						queue = append(queue, v)
					}
				}
			}
		}
	}

	return order
}
