package graph

import "testing"

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

func TestComputeExecutionOrderIsTopologicalForAcyclicFlow(t *testing.T) {
	flow := &Flow{
		Nodes: []Node{{ID: "input"}, {ID: "system"}, {ID: "llm"}, {ID: "output"}},
		Connections: []Connection{
			{From: "input", To: "system"},
			{From: "system", To: "llm"},
			{From: "llm", To: "output"},
		},
	}
	groups := buildBridgeGroups(flow)
	order := computeExecutionOrder(flow, groups)

	if len(order) != 4 {
		t.Fatalf("expected 4 nodes in order, got %d: %v", len(order), order)
	}
	for _, conn := range flow.Connections {
		if indexOf(order, conn.From) >= indexOf(order, conn.To) {
			t.Errorf("expected %s before %s in order %v", conn.From, conn.To, order)
		}
	}
}

func TestComputeExecutionOrderExpandsBridgedTargets(t *testing.T) {
	// llm -> out1, bridge {out1, out2}: out2 must also follow llm in the order.
	flow := &Flow{
		Nodes:       []Node{{ID: "llm"}, {ID: "out1"}, {ID: "out2"}},
		Connections: []Connection{{From: "llm", To: "out1"}},
		Bridges:     []Bridge{{From: "out1", To: "out2"}},
	}
	groups := buildBridgeGroups(flow)
	order := computeExecutionOrder(flow, groups)

	if indexOf(order, "llm") >= indexOf(order, "out2") {
		t.Errorf("expected llm before out2 (bridge-expanded target), order=%v", order)
	}
}

func TestComputeExecutionOrderToleratesCycles(t *testing.T) {
	flow := &Flow{
		Nodes: []Node{{ID: "a"}, {ID: "b"}},
		Connections: []Connection{
			{From: "a", To: "b"},
			{From: "b", To: "a"},
		},
	}
	groups := buildBridgeGroups(flow)
	order := computeExecutionOrder(flow, groups)

	if len(order) != 2 {
		t.Fatalf("expected both nodes present despite the cycle, got %v", order)
	}
}

func TestBuildBridgeGroupsConnectedComponent(t *testing.T) {
	flow := &Flow{
		Nodes:   []Node{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "solo"}},
		Bridges: []Bridge{{From: "a", To: "b"}, {From: "b", To: "c"}},
	}
	groups := buildBridgeGroups(flow)

	if len(groups["a"]) != 3 {
		t.Fatalf("expected a's bridge group to contain 3 members, got %v", groups["a"])
	}
	if _, ok := groups["solo"]; ok {
		t.Fatalf("a node with no bridges should not appear in bridge groups")
	}
}
