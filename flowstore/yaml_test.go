package flowstore

import (
	"testing"

	"github.com/flowrunner/flowrunner/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLRoundTrip(t *testing.T) {
	original := []*graph.Flow{
		{
			ID:   "f1",
			Name: "greeter",
			Nodes: []graph.Node{
				{ID: "n1", Name: "start", ModuleID: "logic", NodeTypeID: "trigger_node"},
				{ID: "n2", Name: "say-hi", ModuleID: "llm", NodeTypeID: "chat_node", Config: graph.Map{"model": "mock"}},
			},
			Connections: []graph.Connection{{From: "n1", To: "n2"}},
			Bridges:     []graph.Bridge{{From: "n1", To: "n2"}},
		},
	}

	data, err := MarshalYAML(original)
	require.NoError(t, err)

	back, err := UnmarshalYAML(data)
	require.NoError(t, err)
	require.Len(t, back, 1)

	got := back[0]
	assert.Equal(t, "f1", got.ID)
	assert.Equal(t, "greeter", got.Name)
	require.Len(t, got.Nodes, 2)
	assert.Equal(t, "mock", got.Nodes[1].Config["model"])
	assert.Len(t, got.Connections, 1)
	assert.Len(t, got.Bridges, 1)
}
