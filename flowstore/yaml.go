package flowstore

import (
	"github.com/flowrunner/flowrunner/graph"
	yaml "go.yaml.in/yaml/v2"
)

// yamlFlowFile is the on-disk shape for flow import/export bundles
// (spec.md §4.D "import/export as YAML for human-editable flow
// definitions"), kept separate from graph.Flow so its field names follow
// YAML-community snake_case instead of the JSON API's camelCase.
type yamlFlowFile struct {
	Flows []yamlFlow `yaml:"flows"`
}

type yamlFlow struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Nodes       []yamlNode       `yaml:"nodes"`
	Connections []yamlConnection `yaml:"connections"`
	Bridges     []yamlBridge     `yaml:"bridges,omitempty"`
}

type yamlNode struct {
	ID         string    `yaml:"id"`
	Name       string    `yaml:"name"`
	ModuleID   string    `yaml:"module_id"`
	NodeTypeID string    `yaml:"node_type_id"`
	Config     graph.Map `yaml:"config,omitempty"`
}

type yamlConnection struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type yamlBridge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// MarshalYAML renders flows as a human-editable bundle suitable for
// version control, the YAML counterpart of Export.
func MarshalYAML(flows []*graph.Flow) ([]byte, error) {
	file := yamlFlowFile{Flows: make([]yamlFlow, 0, len(flows))}
	for _, f := range flows {
		yf := yamlFlow{ID: f.ID, Name: f.Name}
		for _, n := range f.Nodes {
			yf.Nodes = append(yf.Nodes, yamlNode{
				ID: n.ID, Name: n.Name, ModuleID: n.ModuleID, NodeTypeID: n.NodeTypeID, Config: n.Config,
			})
		}
		for _, c := range f.Connections {
			yf.Connections = append(yf.Connections, yamlConnection{From: c.From, To: c.To})
		}
		for _, b := range f.Bridges {
			yf.Bridges = append(yf.Bridges, yamlBridge{From: b.From, To: b.To})
		}
		file.Flows = append(file.Flows, yf)
	}
	return yaml.Marshal(file)
}

// UnmarshalYAML parses a bundle produced by MarshalYAML (or hand-written
// in the same shape) back into Flows suitable for Store.Import.
func UnmarshalYAML(data []byte) ([]*graph.Flow, error) {
	var file yamlFlowFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	out := make([]*graph.Flow, 0, len(file.Flows))
	for _, yf := range file.Flows {
		f := &graph.Flow{ID: yf.ID, Name: yf.Name}
		for _, n := range yf.Nodes {
			f.Nodes = append(f.Nodes, graph.Node{
				ID: n.ID, Name: n.Name, ModuleID: n.ModuleID, NodeTypeID: n.NodeTypeID, Config: n.Config,
			})
		}
		for _, c := range yf.Connections {
			f.Connections = append(f.Connections, graph.Connection{From: c.From, To: c.To})
		}
		for _, b := range yf.Bridges {
			f.Bridges = append(f.Bridges, graph.Bridge{From: b.From, To: b.To})
		}
		out = append(out, f)
	}
	return out, nil
}
