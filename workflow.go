package workflow

import "encoding/json"

// DefaultEntryID is the id of the synthetic node a diagram uses to mark where
// the workflow starts. It never becomes a step.
const DefaultEntryID = "start"

// Workflow is a diagram as authored on the canvas: nodes plus the edges
// between them.
type Workflow struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node represents a step box on the diagram.
// Data is kept opaque here and decoded by DecodeNodeData when compiling.
type Node struct {
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

// Edge represents a directed connection between two nodes.
// Target depends on Source.
type Edge struct {
	ID     string          `json:"id,omitempty"`
	Source string          `json:"source"`
	Target string          `json:"target"`
	Data   json.RawMessage `json:"data,omitempty"`
}
