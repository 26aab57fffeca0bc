package workflow

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrWorkflowNotFound = errors.New("workflow: workflow not found")
	ErrNodeNotFound     = errors.New("workflow: node not found")
	ErrEdgeNotFound     = errors.New("workflow: edge not found")
	ErrTemplateNotFound = errors.New("workflow: template not found")
	ErrDuplicateID      = errors.New("workflow: duplicate id")
)

// Store defines the contract for persisting diagrams and their compiled templates.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Workflow (bulk operations)
	CreateWorkflow(ctx context.Context, w *Workflow) (*Workflow, error)
	GetWorkflow(ctx context.Context, workflowID string) (*Workflow, error)
	DeleteWorkflow(ctx context.Context, workflowID string) error

	// Nodes
	AddNode(ctx context.Context, workflowID string, node *Node) (string, error)
	GetNode(ctx context.Context, workflowID, nodeID string) (*Node, error)
	UpdateNode(ctx context.Context, workflowID string, node *Node) error
	DeleteNode(ctx context.Context, workflowID, nodeID string) error
	ListNodes(ctx context.Context, workflowID string) ([]Node, error)

	// Edges
	AddEdge(ctx context.Context, workflowID string, edge *Edge) (string, error)
	GetEdge(ctx context.Context, workflowID, edgeID string) (*Edge, error)
	UpdateEdge(ctx context.Context, workflowID string, edge *Edge) error
	DeleteEdge(ctx context.Context, workflowID, edgeID string) error
	ListEdges(ctx context.Context, workflowID string) ([]Edge, error)

	// Templates
	SaveTemplate(ctx context.Context, workflowID string, t *Template) error
	GetTemplate(ctx context.Context, workflowID string) (*Template, error)
}

// CheckAcyclic reports ErrCycleDetected when the steps of the given diagram
// cannot be scheduled. Stores call it before accepting an edge change.
func CheckAcyclic(nodes []Node, edges []Edge, opts ...Option) error {
	_, err := Compile(nodes, edges, opts...)
	return err
}

// CheckUniqueIDs reports ErrDuplicateID when two nodes or two edges of w
// share an id.
func CheckUniqueIDs(w *Workflow) error {
	seen := make(map[string]bool, len(w.Nodes))
	for _, n := range w.Nodes {
		if seen[n.ID] {
			return fmt.Errorf("%w: node %q", ErrDuplicateID, n.ID)
		}
		seen[n.ID] = true
	}
	clear(seen)
	for _, e := range w.Edges {
		if seen[e.ID] {
			return fmt.Errorf("%w: edge %q", ErrDuplicateID, e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}
