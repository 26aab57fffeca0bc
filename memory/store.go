// Package memory provides a thread-safe, in-memory implementation of
// workflow.Store.
//
// It keeps every diagram in insertion order and hands out copies, so callers
// never share slices with the store. Templates are kept in their JSON form and
// decoded on every read. Nothing survives the process; use it for tests,
// examples and single-instance development servers.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/meikuraledutech/workflow"
)

type record struct {
	name     string
	nodes    []workflow.Node
	edges    []workflow.Edge
	template []byte
}

// Store is an in-memory workflow.Store guarded by a single RWMutex.
type Store struct {
	mu        sync.RWMutex
	workflows map[string]*record
	ids       workflow.IDGenerator
	entryID   string
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets the generator used for records saved without an ID.
func WithIDGenerator(g workflow.IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithEntryID sets the entry marker id used when checking edges for cycles.
func WithEntryID(id string) Option {
	return func(s *Store) { s.entryID = id }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		workflows: make(map[string]*record),
		ids:       workflow.UUIDGenerator{},
		entryID:   workflow.DefaultEntryID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSchema is a no-op.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema removes every workflow.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows = make(map[string]*record)
	return nil
}

// CreateWorkflow saves a full diagram, replacing any workflow with the same ID.
func (s *Store) CreateWorkflow(ctx context.Context, w *workflow.Workflow) (*workflow.Workflow, error) {
	if w.ID == "" {
		w.ID = s.ids.NextID()
	}
	for i := range w.Nodes {
		if w.Nodes[i].ID == "" {
			w.Nodes[i].ID = s.ids.NextID()
		}
	}
	for i := range w.Edges {
		if w.Edges[i].ID == "" {
			w.Edges[i].ID = s.ids.NextID()
		}
	}
	if err := workflow.CheckUniqueIDs(w); err != nil {
		return nil, err
	}
	if err := s.checkAcyclic(w.Nodes, w.Edges); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[strings.Clone(w.ID)] = &record{
		name:  strings.Clone(w.Name),
		nodes: cloneNodes(w.Nodes),
		edges: cloneEdges(w.Edges),
	}
	return w, nil
}

// GetWorkflow returns nil, nil if the workflow doesn't exist.
func (s *Store) GetWorkflow(ctx context.Context, workflowID string) (*workflow.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return nil, nil
	}
	return &workflow.Workflow{
		ID:    workflowID,
		Name:  r.name,
		Nodes: cloneNodes(r.nodes),
		Edges: cloneEdges(r.edges),
	}, nil
}

func (s *Store) DeleteWorkflow(ctx context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, workflowID)
	return nil
}

func (s *Store) AddNode(ctx context.Context, workflowID string, node *workflow.Node) (string, error) {
	if node.ID == "" {
		node.ID = s.ids.NextID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return "", workflow.ErrWorkflowNotFound
	}
	if slices.ContainsFunc(r.nodes, func(n workflow.Node) bool { return n.ID == node.ID }) {
		return "", fmt.Errorf("%w: node %q", workflow.ErrDuplicateID, node.ID)
	}
	r.nodes = append(r.nodes, cloneNode(*node))
	return node.ID, nil
}

// GetNode returns nil, nil if not found.
func (s *Store) GetNode(ctx context.Context, workflowID, nodeID string) (*workflow.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return nil, nil
	}
	for _, n := range r.nodes {
		if n.ID == nodeID {
			c := cloneNode(n)
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateNode(ctx context.Context, workflowID string, node *workflow.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return workflow.ErrNodeNotFound
	}
	for i := range r.nodes {
		if r.nodes[i].ID == node.ID {
			r.nodes[i] = cloneNode(*node)
			return nil
		}
	}
	return workflow.ErrNodeNotFound
}

// DeleteNode removes the node and every edge touching it.
func (s *Store) DeleteNode(ctx context.Context, workflowID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return nil
	}
	r.nodes = slices.DeleteFunc(r.nodes, func(n workflow.Node) bool { return n.ID == nodeID })
	r.edges = slices.DeleteFunc(r.edges, func(e workflow.Edge) bool {
		return e.Source == nodeID || e.Target == nodeID
	})
	return nil
}

func (s *Store) ListNodes(ctx context.Context, workflowID string) ([]workflow.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return []workflow.Node{}, nil
	}
	return cloneNodes(r.nodes), nil
}

// AddEdge rejects an edge that would make the workflow uncompilable.
func (s *Store) AddEdge(ctx context.Context, workflowID string, edge *workflow.Edge) (string, error) {
	if edge.ID == "" {
		edge.ID = s.ids.NextID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return "", workflow.ErrWorkflowNotFound
	}
	if slices.ContainsFunc(r.edges, func(e workflow.Edge) bool { return e.ID == edge.ID }) {
		return "", fmt.Errorf("%w: edge %q", workflow.ErrDuplicateID, edge.ID)
	}
	edges := append(cloneEdges(r.edges), cloneEdge(*edge))
	if err := s.checkAcyclic(r.nodes, edges); err != nil {
		return "", err
	}
	r.edges = edges
	return edge.ID, nil
}

// GetEdge returns nil, nil if not found.
func (s *Store) GetEdge(ctx context.Context, workflowID, edgeID string) (*workflow.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return nil, nil
	}
	for _, e := range r.edges {
		if e.ID == edgeID {
			c := cloneEdge(e)
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateEdge(ctx context.Context, workflowID string, edge *workflow.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return workflow.ErrEdgeNotFound
	}
	i := slices.IndexFunc(r.edges, func(e workflow.Edge) bool { return e.ID == edge.ID })
	if i < 0 {
		return workflow.ErrEdgeNotFound
	}
	edges := cloneEdges(r.edges)
	edges[i] = cloneEdge(*edge)
	if err := s.checkAcyclic(r.nodes, edges); err != nil {
		return err
	}
	r.edges = edges
	return nil
}

func (s *Store) DeleteEdge(ctx context.Context, workflowID, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.workflows[workflowID]; ok {
		r.edges = slices.DeleteFunc(r.edges, func(e workflow.Edge) bool { return e.ID == edgeID })
	}
	return nil
}

func (s *Store) ListEdges(ctx context.Context, workflowID string) ([]workflow.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return []workflow.Edge{}, nil
	}
	return cloneEdges(r.edges), nil
}

func (s *Store) SaveTemplate(ctx context.Context, workflowID string, t *workflow.Template) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("workflow: encode template: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return workflow.ErrWorkflowNotFound
	}
	r.template = data
	return nil
}

func (s *Store) GetTemplate(ctx context.Context, workflowID string) (*workflow.Template, error) {
	s.mu.RLock()
	r, ok := s.workflows[workflowID]
	var data []byte
	if ok {
		data = r.template
	}
	s.mu.RUnlock()
	if data == nil {
		return nil, workflow.ErrTemplateNotFound
	}

	var t workflow.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("workflow: decode template: %w", err)
	}
	if err := workflow.Validate(&t); err != nil {
		return nil, fmt.Errorf("workflow: stored template for %s: %w", workflowID, err)
	}
	return &t, nil
}

func (s *Store) checkAcyclic(nodes []workflow.Node, edges []workflow.Edge) error {
	return workflow.CheckAcyclic(nodes, edges, workflow.WithEntryID(s.entryID))
}

func cloneNode(n workflow.Node) workflow.Node {
	n.ID = strings.Clone(n.ID)
	n.Data = slices.Clone(n.Data)
	return n
}

func cloneNodes(nodes []workflow.Node) []workflow.Node {
	out := make([]workflow.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, cloneNode(n))
	}
	return out
}

func cloneEdge(e workflow.Edge) workflow.Edge {
	e.ID = strings.Clone(e.ID)
	e.Source = strings.Clone(e.Source)
	e.Target = strings.Clone(e.Target)
	e.Data = slices.Clone(e.Data)
	return e
}

func cloneEdges(edges []workflow.Edge) []workflow.Edge {
	out := make([]workflow.Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, cloneEdge(e))
	}
	return out
}
