package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/workflow"
)

// AddEdge inserts a single edge into a workflow.
// If edge.ID is empty, an ID is generated.
// Validates that the workflow still compiles with the new edge.
// Returns the edge ID (generated or provided).
func (s *PGStore) AddEdge(ctx context.Context, workflowID string, edge *workflow.Edge) (string, error) {
	if edge.ID == "" {
		edge.ID = s.ids.NextID()
	}

	// Fetch existing edges + nodes for cycle detection.
	nodes, err := s.ListNodes(ctx, workflowID)
	if err != nil {
		return "", err
	}
	edges, err := s.ListEdges(ctx, workflowID)
	if err != nil {
		return "", err
	}

	edges = append(edges, *edge)
	if err := workflow.CheckAcyclic(nodes, edges, workflow.WithEntryID(s.entryID)); err != nil {
		return "", err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO workflow_edges (workflow_id, id, source, target, data) VALUES ($1, $2, $3, $4, $5)`,
		workflowID, edge.ID, edge.Source, edge.Target, jsonOrEmpty(edge.Data),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return "", workflow.ErrWorkflowNotFound
		}
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: edge %q", workflow.ErrDuplicateID, edge.ID)
		}
		return "", fmt.Errorf("workflow: insert edge: %w", err)
	}

	return edge.ID, nil
}

// GetEdge fetches a single edge.
// Returns nil, nil if not found.
func (s *PGStore) GetEdge(ctx context.Context, workflowID, edgeID string) (*workflow.Edge, error) {
	var e workflow.Edge
	err := s.db.QueryRow(ctx,
		`SELECT id, source, target, data FROM workflow_edges WHERE workflow_id = $1 AND id = $2`, workflowID, edgeID,
	).Scan(&e.ID, &e.Source, &e.Target, &e.Data)

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("workflow: get edge: %w", err)
	}

	return &e, nil
}

// UpdateEdge updates an existing edge's source, target, and data.
// Validates that the update does not create a cycle.
// Returns ErrEdgeNotFound if the edge doesn't exist.
func (s *PGStore) UpdateEdge(ctx context.Context, workflowID string, edge *workflow.Edge) error {
	nodes, err := s.ListNodes(ctx, workflowID)
	if err != nil {
		return err
	}
	edges, err := s.ListEdges(ctx, workflowID)
	if err != nil {
		return err
	}

	found := false
	for i, e := range edges {
		if e.ID == edge.ID {
			edges[i].Source = edge.Source
			edges[i].Target = edge.Target
			found = true
			break
		}
	}
	if !found {
		return workflow.ErrEdgeNotFound
	}

	if err := workflow.CheckAcyclic(nodes, edges, workflow.WithEntryID(s.entryID)); err != nil {
		return err
	}

	ct, err := s.db.Exec(ctx,
		`UPDATE workflow_edges SET source = $1, target = $2, data = $3 WHERE workflow_id = $4 AND id = $5`,
		edge.Source, edge.Target, jsonOrEmpty(edge.Data), workflowID, edge.ID,
	)
	if err != nil {
		return fmt.Errorf("workflow: update edge: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return workflow.ErrEdgeNotFound
	}
	return nil
}

// DeleteEdge deletes an edge.
// No error if the edge doesn't exist.
func (s *PGStore) DeleteEdge(ctx context.Context, workflowID, edgeID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM workflow_edges WHERE workflow_id = $1 AND id = $2`, workflowID, edgeID)
	if err != nil {
		return fmt.Errorf("workflow: delete edge: %w", err)
	}
	return nil
}

// ListEdges returns all edges of a workflow in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListEdges(ctx context.Context, workflowID string) ([]workflow.Edge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, source, target, data FROM workflow_edges WHERE workflow_id = $1 ORDER BY seq`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("workflow: list edges: %w", err)
	}
	defer rows.Close()

	edges := []workflow.Edge{}
	for rows.Next() {
		var e workflow.Edge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.Data); err != nil {
			return nil, fmt.Errorf("workflow: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workflow: rows edges: %w", err)
	}

	return edges, nil
}
