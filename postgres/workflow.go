package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/workflow"
)

// CreateWorkflow saves a full diagram (nodes + edges) in one transaction.
// Nodes/edges without IDs get generated ones.
// An existing workflow with the same ID is replaced and its template dropped.
// Returns ErrDuplicateID if two nodes or two edges share an id and
// ErrCycleDetected if the diagram cannot be scheduled.
func (s *PGStore) CreateWorkflow(ctx context.Context, w *workflow.Workflow) (*workflow.Workflow, error) {
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
	if err := workflow.CheckAcyclic(w.Nodes, w.Edges, workflow.WithEntryID(s.entryID)); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("workflow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace semantics: the cascade clears nodes, edges and template.
	if _, err := tx.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, w.ID); err != nil {
		return nil, fmt.Errorf("workflow: delete workflow: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO workflows (id, name) VALUES ($1, $2)`, w.ID, w.Name); err != nil {
		return nil, fmt.Errorf("workflow: insert workflow: %w", err)
	}

	for _, n := range w.Nodes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO workflow_nodes (workflow_id, id, data) VALUES ($1, $2, $3)`,
			w.ID, n.ID, jsonOrEmpty(n.Data),
		); err != nil {
			return nil, fmt.Errorf("workflow: insert node %s: %w", n.ID, err)
		}
	}

	for _, e := range w.Edges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO workflow_edges (workflow_id, id, source, target, data) VALUES ($1, $2, $3, $4, $5)`,
			w.ID, e.ID, e.Source, e.Target, jsonOrEmpty(e.Data),
		); err != nil {
			return nil, fmt.Errorf("workflow: insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("workflow: commit: %w", err)
	}

	return w, nil
}

// GetWorkflow retrieves a full diagram (nodes + edges) by its ID.
// Returns nil, nil if the workflow doesn't exist.
func (s *PGStore) GetWorkflow(ctx context.Context, workflowID string) (*workflow.Workflow, error) {
	w := &workflow.Workflow{ID: workflowID}
	err := s.db.QueryRow(ctx, `SELECT name FROM workflows WHERE id = $1`, workflowID).Scan(&w.Name)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("workflow: get workflow: %w", err)
	}

	if w.Nodes, err = s.ListNodes(ctx, workflowID); err != nil {
		return nil, err
	}
	if w.Edges, err = s.ListEdges(ctx, workflowID); err != nil {
		return nil, err
	}
	return w, nil
}

// DeleteWorkflow removes a workflow with its nodes, edges and template.
// No error if the workflowID doesn't exist.
func (s *PGStore) DeleteWorkflow(ctx context.Context, workflowID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, workflowID); err != nil {
		return fmt.Errorf("workflow: delete workflow: %w", err)
	}
	return nil
}
