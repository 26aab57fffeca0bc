package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/workflow"
)

// AddNode inserts a single node into a workflow.
// If node.ID is empty, an ID is generated.
// Returns ErrWorkflowNotFound if the workflow doesn't exist.
func (s *PGStore) AddNode(ctx context.Context, workflowID string, node *workflow.Node) (string, error) {
	if node.ID == "" {
		node.ID = s.ids.NextID()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO workflow_nodes (workflow_id, id, data) VALUES ($1, $2, $3)`,
		workflowID, node.ID, jsonOrEmpty(node.Data),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return "", workflow.ErrWorkflowNotFound
		}
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: node %q", workflow.ErrDuplicateID, node.ID)
		}
		return "", fmt.Errorf("workflow: insert node: %w", err)
	}

	return node.ID, nil
}

// GetNode fetches a single node.
// Returns nil, nil if not found.
func (s *PGStore) GetNode(ctx context.Context, workflowID, nodeID string) (*workflow.Node, error) {
	var n workflow.Node
	err := s.db.QueryRow(ctx,
		`SELECT id, data FROM workflow_nodes WHERE workflow_id = $1 AND id = $2`, workflowID, nodeID,
	).Scan(&n.ID, &n.Data)

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("workflow: get node: %w", err)
	}

	return &n, nil
}

// UpdateNode replaces the data of an existing node.
// Returns ErrNodeNotFound if the node doesn't exist.
func (s *PGStore) UpdateNode(ctx context.Context, workflowID string, node *workflow.Node) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE workflow_nodes SET data = $1 WHERE workflow_id = $2 AND id = $3`,
		jsonOrEmpty(node.Data), workflowID, node.ID,
	)
	if err != nil {
		return fmt.Errorf("workflow: update node: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return workflow.ErrNodeNotFound
	}
	return nil
}

// DeleteNode deletes a node and every edge touching it.
// No error if the node doesn't exist.
func (s *PGStore) DeleteNode(ctx context.Context, workflowID, nodeID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("workflow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM workflow_edges WHERE workflow_id = $1 AND (source = $2 OR target = $2)`,
		workflowID, nodeID,
	); err != nil {
		return fmt.Errorf("workflow: delete node edges: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM workflow_nodes WHERE workflow_id = $1 AND id = $2`, workflowID, nodeID,
	); err != nil {
		return fmt.Errorf("workflow: delete node: %w", err)
	}

	return tx.Commit(ctx)
}

// ListNodes returns all nodes of a workflow in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListNodes(ctx context.Context, workflowID string) ([]workflow.Node, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, data FROM workflow_nodes WHERE workflow_id = $1 ORDER BY seq`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("workflow: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []workflow.Node{}
	for rows.Next() {
		var n workflow.Node
		if err := rows.Scan(&n.ID, &n.Data); err != nil {
			return nil, fmt.Errorf("workflow: scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workflow: rows nodes: %w", err)
	}

	return nodes, nil
}
