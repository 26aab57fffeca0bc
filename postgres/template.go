package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/workflow"
)

// SaveTemplate stores the compiled template of a workflow, replacing any
// previous one. Returns ErrWorkflowNotFound if the workflow doesn't exist.
func (s *PGStore) SaveTemplate(ctx context.Context, workflowID string, t *workflow.Template) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("workflow: encode template: %w", err)
	}
	fp, err := t.Fingerprint()
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO workflow_templates (workflow_id, fingerprint, template) VALUES ($1, $2, $3)
		 ON CONFLICT (workflow_id) DO UPDATE
		 SET fingerprint = EXCLUDED.fingerprint, template = EXCLUDED.template, compiled_at = NOW()`,
		workflowID, fp, string(data),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return workflow.ErrWorkflowNotFound
		}
		return fmt.Errorf("workflow: save template: %w", err)
	}
	return nil
}

// GetTemplate loads and validates the stored template of a workflow.
// Returns ErrTemplateNotFound if the workflow was never compiled.
func (s *PGStore) GetTemplate(ctx context.Context, workflowID string) (*workflow.Template, error) {
	var data string
	err := s.db.QueryRow(ctx,
		`SELECT template::text FROM workflow_templates WHERE workflow_id = $1`, workflowID,
	).Scan(&data)
	if err != nil {
		if isNoRows(err) {
			return nil, workflow.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("workflow: get template: %w", err)
	}

	var t workflow.Template
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("workflow: decode template: %w", err)
	}
	if err := workflow.Validate(&t); err != nil {
		return nil, fmt.Errorf("workflow: stored template for %s: %w", workflowID, err)
	}
	return &t, nil
}
