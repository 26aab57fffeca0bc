package postgres

import "context"

// Edges are not tied to nodes by foreign key: a diagram may hold an edge whose
// end has not been drawn yet. The compiler drops such edges.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS workflows (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS workflow_nodes (
    workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    seq         BIGSERIAL,
    data        JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (workflow_id, id)
);

CREATE TABLE IF NOT EXISTS workflow_edges (
    workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    seq         BIGSERIAL,
    source      TEXT NOT NULL,
    target      TEXT NOT NULL,
    data        JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (workflow_id, id)
);

CREATE TABLE IF NOT EXISTS workflow_templates (
    workflow_id TEXT PRIMARY KEY REFERENCES workflows(id) ON DELETE CASCADE,
    fingerprint TEXT NOT NULL,
    template    JSON NOT NULL,
    compiled_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_workflow_nodes_seq   ON workflow_nodes(workflow_id, seq);
CREATE INDEX IF NOT EXISTS idx_workflow_edges_seq   ON workflow_edges(workflow_id, seq);
CREATE INDEX IF NOT EXISTS idx_workflow_edges_ends  ON workflow_edges(workflow_id, source, target);
`

// CreateSchema creates the workflow tables if they don't exist.
// Templates are stored as JSON, not JSONB, so step order survives a round trip.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops all workflow tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS workflow_templates, workflow_edges, workflow_nodes, workflows CASCADE;`)
	return err
}
