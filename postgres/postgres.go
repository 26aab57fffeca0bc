package postgres

import (
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/workflow"
)

// PGStore implements workflow.Store using PostgreSQL via pgx.
type PGStore struct {
	db      *pgxpool.Pool
	ids     workflow.IDGenerator
	entryID string
}

// Option configures a PGStore.
type Option func(*PGStore)

// WithIDGenerator sets the generator used for nodes and edges saved without an ID.
func WithIDGenerator(g workflow.IDGenerator) Option {
	return func(s *PGStore) { s.ids = g }
}

// WithEntryID sets the entry marker id used when checking edges for cycles.
func WithEntryID(id string) Option {
	return func(s *PGStore) { s.entryID = id }
}

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool, opts ...Option) *PGStore {
	s := &PGStore{db: db, ids: workflow.UUIDGenerator{}, entryID: workflow.DefaultEntryID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// isNoRows checks if the error is a "no rows" error from pgx.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isForeignKeyViolation reports a missing parent row.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// isUniqueViolation reports an id that is already taken.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// jsonOrEmpty keeps NOT NULL jsonb columns satisfied.
func jsonOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}
