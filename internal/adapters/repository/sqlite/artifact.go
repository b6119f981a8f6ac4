// Package sqlite stores artifacts in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flowgraph/flowlogic/internal/core/artifact"
	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/pkg/serialization"
)

var _ artifact.Saver = (*ArtifactSaver)(nil)

// ArtifactSaver implements artifact.Saver for SQLite
type ArtifactSaver struct {
	db         *sql.DB
	serializer *serialization.Serializer
	tableName  string
}

// Open opens (or creates) the database at path and ensures the schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string, serializer *serialization.Serializer) (*ArtifactSaver, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	s := NewArtifactSaver(db, serializer)
	if err := s.CreateTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewArtifactSaver creates a new SQLite artifact saver
func NewArtifactSaver(db *sql.DB, serializer *serialization.Serializer) *ArtifactSaver {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &ArtifactSaver{
		db:         db,
		serializer: serializer,
		tableName:  "artifacts",
	}
}

// WithTableName overrides the default table name. Only alphanumerics and
// underscore are accepted since the name is interpolated into SQL.
func (s *ArtifactSaver) WithTableName(name string) *ArtifactSaver {
	if isSafeIdent(name) {
		s.tableName = name
	}
	return s
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}

// Save stores an artifact in SQLite
func (s *ArtifactSaver) Save(ctx context.Context, a *artifact.Artifact) error {
	if a == nil {
		return artifact.ErrInvalidArtifactID
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("artifact validation failed: %w", err)
	}

	files, err := s.serializer.Serialize(a.Files)
	if err != nil {
		return fmt.Errorf("failed to serialize artifact files: %w", err)
	}
	flowIDs, err := json.Marshal(a.FlowIDs)
	if err != nil {
		return fmt.Errorf("failed to serialize flow ids: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (id, context, digest, flow_ids, files, format, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		a.ID, string(a.Context), a.Digest, string(flowIDs), files, s.serializer.Format(), a.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("%w: %v", artifact.ErrSaveFailed, err)
	}
	return nil
}

// Load retrieves an artifact by ID
func (s *ArtifactSaver) Load(ctx context.Context, id string) (*artifact.Artifact, error) {
	if id == "" {
		return nil, artifact.ErrInvalidArtifactID
	}

	query := fmt.Sprintf(`
		SELECT id, context, digest, flow_ids, files, format, created_at
		FROM %s
		WHERE id = ?
	`, s.tableName)

	a, err := s.scan(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, artifact.ErrArtifactNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// List retrieves artifacts based on filter criteria
func (s *ArtifactSaver) List(ctx context.Context, filter artifact.Filter) ([]*artifact.Artifact, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter validation failed: %w", err)
	}
	query, args := s.buildListQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []*artifact.Artifact{}
	for rows.Next() {
		a, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return artifacts, nil
}

// Delete removes an artifact by ID
func (s *ArtifactSaver) Delete(ctx context.Context, id string) error {
	if id == "" {
		return artifact.ErrInvalidArtifactID
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%w: %v", artifact.ErrDeleteFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return artifact.ErrArtifactNotFound
	}
	return nil
}

// CreateTables creates the necessary database tables
func (s *ArtifactSaver) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			context TEXT NOT NULL,
			digest TEXT NOT NULL,
			flow_ids TEXT NOT NULL,
			files BLOB NOT NULL,
			format TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%s_context ON %s (context);
		CREATE INDEX IF NOT EXISTS idx_%s_digest ON %s (digest);
		CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at);
	`, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *ArtifactSaver) scan(row scanner) (*artifact.Artifact, error) {
	var (
		a         artifact.Artifact
		ctxName   string
		flowIDs   string
		files     []byte
		format    string
		createdAt int64
	)
	if err := row.Scan(&a.ID, &ctxName, &a.Digest, &flowIDs, &files, &format, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", artifact.ErrLoadFailed, err)
	}
	if format != s.serializer.Format() {
		return nil, fmt.Errorf("%w: artifact %s stored as %s, reader uses %s",
			artifact.ErrLoadFailed, a.ID, format, s.serializer.Format())
	}

	a.Context = flow.Context(ctxName)
	a.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := json.Unmarshal([]byte(flowIDs), &a.FlowIDs); err != nil {
		return nil, fmt.Errorf("failed to deserialize flow ids: %w", err)
	}
	if err := s.serializer.Deserialize(files, &a.Files); err != nil {
		return nil, fmt.Errorf("failed to deserialize artifact files: %w", err)
	}
	return &a, nil
}

// buildListQuery constructs the SQL query for listing artifacts
func (s *ArtifactSaver) buildListQuery(filter artifact.Filter) (string, []any) {
	query := fmt.Sprintf("SELECT id, context, digest, flow_ids, files, format, created_at FROM %s WHERE 1=1", s.tableName)
	args := make([]any, 0)

	if filter.Context != "" {
		query += " AND context = ?"
		args = append(args, string(filter.Context))
	}

	if filter.Digest != "" {
		query += " AND digest = ?"
		args = append(args, filter.Digest)
	}

	if filter.Since != nil {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UnixNano())
	}

	if filter.Before != nil {
		query += " AND created_at < ?"
		args = append(args, filter.Before.UnixNano())
	}

	query += " ORDER BY created_at DESC, id ASC"

	// SQLite only accepts OFFSET after a LIMIT; -1 means unbounded.
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit == 0 {
			limit = -1
		}
		query += " LIMIT ?"
		args = append(args, limit)
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	return query, args
}

// Close closes the database connection
func (s *ArtifactSaver) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
