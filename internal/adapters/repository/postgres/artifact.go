// Package postgres stores artifacts in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowgraph/flowlogic/internal/core/artifact"
	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/pkg/serialization"
)

var _ artifact.Saver = (*ArtifactSaver)(nil)

// ArtifactSaver implements artifact.Saver for PostgreSQL
type ArtifactSaver struct {
	pool       *pgxpool.Pool
	serializer *serialization.Serializer
	tableName  string
}

// Connect opens a pool for databaseURL and ensures the schema.
func Connect(ctx context.Context, databaseURL string, serializer *serialization.Serializer) (*ArtifactSaver, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	s := NewArtifactSaver(pool, serializer)
	if err := s.CreateTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewArtifactSaver creates a new PostgreSQL artifact saver
func NewArtifactSaver(pool *pgxpool.Pool, serializer *serialization.Serializer) *ArtifactSaver {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &ArtifactSaver{
		pool:       pool,
		serializer: serializer,
		tableName:  "artifacts",
	}
}

// Save stores an artifact in PostgreSQL
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

	query := fmt.Sprintf(`
		INSERT INTO %s (id, context, digest, flow_ids, files, format, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			context = EXCLUDED.context,
			digest = EXCLUDED.digest,
			flow_ids = EXCLUDED.flow_ids,
			files = EXCLUDED.files,
			format = EXCLUDED.format,
			created_at = EXCLUDED.created_at
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		a.ID, string(a.Context), a.Digest, a.FlowIDs, files, s.serializer.Format(), a.CreatedAt)
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
		WHERE id = $1
	`, s.tableName)

	a, err := s.scan(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
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

	rows, err := s.pool.Query(ctx, query, args...)
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

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%w: %v", artifact.ErrDeleteFailed, err)
	}
	if result.RowsAffected() == 0 {
		return artifact.ErrArtifactNotFound
	}
	return nil
}

// CreateTables creates the necessary database tables
func (s *ArtifactSaver) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			context VARCHAR(16) NOT NULL,
			digest CHAR(64) NOT NULL,
			flow_ids TEXT[] NOT NULL DEFAULT '{}',
			files BYTEA NOT NULL,
			format VARCHAR(32) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_%s_context ON %s (context);
		CREATE INDEX IF NOT EXISTS idx_%s_digest ON %s (digest);
		CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at);
	`, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *ArtifactSaver) scan(row pgx.Row) (*artifact.Artifact, error) {
	var (
		a       artifact.Artifact
		ctxName string
		files   []byte
		format  string
	)
	if err := row.Scan(&a.ID, &ctxName, &a.Digest, &a.FlowIDs, &files, &format, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", artifact.ErrLoadFailed, err)
	}
	if format != s.serializer.Format() {
		return nil, fmt.Errorf("%w: artifact %s stored as %s, reader uses %s",
			artifact.ErrLoadFailed, a.ID, format, s.serializer.Format())
	}

	a.Context = flow.Context(ctxName)
	a.CreatedAt = a.CreatedAt.UTC()
	if err := s.serializer.Deserialize(files, &a.Files); err != nil {
		return nil, fmt.Errorf("failed to deserialize artifact files: %w", err)
	}
	return &a, nil
}

// buildListQuery constructs the SQL query for listing artifacts
func (s *ArtifactSaver) buildListQuery(filter artifact.Filter) (string, []any) {
	query := fmt.Sprintf("SELECT id, context, digest, flow_ids, files, format, created_at FROM %s WHERE 1=1", s.tableName)
	args := make([]any, 0)
	argCount := 0

	if filter.Context != "" {
		argCount++
		query += fmt.Sprintf(" AND context = $%d", argCount)
		args = append(args, string(filter.Context))
	}

	if filter.Digest != "" {
		argCount++
		query += fmt.Sprintf(" AND digest = $%d", argCount)
		args = append(args, filter.Digest)
	}

	if filter.Since != nil {
		argCount++
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *filter.Since)
	}

	if filter.Before != nil {
		argCount++
		query += fmt.Sprintf(" AND created_at < $%d", argCount)
		args = append(args, *filter.Before)
	}

	query += " ORDER BY created_at DESC, id ASC"

	if filter.Limit > 0 {
		argCount++
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		argCount++
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	return query, args
}

// Close closes the database connection pool
func (s *ArtifactSaver) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
