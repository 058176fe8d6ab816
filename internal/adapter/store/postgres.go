package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS rag_index_builds (
	id                BIGSERIAL PRIMARY KEY,
	schema_version    INT NOT NULL,
	model_version     TEXT NOT NULL,
	dimension         INT NOT NULL,
	built_at          TIMESTAMPTZ NOT NULL,
	config_hash       TEXT NOT NULL,
	document_id       TEXT NOT NULL,
	document_checksum TEXT NOT NULL,
	chunk_count       INT NOT NULL,
	active            BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS rag_index_chunks (
	build_id           BIGINT NOT NULL REFERENCES rag_index_builds(id) ON DELETE CASCADE,
	chunk_id           INT NOT NULL,
	content            TEXT NOT NULL,
	start_word_offset  INT NOT NULL,
	source_document_id TEXT NOT NULL,
	metadata           JSONB NOT NULL,
	embedding          vector NOT NULL,
	PRIMARY KEY (build_id, chunk_id)
);`

// PostgresStore keeps index builds in Postgres with pgvector. Each Save adds
// a new build and flips the active flag in the same transaction, so readers
// see either the old build or the new one.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, snap domain.IndexSnapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	info := snap.Info
	var buildID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO rag_index_builds
			(schema_version, model_version, dimension, built_at, config_hash, document_id, document_checksum, chunk_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		info.SchemaVersion, info.ModelVersion, info.Dimension, info.BuiltAt,
		info.ConfigHash, info.DocumentID, info.DocumentChecksum, len(snap.Entries),
	).Scan(&buildID)
	if err != nil {
		return fmt.Errorf("failed to insert build: %w", err)
	}

	chunkQuery := `
		INSERT INTO rag_index_chunks
			(build_id, chunk_id, content, start_word_offset, source_document_id, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	batch := &pgx.Batch{}
	for _, entry := range snap.Entries {
		metadataJSON, err := json.Marshal(entry.Chunk.Metadata)
		if err != nil {
			return err
		}
		batch.Queue(chunkQuery,
			buildID,
			entry.Chunk.ID,
			entry.Chunk.Text,
			entry.Chunk.StartWordOffset,
			entry.Chunk.SourceDocumentID,
			metadataJSON,
			pgvector.NewVector(entry.Vector),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE rag_index_builds SET active = (id = $1)`, buildID); err != nil {
		return fmt.Errorf("failed to activate build: %w", err)
	}
	// older builds are kept only until the new one is active
	if _, err := tx.Exec(ctx, `DELETE FROM rag_index_builds WHERE id <> $1`, buildID); err != nil {
		return fmt.Errorf("failed to prune builds: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (domain.IndexSnapshot, error) {
	var snap domain.IndexSnapshot
	var buildID int64

	info := &snap.Info
	err := s.pool.QueryRow(ctx, `
		SELECT id, schema_version, model_version, dimension, built_at, config_hash, document_id, document_checksum, chunk_count
		FROM rag_index_builds
		WHERE active
		ORDER BY id DESC
		LIMIT 1`,
	).Scan(&buildID, &info.SchemaVersion, &info.ModelVersion, &info.Dimension, &info.BuiltAt,
		&info.ConfigHash, &info.DocumentID, &info.DocumentChecksum, &info.ChunkCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return snap, fmt.Errorf("%w: no active build in postgres, run `deptqa index` first", domain.ErrIndexNotLoaded)
	}
	if err != nil {
		return snap, fmt.Errorf("failed to load build: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id, content, start_word_offset, source_document_id, metadata, embedding::text
		FROM rag_index_chunks
		WHERE build_id = $1
		ORDER BY chunk_id`, buildID)
	if err != nil {
		return snap, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			chunk        domain.Chunk
			metadataJSON []byte
			vectorText   string
			vector       pgvector.Vector
		)
		if err := rows.Scan(&chunk.ID, &chunk.Text, &chunk.StartWordOffset, &chunk.SourceDocumentID, &metadataJSON, &vectorText); err != nil {
			return snap, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &chunk.Metadata); err != nil {
			return snap, fmt.Errorf("corrupt metadata for chunk %d: %w", chunk.ID, err)
		}
		if err := vector.Scan(vectorText); err != nil {
			return snap, fmt.Errorf("corrupt vector for chunk %d: %w", chunk.ID, err)
		}
		snap.Entries = append(snap.Entries, domain.IndexEntry{Chunk: chunk, Vector: vector.Slice()})
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("row iteration error: %w", err)
	}

	return snap, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
