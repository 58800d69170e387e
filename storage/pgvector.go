package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"videoEventDetect/config"
)

// PgVectorStore persists job embeddings in PostgreSQL with pgvector.
type PgVectorStore struct {
	conn *pgx.Conn
	dim  int
}

func newPgVectorStore() (*PgVectorStore, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		dbURL = cfg.PostgresURL
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PgVectorStore{conn: conn, dim: embeddingDim()}
	if err := s.ensureTable(); err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *PgVectorStore) ensureTable() error {
	ctx := context.Background()

	if _, err := s.conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	tableQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS job_embeddings (
			id SERIAL PRIMARY KEY,
			job_id VARCHAR(255) NOT NULL,
			modality VARCHAR(16) NOT NULL,
			start_time FLOAT NOT NULL,
			end_time FLOAT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(job_id, modality, start_time)
		);
	`, s.dim)
	if _, err := s.conn.Exec(ctx, tableQuery); err != nil {
		return fmt.Errorf("failed to create job_embeddings table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_job_embeddings_job_id ON job_embeddings(job_id);",
		"CREATE INDEX IF NOT EXISTS idx_job_embeddings_job_modality ON job_embeddings(job_id, modality);",
	}
	for _, indexQuery := range indexes {
		if _, err := s.conn.Exec(ctx, indexQuery); err != nil {
			fmt.Printf("Warning: failed to create index: %v\n", err)
		}
	}
	return nil
}

func (s *PgVectorStore) Upsert(jobID string, records []EmbeddingRecord) int {
	if len(records) == 0 {
		return 0
	}
	ctx := context.Background()
	successCount := 0

	for _, rec := range records {
		vec := pgvector.NewVector(rec.Vector)
		_, err := s.conn.Exec(ctx, `
			INSERT INTO job_embeddings (job_id, modality, start_time, end_time, embedding)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (job_id, modality, start_time)
			DO UPDATE SET
				end_time = EXCLUDED.end_time,
				embedding = EXCLUDED.embedding
		`, jobID, rec.Modality, rec.Start, rec.End, vec)
		if err != nil {
			continue // Skip this record if insert fails
		}
		successCount++
	}
	return successCount
}

func (s *PgVectorStore) Search(jobID string, vector []float32, topK int) []Hit {
	if topK <= 0 {
		topK = 5
	}
	vec := pgvector.NewVector(vector)
	ctx := context.Background()

	rows, err := s.conn.Query(ctx, `
		SELECT modality, start_time, end_time,
			   1 - (embedding <=> $1) as similarity
		FROM job_embeddings
		WHERE job_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, vec, jobID, topK)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var modality string
		var start, end, similarity float64
		if err := rows.Scan(&modality, &start, &end, &similarity); err != nil {
			continue
		}
		hits = append(hits, Hit{JobID: jobID, Modality: modality, Start: start, End: end, Score: similarity})
	}
	return hits
}
