package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusVectorStore persists job embeddings in a Milvus collection.
type MilvusVectorStore struct {
	mc   client.Client
	coll string
	dim  int
}

func newMilvusVectorStore() (*MilvusVectorStore, error) {
	addr := os.Getenv("MILVUS_ADDR")
	if addr == "" {
		addr = "localhost:19530"
	}
	username := os.Getenv("MILVUS_USERNAME")
	password := os.Getenv("MILVUS_PASSWORD")
	apiKey := os.Getenv("MILVUS_API_KEY") // For Zilliz Cloud
	coll := os.Getenv("MILVUS_COLLECTION")
	if coll == "" {
		coll = "job_embeddings"
	}

	mc, err := client.NewClient(context.Background(), client.Config{Address: addr, Username: username, Password: password, APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}

	s := &MilvusVectorStore{mc: mc, coll: coll, dim: embeddingDim()}
	if err := s.ensureSchemaAndIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MilvusVectorStore) ensureSchemaAndIndex() error {
	ctx := context.Background()
	has, err := s.mc.HasCollection(ctx, s.coll)
	if err != nil {
		return err
	}
	if !has {
		schema := entity.NewSchema()
		schema.WithField(entity.NewField().WithName("id").WithIsAutoID(true).WithIsPrimaryKey(true).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("job_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(128))
		schema.WithField(entity.NewField().WithName("modality").WithDataType(entity.FieldTypeVarChar).WithMaxLength(16))
		schema.WithField(entity.NewField().WithName("start").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("end").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))

		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return fmt.Errorf("new hnsw index: %w", err)
	}
	if err := s.mc.CreateIndex(ctx, s.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := s.mc.LoadCollection(ctx, s.coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

func (s *MilvusVectorStore) Upsert(jobID string, records []EmbeddingRecord) int {
	if len(records) == 0 {
		return 0
	}
	jobIDs := make([]string, 0, len(records))
	modalities := make([]string, 0, len(records))
	starts := make([]float64, 0, len(records))
	ends := make([]float64, 0, len(records))
	vectors := make([][]float32, 0, len(records))

	for _, rec := range records {
		if len(rec.Vector) != s.dim {
			continue
		}
		jobIDs = append(jobIDs, jobID)
		modalities = append(modalities, rec.Modality)
		starts = append(starts, rec.Start)
		ends = append(ends, rec.End)
		vectors = append(vectors, rec.Vector)
	}
	if len(vectors) == 0 {
		return 0
	}

	ctx := context.Background()
	_, err := s.mc.Insert(ctx, s.coll, "",
		entity.NewColumnVarChar("job_id", jobIDs),
		entity.NewColumnVarChar("modality", modalities),
		entity.NewColumnDouble("start", starts),
		entity.NewColumnDouble("end", ends),
		entity.NewColumnFloatVector("vector", s.dim, vectors),
	)
	if err != nil {
		return 0
	}
	return len(vectors)
}

func (s *MilvusVectorStore) Search(jobID string, vector []float32, topK int) []Hit {
	if topK <= 0 {
		topK = 5
	}
	ctx := context.Background()
	sp, _ := entity.NewIndexHNSWSearchParam(74)
	filter := fmt.Sprintf("job_id == \"%s\"", strings.ReplaceAll(jobID, "\"", "\\\""))
	res, err := s.mc.Search(ctx, s.coll, []string{}, filter, []string{"modality", "start", "end"}, []entity.Vector{entity.FloatVector(vector)}, "vector", entity.COSINE, topK, sp)
	if err != nil {
		return nil
	}
	var hits []Hit
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			var start, end float64
			var modality string
			if c, ok := cols["start"].(*entity.ColumnDouble); ok {
				if data := c.Data(); i < len(data) {
					start = data[i]
				}
			}
			if c, ok := cols["end"].(*entity.ColumnDouble); ok {
				if data := c.Data(); i < len(data) {
					end = data[i]
				}
			}
			if c, ok := cols["modality"].(*entity.ColumnVarChar); ok {
				if data := c.Data(); i < len(data) {
					modality = data[i]
				}
			}
			hits = append(hits, Hit{JobID: jobID, Modality: modality, Start: start, End: end, Score: float64(r.Scores[i])})
		}
	}
	return hits
}
