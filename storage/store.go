package storage

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"videoEventDetect/config"
)

// EmbeddingRecord is one persisted timed embedding of a finished job.
type EmbeddingRecord struct {
	Modality string    `json:"modality"`
	Start    float64   `json:"start"`
	End      float64   `json:"end"`
	Vector   []float32 `json:"vector"`
}

// Hit is one nearest-neighbor match from a stored job.
type Hit struct {
	JobID    string  `json:"job_id"`
	Modality string  `json:"modality"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Score    float64 `json:"score"`
}

// VectorStore abstracts the storage backend. Persisting lets a processed job
// be re-queried with a new query vector without re-encoding the video.
type VectorStore interface {
	Upsert(jobID string, records []EmbeddingRecord) int
	Search(jobID string, vector []float32, topK int) []Hit
}

var GlobalStore VectorStore

// InitVectorStore picks the backend from STORE (memory/pgvector/milvus),
// falling back to memory with a warning when a backend cannot start.
func InitVectorStore() error {
	storeKind := strings.ToLower(strings.TrimSpace(os.Getenv("STORE")))
	if storeKind == "milvus" {
		s, err := newMilvusVectorStore()
		if err != nil {
			fmt.Printf("Warning: Failed to initialize Milvus store (%v), falling back to memory store\n", err)
			GlobalStore = newMemoryVectorStore()
			return nil
		}
		GlobalStore = s
		return nil
	}
	if storeKind == "pgvector" {
		s, err := newPgVectorStore()
		if err != nil {
			fmt.Printf("Warning: Failed to initialize PgVector store (%v), falling back to memory store\n", err)
			GlobalStore = newMemoryVectorStore()
			return nil
		}
		GlobalStore = s
		return nil
	}
	// default to in-memory
	GlobalStore = newMemoryVectorStore()
	return nil
}

func embeddingDim() int {
	if cfg, err := config.LoadConfig(); err == nil && cfg.EmbeddingDim > 0 {
		return cfg.EmbeddingDim
	}
	return 512
}

// ---------------- Memory implementation (kept for fallback) ----------------

type MemoryVectorStore struct {
	mu      sync.RWMutex
	records map[string][]EmbeddingRecord // jobID -> records
}

func newMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{records: map[string][]EmbeddingRecord{}}
}

func (s *MemoryVectorStore) Upsert(jobID string, records []EmbeddingRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[jobID] = append([]EmbeddingRecord(nil), records...)
	return len(records)
}

func (s *MemoryVectorStore) Search(jobID string, vector []float32, topK int) []Hit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.records[jobID]
	hits := make([]Hit, 0, len(records))
	for _, rec := range records {
		hits = append(hits, Hit{
			JobID:    jobID,
			Modality: rec.Modality,
			Start:    rec.Start,
			End:      rec.End,
			Score:    cosine32(vector, rec.Vector),
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK <= 0 {
		topK = 5
	}
	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK]
}

func cosine32(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
