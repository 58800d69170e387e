package processors

import (
	"fmt"
	"sync"

	"videoEventDetect/core"
)

// EmbeddingStore aggregates one request's timed embeddings. Each modality is
// an independent append-only region, so the visual and audio encoder tasks
// can write concurrently without sharing state.
type EmbeddingStore struct {
	mu      sync.RWMutex
	dims    map[core.Modality]int
	samples map[core.Modality][]core.TimedSample
	query   core.QueryEmbedding
}

// NewEmbeddingStore fixes the expected embedding dimension per modality.
// A dimension of 0 disables validation for that modality.
func NewEmbeddingStore(visualDim, audioDim int) *EmbeddingStore {
	return &EmbeddingStore{
		dims: map[core.Modality]int{
			core.ModalityVisual: visualDim,
			core.ModalityAudio:  audioDim,
		},
		samples: map[core.Modality][]core.TimedSample{},
	}
}

// Put appends a sample to its modality stream. Samples must arrive with
// start < end, in non-decreasing start order, without overlapping the
// previous sample, and with the modality's configured dimension.
func (s *EmbeddingStore) Put(m core.Modality, sample core.TimedSample) error {
	if sample.Start >= sample.End {
		return &core.InvalidSampleError{Modality: m, Reason: fmt.Sprintf("start %.3f not before end %.3f", sample.Start, sample.End)}
	}
	if dim := s.dims[m]; dim > 0 && len(sample.Embedding) != dim {
		return &core.InvalidSampleError{Modality: m, Reason: fmt.Sprintf("embedding dimension %d, expected %d", len(sample.Embedding), dim)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev := s.samples[m]; len(prev) > 0 {
		last := prev[len(prev)-1]
		if sample.Start < last.Start {
			return &core.InvalidSampleError{Modality: m, Reason: fmt.Sprintf("start %.3f before previous start %.3f", sample.Start, last.Start)}
		}
		if sample.Start < last.End {
			return &core.InvalidSampleError{Modality: m, Reason: fmt.Sprintf("start %.3f overlaps previous sample ending %.3f", sample.Start, last.End)}
		}
	}
	s.samples[m] = append(s.samples[m], sample)
	return nil
}

func (s *EmbeddingStore) Samples(m core.Modality) []core.TimedSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.samples[m]
}

func (s *EmbeddingStore) SampleCount(m core.Modality) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples[m])
}

func (s *EmbeddingStore) SetQueryVector(m core.Modality, vec []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch m {
	case core.ModalityVisual:
		s.query.Visual = vec
	case core.ModalityAudio:
		s.query.Audio = vec
	}
}

func (s *EmbeddingStore) QueryEmbedding() core.QueryEmbedding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}
