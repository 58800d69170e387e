package encoders

import (
	"context"
	"math"
)

// MockVisualEncoder and MockAudioEncoder return deterministic unit vectors
// derived from their input strings. They keep the pipeline runnable without
// any model runtime and give tests stable similarity scores.

type MockVisualEncoder struct {
	dim int
}

type MockAudioEncoder struct {
	dim int
}

func NewMockVisualEncoder(dim int) *MockVisualEncoder { return &MockVisualEncoder{dim: dim} }
func NewMockAudioEncoder(dim int) *MockAudioEncoder   { return &MockAudioEncoder{dim: dim} }

func (m *MockVisualEncoder) Dimension() int { return m.dim }
func (m *MockAudioEncoder) Dimension() int  { return m.dim }

func (m *MockVisualEncoder) EmbedFrames(ctx context.Context, framePaths []string) ([][]float32, error) {
	return hashVectors(ctx, framePaths, m.dim)
}

func (m *MockVisualEncoder) EmbedText(ctx context.Context, query string) ([]float32, error) {
	return hashVector(query, m.dim), nil
}

func (m *MockAudioEncoder) EmbedSegments(ctx context.Context, windowPaths []string) ([][]float32, error) {
	return hashVectors(ctx, windowPaths, m.dim)
}

func (m *MockAudioEncoder) EmbedText(ctx context.Context, query string) ([]float32, error) {
	return hashVector(query, m.dim), nil
}

func hashVectors(ctx context.Context, inputs []string, dim int) ([][]float32, error) {
	out := make([][]float32, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, hashVector(in, dim))
	}
	return out, nil
}

// hashVector spreads the string's characters over a fixed-dimension vector
// and L2-normalizes it, so equal inputs always embed identically.
func hashVector(s string, dim int) []float32 {
	vec := make([]float32, dim)
	hash := 0
	for _, ch := range s {
		hash = hash*31 + int(ch)
		idx := hash % dim
		if idx < 0 {
			idx += dim
		}
		vec[idx] += 1.0
	}
	sum := 0.0
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		norm := float32(math.Sqrt(sum))
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
