package processors

import (
	"math"

	"videoEventDetect/core"
)

// ScoreModality computes one modality's similarity curve: cosine similarity
// between each sample and the query vector, plotted at the sample midpoint.
// A nil query vector means the modality is not queried; the caller skips it
// rather than scoring against zeros. Zero samples yield an empty curve.
func ScoreModality(samples []core.TimedSample, query []float32) core.SimilarityCurve {
	if len(query) == 0 {
		return nil
	}
	curve := make(core.SimilarityCurve, 0, len(samples))
	for _, sample := range samples {
		curve = append(curve, core.CurvePoint{
			Timestamp: sample.Midpoint(),
			Score:     cosineSimilarity(sample.Embedding, query),
		})
	}
	return curve
}

// cosineSimilarity is scale-invariant across differently normalized
// embedding models; mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
