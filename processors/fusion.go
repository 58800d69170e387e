package processors

import (
	"sort"

	"videoEventDetect/core"
)

// ModalityCurve pairs one modality's similarity curve with its fusion weight.
type ModalityCurve struct {
	Modality core.Modality
	Curve    core.SimilarityCurve
	Weight   float64
}

// FuseCurves combines the available modality curves into one confidence curve
// on the union of their time axes. Per-modality scores are read by linear
// interpolation, clamped to the nearest endpoint outside a curve's range, and
// blended with weights re-normalized over the modalities actually present.
// A single modality passes through unchanged. Empty curves are dropped; if
// none remain the request has nothing to fuse and fails with NoModalityData.
func FuseCurves(curves []ModalityCurve) (core.SimilarityCurve, error) {
	present := make([]ModalityCurve, 0, len(curves))
	totalWeight := 0.0
	for _, mc := range curves {
		if len(mc.Curve) == 0 || mc.Weight <= 0 {
			continue
		}
		present = append(present, mc)
		totalWeight += mc.Weight
	}
	if len(present) == 0 {
		return nil, core.ErrNoModalityData
	}
	if len(present) == 1 {
		fused := make(core.SimilarityCurve, len(present[0].Curve))
		copy(fused, present[0].Curve)
		return fused, nil
	}

	// Union time axis, ascending, deduplicated.
	axis := make([]float64, 0)
	seen := make(map[float64]bool)
	for _, mc := range present {
		for _, pt := range mc.Curve {
			if !seen[pt.Timestamp] {
				seen[pt.Timestamp] = true
				axis = append(axis, pt.Timestamp)
			}
		}
	}
	sort.Float64s(axis)

	fused := make(core.SimilarityCurve, 0, len(axis))
	for _, ts := range axis {
		score := 0.0
		for _, mc := range present {
			score += (mc.Weight / totalWeight) * interpolateScore(mc.Curve, ts)
		}
		fused = append(fused, core.CurvePoint{Timestamp: ts, Score: score})
	}
	return fused, nil
}

// interpolateScore reads a curve at ts, interpolating linearly between the
// two nearest points and clamping to the endpoints outside the curve's range.
// The curve must be sorted ascending by timestamp.
func interpolateScore(curve core.SimilarityCurve, ts float64) float64 {
	if ts <= curve[0].Timestamp {
		return curve[0].Score
	}
	if ts >= curve[len(curve)-1].Timestamp {
		return curve[len(curve)-1].Score
	}
	idx := sort.Search(len(curve), func(i int) bool { return curve[i].Timestamp >= ts })
	hi := curve[idx]
	if hi.Timestamp == ts {
		return hi.Score
	}
	lo := curve[idx-1]
	frac := (ts - lo.Timestamp) / (hi.Timestamp - lo.Timestamp)
	return lo.Score + frac*(hi.Score-lo.Score)
}
