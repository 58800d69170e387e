package processors

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"videoEventDetect/core"
)

func TestFuseSingleModalityPassthrough(t *testing.T) {
	// With only the audio modality present the fused curve is its curve,
	// exactly, with no interpolation applied.
	audio := core.SimilarityCurve{
		{Timestamp: 0.5, Score: 0.4},
		{Timestamp: 1.5, Score: 0.8},
		{Timestamp: 2.5, Score: 0.6},
	}
	fused, err := FuseCurves([]ModalityCurve{
		{Modality: core.ModalityVisual, Curve: nil, Weight: 1.0},
		{Modality: core.ModalityAudio, Curve: audio, Weight: 1.0},
	})
	if err != nil {
		t.Fatalf("FuseCurves failed: %v", err)
	}
	if !reflect.DeepEqual(fused, audio) {
		t.Errorf("expected pass-through of audio curve, got %v", fused)
	}
}

func TestFuseNoModalityData(t *testing.T) {
	_, err := FuseCurves([]ModalityCurve{
		{Modality: core.ModalityVisual, Curve: nil, Weight: 1.0},
		{Modality: core.ModalityAudio, Curve: nil, Weight: 1.0},
	})
	if !errors.Is(err, core.ErrNoModalityData) {
		t.Fatalf("expected ErrNoModalityData, got %v", err)
	}
}

func TestFuseUnionAxisAndWeights(t *testing.T) {
	visual := core.SimilarityCurve{
		{Timestamp: 0.0, Score: 0.0},
		{Timestamp: 2.0, Score: 1.0},
	}
	audio := core.SimilarityCurve{
		{Timestamp: 1.0, Score: 0.5},
		{Timestamp: 3.0, Score: 0.5},
	}
	fused, err := FuseCurves([]ModalityCurve{
		{Modality: core.ModalityVisual, Curve: visual, Weight: 3.0},
		{Modality: core.ModalityAudio, Curve: audio, Weight: 1.0},
	})
	if err != nil {
		t.Fatalf("FuseCurves failed: %v", err)
	}

	// Union axis of both curves' timestamps, ascending.
	wantTs := []float64{0.0, 1.0, 2.0, 3.0}
	if len(fused) != len(wantTs) {
		t.Fatalf("expected %d fused points, got %d", len(wantTs), len(fused))
	}
	// Weights 3:1 re-normalize to 0.75/0.25. Audio clamps to 0.5 at t=0;
	// visual interpolates to 0.5 at t=1 and clamps to 1.0 at t=3.
	wantScores := []float64{
		0.75*0.0 + 0.25*0.5,
		0.75*0.5 + 0.25*0.5,
		0.75*1.0 + 0.25*0.5,
		0.75*1.0 + 0.25*0.5,
	}
	for i, pt := range fused {
		if pt.Timestamp != wantTs[i] {
			t.Errorf("point %d: expected timestamp %g, got %g", i, wantTs[i], pt.Timestamp)
		}
		if math.Abs(pt.Score-wantScores[i]) > 1e-9 {
			t.Errorf("point %d: expected score %g, got %g", i, wantScores[i], pt.Score)
		}
	}
}

func TestFuseDropsZeroWeightModality(t *testing.T) {
	visual := core.SimilarityCurve{{Timestamp: 1.0, Score: 0.9}}
	audio := core.SimilarityCurve{{Timestamp: 1.0, Score: 0.1}}
	fused, err := FuseCurves([]ModalityCurve{
		{Modality: core.ModalityVisual, Curve: visual, Weight: 0},
		{Modality: core.ModalityAudio, Curve: audio, Weight: 2.0},
	})
	if err != nil {
		t.Fatalf("FuseCurves failed: %v", err)
	}
	if !reflect.DeepEqual(fused, audio) {
		t.Errorf("expected audio-only curve, got %v", fused)
	}
}

func TestInterpolateScoreClamping(t *testing.T) {
	curve := core.SimilarityCurve{
		{Timestamp: 1.0, Score: 0.2},
		{Timestamp: 3.0, Score: 0.8},
	}
	cases := []struct {
		ts   float64
		want float64
	}{
		{0.0, 0.2}, // before range: clamp to first
		{1.0, 0.2},
		{2.0, 0.5}, // midpoint interpolates linearly
		{3.0, 0.8},
		{5.0, 0.8}, // after range: clamp to last
	}
	for _, tc := range cases {
		if got := interpolateScore(curve, tc.ts); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("interpolateScore at %g: expected %g, got %g", tc.ts, tc.want, got)
		}
	}
}
