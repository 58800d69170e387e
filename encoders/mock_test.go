package encoders

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func TestHashVectorDeterministic(t *testing.T) {
	a := hashVector("a dog catching a frisbee", 64)
	b := hashVector("a dog catching a frisbee", 64)
	if !reflect.DeepEqual(a, b) {
		t.Error("equal inputs must embed identically")
	}
	c := hashVector("glass breaking", 64)
	if reflect.DeepEqual(a, c) {
		t.Error("different inputs should not embed identically")
	}
}

func TestHashVectorUnitNorm(t *testing.T) {
	vec := hashVector("normalize me", 32)
	sum := 0.0
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-6 {
		t.Errorf("expected unit norm, got %g", math.Sqrt(sum))
	}
}

func TestMockEncodersHonorContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enc := NewMockVisualEncoder(16)
	if _, err := enc.EmbedFrames(ctx, []string{"frame_00000.jpg"}); err == nil {
		t.Error("expected canceled context to abort frame embedding")
	}

	audio := NewMockAudioEncoder(16)
	if _, err := audio.EmbedSegments(ctx, []string{"window_00000.wav"}); err == nil {
		t.Error("expected canceled context to abort segment embedding")
	}
}

func TestMockEncoderDimensions(t *testing.T) {
	enc := NewMockVisualEncoder(128)
	vec, err := enc.EmbedText(context.Background(), "anything")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}
	if len(vec) != 128 {
		t.Errorf("expected dimension 128, got %d", len(vec))
	}
	if enc.Dimension() != 128 {
		t.Errorf("Dimension() reports %d", enc.Dimension())
	}
}
