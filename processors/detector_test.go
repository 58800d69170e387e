package processors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"videoEventDetect/config"
	"videoEventDetect/core"
)

// ---------------- test doubles ----------------

type stubSampler struct {
	info    core.VideoInfo
	frames  []core.FrameSample
	windows []core.AudioWindow
}

func (s *stubSampler) Probe(string) (core.VideoInfo, error) { return s.info, nil }

func (s *stubSampler) SampleFrames(string, string, float64) ([]core.FrameSample, error) {
	return s.frames, nil
}

func (s *stubSampler) SampleAudio(string, string, float64) ([]core.AudioWindow, error) {
	return s.windows, nil
}

// stubEncoder serves fixed vectors keyed by media path and can be made to
// fail, or to block until its context is done.
type stubEncoder struct {
	dim     int
	query   []float32
	vectors map[string][]float32
	err     error
	block   bool
}

func (e *stubEncoder) Dimension() int { return e.dim }

func (e *stubEncoder) EmbedText(ctx context.Context, query string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.query, nil
}

func (e *stubEncoder) embedPaths(ctx context.Context, paths []string) ([][]float32, error) {
	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(paths))
	for i, path := range paths {
		out[i] = e.vectors[path]
	}
	return out, nil
}

func (e *stubEncoder) EmbedFrames(ctx context.Context, paths []string) ([][]float32, error) {
	return e.embedPaths(ctx, paths)
}

func (e *stubEncoder) EmbedSegments(ctx context.Context, paths []string) ([][]float32, error) {
	return e.embedPaths(ctx, paths)
}

func testDetectionConfig() config.DetectionConfig {
	cfg := config.DefaultDetectionConfig()
	cfg.Threshold = 0.7
	cfg.MinEventDuration = 1.0
	cfg.MergeGap = 0.5
	return cfg
}

// secondFrames builds one frame per second with the matching indices
// embedded as the query vector and the rest orthogonal to it.
func secondFrames(count int, matching map[int]bool) ([]core.FrameSample, map[string][]float32) {
	frames := make([]core.FrameSample, 0, count)
	vectors := map[string][]float32{}
	for i := 0; i < count; i++ {
		path := fmt.Sprintf("frame_%05d.jpg", i)
		frames = append(frames, core.FrameSample{Start: float64(i), End: float64(i + 1), Path: path})
		if matching[i] {
			vectors[path] = []float32{1, 0}
		} else {
			vectors[path] = []float32{0, 1}
		}
	}
	return frames, vectors
}

// ---------------- tests ----------------

func TestDetectVisualOnlyPipeline(t *testing.T) {
	frames, vectors := secondFrames(10, map[int]bool{3: true, 4: true, 5: true, 6: true})
	visual := &stubEncoder{dim: 2, query: []float32{1, 0}, vectors: vectors}
	sampler := &stubSampler{info: core.VideoInfo{Duration: 10, FPS: 30, HasAudio: false}, frames: frames}
	detector := NewEventDetector(visual, &stubEncoder{dim: 2}, sampler, nil)

	cfg := testDetectionConfig()
	cfg.AudioWeight = 0

	result, err := detector.Detect(context.Background(), DetectRequest{
		JobID:     core.NewID(),
		VideoPath: "input.mp4",
		Query:     "a dog catching a frisbee",
		Config:    cfg,
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}
	ev := result.Events[0]
	if ev.Start != 3.5 || ev.End != 6.5 {
		t.Errorf("expected event [3.5, 6.5], got [%g, %g]", ev.Start, ev.End)
	}
	if ev.Confidence != 1.0 {
		t.Errorf("expected peak confidence 1.0, got %g", ev.Confidence)
	}

	if len(result.EditInstructions) != 1 {
		t.Fatalf("expected 1 edit instruction, got %d", len(result.EditInstructions))
	}
	inst := result.EditInstructions[0]
	if inst.ID != "edit_1" || inst.StartTime != ev.Start || inst.EndTime != ev.End {
		t.Errorf("instruction does not mirror event: %+v", inst)
	}

	md := result.Metadata
	if md.VideoDuration != 10 || md.ProcessedFrames != 10 {
		t.Errorf("unexpected metadata: %+v", md)
	}
	if md.Query != "a dog catching a frisbee" {
		t.Errorf("metadata lost the query: %q", md.Query)
	}
}

func TestDetectAudioOnlyMatchesAudioCurve(t *testing.T) {
	windows := []core.AudioWindow{}
	vectors := map[string][]float32{}
	for i := 0; i < 6; i++ {
		path := fmt.Sprintf("window_%05d.wav", i)
		windows = append(windows, core.AudioWindow{Start: float64(i), End: float64(i + 1), Path: path})
		if i >= 2 && i <= 4 {
			vectors[path] = []float32{1, 0}
		} else {
			vectors[path] = []float32{0, 1}
		}
	}
	audio := &stubEncoder{dim: 2, query: []float32{1, 0}, vectors: vectors}
	sampler := &stubSampler{info: core.VideoInfo{Duration: 6, HasAudio: true}, windows: windows}
	detector := NewEventDetector(&stubEncoder{dim: 2}, audio, sampler, nil)

	cfg := testDetectionConfig()
	cfg.VisualWeight = 0

	result, err := detector.Detect(context.Background(), DetectRequest{
		JobID:     core.NewID(),
		VideoPath: "input.mp4",
		Query:     "glass breaking",
		Config:    cfg,
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event from audio curve, got %d", len(result.Events))
	}
	if result.Events[0].Start != 2.5 || result.Events[0].End != 4.5 {
		t.Errorf("expected event [2.5, 4.5], got [%g, %g]", result.Events[0].Start, result.Events[0].End)
	}
}

func TestDetectEmptyVideoFailsWithNoModalityData(t *testing.T) {
	sampler := &stubSampler{info: core.VideoInfo{Duration: 0}}
	detector := NewEventDetector(&stubEncoder{dim: 2}, &stubEncoder{dim: 2}, sampler, nil)

	_, err := detector.Detect(context.Background(), DetectRequest{
		JobID:     core.NewID(),
		VideoPath: "empty.mp4",
		Query:     "anything",
		Config:    testDetectionConfig(),
	})
	if !errors.Is(err, core.ErrNoModalityData) {
		t.Fatalf("expected ErrNoModalityData for empty video, got %v", err)
	}
}

func TestDetectEncoderFailureCancelsSibling(t *testing.T) {
	frames, vectors := secondFrames(5, nil)
	visual := &stubEncoder{dim: 2, query: []float32{1, 0}, vectors: vectors, block: true}
	audio := &stubEncoder{dim: 2, err: errors.New("model server unreachable")}
	windows := []core.AudioWindow{{Start: 0, End: 1, Path: "window_00000.wav"}}
	sampler := &stubSampler{info: core.VideoInfo{Duration: 5, HasAudio: true}, frames: frames, windows: windows}
	detector := NewEventDetector(visual, audio, sampler, nil)

	done := make(chan struct{})
	var err error
	go func() {
		_, err = detector.Detect(context.Background(), DetectRequest{
			JobID:     core.NewID(),
			VideoPath: "input.mp4",
			Query:     "anything",
			Config:    testDetectionConfig(),
		})
		close(done)
	}()

	// The blocked visual encoder only returns once the audio failure
	// cancels the shared context, so completing at all proves fail-fast.
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("detector did not cancel the sibling encoder after a failure")
	}

	var encErr *core.EncoderError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncoderError, got %v", err)
	}
	if encErr.Timeout {
		t.Errorf("failure should not be reported as a timeout: %v", encErr)
	}
}

func TestDetectEncoderTimeout(t *testing.T) {
	frames, vectors := secondFrames(3, nil)
	visual := &stubEncoder{dim: 2, query: []float32{1, 0}, vectors: vectors, block: true}
	sampler := &stubSampler{info: core.VideoInfo{Duration: 3}, frames: frames}
	detector := NewEventDetector(visual, &stubEncoder{dim: 2}, sampler, nil)

	cfg := testDetectionConfig()
	cfg.AudioWeight = 0
	cfg.EncoderTimeoutSec = 0.05

	_, err := detector.Detect(context.Background(), DetectRequest{
		JobID:     core.NewID(),
		VideoPath: "input.mp4",
		Query:     "anything",
		Config:    cfg,
	})
	if !core.IsEncoderTimeout(err) {
		t.Fatalf("expected encoder timeout, got %v", err)
	}
}

func TestDetectRejectsInvalidConfig(t *testing.T) {
	sampler := &stubSampler{info: core.VideoInfo{Duration: 5}}
	detector := NewEventDetector(&stubEncoder{dim: 2}, &stubEncoder{dim: 2}, sampler, nil)

	cfg := testDetectionConfig()
	cfg.Threshold = 1.5

	_, err := detector.Detect(context.Background(), DetectRequest{
		JobID:     core.NewID(),
		VideoPath: "input.mp4",
		Query:     "anything",
		Config:    cfg,
	})
	var cfgErr *core.InvalidConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected InvalidConfigError, got %v", err)
	}
	if cfgErr.Field != "threshold" {
		t.Errorf("expected threshold to be rejected, got field %q", cfgErr.Field)
	}
}
