package processors

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"videoEventDetect/config"
	"videoEventDetect/core"
	"videoEventDetect/encoders"
	"videoEventDetect/storage"
)

// DetectorState tracks one request through the pipeline.
type DetectorState string

const (
	StateReceived              DetectorState = "received"
	StateEmbedding             DetectorState = "embedding"
	StateScoring               DetectorState = "scoring"
	StateFusing                DetectorState = "fusing"
	StateSegmenting            DetectorState = "segmenting"
	StateInstructionGeneration DetectorState = "instruction_generation"
	StateCompleted             DetectorState = "completed"
	StateFailed                DetectorState = "failed"
)

// DetectRequest carries everything one detection run needs. All state is
// request-scoped; the detector itself holds only injected collaborators.
type DetectRequest struct {
	JobID     string
	VideoPath string
	Query     string
	Config    config.DetectionConfig
}

// EventDetector sequences sampling, encoding, scoring, fusion, segmentation
// and instruction generation for one request at a time. It is constructed
// once and safe for concurrent requests.
type EventDetector struct {
	visual  encoders.VisualEncoder
	audio   encoders.AudioEncoder
	sampler MediaSampler
	persist storage.VectorStore
}

func NewEventDetector(visual encoders.VisualEncoder, audio encoders.AudioEncoder, sampler MediaSampler, persist storage.VectorStore) *EventDetector {
	return &EventDetector{visual: visual, audio: audio, sampler: sampler, persist: persist}
}

// Detect runs the full pipeline. On any component failure the partial state
// is discarded and only the typed error escapes.
func (d *EventDetector) Detect(ctx context.Context, req DetectRequest) (*core.DetectionResult, error) {
	state := StateReceived
	setState := func(next DetectorState) {
		state = next
		log.Printf("[%s] state: %s", req.JobID, state)
	}
	fail := func(err error) (*core.DetectionResult, error) {
		setState(StateFailed)
		return nil, err
	}
	setState(StateReceived)

	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return fail(err)
	}

	info, err := d.sampler.Probe(req.VideoPath)
	if err != nil {
		return fail(fmt.Errorf("probe video: %w", err))
	}

	// Sampled media is request-scoped; release it on every exit path.
	jobDir := filepath.Join(core.DataRoot(), req.JobID)
	defer os.RemoveAll(jobDir)

	var frames []core.FrameSample
	if cfg.VisualWeight > 0 {
		frames, err = d.sampler.SampleFrames(req.VideoPath, filepath.Join(jobDir, "frames"), cfg.SampleFPS)
		if err != nil {
			return fail(fmt.Errorf("sample frames: %w", err))
		}
	}
	var windows []core.AudioWindow
	if cfg.AudioWeight > 0 {
		windows, err = d.sampler.SampleAudio(req.VideoPath, filepath.Join(jobDir, "audio"), cfg.AudioWindowSec)
		if err != nil {
			return fail(fmt.Errorf("sample audio: %w", err))
		}
	}

	setState(StateEmbedding)
	store := NewEmbeddingStore(d.visual.Dimension(), d.audio.Dimension())
	if err := d.runEncoders(ctx, req, cfg, store, frames, windows); err != nil {
		return fail(err)
	}

	setState(StateScoring)
	query := store.QueryEmbedding()
	visualCurve := ScoreModality(store.Samples(core.ModalityVisual), query.Visual)
	audioCurve := ScoreModality(store.Samples(core.ModalityAudio), query.Audio)

	setState(StateFusing)
	fused, err := FuseCurves([]ModalityCurve{
		{Modality: core.ModalityVisual, Curve: visualCurve, Weight: cfg.VisualWeight},
		{Modality: core.ModalityAudio, Curve: audioCurve, Weight: cfg.AudioWeight},
	})
	if err != nil {
		return fail(err)
	}

	setState(StateSegmenting)
	events := SegmentEvents(fused, SegmenterConfig{
		Threshold:        cfg.Threshold,
		MinEventDuration: cfg.MinEventDuration,
		MergeGap:         cfg.MergeGap,
	})

	setState(StateInstructionGeneration)
	instructions := GenerateEditInstructions(events)

	d.persistEmbeddings(req.JobID, store)

	setState(StateCompleted)
	return &core.DetectionResult{
		Events:           events,
		EditInstructions: instructions,
		Metadata: core.Metadata{
			Query:           req.Query,
			VideoDuration:   info.Duration,
			FPS:             cfg.SampleFPS,
			ProcessedFrames: len(frames),
		},
	}, nil
}

// runEncoders fans the two encoder calls out concurrently. Each modality
// writes into its own region of the store, so no coordination is needed
// beyond the join; the first failure cancels the sibling.
func (d *EventDetector) runEncoders(ctx context.Context, req DetectRequest, cfg config.DetectionConfig, store *EmbeddingStore, frames []core.FrameSample, windows []core.AudioWindow) error {
	encCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.EncoderTimeoutSec*float64(time.Second)))
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	report := func(m core.Modality, err error) {
		timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(encCtx.Err(), context.DeadlineExceeded)
		errCh <- &core.EncoderError{Modality: m, Timeout: timeout, Err: err}
		cancel()
	}

	if len(frames) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			qv, err := d.visual.EmbedText(encCtx, req.Query)
			if err != nil {
				report(core.ModalityVisual, err)
				return
			}
			store.SetQueryVector(core.ModalityVisual, qv)

			paths := make([]string, len(frames))
			for i, fr := range frames {
				paths[i] = fr.Path
			}
			vecs, err := d.visual.EmbedFrames(encCtx, paths)
			if err != nil {
				report(core.ModalityVisual, err)
				return
			}
			for i, fr := range frames {
				if err := store.Put(core.ModalityVisual, core.TimedSample{Start: fr.Start, End: fr.End, Embedding: vecs[i]}); err != nil {
					errCh <- err
					cancel()
					return
				}
			}
		}()
	}

	if len(windows) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			qv, err := d.audio.EmbedText(encCtx, req.Query)
			if err != nil {
				report(core.ModalityAudio, err)
				return
			}
			store.SetQueryVector(core.ModalityAudio, qv)

			paths := make([]string, len(windows))
			for i, win := range windows {
				paths[i] = win.Path
			}
			vecs, err := d.audio.EmbedSegments(encCtx, paths)
			if err != nil {
				report(core.ModalityAudio, err)
				return
			}
			for i, win := range windows {
				if err := store.Put(core.ModalityAudio, core.TimedSample{Start: win.Start, End: win.End, Embedding: vecs[i]}); err != nil {
					errCh <- err
					cancel()
					return
				}
			}
		}()
	}

	wg.Wait()
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// persistEmbeddings saves the request's embeddings for later re-query.
// Best effort: persistence failure never fails a completed detection.
func (d *EventDetector) persistEmbeddings(jobID string, store *EmbeddingStore) {
	if d.persist == nil {
		return
	}
	records := make([]storage.EmbeddingRecord, 0)
	for _, m := range []core.Modality{core.ModalityVisual, core.ModalityAudio} {
		for _, sample := range store.Samples(m) {
			records = append(records, storage.EmbeddingRecord{
				Modality: string(m),
				Start:    sample.Start,
				End:      sample.End,
				Vector:   sample.Embedding,
			})
		}
	}
	if len(records) == 0 {
		return
	}
	count := d.persist.Upsert(jobID, records)
	log.Printf("[%s] persisted %d embeddings", jobID, count)
}
