package core

// ========== 基础数据结构 ==========

// Modality identifies one embedding stream of a detection request.
type Modality string

const (
	ModalityVisual Modality = "visual"
	ModalityAudio  Modality = "audio"
)

// TimedSample is one embedded slice of the input media. Samples of a modality
// are appended in non-decreasing start order and must not overlap.
type TimedSample struct {
	Start     float64   `json:"start"`
	End       float64   `json:"end"`
	Embedding []float32 `json:"embedding"`
}

// Midpoint is the timestamp a sample contributes to its similarity curve.
func (s TimedSample) Midpoint() float64 { return (s.Start + s.End) / 2 }

// QueryEmbedding holds the query text embedded into each modality's space.
// A nil vector means the modality is not queried at all.
type QueryEmbedding struct {
	Visual []float32 `json:"visual,omitempty"`
	Audio  []float32 `json:"audio,omitempty"`
}

func (q QueryEmbedding) ForModality(m Modality) []float32 {
	switch m {
	case ModalityVisual:
		return q.Visual
	case ModalityAudio:
		return q.Audio
	}
	return nil
}

func (q QueryEmbedding) HasAny() bool {
	return len(q.Visual) > 0 || len(q.Audio) > 0
}

// CurvePoint is one sample of a time-indexed score curve.
type CurvePoint struct {
	Timestamp float64 `json:"timestamp"`
	Score     float64 `json:"score"`
}

// SimilarityCurve is an ascending-timestamp score curve, one point per input
// sample. The fused curve shares the same shape.
type SimilarityCurve []CurvePoint

// ========== 检测结果结构 ==========

const EventTypeMatch = "event_match"

// Event is one detected interval where the video matches the query.
type Event struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Type       string  `json:"type"`
}

const (
	ActionCut          = "cut"
	ReasonMatchesQuery = "matches_user_query"
)

// EditInstruction is one actionable edit directive derived from an event.
type EditInstruction struct {
	ID         string  `json:"id"`
	Action     string  `json:"action"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Metadata carries provenance for one detection run.
type Metadata struct {
	Query           string  `json:"query"`
	VideoDuration   float64 `json:"video_duration_seconds"`
	FPS             float64 `json:"fps"`
	ProcessedFrames int     `json:"processed_frames"`
}

// DetectionResult is the orchestrator's final output for one request.
type DetectionResult struct {
	Events           []Event           `json:"events"`
	EditInstructions []EditInstruction `json:"edit_instructions"`
	Metadata         Metadata          `json:"metadata"`
}

// ========== 媒体采样结构 ==========

// VideoInfo is what ffprobe reports about an input container.
type VideoInfo struct {
	Duration    float64 `json:"duration"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FPS         float64 `json:"fps"`
	TotalFrames int     `json:"total_frames"`
	HasAudio    bool    `json:"has_audio"`
}

// FrameSample is a sampled frame on disk covering [Start, End).
type FrameSample struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Path  string  `json:"path"`
}

// AudioWindow is a sliced audio segment on disk covering [Start, End).
type AudioWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Path  string  `json:"path"`
}
