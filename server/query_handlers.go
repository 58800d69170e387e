package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"videoEventDetect/config"
	"videoEventDetect/core"
	"videoEventDetect/storage"
)

type processQueryRequest struct {
	Query string `json:"query"`
}

type processedQuery struct {
	VisualInterpretation string  `json:"visual_interpretation"`
	AudioInterpretation  string  `json:"audio_interpretation"`
	SuggestedThreshold   float64 `json:"suggested_threshold"`
}

// ProcessQueryHandler inspects a query without touching any video. Useful
// for testing the query embedding path.
func ProcessQueryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req processQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "No query provided")
		return
	}

	threshold := config.DefaultDetectionConfig().Threshold
	if cfg, err := config.LoadConfig(); err == nil {
		threshold = cfg.Detection.Threshold
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"query":   req.Query,
		"processed_query": processedQuery{
			VisualInterpretation: "visual: " + req.Query,
			AudioInterpretation:  "audio: " + req.Query,
			SuggestedThreshold:   threshold,
		},
	})
}

// AnalyzeVideoHandler probes an uploaded video and returns its metadata
// without running detection.
func AnalyzeVideoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(128 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	videoPath, cleanup, err := saveUploadedVideo(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	info, err := sampler.Probe(videoPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"metadata": map[string]any{
			"duration":     info.Duration,
			"fps":          info.FPS,
			"resolution":   fmt.Sprintf("%dx%d", info.Width, info.Height),
			"total_frames": info.TotalFrames,
			"has_audio":    info.HasAudio,
		},
	})
}

type jobQueryRequest struct {
	JobID    string `json:"job_id"`
	Query    string `json:"query"`
	Modality string `json:"modality"`
	TopK     int    `json:"top_k"`
}

type jobQueryResponse struct {
	Success bool          `json:"success"`
	JobID   string        `json:"job_id"`
	Query   string        `json:"query"`
	Hits    []storage.Hit `json:"hits"`
}

// JobQueryHandler re-queries a processed job's persisted embeddings with a
// new query, without re-encoding the video.
func JobQueryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req jobQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.JobID == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "job_id and query required")
		return
	}
	if storage.GlobalStore == nil {
		writeError(w, http.StatusServiceUnavailable, "vector store not initialized")
		return
	}

	var vec []float32
	var err error
	if req.Modality == string(core.ModalityAudio) {
		vec, err = audioEnc.EmbedText(r.Context(), req.Query)
	} else {
		vec, err = visualEnc.EmbedText(r.Context(), req.Query)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	hits := storage.GlobalStore.Search(req.JobID, vec, req.TopK)
	writeJSON(w, http.StatusOK, jobQueryResponse{Success: true, JobID: req.JobID, Query: req.Query, Hits: hits})
}
