package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"videoEventDetect/config"
	"videoEventDetect/core"
	"videoEventDetect/encoders"
	"videoEventDetect/processors"
)

const maxUploadBytes = 500 << 20 // 500MB

var allowedExtensions = map[string]bool{
	".mp4": true,
	".avi": true,
	".mov": true,
	".mkv": true,
}

// 全局变量
var (
	detector  *processors.EventDetector
	sampler   processors.MediaSampler
	visualEnc encoders.VisualEncoder
	audioEnc  encoders.AudioEncoder
)

// Configure wires the handlers to the service objects built in main.
func Configure(d *processors.EventDetector, s processors.MediaSampler, visual encoders.VisualEncoder, audio encoders.AudioEncoder) {
	detector = d
	sampler = s
	visualEnc = visual
	audioEnc = audio
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "write json error: %v", err)
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

type detectEventsResponse struct {
	Success          bool                   `json:"success"`
	Query            string                 `json:"query"`
	Events           []core.Event           `json:"events"`
	EditInstructions []core.EditInstruction `json:"edit_instructions"`
	Metadata         core.Metadata          `json:"metadata"`
}

// DetectEventsHandler accepts a multipart video plus a query and runs the
// full detection pipeline.
func DetectEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(128 << 20); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 500MB")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	query := r.FormValue("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "No query provided")
		return
	}

	videoPath, cleanup, err := saveUploadedVideo(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	cfg, err := detectionConfigFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID := core.NewID()
	log.Printf("[%s] processing video %s with query: %s", jobID, filepath.Base(videoPath), query)

	result, err := detector.Detect(r.Context(), processors.DetectRequest{
		JobID:     jobID,
		VideoPath: videoPath,
		Query:     query,
		Config:    cfg,
	})
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, detectEventsResponse{
		Success:          true,
		Query:            query,
		Events:           result.Events,
		EditInstructions: result.EditInstructions,
		Metadata:         result.Metadata,
	})
}

// errorStatus maps the typed failure taxonomy to HTTP status codes. This is
// the only place internal errors become user-visible text.
func errorStatus(err error) int {
	var cfgErr *core.InvalidConfigError
	if errors.As(err, &cfgErr) {
		return http.StatusBadRequest
	}
	if errors.Is(err, core.ErrNoModalityData) {
		return http.StatusUnprocessableEntity
	}
	if core.IsEncoderTimeout(err) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// saveUploadedVideo validates and stores the uploaded file under a
// timestamped name; the returned cleanup removes it.
func saveUploadedVideo(r *http.Request) (string, func(), error) {
	file, header, err := r.FormFile("video")
	if err != nil {
		return "", nil, fmt.Errorf("No video file provided")
	}
	defer file.Close()

	if header.Filename == "" {
		return "", nil, fmt.Errorf("No file selected")
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return "", nil, fmt.Errorf("Invalid file type. Allowed types: mp4, avi, mov, mkv")
	}

	uploadDir := filepath.Join(core.DataRoot(), "uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", nil, fmt.Errorf("failed to create upload dir: %v", err)
	}

	name := fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), filepath.Base(header.Filename))
	dst := filepath.Join(uploadDir, name)
	out, err := os.Create(dst)
	if err != nil {
		return "", nil, fmt.Errorf("failed to store upload: %v", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dst)
		return "", nil, fmt.Errorf("failed to store upload: %v", err)
	}
	out.Close()

	return dst, func() { os.Remove(dst) }, nil
}

// detectionConfigFromForm layers per-request overrides over the configured
// defaults. Validation happens in the detector, before processing starts.
func detectionConfigFromForm(r *http.Request) (config.DetectionConfig, error) {
	cfg := config.DefaultDetectionConfig()
	if loaded, err := config.LoadConfig(); err == nil {
		cfg = loaded.Detection
	}

	fields := map[string]*float64{
		"threshold":          &cfg.Threshold,
		"min_event_duration": &cfg.MinEventDuration,
		"merge_gap":          &cfg.MergeGap,
		"visual_weight":      &cfg.VisualWeight,
		"audio_weight":       &cfg.AudioWeight,
	}
	for name, dst := range fields {
		raw := r.FormValue(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %q", name, raw)
		}
		*dst = v
	}
	return cfg, nil
}
