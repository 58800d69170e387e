package processors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"videoEventDetect/core"
)

// MediaSampler decodes an input container into the timed raw material the
// encoders consume: probe metadata, frames at a sampling rate, and fixed
// audio windows.
type MediaSampler interface {
	Probe(videoPath string) (core.VideoInfo, error)
	SampleFrames(videoPath, framesDir string, fps float64) ([]core.FrameSample, error)
	SampleAudio(videoPath, audioDir string, windowSec float64) ([]core.AudioWindow, error)
}

// FFmpegSampler shells out to ffmpeg/ffprobe.
type FFmpegSampler struct{}

func NewFFmpegSampler() *FFmpegSampler { return &FFmpegSampler{} }

func runFFmpeg(args []string) error {
	cmd := exec.Command("ffmpeg", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (f *FFmpegSampler) Probe(videoPath string) (core.VideoInfo, error) {
	var info core.VideoInfo
	cmd := exec.Command("ffprobe", "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", videoPath)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return info, fmt.Errorf("probe video: %v", err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType  string `json:"codec_type"`
			Width      int    `json:"width"`
			Height     int    `json:"height"`
			RFrameRate string `json:"r_frame_rate"`
			NBFrames   string `json:"nb_frames"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out.Bytes(), &probe); err != nil {
		return info, fmt.Errorf("parse probe result: %v", err)
	}

	info.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			info.Width = stream.Width
			info.Height = stream.Height
			info.FPS = parseFrameRate(stream.RFrameRate)
			if n, err := strconv.Atoi(stream.NBFrames); err == nil {
				info.TotalFrames = n
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if info.TotalFrames == 0 && info.FPS > 0 {
		info.TotalFrames = int(info.Duration * info.FPS)
	}
	return info, nil
}

// parseFrameRate handles ffprobe's rational form, e.g. "30000/1001".
func parseFrameRate(s string) float64 {
	parts := strings.SplitN(s, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

// SampleFrames extracts frames at the given sampling rate into framesDir.
// Frame i covers [i/fps, (i+1)/fps), clipped to the video duration.
func (f *FFmpegSampler) SampleFrames(videoPath, framesDir string, fps float64) ([]core.FrameSample, error) {
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return nil, fmt.Errorf("create frames dir: %v", err)
	}
	pattern := filepath.Join(framesDir, "frame_%05d.jpg")
	args := []string{"-y", "-i", videoPath, "-vf", fmt.Sprintf("fps=%g", fps), "-q:v", "2", pattern}
	if err := runFFmpeg(args); err != nil {
		return nil, fmt.Errorf("extract frames: %v", err)
	}

	paths, err := filepath.Glob(filepath.Join(framesDir, "frame_*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	info, err := f.Probe(videoPath)
	if err != nil {
		return nil, err
	}

	interval := 1.0 / fps
	frames := make([]core.FrameSample, 0, len(paths))
	for i, path := range paths {
		start := float64(i) * interval
		end := start + interval
		if info.Duration > 0 {
			end = math.Min(end, info.Duration)
		}
		if end <= start {
			break
		}
		frames = append(frames, core.FrameSample{Start: start, End: end, Path: path})
	}
	return frames, nil
}

// SampleAudio extracts a mono 48kHz track and slices it into fixed windows.
// A video without an audio stream yields zero windows, not an error.
func (f *FFmpegSampler) SampleAudio(videoPath, audioDir string, windowSec float64) ([]core.AudioWindow, error) {
	info, err := f.Probe(videoPath)
	if err != nil {
		return nil, err
	}
	if !info.HasAudio {
		return nil, nil
	}

	if err := os.MkdirAll(audioDir, 0755); err != nil {
		return nil, fmt.Errorf("create audio dir: %v", err)
	}
	pattern := filepath.Join(audioDir, "window_%05d.wav")
	args := []string{
		"-y", "-i", videoPath, "-vn", "-ac", "1", "-ar", "48000",
		"-f", "segment", "-segment_time", fmt.Sprintf("%g", windowSec),
		"-reset_timestamps", "1", pattern,
	}
	if err := runFFmpeg(args); err != nil {
		return nil, fmt.Errorf("extract audio windows: %v", err)
	}

	paths, err := filepath.Glob(filepath.Join(audioDir, "window_*.wav"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	windows := make([]core.AudioWindow, 0, len(paths))
	for i, path := range paths {
		start := float64(i) * windowSec
		end := start + windowSec
		if info.Duration > 0 {
			end = math.Min(end, info.Duration)
		}
		if end <= start {
			break
		}
		windows = append(windows, core.AudioWindow{Start: start, End: end, Path: path})
	}
	return windows, nil
}
