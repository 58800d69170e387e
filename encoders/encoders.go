package encoders

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"videoEventDetect/config"
)

// VisualEncoder embeds sampled frames and query text into a shared
// CLIP-family space.
type VisualEncoder interface {
	EmbedFrames(ctx context.Context, framePaths []string) ([][]float32, error)
	EmbedText(ctx context.Context, query string) ([]float32, error)
	Dimension() int
}

// AudioEncoder embeds sliced audio windows and query text into a shared
// CLAP-family space.
type AudioEncoder interface {
	EmbedSegments(ctx context.Context, windowPaths []string) ([][]float32, error)
	EmbedText(ctx context.Context, query string) ([]float32, error)
	Dimension() int
}

func openaiClient(cfg *config.Config) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

// PickVisualEncoder selects the visual encoder implementation. ENCODER=mock
// forces the deterministic mock; otherwise the API-backed encoder is used when
// credentials are configured.
func PickVisualEncoder() VisualEncoder {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("ENCODER")))
	if provider == "mock" {
		return NewMockVisualEncoder(defaultDim())
	}
	cfg, err := config.LoadConfig()
	if err != nil || !cfg.HasValidAPI() {
		if err == nil {
			config.PrintConfigInstructions()
		}
		fmt.Println("Warning: API configuration not found for visual encoder, using mock encoder")
		return NewMockVisualEncoder(defaultDim())
	}
	return &XCLIPEncoder{cli: openaiClient(cfg), model: cfg.VisualModel, dim: cfg.EmbeddingDim}
}

// PickAudioEncoder selects the audio encoder implementation.
func PickAudioEncoder() AudioEncoder {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("ENCODER")))
	if provider == "mock" {
		return NewMockAudioEncoder(defaultDim())
	}
	cfg, err := config.LoadConfig()
	if err != nil || !cfg.HasValidAPI() {
		if err == nil {
			config.PrintConfigInstructions()
		}
		fmt.Println("Warning: API configuration not found for audio encoder, using mock encoder")
		return NewMockAudioEncoder(defaultDim())
	}
	return &CLAPEncoder{cli: openaiClient(cfg), model: cfg.AudioModel, dim: cfg.EmbeddingDim}
}

func defaultDim() int {
	if cfg, err := config.LoadConfig(); err == nil && cfg.EmbeddingDim > 0 {
		return cfg.EmbeddingDim
	}
	return 512
}
