package encoders

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// CLAPEncoder runs the CLAP audio tower through a local Python runtime and
// the text tower through an OpenAI-compatible embeddings endpoint.
type CLAPEncoder struct {
	cli   *openai.Client
	model string
	dim   int
}

func (e *CLAPEncoder) Dimension() int { return e.dim }

func (e *CLAPEncoder) EmbedText(ctx context.Context, query string) ([]float32, error) {
	return embedTextAPI(ctx, e.cli, e.model, query)
}

func (e *CLAPEncoder) EmbedSegments(ctx context.Context, windowPaths []string) ([][]float32, error) {
	scriptContent := `#!/usr/bin/env python3
import json
import sys

import librosa
import torch
from transformers import AutoModel, AutoProcessor

def embed_windows(model_name, paths):
    processor = AutoProcessor.from_pretrained(model_name)
    model = AutoModel.from_pretrained(model_name)
    model.eval()
    vectors = []
    with torch.no_grad():
        for path in paths:
            waveform, sr = librosa.load(path, sr=48000, mono=True)
            inputs = processor(audios=waveform, sampling_rate=sr, return_tensors="pt")
            features = model.get_audio_features(**inputs)
            features = features / features.norm(dim=-1, keepdim=True)
            vectors.append(features[0].tolist())
    return vectors

if __name__ == "__main__":
    payload = json.load(sys.stdin)
    print(json.dumps(embed_windows(payload["model"], payload["paths"])))
`

	return runEmbedScript(ctx, "clap_embed_windows.py", scriptContent, e.model, windowPaths)
}
