package encoders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	openai "github.com/sashabaranov/go-openai"
)

// XCLIPEncoder runs the X-CLIP vision tower through a local Python runtime
// and the text tower through an OpenAI-compatible embeddings endpoint.
type XCLIPEncoder struct {
	cli   *openai.Client
	model string
	dim   int
}

func (e *XCLIPEncoder) Dimension() int { return e.dim }

func (e *XCLIPEncoder) EmbedText(ctx context.Context, query string) ([]float32, error) {
	return embedTextAPI(ctx, e.cli, e.model, query)
}

func (e *XCLIPEncoder) EmbedFrames(ctx context.Context, framePaths []string) ([][]float32, error) {
	scriptContent := `#!/usr/bin/env python3
import json
import sys

import torch
from PIL import Image
from transformers import AutoModel, AutoProcessor

def embed_frames(model_name, paths):
    processor = AutoProcessor.from_pretrained(model_name)
    model = AutoModel.from_pretrained(model_name)
    model.eval()
    vectors = []
    with torch.no_grad():
        for path in paths:
            image = Image.open(path).convert("RGB")
            inputs = processor(images=image, return_tensors="pt")
            features = model.get_image_features(**inputs)
            features = features / features.norm(dim=-1, keepdim=True)
            vectors.append(features[0].tolist())
    return vectors

if __name__ == "__main__":
    payload = json.load(sys.stdin)
    print(json.dumps(embed_frames(payload["model"], payload["paths"])))
`

	return runEmbedScript(ctx, "xclip_embed_frames.py", scriptContent, e.model, framePaths)
}

// runEmbedScript writes a temp Python script and feeds it the model name and
// media paths on stdin; the script prints one vector per path as JSON.
func runEmbedScript(ctx context.Context, scriptName, scriptContent, model string, paths []string) ([][]float32, error) {
	scriptPath := filepath.Join(os.TempDir(), scriptName)
	if err := os.WriteFile(scriptPath, []byte(scriptContent), 0644); err != nil {
		return nil, fmt.Errorf("failed to create embed script: %v", err)
	}
	defer os.Remove(scriptPath)

	payload, err := json.Marshal(map[string]interface{}{"model": model, "paths": paths})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal script input: %v", err)
	}

	cmd := exec.CommandContext(ctx, "python", scriptPath)
	cmd.Stdin = bytes.NewReader(payload)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("embed script failed: %v", err)
	}

	var vectors [][]float32
	if err := json.Unmarshal(output, &vectors); err != nil {
		return nil, fmt.Errorf("failed to parse embed output: %v", err)
	}
	if len(vectors) != len(paths) {
		return nil, fmt.Errorf("embed script returned %d vectors for %d inputs", len(vectors), len(paths))
	}
	return vectors, nil
}

func embedTextAPI(ctx context.Context, cli *openai.Client, model, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(model),
		Input: []string{text},
	}
	resp, err := cli.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embedding API failed: %v", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return resp.Data[0].Embedding, nil
}
