package main

import (
	"log"
	"net/http"
	"os"

	"videoEventDetect/core"
	"videoEventDetect/encoders"
	"videoEventDetect/processors"
	"videoEventDetect/server"
	"videoEventDetect/storage"
)

func main() {
	if err := os.MkdirAll(core.DataRoot(), 0755); err != nil {
		log.Fatalf("failed to create data dir: %v", err)
	}

	if err := storage.InitVectorStore(); err != nil {
		log.Fatalf("failed to init vector store: %v", err)
	}
	backend := os.Getenv("STORE")
	if backend == "" {
		backend = "memory"
	}
	log.Printf("Vector store initialized: %s", backend)

	visual := encoders.PickVisualEncoder()
	audio := encoders.PickAudioEncoder()
	sampler := processors.NewFFmpegSampler()
	detector := processors.NewEventDetector(visual, audio, sampler, storage.GlobalStore)
	server.Configure(detector, sampler, visual, audio)
	log.Printf("Event detector initialized")

	// Routes
	http.HandleFunc("/health", server.HealthHandler)
	http.HandleFunc("/api/detect-events", server.DetectEventsHandler)
	http.HandleFunc("/api/process-query", server.ProcessQueryHandler)
	http.HandleFunc("/api/analyze-video", server.AnalyzeVideoHandler)
	http.HandleFunc("/api/jobs/query", server.JobQueryHandler)

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	log.Printf("Server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
