package main

import (
	"context"
	"log"

	"audio_transcription/config"
	"audio_transcription/internal/server"

	_ "audio_transcription/cmd/server/docs"
)

// @title           Audio Transcription API
// @version         1.0
// @description     Transcribes uploaded audio files with a Whisper model.

// @host      localhost:10000
// @BasePath  /

func main() {
	// Configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Config error: %s", err)
	}

	// Run
	ctx := context.Background()
	s := server.NewServer(cfg)
	if err := s.Run(ctx, cfg); err != nil {
		log.Fatalf("Server error: %s", err)
	}
}
