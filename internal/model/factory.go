package model

import (
	"context"
	"fmt"
	"strings"

	"audio_transcription/config"
	"audio_transcription/internal/model/openai"
	"audio_transcription/internal/model/weights"
	"audio_transcription/internal/model/whispercpp"
	"audio_transcription/internal/storage/s3repo"
	"audio_transcription/pkg/audio_converter"
	"audio_transcription/pkg/logger"
)

const (
	ProviderWhisperCpp = "whispercpp"
	ProviderOpenAI     = "openai"
)

// NewProvider builds the backend named by cfg.Model.Provider.
func NewProvider(cfg *config.Config, l logger.Interface) (Provider, error) {
	switch strings.ToLower(cfg.Model.Provider) {
	case ProviderWhisperCpp, "":
		ffmpegBin, bundled := audio_converter.ResolveBinary(cfg.FFmpeg.BinDir)
		if bundled {
			l.Info("ffmpeg configured from: %s", ffmpegBin)
		} else {
			l.Warn("ffmpeg not found in %s, falling back to ffmpeg from PATH", cfg.FFmpeg.BinDir)
		}

		fetcher, err := newFetcher(cfg)
		if err != nil {
			return nil, err
		}

		return whispercpp.New(whispercpp.Config{
			BinaryPath: cfg.Model.BinaryPath,
			ModelName:  cfg.Model.Name,
			ModelDir:   cfg.Model.Dir,
			TempDir:    cfg.Storage.TempDir,
			Threads:    cfg.Model.Threads,
		}, audio_converter.NewAudioConverter(ffmpegBin), fetcher, l), nil
	case ProviderOpenAI:
		return openai.New(openai.Config{
			BaseURL: cfg.Model.OpenAI.BaseURL,
			APIKey:  cfg.Model.OpenAI.APIKey,
			Model:   cfg.Model.OpenAI.ModelName,
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

func newFetcher(cfg *config.Config) (weights.Fetcher, error) {
	if cfg.Model.S3Bucket != "" {
		repo, err := s3repo.NewS3Repository(context.Background(), cfg.S3)
		if err != nil {
			return nil, err
		}
		return weights.NewS3Fetcher(repo, cfg.Model.S3Bucket, cfg.Model.S3Prefix), nil
	}
	if cfg.Model.DownloadURL != "" {
		return weights.NewHTTPFetcher(cfg.Model.DownloadURL, nil), nil
	}
	return nil, nil
}
