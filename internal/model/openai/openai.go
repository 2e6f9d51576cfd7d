// Package openai transcribes through an OpenAI compatible audio API.
package openai

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	goopenai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"

	"audio_transcription/entity"
)

const traceName = "openai-transcriber"

// Config -.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Provider -.
type Provider struct {
	client *goopenai.Client
	model  string
}

// New -.
func New(cfg Config) *Provider {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = goopenai.Whisper1
	}

	return &Provider{client: goopenai.NewClientWithConfig(clientCfg), model: model}
}

func (p *Provider) Name() string {
	return "openai/" + p.model
}

// Load checks the endpoint is reachable and serves models.
func (p *Provider) Load(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return errors.Wrap(err, "openai.ListModels")
	}
	return nil
}

func (p *Provider) Transcribe(ctx context.Context, path string, opts entity.TranscribeOptions) (entity.TranscriptionResult, error) {
	ctx, span := otel.Tracer(traceName).Start(ctx, "Transcribe")
	defer span.End()

	resp, err := p.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    p.model,
		FilePath: path,
		Language: opts.Language,
		Format:   goopenai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		span.RecordError(err)
		return entity.TranscriptionResult{}, errors.Wrap(err, "openai.CreateTranscription")
	}

	return entity.TranscriptionResult{
		Text:     resp.Text,
		Language: resp.Language,
	}, nil
}
