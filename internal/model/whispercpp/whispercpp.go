// Package whispercpp runs transcriptions through the whisper.cpp command line tool.
package whispercpp

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"audio_transcription/entity"
	"audio_transcription/internal/model/weights"
	"audio_transcription/pkg/logger"
	"audio_transcription/pkg/staging"
)

const traceName = "whisper-cpp"

// Config -.
type Config struct {
	BinaryPath string
	ModelName  string
	ModelDir   string
	TempDir    string
	Threads    int
}

// Provider transcribes with a ggml model through the whisper.cpp CLI.
// Every call runs its own process, so concurrent calls share nothing but
// the weights file on disk.
type Provider struct {
	cfg       Config
	converter entity.AudioConverter
	fetcher   weights.Fetcher
	l         logger.Interface

	modelPath string
}

// New -.
func New(cfg Config, converter entity.AudioConverter, fetcher weights.Fetcher, l logger.Interface) *Provider {
	return &Provider{
		cfg:       cfg,
		converter: converter,
		fetcher:   fetcher,
		l:         l,
		modelPath: filepath.Join(cfg.ModelDir, WeightsFile(cfg.ModelName)),
	}
}

// WeightsFile is the ggml file name for a model name such as "small".
func WeightsFile(name string) string {
	return "ggml-" + name + ".bin"
}

func (p *Provider) Name() string {
	return "whisper.cpp/" + p.cfg.ModelName
}

// ModelPath -.
func (p *Provider) ModelPath() string {
	return p.modelPath
}

// Load makes sure the weights are on disk and the binary can be found.
func (p *Provider) Load(ctx context.Context) error {
	ctx, span := otel.Tracer(traceName).Start(ctx, "Load")
	defer span.End()

	if _, err := exec.LookPath(p.cfg.BinaryPath); err != nil {
		return errors.Wrapf(err, "whisper.cpp binary %q", p.cfg.BinaryPath)
	}

	if info, err := os.Stat(p.modelPath); err == nil && !info.IsDir() {
		p.l.Info("using local model: %s", p.modelPath)
		return nil
	}

	if p.fetcher == nil {
		return errors.Errorf("model weights not found at %s", p.modelPath)
	}

	p.l.Info("downloading model %s, this may take a while the first time", WeightsFile(p.cfg.ModelName))
	if err := p.fetcher.Fetch(ctx, WeightsFile(p.cfg.ModelName), p.modelPath); err != nil {
		return errors.Wrap(err, "fetch model weights")
	}
	p.l.Info("model stored at %s", p.modelPath)

	return nil
}

// Args builds the whisper.cpp arguments for one run.
func (p *Provider) Args(wavPath, outBase string, opts entity.TranscribeOptions) []string {
	language := opts.Language
	if language == "" {
		language = "auto"
	}

	args := []string{
		"-m", p.modelPath,
		"-f", wavPath,
		"-l", language,
		"-oj",
		"-of", outBase,
		"-np",
	}
	if p.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(p.cfg.Threads))
	}
	if !opts.FP16 {
		args = append(args, "-ng")
	}

	return args
}

func (p *Provider) Transcribe(ctx context.Context, path string, opts entity.TranscribeOptions) (entity.TranscriptionResult, error) {
	ctx, span := otel.Tracer(traceName).Start(ctx, "Transcribe")
	defer span.End()

	span.SetAttributes(attribute.String("language", opts.Language), attribute.Bool("fp16", opts.FP16))

	wav, err := staging.Stage(p.cfg.TempDir, strings.NewReader(""), ".wav")
	if err != nil {
		return entity.TranscriptionResult{}, err
	}
	defer wav.Release()

	if err := p.converter.ToWav16kMono(ctx, path, wav.Path); err != nil {
		return entity.TranscriptionResult{}, err
	}

	outBase := strings.TrimSuffix(wav.Path, ".wav")
	outJSON := outBase + ".json"
	defer os.Remove(outJSON)

	cmd := exec.CommandContext(ctx, p.cfg.BinaryPath, p.Args(wav.Path, outBase, opts)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.l.Debug("running %s %s", p.cfg.BinaryPath, strings.Join(cmd.Args[1:], " "))

	if err := cmd.Run(); err != nil {
		span.RecordError(err)
		return entity.TranscriptionResult{}, errors.Wrapf(err, "whisper.cpp: %s", strings.TrimSpace(stderr.String()))
	}

	raw, err := os.ReadFile(outJSON)
	if err != nil {
		return entity.TranscriptionResult{}, errors.Wrap(err, "read whisper.cpp output")
	}

	return ParseOutput(raw)
}

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

// ParseOutput reads the document written by whisper.cpp's -oj flag. Segment
// texts are joined as emitted, leading spaces included.
func ParseOutput(raw []byte) (entity.TranscriptionResult, error) {
	var out output
	if err := json.Unmarshal(raw, &out); err != nil {
		return entity.TranscriptionResult{}, errors.Wrap(err, "decode whisper.cpp output")
	}

	var sb strings.Builder
	for _, seg := range out.Transcription {
		sb.WriteString(seg.Text)
	}

	return entity.TranscriptionResult{
		Text:     sb.String(),
		Language: out.Result.Language,
	}, nil
}
