package transcription

import (
	"context"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"audio_transcription/entity"
	"audio_transcription/internal/telemetry/metric"
	"audio_transcription/pkg/logger"
	"audio_transcription/pkg/staging"
)

const traceName = "transcription-usecase"

const defaultSuffix = ".mp3"

// Model is the loaded speech model shared by all requests.
type Model interface {
	Loaded() bool
	Transcribe(ctx context.Context, path string, opts entity.TranscribeOptions) (entity.TranscriptionResult, error)
}

// Options -.
type Options struct {
	TempDir       string
	DefaultSuffix string
	// Language hint sent with every call; "" or "auto" lets the model detect it.
	Language      string
	FP16          bool
	MaxConcurrent int64
}

type TranscriptionUsecase struct {
	model   Model
	opts    Options
	sem     *semaphore.Weighted
	l       logger.Interface
	metrics *metric.Metrics
}

var _ entity.TranscriptionUsecase = (*TranscriptionUsecase)(nil)

// NewTranscriptionUsecase -. metrics may be nil.
func NewTranscriptionUsecase(model Model, opts Options, l logger.Interface, metrics *metric.Metrics) *TranscriptionUsecase {
	if opts.DefaultSuffix == "" {
		opts.DefaultSuffix = defaultSuffix
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	opts.Language = NormalizeLanguage(opts.Language)

	return &TranscriptionUsecase{
		model:   model,
		opts:    opts,
		sem:     semaphore.NewWeighted(opts.MaxConcurrent),
		l:       l,
		metrics: metrics,
	}
}

// NormalizeLanguage maps the "auto" setting to an empty hint.
func NormalizeLanguage(language string) string {
	language = strings.TrimSpace(strings.ToLower(language))
	if language == "auto" {
		return ""
	}
	return language
}

func (u *TranscriptionUsecase) ModelLoaded() bool {
	return u.model.Loaded()
}

// Transcribe stages audio to a temp file, runs the model on it and removes
// the file again before returning, whatever the outcome.
func (u *TranscriptionUsecase) Transcribe(ctx context.Context, audio entity.UploadedAudio) (entity.TranscriptionResult, error) {
	ctx, span := otel.Tracer(traceName).Start(ctx, "Transcribe")
	defer span.End()

	span.SetAttributes(
		attribute.String("filename", audio.Filename),
		attribute.String("content_type", audio.ContentType),
	)

	u.l.Info("file received: %s, type: %s", audio.Filename, audio.ContentType)

	if !u.model.Loaded() {
		return entity.TranscriptionResult{}, u.fail(span, metric.OutcomeRejected, ErrModelNotLoaded, ErrModelNotLoaded)
	}

	suffix := staging.SuffixFor(audio.Filename, u.opts.DefaultSuffix)
	src := audio.Body
	if src == nil {
		src = strings.NewReader("")
	}
	body := &countingReader{r: src}

	staged, err := staging.Stage(u.opts.TempDir, body, suffix)
	if err != nil {
		return entity.TranscriptionResult{}, u.fail(span, metric.OutcomeStaging, ErrStaging, err)
	}
	defer staged.Release()

	u.observeUpload(body.n)
	u.l.Debug("file staged at %s (%d bytes)", staged.Path, body.n)

	if err := u.sem.Acquire(ctx, 1); err != nil {
		return entity.TranscriptionResult{}, u.fail(span, metric.OutcomeRejected, ErrInference, err)
	}
	defer u.sem.Release(1)

	u.l.Info("starting transcription of %s", staged.Path)

	res, err := u.invoke(ctx, staged.Path)
	if err != nil {
		return entity.TranscriptionResult{}, u.fail(span, metric.OutcomeFailure, ErrInference, err)
	}

	if res.Language == "" {
		res.Language = entity.UnknownLanguage
	}

	u.l.Info("transcription completed: %s", preview(res.Text, 100))
	if u.metrics != nil {
		u.metrics.Transcriptions.WithLabelValues(metric.OutcomeSuccess).Inc()
	}

	return res, nil
}

func (u *TranscriptionUsecase) invoke(ctx context.Context, path string) (entity.TranscriptionResult, error) {
	ctx, span := otel.Tracer(traceName).Start(ctx, "invoke")
	defer span.End()

	if u.metrics != nil {
		u.metrics.InFlight.Inc()
		defer u.metrics.InFlight.Dec()
		start := time.Now()
		defer func() { u.metrics.InferenceDuration.Observe(time.Since(start).Seconds()) }()
	}

	return u.model.Transcribe(ctx, path, entity.TranscribeOptions{
		Language: u.opts.Language,
		FP16:     u.opts.FP16,
	})
}

func (u *TranscriptionUsecase) fail(span trace.Span, outcome string, kind, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if u.metrics != nil {
		u.metrics.Transcriptions.WithLabelValues(outcome).Inc()
	}

	u.l.Error("transcription - %s: %v", kind, err)

	return &Error{Kind: kind, Err: err}
}

func (u *TranscriptionUsecase) observeUpload(n int64) {
	if u.metrics != nil {
		u.metrics.UploadBytes.Observe(float64(n))
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
