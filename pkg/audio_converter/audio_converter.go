package audio_converter

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const traceName = "audio-converter"

const defaultBinary = "ffmpeg"

type AudioConverter struct {
	binary string
}

// NewAudioConverter uses the ffmpeg binary at binary. An empty value means
// "ffmpeg" from the search path.
func NewAudioConverter(binary string) *AudioConverter {
	if binary == "" {
		binary = defaultBinary
	}
	return &AudioConverter{binary: binary}
}

// ResolveBinary prefers a bundled ffmpeg under binDir over the one on the
// search path. The second return value reports whether the bundled copy
// was found.
func ResolveBinary(binDir string) (string, bool) {
	name := defaultBinary
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if binDir == "" {
		return defaultBinary, false
	}

	candidate := filepath.Join(binDir, name)
	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return defaultBinary, false
	}

	return candidate, true
}

// Binary -.
func (ac *AudioConverter) Binary() string {
	return ac.binary
}

// Args builds the ffmpeg arguments that turn any input into 16 kHz mono
// 16-bit PCM wav.
func (ac *AudioConverter) Args(inputPath, outputPath string) []string {
	return ffmpeg.Input(inputPath).
		Output(outputPath, ffmpeg.KwArgs{"ar": 16000, "ac": 1, "c:a": "pcm_s16le"}).
		OverWriteOutput().
		GetArgs()
}

func (ac *AudioConverter) ToWav16kMono(ctx context.Context, inputPath, outputPath string) error {
	ctx, span := otel.Tracer(traceName).Start(ctx, "ToWav16kMono")
	defer span.End()

	span.SetAttributes(attribute.String("ffmpeg", ac.binary))

	cmd := exec.CommandContext(ctx, ac.binary, ac.Args(inputPath, outputPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "ffmpeg: %s", lastLine(stderr.Bytes()))
	}

	return nil
}

func lastLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		return string(b[i+1:])
	}
	return string(b)
}
