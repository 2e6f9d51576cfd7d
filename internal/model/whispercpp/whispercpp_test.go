package whispercpp

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audio_transcription/entity"
	"audio_transcription/internal/model/weights"
	"audio_transcription/pkg/logger"
)

const fakeWhisper = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -of) out="$2"; shift ;;
  esac
  shift
done
printf '{"result":{"language":"es"},"transcription":[{"text":" Hola"},{"text":" mundo."}]}' > "$out.json"
`

const brokenWhisper = `#!/bin/sh
echo "failed to read audio" >&2
exit 3
`

type copyConverter struct {
	err   error
	calls int
}

func (c *copyConverter) ToWav16kMono(_ context.Context, in, out string) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	src, err := os.Open(in)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(out)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

type stubFetcher struct {
	name string
	err  error
}

func (f *stubFetcher) Fetch(_ context.Context, name, dest string) error {
	f.name = name
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("ggml"), 0o600)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures need a POSIX shell")
	}
	p := filepath.Join(t.TempDir(), "whisper-cli")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o755))
	return p
}

func newTestProvider(t *testing.T, script string, conv entity.AudioConverter, fetcher *stubFetcher) (*Provider, string) {
	t.Helper()
	tmp := t.TempDir()
	cfg := Config{
		BinaryPath: script,
		ModelName:  "small",
		ModelDir:   filepath.Join(t.TempDir(), "models"),
		TempDir:    tmp,
		Threads:    2,
	}
	var fetch weights.Fetcher
	if fetcher != nil {
		fetch = fetcher
	}
	p := New(cfg, conv, fetch, logger.NewWithWriter("error", io.Discard))
	return p, tmp
}

func TestLoad_UsesLocalWeights(t *testing.T) {
	p, _ := newTestProvider(t, writeScript(t, fakeWhisper), &copyConverter{}, nil)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.ModelPath()), 0o755))
	require.NoError(t, os.WriteFile(p.ModelPath(), []byte("ggml"), 0o600))

	assert.NoError(t, p.Load(context.Background()))
}

func TestLoad_FetchesMissingWeights(t *testing.T) {
	fetcher := &stubFetcher{}
	p, _ := newTestProvider(t, writeScript(t, fakeWhisper), &copyConverter{}, fetcher)
	require.NoError(t, os.MkdirAll(filepath.Dir(p.ModelPath()), 0o755))

	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, "ggml-small.bin", fetcher.name)
	assert.FileExists(t, p.ModelPath())
}

func TestLoad_Failures(t *testing.T) {
	script := writeScript(t, fakeWhisper)

	p, _ := newTestProvider(t, script, &copyConverter{}, nil)
	assert.Error(t, p.Load(context.Background()), "no weights and no fetcher")

	p, _ = newTestProvider(t, script, &copyConverter{}, &stubFetcher{err: errors.New("offline")})
	err := p.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")

	p, _ = newTestProvider(t, filepath.Join(t.TempDir(), "missing-cli"), &copyConverter{}, &stubFetcher{})
	assert.Error(t, p.Load(context.Background()), "binary missing")
}

func TestTranscribe(t *testing.T) {
	conv := &copyConverter{}
	p, tmp := newTestProvider(t, writeScript(t, fakeWhisper), conv, nil)

	in := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(in, []byte("audio"), 0o600))

	res, err := p.Transcribe(context.Background(), in, entity.TranscribeOptions{Language: "es"})
	require.NoError(t, err)
	assert.Equal(t, " Hola mundo.", res.Text)
	assert.Equal(t, "es", res.Language)
	assert.Equal(t, 1, conv.calls)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "intermediate wav and json must be removed")
}

func TestTranscribe_ProcessFailure(t *testing.T) {
	p, tmp := newTestProvider(t, writeScript(t, brokenWhisper), &copyConverter{}, nil)

	in := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(in, []byte("audio"), 0o600))

	_, err := p.Transcribe(context.Background(), in, entity.TranscribeOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read audio")

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTranscribe_ConverterFailure(t *testing.T) {
	p, tmp := newTestProvider(t, writeScript(t, fakeWhisper), &copyConverter{err: errors.New("unsupported codec")}, nil)

	_, err := p.Transcribe(context.Background(), "clip.mp3", entity.TranscribeOptions{})
	assert.EqualError(t, err, "unsupported codec")

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestArgs(t *testing.T) {
	p := New(Config{BinaryPath: "whisper-cli", ModelName: "small", ModelDir: "models", Threads: 4}, nil, nil, logger.NewWithWriter("error", io.Discard))

	args := p.Args("in.wav", "out", entity.TranscribeOptions{Language: "es"})
	assert.Equal(t, []string{
		"-m", filepath.Join("models", "ggml-small.bin"),
		"-f", "in.wav",
		"-l", "es",
		"-oj",
		"-of", "out",
		"-np",
		"-t", "4",
		"-ng",
	}, args)

	args = p.Args("in.wav", "out", entity.TranscribeOptions{FP16: true})
	assert.Contains(t, args, "auto")
	assert.NotContains(t, args, "-ng")
}

func TestParseOutput(t *testing.T) {
	res, err := ParseOutput([]byte(`{"transcription":[{"text":" solo texto"}]}`))
	require.NoError(t, err)
	assert.Equal(t, " solo texto", res.Text)
	assert.Empty(t, res.Language)

	_, err = ParseOutput([]byte("not json"))
	assert.Error(t, err)
}
