package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audio_transcription/entity"
	"audio_transcription/internal/telemetry/metric"
	"audio_transcription/internal/transcription"
	"audio_transcription/pkg/logger"
)

type stubModel struct {
	mu     sync.Mutex
	loaded bool
	err    error
	paths  []string
}

func (m *stubModel) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *stubModel) Transcribe(_ context.Context, path string, _ entity.TranscribeOptions) (entity.TranscriptionResult, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return entity.TranscriptionResult{}, err
	}

	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()

	if m.err != nil {
		return entity.TranscriptionResult{}, m.err
	}
	return entity.TranscriptionResult{Text: "text of " + string(body), Language: "es"}, nil
}

func (m *stubModel) setLoaded(v bool) {
	m.mu.Lock()
	m.loaded = v
	m.mu.Unlock()
}

type testEnv struct {
	router  *gin.Engine
	model   *stubModel
	tempDir string
}

func newTestEnv(t *testing.T, opts RouterOptions) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l := logger.NewWithWriter("error", io.Discard)
	m := &stubModel{loaded: true}
	dir := t.TempDir()
	tu := transcription.NewTranscriptionUsecase(m, transcription.Options{TempDir: dir, Language: "es", MaxConcurrent: 4}, l, nil)

	if opts.ModelLabel == "" {
		opts.ModelLabel = "whisper-small"
	}

	router := gin.New()
	NewRouter(router, l, tu, opts)

	return &testEnv{router: router, model: m, tempDir: dir}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, field, filename string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	if filename != "" {
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
		h.Set("Content-Type", "audio/wav")
	} else {
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, field))
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/transcribe", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func assertNoStagedFiles(t *testing.T, e *testEnv) {
	t.Helper()
	entries, err := os.ReadDir(e.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	e.model.mu.Lock()
	defer e.model.mu.Unlock()
	for _, p := range e.model.paths {
		assert.NoFileExists(t, p)
	}
}

func TestStatus(t *testing.T) {
	e := newTestEnv(t, RouterOptions{})

	rec := e.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, "whisper-small", body["model"])
	assert.NotEmpty(t, body["message"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestHealth_ReflectsModelState(t *testing.T) {
	e := newTestEnv(t, RouterOptions{})
	e.model.setLoaded(false)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "healthy", "model_loaded": false}, decode(t, rec))

	e.model.setLoaded(true)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, map[string]interface{}{"status": "healthy", "model_loaded": true}, decode(t, rec))
}

func TestTranscribe_Success(t *testing.T) {
	e := newTestEnv(t, RouterOptions{})

	rec := e.do(multipartRequest(t, "audio", "clip.wav", []byte("hola")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "text of hola", body["text"])
	assert.Equal(t, body["text"], body["transcription"])
	assert.Equal(t, "es", body["language"])
	assert.Equal(t, "clip.wav", body["filename"])

	require.Len(t, e.model.paths, 1)
	assert.Equal(t, ".wav", filepath.Ext(e.model.paths[0]))
	assertNoStagedFiles(t, e)
}

func TestTranscribe_NoFilename(t *testing.T) {
	e := newTestEnv(t, RouterOptions{})

	rec := e.do(multipartRequest(t, "audio", "", []byte("hola")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	v, ok := body["filename"]
	assert.True(t, ok)
	assert.Nil(t, v)

	require.Len(t, e.model.paths, 1)
	assert.Equal(t, ".mp3", filepath.Ext(e.model.paths[0]))
	assertNoStagedFiles(t, e)
}

func TestTranscribe_ProviderFailure(t *testing.T) {
	e := newTestEnv(t, RouterOptions{})
	e.model.err = errors.New("unsupported codec")

	rec := e.do(multipartRequest(t, "audio", "clip.ogg", []byte("junk")))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decode(t, rec)
	detail, _ := body["detail"].(string)
	assert.NotEmpty(t, detail)
	assert.Contains(t, detail, "unsupported codec")
	assertNoStagedFiles(t, e)
}

func TestTranscribe_ModelNotLoaded(t *testing.T) {
	e := newTestEnv(t, RouterOptions{})
	e.model.setLoaded(false)

	rec := e.do(multipartRequest(t, "audio", "clip.wav", []byte("hola")))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "model not loaded")
	assertNoStagedFiles(t, e)
}

func TestTranscribe_BadRequests(t *testing.T) {
	e := newTestEnv(t, RouterOptions{})

	rec := e.do(multipartRequest(t, "file", "clip.wav", []byte("hola")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], `"audio"`)

	req := httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec = e.do(req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["detail"])

	assert.Empty(t, e.model.paths)
}

func TestTranscribe_UploadLimit(t *testing.T) {
	e := newTestEnv(t, RouterOptions{MaxUploadBytes: 1024})

	rec := e.do(multipartRequest(t, "audio", "clip.wav", bytes.Repeat([]byte("a"), 4096)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["detail"])
	assert.Empty(t, e.model.paths)
}

func TestTranscribe_Concurrent(t *testing.T) {
	e := newTestEnv(t, RouterOptions{})

	const n = 12
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := fmt.Sprintf("payload-%d", i)
			rec := e.do(multipartRequest(t, "audio", fmt.Sprintf("clip-%d.wav", i), []byte(payload)))
			if !assert.Equal(t, http.StatusOK, rec.Code) {
				return
			}
			var body entity.TranscribeResponse
			if assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body)) {
				assert.Equal(t, "text of "+payload, body.Text)
				assert.Equal(t, body.Text, body.Transcription)
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, p := range e.model.paths {
		assert.False(t, seen[p])
		seen[p] = true
	}
	assert.Len(t, seen, n)
	assertNoStagedFiles(t, e)
}

func TestMetricsRoute(t *testing.T) {
	m := metric.New()
	e := newTestEnv(t, RouterOptions{Metrics: m.Handler()})

	rec := e.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "audio_transcription_")
}

func TestRequestID_Preserved(t *testing.T) {
	e := newTestEnv(t, RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := e.do(req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}
