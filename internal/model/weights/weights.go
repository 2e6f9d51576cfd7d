// Package weights fetches model weight files that are not on local disk yet.
package weights

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"audio_transcription/entity"
)

const traceName = "weights"

// Upper bound for one weights download; the largest ggml files are ~3 GB.
const downloadTimeout = 30 * time.Minute

// Fetcher places the weight file called name at dest.
type Fetcher interface {
	Fetch(ctx context.Context, name, dest string) error
}

// S3Fetcher reads weights from bucket/prefix/name.
type S3Fetcher struct {
	repo   entity.StorageRepository
	bucket string
	prefix string
}

// NewS3Fetcher -.
func NewS3Fetcher(repo entity.StorageRepository, bucket, prefix string) *S3Fetcher {
	return &S3Fetcher{repo: repo, bucket: bucket, prefix: prefix}
}

func (f *S3Fetcher) Fetch(ctx context.Context, name, dest string) error {
	ctx, span := otel.Tracer(traceName).Start(ctx, "S3Fetch")
	defer span.End()

	key := path.Join(f.prefix, name)
	span.SetAttributes(attribute.String("bucket", f.bucket), attribute.String("key", key))

	return writeAtomically(dest, func(w *os.File) error {
		return f.repo.DownloadObject(ctx, f.bucket, key, w)
	})
}

// HTTPFetcher downloads weights from baseURL/name.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher -. A nil client gets a traced client with a download timeout.
func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   downloadTimeout,
		}
	}
	return &HTTPFetcher{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, name, dest string) error {
	ctx, span := otel.Tracer(traceName).Start(ctx, "HTTPFetch")
	defer span.End()

	url := f.baseURL + "/" + name
	span.SetAttributes(attribute.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "weights.NewRequest")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "weights.Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weights: GET %s: %s", url, resp.Status)
	}

	return writeAtomically(dest, func(w *os.File) error {
		_, err := io.Copy(w, resp.Body)
		return err
	})
}

// writeAtomically writes into a sibling .part file and renames it over dest
// only when fill succeeded, so an interrupted download never looks complete.
func writeAtomically(dest string, fill func(w *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrap(err, "weights.MkdirAll")
	}

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return errors.Wrap(err, "weights.Create")
	}

	if err := fill(f); err != nil {
		f.Close()
		os.Remove(part)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(part)
		return errors.Wrap(err, "weights.Close")
	}

	return os.Rename(part, dest)
}
