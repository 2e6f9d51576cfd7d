// Package staging writes request payloads to uniquely named temp files
// and removes them again when the caller is done.
package staging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Prefix of every staged file name. Sweep only touches files carrying it.
const Prefix = "transcribe-"

// File is a staged payload on local storage, owned by a single request.
type File struct {
	Path string
	Ext  string

	once sync.Once
}

// Stage copies r into a new file under dir whose name ends with suffix.
// An empty dir means os.TempDir().
func Stage(dir string, r io.Reader, suffix string) (*File, error) {
	f, err := os.CreateTemp(dir, Prefix+"*"+suffix)
	if err != nil {
		return nil, errors.Wrap(err, "staging.CreateTemp")
	}

	staged := &File{Path: f.Name(), Ext: suffix}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		staged.Release()
		return nil, errors.Wrap(err, "staging.Copy")
	}

	if err := f.Close(); err != nil {
		staged.Release()
		return nil, errors.Wrap(err, "staging.Close")
	}

	return staged, nil
}

// Release removes the file. It is safe to call more than once and never
// fails: a missing file or a removal error is ignored.
func (f *File) Release() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		_ = os.Remove(f.Path)
	})
}

// SuffixFor returns the extension of filename, or fallback when filename
// has none. A leading dot names a hidden file, not an extension. Extensions that cannot be part of a temp file pattern are
// replaced by fallback as well.
func SuffixFor(filename, fallback string) string {
	ext := filepath.Ext(filename)
	if ext == "" || ext == "." || ext == filepath.Base(filename) || strings.ContainsAny(ext, `*/\`) {
		return fallback
	}
	return ext
}

// Sweep removes staged files in dir older than olderThan, left behind by a
// process that died between Stage and Release. It returns how many files
// were removed.
func Sweep(dir string, olderThan time.Duration) (int, error) {
	if dir == "" {
		dir = os.TempDir()
	}

	matches, err := filepath.Glob(filepath.Join(dir, Prefix+"*"))
	if err != nil {
		return 0, errors.Wrap(err, "staging.Glob")
	}

	removed := 0
	cutoff := time.Now().Add(-olderThan)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}

	return removed, nil
}
