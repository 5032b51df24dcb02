// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package blob opens record and report files that live either on the local
// filesystem or in Google Cloud Storage ("gs://bucket/object"). Writes are
// all-or-nothing: local files are written to a temporary file and renamed
// on Close, GCS objects are only finalized on Close.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsScheme = "gs://"

// ErrNotExist is returned by Open when the path does not exist.
var ErrNotExist = errors.New("blob does not exist")

// Writer is an output that is published on Close and discarded on Abort.
type Writer interface {
	io.Writer
	Close() error
	Abort() error
}

// Store opens local and GCS paths. The GCS client is created on first use,
// so purely local runs never need cloud credentials.
type Store struct {
	opts []option.ClientOption

	mu  sync.Mutex
	gcs *storage.Client
}

// NewStore returns a Store. opts are passed to the GCS client.
func NewStore(opts ...option.ClientOption) *Store {
	return &Store{opts: opts}
}

// Close releases the GCS client if one was created.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gcs == nil {
		return nil
	}
	err := s.gcs.Close()
	s.gcs = nil
	return err
}

// IsRemote reports whether path names a GCS object.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, gcsScheme)
}

// ParseGCSPath splits "gs://bucket/object" into bucket and object.
func ParseGCSPath(path string) (bucket, object string, err error) {
	if !IsRemote(path) {
		return "", "", fmt.Errorf("not a GCS path: %q", path)
	}
	rest := strings.TrimPrefix(path, gcsScheme)
	bucket, object, found := strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" || strings.HasSuffix(object, "/") {
		return "", "", fmt.Errorf("invalid GCS path %q: want gs://bucket/object", path)
	}
	return bucket, object, nil
}

func (s *Store) client(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gcs != nil {
		return s.gcs, nil
	}
	c, err := storage.NewClient(ctx, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	s.gcs = c
	return c, nil
}

// Open returns a reader for path.
func (s *Store) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	if !IsRemote(path) {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%s: %w", path, ErrNotExist)
			}
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		return f, nil
	}

	bucket, object, err := ParseGCSPath(path)
	if err != nil {
		return nil, err
	}
	c, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	r, err := c.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotExist)
		}
		return nil, fmt.Errorf("opening object reader: %w", err)
	}
	return r, nil
}

// Create returns a Writer for path. Parent directories of local paths are
// created as needed.
func (s *Store) Create(ctx context.Context, path, contentType string) (Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	if !IsRemote(path) {
		return createLocal(path)
	}

	bucket, object, err := ParseGCSPath(path)
	if err != nil {
		return nil, err
	}
	c, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	wctx, cancel := context.WithCancel(ctx)
	w := c.Bucket(bucket).Object(object).NewWriter(wctx)
	w.ContentType = contentType
	return &gcsWriter{w: w, cancel: cancel}, nil
}

type gcsWriter struct {
	w      *storage.Writer
	cancel context.CancelFunc
}

func (g *gcsWriter) Write(p []byte) (int, error) { return g.w.Write(p) }

func (g *gcsWriter) Close() error {
	defer g.cancel()
	if err := g.w.Close(); err != nil {
		return fmt.Errorf("closing object writer: %w", err)
	}
	return nil
}

// Abort cancels the upload; the object is never created.
func (g *gcsWriter) Abort() error {
	g.cancel()
	g.w.Close()
	return nil
}

// localWriter writes to a temp file next to dest and renames it on Close.
type localWriter struct {
	f    *os.File
	dest string
	done bool
}

func createLocal(dest string) (*localWriter, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".abstract-miner-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	return &localWriter{f: f, dest: dest}, nil
}

func (l *localWriter) Write(p []byte) (int, error) { return l.f.Write(p) }

func (l *localWriter) Close() error {
	if l.done {
		return nil
	}
	l.done = true
	tmpPath := l.f.Name()
	if err := l.f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, l.dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (l *localWriter) Abort() error {
	if l.done {
		return nil
	}
	l.done = true
	l.f.Close()
	return os.Remove(l.f.Name())
}
