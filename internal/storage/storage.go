// Package storage persists rendered PDFs in the served artifact directory
// and optionally mirrors them to an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/alnah/go-certgen/internal/fileutil"
	"github.com/alnah/go-certgen/internal/metrics"
)

// FilesRoute is the URL prefix under which artifacts are served.
const FilesRoute = "/files"

const (
	artifactExt  = ".pdf"
	artifactPerm = 0o644
	maxIDLength  = 200
)

// Sentinel errors for artifact storage.
var (
	ErrInvalidID = errors.New("invalid artifact id")
	ErrWrite     = errors.New("artifact write failed")
	ErrConfig    = errors.New("invalid storage configuration")
)

// Artifact is a stored document.
type Artifact struct {
	ID   string
	Path string
	URL  string
	Size int
}

// Mirror copies artifacts to secondary storage.
type Mirror interface {
	Put(ctx context.Context, key string, data []byte) error
}

// ValidateID checks that id is usable as a file stem inside the artifact
// directory: non-empty, bounded, without path separators, NUL or "..".
func ValidateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty", ErrInvalidID)
	case len(id) > maxIDLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidID, maxIDLength)
	case strings.ContainsAny(id, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidID, id)
	case strings.Contains(id, ".."), id == ".":
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// LocalStore writes artifacts to {dir}/{id}.pdf.
type LocalStore struct {
	dir     string
	baseURL string
	mirror  Mirror
	logger  *zap.Logger
}

// Option configures a LocalStore.
type Option func(*LocalStore)

// WithMirror uploads every saved artifact to m after the local write.
func WithMirror(m Mirror) Option {
	return func(s *LocalStore) { s.mirror = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *LocalStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewLocalStore creates the artifact directory if needed.
// baseURL is the public server origin used to build file URLs.
func NewLocalStore(dir, baseURL string, opts ...Option) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: directory is required", ErrConfig)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", ErrConfig, abs, err)
	}

	s := &LocalStore{
		dir:     abs,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the absolute artifact directory.
func (s *LocalStore) Dir() string { return s.dir }

// Path returns the file path of id.
func (s *LocalStore) Path(id string) string {
	return filepath.Join(s.dir, id+artifactExt)
}

// URL returns the public URL of id.
func (s *LocalStore) URL(id string) string {
	return s.baseURL + FilesRoute + "/" + id + artifactExt
}

// Save writes data as the artifact of id, replacing any previous version.
// A mirror failure is logged and counted; it does not fail the save.
func (s *LocalStore) Save(ctx context.Context, id string, data []byte) (*Artifact, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}

	path := s.Path(id)
	if err := fileutil.WriteFileAtomic(path, data, artifactPerm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, id+artifactExt, data); err != nil {
			metrics.MirrorFailures.Inc()
			s.logger.Warn("artifact mirror failed",
				zap.String("certificate_id", id),
				zap.Error(err))
		}
	}

	s.logger.Debug("artifact stored",
		zap.String("certificate_id", id),
		zap.String("path", path),
		zap.Int("bytes", len(data)))

	return &Artifact{ID: id, Path: path, URL: s.URL(id), Size: len(data)}, nil
}
