package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// DefaultMaxFileSize skips files larger than 10 MiB.
const DefaultMaxFileSize int64 = 10 << 20

// ErrClosed is returned when a closed source is used.
var ErrClosed = errors.New("filesystem: source closed")

// Option configures a Source.
type Option func(*Source)

// WithMaxFileSize sets the largest file read; larger files are skipped.
func WithMaxFileSize(n int64) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxFileSize = n
		}
	}
}

// Source reads documents from a file or directory tree.
type Source struct {
	rootPath    string
	absRoot     string
	maxFileSize int64
	include     []string
	exclude     []string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a source rooted at path.
func New(rootPath string, opts ...Option) *Source {
	s := &Source{rootPath: rootPath, absRoot: rootPath, maxFileSize: DefaultMaxFileSize}
	if abs, err := filepath.Abs(rootPath); err == nil {
		s.absRoot = abs
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the path the source was created with.
func (s *Source) Root() string {
	return s.rootPath
}

// Walk streams every visible file under the root that passes the include
// and exclude patterns. A root that is itself a file is always read. Both
// channels are closed
// when the walk finishes or ctx is cancelled. Unreadable files are reported
// on the error channel and the walk continues.
func (s *Source) Walk(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		info, err := os.Stat(s.rootPath)
		if err != nil {
			errs <- fmt.Errorf("root path error: %w", err)
			return
		}
		if !info.IsDir() {
			s.emit(ctx, s.rootPath, docs, errs)
			return
		}

		err = filepath.WalkDir(s.rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if path != s.rootPath && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if s.pruned(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !s.selected(path) {
				return nil
			}
			return s.emit(ctx, path, docs, errs)
		})
		if err != nil {
			select {
			case errs <- err:
			default:
			}
		}
	}()

	return docs, errs
}

// emit reads path and sends it. Read failures are logged and skipped.
func (s *Source) emit(ctx context.Context, path string, docs chan<- domain.RawDocument, errs chan<- error) error {
	raw, err := s.Read(path)
	if err != nil {
		logger.Warn("Skipping %s: %v", path, err)
		select {
		case errs <- err:
		default:
		}
		return nil
	}
	if raw == nil {
		return nil
	}
	select {
	case docs <- *raw:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Read loads one file as a raw document. Files above the size limit return
// (nil, nil).
func (s *Source) Read(path string) (*domain.RawDocument, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("filesystem: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("filesystem: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("filesystem: %s: %w: is a directory", abs, domain.ErrInvalidInput)
	}
	if info.Size() > s.maxFileSize {
		logger.Debug("Skipping %s: %d bytes exceeds limit %d", abs, info.Size(), s.maxFileSize)
		return nil, nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("filesystem: %w", err)
	}

	return &domain.RawDocument{
		URI:      abs,
		MIMEType: detectMIMEType(abs, content),
		Content:  content,
		Metadata: map[string]any{
			"path":        abs,
			"size_bytes":  info.Size(),
			"modified_at": info.ModTime().UTC(),
		},
	}, nil
}

// Close stops any active watch. It is safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// isHidden reports whether any element of path starts with ".".
// "." and ".." themselves are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}
