package filesystem

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// WithInclude keeps only files matching at least one pattern. Patterns use
// doublestar syntax ("**/*.md") and are matched against the path relative
// to the root and against the base name.
func WithInclude(patterns ...string) Option {
	return func(s *Source) {
		s.include = append(s.include, patterns...)
	}
}

// WithExclude drops files and directories matching any pattern.
func WithExclude(patterns ...string) Option {
	return func(s *Source) {
		s.exclude = append(s.exclude, patterns...)
	}
}

// ValidatePatterns reports the first malformed glob pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("filesystem: %w: bad pattern %q", domain.ErrInvalidInput, p)
		}
	}
	return nil
}

// selected reports whether the file at path passes the include and
// exclude patterns.
func (s *Source) selected(path string) bool {
	rel, base := s.relative(path)
	if matchAny(s.exclude, rel, base) {
		return false
	}
	return len(s.include) == 0 || matchAny(s.include, rel, base)
}

// pruned reports whether the directory at path is excluded. The root
// itself is never pruned.
func (s *Source) pruned(path string) bool {
	rel, base := s.relative(path)
	if rel == "." {
		return false
	}
	return matchAny(s.exclude, rel, base)
}

func (s *Source) relative(path string) (rel, base string) {
	base = filepath.Base(path)
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rel, err = filepath.Rel(s.absRoot, abs)
	if err != nil {
		rel = base
	}
	return filepath.ToSlash(rel), base
}

func matchAny(patterns []string, rel, base string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(p, base); err == nil && ok {
			return true
		}
	}
	return false
}
