package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Watch streams changes under the root until ctx is cancelled or the
// source is closed. New subdirectories are watched as they appear.
func (s *Source) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	info, err := os.Stat(s.rootPath)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("filesystem: create watcher: %w", err)
	}
	s.watcher = watcher
	s.mu.Unlock()

	watchRoot := s.rootPath
	if !info.IsDir() {
		// Watching the parent survives editors that replace the file.
		watchRoot = filepath.Dir(s.rootPath)
		err = watcher.Add(watchRoot)
	} else {
		err = s.addTree(watcher, watchRoot)
	}
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("filesystem: watch %s: %w", watchRoot, err)
	}

	changes := make(chan domain.RawDocumentChange)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !info.IsDir() && filepath.Clean(event.Name) != filepath.Clean(s.rootPath) {
					continue
				}
				change := s.handleFsEvent(event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error: %v", err)
			}
		}
	}()

	return changes, nil
}

// handleFsEvent converts an fsnotify event into a change, or nil when the
// event is not relevant: chmod, directories, hidden or filtered paths.
func (s *Source) handleFsEvent(event fsnotify.Event) *domain.RawDocumentChange {
	if isHidden(filepath.Base(event.Name)) {
		return nil
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		abs = event.Name
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if s.absRoot != abs && !s.selected(abs) {
			return nil
		}
		return &domain.RawDocumentChange{
			Type:     domain.ChangeDeleted,
			Document: domain.RawDocument{URI: abs},
		}

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) && !s.pruned(event.Name) {
				s.watchDir(event.Name)
			}
			return nil
		}
		if s.absRoot != abs && !s.selected(abs) {
			return nil
		}
		raw, err := s.Read(event.Name)
		if err != nil || raw == nil {
			return nil
		}
		changeType := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = domain.ChangeCreated
		}
		return &domain.RawDocumentChange{Type: changeType, Document: *raw}
	}

	return nil
}

// watchDir adds a newly created directory tree to the active watcher.
func (s *Source) watchDir(path string) {
	s.mu.Lock()
	watcher := s.watcher
	s.mu.Unlock()
	if watcher == nil {
		return
	}
	if err := s.addTree(watcher, path); err != nil {
		logger.Warn("Cannot watch %s: %v", path, err)
	}
}

// addTree watches root and every visible, non-excluded directory below it.
func (s *Source) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (isHidden(d.Name()) || s.pruned(path)) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
