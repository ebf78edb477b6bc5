package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/richinsley/goshadertoyvr/document"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the bursts of events editors produce on save.
const DefaultDebounce = 150 * time.Millisecond

// Target receives reloaded shaders.
type Target interface {
	LoadDocument(doc *document.Shader)
	SetShaderSource(src string)
}

// Watcher reloads a shader file whenever it changes on disk. Documents
// (.xml, .json) replace the whole shader including its channels; any other
// file is taken as bare fragment source.
type Watcher struct {
	path     string
	target   Target
	log      *zap.Logger
	Debounce time.Duration
}

func New(path string, target Target, log *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return &Watcher{path: abs, target: target, log: log, Debounce: DefaultDebounce}, nil
}

func (w *Watcher) isDocument() bool {
	switch strings.ToLower(filepath.Ext(w.path)) {
	case ".xml", ".json":
		return true
	}
	return false
}

// Reload reads the file and hands it to the target.
func (w *Watcher) Reload() error {
	if w.isDocument() {
		doc, err := document.Load(w.path)
		if err != nil {
			return err
		}
		w.target.LoadDocument(doc)
		return nil
	}
	src, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("failed to read shader %s: %w", w.path, err)
	}
	w.target.SetShaderSource(string(src))
	return nil
}

// Run watches until ctx is done. The containing directory is watched, so
// editors that save by replacing the file are followed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.log.Info("Watching shader", zap.String("path", w.path))

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending = time.After(w.Debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Shader watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			if err := w.Reload(); err != nil {
				w.log.Warn("Shader reload failed", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.log.Info("Shader reloaded", zap.String("path", w.path))
		}
	}
}
