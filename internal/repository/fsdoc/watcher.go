package fsdoc

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
	"go.uber.org/zap"

	"github.com/kailas-cloud/blockfield/internal/domain"
	domdoc "github.com/kailas-cloud/blockfield/internal/domain/document"
)

// Handler receives document changes observed by a Watcher.
type Handler interface {
	// Saved is called after a document is created or written.
	Saved(ctx context.Context, doc domdoc.Document)
	// Removed is called after a document is deleted or renamed away.
	Removed(ctx context.Context, id string)
}

// Watcher forwards filesystem events below a Source root to a Handler.
type Watcher struct {
	src     *Source
	handler Handler
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher. Call Start to begin delivering events.
func NewWatcher(src *Source, h Handler, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{src: src, handler: h, logger: logger}
}

// Start watches every directory below the root and runs the event loop
// until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := addRecursive(fw, w.src.root); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("watching documents", zap.String("root", w.src.root), zap.String("pattern", w.src.pattern))
	return nil
}

// Stop ends the event loop and releases the watcher.
func (w *Watcher) Stop() error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	w.wg.Wait()
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if isHidden(ev.Name) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addRecursive(w.watcher, ev.Name); err != nil {
				w.logger.Warn("watch new directory", zap.String("path", ev.Name), zap.Error(err))
			}
			w.savedBelow(ctx, ev.Name)
			return
		}
	}

	id, ok := w.src.idOf(ev.Name)
	if !ok {
		return
	}

	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.handler.Removed(ctx, id)
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		w.saved(ctx, id)
	}
}

func (w *Watcher) saved(ctx context.Context, id string) {
	doc, err := w.src.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			w.logger.Warn("read changed document", zap.String("document_id", id), zap.Error(err))
		}
		return
	}
	w.handler.Saved(ctx, doc)
}

// savedBelow reports documents that appeared inside a new directory before it was watched.
func (w *Watcher) savedBelow(ctx context.Context, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if id, ok := w.src.idOf(path); ok {
			w.saved(ctx, id)
		}
		return nil
	})
}

func addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(path) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
