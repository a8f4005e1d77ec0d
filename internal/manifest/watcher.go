package manifest

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called with the reloaded manifest after the
// watched file changes. A file that no longer parses is reported via
// the error; the previous manifest stays in effect.
type ChangeCallback func(m *Manifest, err error)

// Watcher monitors one manifest file for edits. Events are debounced:
// editors that write in bursts produce a single reload.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	callback ChangeCallback
	debounce time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
}

// NewWatcher creates a watcher for the manifest at path
func NewWatcher(path string, callback ChangeCallback) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors replace files on
	// save and a file watch dies with the inode.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		path:     path,
		watcher:  fsw,
		callback: callback,
		debounce: 500 * time.Millisecond,
	}, nil
}

// Start begins watching for file changes
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("manifest watcher error: %v", err)
			}
		}
	}()
}

// Stop stops watching for file changes
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.watcher.Close()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
}

// SetDebounce sets the debounce duration for batching file changes
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	if w.callback == nil {
		return
	}
	m, err := Load(w.path)
	w.callback(m, err)
}
