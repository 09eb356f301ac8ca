package planview

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is invoked (debounced) with the path of the last file
// written or created in a watched directory, whoever wrote it.
type ChangeCallback func(path string)

// Watcher debounces fsnotify write/create events on the directories passed
// to Watch, mirroring the teacher's internal/observer.PlanWatcher
// debounce-then-flush shape; it does not filter by file name.
type Watcher struct {
	watcher  *fsnotify.Watcher
	callback ChangeCallback
	debounce time.Duration
}

// NewWatcher creates a Watcher with no watched directories; path is not
// used. Call Watch with a directory (fsnotify watches directories, not bare
// files, so renames-over-the-top are seen).
func NewWatcher(path string, callback ChangeCallback) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{watcher: fw, callback: callback, debounce: 300 * time.Millisecond}, nil
}

// Watch adds dir to the underlying fsnotify watch set.
func (w *Watcher) Watch(dir string) error {
	return w.watcher.Add(dir)
}

// Start begins watching in the background until ctx is canceled.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		var timer *time.Timer
		var pending string
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				pending = event.Name
				if timer != nil {
					timer.Stop()
				}
				capturedPath := pending
				timer = time.AfterFunc(w.debounce, func() {
					if w.callback != nil {
						w.callback(capturedPath)
					}
				})
			case _, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
