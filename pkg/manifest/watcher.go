package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Event signals that a manifest under the plugin root changed.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher watches the plugin root for manifest changes so an embedding host
// can invalidate cached resolution results. It only reports; re-resolution
// stays the caller's decision.
type Watcher struct {
	root    string
	logger  *logrus.Logger
	watcher *fsnotify.Watcher
	events  chan Event
	done    chan struct{}
}

// NewWatcher creates a watcher over root and its immediate plugin
// directories. Call Start to begin delivering events.
func NewWatcher(root string, logger *logrus.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("manifest: create watcher: %w", err)
	}

	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("manifest: watch %s: %w", root, err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("manifest: watch %s: %w", root, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := fsw.Add(filepath.Join(root, entry.Name())); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("manifest: watch %s: %w", filepath.Join(root, entry.Name()), err)
		}
	}

	return &Watcher{
		root:    root,
		logger:  logger,
		watcher: fsw,
		events:  make(chan Event, 16),
		done:    make(chan struct{}),
	}, nil
}

// Events delivers manifest change notifications.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins forwarding manifest changes until Close is called.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	defer close(w.events)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// New plugin directories need their own watch for the manifest
			// inside them.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(event.Name); err != nil {
						w.logger.WithError(err).WithField("dir", event.Name).Warn("Failed to watch new plugin directory")
					}
					continue
				}
			}
			if !isManifestFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.WithFields(logrus.Fields{
				"path": event.Name,
				"op":   event.Op.String(),
			}).Debug("Manifest changed")
			select {
			case w.events <- Event{Path: event.Name, Op: event.Op}:
			case <-w.done:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Watcher error")
		}
	}
}

// Close stops the watcher and closes the event channel.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func isManifestFile(path string) bool {
	base := filepath.Base(path)
	for _, filename := range manifestFilenames {
		if base == filename {
			return true
		}
	}
	return false
}
