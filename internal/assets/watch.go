package assets

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long the watched files must stay untouched before a change is
// reported. A compiler truncates its output before writing it.
const settleDelay = 100 * time.Millisecond

// ShaderWatcher reports when any of a fixed set of files is written or recreated.
// Editors and glslc often replace files rather than writing in place, so the
// containing directories are watched and events are filtered by name.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]struct{}
	changed chan struct{}
	logger  *log.Logger
	settle  time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func NewShaderWatcher(logger *log.Logger, paths ...string) (*ShaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create shader watcher")
	}

	w := &ShaderWatcher{
		watcher: watcher,
		files:   make(map[string]struct{}),
		changed: make(chan struct{}, 1),
		logger:  logger,
		settle:  settleDelay,
		done:    make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "failed to resolve %s", path)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", dir)
		}
	}

	go w.run()
	return w, nil
}

// Changed delivers at most one pending notification. It fires once the watched files
// have been quiet for the settle delay, so a burst of writes yields one signal.
func (w *ShaderWatcher) Changed() <-chan struct{} {
	return w.changed
}

func (w *ShaderWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *ShaderWatcher) run() {
	defer close(w.done)

	settled := time.NewTimer(w.settle)
	settled.Stop()
	defer settled.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, watched := w.files[abs]; !watched {
				continue
			}

			w.logger.Debug("shader changed", "file", event.Name)
			if !settled.Stop() {
				select {
				case <-settled.C:
				default:
				}
			}
			settled.Reset(w.settle)
		case <-settled.C:
			select {
			case w.changed <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("shader watcher error", "err", err)
		}
	}
}
