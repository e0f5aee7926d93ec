// Package watch reruns a generation when its metadata inputs change.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/romdo/go-debounce"

	"godotdts/internal/errors"
	"godotdts/internal/logger"
)

const DefaultDebounce = 300 * time.Millisecond

type Options struct {
	// Paths are the watched inputs: files, or directories whose direct
	// entries are all inputs.
	Paths []string
	// Debounce is the quiet period after the last event before a rerun.
	Debounce time.Duration
	// MaxWait bounds how long a steady stream of events can delay a rerun.
	// Defaults to ten times Debounce.
	MaxWait time.Duration
}

type Watcher struct {
	notify *fsnotify.Watcher
	opts   Options
	// files and dirs hold absolute paths of the watched inputs.
	files map[string]bool
	dirs  map[string]bool
}

// New starts watching opts.Paths. Files are watched through their parent
// directory so that editors replacing a file by rename are still seen.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxWait < opts.Debounce {
		opts.MaxWait = 10 * opts.Debounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}
	w := &Watcher{
		notify: fsWatcher,
		opts:   opts,
		files:  map[string]bool{},
		dirs:   map[string]bool{},
	}

	watched := map[string]bool{}
	for _, path := range opts.Paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			fsWatcher.Close()
			return nil, errors.Wrapf(err, "resolve %s", path)
		}
		info, err := os.Stat(abs)
		if err != nil {
			fsWatcher.Close()
			return nil, errors.Wrapf(err, "watch %s", path)
		}

		dir := abs
		if info.IsDir() {
			w.dirs[abs] = true
		} else {
			w.files[abs] = true
			dir = filepath.Dir(abs)
		}
		if watched[dir] {
			continue
		}
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return nil, errors.Wrapf(err, "watch %s", dir)
		}
		watched[dir] = true
	}

	logger.Infow("Watching metadata inputs", "paths", opts.Paths, "debounce", opts.Debounce)
	return w, nil
}

// Run calls fn after every debounced burst of input changes until ctx is
// done. Errors from fn are logged and do not stop the watch.
func (watcher *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	trigger := make(chan struct{}, 1)
	debounced, cancel := debounce.NewWithMaxWait(watcher.opts.Debounce, watcher.opts.MaxWait, func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.notify.Events:
			if !ok {
				return nil
			}
			if !watcher.relevant(event) {
				continue
			}
			logger.Debugw("Input changed", "file", event.Name, "op", event.Op.String())
			debounced()

		case err, ok := <-watcher.notify.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("File watcher error", "error", err)

		case <-trigger:
			start := time.Now()
			if err := fn(ctx); err != nil {
				logger.Errorw("Regeneration failed", "error", err)
				continue
			}
			logger.Infow("Regenerated", "duration", time.Since(start).Round(time.Millisecond))
		}
	}
}

func (watcher *Watcher) Close() error {
	return watcher.notify.Close()
}

func (watcher *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	if isScratchFile(name) {
		return false
	}
	return watcher.files[name] || watcher.dirs[filepath.Dir(name)]
}

// isScratchFile reports editor backups and swap files.
func isScratchFile(name string) bool {
	base := filepath.Base(name)
	switch {
	case base == "" || base[0] == '.':
		return true
	case base[len(base)-1] == '~':
		return true
	case filepath.Ext(base) == ".swp" || filepath.Ext(base) == ".tmp":
		return true
	}
	return false
}
