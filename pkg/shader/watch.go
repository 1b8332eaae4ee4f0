package shader

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher collects changes to a fixed set of shader files.
//
// Directories are watched rather than files so that editors which save by
// renaming a temporary file over the original are still seen. Changes
// accumulate until the render loop drains them with Changed.
type Watcher struct {
	w     *fsnotify.Watcher
	files map[string]bool

	mu      sync.Mutex
	pending map[string]bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher starts watching the given files.
func NewWatcher(paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		w:       fw,
		files:   make(map[string]bool),
		pending: make(map[string]bool),
		done:    make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || !w.files[name] {
				continue
			}
			w.mu.Lock()
			w.pending[name] = true
			w.mu.Unlock()
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			slog.Warn("shader watcher", "err", err)
		}
	}
}

// Changed returns the watched files modified since the last call.
func (w *Watcher) Changed() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	changed := make([]string, 0, len(w.pending))
	for name := range w.pending {
		changed = append(changed, name)
	}
	clear(w.pending)
	return changed
}

// Affects reports whether any of changed is one of p's sources.
func Affects(p *Program, changed []string) bool {
	for _, src := range p.Sources().Paths() {
		abs, err := filepath.Abs(src)
		if err != nil {
			continue
		}
		for _, c := range changed {
			if c == abs {
				return true
			}
		}
	}
	return false
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.w.Close()
	w.wg.Wait()
	return err
}
