package registry

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ReloadHandler is called after a changed grammar definition reloads.
// err is non-nil when the new definition failed to build; the previous
// instance stays evicted in that case and the next Load retries.
type ReloadHandler func(name string, err error)

// Watcher reloads registry grammars when their definition files change
// on disk.
type Watcher struct {
	mu       sync.Mutex
	reg      *Registry
	fsw      *fsnotify.Watcher
	byPath   map[string]string // definition file -> grammar name
	handlers []ReloadHandler
	closed   bool
	done     chan struct{}
}

// Watch creates a watcher over every grammar the registry has loaded
// from disk so far. Grammars loaded later can be added with Add.
func (r *Registry) Watch(handlers ...ReloadHandler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		reg:      r,
		fsw:      fsw,
		byPath:   make(map[string]string),
		handlers: handlers,
		done:     make(chan struct{}),
	}

	r.mu.RLock()
	sources := make(map[string]string, len(r.sources))
	for name, path := range r.sources {
		sources[name] = path
	}
	r.mu.RUnlock()
	for name, path := range sources {
		if err := w.Add(name, path); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	go w.loop()
	return w, nil
}

// Add starts watching one grammar's definition file.
func (w *Watcher) Add(name, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.byPath[abs] = name
	w.mu.Unlock()
	// Watch the directory, not the file: editors replace files on
	// save, which drops a direct file watch.
	return w.fsw.Add(filepath.Dir(abs))
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.handle(ev.Name)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handle(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	name, ok := w.byPath[abs]
	handlers := w.handlers
	w.mu.Unlock()
	if !ok {
		return
	}
	_, err = w.reg.Reload(name)
	for _, h := range handlers {
		h(name, err)
	}
}
