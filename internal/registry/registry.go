// Package registry resolves grammar names to built grammars, caching
// by name. Names resolve to built-in grammars or to Lua definition
// files found on the grammar search path. The registry also implements
// grammar.Resolver, binding embedded-grammar references lazily so
// mutually embedding grammars load cleanly.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dshills/lexkit/internal/grammar"
)

// Errors reported by grammar resolution.
var (
	// ErrNotFound is returned when no builtin or search-path file
	// provides the requested grammar.
	ErrNotFound = errors.New("grammar not found")
)

// FileSystem abstracts file access so tests can use an in-memory
// implementation.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

// osFS is the real file system.
type osFS struct{}

func (osFS) ReadFile(path string) ([]byte, error)  { return os.ReadFile(path) }
func (osFS) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

// DefaultFS returns the OS file system.
func DefaultFS() FileSystem { return osFS{} }

// Registry caches loaded grammars by name.
type Registry struct {
	mu         sync.RWMutex
	grammars   map[string]*grammar.Grammar
	sources    map[string]string // name -> definition file, for reload/watch
	binding    map[string]bool   // names whose embeds are being bound
	searchPath []string
	fs         FileSystem
	lua        LuaConfig
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSearchPath sets the directories searched for grammar definition
// files, in order.
func WithSearchPath(dirs ...string) RegistryOption {
	return func(r *Registry) { r.searchPath = dirs }
}

// WithFS sets the file system used to read definition files.
func WithFS(fsys FileSystem) RegistryOption {
	return func(r *Registry) { r.fs = fsys }
}

// WithLuaConfig sets limits for grammar definition execution.
func WithLuaConfig(cfg LuaConfig) RegistryOption {
	return func(r *Registry) { r.lua = cfg }
}

// New creates an empty registry.
func New(opts ...RegistryOption) *Registry {
	r := &Registry{
		grammars: make(map[string]*grammar.Grammar),
		sources:  make(map[string]string),
		binding:  make(map[string]bool),
		fs:       DefaultFS(),
		lua:      DefaultLuaConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default returns a registry preloaded with the built-in grammars.
func Default(opts ...RegistryOption) *Registry {
	r := New(opts...)
	RegisterBuiltins(r)
	return r
}

// Register adds a grammar under its own name, replacing any cached
// instance wholesale.
func (r *Registry) Register(g *grammar.Grammar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grammars[g.Name()] = g
}

// Load resolves a grammar name: cache first, then the search path. The
// grammar's embedded references are bound through the registry before
// it is returned, so a load failure surfaces here, never at lex time.
func (r *Registry) Load(name string) (*grammar.Grammar, error) {
	r.mu.RLock()
	g, ok := r.grammars[name]
	r.mu.RUnlock()
	if !ok {
		var err error
		g, err = r.loadFromPath(name)
		if err != nil {
			return nil, err
		}
	}
	if err := r.bind(name, g); err != nil {
		return nil, err
	}
	return g, nil
}

// bind resolves g's embedded references through the registry. A name
// already mid-bind returns immediately so mutually embedding grammars
// terminate: the partially bound grammar is handed out and its
// remaining links finish binding in the outer call.
func (r *Registry) bind(name string, g *grammar.Grammar) error {
	r.mu.Lock()
	if r.binding[name] {
		r.mu.Unlock()
		return nil
	}
	r.binding[name] = true
	r.mu.Unlock()

	err := g.Bind(r)

	r.mu.Lock()
	delete(r.binding, name)
	r.mu.Unlock()
	return err
}

// Resolve implements grammar.Resolver.
func (r *Registry) Resolve(name string) (*grammar.Grammar, error) {
	return r.Load(name)
}

// Reload discards the cached instance and loads the definition again,
// replacing it wholesale. Built-in grammars without a source file
// cannot be reloaded and return ErrNotFound; they stay cached and keep
// loading.
func (r *Registry) Reload(name string) (*grammar.Grammar, error) {
	r.mu.Lock()
	src, hasSrc := r.sources[name]
	if hasSrc {
		delete(r.grammars, name)
	}
	r.mu.Unlock()
	if !hasSrc {
		return nil, fmt.Errorf("reload %q: %w", name, ErrNotFound)
	}
	g, err := r.loadFile(name, src)
	if err != nil {
		return nil, err
	}
	if err := r.bind(name, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Names returns all cached grammar names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.grammars))
	for name := range r.grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source returns the definition file a grammar was loaded from, if any.
func (r *Registry) Source(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[name]
	return src, ok
}

// loadFromPath searches the grammar search path for name's definition
// file.
func (r *Registry) loadFromPath(name string) (*grammar.Grammar, error) {
	for _, dir := range r.searchPath {
		path := filepath.Join(dir, name+".lua")
		if _, err := r.fs.Stat(path); err != nil {
			continue
		}
		return r.loadFile(name, path)
	}
	return nil, fmt.Errorf("load %q: %w", name, ErrNotFound)
}

// loadFile loads, executes, and caches one grammar definition file.
// The cache entry is inserted before embedded references bind so that
// mutually embedding grammars resolve each other.
func (r *Registry) loadFile(name, path string) (*grammar.Grammar, error) {
	data, err := r.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	g, err := LoadLuaGrammar(name, path, data, r.lua)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.grammars[name] = g
	r.sources[name] = path
	r.mu.Unlock()
	return g, nil
}

// SplitSearchPath splits a grammar-search-path string into directories
// using the platform's path list separator.
func SplitSearchPath(s string) []string {
	return filepath.SplitList(s)
}
