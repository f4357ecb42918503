package registry

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the engine configuration document: where grammar
// definitions live and how hard the engine may work.
type Config struct {
	// SearchPath lists the directories searched for grammar definition
	// files, in order.
	SearchPath []string `toml:"search_path"`

	// TabWidth is used when computing indentation amounts.
	TabWidth int `toml:"tab_width"`

	// MaxDepth bounds embedding recursion per document session.
	MaxDepth int `toml:"max_depth"`

	// Lua limits grammar definition execution.
	Lua LuaConfig `toml:"lua"`
}

// LuaConfig limits the Lua runtime used for grammar definitions.
type LuaConfig struct {
	// InstructionLimit caps cumulative Lua work per definition,
	// counted in VM entries: executing the definition chunk and each
	// predicate or decider callback cost one unit. Zero disables the
	// cap.
	InstructionLimit int64 `toml:"instruction_limit"`

	// TimeoutMS is a best-effort bound on definition execution, in
	// milliseconds.
	TimeoutMS int64 `toml:"timeout_ms"`
}

// Timeout returns the execution bound as a duration.
func (c LuaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// DefaultLuaConfig returns the default Lua limits.
func DefaultLuaConfig() LuaConfig {
	return LuaConfig{
		InstructionLimit: 10_000_000,
		TimeoutMS:        5000,
	}
}

// DefaultConfig returns the configuration used when no file is
// present.
func DefaultConfig() Config {
	return Config{
		TabWidth: 8,
		MaxDepth: 100,
		Lua:      DefaultLuaConfig(),
	}
}

// ParseError describes a malformed configuration or grammar definition
// file.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// LoadConfig reads a TOML configuration file. A missing file is not an
// error; defaults are returned.
func LoadConfig(path string) (Config, error) {
	return LoadConfigFS(DefaultFS(), path)
}

// LoadConfigFS reads a TOML configuration file through fsys.
func LoadConfigFS(fsys FileSystem, path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	if cfg.TabWidth <= 0 {
		cfg.TabWidth = 8
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 100
	}
	return cfg, nil
}
