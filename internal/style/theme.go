package style

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dshills/lexkit/internal/token"
)

// Theme maps token classifications to style strings. Style strings are
// opaque to the engine; the host editor interprets them.
type Theme struct {
	// Name is the theme's display name.
	Name string `yaml:"name"`

	// Default is the style for classifications with no entry.
	Default string `yaml:"default"`

	// Styles maps classification names to style strings. Values may
	// reference properties with $() / %().
	Styles map[token.Class]string `yaml:"styles"`
}

// StyleFor returns the style string for a classification. Dotted
// classifications fall back segment by segment, so "comment.block"
// inherits from "comment" when it has no entry of its own.
func (t *Theme) StyleFor(class token.Class) string {
	name := string(class)
	for name != "" {
		if s, ok := t.Styles[token.Class(name)]; ok {
			return s
		}
		dot := -1
		for i := len(name) - 1; i >= 0; i-- {
			if name[i] == '.' {
				dot = i
				break
			}
		}
		if dot < 0 {
			break
		}
		name = name[:dot]
	}
	return t.Default
}

// Load parses a YAML theme document.
func Load(data []byte) (*Theme, error) {
	var t Theme
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing theme: %w", err)
	}
	if t.Name == "" {
		return nil, fmt.Errorf("parsing theme: missing name")
	}
	if t.Styles == nil {
		t.Styles = make(map[token.Class]string)
	}
	return &t, nil
}

// LoadFile reads and parses a YAML theme file.
func LoadFile(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading theme %s: %w", path, err)
	}
	t, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// DefaultTheme returns a dark theme covering the common
// classifications.
func DefaultTheme() *Theme {
	return &Theme{
		Name:    "Default Dark",
		Default: "fore:#d4d4d4",
		Styles: map[token.Class]string{
			token.ClassComment:    "fore:#6a9955,italics",
			token.ClassString:     "fore:#ce9178",
			token.ClassNumber:     "fore:#b5cea8",
			token.ClassKeyword:    "fore:#569cd6",
			token.ClassIdentifier: "fore:#9cdcfe",
			token.ClassOperator:   "fore:#d4d4d4",
			token.ClassType:       "fore:#4ec9b0",
			token.ClassFunction:   "fore:#dcdcaa",
			token.ClassConstant:   "fore:#4fc1ff",
			token.ClassTag:        "fore:#569cd6",
			token.ClassAttribute:  "fore:#9cdcfe",
			token.ClassPreproc:    "fore:#c586c0",
			token.ClassError:      "fore:#f44747,bold",
			token.ClassHeading:    "fore:#569cd6,bold",
			token.ClassLink:       "fore:#4ec9b0,underline",
			token.ClassCode:       "fore:#ce9178",
		},
	}
}

// LightTheme returns a light theme.
func LightTheme() *Theme {
	return &Theme{
		Name:    "Light",
		Default: "fore:#000000",
		Styles: map[token.Class]string{
			token.ClassComment:    "fore:#008000,italics",
			token.ClassString:     "fore:#a31515",
			token.ClassNumber:     "fore:#098658",
			token.ClassKeyword:    "fore:#0000ff",
			token.ClassIdentifier: "fore:#001080",
			token.ClassOperator:   "fore:#000000",
			token.ClassType:       "fore:#267f99",
			token.ClassFunction:   "fore:#795e26",
			token.ClassConstant:   "fore:#0070c1",
			token.ClassTag:        "fore:#800000",
			token.ClassError:      "fore:#cd3131,bold",
		},
	}
}

// Registry holds available themes and the current selection.
type Registry struct {
	themes  map[string]*Theme
	current *Theme
}

// NewRegistry creates a registry preloaded with the built-in themes.
func NewRegistry() *Registry {
	r := &Registry{themes: make(map[string]*Theme)}
	r.Register(DefaultTheme())
	r.Register(LightTheme())
	r.current = r.themes["Default Dark"]
	return r
}

// Register adds a theme.
func (r *Registry) Register(t *Theme) {
	r.themes[t.Name] = t
}

// Get returns a theme by name.
func (r *Registry) Get(name string) (*Theme, bool) {
	t, ok := r.themes[name]
	return t, ok
}

// Current returns the selected theme.
func (r *Registry) Current() *Theme { return r.current }

// SetCurrent selects a theme by name.
func (r *Registry) SetCurrent(name string) bool {
	if t, ok := r.themes[name]; ok {
		r.current = t
		return true
	}
	return false
}

// Names returns the registered theme names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.themes))
	for name := range r.themes {
		names = append(names, name)
	}
	return names
}
