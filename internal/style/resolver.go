package style

import "github.com/dshills/lexkit/internal/token"

// Resolver combines a theme with a property map, producing the final
// expanded style string for a classification. A resolver is an explicit
// value held by the caller, never ambient state.
type Resolver struct {
	theme *Theme
	props Properties
}

// NewResolver creates a resolver. A nil theme uses the default theme; a
// nil property map expands every reference to "".
func NewResolver(theme *Theme, props Properties) *Resolver {
	if theme == nil {
		theme = DefaultTheme()
	}
	return &Resolver{theme: theme, props: props}
}

// Theme returns the resolver's theme.
func (r *Resolver) Theme() *Theme { return r.theme }

// Resolve returns the expanded style string for a classification.
func (r *Resolver) Resolve(class token.Class) string {
	return r.props.Expand(r.theme.StyleFor(class))
}

// ResolveAll returns the expanded style for every classification
// appearing in a token stream, keyed by classification.
func (r *Resolver) ResolveAll(stream token.Stream) map[token.Class]string {
	out := make(map[token.Class]string)
	for _, t := range stream {
		if _, ok := out[t.Class]; !ok {
			out[t.Class] = r.Resolve(t.Class)
		}
	}
	return out
}
