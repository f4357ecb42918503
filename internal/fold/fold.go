// Package fold derives per-line fold levels from a completed token
// stream. A grammar's fold symbol table maps (classification, matched
// text) to level deltas; positive deltas open a collapsible region on
// the current line, negative deltas close one.
package fold

import (
	"github.com/dshills/lexkit/internal/pattern"
	"github.com/dshills/lexkit/internal/token"
)

// LevelBase is the fold level of unnested lines. Every computed level
// is >= LevelBase.
const LevelBase = 0x400

// Level describes one source line's fold state.
type Level struct {
	// Level is the nesting depth, >= LevelBase.
	Level int

	// Blank marks a line containing only whitespace (or nothing).
	// Blank lines inherit the surrounding level and never accumulate
	// deltas.
	Blank bool

	// Header marks a line that begins a collapsible region.
	Header bool
}

// Decider produces a fold delta for one classified match. It is either
// a literal Delta or a Func supplied by the grammar author.
type Decider interface {
	Delta(input []byte, lineStart int, lineText string, matchOffset int, matchText string) int
}

// Delta is a literal fold delta.
type Delta int

// Delta implements Decider.
func (d Delta) Delta(_ []byte, _ int, _ string, _ int, _ string) int { return int(d) }

// Func is a fold decider backed by a function. It receives the full
// input, the start offset of the line containing the match, the line's
// text, the match offset within that line, and the matched text.
type Func func(input []byte, lineStart int, lineText string, matchOffset int, matchText string) int

// Delta implements Decider.
func (f Func) Delta(input []byte, lineStart int, lineText string, matchOffset int, matchText string) int {
	return f(input, lineStart, lineText, matchOffset, matchText)
}

// Table is a grammar's fold symbol table: classification -> matched
// text -> Decider, plus optional coarse scanning patterns used as a
// prefilter. The prefilter is purely an optimization; classification
// and text lookup remain the sole source of truth for results.
type Table struct {
	deciders map[token.Class]map[string]Decider
	// catchall deciders fire for every token of their class, whatever
	// the matched text. Used for constructs whose token spans more than
	// the fold symbol itself (block comments and the like).
	catchall  map[token.Class]Decider
	prefilter []pattern.Pattern

	// ByIndent selects indentation-based folding instead of symbol
	// lookup, for whitespace-structured languages.
	ByIndent bool
}

// NewTable creates an empty fold symbol table.
func NewTable() *Table {
	return &Table{
		deciders: make(map[token.Class]map[string]Decider),
		catchall: make(map[token.Class]Decider),
	}
}

// Add registers a literal delta for tokens of class whose matched text
// equals text. It returns the table for chaining.
func (t *Table) Add(class token.Class, text string, delta int) *Table {
	return t.AddDecider(class, text, Delta(delta))
}

// AddDecider registers a decider for tokens of class whose matched text
// equals text.
func (t *Table) AddDecider(class token.Class, text string, d Decider) *Table {
	sub, ok := t.deciders[class]
	if !ok {
		sub = make(map[string]Decider)
		t.deciders[class] = sub
	}
	sub[text] = d
	return t
}

// AddClass registers a decider consulted for every token of class,
// regardless of matched text.
func (t *Table) AddClass(class token.Class, d Decider) *Table {
	t.catchall[class] = d
	return t
}

// Prefilter sets the coarse scanning patterns. When non-empty, a token
// whose text matches no prefilter pattern anywhere skips table lookup.
// Prefilters must cover every registered symbol; they never change
// which deciders fire for covered text.
func (t *Table) Prefilter(ps ...pattern.Pattern) *Table {
	t.prefilter = ps
	return t
}

// Empty reports whether the table has no registered deciders.
func (t *Table) Empty() bool {
	return t == nil || (len(t.deciders) == 0 && len(t.catchall) == 0)
}

// Lookup returns the decider registered for a (classification, matched
// text) pair, falling back to the classification's catch-all decider,
// or nil when neither exists. Classification match is authoritative;
// the coarse prefilter never decides.
func (t *Table) Lookup(class token.Class, text string) Decider {
	if sub, ok := t.deciders[class]; ok {
		if d, ok := sub[text]; ok {
			return d
		}
	}
	return t.catchall[class]
}

// MayFold reports whether text could contain a fold symbol according to
// the coarse scanning patterns. With no patterns registered every text
// may fold.
func (t *Table) MayFold(text string) bool {
	if len(t.prefilter) == 0 {
		return true
	}
	b := []byte(text)
	for _, p := range t.prefilter {
		for pos := 0; pos < len(b); pos++ {
			if _, ok := p.Match(b, pos); ok {
				return true
			}
		}
	}
	return false
}
