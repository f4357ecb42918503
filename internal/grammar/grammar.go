// Package grammar defines tokenization grammars: ordered lists of
// named rules binding patterns to classifications, plus optional fold
// symbol tables and embedded-grammar links.
//
// A Grammar is a value object. Once built it is immutable and safely
// shared read-only across concurrent lex calls; malformed grammars are
// rejected at build time so the engine never lexes with one.
package grammar

import (
	"errors"
	"fmt"

	"github.com/dshills/lexkit/internal/fold"
	"github.com/dshills/lexkit/internal/pattern"
	"github.com/dshills/lexkit/internal/token"
)

// Errors reported by grammar construction.
var (
	// ErrEmptyName is returned when a grammar or rule has no name.
	ErrEmptyName = errors.New("empty name")

	// ErrEmptyClass is returned when a token definition has no
	// classification.
	ErrEmptyClass = errors.New("empty classification")

	// ErrDuplicateRule is returned when two rules share a name.
	ErrDuplicateRule = errors.New("duplicate rule name")

	// ErrZeroWidthRule is returned when a content rule could match
	// without consuming input, which would stall the driver. Zero-width
	// patterns are only permitted as embedding boundary guards.
	ErrZeroWidthRule = errors.New("zero-width content rule")

	// ErrUnknownAnchor is returned when an insert or override names a
	// rule that does not exist.
	ErrUnknownAnchor = errors.New("unknown anchor rule")

	// ErrUnresolvedEmbed is returned when an embedded grammar reference
	// cannot be resolved.
	ErrUnresolvedEmbed = errors.New("unresolved embedded grammar")
)

// TokenDef binds a pattern to a classification. On match the consumed
// span is emitted with that classification.
type TokenDef struct {
	Class token.Class
	Pat   pattern.Pattern
}

// T is shorthand for constructing a TokenDef.
func T(class token.Class, pat pattern.Pattern) TokenDef {
	return TokenDef{Class: class, Pat: pat}
}

// Rule is a named entry in a grammar's ordered rule list. A rule
// matches when all of its token definitions match in sequence; each
// definition that consumes input emits one token.
type Rule struct {
	Name   string
	Tokens []TokenDef
}

// NewRule constructs a rule from token definitions.
func NewRule(name string, toks ...TokenDef) Rule {
	return Rule{Name: name, Tokens: toks}
}

// matchesEmpty reports whether the rule could succeed without consuming
// input.
func (r Rule) matchesEmpty() bool {
	for _, td := range r.Tokens {
		if !td.Pat.MatchesEmpty() {
			return false
		}
	}
	return true
}

// validate checks a rule's invariants.
func (r Rule) validate() error {
	if r.Name == "" {
		return ErrEmptyName
	}
	if len(r.Tokens) == 0 {
		return fmt.Errorf("rule %q: no token definitions", r.Name)
	}
	for _, td := range r.Tokens {
		if td.Class == "" {
			return fmt.Errorf("rule %q: %w", r.Name, ErrEmptyClass)
		}
		if td.Pat == nil {
			return fmt.Errorf("rule %q: nil pattern", r.Name)
		}
	}
	return nil
}

// Span is one classified segment of a rule match: the classification
// and the end offset within the input.
type Span struct {
	Class token.Class
	End   int
}

// Match applies the rule at pos. On success it returns one span per
// consuming token definition, appended to spans, and the overall end
// position. A zero-width success returns pos itself with no spans.
func (r Rule) Match(input []byte, pos int, spans []Span) ([]Span, int, bool) {
	p := pos
	for _, td := range r.Tokens {
		next, ok := td.Pat.Match(input, p)
		if !ok {
			return spans[:0], 0, false
		}
		if next > p {
			spans = append(spans, Span{Class: td.Class, End: next})
		}
		p = next
	}
	return spans, p, true
}

// Grammar is an ordered set of rules defining how to tokenize text for
// one language variant.
type Grammar struct {
	name      string
	rules     []Rule
	foldTable *fold.Table
	lexByLine bool
	embeds    []Embedding
}

// Name returns the grammar's name.
func (g *Grammar) Name() string { return g.name }

// Rules returns the grammar's rules in declaration order. The returned
// slice must not be modified.
func (g *Grammar) Rules() []Rule { return g.rules }

// Fold returns the grammar's fold symbol table, or nil.
func (g *Grammar) Fold() *fold.Table { return g.foldTable }

// LexByLine reports whether the grammar prefers per-line lexing.
func (g *Grammar) LexByLine() bool { return g.lexByLine }

// Embeddings returns the grammar's embedded-child links.
func (g *Grammar) Embeddings() []Embedding { return g.embeds }

// Apply tries each rule in declared order at pos and commits to the
// first rule that matches and consumes input. The first success wins
// regardless of whether a later rule would match more text. A match
// that consumes nothing is skipped so the driver always makes forward
// progress.
func (g *Grammar) Apply(input []byte, pos int, spans []Span) ([]Span, bool) {
	for _, r := range g.rules {
		out, end, ok := r.Match(input, pos, spans)
		if ok && end > pos {
			return out, true
		}
	}
	return spans[:0], false
}
