package grammar

import (
	"fmt"

	"github.com/dshills/lexkit/internal/fold"
	"github.com/dshills/lexkit/internal/pattern"
	"github.com/dshills/lexkit/internal/token"
)

// Builder assembles a Grammar. Rule order is declaration order and is
// semantically significant: earlier rules win at every position.
//
// Deriving one language from another is composition, not inheritance:
// start from Extend(base), then insert, override, or remove rules at
// named positions.
type Builder struct {
	name      string
	rules     []Rule
	foldTable *fold.Table
	lexByLine bool
	embeds    []Embedding
	errs      []error
}

// NewBuilder creates a builder for a grammar with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Extend creates a builder seeded with a copy of base's rules, fold
// table, and flags, for building a derived grammar.
func Extend(name string, base *Grammar) *Builder {
	b := NewBuilder(name)
	b.rules = append(b.rules, base.rules...)
	b.foldTable = base.foldTable
	b.lexByLine = base.lexByLine
	b.embeds = append(b.embeds, base.embeds...)
	return b
}

// Rule appends a rule built from token definitions.
func (b *Builder) Rule(name string, toks ...TokenDef) *Builder {
	return b.Add(NewRule(name, toks...))
}

// Token appends a single-token rule: the common case of one pattern
// emitting one classification.
func (b *Builder) Token(name string, class token.Class, pat pattern.Pattern) *Builder {
	return b.Add(NewRule(name, T(class, pat)))
}

// Add appends a prebuilt rule.
func (b *Builder) Add(r Rule) *Builder {
	b.rules = append(b.rules, r)
	return b
}

// InsertBefore inserts a rule immediately before the named anchor rule.
func (b *Builder) InsertBefore(anchor string, r Rule) *Builder {
	return b.insert(anchor, r, 0)
}

// InsertAfter inserts a rule immediately after the named anchor rule.
func (b *Builder) InsertAfter(anchor string, r Rule) *Builder {
	return b.insert(anchor, r, 1)
}

func (b *Builder) insert(anchor string, r Rule, offset int) *Builder {
	for i, existing := range b.rules {
		if existing.Name == anchor {
			at := i + offset
			b.rules = append(b.rules, Rule{})
			copy(b.rules[at+1:], b.rules[at:])
			b.rules[at] = r
			return b
		}
	}
	b.errs = append(b.errs, fmt.Errorf("insert %q: %w %q", r.Name, ErrUnknownAnchor, anchor))
	return b
}

// Override replaces the named rule in place, keeping its position.
func (b *Builder) Override(name string, toks ...TokenDef) *Builder {
	for i, existing := range b.rules {
		if existing.Name == name {
			b.rules[i] = NewRule(name, toks...)
			return b
		}
	}
	b.errs = append(b.errs, fmt.Errorf("override: %w %q", ErrUnknownAnchor, name))
	return b
}

// Remove deletes the named rule. Removing a rule that does not exist is
// not an error.
func (b *Builder) Remove(name string) *Builder {
	for i, existing := range b.rules {
		if existing.Name == name {
			b.rules = append(b.rules[:i], b.rules[i+1:]...)
			return b
		}
	}
	return b
}

// Fold sets the grammar's fold symbol table.
func (b *Builder) Fold(t *fold.Table) *Builder {
	b.foldTable = t
	return b
}

// LexByLine marks the grammar as preferring per-line lexing.
func (b *Builder) LexByLine(v bool) *Builder {
	b.lexByLine = v
	return b
}

// Embed links a guest grammar by name, resolved later through a
// Resolver. The start and end rules are owned by this grammar and
// tokenize the boundary text with its classifications.
func (b *Builder) Embed(guest string, start, end Rule) *Builder {
	b.embeds = append(b.embeds, Embedding{Guest: guest, Start: start, End: end})
	return b
}

// EmbedGrammar links a guest grammar directly, for callers not using a
// registry.
func (b *Builder) EmbedGrammar(g *Grammar, start, end Rule) *Builder {
	b.embeds = append(b.embeds, Embedding{Guest: g.Name(), Start: start, End: end, guest: g})
	return b
}

// Build validates and returns the immutable grammar. Validation
// rejects empty names, empty classifications, duplicate rule names, and
// zero-width content rules; the engine never lexes with a malformed
// grammar.
func (b *Builder) Build() (*Grammar, error) {
	if b.name == "" {
		return nil, fmt.Errorf("grammar: %w", ErrEmptyName)
	}
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("grammar %q: %w", b.name, b.errs[0])
	}

	seen := make(map[string]bool, len(b.rules))
	for _, r := range b.rules {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("grammar %q: %w", b.name, err)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("grammar %q: %w: %q", b.name, ErrDuplicateRule, r.Name)
		}
		seen[r.Name] = true
		if r.matchesEmpty() {
			return nil, fmt.Errorf("grammar %q: rule %q: %w", b.name, r.Name, ErrZeroWidthRule)
		}
	}

	for _, e := range b.embeds {
		if e.Guest == "" {
			return nil, fmt.Errorf("grammar %q: %w: empty guest name", b.name, ErrUnresolvedEmbed)
		}
		// Boundary rules may be zero-width lookahead guards, but their
		// token definitions still need valid classifications.
		for _, r := range []Rule{e.Start, e.End} {
			if err := r.validate(); err != nil {
				return nil, fmt.Errorf("grammar %q: boundary %w", b.name, err)
			}
		}
	}

	g := &Grammar{
		name:      b.name,
		rules:     append([]Rule(nil), b.rules...),
		foldTable: b.foldTable,
		lexByLine: b.lexByLine,
		embeds:    append([]Embedding(nil), b.embeds...),
	}
	return g, nil
}

// MustBuild is Build for statically known-good grammars; it panics on
// error.
func (b *Builder) MustBuild() *Grammar {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
