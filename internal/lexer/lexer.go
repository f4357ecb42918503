// Package lexer is the engine's top-level entry point. It feeds input
// to the active grammar, resolves embedding transitions, and yields the
// token stream plus fold levels and indentation amounts.
//
// Lexing is a pure computation: no I/O, no suspension points, and no
// mutation of the grammar. The engine is total at lex time: it always
// returns a stream covering the whole input, advancing one byte with
// the default classification wherever no rule matches.
package lexer

import (
	"github.com/dshills/lexkit/internal/fold"
	"github.com/dshills/lexkit/internal/grammar"
	"github.com/dshills/lexkit/internal/token"
)

// DefaultMaxDepth bounds embedding recursion. Grammar nesting has no
// designed depth limit, so sessions bound it defensively.
const DefaultMaxDepth = 100

// Result is the outcome of a whole-buffer lex: the token stream, one
// fold level per line, and one indentation amount per line.
type Result struct {
	Stream  token.Stream
	Folds   []fold.Level
	Indents []int
}

// Pairs returns the flat (classification, end_offset) wire form of the
// result's token stream.
func (r Result) Pairs() []token.Pair { return r.Stream.Pairs() }

// Lex runs a whole-buffer lex of input under g using a throwaway
// session. Grammars with embedded children linked by name need a
// session with a resolver instead.
func Lex(g *grammar.Grammar, input []byte) Result {
	return NewSession(g).LexAll(input)
}
