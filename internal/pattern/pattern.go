// Package pattern provides the matching primitives grammars are built
// from: literals, character sets and ranges, greedy bounded repetition,
// sequences, ordered choice, difference, lookaheads, and dynamic
// predicates.
//
// Patterns are immutable values. They are composed once when a grammar
// is built and shared read-only across every lex call; matching never
// mutates a pattern. All primitives operate on raw byte values 0-255;
// multi-byte encoded text beyond ASCII is matched byte-wise, not
// decoded.
package pattern

// Pattern is a composable matching expression over a byte stream.
type Pattern interface {
	// Match attempts to match at pos in input. On success it returns
	// the position immediately after the consumed text and true. A
	// zero-width success returns pos itself.
	Match(input []byte, pos int) (int, bool)

	// MatchesEmpty reports whether the pattern can succeed without
	// consuming any input. Grammar construction uses this to reject
	// zero-width content rules.
	MatchesEmpty() bool
}

// MatchFunc is a dynamic predicate. It receives the full input and the
// current position and returns the position after the match, or ok
// false for no match. Predicates enable context-sensitive decisions
// such as scanning ahead before committing to a boundary transition.
//
// A predicate used as a content rule must consume input on success;
// returning pos unchanged is treated as no match by the lexing driver.
type MatchFunc func(input []byte, pos int) (int, bool)

// Lit matches the exact byte sequence s.
func Lit(s string) Pattern { return litPattern(s) }

type litPattern string

func (p litPattern) Match(input []byte, pos int) (int, bool) {
	end := pos + len(p)
	if end > len(input) {
		return 0, false
	}
	if string(input[pos:end]) != string(p) {
		return 0, false
	}
	return end, true
}

func (p litPattern) MatchesEmpty() bool { return len(p) == 0 }

// Set matches any single byte contained in chars.
func Set(chars string) Pattern {
	var p setPattern
	for i := 0; i < len(chars); i++ {
		p.member[chars[i]] = true
	}
	return &p
}

type setPattern struct {
	member [256]bool
}

func (p *setPattern) Match(input []byte, pos int) (int, bool) {
	if pos >= len(input) || !p.member[input[pos]] {
		return 0, false
	}
	return pos + 1, true
}

func (p *setPattern) MatchesEmpty() bool { return false }

// Range matches any single byte b with lo <= b <= hi.
func Range(lo, hi byte) Pattern { return rangePattern{lo: lo, hi: hi} }

type rangePattern struct {
	lo, hi byte
}

func (p rangePattern) Match(input []byte, pos int) (int, bool) {
	if pos >= len(input) {
		return 0, false
	}
	if b := input[pos]; b < p.lo || b > p.hi {
		return 0, false
	}
	return pos + 1, true
}

func (p rangePattern) MatchesEmpty() bool { return false }

// Any matches exactly n bytes of any value.
func Any(n int) Pattern {
	if n < 0 {
		n = 0
	}
	return anyPattern(n)
}

type anyPattern int

func (p anyPattern) Match(input []byte, pos int) (int, bool) {
	end := pos + int(p)
	if end > len(input) {
		return 0, false
	}
	return end, true
}

func (p anyPattern) MatchesEmpty() bool { return p == 0 }

// Seq matches each sub-pattern in order, each starting where the
// previous one ended.
func Seq(ps ...Pattern) Pattern {
	if len(ps) == 1 {
		return ps[0]
	}
	return seqPattern(ps)
}

type seqPattern []Pattern

func (p seqPattern) Match(input []byte, pos int) (int, bool) {
	for _, sub := range p {
		next, ok := sub.Match(input, pos)
		if !ok {
			return 0, false
		}
		pos = next
	}
	return pos, true
}

func (p seqPattern) MatchesEmpty() bool {
	for _, sub := range p {
		if !sub.MatchesEmpty() {
			return false
		}
	}
	return true
}

// Choice tries each alternative in order and commits to the first that
// matches, regardless of whether a later alternative would match more.
// This is what makes rule declaration order semantically significant.
func Choice(ps ...Pattern) Pattern {
	if len(ps) == 1 {
		return ps[0]
	}
	return choicePattern(ps)
}

type choicePattern []Pattern

func (p choicePattern) Match(input []byte, pos int) (int, bool) {
	for _, sub := range p {
		if next, ok := sub.Match(input, pos); ok {
			return next, true
		}
	}
	return 0, false
}

func (p choicePattern) MatchesEmpty() bool {
	for _, sub := range p {
		if sub.MatchesEmpty() {
			return true
		}
	}
	return false
}

// Rep matches sub greedily between min and max times. max < 0 means
// unbounded. Repetition is length-maximal at each step and never
// backtracks into fewer repetitions. A zero-width sub-match terminates
// the loop so repetition always makes progress.
func Rep(sub Pattern, min, max int) Pattern {
	if min < 0 {
		min = 0
	}
	return repPattern{sub: sub, min: min, max: max}
}

// Star matches sub zero or more times.
func Star(sub Pattern) Pattern { return Rep(sub, 0, -1) }

// Plus matches sub one or more times.
func Plus(sub Pattern) Pattern { return Rep(sub, 1, -1) }

// Opt matches sub zero or one time.
func Opt(sub Pattern) Pattern { return Rep(sub, 0, 1) }

type repPattern struct {
	sub      Pattern
	min, max int
}

func (p repPattern) Match(input []byte, pos int) (int, bool) {
	count := 0
	for p.max < 0 || count < p.max {
		next, ok := p.sub.Match(input, pos)
		if !ok || next == pos {
			break
		}
		pos = next
		count++
	}
	if count < p.min {
		return 0, false
	}
	return pos, true
}

func (p repPattern) MatchesEmpty() bool {
	return p.min == 0 || p.sub.MatchesEmpty()
}

// Except matches base at the current position only if excl does not
// match there first (set difference).
func Except(base, excl Pattern) Pattern {
	return Seq(Not(excl), base)
}

// Not is a negative lookahead: it consumes no input and succeeds only
// if sub fails at the current position.
func Not(sub Pattern) Pattern { return notPattern{sub: sub} }

type notPattern struct {
	sub Pattern
}

func (p notPattern) Match(input []byte, pos int) (int, bool) {
	if _, ok := p.sub.Match(input, pos); ok {
		return 0, false
	}
	return pos, true
}

func (p notPattern) MatchesEmpty() bool { return true }

// Peek is a zero-width lookahead: it succeeds when sub matches at the
// current position but consumes nothing. Used for embedding boundary
// guards.
func Peek(sub Pattern) Pattern { return peekPattern{sub: sub} }

type peekPattern struct {
	sub Pattern
}

func (p peekPattern) Match(input []byte, pos int) (int, bool) {
	if _, ok := p.sub.Match(input, pos); !ok {
		return 0, false
	}
	return pos, true
}

func (p peekPattern) MatchesEmpty() bool { return true }

// Func wraps a dynamic predicate as a pattern.
func Func(fn MatchFunc) Pattern { return funcPattern(fn) }

type funcPattern MatchFunc

func (p funcPattern) Match(input []byte, pos int) (int, bool) {
	return p(input, pos)
}

// MatchesEmpty reports false for predicates: authors must consume input
// when a predicate backs a content rule, and the driver treats a
// zero-width predicate success as no match.
func (p funcPattern) MatchesEmpty() bool { return false }
