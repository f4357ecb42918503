// Package token defines the token stream a lex call produces: ordered
// (classification, end-offset) entries that partition the input with no
// gaps and no overlaps.
package token

import "fmt"

// Class is the named category assigned to a matched span. Grammars may
// define classes of their own; the constants below cover the common
// vocabulary so themes can style unknown languages sensibly.
//
// A Class is never empty on a stream entry.
type Class string

// Common classifications, loosely following TextMate/VS Code scope
// naming at a high level.
const (
	ClassDefault Class = "default"
	ClassError   Class = "error"

	ClassWhitespace Class = "whitespace"
	ClassComment    Class = "comment"
	ClassString     Class = "string"
	ClassNumber     Class = "number"
	ClassKeyword    Class = "keyword"
	ClassIdentifier Class = "identifier"
	ClassOperator   Class = "operator"
	ClassType       Class = "type"
	ClassFunction   Class = "function"
	ClassConstant   Class = "constant"
	ClassVariable   Class = "variable"
	ClassLabel      Class = "label"
	ClassRegex      Class = "regex"
	ClassEmbedded   Class = "embedded"
	ClassTag        Class = "tag"
	ClassAttribute  Class = "attribute"
	ClassHeading    Class = "heading"
	ClassBold       Class = "bold"
	ClassItalic     Class = "italic"
	ClassLink       Class = "link"
	ClassCode       Class = "code"
	ClassListMarker Class = "list"
	ClassQuote      Class = "quote"
	ClassPreproc    Class = "preprocessor"
)

// IsDefault reports whether the class is the implicit default.
func (c Class) IsDefault() bool { return c == ClassDefault }

// Token is one stream entry: the classification of a matched span, the
// cumulative end offset of that span (exclusive, in bytes), and the
// name of the grammar whose rule produced it.
type Token struct {
	Class   Class
	End     int
	Grammar string
}

// Pair is the flat wire form of a stream entry: classification plus
// cumulative end offset.
type Pair struct {
	Class Class
	End   int
}

// Stream is an ordered sequence of tokens covering an input: end
// offsets are strictly increasing and the final entry's end equals the
// input length.
type Stream []Token

// Pairs returns the flat (classification, end_offset) sequence, the
// wire contract consumed by host editors.
func (s Stream) Pairs() []Pair {
	pairs := make([]Pair, len(s))
	for i, t := range s {
		pairs[i] = Pair{Class: t.Class, End: t.End}
	}
	return pairs
}

// Start returns the start offset of entry i, which is the end offset of
// the entry before it.
func (s Stream) Start(i int) int {
	if i == 0 {
		return 0
	}
	return s[i-1].End
}

// Text returns the span of input covered by entry i.
func (s Stream) Text(input []byte, i int) string {
	return string(input[s.Start(i):s[i].End])
}

// Validate checks the partition invariant against the given input
// length: no empty classifications, strictly increasing ends, final end
// equal to inputLen. An empty stream is valid only for empty input.
func (s Stream) Validate(inputLen int) error {
	prev := 0
	for i, t := range s {
		if t.Class == "" {
			return fmt.Errorf("token %d: empty classification", i)
		}
		if t.End <= prev {
			return fmt.Errorf("token %d: end %d not after %d", i, t.End, prev)
		}
		prev = t.End
	}
	if prev != inputLen {
		return fmt.Errorf("stream ends at %d, input length %d", prev, inputLen)
	}
	return nil
}

// Equal reports whether two streams are identical entry for entry.
func (s Stream) Equal(other Stream) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the stream as "(keyword,3) (whitespace,4) ...",
// useful in tests and the CLI.
func (s Stream) String() string {
	out := make([]byte, 0, len(s)*12)
	for i, t := range s {
		if i > 0 {
			out = append(out, ' ')
		}
		out = fmt.Appendf(out, "(%s,%d)", t.Class, t.End)
	}
	return string(out)
}
