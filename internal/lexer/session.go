package lexer

import (
	"github.com/google/uuid"

	"github.com/dshills/lexkit/internal/fold"
	"github.com/dshills/lexkit/internal/grammar"
	"github.com/dshills/lexkit/internal/token"
)

// frame is one level of the embedding stack. The bottom frame holds the
// document's default grammar; each push records the link that entered a
// guest and the name of the host owning the boundary rules.
type frame struct {
	g     *grammar.Grammar
	embed *grammar.Embedding
	host  string
}

// lineRecord captures everything needed to replay or invalidate one
// per-line lex call.
type lineRecord struct {
	entryStack []frame
	entryLevel int
	stream     token.Stream
	level      fold.Level
	indent     int
}

// Session owns all per-document lexer state: the embedding stack, the
// running fold level, and per-line records for invalidation. Grammars
// themselves stay immutable and shared; a session must not be shared
// across documents.
type Session struct {
	id       string
	def      *grammar.Grammar
	resolver grammar.Resolver
	maxDepth int
	tabWidth int

	stack  []frame
	accum  *fold.Accumulator
	guests map[string]*grammar.Grammar
	lines  []lineRecord
}

// Option configures a Session.
type Option func(*Session)

// WithResolver supplies the resolver used to bind embedded grammars
// referenced by name.
func WithResolver(r grammar.Resolver) Option {
	return func(s *Session) { s.resolver = r }
}

// WithMaxDepth bounds the embedding stack depth.
func WithMaxDepth(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// WithTabWidth sets the tab width used for indentation amounts.
func WithTabWidth(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.tabWidth = n
		}
	}
}

// NewSession creates a lexing session for one document using g as the
// default active grammar.
func NewSession(g *grammar.Grammar, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		def:      g,
		maxDepth: DefaultMaxDepth,
		tabWidth: fold.DefaultTabWidth,
		accum:    fold.NewAccumulator(),
		guests:   make(map[string]*grammar.Grammar),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stack = []frame{{g: g}}
	return s
}

// ID returns the session's unique identity.
func (s *Session) ID() string { return s.id }

// Grammar returns the session's default grammar.
func (s *Session) Grammar() *grammar.Grammar { return s.def }

// ActiveGrammar returns the name of the grammar currently in control,
// which differs from the default grammar while inside an embedding.
func (s *Session) ActiveGrammar() string {
	return s.stack[len(s.stack)-1].g.Name()
}

// Reset discards all per-document state, returning the session to the
// default grammar at position zero.
func (s *Session) Reset() {
	s.stack = s.stack[:0]
	s.stack = append(s.stack, frame{g: s.def})
	s.accum = fold.NewAccumulator()
	s.lines = nil
}

// LexAll lexes a whole buffer from position zero, discarding any
// per-line state accumulated earlier.
func (s *Session) LexAll(input []byte) Result {
	s.Reset()
	stream := s.lexChunk(input)
	return Result{
		Stream:  stream,
		Folds:   fold.Extract(input, stream, s.def.Fold(), s.tabWidth),
		Indents: fold.Indentation(input, s.tabWidth),
	}
}

// LexLine lexes the next line of the document. End offsets in the
// returned stream are relative to the supplied line. Embedding state
// persists across calls: a transition opened on one line stays active
// on the next, and an end boundary needing lookahead past this line
// simply does not match until a later call supplies the text.
func (s *Session) LexLine(line []byte) token.Stream {
	rec := lineRecord{
		entryStack: append([]frame(nil), s.stack...),
		entryLevel: s.accum.Current(),
	}
	rec.stream = s.lexChunk(line)
	rec.indent = fold.Indentation(line, s.tabWidth)[0]
	if t := s.def.Fold(); t != nil && t.ByIndent {
		rec.level = s.indentLevel(line, rec.indent)
	} else {
		rec.level = s.accum.ScanLine(line, rec.stream, t)
	}
	s.lines = append(s.lines, rec)
	return rec.stream
}

// indentLevel assigns a fold level from the line's indentation and
// back-fills earlier records the way whole-buffer extraction resolves
// them: a line becomes a header once a deeper non-blank line follows,
// and blank lines take the level of the next non-blank line.
func (s *Session) indentLevel(line []byte, indent int) fold.Level {
	if fold.Blank(line) {
		// Inherit the previous non-blank level until the next non-blank
		// line arrives and back-fills it.
		lvl := fold.LevelBase
		for i := len(s.lines) - 1; i >= 0; i-- {
			if !s.lines[i].level.Blank {
				lvl = s.lines[i].level.Level
				break
			}
		}
		return fold.Level{Level: lvl, Blank: true}
	}
	level := fold.LevelBase + indent/s.tabWidth
	for i := len(s.lines) - 1; i >= 0; i-- {
		if s.lines[i].level.Blank {
			s.lines[i].level.Level = level
			continue
		}
		s.lines[i].level.Header = level > s.lines[i].level.Level
		break
	}
	return fold.Level{Level: level}
}

// LineCount returns the number of lines fed so far.
func (s *Session) LineCount() int { return len(s.lines) }

// LineStream returns the token stream of a previously lexed line.
func (s *Session) LineStream(i int) token.Stream { return s.lines[i].stream }

// FoldLevels returns the fold level of every line fed so far, readable
// by line index starting at 0. Indent-derived folds are back-filled, so
// a line's header flag and a blank line's level may change as later
// lines arrive.
func (s *Session) FoldLevels() []fold.Level {
	levels := make([]fold.Level, len(s.lines))
	for i, rec := range s.lines {
		levels[i] = rec.level
	}
	return levels
}

// Indents returns the indentation amount of every line fed so far.
func (s *Session) Indents() []int {
	amounts := make([]int, len(s.lines))
	for i, rec := range s.lines {
		amounts[i] = rec.indent
	}
	return amounts
}

// InvalidateFrom drops all per-line state from line i onward and
// restores the lexer state in effect at the start of line i, so an edit
// re-lexes only the affected tail of the document.
func (s *Session) InvalidateFrom(i int) {
	if i < 0 || i >= len(s.lines) {
		return
	}
	rec := s.lines[i]
	s.stack = append(s.stack[:0], rec.entryStack...)
	s.accum.Restore(rec.entryLevel)
	s.lines = s.lines[:i]
}

// resolveGuest binds an embedding link's guest grammar, caching by
// name. A link that cannot be resolved never fires.
func (s *Session) resolveGuest(e *grammar.Embedding) *grammar.Grammar {
	if g := e.Resolved(); g != nil {
		return g
	}
	if g, ok := s.guests[e.Guest]; ok {
		return g
	}
	if s.resolver == nil {
		return nil
	}
	g, err := s.resolver.Resolve(e.Guest)
	if err != nil || g == nil {
		return nil
	}
	s.guests[e.Guest] = g
	return g
}

// lexChunk runs the matching loop over one chunk (a whole buffer or a
// single line) under the current embedding stack.
func (s *Session) lexChunk(input []byte) token.Stream {
	if len(input) == 0 {
		return nil
	}

	stream := make(token.Stream, 0, len(input)/4+1)
	spans := make([]grammar.Span, 0, 8)
	pos := 0
	// guardPos prevents transition ping-pong after a zero-width
	// boundary switch: at most one switch per position until input is
	// consumed.
	guardPos := -1

	for pos < len(input) {
		top := &s.stack[len(s.stack)-1]

		// End boundary, only while embedded.
		if len(s.stack) > 1 && pos != guardPos {
			out, end, ok := top.embed.End.Match(input, pos, spans[:0])
			if ok {
				host := top.host
				s.stack = s.stack[:len(s.stack)-1]
				if end == pos {
					guardPos = pos
				} else {
					for _, sp := range out {
						stream = append(stream, token.Token{Class: sp.Class, End: sp.End, Grammar: host})
					}
					pos = end
				}
				continue
			}
		}

		// Start boundaries declared by the active grammar.
		if pos != guardPos && len(s.stack) < s.maxDepth {
			active := top.g
			embeds := active.Embeddings()
			switched := false
			for i := range embeds {
				e := &embeds[i]
				guest := s.resolveGuest(e)
				if guest == nil {
					continue
				}
				out, end, ok := e.Start.Match(input, pos, spans[:0])
				if !ok {
					continue
				}
				if end == pos {
					guardPos = pos
				} else {
					for _, sp := range out {
						stream = append(stream, token.Token{Class: sp.Class, End: sp.End, Grammar: active.Name()})
					}
					pos = end
				}
				s.stack = append(s.stack, frame{g: guest, embed: e, host: active.Name()})
				switched = true
				break
			}
			if switched {
				continue
			}
		}

		// Ordinary rule application under the active grammar.
		active := s.stack[len(s.stack)-1].g
		out, ok := active.Apply(input, pos, spans[:0])
		if ok {
			for _, sp := range out {
				stream = append(stream, token.Token{Class: sp.Class, End: sp.End, Grammar: active.Name()})
			}
			pos = out[len(out)-1].End
			continue
		}

		// No rule matched: emit one byte as the default classification
		// and keep going. The engine never stalls on unmatched input.
		stream = append(stream, token.Token{Class: token.ClassDefault, End: pos + 1, Grammar: active.Name()})
		pos++
	}
	return stream
}
