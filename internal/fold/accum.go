package fold

import "github.com/dshills/lexkit/internal/token"

// Accumulator carries the running fold level across per-line lex calls
// within one document session, producing the same levels line by line
// that Extract produces for a whole buffer.
type Accumulator struct {
	cur int
}

// NewAccumulator starts an accumulator at LevelBase.
func NewAccumulator() *Accumulator {
	return &Accumulator{cur: LevelBase}
}

// Current returns the level that will apply to the next line.
func (a *Accumulator) Current() int { return a.cur }

// Restore resets the running level, used when a session re-lexes from
// an earlier line.
func (a *Accumulator) Restore(level int) {
	if level < LevelBase {
		level = LevelBase
	}
	a.cur = level
}

// ScanLine folds one line's token stream. The chunk is the line's bytes
// (terminator included if the caller supplies one) and stream is the
// token stream produced for exactly that chunk. Tables folding by
// indentation are the caller's to handle; indentation is line-local
// state the accumulator does not track.
func (a *Accumulator) ScanLine(chunk []byte, stream token.Stream, t *Table) Level {
	content := chunk
	for len(content) > 0 && (content[len(content)-1] == '\n' || content[len(content)-1] == '\r') {
		content = content[:len(content)-1]
	}
	blank := true
	for _, b := range content {
		if b != ' ' && b != '\t' {
			blank = false
			break
		}
	}

	if t.Empty() {
		return Level{Level: a.cur, Blank: blank}
	}

	low := a.cur
	header := false
	for i := range stream {
		text := stream.Text(chunk, i)
		if !t.MayFold(text) {
			continue
		}
		d := t.Lookup(stream[i].Class, text)
		if d == nil {
			continue
		}
		delta := d.Delta(chunk, 0, string(content), stream.Start(i), text)
		switch {
		case delta > 0:
			header = true
			a.cur += delta
		case delta < 0:
			a.cur += delta
			if a.cur < LevelBase {
				a.cur = LevelBase
			}
			if a.cur < low {
				low = a.cur
			}
		}
	}

	if blank {
		return Level{Level: a.cur, Blank: true}
	}
	return Level{Level: low, Header: header}
}
