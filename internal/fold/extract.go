package fold

import (
	"github.com/dshills/lexkit/internal/token"
)

// line describes one source line's extent within the input.
type line struct {
	start int // offset of first byte
	next  int // offset of the following line's start
	end   int // offset after content, excluding the line terminator
}

// splitLines returns the line table for input. Input always has at
// least one line; a trailing newline yields a final empty line, the way
// editors count lines.
func splitLines(input []byte) []line {
	lines := make([]line, 0, 16)
	start := 0
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			end := i
			if end > start && input[end-1] == '\r' {
				end--
			}
			lines = append(lines, line{start: start, next: i + 1, end: end})
			start = i + 1
		}
	}
	lines = append(lines, line{start: start, next: len(input) + 1, end: len(input)})
	return lines
}

// isBlank reports whether a line contains only spaces and tabs.
func isBlank(input []byte, ln line) bool {
	for i := ln.start; i < ln.end; i++ {
		if input[i] != ' ' && input[i] != '\t' {
			return false
		}
	}
	return true
}

// Blank reports whether a line chunk holds only spaces, tabs, and line
// terminators.
func Blank(chunk []byte) bool {
	for _, b := range chunk {
		switch b {
		case ' ', '\t', '\r', '\n':
		default:
			return false
		}
	}
	return true
}

// Extract computes one Level per input line from a completed token
// stream and the grammar's fold symbol table.
//
// A positive delta marks the current line as a fold header and raises
// the level applied to subsequent lines; a negative delta lowers the
// level starting at the current line, so a closing brace folds at the
// same level as its opening line. Blank lines are flagged and inherit
// the surrounding level without accumulating deltas.
//
// Tables folding by indentation ignore the stream and derive levels
// from leading whitespace under tabWidth; other tables never read it.
func Extract(input []byte, stream token.Stream, t *Table, tabWidth int) []Level {
	lines := splitLines(input)
	levels := make([]Level, len(lines))

	if t != nil && t.ByIndent {
		return IndentLevels(input, tabWidth)
	}
	if t.Empty() {
		for i, ln := range lines {
			levels[i] = Level{Level: LevelBase, Blank: isBlank(input, ln)}
		}
		return levels
	}

	cur := LevelBase
	ti := 0
	for li, ln := range lines {
		low := cur
		header := false
		lineText := string(input[ln.start:ln.end])

		for ti < len(stream) && stream.Start(ti) < ln.next && stream.Start(ti) < len(input) {
			start := stream.Start(ti)
			tk := stream[ti]
			ti++

			text := stream.Text(input, ti-1)
			if !t.MayFold(text) {
				continue
			}
			d := t.Lookup(tk.Class, text)
			if d == nil {
				continue
			}
			delta := d.Delta(input, ln.start, lineText, start-ln.start, text)
			switch {
			case delta > 0:
				header = true
				cur += delta
			case delta < 0:
				cur += delta
				if cur < LevelBase {
					cur = LevelBase
				}
				if cur < low {
					low = cur
				}
			}
		}

		if isBlank(input, ln) {
			levels[li] = Level{Level: cur, Blank: true}
		} else {
			levels[li] = Level{Level: low, Header: header}
		}
	}
	return levels
}
