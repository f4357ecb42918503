package fold

// DefaultTabWidth is used when a caller passes a non-positive tab
// width.
const DefaultTabWidth = 8

// Indentation returns the indentation amount of every line in columns,
// with tabs advancing to the next tab stop. Blank lines report 0.
func Indentation(input []byte, tabWidth int) []int {
	if tabWidth <= 0 {
		tabWidth = DefaultTabWidth
	}
	lines := splitLines(input)
	amounts := make([]int, len(lines))
	for i, ln := range lines {
		if isBlank(input, ln) {
			continue
		}
		col := 0
	scan:
		for j := ln.start; j < ln.end; j++ {
			switch input[j] {
			case ' ':
				col++
			case '\t':
				col += tabWidth - col%tabWidth
			default:
				break scan
			}
		}
		amounts[i] = col
	}
	return amounts
}

// IndentLevels derives fold levels from indentation alone, for
// whitespace-structured languages. A line is a header when the next
// non-blank line is indented deeper; blank lines inherit the level of
// the next non-blank line so a fold swallows trailing blanks.
func IndentLevels(input []byte, tabWidth int) []Level {
	if tabWidth <= 0 {
		tabWidth = DefaultTabWidth
	}
	lines := splitLines(input)
	amounts := Indentation(input, tabWidth)

	levels := make([]Level, len(lines))
	for i, ln := range lines {
		if isBlank(input, ln) {
			levels[i] = Level{Blank: true}
			continue
		}
		levels[i] = Level{Level: LevelBase + amounts[i]/tabWidth}
	}

	// Headers: deeper next non-blank line opens a region.
	for i := range levels {
		if levels[i].Blank {
			continue
		}
		for j := i + 1; j < len(levels); j++ {
			if levels[j].Blank {
				continue
			}
			if levels[j].Level > levels[i].Level {
				levels[i].Header = true
			}
			break
		}
	}

	// Blank lines inherit the following non-blank level, falling back
	// to the previous one at end of input.
	last := LevelBase
	for i := len(levels) - 1; i >= 0; i-- {
		if levels[i].Blank {
			levels[i].Level = last
		} else {
			last = levels[i].Level
		}
	}
	return levels
}
