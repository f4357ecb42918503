package pattern

// Common building blocks shared by grammar definitions. These are
// ordinary compositions of the primitives, provided because nearly
// every grammar needs them.

// Digit matches one decimal digit.
func Digit() Pattern { return Range('0', '9') }

// Alpha matches one ASCII letter or underscore.
func Alpha() Pattern {
	return Choice(Range('a', 'z'), Range('A', 'Z'), Lit("_"))
}

// Alnum matches one ASCII letter, digit, or underscore.
func Alnum() Pattern { return Choice(Alpha(), Digit()) }

// Space matches a run of one or more spaces, tabs, carriage returns,
// or newlines.
func Space() Pattern { return Plus(Set(" \t\r\n")) }

// Word matches s only when it is not followed by a word character, so
// a keyword rule does not claim the prefix of a longer identifier.
func Word(s string) Pattern {
	return Seq(Lit(s), Not(Alnum()))
}

// AnyWord matches any of the given words, tried in order, each with a
// trailing word-boundary guard.
func AnyWord(words ...string) Pattern {
	alts := make([]Pattern, len(words))
	for i, w := range words {
		alts[i] = Word(w)
	}
	return Choice(alts...)
}

// Ident matches an identifier: a letter or underscore followed by any
// run of word characters.
func Ident() Pattern {
	return Seq(Alpha(), Star(Alnum()))
}

// ToEOL matches a run of zero or more bytes up to, but not including,
// the next newline.
func ToEOL() Pattern {
	return Star(Except(Any(1), Set("\r\n")))
}

// Delimited matches text enclosed by the single-byte delimiter quote,
// honoring backslash escapes so an escaped delimiter does not end the
// match. The closing delimiter is optional at end of input, so an
// unterminated construct still lexes through the end of the line or
// buffer rather than failing.
func Delimited(quote byte) Pattern {
	q := string(quote)
	body := Star(Choice(
		Seq(Lit("\\"), Any(1)),
		Except(Any(1), Set(q+"\r\n")),
	))
	return Seq(Lit(q), body, Opt(Lit(q)))
}

// Enclosed matches text between the open and close byte sequences,
// including both markers. The close marker is optional at end of
// input, covering unterminated block constructs.
func Enclosed(open, close string) Pattern {
	return Seq(Lit(open), Star(Except(Any(1), Lit(close))), Opt(Lit(close)))
}

// Number matches a C-style numeric literal: hex, octal, binary, or
// decimal with optional fraction and exponent.
func Number() Pattern {
	hex := Seq(Lit("0"), Set("xX"), Plus(Choice(Digit(), Range('a', 'f'), Range('A', 'F'))))
	bin := Seq(Lit("0"), Set("bB"), Plus(Set("01")))
	oct := Seq(Lit("0"), Set("oO"), Plus(Range('0', '7')))
	exp := Seq(Set("eE"), Opt(Set("+-")), Plus(Digit()))
	dec := Seq(Plus(Digit()), Opt(Seq(Lit("."), Star(Digit()))), Opt(exp))
	return Choice(hex, bin, oct, dec)
}
