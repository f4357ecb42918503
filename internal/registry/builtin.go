package registry

import (
	"github.com/dshills/lexkit/internal/fold"
	"github.com/dshills/lexkit/internal/grammar"
	"github.com/dshills/lexkit/internal/pattern"
	"github.com/dshills/lexkit/internal/token"
)

// Built-in grammars. These are ordinary engine configurations kept in
// Go so the engine works with no search path configured; the wider
// grammar catalog ships as Lua definition files.

// Plain returns a grammar with no rules: every byte lexes as the
// default classification.
func Plain() *grammar.Grammar {
	return grammar.NewBuilder("plain").MustBuild()
}

// CFamily returns a grammar for C-style languages. Rule order is
// deliberate: comments before operators so "//" never lexes as two
// division signs, keywords before identifiers so "int" is a keyword
// even though the identifier rule would also match it.
func CFamily() *grammar.Grammar {
	foldTable := fold.NewTable().
		Add(token.ClassOperator, "{", 1).
		Add(token.ClassOperator, "}", -1).
		Prefilter(pattern.Set("{}"))

	return grammar.NewBuilder("cfamily").
		Token("whitespace", token.ClassWhitespace, pattern.Space()).
		Token("comment", token.ClassComment, pattern.Choice(
			pattern.Enclosed("/*", "*/"),
			pattern.Seq(pattern.Lit("//"), pattern.ToEOL()),
		)).
		Token("string", token.ClassString, pattern.Choice(
			pattern.Delimited('"'),
			pattern.Delimited('\''),
		)).
		Token("preprocessor", token.ClassPreproc, pattern.Seq(pattern.Lit("#"), pattern.ToEOL())).
		Token("keyword", token.ClassKeyword, pattern.AnyWord(
			"auto", "break", "case", "char", "const", "continue",
			"default", "do", "double", "else", "enum", "extern", "float",
			"for", "goto", "if", "int", "long", "register", "return",
			"short", "signed", "sizeof", "static", "struct", "switch",
			"typedef", "union", "unsigned", "void", "volatile", "while",
		)).
		Token("number", token.ClassNumber, pattern.Number()).
		Token("identifier", token.ClassIdentifier, pattern.Ident()).
		Token("operator", token.ClassOperator, pattern.Set("+-*/%=<>!&|^~?:;,.(){}[]")).
		Fold(foldTable).
		MustBuild()
}

// StyleSheet returns a grammar for CSS-like style sheets, embeddable
// inside Markup.
func StyleSheet() *grammar.Grammar {
	foldTable := fold.NewTable().
		Add(token.ClassOperator, "{", 1).
		Add(token.ClassOperator, "}", -1).
		Prefilter(pattern.Set("{}"))

	return grammar.NewBuilder("style").
		Token("whitespace", token.ClassWhitespace, pattern.Space()).
		Token("comment", token.ClassComment, pattern.Enclosed("/*", "*/")).
		Token("string", token.ClassString, pattern.Choice(
			pattern.Delimited('"'),
			pattern.Delimited('\''),
		)).
		Token("color", token.ClassConstant, pattern.Seq(
			pattern.Lit("#"),
			pattern.Plus(pattern.Choice(pattern.Digit(), pattern.Range('a', 'f'), pattern.Range('A', 'F'))),
		)).
		Token("number", token.ClassNumber, pattern.Seq(
			pattern.Number(),
			pattern.Opt(pattern.Choice(pattern.Lit("%"), pattern.Lit("px"), pattern.Lit("em"), pattern.Lit("pt"))),
		)).
		Token("property", token.ClassKeyword, pattern.Seq(
			pattern.Ident(),
			pattern.Star(pattern.Seq(pattern.Lit("-"), pattern.Ident())),
			pattern.Peek(pattern.Seq(pattern.Star(pattern.Set(" \t")), pattern.Lit(":"))),
		)).
		Token("identifier", token.ClassIdentifier, pattern.Seq(
			pattern.Opt(pattern.Set(".#")),
			pattern.Ident(),
			pattern.Star(pattern.Seq(pattern.Lit("-"), pattern.Ident())),
		)).
		Token("operator", token.ClassOperator, pattern.Set("{}:;,()>*+~=!")).
		Fold(foldTable).
		MustBuild()
}

// Markup returns a grammar for HTML-like markup with an embedded style
// grammar: a <style> tag hands control to the style grammar until the
// closing tag. The boundary rules belong to the markup side, so the
// tags themselves classify as markup tags.
func Markup() *grammar.Grammar {
	styleOpen := grammar.NewRule("style-open",
		grammar.T(token.ClassTag, pattern.Enclosed("<style", ">")))
	styleClose := grammar.NewRule("style-close",
		grammar.T(token.ClassTag, pattern.Lit("</style>")))

	return grammar.NewBuilder("markup").
		Token("comment", token.ClassComment, pattern.Enclosed("<!--", "-->")).
		Token("entity", token.ClassConstant, pattern.Seq(
			pattern.Lit("&"), pattern.Plus(pattern.Alnum()), pattern.Lit(";"),
		)).
		Token("tag", token.ClassTag, pattern.Enclosed("<", ">")).
		Token("whitespace", token.ClassWhitespace, pattern.Space()).
		Token("text", token.ClassDefault, pattern.Plus(pattern.Except(pattern.Any(1), pattern.Set("<& \t\r\n")))).
		Embed("style", styleOpen, styleClose).
		MustBuild()
}

// RegisterBuiltins registers the built-in grammars. Guests register
// before hosts so embedded references bind on first load.
func RegisterBuiltins(r *Registry) {
	r.Register(Plain())
	r.Register(CFamily())
	r.Register(StyleSheet())
	r.Register(Markup())
}
