package registry

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/dshills/lexkit/internal/fold"
	"github.com/dshills/lexkit/internal/lexer"
	"github.com/dshills/lexkit/internal/token"
)

// memFS is an in-memory FileSystem for tests.
type memFS struct {
	files map[string][]byte
}

func newMemFS() *memFS { return &memFS{files: make(map[string][]byte)} }

func (m *memFS) AddFile(path, content string) { m.files[path] = []byte(content) }

func (m *memFS) ReadFile(path string) ([]byte, error) {
	b, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return b, nil
}

func (m *memFS) Stat(path string) (fs.FileInfo, error) {
	b, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return memInfo{name: path, size: int64(len(b))}, nil
}

type memInfo struct {
	name string
	size int64
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() fs.FileMode  { return 0o644 }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return false }
func (i memInfo) Sys() any           { return nil }

const iniGrammar = `
local g = grammar("ini")
g:token("comment", "comment", p.seq(p.lit(";"), p.to_eol()))
g:token("section", "keyword", p.enclosed("[", "]"))
g:token("space", "whitespace", p.space())
g:token("key", "identifier", p.ident())
g:token("op", "operator", p.set("="))
return g
`

func TestDefaultRegistryBuiltins(t *testing.T) {
	r := Default()

	want := []string{"cfamily", "markup", "plain", "style"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	g, err := r.Load("cfamily")
	if err != nil {
		t.Fatalf("Load(cfamily) error = %v", err)
	}
	if g.Name() != "cfamily" {
		t.Errorf("Name() = %q, want cfamily", g.Name())
	}
}

func TestBuiltinMarkupEmbedsStyle(t *testing.T) {
	r := Default()

	g, err := r.Load("markup")
	if err != nil {
		t.Fatalf("Load(markup) error = %v", err)
	}
	embeds := g.Embeddings()
	if len(embeds) != 1 || embeds[0].Guest != "style" {
		t.Fatalf("Embeddings() = %v, want one link to style", embeds)
	}
	if embeds[0].Resolved() == nil {
		t.Error("style embedding not bound after Load")
	}
}

func TestLoadFromSearchPath(t *testing.T) {
	fsys := newMemFS()
	fsys.AddFile("grammars/ini.lua", iniGrammar)
	r := New(WithSearchPath("grammars"), WithFS(fsys))

	g, err := r.Load("ini")
	if err != nil {
		t.Fatalf("Load(ini) error = %v", err)
	}

	input := []byte("[sec]\nkey=val")
	res := lexer.Lex(g, input)
	want := []token.Pair{
		{Class: token.ClassKeyword, End: 5},
		{Class: token.ClassWhitespace, End: 6},
		{Class: token.ClassIdentifier, End: 9},
		{Class: token.ClassOperator, End: 10},
		{Class: token.ClassIdentifier, End: 13},
	}
	pairs := res.Pairs()
	if len(pairs) != len(want) {
		t.Fatalf("stream = %v, want %v", res.Stream, want)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, pairs[i], want[i])
		}
	}

	if src, ok := r.Source("ini"); !ok || src != "grammars/ini.lua" {
		t.Errorf("Source(ini) = %q, %v", src, ok)
	}
}

func TestLoadCaches(t *testing.T) {
	fsys := newMemFS()
	fsys.AddFile("grammars/ini.lua", iniGrammar)
	r := New(WithSearchPath("grammars"), WithFS(fsys))

	first, err := r.Load("ini")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	second, err := r.Load("ini")
	if err != nil {
		t.Fatalf("second Load error = %v", err)
	}
	if first != second {
		t.Error("second Load returned a different instance")
	}
}

func TestLoadNotFound(t *testing.T) {
	r := New(WithSearchPath("grammars"), WithFS(newMemFS()))

	if _, err := r.Load("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(nope) error = %v, want ErrNotFound", err)
	}
}

func TestSearchPathOrder(t *testing.T) {
	fsys := newMemFS()
	fsys.AddFile("first/g.lua", `
local g = grammar("g")
g:token("a", "keyword", p.lit("a"))
return g
`)
	fsys.AddFile("second/g.lua", `
local g = grammar("g")
g:token("a", "identifier", p.lit("a"))
return g
`)
	r := New(WithSearchPath("first", "second"), WithFS(fsys))

	g, err := r.Load("g")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	res := lexer.Lex(g, []byte("a"))
	if res.Stream[0].Class != token.ClassKeyword {
		t.Errorf("class = %s, want keyword (first directory wins)", res.Stream[0].Class)
	}
}

func TestLoadNameMismatch(t *testing.T) {
	fsys := newMemFS()
	fsys.AddFile("grammars/ini.lua", `
local g = grammar("other")
g:token("a", "keyword", p.lit("a"))
return g
`)
	r := New(WithSearchPath("grammars"), WithFS(fsys))

	_, err := r.Load("ini")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Load error = %v, want *ParseError", err)
	}
}

func TestLoadSyntaxError(t *testing.T) {
	fsys := newMemFS()
	fsys.AddFile("grammars/bad.lua", `local g = grammar(`)
	r := New(WithSearchPath("grammars"), WithFS(fsys))

	_, err := r.Load("bad")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Load error = %v, want *ParseError", err)
	}
	if perr.Path != "grammars/bad.lua" {
		t.Errorf("ParseError.Path = %q, want grammars/bad.lua", perr.Path)
	}
}

func TestLoadMustReturnGrammar(t *testing.T) {
	fsys := newMemFS()
	fsys.AddFile("grammars/none.lua", `local g = grammar("none")`)
	r := New(WithSearchPath("grammars"), WithFS(fsys))

	_, err := r.Load("none")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Load error = %v, want *ParseError", err)
	}
}

func TestReload(t *testing.T) {
	fsys := newMemFS()
	fsys.AddFile("grammars/g.lua", `
local g = grammar("g")
g:token("a", "keyword", p.lit("a"))
return g
`)
	r := New(WithSearchPath("grammars"), WithFS(fsys))

	if _, err := r.Load("g"); err != nil {
		t.Fatalf("Load error = %v", err)
	}

	// The file changes on disk; reload picks up the new definition.
	fsys.AddFile("grammars/g.lua", `
local g = grammar("g")
g:token("a", "constant", p.lit("a"))
return g
`)
	g, err := r.Reload("g")
	if err != nil {
		t.Fatalf("Reload error = %v", err)
	}
	res := lexer.Lex(g, []byte("a"))
	if res.Stream[0].Class != token.ClassConstant {
		t.Errorf("class after reload = %s, want constant", res.Stream[0].Class)
	}
}

func TestReloadBuiltinFails(t *testing.T) {
	r := Default()

	if _, err := r.Reload("cfamily"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Reload(cfamily) error = %v, want ErrNotFound (no source file)", err)
	}

	// A failed reload leaves the cached grammar intact.
	g, err := r.Load("cfamily")
	if err != nil {
		t.Fatalf("Load(cfamily) after failed reload error = %v", err)
	}
	if g.Name() != "cfamily" {
		t.Errorf("Name() = %q, want cfamily", g.Name())
	}
}

func TestMutualEmbedding(t *testing.T) {
	// Two grammars embedding each other load cleanly; binding one pulls
	// in and binds the other.
	fsys := newMemFS()
	fsys.AddFile("grammars/a.lua", `
local g = grammar("a")
g:token("word", "identifier", p.ident())
g:embed("b", {"open", "tag", "<b>"}, {"close", "tag", "</b>"})
return g
`)
	fsys.AddFile("grammars/b.lua", `
local g = grammar("b")
g:token("num", "number", p.plus(p.digit()))
g:embed("a", {"open", "tag", "<a>"}, {"close", "tag", "</a>"})
return g
`)
	r := New(WithSearchPath("grammars"), WithFS(fsys))

	a, err := r.Load("a")
	if err != nil {
		t.Fatalf("Load(a) error = %v", err)
	}
	b, err := r.Load("b")
	if err != nil {
		t.Fatalf("Load(b) error = %v", err)
	}

	if a.Embeddings()[0].Resolved() != b {
		t.Error("a's embedding did not bind to b")
	}
	if b.Embeddings()[0].Resolved() != a {
		t.Error("b's embedding did not bind to a")
	}

	// Round trip through both grammars.
	input := []byte("x<b>12</b>y")
	res := lexer.Lex(a, input)
	if err := res.Stream.Validate(len(input)); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	sawB := false
	for _, tk := range res.Stream {
		if tk.Grammar == "b" && tk.Class == token.ClassNumber {
			sawB = true
		}
	}
	if !sawB {
		t.Errorf("no guest-lexed number token in %v", res.Stream)
	}
}

func TestLuaPredicate(t *testing.T) {
	// A dynamic predicate recognizes '#' headings only at line start.
	fsys := newMemFS()
	fsys.AddFile("grammars/head.lua", `
local g = grammar("head")
g:token("heading", "heading", p.fn(function(input, pos)
	if pos ~= 1 and string.sub(input, pos - 1, pos - 1) ~= "\n" then return nil end
	if string.sub(input, pos, pos) ~= "#" then return nil end
	local i = pos
	while i <= #input and string.sub(input, i, i) ~= "\n" do i = i + 1 end
	return i
end))
g:token("space", "whitespace", p.space())
g:token("word", "identifier", p.ident())
return g
`)
	r := New(WithSearchPath("grammars"), WithFS(fsys))

	g, err := r.Load("head")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}

	res := lexer.Lex(g, []byte("# t\nx # y"))
	want := []token.Pair{
		{Class: token.ClassHeading, End: 3}, // line-start heading
		{Class: token.ClassWhitespace, End: 4},
		{Class: token.ClassIdentifier, End: 5},
		{Class: token.ClassWhitespace, End: 6},
		{Class: token.ClassDefault, End: 7}, // mid-line '#' rejected
		{Class: token.ClassWhitespace, End: 8},
		{Class: token.ClassIdentifier, End: 9},
	}
	pairs := res.Pairs()
	if len(pairs) != len(want) {
		t.Fatalf("stream = %v, want %v", res.Stream, want)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, pairs[i], want[i])
		}
	}
}

func TestLuaInstructionLimit(t *testing.T) {
	// The definition chunk and every callback invocation each cost one
	// unit; the call that crosses the limit fails, surfacing as a
	// predicate panic at lex time.
	fsys := newMemFS()
	fsys.AddFile("grammars/capped.lua", `
local g = grammar("capped")
g:token("special", "keyword", p.fn(function(input, pos) return nil end))
g:token("space", "whitespace", p.space())
g:token("word", "identifier", p.ident())
return g
`)
	r := New(WithSearchPath("grammars"), WithFS(fsys),
		WithLuaConfig(LuaConfig{InstructionLimit: 2, TimeoutMS: 5000}))

	g, err := r.Load("capped")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}

	// Chunk execution used 1 unit, the predicate call at offset 0 the
	// second; the call at offset 1 exceeds the limit.
	defer func() {
		msg, _ := recover().(string)
		if !strings.Contains(msg, ErrInstructionLimit.Error()) {
			t.Errorf("panic = %q, want instruction limit exceeded", msg)
		}
	}()
	lexer.Lex(g, []byte("a b"))
	t.Error("lexing past the instruction limit did not panic")
}

func TestLuaFoldFn(t *testing.T) {
	fsys := newMemFS()
	fsys.AddFile("grammars/blocky.lua", `
local g = grammar("blocky")
g:token("comment", "comment", p.enclosed("/*", "*/"))
g:token("space", "whitespace", p.space())
g:token("word", "identifier", p.ident())
g:fold_fn("comment", function(input, line_start, line_text, match_offset, match_text)
	if string.sub(match_text, 1, 8) == "/*region" then return 1 end
	if string.sub(match_text, 1, 5) == "/*end" then return -1 end
	return 0
end)
return g
`)
	r := New(WithSearchPath("grammars"), WithFS(fsys))

	g, err := r.Load("blocky")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}

	res := lexer.Lex(g, []byte("/*region*/\nx\n/*end*/"))
	want := []fold.Level{
		{Level: fold.LevelBase, Header: true},
		{Level: fold.LevelBase + 1},
		{Level: fold.LevelBase},
	}
	if len(res.Folds) != len(want) {
		t.Fatalf("Folds = %v, want %v", res.Folds, want)
	}
	for i := range want {
		if res.Folds[i] != want[i] {
			t.Errorf("Folds[%d] = %+v, want %+v", i, res.Folds[i], want[i])
		}
	}
}

func TestLuaFoldLiteral(t *testing.T) {
	fsys := newMemFS()
	fsys.AddFile("grammars/curly.lua", `
local g = grammar("curly")
g:token("space", "whitespace", p.space())
g:token("word", "identifier", p.ident())
g:token("op", "operator", p.set("{}"))
g:fold("operator", "{", 1)
g:fold("operator", "}", -1)
g:prefilter(p.set("{}"))
return g
`)
	r := New(WithSearchPath("grammars"), WithFS(fsys))

	g, err := r.Load("curly")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}

	res := lexer.Lex(g, []byte("a {\nb\n}"))
	if !res.Folds[0].Header {
		t.Errorf("Folds[0] = %+v, want header", res.Folds[0])
	}
	if res.Folds[1].Level != fold.LevelBase+1 {
		t.Errorf("Folds[1].Level = %#x, want %#x", res.Folds[1].Level, fold.LevelBase+1)
	}
	if res.Folds[2].Level != fold.LevelBase {
		t.Errorf("Folds[2].Level = %#x, want %#x", res.Folds[2].Level, fold.LevelBase)
	}
}

func TestLuaLexByLine(t *testing.T) {
	fsys := newMemFS()
	fsys.AddFile("grammars/liney.lua", `
local g = grammar("liney")
g:token("word", "identifier", p.ident())
g:lex_by_line(true)
return g
`)
	r := New(WithSearchPath("grammars"), WithFS(fsys))

	g, err := r.Load("liney")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if !g.LexByLine() {
		t.Error("LexByLine() = false, want true")
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := New()
	r.Register(Plain())

	replacement := CFamily()
	r.Register(replacement) // different name, additive
	if len(r.Names()) != 2 {
		t.Fatalf("Names() = %v, want 2 entries", r.Names())
	}

	again := Plain()
	r.Register(again)
	g, err := r.Load("plain")
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if g != again {
		t.Error("Register did not replace the cached instance")
	}
}

func TestSplitSearchPath(t *testing.T) {
	got := SplitSearchPath("a:b/c")
	if len(got) != 2 || got[0] != "a" || got[1] != "b/c" {
		t.Errorf("SplitSearchPath = %v, want [a b/c]", got)
	}
	if got := SplitSearchPath(""); len(got) != 0 {
		t.Errorf("SplitSearchPath(\"\") = %v, want empty", got)
	}
}
