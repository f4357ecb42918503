package registry

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/lexkit/internal/fold"
	"github.com/dshills/lexkit/internal/grammar"
	"github.com/dshills/lexkit/internal/pattern"
	"github.com/dshills/lexkit/internal/token"
)

// Grammar definitions are Lua files. A definition builds patterns with
// the global `p` module, assembles a grammar with `grammar(name)`, and
// returns it:
//
//	local g = grammar("ini")
//	g:token("comment", "comment", p.seq(p.lit(";"), p.to_eol()))
//	g:token("section", "keyword", p.enclosed("[", "]"))
//	g:token("key", "identifier", p.ident())
//	g:token("op", "operator", p.set("="))
//	g:token("space", "whitespace", p.space())
//	g:fold("keyword", "[", 1)
//	return g
//
// Lua functions passed to p.fn and g:fold_fn become dynamic predicates
// and fold deciders; the definition's sandboxed state stays alive for
// the grammar's lifetime to serve those callbacks.

const (
	patternTypeName = "lexkit.pattern"
	grammarTypeName = "lexkit.grammar"
)

// luaDef accumulates one definition file's state.
type luaDef struct {
	st        *defState
	builder   *grammar.Builder
	foldTable *fold.Table
	callbacks bool
}

// LoadLuaGrammar executes a grammar definition file and builds the
// grammar it returns. The name is the registry name being resolved; the
// definition's own grammar(name) must agree with it.
func LoadLuaGrammar(name, path string, data []byte, cfg LuaConfig) (*grammar.Grammar, error) {
	st := newDefState(cfg)
	def := &luaDef{st: st}

	registerPatternType(st.L)
	registerPatternModule(st.L, def)
	registerGrammarType(st.L, def)

	if err := st.doString(path, data); err != nil {
		st.close()
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}

	ret := st.L.Get(-1)
	st.L.Pop(1)
	got, ok := toGrammarDef(ret)
	if !ok || got != def {
		st.close()
		return nil, &ParseError{Path: path, Message: "definition must return its grammar object"}
	}
	if def.builder == nil {
		st.close()
		return nil, &ParseError{Path: path, Message: "definition never called grammar(name)"}
	}

	if def.foldTable != nil && !def.foldTable.Empty() {
		def.builder.Fold(def.foldTable)
	}
	g, err := def.builder.Build()
	if err != nil {
		st.close()
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	if g.Name() != name {
		st.close()
		return nil, &ParseError{Path: path, Message: fmt.Sprintf("definition declares grammar %q, expected %q", g.Name(), name)}
	}
	if !def.callbacks {
		st.close()
	}
	return g, nil
}

// --- pattern userdata ---

func registerPatternType(L *lua.LState) {
	mt := L.NewTypeMetatable(patternTypeName)
	L.SetField(mt, "__index", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("patterns have no fields")
		return 0
	}))
}

func pushPattern(L *lua.LState, p pattern.Pattern) int {
	ud := L.NewUserData()
	ud.Value = p
	L.SetMetatable(ud, L.GetTypeMetatable(patternTypeName))
	L.Push(ud)
	return 1
}

// checkPattern fetches a pattern argument; a plain string coerces to a
// literal, so p.seq("if", p.space()) reads naturally.
func checkPattern(L *lua.LState, idx int) pattern.Pattern {
	switch v := L.Get(idx).(type) {
	case lua.LString:
		return pattern.Lit(string(v))
	case *lua.LUserData:
		if p, ok := v.Value.(pattern.Pattern); ok {
			return p
		}
	}
	L.ArgError(idx, "pattern expected")
	return nil
}

// collectPatterns fetches all arguments from idx on as patterns.
func collectPatterns(L *lua.LState, idx int) []pattern.Pattern {
	n := L.GetTop()
	ps := make([]pattern.Pattern, 0, n-idx+1)
	for i := idx; i <= n; i++ {
		ps = append(ps, checkPattern(L, i))
	}
	return ps
}

// registerPatternModule installs the global `p` table of pattern
// constructors.
func registerPatternModule(L *lua.LState, def *luaDef) {
	fns := map[string]lua.LGFunction{
		"lit": func(L *lua.LState) int {
			return pushPattern(L, pattern.Lit(L.CheckString(1)))
		},
		"set": func(L *lua.LState) int {
			return pushPattern(L, pattern.Set(L.CheckString(1)))
		},
		"range": func(L *lua.LState) int {
			lo, hi := L.CheckString(1), L.CheckString(2)
			if len(lo) != 1 || len(hi) != 1 {
				L.ArgError(1, "range bounds must be single characters")
			}
			return pushPattern(L, pattern.Range(lo[0], hi[0]))
		},
		"any": func(L *lua.LState) int {
			return pushPattern(L, pattern.Any(L.CheckInt(1)))
		},
		"seq": func(L *lua.LState) int {
			return pushPattern(L, pattern.Seq(collectPatterns(L, 1)...))
		},
		"choice": func(L *lua.LState) int {
			return pushPattern(L, pattern.Choice(collectPatterns(L, 1)...))
		},
		"rep": func(L *lua.LState) int {
			return pushPattern(L, pattern.Rep(checkPattern(L, 1), L.CheckInt(2), L.CheckInt(3)))
		},
		"star": func(L *lua.LState) int {
			return pushPattern(L, pattern.Star(checkPattern(L, 1)))
		},
		"plus": func(L *lua.LState) int {
			return pushPattern(L, pattern.Plus(checkPattern(L, 1)))
		},
		"opt": func(L *lua.LState) int {
			return pushPattern(L, pattern.Opt(checkPattern(L, 1)))
		},
		"neg": func(L *lua.LState) int {
			return pushPattern(L, pattern.Not(checkPattern(L, 1)))
		},
		"peek": func(L *lua.LState) int {
			return pushPattern(L, pattern.Peek(checkPattern(L, 1)))
		},
		"except": func(L *lua.LState) int {
			return pushPattern(L, pattern.Except(checkPattern(L, 1), checkPattern(L, 2)))
		},
		"fn": func(L *lua.LState) int {
			fn := L.CheckFunction(1)
			def.callbacks = true
			return pushPattern(L, pattern.Func(luaPredicate(def.st, fn)))
		},
		"space":  func(L *lua.LState) int { return pushPattern(L, pattern.Space()) },
		"digit":  func(L *lua.LState) int { return pushPattern(L, pattern.Digit()) },
		"alpha":  func(L *lua.LState) int { return pushPattern(L, pattern.Alpha()) },
		"alnum":  func(L *lua.LState) int { return pushPattern(L, pattern.Alnum()) },
		"ident":  func(L *lua.LState) int { return pushPattern(L, pattern.Ident()) },
		"number": func(L *lua.LState) int { return pushPattern(L, pattern.Number()) },
		"to_eol": func(L *lua.LState) int { return pushPattern(L, pattern.ToEOL()) },
		"word": func(L *lua.LState) int {
			return pushPattern(L, pattern.Word(L.CheckString(1)))
		},
		"any_word": func(L *lua.LState) int {
			n := L.GetTop()
			words := make([]string, 0, n)
			for i := 1; i <= n; i++ {
				words = append(words, L.CheckString(i))
			}
			return pushPattern(L, pattern.AnyWord(words...))
		},
		"delimited": func(L *lua.LState) int {
			q := L.CheckString(1)
			if len(q) != 1 {
				L.ArgError(1, "delimiter must be a single character")
			}
			return pushPattern(L, pattern.Delimited(q[0]))
		},
		"enclosed": func(L *lua.LState) int {
			return pushPattern(L, pattern.Enclosed(L.CheckString(1), L.CheckString(2)))
		},
	}
	mod := L.NewTable()
	L.SetFuncs(mod, fns)
	L.SetGlobal("p", mod)
}

// luaPredicate wraps a Lua function as a dynamic predicate. The
// function receives (input, pos) with pos 1-based and returns the
// 1-based position of the first unconsumed character, or nil for no
// match. A predicate failure is an authoring bug and propagates as a
// panic, matching the engine's contract of not sanitizing predicate
// errors.
func luaPredicate(st *defState, fn *lua.LFunction) pattern.MatchFunc {
	return func(input []byte, pos int) (int, bool) {
		ret, err := st.call(fn, lua.LString(input), lua.LNumber(pos+1))
		if err != nil {
			panic(fmt.Sprintf("grammar predicate: %v", err))
		}
		n, ok := ret.(lua.LNumber)
		if !ok {
			return 0, false
		}
		end := int(n) - 1
		if end < pos || end > len(input) {
			return 0, false
		}
		return end, true
	}
}

// luaDecider wraps a Lua function as a fold decider with the fixed
// (input, line_start, line_text, match_offset, match_text) contract,
// offsets 1-based on the Lua side.
func luaDecider(st *defState, fn *lua.LFunction) fold.Func {
	return func(input []byte, lineStart int, lineText string, matchOffset int, matchText string) int {
		ret, err := st.call(fn,
			lua.LString(input),
			lua.LNumber(lineStart+1),
			lua.LString(lineText),
			lua.LNumber(matchOffset+1),
			lua.LString(matchText),
		)
		if err != nil {
			panic(fmt.Sprintf("fold decider: %v", err))
		}
		if n, ok := ret.(lua.LNumber); ok {
			return int(n)
		}
		return 0
	}
}

// --- grammar userdata ---

func toGrammarDef(lv lua.LValue) (*luaDef, bool) {
	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	def, ok := ud.Value.(*luaDef)
	return def, ok
}

func checkGrammarDef(L *lua.LState) *luaDef {
	ud := L.CheckUserData(1)
	if def, ok := ud.Value.(*luaDef); ok {
		return def
	}
	L.ArgError(1, "grammar expected")
	return nil
}

// checkBoundaryRule reads a {name, class, pattern} table argument.
func checkBoundaryRule(L *lua.LState, idx int) grammar.Rule {
	tbl := L.CheckTable(idx)
	name, ok1 := tbl.RawGetInt(1).(lua.LString)
	class, ok2 := tbl.RawGetInt(2).(lua.LString)
	if !ok1 || !ok2 {
		L.ArgError(idx, "boundary rule must be {name, class, pattern}")
	}
	var pat pattern.Pattern
	switch v := tbl.RawGetInt(3).(type) {
	case lua.LString:
		pat = pattern.Lit(string(v))
	case *lua.LUserData:
		pat, _ = v.Value.(pattern.Pattern)
	}
	if pat == nil {
		L.ArgError(idx, "boundary rule must be {name, class, pattern}")
	}
	return grammar.NewRule(string(name), grammar.T(token.Class(class), pat))
}

func registerGrammarType(L *lua.LState, def *luaDef) {
	methods := map[string]lua.LGFunction{
		"token": func(L *lua.LState) int {
			d := checkGrammarDef(L)
			name := L.CheckString(2)
			class := L.CheckString(3)
			pat := checkPattern(L, 4)
			d.builder.Token(name, token.Class(class), pat)
			L.Push(L.Get(1))
			return 1
		},
		"rule": func(L *lua.LState) int {
			d := checkGrammarDef(L)
			name := L.CheckString(2)
			toks := make([]grammar.TokenDef, 0, L.GetTop()-2)
			for i := 3; i <= L.GetTop(); i++ {
				tbl := L.CheckTable(i)
				class, ok := tbl.RawGetInt(1).(lua.LString)
				if !ok {
					L.ArgError(i, "token must be {class, pattern}")
				}
				var pat pattern.Pattern
				switch v := tbl.RawGetInt(2).(type) {
				case lua.LString:
					pat = pattern.Lit(string(v))
				case *lua.LUserData:
					pat, _ = v.Value.(pattern.Pattern)
				}
				if pat == nil {
					L.ArgError(i, "token must be {class, pattern}")
				}
				toks = append(toks, grammar.T(token.Class(class), pat))
			}
			d.builder.Rule(name, toks...)
			L.Push(L.Get(1))
			return 1
		},
		"fold": func(L *lua.LState) int {
			d := checkGrammarDef(L)
			d.fold().Add(token.Class(L.CheckString(2)), L.CheckString(3), L.CheckInt(4))
			L.Push(L.Get(1))
			return 1
		},
		"fold_fn": func(L *lua.LState) int {
			d := checkGrammarDef(L)
			class := token.Class(L.CheckString(2))
			d.callbacks = true
			if L.GetTop() >= 4 {
				text := L.CheckString(3)
				d.fold().AddDecider(class, text, luaDecider(d.st, L.CheckFunction(4)))
			} else {
				d.fold().AddClass(class, luaDecider(d.st, L.CheckFunction(3)))
			}
			L.Push(L.Get(1))
			return 1
		},
		"prefilter": func(L *lua.LState) int {
			d := checkGrammarDef(L)
			d.fold().Prefilter(collectPatterns(L, 2)...)
			L.Push(L.Get(1))
			return 1
		},
		"lex_by_line": func(L *lua.LState) int {
			d := checkGrammarDef(L)
			d.builder.LexByLine(L.CheckBool(2))
			L.Push(L.Get(1))
			return 1
		},
		"embed": func(L *lua.LState) int {
			d := checkGrammarDef(L)
			guest := L.CheckString(2)
			start := checkBoundaryRule(L, 3)
			end := checkBoundaryRule(L, 4)
			d.builder.Embed(guest, start, end)
			L.Push(L.Get(1))
			return 1
		},
	}

	mt := L.NewTypeMetatable(grammarTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), methods))

	L.SetGlobal("grammar", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if def.builder != nil {
			L.RaiseError("grammar already declared")
		}
		def.builder = grammar.NewBuilder(name)
		ud := L.NewUserData()
		ud.Value = def
		L.SetMetatable(ud, L.GetTypeMetatable(grammarTypeName))
		L.Push(ud)
		return 1
	}))
}

// fold lazily creates the definition's fold table.
func (d *luaDef) fold() *fold.Table {
	if d.foldTable == nil {
		d.foldTable = fold.NewTable()
	}
	return d.foldTable
}
