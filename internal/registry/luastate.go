package registry

import (
	"bytes"
	"context"
	"errors"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// ErrStateClosed is returned when a definition state is used after
// close.
var ErrStateClosed = errors.New("lua state is closed")

// ErrInstructionLimit is returned when a definition state exhausts its
// configured instruction limit.
var ErrInstructionLimit = errors.New("lua instruction limit exceeded")

// defState is the sandboxed Lua state one grammar definition runs in.
// It opens only the safe standard libraries and strips code-loading
// functions, following the plugin-sandbox approach: grammar files are
// data, not programs with system access.
//
// An LState is not goroutine-safe. The mutex serializes definition
// execution and later predicate callbacks; a grammar whose patterns
// call back into Lua therefore matches under this lock.
type defState struct {
	mu     sync.Mutex
	L      *lua.LState
	cfg    LuaConfig
	count  int64
	closed bool
}

// newDefState creates a sandboxed state for grammar definitions.
func newDefState(cfg LuaConfig) *defState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// io, os, debug, and package stay closed; code-loading escapes go
	// too.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	return &defState{L: L, cfg: cfg}
}

// charge counts one VM entry against the instruction limit. gopher-lua
// has no per-instruction hook, so the limit is enforced at entry
// granularity: the definition chunk and every later callback invocation
// each cost one unit. Called with the mutex held.
func (s *defState) charge() error {
	if s.cfg.InstructionLimit <= 0 {
		return nil
	}
	s.count++
	if s.count > s.cfg.InstructionLimit {
		return ErrInstructionLimit
	}
	return nil
}

// doString executes a definition chunk under the configured timeout.
func (s *defState) doString(name string, code []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStateClosed
	}
	if err := s.charge(); err != nil {
		return err
	}

	if s.cfg.TimeoutMS > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout())
		defer cancel()
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
	}

	fn, err := s.L.Load(bytes.NewReader(code), name)
	if err != nil {
		return err
	}
	s.L.Push(fn)
	return s.L.PCall(0, lua.MultRet, nil)
}

// call invokes a Lua function with the mutex held, returning its single
// result. Used by predicate and fold-decider callbacks at lex time.
func (s *defState) call(fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lua.LNil, ErrStateClosed
	}
	if err := s.charge(); err != nil {
		return lua.LNil, err
	}
	if err := s.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, err
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)
	return ret, nil
}

// close shuts the state down. Called only for definitions that
// registered no callbacks; otherwise the built grammar keeps the state
// for its lifetime.
func (s *defState) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.L.Close()
	}
}
