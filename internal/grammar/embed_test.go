package grammar

import (
	"errors"
	"testing"

	"github.com/dshills/lexkit/internal/pattern"
	"github.com/dshills/lexkit/internal/token"
)

type mapResolver map[string]*Grammar

func (m mapResolver) Resolve(name string) (*Grammar, error) {
	g, ok := m[name]
	if !ok {
		return nil, errors.New("no such grammar: " + name)
	}
	return g, nil
}

func boundaryRules() (start, end Rule) {
	start = NewRule("open", T(token.ClassTag, pattern.Lit("<s>")))
	end = NewRule("close", T(token.ClassTag, pattern.Lit("</s>")))
	return start, end
}

func TestBindByName(t *testing.T) {
	guest := NewBuilder("guest").
		Token("ident", token.ClassIdentifier, pattern.Ident()).
		MustBuild()

	start, end := boundaryRules()
	host := NewBuilder("host").
		Token("text", token.ClassDefault, pattern.Plus(pattern.Alpha())).
		Embed("guest", start, end).
		MustBuild()

	if err := host.Bind(mapResolver{"guest": guest}); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	embeds := host.Embeddings()
	if len(embeds) != 1 {
		t.Fatalf("len(Embeddings()) = %d, want 1", len(embeds))
	}
	if embeds[0].Resolved() != guest {
		t.Error("Resolved() is not the resolved guest grammar")
	}
}

func TestBindUnknownGuest(t *testing.T) {
	start, end := boundaryRules()
	host := NewBuilder("host").
		Token("text", token.ClassDefault, pattern.Plus(pattern.Alpha())).
		Embed("missing", start, end).
		MustBuild()

	if err := host.Bind(mapResolver{}); err == nil {
		t.Error("Bind() with unknown guest = nil, want error")
	}
	if err := host.Bind(nil); !errors.Is(err, ErrUnresolvedEmbed) {
		t.Errorf("Bind(nil) error = %v, want ErrUnresolvedEmbed", err)
	}
}

func TestBindDirectReferenceUntouched(t *testing.T) {
	guest := NewBuilder("guest").
		Token("ident", token.ClassIdentifier, pattern.Ident()).
		MustBuild()

	start, end := boundaryRules()
	host := NewBuilder("host").
		Token("text", token.ClassDefault, pattern.Plus(pattern.Alpha())).
		EmbedGrammar(guest, start, end).
		MustBuild()

	// A directly linked guest needs no resolver, and rebinding is a
	// no-op.
	if err := host.Bind(nil); err != nil {
		t.Fatalf("Bind(nil) error = %v", err)
	}
	if host.Embeddings()[0].Resolved() != guest {
		t.Error("direct guest reference was replaced")
	}
}
