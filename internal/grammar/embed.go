package grammar

import "fmt"

// Resolver resolves a grammar name to its definition. The registry
// implements Resolver; embedding links hold names, never owning
// references, so mutually embedding grammars resolve lazily.
type Resolver interface {
	Resolve(name string) (*Grammar, error)
}

// Embedding links a guest grammar into its host. While the host is
// active, a matching start rule hands control to the guest; while the
// guest is active, a matching end rule hands control back.
//
// Boundary rules are owned by the declaring host, so the boundary text
// is tokenized with the host's chosen classifications. A boundary rule
// whose pattern is a zero-width lookahead emits no token; control
// simply switches and the newly active grammar tokenizes the boundary
// text itself. Both embedding shapes from the host's and the guest's
// point of view use this one mechanism: "child contained in parent"
// declares the link on the parent, while "child embeds itself" declares
// the link on the child with the parent as guest.
type Embedding struct {
	// Guest is the embedded grammar's name, resolved through a
	// Resolver at bind time.
	Guest string

	// Start recognizes (and usually tokenizes) the opening boundary.
	Start Rule

	// End recognizes the closing boundary. An unterminated embedding is
	// not an error; the guest stays active through end of input.
	End Rule

	guest *Grammar
}

// Resolved returns the bound guest grammar, or nil if the link has not
// been bound.
func (e *Embedding) Resolved() *Grammar { return e.guest }

// Bind resolves every embedding link through r. Registry loading calls
// this once per grammar; the engine never lexes with unresolved links.
// Links created with a direct grammar reference are left as-is.
func (g *Grammar) Bind(r Resolver) error {
	for i := range g.embeds {
		e := &g.embeds[i]
		if e.guest != nil {
			continue
		}
		if r == nil {
			return fmt.Errorf("grammar %q embeds %q: %w", g.name, e.Guest, ErrUnresolvedEmbed)
		}
		guest, err := r.Resolve(e.Guest)
		if err != nil {
			return fmt.Errorf("grammar %q embeds %q: %w", g.name, e.Guest, err)
		}
		if guest == nil {
			return fmt.Errorf("grammar %q embeds %q: %w", g.name, e.Guest, ErrUnresolvedEmbed)
		}
		e.guest = guest
	}
	return nil
}
