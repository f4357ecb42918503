// Package style maps token classifications to the style strings a host
// editor consumes. It carries themes, a key-value property map with
// $() / %() variable expansion, and a resolver combining the two.
//
// Styles never feed back into matching; the lexing core is complete
// without this package.
package style

import "strings"

// maxExpandDepth bounds recursive property references.
const maxExpandDepth = 10

// Properties is a key-value configuration map supporting variable
// expansion in values. It is owned by a document session or passed
// explicitly; there is no process-wide property table, so concurrent
// sessions cannot interfere.
type Properties map[string]string

// Get returns the expanded value of key, or "" when unset.
func (p Properties) Get(key string) string {
	return p.Expand(p[key])
}

// Expand substitutes $(name) and %(name) references in s with the
// named property's value, recursively up to a fixed depth. Undefined
// names expand to the empty string.
func (p Properties) Expand(s string) string {
	return p.expand(s, 0)
}

func (p Properties) expand(s string, depth int) string {
	if depth >= maxExpandDepth {
		return s
	}
	var out strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		if (c == '$' || c == '%') && i+1 < len(s) && s[i+1] == '(' {
			if end := strings.IndexByte(s[i+2:], ')'); end >= 0 {
				name := s[i+2 : i+2+end]
				out.WriteString(p.expand(p[name], depth+1))
				i += end + 3
				continue
			}
		}
		out.WriteByte(c)
		i++
	}
	return out.String()
}
