package tagtype

import (
	"fmt"
	"strings"
)

// Scope selects hierarchy levels relative to a type.
type Scope uint8

const (
	Current Scope = 1 << iota
	Parents
	Children
)

// DefaultScope is used when no scope is given.
const DefaultScope = Current | Children

var scopeTokens = map[string]Scope{
	"current":  Current,
	"=":        Current,
	"==":       Current,
	"parents":  Parents,
	"parent":   Parents,
	">":        Parents,
	"children": Children,
	"child":    Children,
	"<":        Children,
	">=":       Parents | Current,
	"=>":       Parents | Current,
	"<=":       Children | Current,
	"=<":       Children | Current,
	"<>":       Parents | Children,
	"><":       Parents | Children,
}

// ParseScope combines scope specs. Each spec may be a comma list of names
// (":current", "parents") or operators (">=", "<>"). No specs means DefaultScope.
func ParseScope(specs ...string) (Scope, error) {
	var s Scope
	for _, spec := range specs {
		for _, tok := range strings.Split(spec, ",") {
			tok = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tok), ":"))
			if tok == "" {
				continue
			}
			bits, ok := scopeTokens[tok]
			if !ok {
				return 0, fmt.Errorf("%w: %q", ErrInvalidScope, tok)
			}
			s |= bits
		}
	}
	return s.Resolve(), nil
}

// Resolve replaces the zero scope with DefaultScope.
func (s Scope) Resolve() Scope {
	if s == 0 {
		return DefaultScope
	}
	return s
}

// Has reports whether every bit of x is set.
func (s Scope) Has(x Scope) bool { return s.Resolve()&x == x }

// Key is a stable cache key for the scope.
func (s Scope) Key() string { return s.String() }

func (s Scope) String() string {
	s = s.Resolve()
	var parts []string
	if s&Parents != 0 {
		parts = append(parts, "parents")
	}
	if s&Current != 0 {
		parts = append(parts, "current")
	}
	if s&Children != 0 {
		parts = append(parts, "children")
	}
	return strings.Join(parts, ",")
}
