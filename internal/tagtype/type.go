package tagtype

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jinzhu/inflection"
)

// Catalog resolves type names for taggables living in one namespace.
type Catalog struct {
	reg        *Registry
	namespaces []string

	mu    sync.Mutex
	types map[string]*Type
}

// Registry returns the registry the catalog resolves against.
func (c *Catalog) Registry() *Registry { return c.reg }

// Resolve canonicalizes raw and returns the cached Type for it.
func (c *Catalog) Resolve(raw string) *Type {
	name := Canonicalize(raw)
	if name == "" {
		name = BaseName
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.types[name]; ok {
		return t
	}
	t := &Type{name: name, catalog: c}
	c.types[name] = t
	return t
}

// Require resolves raw and fails when no registered level backs it.
func (c *Catalog) Require(raw string) (*Type, error) {
	t := c.Resolve(raw)
	if t.Level() == nil {
		return nil, fmt.Errorf("%w: %q (tried %s)", ErrUnknownTagType, raw, strings.Join(t.Candidates(), ", "))
	}
	return t, nil
}

// TypeFor returns a type whose storage level is l. It is the cached type of
// the level's last key segment when that resolves to l, otherwise a type
// bound to l directly.
func (c *Catalog) TypeFor(l *Level) *Type {
	if l.IsRoot() {
		return c.Resolve(BaseName)
	}
	name := l.key[strings.LastIndex(l.key, "/")+1:]
	if t := c.Resolve(name); t.StorageLevel() == l {
		return t
	}
	t := &Type{name: Canonicalize(name), catalog: c}
	t.once.Do(func() {
		if !l.looseleaf {
			t.level = l
		}
	})
	return t
}

// Type is a named tag category bound to the level it resolves to.
type Type struct {
	name    string
	catalog *Catalog

	once  sync.Once
	level *Level
}

// Name returns the canonical name.
func (t *Type) Name() string { return t.name }

// IsBase reports whether t is the root type.
func (t *Type) IsBase() bool { return t.name == BaseName }

// Candidates lists the qualified names tried during resolution, most
// specific namespace first.
func (t *Type) Candidates() []string {
	if t.IsBase() {
		return []string{BaseName}
	}
	var out []string
	for _, ns := range t.catalog.namespaces {
		prefix := ""
		if ns != "" {
			prefix = ns + "/"
		}
		out = append(out, prefix+t.name, prefix+t.name+tagSuffix)
	}
	return out
}

// Level returns the registered level t resolves to, nil for looseleaf types.
// The result is computed once.
func (t *Type) Level() *Level {
	t.once.Do(func() {
		reg := t.catalog.reg
		if t.IsBase() {
			t.level = reg.Root()
			return
		}
		for _, c := range t.Candidates() {
			if l, ok := reg.Lookup(c); ok {
				t.level = l
				return
			}
		}
	})
	return t.level
}

// Looseleaf reports whether t has no registered level.
func (t *Type) Looseleaf() bool { return t.Level() == nil }

// StorageLevel is the level tags of this type are written with.
func (t *Type) StorageLevel() *Level {
	if l := t.Level(); l != nil {
		return l
	}
	return t.catalog.reg.looseleafLevel(t.name)
}

// Depth of the storage level; looseleaf types sit at depth 1.
func (t *Type) Depth() int { return t.StorageLevel().Depth() }

// Equal reports whether both types share name and level.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.name == o.name && t.StorageLevel() == o.StorageLevel()
}

// ScopeName is the plural collection name ("skills").
func (t *Type) ScopeName() string { return inflection.Plural(t.name) }

// ListName is the accessor name for the type's list, e.g. "skill_list" or
// with prefix "all", "all_skill_list".
func (t *Type) ListName(prefix string) string {
	if prefix == "" {
		return t.name + "_list"
	}
	return prefix + "_" + t.name + "_list"
}

func (t *Type) String() string { return t.name }

// Expand returns the levels selected by scope relative to t, ordered from
// the root downwards.
func (t *Type) Expand(scope Scope) []*Level {
	lvl := t.StorageLevel()
	var out []*Level
	if scope.Has(Parents) {
		out = append(out, lvl.Ancestors()...)
	}
	if scope.Has(Current) {
		out = append(out, lvl)
	}
	if scope.Has(Children) {
		out = append(out, lvl.Descendants()...)
		if lvl.IsRoot() {
			out = append(out, t.catalog.reg.looseleafLevels()...)
		}
	}
	return out
}

// Condition returns the discriminator filter for scope.
func (t *Type) Condition(scope Scope) Condition {
	if t.StorageLevel().IsRoot() && scope.Has(Current|Children) {
		return Condition{Unfiltered: true}
	}
	levels := t.Expand(scope)
	keys := make([]string, len(levels))
	for i, l := range levels {
		keys[i] = l.Key()
	}
	return Condition{Types: keys}
}

// Condition filters tag rows by discriminator. An unfiltered condition
// matches every row.
type Condition struct {
	Unfiltered bool
	Types      []string
}

// SQL renders the condition against column as a disjunction of equality
// tests with "?" placeholders. It returns "" when no filter is needed.
func (c Condition) SQL(column string) (string, []any) {
	if c.Unfiltered {
		return "", nil
	}
	if len(c.Types) == 0 {
		return "1 = 0", nil
	}
	parts := make([]string, len(c.Types))
	args := make([]any, len(c.Types))
	for i, k := range c.Types {
		parts[i] = column + " = ?"
		args[i] = k
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// Matches reports whether a row with discriminator passes the filter.
func (c Condition) Matches(discriminator string) bool {
	if c.Unfiltered {
		return true
	}
	for _, k := range c.Types {
		if k == discriminator {
			return true
		}
	}
	return false
}
