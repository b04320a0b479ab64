// Package tagtype maps loose type names onto a single-inheritance hierarchy of
// tag levels and turns scope expressions into the set of levels a query or
// write should touch.
package tagtype

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownTagType is returned when a declared type resolves to no registered level.
	ErrUnknownTagType = errors.New("unknown tag type")
	// ErrInvalidScope is returned by ParseScope for unrecognized tokens.
	ErrInvalidScope = errors.New("invalid scope")
)

// Registry holds the tag hierarchy. Levels are registered at startup; after
// that the registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	root      *Level
	levels    map[string]*Level
	looseleaf map[string]*Level
	catalogs  map[string]*Catalog
}

// LevelOption configures a level at registration.
type LevelOption func(*Level)

// PossibleValues restricts the values a level accepts. Matching is
// case-insensitive and the listed spelling wins.
func PossibleValues(values ...string) LevelOption {
	return func(l *Level) {
		if len(values) == 0 {
			return
		}
		l.possibleValues = append([]string(nil), values...)
	}
}

// NewRegistry returns a registry containing only the root level "tag".
func NewRegistry() *Registry {
	root := &Level{key: BaseName}
	return &Registry{
		root:      root,
		levels:    map[string]*Level{BaseName: root},
		looseleaf: map[string]*Level{},
		catalogs:  map[string]*Catalog{},
	}
}

// Root returns the hierarchy root.
func (r *Registry) Root() *Level { return r.root }

// Register adds a level named name (optionally namespaced, "billing/skill")
// below parent. An empty parent means the root.
func (r *Registry) Register(name, parent string, opts ...LevelOption) (*Level, error) {
	key := levelKey(name)
	if key == "" {
		return nil, fmt.Errorf("register tag type: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.levels[key]; ok {
		return nil, fmt.Errorf("register tag type %q: already registered", key)
	}
	p := r.root
	if parent != "" {
		var ok bool
		if p, ok = r.levels[levelKey(parent)]; !ok {
			return nil, fmt.Errorf("register tag type %q: parent %q: %w", key, parent, ErrUnknownTagType)
		}
	}

	l := &Level{key: key, parent: p, depth: p.depth + 1}
	for _, opt := range opts {
		opt(l)
	}
	p.children = append(p.children, l)
	r.levels[key] = l
	return l, nil
}

// MustRegister is Register that panics on error. Intended for static setup.
func (r *Registry) MustRegister(name, parent string, opts ...LevelOption) *Level {
	l, err := r.Register(name, parent, opts...)
	if err != nil {
		panic(err)
	}
	return l
}

// Lookup returns a registered level by key.
func (r *Registry) Lookup(key string) (*Level, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.levels[levelKey(key)]
	return l, ok
}

// Level returns the level for a stored discriminator. Unknown discriminators
// map to a looseleaf level.
func (r *Registry) Level(discriminator string) *Level {
	if l, ok := r.Lookup(discriminator); ok {
		return l
	}
	return r.looseleafLevel(discriminator)
}

// Levels returns registered levels ordered by depth, then key.
func (r *Registry) Levels() []*Level {
	r.mu.RLock()
	out := make([]*Level, 0, len(r.levels))
	for _, l := range r.levels {
		out = append(out, l)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].depth != out[j].depth {
			return out[i].depth < out[j].depth
		}
		return out[i].key < out[j].key
	})
	return out
}

// IsOfType reports whether a tag stored with discriminator is of typeName,
// either exactly or through a subtype.
func (r *Registry) IsOfType(discriminator, typeName string) bool {
	name := Canonicalize(typeName)
	if name == BaseName {
		return true
	}
	target, ok := r.Lookup(name)
	if !ok {
		if target, ok = r.Lookup(name + tagSuffix); !ok {
			target = r.looseleafLevel(name)
		}
	}
	l := r.Level(discriminator)
	return l == target || target.IsAncestorOf(l)
}

// Catalog returns the type catalog for taggables in namespace. Catalogs are
// cached so every caller sees the same Type instances.
func (r *Registry) Catalog(namespace string) *Catalog {
	key := levelKey(namespace)

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.catalogs[key]; ok {
		return c
	}
	c := &Catalog{reg: r, namespaces: namespaceChain(key), types: map[string]*Type{}}
	r.catalogs[key] = c
	return c
}

func (r *Registry) looseleafLevel(name string) *Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.looseleaf[name]; ok {
		return l
	}
	l := &Level{key: name, parent: r.root, depth: 1, looseleaf: true}
	r.looseleaf[name] = l
	return l
}

// looseleafLevels returns the looseleaf levels seen so far, sorted by key.
// They sit below the root but are not linked as its children.
func (r *Registry) looseleafLevels() []*Level {
	r.mu.RLock()
	out := make([]*Level, 0, len(r.looseleaf))
	for _, l := range r.looseleaf {
		out = append(out, l)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}
