package tagtype

import "strings"

// Level is a concrete node of the tag hierarchy. Its key is the discriminator
// stored in tags.type.
type Level struct {
	key            string
	parent         *Level
	children       []*Level
	depth          int
	possibleValues []string
	looseleaf      bool
}

// Key returns the discriminator.
func (l *Level) Key() string { return l.key }

// Parent returns the superclass level, nil for the root.
func (l *Level) Parent() *Level { return l.parent }

// Depth is 0 for the root.
func (l *Level) Depth() int { return l.depth }

// IsRoot reports whether l is the hierarchy root.
func (l *Level) IsRoot() bool { return l.parent == nil }

// Looseleaf reports whether the level backs a type nobody registered.
func (l *Level) Looseleaf() bool { return l.looseleaf }

// PossibleValues returns the allow-list, nil when unrestricted.
func (l *Level) PossibleValues() []string {
	if l.possibleValues == nil {
		return nil
	}
	out := make([]string, len(l.possibleValues))
	copy(out, l.possibleValues)
	return out
}

// Canonical returns the allow-list spelling of value. Without an allow-list
// the value is returned unchanged.
func (l *Level) Canonical(value string) (string, bool) {
	if l.possibleValues == nil {
		return value, true
	}
	for _, pv := range l.possibleValues {
		if strings.EqualFold(strings.TrimSpace(pv), strings.TrimSpace(value)) {
			return pv, true
		}
	}
	return "", false
}

// IsAncestorOf reports whether l is a strict ancestor of o.
func (l *Level) IsAncestorOf(o *Level) bool {
	if o == nil {
		return false
	}
	for p := o.parent; p != nil; p = p.parent {
		if p == l {
			return true
		}
	}
	return false
}

// Ancestors returns the strict ancestors, root first.
func (l *Level) Ancestors() []*Level {
	var out []*Level
	for p := l.parent; p != nil; p = p.parent {
		out = append([]*Level{p}, out...)
	}
	return out
}

// Descendants returns every level below l in breadth-first order.
func (l *Level) Descendants() []*Level {
	var out []*Level
	queue := append([]*Level(nil), l.children...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n)
		queue = append(queue, n.children...)
	}
	return out
}

func (l *Level) String() string { return l.key }
