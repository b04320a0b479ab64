package tagtype

import (
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/stoewer/go-strcase"
)

// BaseName is the canonical name of the root type.
const BaseName = "tag"

const tagSuffix = "_" + BaseName

// Canonicalize maps a loose type name (":skills", "SkillTags", "photo_tags")
// to its canonical form: lower_snake, singular, without a trailing "_tag".
func Canonicalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, ":")
	if s == "" {
		return ""
	}
	s = inflection.Singular(strcase.SnakeCase(s))
	if s != BaseName {
		s = strings.TrimSuffix(s, tagSuffix)
	}
	return s
}

// levelKey normalizes a registered name. Class-like names keep their "_tag"
// suffix ("NeedTag" registers as "need_tag") so candidate lookup can find them.
func levelKey(name string) string {
	name = strings.Trim(strings.TrimSpace(name), "/")
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = strcase.SnakeCase(strings.TrimPrefix(p, ":"))
	}
	return strings.Join(parts, "/")
}

// namespaceChain returns every prefix of a "/"-separated namespace, deepest
// first, ending with the root namespace "".
func namespaceChain(namespace string) []string {
	namespace = levelKey(namespace)
	var chain []string
	for namespace != "" {
		chain = append(chain, namespace)
		i := strings.LastIndex(namespace, "/")
		if i < 0 {
			break
		}
		namespace = namespace[:i]
	}
	return append(chain, "")
}
