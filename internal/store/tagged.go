package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/tagtical/internal/model"
	"github.com/rcliao/tagtical/internal/taglist"
	"github.com/rcliao/tagtical/internal/tagtype"
)

// TaggedWith returns taggables of p.TaggableType matching p.Values under
// p.Mode. Only tags inside p.Condition count.
func (s *SQLStore) TaggedWith(ctx context.Context, p TaggedWithParams) ([]model.Taggable, error) {
	if len(p.Values) == 0 {
		if p.Mode == Exclude {
			return s.ListTaggables(ctx, ListParams{Type: p.TaggableType})
		}
		return nil, nil
	}

	var query string
	var args []any
	switch p.Mode {
	case MatchAny:
		query, args = s.taggedWithAny(p)
	case Exclude:
		query, args = s.taggedWithout(p)
	case MatchExact:
		query, args = s.taggedWithExactly(p)
	default:
		query, args = s.taggedWithAll(p)
	}

	out, err := s.queryTaggables(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tagged with (%s): %w", p.Mode, err)
	}
	return out, nil
}

// taggedWithAll joins taggings once per value so every value is required.
func (s *SQLStore) taggedWithAll(p TaggedWithParams) (string, []any) {
	var joins strings.Builder
	var args []any
	for i, v := range p.Values {
		alias := fmt.Sprint(i)
		join, a := s.taggingJoin(alias, p.Condition, p.Owner)
		match, ma := valuesMatch("t"+alias+".value_key", []string{v})
		joins.WriteString(join + " AND " + match)
		args = append(args, a...)
		args = append(args, ma...)
	}
	query := `SELECT DISTINCT ` + taggableColumns + ` FROM taggables r` + joins.String() +
		` WHERE r.type = ? ORDER BY r.created_at, r.id`
	return query, append(args, p.TaggableType)
}

func (s *SQLStore) taggedWithAny(p TaggedWithParams) (string, []any) {
	join, args := s.taggingJoin("", p.Condition, p.Owner)
	match, ma := valuesMatch("t.value_key", p.Values)
	args = append(args, ma...)
	query := `SELECT DISTINCT ` + taggableColumns + ` FROM taggables r` + join + ` AND ` + match +
		` WHERE r.type = ? ORDER BY r.created_at, r.id`
	return query, append(args, p.TaggableType)
}

func (s *SQLStore) taggedWithout(p TaggedWithParams) (string, []any) {
	where := []string{"g.taggable_type = ?"}
	args := []any{p.TaggableType, p.TaggableType}

	match, ma := valuesMatch("t.value_key", p.Values)
	where = append(where, match)
	args = append(args, ma...)
	if clause, a := conditionSQL(p.Condition, "t.type"); clause != "" {
		where = append(where, clause)
		args = append(args, a...)
	}
	if p.Owner != nil {
		where = append(where, "g.tagger_id = ?", "g.tagger_type = ?")
		args = append(args, p.Owner.ID, p.Owner.Type)
	}

	query := `SELECT ` + taggableColumns + ` FROM taggables r
		WHERE r.type = ? AND r.id NOT IN (
			SELECT g.taggable_id FROM taggings g JOIN tags t ON t.id = g.tag_id
			WHERE ` + strings.Join(where, " AND ") + `)
		ORDER BY r.created_at, r.id`
	return query, args
}

// taggedWithExactly keeps taggables whose in-scope tags are exactly the
// requested values.
func (s *SQLStore) taggedWithExactly(p TaggedWithParams) (string, []any) {
	join, args := s.taggingJoin("", p.Condition, p.Owner)
	args = append(args, p.TaggableType, distinctCount(p.Values))
	match, ma := valuesMatch("t.value_key", p.Values)
	args = append(args, ma...)

	query := `SELECT ` + taggableColumns + ` FROM taggables r` + join + `
		WHERE r.type = ?
		GROUP BY ` + taggableColumns + `
		HAVING COUNT(DISTINCT t.value_key) = ? AND SUM(CASE WHEN ` + match + ` THEN 0 ELSE 1 END) = 0
		ORDER BY r.created_at, r.id`
	return query, args
}

// Untagged returns taggables with no tag inside cond.
func (s *SQLStore) Untagged(ctx context.Context, taggableType string, cond tagtype.Condition) ([]model.Taggable, error) {
	args := []any{taggableType}
	inner := `SELECT 1 FROM taggings g JOIN tags t ON t.id = g.tag_id
		WHERE g.taggable_id = r.id AND g.taggable_type = r.type`
	if clause, a := cond.SQL("t.type"); clause != "" {
		inner += " AND " + clause
		args = append(args, a...)
	}
	query := `SELECT ` + taggableColumns + ` FROM taggables r
		WHERE r.type = ? AND NOT EXISTS (` + inner + `)
		ORDER BY r.created_at, r.id`

	out, err := s.queryTaggables(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("untagged: %w", err)
	}
	return out, nil
}

// taggingJoin joins taggings g<alias> and tags t<alias> onto taggables r.
func (s *SQLStore) taggingJoin(alias string, cond *tagtype.Condition, owner *model.Owner) (string, []any) {
	g, t := "g"+alias, "t"+alias
	var args []any

	join := fmt.Sprintf(" JOIN taggings %[1]s ON %[1]s.taggable_id = r.id AND %[1]s.taggable_type = r.type", g)
	if owner != nil {
		join += fmt.Sprintf(" AND %[1]s.tagger_id = ? AND %[1]s.tagger_type = ?", g)
		args = append(args, owner.ID, owner.Type)
	}
	join += fmt.Sprintf(" JOIN tags %[1]s ON %[1]s.id = %[2]s.tag_id", t, g)
	if clause, a := conditionSQL(cond, t+".type"); clause != "" {
		join += " AND " + clause
		args = append(args, a...)
	}
	return join, args
}

func distinctCount(values []string) int {
	seen := map[string]bool{}
	for _, v := range values {
		seen[taglist.Normalize(v)] = true
	}
	return len(seen)
}
