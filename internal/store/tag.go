package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rcliao/tagtical/internal/model"
	"github.com/rcliao/tagtical/internal/taglist"
)

// FindTags returns tags whose value matches one of p.Values ignoring case,
// restricted to the levels in p.Condition.
func (s *SQLStore) FindTags(ctx context.Context, p FindTagsParams) ([]model.Tag, error) {
	var where []string
	var args []any

	if len(p.Values) > 0 {
		clause, a := valuesMatch("t.value_key", p.Values)
		where = append(where, clause)
		args = append(args, a...)
	}
	if clause, a := conditionSQL(p.Condition, "t.type"); clause != "" {
		where = append(where, clause)
		args = append(args, a...)
	}

	query := `SELECT t.id, t.value, t.type, t.relevance FROM tags t`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY t.type, t.value`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find tags: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CreateTag inserts t, assigning its ID. When the (type, value) pair already
// exists nothing is written and ErrDuplicateTag is returned.
func (s *SQLStore) CreateTag(ctx context.Context, t *model.Tag) error {
	if strings.TrimSpace(t.Value) == "" {
		return fmt.Errorf("create tag: value is required")
	}
	if t.Type == "" {
		return fmt.Errorf("create tag %q: type is required", t.Value)
	}
	if t.Relevance == nil && s.defaultRelevance != nil {
		t.Relevance = model.Float(*s.defaultRelevance)
	}
	id := s.newID()

	res, err := s.exec(ctx,
		`INSERT INTO tags (id, value, value_key, type, relevance) VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		id, t.Value, taglist.Normalize(t.Value), t.Type, nullFloat(t.Relevance))
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("tag %s/%q: %w", t.Type, t.Value, ErrDuplicateTag)
	}
	t.ID = id
	return nil
}

func scanTag(row scanner, extra ...any) (model.Tag, error) {
	var t model.Tag
	var rel sql.NullFloat64
	dest := append([]any{&t.ID, &t.Value, &t.Type, &rel}, extra...)
	if err := row.Scan(dest...); err != nil {
		return t, err
	}
	t.Relevance = floatPtr(rel)
	return t, nil
}
