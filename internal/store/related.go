package store

import (
	"context"
	"fmt"
	"strings"
)

// Related returns taggables of p.TaggableType carrying tags whose value is
// one of p.Values, most shared tags first. The record named by ExcludeType
// and ExcludeID is left out.
func (s *SQLStore) Related(ctx context.Context, p RelatedParams) ([]Related, error) {
	if len(p.Values) == 0 {
		return nil, nil
	}

	where := []string{"r.type = ?"}
	args := []any{p.TaggableType}

	match, ma := valuesMatch("t.value_key", p.Values)
	where = append(where, match)
	args = append(args, ma...)
	if clause, a := conditionSQL(p.Condition, "t.type"); clause != "" {
		where = append(where, clause)
		args = append(args, a...)
	}
	if p.ExcludeID != "" && p.ExcludeType == p.TaggableType {
		where = append(where, "r.id <> ?")
		args = append(args, p.ExcludeID)
	}

	query := `SELECT ` + taggableColumns + `, COUNT(DISTINCT t.id) AS shared
		FROM taggables r
		JOIN taggings g ON g.taggable_id = r.id AND g.taggable_type = r.type
		JOIN tags t ON t.id = g.tag_id
		WHERE ` + strings.Join(where, " AND ") + `
		GROUP BY ` + taggableColumns + `
		ORDER BY shared DESC, r.created_at, r.id`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("related: %w", err)
	}
	defer rows.Close()

	var out []Related
	for rows.Next() {
		var rel Related
		t, err := scanTaggable(rows, &rel.Count)
		if err != nil {
			return nil, err
		}
		rel.Taggable = t
		out = append(out, rel)
	}
	return out, rows.Err()
}
