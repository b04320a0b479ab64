package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/tagtical/internal/model"
)

const taggableColumns = `r.id, r.type, r.name, r.cached_lists, r.created_at`

// PutTaggable inserts a taggable or updates its name and cached lists.
func (s *SQLStore) PutTaggable(ctx context.Context, t *model.Taggable) error {
	if t.Type == "" {
		return fmt.Errorf("put taggable: type is required")
	}
	if t.ID == "" {
		t.ID = s.newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	var cached *string
	if len(t.CachedLists) > 0 {
		b, err := json.Marshal(t.CachedLists)
		if err != nil {
			return fmt.Errorf("encode cached lists: %w", err)
		}
		str := string(b)
		cached = &str
	}

	_, err := s.exec(ctx,
		`INSERT INTO taggables (id, type, name, cached_lists, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (type, id) DO UPDATE SET name = excluded.name, cached_lists = excluded.cached_lists`,
		t.ID, t.Type, t.Name, cached, t.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put taggable: %w", err)
	}
	return nil
}

// GetTaggable returns one taggable or ErrNotFound.
func (s *SQLStore) GetTaggable(ctx context.Context, typ, id string) (*model.Taggable, error) {
	row := s.queryRow(ctx,
		`SELECT `+taggableColumns+` FROM taggables r WHERE r.type = ? AND r.id = ?`, typ, id)
	t, err := scanTaggable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("taggable %s/%s: %w", typ, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get taggable: %w", err)
	}
	return &t, nil
}

// ListTaggables lists taggables oldest first.
func (s *SQLStore) ListTaggables(ctx context.Context, p ListParams) ([]model.Taggable, error) {
	query := `SELECT ` + taggableColumns + ` FROM taggables r`
	var args []any
	if p.Type != "" {
		query += ` WHERE r.type = ?`
		args = append(args, p.Type)
	}
	query += ` ORDER BY r.type, r.created_at, r.id`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}
	return s.queryTaggables(ctx, query, args...)
}

// RmTaggable deletes a taggable and every tagging on it. Tags are kept.
func (s *SQLStore) RmTaggable(ctx context.Context, typ, id string) error {
	return s.InTx(ctx, func(st Store) error {
		tx := st.(*SQLStore)
		if _, err := tx.exec(ctx,
			`DELETE FROM taggings WHERE taggable_type = ? AND taggable_id = ?`, typ, id); err != nil {
			return fmt.Errorf("delete taggings: %w", err)
		}
		res, err := tx.exec(ctx, `DELETE FROM taggables WHERE type = ? AND id = ?`, typ, id)
		if err != nil {
			return fmt.Errorf("delete taggable: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("taggable %s/%s: %w", typ, id, ErrNotFound)
		}
		return nil
	})
}

func (s *SQLStore) queryTaggables(ctx context.Context, query string, args ...any) ([]model.Taggable, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Taggable
	for rows.Next() {
		t, err := scanTaggable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// scanTaggable reads taggableColumns followed by any extra columns.
func scanTaggable(row scanner, extra ...any) (model.Taggable, error) {
	var t model.Taggable
	var cached sql.NullString
	var createdAt string

	dest := append([]any{&t.ID, &t.Type, &t.Name, &cached, &createdAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return t, err
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if cached.Valid && cached.String != "" {
		json.Unmarshal([]byte(cached.String), &t.CachedLists)
	}
	return t, nil
}
